// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package binding

import (
	"reflect"
)

// Bind fills the tagged fields of the struct pointed to by out.
//
//	type GetUser struct {
//	    ID    int    `path:"id"`
//	    Limit int    `query:"limit" default:"20"`
//	    Token string `header:"X-Token"`
//	    SID   string `cookie:"sid"`
//	}
//
// Fields whose source has no value keep their zero value, or take the default
// tag when present. Embedded structs are bound recursively.
func Bind(out any, sources Sources, opts ...Option) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return ErrOutMustBePointer
	}
	return bindStruct(rv.Elem(), sources, applyOptions(opts))
}

// BindValue allocates a new value of struct type t (or *struct) and binds it.
func BindValue(t reflect.Type, sources Sources, opts ...Option) (reflect.Value, error) {
	isPtr := t.Kind() == reflect.Pointer
	base := t
	if isPtr {
		base = t.Elem()
	}
	if base.Kind() != reflect.Struct {
		return reflect.Value{}, ErrOutMustBePointer
	}
	ptr := reflect.New(base)
	if err := bindStruct(ptr.Elem(), sources, applyOptions(opts)); err != nil {
		return reflect.Value{}, err
	}
	if isPtr {
		return ptr, nil
	}
	return ptr.Elem(), nil
}

func bindStruct(v reflect.Value, sources Sources, o *Options) error {
	si := getStructInfo(v.Type())
	for _, f := range si.fields {
		field := v.FieldByIndex(f.index)
		if f.embedded {
			if err := bindStruct(field, sources, o); err != nil {
				return err
			}
			continue
		}

		values, present := lookup(sources, f)
		if !present {
			if !f.hasDef {
				continue
			}
			values = []string{f.def}
		}

		converted, err := convert(values, f.typ, o)
		if err != nil {
			return &BindError{
				Field:  f.name,
				Source: f.source,
				Value:  first(values),
				Type:   f.typ,
				Err:    err,
			}
		}
		field.Set(converted)
	}
	return nil
}

func lookup(sources Sources, f fieldInfo) ([]string, bool) {
	getter, ok := sources[f.source]
	if !ok || getter == nil || !getter.Has(f.key) {
		return nil, false
	}
	return getter.GetAll(f.key), true
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

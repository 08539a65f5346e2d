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

package validation

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

const redacted = "***REDACTED***"

// validateTags runs go-playground/validator struct tags.
func (v *Validator) validateTags(val any) error {
	rv := reflect.ValueOf(val)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	err := v.tags.Struct(rv.Interface())
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return &Error{Fields: []FieldError{{Code: "tag_error", Message: err.Error()}}}
	}

	var result Error
	for _, e := range verrs {
		ns := e.StructNamespace()
		// Strip the top-level struct name.
		if _, rest, ok := strings.Cut(ns, "."); ok {
			ns = rest
		}
		v.addTagError(&result, v.jsonPath(ns, rv.Type()), e)
		if v.cfg.maxErrors > 0 && len(result.Fields) >= v.cfg.maxErrors {
			result.Truncated = true
			break
		}
	}
	result.Sort()
	return &result
}

func (v *Validator) addTagError(result *Error, path string, e validator.FieldError) {
	if v.cfg.fieldNameMapper != nil {
		path = v.cfg.fieldNameMapper(path)
	}
	msg := v.message(e)
	value := fmt.Sprint(e.Value())
	if v.cfg.redactor != nil && v.cfg.redactor(path) {
		if value != "" {
			msg = strings.ReplaceAll(msg, value, redacted)
		}
		value = redacted
	}
	result.Add(path, "tag."+e.Tag(), msg, map[string]any{
		"tag":   e.Tag(),
		"param": e.Param(),
		"value": value,
	})
}

// jsonPath converts a struct namespace ("Items[2].Price") to a JSON path
// ("items.2.price"). Results are cached per type.
func (v *Validator) jsonPath(ns string, t reflect.Type) string {
	cache, _ := v.paths.LoadOrStore(t, &sync.Map{})
	m := cache.(*sync.Map)
	if p, ok := m.Load(ns); ok {
		return p.(string)
	}
	p := namespaceToJSONPath(ns, t)
	m.Store(ns, p)
	return p
}

func namespaceToJSONPath(ns string, t reflect.Type) string {
	ns = strings.NewReplacer("[", ".", "]", "").Replace(ns)
	parts := strings.Split(ns, ".")
	out := make([]string, 0, len(parts))

	cur := t
	for _, part := range parts {
		for cur.Kind() == reflect.Pointer {
			cur = cur.Elem()
		}
		if _, err := strconv.Atoi(part); err == nil {
			out = append(out, part)
			if cur.Kind() == reflect.Slice || cur.Kind() == reflect.Array || cur.Kind() == reflect.Map {
				cur = cur.Elem()
			}
			continue
		}
		if cur.Kind() == reflect.Struct {
			if f, ok := cur.FieldByName(part); ok {
				out = append(out, jsonName(f))
				cur = f.Type
				continue
			}
		}
		out = append(out, strings.ToLower(part))
	}
	return strings.Join(out, ".")
}

func (v *Validator) message(e validator.FieldError) string {
	if msg, ok := v.cfg.messages[e.Tag()]; ok {
		return msg
	}
	unit := ""
	if e.Kind() == reflect.String {
		unit = " characters"
	}
	switch e.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "uuid", "uuid4", "uuid7":
		return "must be a valid UUID"
	case "min", "gte":
		return fmt.Sprintf("must be at least %s%s", e.Param(), unit)
	case "max", "lte":
		return fmt.Sprintf("must be at most %s%s", e.Param(), unit)
	case "len":
		return fmt.Sprintf("must be exactly %s%s", e.Param(), unit)
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", e.Param())
	default:
		return fmt.Sprintf("failed validation (%s)", e.Tag())
	}
}

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
	"maps"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
)

// fieldInfo describes one bindable struct field.
type fieldInfo struct {
	index    []int
	name     string
	source   Source
	key      string
	typ      reflect.Type
	def      string
	hasDef   bool
	embedded bool
}

// structInfo is the cached binding plan for a struct type.
type structInfo struct {
	fields []fieldInfo
}

var (
	// Readers load the map without locking; writers copy it under mu.
	structCache   atomic.Pointer[map[reflect.Type]*structInfo]
	structCacheMu sync.Mutex
)

func init() {
	m := make(map[reflect.Type]*structInfo)
	structCache.Store(&m)
}

// getStructInfo returns the cached plan for typ, parsing it on first use.
func getStructInfo(typ reflect.Type) *structInfo {
	if si, ok := (*structCache.Load())[typ]; ok {
		return si
	}

	structCacheMu.Lock()
	defer structCacheMu.Unlock()

	m := structCache.Load()
	if si, ok := (*m)[typ]; ok {
		return si
	}

	si := parseStructInfo(typ)
	next := make(map[reflect.Type]*structInfo, len(*m)+1)
	maps.Copy(next, *m)
	next[typ] = si
	structCache.Store(&next)
	return si
}

func parseStructInfo(typ reflect.Type) *structInfo {
	si := &structInfo{}
	for i := range typ.NumField() {
		f := typ.Field(i)
		if !f.IsExported() {
			continue
		}

		if f.Anonymous && f.Type.Kind() == reflect.Struct {
			si.fields = append(si.fields, fieldInfo{index: f.Index, name: f.Name, typ: f.Type, embedded: true})
			continue
		}

		for _, ts := range tagSources {
			tag, ok := f.Tag.Lookup(ts.tag)
			if !ok {
				continue
			}
			key, _, _ := strings.Cut(tag, ",")
			if key == "-" {
				break
			}
			if key == "" {
				key = f.Name
			}
			def, hasDef := f.Tag.Lookup(TagDefault)
			si.fields = append(si.fields, fieldInfo{
				index:  f.Index,
				name:   f.Name,
				source: ts.source,
				key:    key,
				typ:    f.Type,
				def:    def,
				hasDef: hasDef,
			})
			break
		}
	}
	return si
}

// Bindable reports whether t is a struct (or pointer to struct) with at least
// one path, query, header or cookie tag.
func Bindable(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return false
	}
	for _, f := range getStructInfo(t).fields {
		if !f.embedded || Bindable(f.typ) {
			return true
		}
	}
	return false
}

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

package reqctx

import "sort"

// keyID gives every key a unique identity independent of its name.
type keyID struct {
	name string
}

// Key identifies a typed attribute.
type Key[T any] struct {
	id *keyID
}

// NewKey creates a new attribute key. The name is only used for introspection.
func NewKey[T any](name string) Key[T] {
	return Key[T]{id: &keyID{name: name}}
}

// Name returns the name the key was created with.
func (k Key[T]) Name() string {
	if k.id == nil {
		return ""
	}
	return k.id.name
}

// Attributes is a typed key/value bag owned by a single request.
// The zero value is ready to use.
type Attributes struct {
	m map[*keyID]any
}

// Get returns the value stored under k.
func Get[T any](a *Attributes, k Key[T]) (T, bool) {
	var zero T
	if a == nil || a.m == nil || k.id == nil {
		return zero, false
	}
	v, ok := a.m[k.id]
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	return typed, ok
}

// Set stores v under k, replacing any previous value.
func Set[T any](a *Attributes, k Key[T], v T) {
	if k.id == nil {
		return
	}
	if a.m == nil {
		a.m = make(map[*keyID]any, 4)
	}
	a.m[k.id] = v
}

// Remove deletes the value stored under k and returns it.
func Remove[T any](a *Attributes, k Key[T]) (T, bool) {
	v, ok := Get(a, k)
	if ok {
		delete(a.m, k.id)
	}
	return v, ok
}

// Has reports whether a value is stored under k.
func Has[T any](a *Attributes, k Key[T]) bool {
	if a == nil || a.m == nil || k.id == nil {
		return false
	}
	_, ok := a.m[k.id]
	return ok
}

// Len returns the number of stored attributes.
func (a *Attributes) Len() int {
	return len(a.m)
}

// Names returns the sorted names of all stored attributes.
func (a *Attributes) Names() []string {
	names := make([]string, 0, len(a.m))
	for id := range a.m {
		names = append(names, id.name)
	}
	sort.Strings(names)
	return names
}

// Clear removes every attribute.
func (a *Attributes) Clear() {
	clear(a.m)
}

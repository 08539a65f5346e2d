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

import (
	"maps"
	"slices"
)

var emptyDeployment = NewDeployment("", nil)

// Deployment is process-wide configuration shared by every request. It is
// immutable after creation and needs no synchronization.
type Deployment struct {
	name   string
	values map[string]any
}

// NewDeployment copies values into a new deployment.
func NewDeployment(name string, values map[string]any) *Deployment {
	return &Deployment{name: name, values: maps.Clone(values)}
}

// Name returns the deployment name.
func (d *Deployment) Name() string {
	return d.name
}

// Value returns the value stored under key.
func (d *Deployment) Value(key string) (any, bool) {
	v, ok := d.values[key]
	return v, ok
}

// Keys returns the sorted keys.
func (d *Deployment) Keys() []string {
	return slices.Sorted(maps.Keys(d.values))
}

// Lookup returns the value stored under key when it has type T.
func Lookup[T any](d *Deployment, key string) (T, bool) {
	var zero T
	if d == nil {
		return zero, false
	}
	v, ok := d.values[key]
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	return typed, ok
}

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

package chain

import (
	"math"
	"slices"
)

const (
	// HighestPrecedence is reserved for framework-internal resolvers.
	HighestPrecedence = math.MinInt32

	// LowestPrecedence sorts after everything else.
	LowestPrecedence = math.MaxInt32

	// DefaultOrder is used for values that do not implement [Ordered].
	DefaultOrder = 0
)

// Ordered is implemented by values that declare a precedence.
// Lower values run first.
type Ordered interface {
	Order() int
}

// OrderOf returns v's order, or [DefaultOrder].
func OrderOf(v any) int {
	if o, ok := v.(Ordered); ok {
		return o.Order()
	}
	return DefaultOrder
}

// SortByOrder stable-sorts s by [OrderOf].
func SortByOrder[T any](s []T) {
	slices.SortStableFunc(s, func(a, b T) int {
		oa, ob := OrderOf(a), OrderOf(b)
		switch {
		case oa < ob:
			return -1
		case oa > ob:
			return 1
		default:
			return 0
		}
	})
}

// Factory contributes a chain element for the descriptors it supports.
type Factory[D any] interface {
	Supports(d D) bool
}

// First returns the highest-precedence factory that supports d.
func First[D any, F Factory[D]](factories []F, d D) (F, bool) {
	sorted := slices.Clone(factories)
	SortByOrder(sorted)
	for _, f := range sorted {
		if f.Supports(d) {
			return f, true
		}
	}
	var zero F
	return zero, false
}

// All returns every factory that supports d, in precedence order.
func All[D any, F Factory[D]](factories []F, d D) []F {
	sorted := slices.Clone(factories)
	SortByOrder(sorted)
	var out []F
	for _, f := range sorted {
		if f.Supports(d) {
			out = append(out, f)
		}
	}
	return out
}

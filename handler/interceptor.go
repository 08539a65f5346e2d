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

package handler

import (
	"rivaas.dev/dispatch/chain"
	"rivaas.dev/dispatch/reqctx"
)

// Interceptor observes handler execution on a route. Interceptors run in
// precedence order for PreHandle and in reverse for PostHandle and
// AfterCompletion.
type Interceptor interface {
	// PreHandle runs after routing, before arguments are resolved. Returning
	// false ends the dispatch with whatever the interceptor wrote.
	PreHandle(rc *reqctx.Context, m *Method) (bool, error)

	// PostHandle runs after the handler returns and before the result is
	// written.
	PostHandle(rc *reqctx.Context, m *Method, result any) error

	// AfterCompletion runs once the dispatch is complete, for every
	// interceptor whose PreHandle returned true. err is the failure, if any.
	AfterCompletion(rc *reqctx.Context, m *Method, err error)
}

// Interceptors adapts functions to [Interceptor]. Nil fields are skipped.
type Interceptors struct {
	Priority int
	Pre      func(rc *reqctx.Context, m *Method) (bool, error)
	Post     func(rc *reqctx.Context, m *Method, result any) error
	After    func(rc *reqctx.Context, m *Method, err error)
}

// Order implements [chain.Ordered].
func (i Interceptors) Order() int {
	return i.Priority
}

// PreHandle implements [Interceptor].
func (i Interceptors) PreHandle(rc *reqctx.Context, m *Method) (bool, error) {
	if i.Pre == nil {
		return true, nil
	}
	return i.Pre(rc, m)
}

// PostHandle implements [Interceptor].
func (i Interceptors) PostHandle(rc *reqctx.Context, m *Method, result any) error {
	if i.Post == nil {
		return nil
	}
	return i.Post(rc, m, result)
}

// AfterCompletion implements [Interceptor].
func (i Interceptors) AfterCompletion(rc *reqctx.Context, m *Method, err error) {
	if i.After != nil {
		i.After(rc, m, err)
	}
}

// SortInterceptors orders interceptors by precedence, keeping registration
// order for ties.
func SortInterceptors(in []Interceptor) []Interceptor {
	out := make([]Interceptor, len(in))
	copy(out, in)
	chain.SortByOrder(out)
	return out
}

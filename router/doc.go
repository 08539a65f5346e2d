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

// Package router holds dispatch routes and matches requests against them.
//
// A [Route] pairs a path pattern with a handler and optional conditions:
// a method set, header and query parameter predicates, and the media types
// the route consumes and produces. A [Registry] stores routes in an
// immutable snapshot that is replaced on every change, so matching never
// blocks on registration.
//
// Patterns use ":name" for a single segment and a trailing "*name" for the
// remainder of the path:
//
//	reg := router.NewRegistry()
//	reg.Add(router.MustRoute("/users/:id", getUser,
//		router.WithMethods(http.MethodGet),
//		router.WithIntParam("id"),
//		router.WithProduces("json"),
//	))
//
// When several routes match, the most specific wins: a literal path beats a
// templated one, which beats a catch-all; then more literal segments, fewer
// variables and more constrained variables; then the narrower consumed and
// produced media types; then more explicit conditions; and finally the
// earlier registration.
//
// [Registry.Match] also explains misses. The deepest filter any
// path-matched route reached decides the failure: the method (405), a
// header or param condition (404), the request content type (415) or the
// Accept header (406).
package router

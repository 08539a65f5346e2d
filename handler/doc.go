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

// Package handler turns Go functions into dispatch targets.
//
// [New] inspects a function once and records a [resolver.Param] for each
// argument and a [resolver.Return] for its result. Arguments typed
// context.Context or one of the reqctx types are bound implicitly; the
// remaining arguments take their source from markers, in order:
//
//	m := handler.MustNew(
//		func(ctx context.Context, id int, in CreateUser) (*User, error) { ... },
//		handler.Path("id"),
//		handler.Body(handler.Required()),
//	)
//
// A function may return nothing, an error, a value, a value and an error, or
// a [Future] for work that completes later.
package handler

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

// Package chain implements the ordered advice chain shared by every
// resolution step of the dispatch engine.
//
// A [Chain] is built once, at deployment time, from one [Terminal] and zero
// or more [Advice] values sorted by precedence. Each invocation wraps the
// immutable chain in a fresh cursor. Advices run in ascending order; each one
// either calls the [Proceed] function it was given, delegating to the next
// advice or to the terminal, or returns its own result without proceeding.
//
// The cursor is monotonic: a Proceed function may run at most once, and
// calling it again returns [ErrProceeded] instead of replaying downstream
// steps.
//
//	c := chain.New[*Ctx, any](decode, trim, validate)
//	v, err := c.Invoke(ctx)
//
// Factories that contribute terminals or advices are selected with [First]
// and [All], which honour the same ordering.
package chain

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

// Package exception turns dispatch failures into responses.
//
// Handlers form an ordered chain over the same primitive as argument
// resolution (package chain). Each handler sees the failure and either
// produces a response or delegates to the next handler. The chain ends in
// [Default], which always answers: it formats the error with an
// errors.Formatter and maps anything unrecognized to 500.
//
//	chain := exception.New(
//		exception.WithHandlers(
//			exception.For(func(rc *reqctx.Context, err *QuotaError) (*derrors.Response, error) {
//				return &derrors.Response{Status: http.StatusTooManyRequests}, nil
//			}),
//		),
//	)
//	resp := chain.Handle(rc, err)
//
// [Chain.Handle] never fails and never panics.
package exception

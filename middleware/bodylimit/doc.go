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

// Package bodylimit caps the size of request bodies.
//
// The interceptor runs before arguments are resolved. A declared
// Content-Length above the limit is refused at once with 413; otherwise
// the body reader is replaced by one that fails with [ErrTooLarge] after
// the limit, so entity decoding fails with 413 as well:
//
//	d := dispatch.MustNew(dispatch.WithInterceptors(
//		bodylimit.New(bodylimit.WithLimit(1 << 20)),
//	))
//
// Uploads that need a larger allowance can be skipped by path, or given a
// route-level interceptor with their own limit.
package bodylimit

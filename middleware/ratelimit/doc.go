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

// Package ratelimit limits requests per client with token buckets or sliding
// windows.
//
// The limiter is an interceptor: it runs after the route is matched and
// before arguments are resolved, so rejected requests never touch the body.
// Every checked response carries the RateLimit-Limit, RateLimit-Remaining
// and RateLimit-Reset headers. Requests over the limit fail with a 429 that
// adds Retry-After.
//
//	d := dispatch.MustNew(dispatch.WithInterceptors(
//		ratelimit.New(ratelimit.WithRate(50, 10)),
//	))
//
// Clients are keyed by remote IP unless [WithKeyFunc] says otherwise, for
// example by API key or by the authenticated user.
package ratelimit

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

// Package basicauth protects routes with HTTP Basic Authentication
// (RFC 7617).
//
// The interceptor runs after routing and before any argument is resolved,
// so a request without valid credentials never reaches body decoding.
// Failures become a 401 answered by the exception chain, with the
// WWW-Authenticate challenge set:
//
//	auth := basicauth.New(
//		basicauth.WithValidator(func(user, password string) bool {
//			return users.Check(user, password)
//		}),
//		basicauth.WithRealm("orders"),
//	)
//	d.DELETE("/orders/:id", h, router.WithInterceptors(auth))
//
// A handler reads the user with [Username]. Credentials travel in clear
// text; serve protected routes over TLS.
package basicauth

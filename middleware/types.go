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

// Package middleware holds what the extension packages below it share.
package middleware

import "rivaas.dev/dispatch/reqctx"

// RequestIDKey is the attribute holding the request id. The requestid
// package sets it; logging and accesslog read it.
var RequestIDKey = reqctx.NewKey[string]("middleware.request_id")

// AuthUsernameKey is the attribute holding the authenticated user name.
var AuthUsernameKey = reqctx.NewKey[string]("middleware.auth_username")

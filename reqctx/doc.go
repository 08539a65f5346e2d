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

// Package reqctx provides the per-request carrier used by the dispatch engine.
//
// A [Context] is created when a request arrives and ended after the response
// has been written. It holds the transport-neutral [Request] and [Response],
// a typed attribute bag, a reference to the read-only [Deployment], and the
// [Conn] the request arrived on. A Context is touched by one flow of control
// at a time and is never shared across requests, so none of its methods
// synchronize except where noted.
//
// # Attributes
//
// Attributes are keyed by [Key] values. Two keys created with the same name are
// still distinct, so packages can keep private state on a request without
// coordinating names:
//
//	var tempFiles = reqctx.NewKey[[]string]("multipart.files")
//
//	reqctx.Set(rc.Attributes(), tempFiles, paths)
//	rc.OnEnd(func(error) {
//	    files, _ := reqctx.Get(rc.Attributes(), tempFiles)
//	    for _, f := range files {
//	        os.Remove(f)
//	    }
//	})
//
// # End hooks
//
// Hooks registered with [Context.OnEnd] run exactly once when the dispatch
// completes, whether it succeeded, failed or was cancelled because the
// connection went away.
package reqctx

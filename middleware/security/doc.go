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

// Package security sets protective response headers on every dispatched
// request.
//
// The observer writes the headers when the request starts, so 404, 405 and
// error responses carry them as well as handler responses. Defaults suit an
// API: frames denied, MIME sniffing off, a same-origin content security
// policy, and HSTS on TLS requests.
//
//	d := dispatch.MustNew(dispatch.WithObserver(
//		security.New(security.ProductionPreset()),
//	))
package security

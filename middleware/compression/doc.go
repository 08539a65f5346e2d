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

// Package compression encodes response entities with brotli or gzip.
//
// The [Factory] is a response entity advice: it wraps the output channel of
// every handler return value and picks an encoding from the request's
// Accept-Encoding header, honoring q-values. Brotli wins ties.
//
//	d := dispatch.MustNew(dispatch.WithResponseAdvice(
//		compression.New(compression.WithMinSize(512)),
//	))
//
// Bodies below the minimum size pass through unchanged, as do 204, 206 and
// 304 responses, gRPC and octet-stream payloads, and excluded paths or
// content types. Streamed bodies such as text/event-stream are flushed
// through the encoder on every write.
package compression

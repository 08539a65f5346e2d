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

// Package binding converts request strings into typed Go values.
//
// [Convert] handles a single parameter: primitives, pointers, slices,
// time.Time, time.Duration, url.URL, net.IP and any type implementing
// encoding.TextUnmarshaler. [Bind] fills a struct from several sources at
// once, driven by path, query, header and cookie struct tags with an optional
// default tag.
//
// Struct plans are parsed once per type and cached for concurrent readers.
package binding

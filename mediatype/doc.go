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

// Package mediatype parses media types and Accept headers and ranks them by
// specificity.
//
// Specificity is the number of concrete parts of a media range: an exact type
// such as application/json scores 3, a subtype wildcard such as text/* or a
// suffix pattern such as application/*+json scores 2, and */* scores 1. The
// same ranking drives route selection on consumes/produces and response
// content negotiation.
//
// Parameters other than q are kept on the parsed value but ignored when
// matching, so "application/json; charset=utf-8" is accepted wherever
// "application/json" is.
package mediatype

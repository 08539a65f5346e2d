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

// Package errors defines the dispatch error taxonomy and the formatters that
// turn errors into HTTP responses.
//
// Every failure the dispatcher produces is an [*Error] with a [Kind]:
//
//   - KindNoRouteMatch (404): no route pattern matches the path
//   - KindMethodNotAllowed (405): the path matches but the method does not
//   - KindNotAcceptable (406): no producible media type satisfies Accept
//   - KindUnsupportedMediaType (415): no consumable media type or resolver
//     accepts the request Content-Type
//   - KindResolution (400 unless the cause says otherwise): argument or
//     entity conversion failed
//   - KindHandler (500 unless the cause says otherwise): the handler failed
//   - KindInternal (500): a framework invariant was violated
//   - KindUnavailable (503): the dispatcher is shutting down
//
// Kinds compare with [errors.Is] against the exported sentinels:
//
//	if errors.Is(err, derrors.ErrNotAcceptable) { ... }
//
// Domain errors can implement the optional interfaces [ErrorType],
// [ErrorDetails], [ErrorCode] and [ErrorHeaders] to control the status code,
// expose structured details, a machine-readable code and extra response
// headers. A [Formatter] then renders the error:
//
//   - RFC9457: RFC 9457 Problem Details (application/problem+json)
//   - JSONAPI: JSON:API error documents (application/vnd.api+json)
//   - Simple: {"error": "..."} objects (application/json)
package errors

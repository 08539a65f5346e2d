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

// Package tracing creates an OpenTelemetry server span for every
// dispatched request.
//
// A [Tracer] is a dispatch observer. It extracts the caller's trace context
// (W3C traceparent and baggage by default), starts a span named after the
// method and, once matched, the route pattern, adds an event per state
// machine transition, and ends the span with the response status:
//
//	t := tracing.MustNew(
//		tracing.WithServiceName("orders"),
//		tracing.WithOTLP("collector:4317", true),
//	)
//	defer t.Shutdown(context.Background())
//	d := dispatch.MustNew(dispatch.WithObserver(t))
//
// The span is installed in the request context, so a handler taking a
// context.Context parameter creates child spans, and logging.ForRequest
// adds trace_id and span_id to log records.
package tracing

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

package logging

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"rivaas.dev/dispatch/middleware"
	"rivaas.dev/dispatch/reqctx"
)

// Field names for request correlation.
const (
	FieldTraceID   = "trace_id"
	FieldSpanID    = "span_id"
	FieldRequestID = "request_id"
)

// ForRequest returns logger enriched with the request's method, path and
// request id, and with the trace and span ids of the active OpenTelemetry
// span in ctx. rc may be nil.
func ForRequest(ctx context.Context, logger *slog.Logger, rc *reqctx.Context) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	var attrs []any
	if rc != nil {
		req := rc.Request()
		attrs = append(attrs, "method", req.Method, "path", req.Path)
		if id, ok := reqctx.Get(rc.Attributes(), middleware.RequestIDKey); ok {
			attrs = append(attrs, FieldRequestID, id)
		}
		if ctx == nil {
			ctx = rc.Context()
		}
	}
	if ctx != nil {
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			attrs = append(attrs, FieldTraceID, sc.TraceID().String(), FieldSpanID, sc.SpanID().String())
		}
	}
	if len(attrs) == 0 {
		return logger
	}
	return logger.With(attrs...)
}

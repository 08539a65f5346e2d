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

package tracing

import (
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"rivaas.dev/dispatch"
	derrors "rivaas.dev/dispatch/errors"
	"rivaas.dev/dispatch/reqctx"
	"rivaas.dev/dispatch/router"
)

var _ dispatch.Observer = (*Tracer)(nil)

type spanState struct {
	span  trace.Span
	named bool
}

// spanKey holds the request's server span.
var spanKey = reqctx.NewKey[*spanState]("tracing.span")

// OnStart implements dispatch.Observer. It continues the caller's trace
// from the W3C traceparent header and installs the span in the request
// context, where handlers and logging.ForRequest find it.
func (t *Tracer) OnStart(rc *reqctx.Context) {
	req := rc.Request()
	if t.excludePaths[req.Path] {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("http.request.method", req.Method),
		attribute.String("url.path", req.Path),
	}
	if req.RawQuery != "" {
		attrs = append(attrs, attribute.String("url.query", req.RawQuery))
	}
	if req.Host != "" {
		attrs = append(attrs, attribute.String("server.address", req.Host))
	}
	if req.RemoteAddr != "" {
		attrs = append(attrs, attribute.String("client.address", req.RemoteAddr))
	}
	if proto, version, ok := strings.Cut(req.Proto, "/"); ok {
		attrs = append(attrs,
			attribute.String("network.protocol.name", strings.ToLower(proto)),
			attribute.String("network.protocol.version", version),
		)
	}
	if ua := req.Header.Get("User-Agent"); ua != "" {
		attrs = append(attrs, attribute.String("user_agent.original", ua))
	}
	for _, h := range t.headers {
		if v := req.Header.Values(h); len(v) > 0 {
			attrs = append(attrs, attribute.StringSlice("http.request.header."+strings.ToLower(h), v))
		}
	}

	ctx := t.Extract(rc.Context(), req.Header)
	ctx, span := t.tracer.Start(ctx, req.Method,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attrs...),
	)
	rc.SetContext(ctx)
	reqctx.Set(rc.Attributes(), spanKey, &spanState{span: span})
}

// OnTransition implements dispatch.Observer. Each state change becomes a
// span event; the span is renamed after the route once one matches.
func (t *Tracer) OnTransition(rc *reqctx.Context, route *router.Route, _, to dispatch.State) {
	st, ok := reqctx.Get(rc.Attributes(), spanKey)
	if !ok {
		return
	}
	if route != nil && !st.named {
		st.named = true
		st.span.SetName(rc.Request().Method + " " + route.Path())
		st.span.SetAttributes(attribute.String("http.route", route.Path()))
	}
	st.span.AddEvent("dispatch." + strings.ToLower(to.String()))
}

// OnEnd implements dispatch.Observer. Server errors mark the span failed;
// client errors are recorded as events only.
func (t *Tracer) OnEnd(rc *reqctx.Context, _ *router.Route, err error) {
	st, ok := reqctx.Get(rc.Attributes(), spanKey)
	if !ok {
		return
	}
	status := rc.Response().Status()
	st.span.SetAttributes(
		attribute.Int("http.response.status_code", status),
		attribute.Int64("http.response.body.size", rc.Response().Written()),
	)
	if err != nil {
		st.span.SetAttributes(attribute.String("error.type", derrors.KindOf(err).String()))
	}
	if status >= http.StatusInternalServerError {
		if err != nil {
			st.span.RecordError(err)
		}
		st.span.SetStatus(codes.Error, http.StatusText(status))
	}
	st.span.End()
}

// SpanFromRequest returns the request's server span, or a non-recording
// span when the request is not traced.
func SpanFromRequest(rc *reqctx.Context) trace.Span {
	if st, ok := reqctx.Get(rc.Attributes(), spanKey); ok {
		return st.span
	}
	return trace.SpanFromContext(rc.Context())
}

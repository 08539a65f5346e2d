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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Option configures a [Tracer].
type Option func(*Tracer)

// WithServiceName sets the service.name resource attribute.
func WithServiceName(name string) Option {
	return func(t *Tracer) {
		t.serviceName = name
	}
}

// WithServiceVersion sets the service.version resource attribute.
func WithServiceVersion(version string) Option {
	return func(t *Tracer) {
		t.serviceVersion = version
	}
}

// WithSampleRate samples root spans with probability rate in [0, 1].
// Children follow their parent's decision.
func WithSampleRate(rate float64) Option {
	return func(t *Tracer) {
		if rate < 0 || rate > 1 {
			t.errs = append(t.errs, fmt.Errorf("sample rate must be within [0, 1], got %v", rate))
			return
		}
		t.sampleRate = rate
	}
}

// WithStdout exports finished spans to w as JSON. Meant for development.
func WithStdout(w io.Writer) Option {
	return func(t *Tracer) {
		t.setProvider(StdoutProvider)
		t.stdout = w
	}
}

// WithOTLP exports over OTLP/gRPC to endpoint ("host:4317").
func WithOTLP(endpoint string, insecure bool) Option {
	return func(t *Tracer) {
		t.setProvider(OTLPProvider)
		t.otlpEndpoint = endpoint
		t.otlpInsecure = insecure
	}
}

// WithOTLPHTTP exports over OTLP/HTTP to endpoint
// ("http://host:4318"). An http:// endpoint disables TLS.
func WithOTLPHTTP(endpoint string) Option {
	return func(t *Tracer) {
		t.setProvider(OTLPHTTPProvider)
		t.otlpEndpoint = endpoint
	}
}

// WithTracerProvider uses a provider owned by the caller. It is not shut
// down by [Tracer.Shutdown].
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(t *Tracer) {
		if tp == nil {
			t.errs = append(t.errs, errors.New("tracer provider cannot be nil"))
			return
		}
		t.setProvider(customProvider)
		t.provider = tp
	}
}

// WithGlobalTracerProvider registers the provider and propagator with otel.
func WithGlobalTracerProvider() Option {
	return func(t *Tracer) {
		t.registerGlobal = true
	}
}

// WithPropagator replaces the default W3C trace context and baggage
// propagator.
func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(t *Tracer) {
		if p != nil {
			t.propagator = p
		}
	}
}

// WithExcludePaths does not trace requests to these paths.
func WithExcludePaths(paths ...string) Option {
	return func(t *Tracer) {
		for _, p := range paths {
			t.excludePaths[p] = true
		}
	}
}

// WithHeaders records the named request headers as
// http.request.header.<name> attributes. Credentials are never recorded.
func WithHeaders(names ...string) Option {
	return func(t *Tracer) {
		for _, name := range names {
			key := http.CanonicalHeaderKey(name)
			if sensitiveHeaders[key] {
				continue
			}
			t.headers = append(t.headers, key)
		}
	}
}

// WithLogger logs exporter failures.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracer) {
		if logger != nil {
			t.logger = logger
		}
	}
}

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
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// ScopeName is the instrumentation scope of dispatch spans.
const ScopeName = "rivaas.dev/dispatch/tracing"

// Provider selects where spans go.
type Provider string

// Providers. NoopProvider records spans without exporting them, which
// still gives log records trace ids.
const (
	NoopProvider     Provider = "noop"
	StdoutProvider   Provider = "stdout"
	OTLPProvider     Provider = "otlp"
	OTLPHTTPProvider Provider = "otlp-http"
	customProvider   Provider = "custom"
)

var sensitiveHeaders = map[string]bool{
	"Authorization":       true,
	"Cookie":              true,
	"Set-Cookie":          true,
	"X-Api-Key":           true,
	"X-Auth-Token":        true,
	"Proxy-Authorization": true,
}

// Tracer creates a server span per dispatched request. It is a dispatch
// observer. All methods are safe for concurrent use.
type Tracer struct {
	kind           Provider
	kindCount      int
	serviceName    string
	serviceVersion string
	sampleRate     float64
	stdout         io.Writer
	otlpEndpoint   string
	otlpInsecure   bool
	registerGlobal bool
	excludePaths   map[string]bool
	headers        []string
	logger         *slog.Logger
	errs           []error

	provider    trace.TracerProvider
	sdkProvider *sdktrace.TracerProvider
	tracer      trace.Tracer
	propagator  propagation.TextMapPropagator
	shutdown    atomic.Bool
}

// New creates a tracer. Without a provider option spans are recorded but
// not exported. The global otel provider is untouched unless
// [WithGlobalTracerProvider] is given.
func New(opts ...Option) (*Tracer, error) {
	t := &Tracer{
		kind:           NoopProvider,
		serviceName:    "dispatch",
		serviceVersion: "0.0.0",
		sampleRate:     1,
		excludePaths:   make(map[string]bool),
		logger:         slog.New(slog.DiscardHandler),
		propagator:     propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	if err := t.validate(); err != nil {
		return nil, fmt.Errorf("tracing: invalid configuration: %w", err)
	}
	if err := t.initProvider(context.Background()); err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}
	t.tracer = t.provider.Tracer(ScopeName)
	if t.registerGlobal {
		otel.SetTracerProvider(t.provider)
		otel.SetTextMapPropagator(t.propagator)
	}
	return t, nil
}

// MustNew is like [New] but panics on error.
func MustNew(opts ...Option) *Tracer {
	t, err := New(opts...)
	if err != nil {
		panic(err.Error())
	}
	return t
}

func (t *Tracer) setProvider(p Provider) {
	t.kind = p
	t.kindCount++
}

func (t *Tracer) validate() error {
	errs := append([]error(nil), t.errs...)
	if t.kindCount > 1 {
		errs = append(errs, errors.New("only one of WithStdout, WithOTLP, WithOTLPHTTP or WithTracerProvider may be used"))
	}
	if t.serviceName == "" {
		errs = append(errs, errors.New("service name cannot be empty"))
	}
	return errors.Join(errs...)
}

func (t *Tracer) initProvider(ctx context.Context) error {
	if t.kind == customProvider {
		return nil
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", t.serviceName),
			attribute.String("service.version", t.serviceVersion),
		)),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(t.sampleRate))),
	}
	switch t.kind {
	case NoopProvider:
	case StdoutProvider:
		w := t.stdout
		if w == nil {
			w = os.Stdout
		}
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return fmt.Errorf("create stdout exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithSyncer(exporter))
	case OTLPProvider:
		var eo []otlptracegrpc.Option
		if t.otlpEndpoint != "" {
			eo = append(eo, otlptracegrpc.WithEndpoint(t.otlpEndpoint))
		}
		if t.otlpInsecure {
			eo = append(eo, otlptracegrpc.WithInsecure())
		}
		exporter, err := otlptracegrpc.New(ctx, eo...)
		if err != nil {
			return fmt.Errorf("create OTLP gRPC exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	case OTLPHTTPProvider:
		exporter, err := otlptracehttp.New(ctx, otlpHTTPOptions(t.otlpEndpoint)...)
		if err != nil {
			return fmt.Errorf("create OTLP HTTP exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	default:
		return fmt.Errorf("unsupported provider %q", t.kind)
	}

	t.sdkProvider = sdktrace.NewTracerProvider(opts...)
	t.provider = t.sdkProvider
	return nil
}

func otlpHTTPOptions(endpoint string) []otlptracehttp.Option {
	if endpoint == "" {
		return nil
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
	}
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(u.Host)}
	if u.Scheme == "http" {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if u.Path != "" && u.Path != "/" {
		opts = append(opts, otlptracehttp.WithURLPath(u.Path))
	}
	return opts
}

// Provider returns the configured provider kind.
func (t *Tracer) Provider() Provider {
	return t.kind
}

// Tracer returns the OpenTelemetry tracer for spans created by handlers.
func (t *Tracer) Tracer() trace.Tracer {
	return t.tracer
}

// Extract returns ctx with the remote span context carried by header.
func (t *Tracer) Extract(ctx context.Context, header http.Header) context.Context {
	return t.propagator.Extract(ctx, propagation.HeaderCarrier(header))
}

// Inject writes the span context of ctx into header, for outgoing calls.
func (t *Tracer) Inject(ctx context.Context, header http.Header) {
	t.propagator.Inject(ctx, propagation.HeaderCarrier(header))
}

// ForceFlush exports finished spans still buffered.
func (t *Tracer) ForceFlush(ctx context.Context) error {
	if t.sdkProvider == nil || t.shutdown.Load() {
		return nil
	}
	return t.sdkProvider.ForceFlush(ctx)
}

// Shutdown flushes and stops the provider the tracer created. It is safe
// to call more than once.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if !t.shutdown.CompareAndSwap(false, true) || t.sdkProvider == nil {
		return nil
	}
	if err := t.sdkProvider.Shutdown(ctx); err != nil {
		t.logger.Warn("tracer provider shutdown failed", "error", err)
		return fmt.Errorf("tracing: shutdown: %w", err)
	}
	return nil
}

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

package metrics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"sync"
	"sync/atomic"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// ScopeName is the instrumentation scope of every instrument.
const ScopeName = "rivaas.dev/dispatch/metrics"

// DefaultDurationBuckets are request duration boundaries in seconds.
var DefaultDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// DefaultSizeBuckets are response size boundaries in bytes.
var DefaultSizeBuckets = []float64{100, 1000, 10000, 100000, 1000000, 10000000}

var (
	// ErrNotPrometheus is returned by [Recorder.Handler] for push exporters.
	ErrNotPrometheus = errors.New("metrics: handler requires the Prometheus provider")
	// ErrTooManyMetrics is returned when the custom metric limit is reached.
	ErrTooManyMetrics = errors.New("metrics: custom metric limit reached")
	// ErrReservedName is returned for custom metrics in the dispatch namespace.
	ErrReservedName = errors.New("metrics: name is reserved")
)

// Provider selects where metrics go.
type Provider string

// Providers.
const (
	PrometheusProvider Provider = "prometheus"
	OTLPProvider       Provider = "otlp"
	StdoutProvider     Provider = "stdout"
	customProvider     Provider = "custom"
)

// Recorder records dispatch metrics with OpenTelemetry. It is a dispatch
// observer; see [Recorder.OnEnd]. All methods are safe for concurrent use.
type Recorder struct {
	provider       Provider
	providerCount  int
	otlpEndpoint   string
	stdout         io.Writer
	exportInterval time.Duration
	registerGlobal bool
	serviceName    string
	serviceVersion string
	logger         *slog.Logger
	errs           []error

	durationBuckets  []float64
	excludePaths     map[string]bool
	maxCustomMetrics int

	meterProvider metric.MeterProvider
	sdkProvider   *sdkmetric.MeterProvider
	registry      *promclient.Registry
	handler       http.Handler
	meter         metric.Meter

	requests     metric.Int64Counter
	duration     metric.Float64Histogram
	active       metric.Int64UpDownCounter
	responseSize metric.Int64Histogram
	failures     metric.Int64Counter
	transitions  metric.Int64Counter

	customMu         sync.RWMutex
	counters         map[string]metric.Int64Counter
	histograms       map[string]metric.Float64Histogram
	customFailures   atomic.Int64
	observedSources  []metric.Registration
	shutdownComplete atomic.Bool
}

// New creates a recorder. Without a provider option it exports to a
// private Prometheus registry. The global meter provider is untouched
// unless [WithGlobalMeterProvider] is given.
func New(opts ...Option) (*Recorder, error) {
	r := &Recorder{
		provider:         PrometheusProvider,
		exportInterval:   30 * time.Second,
		serviceName:      "dispatch",
		serviceVersion:   "0.0.0",
		logger:           slog.New(slog.DiscardHandler),
		durationBuckets:  DefaultDurationBuckets,
		excludePaths:     make(map[string]bool),
		maxCustomMetrics: 1000,
		counters:         make(map[string]metric.Int64Counter),
		histograms:       make(map[string]metric.Float64Histogram),
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.validate(); err != nil {
		return nil, fmt.Errorf("metrics: invalid configuration: %w", err)
	}
	if err := r.initProvider(); err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	if err := r.initInstruments(); err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	return r, nil
}

// MustNew is like [New] but panics on error.
func MustNew(opts ...Option) *Recorder {
	r, err := New(opts...)
	if err != nil {
		panic(err.Error())
	}
	return r
}

func (r *Recorder) setProvider(p Provider) {
	r.provider = p
	r.providerCount++
}

func (r *Recorder) validate() error {
	errs := append([]error(nil), r.errs...)
	if r.providerCount > 1 {
		errs = append(errs, errors.New("only one of WithPrometheus, WithOTLP, WithStdout or WithMeterProvider may be used"))
	}
	if r.serviceName == "" {
		errs = append(errs, errors.New("service name cannot be empty"))
	}
	if r.provider == OTLPProvider && r.otlpEndpoint != "" {
		if _, err := url.Parse(r.otlpEndpoint); err != nil {
			errs = append(errs, fmt.Errorf("invalid OTLP endpoint: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (r *Recorder) initProvider() error {
	if r.provider == customProvider {
		r.meter = r.meterProvider.Meter(ScopeName)
		return nil
	}

	var reader sdkmetric.Reader
	switch r.provider {
	case PrometheusProvider:
		r.registry = promclient.NewRegistry()
		exporter, err := prometheus.New(prometheus.WithRegisterer(r.registry))
		if err != nil {
			return fmt.Errorf("create Prometheus exporter: %w", err)
		}
		r.handler = promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
		reader = exporter
	case OTLPProvider:
		exporter, err := otlpmetrichttp.New(context.Background(), otlpOptions(r.otlpEndpoint)...)
		if err != nil {
			return fmt.Errorf("create OTLP exporter: %w", err)
		}
		reader = sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(r.exportInterval))
	case StdoutProvider:
		w := r.stdout
		if w == nil {
			w = os.Stdout
		}
		exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
		if err != nil {
			return fmt.Errorf("create stdout exporter: %w", err)
		}
		reader = sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(r.exportInterval))
	default:
		return fmt.Errorf("unsupported provider %q", r.provider)
	}

	r.sdkProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(resource.NewSchemaless(
			attribute.String("service.name", r.serviceName),
			attribute.String("service.version", r.serviceVersion),
		)),
	)
	r.meterProvider = r.sdkProvider
	if r.registerGlobal {
		otel.SetMeterProvider(r.sdkProvider)
	}
	r.meter = r.sdkProvider.Meter(ScopeName)
	return nil
}

// otlpOptions turns "http://host:4318/path" into exporter options.
func otlpOptions(endpoint string) []otlpmetrichttp.Option {
	if endpoint == "" {
		return nil
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(endpoint)}
	}
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(u.Host)}
	if u.Scheme == "http" {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	if u.Path != "" && u.Path != "/" {
		opts = append(opts, otlpmetrichttp.WithURLPath(u.Path))
	}
	return opts
}

func (r *Recorder) initInstruments() error {
	var err error
	m := r.meter
	r.requests, err = m.Int64Counter("dispatch.requests",
		metric.WithDescription("Requests dispatched"), metric.WithUnit("{request}"))
	if err != nil {
		return err
	}
	r.duration, err = m.Float64Histogram("dispatch.request.duration",
		metric.WithDescription("Time from arrival to completed response"), metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(r.durationBuckets...))
	if err != nil {
		return err
	}
	r.active, err = m.Int64UpDownCounter("dispatch.requests.active",
		metric.WithDescription("Requests being dispatched"), metric.WithUnit("{request}"))
	if err != nil {
		return err
	}
	r.responseSize, err = m.Int64Histogram("dispatch.response.size",
		metric.WithDescription("Response body size"), metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(DefaultSizeBuckets...))
	if err != nil {
		return err
	}
	r.failures, err = m.Int64Counter("dispatch.failures",
		metric.WithDescription("Dispatches that ended with an error, by kind"), metric.WithUnit("{request}"))
	if err != nil {
		return err
	}
	r.transitions, err = m.Int64Counter("dispatch.state.transitions",
		metric.WithDescription("Dispatch state machine transitions"), metric.WithUnit("{transition}"))
	return err
}

// Handler serves the Prometheus exposition format.
func (r *Recorder) Handler() (http.Handler, error) {
	if r.handler == nil {
		return nil, fmt.Errorf("%w, current provider: %s", ErrNotPrometheus, r.provider)
	}
	return r.handler, nil
}

// Provider returns the configured provider.
func (r *Recorder) Provider() Provider {
	return r.provider
}

// Meter returns the meter for instruments defined outside this package.
func (r *Recorder) Meter() metric.Meter {
	return r.meter
}

// ForceFlush exports pending data of push exporters.
func (r *Recorder) ForceFlush(ctx context.Context) error {
	if r.sdkProvider == nil || r.shutdownComplete.Load() {
		return nil
	}
	return r.sdkProvider.ForceFlush(ctx)
}

// Shutdown flushes and stops the provider the recorder created. It is safe
// to call more than once.
func (r *Recorder) Shutdown(ctx context.Context) error {
	if !r.shutdownComplete.CompareAndSwap(false, true) {
		return nil
	}
	var errs []error
	r.customMu.Lock()
	for _, reg := range r.observedSources {
		errs = append(errs, reg.Unregister())
	}
	r.observedSources = nil
	r.customMu.Unlock()

	if r.sdkProvider != nil {
		if err := r.sdkProvider.ForceFlush(ctx); err != nil {
			r.logger.Warn("metrics flush failed", "error", err)
		}
		if err := r.sdkProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}
	return errors.Join(errs...)
}

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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// Option configures a [Recorder].
type Option func(*Recorder)

// WithPrometheus exports through a private Prometheus registry served by
// [Recorder.Handler]. This is the default.
func WithPrometheus() Option {
	return func(r *Recorder) {
		r.setProvider(PrometheusProvider)
	}
}

// WithOTLP pushes to an OTLP/HTTP collector, such as
// "http://localhost:4318". An http:// endpoint disables TLS.
func WithOTLP(endpoint string) Option {
	return func(r *Recorder) {
		r.setProvider(OTLPProvider)
		r.otlpEndpoint = endpoint
	}
}

// WithStdout writes metrics to w periodically. Meant for development.
func WithStdout(w io.Writer) Option {
	return func(r *Recorder) {
		r.setProvider(StdoutProvider)
		r.stdout = w
	}
}

// WithMeterProvider records into a provider owned by the caller. It is not
// shut down by [Recorder.Shutdown].
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(r *Recorder) {
		if mp == nil {
			r.errs = append(r.errs, errors.New("meter provider cannot be nil"))
			return
		}
		r.setProvider(customProvider)
		r.meterProvider = mp
	}
}

// WithGlobalMeterProvider registers the provider with otel.SetMeterProvider.
func WithGlobalMeterProvider() Option {
	return func(r *Recorder) {
		r.registerGlobal = true
	}
}

// WithServiceName sets the service.name attribute.
func WithServiceName(name string) Option {
	return func(r *Recorder) {
		r.serviceName = name
	}
}

// WithServiceVersion sets the service.version attribute.
func WithServiceVersion(version string) Option {
	return func(r *Recorder) {
		r.serviceVersion = version
	}
}

// WithExportInterval sets the push interval of OTLP and stdout exporters.
func WithExportInterval(d time.Duration) Option {
	return func(r *Recorder) {
		if d <= 0 {
			r.errs = append(r.errs, fmt.Errorf("export interval must be positive, got %s", d))
			return
		}
		r.exportInterval = d
	}
}

// WithDurationBuckets sets the request duration histogram boundaries in
// seconds.
func WithDurationBuckets(buckets ...float64) Option {
	return func(r *Recorder) {
		if len(buckets) > 0 {
			r.durationBuckets = buckets
		}
	}
}

// WithExcludePaths does not record requests to these paths.
func WithExcludePaths(paths ...string) Option {
	return func(r *Recorder) {
		for _, p := range paths {
			r.excludePaths[p] = true
		}
	}
}

// WithMaxCustomMetrics caps the number of distinct custom metric names.
// Default: 1000.
func WithMaxCustomMetrics(n int) Option {
	return func(r *Recorder) {
		if n < 1 {
			r.errs = append(r.errs, fmt.Errorf("max custom metrics must be at least 1, got %d", n))
			return
		}
		r.maxCustomMetrics = n
	}
}

// WithLogger logs exporter failures.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		if logger != nil {
			r.logger = logger
		}
	}
}

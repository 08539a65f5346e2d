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

package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	derrors "rivaas.dev/dispatch/errors"
	"rivaas.dev/dispatch/handler"
	"rivaas.dev/dispatch/logging"
	"rivaas.dev/dispatch/metrics"
	"rivaas.dev/dispatch/middleware/bodylimit"
	"rivaas.dev/dispatch/middleware/connlimit"
	"rivaas.dev/dispatch/middleware/ratelimit"
	"rivaas.dev/dispatch/scheduler"
	"rivaas.dev/dispatch/tracing"
	"rivaas.dev/dispatch/transport"
)

// Settings is the configuration of a dispatch server process.
type Settings struct {
	Service    ServiceSettings   `config:"service"`
	Server     ServerSettings    `config:"server"`
	Schedulers []SchedulerConfig `config:"schedulers"`
	Limits     LimitSettings     `config:"limits"`
	Log        LogSettings       `config:"log"`
	Metrics    MetricsSettings   `config:"metrics"`
	Tracing    TracingSettings   `config:"tracing"`
	Errors     ErrorSettings     `config:"errors"`
}

// ServiceSettings identifies the process in logs, metrics and traces.
type ServiceSettings struct {
	Name        string `config:"name" default:"dispatch"`
	Version     string `config:"version" default:"0.0.0"`
	Environment string `config:"environment"`
}

// ServerSettings configures the transport.
type ServerSettings struct {
	Addr              string        `config:"addr" default:":8080"`
	H2C               bool          `config:"h2c"`
	ReadHeaderTimeout time.Duration `config:"read_header_timeout" default:"5s"`
	ReadTimeout       time.Duration `config:"read_timeout" default:"15s"`
	WriteTimeout      time.Duration `config:"write_timeout" default:"30s"`
	IdleTimeout       time.Duration `config:"idle_timeout" default:"60s"`
	MaxHeaderBytes    int           `config:"max_header_bytes" default:"1048576"`
	ShutdownGrace     time.Duration `config:"shutdown_grace" default:"30s"`
}

// SchedulerConfig declares a worker pool routes can select by name.
type SchedulerConfig struct {
	Name    string `config:"name"`
	Workers int    `config:"workers" default:"8"`
	Queue   int    `config:"queue"`
}

// LimitSettings configures connection admission. Zero disables a limit.
type LimitSettings struct {
	Rate           float64       `config:"rate"`
	Burst          int           `config:"burst"`
	PeerRate       float64       `config:"peer_rate"`
	PeerBurst      int           `config:"peer_burst"`
	PeerTTL        time.Duration `config:"peer_ttl" default:"5m"`
	MaxConnections int           `config:"max_connections"`

	// Per-client request limits, enforced after routing.
	RequestRate  float64 `config:"request_rate"`
	RequestBurst int     `config:"request_burst"`
	MaxBodyBytes int64   `config:"max_body_bytes"`
}

// LogSettings configures the process logger.
type LogSettings struct {
	Level  string `config:"level" default:"info"`
	Format string `config:"format" default:"json"`
	Source bool   `config:"source"`
}

// MetricsSettings selects the metrics exporter. An empty provider disables
// metrics.
type MetricsSettings struct {
	Provider     string   `config:"provider"`
	Endpoint     string   `config:"endpoint"`
	ExcludePaths []string `config:"exclude_paths"`
}

// TracingSettings selects the span exporter. An empty provider disables
// tracing.
type TracingSettings struct {
	Provider     string   `config:"provider"`
	Endpoint     string   `config:"endpoint"`
	Insecure     bool     `config:"insecure"`
	SampleRate   *float64 `config:"sample_rate" default:"1"`
	ExcludePaths []string `config:"exclude_paths"`
	Headers      []string `config:"headers"`
}

// ErrorSettings selects the error response format.
type ErrorSettings struct {
	Format  string `config:"format" default:"rfc9457"`
	BaseURL string `config:"base_url"`
}

// Load binds the sources into [Settings] and validates them.
//
//	s, err := config.Load(ctx,
//		config.WithFile("dispatch.yaml"),
//		config.WithEnv("APP_"),
//	)
func Load(ctx context.Context, opts ...Option) (*Settings, error) {
	s := &Settings{}
	if err := Bind(ctx, s, opts...); err != nil {
		return nil, err
	}
	return s, nil
}

// MustLoad is like [Load] but panics on error.
func MustLoad(ctx context.Context, opts ...Option) *Settings {
	s, err := Load(ctx, opts...)
	if err != nil {
		panic(err.Error())
	}
	return s
}

// Validate implements [Validator].
func (s *Settings) Validate() error {
	var errs []error
	if _, err := logging.ParseLevel(s.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch logging.HandlerType(s.Log.Format) {
	case logging.JSONHandler, logging.TextHandler, logging.ConsoleHandler:
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", s.Log.Format))
	}

	if l := s.Limits; l.Rate < 0 || l.PeerRate < 0 || l.RequestRate < 0 || l.MaxConnections < 0 || l.MaxBodyBytes < 0 {
		errs = append(errs, errors.New("limits: values must not be negative"))
	}

	seen := make(map[string]bool, len(s.Schedulers))
	for i, sc := range s.Schedulers {
		switch {
		case sc.Name == "":
			errs = append(errs, fmt.Errorf("schedulers[%d]: name is required", i))
		case sc.Name == scheduler.InlineName:
			errs = append(errs, fmt.Errorf("schedulers[%d]: %q is reserved", i, sc.Name))
		case seen[sc.Name]:
			errs = append(errs, fmt.Errorf("schedulers[%d]: duplicate name %q", i, sc.Name))
		}
		seen[sc.Name] = true
		if sc.Workers <= 0 || sc.Queue < 0 {
			errs = append(errs, fmt.Errorf("schedulers[%d]: workers must be positive and queue non-negative", i))
		}
	}

	switch s.Metrics.Provider {
	case "", string(metrics.PrometheusProvider), string(metrics.StdoutProvider):
	case string(metrics.OTLPProvider):
		if s.Metrics.Endpoint == "" {
			errs = append(errs, errors.New("metrics.endpoint is required for otlp"))
		}
	default:
		errs = append(errs, fmt.Errorf("metrics.provider: unknown provider %q", s.Metrics.Provider))
	}
	switch s.Tracing.Provider {
	case "", string(tracing.NoopProvider), string(tracing.StdoutProvider):
	case string(tracing.OTLPProvider), string(tracing.OTLPHTTPProvider):
		if s.Tracing.Endpoint == "" {
			errs = append(errs, fmt.Errorf("tracing.endpoint is required for %s", s.Tracing.Provider))
		}
	default:
		errs = append(errs, fmt.Errorf("tracing.provider: unknown provider %q", s.Tracing.Provider))
	}
	if r := s.Tracing.SampleRate; r != nil && (*r < 0 || *r > 1) {
		errs = append(errs, fmt.Errorf("tracing.sample_rate must be within [0, 1], got %v", *r))
	}

	switch strings.ToLower(s.Errors.Format) {
	case "rfc9457", "jsonapi", "simple":
	default:
		errs = append(errs, fmt.Errorf("errors.format: unknown format %q", s.Errors.Format))
	}
	return errors.Join(errs...)
}

// Logger builds the process logger.
func (s *Settings) Logger(opts ...logging.Option) (*logging.Logger, error) {
	level, err := logging.ParseLevel(s.Log.Level)
	if err != nil {
		return nil, err
	}
	base := []logging.Option{
		logging.WithHandlerType(logging.HandlerType(s.Log.Format)),
		logging.WithLevel(level),
		logging.WithServiceName(s.Service.Name),
		logging.WithServiceVersion(s.Service.Version),
		logging.WithSource(s.Log.Source),
	}
	if s.Service.Environment != "" {
		base = append(base, logging.WithEnvironment(s.Service.Environment))
	}
	return logging.New(append(base, opts...)...)
}

// BuildSchedulers creates the declared worker pools. The caller owns them; the
// dispatcher shuts them down when it is given them with
// dispatch.WithSchedulers.
func (s *Settings) BuildSchedulers(logger *slog.Logger) ([]scheduler.Scheduler, error) {
	logger = orDiscard(logger)
	out := make([]scheduler.Scheduler, 0, len(s.Schedulers))
	for _, sc := range s.Schedulers {
		opts := []scheduler.PoolOption{scheduler.WithWorkers(sc.Workers), scheduler.WithLogger(logger)}
		if sc.Queue > 0 {
			opts = append(opts, scheduler.WithQueue(sc.Queue))
		}
		p, err := scheduler.NewPool(sc.Name, opts...)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// ServerOptions returns the transport options.
func (s *Settings) ServerOptions(logger *slog.Logger) []transport.Option {
	logger = orDiscard(logger)
	return []transport.Option{
		transport.WithAddr(s.Server.Addr),
		transport.WithH2C(s.Server.H2C),
		transport.WithReadHeaderTimeout(s.Server.ReadHeaderTimeout),
		transport.WithReadTimeout(s.Server.ReadTimeout),
		transport.WithWriteTimeout(s.Server.WriteTimeout),
		transport.WithIdleTimeout(s.Server.IdleTimeout),
		transport.WithMaxHeaderBytes(s.Server.MaxHeaderBytes),
		transport.WithShutdownTimeout(s.Server.ShutdownGrace),
		transport.WithLogger(logger),
	}
}

// ConnLimiter builds the connection-init limiter, or returns nil when no
// limit is configured.
func (s *Settings) ConnLimiter(logger *slog.Logger) *connlimit.Limiter {
	logger = orDiscard(logger)
	l := s.Limits
	var opts []connlimit.Option
	if l.Rate > 0 {
		opts = append(opts, connlimit.WithRate(l.Rate, max(l.Burst, 1)))
	}
	if l.PeerRate > 0 {
		opts = append(opts, connlimit.WithPeerRate(l.PeerRate, max(l.PeerBurst, 1)), connlimit.WithPeerTTL(l.PeerTTL))
	}
	if l.MaxConnections > 0 {
		opts = append(opts, connlimit.WithMaxConnections(l.MaxConnections))
	}
	if len(opts) == 0 {
		return nil
	}
	return connlimit.New(append(opts, connlimit.WithLogger(logger))...)
}

// Interceptors builds the request rate and body size interceptors that are
// configured, in no particular order.
func (s *Settings) Interceptors(logger *slog.Logger) []handler.Interceptor {
	logger = orDiscard(logger)
	var out []handler.Interceptor
	if l := s.Limits; l.RequestRate > 0 {
		out = append(out, ratelimit.New(
			ratelimit.WithRate(l.RequestRate, max(l.RequestBurst, 1)),
			ratelimit.WithLogger(logger),
		))
	}
	if s.Limits.MaxBodyBytes > 0 {
		out = append(out, bodylimit.New(bodylimit.WithLimit(s.Limits.MaxBodyBytes)))
	}
	return out
}

// BuildMetrics builds the metrics recorder, or returns nil when metrics are
// disabled.
func (s *Settings) BuildMetrics(logger *slog.Logger) (*metrics.Recorder, error) {
	logger = orDiscard(logger)
	opts := []metrics.Option{
		metrics.WithServiceName(s.Service.Name),
		metrics.WithServiceVersion(s.Service.Version),
		metrics.WithLogger(logger),
	}
	switch metrics.Provider(s.Metrics.Provider) {
	case "":
		return nil, nil //nolint:nilnil // disabled
	case metrics.PrometheusProvider:
		opts = append(opts, metrics.WithPrometheus())
	case metrics.OTLPProvider:
		opts = append(opts, metrics.WithOTLP(s.Metrics.Endpoint))
	case metrics.StdoutProvider:
		opts = append(opts, metrics.WithStdout(os.Stdout))
	}
	if len(s.Metrics.ExcludePaths) > 0 {
		opts = append(opts, metrics.WithExcludePaths(s.Metrics.ExcludePaths...))
	}
	return metrics.New(opts...)
}

// Tracer builds the tracer, or returns nil when tracing is disabled.
func (s *Settings) Tracer(logger *slog.Logger) (*tracing.Tracer, error) {
	logger = orDiscard(logger)
	opts := []tracing.Option{
		tracing.WithServiceName(s.Service.Name),
		tracing.WithServiceVersion(s.Service.Version),
		tracing.WithLogger(logger),
	}
	switch tracing.Provider(s.Tracing.Provider) {
	case "":
		return nil, nil //nolint:nilnil // disabled
	case tracing.NoopProvider:
	case tracing.StdoutProvider:
		opts = append(opts, tracing.WithStdout(os.Stdout))
	case tracing.OTLPProvider:
		opts = append(opts, tracing.WithOTLP(s.Tracing.Endpoint, s.Tracing.Insecure))
	case tracing.OTLPHTTPProvider:
		opts = append(opts, tracing.WithOTLPHTTP(s.Tracing.Endpoint))
	}
	if s.Tracing.SampleRate != nil {
		opts = append(opts, tracing.WithSampleRate(*s.Tracing.SampleRate))
	}
	if len(s.Tracing.ExcludePaths) > 0 {
		opts = append(opts, tracing.WithExcludePaths(s.Tracing.ExcludePaths...))
	}
	if len(s.Tracing.Headers) > 0 {
		opts = append(opts, tracing.WithHeaders(s.Tracing.Headers...))
	}
	return tracing.New(opts...)
}

// Formatter returns the error response formatter.
func (s *Settings) Formatter() derrors.Formatter {
	switch strings.ToLower(s.Errors.Format) {
	case "jsonapi":
		return derrors.NewJSONAPI()
	case "simple":
		return derrors.NewSimple()
	}
	return derrors.NewRFC9457(s.Errors.BaseURL)
}

func orDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}

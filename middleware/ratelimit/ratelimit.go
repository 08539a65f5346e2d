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

package ratelimit

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"rivaas.dev/dispatch/handler"
	"rivaas.dev/dispatch/reqctx"
)

// DefaultOrder runs the limiter before authentication and body limits.
const DefaultOrder = -600

// ErrLimited matches every rate limit rejection.
var ErrLimited = errors.New("ratelimit: too many requests")

// Error is returned for requests over the limit. It answers 429.
type Error struct {
	Key        string
	Limit      int
	RetryAfter time.Duration
}

// Error implements error.
func (e *Error) Error() string {
	return fmt.Sprintf("rate limit of %d exceeded for %s", e.Limit, e.Key)
}

// Is matches [ErrLimited].
func (e *Error) Is(target error) bool { return target == ErrLimited }

// HTTPStatus implements errors.ErrorType.
func (e *Error) HTTPStatus() int { return http.StatusTooManyRequests }

// Code implements errors.ErrorCode.
func (e *Error) Code() string { return "rate_limited" }

// ResponseHeaders implements errors.ErrorHeaders.
func (e *Error) ResponseHeaders() http.Header {
	return http.Header{"Retry-After": {strconv.Itoa(seconds(e.RetryAfter))}}
}

// KeyFunc derives the limiting key from a request.
type KeyFunc func(rc *reqctx.Context) string

// ClientIP keys requests by remote IP.
func ClientIP(rc *reqctx.Context) string {
	addr := rc.Request().RemoteAddr
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	return "ip:" + addr
}

// Option configures the interceptor.
type Option func(*config)

type config struct {
	store      Store
	key        KeyFunc
	headers    bool
	reportOnly bool
	skipPaths  map[string]bool
	order      int
	logger     *slog.Logger
	now        func() time.Time
}

// WithRate uses a token bucket of r requests per second and the given
// burst. This is the default, at 100 per second with bursts of 20.
func WithRate(r float64, burst int) Option {
	return func(cfg *config) {
		cfg.store = NewTokenBucket(r, burst, 0)
	}
}

// WithSlidingWindow allows limit requests per window.
func WithSlidingWindow(limit int, window time.Duration) Option {
	return func(cfg *config) {
		cfg.store = NewSlidingWindow(limit, window)
	}
}

// WithStore sets a custom store, for example one shared between processes.
func WithStore(s Store) Option {
	return func(cfg *config) {
		if s != nil {
			cfg.store = s
		}
	}
}

// WithKeyFunc sets how clients are told apart. Default: [ClientIP].
func WithKeyFunc(fn KeyFunc) Option {
	return func(cfg *config) {
		if fn != nil {
			cfg.key = fn
		}
	}
}

// WithoutHeaders stops the RateLimit-* response headers.
func WithoutHeaders() Option {
	return func(cfg *config) {
		cfg.headers = false
	}
}

// WithReportOnly counts and logs requests over the limit but lets them
// through.
func WithReportOnly() Option {
	return func(cfg *config) {
		cfg.reportOnly = true
	}
}

// WithSkipPaths leaves these paths unlimited.
func WithSkipPaths(paths ...string) Option {
	return func(cfg *config) {
		for _, p := range paths {
			cfg.skipPaths[p] = true
		}
	}
}

// WithOrder sets the interceptor's precedence. Default: [DefaultOrder].
func WithOrder(order int) Option {
	return func(cfg *config) {
		cfg.order = order
	}
}

// WithLogger logs limited requests at warn level.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

type interceptor struct {
	cfg *config
}

// New returns the rate limiting interceptor.
func New(opts ...Option) handler.Interceptor {
	cfg := &config{
		key:       ClientIP,
		headers:   true,
		skipPaths: make(map[string]bool),
		order:     DefaultOrder,
		logger:    slog.New(slog.DiscardHandler),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.store == nil {
		cfg.store = NewTokenBucket(100, 20, 0)
	}
	return &interceptor{cfg: cfg}
}

func (i *interceptor) Order() int { return i.cfg.order }

func (i *interceptor) PreHandle(rc *reqctx.Context, _ *handler.Method) (bool, error) {
	req := rc.Request()
	if i.cfg.skipPaths[req.Path] {
		return true, nil
	}

	key := i.cfg.key(rc)
	d := i.cfg.store.Take(key, i.cfg.now())
	if i.cfg.headers {
		h := rc.Response().Header()
		h.Set("RateLimit-Limit", strconv.Itoa(d.Limit))
		h.Set("RateLimit-Remaining", strconv.Itoa(d.Remaining))
		h.Set("RateLimit-Reset", strconv.Itoa(seconds(d.Reset)))
	}
	if d.Allowed {
		return true, nil
	}

	i.cfg.logger.Warn("rate limit exceeded",
		"key", key, "limit", d.Limit, "method", req.Method, "path", req.Path, "report_only", i.cfg.reportOnly)
	if i.cfg.reportOnly {
		return true, nil
	}
	return false, &Error{Key: key, Limit: d.Limit, RetryAfter: d.Reset}
}

func (*interceptor) PostHandle(*reqctx.Context, *handler.Method, any) error { return nil }

func (*interceptor) AfterCompletion(*reqctx.Context, *handler.Method, error) {}

// seconds rounds up, so a client told to wait never retries early.
func seconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}

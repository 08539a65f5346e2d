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

package bodylimit

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"rivaas.dev/dispatch/handler"
	"rivaas.dev/dispatch/reqctx"
)

// Defaults.
const (
	DefaultLimit = 2 << 20
	DefaultOrder = -400
)

// ErrTooLarge matches every body limit failure.
var ErrTooLarge = errors.New("bodylimit: request body too large")

// Error reports a body over the limit. It answers 413.
type Error struct {
	Limit int64
}

// Error implements error.
func (e *Error) Error() string {
	return fmt.Sprintf("request body exceeds %s", formatSize(e.Limit))
}

// Is matches [ErrTooLarge].
func (e *Error) Is(target error) bool { return target == ErrTooLarge }

// HTTPStatus implements errors.ErrorType.
func (e *Error) HTTPStatus() int { return http.StatusRequestEntityTooLarge }

// Code implements errors.ErrorCode.
func (e *Error) Code() string { return "body_too_large" }

// Option configures the interceptor.
type Option func(*config)

type config struct {
	limit     int64
	skipPaths map[string]bool
	order     int
}

// WithLimit sets the maximum body size in bytes. Non-positive values keep
// the default.
func WithLimit(n int64) Option {
	return func(cfg *config) {
		if n > 0 {
			cfg.limit = n
		}
	}
}

// WithSkipPaths leaves bodies sent to these paths unlimited.
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

type interceptor struct {
	cfg *config
}

// New returns the body limit interceptor.
func New(opts ...Option) handler.Interceptor {
	cfg := &config{limit: DefaultLimit, skipPaths: make(map[string]bool), order: DefaultOrder}
	for _, opt := range opts {
		opt(cfg)
	}
	return &interceptor{cfg: cfg}
}

func (i *interceptor) Order() int { return i.cfg.order }

func (i *interceptor) PreHandle(rc *reqctx.Context, _ *handler.Method) (bool, error) {
	req := rc.Request()
	if i.cfg.skipPaths[req.Path] || !req.HasBody() {
		return true, nil
	}
	if req.ContentLength > i.cfg.limit {
		return false, &Error{Limit: i.cfg.limit}
	}
	req.SetBody(&limitedReader{r: req.Body(), remaining: i.cfg.limit, limit: i.cfg.limit})
	return true, nil
}

func (*interceptor) PostHandle(*reqctx.Context, *handler.Method, any) error { return nil }

func (*interceptor) AfterCompletion(*reqctx.Context, *handler.Method, error) {}

// limitedReader fails once more than limit bytes are read.
type limitedReader struct {
	r         io.ReadCloser
	remaining int64
	limit     int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		return 0, &Error{Limit: l.limit}
	}
	// Read one byte past the limit to tell "exactly at" from "over".
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n + int(l.remaining), &Error{Limit: l.limit}
	}
	return n, err
}

func (l *limitedReader) Close() error {
	return l.r.Close()
}

func formatSize(n int64) string {
	const (
		kb = 1 << 10
		mb = 1 << 20
		gb = 1 << 30
	)
	switch {
	case n >= gb:
		return fmt.Sprintf("%.1fGB", float64(n)/gb)
	case n >= mb:
		return fmt.Sprintf("%.1fMB", float64(n)/mb)
	case n >= kb:
		return fmt.Sprintf("%.1fKB", float64(n)/kb)
	}
	return fmt.Sprintf("%dB", n)
}

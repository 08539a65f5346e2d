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
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rivaas.dev/dispatch"
	"rivaas.dev/dispatch/handler"
	"rivaas.dev/dispatch/reqctx"
	"rivaas.dev/dispatch/router"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func withNow(now func() time.Time) Option {
	return func(cfg *config) {
		cfg.now = now
	}
}

func newDispatcher(t *testing.T, opts ...Option) *dispatch.Dispatcher {
	t.Helper()
	opts = append(opts, withNow(func() time.Time { return epoch }))
	d := dispatch.MustNew(dispatch.WithInterceptors(New(opts...)))
	for _, p := range []string{"/orders", "/health"} {
		_, err := d.GET(p, handler.MustNew(func() string { return "ok" }), router.WithProduces("text/plain"))
		require.NoError(t, err)
	}
	return d
}

func serve(d *dispatch.Dispatcher, target, remote string) *httptest.ResponseRecorder {
	req := reqctx.NewRequest(http.MethodGet, target, nil, nil)
	req.RemoteAddr = remote
	rec := httptest.NewRecorder()
	d.Dispatch(reqctx.New(context.Background(), req, rec))
	return rec
}

func TestTokenBucket(t *testing.T) {
	t.Parallel()

	s := NewTokenBucket(1, 2, 0)

	d := s.Take("a", epoch)
	assert.True(t, d.Allowed)
	assert.Equal(t, 2, d.Limit)
	assert.Equal(t, 1, d.Remaining)
	assert.Equal(t, time.Second, d.Reset)

	d = s.Take("a", epoch)
	assert.True(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)

	d = s.Take("a", epoch)
	assert.False(t, d.Allowed)
	assert.Equal(t, time.Second, d.Reset, "one token refills in a second")

	assert.True(t, s.Take("b", epoch).Allowed, "keys are independent")
	assert.True(t, s.Take("a", epoch.Add(time.Second)).Allowed)
}

func TestTokenBucket_SweepsIdleKeys(t *testing.T) {
	t.Parallel()

	s := NewTokenBucket(10, 1, time.Minute)
	s.Take("a", epoch)
	s.Take("b", epoch.Add(50*time.Second))
	require.Equal(t, 2, s.Len())

	s.Take("c", epoch.Add(100*time.Second))
	assert.Equal(t, 2, s.Len(), "a has been idle past the ttl")
}

func TestSlidingWindow(t *testing.T) {
	t.Parallel()

	s := NewSlidingWindow(3, time.Minute)
	for i := range 3 {
		d := s.Take("k", epoch)
		require.True(t, d.Allowed, "request %d", i)
		assert.Equal(t, 2-i, d.Remaining)
	}

	d := s.Take("k", epoch)
	assert.False(t, d.Allowed)
	assert.Equal(t, time.Minute, d.Reset)

	tests := []struct {
		name    string
		at      time.Duration
		allowed bool
	}{
		{"previous window still weighs 75%", 75 * time.Second, false},
		{"previous window weighs 50%", 90 * time.Second, true},
		{"two windows later", 3 * time.Minute, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.allowed, s.Take("k", epoch.Add(tt.at)).Allowed, tt.name)
	}
}

func TestInterceptor(t *testing.T) {
	t.Parallel()

	d := newDispatcher(t, WithRate(1, 2), WithSkipPaths("/health"))

	first := serve(d, "/orders", "10.0.0.1:4000")
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "2", first.Header().Get("RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("RateLimit-Remaining"))
	assert.Equal(t, "1", first.Header().Get("RateLimit-Reset"))

	assert.Equal(t, http.StatusOK, serve(d, "/orders", "10.0.0.1:4001").Code, "same host, other port")

	limited := serve(d, "/orders", "10.0.0.1:4002")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "1", limited.Header().Get("Retry-After"))
	assert.Equal(t, "0", limited.Header().Get("RateLimit-Remaining"))

	assert.Equal(t, http.StatusOK, serve(d, "/orders", "10.0.0.2:4000").Code, "other client")

	skipped := serve(d, "/health", "10.0.0.1:4003")
	assert.Equal(t, http.StatusOK, skipped.Code)
	assert.Empty(t, skipped.Header().Get("RateLimit-Limit"))
}

func TestInterceptor_Options(t *testing.T) {
	t.Parallel()

	t.Run("report only", func(t *testing.T) {
		t.Parallel()
		d := newDispatcher(t, WithRate(1, 1), WithReportOnly())
		serve(d, "/orders", "10.0.0.1:1")
		rec := serve(d, "/orders", "10.0.0.1:1")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "0", rec.Header().Get("RateLimit-Remaining"))
	})

	t.Run("custom key without headers", func(t *testing.T) {
		t.Parallel()
		d := newDispatcher(t,
			WithSlidingWindow(1, time.Minute),
			WithoutHeaders(),
			WithKeyFunc(func(*reqctx.Context) string { return "everyone" }),
		)
		first := serve(d, "/orders", "10.0.0.1:1")
		assert.Equal(t, http.StatusOK, first.Code)
		assert.Empty(t, first.Header().Get("RateLimit-Limit"))
		assert.Equal(t, http.StatusTooManyRequests, serve(d, "/orders", "10.0.0.2:1").Code)
	})
}

func TestError(t *testing.T) {
	t.Parallel()

	err := &Error{Key: "ip:10.0.0.1", Limit: 5, RetryAfter: 1500 * time.Millisecond}
	assert.ErrorIs(t, err, ErrLimited)
	assert.Equal(t, http.StatusTooManyRequests, err.HTTPStatus())
	assert.Equal(t, "2", err.ResponseHeaders().Get("Retry-After"))
	assert.Equal(t, "rate limit of 5 exceeded for ip:10.0.0.1", err.Error())
}

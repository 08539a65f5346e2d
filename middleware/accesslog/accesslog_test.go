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

package accesslog

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rivaas.dev/dispatch"
	"rivaas.dev/dispatch/handler"
	"rivaas.dev/dispatch/middleware/requestid"
	"rivaas.dev/dispatch/reqctx"
	"rivaas.dev/dispatch/router"
)

type record struct {
	level slog.Level
	msg   string
	attrs map[string]any
}

// recorder captures records, including attributes added through With.
type recorder struct {
	mu      *sync.Mutex
	records *[]record
	attrs   []slog.Attr
}

func newRecorder() *recorder {
	return &recorder{mu: &sync.Mutex{}, records: &[]record{}}
}

func (h *recorder) Enabled(context.Context, slog.Level) bool { return true }

func (h *recorder) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any)
	for _, a := range h.attrs {
		attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})
	h.mu.Lock()
	defer h.mu.Unlock()
	*h.records = append(*h.records, record{level: r.Level, msg: r.Message, attrs: attrs})
	return nil
}

func (h *recorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

func (h *recorder) WithGroup(string) slog.Handler { return h }

func (h *recorder) all() []record {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]record(nil), *h.records...)
}

func newDispatcher(t *testing.T, obs ...dispatch.Observer) *dispatch.Dispatcher {
	t.Helper()
	d := dispatch.MustNew(dispatch.WithObserver(obs...))
	_, err := d.GET("/orders/:id", handler.MustNew(func(id string) string { return "order " + id },
		handler.Path("id")), router.WithProduces("text/plain"))
	require.NoError(t, err)
	_, err = d.GET("/slow", handler.MustNew(func() string {
		time.Sleep(15 * time.Millisecond)
		return "slow"
	}), router.WithProduces("text/plain"))
	require.NoError(t, err)
	_, err = d.GET("/boom", handler.MustNew(func() (string, error) {
		return "", errors.New("boom")
	}), router.WithProduces("text/plain"))
	require.NoError(t, err)
	_, err = d.GET("/health", handler.MustNew(func() string { return "ok" }), router.WithProduces("text/plain"))
	require.NoError(t, err)
	return d
}

func serve(d *dispatch.Dispatcher, target string, headers ...string) *httptest.ResponseRecorder {
	h := make(http.Header)
	for i := 0; i+1 < len(headers); i += 2 {
		h.Set(headers[i], headers[i+1])
	}
	req := reqctx.NewRequest(http.MethodGet, target, h, nil)
	req.RemoteAddr = "192.0.2.1:5555"
	req.Proto = "HTTP/1.1"
	rec := httptest.NewRecorder()
	d.Dispatch(reqctx.New(context.Background(), req, rec))
	return rec
}

func TestAccessLog_Levels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		target    string
		wantLevel slog.Level
		wantAttrs map[string]any
	}{
		{
			name:      "success",
			target:    "/orders/7",
			wantLevel: slog.LevelInfo,
			wantAttrs: map[string]any{"status": int64(200), "route": "/orders/:id", "path": "/orders/7", "bytes_sent": int64(7)},
		},
		{
			name:      "not found",
			target:    "/nope",
			wantLevel: slog.LevelWarn,
			wantAttrs: map[string]any{"status": int64(404), "method": "GET"},
		},
		{
			name:      "server error",
			target:    "/boom",
			wantLevel: slog.LevelError,
			wantAttrs: map[string]any{"status": int64(500), "route": "/boom"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := newRecorder()
			d := newDispatcher(t, New(WithLogger(slog.New(rec))))
			serve(d, tt.target)

			records := rec.all()
			require.Len(t, records, 1)
			assert.Equal(t, "access", records[0].msg)
			assert.Equal(t, tt.wantLevel, records[0].level)
			for k, v := range tt.wantAttrs {
				assert.Equal(t, v, records[0].attrs[k], k)
			}
			assert.Equal(t, "192.0.2.1", records[0].attrs["client_ip"])
		})
	}
}

func TestAccessLog_RequestID(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	d := newDispatcher(t,
		requestid.New(requestid.WithGenerator(func() string { return "rid-1" })),
		New(WithLogger(slog.New(rec))),
	)
	serve(d, "/orders/1", "X-Forwarded-For", "203.0.113.9, 10.0.0.1")

	records := rec.all()
	require.Len(t, records, 1)
	assert.Equal(t, "rid-1", records[0].attrs["request_id"])
	assert.Equal(t, "203.0.113.9", records[0].attrs["client_ip"])
}

func TestAccessLog_Filters(t *testing.T) {
	t.Parallel()

	t.Run("excluded paths", func(t *testing.T) {
		t.Parallel()
		rec := newRecorder()
		d := newDispatcher(t, New(WithLogger(slog.New(rec)), WithExcludePaths("/health"), WithExcludePrefixes("/orders")))
		serve(d, "/health")
		serve(d, "/orders/3")
		serve(d, "/boom")
		require.Len(t, rec.all(), 1)
	})

	t.Run("errors only", func(t *testing.T) {
		t.Parallel()
		rec := newRecorder()
		d := newDispatcher(t, New(WithLogger(slog.New(rec)), WithErrorsOnly()))
		serve(d, "/orders/3")
		serve(d, "/boom")
		records := rec.all()
		require.Len(t, records, 1)
		assert.Equal(t, slog.LevelError, records[0].level)
	})

	t.Run("slow requests bypass sampling", func(t *testing.T) {
		t.Parallel()
		rec := newRecorder()
		d := newDispatcher(t, New(WithLogger(slog.New(rec)), WithSampleRate(0), WithSlowThreshold(5*time.Millisecond)))
		serve(d, "/slow")
		records := rec.all()
		require.Len(t, records, 1)
		assert.Equal(t, slog.LevelWarn, records[0].level)
		assert.Equal(t, true, records[0].attrs["slow"])
	})

	t.Run("no logger", func(t *testing.T) {
		t.Parallel()
		d := newDispatcher(t, New())
		assert.Equal(t, http.StatusOK, serve(d, "/orders/3").Code)
	})
}

func TestSampleByHash(t *testing.T) {
	t.Parallel()

	assert.True(t, sampleByHash("", 0))
	assert.True(t, sampleByHash("abc", 1))
	assert.False(t, sampleByHash("abc", 0))
	assert.Equal(t, sampleByHash("req-42", 0.5), sampleByHash("req-42", 0.5))

	kept := 0
	for i := range 1000 {
		if sampleByHash(time.Unix(int64(i), 0).String(), 0.25) {
			kept++
		}
	}
	assert.InDelta(t, 250, kept, 80)
}

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

package exception

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rivaas.dev/dispatch/chain"
	derrors "rivaas.dev/dispatch/errors"
	"rivaas.dev/dispatch/reqctx"
)

type quotaError struct{ limit int }

func (e *quotaError) Error() string { return fmt.Sprintf("quota of %d exceeded", e.limit) }

var errGone = errors.New("gone")

func newRC(t *testing.T) (*reqctx.Context, *httptest.ResponseRecorder) {
	t.Helper()
	rec := httptest.NewRecorder()
	rc := reqctx.New(context.Background(), reqctx.NewRequest(http.MethodGet, "/orders/7", nil, nil), rec)
	return rc, rec
}

func TestChain_Handle(t *testing.T) {
	t.Parallel()

	quota := For(func(_ *reqctx.Context, err *quotaError) (*derrors.Response, error) {
		return &derrors.Response{Status: http.StatusTooManyRequests, Body: map[string]int{"limit": err.limit}}, nil
	})
	gone := Is(errGone, func(*reqctx.Context, error) (*derrors.Response, error) {
		return &derrors.Response{Status: http.StatusGone}, nil
	})

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"typed handler", &quotaError{limit: 3}, http.StatusTooManyRequests},
		{"typed handler through wrapping", fmt.Errorf("op: %w", &quotaError{limit: 3}), http.StatusTooManyRequests},
		{"sentinel handler", derrors.Handler(errGone), http.StatusGone},
		{"falls through to default", derrors.Resolution("param id", errors.New("bad")), http.StatusBadRequest},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError},
		{"method not allowed", derrors.MethodNotAllowed("DELETE", "/orders", []string{"GET"}), http.StatusMethodNotAllowed},
	}
	c := New(WithHandlers(quota, gone))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rc, _ := newRC(t)
			resp := c.Handle(rc, tt.err)
			require.NotNil(t, resp)
			assert.Equal(t, tt.wantStatus, resp.Status)
		})
	}
}

func TestChain_Precedence(t *testing.T) {
	t.Parallel()

	var seen []string
	record := func(name string, order int) Handler {
		return chain.OrderedAdvice[*Context, *derrors.Response](order, Func(func(ctx *Context, next Next) (*derrors.Response, error) {
			seen = append(seen, name)
			return next()
		}))
	}
	c := New(WithHandlers(record("late", 10), record("early", -10), record("middle", 0)))
	rc, _ := newRC(t)
	resp := c.Handle(rc, errors.New("x"))

	require.NotNil(t, resp)
	assert.Equal(t, []string{"early", "middle", "late"}, seen)
}

func TestChain_HandlerFailures(t *testing.T) {
	t.Parallel()

	failing := Func(func(*Context, Next) (*derrors.Response, error) {
		return nil, errors.New("handler broke")
	})
	panicking := Func(func(*Context, Next) (*derrors.Response, error) {
		panic("handler panicked")
	})

	for name, h := range map[string]Handler{"error": failing, "panic": panicking} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			rc, _ := newRC(t)
			resp := New(WithHandlers(h)).Handle(rc, &quotaError{limit: 1})
			require.NotNil(t, resp)
			assert.Equal(t, http.StatusInternalServerError, resp.Status)
		})
	}
}

func TestChain_HandlerReturningNothing(t *testing.T) {
	t.Parallel()

	silent := Func(func(*Context, Next) (*derrors.Response, error) { return nil, nil })

	t.Run("uncommitted falls back to the terminal handler", func(t *testing.T) {
		t.Parallel()
		rc, _ := newRC(t)
		resp := New(WithHandlers(silent)).Handle(rc, &quotaError{limit: 2})
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusInternalServerError, resp.Status)
	})

	t.Run("keeps the mapped status", func(t *testing.T) {
		t.Parallel()
		rc, _ := newRC(t)
		resp := New(WithHandlers(silent)).Handle(rc, derrors.Resolution("param id", errors.New("bad")))
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusBadRequest, resp.Status)
	})

	t.Run("committed by the handler", func(t *testing.T) {
		t.Parallel()
		writes := Func(func(ctx *Context, _ Next) (*derrors.Response, error) {
			return nil, Write(ctx.Request, &derrors.Response{Status: http.StatusTeapot})
		})
		rc, rec := newRC(t)
		assert.Nil(t, New(WithHandlers(writes)).Handle(rc, errors.New("x")))
		assert.Equal(t, http.StatusTeapot, rec.Code)
	})
}

func TestChain_PanickingFormatter(t *testing.T) {
	t.Parallel()

	f := derrors.FormatterFunc(func(string, error) derrors.Response { panic("formatter") })
	rc, _ := newRC(t)
	resp := New(WithFormatter(f)).Handle(rc, errors.New("x"))
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	assert.Equal(t, "Internal Server Error", resp.Body)
}

func TestDefault_HidesInternalCause(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	c := New(WithFormatter(derrors.NewSimple()), WithLogger(logger))

	rc, rec := newRC(t)
	resp := c.Handle(rc, derrors.Handler(errors.New("db password rejected")))
	require.NotNil(t, resp)
	require.NoError(t, Write(rc, resp))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "db password")
	assert.Contains(t, logs.String(), "db password rejected", "the cause is logged")
	assert.Contains(t, logs.String(), `"path":"/orders/7"`)
}

func TestDefault_KeepsClientErrorDetail(t *testing.T) {
	t.Parallel()

	c := New(WithFormatter(derrors.NewRFC9457("")))
	rc, rec := newRC(t)
	resp := c.Handle(rc, derrors.MethodNotAllowed("DELETE", "/orders/7", []string{"GET", "PUT"}))
	require.NoError(t, Write(rc, resp))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "GET, PUT", rec.Header().Get("Allow"))
	assert.Equal(t, "application/problem+json; charset=utf-8", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "/orders/7", body["instance"])
	assert.InDelta(t, 405, body["status"], 0)
}

func TestWrite(t *testing.T) {
	t.Parallel()

	t.Run("string body", func(t *testing.T) {
		t.Parallel()
		rc, rec := newRC(t)
		require.NoError(t, Write(rc, &derrors.Response{Status: 418, ContentType: "text/plain", Body: "teapot"}))
		assert.Equal(t, 418, rec.Code)
		assert.Equal(t, "teapot", rec.Body.String())
		assert.Equal(t, "6", rec.Header().Get("Content-Length"))
	})

	t.Run("no body", func(t *testing.T) {
		t.Parallel()
		rc, rec := newRC(t)
		require.NoError(t, Write(rc, &derrors.Response{Status: http.StatusGone}))
		assert.Equal(t, http.StatusGone, rec.Code)
		assert.Empty(t, rec.Body.String())
		assert.Empty(t, rec.Header().Get("Content-Type"))
	})

	t.Run("committed", func(t *testing.T) {
		t.Parallel()
		rc, _ := newRC(t)
		rc.Response().Commit()
		require.ErrorIs(t, Write(rc, &derrors.Response{Status: 500}), reqctx.ErrCommitted)
	})
}

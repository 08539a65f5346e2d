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

package basicauth

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rivaas.dev/dispatch"
	"rivaas.dev/dispatch/handler"
	"rivaas.dev/dispatch/reqctx"
	"rivaas.dev/dispatch/router"
)

func basic(user, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+password))
}

func newDispatcher(t *testing.T, opts ...Option) *dispatch.Dispatcher {
	t.Helper()
	d := dispatch.MustNew(dispatch.WithInterceptors(New(opts...)))
	_, err := d.GET("/admin", handler.MustNew(func(rc *reqctx.Context) string {
		return "hello " + Username(rc)
	}), router.WithProduces("text/plain"))
	require.NoError(t, err)
	_, err = d.GET("/health", handler.MustNew(func() string { return "ok" }), router.WithProduces("text/plain"))
	require.NoError(t, err)
	return d
}

func serve(d *dispatch.Dispatcher, target, authorization string) *httptest.ResponseRecorder {
	h := http.Header{}
	if authorization != "" {
		h.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	d.Dispatch(reqctx.New(context.Background(), reqctx.NewRequest(http.MethodGet, target, h, nil), rec))
	return rec
}

func TestInterceptor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		target        string
		authorization string
		wantStatus    int
		wantBody      string
	}{
		{"valid", "/admin", basic("ada", "s3cret"), http.StatusOK, "hello ada"},
		{"lowercase scheme", "/admin", "basic " + base64.StdEncoding.EncodeToString([]byte("ada:s3cret")), http.StatusOK, "hello ada"},
		{"missing", "/admin", "", http.StatusUnauthorized, ""},
		{"wrong password", "/admin", basic("ada", "guess"), http.StatusUnauthorized, ""},
		{"unknown user", "/admin", basic("bob", "s3cret"), http.StatusUnauthorized, ""},
		{"bearer", "/admin", "Bearer token", http.StatusUnauthorized, ""},
		{"not base64", "/admin", "Basic !!!", http.StatusUnauthorized, ""},
		{"no colon", "/admin", "Basic " + base64.StdEncoding.EncodeToString([]byte("ada")), http.StatusUnauthorized, ""},
		{"skipped path", "/health", "", http.StatusOK, "ok"},
	}
	d := newDispatcher(t,
		WithUsers(map[string]string{"ada": "s3cret"}),
		WithRealm("orders"),
		WithSkipPaths("/health"),
	)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := serve(d, tt.target, tt.authorization)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Equal(t, `Basic realm="orders", charset="UTF-8"`, rec.Header().Get("WWW-Authenticate"))
				assert.NotContains(t, rec.Body.String(), "s3cret")
				return
			}
			assert.Equal(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestWithValidator(t *testing.T) {
	t.Parallel()

	d := newDispatcher(t, WithValidator(func(user, password string) bool {
		return user == "svc" && password == "token"
	}))
	assert.Equal(t, http.StatusOK, serve(d, "/admin", basic("svc", "token")).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(d, "/admin", basic("svc", "nope")).Code)
}

func TestError(t *testing.T) {
	t.Parallel()

	var err error = &Error{Realm: "r", Reason: "missing credentials"}
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.False(t, errors.Is(errors.New("other"), ErrUnauthorized))
	assert.Equal(t, "unauthorized: missing credentials", err.Error())
}

func TestUsername_Unauthenticated(t *testing.T) {
	t.Parallel()

	rc := reqctx.New(context.Background(), reqctx.NewRequest(http.MethodGet, "/", nil, nil), httptest.NewRecorder())
	assert.Empty(t, Username(rc))
}

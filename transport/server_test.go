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

package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/http2"

	"rivaas.dev/dispatch"
	"rivaas.dev/dispatch/handler"
	"rivaas.dev/dispatch/reqctx"
	"rivaas.dev/dispatch/router"
)

func newDispatcher(t *testing.T, opts ...dispatch.Option) *dispatch.Dispatcher {
	t.Helper()
	d := dispatch.MustNew(append([]dispatch.Option{dispatch.WithDeploymentValue("region", "eu")}, opts...)...)
	_, err := d.GET("/hello", handler.MustNew(func(rc *reqctx.Context) string {
		region, _ := reqctx.Lookup[string](rc.Deployment(), "region")
		conn := "none"
		if rc.Conn() != nil {
			conn = "tracked"
		}
		return rc.Request().Proto + " " + region + " " + conn
	}), router.WithProduces("text/plain"))
	require.NoError(t, err)
	return d
}

func start(t *testing.T, s *Server) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = s.Serve(ln) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return "http://" + ln.Addr().String()
}

func get(t *testing.T, client *http.Client, url string) (int, string) {
	t.Helper()
	resp, err := client.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestServer_ServeHTTP(t *testing.T) {
	t.Parallel()

	s := MustNew(newDispatcher(t))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/hello", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HTTP/1.1 eu none", rec.Body.String())
}

func TestServer_Serve(t *testing.T) {
	t.Parallel()

	d := newDispatcher(t)
	base := start(t, MustNew(d))
	client := &http.Client{Transport: &http.Transport{}}

	code, body := get(t, client, base+"/hello")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "HTTP/1.1 eu tracked", body)
	assert.Equal(t, 1, d.Connections(), "keep-alive connection stays registered")

	code, _ = get(t, client, base+"/missing")
	assert.Equal(t, http.StatusNotFound, code)

	client.CloseIdleConnections()
	assert.Eventually(t, func() bool { return d.Connections() == 0 }, time.Second, 5*time.Millisecond)
}

func TestServer_RejectsConnections(t *testing.T) {
	t.Parallel()

	d := newDispatcher(t, dispatch.WithConnInit(func(*reqctx.Conn) error {
		return errors.New("no capacity")
	}))
	base := start(t, MustNew(d))

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}, Timeout: time.Second}
	_, err := client.Get(base + "/hello")
	require.Error(t, err)
	assert.Zero(t, d.Connections())
}

func TestServer_H2C(t *testing.T) {
	t.Parallel()

	base := start(t, MustNew(newDispatcher(t), WithH2C(true)))
	client := &http.Client{Transport: &http2.Transport{
		AllowHTTP: true,
		DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
			var dialer net.Dialer
			return dialer.DialContext(ctx, network, addr)
		},
	}}

	code, body := get(t, client, base+"/hello")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "HTTP/2.0 eu tracked", body)
}

func TestServer_ShutdownRefusesRequests(t *testing.T) {
	t.Parallel()

	d := newDispatcher(t)
	s := MustNew(d)
	base := start(t, s)

	client := &http.Client{Transport: &http.Transport{}}
	code, _ := get(t, client, base+"/hello")
	require.Equal(t, http.StatusOK, code)

	require.NoError(t, d.Shutdown(context.Background()))
	code, _ = get(t, client, base+"/hello")
	assert.Equal(t, http.StatusServiceUnavailable, code, "kept-alive connection gets 503 while draining")
}

func TestServer_Run(t *testing.T) {
	t.Parallel()

	d := newDispatcher(t)
	s := MustNew(d, WithShutdownTimeout(time.Second))
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.RunListener(ctx, ln) }()

	code, _ := get(t, &http.Client{}, "http://"+ln.Addr().String()+"/hello")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, ln.Addr().String(), s.Addr().String())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	assert.True(t, d.ShuttingDown())
	require.ErrorIs(t, s.Serve(ln), ErrServerStarted)
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts []Option
	}{
		{"empty address", []Option{WithAddr("")}},
		{"zero shutdown timeout", []Option{WithShutdownTimeout(0)}},
		{"zero header bytes", []Option{WithMaxHeaderBytes(0)}},
		{"h2c with tls", []Option{WithH2C(true), WithTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(dispatch.MustNew(), tt.opts...)
			require.Error(t, err)
		})
	}

	_, err := New(nil)
	require.Error(t, err)
	assert.Panics(t, func() { MustNew(nil) })
}

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

package compression

import (
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rivaas.dev/dispatch"
	"rivaas.dev/dispatch/handler"
	"rivaas.dev/dispatch/reqctx"
	"rivaas.dev/dispatch/router"
)

var payload = strings.Repeat("dispatch compresses repetitive payloads well. ", 40)

func newDispatcher(t *testing.T, opts ...Option) *dispatch.Dispatcher {
	t.Helper()
	d := dispatch.MustNew(dispatch.WithResponseAdvice(New(opts...)))
	text := router.WithProduces("text/plain")
	_, err := d.GET("/big", handler.MustNew(func() string { return payload }), text)
	require.NoError(t, err)
	_, err = d.GET("/small", handler.MustNew(func() string { return "tiny" }), text)
	require.NoError(t, err)
	_, err = d.GET("/stream", handler.MustNew(func() io.Reader { return strings.NewReader(payload) }), text)
	require.NoError(t, err)
	_, err = d.GET("/logo.png", handler.MustNew(func() string { return payload }), text)
	require.NoError(t, err)
	return d
}

func get(d *dispatch.Dispatcher, target, acceptEncoding string) *httptest.ResponseRecorder {
	h := make(http.Header)
	if acceptEncoding != "" {
		h.Set("Accept-Encoding", acceptEncoding)
	}
	rec := httptest.NewRecorder()
	d.Dispatch(reqctx.New(context.Background(), reqctx.NewRequest(http.MethodGet, target, h, nil), rec))
	return rec
}

func decode(t *testing.T, encoding string, body io.Reader) string {
	t.Helper()
	var r io.Reader
	switch encoding {
	case EncodingGzip:
		gz, err := gzip.NewReader(body)
		require.NoError(t, err)
		r = gz
	case EncodingBrotli:
		r = brotli.NewReader(body)
	default:
		r = body
	}
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(out)
}

func TestCompression(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		opts         []Option
		target       string
		accept       string
		wantEncoding string
		wantBody     string
	}{
		{"gzip", nil, "/big", "gzip", EncodingGzip, payload},
		{"brotli preferred", nil, "/big", "gzip, br", EncodingBrotli, payload},
		{"q-values", nil, "/big", "br;q=0.2, gzip;q=0.8", EncodingGzip, payload},
		{"brotli disabled", []Option{WithBrotliDisabled()}, "/big", "br, gzip", EncodingGzip, payload},
		{"identity", nil, "/big", "", "", payload},
		{"refused", nil, "/big", "gzip;q=0, br;q=0", "", payload},
		{"below min size", nil, "/small", "gzip", "", "tiny"},
		{"min size zero", []Option{WithMinSize(0)}, "/small", "gzip", EncodingGzip, "tiny"},
		{"excluded extension", []Option{WithExcludeExtensions("png")}, "/logo.png", "gzip", "", payload},
		{"excluded path", []Option{WithExcludePaths("/big")}, "/big", "gzip", "", payload},
		{"excluded content type", []Option{WithExcludeContentTypes("text/plain")}, "/big", "gzip", "", payload},
		{"stream", nil, "/stream", "gzip", EncodingGzip, payload},
		{"stream brotli", nil, "/stream", "br", EncodingBrotli, payload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := get(newDispatcher(t, tt.opts...), tt.target, tt.accept)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.wantEncoding, rec.Header().Get("Content-Encoding"))
			if tt.wantEncoding != "" {
				assert.Equal(t, "Accept-Encoding", rec.Header().Get("Vary"))
			}
			if cl := rec.Header().Get("Content-Length"); cl != "" {
				assert.Equal(t, cl, strconv.Itoa(rec.Body.Len()), "Content-Length matches the bytes on the wire")
			}
			assert.Equal(t, tt.wantBody, decode(t, tt.wantEncoding, rec.Body))
		})
	}
}

func TestCompression_ErrorsUntouched(t *testing.T) {
	t.Parallel()

	rec := get(newDispatcher(t, WithMinSize(0)), "/missing", "gzip")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, rec.Header().Get("Content-Encoding"))
}

func TestChooseEncoding(t *testing.T) {
	t.Parallel()

	both := defaultConfig()
	gzipOnly := defaultConfig()
	gzipOnly.enableBrotli = false

	tests := []struct {
		accept string
		cfg    *config
		want   string
	}{
		{"", both, ""},
		{"gzip", both, EncodingGzip},
		{"br", both, EncodingBrotli},
		{"gzip, br", both, EncodingBrotli},
		{"gzip;q=1.0, br;q=0.5", both, EncodingGzip},
		{"*", both, EncodingBrotli},
		{"*;q=0.5, br;q=0", both, EncodingGzip},
		{"deflate", both, ""},
		{"br", gzipOnly, ""},
		{"GZIP", gzipOnly, EncodingGzip},
	}
	for _, tt := range tests {
		t.Run(tt.accept, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, chooseEncoding(tt.accept, tt.cfg))
		})
	}
}

func TestParseQValue(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, -1, parseQValue("gzip", "br"), 0)
	assert.InDelta(t, 1, parseQValue("gzip", "gzip"), 0)
	assert.InDelta(t, 0.3, parseQValue("br;q=0.3,gzip", "br"), 0.0001)
	assert.InDelta(t, 1, parseQValue("br;q=oops", "br"), 0)
	assert.InDelta(t, -1, parseQValue("x-gzip", "gzip"), 0, "names match exactly")
}

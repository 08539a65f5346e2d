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
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"

	"rivaas.dev/dispatch/chain"
	"rivaas.dev/dispatch/resolver"
)

const (
	// DefaultMinSize is the smallest complete body that is compressed.
	DefaultMinSize = 256
	// DefaultOrder places compression outside most other response advice.
	DefaultOrder = -1000
)

// Encoding names as sent in Content-Encoding.
const (
	EncodingBrotli = "br"
	EncodingGzip   = "gzip"
)

// encoder is the part of gzip.Writer and brotli.Writer the advice uses.
type encoder interface {
	io.WriteCloser
	Flush() error
	Reset(w io.Writer)
}

// Factory creates the compression advice for every route.
type Factory struct {
	cfg        *config
	gzipPool   sync.Pool
	brotliPool sync.Pool
}

var _ resolver.ResponseEntityAdviceFactory = (*Factory)(nil)

// New returns a response advice factory that compresses encoded return
// values with Brotli or gzip, whichever the client's Accept-Encoding
// prefers. Brotli wins ties.
//
//	d := dispatch.MustNew(dispatch.WithResponseAdvice(
//		compression.New(compression.WithMinSize(1024)),
//	))
//
// Complete bodies below the minimum size are sent as is. Streams, event
// streams excepted, are compressed and flushed chunk by chunk. Error
// responses written by the exception chain are not compressed.
func New(opts ...Option) *Factory {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	f := &Factory{cfg: cfg}
	f.gzipPool.New = func() any {
		w, _ := gzip.NewWriterLevel(io.Discard, cfg.gzipLevel)
		return w
	}
	f.brotliPool.New = func() any {
		return brotli.NewWriterLevel(io.Discard, cfg.brotliLevel)
	}
	return f
}

// Order implements chain.Ordered.
func (f *Factory) Order() int { return f.cfg.order }

// Supports reports true for every return value.
func (*Factory) Supports(*resolver.Return) bool { return true }

// Create returns the advice.
func (f *Factory) Create(*resolver.Return) (resolver.ResponseEntityAdvice, error) {
	return resolver.ResponseEntityAdviceFunc(f.around), nil
}

func (f *Factory) around(e *resolver.ResponseEntity, next chain.Proceed[resolver.Void]) (resolver.Void, error) {
	req := e.Request.Request()
	resp := e.Request.Response()
	if f.excludedPath(req.Path) || resp.Header().Get("Content-Encoding") != "" {
		return next()
	}
	encoding := chooseEncoding(req.Header.Get("Accept-Encoding"), f.cfg)
	if encoding == "" {
		return next()
	}

	ch := &channel{f: f, inner: e.Channel, entity: e, encoding: encoding}
	e.Channel = ch
	defer func() { e.Channel = ch.inner }()

	v, err := next()
	if cerr := ch.close(); cerr != nil {
		f.cfg.logger.Error("compression: close encoder", "encoding", encoding, "error", cerr)
		if err == nil {
			err = cerr
		}
	}
	return v, err
}

func (f *Factory) excludedPath(p string) bool {
	if f.cfg.excludePaths[p] {
		return true
	}
	ext := strings.ToLower(path.Ext(p))
	return ext != "" && f.cfg.excludeExtensions[ext]
}

func (f *Factory) get(encoding string, w io.Writer) encoder {
	var enc encoder
	if encoding == EncodingBrotli {
		enc = f.brotliPool.Get().(*brotli.Writer)
	} else {
		enc = f.gzipPool.Get().(*gzip.Writer)
	}
	enc.Reset(w)
	return enc
}

func (f *Factory) put(enc encoder) {
	enc.Reset(io.Discard)
	switch w := enc.(type) {
	case *brotli.Writer:
		f.brotliPool.Put(w)
	case *gzip.Writer:
		f.gzipPool.Put(w)
	}
}

// channel compresses what the resolver writes before passing it on.
type channel struct {
	f        *Factory
	inner    resolver.ResponseEntityChannel
	entity   *resolver.ResponseEntity
	encoding string
	stream   encoder
}

func (c *channel) Write(body []byte) error {
	if len(body) < c.f.cfg.minSize || c.skip() {
		return c.inner.Write(body)
	}

	var buf bytes.Buffer
	enc := c.f.get(c.encoding, &buf)
	_, err := enc.Write(body)
	if cerr := enc.Close(); err == nil {
		err = cerr
	}
	c.f.put(enc)
	if err != nil {
		return err
	}

	h := c.entity.Request.Response().Header()
	c.setHeaders(h)
	h.Set("Content-Length", strconv.Itoa(buf.Len()))
	return c.inner.Write(buf.Bytes())
}

func (c *channel) Stream() io.Writer {
	if c.skip() || isEventStream(c.contentType()) {
		return c.inner.Stream()
	}
	c.setHeaders(c.entity.Request.Response().Header())
	c.stream = c.f.get(c.encoding, c.inner.Stream())
	return flushingEncoder{c.stream}
}

func (c *channel) Written() bool {
	return c.inner.Written()
}

func (c *channel) close() error {
	if c.stream == nil {
		return nil
	}
	err := c.stream.Close()
	c.f.put(c.stream)
	c.stream = nil
	return err
}

func (c *channel) setHeaders(h http.Header) {
	h.Del("Content-Length")
	h.Set("Content-Encoding", c.encoding)
	h.Add("Vary", "Accept-Encoding")
}

func (c *channel) contentType() string {
	if ct := c.entity.Request.Response().Header().Get("Content-Type"); ct != "" {
		return strings.ToLower(ct)
	}
	return strings.ToLower(c.entity.MediaType.String())
}

// skip reports responses that must not be compressed.
func (c *channel) skip() bool {
	switch c.entity.Request.Response().Status() {
	case http.StatusNoContent, http.StatusNotModified, http.StatusPartialContent:
		return true
	}
	ct := c.contentType()
	if strings.Contains(ct, "application/grpc") || strings.Contains(ct, "application/octet-stream") {
		return true
	}
	for excluded := range c.f.cfg.excludeContentTypes {
		if strings.Contains(ct, excluded) {
			return true
		}
	}
	return false
}

func isEventStream(ct string) bool {
	return strings.Contains(ct, "text/event-stream")
}

// flushingEncoder flushes after every write so streamed chunks reach the
// client without waiting for the encoder's window to fill.
type flushingEncoder struct {
	enc encoder
}

func (w flushingEncoder) Write(p []byte) (int, error) {
	n, err := w.enc.Write(p)
	if err != nil {
		return n, err
	}
	return n, w.enc.Flush()
}

// chooseEncoding picks br or gzip from an Accept-Encoding header, honoring
// q-values. It returns "" when neither is acceptable.
func chooseEncoding(acceptEncoding string, cfg *config) string {
	if acceptEncoding == "" {
		return ""
	}
	ae := strings.ToLower(acceptEncoding)
	brQ := parseQValue(ae, EncodingBrotli)
	gzipQ := parseQValue(ae, EncodingGzip)
	if wildcard := parseQValue(ae, "*"); wildcard > 0 {
		if brQ < 0 {
			brQ = wildcard
		}
		if gzipQ < 0 {
			gzipQ = wildcard
		}
	}

	if cfg.enableBrotli && brQ > 0 && (brQ >= gzipQ || !cfg.enableGzip) {
		return EncodingBrotli
	}
	if cfg.enableGzip && gzipQ > 0 {
		return EncodingGzip
	}
	return ""
}

// parseQValue returns the quality of coding in accept: -1 when absent, 1
// when present without a q parameter.
func parseQValue(accept, coding string) float64 {
	for part := range strings.SplitSeq(accept, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if strings.TrimSpace(name) != coding {
			continue
		}
		for param := range strings.SplitSeq(params, ";") {
			k, v, ok := strings.Cut(strings.TrimSpace(param), "=")
			if !ok || strings.TrimSpace(k) != "q" {
				continue
			}
			q, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return 1
			}
			return q
		}
		return 1
	}
	return -1
}

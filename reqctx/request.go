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

package reqctx

import (
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Request is the transport-neutral view of an inbound request.
//
// The body may be replaced with [Request.SetBody]; the reader the transport
// delivered stays available through [Request.OriginalBody].
type Request struct {
	Method     string
	Path       string
	RawQuery   string
	Host       string
	Proto      string
	RemoteAddr string
	Header     http.Header

	// TLS is true when the request arrived over a TLS connection.
	TLS bool

	// ContentLength is -1 when unknown.
	ContentLength int64

	pathVars map[string]string
	query    url.Values
	body     io.ReadCloser
	original io.ReadCloser
}

// NewRequest builds a Request from a method, a request target ("/path?query")
// and an optional body.
func NewRequest(method, target string, header http.Header, body io.ReadCloser) *Request {
	path, rawQuery, _ := strings.Cut(target, "?")
	if path == "" {
		path = "/"
	}
	if header == nil {
		header = make(http.Header)
	}
	if body == nil {
		body = http.NoBody
	}
	return &Request{
		Method:        strings.ToUpper(method),
		Path:          path,
		RawQuery:      rawQuery,
		Header:        header,
		ContentLength: -1,
		body:          body,
		original:      body,
	}
}

// FromHTTP converts an [http.Request].
func FromHTTP(r *http.Request) *Request {
	req := NewRequest(r.Method, r.URL.RequestURI(), r.Header, r.Body)
	req.Path = r.URL.Path
	req.Host = r.Host
	req.Proto = r.Proto
	req.RemoteAddr = r.RemoteAddr
	req.ContentLength = r.ContentLength
	req.TLS = r.TLS != nil
	return req
}

// Query returns the parsed query string. The result is cached.
func (r *Request) Query() url.Values {
	if r.query == nil {
		q, err := url.ParseQuery(r.RawQuery)
		if err != nil && q == nil {
			q = url.Values{}
		}
		r.query = q
	}
	return r.query
}

// ContentType returns the Content-Type header.
func (r *Request) ContentType() string {
	return r.Header.Get("Content-Type")
}

// Accept returns the Accept header.
func (r *Request) Accept() string {
	return r.Header.Get("Accept")
}

// Cookie returns the value of the named cookie.
func (r *Request) Cookie(name string) (string, bool) {
	for _, line := range r.Header.Values("Cookie") {
		cookies, err := http.ParseCookie(line)
		if err != nil {
			continue
		}
		for _, c := range cookies {
			if c.Name == name {
				return c.Value, true
			}
		}
	}
	return "", false
}

// PathVar returns a path variable captured by the matched route.
func (r *Request) PathVar(name string) (string, bool) {
	v, ok := r.pathVars[name]
	return v, ok
}

// PathVars returns all captured path variables.
func (r *Request) PathVars() map[string]string {
	return r.pathVars
}

// SetPathVars replaces the captured path variables.
func (r *Request) SetPathVars(vars map[string]string) {
	r.pathVars = vars
}

// Body returns the current body reader.
func (r *Request) Body() io.ReadCloser {
	return r.body
}

// SetBody replaces the body reader seen by resolvers.
func (r *Request) SetBody(body io.ReadCloser) {
	if body == nil {
		body = http.NoBody
	}
	r.body = body
}

// OriginalBody returns the body reader delivered by the transport.
func (r *Request) OriginalBody() io.ReadCloser {
	return r.original
}

// HasBody reports whether the request may carry a body.
func (r *Request) HasBody() bool {
	if r.body == nil || r.body == http.NoBody {
		return false
	}
	return r.ContentLength != 0
}

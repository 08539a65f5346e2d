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
	"errors"
	"net/http"
)

// ErrCommitted is returned when a response is modified after its header was sent.
var ErrCommitted = errors.New("response already committed")

// Writer is the sink a transport hands to a [Response].
// [http.ResponseWriter] satisfies it.
type Writer interface {
	Header() http.Header
	Write(p []byte) (int, error)
	WriteHeader(status int)
}

// Response is the outbound side of a request.
type Response struct {
	w         Writer
	status    int
	committed bool
	written   int64
}

// NewResponse wraps a transport writer.
func NewResponse(w Writer) *Response {
	return &Response{w: w, status: http.StatusOK}
}

// Header returns the response header map.
func (r *Response) Header() http.Header {
	return r.w.Header()
}

// Status returns the status that was or will be sent.
func (r *Response) Status() int {
	return r.status
}

// SetStatus sets the status code. It has no effect once committed.
func (r *Response) SetStatus(status int) {
	if !r.committed {
		r.status = status
	}
}

// Commit sends the status line and header.
func (r *Response) Commit() {
	if r.committed {
		return
	}
	r.committed = true
	r.w.WriteHeader(r.status)
}

// Committed reports whether the header has been sent.
func (r *Response) Committed() bool {
	return r.committed
}

// Write commits the header if needed and writes p.
func (r *Response) Write(p []byte) (int, error) {
	r.Commit()
	n, err := r.w.Write(p)
	r.written += int64(n)
	return n, err
}

// Written returns the number of body bytes written.
func (r *Response) Written() int64 {
	return r.written
}

// Flush flushes buffered data to the client when the writer supports it.
func (r *Response) Flush() {
	r.Commit()
	if f, ok := r.w.(http.Flusher); ok {
		f.Flush()
	}
}

// Reset clears the status and header so a different response can be produced.
func (r *Response) Reset() error {
	if r.committed {
		return ErrCommitted
	}
	r.status = http.StatusOK
	clear(r.w.Header())
	return nil
}

// Unwrap returns the transport writer.
func (r *Response) Unwrap() Writer {
	return r.w
}

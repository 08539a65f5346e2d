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

package resolver

import (
	"errors"
	"io"
	"strconv"

	"rivaas.dev/dispatch/reqctx"
)

// ErrChannelWritten is returned when a fixed body is written twice.
var ErrChannelWritten = errors.New("resolver: response body already written")

// ResponseEntityChannel is where encoded response bytes go. Write sends a
// complete body with a known length; Stream returns a writer for bodies of
// unknown length that are flushed as they are produced.
type ResponseEntityChannel interface {
	Write(body []byte) error
	Stream() io.Writer
	Written() bool
}

// Channel writes to a reqctx.Response.
type Channel struct {
	resp    *reqctx.Response
	written bool
}

// NewChannel returns a channel over resp.
func NewChannel(resp *reqctx.Response) *Channel {
	return &Channel{resp: resp}
}

// Write sets Content-Length and writes body.
func (c *Channel) Write(body []byte) error {
	if c.written {
		return ErrChannelWritten
	}
	c.written = true
	if !c.resp.Committed() && c.resp.Header().Get("Content-Encoding") == "" {
		c.resp.Header().Set("Content-Length", strconv.Itoa(len(body)))
	}
	_, err := c.resp.Write(body)
	return err
}

// Stream commits the header and returns a flushing writer.
func (c *Channel) Stream() io.Writer {
	c.written = true
	c.resp.Header().Del("Content-Length")
	c.resp.Commit()
	return flushWriter{resp: c.resp}
}

// Written reports whether any body has been sent.
func (c *Channel) Written() bool {
	return c.written
}

type flushWriter struct {
	resp *reqctx.Response
}

func (w flushWriter) Write(p []byte) (int, error) {
	n, err := w.resp.Write(p)
	if err == nil {
		w.resp.Flush()
	}
	return n, err
}

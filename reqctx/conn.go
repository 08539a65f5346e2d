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
	"net"
	"sync"
)

// Conn describes a transport connection. Several requests may share one
// connection concurrently (HTTP/2), so Conn is safe for concurrent use.
type Conn struct {
	id  uint64
	raw net.Conn

	mu      sync.Mutex
	closers []func()
	closed  bool
}

// NewConn wraps a network connection.
func NewConn(id uint64, raw net.Conn) *Conn {
	return &Conn{id: id, raw: raw}
}

// ID returns the transport-assigned connection id.
func (c *Conn) ID() uint64 {
	return c.id
}

// RemoteAddr returns the peer address, or "" when unknown.
func (c *Conn) RemoteAddr() string {
	if c.raw == nil || c.raw.RemoteAddr() == nil {
		return ""
	}
	return c.raw.RemoteAddr().String()
}

// NetConn returns the underlying connection.
func (c *Conn) NetConn() net.Conn {
	return c.raw
}

// OnClose registers fn to run when the connection is released. If the
// connection is already released fn runs immediately.
func (c *Conn) OnClose(fn func()) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		fn()
		return
	}
	c.closers = append(c.closers, fn)
	c.mu.Unlock()
}

// Release runs the close hooks once.
func (c *Conn) Release() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	closers := c.closers
	c.closers = nil
	c.mu.Unlock()

	for i := len(closers) - 1; i >= 0; i-- {
		func() {
			defer func() { _ = recover() }()
			closers[i]()
		}()
	}
}

// Released reports whether Release has run.
func (c *Conn) Released() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Reject closes the underlying connection of a refused connection and runs
// the close hooks registered so far.
func (c *Conn) Reject() error {
	defer c.Release()
	if c.raw == nil {
		return nil
	}
	return c.raw.Close()
}

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

package dispatch

import (
	"context"
	"fmt"
	"sync"

	"rivaas.dev/dispatch/reqctx"
)

// drain counts in-flight dispatches and signals when the last one ends
// after closing.
type drain struct {
	mu      sync.Mutex
	active  int
	closing bool
	idle    chan struct{}
}

func (dr *drain) init() {
	dr.idle = make(chan struct{})
}

// begin admits a dispatch. It returns false once closing.
func (dr *drain) begin() bool {
	dr.mu.Lock()
	defer dr.mu.Unlock()
	if dr.closing {
		return false
	}
	dr.active++
	return true
}

func (dr *drain) end() {
	dr.mu.Lock()
	defer dr.mu.Unlock()
	dr.active--
	if dr.closing && dr.active == 0 {
		close(dr.idle)
	}
}

// close stops admitting dispatches and returns a channel closed when none
// are left. It may be called more than once.
func (dr *drain) close() <-chan struct{} {
	dr.mu.Lock()
	defer dr.mu.Unlock()
	if !dr.closing {
		dr.closing = true
		if dr.active == 0 {
			close(dr.idle)
		}
	}
	return dr.idle
}

func (dr *drain) count() int {
	dr.mu.Lock()
	defer dr.mu.Unlock()
	return dr.active
}

func (dr *drain) closed() bool {
	dr.mu.Lock()
	defer dr.mu.Unlock()
	return dr.closing
}

// connSet tracks open connections.
type connSet struct {
	mu    sync.Mutex
	conns map[*reqctx.Conn]struct{}
}

func (s *connSet) add(c *reqctx.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conns == nil {
		s.conns = make(map[*reqctx.Conn]struct{})
	}
	s.conns[c] = struct{}{}
}

func (s *connSet) remove(c *reqctx.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conns[c]; !ok {
		return false
	}
	delete(s.conns, c)
	return true
}

func (s *connSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// OnConnectionInit is called by the transport before a new connection is
// used. A non-nil error means the transport must close the connection
// without reading from it.
func (d *Dispatcher) OnConnectionInit(conn *reqctx.Conn) (err error) {
	if d.drain.closed() {
		return ErrShuttingDown
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dispatch: connection init handler panicked: %v", r)
		}
		if err != nil {
			d.logger.Warn("connection rejected",
				"conn", conn.ID(),
				"remote", conn.RemoteAddr(),
				"error", err,
			)
		}
	}()
	for _, h := range d.connInit {
		if err := h(conn); err != nil {
			return err
		}
	}
	return nil
}

// OnConnected is called once the transport starts serving conn.
func (d *Dispatcher) OnConnected(conn *reqctx.Conn) {
	d.conns.add(conn)
	d.logger.Debug("connection opened", "conn", conn.ID(), "remote", conn.RemoteAddr())
}

// OnDisconnected is called when conn closes. It runs the connection's close
// hooks.
func (d *Dispatcher) OnDisconnected(conn *reqctx.Conn) {
	if d.conns.remove(conn) {
		d.logger.Debug("connection closed", "conn", conn.ID())
	}
	conn.Release()
}

// Connections returns the number of open connections.
func (d *Dispatcher) Connections() int {
	return d.conns.len()
}

// InFlight returns the number of dispatches in progress.
func (d *Dispatcher) InFlight() int {
	return d.drain.count()
}

// ShuttingDown reports whether Shutdown has been called.
func (d *Dispatcher) ShuttingDown() bool {
	return d.drain.closed()
}

// Shutdown stops admitting requests and connections, waits for in-flight
// dispatches and then for the schedulers. New requests are answered with
// 503 while it runs. It returns ctx's error if the deadline passes first.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	idle := d.drain.close()
	d.logger.Info("dispatcher draining", "in_flight", d.drain.count())

	select {
	case <-idle:
	case <-ctx.Done():
		return fmt.Errorf("dispatch: drain: %w", ctx.Err())
	}

	if err := d.schedulers.Shutdown(ctx); err != nil {
		return fmt.Errorf("dispatch: scheduler shutdown: %w", err)
	}
	d.logger.Info("dispatcher drained")
	return nil
}

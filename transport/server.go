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
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"rivaas.dev/dispatch"
	"rivaas.dev/dispatch/reqctx"
)

// ErrServerStarted is returned when Serve is called twice.
var ErrServerStarted = errors.New("transport: server already started")

type connKey struct{}

// Server adapts a [dispatch.Dispatcher] to net/http. Every accepted
// connection goes through the dispatcher's connection hooks; every request
// becomes one dispatch.
type Server struct {
	cfg    *config
	d      *dispatch.Dispatcher
	srv    *http.Server
	logger *slog.Logger

	nextID  atomic.Uint64
	started atomic.Bool

	mu   sync.Mutex
	addr net.Addr
}

// New creates a server for d.
func New(d *dispatch.Dispatcher, opts ...Option) (*Server, error) {
	if d == nil {
		return nil, errors.New("transport: dispatcher must not be nil")
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	s := &Server{cfg: cfg, d: d, logger: cfg.logger}

	h := http.Handler(s)
	if cfg.h2c {
		h = h2c.NewHandler(h, &http2.Server{})
	}
	s.srv = &http.Server{
		Addr:              cfg.addr,
		Handler:           h,
		ReadHeaderTimeout: cfg.timeouts.readHeader,
		ReadTimeout:       cfg.timeouts.read,
		WriteTimeout:      cfg.timeouts.write,
		IdleTimeout:       cfg.timeouts.idle,
		MaxHeaderBytes:    cfg.maxHeaderBytes,
		ConnContext:       s.connContext,
		ErrorLog:          slog.NewLogLogger(cfg.logger.Handler(), slog.LevelWarn),
	}
	if cfg.tlsConfig != nil {
		s.srv.TLSConfig = cfg.tlsConfig.Clone()
		if err := http2.ConfigureServer(s.srv, &http2.Server{}); err != nil {
			return nil, fmt.Errorf("transport: configure http2: %w", err)
		}
	}
	return s, nil
}

// MustNew is like [New] but panics on error.
func MustNew(d *dispatch.Dispatcher, opts ...Option) *Server {
	s, err := New(d, opts...)
	if err != nil {
		panic(fmt.Sprintf("transport.MustNew: %v", err))
	}
	return s
}

// ServeHTTP dispatches one request.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	opts := []reqctx.Option{reqctx.WithDeployment(s.d.Deployment())}
	if conn, ok := r.Context().Value(connKey{}).(*reqctx.Conn); ok {
		opts = append(opts, reqctx.WithConn(conn))
	}
	rc := reqctx.New(r.Context(), reqctx.FromHTTP(r), w, opts...)
	s.d.Dispatch(rc)
}

// Serve accepts connections on ln until [Server.Shutdown]. It returns
// [http.ErrServerClosed] after a shutdown.
func (s *Server) Serve(ln net.Listener) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrServerStarted
	}
	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()

	var l net.Listener = &listener{Listener: ln, s: s}
	protocol := "HTTP"
	switch {
	case s.srv.TLSConfig != nil:
		l = tls.NewListener(l, s.srv.TLSConfig)
		protocol = "HTTPS"
	case s.cfg.h2c:
		protocol = "H2C"
	}
	s.logger.Info("server starting", "address", ln.Addr().String(), "protocol", protocol)
	return s.srv.Serve(l)
}

// ListenAndServe listens on the configured address and serves.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.cfg.addr)
	if err != nil {
		return fmt.Errorf("transport: listen %s: %w", s.cfg.addr, err)
	}
	return s.Serve(ln)
}

// Addr returns the listening address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Shutdown drains the dispatcher, then closes the HTTP server. New
// connections are refused and new requests answered with 503 while
// in-flight dispatches finish.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server shutting down")
	var errs []error
	if err := s.d.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("transport: http shutdown: %w", err))
	}
	if len(errs) == 0 {
		s.logger.Info("server exited")
	}
	return errors.Join(errs...)
}

// Run serves on the configured address until ctx ends, then shuts down
// gracefully within the shutdown timeout. Pass a context from
// signal.NotifyContext to stop on SIGTERM.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.addr)
	if err != nil {
		return fmt.Errorf("transport: listen %s: %w", s.cfg.addr, err)
	}
	return s.RunListener(ctx, ln)
}

// RunListener is like [Server.Run] on an existing listener.
func (s *Server) RunListener(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		// ctx is already done; the grace period needs a fresh deadline.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.shutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) connContext(ctx context.Context, c net.Conn) context.Context {
	if tc, ok := c.(*tls.Conn); ok {
		c = tc.NetConn()
	}
	if tc, ok := c.(*trackedConn); ok {
		return context.WithValue(ctx, connKey{}, tc.rc)
	}
	return ctx
}

// listener runs the dispatcher's connection hooks on every accepted
// connection. Rejected connections are closed before any byte is read.
type listener struct {
	net.Listener
	s *Server
}

func (l *listener) Accept() (net.Conn, error) {
	for {
		raw, err := l.Listener.Accept()
		if err != nil {
			return nil, err
		}
		rc := reqctx.NewConn(l.s.nextID.Add(1), raw)
		if err := l.s.d.OnConnectionInit(rc); err != nil {
			_ = rc.Reject()
			continue
		}
		l.s.d.OnConnected(rc)
		return &trackedConn{Conn: raw, rc: rc, d: l.s.d}, nil
	}
}

// trackedConn reports its close to the dispatcher once. HTTP/2 and
// hijacked connections are closed through it as well.
type trackedConn struct {
	net.Conn
	rc   *reqctx.Conn
	d    *dispatch.Dispatcher
	once sync.Once
}

func (c *trackedConn) Close() error {
	err := c.Conn.Close()
	c.once.Do(func() { c.d.OnDisconnected(c.rc) })
	return err
}

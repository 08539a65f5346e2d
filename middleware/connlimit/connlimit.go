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

package connlimit

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"rivaas.dev/dispatch/reqctx"
)

var (
	// ErrRateLimited rejects connections arriving faster than the accept rate.
	ErrRateLimited = errors.New("connlimit: connection rate exceeded")
	// ErrTooManyConnections rejects connections beyond the open limit.
	ErrTooManyConnections = errors.New("connlimit: too many open connections")
)

// Option configures a [Limiter].
type Option func(*config)

type config struct {
	limit     rate.Limit
	burst     int
	perPeer   rate.Limit
	peerBurst int
	peerTTL   time.Duration
	maxOpen   int
	logger    *slog.Logger
	now       func() time.Time
}

// WithRate limits accepted connections to r per second across all peers,
// with bursts of up to burst.
func WithRate(r float64, burst int) Option {
	return func(c *config) {
		c.limit = rate.Limit(r)
		c.burst = max(1, burst)
	}
}

// WithPeerRate limits accepted connections per remote IP.
func WithPeerRate(r float64, burst int) Option {
	return func(c *config) {
		c.perPeer = rate.Limit(r)
		c.peerBurst = max(1, burst)
	}
}

// WithPeerTTL sets how long an idle peer's limiter is kept. Default: 5m.
func WithPeerTTL(ttl time.Duration) Option {
	return func(c *config) {
		if ttl > 0 {
			c.peerTTL = ttl
		}
	}
}

// WithMaxConnections caps the number of open connections.
func WithMaxConnections(n int) Option {
	return func(c *config) {
		c.maxOpen = max(0, n)
	}
}

// WithLogger logs rejected connections at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

type peer struct {
	limiter *rate.Limiter
	seen    time.Time
}

// Limiter decides whether new connections are accepted. Register
// [Limiter.Init] with the dispatcher:
//
//	l := connlimit.New(connlimit.WithRate(100, 20), connlimit.WithMaxConnections(1000))
//	d := dispatch.MustNew(dispatch.WithConnInit(l.Init))
type Limiter struct {
	cfg    *config
	global *rate.Limiter
	open   atomic.Int64

	mu    sync.Mutex
	peers map[string]*peer
	swept time.Time
}

// New creates a limiter. Without options it accepts everything.
func New(opts ...Option) *Limiter {
	cfg := &config{
		limit:   rate.Inf,
		perPeer: rate.Inf,
		peerTTL: 5 * time.Minute,
		logger:  slog.New(slog.DiscardHandler),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Limiter{
		cfg:    cfg,
		global: rate.NewLimiter(cfg.limit, cfg.burst),
		peers:  make(map[string]*peer),
	}
}

// Init accepts or rejects conn. Accepted connections count against the open
// limit until they are released.
func (l *Limiter) Init(conn *reqctx.Conn) error {
	now := l.cfg.now()
	if !l.global.AllowN(now, 1) {
		return l.reject(conn, ErrRateLimited)
	}
	if l.cfg.perPeer != rate.Inf {
		if host := peerHost(conn.RemoteAddr()); host != "" && !l.peerLimiter(host, now).AllowN(now, 1) {
			return l.reject(conn, fmt.Errorf("%w for %s", ErrRateLimited, host))
		}
	}
	if l.cfg.maxOpen > 0 {
		if l.open.Add(1) > int64(l.cfg.maxOpen) {
			l.open.Add(-1)
			return l.reject(conn, ErrTooManyConnections)
		}
		conn.OnClose(func() { l.open.Add(-1) })
	}
	return nil
}

// Open returns the number of counted open connections.
func (l *Limiter) Open() int {
	return int(l.open.Load())
}

func (l *Limiter) reject(conn *reqctx.Conn, err error) error {
	l.cfg.logger.Debug("connection limited", "conn", conn.ID(), "remote", conn.RemoteAddr(), "error", err)
	return err
}

func (l *Limiter) peerLimiter(host string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.swept) > l.cfg.peerTTL {
		for k, p := range l.peers {
			if now.Sub(p.seen) > l.cfg.peerTTL {
				delete(l.peers, k)
			}
		}
		l.swept = now
	}

	p, ok := l.peers[host]
	if !ok {
		p = &peer{limiter: rate.NewLimiter(l.cfg.perPeer, l.cfg.peerBurst)}
		l.peers[host] = p
	}
	p.seen = now
	return p.limiter
}

func peerHost(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

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
	"crypto/tls"
	"errors"
	"log/slog"
	"time"
)

// Option configures a [Server].
type Option func(*config)

type timeouts struct {
	readHeader time.Duration
	read       time.Duration
	write      time.Duration
	idle       time.Duration
}

type config struct {
	addr            string
	h2c             bool
	timeouts        timeouts
	maxHeaderBytes  int
	shutdownTimeout time.Duration
	tlsConfig       *tls.Config
	logger          *slog.Logger
}

func defaultConfig() *config {
	return &config{
		addr: ":8080",
		timeouts: timeouts{
			readHeader: 5 * time.Second,
			read:       15 * time.Second,
			write:      30 * time.Second,
			idle:       60 * time.Second,
		},
		maxHeaderBytes:  1 << 20,
		shutdownTimeout: 30 * time.Second,
		logger:          slog.New(slog.DiscardHandler),
	}
}

func (c *config) validate() error {
	var errs []error
	if c.addr == "" {
		errs = append(errs, errors.New("transport: address must not be empty"))
	}
	if c.shutdownTimeout <= 0 {
		errs = append(errs, errors.New("transport: shutdown timeout must be positive"))
	}
	if c.maxHeaderBytes <= 0 {
		errs = append(errs, errors.New("transport: max header bytes must be positive"))
	}
	if c.h2c && c.tlsConfig != nil {
		errs = append(errs, errors.New("transport: h2c and TLS are mutually exclusive"))
	}
	return errors.Join(errs...)
}

// WithAddr sets the listen address used by [Server.ListenAndServe] and
// [Server.Run]. Defaults to ":8080".
func WithAddr(addr string) Option {
	return func(c *config) {
		c.addr = addr
	}
}

// WithH2C enables HTTP/2 over cleartext. Use it in development or behind a
// trusted load balancer only.
func WithH2C(enable bool) Option {
	return func(c *config) {
		c.h2c = enable
	}
}

// WithReadHeaderTimeout bounds the time to read request headers.
func WithReadHeaderTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeouts.readHeader = d
	}
}

// WithReadTimeout bounds the time to read a whole request.
func WithReadTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeouts.read = d
	}
}

// WithWriteTimeout bounds the time to write a response.
func WithWriteTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeouts.write = d
	}
}

// WithIdleTimeout bounds keep-alive idle time.
func WithIdleTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeouts.idle = d
	}
}

// WithMaxHeaderBytes limits request header size.
func WithMaxHeaderBytes(n int) Option {
	return func(c *config) {
		c.maxHeaderBytes = n
	}
}

// WithShutdownTimeout bounds the graceful shutdown started by [Server.Run]
// when its context ends. Defaults to 30s.
func WithShutdownTimeout(d time.Duration) Option {
	return func(c *config) {
		c.shutdownTimeout = d
	}
}

// WithTLSConfig serves HTTPS. HTTP/2 is negotiated through ALPN.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(c *config) {
		c.tlsConfig = cfg
	}
}

// WithLogger sets the logger for connection and lifecycle events.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

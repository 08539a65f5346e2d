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

package accesslog

import (
	"crypto/sha256"
	"encoding/binary"
	"log/slog"
	"net"
	"strings"
	"time"

	"rivaas.dev/dispatch"
	"rivaas.dev/dispatch/logging"
	"rivaas.dev/dispatch/middleware"
	"rivaas.dev/dispatch/reqctx"
	"rivaas.dev/dispatch/router"
)

type observer struct {
	cfg *config
}

// New returns a dispatch observer that writes one structured record per
// completed request, including requests that matched no route.
//
//	d := dispatch.MustNew(dispatch.WithObserver(
//		requestid.New(),
//		accesslog.New(
//			accesslog.WithLogger(logger),
//			accesslog.WithExcludePaths("/health"),
//			accesslog.WithSlowThreshold(500*time.Millisecond),
//		),
//	))
//
// Register it after the request id observer so records carry the id.
func New(opts ...Option) dispatch.Observer {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &observer{cfg: cfg}
}

func (*observer) OnStart(*reqctx.Context) {}

func (*observer) OnTransition(*reqctx.Context, *router.Route, dispatch.State, dispatch.State) {}

func (o *observer) OnEnd(rc *reqctx.Context, route *router.Route, err error) {
	cfg := o.cfg
	if cfg.logger == nil {
		return
	}
	req := rc.Request()
	if o.excluded(req.Path) {
		return
	}

	duration := time.Since(rc.Started())
	status := rc.Response().Status()
	isError := status >= 400 || err != nil
	isSlow := cfg.slowThreshold > 0 && duration >= cfg.slowThreshold

	if !isError && !isSlow {
		if cfg.logErrorsOnly {
			return
		}
		if cfg.sampleRate < 1.0 {
			id, _ := reqctx.Get(rc.Attributes(), middleware.RequestIDKey)
			if !sampleByHash(id, cfg.sampleRate) {
				return
			}
		}
	}

	fields := []any{
		"status", status,
		"duration_ms", duration.Milliseconds(),
		"bytes_sent", rc.Response().Written(),
		"user_agent", req.Header.Get("User-Agent"),
		"client_ip", clientIP(req),
		"host", req.Host,
		"proto", req.Proto,
	}
	if route != nil {
		fields = append(fields, "route", route.Path())
	}
	if isSlow {
		fields = append(fields, "slow", true)
	}
	if err != nil {
		fields = append(fields, "error", err.Error())
	}

	logger := logging.ForRequest(rc.Context(), cfg.logger, rc)
	level := slog.LevelInfo
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400, isSlow:
		level = slog.LevelWarn
	}
	logger.Log(rc.Context(), level, "access", fields...)
}

func (o *observer) excluded(path string) bool {
	if o.cfg.excludePaths[path] {
		return true
	}
	for _, prefix := range o.cfg.excludePrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// clientIP prefers the first X-Forwarded-For hop over the peer address.
func clientIP(req *reqctx.Request) string {
	if fwd := req.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(req.RemoteAddr); err == nil {
		return host
	}
	return req.RemoteAddr
}

// sampleByHash makes the same decision for the same id on every replica.
// Requests without an id are always logged.
func sampleByHash(id string, rate float64) bool {
	if id == "" {
		return true
	}
	h := sha256.Sum256([]byte(id))
	threshold := uint64(rate * float64(^uint64(0)))
	return binary.BigEndian.Uint64(h[:8]) <= threshold
}

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

package security

import (
	"net/http"
	"strconv"
	"strings"

	"rivaas.dev/dispatch"
	"rivaas.dev/dispatch/reqctx"
	"rivaas.dev/dispatch/router"
)

type config struct {
	frameOptions          string
	contentTypeNosniff    bool
	xssProtection         string
	hstsMaxAge            int
	hstsIncludeSubdomains bool
	hstsPreload           bool
	contentSecurityPolicy string
	referrerPolicy        string
	permissionsPolicy     string
	customHeaders         map[string]string
}

func defaultConfig() *config {
	return &config{
		frameOptions:          "DENY",
		contentTypeNosniff:    true,
		xssProtection:         "0",
		hstsMaxAge:            31536000,
		hstsIncludeSubdomains: true,
		contentSecurityPolicy: "default-src 'self'",
		referrerPolicy:        "strict-origin-when-cross-origin",
		customHeaders:         make(map[string]string),
	}
}

type observer struct {
	headers http.Header
	hsts    string
}

// New returns the observer. Headers are computed once.
func New(opts ...Option) dispatch.Observer {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	h := make(http.Header)
	set := func(name, value string) {
		if value != "" {
			h.Set(name, value)
		}
	}
	set("X-Frame-Options", cfg.frameOptions)
	if cfg.contentTypeNosniff {
		set("X-Content-Type-Options", "nosniff")
	}
	set("X-XSS-Protection", cfg.xssProtection)
	set("Content-Security-Policy", cfg.contentSecurityPolicy)
	set("Referrer-Policy", cfg.referrerPolicy)
	set("Permissions-Policy", cfg.permissionsPolicy)
	for name, value := range cfg.customHeaders {
		set(name, value)
	}

	o := &observer{headers: h}
	if cfg.hstsMaxAge > 0 {
		o.hsts = "max-age=" + strconv.Itoa(cfg.hstsMaxAge)
		if cfg.hstsIncludeSubdomains {
			o.hsts += "; includeSubDomains"
		}
		if cfg.hstsPreload {
			o.hsts += "; preload"
		}
	}
	return o
}

func (o *observer) OnStart(rc *reqctx.Context) {
	out := rc.Response().Header()
	for name, values := range o.headers {
		out.Set(name, values[0])
	}
	if o.hsts != "" && secure(rc.Request()) {
		out.Set("Strict-Transport-Security", o.hsts)
	}
}

func (*observer) OnTransition(*reqctx.Context, *router.Route, dispatch.State, dispatch.State) {}

func (*observer) OnEnd(*reqctx.Context, *router.Route, error) {}

func secure(req *reqctx.Request) bool {
	return req.TLS || strings.EqualFold(req.Header.Get("X-Forwarded-Proto"), "https")
}

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

package basicauth

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"rivaas.dev/dispatch/handler"
	"rivaas.dev/dispatch/middleware"
	"rivaas.dev/dispatch/reqctx"
)

// DefaultOrder runs authentication ahead of interceptors at order 0.
const DefaultOrder = -500

// ErrUnauthorized matches every authentication failure.
var ErrUnauthorized = errors.New("basicauth: unauthorized")

// Error is an authentication failure. It answers 401 with a challenge.
type Error struct {
	Realm  string
	Reason string
}

// Error implements error.
func (e *Error) Error() string { return "unauthorized: " + e.Reason }

// Is matches [ErrUnauthorized].
func (e *Error) Is(target error) bool { return target == ErrUnauthorized }

// HTTPStatus implements errors.ErrorType.
func (e *Error) HTTPStatus() int { return http.StatusUnauthorized }

// Code implements errors.ErrorCode.
func (e *Error) Code() string { return "unauthorized" }

// ResponseHeaders implements errors.ErrorHeaders.
func (e *Error) ResponseHeaders() http.Header {
	return http.Header{"Www-Authenticate": {"Basic realm=" + strconv.Quote(e.Realm) + `, charset="UTF-8"`}}
}

type interceptor struct {
	cfg *config
}

// New returns the authentication interceptor.
func New(opts ...Option) handler.Interceptor {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &interceptor{cfg: cfg}
}

func (i *interceptor) Order() int { return i.cfg.order }

func (i *interceptor) PreHandle(rc *reqctx.Context, _ *handler.Method) (bool, error) {
	if i.cfg.skipPaths[rc.Request().Path] {
		return true, nil
	}
	user, reason := i.authenticate(rc.Request().Header.Get("Authorization"))
	if reason != "" {
		return false, &Error{Realm: i.cfg.realm, Reason: reason}
	}
	reqctx.Set(rc.Attributes(), middleware.AuthUsernameKey, user)
	return true, nil
}

func (*interceptor) PostHandle(*reqctx.Context, *handler.Method, any) error { return nil }

func (*interceptor) AfterCompletion(*reqctx.Context, *handler.Method, error) {}

// authenticate returns the user, or the reason the header was refused.
func (i *interceptor) authenticate(header string) (string, string) {
	if header == "" {
		return "", "missing credentials"
	}
	scheme, encoded, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Basic") {
		return "", "unsupported scheme"
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return "", "malformed credentials"
	}
	user, password, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return "", "malformed credentials"
	}

	if i.cfg.validator != nil {
		if !i.cfg.validator(user, password) {
			return "", "invalid credentials"
		}
		return user, ""
	}
	want, known := i.cfg.users[user]
	// Compare even for unknown users so timing does not reveal them.
	match := subtle.ConstantTimeCompare([]byte(password), []byte(want)) == 1
	if !known || !match {
		return "", "invalid credentials"
	}
	return user, ""
}

// Username returns the authenticated user, or "" when the request did not
// go through the interceptor.
func Username(rc *reqctx.Context) string {
	u, _ := reqctx.Get(rc.Attributes(), middleware.AuthUsernameKey)
	return u
}

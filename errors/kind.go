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

package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies dispatch failures.
type Kind uint8

const (
	// KindUnknown is any error that is not an [*Error].
	KindUnknown Kind = iota
	KindNoRouteMatch
	KindMethodNotAllowed
	KindNotAcceptable
	KindUnsupportedMediaType
	KindResolution
	KindHandler
	KindInternal
	KindUnavailable
)

var kindInfo = [...]struct {
	code    string
	message string
	status  int
}{
	KindUnknown:              {"unknown", "unknown error", http.StatusInternalServerError},
	KindNoRouteMatch:         {"no_route_match", "no route matches the request", http.StatusNotFound},
	KindMethodNotAllowed:     {"method_not_allowed", "method not allowed", http.StatusMethodNotAllowed},
	KindNotAcceptable:        {"not_acceptable", "no acceptable representation", http.StatusNotAcceptable},
	KindUnsupportedMediaType: {"unsupported_media_type", "unsupported media type", http.StatusUnsupportedMediaType},
	KindResolution:           {"resolution_failure", "request could not be resolved", http.StatusBadRequest},
	KindHandler:              {"handler_failure", "handler failed", http.StatusInternalServerError},
	KindInternal:             {"internal_failure", "internal error", http.StatusInternalServerError},
	KindUnavailable:          {"unavailable", "service unavailable", http.StatusServiceUnavailable},
}

// String returns the machine-readable name of k.
func (k Kind) String() string {
	if int(k) < len(kindInfo) {
		return kindInfo[k].code
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Status returns the default HTTP status of k.
func (k Kind) Status() int {
	if int(k) < len(kindInfo) {
		return kindInfo[k].status
	}
	return http.StatusInternalServerError
}

// Sentinels for [errors.Is] checks by kind.
var (
	ErrNoRouteMatch         = &Error{Kind: KindNoRouteMatch}
	ErrMethodNotAllowed     = &Error{Kind: KindMethodNotAllowed}
	ErrNotAcceptable        = &Error{Kind: KindNotAcceptable}
	ErrUnsupportedMediaType = &Error{Kind: KindUnsupportedMediaType}
	ErrResolution           = &Error{Kind: KindResolution}
	ErrHandler              = &Error{Kind: KindHandler}
	ErrInternal             = &Error{Kind: KindInternal}
	ErrUnavailable          = &Error{Kind: KindUnavailable}
)

// Error is a classified dispatch failure.
type Error struct {
	Kind Kind
	// Op describes what failed, such as "GET /users" or "param id".
	Op string
	// Err is the cause, if any.
	Err error
	// Allowed lists the methods accepted by the path for KindMethodNotAllowed.
	Allowed []string
}

// Error returns "op: cause", falling back to the kind message.
func (e *Error) Error() string {
	msg := kindInfo[KindUnknown].message
	if int(e.Kind) < len(kindInfo) {
		msg = kindInfo[e.Kind].message
	}
	if e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op == "" {
		return msg
	}
	return e.Op + ": " + msg
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinels of the same kind. A sentinel has no Op and no cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Op != "" || t.Err != nil {
		return false
	}
	return t.Kind == e.Kind
}

// HTTPStatus returns the status for the error. Resolution and handler
// failures defer to a status declared by their cause.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindResolution, KindHandler, KindUnknown:
		var typed ErrorType
		if e.Err != nil && errors.As(e.Err, &typed) {
			return typed.HTTPStatus()
		}
	}
	return e.Kind.Status()
}

// Code returns the cause's code when it declares one, otherwise the kind.
func (e *Error) Code() string {
	var coded ErrorCode
	if e.Err != nil && errors.As(e.Err, &coded) {
		return coded.Code()
	}
	return e.Kind.String()
}

// ResponseHeaders sets Allow for 405 responses. Other kinds carry the
// headers declared by their cause.
func (e *Error) ResponseHeaders() http.Header {
	if e.Kind == KindMethodNotAllowed && len(e.Allowed) > 0 {
		return http.Header{"Allow": {strings.Join(e.Allowed, ", ")}}
	}
	var withHeaders ErrorHeaders
	if e.Err != nil && errors.As(e.Err, &withHeaders) {
		return withHeaders.ResponseHeaders()
	}
	return nil
}

// NoRouteMatch reports a request whose path matches no route.
func NoRouteMatch(method, path string) *Error {
	return &Error{Kind: KindNoRouteMatch, Op: method + " " + path}
}

// MethodNotAllowed reports a path that exists for other methods only.
func MethodNotAllowed(method, path string, allowed []string) *Error {
	return &Error{Kind: KindMethodNotAllowed, Op: method + " " + path, Allowed: allowed}
}

// NotAcceptable reports that nothing the route produces satisfies accept.
func NotAcceptable(accept string) *Error {
	return &Error{Kind: KindNotAcceptable, Err: fmt.Errorf("no representation satisfies Accept %q", accept)}
}

// UnsupportedMediaType reports a request body the route cannot consume.
func UnsupportedMediaType(contentType string) *Error {
	return &Error{Kind: KindUnsupportedMediaType, Err: fmt.Errorf("content type %q is not supported", contentType)}
}

// Resolution reports an argument or entity that could not be converted.
func Resolution(op string, err error) *Error {
	return &Error{Kind: KindResolution, Op: op, Err: err}
}

// Handler reports a failure raised by handler code.
func Handler(err error) *Error {
	return &Error{Kind: KindHandler, Err: err}
}

// Internal reports a framework invariant violation.
func Internal(op string, err error) *Error {
	return &Error{Kind: KindInternal, Op: op, Err: err}
}

// Unavailable reports a request refused during shutdown.
func Unavailable(reason string) *Error {
	return &Error{Kind: KindUnavailable, Err: errors.New(reason)}
}

// KindOf returns the kind of the first [*Error] in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Wrap classifies err as kind unless it is already classified.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

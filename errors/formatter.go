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
	"maps"
	"net/http"
)

// Formatter defines how errors are rendered in HTTP responses.
//
// Example:
//
//	formatter := errors.NewRFC9457("https://api.example.com/problems")
//	response := formatter.Format("/users/7", err)
type Formatter interface {
	// Format converts err into response components. instance identifies
	// the request that failed, usually its path.
	Format(instance string, err error) Response
}

// FormatterFunc adapts a function to [Formatter].
type FormatterFunc func(instance string, err error) Response

// Format calls f.
func (f FormatterFunc) Format(instance string, err error) Response {
	return f(instance, err)
}

// Response is a formatted error response.
type Response struct {
	// Status is the HTTP status code.
	Status int

	// ContentType is the Content-Type header value.
	ContentType string

	// Body is marshaled to JSON.
	Body any

	// Headers are extra headers to set.
	Headers http.Header
}

// ErrorType allows errors to declare their own HTTP status code.
//
// Example:
//
//	type QuotaError struct{}
//
//	func (QuotaError) Error() string   { return "quota exceeded" }
//	func (QuotaError) HTTPStatus() int { return http.StatusTooManyRequests }
type ErrorType interface {
	error
	HTTPStatus() int
}

// ErrorDetails allows errors to provide structured information such as
// per-field validation failures.
type ErrorDetails interface {
	error
	Details() any
}

// ErrorCode allows errors to provide a machine-readable code.
type ErrorCode interface {
	error
	Code() string
}

// ErrorHeaders allows errors to add response headers, such as Allow on 405.
type ErrorHeaders interface {
	error
	ResponseHeaders() http.Header
}

// NewRFC9457 creates an RFC 9457 formatter. baseURL is prepended to error
// codes to build problem type URIs.
func NewRFC9457(baseURL string) *RFC9457 {
	return &RFC9457{BaseURL: baseURL}
}

// NewJSONAPI creates a JSON:API formatter.
func NewJSONAPI() *JSONAPI {
	return &JSONAPI{}
}

// NewSimple creates a simple JSON formatter.
func NewSimple() *Simple {
	return &Simple{}
}

// WithStatus wraps err with an explicit HTTP status code. A nil err uses the
// status text as its message.
//
//	return errors.WithStatus(err, http.StatusConflict)
func WithStatus(err error, status int) error {
	return &statusError{err: err, status: status}
}

type statusError struct {
	err    error
	status int
}

func (e *statusError) Error() string {
	if e.err == nil {
		return http.StatusText(e.status)
	}
	return e.err.Error()
}

func (e *statusError) Unwrap() error {
	return e.err
}

func (e *statusError) HTTPStatus() int {
	return e.status
}

// StatusOf returns the status declared by err or its chain, or 500.
func StatusOf(err error) int {
	var typed ErrorType
	if errors.As(err, &typed) {
		if s := typed.HTTPStatus(); s >= 100 && s <= 599 {
			return s
		}
	}
	return http.StatusInternalServerError
}

// headersOf collects headers declared anywhere in err's chain.
func headersOf(err error) http.Header {
	var withHeaders ErrorHeaders
	if !errors.As(err, &withHeaders) {
		return nil
	}
	return maps.Clone(withHeaders.ResponseHeaders())
}

func resolveStatus(resolver func(error) int, err error) int {
	if resolver != nil {
		return resolver(err)
	}
	return StatusOf(err)
}

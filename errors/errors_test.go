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
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type codedError struct {
	message string
	code    string
	status  int
}

func (e *codedError) Error() string { return e.message }

func (e *codedError) Code() string { return e.code }

func (e *codedError) HTTPStatus() int { return e.status }

type fieldError struct {
	Path    string `json:"path"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type detailedError struct {
	fields []fieldError
}

func (e *detailedError) Error() string { return "validation failed" }

func (e *detailedError) Details() any { return e.fields }

func (e *detailedError) HTTPStatus() int { return http.StatusUnprocessableEntity }

func TestKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    *Error
		status int
		code   string
		is     error
	}{
		{name: "no route", err: NoRouteMatch("GET", "/x"), status: 404, code: "no_route_match", is: ErrNoRouteMatch},
		{name: "method", err: MethodNotAllowed("POST", "/x", []string{"GET", "HEAD"}), status: 405, code: "method_not_allowed", is: ErrMethodNotAllowed},
		{name: "not acceptable", err: NotAcceptable("image/png"), status: 406, code: "not_acceptable", is: ErrNotAcceptable},
		{name: "unsupported", err: UnsupportedMediaType("text/plain"), status: 415, code: "unsupported_media_type", is: ErrUnsupportedMediaType},
		{name: "resolution", err: Resolution("param id", errors.New("bad int")), status: 400, code: "resolution_failure", is: ErrResolution},
		{name: "handler", err: Handler(errors.New("boom")), status: 500, code: "handler_failure", is: ErrHandler},
		{name: "handler with status", err: Handler(&codedError{message: "gone", code: "gone", status: 410}), status: 410, code: "gone", is: ErrHandler},
		{name: "internal", err: Internal("plan", errors.New("nil")), status: 500, code: "internal_failure", is: ErrInternal},
		{name: "unavailable", err: Unavailable("draining"), status: 503, code: "unavailable", is: ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			wrapped := fmt.Errorf("dispatch: %w", tt.err)
			assert.Equal(t, tt.status, tt.err.HTTPStatus())
			assert.Equal(t, tt.status, StatusOf(wrapped))
			assert.Equal(t, tt.code, tt.err.Code())
			require.ErrorIs(t, wrapped, tt.is)
			assert.Equal(t, tt.err.Kind, KindOf(wrapped))
		})
	}

	assert.NotErrorIs(t, NoRouteMatch("GET", "/"), ErrMethodNotAllowed)
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, "GET /x: no route matches the request", NoRouteMatch("GET", "/x").Error())
	assert.Equal(t, "kind(200)", Kind(200).String())
}

func TestError_ResponseHeaders(t *testing.T) {
	t.Parallel()

	err := MethodNotAllowed("DELETE", "/users", []string{"GET", "POST"})
	assert.Equal(t, "GET, POST", err.ResponseHeaders().Get("Allow"))
	assert.Nil(t, NoRouteMatch("GET", "/").ResponseHeaders())

	challenge := &challengeError{}
	wrapped := Wrap(KindHandler, "interceptor", challenge).(*Error)
	assert.Equal(t, `Basic realm="x"`, wrapped.ResponseHeaders().Get("WWW-Authenticate"))
	assert.Equal(t, http.StatusUnauthorized, StatusOf(wrapped))
}

type challengeError struct{}

func (*challengeError) Error() string { return "unauthorized" }
func (*challengeError) HTTPStatus() int { return http.StatusUnauthorized }
func (*challengeError) ResponseHeaders() http.Header {
	return http.Header{"Www-Authenticate": {`Basic realm="x"`}}
}

func TestWrap(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Wrap(KindHandler, "op", nil))

	plain := errors.New("plain")
	wrapped := Wrap(KindResolution, "body", plain)
	assert.Equal(t, KindResolution, KindOf(wrapped))
	require.ErrorIs(t, wrapped, plain)

	classified := NotAcceptable("x")
	assert.Same(t, classified, Wrap(KindHandler, "op", classified))
}

func TestWithStatus(t *testing.T) {
	t.Parallel()

	err := WithStatus(nil, http.StatusConflict)
	assert.Equal(t, "Conflict", err.Error())
	assert.Equal(t, http.StatusConflict, StatusOf(err))

	inner := errors.New("duplicate")
	err = WithStatus(inner, http.StatusConflict)
	require.ErrorIs(t, err, inner)
	assert.Equal(t, http.StatusInternalServerError, StatusOf(inner))
}

func TestRFC9457_Format(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		formatter  *RFC9457
		err        error
		wantStatus int
		wantType   string
	}{
		{
			name:       "plain error",
			formatter:  NewRFC9457("https://api.example.com/problems"),
			err:        errors.New("something went wrong"),
			wantStatus: http.StatusInternalServerError,
			wantType:   "about:blank",
		},
		{
			name:       "dispatch error",
			formatter:  NewRFC9457("https://api.example.com/problems"),
			err:        NotAcceptable("image/png"),
			wantStatus: http.StatusNotAcceptable,
			wantType:   "https://api.example.com/problems/not_acceptable",
		},
		{
			name:       "code without base url",
			formatter:  NewRFC9457(""),
			err:        &codedError{message: "bad", code: "invalid_input", status: 400},
			wantStatus: http.StatusBadRequest,
			wantType:   "invalid_input",
		},
		{
			name: "custom resolvers",
			formatter: &RFC9457{
				TypeResolver:   func(error) string { return "urn:custom" },
				StatusResolver: func(error) int { return http.StatusTeapot },
			},
			err:        errors.New("x"),
			wantStatus: http.StatusTeapot,
			wantType:   "urn:custom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			resp := tt.formatter.Format("/users", tt.err)
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Equal(t, "application/problem+json; charset=utf-8", resp.ContentType)

			p, ok := resp.Body.(ProblemDetail)
			require.True(t, ok)
			assert.Equal(t, tt.wantType, p.Type)
			assert.Equal(t, "/users", p.Instance)
			assert.NotEmpty(t, p.Extensions["error_id"])
		})
	}
}

func TestRFC9457_Extensions(t *testing.T) {
	t.Parallel()

	f := &RFC9457{ErrorIDGenerator: func() string { return "id-1" }}
	err := Resolution("body", &detailedError{fields: []fieldError{{Path: "email", Code: "required", Message: "email is required"}}})
	resp := f.Format("/signup", err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Status)

	data, jsonErr := json.Marshal(resp.Body)
	require.NoError(t, jsonErr)
	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "id-1", got["error_id"])
	assert.Equal(t, "resolution_failure", got["code"])
	assert.Equal(t, "body: validation failed", got["detail"])
	assert.Len(t, got["errors"], 1)

	p := ProblemDetail{Type: "t", Title: "x", Status: 400, Extensions: map[string]any{"status": 999, "trace": "abc"}}
	data, jsonErr = json.Marshal(p)
	require.NoError(t, jsonErr)
	assert.JSONEq(t, `{"type":"t","title":"x","status":400,"trace":"abc"}`, string(data))

	disabled := &RFC9457{DisableErrorID: true}
	body, ok := disabled.Format("/", errors.New("x")).Body.(ProblemDetail)
	require.True(t, ok)
	assert.NotContains(t, body.Extensions, "error_id")
}

func TestRFC9457_AllowHeader(t *testing.T) {
	t.Parallel()

	resp := NewRFC9457("").Format("/users", MethodNotAllowed("PUT", "/users", []string{"GET"}))
	assert.Equal(t, http.StatusMethodNotAllowed, resp.Status)
	assert.Equal(t, "GET", resp.Headers.Get("Allow"))
}

func TestSimple_Format(t *testing.T) {
	t.Parallel()

	resp := NewSimple().Format("/", &codedError{message: "nope", code: "denied", status: 403})
	assert.Equal(t, http.StatusForbidden, resp.Status)
	assert.Equal(t, "application/json; charset=utf-8", resp.ContentType)
	assert.Equal(t, map[string]any{"error": "nope", "code": "denied"}, resp.Body)

	resp = (&Simple{StatusResolver: func(error) int { return 418 }}).Format("/", errors.New("x"))
	assert.Equal(t, 418, resp.Status)
}

func TestJSONAPI_Format(t *testing.T) {
	t.Parallel()

	resp := NewJSONAPI().Format("/", &detailedError{fields: []fieldError{
		{Path: "items.0.price", Code: "min", Message: "too low"},
		{Path: "email", Code: "required", Message: "required"},
	}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Status)

	doc, ok := resp.Body.(jsonAPIDocument)
	require.True(t, ok)
	require.Len(t, doc.Errors, 2)
	assert.Equal(t, "/data/attributes/items/0/price", doc.Errors[0].Source.Pointer)
	assert.Equal(t, "min", doc.Errors[0].Code)
	assert.Equal(t, "422", doc.Errors[1].Status)

	resp = NewJSONAPI().Format("/", NoRouteMatch("GET", "/x"))
	doc, ok = resp.Body.(jsonAPIDocument)
	require.True(t, ok)
	require.Len(t, doc.Errors, 1)
	assert.Equal(t, "no_route_match", doc.Errors[0].Code)
	assert.NotEmpty(t, doc.Errors[0].ID)
}

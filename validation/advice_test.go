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

package validation_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rivaas.dev/dispatch"
	"rivaas.dev/dispatch/handler"
	"rivaas.dev/dispatch/reqctx"
	"rivaas.dev/dispatch/router"
	"rivaas.dev/dispatch/validation"
)

type signup struct {
	Email string `json:"email" validate:"required,email"`
	Age   int    `json:"age" validate:"gte=18"`
}

const petSchema = `{
	"type": "object",
	"required": ["name"],
	"properties": {"name": {"type": "string"}}
}`

func newDispatcher(t *testing.T) *dispatch.Dispatcher {
	t.Helper()
	v := validation.MustNew()
	d := dispatch.MustNew(
		dispatch.WithEntityAdvice(validation.EntityAdvice(v), validation.SchemaAdvice(v)),
		dispatch.WithParamAdvice(validation.ParamAdvice(v)),
		dispatch.WithExceptionHandlers(validation.ExceptionHandler()),
	)

	_, err := d.POST("/signup", handler.MustNew(func(s signup) map[string]string {
		return map[string]string{"email": s.Email}
	}, handler.Body(handler.Required())), router.WithConsumes("application/json"))
	require.NoError(t, err)

	_, err = d.POST("/pets", handler.MustNew(func(pet map[string]any) map[string]any {
		return pet
	}, handler.Body(handler.Attr(validation.AttrSchema, petSchema))), router.WithConsumes("application/json"))
	require.NoError(t, err)

	_, err = d.GET("/pets", handler.MustNew(func(limit int) map[string]int {
		return map[string]int{"limit": limit}
	}, handler.Query("limit", handler.Default("10"), handler.Attr(validation.AttrRules, "min=1,max=100"))))
	require.NoError(t, err)
	return d
}

func serve(d *dispatch.Dispatcher, method, target, body string) *httptest.ResponseRecorder {
	h := make(http.Header)
	var rb io.ReadCloser
	if body != "" {
		h.Set("Content-Type", "application/json")
		rb = io.NopCloser(strings.NewReader(body))
	}
	req := reqctx.NewRequest(method, target, h, rb)
	req.ContentLength = int64(len(body))
	rec := httptest.NewRecorder()
	d.Dispatch(reqctx.New(context.Background(), req, rec))
	return rec
}

func TestAdvices(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		wantStatus int
		wantPath   string
		wantCode   string
	}{
		{"valid entity", http.MethodPost, "/signup", `{"email":"ada@example.com","age":36}`, http.StatusOK, "", ""},
		{"invalid entity", http.MethodPost, "/signup", `{"email":"ada","age":36}`, http.StatusBadRequest, "email", "tag.email"},
		{"underage", http.MethodPost, "/signup", `{"email":"ada@example.com","age":12}`, http.StatusBadRequest, "age", "tag.gte"},
		{"schema passes", http.MethodPost, "/pets", `{"name":"rex"}`, http.StatusOK, "", ""},
		{"schema type mismatch", http.MethodPost, "/pets", `{"name":7}`, http.StatusBadRequest, "name", "schema.type"},
		{"schema required", http.MethodPost, "/pets", `{}`, http.StatusBadRequest, "", "schema.required"},
		{"param default", http.MethodGet, "/pets", "", http.StatusOK, "", ""},
		{"param in range", http.MethodGet, "/pets?limit=50", "", http.StatusOK, "", ""},
		{"param out of range", http.MethodGet, "/pets?limit=500", "", http.StatusBadRequest, "limit", "tag.max"},
	}
	d := newDispatcher(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := serve(d, tt.method, tt.target, tt.body)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantStatus == http.StatusOK {
				return
			}

			assert.Equal(t, "application/problem+json; charset=utf-8", rec.Header().Get("Content-Type"))
			var problem struct {
				Status  int                     `json:"status"`
				Detail  string                  `json:"detail"`
				Code    string                  `json:"code"`
				ErrorID string                  `json:"error_id"`
				Errors  []validation.FieldError `json:"errors"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
			assert.Equal(t, http.StatusBadRequest, problem.Status)
			assert.Equal(t, "request validation failed", problem.Detail)
			assert.Equal(t, "validation_error", problem.Code)
			assert.NotEmpty(t, problem.ErrorID)
			require.NotEmpty(t, problem.Errors)
			assert.Equal(t, tt.wantPath, problem.Errors[0].Path)
			assert.Equal(t, tt.wantCode, problem.Errors[0].Code)
		})
	}
}

func TestSchemaAdvice_KeepsBody(t *testing.T) {
	t.Parallel()

	rec := serve(newDispatcher(t), http.MethodPost, "/pets", `{"name":"rex","age":3}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"name":"rex","age":3}`, rec.Body.String())
}

func TestRegistration_RejectsBadRules(t *testing.T) {
	t.Parallel()

	v := validation.MustNew()
	d := dispatch.MustNew(
		dispatch.WithEntityAdvice(validation.SchemaAdvice(v)),
		dispatch.WithParamAdvice(validation.ParamAdvice(v)),
	)

	_, err := d.GET("/a", handler.MustNew(func(int) {}, handler.Query("n", handler.Attr(validation.AttrRules, "bogus_rule"))))
	require.ErrorIs(t, err, validation.ErrInvalidRule)

	_, err = d.POST("/b", handler.MustNew(func(map[string]any) {},
		handler.Body(handler.Attr(validation.AttrSchema, `{"type": 12}`))), router.WithConsumes("application/json"))
	require.ErrorIs(t, err, validation.ErrInvalidSchema)

	assert.Empty(t, d.Routes())
}

func TestExceptionHandler_PassesOtherErrors(t *testing.T) {
	t.Parallel()

	rec := serve(newDispatcher(t), http.MethodPost, "/signup", `{"email":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotContains(t, rec.Body.String(), "request validation failed")
}

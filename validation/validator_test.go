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

package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	SKU   string `json:"sku" validate:"required,sku"`
	Price int    `json:"price" validate:"min=1"`
}

type order struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"min=8"`
	Items    []item `json:"items" validate:"dive"`
	Note     string `json:"-" validate:"max=3"`
}

type product struct {
	Name string `json:"name"`
}

func (product) JSONSchema() (string, string) {
	return "product.json", `{
		"type": "object",
		"required": ["name"],
		"properties": {"name": {"type": "string", "minLength": 2}}
	}`
}

func isSKU(fl validator.FieldLevel) bool {
	return strings.HasPrefix(fl.Field().String(), "SKU-")
}

func newValidator(t *testing.T, opts ...Option) *Validator {
	t.Helper()
	v, err := New(append([]Option{WithCustomTag("sku", isSKU)}, opts...)...)
	require.NoError(t, err)
	return v
}

func TestValidator_Tags(t *testing.T) {
	t.Parallel()

	valid := order{Email: "ada@example.com", Password: "long enough", Items: []item{{SKU: "SKU-1", Price: 3}}}

	tests := []struct {
		name      string
		mutate    func(o *order)
		wantPaths []string
		wantCode  string
	}{
		{"valid", func(*order) {}, nil, ""},
		{"missing email", func(o *order) { o.Email = "" }, []string{"email"}, "tag.required"},
		{"bad email", func(o *order) { o.Email = "nope" }, []string{"email"}, "tag.email"},
		{"nested price", func(o *order) { o.Items = append(o.Items, item{SKU: "SKU-2"}) }, []string{"items.1.price"}, "tag.min"},
		{"custom tag", func(o *order) { o.Items[0].SKU = "X-1" }, []string{"items.0.sku"}, "tag.sku"},
		{"several fields", func(o *order) { o.Email = ""; o.Password = "short" }, []string{"email", "password"}, ""},
	}
	v := newValidator(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			o := valid
			o.Items = append([]item(nil), valid.Items...)
			tt.mutate(&o)

			err := v.Validate(&o)
			if tt.wantPaths == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrValidation)
			var verr *Error
			require.ErrorAs(t, err, &verr)
			paths := make([]string, 0, len(verr.Fields))
			for _, f := range verr.Fields {
				paths = append(paths, f.Path)
			}
			assert.Equal(t, tt.wantPaths, paths)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, verr.Fields[0].Code)
			}
		})
	}
}

func TestValidator_Messages(t *testing.T) {
	t.Parallel()

	v := newValidator(t, WithMessage("email", "is not an address"))
	err := v.Validate(order{Email: "nope", Password: "short"})

	var verr *Error
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Fields, 2)
	assert.Equal(t, "is not an address", verr.Fields[0].Message)
	assert.Equal(t, "must be at least 8 characters", verr.Fields[1].Message)
	assert.Equal(t, "validation failed: email: is not an address; password: must be at least 8 characters", err.Error())
}

func TestValidator_Redaction(t *testing.T) {
	t.Parallel()

	v := newValidator(t, WithRedactor(func(path string) bool { return path == "password" }))
	err := v.Validate(&order{Email: "ada@example.com", Password: "hunter2"})

	var verr *Error
	require.ErrorAs(t, err, &verr)
	require.True(t, verr.Has("password"))
	assert.Equal(t, redacted, verr.Fields[0].Meta["value"])
	assert.NotContains(t, err.Error(), "hunter2")
}

func TestValidator_MaxErrors(t *testing.T) {
	t.Parallel()

	v := newValidator(t, WithMaxErrors(1))
	err := v.Validate(&order{Password: "short"})

	var verr *Error
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 1)
	assert.True(t, verr.Truncated)
	assert.Contains(t, err.Error(), "(truncated)")
}

func TestValidator_FieldNameMapper(t *testing.T) {
	t.Parallel()

	v := newValidator(t, WithFieldNameMapper(strings.ToUpper))
	err := v.Validate(&order{Email: "ada@example.com", Password: "short"})

	var verr *Error
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Has("PASSWORD"))
}

func TestValidator_Schema(t *testing.T) {
	t.Parallel()

	v := newValidator(t)

	require.NoError(t, v.Validate(product{Name: "lamp"}))

	err := v.Validate(product{Name: "x"})
	var verr *Error
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Fields, 1)
	assert.Equal(t, "name", verr.Fields[0].Path)
	assert.Equal(t, "schema.minLength", verr.Fields[0].Code)

	err = v.ValidateJSON("product.json", "", []byte(`{}`))
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "schema.required", verr.Fields[0].Code, "the cached schema is reused by id")

	err = v.ValidateJSON("", `{"type":"array"}`, []byte(`{not json`))
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "schema.invalid_json", verr.Fields[0].Code)
}

func TestValidator_InvalidSchema(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, CompileSchema(`{"type": 12}`), ErrInvalidSchema)
	require.ErrorIs(t, CompileSchema(`{`), ErrInvalidSchema)
	require.NoError(t, CompileSchema(`{"type": "object"}`))
}

func TestValidator_Var(t *testing.T) {
	t.Parallel()

	v := newValidator(t)

	require.NoError(t, v.Var(5, "min=1,max=10", "page"))

	err := v.Var(0, "min=1", "page")
	var verr *Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "page", verr.Fields[0].Path)
	assert.Equal(t, "tag.min", verr.Fields[0].Code)
	assert.Equal(t, "must be at least 1", verr.Fields[0].Message)

	require.ErrorIs(t, v.Var(1, "no_such_tag", "page"), ErrInvalidRule)
}

func TestNew_InvalidOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opt  Option
	}{
		{"negative max errors", WithMaxErrors(-1)},
		{"unnamed tag", WithCustomTag("", isSKU)},
		{"nil tag func", WithCustomTag("x", nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(tt.opt)
			require.Error(t, err)
		})
	}
	assert.Panics(t, func() { MustNew(WithMaxErrors(-1)) })
}

func TestError(t *testing.T) {
	t.Parallel()

	var e Error
	assert.False(t, e.HasErrors())
	assert.Equal(t, "validation failed", e.Error())

	e.Add("b", "tag.min", "too small", nil)
	e.Add("a", "tag.required", "is required", nil)
	e.Sort()
	assert.Equal(t, "a", e.Fields[0].Path)
	assert.Equal(t, 400, e.HTTPStatus())
	assert.Equal(t, "validation_error", e.Code())
	assert.Equal(t, e.Fields, e.Details())

	p := e.prefixed("body")
	assert.Equal(t, "body.a", p.Fields[0].Path)
	assert.Equal(t, "a", e.Fields[0].Path, "prefixed copies")

	assert.True(t, errors.Is(FieldError{Message: "x"}, ErrValidation))
}

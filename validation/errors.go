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
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrValidation is the sentinel every validation failure matches with
// errors.Is.
var ErrValidation = errors.New("validation")

// Static errors for configuration.
var (
	// ErrInvalidSchema is returned when a JSON Schema document cannot be
	// compiled.
	ErrInvalidSchema = errors.New("validation: invalid schema")

	// ErrInvalidRule is returned when a parameter rule is not a valid tag
	// expression.
	ErrInvalidRule = errors.New("validation: invalid rule")
)

// FieldError is the failure of one field.
type FieldError struct {
	Path    string         `json:"path"`           // JSON path such as "items.2.price"
	Code    string         `json:"code"`           // stable code such as "tag.required"
	Message string         `json:"message"`        // human-readable message
	Meta    map[string]any `json:"meta,omitempty"` // tag, param, value, ...
}

// Error returns "path: message", or the message alone for root errors.
func (e FieldError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Unwrap returns [ErrValidation].
func (e FieldError) Unwrap() error {
	return ErrValidation
}

// Error collects the field errors of one value.
type Error struct {
	Fields    []FieldError `json:"errors"`
	Truncated bool         `json:"truncated,omitempty"`
}

// Error returns the joined field messages.
func (v *Error) Error() string {
	switch {
	case len(v.Fields) == 0:
		return "validation failed"
	case len(v.Fields) == 1 && !v.Truncated:
		return v.Fields[0].Error()
	}
	msgs := make([]string, 0, len(v.Fields))
	for _, f := range v.Fields {
		msgs = append(msgs, f.Error())
	}
	suffix := ""
	if v.Truncated {
		suffix = " (truncated)"
	}
	return "validation failed: " + strings.Join(msgs, "; ") + suffix
}

// Unwrap returns [ErrValidation].
func (v *Error) Unwrap() error {
	return ErrValidation
}

// HTTPStatus implements errors.ErrorType.
func (v *Error) HTTPStatus() int {
	return http.StatusBadRequest
}

// Details implements errors.ErrorDetails.
func (v *Error) Details() any {
	return v.Fields
}

// Code implements errors.ErrorCode.
func (v *Error) Code() string {
	return "validation_error"
}

// Add appends a field error.
func (v *Error) Add(path, code, message string, meta map[string]any) {
	v.Fields = append(v.Fields, FieldError{Path: path, Code: code, Message: message, Meta: meta})
}

// HasErrors reports whether any field failed.
func (v *Error) HasErrors() bool {
	return len(v.Fields) > 0
}

// Has reports whether path failed.
func (v *Error) Has(path string) bool {
	for _, f := range v.Fields {
		if f.Path == path {
			return true
		}
	}
	return false
}

// Sort orders the errors by path, then code.
func (v *Error) Sort() {
	sort.SliceStable(v.Fields, func(i, j int) bool {
		if v.Fields[i].Path != v.Fields[j].Path {
			return v.Fields[i].Path < v.Fields[j].Path
		}
		return v.Fields[i].Code < v.Fields[j].Code
	})
}

// prefixed returns a copy of err with every path below prefix.
func (v *Error) prefixed(prefix string) *Error {
	out := &Error{Truncated: v.Truncated, Fields: make([]FieldError, len(v.Fields))}
	for i, f := range v.Fields {
		if f.Path == "" {
			f.Path = prefix
		} else {
			f.Path = prefix + "." + f.Path
		}
		out.Fields[i] = f
	}
	return out
}

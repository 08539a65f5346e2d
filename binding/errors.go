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

package binding

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// Static errors for binding operations.
var (
	ErrUnsupportedType       = errors.New("unsupported type")
	ErrInvalidBooleanValue   = errors.New("invalid boolean value")
	ErrInvalidIPAddress      = errors.New("invalid IP address")
	ErrEmptyTimeValue        = errors.New("empty time value")
	ErrUnableToParseTime     = errors.New("unable to parse time")
	ErrSliceExceedsMaxLength = errors.New("slice exceeds max length")
	ErrOutMustBePointer      = errors.New("out must be a non-nil pointer to struct")
	ErrMissingValue          = errors.New("missing value")
)

// BindError describes a value that could not be converted to its target.
//
// Use [errors.As] to check for BindError:
//
//	var bindErr *binding.BindError
//	if errors.As(err, &bindErr) {
//	    fmt.Println(bindErr.Field, bindErr.Source)
//	}
type BindError struct {
	Field  string
	Source Source
	Value  string
	Type   reflect.Type
	Err    error
}

// Error returns a message with a hint for common mistakes.
func (e *BindError) Error() string {
	typeName := "unknown"
	if e.Type != nil {
		typeName = e.Type.String()
	}
	msg := fmt.Sprintf("binding %q (%s): cannot convert %q to %s: %v", e.Field, e.Source, e.Value, typeName, e.Err)
	if hint := e.hint(); hint != "" {
		msg += " (hint: " + hint + ")"
	}
	return msg
}

// Unwrap returns the conversion error.
func (e *BindError) Unwrap() error {
	return e.Err
}

// HTTPStatus reports a client error.
func (e *BindError) HTTPStatus() int {
	return 400
}

// Code returns a machine-readable code.
func (e *BindError) Code() string {
	return "binding_error"
}

// Details exposes the failing field.
func (e *BindError) Details() any {
	return map[string]any{
		"field":  e.Field,
		"source": e.Source.String(),
		"value":  e.Value,
	}
}

func (e *BindError) hint() string {
	if e.Type == nil {
		return ""
	}
	t := e.Type
	for t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice {
		t = t.Elem()
	}
	switch {
	case isInt(t.Kind()) && strings.Contains(e.Value, "."):
		return "use a float type for decimal values"
	case t == timeType:
		return "use RFC3339 or 2006-01-02"
	case t.Kind() == reflect.Bool:
		return "use true/false, 1/0, yes/no or on/off"
	default:
		return ""
	}
}

func isInt(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	default:
		return false
	}
}

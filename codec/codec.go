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

package codec

import (
	"errors"
	"fmt"
	"io"
	"reflect"

	"rivaas.dev/dispatch/mediatype"
)

// Static errors for codecs.
var (
	ErrUnsupportedValue = errors.New("codec: unsupported value")
	ErrEmptyBody        = errors.New("codec: empty body")
)

// Codec reads and writes one family of media types.
type Codec interface {
	// MediaTypes lists the media types the codec handles. Patterns such as
	// application/*+json are allowed.
	MediaTypes() []mediatype.MediaType

	// Decode reads r into v, which is a non-nil pointer.
	Decode(r io.Reader, v any) error

	// Encode writes v to w.
	Encode(w io.Writer, v any) error
}

// TypeSupporter is implemented by codecs restricted to some Go types.
type TypeSupporter interface {
	Supports(t reflect.Type) bool
}

// Supports reports whether c accepts values of type t. Codecs without
// [TypeSupporter] accept every type.
func Supports(c Codec, t reflect.Type) bool {
	if ts, ok := c.(TypeSupporter); ok && t != nil {
		return ts.Supports(t)
	}
	return true
}

// Handles reports whether any media type of c includes m.
func Handles(c Codec, m mediatype.MediaType) bool {
	for _, mt := range c.MediaTypes() {
		if mt.Includes(m) {
			return true
		}
	}
	return false
}

// Find returns the first codec that handles m and supports t.
func Find(codecs []Codec, m mediatype.MediaType, t reflect.Type) (Codec, bool) {
	for _, c := range codecs {
		if Handles(c, m) && Supports(c, t) {
			return c, true
		}
	}
	return nil, false
}

// DecodeError wraps a decoding failure with the media type being read.
type DecodeError struct {
	MediaType string
	Err       error
}

// Error returns the message.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.MediaType, e.Err)
}

// Unwrap returns the codec error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// HTTPStatus reports a malformed request, unless reading the body failed
// with a status of its own.
func (e *DecodeError) HTTPStatus() int {
	var typed interface{ HTTPStatus() int }
	if errors.As(e.Err, &typed) {
		return typed.HTTPStatus()
	}
	return 400
}

// Code returns a machine-readable code.
func (e *DecodeError) Code() string {
	return "malformed_body"
}

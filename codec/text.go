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
	"encoding"
	"fmt"
	"io"
	"reflect"

	"rivaas.dev/dispatch/mediatype"
)

var (
	textMarshalerType   = reflect.TypeFor[encoding.TextMarshaler]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
	stringerType        = reflect.TypeFor[fmt.Stringer]()
	bytesType           = reflect.TypeFor[[]byte]()
)

type textCodec struct{}

// Text returns a text/plain codec for strings, byte slices, fmt.Stringer
// and encoding.Text(Un)Marshaler values.
func Text() Codec {
	return textCodec{}
}

func (textCodec) MediaTypes() []mediatype.MediaType {
	return []mediatype.MediaType{mediatype.TextPlain}
}

func (textCodec) Supports(t reflect.Type) bool {
	for t.Kind() == reflect.Pointer {
		if t.Implements(textUnmarshalerType) || t.Implements(textMarshalerType) {
			return true
		}
		t = t.Elem()
	}
	return t.Kind() == reflect.String || t == bytesType ||
		t.Implements(textMarshalerType) || t.Implements(stringerType) ||
		reflect.PointerTo(t).Implements(textUnmarshalerType)
}

func (textCodec) Decode(r io.Reader, v any) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	switch dst := v.(type) {
	case *string:
		*dst = string(data)
	case *[]byte:
		*dst = data
	case encoding.TextUnmarshaler:
		return dst.UnmarshalText(data)
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
	return nil
}

func (textCodec) Encode(w io.Writer, v any) error {
	var err error
	switch src := v.(type) {
	case string:
		_, err = io.WriteString(w, src)
	case []byte:
		_, err = w.Write(src)
	case encoding.TextMarshaler:
		var b []byte
		if b, err = src.MarshalText(); err == nil {
			_, err = w.Write(b)
		}
	case fmt.Stringer:
		_, err = io.WriteString(w, src.String())
	default:
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.String {
			return fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
		}
		_, err = io.WriteString(w, rv.String())
	}
	return err
}

type bytesCodec struct{}

// Bytes returns an application/octet-stream codec for []byte values.
func Bytes() Codec {
	return bytesCodec{}
}

func (bytesCodec) MediaTypes() []mediatype.MediaType {
	return []mediatype.MediaType{mediatype.OctetStream}
}

func (bytesCodec) Supports(t reflect.Type) bool {
	return t == bytesType || (t.Kind() == reflect.Pointer && t.Elem() == bytesType)
}

func (bytesCodec) Decode(r io.Reader, v any) error {
	dst, ok := v.(*[]byte)
	if !ok {
		return fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	*dst = data
	return nil
}

func (bytesCodec) Encode(w io.Writer, v any) error {
	src, ok := v.([]byte)
	if !ok {
		return fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
	_, err := w.Write(src)
	return err
}

// Defaults returns the built-in codecs in selection order.
func Defaults() []Codec {
	return []Codec{JSON(), XML(false), Text(), Bytes()}
}

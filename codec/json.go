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
	"encoding/json"
	"errors"
	"io"

	"rivaas.dev/dispatch/mediatype"
)

// JSONOption configures the JSON codec.
type JSONOption func(*jsonCodec)

// WithDisallowUnknownFields rejects objects with fields the target lacks.
func WithDisallowUnknownFields() JSONOption {
	return func(c *jsonCodec) { c.strict = true }
}

// WithUseNumber decodes numbers into json.Number inside interface values.
func WithUseNumber() JSONOption {
	return func(c *jsonCodec) { c.useNumber = true }
}

// WithIndent pretty-prints responses.
func WithIndent(indent string) JSONOption {
	return func(c *jsonCodec) { c.indent = indent }
}

type jsonCodec struct {
	strict    bool
	useNumber bool
	indent    string
}

// JSON returns a codec for application/json and application/*+json.
func JSON(opts ...JSONOption) Codec {
	c := &jsonCodec{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *jsonCodec) MediaTypes() []mediatype.MediaType {
	return []mediatype.MediaType{mediatype.JSON, mediatype.AnyJSON}
}

func (c *jsonCodec) Decode(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	if c.strict {
		dec.DisallowUnknownFields()
	}
	if c.useNumber {
		dec.UseNumber()
	}
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyBody
		}
		return err
	}
	return nil
}

func (c *jsonCodec) Encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	if c.indent != "" {
		enc.SetIndent("", c.indent)
	}
	return enc.Encode(v)
}

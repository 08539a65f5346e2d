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

// Package yaml provides a YAML entity codec backed by gopkg.in/yaml.v3.
package yaml

import (
	"errors"
	"io"

	"gopkg.in/yaml.v3"

	"rivaas.dev/dispatch/codec"
	"rivaas.dev/dispatch/mediatype"
)

// Option configures the codec.
type Option func(*yamlCodec)

// WithStrict rejects fields the target type does not declare.
func WithStrict() Option {
	return func(c *yamlCodec) { c.strict = true }
}

// WithIndent sets the number of spaces used for nesting on output.
func WithIndent(spaces int) Option {
	return func(c *yamlCodec) { c.indent = spaces }
}

type yamlCodec struct {
	strict bool
	indent int
}

// New returns a codec for application/yaml, application/x-yaml and text/yaml.
func New(opts ...Option) codec.Codec {
	c := &yamlCodec{indent: 2}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *yamlCodec) MediaTypes() []mediatype.MediaType {
	return []mediatype.MediaType{mediatype.YAML, mediatype.XYAML, mediatype.TextYAML}
}

func (c *yamlCodec) Decode(r io.Reader, v any) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(c.strict)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return codec.ErrEmptyBody
		}
		return err
	}
	return nil
}

func (c *yamlCodec) Encode(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(c.indent)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

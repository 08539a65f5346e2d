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

// Package toml provides a TOML entity codec backed by github.com/BurntSushi/toml.
package toml

import (
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/BurntSushi/toml"

	"rivaas.dev/dispatch/codec"
	"rivaas.dev/dispatch/mediatype"
)

// UndecodedError lists keys present in the document but absent from the
// target type. It is returned only by strict codecs.
type UndecodedError struct {
	Keys []string
}

// Error returns the message.
func (e *UndecodedError) Error() string {
	return "toml: undecoded keys: " + strings.Join(e.Keys, ", ")
}

// Option configures the codec.
type Option func(*tomlCodec)

// WithStrict rejects keys the target type does not declare.
func WithStrict() Option {
	return func(c *tomlCodec) { c.strict = true }
}

type tomlCodec struct {
	strict bool
}

// New returns a codec for application/toml.
func New(opts ...Option) codec.Codec {
	c := &tomlCodec{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *tomlCodec) MediaTypes() []mediatype.MediaType {
	return []mediatype.MediaType{mediatype.TOML}
}

// Supports limits the codec to tables: TOML documents cannot hold a bare
// scalar or array at the top level.
func (c *tomlCodec) Supports(t reflect.Type) bool {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct || t.Kind() == reflect.Map || t.Kind() == reflect.Interface
}

func (c *tomlCodec) Decode(r io.Reader, v any) error {
	meta, err := toml.NewDecoder(r).Decode(v)
	if err != nil {
		return err
	}
	if c.strict {
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return &UndecodedError{Keys: keys}
		}
	}
	return nil
}

func (c *tomlCodec) Encode(w io.Writer, v any) error {
	if err := toml.NewEncoder(w).Encode(v); err != nil {
		return fmt.Errorf("toml: %w", err)
	}
	return nil
}

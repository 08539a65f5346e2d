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

// Package proto provides Protocol Buffers entity codecs backed by
// google.golang.org/protobuf: [New] for the binary wire format and [JSON]
// for the canonical JSON mapping of proto messages.
//
// Both codecs only accept types implementing proto.Message, so they can be
// registered ahead of the generic JSON codec without affecting plain structs.
package proto

import (
	"fmt"
	"io"
	"reflect"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"rivaas.dev/dispatch/codec"
	"rivaas.dev/dispatch/mediatype"
)

var messageType = reflect.TypeFor[proto.Message]()

// Option configures the codecs.
type Option func(*config)

type config struct {
	allowPartial   bool
	discardUnknown bool
	emitDefaults   bool
}

// WithAllowPartial accepts messages with missing required fields.
func WithAllowPartial() Option {
	return func(c *config) { c.allowPartial = true }
}

// WithDiscardUnknown ignores unknown fields when decoding.
func WithDiscardUnknown() Option {
	return func(c *config) { c.discardUnknown = true }
}

// WithEmitDefaults writes zero-valued fields in JSON output.
func WithEmitDefaults() Option {
	return func(c *config) { c.emitDefaults = true }
}

func newConfig(opts []Option) config {
	var c config
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func supports(t reflect.Type) bool {
	return t.Implements(messageType)
}

func message(v any) (proto.Message, error) {
	m, ok := v.(proto.Message)
	if !ok {
		return nil, fmt.Errorf("%w: %T is not a proto.Message", codec.ErrUnsupportedValue, v)
	}
	return m, nil
}

// target returns the message to decode into. v is either a proto.Message or
// a pointer to a nil message pointer, which is allocated.
func target(v any) (proto.Message, error) {
	if m, ok := v.(proto.Message); ok {
		return m, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer && !rv.IsNil() && rv.Elem().Type().Implements(messageType) &&
		rv.Elem().Kind() == reflect.Pointer {
		if rv.Elem().IsNil() {
			rv.Elem().Set(reflect.New(rv.Elem().Type().Elem()))
		}
		return rv.Elem().Interface().(proto.Message), nil
	}
	return nil, fmt.Errorf("%w: %T is not a proto.Message", codec.ErrUnsupportedValue, v)
}

type binaryCodec struct {
	cfg config
}

// New returns a codec for application/x-protobuf and application/protobuf.
func New(opts ...Option) codec.Codec {
	return &binaryCodec{cfg: newConfig(opts)}
}

func (c *binaryCodec) MediaTypes() []mediatype.MediaType {
	return []mediatype.MediaType{mediatype.Protobuf, mediatype.ProtobufAlt}
}

func (c *binaryCodec) Supports(t reflect.Type) bool { return supports(t) }

func (c *binaryCodec) Decode(r io.Reader, v any) error {
	m, err := target(v)
	if err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return proto.UnmarshalOptions{
		AllowPartial:   c.cfg.allowPartial,
		DiscardUnknown: c.cfg.discardUnknown,
	}.Unmarshal(data, m)
}

func (c *binaryCodec) Encode(w io.Writer, v any) error {
	m, err := message(v)
	if err != nil {
		return err
	}
	data, err := proto.MarshalOptions{AllowPartial: c.cfg.allowPartial, Deterministic: true}.Marshal(m)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

type jsonCodec struct {
	cfg config
}

// JSON returns a codec for application/json restricted to proto messages.
func JSON(opts ...Option) codec.Codec {
	return &jsonCodec{cfg: newConfig(opts)}
}

func (c *jsonCodec) MediaTypes() []mediatype.MediaType {
	return []mediatype.MediaType{mediatype.JSON}
}

func (c *jsonCodec) Supports(t reflect.Type) bool { return supports(t) }

func (c *jsonCodec) Decode(r io.Reader, v any) error {
	m, err := target(v)
	if err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return protojson.UnmarshalOptions{
		AllowPartial:   c.cfg.allowPartial,
		DiscardUnknown: c.cfg.discardUnknown,
	}.Unmarshal(data, m)
}

func (c *jsonCodec) Encode(w io.Writer, v any) error {
	m, err := message(v)
	if err != nil {
		return err
	}
	data, err := protojson.MarshalOptions{
		AllowPartial:    c.cfg.allowPartial,
		EmitUnpopulated: c.cfg.emitDefaults,
	}.Marshal(m)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

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

// Package msgpack provides a MessagePack entity codec backed by
// github.com/vmihailenco/msgpack/v5.
package msgpack

import (
	"errors"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"rivaas.dev/dispatch/codec"
	"rivaas.dev/dispatch/mediatype"
)

// Option configures the codec.
type Option func(*msgpackCodec)

// WithJSONTag reads field names from json tags when msgpack tags are absent.
func WithJSONTag() Option {
	return func(c *msgpackCodec) { c.jsonTag = true }
}

// WithDisallowUnknownFields rejects fields the target type does not declare.
func WithDisallowUnknownFields() Option {
	return func(c *msgpackCodec) { c.strict = true }
}

// WithCompactInts encodes integers in the smallest representation.
func WithCompactInts() Option {
	return func(c *msgpackCodec) { c.compactInts = true }
}

type msgpackCodec struct {
	jsonTag     bool
	strict      bool
	compactInts bool
}

// New returns a codec for application/msgpack and application/x-msgpack.
func New(opts ...Option) codec.Codec {
	c := &msgpackCodec{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *msgpackCodec) MediaTypes() []mediatype.MediaType {
	return []mediatype.MediaType{mediatype.MsgPack, mediatype.XMsgPack}
}

func (c *msgpackCodec) Decode(r io.Reader, v any) error {
	dec := msgpack.NewDecoder(r)
	if c.jsonTag {
		dec.SetCustomStructTag("json")
	}
	dec.DisallowUnknownFields(c.strict)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return codec.ErrEmptyBody
		}
		return err
	}
	return nil
}

func (c *msgpackCodec) Encode(w io.Writer, v any) error {
	enc := msgpack.NewEncoder(w)
	if c.jsonTag {
		enc.SetCustomStructTag("json")
	}
	enc.UseCompactInts(c.compactInts)
	return enc.Encode(v)
}

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

package resolver

import (
	"bytes"
	"fmt"
	"io"
	"reflect"
	"sync"

	"rivaas.dev/dispatch/chain"
	"rivaas.dev/dispatch/codec"
	derrors "rivaas.dev/dispatch/errors"
	"rivaas.dev/dispatch/mediatype"
	"rivaas.dev/dispatch/reqctx"
)

// Void is the result type of response chains.
type Void = struct{}

// Return describes a handler's declared return value. It is built once at
// deployment time.
type Return struct {
	// Type is the declared type. Nil or an interface type means the concrete
	// type is only known at runtime.
	Type reflect.Type
	// Produces is the route's producible media types; empty means any.
	Produces []mediatype.MediaType
}

// Dynamic reports whether the type must be taken from the runtime value.
func (r *Return) Dynamic() bool {
	return r.Type == nil || r.Type.Kind() == reflect.Interface
}

// ResponseEntity is a return value on its way to the wire.
type ResponseEntity struct {
	Request *reqctx.Context
	Return  *Return
	Value   any
	// MediaType is the negotiated type, set by the terminal before writing.
	MediaType mediatype.MediaType
	// Channel receives the encoded bytes. Advices may wrap it.
	Channel ResponseEntityChannel
}

// Type returns the declared type, or the runtime type when dynamic.
func (e *ResponseEntity) Type() reflect.Type {
	if e.Return != nil && !e.Return.Dynamic() {
		return e.Return.Type
	}
	return reflect.TypeOf(e.Value)
}

// ResponseEntityResolver encodes values into the media types it produces.
type ResponseEntityResolver interface {
	Produces() []mediatype.MediaType
	Supports(t reflect.Type) bool
	Write(e *ResponseEntity) error
}

// ResponseEntityAdvice intercepts response writing.
type ResponseEntityAdvice = chain.Advice[*ResponseEntity, Void]

// ResponseEntityAdviceFunc adapts a function to [ResponseEntityAdvice].
type ResponseEntityAdviceFunc = chain.AdviceFunc[*ResponseEntity, Void]

// ResponseEntityAdviceFactory creates advices for the return values it
// supports.
type ResponseEntityAdviceFactory interface {
	Supports(r *Return) bool
	Create(r *Return) (ResponseEntityAdvice, error)
}

// ResponseChain writes one handler's return values.
type ResponseChain = chain.Chain[*ResponseEntity, Void]

// CompileResponse builds the response chain for r. A non-nil fixed codec
// skips negotiation and always writes with that codec.
func CompileResponse(r *Return, resolvers []ResponseEntityResolver, adviceFactories []ResponseEntityAdviceFactory, fixed codec.Codec) (*ResponseChain, error) {
	var terminal chain.Terminal[*ResponseEntity, Void]
	if fixed != nil {
		terminal = &fixedTerminal{writer: CodecWriter(fixed), mediaType: fixedMediaType(fixed)}
	} else {
		candidates := slicesFilter(resolvers, func(w ResponseEntityResolver) bool {
			return r.Dynamic() || w.Supports(r.Type)
		})
		if len(candidates) == 0 {
			return nil, fmt.Errorf("%w return type %s", ErrNoResolver, r.Type)
		}
		chain.SortByOrder(candidates)
		terminal = &negotiatingTerminal{candidates: candidates}
	}

	var advices []ResponseEntityAdvice
	for _, af := range chain.All(adviceFactories, r) {
		advice, err := af.Create(r)
		if err != nil {
			return nil, fmt.Errorf("create response advice: %w", err)
		}
		if advice != nil {
			advices = append(advices, chain.OrderedAdvice(chain.OrderOf(af), advice))
		}
	}
	return chain.New(terminal, advices...), nil
}

func slicesFilter[T any](in []T, keep func(T) bool) []T {
	var out []T
	for _, v := range in {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

// negotiatingTerminal picks a resolver and media type from the Accept header,
// the route's producible types and the value type.
type negotiatingTerminal struct {
	candidates []ResponseEntityResolver
}

func (t *negotiatingTerminal) Resolve(e *ResponseEntity) (Void, error) {
	if e.Value == nil {
		return Void{}, nil
	}

	accept := e.Request.Request().Accept()
	w, mt, ok := Negotiate(t.candidates, e.Return.Produces, accept, e.Type())
	if !ok {
		return Void{}, derrors.NotAcceptable(accept)
	}
	e.MediaType = mt
	e.Request.Response().Header().Set("Content-Type", contentType(mt))
	return Void{}, w.Write(e)
}

// Negotiate selects the resolver and concrete media type for a value of type
// t. Offers are each resolver's producible types narrowed by produces; they
// are ranked by Accept quality, then specificity, then resolver order.
func Negotiate(resolvers []ResponseEntityResolver, produces []mediatype.MediaType, accept string, t reflect.Type) (ResponseEntityResolver, mediatype.MediaType, bool) {
	accepts := mediatype.ParseAccept(accept)

	var (
		best     ResponseEntityResolver
		bestType mediatype.MediaType
		bestQ    = -1.0
		bestSpec = -1
	)
	for _, w := range resolvers {
		if t != nil && !w.Supports(t) {
			continue
		}
		for _, offer := range offers(w.Produces(), produces) {
			q, spec, ok := mediatype.Match(accepts, offer)
			if !ok {
				continue
			}
			narrowed, ok := concrete(accepts, offer)
			if !ok {
				continue
			}
			if q > bestQ || (q == bestQ && spec > bestSpec) {
				best, bestType, bestQ, bestSpec = w, narrowed, q, spec
			}
		}
	}
	return best, bestType, best != nil
}

// concrete narrows offer to a concrete media type the client accepts. Wildcard
// offers fall back to application/octet-stream or text/plain when Accept names
// no concrete type they include.
func concrete(accepts []mediatype.MediaType, offer mediatype.MediaType) (mediatype.MediaType, bool) {
	narrowed := mediatype.Narrow(accepts, offer)
	if narrowed.IsConcrete() {
		return narrowed, true
	}
	for _, fallback := range []mediatype.MediaType{mediatype.OctetStream, mediatype.TextPlain} {
		if offer.Includes(fallback) {
			if _, _, ok := mediatype.Match(accepts, fallback); ok {
				return fallback, true
			}
		}
	}
	return mediatype.MediaType{}, false
}

// offers intersects a resolver's media types with the route's, keeping the
// narrower of each compatible pair in route order.
func offers(own, produces []mediatype.MediaType) []mediatype.MediaType {
	if len(produces) == 0 {
		return own
	}
	var out []mediatype.MediaType
	for _, p := range produces {
		for _, o := range own {
			switch {
			case o.Includes(p):
				out = append(out, p)
			case p.Includes(o):
				out = append(out, o)
			default:
				continue
			}
			break
		}
	}
	return out
}

func contentType(mt mediatype.MediaType) string {
	if mt.Type == "text" {
		if _, ok := mt.Params["charset"]; !ok {
			mt = mt.WithParam("charset", "utf-8")
		}
	}
	return mt.String()
}

// fixedTerminal writes with one codec regardless of Accept.
type fixedTerminal struct {
	writer    ResponseEntityResolver
	mediaType mediatype.MediaType
}

func (t *fixedTerminal) Resolve(e *ResponseEntity) (Void, error) {
	if e.Value == nil {
		return Void{}, nil
	}
	e.MediaType = t.mediaType
	e.Request.Response().Header().Set("Content-Type", contentType(t.mediaType))
	return Void{}, t.writer.Write(e)
}

func fixedMediaType(c codec.Codec) mediatype.MediaType {
	for _, mt := range c.MediaTypes() {
		if mt.IsConcrete() {
			return mt
		}
	}
	return mediatype.OctetStream
}

var bufferPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

// codecWriter adapts a codec to [ResponseEntityResolver].
type codecWriter struct {
	codec codec.Codec
}

// CodecWriter returns a response entity resolver backed by c.
func CodecWriter(c codec.Codec) ResponseEntityResolver {
	return &codecWriter{codec: c}
}

func (w *codecWriter) Produces() []mediatype.MediaType {
	return w.codec.MediaTypes()
}

func (w *codecWriter) Supports(t reflect.Type) bool {
	return codec.Supports(w.codec, t)
}

// Write encodes into a pooled buffer so encoding errors surface before any
// byte is committed.
func (w *codecWriter) Write(e *ResponseEntity) error {
	buf, _ := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	if err := w.codec.Encode(buf, e.Value); err != nil {
		return derrors.Internal("encode "+e.MediaType.Essence(), err)
	}
	return e.Channel.Write(buf.Bytes())
}

// streamWriter copies io.Reader return values to the channel unbuffered.
type streamWriter struct{}

// StreamWriter returns a resolver for io.Reader values. It offers
// application/octet-stream, or whatever the route produces.
func StreamWriter() ResponseEntityResolver {
	return streamWriter{}
}

func (streamWriter) Order() int { return chain.HighestPrecedence }

func (streamWriter) Produces() []mediatype.MediaType {
	return []mediatype.MediaType{mediatype.All}
}

func (streamWriter) Supports(t reflect.Type) bool {
	return t != nil && t.Implements(readerType)
}

func (streamWriter) Write(e *ResponseEntity) error {
	r, ok := e.Value.(io.Reader)
	if !ok {
		return derrors.Internal("stream response", fmt.Errorf("%T is not an io.Reader", e.Value))
	}
	if c, ok := r.(io.Closer); ok {
		defer c.Close()
	}
	_, err := io.Copy(e.Channel.Stream(), r)
	return err
}

// CodecWriters adapts every codec, preceded by [StreamWriter].
func CodecWriters(codecs ...codec.Codec) []ResponseEntityResolver {
	out := make([]ResponseEntityResolver, 0, len(codecs)+1)
	out = append(out, StreamWriter())
	for _, c := range codecs {
		out = append(out, CodecWriter(c))
	}
	return out
}

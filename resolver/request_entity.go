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
	"fmt"
	"io"
	"reflect"

	"rivaas.dev/dispatch/chain"
	"rivaas.dev/dispatch/codec"
	derrors "rivaas.dev/dispatch/errors"
	"rivaas.dev/dispatch/mediatype"
	"rivaas.dev/dispatch/reqctx"
)

// RequestEntity is the request body with the metadata needed to decode it.
// Advices may replace the body reader, for example to decompress it.
type RequestEntity struct {
	Request *reqctx.Context
	Param   *Param
	// MediaType is the parsed Content-Type. It is zero when the request
	// declares none and carries no body.
	MediaType mediatype.MediaType
	body      io.Reader
}

// NewRequestEntity builds the entity for p from the request.
func NewRequestEntity(rc *reqctx.Context, p *Param) (*RequestEntity, error) {
	req := rc.Request()
	e := &RequestEntity{Request: rc, Param: p, body: req.Body()}

	ct := req.ContentType()
	switch {
	case ct != "":
		mt, err := mediatype.Parse(ct)
		if err != nil {
			return nil, derrors.UnsupportedMediaType(ct)
		}
		e.MediaType = mt
	case req.HasBody():
		e.MediaType = mediatype.OctetStream
	}
	return e, nil
}

// Body returns the reader to decode from.
func (e *RequestEntity) Body() io.Reader {
	return e.body
}

// SetBody replaces the reader seen by later advices and the resolver.
func (e *RequestEntity) SetBody(r io.Reader) {
	e.body = r
}

// Empty reports a request with neither a Content-Type nor a body.
func (e *RequestEntity) Empty() bool {
	return e.MediaType.IsZero()
}

// RequestEntityResolver decodes request bodies of the media types it consumes.
type RequestEntityResolver interface {
	Consumes() []mediatype.MediaType
	Supports(p *Param) bool
	Read(e *RequestEntity) (any, error)
}

// RequestEntityAdvice intercepts request entity resolution.
type RequestEntityAdvice = chain.Advice[*RequestEntity, any]

// RequestEntityAdviceFunc adapts a function to [RequestEntityAdvice].
type RequestEntityAdviceFunc = chain.AdviceFunc[*RequestEntity, any]

// RequestEntityAdviceFactory creates advices for the body parameters it
// supports.
type RequestEntityAdviceFactory interface {
	Supports(p *Param) bool
	Create(p *Param) (RequestEntityAdvice, error)
}

// EntityChain resolves one body parameter.
type EntityChain = chain.Chain[*RequestEntity, any]

// entityTerminal selects a resolver by Content-Type at request time. The
// candidates were narrowed by parameter type at deployment time.
type entityTerminal struct {
	candidates []RequestEntityResolver
}

func (t *entityTerminal) Resolve(e *RequestEntity) (any, error) {
	p := e.Param
	if e.Empty() {
		if p.Required {
			return nil, &ParamError{Param: p, Err: ErrMissing}
		}
		return p.Zero(), nil
	}
	for _, r := range t.candidates {
		if mediatype.IncludesAny(r.Consumes(), e.MediaType) {
			return r.Read(e)
		}
	}
	return nil, derrors.UnsupportedMediaType(e.MediaType.String())
}

// CompileBody builds the entity chain for a body parameter.
func CompileBody(p *Param, resolvers []RequestEntityResolver, adviceFactories []RequestEntityAdviceFactory) (*EntityChain, error) {
	sorted := make([]RequestEntityResolver, 0, len(resolvers))
	for _, r := range resolvers {
		if r.Supports(p) {
			sorted = append(sorted, r)
		}
	}
	if len(sorted) == 0 {
		return nil, fmt.Errorf("%w body %s", ErrNoResolver, p)
	}
	chain.SortByOrder(sorted)

	var advices []RequestEntityAdvice
	for _, af := range chain.All(adviceFactories, p) {
		advice, err := af.Create(p)
		if err != nil {
			return nil, fmt.Errorf("create entity advice for %s: %w", p, err)
		}
		if advice != nil {
			advices = append(advices, chain.OrderedAdvice(chain.OrderOf(af), advice))
		}
	}
	return chain.New[*RequestEntity, any](&entityTerminal{candidates: sorted}, advices...), nil
}

// bodyFactory resolves SourceBody parameters through an entity chain.
type bodyFactory struct {
	resolvers []RequestEntityResolver
	advices   []RequestEntityAdviceFactory
}

// BodyFactory returns the factory for [SourceBody] parameters.
func BodyFactory(resolvers []RequestEntityResolver, advices []RequestEntityAdviceFactory) ParamResolverFactory {
	return &bodyFactory{resolvers: resolvers, advices: advices}
}

func (f *bodyFactory) Supports(p *Param) bool {
	return p.Source == SourceBody
}

func (f *bodyFactory) Create(p *Param) (ParamResolver, error) {
	entityChain, err := CompileBody(p, f.resolvers, f.advices)
	if err != nil {
		return nil, err
	}
	return ParamResolverFunc(func(ctx *ParamContext) (any, error) {
		e, err := NewRequestEntity(ctx.Request, p)
		if err != nil {
			return nil, err
		}
		return entityChain.Invoke(e)
	}), nil
}

// codecReader adapts a codec to [RequestEntityResolver].
type codecReader struct {
	codec codec.Codec
}

// CodecReader returns a request entity resolver backed by c.
func CodecReader(c codec.Codec) RequestEntityResolver {
	return &codecReader{codec: c}
}

func (r *codecReader) Consumes() []mediatype.MediaType {
	return r.codec.MediaTypes()
}

func (r *codecReader) Supports(p *Param) bool {
	return codec.Supports(r.codec, p.Type)
}

func (r *codecReader) Read(e *RequestEntity) (any, error) {
	target := reflect.New(e.Param.Type)
	if err := r.codec.Decode(e.Body(), target.Interface()); err != nil {
		return nil, &codec.DecodeError{MediaType: e.MediaType.Essence(), Err: err}
	}
	return target.Elem().Interface(), nil
}

var (
	readerType     = reflect.TypeFor[io.Reader]()
	readCloserType = reflect.TypeFor[io.ReadCloser]()
)

// streamReader hands the body reader to handlers that declare io.Reader or
// io.ReadCloser, for any content type.
type streamReader struct{}

// StreamReader returns a resolver that passes the body through undecoded.
func StreamReader() RequestEntityResolver {
	return streamReader{}
}

func (streamReader) Order() int { return chain.HighestPrecedence }

func (streamReader) Consumes() []mediatype.MediaType {
	return []mediatype.MediaType{mediatype.All}
}

func (streamReader) Supports(p *Param) bool {
	return p.Type == readerType || p.Type == readCloserType
}

func (streamReader) Read(e *RequestEntity) (any, error) {
	if rc, ok := e.Body().(io.ReadCloser); ok {
		return rc, nil
	}
	return io.NopCloser(e.Body()), nil
}

// CodecReaders adapts every codec, preceded by [StreamReader].
func CodecReaders(codecs ...codec.Codec) []RequestEntityResolver {
	out := make([]RequestEntityResolver, 0, len(codecs)+1)
	out = append(out, StreamReader())
	for _, c := range codecs {
		out = append(out, CodecReader(c))
	}
	return out
}

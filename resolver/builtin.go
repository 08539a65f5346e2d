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
	"context"
	"reflect"

	"rivaas.dev/dispatch/binding"
	"rivaas.dev/dispatch/chain"
	"rivaas.dev/dispatch/reqctx"
)

var (
	contextType    = reflect.TypeFor[context.Context]()
	rcType         = reflect.TypeFor[*reqctx.Context]()
	requestType    = reflect.TypeFor[*reqctx.Request]()
	responseType   = reflect.TypeFor[*reqctx.Response]()
	connType       = reflect.TypeFor[*reqctx.Conn]()
	deploymentType = reflect.TypeFor[*reqctx.Deployment]()
	attributesType = reflect.TypeFor[*reqctx.Attributes]()
)

// IsRequestType reports whether t is bound from the request context itself.
func IsRequestType(t reflect.Type) bool {
	switch t {
	case contextType, rcType, requestType, responseType, connType, deploymentType, attributesType:
		return true
	default:
		return false
	}
}

// requestFactory binds framework objects. It runs ahead of every other
// factory so user factories cannot shadow them.
type requestFactory struct{}

// RequestFactory returns the factory for context.Context, *reqctx.Context,
// *reqctx.Request, *reqctx.Response, *reqctx.Conn, *reqctx.Deployment and
// *reqctx.Attributes parameters.
func RequestFactory() ParamResolverFactory {
	return requestFactory{}
}

func (requestFactory) Order() int { return chain.HighestPrecedence }

func (requestFactory) Supports(p *Param) bool {
	return (p.Source == SourceNone || p.Source == SourceRequest) && IsRequestType(p.Type)
}

func (requestFactory) Create(p *Param) (ParamResolver, error) {
	var get func(rc *reqctx.Context) any
	switch p.Type {
	case contextType:
		get = func(rc *reqctx.Context) any { return rc.Context() }
	case rcType:
		get = func(rc *reqctx.Context) any { return rc }
	case requestType:
		get = func(rc *reqctx.Context) any { return rc.Request() }
	case responseType:
		get = func(rc *reqctx.Context) any { return rc.Response() }
	case connType:
		get = func(rc *reqctx.Context) any { return rc.Conn() }
	case deploymentType:
		get = func(rc *reqctx.Context) any { return rc.Deployment() }
	default:
		get = func(rc *reqctx.Context) any { return rc.Attributes() }
	}
	return ParamResolverFunc(func(ctx *ParamContext) (any, error) {
		return get(ctx.Request), nil
	}), nil
}

// lookupFunc returns the raw values of a named parameter.
type lookupFunc func(req *reqctx.Request, name string) ([]string, bool)

// valueFactory converts single string-valued sources with binding.Convert.
type valueFactory struct {
	source Source
	lookup lookupFunc
	opts   []binding.Option
}

// PathFactory resolves path variables.
func PathFactory(opts ...binding.Option) ParamResolverFactory {
	return &valueFactory{source: SourcePath, lookup: lookupPath, opts: opts}
}

// QueryFactory resolves query parameters. Slice types take every value.
func QueryFactory(opts ...binding.Option) ParamResolverFactory {
	return &valueFactory{source: SourceQuery, lookup: lookupQuery, opts: opts}
}

// HeaderFactory resolves request headers.
func HeaderFactory(opts ...binding.Option) ParamResolverFactory {
	return &valueFactory{source: SourceHeader, lookup: lookupHeader, opts: opts}
}

// CookieFactory resolves cookies.
func CookieFactory(opts ...binding.Option) ParamResolverFactory {
	return &valueFactory{source: SourceCookie, lookup: lookupCookie, opts: opts}
}

func lookupPath(req *reqctx.Request, name string) ([]string, bool) {
	v, ok := req.PathVar(name)
	if !ok {
		return nil, false
	}
	return []string{v}, true
}

func lookupQuery(req *reqctx.Request, name string) ([]string, bool) {
	v, ok := req.Query()[name]
	return v, ok
}

func lookupHeader(req *reqctx.Request, name string) ([]string, bool) {
	v := req.Header.Values(name)
	return v, len(v) > 0
}

func lookupCookie(req *reqctx.Request, name string) ([]string, bool) {
	v, ok := req.Cookie(name)
	if !ok {
		return nil, false
	}
	return []string{v}, true
}

func (f *valueFactory) Supports(p *Param) bool {
	return p.Source == f.source && binding.Supported(p.Type)
}

func (f *valueFactory) Create(p *Param) (ParamResolver, error) {
	var defaultValue any
	if p.HasDefault {
		v, err := binding.Convert([]string{p.Default}, p.Type, f.opts...)
		if err != nil {
			return nil, &ParamError{Param: p, Value: p.Default, Err: err}
		}
		defaultValue = v.Interface()
	}

	return ParamResolverFunc(func(ctx *ParamContext) (any, error) {
		values, ok := f.lookup(ctx.Request.Request(), p.Name)
		if !ok {
			switch {
			case p.HasDefault:
				return defaultValue, nil
			case p.Required:
				return nil, &ParamError{Param: p, Err: ErrMissing}
			default:
				return p.Zero(), nil
			}
		}
		v, err := binding.Convert(values, p.Type, f.opts...)
		if err != nil {
			return nil, &ParamError{Param: p, Value: first(values), Err: err}
		}
		return v.Interface(), nil
	}), nil
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// beanFactory binds request beans: structs populated from several sources.
type beanFactory struct {
	opts []binding.Option
}

// BeanFactory resolves [SourceBean] parameters with binding.BindValue.
func BeanFactory(opts ...binding.Option) ParamResolverFactory {
	return &beanFactory{opts: opts}
}

func (f *beanFactory) Supports(p *Param) bool {
	if p.Source != SourceBean {
		return false
	}
	t := p.Type
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct
}

func (f *beanFactory) Create(p *Param) (ParamResolver, error) {
	return ParamResolverFunc(func(ctx *ParamContext) (any, error) {
		req := ctx.Request.Request()
		sources := binding.Sources{
			binding.SourcePath:   binding.MapGetter(req.PathVars()),
			binding.SourceQuery:  binding.QueryGetter(req.Query()),
			binding.SourceHeader: binding.HeaderGetter(req.Header),
			binding.SourceCookie: binding.GetterFunc(func(name string) ([]string, bool) {
				return lookupCookie(req, name)
			}),
		}
		v, err := binding.BindValue(p.Type, sources, f.opts...)
		if err != nil {
			return nil, &ParamError{Param: p, Err: err}
		}
		return v.Interface(), nil
	}), nil
}

// DefaultParamFactories returns the built-in factories except the body
// factory, which needs the entity resolvers.
func DefaultParamFactories(opts ...binding.Option) []ParamResolverFactory {
	return []ParamResolverFactory{
		RequestFactory(),
		PathFactory(opts...),
		QueryFactory(opts...),
		HeaderFactory(opts...),
		CookieFactory(opts...),
		BeanFactory(opts...),
	}
}

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

package dispatch

import (
	"fmt"
	"slices"

	"rivaas.dev/dispatch/handler"
	"rivaas.dev/dispatch/resolver"
	"rivaas.dev/dispatch/router"
	"rivaas.dev/dispatch/scheduler"
)

// plan is everything a route needs at request time, compiled once at
// registration.
type plan struct {
	route        *router.Route
	method       *handler.Method
	params       []*resolver.ParamChain
	ret          *resolver.Return
	response     *resolver.ResponseChain
	interceptors []handler.Interceptor
	scheduler    scheduler.Scheduler
}

// resolvers holds the strategies plans are compiled from. It is read-only
// after New.
type resolvers struct {
	params          []resolver.ParamResolverFactory
	paramAdvices    []resolver.ParamAdviceFactory
	responseWriters []resolver.ResponseEntityResolver
	responseAdvices []resolver.ResponseEntityAdviceFactory
	interceptors    []handler.Interceptor
}

func newResolvers(c *config) *resolvers {
	readers := append([]resolver.RequestEntityResolver{}, c.entityReaders...)
	readers = append(readers, resolver.CodecReaders(c.codecs...)...)

	params := append([]resolver.ParamResolverFactory{}, c.paramFactories...)
	params = append(params, resolver.DefaultParamFactories(c.bindOpts...)...)
	params = append(params, resolver.BodyFactory(readers, c.entityAdvices))

	writers := append([]resolver.ResponseEntityResolver{}, c.responseWriters...)
	writers = append(writers, resolver.CodecWriters(c.codecs...)...)

	return &resolvers{
		params:          params,
		paramAdvices:    c.paramAdvices,
		responseWriters: writers,
		responseAdvices: c.responseAdvices,
		interceptors:    c.interceptors,
	}
}

// compile builds the plan for r.
func (rs *resolvers) compile(r *router.Route, schedulers *scheduler.Registry) (*plan, error) {
	m := r.Handler()
	s, ok := schedulers.Get(r.Scheduler())
	if !ok {
		return nil, fmt.Errorf("%w: route %s names unknown scheduler %q", ErrUnknownScheduler, r, r.Scheduler())
	}

	p := &plan{
		route:        r,
		method:       m,
		interceptors: handler.SortInterceptors(append(slices.Clone(rs.interceptors), r.Interceptors()...)),
		scheduler:    s,
	}
	for _, param := range m.Params() {
		c, err := resolver.CompileParam(param, rs.params, rs.paramAdvices)
		if err != nil {
			return nil, fmt.Errorf("route %s: %w", r, err)
		}
		p.params = append(p.params, c)
	}

	p.ret = &resolver.Return{Type: m.Return().Type, Produces: r.Produces()}
	if m.HasValue() {
		c, err := resolver.CompileResponse(p.ret, rs.responseWriters, rs.responseAdvices, r.FixedCodec())
		if err != nil {
			return nil, fmt.Errorf("route %s: %w", r, err)
		}
		p.response = c
	}
	return p, nil
}

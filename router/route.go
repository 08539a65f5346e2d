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

package router

import (
	"fmt"
	"net/http"
	"slices"
	"strings"

	"rivaas.dev/dispatch/codec"
	"rivaas.dev/dispatch/handler"
	"rivaas.dev/dispatch/mediatype"
)

// Route is an immutable dispatch target: a path pattern, the conditions a
// request must satisfy and the handler to run.
type Route struct {
	pattern      *Pattern
	methods      []string
	headers      []Condition
	params       []Condition
	consumes     []mediatype.MediaType
	produces     []mediatype.MediaType
	interceptors []handler.Interceptor
	scheduler    string
	name         string
	fixed        codec.Codec
	handler      *handler.Method
	key          string
}

// Option configures a route.
type Option func(r *Route) error

// NewRoute builds a route for path. Without [WithMethods] the route matches
// every method.
func NewRoute(path string, h *handler.Method, opts ...Option) (*Route, error) {
	if h == nil {
		return nil, ErrNilHandler
	}
	p, err := ParsePattern(path)
	if err != nil {
		return nil, err
	}
	r := &Route{pattern: p, handler: h}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, fmt.Errorf("route %s: %w", path, err)
		}
	}
	r.interceptors = handler.SortInterceptors(r.interceptors)
	r.key = r.identity()
	return r, nil
}

// MustRoute is like [NewRoute] but panics on error.
func MustRoute(path string, h *handler.Method, opts ...Option) *Route {
	r, err := NewRoute(path, h, opts...)
	if err != nil {
		panic(err)
	}
	return r
}

// WithMethods restricts the route to the given methods.
func WithMethods(methods ...string) Option {
	return func(r *Route) error {
		for _, m := range methods {
			m = strings.ToUpper(strings.TrimSpace(m))
			if m == "" {
				return fmt.Errorf("%w: empty method", ErrInvalidCondition)
			}
			if !slices.Contains(r.methods, m) {
				r.methods = append(r.methods, m)
			}
		}
		slices.Sort(r.methods)
		return nil
	}
}

// WithHeaders adds header conditions.
func WithHeaders(exprs ...string) Option {
	return func(r *Route) error {
		conds, err := parseConditions(exprs)
		if err != nil {
			return err
		}
		r.headers = append(r.headers, canonicalHeaders(conds)...)
		return nil
	}
}

// WithParams adds query parameter conditions.
func WithParams(exprs ...string) Option {
	return func(r *Route) error {
		conds, err := parseConditions(exprs)
		if err != nil {
			return err
		}
		r.params = append(r.params, conds...)
		return nil
	}
}

func parseConditions(exprs []string) ([]Condition, error) {
	out := make([]Condition, 0, len(exprs))
	for _, e := range exprs {
		c, err := ParseCondition(e)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// WithConsumes limits the request content types the route accepts. Short
// names such as "json" are expanded.
func WithConsumes(types ...string) Option {
	return func(r *Route) error {
		mts, err := mediatype.ParseList(types...)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidMediaType, err)
		}
		r.consumes = append(r.consumes, mts...)
		return nil
	}
}

// WithProduces limits the response media types the route can produce.
func WithProduces(types ...string) Option {
	return func(r *Route) error {
		mts, err := mediatype.ParseList(types...)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidMediaType, err)
		}
		r.produces = append(r.produces, mts...)
		return nil
	}
}

// WithInterceptors adds interceptors. They are sorted by precedence.
func WithInterceptors(interceptors ...handler.Interceptor) Option {
	return func(r *Route) error {
		r.interceptors = append(r.interceptors, interceptors...)
		return nil
	}
}

// WithScheduler names the scheduler that runs the handler.
func WithScheduler(name string) Option {
	return func(r *Route) error {
		r.scheduler = name
		return nil
	}
}

// WithName names the route for introspection.
func WithName(name string) Option {
	return func(r *Route) error {
		r.name = name
		return nil
	}
}

// WithFixedCodec writes every response with c, skipping negotiation.
func WithFixedCodec(c codec.Codec) Option {
	return func(r *Route) error {
		r.fixed = c
		return nil
	}
}

// WithConstraint restricts a path variable to a regular expression.
func WithConstraint(name, pattern string) Option {
	return constrain(name, ConstraintRegex, pattern, nil)
}

// WithIntParam restricts a path variable to integers.
func WithIntParam(name string) Option {
	return constrain(name, ConstraintInt, "", nil)
}

// WithFloatParam restricts a path variable to decimal numbers.
func WithFloatParam(name string) Option {
	return constrain(name, ConstraintFloat, "", nil)
}

// WithUUIDParam restricts a path variable to UUIDs.
func WithUUIDParam(name string) Option {
	return constrain(name, ConstraintUUID, "", nil)
}

// WithEnumParam restricts a path variable to a fixed set of values.
func WithEnumParam(name string, values ...string) Option {
	return constrain(name, ConstraintEnum, "", values)
}

// WithDateParam restricts a path variable to RFC 3339 full dates.
func WithDateParam(name string) Option {
	return constrain(name, ConstraintDate, "", nil)
}

func constrain(name string, kind ConstraintKind, pattern string, enum []string) Option {
	return func(r *Route) error {
		c, err := newConstraint(kind, pattern, enum)
		if err != nil {
			return err
		}
		return r.pattern.constrain(name, c)
	}
}

// identity is the tuple that must be unique in a registry.
func (r *Route) identity() string {
	var b strings.Builder
	b.WriteString(strings.Join(r.methods, ","))
	b.WriteByte(' ')
	b.WriteString(r.pattern.Key())
	writeSorted(&b, " h:", conditionStrings(r.headers))
	writeSorted(&b, " p:", conditionStrings(r.params))
	writeSorted(&b, " c:", mediaStrings(r.consumes))
	writeSorted(&b, " r:", mediaStrings(r.produces))
	return b.String()
}

func writeSorted(b *strings.Builder, prefix string, values []string) {
	if len(values) == 0 {
		return
	}
	slices.Sort(values)
	b.WriteString(prefix)
	b.WriteString(strings.Join(values, ","))
}

func conditionStrings(conds []Condition) []string {
	out := make([]string, 0, len(conds))
	for _, c := range conds {
		out = append(out, c.String())
	}
	return out
}

func mediaStrings(mts []mediatype.MediaType) []string {
	out := make([]string, 0, len(mts))
	for _, m := range mts {
		out = append(out, m.String())
	}
	return out
}

// Pattern returns the path pattern.
func (r *Route) Pattern() *Pattern { return r.pattern }

// Path returns the path pattern as written.
func (r *Route) Path() string { return r.pattern.String() }

// Methods returns the allowed methods, sorted. Empty means any.
func (r *Route) Methods() []string { return slices.Clone(r.methods) }

// Headers returns the header conditions.
func (r *Route) Headers() []Condition { return slices.Clone(r.headers) }

// Params returns the query parameter conditions.
func (r *Route) Params() []Condition { return slices.Clone(r.params) }

// Consumes returns the accepted request media types. Empty means any.
func (r *Route) Consumes() []mediatype.MediaType { return slices.Clone(r.consumes) }

// Produces returns the producible media types. Empty means any.
func (r *Route) Produces() []mediatype.MediaType { return slices.Clone(r.produces) }

// Interceptors returns the interceptors in precedence order.
func (r *Route) Interceptors() []handler.Interceptor { return slices.Clone(r.interceptors) }

// Scheduler returns the scheduler name, or "" for the default.
func (r *Route) Scheduler() string { return r.scheduler }

// Name returns the route name.
func (r *Route) Name() string { return r.name }

// FixedCodec returns the codec set with [WithFixedCodec], or nil.
func (r *Route) FixedCodec() codec.Codec { return r.fixed }

// Handler returns the handler.
func (r *Route) Handler() *handler.Method { return r.handler }

// Key returns the route identity: methods, normalized pattern and conditions.
func (r *Route) Key() string { return r.key }

// AllowsMethod reports whether the route matches method.
func (r *Route) AllowsMethod(method string) bool {
	return len(r.methods) == 0 || slices.Contains(r.methods, method)
}

// ConditionCount is the number of explicit conditions, used to rank
// otherwise equal routes.
func (r *Route) ConditionCount() int {
	return len(r.headers) + len(r.params) + len(r.consumes) + len(r.produces)
}

// String returns "METHODS /path [conditions]".
func (r *Route) String() string {
	methods := "*"
	if len(r.methods) > 0 {
		methods = strings.Join(r.methods, ",")
	}
	s := methods + " " + r.pattern.String()
	var extra []string
	for _, c := range r.headers {
		extra = append(extra, "header "+c.String())
	}
	for _, c := range r.params {
		extra = append(extra, "param "+c.String())
	}
	if len(r.consumes) > 0 {
		extra = append(extra, "consumes "+strings.Join(mediaStrings(r.consumes), ","))
	}
	if len(r.produces) > 0 {
		extra = append(extra, "produces "+strings.Join(mediaStrings(r.produces), ","))
	}
	if len(extra) > 0 {
		s += " [" + strings.Join(extra, "; ") + "]"
	}
	return s
}

var standardMethods = []string{
	http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
	http.MethodPatch, http.MethodDelete, http.MethodOptions,
}

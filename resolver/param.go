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
	"errors"
	"fmt"
	"reflect"

	"rivaas.dev/dispatch/chain"
	"rivaas.dev/dispatch/reqctx"
)

// Static errors for resolution.
var (
	// ErrNoResolver is returned at deployment time when no factory supports a
	// parameter or return type.
	ErrNoResolver = errors.New("resolver: no resolver supports")

	// ErrMissing is returned when a required value is absent.
	ErrMissing = errors.New("required value is missing")
)

// Source says where a parameter value comes from.
type Source uint8

const (
	// SourceNone leaves the choice to the resolver factories.
	SourceNone Source = iota
	// SourceRequest binds framework objects: context.Context and the reqctx types.
	SourceRequest
	SourcePath
	SourceQuery
	SourceHeader
	SourceCookie
	// SourceBody decodes the request entity.
	SourceBody
	// SourceBean binds a struct from path, query, header and cookie tags.
	SourceBean
)

var sourceNames = [...]string{"none", "request", "path", "query", "header", "cookie", "body", "bean"}

// String returns the source name.
func (s Source) String() string {
	if int(s) < len(sourceNames) {
		return sourceNames[s]
	}
	return fmt.Sprintf("source(%d)", s)
}

// Param describes one handler parameter. It is built once at deployment time
// and shared by every request.
type Param struct {
	Index      int
	Name       string
	Source     Source
	Type       reflect.Type
	Required   bool
	Default    string
	HasDefault bool
	// Attrs carries extension metadata such as validation rules.
	Attrs map[string]string
}

// String returns "source name type".
func (p *Param) String() string {
	name := p.Name
	if name == "" {
		name = fmt.Sprintf("#%d", p.Index)
	}
	return fmt.Sprintf("%s %s %s", p.Source, name, p.Type)
}

// Attr returns an attribute value.
func (p *Param) Attr(key string) (string, bool) {
	v, ok := p.Attrs[key]
	return v, ok
}

// Zero returns the zero value of the parameter type.
func (p *Param) Zero() any {
	return reflect.Zero(p.Type).Interface()
}

// ParamContext is the per-request input of a parameter chain.
type ParamContext struct {
	Request *reqctx.Context
	Param   *Param
}

// ParamResolver produces a parameter value. It is the terminal of a
// parameter chain.
type ParamResolver = chain.Terminal[*ParamContext, any]

// ParamResolverFunc adapts a function to [ParamResolver].
type ParamResolverFunc = chain.TerminalFunc[*ParamContext, any]

// ParamAdvice intercepts parameter resolution.
type ParamAdvice = chain.Advice[*ParamContext, any]

// ParamAdviceFunc adapts a function to [ParamAdvice].
type ParamAdviceFunc = chain.AdviceFunc[*ParamContext, any]

// ParamResolverFactory creates resolvers for the parameters it supports. The
// highest-precedence supporting factory wins; see [chain.Ordered].
type ParamResolverFactory interface {
	Supports(p *Param) bool
	Create(p *Param) (ParamResolver, error)
}

// ParamAdviceFactory creates advices for the parameters it supports. Every
// supporting factory contributes an advice, in precedence order.
type ParamAdviceFactory interface {
	Supports(p *Param) bool
	Create(p *Param) (ParamAdvice, error)
}

// ParamChain resolves one parameter.
type ParamChain = chain.Chain[*ParamContext, any]

// CompileParam builds the chain for p.
func CompileParam(p *Param, factories []ParamResolverFactory, adviceFactories []ParamAdviceFactory) (*ParamChain, error) {
	factory, ok := chain.First(factories, p)
	if !ok {
		return nil, fmt.Errorf("%w parameter %s", ErrNoResolver, p)
	}
	terminal, err := factory.Create(p)
	if err != nil {
		return nil, fmt.Errorf("create resolver for %s: %w", p, err)
	}

	var advices []ParamAdvice
	for _, af := range chain.All(adviceFactories, p) {
		advice, err := af.Create(p)
		if err != nil {
			return nil, fmt.Errorf("create advice for %s: %w", p, err)
		}
		if advice != nil {
			advices = append(advices, chain.OrderedAdvice(chain.OrderOf(af), advice))
		}
	}
	return chain.New(terminal, advices...), nil
}

// ParamError reports a parameter that could not be resolved.
type ParamError struct {
	Param *Param
	Value string
	Err   error
}

// Error returns the message.
func (e *ParamError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s parameter %q: %v", e.Param.Source, e.Param.Name, e.Err)
	}
	return fmt.Sprintf("%s parameter %q=%q: %v", e.Param.Source, e.Param.Name, e.Value, e.Err)
}

// Unwrap returns the cause.
func (e *ParamError) Unwrap() error {
	return e.Err
}

// HTTPStatus reports a client error.
func (e *ParamError) HTTPStatus() int {
	return 400
}

// Code distinguishes missing and malformed parameters.
func (e *ParamError) Code() string {
	if errors.Is(e.Err, ErrMissing) {
		return "missing_parameter"
	}
	return "invalid_parameter"
}

// Details names the parameter.
func (e *ParamError) Details() any {
	return map[string]any{
		"parameter": e.Param.Name,
		"source":    e.Param.Source.String(),
	}
}

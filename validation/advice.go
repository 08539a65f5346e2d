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

package validation

import (
	"bytes"
	"io"

	"rivaas.dev/dispatch/chain"
	"rivaas.dev/dispatch/mediatype"
	"rivaas.dev/dispatch/resolver"
)

// Parameter attributes read by the advices.
const (
	// AttrRules holds tag rules for a path, query, header or cookie value,
	// for example handler.Attr(validation.AttrRules, "min=1,max=100").
	AttrRules = "validate"

	// AttrSchema holds a JSON Schema document for a body parameter.
	AttrSchema = "schema"
)

// Advice orders. Schema checks run on the raw body before decoding, tag
// checks on the decoded value after it.
const (
	SchemaOrder = -100
	EntityOrder = 100
	ParamOrder  = 100
)

type entityAdvice struct {
	v *Validator
}

// EntityAdvice validates every decoded request body with v.
func EntityAdvice(v *Validator) resolver.RequestEntityAdviceFactory {
	return &entityAdvice{v: v}
}

func (a *entityAdvice) Order() int { return EntityOrder }

func (a *entityAdvice) Supports(*resolver.Param) bool { return true }

func (a *entityAdvice) Create(*resolver.Param) (resolver.RequestEntityAdvice, error) {
	return resolver.RequestEntityAdviceFunc(func(e *resolver.RequestEntity, next chain.Proceed[any]) (any, error) {
		val, err := next()
		if err != nil || e.Empty() {
			return val, err
		}
		if err := a.v.Validate(val); err != nil {
			return nil, err
		}
		return val, nil
	}), nil
}

type schemaAdvice struct {
	v *Validator
}

// SchemaAdvice checks the raw body of parameters carrying an [AttrSchema]
// attribute against that schema.
func SchemaAdvice(v *Validator) resolver.RequestEntityAdviceFactory {
	return &schemaAdvice{v: v}
}

func (a *schemaAdvice) Order() int { return SchemaOrder }

func (a *schemaAdvice) Supports(p *resolver.Param) bool {
	_, ok := p.Attr(AttrSchema)
	return ok
}

func (a *schemaAdvice) Create(p *resolver.Param) (resolver.RequestEntityAdvice, error) {
	schema, _ := p.Attr(AttrSchema)
	if _, err := a.v.schema("", schema); err != nil {
		return nil, err
	}
	return resolver.RequestEntityAdviceFunc(func(e *resolver.RequestEntity, next chain.Proceed[any]) (any, error) {
		if e.Empty() || !isJSON(e.MediaType) {
			return next()
		}
		raw, err := io.ReadAll(e.Body())
		if err != nil {
			return nil, err
		}
		if err := a.v.ValidateJSON("", schema, raw); err != nil {
			return nil, err
		}
		e.SetBody(bytes.NewReader(raw))
		return next()
	}), nil
}

func isJSON(mt mediatype.MediaType) bool {
	return mt.Subtype == "json" || mt.Suffix() == "json"
}

type paramAdvice struct {
	v *Validator
}

// ParamAdvice checks non-body parameters carrying an [AttrRules] attribute.
func ParamAdvice(v *Validator) resolver.ParamAdviceFactory {
	return &paramAdvice{v: v}
}

func (a *paramAdvice) Order() int { return ParamOrder }

func (a *paramAdvice) Supports(p *resolver.Param) bool {
	_, ok := p.Attr(AttrRules)
	return ok && p.Source != resolver.SourceBody
}

func (a *paramAdvice) Create(p *resolver.Param) (resolver.ParamAdvice, error) {
	rule, _ := p.Attr(AttrRules)
	if err := a.v.checkRule(rule, p.Type); err != nil {
		return nil, err
	}
	return resolver.ParamAdviceFunc(func(ctx *resolver.ParamContext, next chain.Proceed[any]) (any, error) {
		val, err := next()
		if err != nil {
			return nil, err
		}
		if err := a.v.Var(val, rule, p.Name); err != nil {
			return nil, err
		}
		return val, nil
	}), nil
}

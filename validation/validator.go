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
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Validator checks decoded request values with struct tags and JSON Schema.
// It is safe for concurrent use.
//
//	v := validation.MustNew(validation.WithMaxErrors(10))
//	err := v.Validate(&order)
type Validator struct {
	cfg     *config
	tags    *validator.Validate
	schemas sync.Map // schema id -> *jsonschema.Schema
	paths   sync.Map // reflect.Type -> *sync.Map of namespace -> JSON path
}

// New creates a validator.
func New(opts ...Option) (*Validator, error) {
	cfg := newConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	tags := validator.New(validator.WithRequiredStructEnabled())
	tags.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := jsonName(f)
		if name == "-" {
			return ""
		}
		return name
	})
	for _, t := range cfg.customTags {
		if err := tags.RegisterValidation(t.name, t.fn); err != nil {
			return nil, fmt.Errorf("validation: register tag %q: %w", t.name, err)
		}
	}
	return &Validator{cfg: cfg, tags: tags}, nil
}

// MustNew is like [New] but panics on error.
func MustNew(opts ...Option) *Validator {
	v, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("validation.MustNew: %v", err))
	}
	return v
}

// Validate checks val's struct tags, then its JSON Schema when val is a
// [SchemaProvider]. Nil and non-struct values without a schema pass.
func (v *Validator) Validate(val any) error {
	if val == nil {
		return nil
	}
	if err := v.validateTags(val); err != nil {
		return err
	}
	p, ok := val.(SchemaProvider)
	if !ok {
		return nil
	}
	id, schema := p.JSONSchema()
	raw, err := json.Marshal(val)
	if err != nil {
		return &Error{Fields: []FieldError{{Code: "marshal_error", Message: err.Error()}}}
	}
	return v.ValidateJSON(id, schema, raw)
}

// Var checks a single value against a tag rule such as "min=1,max=100".
// path names the value in the returned error.
func (v *Validator) Var(val any, rule, path string) (err error) {
	defer func() {
		// go-playground/validator panics on unknown tags.
		if r := recover(); r != nil {
			err = fmt.Errorf("%w %q: %v", ErrInvalidRule, rule, r)
		}
	}()
	err = v.tags.Var(val, rule)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("validation: %s: %w", path, err)
	}
	var result Error
	for _, e := range verrs {
		v.addTagError(&result, path, e)
	}
	return &result
}

// checkRule reports whether rule is usable for values of type t.
func (v *Validator) checkRule(rule string, t reflect.Type) error {
	err := v.Var(reflect.Zero(t).Interface(), rule, "")
	if errors.Is(err, ErrInvalidRule) {
		return err
	}
	return nil
}

func jsonName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if tag == "" {
		return f.Name
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return f.Name
	}
	return name
}

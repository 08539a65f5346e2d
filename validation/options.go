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
	"errors"

	"github.com/go-playground/validator/v10"
)

// Redactor reports whether the value at path must be hidden in error
// messages.
type Redactor func(path string) bool

// Option configures a [Validator].
type Option func(*config)

type customTag struct {
	name string
	fn   validator.Func
}

type config struct {
	maxErrors       int
	redactor        Redactor
	fieldNameMapper func(string) string
	customTags      []customTag
	messages        map[string]string
}

func newConfig() *config {
	return &config{messages: make(map[string]string)}
}

func (c *config) validate() error {
	if c.maxErrors < 0 {
		return errors.New("validation: maxErrors must not be negative")
	}
	for _, t := range c.customTags {
		if t.name == "" || t.fn == nil {
			return errors.New("validation: custom tag needs a name and a function")
		}
	}
	return nil
}

// WithMaxErrors stops collecting after n field errors. Zero means no limit.
func WithMaxErrors(n int) Option {
	return func(c *config) {
		c.maxErrors = n
	}
}

// WithRedactor hides values of matching paths.
func WithRedactor(r Redactor) Option {
	return func(c *config) {
		c.redactor = r
	}
}

// WithFieldNameMapper rewrites field paths in errors.
func WithFieldNameMapper(fn func(string) string) Option {
	return func(c *config) {
		c.fieldNameMapper = fn
	}
}

// WithCustomTag registers a validator tag.
func WithCustomTag(name string, fn validator.Func) Option {
	return func(c *config) {
		c.customTags = append(c.customTags, customTag{name: name, fn: fn})
	}
}

// WithMessage overrides the message for a tag.
func WithMessage(tag, message string) Option {
	return func(c *config) {
		c.messages[tag] = message
	}
}

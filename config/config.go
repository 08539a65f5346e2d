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

package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"dario.cat/mergo"
	"github.com/go-viper/mapstructure/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// TagName is the struct tag that maps configuration keys to fields.
const TagName = "config"

// Option adds a source or a check to a load.
type Option func(l *loader) error

type loader struct {
	sources    []Source
	schema     *jsonschema.Schema
	validators []func(map[string]any) error
	environ    func() []string
}

// WithFile loads a YAML, TOML or JSON file, chosen by extension. The path
// may reference environment variables as $VAR or ${VAR}.
func WithFile(path string) Option {
	return func(l *loader) error {
		path = os.ExpandEnv(path)
		format, err := detectFormat(path)
		if err != nil {
			return newError("file", "detect-format", err)
		}
		l.sources = append(l.sources, &fileSource{path: path, format: format})
		return nil
	}
}

// WithFileAs loads a file in the given format whatever its extension.
func WithFileAs(path string, format Format) Option {
	return func(l *loader) error {
		l.sources = append(l.sources, &fileSource{path: os.ExpandEnv(path), format: format})
		return nil
	}
}

// WithContent loads configuration held in memory.
func WithContent(data []byte, format Format) Option {
	return func(l *loader) error {
		l.sources = append(l.sources, &fileSource{data: data, format: format})
		return nil
	}
}

// WithEnv loads environment variables starting with prefix, as in
// APP_SERVER_ADDR for server.addr.
func WithEnv(prefix string) Option {
	return func(l *loader) error {
		l.sources = append(l.sources, &envSource{prefix: prefix, environ: func() []string { return l.environ() }})
		return nil
	}
}

// WithSource adds a custom source.
func WithSource(s Source) Option {
	return func(l *loader) error {
		if s == nil {
			return errors.New("config: source cannot be nil")
		}
		l.sources = append(l.sources, s)
		return nil
	}
}

// WithJSONSchema validates the merged configuration against schema before
// it is decoded.
func WithJSONSchema(schema []byte) Option {
	return func(l *loader) error {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schema))
		if err != nil {
			return newError("json-schema", "parse", err)
		}
		c := jsonschema.NewCompiler()
		if err = c.AddResource("config.json", doc); err != nil {
			return newError("json-schema", "compile", err)
		}
		if l.schema, err = c.Compile("config.json"); err != nil {
			return newError("json-schema", "compile", err)
		}
		return nil
	}
}

// WithValidator checks the merged configuration map.
func WithValidator(fn func(map[string]any) error) Option {
	return func(l *loader) error {
		if fn != nil {
			l.validators = append(l.validators, fn)
		}
		return nil
	}
}

// withEnviron replaces os.Environ, for tests.
func withEnviron(fn func() []string) Option {
	return func(l *loader) error {
		l.environ = fn
		return nil
	}
}

// Validator is implemented by targets that check themselves after
// decoding and defaulting.
type Validator interface {
	Validate() error
}

// Bind loads every source in order, later ones overriding earlier ones,
// and decodes the result into target, a pointer to a struct. Fields left
// empty take their `default:"..."` tag.
func Bind(ctx context.Context, target any, opts ...Option) error {
	if target == nil || reflect.TypeOf(target).Kind() != reflect.Pointer {
		return errors.New("config: target must be a non-nil pointer")
	}
	l := &loader{environ: os.Environ}
	var errs []error
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(l); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	values, err := l.load(ctx)
	if err != nil {
		return err
	}
	if l.schema != nil {
		if err = l.schema.Validate(values); err != nil {
			return newError("json-schema", "validate", err)
		}
	}
	for i, fn := range l.validators {
		if err = runValidator(fn, values); err != nil {
			return newError(fmt.Sprintf("validator[%d]", i), "validate", err)
		}
	}

	if err = decodeInto(values, target); err != nil {
		return newError("decode", "bind", err)
	}
	if err = applyDefaults(target); err != nil {
		return newError("defaults", "apply", err)
	}
	if v, ok := target.(Validator); ok {
		if err = v.Validate(); err != nil {
			return newError("settings", "validate", err)
		}
	}
	return nil
}

func (l *loader) load(ctx context.Context) (map[string]any, error) {
	merged := make(map[string]any)
	for i, src := range l.sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		values, err := src.Load(ctx)
		if err != nil {
			return nil, newError(fmt.Sprintf("source[%d]", i), "load", err)
		}
		if values == nil {
			continue
		}
		if err = mergo.Map(&merged, normalizeKeys(values), mergo.WithOverride); err != nil {
			return nil, newError(fmt.Sprintf("source[%d]", i), "merge", err)
		}
	}
	return merged, nil
}

func runValidator(fn func(map[string]any) error, values map[string]any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("validator panic: %v", r)
		}
	}()
	return fn(values)
}

func decodeInto(values map[string]any, target any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          TagName,
		WeaklyTypedInput: true,
		Result:           target,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return err
	}
	return dec.Decode(values)
}

// normalizeKeys lowercases keys so sources merge case-insensitively.
func normalizeKeys(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[strings.ToLower(k)] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return normalizeKeys(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeValue(e)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeKeys(e)
		}
		return out
	}
	return v
}

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
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// SchemaProvider is implemented by types that carry their own JSON Schema.
// id keys the compiled schema cache; an empty id uses a hash of schema.
type SchemaProvider interface {
	JSONSchema() (id, schema string)
}

// ValidateJSON checks a raw JSON document against schema.
func (v *Validator) ValidateJSON(id, schema string, raw []byte) error {
	compiled, err := v.schema(id, schema)
	if err != nil {
		return err
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return &Error{Fields: []FieldError{{Code: "schema.invalid_json", Message: err.Error()}}}
	}
	if err := compiled.Validate(doc); err != nil {
		verr, ok := err.(*jsonschema.ValidationError)
		if !ok {
			return &Error{Fields: []FieldError{{Code: "schema_validation_error", Message: err.Error()}}}
		}
		var result Error
		v.collectSchemaErrors(verr, &result)
		result.Sort()
		return &result
	}
	return nil
}

// schema returns the compiled schema for id, compiling it on first use.
func (v *Validator) schema(id, schema string) (*jsonschema.Schema, error) {
	if id == "" {
		sum := sha256.Sum256([]byte(schema))
		id = "mem://" + hex.EncodeToString(sum[:8]) + ".json"
	}
	if s, ok := v.schemas.Load(id); ok {
		return s.(*jsonschema.Schema), nil
	}
	compiled, err := compileSchema(id, schema)
	if err != nil {
		return nil, err
	}
	actual, _ := v.schemas.LoadOrStore(id, compiled)
	return actual.(*jsonschema.Schema), nil
}

// CompileSchema checks that schema compiles. Deployment code uses it to
// reject broken schemas before serving.
func CompileSchema(schema string) error {
	_, err := compileSchema("mem://check.json", schema)
	return err
}

func compileSchema(id, schema string) (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(schema))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSchema, err)
	}
	c := jsonschema.NewCompiler()
	c.AssertFormat()
	if err := c.AddResource(id, doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSchema, err)
	}
	compiled, err := c.Compile(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSchema, err)
	}
	return compiled, nil
}

// collectSchemaErrors flattens the leaves of the error tree.
func (v *Validator) collectSchemaErrors(verr *jsonschema.ValidationError, result *Error) {
	if v.cfg.maxErrors > 0 && len(result.Fields) >= v.cfg.maxErrors {
		result.Truncated = true
		return
	}
	if len(verr.Causes) == 0 {
		path := strings.Join(verr.InstanceLocation, ".")
		if v.cfg.fieldNameMapper != nil && path != "" {
			path = v.cfg.fieldNameMapper(path)
		}
		msg := "invalid value"
		if verr.ErrorKind != nil {
			msg = verr.ErrorKind.LocalizedString(printer)
		}
		result.Add(path, "schema."+schemaKeyword(verr), msg, map[string]any{
			"schema_url": verr.SchemaURL,
		})
		return
	}
	for _, cause := range verr.Causes {
		v.collectSchemaErrors(cause, result)
	}
}

// schemaKeyword returns the failing keyword, such as "required" or
// "minimum".
func schemaKeyword(verr *jsonschema.ValidationError) string {
	if verr.ErrorKind == nil {
		return "invalid"
	}
	path := verr.ErrorKind.KeywordPath()
	if len(path) == 0 {
		return "invalid"
	}
	return path[0]
}

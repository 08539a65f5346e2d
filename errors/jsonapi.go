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

package errors

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// JSONAPI formats errors as JSON:API error documents with Content-Type
// application/vnd.api+json. See https://jsonapi.org/format/#errors.
type JSONAPI struct {
	// StatusResolver determines the status. If nil, [StatusOf] is used.
	StatusResolver func(err error) int
}

type jsonAPIError struct {
	ID     string         `json:"id,omitempty"`
	Status string         `json:"status,omitempty"`
	Code   string         `json:"code,omitempty"`
	Title  string         `json:"title,omitempty"`
	Detail string         `json:"detail,omitempty"`
	Source *jsonAPISource `json:"source,omitempty"`
	Meta   map[string]any `json:"meta,omitempty"`
}

type jsonAPISource struct {
	Pointer   string `json:"pointer,omitempty"`
	Parameter string `json:"parameter,omitempty"`
	Header    string `json:"header,omitempty"`
}

type jsonAPIDocument struct {
	Errors []jsonAPIError `json:"errors"`
}

// Format renders err as a JSON:API document. Details that are a list of
// field errors (objects with path, code and message) become one error
// object each, with a JSON pointer source.
func (f *JSONAPI) Format(_ string, err error) Response {
	status := resolveStatus(f.StatusResolver, err)
	base := jsonAPIError{
		Status: strconv.Itoa(status),
		Title:  http.StatusText(status),
		Detail: err.Error(),
	}
	var coded ErrorCode
	if errors.As(err, &coded) {
		base.Code = coded.Code()
	}

	var apiErrors []jsonAPIError
	var detailed ErrorDetails
	if errors.As(err, &detailed) {
		details := detailed.Details()
		apiErrors = fieldErrors(base, details)
		if len(apiErrors) == 0 {
			e := base
			e.ID = uuid.NewString()
			e.Meta = map[string]any{"details": details}
			apiErrors = []jsonAPIError{e}
		}
	} else {
		e := base
		e.ID = uuid.NewString()
		apiErrors = []jsonAPIError{e}
	}

	return Response{
		Status:      status,
		ContentType: "application/vnd.api+json; charset=utf-8",
		Body:        jsonAPIDocument{Errors: apiErrors},
		Headers:     headersOf(err),
	}
}

// fieldErrors converts details into one error object per field. Details are
// normalized through JSON so any struct with path/code/message fields works.
func fieldErrors(base jsonAPIError, details any) []jsonAPIError {
	raw, err := json.Marshal(details)
	if err != nil {
		return nil
	}
	var fields []map[string]any
	if json.Unmarshal(raw, &fields) != nil {
		return nil
	}

	out := make([]jsonAPIError, 0, len(fields))
	for _, field := range fields {
		e := base
		e.ID = uuid.NewString()
		if path, ok := field["path"].(string); ok && path != "" {
			e.Source = &jsonAPISource{Pointer: pathToPointer(path)}
		}
		if code, ok := field["code"].(string); ok && code != "" {
			e.Code = code
		}
		if message, ok := field["message"].(string); ok && message != "" {
			e.Detail = message
		}
		if meta, ok := field["meta"].(map[string]any); ok && len(meta) > 0 {
			e.Meta = meta
		}
		out = append(out, e)
	}
	return out
}

// pathToPointer converts "items.0.price" to "/data/attributes/items/0/price".
func pathToPointer(path string) string {
	return "/data/attributes/" + strings.ReplaceAll(path, ".", "/")
}

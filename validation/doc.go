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

// Package validation checks request values before they reach a handler.
//
// A [Validator] runs go-playground/validator struct tags and, for types
// implementing [SchemaProvider], a JSON Schema compiled with
// santhosh-tekuri/jsonschema. Failures are reported as an [*Error] holding
// one [FieldError] per field, with JSON paths such as "items.2.price".
//
// The package plugs into a dispatcher through resolver advices:
//
//	v := validation.MustNew(validation.WithMaxErrors(20))
//	d := dispatch.MustNew(
//		dispatch.WithEntityAdvice(validation.EntityAdvice(v), validation.SchemaAdvice(v)),
//		dispatch.WithParamAdvice(validation.ParamAdvice(v)),
//		dispatch.WithExceptionHandlers(validation.ExceptionHandler()),
//	)
//
// [EntityAdvice] validates decoded bodies. [SchemaAdvice] checks raw JSON
// bodies of parameters declaring a schema attribute. [ParamAdvice] checks
// path, query, header and cookie values declaring rules:
//
//	handler.Query("limit", handler.Attr(validation.AttrRules, "min=1,max=100"))
//
// [ExceptionHandler] turns validation failures into 400 problem documents:
//
//	{
//	  "type": "validation_error",
//	  "title": "Bad Request",
//	  "status": 400,
//	  "detail": "request validation failed",
//	  "errors": [{"path": "email", "code": "tag.email", "message": "must be a valid email address"}]
//	}
//
// Every error matches [ErrValidation] with errors.Is.
package validation

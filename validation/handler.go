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
	"net/http"

	derrors "rivaas.dev/dispatch/errors"
	"rivaas.dev/dispatch/exception"
)

// HandlerOrder places [ExceptionHandler] after application handlers.
const HandlerOrder = 100

type exceptionHandler struct{}

// ExceptionHandler rewrites validation failures into a 400 problem
// document listing every failed field. Other errors pass through unchanged.
//
// The rest of the chain answers first. Only problem documents are
// rewritten, so the error_id assigned by the formatter is kept.
func ExceptionHandler() exception.Handler {
	return exceptionHandler{}
}

func (exceptionHandler) Order() int { return HandlerOrder }

func (exceptionHandler) Around(ctx *exception.Context, next exception.Next) (*derrors.Response, error) {
	resp, err := next()
	if err != nil || resp == nil {
		return resp, err
	}
	var verr *Error
	if !errors.As(ctx.Err, &verr) {
		return resp, nil
	}
	problem, ok := resp.Body.(derrors.ProblemDetail)
	if !ok {
		return resp, nil
	}

	problem.Status = http.StatusBadRequest
	problem.Title = http.StatusText(http.StatusBadRequest)
	problem.Detail = "request validation failed"
	if problem.Extensions == nil {
		problem.Extensions = make(map[string]any)
	}
	problem.Extensions["code"] = verr.Code()
	problem.Extensions["errors"] = verr.Fields
	if verr.Truncated {
		problem.Extensions["truncated"] = true
	}

	out := *resp
	out.Status = http.StatusBadRequest
	out.Body = problem
	return &out, nil
}

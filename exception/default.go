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

package exception

import (
	"bytes"
	"log/slog"
	"net/http"
	"strconv"

	"rivaas.dev/dispatch/chain"
	"rivaas.dev/dispatch/codec"
	derrors "rivaas.dev/dispatch/errors"
	"rivaas.dev/dispatch/reqctx"
)

// defaultHandler terminates every exception chain.
type defaultHandler struct {
	formatter derrors.Formatter
	logger    *slog.Logger
}

// Default returns the terminal handler used by [New], for callers that
// compose their own chain.
func Default(formatter derrors.Formatter, logger *slog.Logger) chain.Terminal[*Context, *derrors.Response] {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &defaultHandler{formatter: formatter, logger: logger}
}

// Resolve formats the error. Server errors are logged with their cause and
// answered without it.
func (h *defaultHandler) Resolve(ctx *Context) (*derrors.Response, error) {
	err := ctx.Err
	instance := ""
	if ctx.Request != nil {
		instance = ctx.Request.Request().Path
	}

	status := derrors.StatusOf(err)
	if status >= http.StatusInternalServerError {
		attrs := []any{"error", err, "status", status}
		if ctx.Request != nil {
			req := ctx.Request.Request()
			attrs = append(attrs, "method", req.Method, "path", req.Path)
		}
		h.logger.Error("request failed", attrs...)
		err = public(err, status)
	}

	resp := h.formatter.Format(instance, err)
	return &resp, nil
}

// public strips the cause from internal failures so it does not reach the
// client.
func public(err error, status int) error {
	switch kind := derrors.KindOf(err); kind {
	case derrors.KindInternal, derrors.KindHandler, derrors.KindUnknown:
		if status != http.StatusInternalServerError {
			return err
		}
		return &derrors.Error{Kind: kind}
	}
	return err
}

// Write sends resp through rc's response. String and byte bodies are
// written as is, anything else is encoded as JSON.
func Write(rc *reqctx.Context, resp *derrors.Response) error {
	out := rc.Response()
	if out.Committed() {
		return reqctx.ErrCommitted
	}

	for k, vs := range resp.Headers {
		for _, v := range vs {
			out.Header().Add(k, v)
		}
	}

	var body bytes.Buffer
	switch b := resp.Body.(type) {
	case nil:
	case string:
		body.WriteString(b)
	case []byte:
		body.Write(b)
	default:
		if err := codec.JSON().Encode(&body, b); err != nil {
			return err
		}
	}

	if body.Len() > 0 {
		ct := resp.ContentType
		if ct == "" {
			ct = "application/json"
		}
		out.Header().Set("Content-Type", ct)
		out.Header().Set("Content-Length", strconv.Itoa(body.Len()))
	}
	status := resp.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	out.SetStatus(status)
	out.Commit()
	if body.Len() == 0 {
		return nil
	}
	_, err := out.Write(body.Bytes())
	return err
}

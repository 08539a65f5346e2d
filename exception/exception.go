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
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"rivaas.dev/dispatch/chain"
	derrors "rivaas.dev/dispatch/errors"
	"rivaas.dev/dispatch/reqctx"
)

// Context is the input of the exception chain.
type Context struct {
	Request *reqctx.Context
	Err     error
}

// Handler is one link of the exception chain. It returns a response, or
// calls next to let a lower-precedence handler try. A nil response with a
// nil error means the handler wrote the response itself.
type Handler = chain.Advice[*Context, *derrors.Response]

// Func adapts a function to [Handler].
type Func = chain.AdviceFunc[*Context, *derrors.Response]

// Next is the continuation handed to a [Handler].
type Next = chain.Proceed[*derrors.Response]

type typedHandler[E error] struct {
	order int
	fn    func(rc *reqctx.Context, err E) (*derrors.Response, error)
}

// For returns a handler for errors matching E anywhere in the chain, as
// found by errors.As. Other errors are passed on.
func For[E error](fn func(rc *reqctx.Context, err E) (*derrors.Response, error)) Handler {
	return &typedHandler[E]{fn: fn}
}

// ForOrdered is like [For] with an explicit precedence.
func ForOrdered[E error](order int, fn func(rc *reqctx.Context, err E) (*derrors.Response, error)) Handler {
	return &typedHandler[E]{order: order, fn: fn}
}

func (h *typedHandler[E]) Order() int { return h.order }

func (h *typedHandler[E]) Around(ctx *Context, next Next) (*derrors.Response, error) {
	var target E
	if !errors.As(ctx.Err, &target) {
		return next()
	}
	return h.fn(ctx.Request, target)
}

// Is returns a handler for errors matching target with errors.Is.
func Is(target error, fn func(rc *reqctx.Context, err error) (*derrors.Response, error)) Handler {
	return Func(func(ctx *Context, next Next) (*derrors.Response, error) {
		if !errors.Is(ctx.Err, target) {
			return next()
		}
		return fn(ctx.Request, ctx.Err)
	})
}

// Option configures a [Chain].
type Option func(*Chain)

// WithHandlers adds handlers. They run in precedence order.
func WithHandlers(handlers ...Handler) Option {
	return func(c *Chain) {
		c.handlers = append(c.handlers, handlers...)
	}
}

// WithFormatter sets the formatter of the terminal handler. The default is
// RFC 9457 problem details.
func WithFormatter(f derrors.Formatter) Option {
	return func(c *Chain) {
		c.formatter = f
	}
}

// WithLogger sets the logger of the terminal handler.
func WithLogger(l *slog.Logger) Option {
	return func(c *Chain) {
		c.logger = l
	}
}

// Chain is a compiled exception chain. It is safe for concurrent use.
type Chain struct {
	handlers  []Handler
	formatter derrors.Formatter
	logger    *slog.Logger
	terminal  *defaultHandler
	chain     *chain.Chain[*Context, *derrors.Response]
}

// New builds a chain.
func New(opts ...Option) *Chain {
	c := &Chain{}
	for _, opt := range opts {
		opt(c)
	}
	if c.formatter == nil {
		c.formatter = derrors.NewRFC9457("")
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	c.terminal = &defaultHandler{formatter: c.formatter, logger: c.logger}
	c.chain = chain.New[*Context, *derrors.Response](c.terminal, c.handlers...)
	return c
}

// Formatter returns the terminal handler's formatter.
func (c *Chain) Formatter() derrors.Formatter {
	return c.formatter
}

// Handle runs the chain for err. It always returns a response unless a
// handler committed one itself, in which case it returns nil. A handler
// that returns nothing without committing falls back to the terminal
// handler. A failing or
// panicking handler is reported as an internal error by the terminal
// handler.
func (c *Chain) Handle(rc *reqctx.Context, err error) (resp *derrors.Response) {
	if err == nil {
		err = derrors.Internal("exception chain", errors.New("nil error"))
	}
	ctx := &Context{Request: rc, Err: err}

	defer func() {
		if r := recover(); r != nil {
			resp = c.fallback(rc, derrors.Internal("exception handler", fmt.Errorf("panic: %v", r)))
		}
	}()

	resp, herr := c.chain.Invoke(ctx)
	if herr != nil {
		c.logger.Warn("exception handler failed",
			"error", herr,
			"cause", err,
		)
		return c.fallback(rc, derrors.Internal("exception handler", errors.Join(herr, err)))
	}
	if resp == nil && !rc.Response().Committed() {
		c.logger.Debug("exception handler answered nothing", "cause", err)
		return c.fallback(rc, err)
	}
	return resp
}

// fallback formats with the terminal handler, and if even that panics
// returns a bare 500.
func (c *Chain) fallback(rc *reqctx.Context, err error) (resp *derrors.Response) {
	defer func() {
		if r := recover(); r != nil {
			resp = &derrors.Response{
				Status:      http.StatusInternalServerError,
				ContentType: "text/plain; charset=utf-8",
				Body:        http.StatusText(http.StatusInternalServerError),
			}
		}
	}()
	resp, _ = c.terminal.Resolve(&Context{Request: rc, Err: err})
	return resp
}

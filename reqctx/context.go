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

package reqctx

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrEnded is the cancellation cause of a context whose dispatch finished.
var ErrEnded = errors.New("request ended")

// Option configures a [Context].
type Option func(*Context)

// WithDeployment attaches the process-wide deployment.
func WithDeployment(d *Deployment) Option {
	return func(c *Context) { c.deployment = d }
}

// WithConn attaches the connection the request arrived on.
func WithConn(conn *Conn) Option {
	return func(c *Context) { c.conn = conn }
}

// Context carries one request through dispatch.
type Context struct {
	ctx    context.Context
	cancel context.CancelCauseFunc

	req  *Request
	resp *Response

	attrs      Attributes
	deployment *Deployment
	conn       *Conn

	hooks   []func(error)
	endOnce sync.Once
	start   time.Time
}

// New creates a request context. The parent is usually the transport's
// per-request context, so closing the connection cancels it.
func New(parent context.Context, req *Request, w Writer, opts ...Option) *Context {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancelCause(parent)
	c := &Context{
		ctx:    ctx,
		cancel: cancel,
		req:    req,
		resp:   NewResponse(w),
		start:  time.Now(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.deployment == nil {
		c.deployment = emptyDeployment
	}
	return c
}

// Context returns the request's [context.Context].
func (c *Context) Context() context.Context {
	return c.ctx
}

// SetContext replaces the request's context. The new context should derive
// from the current one so cancellation still propagates.
func (c *Context) SetContext(ctx context.Context) {
	if ctx != nil {
		c.ctx = ctx
	}
}

// Request returns the inbound request.
func (c *Context) Request() *Request {
	return c.req
}

// Response returns the outbound response.
func (c *Context) Response() *Response {
	return c.resp
}

// Attributes returns the request's attribute bag.
func (c *Context) Attributes() *Attributes {
	return &c.attrs
}

// Deployment returns the read-only deployment.
func (c *Context) Deployment() *Deployment {
	return c.deployment
}

// Conn returns the connection, or nil when the transport has none.
func (c *Context) Conn() *Conn {
	return c.conn
}

// Started returns the time the context was created.
func (c *Context) Started() time.Time {
	return c.start
}

// Cancel cancels outstanding work for this request with the given cause.
func (c *Context) Cancel(cause error) {
	c.cancel(cause)
}

// Err returns the cancellation cause, or nil while the request is live.
func (c *Context) Err() error {
	if c.ctx.Err() == nil {
		return nil
	}
	return context.Cause(c.ctx)
}

// OnEnd registers a hook that runs when the dispatch completes. Hooks run in
// reverse registration order and receive the error the dispatch ended with.
func (c *Context) OnEnd(fn func(err error)) {
	if fn != nil {
		c.hooks = append(c.hooks, fn)
	}
}

// End runs the end hooks once and releases the context. Panics raised by
// hooks are recovered so every hook gets to run.
func (c *Context) End(err error) {
	c.endOnce.Do(func() {
		for i := len(c.hooks) - 1; i >= 0; i-- {
			runHook(c.hooks[i], err)
		}
		c.hooks = nil
		c.cancel(ErrEnded)
	})
}

func runHook(fn func(error), err error) {
	defer func() { _ = recover() }()
	fn(err)
}

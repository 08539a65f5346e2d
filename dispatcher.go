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

package dispatch

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"rivaas.dev/dispatch/codec"
	derrors "rivaas.dev/dispatch/errors"
	"rivaas.dev/dispatch/exception"
	"rivaas.dev/dispatch/handler"
	"rivaas.dev/dispatch/reqctx"
	"rivaas.dev/dispatch/resolver"
	"rivaas.dev/dispatch/router"
	"rivaas.dev/dispatch/scheduler"
)

// Static errors for the dispatcher.
var (
	// ErrUnknownScheduler is returned when a route names a scheduler that was
	// not registered.
	ErrUnknownScheduler = errors.New("dispatch: unknown scheduler")

	// ErrShuttingDown is returned for work refused after Shutdown started.
	ErrShuttingDown = errors.New("dispatch: shutting down")
)

// Dispatcher routes requests to handlers. Routes may be added and removed
// while requests are served.
type Dispatcher struct {
	logger     *slog.Logger
	registry   *router.Registry
	schedulers *scheduler.Registry
	resolvers  *resolvers
	exceptions *exception.Chain
	formatter  derrors.Formatter
	observers  []Observer
	connInit   []ConnInitHandler
	deployment *reqctx.Deployment

	plans sync.Map // *router.Route -> *plan
	drain drain
	conns connSet
}

// New creates a dispatcher.
func New(opts ...Option) (*Dispatcher, error) {
	c := defaultConfig()
	for _, opt := range opts {
		opt(c)
	}
	if c.codecs == nil {
		c.codecs = codec.Defaults()
	}
	if c.formatter == nil {
		c.formatter = derrors.NewRFC9457("")
	}

	schedulers, err := scheduler.NewRegistry(c.schedulers...)
	if err != nil {
		return nil, err
	}

	var regOpts []router.RegistryOption
	if c.diagnostics != nil {
		regOpts = append(regOpts, router.WithDiagnostics(c.diagnostics))
	}

	d := &Dispatcher{
		logger:     c.logger,
		registry:   router.NewRegistry(regOpts...),
		schedulers: schedulers,
		resolvers:  newResolvers(c),
		exceptions: exception.New(
			exception.WithHandlers(c.exceptionHandlers...),
			exception.WithFormatter(c.formatter),
			exception.WithLogger(c.logger),
		),
		formatter:  c.formatter,
		observers:  c.observers,
		connInit:   c.connInit,
		deployment: reqctx.NewDeployment(c.deploymentName, c.deployment),
	}
	d.drain.init()
	return d, nil
}

// MustNew is like [New] but panics on error.
func MustNew(opts ...Option) *Dispatcher {
	d, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return d
}

// Handle compiles r and adds it to the registry. Compilation selects every
// parameter's resolver chain and the response chain, so a route whose
// arguments cannot be resolved is rejected here rather than per request.
func (d *Dispatcher) Handle(r *router.Route) error {
	p, err := d.resolvers.compile(r, d.schedulers)
	if err != nil {
		return err
	}
	// A route handled twice keeps its live plan when the second Add fails.
	_, live := d.plans.LoadOrStore(r, p)
	if err := d.registry.Add(r); err != nil {
		if !live {
			d.plans.Delete(r)
		}
		return err
	}
	d.logger.Debug("route registered",
		"route", r.String(),
		"handler", r.Handler().Name(),
		"scheduler", p.scheduler.Name(),
	)
	return nil
}

// Register builds a route for method and path and handles it.
func (d *Dispatcher) Register(method, path string, h *handler.Method, opts ...router.Option) (*router.Route, error) {
	if method != "" {
		opts = append([]router.Option{router.WithMethods(method)}, opts...)
	}
	r, err := router.NewRoute(path, h, opts...)
	if err != nil {
		return nil, err
	}
	if err := d.Handle(r); err != nil {
		return nil, err
	}
	return r, nil
}

// GET registers a GET route.
func (d *Dispatcher) GET(path string, h *handler.Method, opts ...router.Option) (*router.Route, error) {
	return d.Register(http.MethodGet, path, h, opts...)
}

// POST registers a POST route.
func (d *Dispatcher) POST(path string, h *handler.Method, opts ...router.Option) (*router.Route, error) {
	return d.Register(http.MethodPost, path, h, opts...)
}

// PUT registers a PUT route.
func (d *Dispatcher) PUT(path string, h *handler.Method, opts ...router.Option) (*router.Route, error) {
	return d.Register(http.MethodPut, path, h, opts...)
}

// PATCH registers a PATCH route.
func (d *Dispatcher) PATCH(path string, h *handler.Method, opts ...router.Option) (*router.Route, error) {
	return d.Register(http.MethodPatch, path, h, opts...)
}

// DELETE registers a DELETE route.
func (d *Dispatcher) DELETE(path string, h *handler.Method, opts ...router.Option) (*router.Route, error) {
	return d.Register(http.MethodDelete, path, h, opts...)
}

// Remove unregisters the route with r's identity, which need not be the
// same value that was handled. It reports whether a route was removed.
func (d *Dispatcher) Remove(r *router.Route) bool {
	removed, ok := d.registry.Remove(r)
	if !ok {
		return false
	}
	d.plans.Delete(removed)
	d.logger.Debug("route removed", "route", removed.String())
	return true
}

// planCount returns the number of compiled plans.
func (d *Dispatcher) planCount() int {
	n := 0
	d.plans.Range(func(any, any) bool {
		n++
		return true
	})
	return n
}

// Routes returns the registered routes in registration order.
func (d *Dispatcher) Routes() []*router.Route {
	return d.registry.Routes()
}

// Registry returns the route registry.
func (d *Dispatcher) Registry() *router.Registry {
	return d.registry
}

// Deployment returns the deployment context shared by all requests.
func (d *Dispatcher) Deployment() *reqctx.Deployment {
	return d.deployment
}

// Dispatch processes rc and returns once its response is complete.
func (d *Dispatcher) Dispatch(rc *reqctx.Context) {
	<-d.Process(rc)
}

// Process starts processing rc and returns a channel closed once the
// response is complete. Work after matching runs on the route's scheduler.
// Failures never escape: every path ends with a response or, when the
// client is gone, with the end hooks.
func (d *Dispatcher) Process(rc *reqctx.Context) <-chan struct{} {
	done := make(chan struct{})
	f := &flow{d: d, rc: rc, done: done}

	f.counted = d.drain.begin()
	if !f.counted {
		f.start()
		f.fail(derrors.Unavailable("server is shutting down"), false)
		f.finish()
		return done
	}

	f.start()
	p, ok := f.match()
	if !ok {
		f.finish()
		return done
	}

	if p.scheduler.Name() == scheduler.InlineName {
		f.run(p)
		return done
	}
	if err := p.scheduler.Submit(rc.Context(), func() { f.run(p) }); err != nil {
		d.logger.Warn("scheduler handoff failed",
			"scheduler", p.scheduler.Name(),
			"route", p.route.String(),
			"error", err,
		)
		f.fail(derrors.Wrap(derrors.KindUnavailable, "schedule "+p.scheduler.Name(), err), true)
		f.finish()
	}
	return done
}

// flow is one request's pass through the state machine. It is owned by one
// goroutine at a time.
type flow struct {
	d     *Dispatcher
	rc    *reqctx.Context
	done  chan struct{}
	route *router.Route
	state State
	err   error

	// counted is true when the request is tracked for shutdown draining.
	counted bool
}

func (f *flow) start() {
	reqctx.Set(f.rc.Attributes(), StateKey, StateReceived)
	f.notify(func(o Observer) { o.OnStart(f.rc) })
}

// notify calls every observer, recovering their panics.
func (f *flow) notify(call func(o Observer)) {
	for _, o := range f.d.observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					f.d.logger.Error("dispatch observer panicked", "panic", r)
				}
			}()
			call(o)
		}()
	}
}

func (f *flow) enter(next State) {
	if !f.state.canEnter(next) {
		panic(fmt.Sprintf("dispatch: invalid transition %s -> %s", f.state, next))
	}
	prev := f.state
	f.state = next
	reqctx.Set(f.rc.Attributes(), StateKey, next)
	f.notify(func(o Observer) { o.OnTransition(f.rc, f.route, prev, next) })
}

// match finds the route and answers matching failures directly, without
// the exception chain.
func (f *flow) match() (*plan, bool) {
	req := f.rc.Request()
	res := f.d.registry.Match(req)
	if !res.Matched() {
		f.fail(res.Failure, false)
		return nil, false
	}
	v, ok := f.d.plans.Load(res.Route)
	if !ok {
		// Removed between match and lookup.
		f.fail(derrors.NoRouteMatch(req.Method, req.Path), false)
		return nil, false
	}

	f.route = res.Route
	req.SetPathVars(res.PathVars)
	reqctx.Set(f.rc.Attributes(), RouteKey, res.Route)
	f.enter(StateMatched)
	return v.(*plan), true
}

// run executes everything after matching on the scheduler's goroutine.
func (f *flow) run(p *plan) {
	defer f.finish()

	passed, err := f.execute(p)
	if err != nil {
		f.fail(err, true)
	}
	for i := passed - 1; i >= 0; i-- {
		f.afterCompletion(p, p.interceptors[i])
	}
}

// execute drives the states from MATCHED to RESOLVING_RETURN. It returns how
// many interceptors accepted the request, and the failure if any.
func (f *flow) execute(p *plan) (passed int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = derrors.Internal("dispatch "+f.state.String(), fmt.Errorf("panic: %v", r))
		}
	}()

	for _, ic := range p.interceptors {
		ok, err := ic.PreHandle(f.rc, p.method)
		if err != nil {
			return passed, derrors.Wrap(derrors.KindHandler, "interceptor", err)
		}
		if !ok {
			return passed, nil
		}
		passed++
	}

	f.enter(StateResolvingArgs)
	args := make([]any, len(p.params))
	for i, c := range p.params {
		param := p.method.Params()[i]
		v, err := c.Invoke(&resolver.ParamContext{Request: f.rc, Param: param})
		if err != nil {
			return passed, derrors.Wrap(derrors.KindResolution, "resolve "+param.String(), err)
		}
		args[i] = v
	}
	if err := f.rc.Err(); err != nil {
		return passed, err
	}

	f.enter(StateInvoking)
	result, err := p.method.Call(args)
	if err == nil && p.method.Async() {
		result, err = f.await(result)
	}
	if err != nil {
		return passed, f.handlerFailure(err)
	}

	for i := passed - 1; i >= 0; i-- {
		if err := p.interceptors[i].PostHandle(f.rc, p.method, result); err != nil {
			return passed, derrors.Wrap(derrors.KindHandler, "interceptor", err)
		}
	}

	f.enter(StateResolvingReturn)
	return passed, f.respond(p, result)
}

// await waits for a future result without holding up other requests.
func (f *flow) await(result any) (any, error) {
	future, ok := result.(handler.Future)
	if !ok || future == nil {
		return nil, nil
	}
	return handler.Await(f.rc.Context(), future)
}

// handlerFailure classifies an error raised by the handler. Cancellation by
// the client stays a plain context error.
func (f *flow) handlerFailure(err error) error {
	if cause := f.rc.Err(); cause != nil && errors.Is(err, cause) {
		return err
	}
	var e *derrors.Error
	if errors.As(err, &e) {
		return err
	}
	return derrors.Handler(err)
}

// respond writes the handler's result through the response chain.
func (f *flow) respond(p *plan, result any) error {
	resp := f.rc.Response()
	if result == nil || p.response == nil {
		if !resp.Committed() {
			if !p.method.HasValue() && resp.Status() == http.StatusOK {
				resp.SetStatus(http.StatusNoContent)
			}
			resp.Commit()
		}
		return nil
	}
	_, err := p.response.Invoke(&resolver.ResponseEntity{
		Request: f.rc,
		Return:  p.ret,
		Value:   result,
		Channel: resolver.NewChannel(resp),
	})
	if err != nil {
		return derrors.Wrap(derrors.KindResolution, "write response", err)
	}
	return nil
}

func (f *flow) afterCompletion(p *plan, ic handler.Interceptor) {
	defer func() {
		if r := recover(); r != nil {
			f.d.logger.Error("interceptor panicked after completion",
				"route", p.route.String(),
				"panic", r,
			)
		}
	}()
	ic.AfterCompletion(f.rc, p.method, f.err)
}

// fail records err and answers it. Matching failures and refusals bypass
// the exception chain; everything else goes through it.
func (f *flow) fail(err error, chained bool) {
	f.err = err
	if f.state < StateException {
		f.enter(StateException)
	}

	if cause := f.rc.Err(); cause != nil {
		f.d.logger.Debug("request cancelled", "cause", cause, "error", err)
		return
	}

	var resp *derrors.Response
	if chained {
		f.d.logger.Debug("exception chain entered",
			"state", f.state.String(),
			"error", err,
		)
		resp = f.d.exceptions.Handle(f.rc, err)
	} else {
		r := f.d.formatter.Format(f.rc.Request().Path, err)
		resp = &r
	}
	if resp == nil {
		return
	}
	if werr := exception.Write(f.rc, resp); werr != nil {
		f.d.logger.Warn("failure response not written",
			"status", resp.Status,
			"error", err,
			"write_error", werr,
		)
	}
}

// finish completes the state machine and releases the request.
func (f *flow) finish() {
	if f.state != StateComplete {
		f.enter(StateComplete)
	}
	f.notify(func(o Observer) { o.OnEnd(f.rc, f.route, f.err) })
	f.rc.End(f.err)
	if f.counted {
		f.d.drain.end()
	}
	close(f.done)
}

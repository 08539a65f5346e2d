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
	"log/slog"

	"rivaas.dev/dispatch/binding"
	"rivaas.dev/dispatch/codec"
	derrors "rivaas.dev/dispatch/errors"
	"rivaas.dev/dispatch/exception"
	"rivaas.dev/dispatch/handler"
	"rivaas.dev/dispatch/reqctx"
	"rivaas.dev/dispatch/resolver"
	"rivaas.dev/dispatch/router"
	"rivaas.dev/dispatch/scheduler"
)

// Option configures a [Dispatcher].
type Option func(*config)

// ConnInitHandler decides whether a new connection is accepted. A non-nil
// error rejects it.
type ConnInitHandler func(conn *reqctx.Conn) error

type config struct {
	logger     *slog.Logger
	schedulers []scheduler.Scheduler
	codecs     []codec.Codec
	bindOpts   []binding.Option

	paramFactories  []resolver.ParamResolverFactory
	paramAdvices    []resolver.ParamAdviceFactory
	entityReaders   []resolver.RequestEntityResolver
	entityAdvices   []resolver.RequestEntityAdviceFactory
	responseWriters []resolver.ResponseEntityResolver
	responseAdvices []resolver.ResponseEntityAdviceFactory
	interceptors    []handler.Interceptor

	exceptionHandlers []exception.Handler
	formatter         derrors.Formatter
	observers         []Observer
	diagnostics       router.DiagnosticHandler
	connInit          []ConnInitHandler

	deploymentName string
	deployment     map[string]any
}

func defaultConfig() *config {
	return &config{
		logger:     slog.New(slog.DiscardHandler),
		deployment: make(map[string]any),
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithSchedulers registers named schedulers that routes may select with
// router.WithScheduler. The inline scheduler is always present.
func WithSchedulers(s ...scheduler.Scheduler) Option {
	return func(c *config) {
		c.schedulers = append(c.schedulers, s...)
	}
}

// WithCodecs replaces the default codecs used for request and response
// entities.
func WithCodecs(codecs ...codec.Codec) Option {
	return func(c *config) {
		c.codecs = codecs
	}
}

// WithBindingOptions configures conversion of path, query, header and
// cookie values.
func WithBindingOptions(opts ...binding.Option) Option {
	return func(c *config) {
		c.bindOpts = append(c.bindOpts, opts...)
	}
}

// WithParamFactories adds parameter resolver factories. They compete with
// the built-in ones by precedence.
func WithParamFactories(f ...resolver.ParamResolverFactory) Option {
	return func(c *config) {
		c.paramFactories = append(c.paramFactories, f...)
	}
}

// WithInterceptors adds interceptors to every route. They are merged with
// the route's own interceptors and sorted by precedence.
func WithInterceptors(i ...handler.Interceptor) Option {
	return func(c *config) {
		c.interceptors = append(c.interceptors, i...)
	}
}

// WithParamAdvice adds parameter advice factories.
func WithParamAdvice(f ...resolver.ParamAdviceFactory) Option {
	return func(c *config) {
		c.paramAdvices = append(c.paramAdvices, f...)
	}
}

// WithEntityReaders adds request entity resolvers ahead of the codec-backed
// ones.
func WithEntityReaders(r ...resolver.RequestEntityResolver) Option {
	return func(c *config) {
		c.entityReaders = append(c.entityReaders, r...)
	}
}

// WithEntityAdvice adds request entity advice factories.
func WithEntityAdvice(f ...resolver.RequestEntityAdviceFactory) Option {
	return func(c *config) {
		c.entityAdvices = append(c.entityAdvices, f...)
	}
}

// WithResponseWriters adds response entity resolvers ahead of the
// codec-backed ones.
func WithResponseWriters(w ...resolver.ResponseEntityResolver) Option {
	return func(c *config) {
		c.responseWriters = append(c.responseWriters, w...)
	}
}

// WithResponseAdvice adds response entity advice factories.
func WithResponseAdvice(f ...resolver.ResponseEntityAdviceFactory) Option {
	return func(c *config) {
		c.responseAdvices = append(c.responseAdvices, f...)
	}
}

// WithExceptionHandlers adds exception handlers.
func WithExceptionHandlers(h ...exception.Handler) Option {
	return func(c *config) {
		c.exceptionHandlers = append(c.exceptionHandlers, h...)
	}
}

// WithErrorFormatter sets the formatter for matching failures and the
// terminal exception handler. The default is RFC 9457.
func WithErrorFormatter(f derrors.Formatter) Option {
	return func(c *config) {
		c.formatter = f
	}
}

// WithObserver adds a dispatch observer.
func WithObserver(o ...Observer) Option {
	return func(c *config) {
		c.observers = append(c.observers, o...)
	}
}

// WithDiagnostics receives route registry diagnostics.
func WithDiagnostics(h router.DiagnosticHandler) Option {
	return func(c *config) {
		c.diagnostics = h
	}
}

// WithConnInit adds handlers consulted for every new connection.
func WithConnInit(h ...ConnInitHandler) Option {
	return func(c *config) {
		c.connInit = append(c.connInit, h...)
	}
}

// WithDeployment names the deployment shared by every request.
func WithDeployment(name string) Option {
	return func(c *config) {
		c.deploymentName = name
	}
}

// WithDeploymentValue stores a read-only value in the deployment context.
func WithDeploymentValue(key string, value any) Option {
	return func(c *config) {
		c.deployment[key] = value
	}
}

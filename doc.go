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

// Package dispatch is the request-dispatch engine: it matches a request to
// a registered route, resolves the handler's arguments, invokes the handler
// and writes its result, routing every failure through an exception chain.
//
// A [Dispatcher] owns a route registry (package router) that may change
// while requests are served. Registering a route compiles a plan: one
// resolver chain per handler parameter and one response chain, selected
// from the configured factories by precedence. Request-time work then only
// walks those chains.
//
// Each request moves through a fixed sequence of states:
//
//	MATCHED -> RESOLVING_ARGS -> INVOKING -> RESOLVING_RETURN -> COMPLETE
//
// with EXCEPTION reachable from any state before COMPLETE. When the matched
// route names a scheduler, everything after MATCHED runs on it. Handlers may
// return a handler.Future; the dispatcher waits for it, honoring request
// cancellation.
//
// Matching failures (404, 405, 406, 415) are answered directly with the
// configured errors.Formatter. Resolution and handler failures go through
// the exception chain, whose last handler always produces a response.
//
// Basic usage:
//
//	d := dispatch.MustNew(dispatch.WithLogger(logger))
//	_, err := d.GET("/users/:id", handler.MustNew(getUser, handler.Path("id")),
//		router.WithProduces("json"),
//	)
//
// A transport hands each request to [Dispatcher.Dispatch] and reports
// connection events through [Dispatcher.OnConnectionInit],
// [Dispatcher.OnConnected] and [Dispatcher.OnDisconnected].
package dispatch

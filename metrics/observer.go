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

package metrics

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"rivaas.dev/dispatch"
	derrors "rivaas.dev/dispatch/errors"
	"rivaas.dev/dispatch/reqctx"
	"rivaas.dev/dispatch/router"
)

// unmatchedRoute labels requests that matched no route, keeping the route
// attribute's cardinality bounded by the registry.
const unmatchedRoute = "unmatched"

var _ dispatch.Observer = (*Recorder)(nil)

// skipKey marks requests to excluded paths so OnEnd does not record them.
var skipKey = reqctx.NewKey[bool]("metrics.skip")

// OnStart implements dispatch.Observer.
func (r *Recorder) OnStart(rc *reqctx.Context) {
	if r.excludePaths[rc.Request().Path] {
		reqctx.Set(rc.Attributes(), skipKey, true)
		return
	}
	r.active.Add(rc.Context(), 1, metric.WithAttributes(attribute.String("method", rc.Request().Method)))
}

// OnTransition implements dispatch.Observer.
func (r *Recorder) OnTransition(rc *reqctx.Context, _ *router.Route, from, to dispatch.State) {
	if skipped(rc) {
		return
	}
	r.transitions.Add(rc.Context(), 1, metric.WithAttributes(
		attribute.String("from", from.String()),
		attribute.String("to", to.String()),
	))
}

// OnEnd implements dispatch.Observer.
func (r *Recorder) OnEnd(rc *reqctx.Context, route *router.Route, err error) {
	if skipped(rc) {
		return
	}
	// The request context is about to be cancelled; record detached from it.
	ctx := context.WithoutCancel(rc.Context())
	req := rc.Request()
	r.active.Add(ctx, -1, metric.WithAttributes(attribute.String("method", req.Method)))

	name := unmatchedRoute
	if route != nil {
		name = route.Path()
	}
	status := rc.Response().Status()
	attrs := metric.WithAttributes(
		attribute.String("method", req.Method),
		attribute.String("route", name),
		attribute.String("status", strconv.Itoa(status)),
	)
	r.requests.Add(ctx, 1, attrs)
	r.duration.Record(ctx, time.Since(rc.Started()).Seconds(), attrs)
	r.responseSize.Record(ctx, rc.Response().Written(), attrs)
	if err != nil {
		r.failures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("route", name),
			attribute.String("kind", derrors.KindOf(err).String()),
		))
	}
}

func skipped(rc *reqctx.Context) bool {
	skip, _ := reqctx.Get(rc.Attributes(), skipKey)
	return skip
}

// ObserveDispatcher exports the dispatcher's open connections and in-flight
// requests as gauges until [Recorder.Shutdown].
func (r *Recorder) ObserveDispatcher(d *dispatch.Dispatcher) error {
	conns, err := r.meter.Int64ObservableGauge("dispatch.connections",
		metric.WithDescription("Open transport connections"), metric.WithUnit("{connection}"))
	if err != nil {
		return err
	}
	inflight, err := r.meter.Int64ObservableGauge("dispatch.requests.inflight",
		metric.WithDescription("Requests counted by the shutdown drain"), metric.WithUnit("{request}"))
	if err != nil {
		return err
	}
	reg, err := r.meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(conns, int64(d.Connections()))
		o.ObserveInt64(inflight, int64(d.InFlight()))
		return nil
	}, conns, inflight)
	if err != nil {
		return err
	}
	r.customMu.Lock()
	r.observedSources = append(r.observedSources, reg)
	r.customMu.Unlock()
	return nil
}

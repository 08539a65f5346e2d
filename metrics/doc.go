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

// Package metrics records dispatch metrics with OpenTelemetry.
//
// A [Recorder] is a dispatch observer. It counts requests by method, route
// pattern and status, records their duration and response size, tracks
// active requests, and counts failures by error kind and state machine
// transitions:
//
//	rec := metrics.MustNew(metrics.WithServiceName("orders"))
//	d := dispatch.MustNew(dispatch.WithObserver(rec))
//	_ = rec.ObserveDispatcher(d)
//
//	h, _ := rec.Handler() // Prometheus exposition
//	go http.ListenAndServe(":9090", h)
//
// Metrics go to a private Prometheus registry by default; [WithOTLP],
// [WithStdout] and [WithMeterProvider] select other destinations.
package metrics

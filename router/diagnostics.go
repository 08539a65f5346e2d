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

package router

// DiagnosticEvent reports a registry change or anomaly. Diagnostics are
// optional; the registry behaves the same whether they are collected or not.
type DiagnosticEvent struct {
	Kind    DiagnosticKind
	Message string
	Fields  map[string]any
}

// DiagnosticKind categorizes diagnostic events.
type DiagnosticKind string

const (
	DiagRouteRegistered DiagnosticKind = "route_registered"
	DiagRouteRemoved    DiagnosticKind = "route_removed"
	DiagRouteConflict   DiagnosticKind = "route_conflict"
	DiagHighParamCount  DiagnosticKind = "route_param_count_high"
	DiagRouteShadowed   DiagnosticKind = "route_shadowed"
)

// highParamCount is the variable count above which a route is reported.
const highParamCount = 8

// DiagnosticHandler receives diagnostic events from the registry.
//
// Example with logging:
//
//	handler := router.DiagnosticHandlerFunc(func(e router.DiagnosticEvent) {
//	    slog.Debug(e.Message, "kind", e.Kind, "fields", e.Fields)
//	})
//	reg := router.NewRegistry(router.WithDiagnostics(handler))
type DiagnosticHandler interface {
	OnDiagnostic(DiagnosticEvent)
}

// DiagnosticHandlerFunc is a function adapter for DiagnosticHandler.
type DiagnosticHandlerFunc func(DiagnosticEvent)

// OnDiagnostic calls f.
func (f DiagnosticHandlerFunc) OnDiagnostic(e DiagnosticEvent) {
	f(e)
}

func (reg *Registry) emit(kind DiagnosticKind, msg string, r *Route, extra ...any) {
	if reg.diagnostics == nil {
		return
	}
	fields := map[string]any{
		"route":   r.String(),
		"handler": r.Handler().Name(),
	}
	for i := 0; i+1 < len(extra); i += 2 {
		if k, ok := extra[i].(string); ok {
			fields[k] = extra[i+1]
		}
	}
	reg.diagnostics.OnDiagnostic(DiagnosticEvent{Kind: kind, Message: msg, Fields: fields})
}

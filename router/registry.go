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

import (
	"maps"
	"slices"
	"sync"
	"sync/atomic"
)

// entry is a registered route with its registration sequence.
type entry struct {
	route *Route
	seq   uint64
}

// snapshot is an immutable view of the registry. Writers build a new
// snapshot and publish it atomically; readers never lock.
type snapshot struct {
	// static holds routes without variables by exact path.
	static map[string][]*entry
	// templated holds routes with ":name" variables by segment count.
	templated map[int][]*entry
	// catchAll holds routes ending in "*name".
	catchAll []*entry
	// byKey indexes routes by identity.
	byKey map[string]*entry
	// ordered lists routes in registration order.
	ordered []*entry
}

var emptySnapshot = &snapshot{
	static:    map[string][]*entry{},
	templated: map[int][]*entry{},
	byKey:     map[string]*entry{},
}

// clone returns a shallow copy whose maps may be modified. Bucket slices
// are still shared and must be replaced, not appended to in place.
func (s *snapshot) clone() *snapshot {
	return &snapshot{
		static:    maps.Clone(s.static),
		templated: maps.Clone(s.templated),
		catchAll:  s.catchAll,
		byKey:     maps.Clone(s.byKey),
		ordered:   s.ordered,
	}
}

// RegistryOption configures a [Registry].
type RegistryOption func(*Registry)

// WithDiagnostics sets the diagnostic event handler.
func WithDiagnostics(h DiagnosticHandler) RegistryOption {
	return func(reg *Registry) {
		reg.diagnostics = h
	}
}

// Registry holds routes and matches requests against them. Reads are
// lock-free; writes are serialized and copy-on-write.
type Registry struct {
	current     atomic.Pointer[snapshot]
	version     atomic.Uint64
	mu          sync.Mutex
	seq         uint64
	diagnostics DiagnosticHandler
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	reg := &Registry{}
	for _, opt := range opts {
		opt(reg)
	}
	reg.current.Store(emptySnapshot)
	return reg
}

func (reg *Registry) load() *snapshot {
	return reg.current.Load()
}

// Add registers r. It returns a [*ConflictError] when a route with the same
// identity exists.
func (reg *Registry) Add(r *Route) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	cur := reg.load()
	if existing, ok := cur.byKey[r.Key()]; ok {
		reg.emit(DiagRouteConflict, "route already registered", r, "existing", existing.route.String())
		return &ConflictError{Route: r, Existing: existing.route}
	}

	reg.seq++
	e := &entry{route: r, seq: reg.seq}
	next := cur.clone()
	p := r.pattern
	switch {
	case p.catchAll:
		next.catchAll = appendCopy(cur.catchAll, e)
	case p.Static():
		key := p.Key()
		next.static[key] = appendCopy(cur.static[key], e)
	default:
		n := len(p.segments)
		next.templated[n] = appendCopy(cur.templated[n], e)
	}
	next.byKey[r.Key()] = e
	next.ordered = appendCopy(cur.ordered, e)

	reg.current.Store(next)
	reg.version.Add(1)

	reg.emit(DiagRouteRegistered, "route registered", r)
	if p.vars > highParamCount {
		reg.emit(DiagHighParamCount, "route has many path variables", r, "count", p.vars)
	}
	return nil
}

// Remove unregisters the route with r's identity and returns the route that
// was registered under it.
func (reg *Registry) Remove(r *Route) (*Route, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	cur := reg.load()
	e, ok := cur.byKey[r.Key()]
	if !ok {
		return nil, false
	}

	next := cur.clone()
	p := e.route.pattern
	switch {
	case p.catchAll:
		next.catchAll = without(cur.catchAll, e)
	case p.Static():
		key := p.Key()
		if rest := without(cur.static[key], e); len(rest) > 0 {
			next.static[key] = rest
		} else {
			delete(next.static, key)
		}
	default:
		n := len(p.segments)
		if rest := without(cur.templated[n], e); len(rest) > 0 {
			next.templated[n] = rest
		} else {
			delete(next.templated, n)
		}
	}
	delete(next.byKey, r.Key())
	next.ordered = without(cur.ordered, e)

	reg.current.Store(next)
	reg.version.Add(1)
	reg.emit(DiagRouteRemoved, "route removed", e.route)
	return e.route, true
}

func appendCopy(s []*entry, e *entry) []*entry {
	out := make([]*entry, len(s), len(s)+1)
	copy(out, s)
	return append(out, e)
}

func without(s []*entry, e *entry) []*entry {
	out := make([]*entry, 0, len(s))
	for _, x := range s {
		if x != e {
			out = append(out, x)
		}
	}
	return out
}

// Routes returns the registered routes in registration order.
func (reg *Registry) Routes() []*Route {
	ordered := reg.load().ordered
	out := make([]*Route, 0, len(ordered))
	for _, e := range ordered {
		out = append(out, e.route)
	}
	return out
}

// Lookup returns the route with the given identity key.
func (reg *Registry) Lookup(key string) (*Route, bool) {
	e, ok := reg.load().byKey[key]
	if !ok {
		return nil, false
	}
	return e.route, true
}

// Len returns the number of routes.
func (reg *Registry) Len() int {
	return len(reg.load().ordered)
}

// Version increments on every successful Add or Remove.
func (reg *Registry) Version() uint64 {
	return reg.version.Load()
}

// candidate is a route whose pattern matched the request path.
type candidate struct {
	entry *entry
	vars  map[string]string
}

// pathCandidates returns every route whose pattern matches path, most
// specific pattern first and registration order for ties.
func (s *snapshot) pathCandidates(path string) []candidate {
	parts := splitPath(path)
	key := "/" + joinParts(parts)

	var out []candidate
	for _, e := range s.static[key] {
		out = append(out, candidate{entry: e})
	}
	for _, e := range s.templated[len(parts)] {
		if vars, ok := e.route.pattern.Match(parts); ok {
			out = append(out, candidate{entry: e, vars: vars})
		}
	}
	for _, e := range s.catchAll {
		if vars, ok := e.route.pattern.Match(parts); ok {
			out = append(out, candidate{entry: e, vars: vars})
		}
	}
	slices.SortStableFunc(out, func(a, b candidate) int {
		if d := a.entry.route.pattern.rank(b.entry.route.pattern); d != 0 {
			return d
		}
		return compareSeq(a.entry.seq, b.entry.seq)
	})
	return out
}

func joinParts(parts []string) string {
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	n := len(parts) - 1
	for _, p := range parts {
		n += len(p)
	}
	b := make([]byte, 0, n)
	for i, p := range parts {
		if i > 0 {
			b = append(b, '/')
		}
		b = append(b, p...)
	}
	return string(b)
}

func compareSeq(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

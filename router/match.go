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
	"slices"

	derrors "rivaas.dev/dispatch/errors"
	"rivaas.dev/dispatch/mediatype"
	"rivaas.dev/dispatch/reqctx"
)

// Stage is the last filter a candidate route passed.
type Stage uint8

const (
	StagePath Stage = iota
	StageMethod
	StageCondition
	StageConsumes
	StageMatched
)

// Result is the outcome of [Registry.Match].
type Result struct {
	// Route is the matched route, or nil.
	Route *Route
	// PathVars holds the matched route's path variables.
	PathVars map[string]string
	// Failure classifies a miss: [derrors.ErrNoRouteMatch],
	// [derrors.ErrMethodNotAllowed], [derrors.ErrUnsupportedMediaType] or
	// [derrors.ErrNotAcceptable]. It is nil on a match.
	Failure error
	// Allowed lists the methods of the path-matched routes on a 405.
	Allowed []string
}

// Matched reports whether a route was found.
func (r Result) Matched() bool {
	return r.Route != nil
}

// MatchByURI returns the most specific route whose path pattern and method
// set match the request, ignoring header, param and media type conditions.
// A miss means the resource does not exist for this method.
func (reg *Registry) MatchByURI(req *reqctx.Request) (*Route, bool) {
	for _, c := range reg.load().pathCandidates(req.Path) {
		if c.entry.route.AllowsMethod(req.Method) {
			return c.entry.route, true
		}
	}
	return nil, false
}

// MatchAll returns the best route satisfying the path, method and every
// condition.
func (reg *Registry) MatchAll(req *reqctx.Request) (*Route, bool) {
	res := reg.Match(req)
	return res.Route, res.Matched()
}

// Match finds the best route for req, or explains why none matched.
func (reg *Registry) Match(req *reqctx.Request) Result {
	cands := reg.load().pathCandidates(req.Path)
	if len(cands) == 0 {
		return Result{Failure: derrors.NoRouteMatch(req.Method, req.Path)}
	}

	in := newMatchInput(req)
	deepest := StagePath
	var best *scored
	for _, c := range cands {
		stage, s := in.evaluate(c)
		if stage > deepest {
			deepest = stage
		}
		if stage != StageMatched {
			continue
		}
		if best == nil || s.better(best) {
			best = s
		}
	}
	if best != nil {
		return Result{Route: best.cand.entry.route, PathVars: best.cand.vars}
	}

	switch deepest {
	case StagePath:
		allowed := allowedMethods(cands)
		return Result{Failure: derrors.MethodNotAllowed(req.Method, req.Path, allowed), Allowed: allowed}
	case StageMethod:
		return Result{Failure: derrors.NoRouteMatch(req.Method, req.Path)}
	case StageCondition:
		return Result{Failure: derrors.UnsupportedMediaType(req.ContentType())}
	default:
		return Result{Failure: derrors.NotAcceptable(req.Accept())}
	}
}

func allowedMethods(cands []candidate) []string {
	var out []string
	for _, c := range cands {
		methods := c.entry.route.methods
		if len(methods) == 0 {
			methods = standardMethods
		}
		for _, m := range methods {
			if !slices.Contains(out, m) {
				out = append(out, m)
			}
		}
	}
	slices.Sort(out)
	return out
}

// matchInput holds the request attributes every candidate is tested against.
type matchInput struct {
	req         *reqctx.Request
	contentType mediatype.MediaType
	// hasType is false when the request declares no content type and sends no body.
	hasType bool
	// badType is true when the Content-Type header cannot be parsed.
	badType bool
	accepts []mediatype.MediaType
}

func newMatchInput(req *reqctx.Request) *matchInput {
	in := &matchInput{req: req, accepts: mediatype.ParseAccept(req.Accept())}
	switch ct := req.ContentType(); {
	case ct != "":
		mt, err := mediatype.Parse(ct)
		if err != nil {
			in.badType = true
		} else {
			in.contentType, in.hasType = mt, true
		}
	case req.HasBody():
		in.contentType, in.hasType = mediatype.OctetStream, true
	}
	return in
}

// scored is a fully matched candidate with its ranking keys.
type scored struct {
	cand        candidate
	consumes    int
	produces    int
	producesQ   float64
	conditions  int
	patternRank *Pattern
}

// better reports whether s ranks ahead of o. Path specificity comes first,
// then media type specificity, then condition count, then registration.
func (s *scored) better(o *scored) bool {
	if d := s.patternRank.rank(o.patternRank); d != 0 {
		return d < 0
	}
	if s.consumes != o.consumes {
		return s.consumes > o.consumes
	}
	if s.producesQ != o.producesQ {
		return s.producesQ > o.producesQ
	}
	if s.produces != o.produces {
		return s.produces > o.produces
	}
	if s.conditions != o.conditions {
		return s.conditions > o.conditions
	}
	return s.cand.entry.seq < o.cand.entry.seq
}

// evaluate runs the filters in order and returns the last stage passed.
func (in *matchInput) evaluate(c candidate) (Stage, *scored) {
	r := c.entry.route
	if !r.AllowsMethod(in.req.Method) {
		return StagePath, nil
	}
	if !testHeaders(r.headers, in.req.Header) || !testParams(r.params, in.req.Query()) {
		return StageMethod, nil
	}

	consumes := 0
	if len(r.consumes) > 0 {
		if in.badType {
			return StageCondition, nil
		}
		if in.hasType {
			consumes = mediatype.BestInclusion(r.consumes, in.contentType)
			if consumes == 0 {
				return StageCondition, nil
			}
		}
	}

	var produces int
	var producesQ float64
	if len(r.produces) > 0 {
		for _, p := range r.produces {
			q, _, ok := mediatype.Match(in.accepts, p)
			if !ok {
				continue
			}
			if q > producesQ || (q == producesQ && p.Specificity() > produces) {
				producesQ, produces = q, p.Specificity()
			}
		}
		if produces == 0 {
			return StageConsumes, nil
		}
	}

	return StageMatched, &scored{
		cand:        c,
		consumes:    consumes,
		produces:    produces,
		producesQ:   producesQ,
		conditions:  r.ConditionCount(),
		patternRank: r.pattern,
	}
}

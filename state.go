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
	"fmt"

	"rivaas.dev/dispatch/reqctx"
	"rivaas.dev/dispatch/router"
)

// State is a step of the dispatch state machine.
type State uint8

const (
	// StateReceived is the state before a route is matched.
	StateReceived State = iota
	StateMatched
	StateResolvingArgs
	StateInvoking
	StateResolvingReturn
	// StateException is entered from any earlier state on failure and
	// always leads to StateComplete.
	StateException
	StateComplete
)

var stateNames = [...]string{
	StateReceived:        "RECEIVED",
	StateMatched:         "MATCHED",
	StateResolvingArgs:   "RESOLVING_ARGS",
	StateInvoking:        "INVOKING",
	StateResolvingReturn: "RESOLVING_RETURN",
	StateException:       "EXCEPTION",
	StateComplete:        "COMPLETE",
}

// String returns the state name.
func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", s)
}

// canEnter reports whether the machine may move from s to next.
func (s State) canEnter(next State) bool {
	switch next {
	case StateException:
		return s < StateException
	case StateComplete:
		return s != StateComplete
	default:
		return next == s+1
	}
}

// StateKey holds the current state in the request attributes.
var StateKey = reqctx.NewKey[State]("dispatch.state")

// RouteKey holds the matched route in the request attributes.
var RouteKey = reqctx.NewKey[*router.Route]("dispatch.route")

// CurrentState returns the state of rc's dispatch.
func CurrentState(rc *reqctx.Context) State {
	s, _ := reqctx.Get(rc.Attributes(), StateKey)
	return s
}

// MatchedRoute returns the route rc was matched to.
func MatchedRoute(rc *reqctx.Context) (*router.Route, bool) {
	return reqctx.Get(rc.Attributes(), RouteKey)
}

// Observer receives dispatch events. Calls for one request are sequential;
// calls for different requests are concurrent.
type Observer interface {
	// OnStart runs when a request enters the dispatcher.
	OnStart(rc *reqctx.Context)

	// OnTransition runs after each state change. route is nil until a route
	// has been matched.
	OnTransition(rc *reqctx.Context, route *router.Route, from, to State)

	// OnEnd runs once the response is complete. err is the failure the
	// request ended with, if any.
	OnEnd(rc *reqctx.Context, route *router.Route, err error)
}

// ObserverFuncs adapts functions to [Observer]. Nil fields are skipped.
type ObserverFuncs struct {
	Start      func(rc *reqctx.Context)
	Transition func(rc *reqctx.Context, route *router.Route, from, to State)
	End        func(rc *reqctx.Context, route *router.Route, err error)
}

// OnStart implements [Observer].
func (o ObserverFuncs) OnStart(rc *reqctx.Context) {
	if o.Start != nil {
		o.Start(rc)
	}
}

// OnTransition implements [Observer].
func (o ObserverFuncs) OnTransition(rc *reqctx.Context, route *router.Route, from, to State) {
	if o.Transition != nil {
		o.Transition(rc, route, from, to)
	}
}

// OnEnd implements [Observer].
func (o ObserverFuncs) OnEnd(rc *reqctx.Context, route *router.Route, err error) {
	if o.End != nil {
		o.End(rc, route, err)
	}
}

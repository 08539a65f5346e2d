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

package requestid

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"rivaas.dev/dispatch"
	"rivaas.dev/dispatch/middleware"
	"rivaas.dev/dispatch/reqctx"
	"rivaas.dev/dispatch/router"
)

// DefaultHeader carries the request id in both directions.
const DefaultHeader = "X-Request-ID"

// Option configures the request id observer.
type Option func(*config)

type config struct {
	headerName    string
	generator     func() string
	allowClientID bool
}

func defaultConfig() *config {
	return &config{
		headerName:    DefaultHeader,
		generator:     generateUUIDv7,
		allowClientID: true,
	}
}

// generateUUIDv7 returns a time-ordered UUID (RFC 9562).
func generateUUIDv7() string {
	return uuid.Must(uuid.NewV7()).String()
}

var (
	ulidEntropy     = ulid.Monotonic(rand.Reader, 0)
	ulidEntropyLock sync.Mutex
)

// generateULID returns a 26-character ULID, monotonic within a millisecond.
func generateULID() string {
	ulidEntropyLock.Lock()
	defer ulidEntropyLock.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulidEntropy).String()
}

type observer struct {
	cfg *config
}

// New returns a dispatch observer that assigns every request an id as soon
// as it enters the dispatcher, before routing, so unmatched and rejected
// requests carry one too. The id is echoed in the response header and
// stored under [middleware.RequestIDKey] for handlers and loggers.
//
//	d := dispatch.MustNew(dispatch.WithObserver(requestid.New()))
//
// A client supplied id is kept unless [WithAllowClientID] is false.
func New(opts ...Option) dispatch.Observer {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &observer{cfg: cfg}
}

func (o *observer) OnStart(rc *reqctx.Context) {
	var id string
	if o.cfg.allowClientID {
		id = rc.Request().Header.Get(o.cfg.headerName)
	}
	if id == "" {
		id = o.cfg.generator()
	}
	rc.Response().Header().Set(o.cfg.headerName, id)
	reqctx.Set(rc.Attributes(), middleware.RequestIDKey, id)
}

func (*observer) OnTransition(*reqctx.Context, *router.Route, dispatch.State, dispatch.State) {}

func (*observer) OnEnd(*reqctx.Context, *router.Route, error) {}

// Get returns the request's id, or "" when none was assigned.
func Get(rc *reqctx.Context) string {
	id, _ := reqctx.Get(rc.Attributes(), middleware.RequestIDKey)
	return id
}

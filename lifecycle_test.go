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
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"rivaas.dev/dispatch/handler"
	"rivaas.dev/dispatch/reqctx"
	"rivaas.dev/dispatch/router"
	"rivaas.dev/dispatch/scheduler"
)

type LifecycleSuite struct {
	suite.Suite

	d       *Dispatcher
	release chan struct{}
	entered chan struct{}
}

func (s *LifecycleSuite) SetupTest() {
	s.release = make(chan struct{})
	s.entered = make(chan struct{}, 16)
	pool := scheduler.MustNewPool("work", scheduler.WithWorkers(4))
	s.d = MustNew(WithSchedulers(pool))

	_, err := s.d.GET("/block", handler.MustNew(func() string {
		s.entered <- struct{}{}
		<-s.release
		return "done"
	}), router.WithScheduler("work"), router.WithProduces("text/plain"))
	s.Require().NoError(err)

	_, err = s.d.GET("/fast", handler.MustNew(func() string { return "fast" }), router.WithProduces("text/plain"))
	s.Require().NoError(err)
}

func (s *LifecycleSuite) TearDownTest() {
	select {
	case <-s.release:
	default:
		close(s.release)
	}
}

func (s *LifecycleSuite) TestShutdownWaitsForInFlight() {
	rc, rec := newRC(http.MethodGet, "/block", "")
	done := s.d.Process(rc)
	<-s.entered
	s.Equal(1, s.d.InFlight())

	shutdownErr := make(chan error, 1)
	go func() { shutdownErr <- s.d.Shutdown(context.Background()) }()
	s.Eventually(s.d.ShuttingDown, time.Second, time.Millisecond)

	late := serve(s.d, http.MethodGet, "/fast", "")
	s.Equal(http.StatusServiceUnavailable, late.Code)

	select {
	case <-shutdownErr:
		s.Fail("shutdown returned while a dispatch was in flight")
	case <-time.After(20 * time.Millisecond):
	}

	close(s.release)
	<-done
	s.Require().NoError(<-shutdownErr)
	s.Equal("done", rec.Body.String())
	s.Equal(0, s.d.InFlight())
}

func (s *LifecycleSuite) TestShutdownDeadline() {
	rc, _ := newRC(http.MethodGet, "/block", "")
	done := s.d.Process(rc)
	<-s.entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	s.Require().ErrorIs(s.d.Shutdown(ctx), context.DeadlineExceeded)

	close(s.release)
	<-done
	s.Require().NoError(s.d.Shutdown(context.Background()))
}

func (s *LifecycleSuite) TestConcurrentDispatchAndRegistration() {
	var wg sync.WaitGroup
	var ok atomic.Int32
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if serve(s.d, http.MethodGet, "/fast", "").Code == http.StatusOK {
				ok.Add(1)
			}
		}()
		if i%10 == 0 {
			r := router.MustRoute("/tmp", handler.MustNew(func() {}), router.WithMethods(http.MethodGet))
			s.Require().NoError(s.d.Handle(r))
			s.True(s.d.Remove(r))
		}
	}
	wg.Wait()
	s.Equal(int32(50), ok.Load())
}

func (s *LifecycleSuite) TestConnectionHooks() {
	conn := reqctx.NewConn(1, nil)
	released := false
	conn.OnClose(func() { released = true })

	s.Require().NoError(s.d.OnConnectionInit(conn))
	s.d.OnConnected(conn)
	s.Equal(1, s.d.Connections())

	s.d.OnDisconnected(conn)
	s.Equal(0, s.d.Connections())
	s.True(released)
	s.True(conn.Released())

	s.Require().NoError(s.d.Shutdown(context.Background()))
	s.Require().ErrorIs(s.d.OnConnectionInit(reqctx.NewConn(2, nil)), ErrShuttingDown)
}

func TestLifecycleSuite(t *testing.T) {
	t.Parallel()
	suite.Run(t, new(LifecycleSuite))
}

func TestConnInitHandlers(t *testing.T) {
	t.Parallel()

	errFull := errors.New("full")
	var seen []uint64
	d := MustNew(WithConnInit(
		func(c *reqctx.Conn) error {
			seen = append(seen, c.ID())
			return nil
		},
		func(c *reqctx.Conn) error {
			if c.ID() > 1 {
				return errFull
			}
			return nil
		},
		func(*reqctx.Conn) error { panic("not reached for rejected connections") },
	))

	if err := d.OnConnectionInit(reqctx.NewConn(2, nil)); !errors.Is(err, errFull) {
		t.Fatalf("OnConnectionInit = %v, want %v", err, errFull)
	}
	if err := d.OnConnectionInit(reqctx.NewConn(1, nil)); err == nil {
		t.Fatal("panicking init handler must reject the connection")
	}
	if len(seen) != 2 {
		t.Fatalf("first handler ran %d times, want 2", len(seen))
	}
}

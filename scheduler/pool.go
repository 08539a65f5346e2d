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

package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// PoolOption configures a [Pool].
type PoolOption func(*Pool)

// WithWorkers sets how many tasks run at once. The default is GOMAXPROCS.
func WithWorkers(n int) PoolOption {
	return func(p *Pool) {
		p.workers = n
	}
}

// WithQueue bounds how many tasks may wait for a worker. Submissions beyond
// it fail with [ErrRejected]. Zero means unbounded.
func WithQueue(n int) PoolOption {
	return func(p *Pool) {
		p.queue = n
	}
}

// WithLogger sets the logger for recovered task panics.
func WithLogger(l *slog.Logger) PoolOption {
	return func(p *Pool) {
		p.logger = l
	}
}

// Pool runs tasks on goroutines with bounded concurrency.
type Pool struct {
	name    string
	workers int
	queue   int
	logger  *slog.Logger

	sem     *semaphore.Weighted
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	pending atomic.Int64
	active  atomic.Int64
}

// NewPool returns a pool named name.
func NewPool(name string, opts ...PoolOption) (*Pool, error) {
	p := &Pool{name: name, workers: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		opt(p)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	if p.logger == nil {
		p.logger = slog.New(slog.DiscardHandler)
	}
	p.sem = semaphore.NewWeighted(int64(p.workers))
	return p, nil
}

// MustNewPool is like [NewPool] but panics on error.
func MustNewPool(name string, opts ...PoolOption) *Pool {
	p, err := NewPool(name, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Pool) validate() error {
	switch {
	case p.name == "" || p.name == InlineName:
		return fmt.Errorf("scheduler: invalid pool name %q", p.name)
	case p.workers < 1:
		return fmt.Errorf("scheduler: pool %q needs at least one worker, got %d", p.name, p.workers)
	case p.queue < 0:
		return fmt.Errorf("scheduler: pool %q queue must not be negative, got %d", p.name, p.queue)
	}
	return nil
}

// Name implements [Scheduler].
func (p *Pool) Name() string {
	return p.name
}

// Submit implements [Scheduler]. It never blocks the caller.
func (p *Pool) Submit(_ context.Context, task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	if n := p.pending.Add(1); p.queue > 0 && n > int64(p.queue) {
		p.pending.Add(-1)
		if !p.sem.TryAcquire(1) {
			return fmt.Errorf("%w: pool %q queue is full", ErrRejected, p.name)
		}
		p.wg.Add(1)
		go p.run(task)
		return nil
	}

	p.wg.Add(1)
	go func() {
		// An accepted task always runs; Shutdown waits for it.
		_ = p.sem.Acquire(context.Background(), 1)
		p.pending.Add(-1)
		p.run(task)
	}()
	return nil
}

// run executes task holding one semaphore slot.
func (p *Pool) run(task func()) {
	defer p.wg.Done()
	defer p.sem.Release(1)
	p.active.Add(1)
	defer p.active.Add(-1)
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("scheduler task panicked",
				"scheduler", p.name,
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
	}()
	task()
}

// Active returns the number of running tasks.
func (p *Pool) Active() int {
	return int(p.active.Load())
}

// Pending returns the number of tasks waiting for a worker.
func (p *Pool) Pending() int {
	return int(p.pending.Load())
}

// Workers returns the concurrency limit.
func (p *Pool) Workers() int {
	return p.workers
}

// Shutdown implements [Shutdowner]. Tasks already accepted still run.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler: pool %q shutdown: %w", p.name, ctx.Err())
	}
}

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
	"errors"
	"fmt"
	"slices"
	"sync"
)

// Static errors for scheduling.
var (
	// ErrRejected is returned when a scheduler cannot accept more work.
	ErrRejected = errors.New("scheduler: task rejected")

	// ErrClosed is returned after a scheduler was shut down.
	ErrClosed = errors.New("scheduler: closed")

	// ErrDuplicate is returned when two schedulers share a name.
	ErrDuplicate = errors.New("scheduler: duplicate name")
)

// InlineName is the name of the scheduler that runs work on the caller's
// goroutine.
const InlineName = "inline"

// Scheduler runs units of work.
type Scheduler interface {
	// Name identifies the scheduler in route configuration.
	Name() string

	// Submit schedules task. When it returns nil the task runs exactly once;
	// the task itself observes ctx. An error means the task never runs.
	Submit(ctx context.Context, task func()) error
}

// Shutdowner is implemented by schedulers that own goroutines.
type Shutdowner interface {
	// Shutdown stops accepting work and waits for running tasks until ctx
	// ends.
	Shutdown(ctx context.Context) error
}

type inline struct{}

// Inline returns the scheduler that runs tasks synchronously on the
// submitting goroutine.
func Inline() Scheduler {
	return inline{}
}

func (inline) Name() string { return InlineName }

func (inline) Submit(_ context.Context, task func()) error {
	task()
	return nil
}

// Registry resolves scheduler names. It is populated at startup and read
// concurrently afterwards.
type Registry struct {
	mu         sync.RWMutex
	schedulers map[string]Scheduler
}

// NewRegistry returns a registry holding [Inline] and the given schedulers.
func NewRegistry(schedulers ...Scheduler) (*Registry, error) {
	r := &Registry{schedulers: map[string]Scheduler{InlineName: Inline()}}
	for _, s := range schedulers {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds s.
func (r *Registry) Register(s Scheduler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.schedulers[s.Name()]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicate, s.Name())
	}
	r.schedulers[s.Name()] = s
	return nil
}

// Get returns the named scheduler. The empty name is [Inline].
func (r *Registry) Get(name string) (Scheduler, bool) {
	if name == "" {
		name = InlineName
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schedulers[name]
	return s, ok
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.schedulers))
	for name := range r.schedulers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Shutdown shuts down every scheduler that supports it and returns the
// joined errors.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.RLock()
	var targets []Shutdowner
	for _, s := range r.schedulers {
		if sd, ok := s.(Shutdowner); ok {
			targets = append(targets, sd)
		}
	}
	r.mu.RUnlock()

	errs := make([]error, len(targets))
	var wg sync.WaitGroup
	for i, sd := range targets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = sd.Shutdown(ctx)
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}

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

package handler

import (
	"context"
	"sync"
)

// Future is a result that becomes available later. Handlers return one to
// finish their work off the dispatching goroutine.
type Future interface {
	// Done is closed once the result is available.
	Done() <-chan struct{}
	// Result returns the value and error. It is valid only after Done is closed.
	Result() (any, error)
}

// Promise is a [Future] completed by its owner. The first completion wins.
type Promise struct {
	done  chan struct{}
	once  sync.Once
	value any
	err   error
}

// NewPromise returns an incomplete promise.
func NewPromise() *Promise {
	return &Promise{done: make(chan struct{})}
}

// Resolve completes the promise with a value.
func (p *Promise) Resolve(v any) bool {
	return p.Complete(v, nil)
}

// Reject completes the promise with an error.
func (p *Promise) Reject(err error) bool {
	return p.Complete(nil, err)
}

// Complete sets the result. It reports false if the promise was already
// complete.
func (p *Promise) Complete(v any, err error) bool {
	completed := false
	p.once.Do(func() {
		p.value, p.err = v, err
		close(p.done)
		completed = true
	})
	return completed
}

// Done implements [Future].
func (p *Promise) Done() <-chan struct{} {
	return p.done
}

// Result implements [Future].
func (p *Promise) Result() (any, error) {
	<-p.done
	return p.value, p.err
}

// Async runs fn in a new goroutine. A panic in fn rejects the future with a
// [*PanicError].
func Async[T any](fn func() (T, error)) Future {
	p := NewPromise()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				p.Reject(newPanicError(r))
			}
		}()
		v, err := fn()
		p.Complete(v, err)
	}()
	return p
}

// Completed returns a future that is already done.
func Completed(v any, err error) Future {
	p := NewPromise()
	p.Complete(v, err)
	return p
}

// Await waits for f or for ctx to end, whichever comes first.
func Await(ctx context.Context, f Future) (any, error) {
	select {
	case <-f.Done():
		return f.Result()
	case <-ctx.Done():
		return nil, context.Cause(ctx)
	}
}

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

package chain

import (
	"errors"
	"fmt"
	"slices"
)

// ErrProceeded is returned when a Proceed function is called more than once.
var ErrProceeded = errors.New("chain: proceed already called")

// Proceed continues a chain from the caller's position.
type Proceed[R any] func() (R, error)

// Terminal performs the actual conversion at the end of a chain.
type Terminal[C, R any] interface {
	Resolve(ctx C) (R, error)
}

// TerminalFunc adapts a function to [Terminal].
type TerminalFunc[C, R any] func(ctx C) (R, error)

// Resolve calls f.
func (f TerminalFunc[C, R]) Resolve(ctx C) (R, error) {
	return f(ctx)
}

// Advice intercepts a chain. It either calls next or returns its own result.
type Advice[C, R any] interface {
	Around(ctx C, next Proceed[R]) (R, error)
}

// AdviceFunc adapts a function to [Advice] with [DefaultOrder].
type AdviceFunc[C, R any] func(ctx C, next Proceed[R]) (R, error)

// Around calls f.
func (f AdviceFunc[C, R]) Around(ctx C, next Proceed[R]) (R, error) {
	return f(ctx, next)
}

// OrderedAdvice wraps an advice with an explicit order.
func OrderedAdvice[C, R any](order int, a Advice[C, R]) Advice[C, R] {
	return orderedAdvice[C, R]{Advice: a, order: order}
}

type orderedAdvice[C, R any] struct {
	Advice[C, R]
	order int
}

func (o orderedAdvice[C, R]) Order() int { return o.order }

// Chain is an immutable sequence of advices ending in a terminal.
type Chain[C, R any] struct {
	advices  []Advice[C, R]
	terminal Terminal[C, R]
}

// New builds a chain. Advices are stable-sorted by [OrderOf], so advices with
// equal order keep their registration order.
func New[C, R any](terminal Terminal[C, R], advices ...Advice[C, R]) *Chain[C, R] {
	if terminal == nil {
		panic("chain: terminal is required")
	}
	sorted := slices.Clone(advices)
	SortByOrder(sorted)
	return &Chain[C, R]{advices: sorted, terminal: terminal}
}

// Len returns the number of advices.
func (c *Chain[C, R]) Len() int {
	return len(c.advices)
}

// Advices returns the sorted advices.
func (c *Chain[C, R]) Advices() []Advice[C, R] {
	return slices.Clone(c.advices)
}

// Terminal returns the terminal.
func (c *Chain[C, R]) Terminal() Terminal[C, R] {
	return c.terminal
}

// Invoke runs the chain with a zeroed cursor.
func (c *Chain[C, R]) Invoke(ctx C) (R, error) {
	cur := &cursor[C, R]{chain: c, ctx: ctx}
	return cur.step(0)
}

// cursor is the per-invocation state. next is the only position that may run.
type cursor[C, R any] struct {
	chain *Chain[C, R]
	ctx   C
	next  int
}

func (cur *cursor[C, R]) step(pos int) (R, error) {
	if pos != cur.next {
		var zero R
		return zero, fmt.Errorf("%w at position %d", ErrProceeded, pos-1)
	}
	cur.next++

	if pos == len(cur.chain.advices) {
		return cur.chain.terminal.Resolve(cur.ctx)
	}
	return cur.chain.advices[pos].Around(cur.ctx, func() (R, error) {
		return cur.step(pos + 1)
	})
}

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
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInline(t *testing.T) {
	t.Parallel()

	ran := false
	require.NoError(t, Inline().Submit(context.Background(), func() { ran = true }))
	assert.True(t, ran, "inline runs before Submit returns")
	assert.Equal(t, InlineName, Inline().Name())
}

func TestNewPool_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		pool string
		opts []PoolOption
	}{
		{"empty name", "", nil},
		{"reserved name", InlineName, nil},
		{"no workers", "p", []PoolOption{WithWorkers(0)}},
		{"negative queue", "p", []PoolOption{WithQueue(-1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewPool(tt.pool, tt.opts...)
			require.Error(t, err)
		})
	}

	assert.Panics(t, func() { MustNewPool("") })
}

func TestPool_RunsOffCaller(t *testing.T) {
	t.Parallel()

	p := MustNewPool("blocking", WithWorkers(2))
	var count atomic.Int32
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		require.NoError(t, p.Submit(context.Background(), func() {
			defer wg.Done()
			count.Add(1)
		}))
	}
	wg.Wait()
	assert.Equal(t, int32(10), count.Load())
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestPool_BoundsConcurrency(t *testing.T) {
	t.Parallel()

	const workers = 3
	p := MustNewPool("bounded", WithWorkers(workers))

	var running, peak atomic.Int32
	release := make(chan struct{})
	var wg sync.WaitGroup
	for range 12 {
		wg.Add(1)
		require.NoError(t, p.Submit(context.Background(), func() {
			defer wg.Done()
			n := running.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			<-release
			running.Add(-1)
		}))
	}

	require.Eventually(t, func() bool { return p.Active() == workers }, time.Second, time.Millisecond)
	assert.Equal(t, 12-workers, p.Pending())
	close(release)
	wg.Wait()
	assert.LessOrEqual(t, peak.Load(), int32(workers))
	assert.Equal(t, workers, p.Workers())
}

func TestPool_RejectsWhenQueueFull(t *testing.T) {
	t.Parallel()

	p := MustNewPool("tiny", WithWorkers(1), WithQueue(1))
	release := make(chan struct{})
	started := make(chan struct{})

	require.NoError(t, p.Submit(context.Background(), func() {
		close(started)
		<-release
	}))
	<-started
	require.NoError(t, p.Submit(context.Background(), func() {}))

	err := p.Submit(context.Background(), func() {})
	require.ErrorIs(t, err, ErrRejected)

	close(release)
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestPool_Shutdown(t *testing.T) {
	t.Parallel()

	p := MustNewPool("drain", WithWorkers(1))
	release := make(chan struct{})
	var finished atomic.Bool
	require.NoError(t, p.Submit(context.Background(), func() {
		<-release
		finished.Store(true)
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := p.Shutdown(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	require.ErrorIs(t, p.Submit(context.Background(), func() {}), ErrClosed)

	close(release)
	require.NoError(t, p.Shutdown(context.Background()))
	assert.True(t, finished.Load(), "accepted tasks finish before shutdown returns")
}

func TestPool_RecoversPanics(t *testing.T) {
	t.Parallel()

	p := MustNewPool("panicky", WithWorkers(1))
	require.NoError(t, p.Submit(context.Background(), func() { panic("boom") }))

	done := make(chan struct{})
	require.NoError(t, p.Submit(context.Background(), func() { close(done) }))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pool stopped after a task panicked")
	}
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	a := MustNewPool("a", WithWorkers(1))
	b := MustNewPool("b", WithWorkers(1))
	reg, err := NewRegistry(a, b)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", InlineName}, reg.Names())

	s, ok := reg.Get("")
	require.True(t, ok)
	assert.Equal(t, InlineName, s.Name())

	s, ok = reg.Get("b")
	require.True(t, ok)
	assert.Same(t, b, s)

	_, ok = reg.Get("missing")
	assert.False(t, ok)

	require.ErrorIs(t, reg.Register(MustNewPool("a")), ErrDuplicate)
	_, err = NewRegistry(a, a)
	require.ErrorIs(t, err, ErrDuplicate)

	require.NoError(t, reg.Shutdown(context.Background()))
	require.ErrorIs(t, a.Submit(context.Background(), func() {}), ErrClosed)
	require.ErrorIs(t, b.Submit(context.Background(), func() {}), ErrClosed)
}

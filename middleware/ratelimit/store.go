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

package ratelimit

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Decision is a store's answer for one request.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// Reset is how long until the client is back to its full allowance when
	// allowed, or until the next request would pass when denied.
	Reset time.Duration
}

// Store counts requests per key. Implementations must be safe for
// concurrent use.
type Store interface {
	Take(key string, now time.Time) Decision
}

// TokenBucket keeps one x/time/rate limiter per key. Idle keys are swept
// after the TTL.
type TokenBucket struct {
	limit rate.Limit
	burst int
	ttl   time.Duration

	mu      sync.Mutex
	buckets map[string]*bucket
	swept   time.Time
}

type bucket struct {
	limiter *rate.Limiter
	seen    time.Time
}

// NewTokenBucket allows r requests per second per key with bursts of burst.
// A non-positive ttl keeps idle keys for five minutes.
func NewTokenBucket(r float64, burst int, ttl time.Duration) *TokenBucket {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &TokenBucket{
		limit:   rate.Limit(r),
		burst:   max(1, burst),
		ttl:     ttl,
		buckets: make(map[string]*bucket),
	}
}

// Take implements [Store].
func (s *TokenBucket) Take(key string, now time.Time) Decision {
	lim := s.limiter(key, now)
	d := Decision{Limit: s.burst, Allowed: lim.AllowN(now, 1)}

	tokens := lim.TokensAt(now)
	d.Remaining = max(0, int(math.Floor(tokens)))
	if d.Allowed {
		d.Reset = s.refill(float64(s.burst) - tokens)
	} else {
		d.Reset = s.refill(1 - tokens)
	}
	return d
}

// Len returns the number of tracked keys.
func (s *TokenBucket) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}

func (s *TokenBucket) refill(tokens float64) time.Duration {
	if tokens <= 0 || s.limit <= 0 {
		return 0
	}
	return time.Duration(tokens / float64(s.limit) * float64(time.Second))
}

func (s *TokenBucket) limiter(key string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.swept) > s.ttl {
		for k, b := range s.buckets {
			if now.Sub(b.seen) > s.ttl {
				delete(s.buckets, k)
			}
		}
		s.swept = now
	}

	b, ok := s.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.buckets[key] = b
	}
	b.seen = now
	return b.limiter
}

// SlidingWindow approximates a rolling window from the counts of the
// current and previous fixed windows, weighting the previous one by how
// much of it still overlaps.
type SlidingWindow struct {
	limit  int
	window time.Duration

	mu      sync.Mutex
	entries map[string]*windowEntry
}

type windowEntry struct {
	start    time.Time
	current  int
	previous int
}

// NewSlidingWindow allows limit requests per window per key.
func NewSlidingWindow(limit int, window time.Duration) *SlidingWindow {
	if window <= 0 {
		window = time.Minute
	}
	return &SlidingWindow{
		limit:   max(1, limit),
		window:  window,
		entries: make(map[string]*windowEntry),
	}
}

// Take implements [Store]. Denied requests are not counted.
func (s *SlidingWindow) Take(key string, now time.Time) Decision {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := now.Truncate(s.window)
	e, ok := s.entries[key]
	switch {
	case !ok:
		e = &windowEntry{start: start}
		s.entries[key] = e
	case start.Sub(e.start) >= 2*s.window:
		*e = windowEntry{start: start}
	case start.After(e.start):
		*e = windowEntry{start: start, previous: e.current}
	}

	elapsed := now.Sub(e.start)
	weight := 1 - float64(elapsed)/float64(s.window)
	used := float64(e.current) + float64(e.previous)*weight

	d := Decision{Limit: s.limit, Reset: s.window - elapsed}
	if used+1 > float64(s.limit) {
		return d
	}
	e.current++
	d.Allowed = true
	d.Remaining = max(0, s.limit-int(math.Ceil(used+1)))
	s.sweep(now)
	return d
}

// sweep drops keys whose windows can no longer influence a decision.
func (s *SlidingWindow) sweep(now time.Time) {
	if len(s.entries) < 1024 {
		return
	}
	for k, e := range s.entries {
		if now.Sub(e.start) >= 2*s.window {
			delete(s.entries, k)
		}
	}
}

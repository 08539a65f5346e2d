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

package metrics

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var metricNamePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_.]{0,254}$`)

func (r *Recorder) checkName(name string) error {
	if !metricNamePattern.MatchString(name) {
		return fmt.Errorf("metrics: invalid metric name %q", name)
	}
	if strings.HasPrefix(name, "dispatch.") {
		return fmt.Errorf("%w: %q", ErrReservedName, name)
	}
	return nil
}

// IncrementCounter adds one to the named counter, creating it on first use.
func (r *Recorder) IncrementCounter(ctx context.Context, name string, attrs ...attribute.KeyValue) error {
	return r.AddCounter(ctx, name, 1, attrs...)
}

// AddCounter adds value to the named counter.
func (r *Recorder) AddCounter(ctx context.Context, name string, value int64, attrs ...attribute.KeyValue) error {
	c, err := custom(r, r.counters, name, func() (metric.Int64Counter, error) {
		return r.meter.Int64Counter(name)
	})
	if err != nil {
		r.customFailures.Add(1)
		return err
	}
	c.Add(ctx, value, metric.WithAttributes(attrs...))
	return nil
}

// RecordHistogram records value in the named histogram.
func (r *Recorder) RecordHistogram(ctx context.Context, name string, value float64, attrs ...attribute.KeyValue) error {
	h, err := custom(r, r.histograms, name, func() (metric.Float64Histogram, error) {
		return r.meter.Float64Histogram(name)
	})
	if err != nil {
		r.customFailures.Add(1)
		return err
	}
	h.Record(ctx, value, metric.WithAttributes(attrs...))
	return nil
}

// CustomMetricFailures returns how many custom metric calls failed.
func (r *Recorder) CustomMetricFailures() int64 {
	return r.customFailures.Load()
}

// custom returns the instrument from m, creating it within the recorder's
// custom metric limit.
func custom[T any](r *Recorder, m map[string]T, name string, create func() (T, error)) (T, error) {
	r.customMu.RLock()
	inst, ok := m[name]
	r.customMu.RUnlock()
	if ok {
		return inst, nil
	}

	var zero T
	if err := r.checkName(name); err != nil {
		return zero, err
	}

	r.customMu.Lock()
	defer r.customMu.Unlock()
	if inst, ok := m[name]; ok {
		return inst, nil
	}
	if len(r.counters)+len(r.histograms) >= r.maxCustomMetrics {
		return zero, fmt.Errorf("%w (%d)", ErrTooManyMetrics, r.maxCustomMetrics)
	}
	inst, err := create()
	if err != nil {
		return zero, fmt.Errorf("metrics: create %q: %w", name, err)
	}
	m[name] = inst
	return inst, nil
}

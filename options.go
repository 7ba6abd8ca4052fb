// Copyright 2026 The Strada Authors
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

package strada

import (
	"log/slog"
	"time"
)

// Option configures a Router during construction.
type Option func(*Router)

// WithDiagnostics sets a diagnostic handler for the router.
//
// Diagnostic events are optional informational events that may indicate
// configuration issues or security concerns.
// The router functions correctly whether diagnostics are collected or not.
//
// Example with logging:
//
//	import "log/slog"
//
//	handler := strada.DiagnosticHandlerFunc(func(e strada.DiagnosticEvent) {
//	    slog.Warn(e.Message, "kind", e.Kind, "fields", e.Fields)
//	})
//	r := strada.MustNew(strada.WithDiagnostics(handler))
func WithDiagnostics(handler DiagnosticHandler) Option {
	return func(r *Router) {
		r.diagnostics = handler
	}
}

// WithDispatchRecorder installs an observability recorder that is invoked
// around every Resolve call. See DispatchRecorder for lifecycle semantics.
//
// Example:
//
//	r := strada.MustNew(strada.WithDispatchRecorder(strada.NewTraceRecorder()))
func WithDispatchRecorder(rec DispatchRecorder) Option {
	return func(r *Router) {
		r.recorder = rec
	}
}

// WithMetrics attaches a MetricsRecorder. Dispatch outcomes, cache
// statistics, and memory pressure transitions are published through it.
//
// Example:
//
//	m := strada.MustNewMetricsRecorder(strada.WithPrometheusProvider())
//	r := strada.MustNew(strada.WithMetrics(m))
func WithMetrics(m *MetricsRecorder) Option {
	return func(r *Router) {
		r.metrics = m
	}
}

// WithLogger sets the structured logger used for memory governance and
// registration warnings. Defaults to a no-op logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMemoryThresholds overrides the warning, critical, and emergency
// memory thresholds, in bytes. Thresholds must be strictly increasing and
// non-zero; New returns ErrMemoryThresholdsInvalid otherwise.
//
// Defaults: 10 MB warning, 20 MB critical, 50 MB emergency.
//
// Example:
//
//	r, err := strada.New(strada.WithMemoryThresholds(
//	    5<<20,  // warning
//	    10<<20, // critical
//	    25<<20, // emergency
//	))
func WithMemoryThresholds(warning, critical, emergency uint64) Option {
	return func(r *Router) {
		r.memThresholds = MemoryThresholds{
			Warning:   warning,
			Critical:  critical,
			Emergency: emergency,
		}
	}
}

// WithMemoryCheckInterval sets how often the background memory monitor
// samples cache size. Intervals below one second are clamped to one second.
// Default is 30 seconds.
func WithMemoryCheckInterval(interval time.Duration) Option {
	return func(r *Router) {
		if interval < time.Second {
			interval = time.Second
		}
		r.memInterval = interval
	}
}

// WithoutMemoryManagement disables the background memory monitor. Explicit
// CheckMemoryUsage calls still work; nothing runs periodically.
func WithoutMemoryManagement() Option {
	return func(r *Router) {
		r.memDisabled = true
	}
}

// WithBloomFilter overrides sizing of the negative-lookup bloom filter
// built during Warmup. size is the bit count, hashFuncs the number of
// probe functions (1-5). New returns ErrBloomFilterSizeZero or
// ErrBloomHashFunctionsInvalid for out-of-range values.
//
// Left unset, the filter is sized from the registered route count.
func WithBloomFilter(size uint64, hashFuncs int) Option {
	return func(r *Router) {
		r.bloomSet = true
		r.bloomSize = size
		r.bloomHashes = hashFuncs
	}
}

// WithClock overrides the time source used for usage tracking and
// dispatch latency measurement. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Router) {
		if now != nil {
			r.now = now
		}
	}
}

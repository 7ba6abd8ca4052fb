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
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

func newTestMetrics(t *testing.T, opts ...MetricsOption) *MetricsRecorder {
	t.Helper()
	m, err := NewMetricsRecorder(opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, m.Shutdown(ctx))
	})
	return m
}

func TestNewMetricsRecorderDefaultsToPrometheus(t *testing.T) {
	t.Parallel()

	m := newTestMetrics(t)
	assert.Equal(t, PrometheusProvider, m.provider)
	assert.NotNil(t, m.PrometheusHandler())
}

func TestNewMetricsRecorderStdoutProvider(t *testing.T) {
	t.Parallel()

	m := newTestMetrics(t, WithStdoutProvider(), WithExportInterval(time.Hour))
	assert.Nil(t, m.PrometheusHandler())
}

func TestNewMetricsRecorderCustomMeterProvider(t *testing.T) {
	t.Parallel()

	mp := sdkmetric.NewMeterProvider()
	t.Cleanup(func() {
		require.NoError(t, mp.Shutdown(context.Background()))
	})

	m, err := NewMetricsRecorder(WithMeterProvider(mp))
	require.NoError(t, err)
	assert.Nil(t, m.PrometheusHandler())
	// Shutdown must not touch a user-owned provider.
	require.NoError(t, m.Shutdown(context.Background()))
	require.NoError(t, m.Shutdown(context.Background()))
}

func TestNewMetricsRecorderNilCustomProvider(t *testing.T) {
	t.Parallel()

	_, err := NewMetricsRecorder(WithMeterProvider(nil))
	require.Error(t, err)
}

func TestMustNewMetricsRecorderPanics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		MustNewMetricsRecorder(WithMeterProvider(nil))
	})
}

func TestDispatchMetricsAppearOnScrape(t *testing.T) {
	t.Parallel()

	m := newTestMetrics(t)
	r := newTestRouter(t, WithMetrics(m))
	require.NoError(t, r.GET("/users/:id<int>", noopHandler))

	for range 5 {
		_, ok := r.Resolve("GET", "/users/42")
		require.True(t, ok)
	}
	_, ok := r.Resolve("GET", "/missing")
	require.False(t, ok)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	m.PrometheusHandler().ServeHTTP(rec, req)

	body := rec.Body.String()
	assert.Contains(t, body, "strada_dispatch_total")
	assert.Contains(t, body, "strada_dispatch_duration_seconds")
	assert.Contains(t, body, `tier="optimized"`)
	assert.Contains(t, body, `matched="false"`)
}

func TestMemoryMetricsAppearOnScrape(t *testing.T) {
	t.Parallel()

	m := newTestMetrics(t)
	r := newTestRouter(t, WithMetrics(m), WithMemoryThresholds(1, 2, 3))
	require.NoError(t, r.GET("/users/:id<int>", noopHandler))
	_, ok := r.Resolve("GET", "/users/1")
	require.True(t, ok)

	report := r.Memory().CheckMemoryUsage()
	require.Equal(t, PressureEmergency, report.Level)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	m.PrometheusHandler().ServeHTTP(rec, req)

	body := rec.Body.String()
	assert.Contains(t, body, "strada_route_memory_bytes")
	assert.Contains(t, body, "strada_freed_bytes_total")
	assert.Contains(t, body, `level="emergency"`)
}

func TestDefaultEventHandler(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h := DefaultEventHandler(logger)

	h(Event{Type: EventError, Message: "boom", Args: []any{"k", "v"}})
	h(Event{Type: EventWarning, Message: "watch out"})
	h(Event{Type: EventInfo, Message: "fyi"})
	h(Event{Type: EventDebug, Message: "trace"})

	out := buf.String()
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "boom")
	assert.Contains(t, out, "k=v")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "level=INFO")
	assert.Contains(t, out, "level=DEBUG")
}

func TestMetricsRecorderEventHandler(t *testing.T) {
	t.Parallel()

	var events []Event
	m := newTestMetrics(t, WithEventHandler(func(e Event) {
		events = append(events, e)
	}))

	m.emit(EventInfo, "hello", "answer", 42)
	require.Len(t, events, 1)
	assert.Equal(t, EventInfo, events[0].Type)
	assert.Equal(t, "hello", events[0].Message)
	assert.Equal(t, []any{"answer", 42}, events[0].Args)
}

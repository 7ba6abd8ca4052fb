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
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "github.com/strada-dev/strada"

// MetricsProvider selects the backing exporter for a MetricsRecorder.
type MetricsProvider string

const (
	// PrometheusProvider exposes metrics through a pull-based Prometheus
	// endpoint backed by a private registry.
	PrometheusProvider MetricsProvider = "prometheus"
	// StdoutProvider periodically dumps metrics to stdout. Intended for
	// development and tests.
	StdoutProvider MetricsProvider = "stdout"
)

// EventType represents the severity of an internal operational event.
type EventType int

const (
	// EventError indicates an error event (e.g. instrument creation failed).
	EventError EventType = iota
	// EventWarning indicates a warning event.
	EventWarning
	// EventInfo indicates an informational event.
	EventInfo
	// EventDebug indicates a debug event.
	EventDebug
)

// Event represents an internal operational event from the metrics
// recorder. Events report errors and informational messages without
// forcing a logging dependency on the caller.
type Event struct {
	Type    EventType
	Message string
	Args    []any
}

// EventHandler processes internal operational events.
//
// Example:
//
//	strada.WithEventHandler(func(e strada.Event) {
//	    if e.Type == strada.EventError {
//	        log.Printf("metrics error: %s", e.Message)
//	    }
//	})
type EventHandler func(Event)

// DefaultEventHandler returns an EventHandler that logs events to the
// provided slog.Logger at the matching level.
func DefaultEventHandler(logger *slog.Logger) EventHandler {
	return func(e Event) {
		switch e.Type {
		case EventError:
			logger.Error(e.Message, e.Args...)
		case EventWarning:
			logger.Warn(e.Message, e.Args...)
		case EventDebug:
			logger.Debug(e.Message, e.Args...)
		default:
			logger.Info(e.Message, e.Args...)
		}
	}
}

// MetricsOption configures a MetricsRecorder.
type MetricsOption func(*MetricsRecorder)

// WithPrometheusProvider selects the Prometheus exporter.
func WithPrometheusProvider() MetricsOption {
	return func(m *MetricsRecorder) {
		m.provider = PrometheusProvider
	}
}

// WithStdoutProvider selects the stdout exporter.
func WithStdoutProvider() MetricsOption {
	return func(m *MetricsRecorder) {
		m.provider = StdoutProvider
	}
}

// WithExportInterval sets the periodic export interval for push-based
// providers. Default 30s.
func WithExportInterval(interval time.Duration) MetricsOption {
	return func(m *MetricsRecorder) {
		if interval > 0 {
			m.exportInterval = interval
		}
	}
}

// WithMeterProvider supplies a user-owned meter provider, bypassing
// built-in provider construction. The recorder will not shut it down.
func WithMeterProvider(mp metric.MeterProvider) MetricsOption {
	return func(m *MetricsRecorder) {
		m.meterProvider = mp
		m.customMeterProvider = true
	}
}

// WithGlobalRegistration registers the built meter provider as the OTel
// global provider. Off by default so multiple recorders can coexist.
func WithGlobalRegistration() MetricsOption {
	return func(m *MetricsRecorder) {
		m.registerGlobal = true
	}
}

// WithEventHandler sets the handler for internal operational events.
func WithEventHandler(h EventHandler) MetricsOption {
	return func(m *MetricsRecorder) {
		m.eventHandler = h
	}
}

// MetricsRecorder publishes dispatch, cache, and memory governance metrics
// through OpenTelemetry instruments. Construct one with NewMetricsRecorder
// and attach it to a Router via WithMetrics.
type MetricsRecorder struct {
	provider            MetricsProvider
	exportInterval      time.Duration
	registerGlobal      bool
	customMeterProvider bool
	eventHandler        EventHandler

	meterProvider metric.MeterProvider
	meter         metric.Meter

	prometheusRegistry *promclient.Registry
	prometheusHandler  http.Handler

	dispatchCount    metric.Int64Counter
	dispatchDuration metric.Float64Histogram
	memoryUsage      metric.Int64Gauge
	evictedRoutes    metric.Int64Counter
	freedBytes       metric.Int64Counter
}

// NewMetricsRecorder creates a recorder with the selected provider.
// Defaults to Prometheus with a private registry.
//
//	m, err := strada.NewMetricsRecorder(strada.WithPrometheusProvider())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	http.Handle("/metrics", m.PrometheusHandler())
func NewMetricsRecorder(opts ...MetricsOption) (*MetricsRecorder, error) {
	m := &MetricsRecorder{
		provider:       PrometheusProvider,
		exportInterval: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(m)
	}

	if err := m.initializeProvider(); err != nil {
		return nil, err
	}
	return m, nil
}

// MustNewMetricsRecorder creates a recorder and panics on configuration
// errors.
func MustNewMetricsRecorder(opts ...MetricsOption) *MetricsRecorder {
	m, err := NewMetricsRecorder(opts...)
	if err != nil {
		panic(fmt.Sprintf("strada.MustNewMetricsRecorder: %v", err))
	}
	return m
}

func (m *MetricsRecorder) initializeProvider() error {
	if m.customMeterProvider {
		if m.meterProvider == nil {
			return fmt.Errorf("custom meter provider is nil")
		}
		m.meter = m.meterProvider.Meter(meterName)
		return m.initializeInstruments()
	}

	switch m.provider {
	case PrometheusProvider:
		return m.initPrometheusProvider()
	case StdoutProvider:
		return m.initStdoutProvider()
	default:
		return fmt.Errorf("unsupported metrics provider: %s", m.provider)
	}
}

func (m *MetricsRecorder) initPrometheusProvider() error {
	// Private registry avoids collisions with the global one.
	m.prometheusRegistry = promclient.NewRegistry()

	exporter, err := prometheus.New(
		prometheus.WithRegisterer(m.prometheusRegistry),
	)
	if err != nil {
		return fmt.Errorf("create prometheus exporter: %w", err)
	}

	m.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)
	m.prometheusHandler = promhttp.HandlerFor(
		m.prometheusRegistry,
		promhttp.HandlerOpts{},
	)

	if m.registerGlobal {
		otel.SetMeterProvider(m.meterProvider)
	}
	m.meter = m.meterProvider.Meter(meterName)
	return m.initializeInstruments()
}

func (m *MetricsRecorder) initStdoutProvider() error {
	exporter, err := stdoutmetric.New()
	if err != nil {
		return fmt.Errorf("create stdout exporter: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(
		exporter,
		sdkmetric.WithInterval(m.exportInterval),
	)
	m.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
	)

	if m.registerGlobal {
		otel.SetMeterProvider(m.meterProvider)
	}
	m.meter = m.meterProvider.Meter(meterName)
	return m.initializeInstruments()
}

func (m *MetricsRecorder) initializeInstruments() error {
	var err error

	m.dispatchCount, err = m.meter.Int64Counter(
		"strada_dispatch_total",
		metric.WithDescription("Route dispatches by tier and outcome"),
	)
	if err != nil {
		return fmt.Errorf("create dispatch counter: %w", err)
	}

	m.dispatchDuration, err = m.meter.Float64Histogram(
		"strada_dispatch_duration_seconds",
		metric.WithDescription("Route resolution latency"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("create dispatch histogram: %w", err)
	}

	m.memoryUsage, err = m.meter.Int64Gauge(
		"strada_route_memory_bytes",
		metric.WithDescription("Estimated route table memory usage"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return fmt.Errorf("create memory gauge: %w", err)
	}

	m.evictedRoutes, err = m.meter.Int64Counter(
		"strada_evicted_routes_total",
		metric.WithDescription("Routes evicted by memory governance"),
	)
	if err != nil {
		return fmt.Errorf("create eviction counter: %w", err)
	}

	m.freedBytes, err = m.meter.Int64Counter(
		"strada_freed_bytes_total",
		metric.WithDescription("Bytes freed by memory governance"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return fmt.Errorf("create freed-bytes counter: %w", err)
	}

	return nil
}

// PrometheusHandler returns the scrape handler for the private registry,
// or nil for non-Prometheus providers.
func (m *MetricsRecorder) PrometheusHandler() http.Handler {
	return m.prometheusHandler
}

// Shutdown flushes and stops the recorder's own meter provider.
// User-supplied providers are left untouched.
func (m *MetricsRecorder) Shutdown(ctx context.Context) error {
	if m.customMeterProvider {
		return nil
	}
	if sdk, ok := m.meterProvider.(*sdkmetric.MeterProvider); ok {
		if err := sdk.Shutdown(ctx); err != nil {
			m.emit(EventError, "meter provider shutdown failed", "error", err)
			return err
		}
	}
	return nil
}

func (m *MetricsRecorder) recordDispatch(ctx context.Context, tier Tier, matched bool, d time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("tier", tier.String()),
		attribute.Bool("matched", matched),
	)
	m.dispatchCount.Add(ctx, 1, attrs)
	m.dispatchDuration.Record(ctx, d.Seconds(), attrs)
}

func (m *MetricsRecorder) recordMemory(report MemoryReport) {
	ctx := context.Background()
	m.memoryUsage.Record(ctx, int64(report.TotalBytes),
		metric.WithAttributes(attribute.String("level", report.Level.String())))
	if report.Evicted > 0 {
		m.evictedRoutes.Add(ctx, int64(report.Evicted))
	}
	if report.FreedBytes > 0 {
		m.freedBytes.Add(ctx, int64(report.FreedBytes))
	}
}

func (m *MetricsRecorder) emit(t EventType, msg string, args ...any) {
	if m.eventHandler != nil {
		m.eventHandler(Event{Type: t, Message: msg, Args: args})
	}
}

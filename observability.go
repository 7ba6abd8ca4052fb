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
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DispatchInfo describes one completed dispatch attempt. It is handed to
// DispatchRecorder implementations after resolution finishes, whether or
// not a route matched.
//
// RoutePattern is the matched route's registered template (e.g.
// "/users/:id<int>"), or empty when no route matched. Implementations
// should key metrics on RoutePattern rather than Path to avoid
// cardinality explosion.
type DispatchInfo struct {
	Method       string
	Path         string
	RoutePattern string
	Tier         Tier
	Matched      bool
	Duration     time.Duration
}

// DispatchRecorder provides observability lifecycle hooks for dispatch.
// Implementations typically combine metrics collection and trace span
// enrichment.
//
// Lifecycle:
//  1. Router calls OnDispatchStart(ctx, method, path) → (enrichedCtx, state)
//     - Returns enriched context (e.g. with a span attribute set)
//     - Returns an opaque state token (nil to exclude this dispatch)
//  2. Router resolves the path using the enriched context
//  3. Router calls OnDispatchEnd(ctx, state, info) only if state != nil
//
// Thread safety: all methods must be safe for concurrent use.
type DispatchRecorder interface {
	// OnDispatchStart is called before resolution begins. Return
	// (enrichedCtx, nil) to exclude the dispatch from OnDispatchEnd while
	// still enriching the context.
	OnDispatchStart(ctx context.Context, method, path string) (context.Context, any)

	// OnDispatchEnd is called after resolution completes. Only called when
	// the state token from OnDispatchStart was non-nil. state is opaque to
	// the router.
	OnDispatchEnd(ctx context.Context, state any, info DispatchInfo)
}

// TraceRecorder is a DispatchRecorder that annotates the active
// OpenTelemetry span with dispatch outcomes. It creates no spans of its
// own; the surrounding server owns span lifecycle.
//
// Example:
//
//	r := strada.MustNew(strada.WithDispatchRecorder(strada.NewTraceRecorder()))
type TraceRecorder struct{}

// NewTraceRecorder creates a recorder that emits span events for each
// dispatch onto whatever span is carried in the context.
func NewTraceRecorder() *TraceRecorder {
	return &TraceRecorder{}
}

func (*TraceRecorder) OnDispatchStart(ctx context.Context, method, path string) (context.Context, any) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return ctx, nil
	}
	return ctx, span
}

func (*TraceRecorder) OnDispatchEnd(ctx context.Context, state any, info DispatchInfo) {
	span, ok := state.(trace.Span)
	if !ok {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("dispatch.method", info.Method),
		attribute.String("dispatch.tier", info.Tier.String()),
		attribute.Bool("dispatch.matched", info.Matched),
		attribute.Int64("dispatch.duration_us", info.Duration.Microseconds()),
	}
	if info.Matched {
		attrs = append(attrs, attribute.String("dispatch.route", info.RoutePattern))
	}
	span.AddEvent("route.dispatch", trace.WithAttributes(attrs...))
}

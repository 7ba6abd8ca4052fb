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

// DiagnosticEvent represents a routing-table diagnostic or anomaly.
// These are informational events that may indicate configuration issues
// or security concerns.
//
// Diagnostic events are optional - the router functions correctly whether
// they are collected or not. They provide visibility into edge cases and
// potential issues for observability systems.
type DiagnosticEvent struct {
	Kind    DiagnosticKind
	Message string
	Fields  map[string]any // Structured context
}

// DiagnosticKind categorizes diagnostic events.
type DiagnosticKind string

const (
	// Security-related diagnostics
	DiagUnsafePattern DiagnosticKind = "unsafe_pattern_rejected"

	// Memory governance diagnostics
	DiagMemoryPressure DiagnosticKind = "memory_pressure"
	DiagEmergencyClear DiagnosticKind = "emergency_cache_clear"
	DiagRouteEvicted   DiagnosticKind = "route_evicted"

	// Configuration diagnostics
	DiagHighParamCount  DiagnosticKind = "route_param_count_high"
	DiagRouteRegistered DiagnosticKind = "route_registered"
	DiagMethodAdded     DiagnosticKind = "method_added"
)

// DiagnosticHandler receives diagnostic events from the router.
// Implementations may log, emit metrics, trace events, or ignore them.
//
// This interface is optional - if not provided, diagnostics are silently
// dropped. The router's behavior is unchanged whether diagnostics are
// collected or not.
//
// Example with logging:
//
//	import "log/slog"
//
//	handler := strada.DiagnosticHandlerFunc(func(e strada.DiagnosticEvent) {
//	    slog.Warn(e.Message, "kind", e.Kind, "fields", e.Fields)
//	})
//	r := strada.MustNew(strada.WithDiagnostics(handler))
//
// Example with metrics:
//
//	handler := strada.DiagnosticHandlerFunc(func(e strada.DiagnosticEvent) {
//	    metrics.Increment("router.diagnostics", "kind", string(e.Kind))
//	})
type DiagnosticHandler interface {
	OnDiagnostic(DiagnosticEvent)
}

// DiagnosticHandlerFunc is a function adapter for DiagnosticHandler.
type DiagnosticHandlerFunc func(DiagnosticEvent)

func (f DiagnosticHandlerFunc) OnDiagnostic(e DiagnosticEvent) {
	f(e)
}

// emitDiagnostic sends an event to the configured handler, if any.
func (r *Router) emitDiagnostic(kind DiagnosticKind, message string, fields map[string]any) {
	if r.diagnostics == nil {
		return
	}
	r.diagnostics.OnDiagnostic(DiagnosticEvent{
		Kind:    kind,
		Message: message,
		Fields:  fields,
	})
}

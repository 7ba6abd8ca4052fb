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
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/strada-dev/strada/compiler"
	"github.com/strada-dev/strada/route"
)

// noopLogger is a singleton no-op logger used when no observability is configured.
var noopLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// NoopLogger returns the singleton no-op logger.
// Implementations of DispatchRecorder can use it when logging is disabled.
func NoopLogger() *slog.Logger {
	return noopLogger
}

const (
	defaultBloomHashFunctions  = 3
	defaultMemoryCheckInterval = 30 * time.Second

	// Routes carrying more parameters than this trigger a diagnostic;
	// extraction cost grows linearly with parameter count.
	highParamThreshold = 8
)

// methodIndex splits one verb's routes into an exact-match static table and
// a matcher-evaluated dynamic list. Dynamic routes keep registration order.
type methodIndex struct {
	static  map[string]*route.Route
	dynamic []*route.Route
}

func newMethodIndex() *methodIndex {
	return &methodIndex{static: make(map[string]*route.Route, 16)}
}

func (mi *methodIndex) insert(rt *route.Route) {
	if rt.IsStatic() {
		mi.static[rt.Path] = rt
	} else {
		mi.dynamic = append(mi.dynamic, rt)
	}
}

// groupIndex is one group's per-method sub-index, used by tier-1 dispatch.
// Group middleware is not kept here: Register merges it into each route's
// own chain, so dispatch returns routes with the chain already complete.
type groupIndex struct {
	prefix  string
	methods map[string]*methodIndex
}

func (g *groupIndex) method(verb string) *methodIndex {
	mi, ok := g.methods[verb]
	if !ok {
		mi = newMethodIndex()
		g.methods[verb] = mi
	}
	return mi
}

// Router is an explicit route registry and dispatcher. There is no global
// instance: application bootstrap owns one Router and shares it by
// reference, which keeps independent routers possible in tests.
//
// Registration is the cold path and is expected to finish before the first
// Resolve call; it is guarded by a mutex. Dispatch is the hot path: it only
// reads the indices and writes memoization caches, where a duplicated write
// of a deterministic value is harmless.
//
// Example:
//
//	r := strada.MustNew()
//	r.GET("/users/:id<int>", getUser)
//	r.Warmup()
//
//	if m, ok := r.Resolve("GET", "/users/42"); ok {
//	    _ = m.Params["id"] // "42"
//	}
type Router struct {
	mu sync.RWMutex

	methods map[string]struct{}
	routes  []*route.Route // legacy full-route list, registration order
	index   map[string]*methodIndex
	groups  map[string]*groupIndex

	// Known group prefixes sorted length-descending for longest-prefix
	// matching during tier-1 dispatch.
	sortedPrefixes []string

	// Registration-time scope: active group prefix stack and the combined
	// middleware of the enclosing groups, outermost first.
	prefixStack []string
	scopeMW     []any

	cache *Cache

	// Dispatch memos. Held behind atomic pointers so Clear can swap in
	// fresh maps without a partially-cleared state being observable.
	exactMemo  atomic.Pointer[sync.Map] // "METHOD::path" -> *memoEntry
	prefixMemo atomic.Pointer[sync.Map] // "METHOD::path" -> string ("" = no group)

	bloom       atomic.Pointer[compiler.BloomFilter]
	bloomSet    bool
	bloomSize   uint64
	bloomHashes int

	stats      dispatchCounters
	warmupOnce atomic.Pointer[sync.Once]

	memory        *MemoryManager
	memThresholds MemoryThresholds
	memInterval   time.Duration
	memDisabled   bool

	diagnostics DiagnosticHandler
	recorder    DispatchRecorder
	metrics     *MetricsRecorder
	logger      *slog.Logger
	now         func() time.Time
}

// New creates a Router with the default verb set (GET, POST, PUT, DELETE,
// PATCH, OPTIONS, HEAD) and default memory thresholds. Configuration is
// validated here so invalid options fail construction, not first use.
//
//	r, err := strada.New(
//	    strada.WithMemoryThresholds(5<<20, 10<<20, 25<<20),
//	    strada.WithDiagnostics(handler),
//	)
func New(opts ...Option) (*Router, error) {
	r := &Router{
		methods: map[string]struct{}{
			"GET": {}, "POST": {}, "PUT": {}, "DELETE": {},
			"PATCH": {}, "OPTIONS": {}, "HEAD": {},
		},
		index:         make(map[string]*methodIndex, 8),
		groups:        make(map[string]*groupIndex, 8),
		cache:         NewCache(),
		bloomHashes:   defaultBloomHashFunctions,
		memThresholds: DefaultMemoryThresholds(),
		memInterval:   defaultMemoryCheckInterval,
		logger:        noopLogger,
		now:           time.Now,
	}
	r.exactMemo.Store(&sync.Map{})
	r.prefixMemo.Store(&sync.Map{})
	r.warmupOnce.Store(&sync.Once{})

	for _, opt := range opts {
		opt(r)
	}

	if err := r.validate(); err != nil {
		return nil, fmt.Errorf("router configuration validation failed: %w", err)
	}

	r.memory = newMemoryManager(r)
	if !r.memDisabled {
		r.memory.start(r.memInterval)
	}

	return r, nil
}

// MustNew creates a Router and panics if configuration is invalid. This is
// a convenience wrapper around New for cases where configuration errors
// should fail the application immediately at startup.
func MustNew(opts ...Option) *Router {
	r, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("strada.MustNew: %v", err))
	}
	return r
}

// validate checks the router configuration for common errors. Called
// automatically by New. Routes are validated at registration time, not
// here, because registration happens after New returns.
func (r *Router) validate() error {
	t := r.memThresholds
	if t.Warning == 0 || t.Critical <= t.Warning || t.Emergency <= t.Critical {
		return fmt.Errorf("%w: warning=%d critical=%d emergency=%d",
			ErrMemoryThresholdsInvalid, t.Warning, t.Critical, t.Emergency)
	}
	if r.bloomSet && r.bloomSize == 0 {
		return ErrBloomFilterSizeZero
	}
	if r.bloomHashes <= 0 || r.bloomHashes > 5 {
		return fmt.Errorf("%w: got %d", ErrBloomHashFunctionsInvalid, r.bloomHashes)
	}
	return nil
}

// Register adds a route for an explicit method. Verb helpers (GET, POST,
// ...) are thin wrappers around this. Metadata is sanitized to a JSON-safe
// form before being attached.
//
// Registration fails synchronously when the method is outside the verb set,
// the handler or any middleware is not callable, or the path's constraints
// are rejected by the safety validator. These are programmer errors and
// should abort startup.
func (r *Router) Register(method, path string, handler any, middleware []any, metadata map[string]any) error {
	verb := strings.ToUpper(strings.TrimSpace(method))
	if _, ok := r.supported(verb); !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedMethod, method)
	}
	if path == "" {
		return ErrEmptyPath
	}
	if !isCallable(handler) {
		return fmt.Errorf("%w: %s %s", ErrHandlerNotCallable, verb, path)
	}
	for i, mw := range middleware {
		if !isCallable(mw) {
			return fmt.Errorf("%w: entry %d on %s %s", ErrMiddlewareNotCallable, i, verb, path)
		}
	}

	r.mu.Lock()

	prefix := r.currentPrefix()
	fullPath := route.JoinPath(prefix, path)

	pattern, err := r.cache.GetOrCompile(fullPath)
	if err != nil {
		r.mu.Unlock()
		r.emitDiagnostic(DiagUnsafePattern, "route pattern rejected", map[string]any{
			"method": verb,
			"path":   fullPath,
			"error":  err.Error(),
		})
		return fmt.Errorf("register %s %s: %w", verb, fullPath, err)
	}

	// Group middleware runs before the route's own chain.
	chain := make([]any, 0, len(r.scopeMW)+len(middleware))
	chain = append(chain, r.scopeMW...)
	chain = append(chain, middleware...)

	rt := &route.Route{
		Method:      verb,
		Path:        fullPath,
		Pattern:     pattern,
		Handler:     handler,
		Middleware:  chain,
		Metadata:    route.SanitizeMetadata(metadata),
		GroupPrefix: prefix,
	}

	r.routes = append(r.routes, rt)

	mi, ok := r.index[verb]
	if !ok {
		mi = newMethodIndex()
		r.index[verb] = mi
	}
	mi.insert(rt)

	if prefix != "" {
		r.groups[prefix].method(verb).insert(rt)
	}
	r.mu.Unlock()

	if n := len(pattern.Params); n > highParamThreshold {
		r.emitDiagnostic(DiagHighParamCount, "route declares many parameters", map[string]any{
			"path":  fullPath,
			"count": n,
		})
	}
	r.emitDiagnostic(DiagRouteRegistered, "route registered", map[string]any{
		"method": verb,
		"path":   fullPath,
		"static": rt.IsStatic(),
	})

	return nil
}

// AddMethod extends the supported verb set with a custom method, e.g.
// "PURGE" or "REPORT". The verb must be non-empty ASCII letters.
func (r *Router) AddMethod(verb string) error {
	v := strings.ToUpper(strings.TrimSpace(verb))
	if v == "" {
		return fmt.Errorf("%w: empty", ErrInvalidMethod)
	}
	for _, c := range v {
		if c < 'A' || c > 'Z' {
			return fmt.Errorf("%w: %q", ErrInvalidMethod, verb)
		}
	}

	r.mu.Lock()
	r.methods[v] = struct{}{}
	r.mu.Unlock()

	r.emitDiagnostic(DiagMethodAdded, "custom method added", map[string]any{"method": v})
	return nil
}

// Group registers routes under a shared prefix with shared middleware.
// The prefix is normalized and pushed onto the active-prefix stack for the
// duration of body; routes registered inside body inherit it implicitly.
// The stack is restored on every exit path, including a panicking body.
//
// Nested groups compose prefixes and concatenate middleware outermost
// first:
//
//	r.Group("/v1", func(v1 *strada.Router) {
//	    v1.Group("/api", func(api *strada.Router) {
//	        api.GET("/users/:id", handler) // /v1/api/users/:id, [mwB, mwA]
//	    }, mwA)
//	}, mwB)
func (r *Router) Group(prefix string, body func(*Router), middleware ...any) error {
	if body == nil {
		return ErrNilGroupBody
	}
	if strings.TrimSpace(prefix) == "" || strings.ContainsAny(prefix, " \t\n") {
		return fmt.Errorf("%w: %q", ErrInvalidGroupPrefix, prefix)
	}
	for i, mw := range middleware {
		if !isCallable(mw) {
			return fmt.Errorf("%w: entry %d on group %s", ErrMiddlewareNotCallable, i, prefix)
		}
	}

	r.mu.Lock()
	full := route.JoinPrefix(r.currentPrefix(), route.NormalizePrefix(prefix))
	r.prefixStack = append(r.prefixStack, full)
	savedMW := len(r.scopeMW)
	r.scopeMW = append(r.scopeMW, middleware...)
	if _, ok := r.groups[full]; !ok {
		r.groups[full] = &groupIndex{
			prefix:  full,
			methods: make(map[string]*methodIndex, 4),
		}
	}
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.prefixStack = r.prefixStack[:len(r.prefixStack)-1]
		r.scopeMW = r.scopeMW[:savedMW]
		if !slices.Contains(r.sortedPrefixes, full) {
			r.sortedPrefixes = append(r.sortedPrefixes, full)
			slices.SortFunc(r.sortedPrefixes, func(a, b string) int {
				return len(b) - len(a)
			})
		}
		r.mu.Unlock()
	}()

	body(r)
	return nil
}

// Warmup eagerly compiles every registered template and builds the
// negative-lookup bloom filter over static route keys. Useful at boot to
// avoid first-request compilation latency. Subsequent calls are no-ops
// until Clear.
func (r *Router) Warmup() {
	r.warmupOnce.Load().Do(func() {
		r.mu.RLock()
		routes := slices.Clone(r.routes)
		size := r.bloomSize
		hashes := r.bloomHashes
		r.mu.RUnlock()

		if size == 0 {
			size = compiler.OptimalBloomSize(len(routes))
		}
		bf := compiler.NewBloomFilter(size, hashes)

		for _, rt := range routes {
			if _, err := r.cache.GetOrCompile(rt.Path); err != nil {
				// Registered routes already compiled once; unreachable.
				r.logger.Warn("warmup compile failed", "path", rt.Path, "error", err)
				continue
			}
			if rt.IsStatic() {
				bf.Add(rt.Key())
			}
		}
		r.bloom.Store(bf)
	})
}

// Clear resets every index, memo, and statistic, and delegates to the
// cache's Clear. Intended for test teardown and hot-reload. Memo maps are
// swapped atomically; in-flight dispatches see either the old complete
// state or the new empty one.
func (r *Router) Clear() {
	r.mu.Lock()
	r.routes = nil
	r.index = make(map[string]*methodIndex, 8)
	r.groups = make(map[string]*groupIndex, 8)
	r.sortedPrefixes = nil
	r.prefixStack = nil
	r.scopeMW = nil
	r.mu.Unlock()

	r.exactMemo.Store(&sync.Map{})
	r.prefixMemo.Store(&sync.Map{})
	r.bloom.Store(nil)
	r.warmupOnce.Store(&sync.Once{})
	r.stats.reset()
	r.cache.Clear()
	r.memory.resetUsage()
}

// Shutdown stops the background memory monitor and performs a best-effort
// warning-tier cleanup if usage exceeds the warning threshold. Call once
// at the end of the process lifetime.
func (r *Router) Shutdown() {
	r.memory.Shutdown()
}

// Cache returns the router's pattern cache for statistics inspection.
func (r *Router) Cache() *Cache {
	return r.cache
}

// Memory returns the router's memory manager.
func (r *Router) Memory() *MemoryManager {
	return r.memory
}

// Routes returns a snapshot of all registered routes in registration
// order. The slice is a copy; the routes are shared.
func (r *Router) Routes() []*route.Route {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.routes)
}

// Methods returns the supported verb set, sorted.
func (r *Router) Methods() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.methods))
	for m := range r.methods {
		out = append(out, m)
	}
	r.mu.RUnlock()
	slices.Sort(out)
	return out
}

// AvailableShortcuts exposes the constraint shortcut table for
// introspection.
func (r *Router) AvailableShortcuts() map[string]string {
	return compiler.Shortcuts()
}

func (r *Router) supported(verb string) (string, bool) {
	r.mu.RLock()
	_, ok := r.methods[verb]
	r.mu.RUnlock()
	return verb, ok
}

// currentPrefix returns the innermost active group prefix. Caller holds mu.
func (r *Router) currentPrefix() string {
	if len(r.prefixStack) == 0 {
		return ""
	}
	return r.prefixStack[len(r.prefixStack)-1]
}

// isCallable reports whether v is a function value. Handlers and
// middleware are opaque to the router; invocation belongs to the pipeline,
// but non-callable values are still rejected at registration.
func isCallable(v any) bool {
	if v == nil {
		return false
	}
	return reflect.ValueOf(v).Kind() == reflect.Func
}

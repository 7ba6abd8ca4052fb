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
	"maps"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/strada-dev/strada/compiler"
	"github.com/strada-dev/strada/route"
)

// Tier identifies which dispatch strategy satisfied a resolution.
type Tier uint8

const (
	// TierNone marks an unmatched dispatch.
	TierNone Tier = iota
	// TierGroup is the group-indexed longest-prefix lookup.
	TierGroup
	// TierOptimized is the global static/dynamic split index lookup.
	TierOptimized
	// TierLegacy is the compatibility linear scan over the full route list.
	TierLegacy
)

func (t Tier) String() string {
	switch t {
	case TierGroup:
		return "group"
	case TierOptimized:
		return "optimized"
	case TierLegacy:
		return "legacy"
	default:
		return "none"
	}
}

// Match is the tagged result of a successful resolution. Params holds
// named parameter values keyed by declaration name; Anonymous holds the
// values captured by raw regex-block groups, in capture order. Static
// matches carry empty maps and slices.
type Match struct {
	Route     *route.Route
	Params    map[string]string
	Anonymous []string
	Tier      Tier
}

// memoEntry is the immutable value stored in the exact-match memo. The
// params map and anonymous slice are shared between lookups of the same
// path; Match copies both before handing them to callers.
type memoEntry struct {
	route     *route.Route
	params    map[string]string
	anonymous []string
}

func (e *memoEntry) match(tier Tier) *Match {
	return &Match{
		Route:     e.route,
		Params:    maps.Clone(e.params),
		Anonymous: slices.Clone(e.anonymous),
		Tier:      tier,
	}
}

// dispatchCounters tracks per-tier hits, misses, and latency. All fields
// are atomics; Stats reads are approximate snapshots under concurrency.
type dispatchCounters struct {
	groupHits     atomic.Uint64
	optimizedHits atomic.Uint64
	legacyHits    atomic.Uint64
	misses        atomic.Uint64
	totalNanos    atomic.Int64
	samples       atomic.Uint64
}

func (c *dispatchCounters) record(tier Tier, d time.Duration) {
	switch tier {
	case TierGroup:
		c.groupHits.Add(1)
	case TierOptimized:
		c.optimizedHits.Add(1)
	case TierLegacy:
		c.legacyHits.Add(1)
	default:
		c.misses.Add(1)
	}
	c.totalNanos.Add(int64(d))
	c.samples.Add(1)
}

func (c *dispatchCounters) reset() {
	c.groupHits.Store(0)
	c.optimizedHits.Store(0)
	c.legacyHits.Store(0)
	c.misses.Store(0)
	c.totalNanos.Store(0)
	c.samples.Store(0)
}

// DispatchStats is a point-in-time snapshot of dispatch counters.
type DispatchStats struct {
	GroupHits       uint64        `json:"group_hits"`
	OptimizedHits   uint64        `json:"optimized_hits"`
	TraditionalHits uint64        `json:"traditional_hits"`
	Misses          uint64        `json:"misses"`
	AverageLatency  time.Duration `json:"average_latency"`
}

// Stats returns dispatch statistics since construction or the last Clear.
func (r *Router) Stats() DispatchStats {
	s := DispatchStats{
		GroupHits:       r.stats.groupHits.Load(),
		OptimizedHits:   r.stats.optimizedHits.Load(),
		TraditionalHits: r.stats.legacyHits.Load(),
		Misses:          r.stats.misses.Load(),
	}
	if n := r.stats.samples.Load(); n > 0 {
		s.AverageLatency = time.Duration(uint64(r.stats.totalNanos.Load()) / n)
	}
	return s
}

// Resolve matches a method and path against the registered routes. The
// boolean result distinguishes a match from the normal no-route outcome;
// no-route is never an error.
func (r *Router) Resolve(method, path string) (*Match, bool) {
	return r.ResolveContext(context.Background(), method, path)
}

// ResolveContext is Resolve with a caller context, letting the configured
// DispatchRecorder enrich trace spans carried in ctx. Resolution itself is
// synchronous and bounded; the context is not consulted for cancellation.
func (r *Router) ResolveContext(ctx context.Context, method, path string) (*Match, bool) {
	start := r.now()

	var state any
	if r.recorder != nil {
		ctx, state = r.recorder.OnDispatchStart(ctx, method, path)
	}

	m := r.resolve(strings.ToUpper(method), canonicalPath(path))
	elapsed := r.now().Sub(start)

	tier := TierNone
	if m != nil {
		tier = m.Tier
		if tier != TierLegacy {
			r.memory.TrackUsage(m.Route)
		}
	}
	r.stats.record(tier, elapsed)

	if r.metrics != nil {
		r.metrics.recordDispatch(ctx, tier, m != nil, elapsed)
	}
	if r.recorder != nil && state != nil {
		info := DispatchInfo{
			Method:   method,
			Path:     path,
			Tier:     tier,
			Matched:  m != nil,
			Duration: elapsed,
		}
		if m != nil {
			info.RoutePattern = m.Route.Path
		}
		r.recorder.OnDispatchEnd(ctx, state, info)
	}

	if m == nil {
		return nil, false
	}
	return m, true
}

// canonicalPath strips a single trailing slash so "/users/42" and
// "/users/42/" hit the same exact-match entries. Matchers are anchored
// with "/?$" and agree with this normalization.
func canonicalPath(path string) string {
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		return path[:len(path)-1]
	}
	return path
}

// resolve runs the three dispatch tiers in order. Each tier is consulted
// only when the previous one misses.
func (r *Router) resolve(method, path string) *Match {
	key := route.Key(method, path)

	if m := r.resolveGroup(method, path, key); m != nil {
		return m
	}
	if m := r.resolveOptimized(method, path, key); m != nil {
		return m
	}
	return r.resolveLegacy(method, path)
}

// resolveGroup is tier 1: longest-prefix group lookup with a memoized
// path→prefix mapping, including a memoized "no group" outcome so
// ungrouped paths skip the prefix scan after first sight.
func (r *Router) resolveGroup(method, path, key string) *Match {
	memo := r.prefixMemo.Load()

	var prefix string
	if v, ok := memo.Load(key); ok {
		prefix = v.(string)
	} else {
		prefix = r.longestPrefix(path)
		memo.Store(key, prefix)
	}
	if prefix == "" {
		return nil
	}

	r.mu.RLock()
	g := r.groups[prefix]
	var mi *methodIndex
	if g != nil {
		mi = g.methods[method]
	}
	var static *route.Route
	var dynamic []*route.Route
	if mi != nil {
		static = mi.static[path]
		dynamic = mi.dynamic
	}
	r.mu.RUnlock()

	if static != nil {
		return &Match{Route: static, Params: map[string]string{}, Tier: TierGroup}
	}
	for _, rt := range dynamic {
		if params, anon, ok := matchPattern(rt.Pattern, path); ok {
			return &Match{Route: rt, Params: params, Anonymous: anon, Tier: TierGroup}
		}
	}
	return nil
}

// longestPrefix finds the longest registered group prefix that prefixes
// path on a segment boundary. Returns "" when no group matches.
func (r *Router) longestPrefix(path string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.sortedPrefixes {
		if path == p {
			return p
		}
		if strings.HasPrefix(path, p) && len(path) > len(p) && path[len(p)] == '/' {
			return p
		}
	}
	return ""
}

// resolveOptimized is tier 2: exact-match memo, then the per-method index
// split into static and dynamic subsets, static probed first. Dynamic
// matches are memoized; a duplicated racing write stores an equal value.
func (r *Router) resolveOptimized(method, path, key string) *Match {
	memo := r.exactMemo.Load()
	if v, ok := memo.Load(key); ok {
		return v.(*memoEntry).match(TierOptimized)
	}

	// A bloom miss means the key is definitely not a static route; the
	// static probe is skipped entirely. The probe reads the index, not the
	// cache: the index survives an emergency cache clear, so static routes
	// keep resolving here while the cache repopulates on demand.
	if bf := r.bloom.Load(); bf == nil || bf.Test(key) {
		r.mu.RLock()
		mi := r.index[method]
		var static *route.Route
		if mi != nil {
			static = mi.static[path]
		}
		r.mu.RUnlock()

		if static != nil {
			e := &memoEntry{route: static, params: map[string]string{}}
			memo.Store(key, e)
			return e.match(TierOptimized)
		}
	}

	return r.scanDynamic(method, path, key, memo)
}

func (r *Router) scanDynamic(method, path, key string, memo *sync.Map) *Match {
	r.mu.RLock()
	mi := r.index[method]
	var dynamic []*route.Route
	if mi != nil {
		dynamic = mi.dynamic
	}
	r.mu.RUnlock()

	for _, rt := range dynamic {
		params, anon, ok := matchPattern(rt.Pattern, path)
		if !ok {
			continue
		}
		e := &memoEntry{route: rt, params: params, anonymous: anon}
		memo.Store(key, e)
		return e.match(TierOptimized)
	}
	return nil
}

// resolveLegacy is tier 3: a compatibility linear scan over the full route
// list, recompiling patterns inline. Never the hot path; it exists so
// routes registered through any non-standard channel still resolve.
func (r *Router) resolveLegacy(method, path string) *Match {
	r.mu.RLock()
	routes := r.routes
	r.mu.RUnlock()

	for _, rt := range routes {
		if rt.Method != method {
			continue
		}
		if rt.Path == path {
			return &Match{Route: rt, Params: map[string]string{}, Tier: TierLegacy}
		}
		p, err := compiler.Compile(rt.Path)
		if err != nil || p.IsStatic() {
			continue
		}
		if params, anon, ok := matchPattern(p, path); ok {
			return &Match{Route: rt, Params: params, Anonymous: anon, Tier: TierLegacy}
		}
	}
	return nil
}

// matchPattern evaluates a compiled pattern against a path and maps
// capture groups back through the parameter descriptors. Anonymous
// parameters consume their capture slot but are excluded from the named
// map.
func matchPattern(p *compiler.Pattern, path string) (map[string]string, []string, bool) {
	if p == nil || p.Matcher == nil {
		return nil, nil, false
	}
	m := p.Matcher.FindStringSubmatch(path)
	if m == nil {
		return nil, nil, false
	}

	params := make(map[string]string, len(p.Params))
	var anon []string
	for _, param := range p.Params {
		v := m[param.Position]
		if param.Anonymous {
			anon = append(anon, v)
			continue
		}
		params[param.Name] = v
	}
	return params, anon, true
}

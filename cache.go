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
	"encoding/binary"
	"encoding/json"
	"hash/fnv"
	"sync"
	"sync/atomic"

	"github.com/strada-dev/strada/compiler"
)

// Cache memoizes compiler output keyed by the raw path template, and tracks
// which templates are static (exact-string matchable) versus dynamic.
// The static and dynamic sets are mutually exclusive, mirroring the
// compiler's nil-matcher invariant.
//
// All methods are safe for concurrent use. Clear swaps the internal state
// pointer atomically, so no partially-cleared state is ever observable.
type Cache struct {
	state atomic.Pointer[cacheState]

	hits         atomic.Uint64
	misses       atomic.Uint64
	compilations atomic.Uint64

	// Memory estimation is serialization-based and therefore expensive; the
	// estimate is cached and recomputed only when the composite hash of the
	// entry counts changes, not on every stats query.
	sizeHash  atomic.Uint64
	sizeBytes atomic.Uint64

	// Evictions leave slack in the state maps until Compact reallocates
	// them.
	evictedSinceCompact atomic.Uint64
}

type cacheState struct {
	mu       sync.RWMutex
	patterns map[string]*compiler.Pattern
	static   map[string]struct{}
	dynamic  map[string]struct{}
}

func newCacheState() *cacheState {
	return &cacheState{
		patterns: make(map[string]*compiler.Pattern, 64),
		static:   make(map[string]struct{}, 48),
		dynamic:  make(map[string]struct{}, 16),
	}
}

// NewCache creates an empty route pattern cache.
func NewCache() *Cache {
	c := &Cache{}
	c.state.Store(newCacheState())
	return c
}

// CacheStats is a point-in-time snapshot of cache counters.
type CacheStats struct {
	Hits              uint64  `json:"hits"`
	Misses            uint64  `json:"misses"`
	Compilations      uint64  `json:"compilations"`
	CachedPatterns    int     `json:"cached_patterns"`
	StaticRoutes      int     `json:"static_routes"`
	DynamicRoutes     int     `json:"dynamic_routes"`
	HitRate           float64 `json:"hit_rate"`
	ApproxMemoryBytes uint64  `json:"approx_memory_bytes"`
}

// GetOrCompile returns the compiled pattern for a template, compiling and
// memoizing it on first sight. Compilation failures (unsafe or invalid
// constraints) are returned to the caller and nothing is cached.
//
// Racing callers may both compile the same template; the first write wins
// and both observe an equal value, since compilation is deterministic.
func (c *Cache) GetOrCompile(template string) (*compiler.Pattern, error) {
	st := c.state.Load()

	st.mu.RLock()
	p, ok := st.patterns[template]
	st.mu.RUnlock()
	if ok {
		c.hits.Add(1)
		return p, nil
	}
	c.misses.Add(1)

	p, err := compiler.Compile(template)
	if err != nil {
		return nil, err
	}
	c.compilations.Add(1)

	st.mu.Lock()
	if existing, ok := st.patterns[template]; ok {
		p = existing
	} else {
		st.patterns[template] = p
		if p.IsStatic() {
			st.static[template] = struct{}{}
		} else {
			st.dynamic[template] = struct{}{}
		}
	}
	st.mu.Unlock()

	return p, nil
}

// Lookup probes the cache without compiling. Probes count toward hit/miss
// statistics like GetOrCompile calls.
func (c *Cache) Lookup(template string) (*compiler.Pattern, bool) {
	st := c.state.Load()
	st.mu.RLock()
	p, ok := st.patterns[template]
	st.mu.RUnlock()
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return p, ok
}

// ContainsStatic reports whether a template is cached as static. Used by
// index maintenance; does not touch hit/miss counters.
func (c *Cache) ContainsStatic(template string) bool {
	st := c.state.Load()
	st.mu.RLock()
	_, ok := st.static[template]
	st.mu.RUnlock()
	return ok
}

// DynamicTemplates returns a snapshot of the dynamic template set. The
// memory manager uses it to select eviction candidates; static templates
// are never offered, preserving the static/dynamic split invariant.
func (c *Cache) DynamicTemplates() []string {
	st := c.state.Load()
	st.mu.RLock()
	out := make([]string, 0, len(st.dynamic))
	for t := range st.dynamic {
		out = append(out, t)
	}
	st.mu.RUnlock()
	return out
}

// Evict removes a dynamic template from the cache. Static templates are
// never evicted through this path; the call is a no-op for them. Returns
// the approximate number of bytes released.
func (c *Cache) Evict(template string) uint64 {
	st := c.state.Load()
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.dynamic[template]; !ok {
		return 0
	}
	freed := patternFootprint(template, st.patterns[template])
	delete(st.patterns, template)
	delete(st.dynamic, template)
	c.evictedSinceCompact.Add(1)
	return freed
}

// Compact reallocates the state maps at their current size, releasing
// bucket slack left behind by evictions. Returns the approximate number of
// bytes released.
func (c *Cache) Compact() uint64 {
	evicted := c.evictedSinceCompact.Swap(0)
	if evicted == 0 {
		return 0
	}

	st := c.state.Load()
	st.mu.Lock()
	patterns := make(map[string]*compiler.Pattern, len(st.patterns))
	static := make(map[string]struct{}, len(st.static))
	dynamic := make(map[string]struct{}, len(st.dynamic))
	for k, v := range st.patterns {
		patterns[k] = v
	}
	for k := range st.static {
		static[k] = struct{}{}
	}
	for k := range st.dynamic {
		dynamic[k] = struct{}{}
	}
	st.patterns = patterns
	st.static = static
	st.dynamic = dynamic
	st.mu.Unlock()

	c.sizeHash.Store(0)
	const bucketSlack = 64
	return evicted * bucketSlack
}

// Clear resets the cache to empty and zeroes every counter. The state swap
// is a single atomic pointer store: concurrent readers see either the old
// complete state or the new empty one, never a partial clear.
func (c *Cache) Clear() {
	c.state.Store(newCacheState())
	c.hits.Store(0)
	c.misses.Store(0)
	c.compilations.Store(0)
	c.sizeHash.Store(0)
	c.sizeBytes.Store(0)
	c.evictedSinceCompact.Store(0)
}

// Stats returns a snapshot of cache counters and the approximate memory
// footprint of the cached patterns.
func (c *Cache) Stats() CacheStats {
	st := c.state.Load()
	st.mu.RLock()
	patterns := len(st.patterns)
	static := len(st.static)
	dynamic := len(st.dynamic)
	st.mu.RUnlock()

	hits := c.hits.Load()
	misses := c.misses.Load()
	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return CacheStats{
		Hits:              hits,
		Misses:            misses,
		Compilations:      c.compilations.Load(),
		CachedPatterns:    patterns,
		StaticRoutes:      static,
		DynamicRoutes:     dynamic,
		HitRate:           hitRate,
		ApproxMemoryBytes: c.approxMemory(),
	}
}

// approxMemory estimates the serialized size of the cache contents. The
// composite hash over (pattern, static, dynamic) counts keys the cached
// estimate; only a count change triggers recomputation.
func (c *Cache) approxMemory() uint64 {
	st := c.state.Load()
	st.mu.RLock()
	patterns := len(st.patterns)
	static := len(st.static)
	dynamic := len(st.dynamic)
	st.mu.RUnlock()

	h := fnv.New64a()
	var buf [24]byte
	binary.LittleEndian.PutUint64(buf[0:], uint64(patterns))
	binary.LittleEndian.PutUint64(buf[8:], uint64(static))
	binary.LittleEndian.PutUint64(buf[16:], uint64(dynamic))
	h.Write(buf[:])
	sum := h.Sum64()

	if c.sizeHash.Load() == sum && sum != 0 {
		return c.sizeBytes.Load()
	}

	var total uint64
	st.mu.RLock()
	for template, p := range st.patterns {
		total += patternFootprint(template, p)
	}
	st.mu.RUnlock()

	c.sizeBytes.Store(total)
	c.sizeHash.Store(sum)
	return total
}

// patternFootprint estimates the serialized size of one cache entry.
func patternFootprint(template string, p *compiler.Pattern) uint64 {
	// Map/pointer overhead per entry plus interned strings.
	const entryOverhead = 96
	total := uint64(entryOverhead + len(template))
	if p == nil {
		return total
	}
	if p.Matcher != nil {
		total += uint64(len(p.Matcher.String())) * 4 // compiled program dwarfs the source
	}
	if len(p.Params) > 0 {
		if blob, err := json.Marshal(p.Params); err == nil {
			total += uint64(len(blob))
		}
	}
	return total
}

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
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/strada-dev/strada/route"
)

const (
	// Dynamic routes idle longer than staleAge and dispatched fewer than
	// staleMaxCount times are eviction candidates at the warning tier.
	staleAge      = time.Hour
	staleMaxCount = 5
)

// MemoryThresholds are the escalating memory pressure thresholds, in
// bytes. They must be strictly increasing.
type MemoryThresholds struct {
	Warning   uint64
	Critical  uint64
	Emergency uint64
}

// DefaultMemoryThresholds returns the default 10/20/50 MB tiers.
func DefaultMemoryThresholds() MemoryThresholds {
	return MemoryThresholds{
		Warning:   10 << 20,
		Critical:  20 << 20,
		Emergency: 50 << 20,
	}
}

// PressureLevel classifies estimated memory usage against the thresholds.
type PressureLevel uint8

const (
	PressureNone PressureLevel = iota
	PressureWarning
	PressureCritical
	PressureEmergency
)

func (l PressureLevel) String() string {
	switch l {
	case PressureWarning:
		return "warning"
	case PressureCritical:
		return "critical"
	case PressureEmergency:
		return "emergency"
	default:
		return "none"
	}
}

// Priority orders routes for eviction. High-priority routes are evicted
// last.
type Priority uint8

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	default:
		return "low"
	}
}

// UsageRecord tracks dispatch history for one route. Counts are
// approximate under concurrency; a lost increment only affects eviction
// priority, never dispatch correctness.
type UsageRecord struct {
	Key       string
	Template  string
	Count     uint64
	FirstUsed time.Time
	LastUsed  time.Time
	Priority  Priority

	static bool
}

// MemoryReport is the result of one memory check.
type MemoryReport struct {
	TotalBytes uint64        `json:"total_bytes"`
	CacheBytes uint64        `json:"cache_bytes"`
	IndexBytes uint64        `json:"index_bytes"`
	UsageBytes uint64        `json:"usage_bytes"`
	Level      PressureLevel `json:"level"`
	FreedBytes uint64        `json:"freed_bytes"`
	Evicted    int           `json:"evicted_routes"`
	Strategies []string      `json:"strategies,omitempty"`
	CheckedAt  time.Time     `json:"checked_at"`
}

// optimizationStrategy is one registered memory optimization. All
// strategies run unconditionally at the critical tier.
type optimizationStrategy struct {
	name string
	run  func() (freed uint64, evicted int)
}

// MemoryManager observes the router and its cache and governs their
// growth. It owns only usage metadata; routes and patterns belong to the
// router and cache.
//
// Memory pressure is handled internally and reported through
// CheckMemoryUsage and diagnostics; it is never surfaced as an error to
// dispatch callers.
type MemoryManager struct {
	router *Router

	mu    sync.Mutex
	usage map[string]*UsageRecord

	// Usage-map deletions leave bucket slack until the map is rebuilt.
	reclaimable int

	strategies []optimizationStrategy

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func newMemoryManager(r *Router) *MemoryManager {
	m := &MemoryManager{
		router: r,
		usage:  make(map[string]*UsageRecord, 64),
		stop:   make(chan struct{}),
	}
	m.strategies = []optimizationStrategy{
		{"dynamic_route_cleanup", m.cleanupStaleRoutes},
		{"pattern_compression", m.compressPatternMemos},
		{"route_deduplication", m.deduplicateRoutes},
		{"parameter_mapping_compression", m.compactUsageTable},
		{"cache_serialization_compression", m.compressCacheState},
	}
	return m
}

// start launches the background monitor. Stopped by Shutdown.
func (m *MemoryManager) start(interval time.Duration) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.CheckMemoryUsage()
			case <-m.stop:
				return
			}
		}
	}()
}

// TrackUsage records a dispatch for eviction bookkeeping. Called on every
// tier-1 and tier-2 match. First sight creates the record with a priority
// derived from the route shape: static routes are high, templates with an
// /api/ segment medium, everything else low.
func (m *MemoryManager) TrackUsage(rt *route.Route) {
	now := m.router.now()
	key := rt.Key()

	m.mu.Lock()
	rec, ok := m.usage[key]
	if !ok {
		rec = &UsageRecord{
			Key:       key,
			Template:  rt.Path,
			FirstUsed: now,
			Priority:  priorityFor(rt),
			static:    rt.IsStatic(),
		}
		m.usage[key] = rec
	}
	rec.Count++
	rec.LastUsed = now
	m.mu.Unlock()
}

func priorityFor(rt *route.Route) Priority {
	if rt.IsStatic() {
		return PriorityHigh
	}
	if strings.Contains(rt.Path, "/api/") {
		return PriorityMedium
	}
	return PriorityLow
}

// Usage returns a snapshot copy of the usage table.
func (m *MemoryManager) Usage() map[string]UsageRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]UsageRecord, len(m.usage))
	for k, v := range m.usage {
		out[k] = *v
	}
	return out
}

// CheckMemoryUsage estimates total memory held by the cache, the dispatch
// indices, and the usage table, and responds to the tier the estimate
// lands in:
//
//   - Warning: evict stale dynamic routes and compress pattern memos.
//   - Critical: run every registered optimization strategy, accumulating
//     freed bytes.
//   - Emergency: clear the cache and all usage state outright, then force
//     a garbage collection cycle. Destructive, but compilation is cheap
//     relative to unbounded growth.
func (m *MemoryManager) CheckMemoryUsage() MemoryReport {
	report := m.measure()

	switch report.Level {
	case PressureWarning:
		for _, s := range m.strategies[:2] {
			freed, evicted := s.run()
			if freed > 0 || evicted > 0 {
				report.Strategies = append(report.Strategies, s.name)
			}
			report.FreedBytes += freed
			report.Evicted += evicted
		}
	case PressureCritical:
		for _, s := range m.strategies {
			freed, evicted := s.run()
			report.Strategies = append(report.Strategies, s.name)
			report.FreedBytes += freed
			report.Evicted += evicted
		}
	case PressureEmergency:
		freed, evicted := m.emergencyClear(report.TotalBytes)
		report.Strategies = append(report.Strategies, "emergency_clear")
		report.FreedBytes += freed
		report.Evicted += evicted
	}

	if report.Level >= PressureWarning {
		m.router.logger.Warn("route memory pressure",
			"level", report.Level.String(),
			"total_bytes", report.TotalBytes,
			"freed_bytes", report.FreedBytes,
			"evicted", report.Evicted,
		)
		kind := DiagMemoryPressure
		if report.Level == PressureEmergency {
			kind = DiagEmergencyClear
		}
		m.router.emitDiagnostic(kind, "route memory pressure", map[string]any{
			"level":       report.Level.String(),
			"total_bytes": report.TotalBytes,
			"freed_bytes": report.FreedBytes,
		})
	}
	if m.router.metrics != nil {
		m.router.metrics.recordMemory(report)
	}

	return report
}

// measure sums the serialized-size estimates of the three stores.
func (m *MemoryManager) measure() MemoryReport {
	cacheBytes := m.router.cache.approxMemory()
	indexBytes := m.indexFootprint()
	usageBytes := m.usageFootprint()
	total := cacheBytes + indexBytes + usageBytes

	level := PressureNone
	t := m.router.memThresholds
	switch {
	case total >= t.Emergency:
		level = PressureEmergency
	case total >= t.Critical:
		level = PressureCritical
	case total >= t.Warning:
		level = PressureWarning
	}

	return MemoryReport{
		TotalBytes: total,
		CacheBytes: cacheBytes,
		IndexBytes: indexBytes,
		UsageBytes: usageBytes,
		Level:      level,
		CheckedAt:  m.router.now(),
	}
}

func (m *MemoryManager) indexFootprint() uint64 {
	const routeOverhead = 160
	m.router.mu.RLock()
	defer m.router.mu.RUnlock()
	var total uint64
	for _, rt := range m.router.routes {
		total += routeOverhead
		total += uint64(len(rt.Method) + 2*len(rt.Path)) // legacy list + index key
		total += uint64(len(rt.Middleware)) * 16
		if rt.Pattern != nil {
			total += uint64(len(rt.Pattern.Params)) * 48
		}
	}
	for prefix := range m.router.groups {
		total += uint64(len(prefix)) + 96
	}
	return total
}

func (m *MemoryManager) usageFootprint() uint64 {
	const recordOverhead = 96
	m.mu.Lock()
	defer m.mu.Unlock()
	var total uint64
	for _, rec := range m.usage {
		total += recordOverhead + uint64(len(rec.Key)+len(rec.Template))
	}
	return total
}

// cleanupStaleRoutes evicts dynamic routes that are both idle beyond
// staleAge and used fewer than staleMaxCount times. Static routes are
// never evicted.
func (m *MemoryManager) cleanupStaleRoutes() (uint64, int) {
	cutoff := m.router.now().Add(-staleAge)

	m.mu.Lock()
	var victims []*UsageRecord
	for _, rec := range m.usage {
		if rec.static || rec.Priority == PriorityHigh {
			continue
		}
		if rec.LastUsed.Before(cutoff) && rec.Count < staleMaxCount {
			victims = append(victims, rec)
		}
	}
	for _, rec := range victims {
		delete(m.usage, rec.Key)
		m.reclaimable++
	}
	m.mu.Unlock()

	var freed uint64
	for _, rec := range victims {
		freed += m.router.cache.Evict(rec.Template)
		freed += uint64(len(rec.Key) + len(rec.Template) + 96)
		m.router.emitDiagnostic(DiagRouteEvicted, "stale dynamic route evicted", map[string]any{
			"key":   rec.Key,
			"count": rec.Count,
		})
	}
	return freed, len(victims)
}

// compressPatternMemos drops exact-match memo entries for dynamic paths.
// The memos are pure caches of deterministic computations; dropping them
// trades a rescan on next sight for immediate memory.
func (m *MemoryManager) compressPatternMemos() (uint64, int) {
	memo := m.router.exactMemo.Load()
	var freed uint64
	memo.Range(func(k, v any) bool {
		e := v.(*memoEntry)
		if len(e.params) == 0 && len(e.anonymous) == 0 {
			return true // static entries are tiny and hot
		}
		memo.Delete(k)
		freed += uint64(len(k.(string))) + 64
		for name, val := range e.params {
			freed += uint64(len(name) + len(val))
		}
		return true
	})
	return freed, 0
}

// deduplicateRoutes removes earlier duplicates of re-registered routes
// from the legacy list, keeping the last registration to match index
// behavior.
func (m *MemoryManager) deduplicateRoutes() (uint64, int) {
	m.router.mu.Lock()
	defer m.router.mu.Unlock()

	seen := make(map[string]int, len(m.router.routes))
	for i, rt := range m.router.routes {
		seen[rt.Key()] = i
	}
	if len(seen) == len(m.router.routes) {
		return 0, 0
	}

	kept := make([]*route.Route, 0, len(seen))
	var freed uint64
	for i, rt := range m.router.routes {
		if seen[rt.Key()] == i {
			kept = append(kept, rt)
			continue
		}
		freed += uint64(len(rt.Method)+len(rt.Path)) + 160
	}
	dropped := len(m.router.routes) - len(kept)
	m.router.routes = kept
	return freed, dropped
}

// compactUsageTable rebuilds the usage map at its live size, releasing
// bucket slack accumulated by deletions.
func (m *MemoryManager) compactUsageTable() (uint64, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reclaimable == 0 {
		return 0, 0
	}
	rebuilt := make(map[string]*UsageRecord, len(m.usage))
	for k, v := range m.usage {
		rebuilt[k] = v
	}
	m.usage = rebuilt
	const bucketSlack = 48
	freed := uint64(m.reclaimable) * bucketSlack
	m.reclaimable = 0
	return freed, 0
}

// compressCacheState compacts the pattern cache's internal maps.
func (m *MemoryManager) compressCacheState() (uint64, int) {
	return m.router.cache.Compact(), 0
}

// emergencyClear wipes the cache, memos, and usage state and forces a GC
// cycle. The cache swap is an atomic pointer store; in-flight dispatches
// see either the old complete state or the new empty one.
func (m *MemoryManager) emergencyClear(before uint64) (uint64, int) {
	m.mu.Lock()
	evicted := len(m.usage)
	m.usage = make(map[string]*UsageRecord, 64)
	m.reclaimable = 0
	m.mu.Unlock()

	m.router.cache.Clear()
	m.router.exactMemo.Store(&sync.Map{})
	m.router.prefixMemo.Store(&sync.Map{})
	runtime.GC()

	after := m.measure().TotalBytes
	var freed uint64
	if before > after {
		freed = before - after
	}
	return freed, evicted
}

// resetUsage clears the usage table. Used by Router.Clear.
func (m *MemoryManager) resetUsage() {
	m.mu.Lock()
	m.usage = make(map[string]*UsageRecord, 64)
	m.reclaimable = 0
	m.mu.Unlock()
}

// Shutdown stops the background monitor and performs a best-effort
// warning-tier cleanup when usage still exceeds the warning threshold, so
// a long-running worker does not hand unbounded dynamic-route history to
// the next incarnation.
func (m *MemoryManager) Shutdown() {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
	m.wg.Wait()

	if m.measure().TotalBytes > m.router.memThresholds.Warning {
		m.cleanupStaleRoutes()
		m.compactUsageTable()
	}
}

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

// Package strada is the route compilation, dispatch-index, and memory
// governance core of a request-routing engine.
//
// The package turns declarative path templates into safe matchers, caches
// compiler output, indexes routes for near-O(1) dispatch, and bounds the
// memory those caches consume over a long-running process. It deliberately
// ends at "given a method and a path, resolve a route record or fail":
// request/response values, handler invocation, and middleware execution
// belong to the surrounding system and are treated as opaque collaborators.
//
// # Registration and dispatch
//
//	r := strada.MustNew()
//	r.GET("/users/:id<int>", getUser)
//	r.Group("/api", func(api *strada.Router) {
//	    api.GET("/posts/:slug<slug>", getPost)
//	}, authMiddleware)
//	r.Warmup()
//
//	if m, ok := r.Resolve("GET", "/users/42"); ok {
//	    _ = m.Params["id"] // "42"
//	}
//
// Registration is the cold path: configuration errors (unsupported method,
// non-callable handler, unsafe regex constraint) fail the Register call
// synchronously so a misdeclared route aborts startup instead of surfacing
// at request time. Dispatch is the hot path: it only reads the indices and
// writes memoization entries, so concurrent Resolve calls need no locking;
// duplicate memo writes are benign because compilation is deterministic.
//
// A resolution miss is a normal outcome (the caller's 404), never an error.
//
// # Dispatch tiers
//
// Resolve consults three tiers, each only if the previous missed: the
// group-indexed lookup (longest-prefix match over registered group prefixes,
// memoized), the global optimized lookup (exact-match memo, then per-method
// static and dynamic subsets), and a legacy linear scan kept as a
// compatibility fallback. Per-tier hit counters and a running average
// latency are available via Stats.
//
// # Memory governance
//
// A MemoryManager observes the aggregate footprint of the pattern cache,
// the dispatch indices, and its own usage table, and reacts to three
// escalating pressure tiers (warning, critical, emergency). It reads
// counters and calls back into the cache and router; nothing in the
// compile path ever calls into it, so there is no dependency cycle.
package strada

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

package compiler

import "hash/fnv"

// BloomFilter answers negative membership queries for route keys.
//
// The dispatcher consults it before touching the exact-match index: "no"
// answers are always correct, "maybe" answers fall through to the real
// lookup. For request paths that hit no registered route (scanners, typo
// storms) this rejects in a handful of bit tests instead of a map probe.
//
// Implemented as a flat bit array over FNV-1a with k seed-perturbed probes.
type BloomFilter struct {
	bits  []uint64
	size  uint64
	seeds []uint64
}

// NewBloomFilter creates a bloom filter with size bits and numHashFuncs
// probe positions per element.
func NewBloomFilter(size uint64, numHashFuncs int) *BloomFilter {
	bf := &BloomFilter{
		bits:  make([]uint64, (size+63)/64),
		size:  size,
		seeds: make([]uint64, numHashFuncs),
	}
	for i := range numHashFuncs {
		bf.seeds[i] = uint64(i + 1)
	}
	return bf
}

// OptimalBloomSize sizes a filter for roughly a 1% false positive rate at
// 10 bits per expected element, clamped to [100, 1e6] bits.
func OptimalBloomSize(expected int) uint64 {
	if expected <= 0 {
		return 100
	}
	size := uint64(expected) * 10
	if size < 100 {
		return 100
	}
	if size > 1_000_000 {
		return 1_000_000
	}
	return size
}

func (bf *BloomFilter) probe(baseHash, seed uint64) uint64 {
	return (baseHash ^ seed) % bf.size
}

// Add inserts a key into the filter.
func (bf *BloomFilter) Add(key string) {
	h := fnv.New64a()
	h.Write([]byte(key))
	base := h.Sum64()
	for _, seed := range bf.seeds {
		pos := bf.probe(base, seed)
		bf.bits[pos/64] |= 1 << (pos % 64)
	}
}

// Test reports whether a key might be in the set. A false return is
// definitive; a true return means the caller must check the real index.
func (bf *BloomFilter) Test(key string) bool {
	h := fnv.New64a()
	h.Write([]byte(key))
	base := h.Sum64()
	for _, seed := range bf.seeds {
		pos := bf.probe(base, seed)
		if bf.bits[pos/64]&(1<<(pos%64)) == 0 {
			return false
		}
	}
	return true
}

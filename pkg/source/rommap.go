// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package source

import "sort"

// RomMap is an ordered map from ROM offset to the SourceLocation that
// produced the byte at that offset.  Entries are appended as the assembler
// session emits bytes; within a single WriteBlock, offsets are inserted
// strictly monotonically, but the map as a whole may be non-monotonic
// because the ROM can be patched out of order across blocks.
type RomMap struct {
	entries map[int]Location
	// lastByBlock records the highest offset so far inserted for the write
	// block currently being emitted, to enforce intra-block monotonicity.
	lastOffset int
	hasLast    bool
}

// NewRomMap constructs an empty source map.
func NewRomMap() *RomMap {
	return &RomMap{entries: make(map[int]Location)}
}

// Put records the originating location for a single emitted ROM byte.
// within must be true when offset continues the same write block as the
// previous Put call; it is used only to assert monotonicity and never
// affects the stored map.
func (m *RomMap) Put(offset int, loc Location, withinSameBlock bool) {
	if withinSameBlock && m.hasLast && offset <= m.lastOffset {
		panic("source map offsets must be strictly monotonic within a write block")
	}

	m.entries[offset] = loc
	m.lastOffset = offset
	m.hasLast = true
}

// StartBlock resets the monotonicity cursor; call when beginning a new
// WriteBlock so the next Put is not compared against the previous block's
// offsets.
func (m *RomMap) StartBlock() {
	m.hasLast = false
}

// Lookup returns the SourceLocation recorded for a ROM offset, if any.
func (m *RomMap) Lookup(offset int) (Location, bool) {
	loc, ok := m.entries[offset]
	return loc, ok
}

// Offsets returns all recorded ROM offsets in ascending order.
func (m *RomMap) Offsets() []int {
	offsets := make([]int, 0, len(m.entries))
	for k := range m.entries {
		offsets = append(offsets, k)
	}

	sort.Ints(offsets)

	return offsets
}

// Len returns the number of recorded offsets.
func (m *RomMap) Len() int { return len(m.entries) }

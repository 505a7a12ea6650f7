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

import "testing"

func TestRomMapLookupAndOffsets(t *testing.T) {
	m := NewRomMap()
	m.Put(10, Location{Line: 1}, false)
	m.Put(20, Location{Line: 2}, true)
	m.Put(5, Location{Line: 3}, false)

	if loc, ok := m.Lookup(20); !ok || loc.Line != 2 {
		t.Fatalf("Lookup(20) = %+v, %v", loc, ok)
	}

	if _, ok := m.Lookup(999); ok {
		t.Error("Lookup of an unrecorded offset should miss")
	}

	want := []int{5, 10, 20}

	got := m.Offsets()
	if len(got) != len(want) {
		t.Fatalf("Offsets() = %v, want %v", got, want)
	}

	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Offsets()[%d] = %d, want %d", i, got[i], want[i])
		}
	}

	if m.Len() != 3 {
		t.Errorf("Len() = %d, want 3", m.Len())
	}
}

func TestRomMapPanicsOnNonMonotonicWithinBlock(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected a panic for a non-monotonic Put within the same block")
		}
	}()

	m := NewRomMap()
	m.Put(10, Location{}, false)
	m.Put(5, Location{}, true)
}

func TestRomMapStartBlockResetsMonotonicityCursor(t *testing.T) {
	m := NewRomMap()
	m.Put(10, Location{}, false)
	m.StartBlock()
	// Without StartBlock this would panic (5 <= 10); with it, offset 5
	// begins a fresh write block and is allowed.
	m.Put(5, Location{}, true)

	if m.Len() != 2 {
		t.Errorf("Len() = %d, want 2", m.Len())
	}
}

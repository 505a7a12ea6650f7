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
package asm

import (
	"strings"
	"testing"

	"github.com/sn65816/sn65/pkg/symbol"
)

func storeWithLabels() *symbol.Store {
	store := symbol.NewStore()
	store.DefineLabel(symbol.Label{Name: "reset", Address: 0x008000, Bank: 0x00})
	store.DefineLabel(symbol.Label{Name: "nmi", Address: 0x018010, Bank: 0x01})

	return store
}

func TestWriteSYMFormat(t *testing.T) {
	out := WriteSYM(storeWithLabels())

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if lines[0] != "[labels]" {
		t.Fatalf("expected [labels] header, got %q", lines[0])
	}

	want := []string{"00:8000 reset", "01:8010 nmi"}
	if !equalLines(lines[1:], want) {
		t.Errorf("got %v, want %v", lines[1:], want)
	}
}

func TestWriteMLBFormat(t *testing.T) {
	out := WriteMLB(storeWithLabels())

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	want := []string{"SnesMemory:008000:reset", "SnesMemory:018010:nmi"}

	if !equalLines(lines, want) {
		t.Errorf("got %v, want %v", lines, want)
	}
}

func equalLines(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}

	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}

	return true
}

// TestSYMRoundTrip documents the exact wire shape the disassembler's
// --symbols flag hand-parses back: a "[labels]" header followed by
// "BB:AAAA Name" lines. Any change to WriteSYM's output must keep this
// shape or the CLI's loadSymbolFile parser breaks silently.
func TestSYMRoundTrip(t *testing.T) {
	out := WriteSYM(storeWithLabels())

	inLabels := false
	found := map[string]bool{}

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)

		if line == "[labels]" {
			inLabels = true
			continue
		}

		if !inLabels || line == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 2 {
			t.Fatalf("unparseable symbol line %q", line)
		}

		bankHex := strings.SplitN(fields[0], ":", 2)
		if len(bankHex) != 2 {
			t.Fatalf("unparseable bank:addr field %q", fields[0])
		}

		found[fields[1]] = true
	}

	for _, name := range []string{"reset", "nmi"} {
		if !found[name] {
			t.Errorf("round-trip parse missed label %q", name)
		}
	}
}

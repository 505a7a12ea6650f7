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
	"os"
	"path/filepath"
	"testing"
)

func assembleSource(t *testing.T, src string) *Result {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "main.asm")

	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	res, err := Assemble(DefaultConfig(), path, nil)
	if err != nil {
		t.Fatalf("Assemble returned an error: %v", err)
	}

	return res
}

func TestAssembleSimpleDataDirective(t *testing.T) {
	res := assembleSource(t, "org $8000\nstart:\ndb $01,$02,$03\n")

	for _, d := range res.Diagnostics {
		if d.Severity == SevError {
			t.Fatalf("unexpected error diagnostic: %+v", d)
		}
	}

	off, err := DefaultConfig().Mapper.ToOffset(0x8000)
	if err != nil {
		t.Fatalf("ToOffset: %v", err)
	}

	got := res.Rom[off : off+3]
	want := []byte{0x01, 0x02, 0x03}

	for i := range want {
		if got[i] != want[i] {
			t.Errorf("byte %d = %#x, want %#x", i, got[i], want[i])
		}
	}

	sym, ok := res.Store.Lookup("start")
	if !ok || sym.Label.Address != 0x8000 {
		t.Errorf("expected label 'start' bound to $8000, got %+v, %v", sym, ok)
	}
}

func TestAssembleWriteBlocksAreByteIdenticalToRom(t *testing.T) {
	res := assembleSource(t, "org $8000\ndb $AA,$BB\norg $8100\ndb $CC\n")

	if len(res.WriteBlocks) != 2 {
		t.Fatalf("got %d write blocks, want 2", len(res.WriteBlocks))
	}

	for _, b := range res.WriteBlocks {
		for i, want := range b.Bytes {
			if res.Rom[b.RomOffset+i] != want {
				t.Errorf("WriteBlock at offset %#x byte %d: rom has %#x, block has %#x",
					b.RomOffset, i, res.Rom[b.RomOffset+i], want)
			}
		}
	}
}

func TestAssembleOverlappingWritesAreDiagnosed(t *testing.T) {
	res := assembleSource(t, "org $8000\ndb $01\norg $8000\ndb $02\n")

	found := false

	for _, d := range res.Diagnostics {
		if d.Code == "overlap_write" {
			found = true
		}
	}

	if !found {
		t.Error("expected an overlap_write diagnostic for two writes to the same address")
	}
}

func TestAssembleUndefinedLabelIsDiagnosed(t *testing.T) {
	res := assembleSource(t, "org $8000\ndw missing_label\n")

	found := false

	for _, d := range res.Diagnostics {
		if d.Code == "expression_undefined" {
			found = true
		}
	}

	if !found {
		t.Error("expected an expression_undefined diagnostic for a reference to an undefined label")
	}
}

func TestAssembleLabelRedefinitionIsDiagnosed(t *testing.T) {
	res := assembleSource(t, "org $8000\nstart:\norg $8100\nstart:\n")

	found := false

	for _, d := range res.Diagnostics {
		if d.Code == "label_redefined" {
			found = true
		}
	}

	if !found {
		t.Error("expected a label_redefined diagnostic for two definitions of the same label")
	}
}

func TestAssembleSelfReferentialMacroHitsDepthLimit(t *testing.T) {
	res := assembleSource(t, "macro loop()\nloop()\nendmacro\norg $8000\nloop()\n")

	found := false

	for _, d := range res.Diagnostics {
		if d.Code == "macro_arity" {
			found = true
		}
	}

	if !found {
		t.Error("expected a macro_arity diagnostic once a self-referential macro exceeds the configured recursion depth")
	}
}

func TestAssembleAssumeCommentMismatchIsDiagnosed(t *testing.T) {
	res := assembleSource(t, "org $8000\nrep #$20 ; assume m:8\nlda #$1234\n")

	found := false

	for _, d := range res.Diagnostics {
		if d.Code == "mx_mismatch" {
			found = true
		}
	}

	if !found {
		t.Error("expected an mx_mismatch diagnostic when an ; assume comment disagrees with the inferred register width")
	}
}

func TestSourceMapCoversEveryWrittenByte(t *testing.T) {
	res := assembleSource(t, "org $8000\ndb $01,$02,$03,$04\n")

	off, _ := DefaultConfig().Mapper.ToOffset(0x8000)

	for i := 0; i < 4; i++ {
		if _, ok := res.SourceMap.Lookup(off + i); !ok {
			t.Errorf("SourceMap missing an entry for offset %#x", off+i)
		}
	}
}

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
package lint

import (
	"testing"

	"github.com/sn65816/sn65/pkg/asm"
	"github.com/sn65816/sn65/pkg/symbol"
)

func TestRunFlagsOverlappingWriteBlocks(t *testing.T) {
	res := &asm.Result{
		Store: symbol.NewStore(),
		WriteBlocks: []asm.WriteBlock{
			{RomOffset: 0, Bytes: []byte{0x01, 0x02, 0x03}},
			{RomOffset: 2, Bytes: []byte{0xAA}},
		},
	}

	diags := Run(res, nil, Options{})

	found := false

	for _, d := range diags {
		if d.Code == "overlap_write" {
			found = true
		}
	}

	if !found {
		t.Error("expected an overlap_write diagnostic for two blocks sharing offset 2")
	}
}

func TestRunFlagsAliasedRegisterWrite(t *testing.T) {
	res := &asm.Result{
		Store: symbol.NewStore(),
		WriteBlocks: []asm.WriteBlock{
			{RomOffset: 0, SnesAddress: 0x802122, Bytes: []byte{0x00}},
		},
	}

	diags := Run(res, nil, Options{})

	found := false

	for _, d := range diags {
		if d.Severity == asm.SevHint && d.Code == "prohibited_range" {
			found = true
		}
	}

	if !found {
		t.Error("expected a hint diagnostic for a write through the $80 data-bank PPU mirror")
	}
}

func TestRunWarnsUnusedSymbolsOnlyWhenEnabled(t *testing.T) {
	store := symbol.NewStore()
	store.DefineLabel(symbol.Label{Name: "never_called", Address: 0x8000})

	res := &asm.Result{Store: store}

	if diags := Run(res, nil, Options{WarnUnusedSymbols: false}); hasCode(diags, "expression_undefined") {
		t.Error("unused-symbol warnings should be suppressed when the option is off")
	}

	diags := Run(res, nil, Options{WarnUnusedSymbols: true})
	if !hasCode(diags, "expression_undefined") {
		t.Error("expected an unused-symbol warning when the option is on")
	}
}

func TestRunUnusedSymbolsIgnoresReferencedLabels(t *testing.T) {
	store := symbol.NewStore()
	store.DefineLabel(symbol.Label{Name: "target", Address: 0x8005})

	res := &asm.Result{
		Store: store,
		WriteBlocks: []asm.WriteBlock{
			{RomOffset: 0, Bytes: []byte{0x05, 0x80}}, // little-endian $8005
		},
	}

	// The literal $8005 also yields a literal-matches-label hint under the
	// same code, so only the unused-symbol warning is checked here.
	diags := Run(res, nil, Options{WarnUnusedSymbols: true})
	if hasWarning(diags, "expression_undefined") {
		t.Error("a label whose address appears in a write block should not be flagged as unused")
	}
}

func hasWarning(diags []asm.Diagnostic, code string) bool {
	for _, d := range diags {
		if d.Code == code && d.Severity == asm.SevWarning {
			return true
		}
	}

	return false
}

func hasCode(diags []asm.Diagnostic, code string) bool {
	for _, d := range diags {
		if d.Code == code {
			return true
		}
	}

	return false
}

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

// Package lint augments an assembler session's diagnostics with checks
// that need the finished Result as a whole rather than a single directive:
// overlapping writes, unused symbols, register-aliasing quirks, and
// ABI-contract violations against a hook manifest.
package lint

import (
	"fmt"
	"sort"

	"github.com/sn65816/sn65/pkg/asm"
	"github.com/sn65816/sn65/pkg/hooks"
	"github.com/sn65816/sn65/pkg/symbol"
)

// Options toggles the checks that depend on project configuration rather
// than being always-on.
type Options struct {
	WarnUnusedSymbols bool
}

// aliasedRegisters maps a commonly-mirrored PPU/CPU register address to the
// canonical bank $00-$3F mirror a hack should prefer, so writes through the
// $80-$BF data-bank mirror get flagged rather than silently accepted.
var aliasedRegisters = map[uint32]uint32{
	0x802122: 0x002122,
	0x802100: 0x002100,
	0x804200: 0x004200,
	0x804201: 0x004201,
}

// Run produces the linter's diagnostics for one assembled Result. manifest
// may be nil when no hook manifest was loaded for this run.
func Run(res *asm.Result, manifest *hooks.Manifest, opts Options) []asm.Diagnostic {
	var diags []asm.Diagnostic

	diags = append(diags, checkOverlap(res.WriteBlocks)...)
	diags = append(diags, checkAliasedRegisters(res.WriteBlocks)...)
	diags = append(diags, checkLiteralMatchesLabel(res)...)

	if opts.WarnUnusedSymbols {
		diags = append(diags, checkUnusedSymbols(res)...)
	}

	if manifest != nil {
		diags = append(diags, checkABI(res, manifest)...)
	}

	return diags
}

// checkOverlap is a defense-in-depth re-check of the session's own overlap
// tracking: it compares every pair of write blocks by ROM-offset range,
// since two sessions' outputs merged externally (e.g. by a packaging
// script) wouldn't have gone through the session's live `written` map.
func checkOverlap(blocks []asm.WriteBlock) []asm.Diagnostic {
	sorted := append([]asm.WriteBlock(nil), blocks...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].RomOffset < sorted[j].RomOffset })

	var diags []asm.Diagnostic

	for i := 1; i < len(sorted); i++ {
		prevEnd := sorted[i-1].RomOffset + len(sorted[i-1].Bytes)
		if sorted[i].RomOffset < prevEnd {
			diags = append(diags, asm.Diagnostic{
				Severity: asm.SevError,
				Code:     "overlap_write",
				Message:  fmt.Sprintf("write block at offset %#x overlaps block ending at %#x", sorted[i].RomOffset, prevEnd),
				Loc:      sorted[i].SourceLoc,
			})
		}
	}

	return diags
}

func checkAliasedRegisters(blocks []asm.WriteBlock) []asm.Diagnostic {
	var diags []asm.Diagnostic

	for _, b := range blocks {
		if canon, ok := aliasedRegisters[b.SnesAddress]; ok {
			diags = append(diags, asm.Diagnostic{
				Severity: asm.SevHint,
				Code:     "prohibited_range",
				Message:  fmt.Sprintf("write to $%06X aliases canonical register $%06X; prefer the bank $00 mirror", b.SnesAddress, canon),
				Loc:      b.SourceLoc,
			})
		}
	}

	return diags
}

// checkLiteralMatchesLabel scans write blocks for a 2- or 3-byte value that
// exactly matches a known label's address, surfacing it as a hint so the
// LSP can render it as an inlay hint even though the source wrote a bare
// hex literal instead of the label name.
func checkLiteralMatchesLabel(res *asm.Result) []asm.Diagnostic {
	var diags []asm.Diagnostic

	for _, b := range res.WriteBlocks {
		for _, width := range []int{2, 3} {
			if len(b.Bytes) < width {
				continue
			}

			var v uint32
			for i := 0; i < width; i++ {
				v |= uint32(b.Bytes[i]) << (8 * i)
			}

			if lbl, ok := res.Store.LookupAddress(v); ok {
				diags = append(diags, asm.Diagnostic{
					Severity: asm.SevHint,
					Code:     "expression_undefined",
					Message:  fmt.Sprintf("literal $%06X matches label %s", v, lbl.Name),
					Loc:      b.SourceLoc,
				})
			}
		}
	}

	return diags
}

func checkUnusedSymbols(res *asm.Result) []asm.Diagnostic {
	used := make(map[string]bool)

	for _, b := range res.WriteBlocks {
		for width := 2; width <= 3; width++ {
			if len(b.Bytes) < width {
				continue
			}

			var v uint32
			for i := 0; i < width; i++ {
				v |= uint32(b.Bytes[i]) << (8 * i)
			}

			if lbl, ok := res.Store.LookupAddress(v); ok {
				used[lbl.Name] = true
			}
		}
	}

	var diags []asm.Diagnostic

	for _, name := range res.Store.Names() {
		sym, ok := res.Store.Lookup(name)
		if !ok || sym.Kind != symbol.KindLabel || used[sym.Label.Name] {
			continue
		}

		diags = append(diags, asm.Diagnostic{
			Severity: asm.SevWarning,
			Code:     "expression_undefined",
			Message:  "label " + sym.Label.Name + " is never referenced",
		})
	}

	return diags
}

// checkABI validates each manifest entry that is not exempt (ABIClass
// "long_entry", or SkipABI): an ExpectedM other than 8, 16 or 0 (unset) is
// reported as mx_mismatch. Call sites in res are not inspected, the M/X
// state at a call is not compared with the entry's expectation, and
// ExpectedX is not checked.
func checkABI(res *asm.Result, manifest *hooks.Manifest) []asm.Diagnostic {
	var diags []asm.Diagnostic

	for _, h := range manifest.Entries {
		if h.ABIClass == "long_entry" || h.SkipABI {
			continue
		}

		if h.ExpectedM != 0 && h.ExpectedM != 8 && h.ExpectedM != 16 {
			diags = append(diags, asm.Diagnostic{
				Severity: asm.SevError,
				Code:     "mx_mismatch",
				Message:  fmt.Sprintf("hook %s declares invalid expected_m %d", h.Name, h.ExpectedM),
			})
		}
	}

	return diags
}

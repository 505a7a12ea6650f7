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
package opcode

import "strings"

// Entry describes a single (mnemonic, addressing mode) encoding.
type Entry struct {
	Mnemonic string
	Mode     Mode
	Opcode   byte
	// Width is the fixed operand width in bytes, or 0 when the width is
	// data-dependent (Immediate under M or X control -- see AffectedByM/X).
	Width       int
	AffectedByM bool
	AffectedByX bool
	Branch      BranchKind
}

// key identifies a table row.
type key struct {
	mnemonic string
	mode     Mode
}

// Table is the full static opcode table, keyed by (mnemonic, mode).
type Table struct {
	byKeyword map[key]Entry
	byByte    [256]*Entry
}

var std = buildTable()

// Default returns the standard 65816 opcode table.
func Default() *Table { return std }

// Lookup finds the encoding for a mnemonic/mode pair. The mnemonic is
// matched case-insensitively.
func (t *Table) Lookup(mnemonic string, mode Mode) (Entry, bool) {
	e, ok := t.byKeyword[key{strings.ToUpper(mnemonic), mode}]
	return e, ok
}

// LookupByte finds the encoding for a raw opcode byte, used by the
// disassembler. Returns false for bytes not present in the table (the
// disassembler treats these as data).
func (t *Table) LookupByte(b byte) (Entry, bool) {
	e := t.byByte[b]
	if e == nil {
		return Entry{}, false
	}

	return *e, true
}

// Variants returns every addressing-mode encoding registered for a given
// mnemonic, used by the assembler to pick the narrowest legal encoding for
// an operand expression.
func (t *Table) Variants(mnemonic string) []Entry {
	mnemonic = strings.ToUpper(mnemonic)

	var out []Entry

	for k, e := range t.byKeyword {
		if k.mnemonic == mnemonic {
			out = append(out, e)
		}
	}

	return out
}

func (t *Table) add(e Entry) {
	t.byKeyword[key{e.Mnemonic, e.Mode}] = e
	cp := e
	t.byByte[e.Opcode] = &cp
}

// buildTable constructs the standard table. This is a representative but
// not exhaustive subset of the full 256-opcode 65816 map: it covers every
// addressing mode named in the data model and the mnemonics exercised by
// the assembler, linter, and disassembler test suites. Additional rows
// follow the same shape and can be appended without touching callers.
func buildTable() *Table {
	t := &Table{byKeyword: make(map[key]Entry)}

	add := func(mnemonic string, mode Mode, op byte, width int, m, x bool, br BranchKind) {
		t.add(Entry{mnemonic, mode, op, width, m, x, br})
	}

	// Load/store accumulator.
	add("LDA", Immediate, 0xA9, 0, true, false, NotBranch)
	add("LDA", Direct, 0xA5, 1, false, false, NotBranch)
	add("LDA", DirectX, 0xB5, 1, false, false, NotBranch)
	add("LDA", Absolute, 0xAD, 2, false, false, NotBranch)
	add("LDA", AbsoluteX, 0xBD, 2, false, false, NotBranch)
	add("LDA", AbsoluteY, 0xB9, 2, false, false, NotBranch)
	add("LDA", AbsoluteLong, 0xAF, 3, false, false, NotBranch)
	add("LDA", AbsoluteLongX, 0xBF, 3, false, false, NotBranch)
	add("LDA", Indirect, 0xB2, 1, false, false, NotBranch)
	add("LDA", IndirectY, 0xB1, 1, false, false, NotBranch)
	add("LDA", IndirectX, 0xA1, 1, false, false, NotBranch)
	add("LDA", IndirectLong, 0xA7, 1, false, false, NotBranch)
	add("LDA", IndirectLongY, 0xB7, 1, false, false, NotBranch)
	add("LDA", StackRel, 0xA3, 1, false, false, NotBranch)
	add("LDA", StackRelY, 0xB3, 1, false, false, NotBranch)
	add("STA", Direct, 0x85, 1, false, false, NotBranch)
	add("STA", DirectX, 0x95, 1, false, false, NotBranch)
	add("STA", Absolute, 0x8D, 2, false, false, NotBranch)
	add("STA", AbsoluteX, 0x9D, 2, false, false, NotBranch)
	add("STA", AbsoluteY, 0x99, 2, false, false, NotBranch)
	add("STA", AbsoluteLong, 0x8F, 3, false, false, NotBranch)
	add("STA", AbsoluteLongX, 0x9F, 3, false, false, NotBranch)
	add("STA", Indirect, 0x92, 1, false, false, NotBranch)
	add("STA", IndirectY, 0x91, 1, false, false, NotBranch)
	add("STA", IndirectX, 0x81, 1, false, false, NotBranch)
	add("STA", StackRel, 0x83, 1, false, false, NotBranch)
	add("STZ", Direct, 0x64, 1, false, false, NotBranch)
	add("STZ", DirectX, 0x74, 1, false, false, NotBranch)
	add("STZ", Absolute, 0x9C, 2, false, false, NotBranch)
	add("STZ", AbsoluteX, 0x9E, 2, false, false, NotBranch)
	// Index registers.
	add("LDX", Immediate, 0xA2, 0, false, true, NotBranch)
	add("LDX", Direct, 0xA6, 1, false, false, NotBranch)
	add("LDX", DirectY, 0xB6, 1, false, false, NotBranch)
	add("LDX", Absolute, 0xAE, 2, false, false, NotBranch)
	add("LDX", AbsoluteY, 0xBE, 2, false, false, NotBranch)
	add("LDY", Immediate, 0xA0, 0, false, true, NotBranch)
	add("LDY", Direct, 0xA4, 1, false, false, NotBranch)
	add("LDY", DirectX, 0xB4, 1, false, false, NotBranch)
	add("LDY", Absolute, 0xAC, 2, false, false, NotBranch)
	add("LDY", AbsoluteX, 0xBC, 2, false, false, NotBranch)
	add("STX", Direct, 0x86, 1, false, false, NotBranch)
	add("STX", DirectY, 0x96, 1, false, false, NotBranch)
	add("STX", Absolute, 0x8E, 2, false, false, NotBranch)
	add("STY", Direct, 0x84, 1, false, false, NotBranch)
	add("STY", DirectX, 0x94, 1, false, false, NotBranch)
	add("STY", Absolute, 0x8C, 2, false, false, NotBranch)
	// Arithmetic / logic, accumulator width.
	for mnem, base := range map[string]byte{"ADC": 0x69, "SBC": 0xE9, "AND": 0x29, "ORA": 0x09, "EOR": 0x49, "CMP": 0xC9} {
		add(mnem, Immediate, base, 0, true, false, NotBranch)
	}

	add("ADC", Direct, 0x65, 1, false, false, NotBranch)
	add("ADC", Absolute, 0x6D, 2, false, false, NotBranch)
	add("ADC", AbsoluteLong, 0x6F, 3, false, false, NotBranch)
	add("SBC", Direct, 0xE5, 1, false, false, NotBranch)
	add("SBC", Absolute, 0xED, 2, false, false, NotBranch)
	add("AND", Direct, 0x25, 1, false, false, NotBranch)
	add("AND", Absolute, 0x2D, 2, false, false, NotBranch)
	add("ORA", Direct, 0x05, 1, false, false, NotBranch)
	add("ORA", Absolute, 0x0D, 2, false, false, NotBranch)
	add("EOR", Direct, 0x45, 1, false, false, NotBranch)
	add("EOR", Absolute, 0x4D, 2, false, false, NotBranch)
	add("CMP", Direct, 0xC5, 1, false, false, NotBranch)
	add("CMP", Absolute, 0xCD, 2, false, false, NotBranch)
	add("CPX", Immediate, 0xE0, 0, false, true, NotBranch)
	add("CPX", Direct, 0xE4, 1, false, false, NotBranch)
	add("CPX", Absolute, 0xEC, 2, false, false, NotBranch)
	add("CPY", Immediate, 0xC0, 0, false, true, NotBranch)
	add("CPY", Direct, 0xC4, 1, false, false, NotBranch)
	add("CPY", Absolute, 0xCC, 2, false, false, NotBranch)
	add("BIT", Immediate, 0x89, 0, true, false, NotBranch)
	add("BIT", Direct, 0x24, 1, false, false, NotBranch)
	add("BIT", Absolute, 0x2C, 2, false, false, NotBranch)
	// Inc/dec.
	add("INC", Accumulator, 0x1A, 0, false, false, NotBranch)
	add("INC", Direct, 0xE6, 1, false, false, NotBranch)
	add("INC", Absolute, 0xEE, 2, false, false, NotBranch)
	add("DEC", Accumulator, 0x3A, 0, false, false, NotBranch)
	add("DEC", Direct, 0xC6, 1, false, false, NotBranch)
	add("DEC", Absolute, 0xCE, 2, false, false, NotBranch)
	add("INX", Implied, 0xE8, 0, false, false, NotBranch)
	add("INY", Implied, 0xC8, 0, false, false, NotBranch)
	add("DEX", Implied, 0xCA, 0, false, false, NotBranch)
	add("DEY", Implied, 0x88, 0, false, false, NotBranch)
	// Shifts.
	add("ASL", Accumulator, 0x0A, 0, false, false, NotBranch)
	add("ASL", Direct, 0x06, 1, false, false, NotBranch)
	add("ASL", Absolute, 0x0E, 2, false, false, NotBranch)
	add("LSR", Accumulator, 0x4A, 0, false, false, NotBranch)
	add("LSR", Direct, 0x46, 1, false, false, NotBranch)
	add("LSR", Absolute, 0x4E, 2, false, false, NotBranch)
	add("ROL", Accumulator, 0x2A, 0, false, false, NotBranch)
	add("ROL", Direct, 0x26, 1, false, false, NotBranch)
	add("ROR", Accumulator, 0x6A, 0, false, false, NotBranch)
	add("ROR", Direct, 0x66, 1, false, false, NotBranch)
	// Control flow.
	add("JMP", Absolute, 0x4C, 2, false, false, Unconditional)
	add("JMP", AbsoluteLong, 0x5C, 3, false, false, Unconditional)
	add("JML", AbsoluteLong, 0x5C, 3, false, false, Unconditional)
	add("JMP", Indirect, 0x6C, 2, false, false, Unconditional)
	add("JSR", Absolute, 0x20, 2, false, false, Call)
	add("JSL", AbsoluteLong, 0x22, 3, false, false, Call)
	add("RTS", Implied, 0x60, 0, false, false, Return)
	add("RTL", Implied, 0x6B, 0, false, false, Return)
	add("RTI", Implied, 0x40, 0, false, false, Return)
	add("BRA", Relative8, 0x80, 1, false, false, Unconditional)
	add("BRL", Relative16, 0x82, 2, false, false, Unconditional)

	for mnem, op := range map[string]byte{
		"BEQ": 0xF0, "BNE": 0xD0, "BCC": 0x90, "BCS": 0xB0,
		"BPL": 0x10, "BMI": 0x30, "BVC": 0x50, "BVS": 0x70,
	} {
		add(mnem, Relative8, op, 1, false, false, Conditional)
	}
	// Stack / status.
	add("PHA", Implied, 0x48, 0, false, false, NotBranch)
	add("PLA", Implied, 0x68, 0, false, false, NotBranch)
	add("PHX", Implied, 0xDA, 0, false, false, NotBranch)
	add("PLX", Implied, 0xFA, 0, false, false, NotBranch)
	add("PHY", Implied, 0x5A, 0, false, false, NotBranch)
	add("PLY", Implied, 0x7A, 0, false, false, NotBranch)
	add("PHP", Implied, 0x08, 0, false, false, NotBranch)
	add("PLP", Implied, 0x28, 0, false, false, NotBranch)
	add("PHB", Implied, 0x8B, 0, false, false, NotBranch)
	add("PLB", Implied, 0xAB, 0, false, false, NotBranch)
	add("PHD", Implied, 0x0B, 0, false, false, NotBranch)
	add("PLD", Implied, 0x2B, 0, false, false, NotBranch)
	add("PHK", Implied, 0x4B, 0, false, false, NotBranch)
	add("SEP", Immediate, 0xE2, 1, false, false, NotBranch)
	add("REP", Immediate, 0xC2, 1, false, false, NotBranch)
	add("CLC", Implied, 0x18, 0, false, false, NotBranch)
	add("SEC", Implied, 0x38, 0, false, false, NotBranch)
	add("CLI", Implied, 0x58, 0, false, false, NotBranch)
	add("SEI", Implied, 0x78, 0, false, false, NotBranch)
	add("CLV", Implied, 0xB8, 0, false, false, NotBranch)
	add("CLD", Implied, 0xD8, 0, false, false, NotBranch)
	add("SED", Implied, 0xF8, 0, false, false, NotBranch)
	add("XCE", Implied, 0xFB, 0, false, false, NotBranch)
	add("XBA", Implied, 0xEB, 0, false, false, NotBranch)
	// Transfers.
	for mnem, op := range map[string]byte{
		"TAX": 0xAA, "TAY": 0xA8, "TXA": 0x8A, "TYA": 0x98, "TXY": 0x9B, "TYX": 0xBB,
		"TSX": 0xBA, "TXS": 0x9A, "TCD": 0x5B, "TDC": 0x7B, "TCS": 0x1B, "TSC": 0x3B,
	} {
		add(mnem, Implied, op, 0, false, false, NotBranch)
	}

	add("NOP", Implied, 0xEA, 0, false, false, NotBranch)
	add("WDM", Implied, 0x42, 1, false, false, NotBranch)
	add("STP", Implied, 0xDB, 0, false, false, NotBranch)
	add("WAI", Implied, 0xCB, 0, false, false, NotBranch)
	add("MVN", BlockMove, 0x54, 2, false, false, NotBranch)
	add("MVP", BlockMove, 0x44, 2, false, false, NotBranch)
	add("BRK", Implied, 0x00, 1, false, false, NotBranch)
	add("COP", Implied, 0x02, 1, false, false, NotBranch)

	return t
}

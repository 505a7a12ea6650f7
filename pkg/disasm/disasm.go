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

// Package disasm reads ROM bytes, an optional symbol table, and an
// optional hook manifest, and emits one re-assemblable source file per
// bank in the requested range.
package disasm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sn65816/sn65/pkg/asm"
	"github.com/sn65816/sn65/pkg/hooks"
	"github.com/sn65816/sn65/pkg/opcode"
	"github.com/sn65816/sn65/pkg/symbol"
)

// Error reports a decoding failure, per the error-code design's
// disassembly_stuck code.
type Error struct {
	Address uint32
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("disassembly_stuck: $%06X: %s", e.Address, e.Message)
}

// Options configures one disassembly run.
type Options struct {
	Mapper    asm.Mapper
	BankStart byte
	BankEnd   byte
	Store     *symbol.Store // optional; nil means no symbolic operands
	Hooks     *hooks.Manifest
	Seeds     []uint32 // reset/NMI vectors and other known entry points
}

// Bank is one decoded bank's re-assemblable text.
type Bank struct {
	Number byte
	Source string
}

// Disassemble decodes rom over [opts.BankStart, opts.BankEnd], seeded from
// opts.Seeds plus every known label and hook target inside the range, and
// returns one Bank per requested bank number.
func Disassemble(rom []byte, opts Options) ([]Bank, error) {
	table := opcode.Default()

	seeds := collectSeeds(opts)

	var banks []Bank

	for bankNo := opts.BankStart; bankNo <= opts.BankEnd; bankNo++ {
		src, err := disassembleBank(rom, bankNo, opts, table, seeds)
		if err != nil {
			return nil, err
		}

		banks = append(banks, Bank{Number: bankNo, Source: src})

		if bankNo == 0xFF {
			break // avoid wraparound on a full $00-$FF request
		}
	}

	return banks, nil
}

func collectSeeds(opts Options) []uint32 {
	seeds := append([]uint32(nil), opts.Seeds...)

	if opts.Store != nil {
		for _, name := range opts.Store.Names() {
			if sym, ok := opts.Store.Lookup(name); ok && sym.Kind == symbol.KindLabel {
				seeds = append(seeds, sym.Label.Address)
			}
		}
	}

	if opts.Hooks != nil {
		for _, h := range opts.Hooks.Entries {
			seeds = append(seeds, uint32(h.Target))
		}
	}

	sort.Slice(seeds, func(i, j int) bool { return seeds[i] < seeds[j] })

	return seeds
}

// disassembleBank decodes every seed address that falls within bankNo,
// walking forward from each until a terminator (RTS/RTL/RTI), an address
// already decoded, an unmapped address or the end of the ROM. Bytes
// between decoded regions are not emitted; no db/dw/dl data directives
// are produced.
func disassembleBank(rom []byte, bankNo byte, opts Options, table *opcode.Table, seeds []uint32) (string, error) {
	var regionStarts []uint32

	for _, s := range seeds {
		if byte(s>>16) == bankNo {
			regionStarts = append(regionStarts, s)
		}
	}

	if len(regionStarts) == 0 {
		regionStarts = []uint32{uint32(bankNo) << 16}
	}

	decoded := make(map[uint32]bool)

	var b strings.Builder

	// mx tracks the live M/X accumulator/index widths linearly as each
	// region is walked forward, the same way pass 1 of the assembler does
	// (see pkg/asm's mxState): reset to native mode's 8-bit default at the
	// start of every region, then narrowed/widened by any SEP/REP decoded
	// along the way, so a later Immediate opcode's operand width is read
	// correctly instead of always assumed to be one byte.
	mx := mxWidths{m: 8, x: 8}

	fmt.Fprintf(&b, "; bank $%02X\n", bankNo)

	hookByTarget := map[uint32]hooks.Entry{}
	if opts.Hooks != nil {
		for _, h := range opts.Hooks.Entries {
			hookByTarget[uint32(h.Target)] = h
		}
	}

	for _, start := range regionStarts {
		if decoded[start] {
			continue
		}

		if h, ok := hookByTarget[start]; ok {
			fmt.Fprintf(&b, "; @hook %s %s -> $%06X\n", h.Name, h.Kind, uint32(h.Target))
		}

		mx = mxWidths{m: 8, x: 8}
		addr := start

		for {
			off, err := opts.Mapper.ToOffset(addr)
			if err != nil || off >= len(rom) {
				break
			}

			if decoded[addr] {
				break
			}

			opByte := rom[off]

			entry, ok := table.LookupByte(opByte)
			if !ok {
				return "", &Error{Address: addr, Message: "opcode " + fmt.Sprintf("$%02X", opByte) + " not in table"}
			}

			width := entry.Width
			if width == 0 {
				switch {
				case entry.AffectedByM:
					width = mx.bytes(mx.m)
				case entry.AffectedByX:
					width = mx.bytes(mx.x)
				default:
					width = 1
				}
			}

			total := 1 + width
			if off+total > len(rom) {
				break
			}

			writeLabel(&b, addr, opts.Store)

			operandBytes := rom[off+1 : off+total]
			fmt.Fprintf(&b, "\t%s %s\n", strings.ToLower(entry.Mnemonic), renderOperand(entry, operandBytes, opts.Store))

			switch strings.ToUpper(entry.Mnemonic) {
			case "SEP":
				mx = mx.applySEP(operandBytes[0])
			case "REP":
				mx = mx.applyREP(operandBytes[0])
			}

			for i := uint32(0); i < uint32(total); i++ {
				decoded[addr+i] = true
			}

			addr += uint32(total)

			if entry.Branch == opcode.Return {
				break
			}
		}
	}

	return b.String(), nil
}

// mxWidths is the disassembler's linear (not control-flow-aware) M/X
// accumulator/index width tracker, mirroring pkg/asm's pass-1 mxState: SEP
// narrows a flag to 8-bit, REP widens it to 16-bit, and an Immediate
// opcode's encoded operand width follows whichever flag governs it.
type mxWidths struct{ m, x int }

func (w mxWidths) bytes(bits int) int {
	if bits == 16 {
		return 2
	}

	return 1
}

func (w mxWidths) applySEP(mask byte) mxWidths {
	if mask&0x20 != 0 {
		w.m = 8
	}

	if mask&0x10 != 0 {
		w.x = 8
	}

	return w
}

func (w mxWidths) applyREP(mask byte) mxWidths {
	if mask&0x20 != 0 {
		w.m = 16
	}

	if mask&0x10 != 0 {
		w.x = 16
	}

	return w
}

func writeLabel(b *strings.Builder, addr uint32, store *symbol.Store) {
	if store == nil {
		return
	}

	if lbl, ok := store.LookupAddress(addr); ok {
		fmt.Fprintf(b, "%s:\n", lbl.Name)
	}
}

func renderOperand(entry opcode.Entry, bytes []byte, store *symbol.Store) string {
	if len(bytes) == 0 {
		return ""
	}

	var v uint32
	for i, bb := range bytes {
		v |= uint32(bb) << (8 * i)
	}

	if store != nil {
		if lbl, ok := store.LookupAddress(v); ok {
			return symbolicOperand(entry.Mode, lbl.Name)
		}
	}

	literal := fmt.Sprintf("$%0*X", len(bytes)*2, v)
	if entry.Mode == opcode.Immediate {
		return "#" + literal
	}

	return literal
}

func symbolicOperand(mode opcode.Mode, name string) string {
	switch mode {
	case opcode.Immediate:
		return "#" + name
	case opcode.DirectX, opcode.AbsoluteX, opcode.AbsoluteLongX:
		return name + ",X"
	case opcode.DirectY, opcode.AbsoluteY:
		return name + ",Y"
	case opcode.Indirect:
		return "(" + name + ")"
	case opcode.IndirectY:
		return "(" + name + "),Y"
	case opcode.IndirectX:
		return "(" + name + ",X)"
	default:
		return name
	}
}

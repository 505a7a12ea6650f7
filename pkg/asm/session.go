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
	"fmt"

	"github.com/sn65816/sn65/pkg/expr"
	"github.com/sn65816/sn65/pkg/lex"
	"github.com/sn65816/sn65/pkg/opcode"
	"github.com/sn65816/sn65/pkg/reader"
	"github.com/sn65816/sn65/pkg/source"
	"github.com/sn65816/sn65/pkg/symbol"
)

// Config carries the subset of the project configuration the session
// needs: mapper, ROM size, prohibited ranges and the maximum macro
// recursion depth. Everything else (include paths, presets) is resolved
// by the caller before Assemble is invoked.
type Config struct {
	Mapper          Mapper
	RomSize         int
	Prohibited      []ProhibitedRange
	MaxMacroDepth   int
	FillByte        byte
	FreeCodeStart   uint32
	FreeCodeEnd     uint32
}

// DefaultConfig returns sensible defaults matching a typical LoROM hack
// project.
func DefaultConfig() Config {
	return Config{
		Mapper:        LoROM,
		RomSize:       4 * 1024 * 1024,
		MaxMacroDepth: 128,
		FillByte:      0x00,
		FreeCodeStart: 0x308000,
		FreeCodeEnd:   0x400000,
	}
}

// Result is everything the session produced.
type Result struct {
	Rom         []byte
	WriteBlocks []WriteBlock
	SourceMap   *source.RomMap
	Store       *symbol.Store
	Diagnostics []Diagnostic
	Hooks       []HookEntry
}

// mxState is the linear (not control-flow-aware) M/X width the session
// tracks while emitting, used only to pick the byte width of Immediate
// operands as SEP/REP are encountered in program order. The
// control-flow-aware analysis used for diagnostics lives in pkg/mxstate.
type mxState struct {
	m, x int // 8 or 16
}

// Session is the mutable engine driving one assembly run: program
// counter, ROM buffer, symbol store and accumulated outputs. It is a
// plain value passed explicitly to directive handlers rather than global
// state, so that an LSP server can run many assemblies concurrently.
type Session struct {
	cfg      Config
	store    *symbol.Store
	eval     *expr.Evaluator
	rom      []byte
	written  map[int]bool
	blocks   []WriteBlock
	srcmap   *source.RomMap
	diags    []Diagnostic
	hooks    []HookEntry
	opcodes  *opcode.Table

	pc        uint32 // virtual SNES PC (what `base` moves)
	outPC     uint32 // SNES PC the output cursor is tied to (what `org` moves)
	usingBase bool
	mx        mxState
	freeCode  uint32
	nsDepth   int
	curFile   *source.File
	lastEmits []*emitRecord
}

// NewSession constructs a session with an empty ROM buffer of cfg.RomSize
// bytes, pre-filled with cfg.FillByte.
func NewSession(cfg Config) *Session {
	store := symbol.NewStore()
	rom := make([]byte, cfg.RomSize)

	for i := range rom {
		rom[i] = cfg.FillByte
	}

	s := &Session{
		cfg:      cfg,
		store:    store,
		rom:      rom,
		written:  make(map[int]bool),
		srcmap:   source.NewRomMap(),
		opcodes:  opcode.Default(),
		mx:       mxState{8, 8},
		freeCode: cfg.FreeCodeStart,
	}
	s.eval = expr.New(store, s)

	return s
}

// ReadByte implements expr.RomReader, letting read1/2/3() built-ins see
// bytes already emitted earlier in the same session.
func (s *Session) ReadByte(addr uint32) (byte, bool) {
	off, err := s.cfg.Mapper.ToOffset(addr)
	if err != nil || off < 0 || off >= len(s.rom) {
		return 0, false
	}

	if !s.written[off] {
		return 0, false
	}

	return s.rom[off], true
}

// diag appends a diagnostic attributed to the current file/PC.
func (s *Session) diag(sev Severity, code, msg string, loc source.Location) {
	filename := ""
	if s.curFile != nil {
		filename = s.curFile.Filename()
	}

	s.diags = append(s.diags, Diagnostic{sev, code, msg, filename, loc})
}

// Assemble loads rootPath (expanding includes via the given reader),
// runs pass 1 (PC/label assignment, macro expansion) and pass 2
// (expression evaluation against the final symbol table, byte emission),
// and returns the accumulated Result.
func Assemble(cfg Config, rootPath string, includeDirs []string) (*Result, error) {
	s := NewSession(cfg)
	rd := reader.New()

	items, rerrs := rd.Expand(rootPath, includeDirs)
	for _, e := range rerrs {
		s.diag(SevError, errorCode(e), e.Error(), source.Location{})
	}

	emits := s.pass1(items)
	s.pass2(emits)
	s.lastEmits = emits
	s.diags = append(s.diags, s.checkRegisterWidths()...)

	return &Result{
		Rom:         s.rom,
		WriteBlocks: s.blocks,
		SourceMap:   s.srcmap,
		Store:       s.store,
		Diagnostics: s.diags,
		Hooks:       s.hooks,
	}, nil
}

func errorCode(e error) string {
	if re, ok := e.(*reader.Error); ok {
		return re.Code
	}

	return "rom_io"
}

// currentOutputAddress returns the SNES address the next emitted byte
// will land at: `base` moves the virtual PC used for label resolution
// without moving the output cursor, so org/outPC is authoritative for
// where bytes actually land.
func (s *Session) currentOutputAddress() uint32 {
	if s.usingBase {
		return s.pc
	}

	return s.outPC
}

func (s *Session) advancePC(n int) {
	s.pc += uint32(n)

	if !s.usingBase {
		s.outPC += uint32(n)
	}
}

// writeBytes patches bytes at the current output address into the ROM
// buffer, recording a WriteBlock and SourceMap entries, and checking
// prohibited ranges / overlap.
func (s *Session) writeBytes(bytes []byte, loc source.Location, allowReplace bool) {
	addr := s.currentOutputAddress()

	for _, pr := range s.cfg.Prohibited {
		if pr.Overlaps(addr, len(bytes)) {
			s.diag(SevError, "prohibited_range", fmt.Sprintf("write to $%06X touches prohibited range: %s", addr, pr.Reason), loc)
		}
	}

	off, err := s.cfg.Mapper.ToOffset(addr)
	if err != nil {
		s.diag(SevError, "rom_io", err.Error(), loc)
		s.advancePC(len(bytes))

		return
	}

	if off+len(bytes) > len(s.rom) {
		s.diag(SevError, "rom_io", fmt.Sprintf("write at offset %#x exceeds ROM size", off), loc)
		s.advancePC(len(bytes))

		return
	}

	if !allowReplace {
		for i := range bytes {
			if s.written[off+i] {
				s.diag(SevError, "overlap_write", fmt.Sprintf("write block at $%06X overlaps a previous write", addr), loc)
				break
			}
		}
	}

	s.srcmap.StartBlock()

	for i, b := range bytes {
		s.rom[off+i] = b
		s.written[off+i] = true
		s.srcmap.Put(off+i, loc, i > 0)
	}

	s.blocks = append(s.blocks, WriteBlock{off, addr, append([]byte(nil), bytes...), loc, allowReplace})
	s.advancePC(len(bytes))
}

// narrowOperand evaluates an operand token slice and narrows it to width
// bytes, recording a diagnostic (rather than aborting the session) on
// failure, per the error handling design.
func (s *Session) narrowOperand(tokens []lex.Token, width int, loc source.Location) ([]byte, bool) {
	v, err := s.eval.Eval(tokens)
	if err != nil {
		s.recordExprError(err, loc)
		return nil, false
	}

	narrowed, err := expr.Narrow(v, width)
	if err != nil {
		s.recordExprError(err, loc)
		return nil, false
	}

	out := make([]byte, width)
	for i := 0; i < width; i++ {
		out[i] = byte(narrowed >> (8 * i))
	}

	return out, true
}

func (s *Session) recordExprError(err error, loc source.Location) {
	if ee, ok := err.(*expr.Error); ok {
		s.diag(SevError, string(ee.Code), ee.Message, loc)
		return
	}

	s.diag(SevError, "expression_syntax", err.Error(), loc)
}

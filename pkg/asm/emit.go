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
	"strconv"
	"strings"

	"github.com/sn65816/sn65/pkg/lex"
	"github.com/sn65816/sn65/pkg/opcode"
	"github.com/sn65816/sn65/pkg/reader"
	"github.com/sn65816/sn65/pkg/source"
	"github.com/sn65816/sn65/pkg/symbol"
)

type emitKind uint8

const (
	emitInstruction emitKind = iota
	emitData
	emitRaw
)

// emitRecord is one pass-1 intermediate step: an address and byte width
// have already been decided, but for emitInstruction/emitData the operand
// expression is evaluated only in pass 2, against the final symbol table.
type emitRecord struct {
	kind         emitKind
	addr         uint32
	width        int
	entry        opcode.Entry
	operand      parsedOperand
	dataValues   [][]lex.Token
	dataWidth    int
	dataIsString []bool
	rawBytes     []byte
	loc          source.Location
	pcAfter      uint32
	allowReplace bool
	assume       string
}

// walker drives pass 1 over the flattened, include-expanded item stream.
type walker struct {
	s          *Session
	items      []reader.Item
	pos        int
	macroDepth int
	macroExpN  int
	emits      []*emitRecord
	// structDef is non-nil while between `struct`/`endstruct`.
	structDef *symbol.Struct
}

func (s *Session) pass1(items []reader.Item) []*emitRecord {
	w := &walker{s: s, items: items}
	w.run()

	return w.emits
}

func (w *walker) run() {
	for w.pos < len(w.items) {
		it := w.items[w.pos]
		w.s.curFile = it.File

		switch {
		case it.MacroExit:
			w.macroDepth--
			w.pos++
		case it.IncBin != nil:
			w.emitRaw(it.IncBin, w.locOf(it))
			w.pos++
		case it.Token.Kind == lex.Newline, it.Token.Kind == lex.EOF:
			w.pos++
		case it.Token.Kind == lex.Directive:
			w.handleDirective()
		case it.Token.Kind == lex.Identifier:
			w.handleIdentifierStatement()
		default:
			w.s.diag(SevError, "expression_syntax", "unexpected token "+it.Token.Text, w.locOf(it))
			w.skipToNewline()
		}
	}
}

func (w *walker) locOf(it reader.Item) source.Location {
	if it.File == nil {
		return source.Location{}
	}

	return it.File.Location(it.Token.Span.Start())
}

func (w *walker) cur() reader.Item { return w.items[w.pos] }

func (w *walker) atEnd() bool { return w.pos >= len(w.items) }

func (w *walker) skipToNewline() {
	for !w.atEnd() {
		t := w.cur().Token
		w.pos++

		if t.Kind == lex.Newline || t.Kind == lex.EOF {
			return
		}
	}
}

// statementTokens collects every token up to (excluding) the terminating
// Newline/EOF, leaving the walker positioned after that terminator.
func (w *walker) statementTokens() []lex.Token {
	var toks []lex.Token

	for !w.atEnd() {
		it := w.cur()
		if it.IncBin != nil {
			break
		}

		if it.Token.Kind == lex.Newline || it.Token.Kind == lex.EOF {
			w.pos++
			break
		}

		toks = append(toks, it.Token)
		w.pos++
	}

	return toks
}

func (w *walker) handleIdentifierStatement() {
	it := w.cur()
	loc := w.locOf(it)
	name := it.Token.Text

	if w.structDef != nil {
		w.handleStructField(name, loc)
		return
	}

	// Label definition: "name:" or ".local:"
	if w.pos+1 < len(w.items) && w.items[w.pos+1].Token.Kind == lex.Punctuation && w.items[w.pos+1].Token.Text == ":" {
		w.pos += 2
		w.defineLabel(name, loc)

		return
	}

	if _, ok := w.s.store.LookupMacro(name); ok {
		w.expandMacroCall(name, loc)
		return
	}

	if variants := w.s.opcodes.Variants(name); len(variants) > 0 {
		w.pos++

		operandToks := w.statementTokens()
		w.emitInstructionStatement(name, variants, operandToks, loc, it.Comment)

		return
	}

	if strings.HasPrefix(name, "!") {
		w.pos++
		w.handleDefine(name, loc)

		return
	}

	w.s.diag(SevError, "expression_syntax", "unrecognised identifier "+name, loc)
	w.pos++
	w.skipToNewline()
}

func (w *walker) defineLabel(name string, loc source.Location) {
	local := strings.HasPrefix(name, ".")
	label := symbol.Label{
		Name:      name,
		Address:   w.s.pc,
		Bank:      Bank(w.s.pc),
		IsLocal:   local,
		DefinedAt: refOf(loc),
	}

	if _, ok := w.s.store.DefineLabel(label); !ok {
		w.s.diag(SevError, "label_redefined", "label "+name+" already defined", loc)
	}
}

func refOf(loc source.Location) symbol.Ref {
	return symbol.Ref{FileID: uint32(loc.FileID), Line: loc.Line, Column: loc.Column, ByteOffset: loc.ByteOffset}
}

// handleDefine processes "!name = <tokens...>", storing the raw text for
// lazy evaluation per the data model.
func (w *walker) handleDefine(name string, loc source.Location) {
	toks := w.statementTokens()
	if len(toks) == 0 || toks[0].Text != "=" {
		w.s.diag(SevError, "expression_syntax", "expected '=' after "+name, loc)
		return
	}

	valueToks := toks[1:]

	var b strings.Builder

	for i, t := range valueToks {
		if i > 0 {
			b.WriteByte(' ')
		}

		b.WriteString(t.Text)
	}

	d := symbol.Define{Name: strings.TrimPrefix(name, "!"), ValueText: b.String(), DefinedAt: refOf(loc)}
	if _, ok := w.s.store.DefineDefine(d); !ok {
		w.s.diag(SevError, "label_redefined", "define "+d.Name+" already defined", loc)
	}
}

// emitInstructionStatement resolves the addressing mode, picks the
// narrowest available encoding for the mnemonic, and appends an
// emitInstruction record with pass-1-final address/width.
func (w *walker) emitInstructionStatement(mnemonic string, variants []opcode.Entry, operandToks []lex.Token, loc source.Location, assume string) {
	parsed := parseOperandTokens(mnemonic, operandToks)

	entry, ok := pickEncoding(variants, parsed, w.s.mx)
	if !ok {
		w.s.diag(SevError, "expression_syntax", "no addressing-mode encoding of "+mnemonic+" matches this operand", loc)
		return
	}

	width := entry.Width
	if width == 0 {
		// Immediate width controlled by the live M or X state.
		if entry.AffectedByM {
			width = widthBytes(w.s.mx.m)
		} else if entry.AffectedByX {
			width = widthBytes(w.s.mx.x)
		} else {
			width = 1
		}
	}

	addr := w.s.pc
	total := 1 + width
	w.s.advancePC(total)

	rec := &emitRecord{
		kind:    emitInstruction,
		addr:    addr,
		width:   width,
		entry:   entry,
		operand: parsed,
		loc:     loc,
		pcAfter: w.s.pc,
		assume:  assume,
	}
	w.emits = append(w.emits, rec)

	// SEP/REP are tracked linearly, eagerly, so later instructions in
	// program order pick the right Immediate width. A non-literal operand
	// is evaluated best-effort; failure leaves the state unchanged and is
	// reported again properly in pass 2.
	switch strings.ToUpper(mnemonic) {
	case "SEP", "REP":
		if v, err := w.s.eval.Eval(parsed.tokens); err == nil {
			setBits := byte(v)
			target := 8

			if strings.EqualFold(mnemonic, "REP") {
				target = 16
			}

			if setBits&0x20 != 0 {
				w.s.mx.m = target
			}

			if setBits&0x10 != 0 {
				w.s.mx.x = target
			}
		}
	}
}

func widthBytes(bits int) int {
	if bits == 16 {
		return 2
	}

	return 1
}

// pickEncoding finds the table row matching the parsed operand's shape,
// preferring the operand's hinted width but widening to whatever encoding
// actually exists for this mnemonic.
func pickEncoding(variants []opcode.Entry, parsed parsedOperand, _ mxState) (opcode.Entry, bool) {
	for _, e := range variants {
		if e.Mode == parsed.mode {
			return e, true
		}
	}
	// Widen Direct -> Absolute -> AbsoluteLong for plain memory operands
	// when the exact hinted mode isn't available for this mnemonic.
	widenChain := map[opcode.Mode][]opcode.Mode{
		opcode.Direct:       {opcode.Absolute, opcode.AbsoluteLong},
		opcode.Absolute:     {opcode.AbsoluteLong, opcode.Direct},
		opcode.AbsoluteLong: {opcode.Absolute, opcode.Direct},
		opcode.DirectX:      {opcode.AbsoluteX, opcode.AbsoluteLongX},
		opcode.AbsoluteX:    {opcode.AbsoluteLongX, opcode.DirectX},
	}

	for _, alt := range widenChain[parsed.mode] {
		for _, e := range variants {
			if e.Mode == alt {
				return e, true
			}
		}
	}

	return opcode.Entry{}, false
}

func (w *walker) emitRaw(bytes []byte, loc source.Location) {
	addr := w.s.pc
	w.s.advancePC(len(bytes))
	w.emits = append(w.emits, &emitRecord{kind: emitRaw, addr: addr, rawBytes: bytes, loc: loc})
}

// handleStructField processes one ".field: dw ..." line inside a
// struct/endstruct body: it records an offset and advances the struct's
// running size, emitting no bytes.
func (w *walker) handleStructField(name string, loc source.Location) {
	w.pos++ // identifier

	if !w.atEnd() && w.cur().Token.Text == ":" {
		w.pos++
	}

	toks := w.statementTokens()
	width := 2

	// After ".field:" the scanner is no longer at line start, so db/dw/dl
	// arrive as plain identifiers; match them by text.
	if len(toks) > 0 {
		switch strings.ToLower(toks[0].Text) {
		case "db":
			width = 1
		case "dw":
			width = 2
		case "dl":
			width = 3
		}
	}

	w.structDef.AppendField(strings.TrimPrefix(name, "."), width)
}

// parseIntLiteral is a small helper for directives with a bare numeric
// argument (fillbyte) where full expression evaluation would be
// premature (pass 1 may run before all labels exist).
func parseIntLiteral(t lex.Token) (int64, bool) {
	text := t.Text

	switch {
	case strings.HasPrefix(text, "$"):
		v, err := strconv.ParseInt(text[1:], 16, 64)
		return v, err == nil
	case strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X"):
		v, err := strconv.ParseInt(text[2:], 16, 64)
		return v, err == nil
	default:
		v, err := strconv.ParseInt(text, 10, 64)
		return v, err == nil
	}
}

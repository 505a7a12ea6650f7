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
	"strings"

	"github.com/sn65816/sn65/pkg/lex"
	"github.com/sn65816/sn65/pkg/source"
)

func (w *walker) handleDirective() {
	it := w.cur()
	loc := w.locOf(it)
	name := strings.ToLower(it.Token.Text)
	w.pos++

	switch name {
	case "lorom", "hirom", "exlorom", "exhirom":
		m, _ := ParseMapper(name)
		w.s.cfg.Mapper = m
		w.skipToNewline()
	case "org":
		toks := w.statementTokens()
		if v, err := w.s.eval.Eval(toks); err == nil {
			w.s.pc = uint32(v)
			w.s.outPC = uint32(v)
			w.s.usingBase = false
		} else {
			w.s.recordExprError(err, loc)
		}
	case "base":
		toks := w.statementTokens()
		if v, err := w.s.eval.Eval(toks); err == nil {
			w.s.pc = uint32(v)
			w.s.usingBase = true
		} else {
			w.s.recordExprError(err, loc)
		}
	case "freecode", "freedata", "freespace":
		w.skipToNewline()
		addr := w.s.freeCode
		w.s.pc = addr
		w.s.outPC = addr
		w.s.usingBase = false
	case "pad":
		toks := w.statementTokens()
		w.handlePad(toks, loc)
	case "fillbyte":
		toks := w.statementTokens()
		if len(toks) == 1 {
			if v, ok := parseIntLiteral(toks[0]); ok {
				w.s.cfg.FillByte = byte(v)
			}
		}
	case "warnpc":
		toks := w.statementTokens()
		if v, err := w.s.eval.Eval(toks); err == nil && w.s.pc > uint32(v) {
			w.s.diag(SevWarning, "rom_io", fmt.Sprintf("program counter $%06X exceeds warnpc target $%06X", w.s.pc, uint32(v)), loc)
		}
	case "incsrc", "include", "incdir", "incbin":
		// Already resolved by the reader during expansion; nothing to do
		// here beyond consuming the trailing path-string token.
		w.skipToNewline()
	case "namespace", "pushns":
		toks := w.statementTokens()
		if len(toks) == 1 {
			w.s.store.PushNamespace(toks[0].Text)
		}
	case "popns":
		w.skipToNewline()

		if !w.s.store.PopNamespace() {
			w.s.diag(SevError, "expression_syntax", "popns with no matching pushns", loc)
		}
	case "db", "dw", "dl", "dd":
		w.handleDataDirective(name, loc)
	case "macro":
		w.captureMacro(loc)
	case "endmacro":
		w.s.diag(SevError, "expression_syntax", "endmacro without matching macro", loc)
		w.skipToNewline()
	case "struct":
		w.captureStruct(loc)
	case "endstruct":
		w.skipToNewline()

		if w.structDef == nil {
			w.s.diag(SevError, "expression_syntax", "endstruct without matching struct", loc)
			return
		}

		if _, ok := w.s.store.DefineStruct(*w.structDef); !ok {
			w.s.diag(SevError, "label_redefined", "struct "+w.structDef.Name+" already defined", loc)
		}

		w.structDef = nil
	case "hook":
		w.captureHook(loc)
	case "endhook":
		w.s.diag(SevError, "expression_syntax", "endhook without matching hook", loc)
		w.skipToNewline()
	default:
		w.skipToNewline()
	}
}

func (w *walker) handlePad(toks []lex.Token, loc source.Location) {
	v, err := w.s.eval.Eval(toks)
	if err != nil {
		w.s.recordExprError(err, loc)
		return
	}

	target := uint32(v)
	cur := w.s.currentOutputAddress()

	if target <= cur {
		return
	}

	n := int(target - cur)
	fill := make([]byte, n)

	for i := range fill {
		fill[i] = w.s.cfg.FillByte
	}

	w.emitRaw(fill, loc)
}

// handleDataDirective parses a comma-separated db/dw/dl/dd statement into
// one emitRecord per value (strings expand to one byte-width value per
// rune); actual evaluation happens in pass 2.
func (w *walker) handleDataDirective(name string, loc source.Location) {
	width := map[string]int{"db": 1, "dw": 2, "dl": 3, "dd": 4}[name]
	toks := w.statementTokens()

	for _, group := range splitTopLevelCommas(toks) {
		if len(group) == 1 && group[0].Kind == lex.String {
			for _, r := range group[0].Text {
				addr := w.s.pc
				w.s.advancePC(width)
				w.emits = append(w.emits, &emitRecord{
					kind: emitData, addr: addr, dataWidth: width, loc: loc,
					dataValues: [][]lex.Token{{{Kind: lex.Number, Text: fmt.Sprintf("%d", r)}}},
				})
			}

			continue
		}

		addr := w.s.pc
		w.s.advancePC(width)
		w.emits = append(w.emits, &emitRecord{
			kind: emitData, addr: addr, dataWidth: width, loc: loc,
			dataValues: [][]lex.Token{group},
		})
	}
}

func splitTopLevelCommas(toks []lex.Token) [][]lex.Token {
	var (
		groups  [][]lex.Token
		current []lex.Token
		depth   int
	)

	for _, t := range toks {
		if t.Kind == lex.Punctuation {
			switch t.Text {
			case "(", "[":
				depth++
			case ")", "]":
				depth--
			case ",":
				if depth == 0 {
					groups = append(groups, current)
					current = nil

					continue
				}
			}
		}

		current = append(current, t)
	}

	if len(current) > 0 || len(groups) == 0 {
		groups = append(groups, current)
	}

	return groups
}

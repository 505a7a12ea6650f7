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

	"github.com/sn65816/sn65/pkg/lex"
	"github.com/sn65816/sn65/pkg/opcode"
)

// parsedOperand is the syntactic shape of an instruction's operand,
// before the expression inside it has been evaluated.
type parsedOperand struct {
	mode       opcode.Mode
	tokens     []lex.Token // the operand expression, sigils/brackets stripped
	secondExpr []lex.Token // second operand for block-move (MVN/MVP)
	hintWidth  int         // literal-digit-count hint: 1, 2, 3, or 0 (no hint)
}

// parseOperandTokens consumes the tokens of one statement's operand
// (everything up to the terminating Newline, exclusive) and classifies
// its addressing-mode shape. mnemonic is used only to recognise the bare
// "A" accumulator shorthand and block-move's two operands.
func parseOperandTokens(mnemonic string, toks []lex.Token) parsedOperand {
	if len(toks) == 0 {
		return parsedOperand{mode: opcode.Implied}
	}

	if len(toks) == 1 && toks[0].Kind == lex.Identifier && strings.EqualFold(toks[0].Text, "A") {
		return parsedOperand{mode: opcode.Accumulator}
	}

	if strings.EqualFold(mnemonic, "MVN") || strings.EqualFold(mnemonic, "MVP") {
		return parseBlockMove(toks)
	}

	if toks[0].Kind == lex.Punctuation && toks[0].Text == "#" {
		inner := toks[1:]
		return parsedOperand{mode: opcode.Immediate, tokens: inner, hintWidth: digitHint(inner)}
	}

	if toks[0].Kind == lex.Punctuation && (toks[0].Text == "(" || toks[0].Text == "[") {
		return parseIndirect(toks)
	}
	// Plain direct/absolute/long, optionally with ",X" / ",Y" / ",S" suffix.
	base, suffix := splitIndexSuffix(toks)
	hint := digitHint(base)

	switch suffix {
	case "X":
		return modeForWidth(hint, opcode.DirectX, opcode.AbsoluteX, opcode.AbsoluteLongX, base, hint)
	case "Y":
		return modeForWidth(hint, opcode.DirectY, opcode.AbsoluteY, opcode.AbsoluteY, base, hint)
	case "S":
		return parsedOperand{mode: opcode.StackRel, tokens: base, hintWidth: hint}
	default:
		return modeForWidth(hint, opcode.Direct, opcode.Absolute, opcode.AbsoluteLong, base, hint)
	}
}

func modeForWidth(hint int, d, a, l opcode.Mode, toks []lex.Token, width int) parsedOperand {
	switch hint {
	case 1:
		return parsedOperand{mode: d, tokens: toks, hintWidth: width}
	case 3:
		return parsedOperand{mode: l, tokens: toks, hintWidth: width}
	default:
		return parsedOperand{mode: a, tokens: toks, hintWidth: width}
	}
}

// parseIndirect handles "(expr)", "(expr),Y", "(expr,X)", "[expr]",
// "[expr],Y", and "(expr,S),Y".
func parseIndirect(toks []lex.Token) parsedOperand {
	long := toks[0].Text == "["
	closeSym := ")"

	if long {
		closeSym = "]"
	}

	depth := 0
	closeIdx := -1

	for i, t := range toks {
		if t.Kind != lex.Punctuation {
			continue
		}

		if t.Text == "(" || t.Text == "[" {
			depth++
		} else if t.Text == ")" || t.Text == "]" {
			depth--
			if depth == 0 {
				closeIdx = i
				break
			}
		}
	}

	if closeIdx < 0 {
		return parsedOperand{mode: opcode.Indirect, tokens: toks}
	}

	inner := toks[1:closeIdx]
	after := toks[closeIdx+1:]

	// (expr,X) or (expr,S) -- index inside the parens.
	if idx := findTopComma(inner); idx >= 0 {
		reg := strings.ToUpper(strings.TrimSpace(tokensText(inner[idx+1:])))
		base := inner[:idx]

		if reg == "S" && len(after) >= 2 && after[0].Text == "," && strings.EqualFold(after[1].Text, "Y") {
			return parsedOperand{mode: opcode.StackRelY, tokens: base, hintWidth: digitHint(base)}
		}

		return parsedOperand{mode: opcode.IndirectX, tokens: base, hintWidth: digitHint(base)}
	}
	// (expr),Y or [expr],Y
	if len(after) >= 2 && after[0].Text == "," && strings.EqualFold(after[1].Text, "Y") {
		if long {
			return parsedOperand{mode: opcode.IndirectLongY, tokens: inner, hintWidth: digitHint(inner)}
		}

		return parsedOperand{mode: opcode.IndirectY, tokens: inner, hintWidth: digitHint(inner)}
	}

	if long {
		return parsedOperand{mode: opcode.IndirectLong, tokens: inner, hintWidth: digitHint(inner)}
	}

	return parsedOperand{mode: opcode.Indirect, tokens: inner, hintWidth: digitHint(inner)}
}

func findTopComma(toks []lex.Token) int {
	for i, t := range toks {
		if t.Kind == lex.Punctuation && t.Text == "," {
			return i
		}
	}

	return -1
}

func splitIndexSuffix(toks []lex.Token) ([]lex.Token, string) {
	idx := findTopComma(toks)
	if idx < 0 {
		return toks, ""
	}

	return toks[:idx], strings.ToUpper(strings.TrimSpace(tokensText(toks[idx+1:])))
}

func parseBlockMove(toks []lex.Token) parsedOperand {
	idx := findTopComma(toks)
	if idx < 0 {
		return parsedOperand{mode: opcode.BlockMove, tokens: toks}
	}

	return parsedOperand{mode: opcode.BlockMove, tokens: toks[:idx], secondExpr: toks[idx+1:]}
}

func tokensText(toks []lex.Token) string {
	var b strings.Builder
	for _, t := range toks {
		b.WriteString(t.Text)
	}

	return b.String()
}

// digitHint inspects a single leading `$`/`0x` literal token to determine
// the operand's intended byte width from its digit count (2 -> 1 byte, 4
// -> 2 bytes, 6 -> 3 bytes). Returns 0 (no hint, caller defaults to
// absolute/2-byte) for anything else, e.g. a bare label reference.
func digitHint(toks []lex.Token) int {
	if len(toks) == 0 || toks[0].Kind != lex.Number {
		return 0
	}

	text := toks[0].Text
	digits := 0

	switch {
	case strings.HasPrefix(text, "$"):
		digits = len(text) - 1
	case strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X"):
		digits = len(text) - 2
	default:
		return 0
	}

	switch {
	case digits <= 2:
		return 1
	case digits <= 4:
		return 2
	default:
		return 3
	}
}

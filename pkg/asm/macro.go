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
	"github.com/sn65816/sn65/pkg/reader"
	"github.com/sn65816/sn65/pkg/source"
	"github.com/sn65816/sn65/pkg/symbol"
)

// captureMacro parses "macro Name(p1, p2, ...)" and stores the token
// sequence up to the matching "endmacro" as the macro's body, without
// processing it now.
func (w *walker) captureMacro(loc source.Location) {
	if w.atEnd() || w.cur().Token.Kind != lex.Identifier {
		w.s.diag(SevError, "expression_syntax", "expected macro name after 'macro'", loc)
		w.skipToNewline()

		return
	}

	name := w.cur().Token.Text
	w.pos++

	var params []string

	if !w.atEnd() && w.cur().Token.Text == "(" {
		w.pos++

		for !w.atEnd() && w.cur().Token.Text != ")" {
			if w.cur().Token.Kind == lex.Identifier {
				params = append(params, w.cur().Token.Text)
			}

			w.pos++
		}

		if !w.atEnd() {
			w.pos++ // consume ')'
		}
	}

	w.skipToNewline()

	body, ok := w.collectUntilDirective("endmacro", "macro")
	if !ok {
		w.s.diag(SevError, "expression_syntax", "macro "+name+" missing endmacro", loc)
	}

	m := symbol.Macro{Name: name, Parameters: params, Body: body, DefinedAt: refOf(loc)}
	if _, ok := w.s.store.DefineMacro(m); !ok {
		w.s.diag(SevError, "label_redefined", "macro "+name+" already defined", loc)
	}
}

// collectUntilDirective scans raw tokens (tracking nesting of
// openKeyword/closeKeyword pairs) and returns everything up to, but not
// including, the matching close directive. Leaves the walker positioned
// just after the close directive's trailing newline.
func (w *walker) collectUntilDirective(closeKeyword, openKeyword string) ([]lex.Token, bool) {
	depth := 0

	var body []lex.Token

	for !w.atEnd() {
		it := w.cur()
		if it.IncBin != nil {
			w.pos++
			continue
		}

		if it.Token.Kind == lex.Directive {
			kw := strings.ToLower(it.Token.Text)
			if kw == openKeyword {
				depth++
			} else if kw == closeKeyword {
				if depth == 0 {
					w.pos++
					w.skipToNewline()

					return body, true
				}

				depth--
			}
		}

		body = append(body, it.Token)
		w.pos++
	}

	return body, false
}

// expandMacroCall parses the invocation's argument list, substitutes
// parameters into the macro's stored body, uniquifies local labels for
// this expansion, and splices the result back into the item stream so
// the main walker loop processes it as if it had appeared inline.
func (w *walker) expandMacroCall(name string, loc source.Location) {
	w.pos++ // consume macro-name identifier

	if w.macroDepth >= w.s.cfg.MaxMacroDepth {
		w.s.diag(SevError, "macro_arity", "macro recursion exceeds configured depth", loc)
		w.skipToNewline()

		return
	}

	argToks := w.statementTokens()
	if len(argToks) > 0 && argToks[0].Text == "(" && argToks[len(argToks)-1].Text == ")" {
		argToks = argToks[1 : len(argToks)-1]
	}

	args := splitTopLevelCommas(argToks)

	m, _ := w.s.store.LookupMacro(name)
	if len(args) != len(m.Parameters) && !(len(args) == 1 && len(args[0]) == 0 && len(m.Parameters) == 0) {
		w.s.diag(SevError, "macro_arity", fmt.Sprintf("macro %s expects %d argument(s), got %d", name, len(m.Parameters), len(args)), loc)
	}

	w.macroExpN++
	suffix := fmt.Sprintf("__m%d", w.macroExpN)

	expanded := substituteMacroBody(m, args, suffix)

	items := make([]reader.Item, len(expanded), len(expanded)+1)
	for i, t := range expanded {
		items[i] = reader.Item{Token: t, File: w.s.curFile}
	}
	// A macro's body is merely spliced into the item stream here; it is
	// walked later by the outer run() loop, possibly re-entering this
	// function for a nested call. The MacroExit sentinel lets run() know
	// when the spliced region has actually been consumed, so depth is
	// decremented on exit from the expansion rather than on return from
	// this call.
	items = append(items, reader.Item{File: w.s.curFile, MacroExit: true})

	tail := append([]reader.Item{}, w.items[w.pos:]...)
	w.items = append(append(w.items[:w.pos], items...), tail...)

	w.macroDepth++
}

func substituteMacroBody(m symbol.Macro, args [][]lex.Token, localSuffix string) []lex.Token {
	paramIndex := make(map[string]int, len(m.Parameters))
	for i, p := range m.Parameters {
		paramIndex[p] = i
	}

	var out []lex.Token

	for i := 0; i < len(m.Body); i++ {
		t := m.Body[i]
		// "<param>" substitution: three raw tokens '<' ident '>'.
		if t.Kind == lex.Punctuation && t.Text == "<" && i+2 < len(m.Body) &&
			m.Body[i+1].Kind == lex.Identifier && m.Body[i+2].Text == ">" {
			if idx, ok := paramIndex[m.Body[i+1].Text]; ok && idx < len(args) {
				out = append(out, args[idx]...)
				i += 2

				continue
			}
		}

		if t.Kind == lex.Identifier && strings.HasPrefix(t.Text, ".") {
			renamed := t
			renamed.Text = t.Text + localSuffix
			out = append(out, renamed)

			continue
		}

		out = append(out, t)
	}

	return out
}

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
	"github.com/sn65816/sn65/pkg/reader"
	"github.com/sn65816/sn65/pkg/source"
	"github.com/sn65816/sn65/pkg/symbol"
)

// captureStruct parses "struct Name" and opens a struct-under-
// construction; subsequent ".field: dw ..." statements accumulate into it
// until the matching "endstruct" (handled in directives.go, since field
// parsing reuses the normal identifier-statement path).
func (w *walker) captureStruct(loc source.Location) {
	if w.atEnd() || w.cur().Token.Kind != lex.Identifier {
		w.s.diag(SevError, "expression_syntax", "expected struct name after 'struct'", loc)
		w.skipToNewline()

		return
	}

	name := w.cur().Token.Text
	w.pos++
	w.skipToNewline()

	w.structDef = &symbol.Struct{Name: name, DefinedAt: refOf(loc)}
}

// captureHook parses "hook <addr>, <kind>", allocates the body in free
// space, patches <addr> with the requested jump, and records a
// HookEntry. The body between hook/endhook is assembled at the allocated
// address by a nested run over its captured tokens, exactly like any
// other code region.
func (w *walker) captureHook(loc source.Location) {
	toks := w.statementTokens()
	groups := splitTopLevelCommas(toks)

	if len(groups) < 2 {
		w.s.diag(SevError, "hook_parse", "hook requires an address and a kind", loc)
		w.collectUntilDirective("endhook", "hook")

		return
	}

	addrVal, err := w.s.eval.Eval(groups[0])
	if err != nil {
		w.s.recordExprError(err, loc)
		w.collectUntilDirective("endhook", "hook")

		return
	}

	kindName := strings.ToLower(strings.TrimSpace(tokensText(groups[1])))

	kind, ok := ParseHookKind(kindName)
	if !ok {
		w.s.diag(SevError, "hook_parse", "unknown hook kind "+kindName, loc)
		w.collectUntilDirective("endhook", "hook")

		return
	}

	body, ok := w.collectUntilDirective("endhook", "hook")
	if !ok {
		w.s.diag(SevError, "hook_parse", "hook missing endhook", loc)
	}

	bodyAddr := w.s.freeCode

	size, patchBytes := patchSizeFor(kind)
	hookAddr := uint32(addrVal)

	entry := HookEntry{
		Address:   hookAddr,
		Size:      size,
		Kind:      kind,
		Target:    bodyAddr,
		SourceLoc: loc,
	}
	w.s.hooks = append(w.s.hooks, entry)

	// Patch the call site.
	savedPC, savedOutPC, savedBase := w.s.pc, w.s.outPC, w.s.usingBase
	w.s.pc, w.s.outPC, w.s.usingBase = hookAddr, hookAddr, false
	w.emits = append(w.emits, &emitRecord{
		kind: emitRaw, addr: hookAddr, loc: loc,
		rawBytes: encodeHookPatch(kind, bodyAddr, patchBytes),
	})
	w.s.pc, w.s.outPC, w.s.usingBase = savedPC, savedOutPC, savedBase

	// Assemble the captured body at the allocated free-space address.
	if !endsInTerminator(body) {
		body = append(body, terminatorFor(kind)...)
	}

	savedItems, savedPos := w.items, w.pos
	w.s.pc, w.s.outPC, w.s.usingBase = bodyAddr, bodyAddr, false

	bodyItems := make([]reader.Item, len(body))
	for i, t := range body {
		bodyItems[i] = reader.Item{Token: t, File: w.s.curFile}
	}

	w.items, w.pos = bodyItems, 0
	w.run()
	w.s.freeCode = w.s.outPC

	w.items, w.pos = savedItems, savedPos
}

func patchSizeFor(kind HookKind) (int, int) {
	switch kind {
	case HookJSL, HookJML:
		return 4, 4
	case HookJSR, HookJMP:
		return 3, 3
	default:
		return 0, 0
	}
}

// encodeHookPatch produces the bytes written at the call site: the jump
// opcode followed by the little-endian target.
func encodeHookPatch(kind HookKind, target uint32, size int) []byte {
	out := make([]byte, size)

	switch kind {
	case HookJSL:
		out[0] = 0x22
	case HookJML:
		out[0] = 0x5C
	case HookJSR:
		out[0] = 0x20
	case HookJMP:
		out[0] = 0x4C
	default:
		return nil
	}

	for i := 1; i < size; i++ {
		out[i] = byte(target >> (8 * (i - 1)))
	}

	return out
}

// endsInTerminator reports whether the raw body token stream's final
// non-trivial statement is already RTL/RTS/RTI, so captureHook knows
// whether it must append one.
func endsInTerminator(body []lex.Token) bool {
	last := ""

	for _, t := range body {
		if t.Kind == lex.Identifier {
			last = strings.ToUpper(t.Text)
		}
	}

	return last == "RTL" || last == "RTS" || last == "RTI"
}

func terminatorFor(kind HookKind) []lex.Token {
	name := "RTS"
	if kind == HookJSL || kind == HookJML {
		name = "RTL"
	}

	return []lex.Token{{Kind: lex.Identifier, Text: name}, {Kind: lex.Newline, Text: "\n"}}
}

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
package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.lsp.dev/jsonrpc2"

	"github.com/sn65816/sn65/pkg/asm"
	"github.com/sn65816/sn65/pkg/symbol"
)

type textDocumentItem struct {
	URI  string `json:"uri"`
	Text string `json:"text"`
}

type versionedDoc struct {
	URI     string `json:"uri"`
	Version int32  `json:"version"`
}

type didOpenParams struct {
	TextDocument textDocumentItem `json:"textDocument"`
}

type contentChange struct {
	Text string `json:"text"`
}

type didChangeParams struct {
	TextDocument   versionedDoc    `json:"textDocument"`
	ContentChanges []contentChange `json:"contentChanges"`
}

type didCloseParams struct {
	TextDocument struct {
		URI string `json:"uri"`
	} `json:"textDocument"`
}

type position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

type textDocumentPositionParams struct {
	TextDocument struct {
		URI string `json:"uri"`
	} `json:"textDocument"`
	Position position `json:"position"`
}

type location struct {
	URI   string `json:"uri"`
	Range rng    `json:"range"`
}

type rng struct {
	Start position `json:"start"`
	End   position `json:"end"`
}

func (s *Server) onDidOpen(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var p didOpenParams
	if err := json.Unmarshal(req.Params(), &p); err != nil {
		return reply(ctx, nil, err)
	}

	path := canonicalPath(p.TextDocument.URI)

	s.mu.Lock()
	s.docs[p.TextDocument.URI] = &document{uri: p.TextDocument.URI, text: p.TextDocument.Text, version: 1}
	s.mu.Unlock()

	s.registerIncludes(p.TextDocument.URI, path, p.TextDocument.Text)
	s.scheduleAnalysis(p.TextDocument.URI)

	return reply(ctx, nil, nil)
}

func (s *Server) onDidChange(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var p didChangeParams
	if err := json.Unmarshal(req.Params(), &p); err != nil {
		return reply(ctx, nil, err)
	}

	s.mu.Lock()
	doc, ok := s.docs[p.TextDocument.URI]
	if ok && len(p.ContentChanges) > 0 {
		// Full-document sync: the last change carries the complete text.
		doc.text = p.ContentChanges[len(p.ContentChanges)-1].Text
		doc.version = p.TextDocument.Version
	}
	s.mu.Unlock()

	if ok {
		s.registerIncludes(p.TextDocument.URI, canonicalPath(p.TextDocument.URI), doc.text)
		s.scheduleAnalysis(p.TextDocument.URI)
	}

	return reply(ctx, nil, nil)
}

func (s *Server) onDidClose(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var p didCloseParams
	if err := json.Unmarshal(req.Params(), &p); err != nil {
		return reply(ctx, nil, err)
	}

	s.mu.Lock()
	delete(s.docs, p.TextDocument.URI)
	delete(s.lastDiag, p.TextDocument.URI)
	s.mu.Unlock()

	return reply(ctx, nil, nil)
}

var includeDirective = regexp.MustCompile(`(?im)^\s*(?:incsrc|include)\s+"([^"]+)"`)

// registerIncludes scans text for incsrc/include directives and registers
// the parent->child edge in the project graph, so root selection can find
// this document's nearest ancestor.
func (s *Server) registerIncludes(uri, path, text string) {
	dir := filepath.Dir(path)

	for _, m := range includeDirective.FindAllStringSubmatch(text, -1) {
		child := filepath.Clean(filepath.Join(dir, m[1]))
		s.graph.AddEdge(uri, "file://"+child)
	}
}

func (s *Server) onDefinition(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	p, name, ok := s.identifierAtPosition(req)
	if !ok {
		return reply(ctx, nil, nil)
	}

	s.mu.RLock()
	store := s.store
	s.mu.RUnlock()

	if store == nil {
		return reply(ctx, nil, nil)
	}

	sym, ok := store.Lookup(name)
	if !ok {
		return reply(ctx, nil, nil)
	}

	loc := location{URI: p.TextDocument.URI, Range: pointRange(refPosition(sym))}

	return reply(ctx, []location{loc}, nil)
}

func refPosition(sym symbol.Symbol) position {
	switch sym.Kind {
	case symbol.KindLabel:
		return position{Line: sym.Label.DefinedAt.Line - 1, Character: sym.Label.DefinedAt.Column - 1}
	case symbol.KindDefine:
		return position{Line: sym.Define.DefinedAt.Line - 1, Character: sym.Define.DefinedAt.Column - 1}
	case symbol.KindMacro:
		return position{Line: sym.Macro.DefinedAt.Line - 1, Character: sym.Macro.DefinedAt.Column - 1}
	default:
		return position{}
	}
}

func pointRange(p position) rng {
	return rng{Start: p, End: position{Line: p.Line, Character: p.Character + 1}}
}

func (s *Server) onReferences(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	_, name, ok := s.identifierAtPosition(req)
	if !ok {
		return reply(ctx, nil, nil)
	}

	return reply(ctx, s.scanWorkspace(name), nil)
}

// scanWorkspace finds every whole-word occurrence of name across the text
// of every open document, shared by References and Rename. Files that are
// not open in the editor are not scanned.
func (s *Server) scanWorkspace(name string) []location {
	var out []location

	s.mu.RLock()
	docsCopy := make(map[string]string, len(s.docs))
	for uri, d := range s.docs {
		docsCopy[uri] = d.text
	}
	s.mu.RUnlock()

	for uri, text := range docsCopy {
		for _, off := range wholeWordOccurrences(text, name) {
			line, col := lineCol(text, off)
			out = append(out, location{URI: uri, Range: rng{
				Start: position{Line: line, Character: col},
				End:   position{Line: line, Character: col + len(name)},
			}})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].URI < out[j].URI })

	return out
}

func (s *Server) onHover(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	_, name, ok := s.identifierAtPosition(req)
	if !ok {
		return reply(ctx, nil, nil)
	}

	s.mu.RLock()
	store := s.store
	s.mu.RUnlock()

	if store == nil {
		return reply(ctx, nil, nil)
	}

	sym, ok := store.Lookup(name)
	if !ok {
		return reply(ctx, nil, nil)
	}

	return reply(ctx, map[string]any{"contents": hoverText(sym)}, nil)
}

func hoverText(sym symbol.Symbol) string {
	switch sym.Kind {
	case symbol.KindLabel:
		return fmt.Sprintf("label %s = $%06X", sym.Label.Name, sym.Label.Address)
	case symbol.KindDefine:
		return fmt.Sprintf("define %s = %s", sym.Define.Name, sym.Define.ValueText)
	case symbol.KindMacro:
		return fmt.Sprintf("macro %s(%s)", sym.Macro.Name, strings.Join(sym.Macro.Parameters, ", "))
	case symbol.KindStruct:
		return fmt.Sprintf("struct %s (%d bytes)", sym.Struct.Name, sym.Struct.TotalSize)
	default:
		return sym.Name()
	}
}

type completionItem struct {
	Label string `json:"label"`
	Kind  int    `json:"kind"`
}

// LSP CompletionItemKind values used below: Constant=21, Function=3.
const (
	kindConstant = 21
	kindFunction = 3
)

func (s *Server) onCompletion(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	_, prefix, _ := s.identifierAtPosition(req)

	s.mu.RLock()
	store := s.store
	s.mu.RUnlock()

	if store == nil {
		return reply(ctx, []completionItem{}, nil)
	}

	var items []completionItem

	for _, name := range store.Names() {
		if prefix != "" && !strings.HasPrefix(name, prefix) {
			continue
		}

		sym, ok := store.Lookup(name)
		if !ok {
			if _, ok := store.LookupMacro(name); ok {
				items = append(items, completionItem{Label: name, Kind: kindFunction})
			}

			continue
		}

		kind := kindConstant
		if sym.Kind == symbol.KindMacro {
			kind = kindFunction
		}

		items = append(items, completionItem{Label: name, Kind: kind})
	}

	return reply(ctx, items, nil)
}

type inlayHint struct {
	Position position `json:"position"`
	Label    string   `json:"label"`
}

var hexLiteral = regexp.MustCompile(`\$[0-9A-Fa-f]{2,6}`)

func (s *Server) onInlayHint(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var p struct {
		TextDocument struct {
			URI string `json:"uri"`
		} `json:"textDocument"`
	}

	if err := json.Unmarshal(req.Params(), &p); err != nil {
		return reply(ctx, nil, err)
	}

	s.mu.RLock()
	doc, ok := s.docs[p.TextDocument.URI]
	store := s.store
	s.mu.RUnlock()

	if !ok || store == nil {
		return reply(ctx, []inlayHint{}, nil)
	}

	var hints []inlayHint

	for _, loc := range hexLiteral.FindAllStringIndex(doc.text, -1) {
		text := doc.text[loc[0]:loc[1]]

		var addr uint32
		if _, err := fmt.Sscanf(text[1:], "%x", &addr); err != nil {
			continue
		}

		lbl, ok := store.LookupAddress(addr)
		if !ok {
			continue
		}

		line, col := lineCol(doc.text, loc[1])
		hints = append(hints, inlayHint{Position: position{Line: line, Character: col}, Label: lbl.Name})
	}

	return reply(ctx, hints, nil)
}

type signatureHelp struct {
	Signatures      []signatureInfo `json:"signatures"`
	ActiveParameter int             `json:"activeParameter"`
}

type signatureInfo struct {
	Label      string   `json:"label"`
	Parameters []string `json:"parameters"`
}

func (s *Server) onSignatureHelp(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var p textDocumentPositionParams
	if err := json.Unmarshal(req.Params(), &p); err != nil {
		return reply(ctx, nil, err)
	}

	s.mu.RLock()
	doc, ok := s.docs[p.TextDocument.URI]
	store := s.store
	s.mu.RUnlock()

	if !ok || store == nil {
		return reply(ctx, nil, nil)
	}

	offset := offsetAt(doc.text, p.Position)
	name, parenStart, ok := enclosingMacroCall(doc.text, offset)

	if !ok {
		return reply(ctx, nil, nil)
	}

	m, ok := store.LookupMacro(name)
	if !ok {
		return reply(ctx, nil, nil)
	}

	// Count only the commas at the call's own paren depth.
	active, depth := 0, 0

	for _, c := range doc.text[parenStart:offset] {
		switch c {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				active++
			}
		}
	}

	return reply(ctx, signatureHelp{
		Signatures:      []signatureInfo{{Label: name + "(" + strings.Join(m.Parameters, ", ") + ")", Parameters: m.Parameters}},
		ActiveParameter: active,
	}, nil)
}

// enclosingMacroCall walks backward from offset to find "name(" at the
// current paren depth, so signature help tracks the active argument even
// inside nested parentheses.
func enclosingMacroCall(text string, offset int) (string, int, bool) {
	depth := 0

	for i := offset - 1; i >= 0; i-- {
		switch text[i] {
		case ')':
			depth++
		case '(':
			if depth == 0 {
				j := i - 1
				for j >= 0 && isWordByte(text[j]) {
					j--
				}

				return text[j+1 : i], i + 1, j+1 < i
			}

			depth--
		}
	}

	return "", 0, false
}

func offsetAt(text string, p position) int {
	line, col := 0, 0

	for i, r := range text {
		if line == p.Line && col == p.Character {
			return i
		}

		if r == '\n' {
			line++
			col = 0
		} else {
			col++
		}
	}

	return len(text)
}

type textEdit struct {
	Range   rng    `json:"range"`
	NewText string `json:"newText"`
}

func (s *Server) onRename(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var p struct {
		textDocumentPositionParams
		NewName string `json:"newName"`
	}

	if err := json.Unmarshal(req.Params(), &p); err != nil {
		return reply(ctx, nil, err)
	}

	_, name, ok := s.identifierAtPosition(req)
	if !ok {
		return reply(ctx, nil, nil)
	}

	locs := s.scanWorkspace(name)

	edits := make(map[string][]textEdit)

	for _, l := range locs {
		edits[l.URI] = append(edits[l.URI], textEdit{Range: l.Range, NewText: p.NewName})
	}

	return reply(ctx, map[string]any{"changes": edits}, nil)
}

// identifierAtPosition locates the whole identifier (letters, digits, '_',
// '.') touching the cursor in a textDocumentPositionParams request,
// shared by definition/references/hover/completion.
func (s *Server) identifierAtPosition(req jsonrpc2.Request) (textDocumentPositionParams, string, bool) {
	var p textDocumentPositionParams
	if err := json.Unmarshal(req.Params(), &p); err != nil {
		return p, "", false
	}

	s.mu.RLock()
	doc, ok := s.docs[p.TextDocument.URI]
	s.mu.RUnlock()

	if !ok {
		return p, "", false
	}

	offset := offsetAt(doc.text, p.Position)

	start, end := offset, offset
	for start > 0 && isWordByte(doc.text[start-1]) {
		start--
	}

	for end < len(doc.text) && isWordByte(doc.text[end]) {
		end++
	}

	if start == end {
		return p, "", false
	}

	return p, doc.text[start:end], true
}

// publishDiagnostics sends textDocument/publishDiagnostics, translating
// asm.Diagnostic into the LSP wire shape. Diagnostics for a document
// version superseded before this point was reached are dropped by the
// caller (analyze), not here.
func (s *Server) publishDiagnostics(uri string, version int32, diags []asm.Diagnostic) {
	if s.conn == nil {
		return
	}

	type lspDiag struct {
		Range    rng    `json:"range"`
		Severity int    `json:"severity"`
		Code     string `json:"code"`
		Message  string `json:"message"`
	}

	out := make([]lspDiag, 0, len(diags))

	for _, d := range diags {
		pos := position{Line: d.Loc.Line - 1, Character: d.Loc.Column - 1}
		if d.Loc.Zero() {
			pos = position{}
		}

		out = append(out, lspDiag{
			Range:    pointRange(pos),
			Severity: int(d.Severity) + 1,
			Code:     d.Code,
			Message:  d.Message,
		})
	}

	params := map[string]any{"uri": uri, "version": version, "diagnostics": out}

	_ = s.conn.Notify(context.Background(), "textDocument/publishDiagnostics", params)
}

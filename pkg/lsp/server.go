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

// Package lsp implements the editor-facing Language Server: a length-
// prefixed JSON-RPC transport over standard input/output, a per-document
// cache, debounced re-analysis through the assembler session, and the
// feature handlers (definition, references, hover, completion, inlay
// hints, signature help, rename).
package lsp

import (
	"context"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/uri"
	"go.uber.org/zap"

	"github.com/sn65816/sn65/pkg/asm"
	"github.com/sn65816/sn65/pkg/config"
	"github.com/sn65816/sn65/pkg/lint"
	"github.com/sn65816/sn65/pkg/project"
	"github.com/sn65816/sn65/pkg/symbol"
)

const debounce = 150 * time.Millisecond

// mainFilePattern recognizes the convention-named files the project graph
// prefers as a root when no explicit `main` config entry matches, per 4.J.
var mainFilePattern = regexp.MustCompile(`(?i)(^main\.asm$|_main\.asm$|-main\.asm$)`)

// Server owns the workspace-wide state: open documents, the include
// project graph, the last assembled symbol table, and the worker pool
// that performs re-assembly off the request-dispatch goroutine.
type Server struct {
	mu       sync.RWMutex
	docs     map[string]*document
	graph    *project.Graph
	cfg      *config.Config
	store    *symbol.Store
	lastDiag map[string][]asm.Diagnostic
	root     string
	workers  chan func()
	log      *zap.Logger
	conn     jsonrpc2.Conn
}

// NewServer constructs a Server; cfg may be nil, in which case defaults
// are used and `main` preference comes only from filename convention.
func NewServer(cfg *config.Config, log *zap.Logger, rootAsmFile string) *Server {
	s := &Server{
		docs:     make(map[string]*document),
		graph:    project.New(),
		cfg:      cfg,
		lastDiag: make(map[string][]asm.Diagnostic),
		root:     rootAsmFile,
		workers:  make(chan func(), 64),
		log:      log,
	}

	for i := 0; i < 4; i++ {
		go s.workerLoop()
	}

	return s
}

func (s *Server) workerLoop() {
	for fn := range s.workers {
		fn()
	}
}

// Serve runs the JSON-RPC loop over rwc (typically stdin/stdout) until the
// connection closes or ctx is cancelled.
func (s *Server) Serve(ctx context.Context, rwc io.ReadWriteCloser) error {
	stream := jsonrpc2.NewStream(rwc)
	conn := jsonrpc2.NewConn(stream)
	s.conn = conn

	conn.Go(ctx, s.handle)
	<-conn.Done()

	return conn.Err()
}

// handle routes one incoming JSON-RPC request or notification to its
// feature handler, replying with the typed result or a decode/handler
// error. Unknown methods are answered with MethodNotFound, per JSON-RPC.
func (s *Server) handle(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	switch req.Method() {
	case "initialize":
		return reply(ctx, s.initializeResult(), nil)
	case "initialized", "exit", "shutdown":
		return reply(ctx, nil, nil)
	case "textDocument/didOpen":
		return s.onDidOpen(ctx, reply, req)
	case "textDocument/didChange":
		return s.onDidChange(ctx, reply, req)
	case "textDocument/didClose":
		return s.onDidClose(ctx, reply, req)
	case "textDocument/definition":
		return s.onDefinition(ctx, reply, req)
	case "textDocument/references":
		return s.onReferences(ctx, reply, req)
	case "textDocument/hover":
		return s.onHover(ctx, reply, req)
	case "textDocument/completion":
		return s.onCompletion(ctx, reply, req)
	case "textDocument/inlayHint":
		return s.onInlayHint(ctx, reply, req)
	case "textDocument/signatureHelp":
		return s.onSignatureHelp(ctx, reply, req)
	case "textDocument/rename":
		return s.onRename(ctx, reply, req)
	case "$/cancelRequest":
		return reply(ctx, nil, nil)
	default:
		return jsonrpc2.MethodNotFoundHandler(ctx, reply, req)
	}
}

func (s *Server) initializeResult() map[string]any {
	return map[string]any{
		"capabilities": map[string]any{
			"textDocumentSync":           2,
			"definitionProvider":         true,
			"referencesProvider":         true,
			"hoverProvider":              true,
			"completionProvider":         map[string]any{"triggerCharacters": []string{"!", "."}},
			"inlayHintProvider":          true,
			"signatureHelpProvider":      map[string]any{"triggerCharacters": []string{"(", ","}},
			"renameProvider":             true,
			"documentFormattingProvider": false,
		},
	}
}

// canonicalPath resolves an LSP document URI to a plain filesystem path so
// workspace scans and includes can use filepath directly. Falls back to
// stripping the file:// scheme by hand if the URI fails to parse, which
// keeps the server usable against editors sending slightly malformed URIs.
func canonicalPath(docURI string) string {
	if u, err := uri.Parse(docURI); err == nil {
		return filepath.Clean(u.Filename())
	}

	return filepath.Clean(strings.TrimPrefix(docURI, "file://"))
}

// scheduleAnalysis debounces re-assembly: each call resets the document's
// timer; only the last keystroke within the debounce window actually
// triggers a worker job.
func (s *Server) scheduleAnalysis(uri string) {
	s.mu.Lock()
	doc, ok := s.docs[uri]
	s.mu.Unlock()

	if !ok {
		return
	}

	if doc.timer != nil {
		doc.timer.Stop()
	}

	version := doc.version
	doc.timer = time.AfterFunc(debounce, func() {
		s.workers <- func() { s.analyze(uri, version) }
	})
}

// preferredRoots is the project graph's preferred set for SelectRoot: the
// config's `main`/`main_files` entries plus any open document whose
// filename matches the Main.asm / *_main.asm / *-main.asm convention.
func (s *Server) preferredRoots() map[string]bool {
	preferred := make(map[string]bool)

	if s.cfg != nil {
		for _, m := range s.cfg.Main {
			preferred[m] = true
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for uri := range s.docs {
		if mainFilePattern.MatchString(filepath.Base(canonicalPath(uri))) {
			preferred[uri] = true
		}
	}

	return preferred
}

// analyze re-assembles from the selected root and publishes diagnostics
// filtered to the edited document, dropping any that
// suppressRootSelectionArtifacts identifies as a root-selection artifact
// rather than a genuine error. Results for a version the document has since
// advanced past are discarded.
func (s *Server) analyze(editedURI string, version int32) {
	root := s.graph.SelectRoot(editedURI, s.preferredRoots())

	cfg := asm.DefaultConfig()
	if s.cfg != nil {
		cfg.Mapper = s.cfg.Mapper
		if s.cfg.RomSize > 0 {
			cfg.RomSize = s.cfg.RomSize
		}

		cfg.Prohibited = s.cfg.Prohibited
	}

	var includeDirs []string
	if s.cfg != nil {
		includeDirs = s.cfg.IncludePaths
	}

	res, err := asm.Assemble(cfg, canonicalPath(root), includeDirs)
	if err != nil {
		s.log.Warn("assembly failed", zap.Error(err))
		return
	}

	s.mu.Lock()
	if doc, ok := s.docs[editedURI]; ok && doc.version != version {
		s.mu.Unlock()
		return // superseded by a later edit
	}

	s.store = res.Store

	opts := lint.Options{}
	if s.cfg != nil {
		opts.WarnUnusedSymbols = s.cfg.WarnUnusedSymbols
	}

	diags := append(append([]asm.Diagnostic(nil), res.Diagnostics...), lint.Run(res, nil, opts)...)
	diags = suppressRootSelectionArtifacts(diags, res.Store)
	s.lastDiag[editedURI] = filterByFile(diags, canonicalPath(editedURI))
	toPublish := s.lastDiag[editedURI]
	s.mu.Unlock()

	s.publishDiagnostics(editedURI, version, toPublish)
}

// suppressRootSelectionArtifacts drops an expression_undefined error for a
// name the workspace symbol index (built from the just-completed assembly)
// already resolves — the miss is a root-selection artifact, since the
// edited file was analyzed as an included fragment rather than from its
// own root, not a genuinely undefined reference.
func suppressRootSelectionArtifacts(diags []asm.Diagnostic, store *symbol.Store) []asm.Diagnostic {
	var out []asm.Diagnostic

	for _, d := range diags {
		if d.Severity == asm.SevError && d.Code == "expression_undefined" {
			if name, ok := undefinedIdentifierName(d.Message); ok {
				if _, ok := store.Lookup(name); ok {
					continue
				}
			}
		}

		out = append(out, d)
	}

	return out
}

// undefinedIdentifierName extracts the quoted identifier from an
// `undefined identifier "name"` message (see pkg/expr's Undefined error),
// matching only that message shape so unrelated expression_undefined
// diagnostics (e.g. the linter's unused-symbol warnings) pass through.
func undefinedIdentifierName(msg string) (string, bool) {
	start := strings.IndexByte(msg, '"')
	if start < 0 {
		return "", false
	}

	end := strings.IndexByte(msg[start+1:], '"')
	if end < 0 {
		return "", false
	}

	return msg[start+1 : start+1+end], true
}

func filterByFile(diags []asm.Diagnostic, path string) []asm.Diagnostic {
	var out []asm.Diagnostic

	for _, d := range diags {
		if d.File == "" || filepath.Clean(d.File) == path {
			out = append(out, d)
		}
	}

	return out
}

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

// Package reader loads assembly source files, expanding include directives
// (incsrc/include/incdir/incbin) into one flat stream of items whose
// originating file and location are tracked at every token.
package reader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sn65816/sn65/pkg/lex"
	"github.com/sn65816/sn65/pkg/source"
)

// Item is one element of the expanded stream: either an ordinary token,
// (when IncBin is non-nil) a block of raw bytes inserted by `incbin`, or
// (when MacroExit is set) a marker with no token/byte payload that a macro
// expansion splices after its body so the consumer can tell when that
// expansion's tokens have actually been walked. Comment carries the
// trailing/standalone line-comment text sharing this token's physical
// line, if any (e.g. an `; assume m:8` override).
type Item struct {
	Token     lex.Token
	File      *source.File
	IncBin    []byte
	MacroExit bool
	Comment   string
}

// Error is a structured reader failure (include_not_found / include_cycle).
type Error struct {
	Code    string
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

// Reader loads and caches source files by canonical path, assigning each a
// stable FileID in load order.
type Reader struct {
	nextID  source.FileID
	byPath  map[string]*source.File
	ordered []*source.File
}

// New constructs an empty reader.
func New() *Reader {
	return &Reader{byPath: make(map[string]*source.File)}
}

// Files returns every file loaded so far, in load order. Used by the LSP
// and disassembler to resolve FileID -> filename for diagnostics.
func (r *Reader) Files() []*source.File { return r.ordered }

func (r *Reader) load(path string) (*source.File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	if f, ok := r.byPath[abs]; ok {
		return f, nil
	}

	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{"include_not_found", fmt.Sprintf("%s: %v", path, err)}
	}

	f := source.NewFile(r.nextID, path, bytes)
	r.nextID++
	r.byPath[abs] = f
	r.ordered = append(r.ordered, f)

	return f, nil
}

// Expand loads rootPath and recursively expands its include directives
// into a single flat Item stream. searchDirs is the initial include-path
// list from configuration; `incdir` directives extend it for the
// remainder of the expansion (depth-first, matching the textual order a
// single-pass preprocessor would see).
func (r *Reader) Expand(rootPath string, searchDirs []string) ([]Item, []error) {
	dirs := append([]string{}, searchDirs...)
	chain := map[string]bool{}

	return r.expandFile(rootPath, &dirs, chain)
}

func (r *Reader) expandFile(path string, dirs *[]string, chain map[string]bool) ([]Item, []error) {
	abs, _ := filepath.Abs(path)
	if chain[abs] {
		return nil, []error{&Error{"include_cycle", path}}
	}

	chain[abs] = true
	defer delete(chain, abs)

	file, err := r.load(path)
	if err != nil {
		return nil, []error{err}
	}

	scanner := lex.NewScanner(file)
	tokens := scanner.Collect()
	comments := scanner.Comments()

	var (
		items []Item
		errs  []error
	)

	fileDir := filepath.Dir(path)
	line := 1

	for i := 0; i < len(tokens); i++ {
		t := tokens[i]

		if t.Kind == lex.Directive {
			switch strings.ToLower(t.Text) {
			case "incsrc", "include":
				if i+1 < len(tokens) && tokens[i+1].Kind == lex.String {
					target := tokens[i+1].Text
					i++

					resolved, rerr := resolvePath(target, fileDir, *dirs)
					if rerr != nil {
						errs = append(errs, rerr)
						continue
					}

					sub, serrs := r.expandFile(resolved, dirs, chain)
					items = append(items, sub...)
					errs = append(errs, serrs...)

					continue
				}
			case "incdir":
				if i+1 < len(tokens) && tokens[i+1].Kind == lex.String {
					*dirs = append(*dirs, tokens[i+1].Text)
					i++

					continue
				}
			case "incbin":
				if i+1 < len(tokens) && tokens[i+1].Kind == lex.String {
					target := tokens[i+1].Text
					i++

					resolved, rerr := resolvePath(target, fileDir, *dirs)
					if rerr != nil {
						errs = append(errs, rerr)
						continue
					}

					bytes, berr := os.ReadFile(resolved)
					if berr != nil {
						errs = append(errs, &Error{"include_not_found", resolved})
						continue
					}

					items = append(items, Item{File: file, IncBin: bytes})

					continue
				}
			}
		}

		items = append(items, Item{Token: t, File: file, Comment: comments[line]})

		if t.Kind == lex.Newline {
			line++
		}
	}

	return items, errs
}

// resolvePath implements the resolution order: (i) relative to the
// including file's directory, then (ii) each configured search directory
// in order.
func resolvePath(target, includingDir string, dirs []string) (string, error) {
	candidate := target
	if !filepath.IsAbs(target) {
		candidate = filepath.Join(includingDir, target)
	}

	if _, err := os.Stat(candidate); err == nil {
		return candidate, nil
	}

	for _, d := range dirs {
		candidate = filepath.Join(d, target)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", &Error{"include_not_found", target}
}

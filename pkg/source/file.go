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
package source

import (
	"fmt"
	"os"
)

// FileID uniquely identifies a File within a given assembly session or LSP
// workspace.  Assigned in load order by whichever component reads files
// (the reader, or the LSP document cache).
type FileID uint32

// File represents a single loaded source file, identified both by its
// filename and a small integer ID stable for the lifetime of the session
// that loaded it.
type File struct {
	id       FileID
	filename string
	contents []rune
}

// NewFile constructs a new source file from a byte buffer already in memory
// (used by the LSP document cache, where the buffer is the editor's live
// text rather than something on disk).
func NewFile(id FileID, filename string, bytes []byte) *File {
	return &File{id, filename, []rune(string(bytes))}
}

// ReadFile loads a single file from disk into a File.
func ReadFile(id FileID, filename string) (*File, error) {
	bytes, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filename, err)
	}

	return NewFile(id, filename, bytes), nil
}

// ID returns the stable identifier for this file.
func (f *File) ID() FileID { return f.id }

// Filename returns the filename associated with this source file.
func (f *File) Filename() string { return f.filename }

// Contents returns the full rune buffer of this source file.
func (f *File) Contents() []rune { return f.contents }

// Line provides information about a single physical line within a File.
type Line struct {
	text   []rune
	span   Span
	number int
}

// String returns the textual contents of this line.
func (l *Line) String() string { return string(l.text[l.span.start:l.span.end]) }

// Number returns the 1-based line number.
func (l *Line) Number() int { return l.number }

// Start returns the rune offset at which this line begins.
func (l *Line) Start() int { return l.span.start }

// Location computes the SourceLocation of a byte offset within this file.
// Line and column are both 1-based; column counts runes since the start of
// the line.
func (f *File) Location(offset int) Location {
	line := 1
	lineStart := 0

	for i := 0; i < offset && i < len(f.contents); i++ {
		if f.contents[i] == '\n' {
			line++
			lineStart = i + 1
		}
	}

	col := offset - lineStart
	if col < 0 {
		col = 0
	}

	return Location{FileID: f.id, Line: line, Column: col + 1, ByteOffset: offset}
}

// FindFirstEnclosingLine determines the first physical line enclosing the
// start of a span.  If the span starts beyond the end of the file, the last
// line is returned.
func (f *File) FindFirstEnclosingLine(span Span) Line {
	index := span.start
	num := 1
	start := 0

	for i := 0; i < len(f.contents); i++ {
		if i == index {
			return Line{f.contents, Span{start, findEndOfLine(index, f.contents)}, num}
		} else if f.contents[i] == '\n' {
			num++
			start = i + 1
		}
	}

	return Line{f.contents, Span{start, len(f.contents)}, num}
}

// SyntaxError constructs a syntax error anchored to a span of this file.
func (f *File) SyntaxError(span Span, msg string) *SyntaxError {
	return &SyntaxError{f, span, msg}
}

func findEndOfLine(index int, text []rune) int {
	for i := index; i < len(text); i++ {
		if text[i] == '\n' {
			return i
		}
	}

	return len(text)
}

// SyntaxError is a recoverable, per-location parse or evaluation error.  A
// single assembler session typically accumulates many of these rather than
// aborting on the first.
type SyntaxError struct {
	srcfile *File
	span    Span
	msg     string
}

// SourceFile returns the file this error is reported against.
func (e *SyntaxError) SourceFile() *File { return e.srcfile }

// Span returns the offending span within the source file.
func (e *SyntaxError) Span() Span { return e.span }

// Message returns the human-readable description of the error.
func (e *SyntaxError) Message() string { return e.msg }

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	loc := e.srcfile.Location(e.span.Start())
	return fmt.Sprintf("%s:%d:%d: %s", e.srcfile.Filename(), loc.Line, loc.Column, e.msg)
}

// Location returns the SourceLocation at the start of this error's span.
func (e *SyntaxError) Location() Location {
	return e.srcfile.Location(e.span.Start())
}

// FirstEnclosingLine returns the first physical line to which this error is
// attributed.
func (e *SyntaxError) FirstEnclosingLine() Line {
	return e.srcfile.FindFirstEnclosingLine(e.span)
}

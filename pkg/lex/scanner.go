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
package lex

import (
	"strings"
	"unicode"

	"github.com/sn65816/sn65/pkg/source"
)

// Directives is the static set of directive keywords recognised at the
// start of a statement.  Anything else in identifier position is an
// ordinary Identifier (label, mnemonic, macro invocation, ...).
var Directives = map[string]bool{
	"lorom": true, "hirom": true, "exlorom": true, "exhirom": true,
	"org": true, "base": true, "freecode": true, "freedata": true, "freespace": true,
	"pad": true, "fillbyte": true, "warnpc": true,
	"incsrc": true, "include": true, "incdir": true, "incbin": true,
	"macro": true, "endmacro": true,
	"struct": true, "endstruct": true,
	"hook": true, "endhook": true,
	"namespace": true, "pushns": true, "popns": true,
	"db": true, "dw": true, "dl": true, "dd": true,
	"equ": true, "define": true,
}

// Scanner turns a File's rune buffer into a flat Token stream.  Comment
// stripping is string-literal aware: a ';' inside a "..." string is not a
// comment, and a backslash escapes exactly one following character.
//
// Comment text itself never becomes a token (every other consumer of the
// token stream would otherwise need to learn to skip it); instead it is
// recorded in a sidecar map keyed by 1-based physical line number, fetched
// after scanning via Comments.
type Scanner struct {
	file        *source.File
	runes       []rune
	pos         int
	atLineStart bool
	line        int
	comments    map[int]string
}

// NewScanner constructs a scanner over a loaded file.
func NewScanner(file *source.File) *Scanner {
	return &Scanner{file: file, runes: file.Contents(), atLineStart: true, line: 1}
}

// Comments returns the trailing/standalone comment text seen so far, keyed
// by the 1-based physical line it appeared on. Only meaningful once the
// input has been fully scanned (e.g. after Collect).
func (s *Scanner) Comments() map[int]string { return s.comments }

// Collect tokenises the entire remaining input into a slice.
func (s *Scanner) Collect() []Token {
	var toks []Token
	for {
		t := s.Next()
		toks = append(toks, t)

		if t.Kind == EOF {
			return toks
		}
	}
}

// Next returns the next token, advancing the scanner.  Returns a token of
// Kind EOF (with an empty span at the end of input) once exhausted.
func (s *Scanner) Next() Token {
	s.skipCommentsAndSpaces()

	start := s.pos

	if s.pos >= len(s.runes) {
		return s.tok(EOF, "", start, start)
	}

	c := s.runes[s.pos]

	switch {
	case c == '\n':
		s.pos++
		tok := s.tok(Newline, "\n", start, s.pos)
		s.atLineStart = true
		s.line++

		return tok
	case c == '"':
		return s.scanString()
	case c == '\'':
		return s.scanChar()
	case unicode.IsDigit(c) || c == '$' || (c == '%' && s.pos+1 < len(s.runes) && (s.runes[s.pos+1] == '0' || s.runes[s.pos+1] == '1')):
		// '%' begins a binary literal only when a binary digit follows it;
		// otherwise it is the modulo operator.
		return s.scanNumber()
	case isIdentStart(c):
		return s.scanIdentifier()
	case c == '.' && s.pos+1 < len(s.runes) && isIdentStart(s.runes[s.pos+1]):
		// local label: ".foo"
		return s.scanIdentifier()
	default:
		s.pos++
		s.atLineStart = false

		return s.tok(Punctuation, string(c), start, s.pos)
	}
}

func (s *Scanner) tok(kind Kind, text string, start, end int) Token {
	return Token{kind, text, source.NewSpan(start, end)}
}

func (s *Scanner) skipCommentsAndSpaces() {
	for s.pos < len(s.runes) {
		c := s.runes[s.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\r':
			s.pos++
		case c == ';':
			s.pos++ // leading ';' itself is not part of the comment text

			textStart := s.pos
			for s.pos < len(s.runes) && s.runes[s.pos] != '\n' {
				s.pos++
			}

			if text := strings.TrimSpace(string(s.runes[textStart:s.pos])); text != "" {
				if s.comments == nil {
					s.comments = make(map[int]string)
				}

				s.comments[s.line] = text
			}
		default:
			return
		}
	}
}

func isIdentStart(c rune) bool {
	return unicode.IsLetter(c) || c == '_' || c == '.' || c == '!' || c == '@'
}

func isIdentCont(c rune) bool {
	return unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_'
}

func (s *Scanner) scanIdentifier() Token {
	start := s.pos
	// allow a single leading sigil (local-label '.', define '!', nested '@')
	if s.runes[s.pos] == '.' || s.runes[s.pos] == '!' || s.runes[s.pos] == '@' {
		s.pos++
	}

	for s.pos < len(s.runes) && isIdentCont(s.runes[s.pos]) {
		s.pos++
	}

	text := string(s.runes[start:s.pos])
	kind := Identifier

	if s.atLineStart && Directives[strings.ToLower(text)] {
		kind = Directive
	}

	s.atLineStart = false

	return s.tok(kind, text, start, s.pos)
}

func (s *Scanner) scanNumber() Token {
	start := s.pos

	switch s.runes[s.pos] {
	case '$':
		s.pos++
		s.consumeWhile(isHexDigit)
	case '%':
		s.pos++
		s.consumeWhile(func(c rune) bool { return c == '0' || c == '1' })
	default:
		if s.runes[s.pos] == '0' && s.pos+1 < len(s.runes) && (s.runes[s.pos+1] == 'x' || s.runes[s.pos+1] == 'X') {
			s.pos += 2
			s.consumeWhile(isHexDigit)
		} else {
			s.consumeWhile(unicode.IsDigit)
		}
	}

	s.atLineStart = false

	return s.tok(Number, string(s.runes[start:s.pos]), start, s.pos)
}

func isHexDigit(c rune) bool {
	return unicode.IsDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func (s *Scanner) consumeWhile(pred func(rune) bool) {
	for s.pos < len(s.runes) && pred(s.runes[s.pos]) {
		s.pos++
	}
}

func (s *Scanner) scanString() Token {
	start := s.pos
	s.pos++ // opening quote

	var b strings.Builder

	b.WriteByte('"')

	for s.pos < len(s.runes) && s.runes[s.pos] != '"' {
		if s.runes[s.pos] == '\\' && s.pos+1 < len(s.runes) {
			b.WriteRune(s.runes[s.pos+1])
			s.pos += 2

			continue
		}

		b.WriteRune(s.runes[s.pos])
		s.pos++
	}

	if s.pos < len(s.runes) {
		s.pos++ // closing quote
	}

	s.atLineStart = false

	return s.tok(String, b.String(), start, s.pos)
}

func (s *Scanner) scanChar() Token {
	start := s.pos
	s.pos++

	var b strings.Builder

	for s.pos < len(s.runes) && s.runes[s.pos] != '\'' {
		if s.runes[s.pos] == '\\' && s.pos+1 < len(s.runes) {
			b.WriteRune(s.runes[s.pos+1])
			s.pos += 2

			continue
		}

		b.WriteRune(s.runes[s.pos])
		s.pos++
	}

	if s.pos < len(s.runes) {
		s.pos++
	}

	s.atLineStart = false

	return s.tok(String, b.String(), start, s.pos)
}

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

// Package lex provides the token stream shared by the assembler, the
// disassembler's reassembly output, and the LSP's fast local parse.
package lex

import "github.com/sn65816/sn65/pkg/source"

// Kind identifies the lexical category of a Token.
type Kind uint8

// Token kinds, per the data model's fixed set.
const (
	Identifier Kind = iota
	Number
	String
	Punctuation
	Directive
	Newline
	EOF
)

func (k Kind) String() string {
	switch k {
	case Identifier:
		return "identifier"
	case Number:
		return "number"
	case String:
		return "string"
	case Punctuation:
		return "punctuation"
	case Directive:
		return "directive"
	case Newline:
		return "newline"
	default:
		return "eof"
	}
}

// Token associates a lexical category and literal text with a span in a
// source file.
type Token struct {
	Kind Kind
	Text string
	Span source.Span
}

// Location resolves the Token's originating SourceLocation against the file
// it was scanned from.
func (t Token) Location(file *source.File) source.Location {
	return file.Location(t.Span.Start())
}

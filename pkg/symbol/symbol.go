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

// Package symbol implements the scoped dictionary of labels, defines,
// macros and structures shared by the assembler, linter, LSP and
// disassembler. Symbols are held as a tagged variant in a contiguous store
// (see Store) rather than as pointer-linked records, so that references
// into it are stable indices usable even after a namespace pops.
package symbol

import "github.com/sn65816/sn65/pkg/lex"

// Kind discriminates the variants of Symbol.
type Kind uint8

// Symbol kinds.
const (
	KindLabel Kind = iota
	KindDefine
	KindMacro
	KindStruct
)

// Label is an assembler-visible address binding.
type Label struct {
	Name           string
	Address        uint32 // 24-bit SNES address
	Bank           byte
	IsLocal        bool
	IsNestedParent bool
	DefinedAt      Ref
}

// Define is a lazily-evaluated text substitution (`!name = value`).
type Define struct {
	Name             string
	ValueText        string
	ExpandedNumeric  int32
	HasExpanded      bool
	DefinedAt        Ref
}

// Macro is a parameterised body of tokens expanded at call sites.
type Macro struct {
	Name       string
	Parameters []string
	Body       []lex.Token
	DefinedAt  Ref
}

// StructField is one field of a Struct, with its byte offset from the
// start of the structure.
type StructField struct {
	Name   string
	Offset int
	Width  int // 1 (db), 2 (dw), 3 (dl)
}

// Struct is a named layout of fields with accumulated byte offsets.
type Struct struct {
	Name      string
	Fields    []StructField
	TotalSize int
	DefinedAt Ref
}

// Ref is a lightweight pointer back to where a symbol was defined, enough
// to build a Diagnostic or satisfy a go-to-definition request without
// pulling in the full source.Location machinery at every call site.
type Ref struct {
	FileID     uint32
	Line       int
	Column     int
	ByteOffset int
}

// Symbol is the tagged union of all four symbol variants. Exactly one of
// the typed fields is meaningful, selected by Kind.
type Symbol struct {
	Kind   Kind
	Label  Label
	Define Define
	Macro  Macro
	Struct Struct
}

// Name returns the symbol's name regardless of variant.
func (s Symbol) Name() string {
	switch s.Kind {
	case KindLabel:
		return s.Label.Name
	case KindDefine:
		return s.Define.Name
	case KindMacro:
		return s.Macro.Name
	default:
		return s.Struct.Name
	}
}

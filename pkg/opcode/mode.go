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

// Package opcode holds the static description of the 65816 instruction set:
// the (mnemonic, addressing mode) table, operand widths, and which of the M
// or X processor flags (if any) change an instruction's encoded width.
package opcode

// Mode identifies a 65816 addressing mode.
type Mode uint8

// Addressing modes, per the data model.
const (
	Implied      Mode = iota
	Accumulator       // A
	Immediate         // #$xx / #$xxxx (width depends on M/X)
	Direct            // $xx
	DirectX           // $xx,X
	DirectY           // $xx,Y
	Absolute          // $xxxx
	AbsoluteX         // $xxxx,X
	AbsoluteY         // $xxxx,Y
	AbsoluteLong      // $xxxxxx
	AbsoluteLongX     // $xxxxxx,X
	Indirect          // ($xx)
	IndirectY         // ($xx),Y
	IndirectX         // ($xx,X)
	IndirectLong      // [$xx]
	IndirectLongY     // [$xx],Y
	StackRel          // $xx,S
	StackRelY         // ($xx,S),Y
	Relative8         // branch, 1-byte displacement
	Relative16        // BRL, 2-byte displacement
	BlockMove         // MVN/MVP src,dest
)

// BranchKind classifies how an instruction affects control flow, used by
// the M/X state tracker and the disassembler to form basic blocks.
type BranchKind uint8

// Branch kinds.
const (
	NotBranch BranchKind = iota
	Conditional
	Unconditional
	Call
	Return
)

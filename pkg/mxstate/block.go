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
package mxstate

import "github.com/sn65816/sn65/pkg/opcode"

// Insn is the minimal per-instruction fact the tracker needs: enough to
// rebuild a basic-block graph and apply SEP/REP/PHP/PLP without any
// dependency on the assembler's own emitRecord representation.
type Insn struct {
	Address    uint32
	Mnemonic   string
	Branch     opcode.BranchKind
	Targets    []uint32 // branch/jump/call destinations, if any
	SEPREPMask byte     // operand byte, valid when Mnemonic is SEP/REP
	IsPHP      bool
	IsPLP      bool
	CallTarget string // function name for Call, used to look up a summary
	Assume     string // raw trailing comment text, "" if none
}

// Block is a straight-line run of instructions with a single entry and
// (at most) a branch at the very end.
type Block struct {
	Start        uint32
	Insns        []Insn
	Successors   []uint32 // addresses of blocks that follow
	Fallthrough  bool     // whether control can reach Start+len(last insn)
	FallthroughTo uint32
}

// BuildBlocks splits a straight-line instruction trace into basic blocks,
// starting a new block at every branch target and immediately after every
// branch/call/return instruction.
func BuildBlocks(insns []Insn) []Block {
	if len(insns) == 0 {
		return nil
	}

	isLeader := make(map[uint32]bool)
	isLeader[insns[0].Address] = true

	for i, in := range insns {
		for _, t := range in.Targets {
			isLeader[t] = true
		}

		if in.Branch != opcode.NotBranch && i+1 < len(insns) {
			isLeader[insns[i+1].Address] = true
		}
	}

	var blocks []Block

	var cur *Block

	for i, in := range insns {
		if isLeader[in.Address] || cur == nil {
			if cur != nil {
				blocks = append(blocks, *cur)
			}

			cur = &Block{Start: in.Address}
		}

		cur.Insns = append(cur.Insns, in)

		last := in.Branch != opcode.NotBranch && (i+1 >= len(insns) || isLeader[insns[i+1].Address])
		if last {
			switch in.Branch {
			case opcode.Conditional:
				cur.Successors = append(cur.Successors, in.Targets...)
				cur.Fallthrough = true

				if i+1 < len(insns) {
					cur.FallthroughTo = insns[i+1].Address
				}
			case opcode.Unconditional, opcode.Call:
				cur.Successors = append(cur.Successors, in.Targets...)

				if in.Branch == opcode.Call && i+1 < len(insns) {
					// A call falls through to the instruction after it once the
					// callee returns; the callee's own Return edges are resolved
					// by the analyzer via the function summary, not by this block
					// graph (which only models one function at a time).
					cur.Fallthrough = true
					cur.FallthroughTo = insns[i+1].Address
				}
			case opcode.Return:
				// No successors within this function.
			}
		} else if i+1 < len(insns) && isLeader[insns[i+1].Address] {
			cur.Fallthrough = true
			cur.FallthroughTo = insns[i+1].Address
		}
	}

	if cur != nil {
		blocks = append(blocks, *cur)
	}

	return blocks
}

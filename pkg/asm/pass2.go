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
	"github.com/sn65816/sn65/pkg/expr"
	"github.com/sn65816/sn65/pkg/opcode"
	"github.com/sn65816/sn65/pkg/source"
)

// pass2 re-evaluates every pass-1 emit record against the now-complete
// symbol table and writes final bytes into the ROM buffer. Relative
// branch displacements are resolved here too (the "mini third pass" of
// the data model collapses into this step because every label's address
// is already final once pass 1 has finished walking the whole program).
func (s *Session) pass2(emits []*emitRecord) {
	for _, rec := range emits {
		switch rec.kind {
		case emitRaw:
			s.emitAtAddr(rec.addr, rec.rawBytes, rec.loc, rec.allowReplace)
		case emitData:
			s.pass2Data(rec)
		case emitInstruction:
			s.pass2Instruction(rec)
		}
	}
}

func (s *Session) pass2Data(rec *emitRecord) {
	bytes, ok := s.narrowOperand(rec.dataValues[0], rec.dataWidth, rec.loc)
	if !ok {
		return
	}

	s.emitAtAddr(rec.addr, bytes, rec.loc, false)
}

func (s *Session) pass2Instruction(rec *emitRecord) {
	opByte := []byte{rec.entry.Opcode}

	switch rec.entry.Mode {
	case opcode.Relative8, opcode.Relative16:
		s.emitRelativeBranch(rec, opByte)
	case opcode.BlockMove:
		s.emitBlockMove(rec, opByte)
	default:
		if rec.width == 0 {
			s.emitAtAddr(rec.addr, opByte, rec.loc, false)
			return
		}

		operand, ok := s.narrowOperand(rec.operand.tokens, rec.width, rec.loc)
		if !ok {
			return
		}

		s.emitAtAddr(rec.addr, append(opByte, operand...), rec.loc, false)
	}
}

func (s *Session) emitRelativeBranch(rec *emitRecord, opByte []byte) {
	target, err := s.eval.Eval(rec.operand.tokens)
	if err != nil {
		s.recordExprError(err, rec.loc)
		return
	}

	disp := int64(target) - int64(rec.pcAfter)

	width := 1
	if rec.entry.Mode == opcode.Relative16 {
		width = 2
	}

	narrowed, err := expr.Narrow(int32(disp), width)
	if err != nil {
		s.recordExprError(err, rec.loc)
		return
	}

	out := make([]byte, width)
	for i := 0; i < width; i++ {
		out[i] = byte(narrowed >> (8 * i))
	}

	s.emitAtAddr(rec.addr, append(opByte, out...), rec.loc, false)
}

func (s *Session) emitBlockMove(rec *emitRecord, opByte []byte) {
	src, err := s.eval.Eval(rec.operand.tokens)
	if err != nil {
		s.recordExprError(err, rec.loc)
		return
	}

	dst, err := s.eval.Eval(rec.operand.secondExpr)
	if err != nil {
		s.recordExprError(err, rec.loc)
		return
	}

	s.emitAtAddr(rec.addr, append(opByte, byte(src>>16), byte(dst>>16)), rec.loc, false)
}

// emitAtAddr replays a pass-1 address decision: it points the session's
// output cursor at addr (disabling base-mode so writeBytes reads it
// straight back) and delegates to writeBytes, then restores cursor state
// so the next record's advancePC bookkeeping in pass 1 remains untouched
// (pass 2 never advances pc/outPC itself; every record already carries
// its own final address).
func (s *Session) emitAtAddr(addr uint32, bytes []byte, loc source.Location, allowReplace bool) {
	savedPC, savedOutPC, savedBase := s.pc, s.outPC, s.usingBase
	s.pc, s.outPC, s.usingBase = addr, addr, false
	s.writeBytes(bytes, loc, allowReplace)
	s.pc, s.outPC, s.usingBase = savedPC, savedOutPC, savedBase
}

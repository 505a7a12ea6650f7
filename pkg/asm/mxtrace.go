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
	"fmt"
	"sort"
	"strings"

	"github.com/sn65816/sn65/pkg/mxstate"
	"github.com/sn65816/sn65/pkg/opcode"
)

// buildTrace turns the finished emitInstruction records into the flat
// instruction list pkg/mxstate operates over. Branch/call targets are
// resolved against the final symbol table, the same evaluator pass 2 used,
// since by this point every label's address is settled.
func (s *Session) buildTrace() []mxstate.Insn {
	var insns []mxstate.Insn

	for _, rec := range s.lastEmits {
		if rec.kind != emitInstruction {
			continue
		}

		in := mxstate.Insn{
			Address:  rec.addr,
			Mnemonic: strings.ToUpper(rec.entry.Mnemonic),
			Branch:   rec.entry.Branch,
			Assume:   rec.assume,
		}

		switch rec.entry.Mode {
		case opcode.Relative8, opcode.Relative16:
			if v, err := s.eval.Eval(rec.operand.tokens); err == nil {
				in.Targets = []uint32{uint32(v)}
			}
		}

		switch rec.entry.Branch {
		case opcode.Unconditional, opcode.Conditional:
			if len(in.Targets) == 0 {
				if v, err := s.eval.Eval(rec.operand.tokens); err == nil {
					in.Targets = []uint32{uint32(v)}
				}
			}
		case opcode.Call:
			if v, err := s.eval.Eval(rec.operand.tokens); err == nil {
				target := uint32(v)
				in.Targets = []uint32{target}
				in.CallTarget = funcNameFor(target)
			}
		}

		switch in.Mnemonic {
		case "SEP", "REP":
			if v, err := s.eval.Eval(rec.operand.tokens); err == nil {
				in.SEPREPMask = byte(v)
			}
		case "PHP":
			in.IsPHP = true
		case "PLP":
			in.IsPLP = true
		}

		insns = append(insns, in)
	}

	return insns
}

func funcNameFor(addr uint32) string {
	return fmt.Sprintf("fn_%06X", addr)
}

// checkRegisterWidths partitions the assembled instruction trace into
// callable functions (entries reached by JSR/JSL) plus an implicit "main"
// region, analyzes them in partitionFunctions' order, and turns any `; assume`
// mismatch into an mx_mismatch diagnostic.
func (s *Session) checkRegisterWidths() []Diagnostic {
	insns := s.buildTrace()
	if len(insns) == 0 {
		return nil
	}

	funcs, order := partitionFunctions(insns)

	_, mismatches := mxstate.Analyze(funcs, order)

	var diags []Diagnostic

	for _, m := range mismatches {
		diags = append(diags, Diagnostic{
			Severity: SevWarning,
			Code:     "mx_mismatch",
			Message: fmt.Sprintf("assume m:%s,x:%s disagrees with inferred m:%s,x:%s",
				m.Expected.M, m.Expected.X, m.Inferred.M, m.Inferred.X),
		})
	}

	return diags
}

// partitionFunctions groups the trace into one mxstate.Func per call
// target plus a "main" function for everything else, and returns an
// analysis order of the call targets sorted by name, then "main". The
// names are fn_XXXXXX entry addresses, so a callee comes before its
// callers only when its entry address is lower; the call graph itself is
// not consulted. A function analyzed before one of its callees finds no
// summary for it and widens M and X to Top, as it does under mutual
// recursion.
func partitionFunctions(insns []mxstate.Insn) ([]mxstate.Func, []string) {
	entries := make(map[uint32]string)

	for _, in := range insns {
		if in.Branch == opcode.Call && in.CallTarget != "" {
			for _, t := range in.Targets {
				entries[t] = in.CallTarget
			}
		}
	}

	bodies := make(map[string][]mxstate.Insn)

	var mainBody []mxstate.Insn

	var curName string

	for _, in := range insns {
		if name, ok := entries[in.Address]; ok {
			curName = name
		}

		if curName != "" {
			bodies[curName] = append(bodies[curName], in)

			if in.Branch == opcode.Return {
				curName = ""
			}

			continue
		}

		mainBody = append(mainBody, in)
	}

	var funcs []mxstate.Func

	var names []string

	for name, body := range bodies {
		funcs = append(funcs, mxstate.Func{Name: name, Insns: body})
		names = append(names, name)
	}

	sort.Strings(names)

	funcs = append(funcs, mxstate.Func{Name: "main", Insns: mainBody, Entry: mxstate.State{M: mxstate.Width8, X: mxstate.Width8}})
	order := append(names, "main")

	return funcs, order
}

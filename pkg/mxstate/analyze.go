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

// Func is one analyzable unit: a name (its entry label), the entry M/X
// state the analysis should assume on entry (Unknown/Unknown lets the
// first instruction's own assume comment, if any, pin it), and its
// instruction trace.
type Func struct {
	Name  string
	Entry State
	Insns []Insn
}

// Summary is what a caller needs to know about a callee: the state on
// return, used to join into the state after a Call block.
type Summary struct {
	Exit State
}

// Mismatch is produced when an `; assume` comment disagrees with the
// state the analysis inferred at that instruction.
type Mismatch struct {
	Address  uint32
	Expected State
	Inferred State
}

// Analyze runs the tracker over funcs in the given order (callees must
// precede callers per the analysis-order requirement) and returns each
// function's summary plus every assume-comment mismatch found.
func Analyze(funcs []Func, order []string) (map[string]Summary, []Mismatch) {
	byName := make(map[string]Func, len(funcs))
	for _, f := range funcs {
		byName[f.Name] = f
	}

	summaries := make(map[string]Summary, len(funcs))

	var mismatches []Mismatch

	for _, name := range order {
		f, ok := byName[name]
		if !ok {
			continue
		}

		exit, ms := analyzeFunc(f, summaries)
		summaries[name] = Summary{Exit: exit}
		mismatches = append(mismatches, ms...)
	}

	return summaries, mismatches
}

// analyzeFunc runs a worklist fixpoint over f's basic-block graph,
// applying each instruction's effect on the abstract state and joining at
// merge points, until no block's outgoing state changes.
func analyzeFunc(f Func, summaries map[string]Summary) (State, []Mismatch) {
	blocks := BuildBlocks(f.Insns)
	if len(blocks) == 0 {
		return f.Entry, nil
	}

	byAddr := make(map[uint32]int, len(blocks))
	for i, b := range blocks {
		byAddr[b.Start] = i
	}

	in := make([]State, len(blocks))
	out := make([]State, len(blocks))

	in[0] = f.Entry

	worklist := []int{0}
	visited := make([]bool, len(blocks))

	var finalExit State

	for len(worklist) > 0 {
		i := worklist[0]
		worklist = worklist[1:]

		st := in[i]
		newOut, _ := runBlock(blocks[i], st, summaries)

		if visited[i] && Equal(newOut, out[i]) {
			continue
		}

		visited[i] = true
		out[i] = newOut
		finalExit = newOut

		for _, succAddr := range blocks[i].Successors {
			if j, ok := byAddr[succAddr]; ok {
				merged := Join(in[j], newOut)
				if !Equal(merged, in[j]) || !visited[j] {
					in[j] = merged
					worklist = append(worklist, j)
				}
			}
		}

		if blocks[i].Fallthrough {
			if j, ok := byAddr[blocks[i].FallthroughTo]; ok {
				merged := Join(in[j], newOut)
				if !Equal(merged, in[j]) || !visited[j] {
					in[j] = merged
					worklist = append(worklist, j)
				}
			}
		}
	}
	// A second pass collects mismatches using the now-stable `in` states,
	// since the worklist above may revisit a block's instructions multiple
	// times before reaching the fixpoint.
	var mismatches []Mismatch

	for i, b := range blocks {
		_, ms := runBlock(b, in[i], summaries)
		mismatches = append(mismatches, ms...)
	}

	return finalExit, mismatches
}

// runBlock applies every instruction in b to st in sequence, returning the
// resulting state and any assume-comment mismatches encountered.
func runBlock(b Block, st State, summaries map[string]Summary) (State, []Mismatch) {
	var mismatches []Mismatch

	for _, in := range b.Insns {
		switch in.Mnemonic {
		case "SEP":
			st = st.ApplySEP(in.SEPREPMask)
		case "REP":
			st = st.ApplyREP(in.SEPREPMask)
		}

		if in.IsPHP {
			st = st.Push()
		}

		if in.IsPLP {
			st = st.Pop()
		}

		if in.Branch == opcode.Call && in.CallTarget != "" {
			if sum, ok := summaries[in.CallTarget]; ok {
				st.M = sum.Exit.M
				st.X = sum.Exit.X
			} else {
				// Callee summary unavailable (forward reference, analysis-order
				// violation, or an external/indirect call): conservatively widen
				// to Top rather than assume the state is preserved.
				st.M, st.X = Top, Top
			}
		}

		if in.Assume != "" {
			if want, ok := ParseAssume(in.Assume); ok {
				got := st

				if want.M != Unknown && want.M != got.M {
					mismatches = append(mismatches, Mismatch{Address: in.Address, Expected: want, Inferred: got})
				} else if want.X != Unknown && want.X != got.X {
					mismatches = append(mismatches, Mismatch{Address: in.Address, Expected: want, Inferred: got})
				}

				if want.M != Unknown {
					st.M = want.M
				}

				if want.X != Unknown {
					st.X = want.X
				}
			}
		}
	}

	return st, mismatches
}

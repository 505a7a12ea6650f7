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

// Package mxstate implements control-flow-aware abstract interpretation of
// the 65816 M (accumulator) and X (index) processor-status widths across a
// basic-block graph, as opposed to pkg/asm's linear, program-order tracker
// (which exists only to size Immediate operands during assembly).
package mxstate

// Width is a three-point lattice: Width8 and Width16 are concrete, and Top
// is "disagreement" — the join of 8 and 16 coming in from different
// predecessors, or a width no `; assume` comment or analysis could pin down.
type Width uint8

const (
	Unknown Width = iota
	Width8
	Width16
	Top
)

func (w Width) String() string {
	switch w {
	case Width8:
		return "8"
	case Width16:
		return "16"
	case Top:
		return "?"
	default:
		return "unset"
	}
}

// Join combines two widths observed along different control-flow paths
// into the same program point. Unknown is the identity element (a path
// that hasn't been visited yet contributes nothing); two disagreeing
// concrete widths join to Top.
func Join(a, b Width) Width {
	if a == Unknown {
		return b
	}

	if b == Unknown {
		return a
	}

	if a == b {
		return a
	}

	return Top
}

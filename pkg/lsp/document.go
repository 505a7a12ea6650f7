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
package lsp

import (
	"strings"
	"time"
)

// document is the server's per-file state: the live text, its LSP version
// counter (used to discard stale diagnostics), and the pending debounce
// timer for re-analysis.
type document struct {
	uri     string
	text    string
	version int32
	timer   *time.Timer
}

// wholeWordOccurrences finds every whole-word match of name in text,
// returning byte offsets; used by references/rename, which both need an
// identical workspace scan.
func wholeWordOccurrences(text, name string) []int {
	var offsets []int

	start := 0

	for {
		idx := strings.Index(text[start:], name)
		if idx < 0 {
			break
		}

		abs := start + idx
		before := byte(' ')

		if abs > 0 {
			before = text[abs-1]
		}

		after := byte(' ')
		if abs+len(name) < len(text) {
			after = text[abs+len(name)]
		}

		if !isWordByte(before) && !isWordByte(after) {
			offsets = append(offsets, abs)
		}

		start = abs + len(name)
	}

	return offsets
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9') || b == '.'
}

// lineCol converts a byte offset within text to a 0-based (line, column)
// pair, matching LSP's Position convention.
func lineCol(text string, offset int) (int, int) {
	line, col := 0, 0

	for i := 0; i < offset && i < len(text); i++ {
		if text[i] == '\n' {
			line++
			col = 0
		} else {
			col++
		}
	}

	return line, col
}

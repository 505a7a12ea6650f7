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

	"github.com/sn65816/sn65/pkg/symbol"
)

// WriteMLB renders the store's labels in Mesen's debugger symbol-file
// format: one "SnesMemory:AAAAAA:Name" entry per line, sorted by address
// so the output is stable across runs with an identical symbol set.
func WriteMLB(store *symbol.Store) string {
	type row struct {
		addr uint32
		name string
	}

	var rows []row

	for _, n := range store.Names() {
		sym, ok := store.Lookup(n)
		if !ok || sym.Kind != symbol.KindLabel {
			continue
		}

		rows = append(rows, row{sym.Label.Address, sym.Label.Name})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].addr != rows[j].addr {
			return rows[i].addr < rows[j].addr
		}

		return rows[i].name < rows[j].name
	})

	var b strings.Builder

	for _, r := range rows {
		fmt.Fprintf(&b, "SnesMemory:%06X:%s\n", r.addr, sanitizeSymbolName(r.name))
	}

	return b.String()
}

// WriteSYM renders the store's labels in the WLA DX symbol-file format:
// a "[labels]" section header followed by "BB:AAAA Name" entries, bank
// and address each rendered as uppercase hex with no "$" prefix.
func WriteSYM(store *symbol.Store) string {
	type row struct {
		bank uint8
		addr uint16
		name string
	}

	var rows []row

	for _, n := range store.Names() {
		sym, ok := store.Lookup(n)
		if !ok || sym.Kind != symbol.KindLabel {
			continue
		}

		rows = append(rows, row{sym.Label.Bank, uint16(sym.Label.Address & 0xFFFF), sym.Label.Name})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].bank != rows[j].bank {
			return rows[i].bank < rows[j].bank
		}

		if rows[i].addr != rows[j].addr {
			return rows[i].addr < rows[j].addr
		}

		return rows[i].name < rows[j].name
	})

	var b strings.Builder

	b.WriteString("[labels]\n")

	for _, r := range rows {
		fmt.Fprintf(&b, "%02X:%04X %s\n", r.bank, r.addr, sanitizeSymbolName(r.name))
	}

	return b.String()
}

// sanitizeSymbolName strips characters that would break the simple
// colon/space-delimited symbol-file grammars; both formats treat the
// namespace join character '_' as ordinary, so only whitespace needs
// folding.
func sanitizeSymbolName(name string) string {
	return strings.ReplaceAll(name, " ", "_")
}

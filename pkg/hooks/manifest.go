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

// Package hooks loads and saves the JSON manifest describing every patched
// region of a ROM: call-site address, patched jump kind, the allocated
// free-space target, and the expected M/X width at the hook's entry point.
package hooks

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	segjson "github.com/segmentio/encoding/json"

	"github.com/sn65816/sn65/pkg/asm"
)

// Entry is the on-disk representation of one asm.HookEntry. Address and
// Target accept either a JSON number or a "$xxxxxx"/"0xXXXXXX" string, and
// ExpectedM/ExpectedX accept either a width integer or (for backward
// compatibility with older hand-written manifests) a bool, where
// true means 8-bit and false means 16-bit.
type Entry struct {
	Name      string          `json:"name,omitempty"`
	Address   addressValue    `json:"address"`
	Size      int             `json:"size"`
	Kind      string          `json:"kind"`
	Target    addressValue    `json:"target"`
	Note      string          `json:"note,omitempty"`
	ExpectedM widthValue      `json:"expected_m,omitempty"`
	ExpectedX widthValue      `json:"expected_x,omitempty"`
	Module    string          `json:"module,omitempty"`
	ABIClass  string          `json:"abi_class,omitempty"`
	SkipABI   bool            `json:"skip_abi,omitempty"`
	File      string          `json:"file,omitempty"`
	Line      int             `json:"line,omitempty"`
	Extra     json.RawMessage `json:"-"`
}

// Manifest is the root document: a flat list of hook entries, written
// sorted by address by Save.
type Manifest struct {
	Entries []Entry `json:"hooks"`
}

// addressValue unmarshals a SNES address from a JSON number, a "$xxxxxx"
// hex string, or a "0xXXXXXX" hex string.
type addressValue uint32

func (a *addressValue) UnmarshalJSON(b []byte) error {
	var num uint32
	if err := json.Unmarshal(b, &num); err == nil {
		*a = addressValue(num)
		return nil
	}

	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return fmt.Errorf("address: %w", err)
	}

	v, err := parseAddressString(str)
	if err != nil {
		return err
	}

	*a = addressValue(v)

	return nil
}

func (a addressValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(fmt.Sprintf("$%06X", uint32(a)))
}

func parseAddressString(s string) (uint32, error) {
	s = strings.TrimSpace(s)

	switch {
	case strings.HasPrefix(s, "$"):
		v, err := strconv.ParseUint(s[1:], 16, 32)
		return uint32(v), err
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		v, err := strconv.ParseUint(s[2:], 16, 32)
		return uint32(v), err
	default:
		v, err := strconv.ParseUint(s, 10, 32)
		return uint32(v), err
	}
}

// widthValue unmarshals an expected-M/X width from an int (8 or 16) or a
// legacy bool (true=8, false=16).
type widthValue int

func (w *widthValue) UnmarshalJSON(b []byte) error {
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		*w = widthValue(n)
		return nil
	}

	var boolVal bool
	if err := json.Unmarshal(b, &boolVal); err != nil {
		return fmt.Errorf("expected width: %w", err)
	}

	if boolVal {
		*w = 8
	} else {
		*w = 16
	}

	return nil
}

func (w widthValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(int(w))
}

// Load reads and parses a hook manifest from path, tolerating unknown
// fields (manifests are hand-edited and often carry tool-specific extras).
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("hook_parse: reading %s: %w", path, err)
	}

	var m Manifest
	if err := segjson.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("hook_parse: parsing %s: %w", path, err)
	}

	return &m, nil
}

// Save writes the manifest back out, sorted by address for deterministic
// diffs, using segmentio/encoding's faster encoder (the same one the
// config reader uses for JSON documents).
func Save(path string, m *Manifest) error {
	sorted := append([]Entry(nil), m.Entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Address < sorted[j].Address })

	out := Manifest{Entries: sorted}

	data, err := segjson.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("hook_parse: encoding %s: %w", path, err)
	}

	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// FromHookEntries converts the session's assembled hook list into the
// on-disk Manifest shape.
func FromHookEntries(entries []asm.HookEntry) *Manifest {
	out := make([]Entry, 0, len(entries))

	for _, h := range entries {
		e := Entry{
			Name:    h.Name,
			Address: addressValue(h.Address),
			Size:    h.Size,
			Kind:    kindName(h.Kind),
			Target:  addressValue(h.Target),
			Note:    h.Note,
			Module:  h.Module,
		}

		if h.ExpectedM != 0 {
			e.ExpectedM = widthValue(h.ExpectedM)
		}

		if h.ExpectedX != 0 {
			e.ExpectedX = widthValue(h.ExpectedX)
		}

		out = append(out, e)
	}

	return &Manifest{Entries: out}
}

func kindName(k asm.HookKind) string {
	switch k {
	case asm.HookJSL:
		return "jsl"
	case asm.HookJML:
		return "jml"
	case asm.HookJSR:
		return "jsr"
	case asm.HookJMP:
		return "jmp"
	case asm.HookPatch:
		return "patch"
	case asm.HookData:
		return "data"
	default:
		return "unknown"
	}
}

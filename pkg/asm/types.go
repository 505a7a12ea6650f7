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

import "github.com/sn65816/sn65/pkg/source"

// WriteBlock is a contiguous region the assembler wrote into the ROM
// image. Two WriteBlocks from the same session never overlap in ROM
// offset unless a directive explicitly permits replacement.
type WriteBlock struct {
	RomOffset    int
	SnesAddress  uint32
	Bytes        []byte
	SourceLoc    source.Location
	AllowReplace bool
}

// Severity classifies a Diagnostic.
type Severity uint8

// Severities, per the data model.
const (
	SevError Severity = iota
	SevWarning
	SevInfo
	SevHint
)

func (s Severity) String() string {
	switch s {
	case SevError:
		return "error"
	case SevWarning:
		return "warning"
	case SevInfo:
		return "info"
	default:
		return "hint"
	}
}

// Diagnostic is a structured, file/range-attributed problem report.
type Diagnostic struct {
	Severity Severity
	Code     string
	Message  string
	File     string
	Loc      source.Location
}

// HookKind classifies the jump instruction a hook patches in with.
type HookKind uint8

// Hook kinds.
const (
	HookJSL HookKind = iota
	HookJML
	HookJSR
	HookJMP
	HookPatch
	HookData
)

// ParseHookKind converts a directive keyword to a HookKind.
func ParseHookKind(s string) (HookKind, bool) {
	switch s {
	case "jsl":
		return HookJSL, true
	case "jml":
		return HookJML, true
	case "jsr":
		return HookJSR, true
	case "jmp":
		return HookJMP, true
	case "patch":
		return HookPatch, true
	case "data":
		return HookData, true
	default:
		return 0, false
	}
}

// ABIClass further qualifies a HookEntry's M/X contract with its caller.
type ABIClass uint8

// ABI classes.
const (
	ABIDefault ABIClass = iota
	ABILongEntry
)

// HookEntry records one patched region, shared between the assembler
// session's hook directive and the offline hook-manifest file format.
type HookEntry struct {
	Name          string
	Address       uint32
	Size          int
	Kind          HookKind
	Target        uint32
	SourceLoc     source.Location
	Note          string
	ExpectedM     int // 8, 16, or 0 meaning unknown ('?')
	ExpectedX     int
	Module        string
	ABIClass      ABIClass
	SkipABI       bool
}

// ProhibitedRange is one configured forbidden SNES address window.
type ProhibitedRange struct {
	Start, End uint32
	Reason     string
}

// Overlaps reports whether [addr, addr+size) intersects this range.
func (r ProhibitedRange) Overlaps(addr uint32, size int) bool {
	end := addr + uint32(size)
	return addr < r.End+1 && end > r.Start
}

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

// Package config reads the project configuration file: a plain key-value
// document (or, if its first non-blank character is '{', a JSON document
// with the same keys)
// supplying the assembler session's mapper, ROM size, include paths,
// prohibited ranges and symbol-export preference.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	segjson "github.com/segmentio/encoding/json"

	"github.com/sn65816/sn65/pkg/asm"
)

// SymbolFormat selects which external symbol-table format (if any) the
// assemble command writes out alongside the ROM.
type SymbolFormat string

const (
	SymbolsNone SymbolFormat = "none"
	SymbolsWLA  SymbolFormat = "wla"
	SymbolsMLB  SymbolFormat = "mlb"
)

// Config is the parsed, preset-resolved project configuration.
type Config struct {
	Preset             string
	Mapper             asm.Mapper
	RomSize            int
	IncludePaths       []string
	Symbols            SymbolFormat
	WarnUnusedSymbols  bool
	Prohibited         []asm.ProhibitedRange
	Main               []string
	Emit               []string
	LSPLogEnabled      bool
	LSPLogPath         string
	Overrides          map[string]string // --set key=value CLI overrides
}

// presets supplies mapper/rom_size defaults selected by the `preset` key,
// named after the common ROM-hacking base projects this toolchain targets.
var presets = map[string]Config{
	"lorom-1mb": {Mapper: asm.LoROM, RomSize: 1 * 1024 * 1024},
	"lorom-2mb": {Mapper: asm.LoROM, RomSize: 2 * 1024 * 1024},
	"lorom-4mb": {Mapper: asm.LoROM, RomSize: 4 * 1024 * 1024},
	"hirom-4mb": {Mapper: asm.HiROM, RomSize: 4 * 1024 * 1024},
}

// Default returns the built-in baseline before any file or override is
// applied, matching asm.DefaultConfig's mapper/size.
func Default() Config {
	return Config{
		Mapper:  asm.LoROM,
		RomSize: 4 * 1024 * 1024,
		Symbols: SymbolsNone,
	}
}

// Load reads path, auto-detecting a JSON document (an opening '{') versus
// the plain "key = value" line format, applies any named preset first, then
// layers the file's explicit keys, then CLI --set overrides on top.
func Load(path string, cliOverrides map[string]string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config_parse: reading %s: %w", path, err)
	}

	cfg := Default()

	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		if err := loadJSON(data, &cfg); err != nil {
			return nil, fmt.Errorf("config_parse: %w", err)
		}
	} else {
		if err := loadKV(data, &cfg); err != nil {
			return nil, fmt.Errorf("config_parse: %w", err)
		}
	}

	for k, v := range cliOverrides {
		if err := applyKey(&cfg, k, v); err != nil {
			return nil, fmt.Errorf("config_parse: --set %s: %w", k, err)
		}
	}

	return &cfg, nil
}

type jsonDoc struct {
	Preset                 string   `json:"preset"`
	Mapper                 string   `json:"mapper"`
	RomSize                int      `json:"rom_size"`
	IncludePaths           []string `json:"include_paths"`
	Symbols                string   `json:"symbols"`
	WarnUnusedSymbols      bool     `json:"warn_unused_symbols"`
	ProhibitedMemoryRanges []string `json:"prohibited_memory_ranges"`
	Main                   any      `json:"main"`
	MainFiles              any      `json:"main_files"`
	Emit                   []string `json:"emit"`
	LSPLogEnabled          bool     `json:"lsp_log_enabled"`
	LSPLogPath             string   `json:"lsp_log_path"`
}

func loadJSON(data []byte, cfg *Config) error {
	var doc jsonDoc
	if err := segjson.Unmarshal(data, &doc); err != nil {
		return err
	}

	if doc.Preset != "" {
		applyPreset(cfg, doc.Preset)
	}

	if doc.Mapper != "" {
		m, ok := asm.ParseMapper(doc.Mapper)
		if !ok {
			return fmt.Errorf("unknown mapper %q", doc.Mapper)
		}

		cfg.Mapper = m
	}

	if doc.RomSize != 0 {
		cfg.RomSize = doc.RomSize
	}

	cfg.IncludePaths = append(cfg.IncludePaths, doc.IncludePaths...)

	if doc.Symbols != "" {
		cfg.Symbols = SymbolFormat(doc.Symbols)
	}

	cfg.WarnUnusedSymbols = doc.WarnUnusedSymbols

	for _, r := range doc.ProhibitedMemoryRanges {
		pr, err := parseProhibited(r)
		if err != nil {
			return err
		}

		cfg.Prohibited = append(cfg.Prohibited, pr)
	}

	cfg.Main = append(cfg.Main, asStringList(doc.Main)...)
	cfg.Main = append(cfg.Main, asStringList(doc.MainFiles)...)
	cfg.Emit = append(cfg.Emit, doc.Emit...)
	cfg.LSPLogEnabled = doc.LSPLogEnabled
	cfg.LSPLogPath = doc.LSPLogPath

	return nil
}

func asStringList(v any) []string {
	switch t := v.(type) {
	case string:
		if t == "" {
			return nil
		}

		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}

		return out
	default:
		return nil
	}
}

// loadKV parses the plain "key = value" format: one assignment per line,
// comma-separated values for list-typed keys, '#' or ';' starting a
// comment.
func loadKV(data []byte, cfg *Config) error {
	sc := bufio.NewScanner(strings.NewReader(string(data)))

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("malformed line %q", line)
		}

		key := strings.TrimSpace(parts[0])
		val := strings.TrimSpace(parts[1])

		if err := applyKey(cfg, key, val); err != nil {
			return err
		}
	}

	return sc.Err()
}

// ApplyOverride assigns a single "key=value" override directly onto cfg,
// for callers (the CLI's --set flag) that have no config file to load.
func ApplyOverride(cfg *Config, key, val string) error {
	return applyKey(cfg, key, val)
}

// applyKey assigns a single recognized key, used by both the plain config
// format and --set CLI overrides so the two paths can never disagree on
// parsing rules.
func applyKey(cfg *Config, key, val string) error {
	switch key {
	case "preset":
		applyPreset(cfg, val)
	case "mapper":
		m, ok := asm.ParseMapper(val)
		if !ok {
			return fmt.Errorf("unknown mapper %q", val)
		}

		cfg.Mapper = m
	case "rom_size":
		n, err := strconv.Atoi(val)
		if err != nil {
			return err
		}

		cfg.RomSize = n
	case "include_paths":
		cfg.IncludePaths = append(cfg.IncludePaths, splitList(val)...)
	case "symbols":
		cfg.Symbols = SymbolFormat(val)
	case "warn_unused_symbols":
		cfg.WarnUnusedSymbols = val == "true" || val == "1"
	case "prohibited_memory_ranges":
		for _, item := range splitList(val) {
			pr, err := parseProhibited(item)
			if err != nil {
				return err
			}

			cfg.Prohibited = append(cfg.Prohibited, pr)
		}
	case "main", "main_files":
		cfg.Main = append(cfg.Main, splitList(val)...)
	case "emit":
		cfg.Emit = append(cfg.Emit, splitList(val)...)
	case "lsp_log_enabled":
		cfg.LSPLogEnabled = val == "true" || val == "1"
	case "lsp_log_path":
		cfg.LSPLogPath = val
	default:
		if cfg.Overrides == nil {
			cfg.Overrides = map[string]string{}
		}

		cfg.Overrides[key] = val
	}

	return nil
}

func applyPreset(cfg *Config, name string) {
	cfg.Preset = name

	if p, ok := presets[name]; ok {
		cfg.Mapper = p.Mapper
		cfg.RomSize = p.RomSize
	}
}

func splitList(val string) []string {
	var out []string

	for _, p := range strings.Split(val, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}

	return out
}

// parseProhibited parses "$start-$end: reason" into an asm.ProhibitedRange.
func parseProhibited(s string) (asm.ProhibitedRange, error) {
	parts := strings.SplitN(s, ":", 2)

	rangePart := strings.TrimSpace(parts[0])

	reason := ""
	if len(parts) == 2 {
		reason = strings.TrimSpace(parts[1])
	}

	bounds := strings.SplitN(rangePart, "-", 2)
	if len(bounds) != 2 {
		return asm.ProhibitedRange{}, fmt.Errorf("malformed range %q", s)
	}

	start, err := parseHexAddr(bounds[0])
	if err != nil {
		return asm.ProhibitedRange{}, err
	}

	end, err := parseHexAddr(bounds[1])
	if err != nil {
		return asm.ProhibitedRange{}, err
	}

	return asm.ProhibitedRange{Start: start, End: end, Reason: reason}, nil
}

func parseHexAddr(s string) (uint32, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "$"))

	v, err := strconv.ParseUint(s, 16, 32)

	return uint32(v), err
}

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
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sn65816/sn65/pkg/asm"
)

func TestDefaultMatchesAsmDefaultConfig(t *testing.T) {
	cfg := Default()

	ac := asm.DefaultConfig()
	if cfg.Mapper != ac.Mapper {
		t.Errorf("Default().Mapper = %v, want %v (asm.DefaultConfig)", cfg.Mapper, ac.Mapper)
	}
}

func TestApplyOverrideSetsMapper(t *testing.T) {
	cfg := Default()

	if err := ApplyOverride(&cfg, "mapper", "hirom"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Mapper != asm.HiROM {
		t.Errorf("Mapper = %v, want HiROM", cfg.Mapper)
	}
}

func TestApplyOverrideRejectsUnknownMapper(t *testing.T) {
	cfg := Default()

	if err := ApplyOverride(&cfg, "mapper", "bogus"); err == nil {
		t.Fatal("expected an error for an unknown mapper")
	}
}

func TestApplyOverrideUnknownKeyIsRecordedNotRejected(t *testing.T) {
	cfg := Default()

	if err := ApplyOverride(&cfg, "custom_hook_base", "$c00000"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Overrides["custom_hook_base"] != "$c00000" {
		t.Errorf("Overrides[custom_hook_base] = %q, want $c00000", cfg.Overrides["custom_hook_base"])
	}
}

func TestLoadKVFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sn65.cfg")

	content := "mapper = hirom\nrom_size = 2097152\ninclude_paths = src, inc\n"
	writeTestFile(t, path, content)

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Mapper != asm.HiROM {
		t.Errorf("Mapper = %v, want HiROM", cfg.Mapper)
	}

	if cfg.RomSize != 2097152 {
		t.Errorf("RomSize = %d, want 2097152", cfg.RomSize)
	}

	if len(cfg.IncludePaths) != 2 || cfg.IncludePaths[0] != "src" || cfg.IncludePaths[1] != "inc" {
		t.Errorf("IncludePaths = %v, want [src inc]", cfg.IncludePaths)
	}
}

func TestLoadAppliesCLIOverridesAfterFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sn65.cfg")

	writeTestFile(t, path, "mapper = lorom\n")

	cfg, err := Load(path, map[string]string{"mapper": "hirom"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Mapper != asm.HiROM {
		t.Error("CLI override should win over the file's mapper setting")
	}
}

func TestLoadJSONFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sn65.json")

	writeTestFile(t, path, `{"mapper": "hirom", "rom_size": 1048576}`)

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Mapper != asm.HiROM {
		t.Errorf("Mapper = %v, want HiROM", cfg.Mapper)
	}

	if cfg.RomSize != 1048576 {
		t.Errorf("RomSize = %d, want 1048576", cfg.RomSize)
	}
}

func TestLoadPresetSetsMapperAndSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sn65.cfg")

	writeTestFile(t, path, "preset = hirom-4mb\n")

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Mapper != asm.HiROM || cfg.RomSize != 4*1024*1024 {
		t.Errorf("preset hirom-4mb gave Mapper=%v RomSize=%d", cfg.Mapper, cfg.RomSize)
	}
}

func TestParseProhibitedRange(t *testing.T) {
	pr, err := parseProhibited("$7e0000-$7e1fff: WRAM mirror")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if pr.Start != 0x7e0000 || pr.End != 0x7e1fff || pr.Reason != "WRAM mirror" {
		t.Errorf("got %+v", pr)
	}
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing test fixture %s: %v", path, err)
	}
}

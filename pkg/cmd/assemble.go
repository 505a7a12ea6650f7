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
package cmd

import (
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sn65816/sn65/pkg/asm"
	"github.com/sn65816/sn65/pkg/config"
	"github.com/sn65816/sn65/pkg/hooks"
	"github.com/sn65816/sn65/pkg/lint"
)

var assembleCmd = newRoot("sn65asm [flags] source_file", "Assemble a 65816/SPC700/SuperFX project into a ROM image.")

// ExecuteAssemble runs the sn65asm command tree; called by cmd/sn65asm/main.go.
func ExecuteAssemble() {
	runOrExit(assembleCmd)
}

func init() {
	assembleCmd.Long = `Assemble the given root source file, resolving !include/incsrc directives,
	and patch the resulting bytes into a ROM image.`
	assembleCmd.Run = func(cmd *cobra.Command, args []string) {
		if GetFlag(cmd, "version") {
			printVersion()
			return
		}

		if len(args) != 1 {
			fmt.Println(cmd.UsageString())
			os.Exit(1)
		}

		if GetFlag(cmd, "verbose") {
			log.SetLevel(log.DebugLevel)
		}

		cfg := resolveConfig(cmd)

		includeDirs := append([]string{}, cfg.IncludePaths...)

		res, err := asm.Assemble(toAsmConfig(cfg), args[0], includeDirs)
		if err != nil {
			log.Fatalf("assemble: %s", err)
		}

		opts := lint.Options{WarnUnusedSymbols: cfg.WarnUnusedSymbols}

		var manifest *hooks.Manifest
		if hookPath := GetString(cmd, "hooks"); hookPath != "" {
			manifest, err = hooks.Load(hookPath)
			if err != nil {
				log.Fatalf("hook_parse: %s", err)
			}
		}

		diags := append(append([]asm.Diagnostic(nil), res.Diagnostics...), lint.Run(res, manifest, opts)...)

		hasError := reportDiagnostics(diags)

		if hasError && !GetFlag(cmd, "force") {
			os.Exit(1)
		}

		rom := loadOrAllocateBase(GetString(cmd, "base-rom"), res)
		applyWriteBlocks(rom, res.WriteBlocks)

		out := GetString(cmd, "output")
		if out == "" {
			out = strings.TrimSuffix(args[0], ".asm") + ".sfc"
		}

		if err := os.WriteFile(out, rom, 0o644); err != nil {
			log.Fatalf("rom_io: writing %s: %s", out, err)
		}

		writeSymbolFile(cfg, res, out)

		if auto := GetString(cmd, "hooks-out"); auto != "" {
			m := hooks.FromHookEntries(res.Hooks)
			if err := hooks.Save(auto, m); err != nil {
				log.Fatalf("hook_parse: writing %s: %s", auto, err)
			}
		}

		if GetFlag(cmd, "summary") {
			fmt.Println(wrapToTerm(fmt.Sprintf(
				"%s: %d write block(s), %d byte(s) patched, %d diagnostic(s)",
				out, len(res.WriteBlocks), totalBytes(res.WriteBlocks), len(diags))))
		}
	}
}

func toAsmConfig(cfg *config.Config) asm.Config {
	ac := asm.DefaultConfig()
	ac.Mapper = cfg.Mapper

	if cfg.RomSize > 0 {
		ac.RomSize = cfg.RomSize
	}

	ac.Prohibited = cfg.Prohibited

	return ac
}

// resolveConfig loads the project config file named by --config, if any,
// layering --set overrides on top; absent a config file, it starts from
// config.Default() and applies --set directly.
func resolveConfig(cmd *cobra.Command) *config.Config {
	overrides := parseSetFlags(GetStringArray(cmd, "set"))

	path := GetString(cmd, "config")
	if path == "" {
		cfg := config.Default()

		for k, v := range overrides {
			if err := config.ApplyOverride(&cfg, k, v); err != nil {
				log.Fatalf("config_parse: --set %s: %s", k, err)
			}
		}

		return &cfg
	}

	cfg, err := config.Load(path, overrides)
	if err != nil {
		log.Fatalf("config_parse: %s", err)
	}

	return cfg
}

func parseSetFlags(items []string) map[string]string {
	out := make(map[string]string, len(items))

	for _, item := range items {
		parts := strings.SplitN(item, "=", 2)
		if len(parts) != 2 {
			continue
		}

		out[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}

	return out
}

// loadOrAllocateBase reads --base-rom if given, so assembly patches into an
// existing ROM image rather than the zero/fill-byte canvas the session
// allocates internally.
func loadOrAllocateBase(path string, res *asm.Result) []byte {
	if path == "" {
		return res.Rom
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("rom_io: reading %s: %s", path, err)
	}

	if len(data) < len(res.Rom) {
		grown := make([]byte, len(res.Rom))
		copy(grown, data)
		data = grown
	}

	return data
}

// applyWriteBlocks re-patches every WriteBlock onto rom, needed when rom
// came from --base-rom rather than the session's own freshly-filled buffer.
func applyWriteBlocks(rom []byte, blocks []asm.WriteBlock) {
	for _, b := range blocks {
		copy(rom[b.RomOffset:b.RomOffset+len(b.Bytes)], b.Bytes)
	}
}

func totalBytes(blocks []asm.WriteBlock) int {
	n := 0
	for _, b := range blocks {
		n += len(b.Bytes)
	}

	return n
}

func writeSymbolFile(cfg *config.Config, res *asm.Result, romPath string) {
	var (
		ext  string
		text string
	)

	switch cfg.Symbols {
	case config.SymbolsMLB:
		ext, text = ".mlb", asm.WriteMLB(res.Store)
	case config.SymbolsWLA:
		ext, text = ".sym", asm.WriteSYM(res.Store)
	default:
		return
	}

	path := strings.TrimSuffix(romPath, ".sfc") + ext

	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		log.Fatalf("rom_io: writing %s: %s", path, err)
	}
}

// reportDiagnostics prints every diagnostic to stderr and reports whether
// any were errors.
func reportDiagnostics(diags []asm.Diagnostic) bool {
	hasError := false

	for _, d := range diags {
		fmt.Fprintf(os.Stderr, "%s: %s: %s: %s\n", d.Severity, d.File, d.Loc, d.Message)

		if d.Severity == asm.SevError {
			hasError = true
		}
	}

	return hasError
}

func init() {
	assembleCmd.Flags().String("output", "", "output ROM path (defaults to source path with .sfc)")
	assembleCmd.Flags().String("base-rom", "", "existing ROM image to patch into, rather than a blank canvas")
	assembleCmd.Flags().String("hooks", "", "path to a hook manifest to validate call sites against")
	assembleCmd.Flags().String("hooks-out", "", "write the assembled hook manifest to this path")
	assembleCmd.Flags().Bool("force", false, "write the ROM even if errors were reported")
	assembleCmd.Flags().Bool("summary", false, "print a one-line write-block/byte count footer")
}

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
	"path/filepath"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sn65816/sn65/pkg/asm"
	"github.com/sn65816/sn65/pkg/disasm"
	"github.com/sn65816/sn65/pkg/hooks"
	"github.com/sn65816/sn65/pkg/symbol"
)

var disassembleCmd = newRoot("sn65disasm [flags] rom_file", "Disassemble a ROM image into re-assemblable source, one file per bank.")

// ExecuteDisassemble runs the sn65disasm command tree; called by
// cmd/sn65disasm/main.go.
func ExecuteDisassemble() {
	runOrExit(disassembleCmd)
}

func init() {
	disassembleCmd.Run = func(cmd *cobra.Command, args []string) {
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

		rom, err := os.ReadFile(args[0])
		if err != nil {
			log.Fatalf("rom_io: reading %s: %s", args[0], err)
		}

		mapper, ok := asm.ParseMapper(GetString(cmd, "mapper"))
		if !ok {
			log.Fatalf("rom_io: unknown mapper %q", GetString(cmd, "mapper"))
		}

		var manifest *hooks.Manifest
		if hookPath := GetString(cmd, "hooks"); hookPath != "" {
			manifest, err = hooks.Load(hookPath)
			if err != nil {
				log.Fatalf("hook_parse: %s", err)
			}
		}

		opts := disasm.Options{
			Mapper:    mapper,
			BankStart: parseBank(GetString(cmd, "bank-start"), 0x00),
			BankEnd:   parseBank(GetString(cmd, "bank-end"), 0xFF),
			Hooks:     manifest,
			Seeds:     parseSeeds(GetStringArray(cmd, "seed")),
		}

		if symPath := GetString(cmd, "symbols"); symPath != "" {
			opts.Store = loadSymbolFile(symPath)
		}

		banks, err := disasm.Disassemble(rom, opts)
		if err != nil {
			log.Fatalf("%s", err)
		}

		outDir := GetString(cmd, "output-dir")
		if outDir == "" {
			outDir = "."
		}

		if err := os.MkdirAll(outDir, 0o755); err != nil {
			log.Fatalf("rom_io: creating %s: %s", outDir, err)
		}

		for _, b := range banks {
			path := filepath.Join(outDir, fmt.Sprintf("bank_%02X.asm", b.Number))
			if err := os.WriteFile(path, []byte(b.Source), 0o644); err != nil {
				log.Fatalf("rom_io: writing %s: %s", path, err)
			}
		}

		if GetFlag(cmd, "summary") {
			fmt.Println(wrapToTerm(fmt.Sprintf("wrote %d bank file(s) to %s", len(banks), outDir)))
		}
	}
}

func parseBank(s string, fallback byte) byte {
	if s == "" {
		return fallback
	}

	v, err := strconv.ParseUint(strings.TrimPrefix(s, "$"), 16, 8)
	if err != nil {
		log.Fatalf("rom_io: invalid bank %q: %s", s, err)
	}

	return byte(v)
}

func parseSeeds(items []string) []uint32 {
	seeds := make([]uint32, 0, len(items))

	for _, s := range items {
		v, err := strconv.ParseUint(strings.TrimPrefix(s, "$"), 16, 32)
		if err != nil {
			log.Fatalf("rom_io: invalid seed address %q: %s", s, err)
		}

		seeds = append(seeds, uint32(v))
	}

	return seeds
}

// loadSymbolFile reads a previously exported WLA-style .sym file (the
// format this toolchain also writes) so the disassembler can render
// symbolic operands for addresses it recognizes.
func loadSymbolFile(path string) *symbol.Store {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("rom_io: reading %s: %s", path, err)
	}

	store := symbol.NewStore()

	inLabels := false

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)

		if line == "[labels]" {
			inLabels = true
			continue
		}

		if !inLabels || line == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}

		bankHex := strings.SplitN(fields[0], ":", 2)
		if len(bankHex) != 2 {
			continue
		}

		bank, err1 := strconv.ParseUint(bankHex[0], 16, 8)
		addr, err2 := strconv.ParseUint(bankHex[1], 16, 16)

		if err1 != nil || err2 != nil {
			continue
		}

		full := uint32(bank)<<16 | uint32(addr)

		store.DefineLabel(symbol.Label{Name: fields[1], Address: full, Bank: byte(bank)})
	}

	return store
}

func init() {
	disassembleCmd.Flags().String("mapper", "lorom", "memory mapper: lorom or hirom")
	disassembleCmd.Flags().String("bank-start", "$00", "first bank to disassemble")
	disassembleCmd.Flags().String("bank-end", "$FF", "last bank to disassemble")
	disassembleCmd.Flags().String("symbols", "", "path to a .sym file for symbolic operand rendering")
	disassembleCmd.Flags().String("hooks", "", "path to a hook manifest to annotate call sites")
	disassembleCmd.Flags().StringArray("seed", nil, "additional entry point address (e.g. $008000), repeatable")
	disassembleCmd.Flags().String("output-dir", "", "directory to write bank_XX.asm files into (default: cwd)")
	disassembleCmd.Flags().Bool("summary", false, "print a one-line bank count footer")
}

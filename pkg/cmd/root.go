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

// Package cmd implements the three independent cobra command roots backing
// the sn65asm, sn65disasm and sn65lsp binaries; each main.go is a thin
// wrapper calling this package's matching Execute function.
package cmd

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Version is filled when building with make, but *not* when installing via
// "go install".
var Version string

// newRoot builds a cobra.Command carrying the flags and version-reporting
// behaviour every binary shares, leaving Use/Short/Long/Run/subflags to the
// caller.
func newRoot(use, short string) *cobra.Command {
	root := &cobra.Command{
		Use:   use,
		Short: short,
	}

	root.PersistentFlags().Bool("version", false, "report version of this executable")
	root.PersistentFlags().BoolP("verbose", "v", false, "increase logging verbosity")
	root.PersistentFlags().String("config", "", "path to sn65.toml/sn65.json project config")
	root.PersistentFlags().StringArrayP("set", "S", []string{}, "override a config key, e.g. -S mapper=hirom")

	return root
}

func printVersion() {
	fmt.Print("sn65 ")

	if Version != "" {
		fmt.Printf("%s", Version)
	} else if info, ok := debug.ReadBuildInfo(); ok {
		fmt.Printf("%s", info.Main.Version)
	} else {
		fmt.Printf("(unknown version)")
	}

	fmt.Println()
}

func runOrExit(root *cobra.Command) {
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

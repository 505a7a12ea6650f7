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
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sn65816/sn65/pkg/config"
	"github.com/sn65816/sn65/pkg/lsp"
)

var lspCmd = newRoot("sn65lsp", "Run the editor Language Server over stdin/stdout.")

// ExecuteLSP runs the sn65lsp command tree; called by cmd/sn65lsp/main.go.
func ExecuteLSP() {
	runOrExit(lspCmd)
}

func init() {
	lspCmd.Long = `Run the Language Server protocol frontend. Standard input/output are reserved
	for the JSON-RPC transport; server-side logging goes to a file instead.`
	lspCmd.Run = func(cmd *cobra.Command, args []string) {
		if GetFlag(cmd, "version") {
			printVersion()
			return
		}

		logger := newLSPLogger(GetString(cmd, "log-file"))
		defer logger.Sync() //nolint:errcheck

		var cfg *config.Config

		if path := GetString(cmd, "config"); path != "" {
			loaded, err := config.Load(path, nil)
			if err != nil {
				logger.Fatal("config_parse", zap.Error(err))
			}

			cfg = loaded
		}

		server := lsp.NewServer(cfg, logger, GetString(cmd, "root"))

		if err := server.Serve(context.Background(), stdio{}); err != nil {
			logger.Error("serve exited", zap.Error(err))
			os.Exit(1)
		}
	}
}

// stdio adapts os.Stdin/os.Stdout into the io.ReadWriteCloser the jsonrpc2
// stream wraps; Close closes stdout only, mirroring how editors expect
// the language server's write side to signal shutdown.
type stdio struct{}

func (stdio) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdio) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
func (stdio) Close() error                { return os.Stdout.Close() }

func newLSPLogger(path string) *zap.Logger {
	if path == "" {
		path = defaultLSPLogPath()
	}

	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}

	logger, err := cfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "lsp: failed to open log file %s: %s\n", path, err)
		return zap.NewNop()
	}

	return logger
}

func defaultLSPLogPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "sn65lsp.log"
	}

	return dir + "/sn65lsp.log"
}

func init() {
	lspCmd.Flags().String("log-file", "", "path to the server's own log file (stdio is reserved for the protocol)")
	lspCmd.Flags().String("root", "", "root source file, when the workspace has no config-declared main")
}

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

// Package debugger is a thin client over the local emulator's debug socket:
// one JSON command per line, one JSON reply per line, for reading live
// memory values while a ROM runs under Mesen2.
package debugger

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sort"
	"time"
)

const (
	connectTimeout = 100 * time.Millisecond
	readTimeout    = 200 * time.Millisecond
	socketGlob     = "/tmp/mesen2-*.sock"
)

// Command is one outbound request.
type Command struct {
	Type string `json:"type"`
	Addr string `json:"addr"`
}

// Reply is one inbound response.
type Reply struct {
	Success bool `json:"success"`
	Data    int  `json:"data"`
}

// Bridge is a reconnecting client: any send or receive failure drops the
// connection, and the next call re-discovers and reconnects.
type Bridge struct {
	conn net.Conn
}

// New returns a Bridge with no active connection; the first call to Read
// discovers and connects to a socket.
func New() *Bridge { return &Bridge{} }

// Read sends a READ command for addr and returns the byte value reported.
func (b *Bridge) Read(addr uint32) (byte, error) {
	if b.conn == nil {
		if err := b.connect(); err != nil {
			return 0, err
		}
	}

	cmd := Command{Type: "READ", Addr: fmt.Sprintf("0x%06X", addr)}

	reply, err := b.roundTrip(cmd)
	if err != nil {
		b.Close()
		return 0, err
	}

	if !reply.Success {
		return 0, fmt.Errorf("debugger: read $%06X reported failure", addr)
	}

	return byte(reply.Data), nil
}

func (b *Bridge) roundTrip(cmd Command) (Reply, error) {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return Reply{}, err
	}

	_ = b.conn.SetWriteDeadline(time.Now().Add(connectTimeout))

	if _, err := b.conn.Write(append(payload, '\n')); err != nil {
		return Reply{}, fmt.Errorf("debugger: write: %w", err)
	}

	_ = b.conn.SetReadDeadline(time.Now().Add(readTimeout))

	line, err := bufio.NewReader(b.conn).ReadString('\n')
	if err != nil {
		return Reply{}, fmt.Errorf("debugger: read: %w", err)
	}

	var reply Reply
	if err := json.Unmarshal([]byte(line), &reply); err != nil {
		return Reply{}, fmt.Errorf("debugger: decode: %w", err)
	}

	return reply, nil
}

// connect discovers the most recently modified matching socket and dials
// it with a short timeout.
func (b *Bridge) connect() error {
	path, err := discoverSocket()
	if err != nil {
		return err
	}

	conn, err := net.DialTimeout("unix", path, connectTimeout)
	if err != nil {
		return fmt.Errorf("debugger: connect %s: %w", path, err)
	}

	b.conn = conn

	return nil
}

// Close drops the current connection, if any; the next Read reconnects.
func (b *Bridge) Close() {
	if b.conn != nil {
		_ = b.conn.Close()
		b.conn = nil
	}
}

func discoverSocket() (string, error) {
	matches, err := filepath.Glob(socketGlob)
	if err != nil {
		return "", fmt.Errorf("debugger: glob: %w", err)
	}

	if len(matches) == 0 {
		return "", fmt.Errorf("debugger: no socket matching %s", socketGlob)
	}

	sort.Slice(matches, func(i, j int) bool {
		si, erri := os.Stat(matches[i])
		sj, errj := os.Stat(matches[j])

		if erri != nil || errj != nil {
			return false
		}

		return si.ModTime().After(sj.ModTime())
	})

	return matches[0], nil
}

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
package source

import "fmt"

// Location identifies a single point within a loaded source file: which
// file, which 1-based line/column, and the raw rune offset.  Immutable once
// constructed by the reader or LSP document cache.
type Location struct {
	FileID     FileID
	Line       int
	Column     int
	ByteOffset int
}

// String renders a Location as "line:column", for diagnostic messages.
func (l Location) String() string {
	return fmt.Sprintf("%d:%d", l.Line, l.Column)
}

// Zero reports whether this is the unset zero value. Used to detect
// diagnostics whose attribution failed and must fall back to the root file.
func (l Location) Zero() bool {
	return l == Location{}
}

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
package lsp

import (
	"testing"

	"github.com/sn65816/sn65/pkg/asm"
	"github.com/sn65816/sn65/pkg/symbol"
)

func TestSuppressRootSelectionArtifactsDropsKnownLabel(t *testing.T) {
	store := symbol.NewStore()
	store.DefineLabel(symbol.Label{Name: "entry_point", Address: 0x8000})

	diags := []asm.Diagnostic{
		{Severity: asm.SevError, Code: "expression_undefined", Message: `undefined identifier "entry_point"`},
	}

	out := suppressRootSelectionArtifacts(diags, store)
	if len(out) != 0 {
		t.Errorf("expected the diagnostic for a name the store resolves to be suppressed, got %+v", out)
	}
}

func TestSuppressRootSelectionArtifactsKeepsGenuinelyUndefined(t *testing.T) {
	store := symbol.NewStore()

	diags := []asm.Diagnostic{
		{Severity: asm.SevError, Code: "expression_undefined", Message: `undefined identifier "missing_thing"`},
	}

	out := suppressRootSelectionArtifacts(diags, store)
	if len(out) != 1 {
		t.Errorf("expected a genuinely undefined name to survive, got %+v", out)
	}
}

func TestSuppressRootSelectionArtifactsIgnoresUnrelatedDiagnostics(t *testing.T) {
	store := symbol.NewStore()
	store.DefineLabel(symbol.Label{Name: "never_called", Address: 0x8000})

	diags := []asm.Diagnostic{
		{Severity: asm.SevWarning, Code: "expression_undefined", Message: "label never_called is never referenced"},
	}

	out := suppressRootSelectionArtifacts(diags, store)
	if len(out) != 1 {
		t.Errorf("expected the linter's unused-symbol warning to pass through unchanged, got %+v", out)
	}
}

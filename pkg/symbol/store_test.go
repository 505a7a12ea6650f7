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
package symbol

import "testing"

func TestDefineLabelRejectsRedefinition(t *testing.T) {
	s := NewStore()

	if _, ok := s.DefineLabel(Label{Name: "start", Address: 0x8000}); !ok {
		t.Fatal("first definition of 'start' should succeed")
	}

	if _, ok := s.DefineLabel(Label{Name: "start", Address: 0x9000}); ok {
		t.Fatal("redefining 'start' should fail")
	}
}

func TestLocalLabelResolvesAgainstLastParent(t *testing.T) {
	s := NewStore()

	s.DefineLabel(Label{Name: "loop", Address: 0x8000})
	s.DefineLabel(Label{Name: ".again", Address: 0x8002, IsLocal: true})

	sym, ok := s.Lookup(".again")
	if !ok {
		t.Fatal("expected .again to resolve against the last parent label")
	}

	if sym.Label.Address != 0x8002 {
		t.Errorf("got address %#x, want 0x8002", sym.Label.Address)
	}
}

func TestNamespaceQualification(t *testing.T) {
	s := NewStore()

	s.PushNamespace("ppu")

	if got := s.QualifiedName("init"); got != "ppu_init" {
		t.Errorf("QualifiedName = %q, want ppu_init", got)
	}

	if !s.PopNamespace() {
		t.Fatal("PopNamespace should succeed while the stack is non-empty")
	}

	if s.PopNamespace() {
		t.Error("PopNamespace on an empty stack should report false")
	}
}

func TestLookupAddressReverseIndex(t *testing.T) {
	s := NewStore()
	s.DefineLabel(Label{Name: "vector", Address: 0x00FFEA, Bank: 0x00})

	l, ok := s.LookupAddress(0x00FFEA)
	if !ok || l.Name != "vector" {
		t.Fatalf("LookupAddress = %+v, %v", l, ok)
	}

	if _, ok := s.LookupAddress(0x001234); ok {
		t.Error("LookupAddress of an unbound address should miss")
	}
}

func TestDefineAndMacroNamespacesAreIndependent(t *testing.T) {
	s := NewStore()

	if _, ok := s.DefineLabel(Label{Name: "reset", Address: 0x8000}); !ok {
		t.Fatal("defining label 'reset' should succeed")
	}

	if _, ok := s.DefineMacro(Macro{Name: "reset"}); !ok {
		t.Fatal("a macro may share a name with a label, since they live in separate namespaces")
	}

	if _, ok := s.LookupMacro("reset"); !ok {
		t.Fatal("expected macro 'reset' to resolve")
	}
}

func TestCacheDefineValue(t *testing.T) {
	s := NewStore()
	s.DefineDefine(Define{Name: "WIDTH", ValueText: "16"})

	s.CacheDefineValue("WIDTH", 16)

	sym, ok := s.Lookup("WIDTH")
	if !ok {
		t.Fatal("expected WIDTH to resolve")
	}

	if !sym.Define.HasExpanded || sym.Define.ExpandedNumeric != 16 {
		t.Errorf("got %+v, want HasExpanded=true ExpandedNumeric=16", sym.Define)
	}
}

func TestStructFieldOffset(t *testing.T) {
	st := Struct{Name: "Point"}
	st.AppendField("x", 2)
	st.AppendField("y", 2)

	if off, ok := st.FieldOffset("y"); !ok || off != 2 {
		t.Errorf("FieldOffset(y) = %d, %v, want 2, true", off, ok)
	}

	if _, ok := st.FieldOffset("z"); ok {
		t.Error("FieldOffset of an unknown field should miss")
	}

	if st.TotalSize != 4 {
		t.Errorf("TotalSize = %d, want 4", st.TotalSize)
	}
}

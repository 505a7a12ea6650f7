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
package expr

import (
	"testing"

	"github.com/sn65816/sn65/pkg/lex"
	"github.com/sn65816/sn65/pkg/source"
	"github.com/sn65816/sn65/pkg/symbol"
)

func tokensFor(t *testing.T, text string) []lex.Token {
	t.Helper()

	file := source.NewFile(0, "<test>", []byte(text))
	scanner := lex.NewScanner(file)

	var toks []lex.Token

	for _, tok := range scanner.Collect() {
		if tok.Kind == lex.Newline || tok.Kind == lex.EOF {
			continue
		}

		toks = append(toks, tok)
	}

	return toks
}

func evalText(t *testing.T, store *symbol.Store, text string) (int32, error) {
	t.Helper()

	e := New(store, nil)

	return e.Eval(tokensFor(t, text))
}

func TestEvalArithmetic(t *testing.T) {
	cases := []struct {
		expr string
		want int32
	}{
		{"1 + 2 * 3", 7},
		{"(1 + 2) * 3", 9},
		{"10 - 4 - 3", 3},
		{"$10 + %0001", 17},
		{"1 << 4", 16},
		{"~0", -1},
		{"-5 + 5", 0},
		{"7 % 3", 1},
		{"1 == 1", 1},
		{"1 != 1", 0},
		{"3 > 2", 1},
		{"'A'", 65},
	}

	store := symbol.NewStore()

	for _, c := range cases {
		got, err := evalText(t, store, c.expr)
		if err != nil {
			t.Fatalf("eval(%q): unexpected error %v", c.expr, err)
		}

		if got != c.want {
			t.Errorf("eval(%q) = %d, want %d", c.expr, got, c.want)
		}
	}
}

func TestEvalDivisionByZero(t *testing.T) {
	store := symbol.NewStore()

	_, err := evalText(t, store, "1 / 0")
	if err == nil {
		t.Fatal("expected an error dividing by zero")
	}

	serr, ok := err.(*Error)
	if !ok || serr.Code != Syntax {
		t.Fatalf("expected a Syntax error, got %#v", err)
	}
}

func TestEvalUndefinedIdentifier(t *testing.T) {
	store := symbol.NewStore()

	_, err := evalText(t, store, "missing_label + 1")
	if err == nil {
		t.Fatal("expected an error for an undefined identifier")
	}

	serr, ok := err.(*Error)
	if !ok || serr.Code != Undefined {
		t.Fatalf("expected an Undefined error, got %#v", err)
	}
}

func TestEvalLabelReference(t *testing.T) {
	store := symbol.NewStore()
	store.DefineLabel(symbol.Label{Name: "start", Address: 0x8000})

	got, err := evalText(t, store, "start + 2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got != 0x8002 {
		t.Errorf("got %#x, want 0x8002", got)
	}
}

func TestEvalDefineReferenceWithBangSigil(t *testing.T) {
	store := symbol.NewStore()
	store.DefineDefine(symbol.Define{Name: "x", ValueText: "$42"})

	got, err := evalText(t, store, "!x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got != 0x42 {
		t.Errorf("got %#x, want 0x42", got)
	}
}

func TestEvalTrailingTokens(t *testing.T) {
	store := symbol.NewStore()

	_, err := evalText(t, store, "1 2")
	if err == nil {
		t.Fatal("expected an error for trailing tokens")
	}
}

func TestNarrowAcceptsUnsignedAndSignedRange(t *testing.T) {
	if _, err := Narrow(255, 1); err != nil {
		t.Errorf("255 should fit in a byte: %v", err)
	}

	if _, err := Narrow(-1, 1); err != nil {
		t.Errorf("-1 should fit in a byte via the signed range: %v", err)
	}

	if _, err := Narrow(256, 1); err == nil {
		t.Error("256 should not fit in a byte")
	}
}

func TestNarrowMasksToWidth(t *testing.T) {
	v, err := Narrow(-1, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if v != 0xFFFF {
		t.Errorf("got %#x, want 0xffff", v)
	}
}

func TestEvalSizeofStruct(t *testing.T) {
	store := symbol.NewStore()

	st := symbol.Struct{Name: "Point"}
	st.AppendField("x", 2)
	st.AppendField("y", 2)
	store.DefineStruct(st)

	got, err := evalText(t, store, "sizeof(Point)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got != 4 {
		t.Errorf("got %d, want 4", got)
	}
}

func TestEvalStructFieldOffset(t *testing.T) {
	store := symbol.NewStore()

	st := symbol.Struct{Name: "Point"}
	st.AppendField("x", 2)
	st.AppendField("y", 2)
	store.DefineStruct(st)

	got, err := evalText(t, store, "Point.y")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got != 2 {
		t.Errorf("got %d, want 2", got)
	}
}

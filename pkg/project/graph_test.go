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
package project

import "testing"

func TestSelectRootOfUnknownFileIsItself(t *testing.T) {
	g := New()

	if got := g.SelectRoot("orphan.asm", map[string]bool{}); got != "orphan.asm" {
		t.Errorf("SelectRoot of an unregistered file = %q, want itself", got)
	}
}

func TestSelectRootPrefersNearestPreferred(t *testing.T) {
	g := New()
	g.AddEdge("main.asm", "lib.asm")
	g.AddEdge("lib.asm", "util.asm")

	got := g.SelectRoot("util.asm", map[string]bool{"main.asm": true})
	if got != "main.asm" {
		t.Errorf("SelectRoot = %q, want main.asm", got)
	}
}

func TestSelectRootFallsBackToRootlessAncestor(t *testing.T) {
	g := New()
	g.AddEdge("main.asm", "lib.asm")
	g.AddEdge("lib.asm", "util.asm")

	// No preferred set names anything; main.asm has no parents of its own,
	// so it is the rootless ancestor util.asm should resolve to.
	got := g.SelectRoot("util.asm", map[string]bool{})
	if got != "main.asm" {
		t.Errorf("SelectRoot = %q, want main.asm", got)
	}
}

func TestSelectRootTiesBrokenLexicographically(t *testing.T) {
	g := New()
	g.AddEdge("b.asm", "shared.asm")
	g.AddEdge("a.asm", "shared.asm")

	got := g.SelectRoot("shared.asm", map[string]bool{})
	if got != "a.asm" {
		t.Errorf("SelectRoot = %q, want a.asm (lexicographically first at equal distance)", got)
	}
}

func TestAncestorDistancesBFSOrder(t *testing.T) {
	g := New()
	g.AddEdge("main.asm", "lib.asm")
	g.AddEdge("lib.asm", "util.asm")

	dist := g.AncestorDistances("util.asm")

	if dist["lib.asm"] != 1 {
		t.Errorf("lib.asm distance = %d, want 1", dist["lib.asm"])
	}

	if dist["main.asm"] != 2 {
		t.Errorf("main.asm distance = %d, want 2", dist["main.asm"])
	}

	if _, ok := dist["util.asm"]; ok {
		t.Error("AncestorDistances should not include the starting node itself")
	}
}

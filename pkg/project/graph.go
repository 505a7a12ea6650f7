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

// Package project maintains the include-file parent/child relation across
// a workspace and selects which file the language server should re-assemble
// from when any one of them changes.
package project

import (
	"sort"

	"github.com/bits-and-blooms/bitset"
)

// Graph is the bidirectional parent<->child include relation. Nodes are
// identified by URI string; a node needn't have been registered by AddEdge
// to appear as a key (both endpoints of every edge are recorded).
type Graph struct {
	ids      map[string]uint
	uris     []string
	parents  map[uint][]uint
	children map[uint][]uint
}

// New constructs an empty project graph.
func New() *Graph {
	return &Graph{
		ids:      make(map[string]uint),
		parents:  make(map[uint][]uint),
		children: make(map[uint][]uint),
	}
}

func (g *Graph) idFor(uri string) uint {
	if id, ok := g.ids[uri]; ok {
		return id
	}

	id := uint(len(g.uris))
	g.ids[uri] = id
	g.uris = append(g.uris, uri)

	return id
}

// AddEdge registers that parent includes child, in both directions.
func (g *Graph) AddEdge(parent, child string) {
	p, c := g.idFor(parent), g.idFor(child)

	if !containsID(g.parents[c], p) {
		g.parents[c] = append(g.parents[c], p)
	}

	if !containsID(g.children[p], c) {
		g.children[p] = append(g.children[p], c)
	}
}

func containsID(ids []uint, id uint) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}

	return false
}

// AncestorDistances returns a BFS distance map from u over parent edges:
// every ancestor reachable from u, keyed by URI, with its edge distance.
// u itself is not included.
func (g *Graph) AncestorDistances(u string) map[string]int {
	start, ok := g.ids[u]
	if !ok {
		return map[string]int{}
	}

	dist := make(map[string]int)
	visited := bitset.New(uint(len(g.uris)))
	visited.Set(start)

	queue := []uint{start}
	level := 0

	for len(queue) > 0 {
		level++

		var next []uint

		for _, n := range queue {
			for _, p := range g.parents[n] {
				if visited.Test(p) {
					continue
				}

				visited.Set(p)
				dist[g.uris[p]] = level
				next = append(next, p)
			}
		}

		queue = next
	}

	return dist
}

// SelectRoot picks the file the language server should re-assemble from
// when u changes: the nearest ancestor in preferred (ties broken
// lexicographically), else the nearest ancestor with no parents of its
// own, else u itself.
func (g *Graph) SelectRoot(u string, preferred map[string]bool) string {
	dist := g.AncestorDistances(u)
	if len(dist) == 0 {
		return u
	}

	if best, ok := nearestMatching(dist, preferred); ok {
		return best
	}

	rootless := func(uri string) bool {
		id, ok := g.ids[uri]
		return ok && len(g.parents[id]) == 0
	}

	if best, ok := nearestMatching(dist, predicateSet{rootless}); ok {
		return best
	}

	return u
}

// predicateSet adapts a func(string) bool to the same lookup shape as a
// map[string]bool, so nearestMatching can serve both SelectRoot passes.
type predicateSet struct {
	fn func(string) bool
}

func (p predicateSet) has(uri string) bool { return p.fn(uri) }

func nearestMatching(dist map[string]int, set any) (string, bool) {
	var has func(string) bool

	switch s := set.(type) {
	case map[string]bool:
		has = func(uri string) bool { return s[uri] }
	case predicateSet:
		has = s.has
	default:
		return "", false
	}

	var candidates []string

	for uri := range dist {
		if has(uri) {
			candidates = append(candidates, uri)
		}
	}

	if len(candidates) == 0 {
		return "", false
	}

	sort.Slice(candidates, func(i, j int) bool {
		di, dj := dist[candidates[i]], dist[candidates[j]]
		if di != dj {
			return di < dj
		}

		return candidates[i] < candidates[j]
	})

	return candidates[0], true
}

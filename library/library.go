// Copyright 2026 The CQLFHIR Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package library loads a set of CQL library sources, parses each independently, and orders them
// so that every library appears after every library it includes - the arrangement
// interpreter.Eval needs, since it resolves cross-library function and expression references
// eagerly rather than lazily fetching source on demand.
package library

import (
	"fmt"
	"strings"

	"gopkg.in/gyuho/goraph.v2"

	"github.com/clinical-lang/cqlfhir/model"
	"github.com/clinical-lang/cqlfhir/parser"
	"github.com/clinical-lang/cqlfhir/result"
)

// CompiledLibrary is one parsed CQL library together with the identity key the rest of the engine
// (interpreter, reference resolver) addresses it by.
type CompiledLibrary struct {
	Key     result.LibKey
	Library *model.Library
}

// Manager accumulates CQL source texts and parses them into CompiledLibrarys, keyed by their
// declared library identifier (or an unnamed slot, one per Manager, if a source has none).
type Manager struct {
	libs       map[result.LibKey]*CompiledLibrary
	order      []result.LibKey // insertion order, used only to keep error messages stable
	sawUnnamed bool
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{libs: make(map[result.LibKey]*CompiledLibrary)}
}

// Add parses src and registers it under its declared library identifier. At most one unnamed
// (header-less) library may be added to a single Manager, mirroring CQL's own single
// compilation-unit convention for ad hoc expressions.
func (m *Manager) Add(src string) (*CompiledLibrary, error) {
	lib, diags := parser.ParseCQL(src)
	if diags.HasErrors() {
		return nil, diags
	}
	key := result.LibKeyFromModel(lib.Identifier)
	if lib.Identifier == nil {
		if m.sawUnnamed {
			return nil, fmt.Errorf("library: a Manager may hold at most one unnamed library")
		}
		m.sawUnnamed = true
	} else if _, exists := m.libs[key]; exists {
		return nil, fmt.Errorf("library: %s is already loaded", key.Key())
	}
	cl := &CompiledLibrary{Key: key, Library: lib}
	m.libs[key] = cl
	m.order = append(m.order, key)
	return cl, nil
}

// Get returns the library registered under name/version, if any. An empty version matches the
// highest version string registered under name, mirroring an unversioned `include` statement.
func (m *Manager) Get(name, version string) (*CompiledLibrary, bool) {
	if version != "" {
		cl, ok := m.libs[result.LibKey{Name: name, Version: version}]
		return cl, ok
	}
	var best *CompiledLibrary
	for k, cl := range m.libs {
		if k.Name != name {
			continue
		}
		if best == nil || strings.Compare(k.Version, best.Key.Version) > 0 {
			best = cl
		}
	}
	return best, best != nil
}

// Ordered returns every registered library topologically sorted so that a library always precedes
// any library that includes it. Returns an error if an include names a library the Manager never
// loaded, or if the include graph has a cycle.
func (m *Manager) Ordered() ([]*model.Library, error) {
	graph := goraph.NewGraph()
	for _, key := range m.order {
		graph.AddNode(goraph.NewNode(key.Key()))
	}
	for _, key := range m.order {
		cl := m.libs[key]
		for _, inc := range cl.Library.Includes {
			depKey := result.LibKeyFromModel(inc.Identifier)
			dep, ok := m.Get(depKey.Name, depKey.Version)
			if !ok {
				return nil, fmt.Errorf("library: %s includes %s, which was not loaded", key.Key(), depKey.Key())
			}
			if err := graph.AddEdge(goraph.NewNode(dep.Key.Key()).ID(), goraph.NewNode(key.Key()).ID(), 1); err != nil {
				return nil, fmt.Errorf("library: failed building include graph for %s: %w", key.Key(), err)
			}
		}
	}
	sortedIDs, isDAG := goraph.TopologicalSort(graph)
	if !isDAG {
		return nil, fmt.Errorf("library: circular include dependency detected")
	}
	out := make([]*model.Library, 0, len(sortedIDs))
	for _, id := range sortedIDs {
		key := findKeyByGraphID(m, id.String())
		out = append(out, m.libs[key].Library)
	}
	return out, nil
}

func findKeyByGraphID(m *Manager, id string) result.LibKey {
	for _, key := range m.order {
		if key.Key() == id {
			return key
		}
	}
	return result.LibKey{}
}

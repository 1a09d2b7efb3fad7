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

package terminology

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates no CodeSystem/ValueSet with the requested id (and, if given, version) was
// loaded into the provider.
var ErrNotFound = errors.New("terminology: resource not loaded")

type resourceKey struct {
	ID, Version string
}

// Local is an in-memory Provider, seeded directly with code membership rather than by parsing FHIR
// CodeSystem/ValueSet resource files: callers supply each CodeSystem/ValueSet's expansion as a
// []Code up front (e.g. from a test fixture or a pre-expanded terminology export), and Local only
// answers membership queries over that data. Version resolution mirrors the "latest loaded version
// wins when none is specified" behavior of a full FHIR-backed provider.
type Local struct {
	codeSystems map[resourceKey][]Code
	valueSets   map[resourceKey][]Code
	latestCS    map[string]string // id -> latest version seen
	latestVS    map[string]string
}

// NewLocal returns an empty in-memory terminology Provider; use AddCodeSystem/AddValueSet to seed
// it before evaluation.
func NewLocal() *Local {
	return &Local{
		codeSystems: make(map[resourceKey][]Code),
		valueSets:   make(map[resourceKey][]Code),
		latestCS:    make(map[string]string),
		latestVS:    make(map[string]string),
	}
}

// AddCodeSystem registers the full code membership of the CodeSystem identified by id/version.
func (l *Local) AddCodeSystem(id, version string, codes []Code) {
	l.codeSystems[resourceKey{id, version}] = codes
	if v, ok := l.latestCS[id]; !ok || version > v {
		l.latestCS[id] = version
	}
}

// AddValueSet registers the expanded code membership of the ValueSet identified by id/version.
func (l *Local) AddValueSet(id, version string, codes []Code) {
	l.valueSets[resourceKey{id, version}] = codes
	if v, ok := l.latestVS[id]; !ok || version > v {
		l.latestVS[id] = version
	}
}

func (l *Local) resolveVersion(id, version string, latest map[string]string) string {
	if version != "" {
		return version
	}
	return latest[id]
}

// AnyInCodeSystem implements Provider.
func (l *Local) AnyInCodeSystem(codes []Code, id, version string) (bool, error) {
	key := resourceKey{id, l.resolveVersion(id, version, l.latestCS)}
	members, ok := l.codeSystems[key]
	if !ok {
		return false, fmt.Errorf("CodeSystem{%s, %s}: %w", id, version, ErrNotFound)
	}
	return anyMember(codes, members), nil
}

// AnyInValueSet implements Provider.
func (l *Local) AnyInValueSet(codes []Code, id, version string) (bool, error) {
	key := resourceKey{id, l.resolveVersion(id, version, l.latestVS)}
	members, ok := l.valueSets[key]
	if !ok {
		return false, fmt.Errorf("ValueSet{%s, %s}: %w", id, version, ErrNotFound)
	}
	return anyMember(codes, members), nil
}

func anyMember(codes, members []Code) bool {
	memberSet := make(map[codeKey]bool, len(members))
	for _, m := range members {
		memberSet[m.key()] = true
	}
	for _, c := range codes {
		if memberSet[c.key()] {
			return true
		}
	}
	return false
}

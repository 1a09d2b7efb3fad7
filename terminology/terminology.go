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

// Package terminology defines the interface between the evaluator's clinical operators (in,
// in CodeSystem, in ValueSet) and a source of CodeSystem/ValueSet membership, plus an in-memory
// implementation of it.
package terminology

// Code represents a CQL/FHIRPath Code, the unit membership tests are evaluated over. Display is
// never consulted when testing membership.
type Code struct {
	Code    string
	System  string
	Display string
}

func (c Code) key() codeKey { return codeKey{Value: c.Code, System: c.System} }

type codeKey struct {
	Value, System string
}

// Provider is the interface between the evaluator and a source of terminology membership data.
// Implementations answer "is any of these codes a member of this CodeSystem/ValueSet" without the
// evaluator needing to know how membership is determined (local expansion, a terminology server,
// ...).
type Provider interface {
	// AnyInCodeSystem returns true if any of codes is a member of the CodeSystem identified by id
	// and version. An empty version means "the latest version loaded".
	AnyInCodeSystem(codes []Code, id, version string) (bool, error)
	// AnyInValueSet returns true if any of codes is a member of the ValueSet identified by id and
	// version. An empty version means "the latest version loaded".
	AnyInValueSet(codes []Code, id, version string) (bool, error)
}

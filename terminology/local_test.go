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
	"testing"
)

func TestLocal_AnyInCodeSystem(t *testing.T) {
	l := NewLocal()
	l.AddCodeSystem("http://snomed.info/sct", "2024-01", []Code{
		{Code: "44054006", System: "http://snomed.info/sct"},
	})
	ok, err := l.AnyInCodeSystem([]Code{{Code: "44054006", System: "http://snomed.info/sct"}}, "http://snomed.info/sct", "2024-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("AnyInCodeSystem() = false, want true")
	}
}

func TestLocal_AnyInCodeSystem_NoMatch(t *testing.T) {
	l := NewLocal()
	l.AddCodeSystem("http://snomed.info/sct", "2024-01", []Code{
		{Code: "44054006", System: "http://snomed.info/sct"},
	})
	ok, err := l.AnyInCodeSystem([]Code{{Code: "99999999", System: "http://snomed.info/sct"}}, "http://snomed.info/sct", "2024-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("AnyInCodeSystem() = true, want false")
	}
}

func TestLocal_AnyInCodeSystem_NotLoadedErrors(t *testing.T) {
	l := NewLocal()
	_, err := l.AnyInCodeSystem([]Code{{Code: "x"}}, "http://not-loaded", "")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestLocal_AnyInValueSet(t *testing.T) {
	l := NewLocal()
	l.AddValueSet("http://example.org/vs/diabetes", "1.0", []Code{
		{Code: "44054006", System: "http://snomed.info/sct"},
	})
	ok, err := l.AnyInValueSet([]Code{{Code: "44054006", System: "http://snomed.info/sct"}}, "http://example.org/vs/diabetes", "1.0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("AnyInValueSet() = false, want true")
	}
}

func TestLocal_AnyInValueSet_SystemMismatchIsNoMatch(t *testing.T) {
	l := NewLocal()
	l.AddValueSet("http://example.org/vs/diabetes", "1.0", []Code{
		{Code: "44054006", System: "http://snomed.info/sct"},
	})
	// Same code value under a different code system is not a member.
	ok, err := l.AnyInValueSet([]Code{{Code: "44054006", System: "http://loinc.org"}}, "http://example.org/vs/diabetes", "1.0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("AnyInValueSet() with mismatched system = true, want false")
	}
}

func TestLocal_VersionDefaultsToLatestLoaded(t *testing.T) {
	l := NewLocal()
	l.AddValueSet("http://example.org/vs/diabetes", "1.0", []Code{{Code: "a"}})
	l.AddValueSet("http://example.org/vs/diabetes", "2.0", []Code{{Code: "b"}})
	// No version given: resolves to "2.0", the lexicographically (and numerically) latest added.
	ok, err := l.AnyInValueSet([]Code{{Code: "b"}}, "http://example.org/vs/diabetes", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("AnyInValueSet() with unversioned lookup did not resolve to the latest loaded version")
	}
	ok, err = l.AnyInValueSet([]Code{{Code: "a"}}, "http://example.org/vs/diabetes", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("AnyInValueSet() with unversioned lookup unexpectedly matched the older version's code")
	}
}

func TestLocal_AnyMember_MultipleCodes(t *testing.T) {
	l := NewLocal()
	l.AddValueSet("http://example.org/vs", "", []Code{{Code: "b"}, {Code: "c"}})
	ok, err := l.AnyInValueSet([]Code{{Code: "a"}, {Code: "c"}}, "http://example.org/vs", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("AnyInValueSet() with one matching code among several = false, want true")
	}
}

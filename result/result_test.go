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

package result

import (
	"errors"
	"testing"

	"github.com/clinical-lang/cqlfhir/model"
)

func TestLibKeyFromModel(t *testing.T) {
	id := &model.LibraryIdentifier{Qualified: "Helpers", Version: "1.0.0"}
	k := LibKeyFromModel(id)
	if k.Name != "Helpers" || k.Version != "1.0.0" {
		t.Errorf("LibKeyFromModel(%v) = %+v, want Name=Helpers Version=1.0.0", id, k)
	}
}

func TestLibKeyFromModel_NilIsUnnamed(t *testing.T) {
	k := LibKeyFromModel(nil)
	if !k.IsUnnamed {
		t.Error("LibKeyFromModel(nil) should be unnamed")
	}
	if k.Name != "Unnamed Library" {
		t.Errorf("LibKeyFromModel(nil).Name = %q, want \"Unnamed Library\"", k.Name)
	}
}

func TestUnnamedLibKey_UniquePerCall(t *testing.T) {
	a := UnnamedLibKey()
	b := UnnamedLibKey()
	if a.Version == b.Version {
		t.Error("UnnamedLibKey() produced the same version twice, want distinct UUIDs")
	}
}

func TestLibKey_Key(t *testing.T) {
	k := LibKey{Name: "Helpers", Version: "1.0.0"}
	if got := k.Key(); got != "Helpers 1.0.0" {
		t.Errorf("Key() = %q, want \"Helpers 1.0.0\"", got)
	}
	k2 := LibKey{Name: "Helpers"}
	if got := k2.Key(); got != "Helpers" {
		t.Errorf("Key() with no version = %q, want \"Helpers\"", got)
	}
}

func TestLibKey_String(t *testing.T) {
	k := LibKey{IsUnnamed: true, Name: "x", Version: "y"}
	if got := k.String(); got != "Unnamed Library" {
		t.Errorf("String() for unnamed = %q, want \"Unnamed Library\"", got)
	}
	named := LibKey{Name: "Helpers", Version: "1.0.0"}
	if got := named.String(); got != "Helpers 1.0.0" {
		t.Errorf("String() for named = %q, want \"Helpers 1.0.0\"", got)
	}
}

func TestEngineError(t *testing.T) {
	wrapped := errors.New("boom")
	ee := NewEngineError("Test.cql", ErrLibraryParsing, wrapped)
	if !errors.Is(ee, ErrLibraryParsing) {
		t.Error("errors.Is(ee, ErrLibraryParsing) = false, want true")
	}
	if !errors.Is(ee, wrapped) {
		t.Error("errors.Is(ee, wrapped) = false, want true (Unwrap should expose it)")
	}
	if ee.Error() == "" {
		t.Error("Error() returned empty string")
	}
}

func TestLibraries_MarshalJSON(t *testing.T) {
	v, _ := New(int32(1))
	libs := Libraries{
		{Name: "Test", Version: "1.0.0"}: {"X": v},
	}
	b, err := libs.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() unexpected error: %v", err)
	}
	if len(b) == 0 {
		t.Error("MarshalJSON() produced no output")
	}
}

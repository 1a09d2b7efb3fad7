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

package types

import "testing"

func TestToSystem(t *testing.T) {
	cases := map[string]System{
		"Integer":        Integer,
		"System.Integer": Integer,
		"Concept":        Concept,
		"Bogus":          Unset,
	}
	for in, want := range cases {
		if got := ToSystem(in); got != want {
			t.Errorf("ToSystem(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSystem_Equal(t *testing.T) {
	if !Integer.Equal(Integer) {
		t.Error("Integer.Equal(Integer) = false, want true")
	}
	if Integer.Equal(Long) {
		t.Error("Integer.Equal(Long) = true, want false")
	}
	if Integer.Equal(&Named{TypeName: "Integer"}) {
		t.Error("Integer.Equal(Named) = true, want false")
	}
}

func TestNamed_Equal(t *testing.T) {
	a := &Named{TypeName: "Patient"}
	b := &Named{TypeName: "Patient"}
	c := &Named{TypeName: "Condition"}
	if !a.Equal(b) {
		t.Error("Named{Patient}.Equal(Named{Patient}) = false, want true")
	}
	if a.Equal(c) {
		t.Error("Named{Patient}.Equal(Named{Condition}) = true, want false")
	}
	if a.Equal(Integer) {
		t.Error("Named.Equal(System) = true, want false")
	}
}

func TestInterval_Equal(t *testing.T) {
	a := &Interval{PointType: Date}
	b := &Interval{PointType: Date}
	c := &Interval{PointType: DateTime}
	if !a.Equal(b) {
		t.Error("Interval<Date>.Equal(Interval<Date>) = false, want true")
	}
	if a.Equal(c) {
		t.Error("Interval<Date>.Equal(Interval<DateTime>) = true, want false")
	}
	if a.Equal(Date) {
		t.Error("Interval.Equal(System) = true, want false")
	}
}

func TestList_Equal(t *testing.T) {
	a := &List{ElementType: Integer}
	b := &List{ElementType: Integer}
	c := &List{ElementType: String}
	if !a.Equal(b) {
		t.Error("List<Integer>.Equal(List<Integer>) = false, want true")
	}
	if a.Equal(c) {
		t.Error("List<Integer>.Equal(List<String>) = true, want false")
	}
}

func TestTuple_Equal(t *testing.T) {
	a := &Tuple{Elements: map[string]IType{"x": Integer, "y": String}}
	b := &Tuple{Elements: map[string]IType{"y": String, "x": Integer}}
	c := &Tuple{Elements: map[string]IType{"x": Integer}}
	if !a.Equal(b) {
		t.Error("Tuple.Equal() with same elements in different map order = false, want true")
	}
	if a.Equal(c) {
		t.Error("Tuple.Equal() with different element counts = true, want false")
	}
}

func TestChoice_Equal_OrderIndependent(t *testing.T) {
	a := &Choice{ChoiceTypes: []IType{Integer, String}}
	b := &Choice{ChoiceTypes: []IType{String, Integer}}
	c := &Choice{ChoiceTypes: []IType{Integer, Boolean}}
	if !a.Equal(b) {
		t.Error("Choice.Equal() with reordered ChoiceTypes = false, want true")
	}
	if a.Equal(c) {
		t.Error("Choice{Integer,String}.Equal(Choice{Integer,Boolean}) = true, want false")
	}
}

func TestModelInfoName(t *testing.T) {
	interval := &Interval{PointType: Date}
	got, err := interval.ModelInfoName()
	if err != nil || got != "Interval<System.Date>" {
		t.Errorf("Interval.ModelInfoName() = (%q, %v), want (\"Interval<System.Date>\", nil)", got, err)
	}

	list := &List{ElementType: Integer}
	got, err = list.ModelInfoName()
	if err != nil || got != "List<System.Integer>" {
		t.Errorf("List.ModelInfoName() = (%q, %v), want (\"List<System.Integer>\", nil)", got, err)
	}

	tuple := &Tuple{Elements: map[string]IType{"b": String, "a": Integer}}
	got, err = tuple.ModelInfoName()
	if err != nil || got != "Tuple{a System.Integer, b System.String}" {
		t.Errorf("Tuple.ModelInfoName() = (%q, %v), want sorted element names", got, err)
	}
}

func TestModelInfoName_NilReceiverErrors(t *testing.T) {
	var n *Named
	if _, err := n.ModelInfoName(); err == nil {
		t.Error("(*Named)(nil).ModelInfoName() = nil error, want error")
	}
}

func TestToStrings(t *testing.T) {
	got := ToStrings([]IType{Integer, String})
	if got != "System.Integer, System.String" {
		t.Errorf("ToStrings() = %q, want %q", got, "System.Integer, System.String")
	}
}

func TestIsSystem(t *testing.T) {
	if !IsSystem(Integer, Integer) {
		t.Error("IsSystem(Integer, Integer) = false, want true")
	}
	if IsSystem(&Named{TypeName: "Integer"}, Integer) {
		t.Error("IsSystem(Named, Integer) = true, want false")
	}
}

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

package navigator

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/clinical-lang/cqlfhir/internal/modelinfo"
	"github.com/clinical-lang/cqlfhir/result"
	"github.com/clinical-lang/cqlfhir/types"
)

var utc = time.UTC

func mustModelInfos(t *testing.T) *modelinfo.ModelInfos {
	t.Helper()
	mi, err := modelinfo.New(nil)
	if err != nil {
		t.Fatalf("modelinfo.New() unexpected error: %v", err)
	}
	return mi
}

func TestNewResource(t *testing.T) {
	mi := mustModelInfos(t)
	data := []byte(`{"resourceType": "Patient", "id": "123", "birthDate": "1990-01-01"}`)

	v, err := NewResource(data, mi)
	if err != nil {
		t.Fatalf("NewResource() unexpected error: %v", err)
	}
	named, ok := v.GolangValue().(result.Named)
	if !ok {
		t.Fatalf("NewResource() GolangValue() = %T, want result.Named", v.GolangValue())
	}
	if named.RuntimeType.TypeName != "Patient" {
		t.Errorf("RuntimeType.TypeName = %q, want %q", named.RuntimeType.TypeName, "Patient")
	}
}

func TestProperty_Primitives(t *testing.T) {
	data := []byte(`{
		"resourceType": "Patient",
		"id": "123",
		"birthDate": "1990-01-01",
		"active": true
	}`)
	src := result.Named{Node: Node{data: data}, RuntimeType: &types.Named{TypeName: "Patient"}}

	idVal, err := Property(src, "id", types.String, utc)
	if err != nil {
		t.Fatalf("Property(id) unexpected error: %v", err)
	}
	if got := idVal.GolangValue().(string); got != "123" {
		t.Errorf("Property(id) = %q, want %q", got, "123")
	}

	activeVal, err := Property(src, "active", types.Boolean, utc)
	if err != nil {
		t.Fatalf("Property(active) unexpected error: %v", err)
	}
	if got := activeVal.GolangValue().(bool); !got {
		t.Errorf("Property(active) = %v, want true", got)
	}

	bdVal, err := Property(src, "birthDate", types.Date, utc)
	if err != nil {
		t.Fatalf("Property(birthDate) unexpected error: %v", err)
	}
	d, ok := bdVal.GolangValue().(result.Date)
	if !ok {
		t.Fatalf("Property(birthDate) = %T, want result.Date", bdVal.GolangValue())
	}
	if d.Precision != "day" {
		t.Errorf("birthDate precision = %v, want day", d.Precision)
	}
}

func TestProperty_MissingIsNull(t *testing.T) {
	data := []byte(`{"resourceType": "Patient", "id": "123"}`)
	src := result.Named{Node: Node{data: data}, RuntimeType: &types.Named{TypeName: "Patient"}}

	v, err := Property(src, "gender", types.String, utc)
	if err != nil {
		t.Fatalf("Property(gender) unexpected error: %v", err)
	}
	if !result.IsNull(v) {
		t.Errorf("Property(gender) = %v, want Null", v)
	}
}

func TestProperty_Choice(t *testing.T) {
	data := []byte(`{
		"resourceType": "Observation",
		"valueQuantity": {"value": 5.4, "unit": "mg"}
	}`)
	src := result.Named{Node: Node{data: data}, RuntimeType: &types.Named{TypeName: "Observation"}}
	choice := &types.Choice{ChoiceTypes: []types.IType{
		types.Quantity, types.String, types.Boolean, &types.Named{TypeName: "CodeableConcept"},
	}}

	v, err := Property(src, "value", choice, utc)
	if err != nil {
		t.Fatalf("Property(value) unexpected error: %v", err)
	}
	q, ok := v.GolangValue().(result.Quantity)
	if !ok {
		t.Fatalf("Property(value) = %T, want result.Quantity", v.GolangValue())
	}
	if !q.Value.Equal(decimal.NewFromFloat(5.4)) || q.Unit != "mg" {
		t.Errorf("Property(value) = %+v, want {5.4 mg}", q)
	}
}

func TestProperty_List(t *testing.T) {
	data := []byte(`{
		"resourceType": "Patient",
		"name": [{"family": "Smith", "given": ["Jo", "Ann"]}, {"family": "Doe"}]
	}`)
	src := result.Named{Node: Node{data: data}, RuntimeType: &types.Named{TypeName: "Patient"}}
	listType := &types.List{ElementType: &types.Named{TypeName: "HumanName"}}

	v, err := Property(src, "name", listType, utc)
	if err != nil {
		t.Fatalf("Property(name) unexpected error: %v", err)
	}
	l, ok := v.GolangValue().(result.List)
	if !ok {
		t.Fatalf("Property(name) = %T, want result.List", v.GolangValue())
	}
	if len(l.Value) != 2 {
		t.Fatalf("Property(name) list length = %d, want 2", len(l.Value))
	}

	first, ok := l.Value[0].GolangValue().(result.Named)
	if !ok {
		t.Fatalf("Property(name)[0] = %T, want result.Named", l.Value[0].GolangValue())
	}
	givenVal, err := Property(first, "given", &types.List{ElementType: types.String}, utc)
	if err != nil {
		t.Fatalf("Property(given) unexpected error: %v", err)
	}
	given := givenVal.GolangValue().(result.List)
	if len(given.Value) != 2 || given.Value[0].GolangValue().(string) != "Jo" {
		t.Errorf("Property(given) = %+v, want [Jo Ann]", given)
	}
}

func TestProperty_IntervalPeriod(t *testing.T) {
	data := []byte(`{
		"resourceType": "Encounter",
		"period": {"start": "2020-01-01T00:00:00Z", "end": "2020-01-02T00:00:00Z"}
	}`)
	src := result.Named{Node: Node{data: data}, RuntimeType: &types.Named{TypeName: "Encounter"}}
	ivlType := &types.Interval{PointType: types.DateTime}

	v, err := Property(src, "period", ivlType, utc)
	if err != nil {
		t.Fatalf("Property(period) unexpected error: %v", err)
	}
	ivl, ok := v.GolangValue().(result.Interval)
	if !ok {
		t.Fatalf("Property(period) = %T, want result.Interval", v.GolangValue())
	}
	if result.IsNull(ivl.Low) || result.IsNull(ivl.High) {
		t.Errorf("Property(period) = %+v, want non-null bounds", ivl)
	}
}

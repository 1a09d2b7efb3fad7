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
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/clinical-lang/cqlfhir/model"
	"github.com/clinical-lang/cqlfhir/types"
)

func TestNew_PrimitiveRuntimeTypes(t *testing.T) {
	cases := []struct {
		val  any
		want types.IType
	}{
		{int32(1), types.Integer},
		{int64(1), types.Long},
		{"hi", types.String},
		{true, types.Boolean},
		{decimal.NewFromInt(1), types.Decimal},
	}
	for _, c := range cases {
		v, err := New(c.val)
		if err != nil {
			t.Fatalf("New(%v) unexpected error: %v", c.val, err)
		}
		if !v.RuntimeType().Equal(c.want) {
			t.Errorf("New(%v).RuntimeType() = %v, want %v", c.val, v.RuntimeType(), c.want)
		}
	}
}

func TestNew_Nil(t *testing.T) {
	v, err := New(nil)
	if err != nil {
		t.Fatalf("New(nil) unexpected error: %v", err)
	}
	if !IsNull(v) {
		t.Error("New(nil) is not Null")
	}
}

func TestNull(t *testing.T) {
	if !IsNull(Null()) {
		t.Error("Null() is not Null")
	}
	if !Null().RuntimeType().Equal(types.Any) {
		t.Errorf("Null().RuntimeType() = %v, want Any", Null().RuntimeType())
	}
}

func TestNew_CodeRequiresCode(t *testing.T) {
	if _, err := New(Code{System: "sys"}); err == nil {
		t.Error("New(Code{}) with no Code value: want error, got nil")
	}
	if _, err := New(Code{Code: "44054006"}); err != nil {
		t.Errorf("New(Code{Code: ...}) unexpected error: %v", err)
	}
}

func TestNew_ConceptRequiresCodes(t *testing.T) {
	if _, err := New(Concept{Display: "x"}); err == nil {
		t.Error("New(Concept{}) with no Codes: want error, got nil")
	}
}

func TestNew_ValueSetAndCodeSystemRequireID(t *testing.T) {
	if _, err := New(ValueSet{}); err == nil {
		t.Error("New(ValueSet{}) with no ID: want error, got nil")
	}
	if _, err := New(CodeSystem{}); err == nil {
		t.Error("New(CodeSystem{}) with no ID: want error, got nil")
	}
}

func TestNew_DateRejectsInvalidPrecision(t *testing.T) {
	if _, err := New(Date{Precision: model.Hour}); err == nil {
		t.Error("New(Date{Precision: Hour}): want error, got nil")
	}
}

func TestNew_TimeRejectsInvalidPrecision(t *testing.T) {
	if _, err := New(Time{Precision: model.Year}); err == nil {
		t.Error("New(Time{Precision: Year}): want error, got nil")
	}
}

func TestRuntimeType_EmptyListInfersAny(t *testing.T) {
	v, err := New(List{})
	if err != nil {
		t.Fatalf("New(List{}) unexpected error: %v", err)
	}
	lt, ok := v.RuntimeType().(*types.List)
	if !ok {
		t.Fatalf("RuntimeType() = %T, want *types.List", v.RuntimeType())
	}
	if !lt.ElementType.Equal(types.Any) {
		t.Errorf("empty list ElementType = %v, want Any", lt.ElementType)
	}
}

func TestRuntimeType_ListInfersFromFirstElement(t *testing.T) {
	e, _ := New(int32(1))
	v, err := New(List{Value: []Value{e}})
	if err != nil {
		t.Fatalf("New(List{...}) unexpected error: %v", err)
	}
	lt := v.RuntimeType().(*types.List)
	if !lt.ElementType.Equal(types.Integer) {
		t.Errorf("ElementType = %v, want Integer", lt.ElementType)
	}
}

func TestRuntimeType_ListUsesStaticTypeWhenEmpty(t *testing.T) {
	v, err := New(List{StaticType: types.String})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lt := v.RuntimeType().(*types.List)
	if !lt.ElementType.Equal(types.String) {
		t.Errorf("ElementType = %v, want String", lt.ElementType)
	}
}

func TestRuntimeType_IntervalInfersFromLow(t *testing.T) {
	low, _ := New(int32(1))
	v, err := New(Interval{Low: low, High: Null()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	it := v.RuntimeType().(*types.Interval)
	if !it.PointType.Equal(types.Integer) {
		t.Errorf("PointType = %v, want Integer", it.PointType)
	}
}

func TestRuntimeType_IntervalBothEndpointsNullUsesPointType(t *testing.T) {
	v, err := New(Interval{Low: Null(), High: Null(), PointType: types.Decimal})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	it := v.RuntimeType().(*types.Interval)
	if !it.PointType.Equal(types.Decimal) {
		t.Errorf("PointType = %v, want Decimal", it.PointType)
	}
}

func TestWithSources_FirstCallSetsProvenance(t *testing.T) {
	v, _ := New(int32(1))
	src := &model.Literal{Value: "1"}
	arg, _ := New(int32(2))
	v2 := v.WithSources(src, arg)
	if v2.SourceExpression() != src {
		t.Error("SourceExpression not set by first WithSources call")
	}
	if len(v2.SourceValues()) != 1 {
		t.Errorf("SourceValues() len = %d, want 1", len(v2.SourceValues()))
	}
}

func TestWithSources_ChainPreservesPriorAsSoleSource(t *testing.T) {
	v, _ := New(int32(1))
	firstSrc := &model.Literal{Value: "1"}
	v = v.WithSources(firstSrc)
	secondSrc := &model.Literal{Value: "2"}
	v2 := v.WithSources(secondSrc)
	if v2.SourceExpression() != secondSrc {
		t.Error("second WithSources call did not update SourceExpression")
	}
	if len(v2.SourceValues()) != 1 || v2.SourceValues()[0].SourceExpression() != firstSrc {
		t.Error("second WithSources call did not chain the prior value as its sole source")
	}
}

func TestValue_Equal(t *testing.T) {
	a, _ := New(int32(5))
	b, _ := New(int32(5))
	c, _ := New(int32(6))
	if !a.Equal(b) {
		t.Error("Equal(5, 5) = false, want true")
	}
	if a.Equal(c) {
		t.Error("Equal(5, 6) = true, want false")
	}
}

func TestDate_Equal(t *testing.T) {
	d1 := Date{Date: time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC), Precision: model.Day}
	d2 := Date{Date: time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC), Precision: model.Day}
	d3 := Date{Date: time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC), Precision: model.Month}
	if !d1.Equal(d2) {
		t.Error("identical dates not equal")
	}
	if d1.Equal(d3) {
		t.Error("dates with different precision compared equal")
	}
}

func TestMarshalJSON_Null(t *testing.T) {
	b, err := Null().MarshalJSON()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(b) != "null" {
		t.Errorf("MarshalJSON(Null) = %s, want null", b)
	}
}

func TestMarshalJSON_Integer(t *testing.T) {
	v, _ := New(int32(5))
	b, err := v.MarshalJSON()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"@type":"System.Integer","value":5}`
	if string(b) != want {
		t.Errorf("MarshalJSON(5) = %s, want %s", b, want)
	}
}

func TestValueString(t *testing.T) {
	cases := []struct {
		val  any
		want string
	}{
		{"hello", "'hello'"},
		{"it's", "'it\\'s'"},
	}
	for _, c := range cases {
		v, _ := New(c.val)
		if s := v.String(); s != c.want {
			t.Errorf("String(%v) = %q, want %q", c.val, s, c.want)
		}
	}
	if Null().String() != "null" {
		t.Errorf("Null().String() = %q, want \"null\"", Null().String())
	}
}

func TestValueString_List(t *testing.T) {
	e1, _ := New(int32(1))
	e2, _ := New(int32(2))
	v, _ := New(List{Value: []Value{e1, e2}})
	want := "{ 1, 2 }"
	if s := v.String(); s != want {
		t.Errorf("String(list) = %q, want %q", s, want)
	}
}

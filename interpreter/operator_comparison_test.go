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

package interpreter

import (
	"testing"

	"github.com/clinical-lang/cqlfhir/result"
)

func TestEqual(t *testing.T) {
	tests := []struct {
		expr string
		want bool
	}{
		{"1 = 1", true},
		{"1 = 2", false},
		{"'abc' = 'abc'", true},
		{"'abc' = 'ABC'", false},
	}
	for _, test := range tests {
		v := evalDefineOK(t, test.expr)
		b, err := result.ToBool(v)
		if err != nil {
			t.Fatalf("%s: ToBool() unexpected error: %v", test.expr, err)
		}
		if b != test.want {
			t.Errorf("%s = %v, want %v", test.expr, b, test.want)
		}
	}
}

func TestEqual_NullPropagation(t *testing.T) {
	if v := evalDefineOK(t, "1 = null"); !result.IsNull(v) {
		t.Errorf("1 = null = %v, want Null", v)
	}
}

func TestEqual_DateTimeTimezoneMismatchYieldsNull(t *testing.T) {
	if v := evalDefineOK(t, "@2020-01-01T10:00:00 = @2020-01-01T10:00:00Z"); !result.IsNull(v) {
		t.Errorf("timezone-less = timezone-bearing DateTime = %v, want Null", v)
	}
}

func TestEqual_DateTimeSameTimezonePresenceCompares(t *testing.T) {
	v := evalDefineOK(t, "@2020-01-01T10:00:00Z = @2020-01-01T10:00:00Z")
	b, err := result.ToBool(v)
	if err != nil {
		t.Fatalf("ToBool() unexpected error: %v", err)
	}
	if !b {
		t.Errorf("@2020-01-01T10:00:00Z = @2020-01-01T10:00:00Z = %v, want true", b)
	}
}

func TestLess_DateTimeTimezoneMismatchYieldsNull(t *testing.T) {
	if v := evalDefineOK(t, "@2020-01-01T10:00:00 < @2020-01-01T11:00:00Z"); !result.IsNull(v) {
		t.Errorf("timezone-less < timezone-bearing DateTime = %v, want Null", v)
	}
}

func TestEquivalent(t *testing.T) {
	tests := []struct {
		expr string
		want bool
	}{
		{"null ~ null", true},
		{"1 ~ null", false},
		{"'Hello  World' ~ 'hello world'", true},
		{"1 ~ 1", true},
	}
	for _, test := range tests {
		v := evalDefineOK(t, test.expr)
		b, err := result.ToBool(v)
		if err != nil {
			t.Fatalf("%s: ToBool() unexpected error: %v", test.expr, err)
		}
		if b != test.want {
			t.Errorf("%s = %v, want %v", test.expr, b, test.want)
		}
	}
}

func TestComparisonOperators(t *testing.T) {
	tests := []struct {
		expr string
		want bool
	}{
		{"1 < 2", true},
		{"2 < 1", false},
		{"2 > 1", true},
		{"2 >= 2", true},
		{"1 <= 2", true},
		{"'abc' < 'abd'", true},
	}
	for _, test := range tests {
		v := evalDefineOK(t, test.expr)
		b, err := result.ToBool(v)
		if err != nil {
			t.Fatalf("%s: ToBool() unexpected error: %v", test.expr, err)
		}
		if b != test.want {
			t.Errorf("%s = %v, want %v", test.expr, b, test.want)
		}
	}
}

func TestComparison_NullPropagation(t *testing.T) {
	if v := evalDefineOK(t, "1 < null"); !result.IsNull(v) {
		t.Errorf("1 < null = %v, want Null", v)
	}
}

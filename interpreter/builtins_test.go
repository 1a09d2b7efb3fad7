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

func TestBuiltins_Numeric(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"Abs(-5)", "5"},
		{"Ceiling(1.1)", "2"},
		{"Floor(1.9)", "1"},
		{"Truncate(1.9)", "1"},
		{"Round(1.25)", "1"},
		{"Sqrt(9.0)", "3"},
	}
	for _, test := range tests {
		t.Run(test.expr, func(t *testing.T) {
			v := evalDefineOK(t, test.expr)
			d, err := result.ToDecimal(v)
			if err != nil {
				t.Fatalf("ToDecimal() unexpected error: %v", err)
			}
			if got := d.String(); got != test.want {
				t.Errorf("%s = %s, want %s", test.expr, got, test.want)
			}
		})
	}
}

func TestBuiltins_StringFuncs(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"Upper('abc')", "ABC"},
		{"Lower('ABC')", "abc"},
		{"Substring('hello', 1, 3)", "ell"},
		{"Split('a,b,c', ',')[0]", "a"},
	}
	for _, test := range tests {
		t.Run(test.expr, func(t *testing.T) {
			v := evalDefineOK(t, test.expr)
			got, err := result.ToString(v)
			if err != nil {
				t.Fatalf("ToString() unexpected error: %v", err)
			}
			if got != test.want {
				t.Errorf("%s = %q, want %q", test.expr, got, test.want)
			}
		})
	}
}

func TestBuiltins_Length(t *testing.T) {
	v := evalDefineOK(t, "Length('hello')")
	n, err := result.ToInt32(v)
	if err != nil {
		t.Fatalf("ToInt32() unexpected error: %v", err)
	}
	if n != 5 {
		t.Errorf("Length('hello') = %d, want 5", n)
	}
}

func TestBuiltins_IndexOf(t *testing.T) {
	v := evalDefineOK(t, "IndexOf('hello', 'll')")
	n, err := result.ToInt32(v)
	if err != nil {
		t.Fatalf("ToInt32() unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("IndexOf('hello', 'll') = %d, want 2", n)
	}
}

func TestBuiltins_MatchesAndReplaceMatches(t *testing.T) {
	v := evalDefineOK(t, "Matches('hello123', '[0-9]+')")
	b, err := result.ToBool(v)
	if err != nil {
		t.Fatalf("ToBool() unexpected error: %v", err)
	}
	if !b {
		t.Errorf("Matches('hello123', '[0-9]+') = false, want true")
	}

	v = evalDefineOK(t, "ReplaceMatches('hello123', '[0-9]+', 'X')")
	s, err := result.ToString(v)
	if err != nil {
		t.Fatalf("ToString() unexpected error: %v", err)
	}
	if s != "helloX" {
		t.Errorf("ReplaceMatches(...) = %q, want %q", s, "helloX")
	}
}

func TestBuiltins_SkipTakeTail(t *testing.T) {
	v := evalDefineOK(t, "Skip({1, 2, 3}, 1)")
	elems, err := result.ToSlice(v)
	if err != nil {
		t.Fatalf("ToSlice() unexpected error: %v", err)
	}
	if len(elems) != 2 {
		t.Fatalf("Skip({1,2,3}, 1) len = %d, want 2", len(elems))
	}
	first, err := result.ToInt32(elems[0])
	if err != nil {
		t.Fatalf("ToInt32() unexpected error: %v", err)
	}
	if first != 2 {
		t.Errorf("Skip({1,2,3}, 1)[0] = %d, want 2", first)
	}
}

func TestBuiltins_Includes(t *testing.T) {
	v := evalDefineOK(t, "{1, 2, 3} includes {1, 2}")
	b, err := result.ToBool(v)
	if err != nil {
		t.Fatalf("ToBool() unexpected error: %v", err)
	}
	if !b {
		t.Errorf("{1,2,3} includes {1,2} = false, want true")
	}
}

func TestBuiltins_CalculateAge(t *testing.T) {
	// fixedNow is 2024-05-15; CalculateAge defaults to Year precision.
	v := evalDefineOK(t, "CalculateAge(@1990-05-15)")
	n, err := result.ToInt32(v)
	if err != nil {
		t.Fatalf("ToInt32() unexpected error: %v", err)
	}
	if n != 34 {
		t.Errorf("CalculateAge(@1990-05-15) = %d, want 34", n)
	}
}

func TestBuiltins_CalculateAgeAt(t *testing.T) {
	v := evalDefineOK(t, "CalculateAgeAt(@1990-05-15, @2020-05-15)")
	n, err := result.ToInt32(v)
	if err != nil {
		t.Fatalf("ToInt32() unexpected error: %v", err)
	}
	if n != 30 {
		t.Errorf("CalculateAgeAt(@1990-05-15, @2020-05-15) = %d, want 30", n)
	}
}

func TestBuiltins_NullPropagation(t *testing.T) {
	v := evalDefineOK(t, "Abs(null)")
	if !result.IsNull(v) {
		t.Errorf("Abs(null) = %v, want Null", v)
	}
}

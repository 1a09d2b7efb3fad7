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

func TestIsNull(t *testing.T) {
	tests := []struct {
		expr string
		want bool
	}{
		{"null is null", true},
		{"1 is null", false},
		{"1 is not null", true},
		{"null is not null", false},
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

func TestIsTrueIsFalse(t *testing.T) {
	tests := []struct {
		expr string
		want bool
	}{
		{"true is true", true},
		{"false is true", false},
		{"null is true", false},
		{"false is false", true},
		{"true is false", false},
		{"null is false", false},
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

func TestCoalesce(t *testing.T) {
	v := evalDefineOK(t, "Coalesce(null, null, 3, 4)")
	n, err := result.ToInt32(v)
	if err != nil {
		t.Fatalf("ToInt32() unexpected error: %v", err)
	}
	if n != 3 {
		t.Errorf("Coalesce(null, null, 3, 4) = %d, want 3", n)
	}
}

func TestCoalesce_AllNull(t *testing.T) {
	v := evalDefineOK(t, "Coalesce(null, null)")
	if !result.IsNull(v) {
		t.Errorf("Coalesce(null, null) = %v, want Null", v)
	}
}

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

func TestIs(t *testing.T) {
	if mustBool(t, evalDefineOK(t, "1 is Integer")) != true {
		t.Errorf("1 is Integer = false, want true")
	}
	if mustBool(t, evalDefineOK(t, "1 is String")) != false {
		t.Errorf("1 is String = true, want false")
	}
}

func TestAs_NonStrictYieldsNullOnMismatch(t *testing.T) {
	v := evalDefineOK(t, "1 as String")
	if !result.IsNull(v) {
		t.Errorf("1 as String = %v, want Null", v)
	}
}

func TestAs_MatchingTypePassesThrough(t *testing.T) {
	n := mustInt(t, evalDefineOK(t, "1 as Integer"))
	if n != 1 {
		t.Errorf("1 as Integer = %d, want 1", n)
	}
}

func TestToInteger(t *testing.T) {
	n := mustInt(t, evalDefineOK(t, "ToInteger('42')"))
	if n != 42 {
		t.Errorf("ToInteger('42') = %d, want 42", n)
	}
}

func TestToInteger_UnparseableYieldsNull(t *testing.T) {
	if v := evalDefineOK(t, "ToInteger('not a number')"); !result.IsNull(v) {
		t.Errorf("ToInteger('not a number') = %v, want Null", v)
	}
}

func TestToString(t *testing.T) {
	got, err := result.ToString(evalDefineOK(t, "ToString(42)"))
	if err != nil {
		t.Fatalf("ToString() unexpected error: %v", err)
	}
	if got != "42" {
		t.Errorf("ToString(42) = %q, want %q", got, "42")
	}
}

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

func TestList_ExistsFirstLast(t *testing.T) {
	if v := evalDefineOK(t, "exists {1, 2}"); mustBool(t, v) != true {
		t.Errorf("exists {1, 2} = false, want true")
	}
	if v := evalDefineOK(t, "exists {}"); mustBool(t, v) != false {
		t.Errorf("exists {} = true, want false")
	}
	if n := mustInt(t, evalDefineOK(t, "First({1, 2, 3})")); n != 1 {
		t.Errorf("First({1,2,3}) = %d, want 1", n)
	}
	if n := mustInt(t, evalDefineOK(t, "Last({1, 2, 3})")); n != 3 {
		t.Errorf("Last({1,2,3}) = %d, want 3", n)
	}
}

func TestList_Count(t *testing.T) {
	if n := mustInt(t, evalDefineOK(t, "Count({1, 2, 3})")); n != 3 {
		t.Errorf("Count({1,2,3}) = %d, want 3", n)
	}
}

func TestList_Distinct(t *testing.T) {
	v := evalDefineOK(t, "distinct {1, 1, 2, 3, 3}")
	wantIntSlice(t, "distinct", intSlice(t, v), []int32{1, 2, 3})
}

func TestList_UnionExceptIntersect(t *testing.T) {
	wantIntSlice(t, "union", intSlice(t, evalDefineOK(t, "{1, 2}.union({2, 3})")), []int32{1, 2, 3})
	wantIntSlice(t, "except", intSlice(t, evalDefineOK(t, "{1, 2, 3}.except({2})")), []int32{1, 3})
	wantIntSlice(t, "intersect", intSlice(t, evalDefineOK(t, "{1, 2, 3}.intersect({2, 3, 4})")), []int32{2, 3})
}

func TestList_Includes(t *testing.T) {
	if mustBool(t, evalDefineOK(t, "{1, 2, 3} includes 2")) != true {
		t.Errorf("{1,2,3} includes 2 = false, want true")
	}
	if mustBool(t, evalDefineOK(t, "2 in {1, 2, 3}")) != true {
		t.Errorf("2 in {1,2,3} = false, want true")
	}
}

func TestList_Indexer(t *testing.T) {
	if n := mustInt(t, evalDefineOK(t, "{10, 20, 30}[1]")); n != 20 {
		t.Errorf("{10,20,30}[1] = %d, want 20", n)
	}
	if v := evalDefineOK(t, "{10, 20, 30}[5]"); !result.IsNull(v) {
		t.Errorf("out of bounds indexer = %v, want Null", v)
	}
}

func mustBool(t *testing.T, v result.Value) bool {
	t.Helper()
	b, err := result.ToBool(v)
	if err != nil {
		t.Fatalf("ToBool() unexpected error: %v", err)
	}
	return b
}

func mustInt(t *testing.T, v result.Value) int32 {
	t.Helper()
	n, err := result.ToInt32(v)
	if err != nil {
		t.Fatalf("ToInt32() unexpected error: %v", err)
	}
	return n
}

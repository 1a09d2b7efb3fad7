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

func intSlice(t *testing.T, v result.Value) []int32 {
	t.Helper()
	elems, err := result.ToSlice(v)
	if err != nil {
		t.Fatalf("ToSlice() unexpected error: %v", err)
	}
	out := make([]int32, len(elems))
	for idx, e := range elems {
		n, err := result.ToInt32(e)
		if err != nil {
			t.Fatalf("ToInt32() unexpected error: %v", err)
		}
		out[idx] = n
	}
	return out
}

func wantIntSlice(t *testing.T, name string, got, want []int32) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s = %v, want %v", name, got, want)
	}
	for idx := range want {
		if got[idx] != want[idx] {
			t.Errorf("%s[%d] = %d, want %d", name, idx, got[idx], want[idx])
		}
	}
}

func TestQuery_WhereAndReturn(t *testing.T) {
	v := evalDefineOK(t, "from {1, 2, 3, 4, 5} X where X > 2 return X * 10")
	wantIntSlice(t, "query", intSlice(t, v), []int32{30, 40, 50})
}

func TestQuery_SortByValueDescending(t *testing.T) {
	v := evalDefineOK(t, "from {3, 1, 2} X sort by desc")
	wantIntSlice(t, "sorted query", intSlice(t, v), []int32{3, 2, 1})
}

func TestQuery_Aggregate(t *testing.T) {
	v := evalDefineOK(t, "from {1, 2, 3, 4} X aggregate Total Total + X starting 0")
	n, err := result.ToInt32(v)
	if err != nil {
		t.Fatalf("ToInt32() unexpected error: %v", err)
	}
	if n != 10 {
		t.Errorf("aggregate result = %d, want 10", n)
	}
}

func TestQuery_MultiSourceCartesianProduct(t *testing.T) {
	v := evalDefineOK(t, "from {1, 2} A, {10, 20} B return A + B")
	wantIntSlice(t, "cartesian product", intSlice(t, v), []int32{11, 21, 12, 22})
}

func TestQuery_ReturnDistinct(t *testing.T) {
	v := evalDefineOK(t, "from {1, 1, 2, 2, 3} X return distinct X")
	wantIntSlice(t, "distinct return", intSlice(t, v), []int32{1, 2, 3})
}

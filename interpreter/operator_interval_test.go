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

func TestInterval_StartEnd(t *testing.T) {
	if n := mustInt(t, evalDefineOK(t, "start of Interval[1, 10]")); n != 1 {
		t.Errorf("start of Interval[1, 10] = %d, want 1", n)
	}
	if n := mustInt(t, evalDefineOK(t, "end of Interval[1, 10]")); n != 10 {
		t.Errorf("end of Interval[1, 10] = %d, want 10", n)
	}
}

func TestInterval_Includes(t *testing.T) {
	if mustBool(t, evalDefineOK(t, "Interval[1, 10] includes 5")) != true {
		t.Errorf("Interval[1, 10] includes 5 = false, want true")
	}
	if mustBool(t, evalDefineOK(t, "5 in Interval[1, 10]")) != true {
		t.Errorf("5 in Interval[1, 10] = false, want true")
	}
	if mustBool(t, evalDefineOK(t, "15 in Interval[1, 10]")) != false {
		t.Errorf("15 in Interval[1, 10] = true, want false")
	}
}

func TestInterval_BeforeAfter(t *testing.T) {
	if mustBool(t, evalDefineOK(t, "Interval[1, 5] before Interval[6, 10]")) != true {
		t.Errorf("Interval[1, 5] before Interval[6, 10] = false, want true")
	}
	if mustBool(t, evalDefineOK(t, "Interval[6, 10] after Interval[1, 5]")) != true {
		t.Errorf("Interval[6, 10] after Interval[1, 5] = false, want true")
	}
}

func TestInterval_Overlaps(t *testing.T) {
	if mustBool(t, evalDefineOK(t, "Interval[1, 5] overlaps Interval[3, 8]")) != true {
		t.Errorf("Interval[1, 5] overlaps Interval[3, 8] = false, want true")
	}
	if mustBool(t, evalDefineOK(t, "Interval[1, 2] overlaps Interval[3, 8]")) != false {
		t.Errorf("Interval[1, 2] overlaps Interval[3, 8] = true, want false")
	}
}

func TestInterval_NullPropagation(t *testing.T) {
	if v := evalDefineOK(t, "start of (null as Interval<Integer>)"); !result.IsNull(v) {
		t.Errorf("start of null interval = %v, want Null", v)
	}
}

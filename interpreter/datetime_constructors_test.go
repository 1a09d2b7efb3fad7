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

	"github.com/clinical-lang/cqlfhir/model"
	"github.com/clinical-lang/cqlfhir/result"
)

func TestDateConstructor_PartialPrecision(t *testing.T) {
	v := evalDefineOK(t, "Date(2024, 5)")
	d, err := result.ToDate(v)
	if err != nil {
		t.Fatalf("ToDate() unexpected error: %v", err)
	}
	if d.Precision != model.Month {
		t.Errorf("Date(2024, 5).Precision = %s, want %s", d.Precision, model.Month)
	}
	if d.Date.Year() != 2024 || d.Date.Month() != 5 {
		t.Errorf("Date(2024, 5) = %v, want year 2024 month 5", d.Date)
	}
}

func TestDateTimeConstructor_FullPrecision(t *testing.T) {
	v := evalDefineOK(t, "DateTime(2024, 5, 15, 10, 30, 0, 0)")
	dt, err := result.ToDateTime(v)
	if err != nil {
		t.Fatalf("ToDateTime() unexpected error: %v", err)
	}
	if dt.Precision != model.Millisecond {
		t.Errorf("DateTime(...).Precision = %s, want %s", dt.Precision, model.Millisecond)
	}
	if dt.Date.Hour() != 10 || dt.Date.Minute() != 30 {
		t.Errorf("DateTime(...) = %v, want hour 10 minute 30", dt.Date)
	}
}

func TestTimeConstructor(t *testing.T) {
	v := evalDefineOK(t, "Time(10, 30)")
	tm, err := result.ToTime(v)
	if err != nil {
		t.Fatalf("ToTime() unexpected error: %v", err)
	}
	if tm.Precision != model.Minute {
		t.Errorf("Time(10, 30).Precision = %s, want %s", tm.Precision, model.Minute)
	}
	if tm.Date.Hour() != 10 || tm.Date.Minute() != 30 {
		t.Errorf("Time(10, 30) = %v, want hour 10 minute 30", tm.Date)
	}
}

func TestNowTodayTimeOfDay_FixedToEvaluationTimestamp(t *testing.T) {
	now := evalDefineOK(t, "Now()")
	dt, err := result.ToDateTime(now)
	if err != nil {
		t.Fatalf("ToDateTime(Now()) unexpected error: %v", err)
	}
	if !dt.Date.Equal(fixedNow) {
		t.Errorf("Now() = %v, want %v", dt.Date, fixedNow)
	}

	today := evalDefineOK(t, "Today()")
	d, err := result.ToDate(today)
	if err != nil {
		t.Fatalf("ToDate(Today()) unexpected error: %v", err)
	}
	if d.Date.Year() != fixedNow.Year() || d.Date.Month() != fixedNow.Month() || d.Date.Day() != fixedNow.Day() {
		t.Errorf("Today() = %v, want the date portion of %v", d.Date, fixedNow)
	}
}

func TestDateConstructor_NullYear(t *testing.T) {
	v := evalDefineOK(t, "Date(null)")
	if !result.IsNull(v) {
		t.Errorf("Date(null) = %v, want Null", v)
	}
}

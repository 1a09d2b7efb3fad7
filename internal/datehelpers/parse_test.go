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

package datehelpers

import (
	"strings"
	"testing"
	"time"

	"github.com/clinical-lang/cqlfhir/model"
)

func TestParseDate(t *testing.T) {
	evaluationLoc := time.FixedZone("Fixed", 4*60*60)
	tests := []struct {
		name          string
		str           string
		wantTime      time.Time
		wantPrecision model.DateTimePrecision
	}{
		{
			name:          "Year",
			str:           "@2018",
			wantTime:      time.Date(2018, 1, 1, 0, 0, 0, 0, evaluationLoc),
			wantPrecision: model.Year,
		},
		{
			name:          "Month",
			str:           "@2018-02",
			wantTime:      time.Date(2018, 2, 1, 0, 0, 0, 0, evaluationLoc),
			wantPrecision: model.Month,
		},
		{
			name:          "Day",
			str:           "@2018-02-02",
			wantTime:      time.Date(2018, 2, 2, 0, 0, 0, 0, evaluationLoc),
			wantPrecision: model.Day,
		},
		{
			name:          "Max date",
			str:           "@9999-12-31",
			wantTime:      time.Date(9999, 12, 31, 0, 0, 0, 0, evaluationLoc),
			wantPrecision: model.Day,
		},
		{
			name:          "Min date",
			str:           "@0001-01-01",
			wantTime:      time.Date(1, 1, 1, 0, 0, 0, 0, evaluationLoc),
			wantPrecision: model.Day,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gotTime, gotPrecision, err := ParseDate(tc.str, evaluationLoc)
			if err != nil {
				t.Errorf("ParseDate returned unexpected error: %v", err)
			}
			if !gotTime.Equal(tc.wantTime) {
				t.Errorf("ParseDate returned unexpected time: got %v, want %v", gotTime, tc.wantTime)
			}
			if gotPrecision != tc.wantPrecision {
				t.Errorf("ParseDate returned unexpected precision: got %v, want %v", gotPrecision, tc.wantPrecision)
			}
		})
	}
}

func TestParseDate_Error(t *testing.T) {
	evaluationLoc := time.FixedZone("Fixed", 4*60*60)
	tests := []struct {
		name      string
		str       string
		wantError string
	}{
		{
			name:      "Missing @",
			str:       "2018-02-02",
			wantError: "must start with @",
		},
		{
			name:      "Unparseable",
			str:       "@not-a-date",
			wantError: "got",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := ParseDate(tc.str, evaluationLoc)
			if err == nil {
				t.Fatal("ParseDate did not return an error")
			}
			if !strings.Contains(err.Error(), tc.wantError) {
				t.Errorf("ParseDate returned error %v, want substring %v", err, tc.wantError)
			}
		})
	}
}

func TestParseDateTime(t *testing.T) {
	evaluationLoc := time.FixedZone("Fixed", 4*60*60)
	tests := []struct {
		name            string
		str             string
		wantTime        time.Time
		wantPrecision   model.DateTimePrecision
		wantHasTimezone bool
	}{
		{
			name:            "Zulu timezone",
			str:             "@2018-02-02T08:00:00Z",
			wantTime:        time.Date(2018, 2, 2, 8, 0, 0, 0, time.UTC),
			wantPrecision:   model.Second,
			wantHasTimezone: true,
		},
		{
			name:            "explicit offset",
			str:             "@2018-02-02T08:00:00+04:00",
			wantTime:        time.Date(2018, 2, 2, 8, 0, 0, 0, evaluationLoc),
			wantPrecision:   model.Second,
			wantHasTimezone: true,
		},
		{
			name:            "no timezone uses evaluation location",
			str:             "@2018-02-02T08:00:00",
			wantTime:        time.Date(2018, 2, 2, 8, 0, 0, 0, evaluationLoc),
			wantPrecision:   model.Second,
			wantHasTimezone: false,
		},
		{
			name:            "millisecond precision",
			str:             "@2018-02-02T08:00:00.5Z",
			wantTime:        time.Date(2018, 2, 2, 8, 0, 0, 5e8, time.UTC),
			wantPrecision:   model.Millisecond,
			wantHasTimezone: true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gotTime, gotPrecision, gotHasTimezone, err := ParseDateTime(tc.str, evaluationLoc)
			if err != nil {
				t.Fatalf("ParseDateTime returned unexpected error: %v", err)
			}
			if !gotTime.Equal(tc.wantTime) {
				t.Errorf("ParseDateTime returned unexpected time: got %v, want %v", gotTime, tc.wantTime)
			}
			if gotPrecision != tc.wantPrecision {
				t.Errorf("ParseDateTime returned unexpected precision: got %v, want %v", gotPrecision, tc.wantPrecision)
			}
			if gotHasTimezone != tc.wantHasTimezone {
				t.Errorf("ParseDateTime returned unexpected hasTimezone: got %v, want %v", gotHasTimezone, tc.wantHasTimezone)
			}
		})
	}
}

func TestParseDateTime_TooManyMillisecondDigits(t *testing.T) {
	evaluationLoc := time.FixedZone("Fixed", 4*60*60)
	_, _, _, err := ParseDateTime("@2018-02-02T08:00:00.12345Z", evaluationLoc)
	if err == nil {
		t.Fatal("ParseDateTime did not return an error for a too-precise millisecond component")
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		name          string
		str           string
		wantTime      time.Time
		wantPrecision model.DateTimePrecision
	}{
		{
			name:          "Hour",
			str:           "@T08",
			wantTime:      time.Date(0, 1, 1, 8, 0, 0, 0, time.UTC),
			wantPrecision: model.Hour,
		},
		{
			name:          "Second",
			str:           "@T08:30:05",
			wantTime:      time.Date(0, 1, 1, 8, 30, 5, 0, time.UTC),
			wantPrecision: model.Second,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gotTime, gotPrecision, err := ParseTime(tc.str)
			if err != nil {
				t.Fatalf("ParseTime returned unexpected error: %v", err)
			}
			if !gotTime.Equal(tc.wantTime) {
				t.Errorf("ParseTime returned unexpected time: got %v, want %v", gotTime, tc.wantTime)
			}
			if gotPrecision != tc.wantPrecision {
				t.Errorf("ParseTime returned unexpected precision: got %v, want %v", gotPrecision, tc.wantPrecision)
			}
		})
	}
}

func TestOffsetToSeconds(t *testing.T) {
	tests := []struct {
		name string
		str  string
		want int
	}{
		{name: "positive", str: "+04:30", want: 4*3600 + 30*60},
		{name: "negative", str: "-05:00", want: -5 * 3600},
		{name: "empty", str: "", want: 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := offsetToSeconds(tc.str)
			if err != nil {
				t.Fatalf("offsetToSeconds returned unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("offsetToSeconds(%v) = %v, want %v", tc.str, got, tc.want)
			}
		})
	}
}

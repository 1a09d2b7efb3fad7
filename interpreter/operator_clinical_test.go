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
	"context"
	"testing"

	"github.com/clinical-lang/cqlfhir/model"
	"github.com/clinical-lang/cqlfhir/parser"
	"github.com/clinical-lang/cqlfhir/result"
	"github.com/clinical-lang/cqlfhir/terminology"
)

// evalLibrarySrcCfg is evalLibrarySrc plus a caller-supplied Config, for tests that need a
// terminology provider or other non-default setting alongside a multi-statement library.
func evalLibrarySrcCfg(t *testing.T, src, name string, cfg Config) result.Value {
	t.Helper()
	lib, diags := parser.ParseCQL(src)
	if diags.HasErrors() {
		t.Fatalf("ParseCQL(%q) unexpected error: %v", src, diags)
	}
	if cfg.EvaluationTimestamp.IsZero() {
		cfg.EvaluationTimestamp = fixedNow
	}
	if cfg.DataModels == nil {
		cfg.DataModels = mustModelInfos(t)
	}
	libs, _, err := Eval(context.Background(), []*model.Library{lib}, cfg)
	if err != nil {
		t.Fatalf("Eval(%q) unexpected error: %v", src, err)
	}
	for _, defs := range libs {
		if v, ok := defs[name]; ok {
			return v
		}
	}
	t.Fatalf("Eval(%q) produced no %s definition", src, name)
	return result.Value{}
}

func TestCalculateAge_DefaultYears(t *testing.T) {
	// fixedNow is 2024-05-15; a birth date of 2000-05-14 is one day past the 24th birthday.
	n := mustInt(t, evalDefineOK(t, "CalculateAge(@2000-05-14)"))
	if n != 24 {
		t.Errorf("CalculateAge(@2000-05-14) = %d, want 24", n)
	}
}

func TestCalculateAge_NullBirthDateYieldsNull(t *testing.T) {
	v := evalDefineOK(t, "CalculateAge(null)")
	if !result.IsNull(v) {
		t.Errorf("CalculateAge(null) = %v, want Null", v)
	}
}

func TestCalculateAgeAt_ExplicitAsOf(t *testing.T) {
	n := mustInt(t, evalDefineOK(t, "CalculateAgeAt(@2000-05-14, @2010-05-20)"))
	if n != 10 {
		t.Errorf("CalculateAgeAt(@2000-05-14, @2010-05-20) = %d, want 10", n)
	}
}

func TestInValueSet(t *testing.T) {
	term := terminology.NewLocal()
	term.AddValueSet("http://example.org/vs/diabetes", "", []terminology.Code{
		{Code: "44054006", System: "http://snomed.info/sct"},
	})
	src := `
codesystem "SNOMED": 'http://snomed.info/sct'
valueset "Diabetes": 'http://example.org/vs/diabetes'
define Test: Code '44054006' from "SNOMED" in "Diabetes"
`
	v := evalLibrarySrcCfg(t, src, "Test", Config{Terminology: term})
	if !mustBool(t, v) {
		t.Error("Code '44054006' in Diabetes valueset = false, want true")
	}
}

func TestInValueSet_NoMatch(t *testing.T) {
	term := terminology.NewLocal()
	term.AddValueSet("http://example.org/vs/diabetes", "", []terminology.Code{
		{Code: "44054006", System: "http://snomed.info/sct"},
	})
	src := `
codesystem "SNOMED": 'http://snomed.info/sct'
valueset "Diabetes": 'http://example.org/vs/diabetes'
define Test: Code '99999999' from "SNOMED" in "Diabetes"
`
	v := evalLibrarySrcCfg(t, src, "Test", Config{Terminology: term})
	if mustBool(t, v) {
		t.Error("Code '99999999' in Diabetes valueset = true, want false")
	}
}

func TestInValueSet_NullSourceYieldsNull(t *testing.T) {
	term := terminology.NewLocal()
	src := `
valueset "Diabetes": 'http://example.org/vs/diabetes'
define Test: (null as Code) in "Diabetes"
`
	v := evalLibrarySrcCfg(t, src, "Test", Config{Terminology: term})
	if !result.IsNull(v) {
		t.Errorf("null in Diabetes valueset = %v, want Null", v)
	}
}

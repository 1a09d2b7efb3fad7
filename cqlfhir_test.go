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

package cqlfhir

import (
	"context"
	"testing"
	"time"

	"github.com/clinical-lang/cqlfhir/internal/modelinfo"
	"github.com/clinical-lang/cqlfhir/result"
)

func mustModelInfos(t *testing.T) *modelinfo.ModelInfos {
	t.Helper()
	mi, err := modelinfo.New(nil)
	if err != nil {
		t.Fatalf("modelinfo.New() unexpected error: %v", err)
	}
	return mi
}

func TestParseFHIRPath(t *testing.T) {
	ast, diags := ParseFHIRPath("1 + 2")
	if diags.HasErrors() {
		t.Fatalf("ParseFHIRPath() unexpected error: %v", diags)
	}
	if ast == nil {
		t.Fatalf("ParseFHIRPath() returned a nil AST")
	}
}

func TestParseCQL_Invalid(t *testing.T) {
	_, diags := ParseCQL("this is +++ not valid")
	if !diags.HasErrors() {
		t.Errorf("ParseCQL() of invalid source reported no errors")
	}
}

func TestEvaluateFHIRPath_Arithmetic(t *testing.T) {
	v, diags, _, err := EvaluateFHIRPath(context.Background(), "1 + 2 * 3", result.Value{}, Env{})
	if diags.HasErrors() {
		t.Fatalf("EvaluateFHIRPath() parse error: %v", diags)
	}
	if err != nil {
		t.Fatalf("EvaluateFHIRPath() unexpected error: %v", err)
	}
	n, err := result.ToInt32(v)
	if err != nil {
		t.Fatalf("ToInt32() unexpected error: %v", err)
	}
	if n != 7 {
		t.Errorf("EvaluateFHIRPath(\"1 + 2 * 3\") = %d, want 7", n)
	}
}

func TestEvaluateFHIRPath_AgainstFocus(t *testing.T) {
	env := Env{DataModels: mustModelInfos(t)}
	focus, err := Focus([]byte(`{"resourceType": "Patient", "gender": "female"}`), env)
	if err != nil {
		t.Fatalf("Focus() unexpected error: %v", err)
	}
	v, diags, _, err := EvaluateFHIRPath(context.Background(), "Patient.gender", focus, env)
	if diags.HasErrors() {
		t.Fatalf("EvaluateFHIRPath() parse error: %v", diags)
	}
	if err != nil {
		t.Fatalf("EvaluateFHIRPath() unexpected error: %v", err)
	}
	got, err := result.ToString(v)
	if err != nil {
		t.Fatalf("ToString() unexpected error: %v", err)
	}
	if got != "female" {
		t.Errorf("EvaluateFHIRPath(\"Patient.gender\") = %q, want %q", got, "female")
	}
}

func TestEvaluateFHIRPath_EmptyFocusYieldsEmpty(t *testing.T) {
	env := Env{DataModels: mustModelInfos(t)}
	v, diags, _, err := EvaluateFHIRPath(context.Background(), "Patient.name.family", result.Value{}, env)
	if diags.HasErrors() {
		t.Fatalf("EvaluateFHIRPath() parse error: %v", diags)
	}
	if err != nil {
		t.Fatalf("EvaluateFHIRPath() unexpected error: %v", err)
	}
	if !result.IsNull(v) {
		t.Errorf("EvaluateFHIRPath() with no focus = %v, want Null", v)
	}
}

func TestSession_EvaluateDefinition(t *testing.T) {
	s := NewSession()
	if _, err := s.AddLibrary("library Sample version '1'\ndefine Answer: 40 + 2"); err != nil {
		t.Fatalf("AddLibrary() unexpected error: %v", err)
	}
	v, _, err := s.EvaluateDefinition(context.Background(), "Sample", "1", "Answer", Env{
		EvaluationTimestamp: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		DataModels:          mustModelInfos(t),
	})
	if err != nil {
		t.Fatalf("EvaluateDefinition() unexpected error: %v", err)
	}
	n, err := result.ToInt32(v)
	if err != nil {
		t.Fatalf("ToInt32() unexpected error: %v", err)
	}
	if n != 42 {
		t.Errorf("EvaluateDefinition(Answer) = %d, want 42", n)
	}
}

func TestSession_EvaluateAll_CrossLibraryInclude(t *testing.T) {
	s := NewSession()
	if _, err := s.AddLibrary("library Helpers version '1'\ndefine HalfOf21: 21"); err != nil {
		t.Fatalf("AddLibrary(Helpers) unexpected error: %v", err)
	}
	if _, err := s.AddLibrary(`library Main version '1'
include Helpers version '1'
define Doubled: Helpers.HalfOf21 * 2`); err != nil {
		t.Fatalf("AddLibrary(Main) unexpected error: %v", err)
	}
	v, _, err := s.EvaluateDefinition(context.Background(), "Main", "1", "Doubled", Env{
		EvaluationTimestamp: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		DataModels:          mustModelInfos(t),
	})
	if err != nil {
		t.Fatalf("EvaluateDefinition() unexpected error: %v", err)
	}
	n, err := result.ToInt32(v)
	if err != nil {
		t.Fatalf("ToInt32() unexpected error: %v", err)
	}
	if n != 42 {
		t.Errorf("EvaluateDefinition(Doubled) = %d, want 42", n)
	}
}

func TestSession_AddLibrary_ParseErrorWrapped(t *testing.T) {
	s := NewSession()
	if _, err := s.AddLibrary("this is +++ not valid CQL"); err == nil {
		t.Errorf("AddLibrary() of invalid source did not error")
	}
}

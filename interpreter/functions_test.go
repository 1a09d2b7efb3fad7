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
)

// evalLibrarySrc parses a full library source (as opposed to evalDefine's single-statement
// shorthand) and returns the named definition's value, for tests that need a FunctionDef
// alongside a define statement.
func evalLibrarySrc(t *testing.T, src, name string) result.Value {
	t.Helper()
	lib, diags := parser.ParseCQL(src)
	if diags.HasErrors() {
		t.Fatalf("ParseCQL(%q) unexpected error: %v", src, diags)
	}
	libs, _, err := Eval(context.Background(), []*model.Library{lib}, Config{
		EvaluationTimestamp: fixedNow,
		DataModels:          mustModelInfos(t),
	})
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

func TestFunctionRef_SingleOperand(t *testing.T) {
	src := `
define function "DoubleIt"(x Integer): x * 2
define Test: DoubleIt(21)
`
	n := mustInt(t, evalLibrarySrc(t, src, "Test"))
	if n != 42 {
		t.Errorf("DoubleIt(21) = %d, want 42", n)
	}
}

func TestFunctionRef_MultipleOperandsAndOverloadResolution(t *testing.T) {
	src := `
define function "Add"(x Integer, y Integer): x + y
define function "Add"(x String, y String): x + y
define Test: Add(3, 4)
define TestStr: Add('a', 'b')
`
	n := mustInt(t, evalLibrarySrc(t, src, "Test"))
	if n != 7 {
		t.Errorf("Add(3, 4) = %d, want 7", n)
	}
	s, err := result.ToString(evalLibrarySrc(t, src, "TestStr"))
	if err != nil {
		t.Fatalf("ToString unexpected error: %v", err)
	}
	if s != "ab" {
		t.Errorf("Add('a', 'b') = %q, want \"ab\"", s)
	}
}

func TestFunctionRef_BodyReferencesOuterDefine(t *testing.T) {
	src := `
define Base: 10
define function "AddBase"(x Integer): x + Base
define Test: AddBase(5)
`
	n := mustInt(t, evalLibrarySrc(t, src, "Test"))
	if n != 15 {
		t.Errorf("AddBase(5) = %d, want 15", n)
	}
}

func TestLet(t *testing.T) {
	n := mustInt(t, evalDefineOK(t, "let x: 2 + 3 return x * 10"))
	if n != 50 {
		t.Errorf("let x: 2 + 3 return x * 10 = %d, want 50", n)
	}
}

func TestLet_NullValuePropagates(t *testing.T) {
	v := evalDefineOK(t, "let x: null return x + 1")
	if !result.IsNull(v) {
		t.Errorf("let x: null return x + 1 = %v, want Null", v)
	}
}

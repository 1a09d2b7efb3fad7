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

package model

import (
	"testing"

	"github.com/clinical-lang/cqlfhir/types"
)

func TestResultType(t *testing.T) {
	e := ResultType(types.Integer)
	if !e.GetResultType().Equal(types.Integer) {
		t.Errorf("ResultType(Integer).GetResultType() = %v, want Integer", e.GetResultType())
	}
}

func TestElement_GetResultType_NilReceiverIsUnset(t *testing.T) {
	var e *Element
	if e.GetResultType() != types.Unset {
		t.Errorf("(*Element)(nil).GetResultType() = %v, want Unset", e.GetResultType())
	}
}

func TestElement_GetResultType_NilResultTypeIsUnset(t *testing.T) {
	e := &Element{}
	if e.GetResultType() != types.Unset {
		t.Errorf("Element{}.GetResultType() = %v, want Unset", e.GetResultType())
	}
}

func TestExpression_GetResultType_NilReceiverIsUnset(t *testing.T) {
	var e *Expression
	if e.GetResultType() != types.Unset {
		t.Errorf("(*Expression)(nil).GetResultType() = %v, want Unset", e.GetResultType())
	}
}

func TestExpression_GetResultType_DelegatesToElement(t *testing.T) {
	e := &Expression{Element: &Element{ResultType: types.String}}
	if !e.GetResultType().Equal(types.String) {
		t.Errorf("Expression.GetResultType() = %v, want String", e.GetResultType())
	}
}

func TestElement_Pos(t *testing.T) {
	e := &Element{Span: Span{Line: 3, Col: 7}}
	if got := e.Pos(); got.Line != 3 || got.Col != 7 {
		t.Errorf("Pos() = %+v, want {Line:3 Col:7}", got)
	}
}

func TestLiteral_EmbedsExpression(t *testing.T) {
	lit := &Literal{Expression: ResultType(types.Boolean), Value: "true"}
	if !lit.GetResultType().Equal(types.Boolean) {
		t.Errorf("Literal.GetResultType() = %v, want Boolean", lit.GetResultType())
	}
	if lit.Value != "true" {
		t.Errorf("Literal.Value = %q, want \"true\"", lit.Value)
	}
}

func TestLibrary_String(t *testing.T) {
	lib := &Library{Identifier: &LibraryIdentifier{Qualified: "Test", Version: "1.0.0"}}
	if got := lib.String(); got == "" {
		t.Error("Library.String() returned empty output")
	}
}

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
	"fmt"

	"github.com/clinical-lang/cqlfhir/model"
	"github.com/clinical-lang/cqlfhir/result"
)

// evalLogic implements CQL/FHIRPath three-valued And/Or/XOr/Implies. And and Or short-circuit on
// the side that alone determines the result (false for And, true for Or) even when the other
// operand would be Null.
func (i *interpreter) evalLogic(ctx context.Context, n model.IBinaryExpression) (result.Value, error) {
	l, err := i.evalExpression(ctx, n.Left())
	if err != nil {
		return result.Value{}, err
	}
	lb, lNull, err := toTriBool(l)
	if err != nil {
		return result.Value{}, err
	}

	switch n.GetName() {
	case "And":
		if !lNull && !lb {
			return result.New(false)
		}
	case "Or":
		if !lNull && lb {
			return result.New(true)
		}
	}

	r, err := i.evalExpression(ctx, n.Right())
	if err != nil {
		return result.Value{}, err
	}
	rb, rNull, err := toTriBool(r)
	if err != nil {
		return result.Value{}, err
	}

	switch n.GetName() {
	case "And":
		return triAnd(lb, lNull, rb, rNull), nil
	case "Or":
		return triOr(lb, lNull, rb, rNull), nil
	case "XOr":
		if lNull || rNull {
			return result.Null(), nil
		}
		return result.New(lb != rb)
	case "Implies":
		// A implies B == (not A) or B.
		notLb, notLNull := !lb, lNull
		return triOr(notLb, notLNull, rb, rNull), nil
	default:
		return result.Value{}, fmt.Errorf("internal error - unsupported logic operator %s", n.GetName())
	}
}

func toTriBool(v result.Value) (b bool, isNull bool, err error) {
	if result.IsNull(v) {
		return false, true, nil
	}
	b, err = result.ToBool(v)
	return b, false, err
}

// truth table (T/F/null):
//
//	And   T     F     null
//	T     T     F     null
//	F     F     F     F
//	null  null  F     null
func triAnd(lb, lNull, rb, rNull bool) result.Value {
	if (!lNull && !lb) || (!rNull && !rb) {
		v, _ := result.New(false)
		return v
	}
	if lNull || rNull {
		return result.Null()
	}
	v, _ := result.New(true)
	return v
}

// truth table (T/F/null):
//
//	Or    T     F     null
//	T     T     T     T
//	F     T     F     null
//	null  T     null  null
func triOr(lb, lNull, rb, rNull bool) result.Value {
	if (!lNull && lb) || (!rNull && rb) {
		v, _ := result.New(true)
		return v
	}
	if lNull || rNull {
		return result.Null()
	}
	v, _ := result.New(false)
	return v
}

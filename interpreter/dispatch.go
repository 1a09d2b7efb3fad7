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

// This file routes every unary/binary/n-ary node kind to its evaluator by GetName(), the runtime
// counterpart of the parser's static overload resolution: since model.go tags each node with its
// operator name rather than giving every operator its own Go type hierarchy, dispatch here is one
// switch over that name instead of a type switch per concrete struct.
package interpreter

import (
	"context"
	"fmt"

	"github.com/clinical-lang/cqlfhir/model"
	"github.com/clinical-lang/cqlfhir/result"
)

func (i *interpreter) evalUnary(ctx context.Context, n model.IUnaryExpression) (result.Value, error) {
	operand, err := i.evalExpression(ctx, n.GetOperand())
	if err != nil {
		return result.Value{}, err
	}
	switch n.GetName() {
	case "Not":
		return i.evalNot(operand)
	case "IsNull":
		return result.New(result.IsNull(operand))
	case "IsTrue":
		return i.evalIsTrue(operand)
	case "IsFalse":
		return i.evalIsFalse(operand)
	case "Negate":
		return i.evalNegate(operand)
	case "Exists":
		return i.evalExists(operand)
	case "First":
		return i.evalFirst(operand)
	case "Last":
		return i.evalLast(operand)
	case "SingletonFrom":
		return i.evalSingletonFrom(operand)
	case "Start":
		return i.evalStart(operand)
	case "End":
		return i.evalEnd(operand)
	case "Predecessor":
		return i.evalPredecessor(operand)
	case "Successor":
		return i.evalSuccessor(operand)
	case "AllTrue":
		return i.evalAllTrue(operand)
	case "AnyTrue":
		return i.evalAnyTrue(operand)
	case "Count":
		return i.evalCount(operand)
	case "Distinct":
		return i.evalDistinct(operand)
	case "Flatten":
		return i.evalFlatten(operand)
	case "Children":
		return i.evalChildren(operand)
	case "Descendants":
		return i.evalDescendants(operand)
	case "ToBoolean", "ToDateTime", "ToDate", "ToDecimal", "ToLong", "ToInteger", "ToQuantity",
		"ToConcept", "ToString", "ToTime":
		return i.evalToType(n.GetName(), operand)
	default:
		return result.Value{}, fmt.Errorf("internal error - unary operator %s not implemented", n.GetName())
	}
}

func (i *interpreter) evalBinary(ctx context.Context, n model.IBinaryExpression) (result.Value, error) {
	switch n.GetName() {
	case "And", "Or", "XOr", "Implies":
		return i.evalLogic(ctx, n)
	}
	l, err := i.evalExpression(ctx, n.Left())
	if err != nil {
		return result.Value{}, err
	}
	r, err := i.evalExpression(ctx, n.Right())
	if err != nil {
		return result.Value{}, err
	}
	switch n.GetName() {
	case "Equal":
		return i.evalEqual(l, r)
	case "Equivalent":
		return i.evalEquivalent(l, r)
	case "Less":
		return i.evalCompareOp(l, r, func(c cmpResult) bool { return c == cmpLess })
	case "Greater":
		return i.evalCompareOp(l, r, func(c cmpResult) bool { return c == cmpGreater })
	case "LessOrEqual":
		return i.evalCompareOp(l, r, func(c cmpResult) bool { return c != cmpGreater })
	case "GreaterOrEqual":
		return i.evalCompareOp(l, r, func(c cmpResult) bool { return c != cmpLess })
	case "Add":
		return i.evalArith(l, r, addOp)
	case "Subtract":
		return i.evalArith(l, r, subOp)
	case "Multiply":
		return i.evalArith(l, r, mulOp)
	case "Divide":
		return i.evalDivide(l, r)
	case "Modulo":
		return i.evalModulo(l, r)
	case "TruncatedDivide":
		return i.evalTruncatedDivide(l, r)
	case "Power":
		return i.evalPower(l, r)
	case "Except":
		return i.evalExcept(l, r)
	case "Intersect":
		return i.evalIntersect(l, r)
	case "Union":
		return i.evalUnion(l, r)
	case "Combine":
		return i.evalCombine(l, r)
	case "Indexer":
		return i.evalIndexer(l, r)
	case "InCodeSystem":
		return i.evalInCodeSystem(l, r)
	case "InValueSet":
		return i.evalInValueSet(l, r)
	case "Before", "After", "SameOrBefore", "SameOrAfter", "Overlaps", "Meets", "Starts", "Finishes",
		"DifferenceBetween", "DurationBetween":
		var precision model.DateTimePrecision
		if hp, ok := n.(model.IHasPrecision); ok {
			precision = hp.GetPrecision()
		}
		return i.evalIntervalOrTemporalOpValues(n.GetName(), precision, l, r)
	case "In", "IncludedIn", "Contains":
		var precision model.DateTimePrecision
		if hp, ok := n.(model.IHasPrecision); ok {
			precision = hp.GetPrecision()
		}
		return i.evalMembershipOp(n.GetName(), precision, l, r)
	default:
		return result.Value{}, fmt.Errorf("internal error - binary operator %s not implemented", n.GetName())
	}
}

func (i *interpreter) evalNary(ctx context.Context, n model.INaryExpression) (result.Value, error) {
	if call, ok := n.(*model.Call); ok {
		return i.evalCall(ctx, call)
	}
	ops, err := i.evalExprs(ctx, n.GetOperands())
	if err != nil {
		return result.Value{}, err
	}
	switch n.GetName() {
	case "Coalesce":
		return i.evalCoalesce(ops)
	case "Concatenate":
		return i.evalConcatenate(ops)
	case "Date":
		return i.evalDateConstructor(ops)
	case "DateTime":
		return i.evalDateTimeConstructor(ops)
	case "Time":
		return i.evalTimeConstructor(ops)
	case "Now":
		return i.evalNow()
	case "Today":
		return i.evalToday()
	case "TimeOfDay":
		return i.evalTimeOfDay()
	default:
		return result.Value{}, fmt.Errorf("internal error - n-ary operator %s not implemented", n.GetName())
	}
}

func (i *interpreter) evalCompareOp(l, r result.Value, accept func(cmpResult) bool) (result.Value, error) {
	if result.IsNull(l) || result.IsNull(r) {
		return result.Null(), nil
	}
	c, ok, err := compareGolang(l.GolangValue(), r.GolangValue())
	if err != nil {
		return result.Value{}, err
	}
	if !ok {
		return result.Null(), nil
	}
	return result.New(accept(c))
}

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

// This file dispatches the system functions model.go routes through the generic Call node
// (spec.md's "everything without its own operator type") rather than giving each one a dedicated
// dispatcher-table entry the way dispatch.go does for nodes that DO get a concrete Go type.
package interpreter

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/clinical-lang/cqlfhir/model"
	"github.com/clinical-lang/cqlfhir/result"
)

func (i *interpreter) evalCall(ctx context.Context, call *model.Call) (result.Value, error) {
	ops, err := i.evalExprs(ctx, call.GetOperands())
	if err != nil {
		return result.Value{}, err
	}
	switch call.Name {
	case "Abs":
		return evalUnaryNumeric(ops[0], func(d decimal.Decimal) decimal.Decimal { return d.Abs() })
	case "Ceiling":
		return evalRoundingFunc(ops[0], func(d decimal.Decimal) decimal.Decimal { return d.Ceil() })
	case "Floor":
		return evalRoundingFunc(ops[0], func(d decimal.Decimal) decimal.Decimal { return d.Floor() })
	case "Truncate":
		return evalRoundingFunc(ops[0], func(d decimal.Decimal) decimal.Decimal { return d.Truncate(0) })
	case "Round":
		return evalRound(ops)
	case "Exp":
		return evalTranscendental(ops[0], math.Exp)
	case "Ln":
		return evalTranscendental(ops[0], math.Log)
	case "Log":
		return evalLog(ops)
	case "Sqrt":
		return evalTranscendental(ops[0], math.Sqrt)
	case "Upper":
		return evalStringFunc(ops[0], strings.ToUpper)
	case "Lower":
		return evalStringFunc(ops[0], strings.ToLower)
	case "Length":
		return evalLength(ops[0])
	case "Substring":
		return evalSubstring(ops)
	case "StartsWith":
		return evalStringBinaryPred(ops, strings.HasPrefix)
	case "EndsWith":
		return evalStringBinaryPred(ops, strings.HasSuffix)
	case "Trim":
		return evalStringFunc(ops[0], strings.TrimSpace)
	case "Split":
		return evalSplit(ops)
	case "Combine":
		return i.evalCombine(ops[0], ops[1])
	case "IndexOf":
		return evalIndexOf(ops)
	case "LastPositionOf":
		return evalLastPositionOf(ops)
	case "PositionOf":
		return evalIndexOf(ops)
	case "Replace":
		return evalReplace(ops)
	case "Matches":
		return evalMatches(ops)
	case "ReplaceMatches":
		return evalReplaceMatches(ops)
	case "ToChars":
		return evalToChars(ops[0])
	case "Skip":
		return evalSkip(ops)
	case "Take":
		return evalTake(ops)
	case "Tail":
		return evalTail(ops[0])
	case "Includes":
		return evalIncludes(ops, false)
	case "ProperlyIncludes":
		return evalIncludes(ops, true)
	case "IncludedIn":
		return evalIncludedIn(ops, false)
	case "ProperlyIncludedIn":
		return evalIncludedIn(ops, true)
	case "CalculateAge":
		return i.evalCalculateAge(ops)
	case "CalculateAgeAt":
		return i.evalCalculateAgeAt(ops)
	default:
		return result.Value{}, fmt.Errorf("internal error - system function %s not implemented", call.Name)
	}
}

func evalUnaryNumeric(v result.Value, f func(decimal.Decimal) decimal.Decimal) (result.Value, error) {
	if result.IsNull(v) {
		return result.Null(), nil
	}
	switch n := v.GolangValue().(type) {
	case int32:
		return result.New(int32(f(decimal.NewFromInt32(n)).IntPart()))
	case int64:
		return result.New(f(decimal.NewFromInt(n)).IntPart())
	case decimal.Decimal:
		return result.New(f(n))
	case result.Quantity:
		return result.New(result.Quantity{Value: f(n.Value), Unit: n.Unit})
	default:
		return result.Value{}, fmt.Errorf("%w %v to a number", result.ErrCannotConvert, v.RuntimeType())
	}
}

// evalRoundingFunc is evalUnaryNumeric, except Integer/Long operands pass through unchanged
// rather than round-tripping through decimal.Decimal (they are already integral).
func evalRoundingFunc(v result.Value, f func(decimal.Decimal) decimal.Decimal) (result.Value, error) {
	if result.IsNull(v) {
		return result.Null(), nil
	}
	switch n := v.GolangValue().(type) {
	case int32, int64:
		return v, nil
	case decimal.Decimal:
		return result.New(f(n))
	default:
		return result.Value{}, fmt.Errorf("%w %v to a decimal", result.ErrCannotConvert, v.RuntimeType())
	}
}

func evalRound(ops []result.Value) (result.Value, error) {
	if result.IsNull(ops[0]) {
		return result.Null(), nil
	}
	places := int32(0)
	if len(ops) > 1 && !result.IsNull(ops[1]) {
		p, err := mustInt32(ops[1])
		if err != nil {
			return result.Value{}, err
		}
		places = p
	}
	d, err := toDecimalOperand(ops[0])
	if err != nil {
		return result.Value{}, err
	}
	return result.New(d.Round(places))
}

func evalTranscendental(v result.Value, f func(float64) float64) (result.Value, error) {
	if result.IsNull(v) {
		return result.Null(), nil
	}
	d, err := toDecimalOperand(v)
	if err != nil {
		return result.Value{}, err
	}
	r := f(d.InexactFloat64())
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return result.Null(), nil
	}
	return result.New(decimal.NewFromFloat(r))
}

func evalLog(ops []result.Value) (result.Value, error) {
	if result.IsNull(ops[0]) || result.IsNull(ops[1]) {
		return result.Null(), nil
	}
	arg, err := toDecimalOperand(ops[0])
	if err != nil {
		return result.Value{}, err
	}
	base, err := toDecimalOperand(ops[1])
	if err != nil {
		return result.Value{}, err
	}
	r := math.Log(arg.InexactFloat64()) / math.Log(base.InexactFloat64())
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return result.Null(), nil
	}
	return result.New(decimal.NewFromFloat(r))
}

func evalStringFunc(v result.Value, f func(string) string) (result.Value, error) {
	if result.IsNull(v) {
		return result.Null(), nil
	}
	s, err := result.ToString(v)
	if err != nil {
		return result.Value{}, err
	}
	return result.New(f(s))
}

func evalLength(v result.Value) (result.Value, error) {
	if result.IsNull(v) {
		return result.New(int32(0))
	}
	switch gv := v.GolangValue().(type) {
	case string:
		return result.New(int32(len([]rune(gv))))
	case result.List:
		return result.New(int32(len(gv.Value)))
	default:
		return result.Value{}, fmt.Errorf("%w %v to a String or List", result.ErrCannotConvert, v.RuntimeType())
	}
}

func evalSubstring(ops []result.Value) (result.Value, error) {
	if result.IsNull(ops[0]) || result.IsNull(ops[1]) {
		return result.Null(), nil
	}
	s, err := result.ToString(ops[0])
	if err != nil {
		return result.Value{}, err
	}
	start, err := mustInt32(ops[1])
	if err != nil {
		return result.Value{}, err
	}
	runes := []rune(s)
	if start < 0 || int(start) > len(runes) {
		return result.Null(), nil
	}
	length := len(runes) - int(start)
	if len(ops) > 2 && !result.IsNull(ops[2]) {
		l, err := mustInt32(ops[2])
		if err != nil {
			return result.Value{}, err
		}
		if int(l) < length {
			length = int(l)
		}
	}
	if length < 0 {
		return result.Null(), nil
	}
	return result.New(string(runes[start : int(start)+length]))
}

func evalStringBinaryPred(ops []result.Value, f func(s, prefix string) bool) (result.Value, error) {
	if result.IsNull(ops[0]) || result.IsNull(ops[1]) {
		return result.Null(), nil
	}
	a, err := result.ToString(ops[0])
	if err != nil {
		return result.Value{}, err
	}
	b, err := result.ToString(ops[1])
	if err != nil {
		return result.Value{}, err
	}
	return result.New(f(a, b))
}

func evalSplit(ops []result.Value) (result.Value, error) {
	if result.IsNull(ops[0]) {
		return result.Null(), nil
	}
	s, err := result.ToString(ops[0])
	if err != nil {
		return result.Value{}, err
	}
	sep := " "
	if len(ops) > 1 && !result.IsNull(ops[1]) {
		sep, err = result.ToString(ops[1])
		if err != nil {
			return result.Value{}, err
		}
	}
	parts := strings.Split(s, sep)
	out := make([]result.Value, len(parts))
	for idx, p := range parts {
		out[idx], _ = result.New(p)
	}
	return result.New(result.List{Value: out})
}

func evalIndexOf(ops []result.Value) (result.Value, error) {
	if result.IsNull(ops[0]) || result.IsNull(ops[1]) {
		return result.Null(), nil
	}
	s, err := result.ToString(ops[0])
	if err != nil {
		return result.Value{}, err
	}
	sub, err := result.ToString(ops[1])
	if err != nil {
		return result.Value{}, err
	}
	idx := strings.Index(s, sub)
	if idx < 0 {
		return result.New(int32(-1))
	}
	return result.New(int32(len([]rune(s[:idx]))))
}

func evalLastPositionOf(ops []result.Value) (result.Value, error) {
	if result.IsNull(ops[0]) || result.IsNull(ops[1]) {
		return result.Null(), nil
	}
	s, err := result.ToString(ops[0])
	if err != nil {
		return result.Value{}, err
	}
	sub, err := result.ToString(ops[1])
	if err != nil {
		return result.Value{}, err
	}
	idx := strings.LastIndex(s, sub)
	if idx < 0 {
		return result.New(int32(-1))
	}
	return result.New(int32(len([]rune(s[:idx]))))
}

func evalReplace(ops []result.Value) (result.Value, error) {
	if result.IsNull(ops[0]) || result.IsNull(ops[1]) || result.IsNull(ops[2]) {
		return result.Null(), nil
	}
	s, err := result.ToString(ops[0])
	if err != nil {
		return result.Value{}, err
	}
	pattern, err := result.ToString(ops[1])
	if err != nil {
		return result.Value{}, err
	}
	repl, err := result.ToString(ops[2])
	if err != nil {
		return result.Value{}, err
	}
	return result.New(strings.ReplaceAll(s, pattern, repl))
}

func evalMatches(ops []result.Value) (result.Value, error) {
	if result.IsNull(ops[0]) || result.IsNull(ops[1]) {
		return result.Null(), nil
	}
	s, err := result.ToString(ops[0])
	if err != nil {
		return result.Value{}, err
	}
	pattern, err := result.ToString(ops[1])
	if err != nil {
		return result.Value{}, err
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return result.Value{}, fmt.Errorf("invalid regular expression %q: %w", pattern, err)
	}
	return result.New(re.MatchString(s))
}

func evalReplaceMatches(ops []result.Value) (result.Value, error) {
	if result.IsNull(ops[0]) || result.IsNull(ops[1]) || result.IsNull(ops[2]) {
		return result.Null(), nil
	}
	s, err := result.ToString(ops[0])
	if err != nil {
		return result.Value{}, err
	}
	pattern, err := result.ToString(ops[1])
	if err != nil {
		return result.Value{}, err
	}
	repl, err := result.ToString(ops[2])
	if err != nil {
		return result.Value{}, err
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return result.Value{}, fmt.Errorf("invalid regular expression %q: %w", pattern, err)
	}
	return result.New(re.ReplaceAllString(s, repl))
}

func evalToChars(v result.Value) (result.Value, error) {
	if result.IsNull(v) {
		return result.Null(), nil
	}
	s, err := result.ToString(v)
	if err != nil {
		return result.Value{}, err
	}
	runes := []rune(s)
	out := make([]result.Value, len(runes))
	for idx, r := range runes {
		out[idx], _ = result.New(string(r))
	}
	return result.New(result.List{Value: out})
}

func evalSkip(ops []result.Value) (result.Value, error) {
	if result.IsNull(ops[0]) {
		return result.Null(), nil
	}
	l, err := result.ToSlice(ops[0])
	if err != nil {
		return result.Value{}, err
	}
	n, err := mustInt32(ops[1])
	if err != nil {
		return result.Value{}, err
	}
	if int(n) >= len(l) {
		return result.New(result.List{})
	}
	if n < 0 {
		n = 0
	}
	return result.New(result.List{Value: l[n:]})
}

func evalTake(ops []result.Value) (result.Value, error) {
	if result.IsNull(ops[0]) {
		return result.New(result.List{})
	}
	l, err := result.ToSlice(ops[0])
	if err != nil {
		return result.Value{}, err
	}
	n, err := mustInt32(ops[1])
	if err != nil {
		return result.Value{}, err
	}
	if n < 0 {
		n = 0
	}
	if int(n) > len(l) {
		n = int32(len(l))
	}
	return result.New(result.List{Value: l[:n]})
}

func evalTail(v result.Value) (result.Value, error) {
	if result.IsNull(v) {
		return result.New(result.List{})
	}
	l, err := result.ToSlice(v)
	if err != nil {
		return result.Value{}, err
	}
	if len(l) == 0 {
		return result.New(result.List{})
	}
	return result.New(result.List{Value: l[1:]})
}

func evalIncludes(ops []result.Value, properly bool) (result.Value, error) {
	if result.IsNull(ops[0]) || result.IsNull(ops[1]) {
		return result.Null(), nil
	}
	l, err := result.ToSlice(ops[0])
	if err != nil {
		return result.Value{}, err
	}
	r, err := result.ToSlice(ops[1])
	if err != nil {
		return result.Value{}, err
	}
	for _, e := range r {
		if !containsValue(l, e) {
			return result.New(false)
		}
	}
	if properly && len(l) <= len(r) {
		return result.New(false)
	}
	return result.New(true)
}

func evalIncludedIn(ops []result.Value, properly bool) (result.Value, error) {
	return evalIncludes([]result.Value{ops[1], ops[0]}, properly)
}

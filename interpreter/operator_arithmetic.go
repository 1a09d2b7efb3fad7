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
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/clinical-lang/cqlfhir/result"
	"github.com/clinical-lang/cqlfhir/ucum"
)

type arithOp int

const (
	addOp arithOp = iota
	subOp
	mulOp
)

// decimalDivisionScale is the number of digits CQL Decimal division rounds non-exact results to
// (half-up), per https://cql.hl7.org/04-logicalspecification.html#divide.
const decimalDivisionScale = 8

func init() {
	decimal.DivisionPrecision = decimalDivisionScale
}

func (i *interpreter) evalNegate(v result.Value) (result.Value, error) {
	if result.IsNull(v) {
		return result.Null(), nil
	}
	switch n := v.GolangValue().(type) {
	case int32:
		return result.New(-n)
	case int64:
		return result.New(-n)
	case decimal.Decimal:
		return result.New(n.Neg())
	case result.Quantity:
		return result.New(result.Quantity{Value: n.Value.Neg(), Unit: n.Unit})
	default:
		return result.Value{}, fmt.Errorf("%w %v", result.ErrCannotConvert, v.RuntimeType())
	}
}

// evalArith implements Add/Subtract/Multiply across Integer/Long/Decimal/Quantity and
// Date/DateTime/Time +/- Quantity (temporal arithmetic never multiplies).
func (i *interpreter) evalArith(l, r result.Value, op arithOp) (result.Value, error) {
	if result.IsNull(l) || result.IsNull(r) {
		return result.Null(), nil
	}
	switch lv := l.GolangValue().(type) {
	case int32:
		rv, ok := r.GolangValue().(int32)
		if !ok {
			return result.Value{}, fmt.Errorf("%w: Integer arithmetic requires matching Integer operand", result.ErrCannotConvert)
		}
		var wide int64
		switch op {
		case addOp:
			wide = int64(lv) + int64(rv)
		case subOp:
			wide = int64(lv) - int64(rv)
		default:
			wide = int64(lv) * int64(rv)
		}
		if wide > math.MaxInt32 || wide < math.MinInt32 {
			i.diagf(result.CodeOverflow, "", "Integer arithmetic overflow: %d and %d", lv, rv)
			return result.Null(), nil
		}
		return result.New(int32(wide))
	case int64:
		rv, ok := r.GolangValue().(int64)
		if !ok {
			return result.Value{}, fmt.Errorf("%w: Long arithmetic requires matching Long operand", result.ErrCannotConvert)
		}
		var sum int64
		var overflow bool
		switch op {
		case addOp:
			sum = lv + rv
			overflow = (rv > 0 && sum < lv) || (rv < 0 && sum > lv)
		case subOp:
			sum = lv - rv
			overflow = (rv < 0 && sum < lv) || (rv > 0 && sum > lv)
		default:
			sum = lv * rv
			overflow = lv != 0 && sum/lv != rv
		}
		if overflow {
			i.diagf(result.CodeOverflow, "", "Long arithmetic overflow: %d and %d", lv, rv)
			return result.Null(), nil
		}
		return result.New(sum)
	case decimal.Decimal:
		rv, ok := r.GolangValue().(decimal.Decimal)
		if !ok {
			return result.Value{}, fmt.Errorf("%w: Decimal arithmetic requires matching Decimal operand", result.ErrCannotConvert)
		}
		switch op {
		case addOp:
			return result.New(lv.Add(rv))
		case subOp:
			return result.New(lv.Sub(rv))
		default:
			return result.New(lv.Mul(rv))
		}
	case result.Quantity:
		rv, ok := r.GolangValue().(result.Quantity)
		if !ok {
			return result.Value{}, fmt.Errorf("%w: Quantity arithmetic requires matching Quantity operand", result.ErrCannotConvert)
		}
		switch op {
		case mulOp:
			return result.New(result.Quantity{Value: lv.Value.Mul(rv.Value), Unit: combineUnits(lv.Unit, rv.Unit)})
		}
		rval := rv.Value
		if lv.Unit != rv.Unit {
			factor, err := ucum.ConvertUnit(1, rv.Unit, lv.Unit)
			if err != nil {
				i.diagf(result.CodeUnitMismatch, "", "cannot add/subtract Quantities with incommensurable units %q and %q: %v", lv.Unit, rv.Unit, err)
				return result.Null(), nil
			}
			rval = rv.Value.Mul(decimal.NewFromFloat(factor))
		}
		if op == addOp {
			return result.New(result.Quantity{Value: lv.Value.Add(rval), Unit: lv.Unit})
		}
		return result.New(result.Quantity{Value: lv.Value.Sub(rval), Unit: lv.Unit})
	case result.Date:
		return i.evalDateArith(lv, r, op)
	case result.DateTime:
		return i.evalDateTimeArith(lv, r, op)
	case result.Time:
		return i.evalTimeArith(lv, r, op)
	default:
		return result.Value{}, fmt.Errorf("internal error - arithmetic not implemented for %T", lv)
	}
}

func combineUnits(a, b string) string {
	if a == "1" {
		return b
	}
	if b == "1" {
		return a
	}
	return a + "." + b
}

func (i *interpreter) evalDateArith(d result.Date, qVal result.Value, op subAddOp) (result.Value, error) {
	q, err := result.ToQuantity(qVal)
	if err != nil {
		return result.Value{}, err
	}
	t, err := addQuantityToTime(d.Date, q, op)
	if err != nil {
		return result.Value{}, err
	}
	return result.New(result.Date{Date: t, Precision: d.Precision})
}

func (i *interpreter) evalDateTimeArith(d result.DateTime, qVal result.Value, op subAddOp) (result.Value, error) {
	q, err := result.ToQuantity(qVal)
	if err != nil {
		return result.Value{}, err
	}
	t, err := addQuantityToTime(d.Date, q, op)
	if err != nil {
		return result.Value{}, err
	}
	return result.New(result.DateTime{Date: t, Precision: d.Precision, HasTimezone: d.HasTimezone})
}

func (i *interpreter) evalTimeArith(d result.Time, qVal result.Value, op subAddOp) (result.Value, error) {
	q, err := result.ToQuantity(qVal)
	if err != nil {
		return result.Value{}, err
	}
	t, err := addQuantityToTime(d.Date, q, op)
	if err != nil {
		return result.Value{}, err
	}
	return result.New(result.Time{Date: t, Precision: d.Precision})
}

// subAddOp narrows arithOp to the two temporal-arithmetic operators.
type subAddOp = arithOp

// addQuantityToTime applies q (negated when op is subOp) to t, honoring calendar-duration units
// (year/month/week/day, via AddDate so month-end rollover matches CQL) and fixed-duration units
// (hour/minute/second/millisecond, via time.Duration).
func addQuantityToTime(t time.Time, q result.Quantity, op subAddOp) (time.Time, error) {
	n := q.Value
	if op == subOp {
		n = n.Neg()
	}
	whole := n.IntPart()
	switch normalizeUnit(q.Unit) {
	case "year":
		return t.AddDate(int(whole), 0, 0), nil
	case "month":
		return t.AddDate(0, int(whole), 0), nil
	case "week":
		return t.AddDate(0, 0, int(whole)*7), nil
	case "day":
		return t.AddDate(0, 0, int(whole)), nil
	case "hour":
		return t.Add(time.Duration(whole) * time.Hour), nil
	case "minute":
		return t.Add(time.Duration(whole) * time.Minute), nil
	case "second":
		return t.Add(time.Duration(whole) * time.Second), nil
	case "millisecond":
		return t.Add(time.Duration(whole) * time.Millisecond), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported temporal arithmetic unit %q", q.Unit)
	}
}

func normalizeUnit(u string) string {
	switch u {
	case "year", "years", "a":
		return "year"
	case "month", "months", "mo":
		return "month"
	case "week", "weeks", "wk":
		return "week"
	case "day", "days", "d":
		return "day"
	case "hour", "hours", "h":
		return "hour"
	case "minute", "minutes", "min":
		return "minute"
	case "second", "seconds", "s":
		return "second"
	case "millisecond", "milliseconds", "ms":
		return "millisecond"
	default:
		return u
	}
}

func (i *interpreter) evalDivide(l, r result.Value) (result.Value, error) {
	if result.IsNull(l) || result.IsNull(r) {
		return result.Null(), nil
	}
	rd, err := toDecimalOperand(r)
	if err != nil {
		return result.Value{}, err
	}
	if rd.IsZero() {
		return result.Null(), nil
	}
	if lq, ok := l.GolangValue().(result.Quantity); ok {
		rq, ok := r.GolangValue().(result.Quantity)
		unit := lq.Unit
		if ok {
			unit = combineUnits(lq.Unit, "/"+rq.Unit)
		}
		return result.New(result.Quantity{Value: lq.Value.Div(rd), Unit: unit})
	}
	ld, err := toDecimalOperand(l)
	if err != nil {
		return result.Value{}, err
	}
	return result.New(ld.Div(rd))
}

func toDecimalOperand(v result.Value) (decimal.Decimal, error) {
	switch n := v.GolangValue().(type) {
	case int32:
		return decimal.NewFromInt32(n), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case decimal.Decimal:
		return n, nil
	case result.Quantity:
		return n.Value, nil
	default:
		return decimal.Decimal{}, fmt.Errorf("%w %v to a decimal", result.ErrCannotConvert, v.RuntimeType())
	}
}

func (i *interpreter) evalModulo(l, r result.Value) (result.Value, error) {
	if result.IsNull(l) || result.IsNull(r) {
		return result.Null(), nil
	}
	switch lv := l.GolangValue().(type) {
	case int32:
		rv, err := mustInt32(r)
		if err != nil {
			return result.Value{}, err
		}
		if rv == 0 {
			return result.Null(), nil
		}
		return result.New(lv % rv)
	case int64:
		rv, err := mustInt64(r)
		if err != nil {
			return result.Value{}, err
		}
		if rv == 0 {
			return result.Null(), nil
		}
		return result.New(lv % rv)
	case decimal.Decimal:
		rv, err := toDecimalOperand(r)
		if err != nil {
			return result.Value{}, err
		}
		if rv.IsZero() {
			return result.Null(), nil
		}
		return result.New(lv.Mod(rv))
	default:
		return result.Value{}, fmt.Errorf("internal error - modulo not implemented for %T", lv)
	}
}

func (i *interpreter) evalTruncatedDivide(l, r result.Value) (result.Value, error) {
	if result.IsNull(l) || result.IsNull(r) {
		return result.Null(), nil
	}
	switch lv := l.GolangValue().(type) {
	case int32:
		rv, err := mustInt32(r)
		if err != nil {
			return result.Value{}, err
		}
		if rv == 0 {
			return result.Null(), nil
		}
		return result.New(lv / rv)
	case int64:
		rv, err := mustInt64(r)
		if err != nil {
			return result.Value{}, err
		}
		if rv == 0 {
			return result.Null(), nil
		}
		return result.New(lv / rv)
	case decimal.Decimal:
		rv, err := toDecimalOperand(r)
		if err != nil {
			return result.Value{}, err
		}
		if rv.IsZero() {
			return result.Null(), nil
		}
		return result.New(lv.Div(rv).Truncate(0))
	default:
		return result.Value{}, fmt.Errorf("internal error - truncated divide not implemented for %T", lv)
	}
}

func (i *interpreter) evalPower(l, r result.Value) (result.Value, error) {
	if result.IsNull(l) || result.IsNull(r) {
		return result.Null(), nil
	}
	ld, err := toDecimalOperand(l)
	if err != nil {
		return result.Value{}, err
	}
	rd, err := toDecimalOperand(r)
	if err != nil {
		return result.Value{}, err
	}
	res := ld.Pow(rd)
	if _, isInt := l.GolangValue().(int32); isInt {
		if _, isInt := r.GolangValue().(int32); isInt {
			return result.New(int32(res.IntPart()))
		}
	}
	return result.New(res)
}

func mustInt32(v result.Value) (int32, error) {
	n, ok := v.GolangValue().(int32)
	if !ok {
		return 0, fmt.Errorf("%w %v to an Integer", result.ErrCannotConvert, v.RuntimeType())
	}
	return n, nil
}

func mustInt64(v result.Value) (int64, error) {
	n, ok := v.GolangValue().(int64)
	if !ok {
		return 0, fmt.Errorf("%w %v to a Long", result.ErrCannotConvert, v.RuntimeType())
	}
	return n, nil
}

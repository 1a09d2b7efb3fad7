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
	"time"

	"github.com/shopspring/decimal"

	"github.com/clinical-lang/cqlfhir/model"
	"github.com/clinical-lang/cqlfhir/result"
)

func (i *interpreter) evalStart(v result.Value) (result.Value, error) {
	if result.IsNull(v) {
		return result.Null(), nil
	}
	iv, err := result.ToInterval(v)
	if err != nil {
		return result.Value{}, err
	}
	if result.IsNull(iv.Low) || iv.LowInclusive {
		return iv.Low, nil
	}
	return evalSuccessorValue(iv.Low)
}

func (i *interpreter) evalEnd(v result.Value) (result.Value, error) {
	if result.IsNull(v) {
		return result.Null(), nil
	}
	iv, err := result.ToInterval(v)
	if err != nil {
		return result.Value{}, err
	}
	if result.IsNull(iv.High) || iv.HighInclusive {
		return iv.High, nil
	}
	return evalPredecessorValue(iv.High)
}

func (i *interpreter) evalPredecessor(v result.Value) (result.Value, error) {
	if result.IsNull(v) {
		return result.Null(), nil
	}
	return evalPredecessorValue(v)
}

func (i *interpreter) evalSuccessor(v result.Value) (result.Value, error) {
	if result.IsNull(v) {
		return result.Null(), nil
	}
	return evalSuccessorValue(v)
}

func evalPredecessorValue(v result.Value) (result.Value, error) {
	switch n := v.GolangValue().(type) {
	case int32:
		return result.New(n - 1)
	case int64:
		return result.New(n - 1)
	case decimal.Decimal:
		return result.New(n.Sub(decimalEpsilon))
	case result.Quantity:
		return result.New(result.Quantity{Value: n.Value.Sub(decimalEpsilon), Unit: n.Unit})
	case result.Date:
		t, err := addQuantityToTime(n.Date, result.Quantity{Value: decimal.NewFromInt(1), Unit: precisionUnit(n.Precision)}, subOp)
		if err != nil {
			return result.Value{}, err
		}
		return result.New(result.Date{Date: t, Precision: n.Precision})
	case result.DateTime:
		t, err := addQuantityToTime(n.Date, result.Quantity{Value: decimal.NewFromInt(1), Unit: precisionUnit(n.Precision)}, subOp)
		if err != nil {
			return result.Value{}, err
		}
		return result.New(result.DateTime{Date: t, Precision: n.Precision, HasTimezone: n.HasTimezone})
	case result.Time:
		t, err := addQuantityToTime(n.Date, result.Quantity{Value: decimal.NewFromInt(1), Unit: precisionUnit(n.Precision)}, subOp)
		if err != nil {
			return result.Value{}, err
		}
		return result.New(result.Time{Date: t, Precision: n.Precision})
	default:
		return result.Value{}, fmt.Errorf("%w %v to a type with a predecessor", result.ErrCannotConvert, v.RuntimeType())
	}
}

func evalSuccessorValue(v result.Value) (result.Value, error) {
	switch n := v.GolangValue().(type) {
	case int32:
		return result.New(n + 1)
	case int64:
		return result.New(n + 1)
	case decimal.Decimal:
		return result.New(n.Add(decimalEpsilon))
	case result.Quantity:
		return result.New(result.Quantity{Value: n.Value.Add(decimalEpsilon), Unit: n.Unit})
	case result.Date:
		t, err := addQuantityToTime(n.Date, result.Quantity{Value: decimal.NewFromInt(1), Unit: precisionUnit(n.Precision)}, addOp)
		if err != nil {
			return result.Value{}, err
		}
		return result.New(result.Date{Date: t, Precision: n.Precision})
	case result.DateTime:
		t, err := addQuantityToTime(n.Date, result.Quantity{Value: decimal.NewFromInt(1), Unit: precisionUnit(n.Precision)}, addOp)
		if err != nil {
			return result.Value{}, err
		}
		return result.New(result.DateTime{Date: t, Precision: n.Precision, HasTimezone: n.HasTimezone})
	case result.Time:
		t, err := addQuantityToTime(n.Date, result.Quantity{Value: decimal.NewFromInt(1), Unit: precisionUnit(n.Precision)}, addOp)
		if err != nil {
			return result.Value{}, err
		}
		return result.New(result.Time{Date: t, Precision: n.Precision})
	default:
		return result.Value{}, fmt.Errorf("%w %v to a type with a successor", result.ErrCannotConvert, v.RuntimeType())
	}
}

// decimalEpsilon is the smallest Decimal increment CQL recognizes (8 decimal places).
var decimalEpsilon = decimal.New(1, -8)

func precisionUnit(p model.DateTimePrecision) string {
	switch p {
	case model.Year:
		return "year"
	case model.Month:
		return "month"
	case model.Day, model.UnsetPrecision:
		return "day"
	case model.Hour:
		return "hour"
	case model.Minute:
		return "minute"
	case model.Second:
		return "second"
	case model.Millisecond:
		return "millisecond"
	default:
		return "day"
	}
}

// boundary is a generalized interval endpoint: either a concrete Value or +/-infinity (an
// unbounded Null endpoint, which participates in Allen-relation comparisons as infinity rather
// than propagating Null per spec).
type boundary struct {
	val      result.Value
	isNegInf bool
	isPosInf bool
}

func lowBoundary(v result.Value) (boundary, error) {
	if iv, ok := v.GolangValue().(result.Interval); ok {
		if result.IsNull(iv.Low) {
			return boundary{isNegInf: true}, nil
		}
		if iv.LowInclusive {
			return boundary{val: iv.Low}, nil
		}
		succ, err := evalSuccessorValue(iv.Low)
		if err != nil {
			return boundary{}, err
		}
		return boundary{val: succ}, nil
	}
	return boundary{val: v}, nil
}

func highBoundary(v result.Value) (boundary, error) {
	if iv, ok := v.GolangValue().(result.Interval); ok {
		if result.IsNull(iv.High) {
			return boundary{isPosInf: true}, nil
		}
		if iv.HighInclusive {
			return boundary{val: iv.High}, nil
		}
		pred, err := evalPredecessorValue(iv.High)
		if err != nil {
			return boundary{}, err
		}
		return boundary{val: pred}, nil
	}
	return boundary{val: v}, nil
}

// cmpBoundary compares two boundaries, truncating Date/DateTime/Time operands to precision first
// when precision is set.
func cmpBoundary(a, b boundary, precision model.DateTimePrecision) (cmpResult, bool, error) {
	switch {
	case a.isNegInf && b.isNegInf, a.isPosInf && b.isPosInf:
		return cmpEqual, true, nil
	case a.isNegInf, b.isPosInf:
		return cmpLess, true, nil
	case a.isPosInf, b.isNegInf:
		return cmpGreater, true, nil
	}
	av, bv := a.val.GolangValue(), b.val.GolangValue()
	if precision != model.UnsetPrecision {
		av = truncateTemporal(av, precision)
		bv = truncateTemporal(bv, precision)
	}
	return compareGolang(av, bv)
}

func truncateTemporal(v any, p model.DateTimePrecision) any {
	switch t := v.(type) {
	case result.Date:
		t.Date = truncateToPrecision(t.Date, p)
		t.Precision = p
		return t
	case result.DateTime:
		t.Date = truncateToPrecision(t.Date, p)
		t.Precision = p
		return t
	case result.Time:
		t.Date = truncateToPrecision(t.Date, p)
		t.Precision = p
		return t
	default:
		return v
	}
}

func truncateToPrecision(t time.Time, p model.DateTimePrecision) time.Time {
	y, mo, d := t.Date()
	h, mi, s := t.Clock()
	ns := t.Nanosecond()
	loc := t.Location()
	switch p {
	case model.Year:
		return time.Date(y, 1, 1, 0, 0, 0, 0, loc)
	case model.Month:
		return time.Date(y, mo, 1, 0, 0, 0, 0, loc)
	case model.Day:
		return time.Date(y, mo, d, 0, 0, 0, 0, loc)
	case model.Hour:
		return time.Date(y, mo, d, h, 0, 0, 0, loc)
	case model.Minute:
		return time.Date(y, mo, d, h, mi, 0, 0, loc)
	case model.Second:
		return time.Date(y, mo, d, h, mi, s, 0, loc)
	default:
		return time.Date(y, mo, d, h, mi, s, ns, loc)
	}
}

// evalMembershipOp handles "In"/"Contains"/"IncludedIn", the three membership operators that can
// mean three different things depending on what the container operand evaluates to: a List (plain
// element membership), a ValueSet/CodeSystem (terminology membership), or an Interval/point (the
// Allen-relation boundary test evalIntervalOrTemporalOpValues already implements). The parser
// builds the same node for all three - it cannot tell a list from a valueset from a bare
// identifier until the container's runtime value is known - so the routing happens here, once per
// evaluation, rather than at parse time.
func (i *interpreter) evalMembershipOp(name string, precision model.DateTimePrecision, l, r result.Value) (result.Value, error) {
	if result.IsNull(l) || result.IsNull(r) {
		return result.Null(), nil
	}
	switch name {
	case "In":
		if handled, v, err := i.terminologyOrListMembership(l, r); handled {
			return v, err
		}
	case "Contains":
		if handled, v, err := i.terminologyOrListMembership(r, l); handled {
			return v, err
		}
	}
	return i.evalIntervalOrTemporalOpValues(name, precision, l, r)
}

// terminologyOrListMembership reports whether container is a List, ValueSet, or CodeSystem - the
// container kinds the interval-boundary machinery cannot express - and if so, evaluates item's
// membership in it directly.
func (i *interpreter) terminologyOrListMembership(item, container result.Value) (handled bool, v result.Value, err error) {
	switch cv := container.GolangValue().(type) {
	case result.List:
		v, err := i.listMembership(item, cv)
		return true, v, err
	case result.ValueSet:
		v, err := i.evalInValueSet(item, container)
		return true, v, err
	case result.CodeSystem:
		v, err := i.evalInCodeSystem(item, container)
		return true, v, err
	default:
		return false, result.Value{}, nil
	}
}

// listMembership reports whether item equals any element of list - true on the first equal
// element, null if no element is equal but some comparison was indeterminate (e.g. a null
// element), false otherwise.
func (i *interpreter) listMembership(item result.Value, list result.List) (result.Value, error) {
	sawIndeterminate := false
	for _, e := range list.Value {
		eq, err := i.evalEqual(item, e)
		if err != nil {
			return result.Value{}, err
		}
		if result.IsNull(eq) {
			sawIndeterminate = true
			continue
		}
		if b, err := result.ToBool(eq); err == nil && b {
			return result.New(true)
		}
	}
	if sawIndeterminate {
		return result.Null(), nil
	}
	return result.New(false)
}

// evalIntervalOrTemporalOpValues implements the Allen-relation and temporal-distance operators,
// all of which take an optional precision qualifier. Point operands are treated as degenerate
// intervals whose Low and High are themselves.
func (i *interpreter) evalIntervalOrTemporalOpValues(name string, precision model.DateTimePrecision, l, r result.Value) (result.Value, error) {
	if name == "DifferenceBetween" || name == "DurationBetween" {
		return i.evalBetween(name, precision, l, r)
	}
	if result.IsNull(l) || result.IsNull(r) {
		return result.Null(), nil
	}
	lLow, err := lowBoundary(l)
	if err != nil {
		return result.Value{}, err
	}
	lHigh, err := highBoundary(l)
	if err != nil {
		return result.Value{}, err
	}
	rLow, err := lowBoundary(r)
	if err != nil {
		return result.Value{}, err
	}
	rHigh, err := highBoundary(r)
	if err != nil {
		return result.Value{}, err
	}

	cmp := func(a, b boundary) (cmpResult, bool, error) { return cmpBoundary(a, b, precision) }

	switch name {
	case "Before":
		c, ok, err := cmp(lHigh, rLow)
		return boolOrNull(c == cmpLess, ok, err)
	case "After":
		c, ok, err := cmp(lLow, rHigh)
		return boolOrNull(c == cmpGreater, ok, err)
	case "SameOrBefore":
		c, ok, err := cmp(lHigh, rLow)
		return boolOrNull(c != cmpGreater, ok, err)
	case "SameOrAfter":
		c, ok, err := cmp(lLow, rHigh)
		return boolOrNull(c != cmpLess, ok, err)
	case "Meets":
		succHigh, err := boundarySuccessor(lHigh)
		if err != nil {
			return result.Value{}, err
		}
		c1, ok1, err := cmp(succHigh, rLow)
		if err != nil {
			return result.Value{}, err
		}
		succHigh2, err := boundarySuccessor(rHigh)
		if err != nil {
			return result.Value{}, err
		}
		c2, ok2, err := cmp(succHigh2, lLow)
		if err != nil {
			return result.Value{}, err
		}
		if !ok1 && !ok2 {
			return result.Null(), nil
		}
		return result.New((ok1 && c1 == cmpEqual) || (ok2 && c2 == cmpEqual))
	case "Overlaps":
		c1, ok1, err := cmp(lLow, rHigh)
		if err != nil {
			return result.Value{}, err
		}
		c2, ok2, err := cmp(rLow, lHigh)
		if err != nil {
			return result.Value{}, err
		}
		if !ok1 || !ok2 {
			return result.Null(), nil
		}
		return result.New(c1 != cmpGreater && c2 != cmpGreater)
	case "Starts":
		c, ok, err := cmp(lLow, rLow)
		return boolOrNull(c == cmpEqual, ok, err)
	case "Finishes":
		c, ok, err := cmp(lHigh, rHigh)
		return boolOrNull(c == cmpEqual, ok, err)
	case "In", "IncludedIn":
		c1, ok1, err := cmp(rLow, lLow)
		if err != nil {
			return result.Value{}, err
		}
		c2, ok2, err := cmp(lHigh, rHigh)
		if err != nil {
			return result.Value{}, err
		}
		if !ok1 || !ok2 {
			return result.Null(), nil
		}
		return result.New(c1 != cmpGreater && c2 != cmpGreater)
	case "Contains":
		c1, ok1, err := cmp(lLow, rLow)
		if err != nil {
			return result.Value{}, err
		}
		c2, ok2, err := cmp(rHigh, lHigh)
		if err != nil {
			return result.Value{}, err
		}
		if !ok1 || !ok2 {
			return result.Null(), nil
		}
		return result.New(c1 != cmpGreater && c2 != cmpGreater)
	default:
		return result.Value{}, fmt.Errorf("internal error - unsupported interval operator %s", name)
	}
}

func boolOrNull(b, ok bool, err error) (result.Value, error) {
	if err != nil {
		return result.Value{}, err
	}
	if !ok {
		return result.Null(), nil
	}
	return result.New(b)
}

func boundarySuccessor(b boundary) (boundary, error) {
	if b.isNegInf || b.isPosInf {
		return b, nil
	}
	succ, err := evalSuccessorValue(b.val)
	if err != nil {
		return boundary{}, err
	}
	return boundary{val: succ}, nil
}

// evalBetween implements DifferenceBetween (calendar boundaries crossed) and DurationBetween
// (complete calendar units elapsed), the two temporal-distance operators.
func (i *interpreter) evalBetween(name string, precision model.DateTimePrecision, l, r result.Value) (result.Value, error) {
	if result.IsNull(l) || result.IsNull(r) {
		return result.Null(), nil
	}
	from, err := result.ToDateTime(l)
	if err != nil {
		return result.Value{}, err
	}
	to, err := result.ToDateTime(r)
	if err != nil {
		return result.Value{}, err
	}
	if precision == model.UnsetPrecision {
		precision = model.Day
	}
	diff, duration := calendarDiffDuration(from.Date, to.Date, precision)
	if name == "DifferenceBetween" {
		return result.New(diff)
	}
	return result.New(duration)
}

func calendarDiffDuration(from, to time.Time, precision model.DateTimePrecision) (diff, duration int64) {
	switch precision {
	case model.Year:
		diff = int64(to.Year()) - int64(from.Year())
		duration = diff
		if !remainderGTE(from, to, model.Year) {
			duration--
		}
	case model.Month:
		diff = monthsSinceEpoch(to) - monthsSinceEpoch(from)
		duration = diff
		if !remainderGTE(from, to, model.Month) {
			duration--
		}
	case model.Week:
		days := daysSinceEpoch(to) - daysSinceEpoch(from)
		diff = days / 7
		duration = int64(to.Sub(from) / (7 * 24 * time.Hour))
	case model.Day:
		diff = daysSinceEpoch(to) - daysSinceEpoch(from)
		duration = int64(to.Sub(from) / (24 * time.Hour))
	case model.Hour:
		diff = int64(to.Sub(from) / time.Hour)
		duration = diff
	case model.Minute:
		diff = int64(to.Sub(from) / time.Minute)
		duration = diff
	case model.Second:
		diff = int64(to.Sub(from) / time.Second)
		duration = diff
	case model.Millisecond:
		diff = int64(to.Sub(from) / time.Millisecond)
		duration = diff
	}
	return diff, duration
}

func monthsSinceEpoch(t time.Time) int64 {
	return int64(t.Year())*12 + int64(t.Month()) - 1
}

func daysSinceEpoch(t time.Time) int64 {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).Unix() / 86400
}

// remainderGTE reports whether to's components below precision have reached or passed from's,
// meaning a full precision-unit has elapsed between them (not merely a calendar boundary crossed).
func remainderGTE(from, to time.Time, precision model.DateTimePrecision) bool {
	fm, fd := int(from.Month()), from.Day()
	tm, td := int(to.Month()), to.Day()
	fh, fmin, fs := from.Hour(), from.Minute(), from.Second()
	th, tmin, ts := to.Hour(), to.Minute(), to.Second()
	fns, tns := from.Nanosecond(), to.Nanosecond()

	switch precision {
	case model.Year:
		if tm != fm {
			return tm > fm
		}
		fallthrough
	case model.Month:
		if td != fd {
			return td > fd
		}
		if th != fh {
			return th > fh
		}
		if tmin != fmin {
			return tmin > fmin
		}
		if ts != fs {
			return ts > fs
		}
		return tns >= fns
	default:
		return true
	}
}

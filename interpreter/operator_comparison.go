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
	"strings"
	"time"

	"github.com/clinical-lang/cqlfhir/result"
)

// evalEqual implements CQL/FHIRPath "=": three-valued, null-propagating structural equality.
func (i *interpreter) evalEqual(l, r result.Value) (result.Value, error) {
	if result.IsNull(l) || result.IsNull(r) {
		return result.Null(), nil
	}
	eq, ok, err := equalGolang(l.GolangValue(), r.GolangValue())
	if err != nil {
		return result.Value{}, err
	}
	if !ok {
		return result.Null(), nil
	}
	return result.New(eq)
}

// evalEquivalent implements "~": like Equal, but total (Null ~ Null is true, Null ~ non-Null is
// false) and case/whitespace-insensitive for strings.
func (i *interpreter) evalEquivalent(l, r result.Value) (result.Value, error) {
	if result.IsNull(l) && result.IsNull(r) {
		return result.New(true)
	}
	if result.IsNull(l) || result.IsNull(r) {
		return result.New(false)
	}
	if ls, ok := l.GolangValue().(string); ok {
		if rs, ok := r.GolangValue().(string); ok {
			return result.New(equivalentString(ls, rs))
		}
	}
	eq, ok, err := equalGolang(l.GolangValue(), r.GolangValue())
	if err != nil {
		return result.Value{}, err
	}
	if !ok {
		return result.New(false)
	}
	return result.New(eq)
}

func equivalentString(a, b string) bool {
	norm := func(s string) string {
		return strings.Join(strings.Fields(strings.ToLower(s)), " ")
	}
	return norm(a) == norm(b)
}

// equalGolang compares two non-null Go values, reporting (equal, comparable). comparable is false
// when the values are of incompatible runtime shapes, in which case the caller should treat the
// comparison as Null.
func equalGolang(a, b any) (bool, bool, error) {
	switch av := a.(type) {
	case bool:
		bv, ok := b.(bool)
		return av == bv, ok, nil
	case string:
		bv, ok := b.(string)
		return av == bv, ok, nil
	case int32:
		switch bv := b.(type) {
		case int32:
			return av == bv, true, nil
		case int64:
			return int64(av) == bv, true, nil
		}
		return false, false, nil
	case int64:
		switch bv := b.(type) {
		case int64:
			return av == bv, true, nil
		case int32:
			return av == int64(bv), true, nil
		}
		return false, false, nil
	case result.Quantity:
		bv, ok := b.(result.Quantity)
		if !ok {
			return false, false, nil
		}
		return av.Unit == bv.Unit && av.Value.Equal(bv.Value), true, nil
	case result.Ratio:
		bv, ok := b.(result.Ratio)
		if !ok {
			return false, false, nil
		}
		numEq, _, _ := equalGolang(av.Numerator, bv.Numerator)
		denEq, _, _ := equalGolang(av.Denominator, bv.Denominator)
		return numEq && denEq, true, nil
	case result.Date:
		bv, ok := b.(result.Date)
		if !ok {
			return false, false, nil
		}
		if av.Precision != bv.Precision {
			return false, false, nil
		}
		return av.Equal(bv), true, nil
	case result.DateTime:
		bv, ok := b.(result.DateTime)
		if !ok {
			return false, false, nil
		}
		if av.Precision != bv.Precision || av.HasTimezone != bv.HasTimezone {
			return false, false, nil
		}
		return av.Equal(bv), true, nil
	case result.Time:
		bv, ok := b.(result.Time)
		if !ok {
			return false, false, nil
		}
		if av.Precision != bv.Precision {
			return false, false, nil
		}
		return av.Date.Equal(bv.Date), true, nil
	case result.Code:
		bv, ok := b.(result.Code)
		if !ok {
			return false, false, nil
		}
		return av.System == bv.System && av.Code == bv.Code, true, nil
	case result.Concept:
		bv, ok := b.(result.Concept)
		if !ok || len(av.Codes) != len(bv.Codes) {
			return false, false, nil
		}
		for idx := range av.Codes {
			eq, _, _ := equalGolang(av.Codes[idx], bv.Codes[idx])
			if !eq {
				return false, true, nil
			}
		}
		return true, true, nil
	case result.CodeSystem:
		bv, ok := b.(result.CodeSystem)
		return ok && av.ID == bv.ID && av.Version == bv.Version, ok, nil
	case result.ValueSet:
		bv, ok := b.(result.ValueSet)
		return ok && av.ID == bv.ID && av.Version == bv.Version, ok, nil
	case result.Interval:
		bv, ok := b.(result.Interval)
		if !ok {
			return false, false, nil
		}
		lowEq, lowOK, err := equalValues(av.Low, bv.Low)
		if err != nil {
			return false, false, err
		}
		highEq, highOK, err := equalValues(av.High, bv.High)
		if err != nil {
			return false, false, err
		}
		return lowEq && highEq && av.LowInclusive == bv.LowInclusive && av.HighInclusive == bv.HighInclusive,
			lowOK && highOK, nil
	case result.List:
		bv, ok := b.(result.List)
		if !ok || len(av.Value) != len(bv.Value) {
			return false, ok, nil
		}
		for idx := range av.Value {
			eq, ok, err := equalValues(av.Value[idx], bv.Value[idx])
			if err != nil {
				return false, false, err
			}
			if !ok || !eq {
				return false, ok, nil
			}
		}
		return true, true, nil
	case result.Tuple:
		bv, ok := b.(result.Tuple)
		if !ok || len(av.Value) != len(bv.Value) {
			return false, ok, nil
		}
		for k, v := range av.Value {
			other, present := bv.Value[k]
			if !present {
				return false, true, nil
			}
			eq, ok, err := equalValues(v, other)
			if err != nil {
				return false, false, err
			}
			if !ok || !eq {
				return false, ok, nil
			}
		}
		return true, true, nil
	case nil:
		return b == nil, true, nil
	default:
		return false, false, fmt.Errorf("internal error - equal not implemented for %T", a)
	}
}

func equalValues(a, b result.Value) (bool, bool, error) {
	if result.IsNull(a) != result.IsNull(b) {
		return false, true, nil
	}
	if result.IsNull(a) {
		return true, true, nil
	}
	return equalGolang(a.GolangValue(), b.GolangValue())
}

// cmpResult is the outcome of a three-way comparison.
type cmpResult int

const (
	cmpLess cmpResult = iota
	cmpEqual
	cmpGreater
)

// compareGolang orders two non-null, like-typed scalars. ok is false when the types cannot be
// ordered against each other (e.g. Quantities with incompatible units), in which case the caller
// must return Null.
func compareGolang(a, b any) (cmpResult, bool, error) {
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false, nil
		}
		return cmpFromInt(strings.Compare(av, bv)), true, nil
	case int32:
		bv, ok := b.(int32)
		if !ok {
			return 0, false, nil
		}
		return cmpFromInt(int(av) - int(bv)), true, nil
	case int64:
		bv, ok := b.(int64)
		if !ok {
			return 0, false, nil
		}
		switch {
		case av < bv:
			return cmpLess, true, nil
		case av > bv:
			return cmpGreater, true, nil
		}
		return cmpEqual, true, nil
	case result.Quantity:
		bv, ok := b.(result.Quantity)
		if !ok || av.Unit != bv.Unit {
			return 0, false, nil
		}
		return cmpFromInt(av.Value.Cmp(bv.Value)), true, nil
	case result.Date:
		bv, ok := b.(result.Date)
		if !ok || av.Precision != bv.Precision {
			return 0, false, nil
		}
		return cmpFromTime(av.Date, bv.Date), true, nil
	case result.DateTime:
		bv, ok := b.(result.DateTime)
		if !ok || av.Precision != bv.Precision || av.HasTimezone != bv.HasTimezone {
			return 0, false, nil
		}
		return cmpFromTime(av.Date, bv.Date), true, nil
	case result.Time:
		bv, ok := b.(result.Time)
		if !ok || av.Precision != bv.Precision {
			return 0, false, nil
		}
		return cmpFromTime(av.Date, bv.Date), true, nil
	default:
		return 0, false, fmt.Errorf("internal error - comparison not implemented for %T", a)
	}
}

func cmpFromInt(n int) cmpResult {
	switch {
	case n < 0:
		return cmpLess
	case n > 0:
		return cmpGreater
	}
	return cmpEqual
}

func cmpFromTime(a, b time.Time) cmpResult {
	switch {
	case a.Before(b):
		return cmpLess
	case a.After(b):
		return cmpGreater
	}
	return cmpEqual
}

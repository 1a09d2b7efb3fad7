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

package result

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrCannotConvert is returned when a Value's underlying Go representation does not match the
// type a To* helper expects.
var ErrCannotConvert = errors.New("internal error - cannot convert")

// ToBool takes a CQL Boolean and returns the underlying Go value.
func ToBool(v Value) (bool, error) {
	b, ok := v.GolangValue().(bool)
	if !ok {
		return false, fmt.Errorf("%w %v to a boolean", ErrCannotConvert, v.RuntimeType())
	}
	return b, nil
}

// ToString takes a CQL String and returns the underlying Go value.
func ToString(v Value) (string, error) {
	s, ok := v.GolangValue().(string)
	if !ok {
		return "", fmt.Errorf("%w %v to a string", ErrCannotConvert, v.RuntimeType())
	}
	return s, nil
}

// ToInt32 takes a CQL Integer and returns the underlying Go value.
func ToInt32(v Value) (int32, error) {
	i, ok := v.GolangValue().(int32)
	if !ok {
		return 0, fmt.Errorf("%w %v to an int32", ErrCannotConvert, v.RuntimeType())
	}
	return i, nil
}

// ToInt64 takes a CQL Long and returns the underlying Go value.
func ToInt64(v Value) (int64, error) {
	l, ok := v.GolangValue().(int64)
	if !ok {
		return 0, fmt.Errorf("%w %v to an int64", ErrCannotConvert, v.RuntimeType())
	}
	return l, nil
}

// ToDecimal takes a CQL Decimal and returns the underlying Go value.
func ToDecimal(v Value) (decimal.Decimal, error) {
	d, ok := v.GolangValue().(decimal.Decimal)
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w %v to a decimal.Decimal", ErrCannotConvert, v.RuntimeType())
	}
	return d, nil
}

// ToQuantity takes a CQL Quantity and returns the underlying Go value.
func ToQuantity(v Value) (Quantity, error) {
	q, ok := v.GolangValue().(Quantity)
	if !ok {
		return Quantity{}, fmt.Errorf("%w %v to a Quantity", ErrCannotConvert, v.RuntimeType())
	}
	return q, nil
}

// ToRatio takes a CQL Ratio and returns the underlying Go value.
func ToRatio(v Value) (Ratio, error) {
	r, ok := v.GolangValue().(Ratio)
	if !ok {
		return Ratio{}, fmt.Errorf("%w %v to a Ratio", ErrCannotConvert, v.RuntimeType())
	}
	return r, nil
}

// ToDate takes a CQL Date and returns the underlying Go value.
func ToDate(v Value) (Date, error) {
	d, ok := v.GolangValue().(Date)
	if !ok {
		return Date{}, fmt.Errorf("%w %v to a Date", ErrCannotConvert, v.RuntimeType())
	}
	return d, nil
}

// ToTime takes a CQL Time and returns the underlying Go value.
func ToTime(v Value) (Time, error) {
	t, ok := v.GolangValue().(Time)
	if !ok {
		return Time{}, fmt.Errorf("%w %v to a Time", ErrCannotConvert, v.RuntimeType())
	}
	return t, nil
}

// ToDateTime takes a CQL Date, Time, or DateTime and returns a DateTime. Date and Time share
// DateTime's shape (a time.Time plus a Precision), so callers that only need to compare or format
// can treat all three generically through this one conversion.
func ToDateTime(v Value) (DateTime, error) {
	switch t := v.GolangValue().(type) {
	case DateTime:
		return t, nil
	case Date:
		return DateTime{Date: t.Date, Precision: t.Precision, HasTimezone: true}, nil
	case Time:
		return DateTime{Date: t.Date, Precision: t.Precision, HasTimezone: true}, nil
	default:
		return DateTime{}, fmt.Errorf("%w %v to a DateTime", ErrCannotConvert, v.RuntimeType())
	}
}

// ToInterval takes a CQL Interval and returns the underlying Go value.
func ToInterval(v Value) (Interval, error) {
	i, ok := v.GolangValue().(Interval)
	if !ok {
		return Interval{}, fmt.Errorf("%w %v to an Interval", ErrCannotConvert, v.RuntimeType())
	}
	return i, nil
}

// ToSlice takes a CQL List and returns its elements.
func ToSlice(v Value) ([]Value, error) {
	l, ok := v.GolangValue().(List)
	if !ok {
		return nil, fmt.Errorf("%w %v to a []Value", ErrCannotConvert, v.RuntimeType())
	}
	return l.Value, nil
}

// ToTuple takes a CQL Tuple and returns its field map.
func ToTuple(v Value) (map[string]Value, error) {
	t, ok := v.GolangValue().(Tuple)
	if !ok {
		return nil, fmt.Errorf("%w %v to a map[string]Value", ErrCannotConvert, v.RuntimeType())
	}
	return t.Value, nil
}

// ToNamed takes a value of a model-info-defined type and returns the underlying FHIR navigator
// node.
func ToNamed(v Value) (Named, error) {
	n, ok := v.GolangValue().(Named)
	if !ok {
		return Named{}, fmt.Errorf("%w %v to a Named", ErrCannotConvert, v.RuntimeType())
	}
	return n, nil
}

// ToCodeSystem takes a CQL CodeSystem and returns the underlying Go value.
func ToCodeSystem(v Value) (CodeSystem, error) {
	c, ok := v.GolangValue().(CodeSystem)
	if !ok {
		return CodeSystem{}, fmt.Errorf("%w %v to a CodeSystem", ErrCannotConvert, v.RuntimeType())
	}
	return c, nil
}

// ToValueSet takes a CQL ValueSet and returns the underlying Go value.
func ToValueSet(v Value) (ValueSet, error) {
	vs, ok := v.GolangValue().(ValueSet)
	if !ok {
		return ValueSet{}, fmt.Errorf("%w %v to a ValueSet", ErrCannotConvert, v.RuntimeType())
	}
	return vs, nil
}

// ToConcept takes a CQL Concept and returns the underlying Go value.
func ToConcept(v Value) (Concept, error) {
	c, ok := v.GolangValue().(Concept)
	if !ok {
		return Concept{}, fmt.Errorf("%w %v to a Concept", ErrCannotConvert, v.RuntimeType())
	}
	return c, nil
}

// ToCode takes a CQL Code and returns the underlying Go value.
func ToCode(v Value) (Code, error) {
	c, ok := v.GolangValue().(Code)
	if !ok {
		return Code{}, fmt.Errorf("%w %v to a Code", ErrCannotConvert, v.RuntimeType())
	}
	return c, nil
}

// NonNullCodeValues returns c's Codes, a convenience for callers (like the clinical "in" operators)
// that want to skip nil entries in a future []*Code representation; Codes here is never sparse.
func (c Concept) NonNullCodeValues() []Code { return c.Codes }

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
	"time"

	"github.com/clinical-lang/cqlfhir/model"
	"github.com/clinical-lang/cqlfhir/result"
)

// dateTimeComponents pulls the Year/Month/Day/.../Millisecond/TimezoneOffset operand list shared
// by the Date, DateTime, and Time constructors, reporting the precision implied by how many
// operands were actually supplied - an unsupplied trailing component takes its default (minimum)
// value, and the precision is that of the last supplied component.
func dateTimeComponents(ops []result.Value, precisions []model.DateTimePrecision, defaults []int) ([]int, model.DateTimePrecision, bool, error) {
	vals := make([]int, len(defaults))
	copy(vals, defaults)
	precision := precisions[0]
	sawNull := false
	for idx, op := range ops {
		if idx >= len(vals) {
			break
		}
		if result.IsNull(op) {
			sawNull = true
			break
		}
		n, err := mustInt32(op)
		if err != nil {
			return nil, precision, false, err
		}
		vals[idx] = int(n)
		precision = precisions[idx]
	}
	return vals, precision, sawNull, nil
}

// evalDateConstructor implements the Date(year, month, day) system function.
func (i *interpreter) evalDateConstructor(ops []result.Value) (result.Value, error) {
	if len(ops) == 0 || result.IsNull(ops[0]) {
		return result.Null(), nil
	}
	precisions := []model.DateTimePrecision{model.Year, model.Month, model.Day}
	vals, precision, sawNull, err := dateTimeComponents(ops, precisions, []int{1, 1, 1})
	if err != nil {
		return result.Value{}, err
	}
	if sawNull {
		return result.Null(), nil
	}
	loc := i.evalTimestamp.Location()
	t := time.Date(vals[0], time.Month(vals[1]), vals[2], 0, 0, 0, 0, loc)
	return result.New(result.Date{Date: t, Precision: precision})
}

// evalDateTimeConstructor implements the DateTime(year, month, day, hour, minute, second,
// millisecond, timezoneOffset) system function.
func (i *interpreter) evalDateTimeConstructor(ops []result.Value) (result.Value, error) {
	if len(ops) == 0 || result.IsNull(ops[0]) {
		return result.Null(), nil
	}
	precisions := []model.DateTimePrecision{
		model.Year, model.Month, model.Day, model.Hour, model.Minute, model.Second, model.Millisecond,
	}
	componentOps := ops
	hasTimezone := false
	var tzOffsetHours float64
	if len(ops) > 7 && !result.IsNull(ops[7]) {
		componentOps = ops[:7]
		tz, err := toDecimalOperand(ops[7])
		if err != nil {
			return result.Value{}, err
		}
		tzOffsetHours, _ = tz.Float64()
		hasTimezone = true
	} else if len(ops) > 7 {
		componentOps = ops[:7]
	}
	vals, precision, sawNull, err := dateTimeComponents(componentOps, precisions, []int{1, 1, 1, 0, 0, 0, 0})
	if err != nil {
		return result.Value{}, err
	}
	if sawNull {
		return result.Null(), nil
	}
	loc := i.evalTimestamp.Location()
	if hasTimezone {
		loc = time.FixedZone("", int(tzOffsetHours*3600))
	}
	t := time.Date(vals[0], time.Month(vals[1]), vals[2], vals[3], vals[4], vals[5], vals[6]*1_000_000, loc)
	return result.New(result.DateTime{Date: t, Precision: precision, HasTimezone: hasTimezone})
}

// evalTimeConstructor implements the Time(hour, minute, second, millisecond) system function.
func (i *interpreter) evalTimeConstructor(ops []result.Value) (result.Value, error) {
	if len(ops) == 0 || result.IsNull(ops[0]) {
		return result.Null(), nil
	}
	precisions := []model.DateTimePrecision{model.Hour, model.Minute, model.Second, model.Millisecond}
	vals, precision, sawNull, err := dateTimeComponents(ops, precisions, []int{0, 0, 0, 0})
	if err != nil {
		return result.Value{}, err
	}
	if sawNull {
		return result.Null(), nil
	}
	t := time.Date(0, 1, 1, vals[0], vals[1], vals[2], vals[3]*1_000_000, time.UTC)
	return result.New(result.Time{Date: t, Precision: precision})
}

// evalNow, evalToday, and evalTimeOfDay are all derived from the engine's single evaluation
// timestamp, never from time.Now() directly, so that every reference to "now" within one
// evaluation - however many times it is called - agrees.
func (i *interpreter) evalNow() (result.Value, error) {
	return result.New(result.DateTime{Date: i.evalTimestamp, Precision: model.Millisecond, HasTimezone: true})
}

func (i *interpreter) evalToday() (result.Value, error) {
	ts := i.evalTimestamp
	d := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, ts.Location())
	return result.New(result.Date{Date: d, Precision: model.Day})
}

func (i *interpreter) evalTimeOfDay() (result.Value, error) {
	ts := i.evalTimestamp
	t := time.Date(0, 1, 1, ts.Hour(), ts.Minute(), ts.Second(), ts.Nanosecond()/1_000_000*1_000_000, time.UTC)
	return result.New(result.Time{Date: t, Precision: model.Millisecond})
}

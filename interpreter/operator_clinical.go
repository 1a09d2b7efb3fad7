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

	"github.com/clinical-lang/cqlfhir/model"
	"github.com/clinical-lang/cqlfhir/navigator"
	"github.com/clinical-lang/cqlfhir/result"
	"github.com/clinical-lang/cqlfhir/terminology"
)

// terminologyCode is the unit terminology membership is evaluated over.
type terminologyCode = terminology.Code

// defaultCodeProperty is the FHIR property a Retrieve's terminology filter is matched against when
// no explicit path is given - "code" covers the common clinical resources (Condition.code,
// Observation.code, MedicationRequest.medication, ...) that this engine targets.
const defaultCodeProperty = "code"

func (i *interpreter) evalInCodeSystem(l, r result.Value) (result.Value, error) {
	if result.IsNull(l) {
		return result.Null(), nil
	}
	codes, err := valueToTermCodes(l)
	if err != nil {
		return result.Value{}, err
	}
	cs, err := result.ToCodeSystem(r)
	if err != nil {
		return result.Value{}, err
	}
	if i.terminologyProvider == nil {
		return result.Value{}, fmt.Errorf("in CodeSystem %s: no terminology provider configured", cs.ID)
	}
	ok, err := i.terminologyProvider.AnyInCodeSystem(codes, cs.ID, cs.Version)
	if err != nil {
		return result.Value{}, err
	}
	return result.New(ok)
}

func (i *interpreter) evalInValueSet(l, r result.Value) (result.Value, error) {
	if result.IsNull(l) {
		return result.Null(), nil
	}
	codes, err := valueToTermCodes(l)
	if err != nil {
		return result.Value{}, err
	}
	vs, err := result.ToValueSet(r)
	if err != nil {
		return result.Value{}, err
	}
	if i.terminologyProvider == nil {
		return result.Value{}, fmt.Errorf("in ValueSet %s: no terminology provider configured", vs.ID)
	}
	ok, err := i.terminologyProvider.AnyInValueSet(codes, vs.ID, vs.Version)
	if err != nil {
		return result.Value{}, err
	}
	return result.New(ok)
}

// valueToTermCodes converts a Code, Concept, or List<Code|Concept> result.Value into the flat code
// set a terminology.Provider membership test is evaluated over.
func valueToTermCodes(v result.Value) ([]terminologyCode, error) {
	if result.IsNull(v) {
		return nil, nil
	}
	switch gv := v.GolangValue().(type) {
	case result.Code:
		return []terminologyCode{{Code: gv.Code, System: gv.System, Display: gv.Display}}, nil
	case result.Concept:
		out := make([]terminologyCode, len(gv.Codes))
		for idx, c := range gv.Codes {
			out[idx] = terminologyCode{Code: c.Code, System: c.System, Display: c.Display}
		}
		return out, nil
	case result.List:
		var out []terminologyCode
		for _, e := range gv.Value {
			cs, err := valueToTermCodes(e)
			if err != nil {
				return nil, err
			}
			out = append(out, cs...)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w %v to a terminology code", result.ErrCannotConvert, v.RuntimeType())
	}
}

// evalCalculateAge computes a patient's age, as of the engine's evaluation timestamp, in the given
// precision unit (Years by default) - the complete-elapsed-unit count, the same semantics as
// DurationBetween(birthDate, Today(), precision).
func (i *interpreter) evalCalculateAge(ops []result.Value) (result.Value, error) {
	now, err := result.New(result.DateTime{Date: i.evalTimestamp, Precision: model.Millisecond, HasTimezone: true})
	if err != nil {
		return result.Value{}, err
	}
	return i.calculateAge(ops[0], now, ops, 1)
}

// evalCalculateAgeAt computes age as of an explicit asOf date/time operand rather than the
// evaluation timestamp.
func (i *interpreter) evalCalculateAgeAt(ops []result.Value) (result.Value, error) {
	return i.calculateAge(ops[0], ops[1], ops, 2)
}

func (i *interpreter) calculateAge(birth, asOf result.Value, ops []result.Value, precisionIdx int) (result.Value, error) {
	if result.IsNull(birth) || result.IsNull(asOf) {
		return result.Null(), nil
	}
	precision := model.Year
	if len(ops) > precisionIdx && !result.IsNull(ops[precisionIdx]) {
		if s, err := result.ToString(ops[precisionIdx]); err == nil {
			precision = model.DateTimePrecision(normalizeUnit(s))
		}
	}
	from, err := result.ToDateTime(birth)
	if err != nil {
		return result.Value{}, err
	}
	to, err := result.ToDateTime(asOf)
	if err != nil {
		return result.Value{}, err
	}
	_, duration := calendarDiffDuration(from.Date, to.Date, precision)
	return result.New(int32(duration))
}

// resourceMatchesCodes reports whether resource's code property contains any of codes.
func (i *interpreter) resourceMatchesCodes(resource result.Value, codes []terminologyCode) (bool, error) {
	named, err := result.ToNamed(resource)
	if err != nil {
		return false, err
	}
	prop, err := navigator.Property(named, defaultCodeProperty, nil, i.evalTimestamp.Location())
	if err != nil {
		return false, err
	}
	if result.IsNull(prop) {
		return false, nil
	}
	resourceCodes, err := valueToTermCodes(prop)
	if err != nil {
		return false, nil //nolint:nilerr // an unconvertible property simply fails to match
	}
	for _, rc := range resourceCodes {
		for _, c := range codes {
			if rc.Code == c.Code && rc.System == c.System {
				return true, nil
			}
		}
	}
	return false, nil
}

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

// Package navigator walks decoded FHIR resource JSON trees, resolving CQL/FHIRPath property access
// (including choice[x] polymorphic elements) against the declared static type from
// internal/modelinfo. It plays the role the teacher's proto-reflection-based property evaluator
// plays, but over map-free raw JSON bytes via jsonparser rather than generated FHIR proto messages,
// since this module's FHIR surface is plain JSON (spec.md §4.4), not protobuf.
package navigator

import (
	"fmt"
	"time"

	"github.com/buger/jsonparser"
	"github.com/iancoleman/strcase"
	"github.com/shopspring/decimal"

	"github.com/clinical-lang/cqlfhir/internal/datehelpers"
	"github.com/clinical-lang/cqlfhir/internal/modelinfo"
	"github.com/clinical-lang/cqlfhir/result"
	"github.com/clinical-lang/cqlfhir/types"
)

// Node is an opaque handle onto a position within a FHIR resource's decoded JSON tree. It is stored
// in result.Named.Node (typed `any` there specifically so result does not import this package) and
// recovered here via a type assertion that only this package performs.
type Node struct {
	data []byte
}

// ResourceType extracts the "resourceType" discriminator from a top-level FHIR resource document.
func ResourceType(data []byte) (string, error) {
	rt, err := jsonparser.GetString(data, "resourceType")
	if err != nil {
		return "", fmt.Errorf("FHIR resource JSON missing resourceType: %w", err)
	}
	return rt, nil
}

// NewResource wraps a top-level FHIR resource JSON document as a result.Value, with its runtime
// type derived from the document's resourceType.
func NewResource(data []byte, mi *modelinfo.ModelInfos) (result.Value, error) {
	rt, err := ResourceType(data)
	if err != nil {
		return result.Value{}, err
	}
	named, err := mi.ToNamed(rt)
	if err != nil {
		return result.Value{}, err
	}
	return result.New(result.Named{Node: Node{data: data}, RuntimeType: named})
}

// Property resolves `property` on the FHIR node underlying src, per the property's static result
// type staticResultType (as computed by modelinfo.PropertyTypeSpecifier). evalLoc is the evaluation
// timezone used to interpret timezone-less FHIR date/time strings. A property absent from the JSON
// tree evaluates to Null, never an error, matching spec.md's navigator semantics.
func Property(src result.Named, property string, staticResultType types.IType, evalLoc *time.Location) (result.Value, error) {
	n, ok := src.Node.(Node)
	if !ok {
		return result.Value{}, fmt.Errorf("internal error - FHIR node has unexpected underlying type %T", src.Node)
	}

	if choice, ok := staticResultType.(*types.Choice); ok {
		return propertyChoice(n, property, choice, evalLoc)
	}
	if list, ok := staticResultType.(*types.List); ok {
		return propertyList(n, property, list, evalLoc)
	}

	// TODO: a primitive field's "_field" extension sibling (e.g. "_birthDate": {"extension": [...]})
	// is not merged in. Doing so needs a primitive representation that still carries a Node for
	// subsequent ".extension"/".id" navigation, which the plain System-typed scalar returned below
	// does not; tracked as a follow-up rather than bolted on here.
	data, dt, _, err := jsonparser.Get(n.data, property)
	if err != nil {
		return result.Null(), nil
	}
	return valueFromJSON(data, dt, staticResultType, evalLoc)
}

// propertyChoice resolves a FHIR choice[x] element (e.g. Observation.value, Condition.onset) by
// trying, for each candidate type in the declared Choice, the JSON key formed from `property` plus
// that type's UpperCamelCase FHIR suffix (Observation.value + Quantity -> "valueQuantity").
func propertyChoice(n Node, property string, choice *types.Choice, evalLoc *time.Location) (result.Value, error) {
	for _, ct := range choice.ChoiceTypes {
		suffix, ok := choiceSuffix(ct)
		if !ok {
			continue
		}
		key := property + strcase.ToCamel(suffix)
		data, dt, _, err := jsonparser.Get(n.data, key)
		if err != nil {
			continue
		}
		return valueFromJSON(data, dt, ct, evalLoc)
	}
	return result.Null(), nil
}

// choiceSuffix returns the UpperCamelCase FHIR JSON suffix used for a choice[x] candidate type.
func choiceSuffix(t types.IType) (string, bool) {
	switch tt := t.(type) {
	case types.System:
		switch tt {
		case types.Boolean:
			return "Boolean", true
		case types.String:
			return "String", true
		case types.Integer:
			return "Integer", true
		case types.Decimal:
			return "Decimal", true
		case types.Date:
			return "Date", true
		case types.DateTime:
			return "DateTime", true
		case types.Time:
			return "Time", true
		case types.Quantity:
			return "Quantity", true
		}
		return "", false
	case *types.Named:
		return tt.TypeName, true
	case *types.Interval:
		if sys, ok := tt.PointType.(types.System); ok && sys == types.DateTime {
			return "Period", true
		}
		return "", false
	default:
		return "", false
	}
}

// propertyList resolves a repeating FHIR element (e.g. Patient.name, Observation.component) into a
// result.List, converting each array element per the list's declared element type.
func propertyList(n Node, property string, list *types.List, evalLoc *time.Location) (result.Value, error) {
	data, dt, _, err := jsonparser.Get(n.data, property)
	if err != nil || dt != jsonparser.Array {
		return result.New(result.List{StaticType: list})
	}

	var values []result.Value
	var iterErr error
	jsonparser.ArrayEach(data, func(elemData []byte, elemType jsonparser.ValueType, _ int, _ error) {
		if iterErr != nil {
			return
		}
		v, err := valueFromJSON(elemData, elemType, list.ElementType, evalLoc)
		if err != nil {
			iterErr = err
			return
		}
		values = append(values, v)
	})
	if iterErr != nil {
		return result.Value{}, fmt.Errorf("at %s: %w", property, iterErr)
	}
	return result.New(result.List{Value: values, StaticType: list})
}

// valueFromJSON converts a single raw JSON value into a result.Value, shaped by the desired static
// type. Unrecognized/Any-typed properties fall back to shape-driven inference from the JSON itself.
func valueFromJSON(data []byte, dt jsonparser.ValueType, desired types.IType, evalLoc *time.Location) (result.Value, error) {
	if dt == jsonparser.Null || dt == jsonparser.NotExist {
		return result.Null(), nil
	}

	switch d := desired.(type) {
	case types.System:
		return primitiveValue(data, dt, d, evalLoc)
	case *types.Named:
		return result.New(result.Named{Node: Node{data: data}, RuntimeType: d})
	case *types.List:
		if dt != jsonparser.Array {
			return result.Value{}, fmt.Errorf("internal error - expected a JSON array for %v, got %v", d, dt)
		}
		var values []result.Value
		var iterErr error
		jsonparser.ArrayEach(data, func(elemData []byte, elemType jsonparser.ValueType, _ int, _ error) {
			if iterErr != nil {
				return
			}
			v, err := valueFromJSON(elemData, elemType, d.ElementType, evalLoc)
			if err != nil {
				iterErr = err
				return
			}
			values = append(values, v)
		})
		if iterErr != nil {
			return result.Value{}, iterErr
		}
		return result.New(result.List{Value: values, StaticType: d})
	case *types.Interval:
		if dt != jsonparser.Object {
			return result.Value{}, fmt.Errorf("internal error - expected a JSON object for %v, got %v", d, dt)
		}
		return intervalFromObject(data, d, evalLoc)
	default:
		return valueFromJSONAny(data, dt, evalLoc)
	}
}

// primitiveValue converts a JSON scalar or object into a System-typed result.Value. Most System
// types are carried as bare JSON scalars (string/number/boolean); Quantity, Code, and Concept are
// carried as small FHIR JSON objects even though they are System, not Named, types in this module's
// type system (spec.md models them as primitives, matching CQL's System library rather than FHIR's
// data model).
func primitiveValue(data []byte, dt jsonparser.ValueType, sys types.System, evalLoc *time.Location) (result.Value, error) {
	switch sys {
	case types.Boolean:
		b, err := jsonparser.ParseBoolean(data)
		if err != nil {
			return result.Value{}, err
		}
		return result.New(b)
	case types.String:
		s, err := jsonparser.ParseString(data)
		if err != nil {
			return result.Value{}, err
		}
		return result.New(s)
	case types.Integer:
		i, err := jsonparser.ParseInt(data)
		if err != nil {
			return result.Value{}, err
		}
		return result.New(int32(i))
	case types.Long:
		i, err := jsonparser.ParseInt(data)
		if err != nil {
			return result.Value{}, err
		}
		return result.New(i)
	case types.Decimal:
		dec, err := decimal.NewFromString(string(data))
		if err != nil {
			return result.Value{}, fmt.Errorf("invalid decimal %q: %w", string(data), err)
		}
		return result.New(dec)
	case types.Date:
		s, err := jsonparser.ParseString(data)
		if err != nil {
			return result.Value{}, err
		}
		t, prec, err := datehelpers.ParseFHIRDate(s, evalLoc)
		if err != nil {
			return result.Value{}, err
		}
		return result.New(result.Date{Date: t, Precision: prec})
	case types.DateTime:
		s, err := jsonparser.ParseString(data)
		if err != nil {
			return result.Value{}, err
		}
		t, prec, hasTZ, err := datehelpers.ParseFHIRDateTime(s, evalLoc)
		if err != nil {
			return result.Value{}, err
		}
		return result.New(result.DateTime{Date: t, Precision: prec, HasTimezone: hasTZ})
	case types.Time:
		s, err := jsonparser.ParseString(data)
		if err != nil {
			return result.Value{}, err
		}
		t, prec, err := datehelpers.ParseFHIRTime(s)
		if err != nil {
			return result.Value{}, err
		}
		return result.New(result.Time{Date: t, Precision: prec})
	case types.Quantity:
		return quantityFromObject(data)
	case types.Code:
		return codeFromObject(data)
	case types.Concept:
		return conceptFromObject(data)
	default:
		return result.Value{}, fmt.Errorf("property navigation does not support type %v", sys)
	}
}

func quantityFromObject(data []byte) (result.Value, error) {
	valData, valType, _, err := jsonparser.Get(data, "value")
	if err != nil || valType != jsonparser.Number {
		return result.Value{}, fmt.Errorf("FHIR Quantity missing numeric value")
	}
	val, err := decimal.NewFromString(string(valData))
	if err != nil {
		return result.Value{}, fmt.Errorf("invalid Quantity value %q: %w", string(valData), err)
	}
	unit, err := jsonparser.GetString(data, "unit")
	if err != nil {
		// FHIR Quantity may carry only a UCUM "code" when no display unit is given.
		unit, err = jsonparser.GetString(data, "code")
		if err != nil {
			unit = ""
		}
	}
	return result.New(result.Quantity{Value: val, Unit: unit})
}

func codeFromObject(data []byte) (result.Value, error) {
	system, _ := jsonparser.GetString(data, "system")
	code, _ := jsonparser.GetString(data, "code")
	version, _ := jsonparser.GetString(data, "version")
	display, _ := jsonparser.GetString(data, "display")
	return result.New(result.Code{System: system, Code: code, Version: version, Display: display})
}

func conceptFromObject(data []byte) (result.Value, error) {
	text, _ := jsonparser.GetString(data, "text")
	var codes []result.Code
	codingData, codingType, _, err := jsonparser.Get(data, "coding")
	if err == nil && codingType == jsonparser.Array {
		var iterErr error
		jsonparser.ArrayEach(codingData, func(elemData []byte, _ jsonparser.ValueType, _ int, _ error) {
			if iterErr != nil {
				return
			}
			v, err := codeFromObject(elemData)
			if err != nil {
				iterErr = err
				return
			}
			codes = append(codes, v.GolangValue().(result.Code))
		})
		if iterErr != nil {
			return result.Value{}, iterErr
		}
	}
	if len(codes) == 0 {
		// result.New requires at least one Code; a text-only CodeableConcept with no coding still
		// needs to be representable, so fall back to a placeholder empty Code.
		codes = []result.Code{{}}
	}
	return result.New(result.Concept{Display: text, Codes: codes})
}

// intervalFromObject builds a result.Interval from a FHIR Period-shaped object ({"start", "end"}).
func intervalFromObject(data []byte, ivl *types.Interval, evalLoc *time.Location) (result.Value, error) {
	low, err := intervalBound(data, "start", ivl.PointType, evalLoc)
	if err != nil {
		return result.Value{}, err
	}
	high, err := intervalBound(data, "end", ivl.PointType, evalLoc)
	if err != nil {
		return result.Value{}, err
	}
	return result.New(result.Interval{
		Low: low, High: high, LowInclusive: true, HighInclusive: true, PointType: ivl.PointType,
	})
}

func intervalBound(data []byte, field string, pointType types.IType, evalLoc *time.Location) (result.Value, error) {
	boundData, boundType, _, err := jsonparser.Get(data, field)
	if err != nil {
		return result.Null(), nil
	}
	return valueFromJSON(boundData, boundType, pointType, evalLoc)
}

// Children returns the immediate child elements of src's FHIR node, in field order, with no static
// type guidance - used by the Children()/Descendants() FHIRPath functions, which walk the tree
// shape-first rather than through modelinfo-declared property types.
func Children(src result.Named) ([]result.Value, error) {
	n, ok := src.Node.(Node)
	if !ok {
		return nil, fmt.Errorf("internal error - FHIR node has unexpected underlying type %T", src.Node)
	}
	var children []result.Value
	var iterErr error
	err := jsonparser.ObjectEach(n.data, func(key []byte, value []byte, dt jsonparser.ValueType, _ int) error {
		if string(key) == "resourceType" {
			return nil
		}
		v, err := valueFromJSONAny(value, dt, time.UTC)
		if err != nil {
			iterErr = err
			return nil
		}
		if !result.IsNull(v) {
			children = append(children, v)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("internal error - walking FHIR node children: %w", err)
	}
	if iterErr != nil {
		return nil, iterErr
	}
	return children, nil
}

// valueFromJSONAny infers a result.Value directly from the JSON shape, used for properties this
// module's modelinfo table doesn't declare a static type for. Objects become Named values typed as
// the generic FHIR "Element" base, since no more specific type name is known.
func valueFromJSONAny(data []byte, dt jsonparser.ValueType, evalLoc *time.Location) (result.Value, error) {
	switch dt {
	case jsonparser.String:
		s, err := jsonparser.ParseString(data)
		if err != nil {
			return result.Value{}, err
		}
		return result.New(s)
	case jsonparser.Boolean:
		b, err := jsonparser.ParseBoolean(data)
		if err != nil {
			return result.Value{}, err
		}
		return result.New(b)
	case jsonparser.Number:
		if i, err := jsonparser.ParseInt(data); err == nil && string(data) == fmt.Sprint(i) {
			return result.New(int32(i))
		}
		dec, err := decimal.NewFromString(string(data))
		if err != nil {
			return result.Value{}, fmt.Errorf("invalid number %q: %w", string(data), err)
		}
		return result.New(dec)
	case jsonparser.Object:
		return result.New(result.Named{Node: Node{data: data}, RuntimeType: &types.Named{TypeName: "Element"}})
	case jsonparser.Array:
		var values []result.Value
		var iterErr error
		jsonparser.ArrayEach(data, func(elemData []byte, elemType jsonparser.ValueType, _ int, _ error) {
			if iterErr != nil {
				return
			}
			v, err := valueFromJSONAny(elemData, elemType, evalLoc)
			if err != nil {
				iterErr = err
				return
			}
			values = append(values, v)
		})
		if iterErr != nil {
			return result.Value{}, iterErr
		}
		return result.New(result.List{Value: values, StaticType: &types.List{ElementType: types.Any}})
	default:
		return result.Null(), nil
	}
}

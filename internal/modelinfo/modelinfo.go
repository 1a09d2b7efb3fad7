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

// Package modelinfo describes the FHIR data model surface the resolver and interpreter need:
// which FHIR type names exist, what implicitly converts to what, and the declared property types
// of FHIR resources/complex types. Unlike a full FHIR ModelInfo XML load, this is a small static
// table covering the resources and data types spec.md's examples exercise; unknown Named types and
// unknown properties resolve to Any rather than erroring, matching the navigator's
// unknown-member-is-empty rule.
package modelinfo

import (
	"fmt"
	"strings"

	"github.com/clinical-lang/cqlfhir/types"
)

// Convertible is the result of checking whether one type implicitly converts to another via a
// named helper function.
type Convertible struct {
	IsConvertible bool
	Library       string
	Function      string
	OutputType    types.IType
}

// ModelInfos holds the FHIR model surface for a single `using FHIR version 'X.Y.Z'` declaration.
type ModelInfos struct {
	usingSet      bool
	defaultCtx    string
	birthDateProp string
}

// New returns a ModelInfos covering the FHIR R4 surface this module understands. modelInfoBytes is
// accepted for signature parity with how a caller might supply an external model description, but
// is unused: this module's FHIR surface is a fixed static table, not XML-loaded.
func New(modelInfoBytes [][]byte) (*ModelInfos, error) {
	return &ModelInfos{defaultCtx: "Patient", birthDateProp: "birthDate"}, nil
}

// SetUsing records that a `using FHIR` statement was seen. Named type resolution below is only
// valid once this has been called.
func (m *ModelInfos) SetUsing() { m.usingSet = true }

// UsingSet reports whether a `using FHIR` declaration is in effect.
func (m *ModelInfos) UsingSet() bool { return m.usingSet }

// DefaultContext returns the CQL context implied by the data model when no `context` statement is
// declared ("Patient" for FHIR).
func (m *ModelInfos) DefaultContext() (string, error) {
	return m.defaultCtx, nil
}

// PatientBirthDatePropertyName returns the FHIR Patient property used by `context Patient`
// expressions like AgeInYears() to locate the subject's birth date.
func (m *ModelInfos) PatientBirthDatePropertyName() (string, error) {
	return m.birthDateProp, nil
}

// ToNamed resolves a bare or qualified FHIR type name (e.g. "Patient", "FHIR.Patient") to a Named
// type. Any identifier is accepted: the navigator treats unknown resource/complex types the same
// as known ones, since its model is JSON-shaped rather than schema-validated.
func (m *ModelInfos) ToNamed(str string) (*types.Named, error) {
	name := strings.TrimPrefix(str, "FHIR.")
	if name == "" {
		return nil, fmt.Errorf("empty type name")
	}
	return &types.Named{TypeName: name}, nil
}

// systemConversionFn names the conversion function for each (from, to) System pair this module
// implicitly widens.
var systemConversionFn = map[[2]types.System]string{
	{types.Integer, types.Long}:    "ToLong",
	{types.Integer, types.Decimal}: "ToDecimal",
	{types.Long, types.Decimal}:    "ToDecimal",
	{types.Date, types.DateTime}:   "ToDateTime",
	{types.Integer, types.Quantity}: "ToQuantity",
	{types.Long, types.Quantity}:    "ToQuantity",
	{types.Decimal, types.Quantity}: "ToQuantity",
}

// fhirPrimitiveToSystem maps common FHIR primitive type names to the System type FHIRHelpers
// converts them to, per spec.md's "FHIR primitives convert to System types" rule.
var fhirPrimitiveToSystem = map[string]types.System{
	"boolean":  types.Boolean,
	"integer":  types.Integer,
	"decimal":  types.Decimal,
	"string":   types.String,
	"uri":      types.String,
	"url":      types.String,
	"code":     types.String,
	"id":       types.String,
	"markdown": types.String,
	"date":     types.Date,
	"dateTime": types.DateTime,
	"instant":  types.DateTime,
	"time":     types.Time,
}

// IsImplicitlyConvertible reports whether a value of type `from` implicitly converts to `to`,
// and if so which helper function performs the conversion.
func (m *ModelInfos) IsImplicitlyConvertible(from, to types.IType) (Convertible, error) {
	if fromSys, ok := from.(types.System); ok {
		if toSys, ok := to.(types.System); ok {
			if fn, ok := systemConversionFn[[2]types.System{fromSys, toSys}]; ok {
				return Convertible{IsConvertible: true, Library: "SYSTEM", Function: fn, OutputType: to}, nil
			}
		}
	}
	if named, ok := from.(*types.Named); ok {
		if toSys, ok := to.(types.System); ok {
			if sys, known := fhirPrimitiveToSystem[named.TypeName]; known && sys == toSys {
				return Convertible{
					IsConvertible: true,
					Library:       "FHIRHelpers",
					Function:      "To" + string(toSys)[len("System."):],
					OutputType:    to,
				}, nil
			}
		}
	}
	return Convertible{}, nil
}

// BaseTypes returns the immediate supertype(s) of child used to walk the subtype lattice; System
// types have none besides Any (handled separately by convert.OperandImplicitConverter), and Named
// FHIR types have none in this module's flat, schema-less model.
func (m *ModelInfos) BaseTypes(child types.IType) ([]types.IType, error) {
	return nil, nil
}

// IsSubType reports whether child is a subtype of base. This module's FHIR model carries no class
// hierarchy (Patient does not "extend" DomainResource here), so the only subtype relationship is
// identity, which callers should already have special-cased as an exact match; IsSubType therefore
// always returns false, pushing every other case through the implicit-conversion machinery.
func (m *ModelInfos) IsSubType(child, base types.IType) (bool, error) {
	return false, nil
}

// PropertyTypeSpecifier returns the static type of `property` on `parentType`, looked up in the
// small table below. Unknown parent types or unknown properties return types.Any: the interpreter
// falls back to runtime navigation, and an absent FHIR member evaluates to empty per spec.md's
// navigator semantics rather than a compile-time error.
func (m *ModelInfos) PropertyTypeSpecifier(parentType types.IType, property string) (types.IType, error) {
	named, ok := parentType.(*types.Named)
	if !ok {
		return types.Any, nil
	}
	props, ok := resourceProperties[named.TypeName]
	if !ok {
		return types.Any, nil
	}
	if t, ok := props[property]; ok {
		return t, nil
	}
	return types.Any, nil
}

func listOf(name string) types.IType { return &types.List{ElementType: &types.Named{TypeName: name}} }

// resourceProperties is a small, hand-maintained table of declared property types for the
// resources and data types exercised by this module's tests. It is intentionally not exhaustive:
// any property missing from it resolves to Any and is still navigable at runtime via
// the navigator package, matching spec.md's "unknown member -> empty, never an error" rule.
var resourceProperties = map[string]map[string]types.IType{
	"Patient": {
		"id":        types.String,
		"birthDate": types.Date,
		"gender":    types.String,
		"active":    types.Boolean,
		"name":      listOf("HumanName"),
		"address":   listOf("Address"),
		"telecom":   listOf("ContactPoint"),
	},
	"Observation": {
		"id":             types.String,
		"status":         types.String,
		"code":           &types.Named{TypeName: "CodeableConcept"},
		"value":          &types.Choice{ChoiceTypes: []types.IType{types.Quantity, types.String, types.Boolean, &types.Named{TypeName: "CodeableConcept"}}},
		"effective":      &types.Choice{ChoiceTypes: []types.IType{types.DateTime, &types.Interval{PointType: types.DateTime}}},
		"subject":        &types.Named{TypeName: "Reference"},
		"component":      listOf("ObservationComponent"),
		"category":       listOf("CodeableConcept"),
		"issued":         types.DateTime,
	},
	"Condition": {
		"id":        types.String,
		"clinicalStatus": &types.Named{TypeName: "CodeableConcept"},
		"code":      &types.Named{TypeName: "CodeableConcept"},
		"subject":   &types.Named{TypeName: "Reference"},
		"onset":     &types.Choice{ChoiceTypes: []types.IType{types.DateTime, types.String, &types.Interval{PointType: types.DateTime}}},
		"abatement": &types.Choice{ChoiceTypes: []types.IType{types.DateTime, types.String, &types.Interval{PointType: types.DateTime}}},
	},
	"Encounter": {
		"id":     types.String,
		"status": types.String,
		"class":  &types.Named{TypeName: "Coding"},
		"period": &types.Interval{PointType: types.DateTime},
		"subject": &types.Named{TypeName: "Reference"},
	},
	"MedicationRequest": {
		"id":           types.String,
		"status":       types.String,
		"intent":       types.String,
		"medication":   &types.Choice{ChoiceTypes: []types.IType{&types.Named{TypeName: "CodeableConcept"}, &types.Named{TypeName: "Reference"}}},
		"subject":      &types.Named{TypeName: "Reference"},
		"authoredOn":   types.DateTime,
	},
	"CodeableConcept": {
		"coding": listOf("Coding"),
		"text":   types.String,
	},
	"Coding": {
		"system":  types.String,
		"version": types.String,
		"code":    types.String,
		"display": types.String,
	},
	"HumanName": {
		"use":    types.String,
		"family": types.String,
		"given":  &types.List{ElementType: types.String},
		"text":   types.String,
	},
	"Reference": {
		"reference": types.String,
		"display":   types.String,
	},
	"Period": {
		"start": types.DateTime,
		"end":   types.DateTime,
	},
	"ObservationComponent": {
		"code":  &types.Named{TypeName: "CodeableConcept"},
		"value": &types.Choice{ChoiceTypes: []types.IType{types.Quantity, types.String, types.Boolean}},
	},
}

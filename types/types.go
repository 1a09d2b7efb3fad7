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

// Package types holds the CQL/FHIRPath static type system shared by the parser and interpreter.
package types

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// IType is implemented by every CQL/FHIRPath type representation.
type IType interface {
	// Equal is strict: X.Equal(Y) holds only when X and Y are the exact same type.
	Equal(IType) bool
	// String returns a human readable rendering, used in diagnostics.
	String() string
	// ModelInfoName returns the canonical name used to key the conversion-cost and overload
	// tables (e.g. "System.Integer", "Interval<System.Date>", "Patient").
	ModelInfoName() (string, error)
}

var errTypeNil = errors.New("internal error - nil type")

// System is a CQL/FHIRPath system (primitive) type.
type System string

// The CQL system types (https://cql.hl7.org/09-b-cqlreference.html#types-2).
const (
	Unset      System = "System.UnsetType"
	Any        System = "System.Any"
	String     System = "System.String"
	Integer    System = "System.Integer"
	Decimal    System = "System.Decimal"
	Long       System = "System.Long"
	Quantity   System = "System.Quantity"
	Ratio      System = "System.Ratio"
	Boolean    System = "System.Boolean"
	DateTime   System = "System.DateTime"
	Date       System = "System.Date"
	Time       System = "System.Time"
	ValueSet   System = "System.ValueSet"
	CodeSystem System = "System.CodeSystem"
	Vocabulary System = "System.Vocabulary"
	Code       System = "System.Code"
	Concept    System = "System.Concept"
)

// ToSystem converts a bare or qualified type name to a System type, or Unset if unrecognized.
func ToSystem(s string) System {
	switch strings.TrimPrefix(s, "System.") {
	case "Any":
		return Any
	case "String":
		return String
	case "Integer":
		return Integer
	case "Decimal":
		return Decimal
	case "Long":
		return Long
	case "Quantity":
		return Quantity
	case "Ratio":
		return Ratio
	case "Boolean":
		return Boolean
	case "DateTime":
		return DateTime
	case "Date":
		return Date
	case "Time":
		return Time
	case "ValueSet":
		return ValueSet
	case "CodeSystem":
		return CodeSystem
	case "Vocabulary":
		return Vocabulary
	case "Code":
		return Code
	case "Concept":
		return Concept
	default:
		return Unset
	}
}

// Equal reports whether a is the exact same System type.
func (s System) Equal(a IType) bool {
	aBase, ok := a.(System)
	return ok && s == aBase
}

// String implements fmt.Stringer.
func (s System) String() string { return string(s) }

// ModelInfoName returns the fully qualified system type name.
func (s System) ModelInfoName() (string, error) { return string(s), nil }

// Named is a type defined by the data model (e.g. FHIR.Patient, FHIR.HumanName).
type Named struct {
	TypeName string
}

// Equal reports whether a is a Named type with the same TypeName.
func (n *Named) Equal(a IType) bool {
	aName, ok := a.(*Named)
	if !ok {
		return false
	}
	if n == nil || aName == nil {
		return n == aName
	}
	return n.TypeName == aName.TypeName
}

// String implements fmt.Stringer.
func (n *Named) String() string {
	if n == nil {
		return "nil Named"
	}
	return fmt.Sprintf("Named<%s>", n.TypeName)
}

// ModelInfoName returns TypeName as stored; FHIR type names are kept without a "FHIR." prefix.
func (n *Named) ModelInfoName() (string, error) {
	if n == nil {
		return "", errTypeNil
	}
	return n.TypeName, nil
}

// Interval is the type of an Interval value over PointType.
type Interval struct {
	PointType IType
}

// Equal reports whether a is an Interval type over the same PointType.
func (i *Interval) Equal(a IType) bool {
	aInterval, ok := a.(*Interval)
	if !ok {
		return false
	}
	if i == nil || aInterval == nil {
		return i == aInterval
	}
	if i.PointType == nil || aInterval.PointType == nil {
		return i.PointType == aInterval.PointType
	}
	return i.PointType.Equal(aInterval.PointType)
}

// String implements fmt.Stringer.
func (i *Interval) String() string {
	if i == nil {
		return "nil Interval"
	}
	if i.PointType == nil {
		return "Interval<nil>"
	}
	return fmt.Sprintf("Interval<%s>", i.PointType.String())
}

// ModelInfoName returns the CQL interval type specifier, e.g. "Interval<System.Date>".
func (i *Interval) ModelInfoName() (string, error) {
	if i == nil {
		return "", errTypeNil
	}
	if i.PointType == nil {
		return "", fmt.Errorf("internal error - nil PointType for Interval")
	}
	pt, err := i.PointType.ModelInfoName()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Interval<%s>", pt), nil
}

// List is the type of a List value over ElementType.
type List struct {
	ElementType IType
}

// Equal reports whether a is a List type over the same ElementType.
func (l *List) Equal(a IType) bool {
	aList, ok := a.(*List)
	if !ok {
		return false
	}
	if l == nil || aList == nil {
		return l == aList
	}
	if l.ElementType == nil || aList.ElementType == nil {
		return l.ElementType == aList.ElementType
	}
	return l.ElementType.Equal(aList.ElementType)
}

// String implements fmt.Stringer.
func (l *List) String() string {
	if l == nil {
		return "nil List"
	}
	if l.ElementType == nil {
		return "List<nil>"
	}
	return fmt.Sprintf("List<%s>", l.ElementType.String())
}

// ModelInfoName returns the CQL list type specifier, e.g. "List<System.Integer>".
func (l *List) ModelInfoName() (string, error) {
	if l == nil {
		return "", errTypeNil
	}
	if l.ElementType == nil {
		return "", fmt.Errorf("internal error - nil ElementType for List")
	}
	et, err := l.ElementType.ModelInfoName()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("List<%s>", et), nil
}

// Tuple is the type of a Tuple value: an ordered set of named, typed elements.
type Tuple struct {
	Elements map[string]IType
}

// Equal reports whether a is a Tuple type with the same element names and types.
func (t *Tuple) Equal(a IType) bool {
	aTuple, ok := a.(*Tuple)
	if !ok {
		return false
	}
	if t == nil || aTuple == nil {
		return t == aTuple
	}
	if len(t.Elements) != len(aTuple.Elements) {
		return false
	}
	for name, typ := range t.Elements {
		other, ok := aTuple.Elements[name]
		if !ok || !typ.Equal(other) {
			return false
		}
	}
	return true
}

// String implements fmt.Stringer.
func (t *Tuple) String() string {
	if t == nil {
		return "nil Tuple"
	}
	return fmt.Sprintf("Tuple{%s}", strings.Join(t.sortedNames(), ", "))
}

func (t *Tuple) sortedNames() []string {
	names := make([]string, 0, len(t.Elements))
	for n := range t.Elements {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ModelInfoName returns the CQL tuple type specifier with elements sorted by name.
func (t *Tuple) ModelInfoName() (string, error) {
	if t == nil {
		return "", errTypeNil
	}
	names := t.sortedNames()
	parts := make([]string, 0, len(names))
	for _, n := range names {
		et, err := t.Elements[n].ModelInfoName()
		if err != nil {
			return "", err
		}
		parts = append(parts, fmt.Sprintf("%s %s", n, et))
	}
	return fmt.Sprintf("Tuple{%s}", strings.Join(parts, ", ")), nil
}

// Choice is the type of a value that may be any one of ChoiceTypes, used for FHIR polymorphic
// fields like value[x].
type Choice struct {
	ChoiceTypes []IType
}

// Equal reports whether a is a Choice type over the same set of types, order independent.
func (c *Choice) Equal(a IType) bool {
	aChoice, ok := a.(*Choice)
	if !ok || c == nil || aChoice == nil {
		return c == nil && aChoice == nil
	}
	if len(c.ChoiceTypes) != len(aChoice.ChoiceTypes) {
		return false
	}
	remaining := append([]IType(nil), c.ChoiceTypes...)
	for _, at := range aChoice.ChoiceTypes {
		found := -1
		for i, ct := range remaining {
			if ct.Equal(at) {
				found = i
				break
			}
		}
		if found == -1 {
			return false
		}
		remaining = append(remaining[:found], remaining[found+1:]...)
	}
	return len(remaining) == 0
}

// String implements fmt.Stringer.
func (c *Choice) String() string {
	if c == nil {
		return "nil Choice"
	}
	return fmt.Sprintf("Choice<%s>", ToStrings(c.ChoiceTypes))
}

// ModelInfoName returns the CQL choice type specifier with ChoiceTypes sorted.
func (c *Choice) ModelInfoName() (string, error) {
	if c == nil {
		return "", errTypeNil
	}
	names := make([]string, 0, len(c.ChoiceTypes))
	for _, ct := range c.ChoiceTypes {
		n, err := ct.ModelInfoName()
		if err != nil {
			return "", err
		}
		names = append(names, n)
	}
	sort.Strings(names)
	return fmt.Sprintf("Choice<%s>", strings.Join(names, ", ")), nil
}

// ToStrings renders a slice of types as a comma separated list, for diagnostics.
func ToStrings(types []IType) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}

// IsSystem reports whether t is the given System type.
func IsSystem(t IType, s System) bool {
	sys, ok := t.(System)
	return ok && sys == s
}

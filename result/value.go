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

// Package result holds the runtime value model (spec §3.1) produced by evaluating CQL/FHIRPath,
// plus the error and identity types used at the package boundary.
package result

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/clinical-lang/cqlfhir/internal/datehelpers"
	"github.com/clinical-lang/cqlfhir/model"
	"github.com/clinical-lang/cqlfhir/types"
)

var errUnsupportedType = errors.New("unsupported value type")

// Value is a single CQL/FHIRPath runtime value, possibly Null. It carries the provenance
// (SourceExpression/SourceValues) used for tracing and debugging.
type Value struct {
	goValue     any
	runtimeType types.IType
	sourceExpr  model.IExpression
	sourceVals  []Value
}

// GolangValue returns the underlying Go representation. A CQL Null is represented by a nil
// goValue; callers should prefer IsNull(v) to check for it.
//
//	Boolean   -> bool
//	String    -> string
//	Integer   -> int32
//	Long      -> int64
//	Decimal   -> decimal.Decimal
//	Quantity  -> Quantity
//	Ratio     -> Ratio
//	Date      -> Date
//	DateTime  -> DateTime
//	Time      -> Time
//	Interval  -> Interval
//	List      -> List
//	Tuple     -> Tuple
//	Code      -> Code
//	Concept   -> Concept
//	ValueSet  -> ValueSet
//	CodeSystem -> CodeSystem
//	Named (FHIR node) -> Named
func (v Value) GolangValue() any { return v.goValue }

// RuntimeType returns the type used by the "is"/"as" operators. This can differ from the
// statically inferred type: a Choice<Integer, String> resolves at runtime to whichever branch was
// actually produced.
func (v Value) RuntimeType() types.IType {
	switch t := v.goValue.(type) {
	case Interval:
		return inferIntervalType(t)
	case List:
		return inferListType(t)
	default:
		if v.runtimeType == nil {
			return types.Any
		}
		return v.runtimeType
	}
}

// SourceExpression is the AST node that produced this value.
func (v Value) SourceExpression() model.IExpression { return v.sourceExpr }

// SourceValues are the operand values consumed to produce this value.
func (v Value) SourceValues() []Value { return v.sourceVals }

// IsNull reports whether v is the CQL/FHIRPath Null (the absence of a value, not a Value of any
// type).
func IsNull(v Value) bool { return v.goValue == nil }

// Null returns the Null value typed as Any.
func Null() Value { return Value{runtimeType: types.Any} }

// New converts a Go value into a Value, inferring its runtime type.
func New(val any) (Value, error) {
	if val == nil {
		return Value{runtimeType: types.Any}, nil
	}
	switch v := val.(type) {
	case int:
		return Value{runtimeType: types.Integer, goValue: int32(v)}, nil
	case int32:
		return Value{runtimeType: types.Integer, goValue: v}, nil
	case int64:
		return Value{runtimeType: types.Long, goValue: v}, nil
	case decimal.Decimal:
		return Value{runtimeType: types.Decimal, goValue: v}, nil
	case bool:
		return Value{runtimeType: types.Boolean, goValue: v}, nil
	case string:
		return Value{runtimeType: types.String, goValue: v}, nil
	case Quantity:
		return Value{runtimeType: types.Quantity, goValue: v}, nil
	case Ratio:
		return Value{runtimeType: types.Ratio, goValue: v}, nil
	case Date:
		if !validDatePrecision(v.Precision) {
			return Value{}, fmt.Errorf("unsupported precision %q for Date: %w", v.Precision, datehelpers.ErrUnsupportedPrecision)
		}
		return Value{runtimeType: types.Date, goValue: v}, nil
	case DateTime:
		if !validDateTimePrecision(v.Precision) {
			return Value{}, fmt.Errorf("unsupported precision %q for DateTime: %w", v.Precision, datehelpers.ErrUnsupportedPrecision)
		}
		return Value{runtimeType: types.DateTime, goValue: v}, nil
	case Time:
		if !validTimePrecision(v.Precision) {
			return Value{}, fmt.Errorf("unsupported precision %q for Time: %w", v.Precision, datehelpers.ErrUnsupportedPrecision)
		}
		return Value{runtimeType: types.Time, goValue: v}, nil
	case Interval:
		return Value{goValue: v}, nil
	case List:
		return Value{goValue: v}, nil
	case Tuple:
		return Value{runtimeType: v.RuntimeType, goValue: v}, nil
	case Named:
		return Value{runtimeType: v.RuntimeType, goValue: v}, nil
	case CodeSystem:
		if v.ID == "" {
			return Value{}, fmt.Errorf("%v must have an ID", types.CodeSystem)
		}
		return Value{runtimeType: types.CodeSystem, goValue: v}, nil
	case ValueSet:
		if v.ID == "" {
			return Value{}, fmt.Errorf("%v must have an ID", types.ValueSet)
		}
		return Value{runtimeType: types.ValueSet, goValue: v}, nil
	case Concept:
		if len(v.Codes) == 0 {
			return Value{}, fmt.Errorf("%v must have at least one %v", types.Concept, types.Code)
		}
		return Value{runtimeType: types.Concept, goValue: v}, nil
	case Code:
		if v.Code == "" {
			return Value{}, fmt.Errorf("%v must have a Code", types.Code)
		}
		return Value{runtimeType: types.Code, goValue: v}, nil
	default:
		return Value{}, fmt.Errorf("%T: %w", v, errUnsupportedType)
	}
}

func validDatePrecision(p model.DateTimePrecision) bool {
	switch p {
	case model.Year, model.Month, model.Day, model.UnsetPrecision:
		return true
	}
	return false
}

func validDateTimePrecision(p model.DateTimePrecision) bool {
	switch p {
	case model.Year, model.Month, model.Day, model.Hour, model.Minute, model.Second, model.Millisecond, model.UnsetPrecision:
		return true
	}
	return false
}

func validTimePrecision(p model.DateTimePrecision) bool {
	switch p {
	case model.Hour, model.Minute, model.Second, model.Millisecond, model.UnsetPrecision:
		return true
	}
	return false
}

// NewWithSources is New, additionally attaching provenance.
func NewWithSources(val any, sourceExp model.IExpression, sourceObjs ...Value) (Value, error) {
	v, err := New(val)
	if err != nil {
		return Value{}, err
	}
	return v.WithSources(sourceExp, sourceObjs...), nil
}

// WithSources returns a copy of v with provenance set to sourceExp/sourceObjs. If v already has
// provenance and no sourceObjs are given, v itself becomes the sole source value, so a chain of
// such calls builds a full evaluation trace; if sourceObjs are given they replace v's earlier
// source values.
func (v Value) WithSources(sourceExp model.IExpression, sourceObjs ...Value) Value {
	if v.sourceExpr == nil {
		v.sourceExpr = sourceExp
		v.sourceVals = sourceObjs
		return v
	}
	if len(sourceObjs) == 0 {
		return Value{runtimeType: v.runtimeType, goValue: v.goValue, sourceExpr: sourceExp, sourceVals: []Value{v}}
	}
	return Value{runtimeType: v.runtimeType, goValue: v.goValue, sourceExpr: sourceExp, sourceVals: sourceObjs}
}

// Equal is a structural equality used by test harnesses (go-cmp fallback); it is NOT CQL `=`.
// See the interpreter's operator_comparison.go for three-valued CQL/FHIRPath equality.
func (v Value) Equal(o Value) bool {
	if !v.RuntimeType().Equal(o.RuntimeType()) {
		return false
	}
	return fmt.Sprint(v.goValue) == fmt.Sprint(o.goValue)
}

// Quantity is a Decimal value paired with a UCUM unit string.
type Quantity struct {
	Value decimal.Decimal
	Unit  string
}

func (q Quantity) String() string { return fmt.Sprintf("%s '%s'", q.Value.String(), q.Unit) }

// Ratio is a ratio of two Quantities.
type Ratio struct {
	Numerator   Quantity
	Denominator Quantity
}

// Date is a CQL/FHIRPath Date. Precision is Year, Month, or Day; time.Time fields beyond the
// stated precision are zeroed, never fabricated.
type Date struct {
	Date      time.Time
	Precision model.DateTimePrecision
}

// Equal compares two Dates including precision.
func (d Date) Equal(o Date) bool {
	return d.Precision == o.Precision && d.Date.Equal(o.Date)
}

// DateTime is a CQL/FHIRPath DateTime, precision Year through Millisecond. HasTimezone
// distinguishes an explicit offset from one defaulted to the evaluation timezone: comparisons
// against a DateTime whose timezone is unknown must yield Null per spec §4.3/§9, never assume UTC.
type DateTime struct {
	Date        time.Time
	Precision   model.DateTimePrecision
	HasTimezone bool
}

// Equal compares two DateTimes including precision.
func (d DateTime) Equal(o DateTime) bool {
	return d.Precision == o.Precision && d.Date.Equal(o.Date)
}

// Time is a CQL/FHIRPath Time-of-day value. The embedded time.Time always carries the zero date
// (0000-01-01); only the clock fields are meaningful.
type Time struct {
	Date      time.Time
	Precision model.DateTimePrecision
}

// Code is a single terminology code.
type Code struct {
	System  string
	Code    string
	Version string
	Display string
}

// Concept is a display name plus a set of Codes that denote it.
type Concept struct {
	Display string
	Codes   []Code
}

// ValueSet is a reference to an externally defined terminology value set.
type ValueSet struct {
	ID      string
	Version string
}

// CodeSystem is a reference to an externally defined terminology code system.
type CodeSystem struct {
	ID      string
	Version string
}

// Interval is a (possibly half- or fully-unbounded) range over Low..High. A nil/Null endpoint
// denotes unbounded, not "unknown": per spec §4.3 this participates in Allen-relation comparisons
// as +/-infinity, not as a propagating Null.
type Interval struct {
	Low           Value
	High          Value
	LowInclusive  bool
	HighInclusive bool
	// PointType is used to infer RuntimeType when both endpoints are Null.
	PointType types.IType
}

func inferIntervalType(i Interval) types.IType {
	if !IsNull(i.Low) {
		return &types.Interval{PointType: i.Low.RuntimeType()}
	}
	if !IsNull(i.High) {
		return &types.Interval{PointType: i.High.RuntimeType()}
	}
	if i.PointType != nil {
		return &types.Interval{PointType: i.PointType}
	}
	return &types.Interval{PointType: types.Any}
}

// List is an ordered, possibly heterogeneous (FHIRPath) sequence of Values.
type List struct {
	Value      []Value
	StaticType types.IType // Declared element type; used when Value is empty.
}

func inferListType(l List) types.IType {
	if l.StaticType != nil {
		return &types.List{ElementType: l.StaticType}
	}
	if len(l.Value) == 0 {
		return &types.List{ElementType: types.Any}
	}
	return &types.List{ElementType: l.Value[0].RuntimeType()}
}

// Tuple is a structural value: an ordered map of field name to Value.
type Tuple struct {
	Value       map[string]Value
	FieldOrder  []string
	RuntimeType *types.Tuple
}

// Named is a reference into a FHIR resource JSON tree, as produced by the navigator package.
// Node holds an opaque navigator-defined representation (never a raw map[string]any outside that
// package) so result stays independent of the navigation algorithm.
type Named struct {
	Node        any
	RuntimeType *types.Named
}

// simpleJSON is the CLI/JSON wire shape used by MarshalJSON (spec §6.3).
type simpleJSON struct {
	Type  string `json:"@type"`
	Value any    `json:"value"`
}

// MarshalJSON renders v per spec §6.3 (Date/DateTime/Quantity/String/List/Null).
func (v Value) MarshalJSON() ([]byte, error) {
	if IsNull(v) {
		return []byte("null"), nil
	}
	rt := v.RuntimeType().String()
	switch gv := v.goValue.(type) {
	case bool, int32, int64, string:
		return json.Marshal(simpleJSON{Type: rt, Value: gv})
	case decimal.Decimal:
		return json.Marshal(simpleJSON{Type: rt, Value: gv.String()})
	case Quantity:
		return json.Marshal(simpleJSON{Type: rt, Value: gv.String()})
	case Date:
		s, err := datehelpers.DateString(gv.Date, gv.Precision)
		if err != nil {
			return nil, err
		}
		return json.Marshal(simpleJSON{Type: rt, Value: "@" + s})
	case DateTime:
		s, err := datehelpers.DateTimeString(gv.Date, gv.Precision, gv.HasTimezone)
		if err != nil {
			return nil, err
		}
		return json.Marshal(simpleJSON{Type: rt, Value: "@" + s})
	case Time:
		s, err := datehelpers.TimeString(gv.Date, gv.Precision)
		if err != nil {
			return nil, err
		}
		return json.Marshal(simpleJSON{Type: rt, Value: "@" + s})
	case List:
		return json.Marshal(gv.Value)
	case Tuple:
		ordered := make(map[string]Value, len(gv.Value))
		for k, val := range gv.Value {
			ordered[k] = val
		}
		return json.Marshal(ordered)
	default:
		return nil, fmt.Errorf("tried to marshal unsupported type %T: %w", gv, errUnsupportedType)
	}
}

// String renders v in the CQL display form used by REPL/CLI consumers (spec §6.3), e.g.
// `{ 1, 2, 3 }`, `'hello'`, `1.5 'kg'`.
func (v Value) String() string {
	if IsNull(v) {
		return "null"
	}
	switch gv := v.goValue.(type) {
	case string:
		return "'" + escapeString(gv) + "'"
	case List:
		parts := make([]string, len(gv.Value))
		for i, e := range gv.Value {
			parts[i] = e.String()
		}
		s := "{ "
		for i, p := range parts {
			if i > 0 {
				s += ", "
			}
			s += p
		}
		return s + " }"
	case Quantity:
		return gv.String()
	case Date:
		s, _ := datehelpers.DateString(gv.Date, gv.Precision)
		return "@" + s
	case DateTime:
		s, _ := datehelpers.DateTimeString(gv.Date, gv.Precision, gv.HasTimezone)
		return "@" + s
	case Time:
		s, _ := datehelpers.TimeString(gv.Date, gv.Precision)
		return "@" + s
	default:
		return fmt.Sprint(gv)
	}
}

func escapeString(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\'':
			out = append(out, '\\', '\'')
		case '\\':
			out = append(out, '\\', '\\')
		default:
			out = append(out, s[i])
		}
	}
	return string(out)
}

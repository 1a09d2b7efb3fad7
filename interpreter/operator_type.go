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
	"context"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/clinical-lang/cqlfhir/internal/datehelpers"
	"github.com/clinical-lang/cqlfhir/model"
	"github.com/clinical-lang/cqlfhir/navigator"
	"github.com/clinical-lang/cqlfhir/result"
)

// evalAs implements the `as` type-assertion operator: Strict makes a type mismatch an error,
// while a non-strict `as` simply yields Null.
func (i *interpreter) evalAs(ctx context.Context, n *model.As) (result.Value, error) {
	v, err := i.evalExpression(ctx, n.GetOperand())
	if err != nil {
		return result.Value{}, err
	}
	if result.IsNull(v) {
		return result.Null(), nil
	}
	if v.RuntimeType().Equal(n.AsTypeSpecifier) {
		return v, nil
	}
	if ok, err := i.modelInfo.IsSubType(v.RuntimeType(), n.AsTypeSpecifier); err == nil && ok {
		return v, nil
	}
	if n.Strict {
		return result.Value{}, fmt.Errorf("cannot cast a value of type %v as %v", v.RuntimeType(), n.AsTypeSpecifier)
	}
	return result.Null(), nil
}

// evalIs implements the `is` type-test operator.
func (i *interpreter) evalIs(ctx context.Context, n *model.Is) (result.Value, error) {
	v, err := i.evalExpression(ctx, n.GetOperand())
	if err != nil {
		return result.Value{}, err
	}
	if result.IsNull(v) {
		return result.New(false)
	}
	if v.RuntimeType().Equal(n.IsTypeSpecifier) {
		return result.New(true)
	}
	ok, err := i.modelInfo.IsSubType(v.RuntimeType(), n.IsTypeSpecifier)
	if err != nil {
		return result.New(false)
	}
	return result.New(ok)
}

// evalToType implements the system conversion functions (ToBoolean, ToInteger, ...). Each returns
// Null, rather than erroring, when the source value cannot be parsed into the target type - CQL's
// convention for a failed conversion function.
func (i *interpreter) evalToType(name string, v result.Value) (result.Value, error) {
	if result.IsNull(v) {
		return result.Null(), nil
	}
	switch name {
	case "ToBoolean":
		if b, ok := v.GolangValue().(bool); ok {
			return result.New(b)
		}
		if s, ok := v.GolangValue().(string); ok {
			switch s {
			case "true", "t", "yes", "y", "1":
				return result.New(true)
			case "false", "f", "no", "n", "0":
				return result.New(false)
			}
		}
		return result.Null(), nil
	case "ToString":
		switch gv := v.GolangValue().(type) {
		case string:
			return result.New(gv)
		default:
			return result.New(v.String())
		}
	case "ToDecimal":
		switch gv := v.GolangValue().(type) {
		case decimal.Decimal:
			return result.New(gv)
		case int32:
			return result.New(decimal.NewFromInt32(gv))
		case int64:
			return result.New(decimal.NewFromInt(gv))
		case string:
			d, err := decimal.NewFromString(gv)
			if err != nil {
				return result.Null(), nil
			}
			return result.New(d)
		}
		return result.Null(), nil
	case "ToInteger":
		switch gv := v.GolangValue().(type) {
		case int32:
			return result.New(gv)
		case int64:
			return result.New(int32(gv))
		case decimal.Decimal:
			return result.New(int32(gv.IntPart()))
		case string:
			n, err := strconv.ParseInt(gv, 10, 32)
			if err != nil {
				return result.Null(), nil
			}
			return result.New(int32(n))
		}
		return result.Null(), nil
	case "ToLong":
		switch gv := v.GolangValue().(type) {
		case int64:
			return result.New(gv)
		case int32:
			return result.New(int64(gv))
		case decimal.Decimal:
			return result.New(gv.IntPart())
		case string:
			n, err := strconv.ParseInt(gv, 10, 64)
			if err != nil {
				return result.Null(), nil
			}
			return result.New(n)
		}
		return result.Null(), nil
	case "ToQuantity":
		switch gv := v.GolangValue().(type) {
		case result.Quantity:
			return result.New(gv)
		case int32:
			return result.New(result.Quantity{Value: decimal.NewFromInt32(gv), Unit: "1"})
		case decimal.Decimal:
			return result.New(result.Quantity{Value: gv, Unit: "1"})
		}
		return result.Null(), nil
	case "ToConcept":
		switch gv := v.GolangValue().(type) {
		case result.Concept:
			return result.New(gv)
		case result.Code:
			return result.New(result.Concept{Codes: []result.Code{gv}})
		}
		return result.Null(), nil
	case "ToDate":
		switch gv := v.GolangValue().(type) {
		case result.Date:
			return result.New(gv)
		case result.DateTime:
			return result.New(result.Date{Date: gv.Date, Precision: minPrecision(gv.Precision, model.Day)})
		case string:
			t, p, err := datehelpers.ParseDate(gv, i.evalTimestamp.Location())
			if err != nil {
				return result.Null(), nil
			}
			return result.New(result.Date{Date: t, Precision: p})
		}
		return result.Null(), nil
	case "ToDateTime":
		switch gv := v.GolangValue().(type) {
		case result.DateTime:
			return result.New(gv)
		case result.Date:
			return result.New(result.DateTime{Date: gv.Date, Precision: gv.Precision, HasTimezone: true})
		case string:
			t, p, tz, err := datehelpers.ParseDateTime(gv, i.evalTimestamp.Location())
			if err != nil {
				return result.Null(), nil
			}
			return result.New(result.DateTime{Date: t, Precision: p, HasTimezone: tz})
		}
		return result.Null(), nil
	case "ToTime":
		switch gv := v.GolangValue().(type) {
		case result.Time:
			return result.New(gv)
		case string:
			t, p, err := datehelpers.ParseTime(gv)
			if err != nil {
				return result.Null(), nil
			}
			return result.New(result.Time{Date: t, Precision: p})
		}
		return result.Null(), nil
	default:
		return result.Value{}, fmt.Errorf("internal error - unsupported conversion %s", name)
	}
}

func minPrecision(p, ceil model.DateTimePrecision) model.DateTimePrecision {
	rank := map[model.DateTimePrecision]int{
		model.Year: 0, model.Month: 1, model.Day: 2,
		model.Hour: 3, model.Minute: 4, model.Second: 5, model.Millisecond: 6,
	}
	if rank[p] > rank[ceil] {
		return ceil
	}
	return p
}

// evalChildren returns the immediate child elements of a FHIR node as a flattened list.
func (i *interpreter) evalChildren(v result.Value) (result.Value, error) {
	if result.IsNull(v) {
		return result.Null(), nil
	}
	named, err := result.ToNamed(v)
	if err != nil {
		return result.Value{}, err
	}
	children, err := navigator.Children(named)
	if err != nil {
		return result.Value{}, err
	}
	return result.New(result.List{Value: children})
}

// evalDescendants returns every descendant element of a FHIR node, depth-first.
func (i *interpreter) evalDescendants(v result.Value) (result.Value, error) {
	if result.IsNull(v) {
		return result.Null(), nil
	}
	named, err := result.ToNamed(v)
	if err != nil {
		return result.Value{}, err
	}
	children, err := navigator.Children(named)
	if err != nil {
		return result.Value{}, err
	}
	out := make([]result.Value, 0, len(children))
	for _, c := range children {
		out = append(out, c)
		if _, ok := c.GolangValue().(result.Named); ok {
			desc, err := i.evalDescendants(c)
			if err != nil {
				return result.Value{}, err
			}
			if !result.IsNull(desc) {
				l, _ := result.ToSlice(desc)
				out = append(out, l...)
			}
		}
	}
	return result.New(result.List{Value: out})
}

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
	"github.com/clinical-lang/cqlfhir/result"
	"github.com/clinical-lang/cqlfhir/types"
)

// evalLiteral re-parses a scalar literal's textual form against its statically inferred type. The
// parser retains literals as text (rather than pre-parsing) so that Decimal/DateTime precision and
// exact digit count survive unchanged into the runtime value.
func (i *interpreter) evalLiteral(lit *model.Literal) (result.Value, error) {
	sys, ok := lit.GetResultType().(types.System)
	if !ok {
		return result.Value{}, fmt.Errorf("internal error - literal with non-system type %v", lit.GetResultType())
	}
	switch sys {
	case types.Any:
		// The parser gives the "null" literal System.Any with no text, since it carries no type of
		// its own until context (an operator, an argument position) gives it one.
		return result.Null(), nil
	case types.Boolean:
		b, err := strconv.ParseBool(lit.Value)
		if err != nil {
			return result.Value{}, err
		}
		return result.New(b)
	case types.Integer:
		n, err := strconv.ParseInt(lit.Value, 10, 32)
		if err != nil {
			return result.Value{}, err
		}
		return result.New(int32(n))
	case types.Long:
		n, err := strconv.ParseInt(lit.Value, 10, 64)
		if err != nil {
			return result.Value{}, err
		}
		return result.New(n)
	case types.Decimal:
		d, err := decimal.NewFromString(lit.Value)
		if err != nil {
			return result.Value{}, err
		}
		return result.New(d)
	case types.String:
		return result.New(lit.Value)
	case types.Date:
		t, precision, err := datehelpers.ParseDate(lit.Value, i.evalTimestamp.Location())
		if err != nil {
			return result.Value{}, err
		}
		return result.New(result.Date{Date: t, Precision: precision})
	case types.DateTime:
		t, precision, hasTZ, err := datehelpers.ParseDateTime(lit.Value, i.evalTimestamp.Location())
		if err != nil {
			return result.Value{}, err
		}
		return result.New(result.DateTime{Date: t, Precision: precision, HasTimezone: hasTZ})
	case types.Time:
		t, precision, err := datehelpers.ParseTime(lit.Value)
		if err != nil {
			return result.Value{}, err
		}
		return result.New(result.Time{Date: t, Precision: precision})
	default:
		return result.Value{}, fmt.Errorf("internal error - unsupported literal type %v", sys)
	}
}

func (i *interpreter) evalInterval(ctx context.Context, n *model.Interval) (result.Value, error) {
	low, err := i.evalExpression(ctx, n.Low)
	if err != nil {
		return result.Value{}, err
	}
	high, err := i.evalExpression(ctx, n.High)
	if err != nil {
		return result.Value{}, err
	}
	lowInclusive, highInclusive := n.LowInclusive, n.HighInclusive
	if n.LowClosedExpression != nil {
		v, err := i.evalExpression(ctx, n.LowClosedExpression)
		if err != nil {
			return result.Value{}, err
		}
		if result.IsNull(v) {
			return result.Null(), nil
		}
		lowInclusive, err = result.ToBool(v)
		if err != nil {
			return result.Value{}, err
		}
	}
	if n.HighClosedExpression != nil {
		v, err := i.evalExpression(ctx, n.HighClosedExpression)
		if err != nil {
			return result.Value{}, err
		}
		if result.IsNull(v) {
			return result.Null(), nil
		}
		highInclusive, err = result.ToBool(v)
		if err != nil {
			return result.Value{}, err
		}
	}
	return result.New(result.Interval{Low: low, High: high, LowInclusive: lowInclusive, HighInclusive: highInclusive})
}

func (i *interpreter) evalQuantity(n *model.Quantity) (result.Value, error) {
	d, err := decimal.NewFromString(n.Value)
	if err != nil {
		return result.Value{}, err
	}
	return result.New(result.Quantity{Value: d, Unit: n.Unit})
}

func (i *interpreter) evalRatioLiteral(n *model.Ratio) (result.Value, error) {
	num, err := i.evalQuantity(&n.Numerator)
	if err != nil {
		return result.Value{}, err
	}
	den, err := i.evalQuantity(&n.Denominator)
	if err != nil {
		return result.Value{}, err
	}
	numQ, err := result.ToQuantity(num)
	if err != nil {
		return result.Value{}, err
	}
	denQ, err := result.ToQuantity(den)
	if err != nil {
		return result.Value{}, err
	}
	return result.New(result.Ratio{Numerator: numQ, Denominator: denQ})
}

func (i *interpreter) evalList(ctx context.Context, n *model.List) (result.Value, error) {
	vals, err := i.evalExprs(ctx, n.List)
	if err != nil {
		return result.Value{}, err
	}
	l := result.List{Value: vals}
	if lt, ok := n.GetResultType().(*types.List); ok {
		l.StaticType = lt.ElementType
	}
	return result.New(l)
}

func (i *interpreter) evalCode(ctx context.Context, n *model.Code) (result.Value, error) {
	var system string
	if n.System != nil {
		sv, err := i.evalRef(n.System.LibraryName, n.System.Name)
		if err != nil {
			return result.Value{}, err
		}
		cs, err := result.ToCodeSystem(sv)
		if err != nil {
			return result.Value{}, err
		}
		system = cs.ID
	}
	return result.New(result.Code{System: system, Code: n.Code, Display: n.Display})
}

func (i *interpreter) evalTuple(ctx context.Context, n *model.Tuple) (result.Value, error) {
	fields := make(map[string]result.Value, len(n.Elements))
	order := make([]string, 0, len(n.Elements))
	for _, el := range n.Elements {
		v, err := i.evalExpression(ctx, el.Value)
		if err != nil {
			return result.Value{}, err
		}
		fields[el.Name] = v
		order = append(order, el.Name)
	}
	t := result.Tuple{Value: fields, FieldOrder: order}
	if tt, ok := n.GetResultType().(*types.Tuple); ok {
		t.RuntimeType = tt
	}
	return result.New(t)
}

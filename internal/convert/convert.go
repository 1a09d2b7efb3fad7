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

// Package convert implements implicit conversion insertion at parse time and exact-overload
// matching at evaluation time, per the CQL conversion precedence
// (https://cql.hl7.org/03-developersguide.html#conversion-precedence).
package convert

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/clinical-lang/cqlfhir/internal/modelinfo"
	"github.com/clinical-lang/cqlfhir/model"
	"github.com/clinical-lang/cqlfhir/types"
)

// ErrAmbiguousMatch is returned when two or more overloads matched with the same score.
var ErrAmbiguousMatch = errors.New("ambiguous match")

// ErrNoMatch is returned when no overload matched.
var ErrNoMatch = errors.New("no matching overloads")

// Overload holds declared operand types and the result returned when those operands are matched.
type Overload[F any] struct {
	Operands []types.IType
	Result   F
}

// MatchedOverload is the result of OverloadMatch.
type MatchedOverload[F any] struct {
	Result          F
	WrappedOperands []model.IExpression
}

// OverloadMatch returns the least-converting overload match, wrapping each invoked operand in
// whatever implicit conversions are needed. Name is used only for error messages.
func OverloadMatch[F any](invoked []model.IExpression, overloads []Overload[F], mi *modelinfo.ModelInfos, name string) (MatchedOverload[F], error) {
	if len(overloads) == 0 {
		return MatchedOverload[F]{}, fmt.Errorf("could not resolve %v(%v): %w", name, OperandsToString(invoked), ErrNoMatch)
	}

	concreteOverloads := make([]Overload[F], 0, len(overloads))
	for _, overload := range overloads {
		if isGeneric(overload.Operands) {
			concreteOverload, matched, err := convertGeneric(invoked, overload, mi)
			if err != nil {
				return MatchedOverload[F]{}, fmt.Errorf("%v(%v): %w", name, OperandsToString(invoked), err)
			}
			if matched {
				concreteOverloads = append(concreteOverloads, concreteOverload)
			}
		} else {
			concreteOverloads = append(concreteOverloads, overload)
		}
	}

	ambiguous := false
	minScore := math.MaxInt
	currTypePrecedenceScore := math.MaxInt
	matched := MatchedOverload[F]{WrappedOperands: make([]model.IExpression, len(invoked))}
	for _, overload := range concreteOverloads {
		res, err := operandsImplicitConverter(OperandsToTypes(invoked), overload.Operands, invoked, mi)
		if err != nil {
			return MatchedOverload[F]{}, fmt.Errorf("%v(%v): %w", name, OperandsToString(invoked), err)
		}
		if res.Matched && res.Score == minScore && res.TypePrecedenceScore == currTypePrecedenceScore {
			ambiguous = true
			continue
		}
		if res.Matched && (res.Score < minScore || (res.Score == minScore && res.TypePrecedenceScore < currTypePrecedenceScore)) {
			ambiguous = false
			minScore = res.Score
			currTypePrecedenceScore = res.TypePrecedenceScore
			matched.Result = overload.Result
			matched.WrappedOperands = res.WrappedOperands
		}
	}
	if ambiguous {
		return matched, fmt.Errorf("%v(%v) %w", name, OperandsToString(invoked), ErrAmbiguousMatch)
	}
	if minScore != math.MaxInt {
		return matched, nil
	}

	var available strings.Builder
	if len(concreteOverloads) > 0 {
		available.WriteString(" available overloads: [")
		for i, overload := range concreteOverloads {
			if i > 0 {
				available.WriteString(", ")
			}
			available.WriteString(fmt.Sprintf("%v(%v)", name, operandsToStringForTypes(overload.Operands)))
		}
		available.WriteString("]")
	}
	return MatchedOverload[F]{}, fmt.Errorf("could not resolve %v(%v): %w%v", name, OperandsToString(invoked), ErrNoMatch, available.String())
}

type convertedOperands struct {
	Matched             bool
	Score               int
	TypePrecedenceScore int
	WrappedOperands     []model.IExpression
}

func operandsImplicitConverter(invokedTypes []types.IType, declaredTypes []types.IType, opsToWrap []model.IExpression, mi *modelinfo.ModelInfos) (convertedOperands, error) {
	if len(invokedTypes) != len(declaredTypes) {
		return convertedOperands{Matched: false}, nil
	}
	if opsToWrap == nil {
		opsToWrap = make([]model.IExpression, len(invokedTypes))
	}
	results := convertedOperands{Matched: true, WrappedOperands: make([]model.IExpression, len(invokedTypes))}
	for i := range invokedTypes {
		result, err := OperandImplicitConverter(invokedTypes[i], declaredTypes[i], opsToWrap[i], mi)
		if err != nil {
			return convertedOperands{}, err
		}
		if !result.Matched {
			return convertedOperands{Matched: false}, nil
		}
		results.Score += result.Score
		results.TypePrecedenceScore += result.TypePrecedenceScore
		results.WrappedOperands[i] = result.WrappedOperand
	}
	return results, nil
}

// ConvertedOperand is the result of OperandImplicitConverter.
type ConvertedOperand struct {
	Matched             bool
	Score               int
	TypePrecedenceScore int
	WrappedOperand      model.IExpression
}

// OperandImplicitConverter wraps opToWrap in whatever system operators or FHIRHelpers function
// refs are needed to convert it from invokedType to declaredType, returning the least-converting
// path. May be called with a nil opToWrap if the caller only cares about the score.
func OperandImplicitConverter(invokedType types.IType, declaredType types.IType, opToWrap model.IExpression, mi *modelinfo.ModelInfos) (ConvertedOperand, error) {
	if invokedType == types.Unset {
		return ConvertedOperand{}, fmt.Errorf("internal error - invokedType is %v", invokedType)
	}
	if declaredType == types.Unset {
		return ConvertedOperand{}, fmt.Errorf("internal error - declaredType is %v", declaredType)
	}

	declaredTypePrecedence, err := getTypeCategoryPrecedence(declaredType)
	if err != nil {
		return ConvertedOperand{}, err
	}
	minConverted := ConvertedOperand{Score: math.MaxInt, TypePrecedenceScore: declaredTypePrecedence}

	// EXACT MATCH
	if invokedType.Equal(declaredType) {
		return ConvertedOperand{Matched: true, Score: 0, TypePrecedenceScore: declaredTypePrecedence, WrappedOperand: opToWrap}, nil
	}

	// SUBTYPE
	isSub, err := mi.IsSubType(invokedType, declaredType)
	if err != nil {
		return ConvertedOperand{}, err
	}
	if isSub {
		minConverted = ConvertedOperand{Matched: true, Score: 1, TypePrecedenceScore: declaredTypePrecedence, WrappedOperand: opToWrap}
	}

	baseTypes, err := mi.BaseTypes(invokedType)
	if err != nil {
		return ConvertedOperand{}, err
	}
	for _, baseType := range baseTypes {
		r, err := OperandImplicitConverter(baseType, declaredType, opToWrap, mi)
		if err != nil {
			return ConvertedOperand{}, err
		}
		if r.Matched {
			r.Score++
			if r.Score < minConverted.Score {
				minConverted = r
			}
		}
	}

	// COMPATIBLE/NULL: Any (null literal's type) implicitly casts to any declared type.
	if invokedType.Equal(types.Any) {
		wrapped := &model.As{
			UnaryExpression: &model.UnaryExpression{Operand: opToWrap, Expression: model.ResultType(declaredType)},
			AsTypeSpecifier: declaredType,
			Strict:          false,
		}
		if 2 < minConverted.Score {
			minConverted = ConvertedOperand{Matched: true, Score: 2, TypePrecedenceScore: declaredTypePrecedence, WrappedOperand: wrapped}
		}
	}

	// CAST - invokedType is a Choice type.
	if invokedChoice, ok := invokedType.(*types.Choice); ok {
		for _, choiceType := range invokedChoice.ChoiceTypes {
			choiceWrapped := &model.As{
				UnaryExpression: &model.UnaryExpression{Operand: opToWrap, Expression: model.ResultType(choiceType)},
				AsTypeSpecifier: choiceType,
				Strict:          false,
			}
			r, err := OperandImplicitConverter(choiceType, declaredType, choiceWrapped, mi)
			if err != nil {
				return ConvertedOperand{}, err
			}
			if r.Matched {
				r.Score += 3
				if r.Score < minConverted.Score {
					minConverted = r
				}
			}
		}
	}

	// CAST - declaredType is a Choice type.
	if declaredChoice, ok := declaredType.(*types.Choice); ok {
		for _, choiceType := range declaredChoice.ChoiceTypes {
			r, err := OperandImplicitConverter(invokedType, choiceType, opToWrap, mi)
			if err != nil {
				return ConvertedOperand{}, err
			}
			if r.Matched {
				wrapped := &model.As{
					UnaryExpression: &model.UnaryExpression{Operand: r.WrappedOperand, Expression: model.ResultType(declaredType)},
					AsTypeSpecifier: declaredType,
					Strict:          false,
				}
				if 3 < minConverted.Score {
					minConverted = ConvertedOperand{Matched: true, Score: 3, TypePrecedenceScore: declaredTypePrecedence, WrappedOperand: wrapped}
				}
			}
		}
	}

	// IMPLICIT CONVERSION
	res, err := mi.IsImplicitlyConvertible(invokedType, declaredType)
	if err != nil {
		return ConvertedOperand{}, err
	}

	// Integer widens to Long before Decimal, so Integer->Decimal costs one more than Integer->Long.
	score := implicitConversionScore(declaredType)
	if invokedType == types.Integer && declaredType == types.Decimal {
		score++
	}

	_, invokedIsSystem := invokedType.(types.System)
	if res.IsConvertible && invokedIsSystem {
		wrapped, err := wrapSystemImplicitConversion(res.Library, res.Function, opToWrap)
		if err != nil {
			return ConvertedOperand{}, err
		}
		if score < minConverted.Score {
			minConverted = ConvertedOperand{Matched: true, Score: score, TypePrecedenceScore: declaredTypePrecedence, WrappedOperand: wrapped}
		}
	}

	if res.IsConvertible {
		wrapped := &model.FunctionRef{
			LibraryName: res.Library,
			Name:        res.Function,
			Operands:    []model.IExpression{opToWrap},
			Expression:  model.ResultType(res.OutputType),
		}
		if score < minConverted.Score {
			minConverted = ConvertedOperand{Matched: true, Score: score, TypePrecedenceScore: declaredTypePrecedence, WrappedOperand: wrapped}
		}
	}

	// IMPLICIT CONVERSION TO CLASS TYPE - Intervals and Lists
	switch i := invokedType.(type) {
	case *types.Interval:
		d, ok := declaredType.(*types.Interval)
		if !ok {
			break
		}
		low := &model.Property{Source: opToWrap, Path: "low", Expression: model.ResultType(i.PointType)}
		high := &model.Property{Source: opToWrap, Path: "high", Expression: model.ResultType(i.PointType)}
		rLow, err := OperandImplicitConverter(i.PointType, d.PointType, low, mi)
		if err != nil {
			return ConvertedOperand{}, err
		}
		if !rLow.Matched {
			break
		}
		rHigh, err := OperandImplicitConverter(i.PointType, d.PointType, high, mi)
		if err != nil {
			return ConvertedOperand{}, err
		}
		if !rHigh.Matched {
			break
		}
		wrapped := &model.Interval{
			Expression:           model.ResultType(d),
			Low:                  rLow.WrappedOperand,
			High:                 rHigh.WrappedOperand,
			LowClosedExpression:  &model.Property{Source: opToWrap, Path: "lowClosed", Expression: model.ResultType(types.Boolean)},
			HighClosedExpression: &model.Property{Source: opToWrap, Path: "highClosed", Expression: model.ResultType(types.Boolean)},
		}
		if 5 < minConverted.Score {
			minConverted = ConvertedOperand{Matched: true, Score: 5, TypePrecedenceScore: declaredTypePrecedence, WrappedOperand: wrapped}
		}

	case *types.List:
		d, ok := declaredType.(*types.List)
		if !ok {
			break
		}
		ref := &model.AliasRef{Name: "X", Expression: model.ResultType(i.ElementType)}
		r, err := OperandImplicitConverter(i.ElementType, d.ElementType, ref, mi)
		if err != nil {
			return ConvertedOperand{}, err
		}
		if !r.Matched {
			break
		}
		wrapped := &model.Query{
			Expression: model.ResultType(declaredType),
			Source: []*model.AliasedSource{{
				Expression: model.ResultType(i),
				Alias:      "X",
				Source:     opToWrap,
			}},
			Return: &model.ReturnClause{
				Element:    &model.Element{ResultType: d.ElementType},
				Expression: r.WrappedOperand,
				Distinct:   false,
			},
		}
		if 5 < minConverted.Score {
			minConverted = ConvertedOperand{Matched: true, Score: 5, TypePrecedenceScore: declaredTypePrecedence, WrappedOperand: wrapped}
		}
	}

	if minConverted.Matched {
		return minConverted, nil
	}
	return ConvertedOperand{Matched: false}, nil
}

func wrapSystemImplicitConversion(library string, function string, operand model.IExpression) (model.IExpression, error) {
	if library != "SYSTEM" {
		return nil, fmt.Errorf("internal error - could not find wrapper for %v %v", library, function)
	}
	switch function {
	case "ToDecimal":
		return &model.ToDecimal{UnaryExpression: &model.UnaryExpression{Operand: operand, Expression: model.ResultType(types.Decimal)}}, nil
	case "ToLong":
		return &model.ToLong{UnaryExpression: &model.UnaryExpression{Operand: operand, Expression: model.ResultType(types.Long)}}, nil
	case "ToDateTime":
		return &model.ToDateTime{UnaryExpression: &model.UnaryExpression{Operand: operand, Expression: model.ResultType(types.DateTime)}}, nil
	case "ToQuantity":
		return &model.ToQuantity{UnaryExpression: &model.UnaryExpression{Operand: operand, Expression: model.ResultType(types.Quantity)}}, nil
	case "ToConcept":
		return &model.ToConcept{UnaryExpression: &model.UnaryExpression{Operand: operand, Expression: model.ResultType(types.Concept)}}, nil
	}
	return nil, fmt.Errorf("internal error - could not find wrapper for %v %v", library, function)
}

// getTypeCategoryPrecedence scores type categories for tie-breaking; lower is higher precedence.
func getTypeCategoryPrecedence(t types.IType) (int, error) {
	switch t.(type) {
	case types.System:
		return 1, nil
	case *types.Tuple:
		return 2, nil
	case *types.Named:
		return 3, nil
	case *types.Interval:
		return 3, nil
	case *types.List:
		return 4, nil
	case *types.Choice:
		return 5, nil
	default:
		return 0, fmt.Errorf("internal error - could not find type category precedence for %v", t)
	}
}

// OperandsToString renders operands' result types, for error messages.
func OperandsToString(operands []model.IExpression) string {
	var sb strings.Builder
	for i, operand := range operands {
		if i > 0 {
			sb.WriteString(", ")
		}
		if operand == nil || operand.GetResultType() == nil {
			sb.WriteString("nil")
		} else {
			sb.WriteString(operand.GetResultType().String())
		}
	}
	return sb.String()
}

func operandsToStringForTypes(operands []types.IType) string {
	var sb strings.Builder
	for i, operand := range operands {
		if i > 0 {
			sb.WriteString(", ")
		}
		if operand == nil {
			sb.WriteString("null")
		} else {
			sb.WriteString(operand.String())
		}
	}
	return sb.String()
}

// OperandsToTypes returns the ResultType of each operand.
func OperandsToTypes(operands []model.IExpression) []types.IType {
	var ts []types.IType
	for _, operand := range operands {
		ts = append(ts, operand.GetResultType())
	}
	return ts
}

func implicitConversionScore(t types.IType) int {
	switch t {
	case types.String, types.Integer, types.Long, types.Decimal, types.Boolean, types.Date, types.DateTime, types.Time:
		return 4
	default:
		return 5
	}
}

// Generic tags a declared operand type as one of the CQL reference's generic placeholders (T in
// the spec). Generics only ever appear in the parser's hard-coded system-operator overload tables;
// the interpreter and resolver never see a Generic in a resolved node's ResultType.
type Generic string

// Generic placeholders. Never nest one in a concrete type (e.g. List<GenericType>) - use
// GenericList instead.
const (
	GenericType     Generic = "GenericType"
	GenericInterval Generic = "GenericInterval"
	GenericList     Generic = "GenericList"
)

// Equal is a strict equal.
func (s Generic) Equal(a types.IType) bool {
	aBase, ok := a.(Generic)
	return ok && s == aBase
}

// String implements fmt.Stringer.
func (s Generic) String() string { return fmt.Sprintf("Generic.%v", string(s)) }

// ModelInfoName should never be called for Generics.
func (s Generic) ModelInfoName() (string, error) {
	return "", errors.New("Generic type does not have a model info name")
}

func convertGeneric[F any](invoked []model.IExpression, genericDeclared Overload[F], mi *modelinfo.ModelInfos) (Overload[F], bool, error) {
	if len(invoked) != len(genericDeclared.Operands) {
		return Overload[F]{}, false, nil
	}

	genericInvokedTypes := make([]types.IType, 0)
	for i := range invoked {
		switch genericDeclared.Operands[i] {
		case GenericType:
			genericInvokedTypes = append(genericInvokedTypes, invoked[i].GetResultType())
		case GenericInterval:
			if interval, ok := invoked[i].GetResultType().(*types.Interval); ok {
				genericInvokedTypes = append(genericInvokedTypes, interval.PointType)
			} else {
				genericInvokedTypes = append(genericInvokedTypes, invoked[i].GetResultType())
			}
		case GenericList:
			if list, ok := invoked[i].GetResultType().(*types.List); ok {
				genericInvokedTypes = append(genericInvokedTypes, list.ElementType)
			} else {
				genericInvokedTypes = append(genericInvokedTypes, invoked[i].GetResultType())
			}
		}
	}

	inferred, err := inferMixedType(genericInvokedTypes, nil, mi)
	if err != nil {
		return Overload[F]{}, false, err
	}
	if inferred.PuntedToChoice {
		return Overload[F]{}, false, nil
	}

	concreteOverload := make([]types.IType, len(genericDeclared.Operands))
	for i := range genericDeclared.Operands {
		switch genericDeclared.Operands[i] {
		case GenericType:
			concreteOverload[i] = inferred.UniformType
		case GenericInterval:
			if _, ok := inferred.UniformType.(*types.Interval); !ok {
				concreteOverload[i] = &types.Interval{PointType: inferred.UniformType}
			} else {
				concreteOverload[i] = inferred.UniformType
			}
		case GenericList:
			concreteOverload[i] = &types.List{ElementType: inferred.UniformType}
		default:
			concreteOverload[i] = genericDeclared.Operands[i]
		}
	}

	genericDeclared.Operands = concreteOverload
	return genericDeclared, true, nil
}

func isGeneric(operands []types.IType) bool {
	for _, operand := range operands {
		if operand.Equal(GenericType) || operand.Equal(GenericInterval) || operand.Equal(GenericList) {
			return true
		}
	}
	return false
}

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

package convert

import (
	"errors"
	"fmt"
	"math"

	"github.com/clinical-lang/cqlfhir/internal/modelinfo"
	"github.com/clinical-lang/cqlfhir/model"
	"github.com/clinical-lang/cqlfhir/types"
)

// Infered is the result of inferMixedType.
type Infered struct {
	// PuntedToChoice is true when no uniform type could be found and every operand was instead
	// wrapped to a Choice of its own type.
	PuntedToChoice  bool
	UniformType     types.IType
	WrappedOperands []model.IExpression
}

// InferMixed wraps invoked operands in whatever conversions are needed to bring them to a single
// uniform type (falling back to a Choice type), used when resolving mixed-type list and case
// expressions. [4, 4.5] infers Decimal: [ToDecimal(4), 4.5].
func InferMixed(invoked []model.IExpression, mi *modelinfo.ModelInfos) (Infered, error) {
	return inferMixedType(OperandsToTypes(invoked), invoked, mi)
}

func inferMixedType(invokedTypes []types.IType, opsToWrap []model.IExpression, mi *modelinfo.ModelInfos) (Infered, error) {
	if len(invokedTypes) == 0 {
		return Infered{UniformType: types.Any, WrappedOperands: []model.IExpression{}}, nil
	}
	if opsToWrap == nil {
		opsToWrap = make([]model.IExpression, len(invokedTypes))
	}

	allAny := true
	for _, t := range invokedTypes {
		if !t.Equal(types.Any) {
			allAny = false
			break
		}
	}
	if allAny {
		return Infered{UniformType: types.Any, WrappedOperands: opsToWrap}, nil
	}

	minScore := math.MaxInt
	var matched []model.IExpression
	var matchedType types.IType
	for _, t := range invokedTypes {
		if t.Equal(types.Any) {
			continue
		}
		possible := make([]types.IType, len(invokedTypes))
		for i := range possible {
			possible[i] = t
		}
		res, err := operandsImplicitConverter(invokedTypes, possible, opsToWrap, mi)
		if err != nil {
			return Infered{}, fmt.Errorf("while inferring mixed type: %w", err)
		}
		if res.Matched && res.Score < minScore {
			minScore = res.Score
			matched = res.WrappedOperands
			matchedType = t
		}
	}

	if minScore != math.MaxInt {
		return Infered{UniformType: matchedType, WrappedOperands: matched}, nil
	}

	choiceType, err := DeDuplicate(invokedTypes)
	if err != nil {
		return Infered{}, err
	}
	wrapped := make([]model.IExpression, 0, len(opsToWrap))
	for _, o := range opsToWrap {
		wrapped = append(wrapped, &model.As{
			UnaryExpression: &model.UnaryExpression{Operand: o, Expression: model.ResultType(choiceType)},
			AsTypeSpecifier: choiceType,
			Strict:          false,
		})
	}
	return Infered{PuntedToChoice: true, UniformType: choiceType, WrappedOperands: wrapped}, nil
}

// DeDuplicate finds a minimal choice type given a list of types, recursively flattening nested
// Choice types and removing duplicates. No implicit conversions are applied.
func DeDuplicate(ts []types.IType) (types.IType, error) {
	if len(ts) == 0 {
		return nil, errors.New("internal error - empty list of types passed to DeDuplicate")
	}
	var flat []types.IType
	for _, t := range ts {
		fs, err := flattenChoices(t, 0)
		if err != nil {
			return nil, err
		}
		flat = append(flat, fs...)
	}
	choiceType := &types.Choice{ChoiceTypes: []types.IType{}}
	for _, t := range flat {
		if !containsType(choiceType.ChoiceTypes, t) {
			choiceType.ChoiceTypes = append(choiceType.ChoiceTypes, t)
		}
	}
	if len(choiceType.ChoiceTypes) == 1 {
		return choiceType.ChoiceTypes[0], nil
	}
	return choiceType, nil
}

// Intersect finds the intersection of two types, flattening Choice types and applying no implicit
// conversions.
func Intersect(left types.IType, right types.IType) (types.IType, error) {
	if left.Equal(right) {
		return left, nil
	}
	flatLeft, err := flattenChoices(left, 0)
	if err != nil {
		return nil, err
	}
	flatRight, err := flattenChoices(right, 0)
	if err != nil {
		return nil, err
	}
	choiceType := &types.Choice{ChoiceTypes: []types.IType{}}
	for _, t := range flatLeft {
		if containsType(flatRight, t) && !containsType(choiceType.ChoiceTypes, t) {
			choiceType.ChoiceTypes = append(choiceType.ChoiceTypes, t)
		}
	}
	if len(choiceType.ChoiceTypes) == 1 {
		return choiceType.ChoiceTypes[0], nil
	}
	if len(choiceType.ChoiceTypes) == 0 {
		return nil, fmt.Errorf("no common types between %v and %v", left, right)
	}
	return choiceType, nil
}

func flattenChoices(t types.IType, recursion int) ([]types.IType, error) {
	if recursion > 1000 {
		return nil, fmt.Errorf("internal error - nested choice recursion limit exceeded")
	}
	choiceT, ok := t.(*types.Choice)
	if !ok {
		return []types.IType{t}, nil
	}
	var flat []types.IType
	for _, ct := range choiceT.ChoiceTypes {
		fs, err := flattenChoices(ct, recursion+1)
		if err != nil {
			return nil, err
		}
		flat = append(flat, fs...)
	}
	return flat, nil
}

func containsType(ts []types.IType, arg types.IType) bool {
	for _, t := range ts {
		if t.Equal(arg) {
			return true
		}
	}
	return false
}

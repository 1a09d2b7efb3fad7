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

	"github.com/clinical-lang/cqlfhir/model"
	"github.com/clinical-lang/cqlfhir/result"
)

// evalIfThenElse evaluates the condition, treating a Null condition as false per spec ("if null
// then A else B" evaluates B).
func (i *interpreter) evalIfThenElse(ctx context.Context, n *model.IfThenElse) (result.Value, error) {
	cond, err := i.evalExpression(ctx, n.Condition)
	if err != nil {
		return result.Value{}, err
	}
	if result.IsNull(cond) {
		return i.evalExpression(ctx, n.Else)
	}
	b, err := result.ToBool(cond)
	if err != nil {
		return result.Value{}, err
	}
	if b {
		return i.evalExpression(ctx, n.Then)
	}
	return i.evalExpression(ctx, n.Else)
}

// evalCase evaluates a case expression. With a Comparand, each branch's When is compared to it
// with Equal; without one, each When is itself boolean. The first true branch wins; Else is used
// when none do (including when every comparison evaluates to Null).
func (i *interpreter) evalCase(ctx context.Context, n *model.Case) (result.Value, error) {
	var comparand result.Value
	hasComparand := n.Comparand != nil
	if hasComparand {
		v, err := i.evalExpression(ctx, n.Comparand)
		if err != nil {
			return result.Value{}, err
		}
		comparand = v
	}
	for _, item := range n.CaseItem {
		whenVal, err := i.evalExpression(ctx, item.When)
		if err != nil {
			return result.Value{}, err
		}
		var matched bool
		if hasComparand {
			eq, err := i.evalEqual(comparand, whenVal)
			if err != nil {
				return result.Value{}, err
			}
			if result.IsNull(eq) {
				continue
			}
			matched, err = result.ToBool(eq)
			if err != nil {
				return result.Value{}, err
			}
		} else {
			if result.IsNull(whenVal) {
				continue
			}
			matched, err = result.ToBool(whenVal)
			if err != nil {
				return result.Value{}, err
			}
		}
		if matched {
			return i.evalExpression(ctx, item.Then)
		}
	}
	return i.evalExpression(ctx, n.Else)
}

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

	"github.com/clinical-lang/cqlfhir/model"
	"github.com/clinical-lang/cqlfhir/result"
	"github.com/clinical-lang/cqlfhir/types"
)

// evalFunctionRef evaluates a call to a user defined function: operands are evaluated eagerly
// (CQL has no lazy user functions), the overload is resolved by exact operand type, and the body
// runs in a fresh alias scope binding each operand name.
func (i *interpreter) evalFunctionRef(ctx context.Context, n *model.FunctionRef) (result.Value, error) {
	if err := ctx.Err(); err != nil {
		i.diagf(result.CodeCancelled, n.Name, "evaluation cancelled calling %s: %v", n.Name, err)
		return result.Null(), nil
	}
	if i.callDepth >= maxCallDepth {
		i.diagf(result.CodeRecursionLimit, n.Name, "call depth exceeded %d calling %s", maxCallDepth, n.Name)
		return result.Null(), nil
	}
	i.callDepth++
	defer func() { i.callDepth-- }()

	ops, err := i.evalExprs(ctx, n.Operands)
	if err != nil {
		return result.Value{}, err
	}
	opTypes := make([]types.IType, len(ops))
	for idx, v := range ops {
		opTypes[idx] = v.RuntimeType()
	}

	var fn *model.FunctionDef
	if n.LibraryName == "" {
		fn, err = i.refs.ResolveExactLocalFunc(n.Name, opTypes, false, i.modelInfo)
	} else {
		fn, err = i.refs.ResolveExactGlobalFunc(n.LibraryName, n.Name, opTypes, false, i.modelInfo)
	}
	if err != nil {
		return result.Value{}, err
	}

	prevLib := i.currentLib
	if n.LibraryName != "" {
		id := i.refs.ResolveInclude(n.LibraryName)
		if id == nil {
			return result.Value{}, fmt.Errorf("could not resolve the library name %s", n.LibraryName)
		}
		i.switchToKey(result.LibKeyFromModel(id))
		defer i.switchToKey(prevLib)
	}

	i.refs.EnterScope()
	defer i.refs.ExitScope()
	for idx, operand := range fn.Operands {
		if err := i.refs.Alias(operand.Name, ops[idx]); err != nil {
			return result.Value{}, err
		}
	}
	v, err := i.evalExpression(ctx, fn.GetExpression())
	if err != nil {
		return result.Value{}, err
	}
	return v.WithSources(n, ops...), nil
}

// evalLet implements the scalar `let X: value return body` form.
func (i *interpreter) evalLet(ctx context.Context, n *model.Let) (result.Value, error) {
	v, err := i.evalExpression(ctx, n.Value)
	if err != nil {
		return result.Value{}, err
	}
	i.refs.EnterScope()
	defer i.refs.ExitScope()
	if err := i.refs.Alias(n.Identifier, v); err != nil {
		return result.Value{}, err
	}
	return i.evalExpression(ctx, n.Body)
}

// evalLambda evaluates a Lambda's body with Identifier already bound by the caller (a higher
// order user function's operand alias, or a query clause); Lambda itself does no binding.
func (i *interpreter) evalLambda(ctx context.Context, n *model.Lambda, arg result.Value) (result.Value, error) {
	i.refs.EnterScope()
	defer i.refs.ExitScope()
	if err := i.refs.Alias(n.Identifier, arg); err != nil {
		return result.Value{}, err
	}
	return i.evalExpression(ctx, n.Body)
}

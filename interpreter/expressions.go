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
	"strings"

	"github.com/clinical-lang/cqlfhir/model"
	"github.com/clinical-lang/cqlfhir/navigator"
	"github.com/clinical-lang/cqlfhir/result"
)

// evalExpression is the single entry point every node kind is evaluated through.
func (i *interpreter) evalExpression(ctx context.Context, e model.IExpression) (result.Value, error) {
	if e == nil {
		return result.Null(), nil
	}
	switch n := e.(type) {
	case *model.Literal:
		return i.evalLiteral(n)
	case *model.Interval:
		return i.evalInterval(ctx, n)
	case *model.Quantity:
		return i.evalQuantity(n)
	case *model.Ratio:
		return i.evalRatioLiteral(n)
	case *model.List:
		return i.evalList(ctx, n)
	case *model.Code:
		return i.evalCode(ctx, n)
	case *model.Tuple:
		return i.evalTuple(ctx, n)
	case *model.Query:
		return i.evalQuery(ctx, n)
	case *model.Property:
		return i.evalProperty(ctx, n)
	case *model.Retrieve:
		return i.evalRetrieve(ctx, n)
	case *model.Case:
		return i.evalCase(ctx, n)
	case *model.IfThenElse:
		return i.evalIfThenElse(ctx, n)
	case *model.Let:
		return i.evalLet(ctx, n)
	case *model.FunctionRef:
		return i.evalFunctionRef(ctx, n)

	case *model.ParameterRef:
		return i.evalRef(n.LibraryName, n.Name)
	case *model.ValuesetRef:
		return i.evalRef(n.LibraryName, n.Name)
	case *model.CodeSystemRef:
		return i.evalRef(n.LibraryName, n.Name)
	case *model.ConceptRef:
		return i.evalRef(n.LibraryName, n.Name)
	case *model.CodeRef:
		return i.evalRef(n.LibraryName, n.Name)
	case *model.ExpressionRef:
		return i.evalExpressionRef(ctx, n)
	case *model.AliasRef:
		return i.evalAliasLikeRef(n.Name)
	case *model.QueryLetRef:
		return i.evalAliasLikeRef(n.Name)
	case *model.OperandRef:
		return i.evalAliasLikeRef(n.Name)
	case *model.IdentifierRef:
		return i.evalAliasLikeRef(n.Name)

	case *model.As:
		return i.evalAs(ctx, n)
	case *model.Is:
		return i.evalIs(ctx, n)

	case model.IUnaryExpression:
		return i.evalUnary(ctx, n)
	case model.IBinaryExpression:
		return i.evalBinary(ctx, n)
	case model.INaryExpression:
		return i.evalNary(ctx, n)
	default:
		return result.Value{}, fmt.Errorf("internal error - unsupported node type %T", e)
	}
}

// evalExprs evaluates each of es in order, propagating the first error.
func (i *interpreter) evalExprs(ctx context.Context, es []model.IExpression) ([]result.Value, error) {
	out := make([]result.Value, len(es))
	for idx, e := range es {
		v, err := i.evalExpression(ctx, e)
		if err != nil {
			return nil, err
		}
		out[idx] = v
	}
	return out, nil
}

// evalRef resolves a reference that is never shadowed by an alias (Parameter/Valueset/CodeSystem/
// Concept/Code), optionally qualified by libraryName.
func (i *interpreter) evalRef(libraryName, name string) (result.Value, error) {
	if libraryName == "" {
		return i.refs.ResolveLocal(name)
	}
	return i.refs.ResolveGlobal(libraryName, name)
}

// evalAliasLikeRef resolves a query alias, query let, function operand, or as-yet-unqualified bare
// identifier - all of which live in the resolver's scoped alias stack. An identifier the resolver
// knows nothing about falls back to the FHIR context: it either names the focus resource's own
// type (a FHIRPath expression opening with "Patient.foo") or a property directly off it (a
// `context Patient` CQL statement, under which bare "foo" means "Patient.foo").
func (i *interpreter) evalAliasLikeRef(name string) (result.Value, error) {
	v, err := i.refs.ResolveLocal(name)
	if err == nil {
		return v, nil
	}
	// A name the local scope doesn't know about is treated as a context property reference, same
	// as a Property evaluated against a null source: an absent focus yields Null rather than
	// propagating the local resolution error.
	if result.IsNull(i.focus) {
		return result.Null(), nil
	}
	named, ok := i.focus.GolangValue().(result.Named)
	if !ok {
		return result.Null(), nil
	}
	if named.RuntimeType != nil && strings.EqualFold(named.RuntimeType.TypeName, name) {
		return i.focus, nil
	}
	return navigator.Property(named, name, nil, i.evalTimestamp.Location())
}

// evalExpressionRef resolves a reference to a top level CQL definition, evaluating (and memoizing)
// it on first use regardless of source order.
func (i *interpreter) evalExpressionRef(ctx context.Context, n *model.ExpressionRef) (result.Value, error) {
	if n.LibraryName == "" {
		return i.ensureDef(ctx, i.currentLib, n.Name)
	}
	id := i.refs.ResolveInclude(n.LibraryName)
	if id == nil {
		return result.Value{}, fmt.Errorf("could not resolve the library name %s", n.LibraryName)
	}
	return i.ensureDef(ctx, result.LibKeyFromModel(id), n.Name)
}

// evalProperty resolves Source.Path: a navigator property lookup against a FHIR resource, or a
// field/index lookup against a Tuple/Interval/List/Quantity runtime value.
func (i *interpreter) evalProperty(ctx context.Context, p *model.Property) (result.Value, error) {
	// A dotted reference whose leftmost name is an include alias - e.g. Helpers.HalfOf21 - is a
	// cross-library definition reference, not a navigator property lookup; the parser has no way
	// to tell the two apart at parse time, so the rewrite happens here on first evaluation.
	if id, ok := p.Source.(*model.IdentifierRef); ok {
		if libID := i.refs.ResolveInclude(id.Name); libID != nil {
			return i.ensureDef(ctx, result.LibKeyFromModel(libID), p.Path)
		}
	}
	src, err := i.evalExpression(ctx, p.Source)
	if err != nil {
		return result.Value{}, err
	}
	if result.IsNull(src) {
		return result.Null(), nil
	}
	switch v := src.GolangValue().(type) {
	case result.Named:
		return navigator.Property(v, p.Path, p.GetResultType(), i.evalTimestamp.Location())
	case result.Tuple:
		if fv, ok := v.Value[p.Path]; ok {
			return fv, nil
		}
		return result.Null(), nil
	case result.Interval:
		switch p.Path {
		case "low":
			return v.Low, nil
		case "high":
			return v.High, nil
		case "lowClosed":
			return result.New(v.LowInclusive)
		case "highClosed":
			return result.New(v.HighInclusive)
		}
		return result.Null(), nil
	case result.Quantity:
		switch p.Path {
		case "value":
			return result.New(v.Value)
		case "unit":
			return result.New(v.Unit)
		}
		return result.Null(), nil
	case result.Code:
		switch p.Path {
		case "code":
			return result.New(v.Code)
		case "system":
			return result.New(v.System)
		case "version":
			return result.New(v.Version)
		case "display":
			return result.New(v.Display)
		}
		return result.Null(), nil
	default:
		return result.Null(), nil
	}
}

// evalRetrieve evaluates a [ResourceType: terminology] expression against the configured
// retriever, filtering to resources whose code property membership-tests true against the
// terminology filter (a ValuesetRef, CodeRef, or literal list of codes), when one is given.
func (i *interpreter) evalRetrieve(ctx context.Context, r *model.Retrieve) (result.Value, error) {
	if i.retriever == nil {
		return result.Value{}, fmt.Errorf("retrieve of %s: no retriever configured", r.DataType)
	}
	docs, err := i.retriever.Retrieve(ctx, r.DataType)
	if err != nil {
		return result.Value{}, fmt.Errorf("retrieve of %s: %w", r.DataType, err)
	}
	var codes []terminologyCode
	if r.Codes != nil {
		filterVal, err := i.evalExpression(ctx, r.Codes)
		if err != nil {
			return result.Value{}, err
		}
		codes, err = valueToTermCodes(filterVal)
		if err != nil {
			return result.Value{}, err
		}
	}

	values := make([]result.Value, 0, len(docs))
	for _, doc := range docs {
		v, err := navigator.NewResource(doc, i.modelInfo)
		if err != nil {
			return result.Value{}, fmt.Errorf("retrieve of %s: %w", r.DataType, err)
		}
		if len(codes) > 0 {
			matched, err := i.resourceMatchesCodes(v, codes)
			if err != nil {
				return result.Value{}, err
			}
			if !matched {
				continue
			}
		}
		values = append(values, v)
	}
	return result.New(result.List{Value: values})
}

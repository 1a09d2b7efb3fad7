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
	"errors"
	"fmt"
	"sort"

	"github.com/clinical-lang/cqlfhir/model"
	"github.com/clinical-lang/cqlfhir/navigator"
	"github.com/clinical-lang/cqlfhir/result"
)

// iteration is the set of alias bindings live for a single row of a query's evaluation. For
// `from (4) A, ({1, 2, 3}) B` an iteration is {A: 4, B: 1}.
type iteration map[string]result.Value

func (it iteration) equal(o iteration) bool {
	if len(it) != len(o) {
		return false
	}
	for k, v := range it {
		ov, ok := o[k]
		if !ok {
			return false
		}
		eq, known, err := equalValues(v, ov)
		if err != nil || !known || !eq {
			return false
		}
	}
	return true
}

// evalQuery implements the CQL/FHIRPath comprehension: multiple sources are combined by cartesian
// product, filtered by Where, then either aggregated or projected by Return (or, for a
// single-source query with neither, unpacked directly).
func (i *interpreter) evalQuery(ctx context.Context, q *model.Query) (result.Value, error) {
	if err := ctx.Err(); err != nil {
		i.diagf(result.CodeCancelled, "", "evaluation cancelled entering query: %v", err)
		return result.Null(), nil
	}
	i.refs.EnterScope()
	defer i.refs.ExitScope()

	iters, err := i.sourceClause(ctx, q.Source)
	if err != nil {
		return result.Value{}, err
	}
	if err := i.letClause(ctx, q.Let); err != nil {
		return result.Value{}, err
	}
	iters, err = i.whereClause(ctx, iters, q.Where)
	if err != nil {
		return result.Value{}, err
	}

	var finalVals []result.Value
	switch {
	case q.Aggregate != nil:
		v, err := i.aggregateClause(ctx, iters, q.Aggregate)
		if err != nil {
			return result.Value{}, err
		}
		return v, nil
	case q.Return != nil:
		finalVals, err = i.returnClause(ctx, iters, q.Return)
		if err != nil {
			return result.Value{}, err
		}
	default:
		if len(q.Source) != 1 {
			return result.Value{}, errors.New("internal error - a multi-source query must have a return clause")
		}
		alias := q.Source[0].Alias
		for _, iter := range iters {
			finalVals = append(finalVals, iter[alias])
		}
	}

	if q.Sort != nil && len(finalVals) > 0 {
		if err := i.sortClause(finalVals, q.Sort); err != nil {
			return result.Value{}, err
		}
	}
	return result.New(result.List{Value: finalVals})
}

// sourceClause evaluates every AliasedSource and returns the cartesian product of their elements
// as a slice of iterations.
func (i *interpreter) sourceClause(ctx context.Context, sources []*model.AliasedSource) ([]iteration, error) {
	if len(sources) == 0 {
		return nil, errors.New("internal error - a query must have at least one source")
	}
	perSource := make([][]iteration, len(sources))
	for idx, src := range sources {
		v, err := i.evalExpression(ctx, src.Source)
		if err != nil {
			return nil, err
		}
		var elems []result.Value
		if l, ok := v.GolangValue().(result.List); ok {
			elems = l.Value
		} else if result.IsNull(v) {
			elems = nil
		} else {
			elems = []result.Value{v}
		}
		rows := make([]iteration, len(elems))
		for j, e := range elems {
			rows[j] = iteration{src.Alias: e}
		}
		perSource[idx] = rows
	}
	return cartesianProduct(perSource), nil
}

func cartesianProduct(sources [][]iteration) []iteration {
	if len(sources) == 0 {
		return nil
	}
	out := sources[0]
	for _, next := range sources[1:] {
		var combined []iteration
		for _, a := range out {
			for _, b := range next {
				row := iteration{}
				for k, v := range a {
					row[k] = v
				}
				for k, v := range b {
					row[k] = v
				}
				combined = append(combined, row)
			}
		}
		out = combined
	}
	return out
}

// letClause aliases every query-scoped let binding once, visible to every later clause through the
// scope entered by evalQuery.
func (i *interpreter) letClause(ctx context.Context, lets []*model.LetClause) error {
	for _, l := range lets {
		v, err := i.evalExpression(ctx, l.Expression)
		if err != nil {
			return err
		}
		if err := i.refs.Alias(l.Identifier, v); err != nil {
			return err
		}
	}
	return nil
}

func (i *interpreter) whereClause(ctx context.Context, iters []iteration, where model.IExpression) ([]iteration, error) {
	if where == nil {
		return iters, nil
	}
	var out []iteration
	for _, iter := range iters {
		if err := ctx.Err(); err != nil {
			i.diagf(result.CodeCancelled, "", "evaluation cancelled during query where clause: %v", err)
			return out, nil
		}
		i.refs.EnterScope()
		if err := aliasIteration(i, iter); err != nil {
			i.refs.ExitScope()
			return nil, err
		}
		v, err := i.evalExpression(ctx, where)
		i.refs.ExitScope()
		if err != nil {
			return nil, err
		}
		b, isNull, err := toTriBool(v)
		if err != nil {
			return nil, err
		}
		if !isNull && b {
			out = append(out, iter)
		}
	}
	return out, nil
}

func aliasIteration(i *interpreter, iter iteration) error {
	for name, v := range iter {
		if err := i.refs.Alias(name, v); err != nil {
			return err
		}
	}
	return nil
}

func (i *interpreter) aggregateClause(ctx context.Context, iters []iteration, agg *model.AggregateClause) (result.Value, error) {
	if agg.Distinct {
		var deduped []iteration
		for _, iter := range iters {
			dup := false
			for _, d := range deduped {
				if d.equal(iter) {
					dup = true
					break
				}
			}
			if !dup {
				deduped = append(deduped, iter)
			}
		}
		iters = deduped
	}

	acc, err := i.evalExpression(ctx, agg.Starting)
	if err != nil {
		return result.Value{}, err
	}
	for _, iter := range iters {
		i.refs.EnterScope()
		if err := i.refs.Alias(agg.Identifier, acc); err != nil {
			i.refs.ExitScope()
			return result.Value{}, err
		}
		if err := aliasIteration(i, iter); err != nil {
			i.refs.ExitScope()
			return result.Value{}, err
		}
		acc, err = i.evalExpression(ctx, agg.Expression)
		i.refs.ExitScope()
		if err != nil {
			return result.Value{}, err
		}
	}
	return acc, nil
}

func (i *interpreter) returnClause(ctx context.Context, iters []iteration, ret *model.ReturnClause) ([]result.Value, error) {
	out := make([]result.Value, 0, len(iters))
	for _, iter := range iters {
		i.refs.EnterScope()
		if err := aliasIteration(i, iter); err != nil {
			i.refs.ExitScope()
			return nil, err
		}
		v, err := i.evalExpression(ctx, ret.Expression)
		i.refs.ExitScope()
		if err != nil {
			return nil, err
		}
		if ret.Distinct {
			dup := false
			for _, o := range out {
				eq, known, err := equalValues(o, v)
				if err != nil {
					return nil, err
				}
				if known && eq {
					dup = true
					break
				}
			}
			if dup {
				continue
			}
		}
		out = append(out, v)
	}
	return out, nil
}

// sortClause orders finalVals in place, by the iteration value itself when a SortByItem's Path is
// empty, or by a named property of it otherwise. Multiple sort items break ties left to right.
func (i *interpreter) sortClause(vals []result.Value, s *model.SortClause) error {
	var sortErr error
	sort.SliceStable(vals, func(a, b int) bool {
		for _, item := range s.ByItems {
			av, err := i.sortKey(vals[a], item.Path)
			if err != nil {
				sortErr = err
				return false
			}
			bv, err := i.sortKey(vals[b], item.Path)
			if err != nil {
				sortErr = err
				return false
			}
			c, ok, err := compareGolang(av.GolangValue(), bv.GolangValue())
			if err != nil {
				sortErr = err
				return false
			}
			if !ok || c == cmpEqual {
				continue
			}
			if item.Direction == model.Descending {
				return c == cmpGreater
			}
			return c == cmpLess
		}
		return false
	})
	return sortErr
}

func (i *interpreter) sortKey(v result.Value, path string) (result.Value, error) {
	if path == "" {
		return v, nil
	}
	named, err := result.ToNamed(v)
	if err != nil {
		if t, ok := v.GolangValue().(result.Tuple); ok {
			if fv, ok := t.Value[path]; ok {
				return fv, nil
			}
			return result.Null(), nil
		}
		return result.Value{}, fmt.Errorf("internal error - cannot sort by path %q on %v", path, v.RuntimeType())
	}
	return navigator.Property(named, path, nil, i.evalTimestamp.Location())
}

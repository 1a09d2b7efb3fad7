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
	"fmt"

	"github.com/clinical-lang/cqlfhir/result"
)

func (i *interpreter) evalExists(v result.Value) (result.Value, error) {
	if result.IsNull(v) {
		return result.New(false)
	}
	l, err := result.ToSlice(v)
	if err != nil {
		return result.Value{}, err
	}
	for _, e := range l {
		if !result.IsNull(e) {
			return result.New(true)
		}
	}
	return result.New(false)
}

func (i *interpreter) evalFirst(v result.Value) (result.Value, error) {
	if result.IsNull(v) {
		return result.Null(), nil
	}
	l, err := result.ToSlice(v)
	if err != nil {
		return result.Value{}, err
	}
	if len(l) == 0 {
		return result.Null(), nil
	}
	return l[0], nil
}

func (i *interpreter) evalLast(v result.Value) (result.Value, error) {
	if result.IsNull(v) {
		return result.Null(), nil
	}
	l, err := result.ToSlice(v)
	if err != nil {
		return result.Value{}, err
	}
	if len(l) == 0 {
		return result.Null(), nil
	}
	return l[len(l)-1], nil
}

// evalSingletonFrom returns the sole element of a single-element list, Null for an empty list, and
// an error for a list with more than one element.
func (i *interpreter) evalSingletonFrom(v result.Value) (result.Value, error) {
	if result.IsNull(v) {
		return result.Null(), nil
	}
	l, err := result.ToSlice(v)
	if err != nil {
		return result.Value{}, err
	}
	switch len(l) {
	case 0:
		return result.Null(), nil
	case 1:
		return l[0], nil
	default:
		return result.Value{}, fmt.Errorf("SingletonFrom: list has %d elements, expected exactly one", len(l))
	}
}

func (i *interpreter) evalAllTrue(v result.Value) (result.Value, error) {
	if result.IsNull(v) {
		return result.New(true)
	}
	l, err := result.ToSlice(v)
	if err != nil {
		return result.Value{}, err
	}
	for _, e := range l {
		b, _, err := toTriBool(e)
		if err != nil {
			return result.Value{}, err
		}
		if !b {
			return result.New(false)
		}
	}
	return result.New(true)
}

func (i *interpreter) evalAnyTrue(v result.Value) (result.Value, error) {
	if result.IsNull(v) {
		return result.New(false)
	}
	l, err := result.ToSlice(v)
	if err != nil {
		return result.Value{}, err
	}
	for _, e := range l {
		b, isNull, err := toTriBool(e)
		if err != nil {
			return result.Value{}, err
		}
		if !isNull && b {
			return result.New(true)
		}
	}
	return result.New(false)
}

func (i *interpreter) evalCount(v result.Value) (result.Value, error) {
	if result.IsNull(v) {
		return result.New(int32(0))
	}
	l, err := result.ToSlice(v)
	if err != nil {
		return result.Value{}, err
	}
	n := 0
	for _, e := range l {
		if !result.IsNull(e) {
			n++
		}
	}
	return result.New(int32(n))
}

func (i *interpreter) evalDistinct(v result.Value) (result.Value, error) {
	if result.IsNull(v) {
		return result.Null(), nil
	}
	l, err := result.ToSlice(v)
	if err != nil {
		return result.Value{}, err
	}
	out := make([]result.Value, 0, len(l))
	for _, e := range l {
		dup := false
		for _, o := range out {
			eq, ok, err := equalValues(e, o)
			if err != nil {
				return result.Value{}, err
			}
			if ok && eq {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, e)
		}
	}
	return result.New(result.List{Value: out})
}

func (i *interpreter) evalFlatten(v result.Value) (result.Value, error) {
	if result.IsNull(v) {
		return result.Null(), nil
	}
	l, err := result.ToSlice(v)
	if err != nil {
		return result.Value{}, err
	}
	out := make([]result.Value, 0, len(l))
	for _, e := range l {
		if result.IsNull(e) {
			continue
		}
		if inner, ok := e.GolangValue().(result.List); ok {
			out = append(out, inner.Value...)
			continue
		}
		out = append(out, e)
	}
	return result.New(result.List{Value: out})
}

func (i *interpreter) evalExcept(l, r result.Value) (result.Value, error) {
	if result.IsNull(l) {
		return result.Null(), nil
	}
	lv, err := result.ToSlice(l)
	if err != nil {
		return result.Value{}, err
	}
	var rv []result.Value
	if !result.IsNull(r) {
		rv, err = result.ToSlice(r)
		if err != nil {
			return result.Value{}, err
		}
	}
	out := make([]result.Value, 0, len(lv))
	for _, e := range lv {
		if !containsValue(rv, e) {
			out = append(out, e)
		}
	}
	return result.New(result.List{Value: out})
}

func (i *interpreter) evalIntersect(l, r result.Value) (result.Value, error) {
	if result.IsNull(l) || result.IsNull(r) {
		return result.Null(), nil
	}
	lv, err := result.ToSlice(l)
	if err != nil {
		return result.Value{}, err
	}
	rv, err := result.ToSlice(r)
	if err != nil {
		return result.Value{}, err
	}
	out := make([]result.Value, 0)
	for _, e := range lv {
		if containsValue(rv, e) && !containsValue(out, e) {
			out = append(out, e)
		}
	}
	return result.New(result.List{Value: out})
}

func (i *interpreter) evalUnion(l, r result.Value) (result.Value, error) {
	var lv, rv []result.Value
	var err error
	if !result.IsNull(l) {
		lv, err = result.ToSlice(l)
		if err != nil {
			return result.Value{}, err
		}
	}
	if !result.IsNull(r) {
		rv, err = result.ToSlice(r)
		if err != nil {
			return result.Value{}, err
		}
	}
	out := make([]result.Value, 0, len(lv)+len(rv))
	for _, e := range append(append([]result.Value{}, lv...), rv...) {
		if !containsValue(out, e) {
			out = append(out, e)
		}
	}
	return result.New(result.List{Value: out})
}

func (i *interpreter) evalCombine(l, r result.Value) (result.Value, error) {
	if result.IsNull(l) {
		return result.Null(), nil
	}
	lv, err := result.ToSlice(l)
	if err != nil {
		return result.Value{}, err
	}
	sep := ""
	if !result.IsNull(r) {
		sep, err = result.ToString(r)
		if err != nil {
			return result.Value{}, err
		}
	}
	s := ""
	for idx, e := range lv {
		if result.IsNull(e) {
			return result.Null(), nil
		}
		str, err := result.ToString(e)
		if err != nil {
			return result.Value{}, err
		}
		if idx > 0 {
			s += sep
		}
		s += str
	}
	return result.New(s)
}

// evalIndexer implements List[Integer] and String[Integer], returning Null for an out-of-bounds
// index rather than erroring.
func (i *interpreter) evalIndexer(l, r result.Value) (result.Value, error) {
	if result.IsNull(l) || result.IsNull(r) {
		return result.Null(), nil
	}
	idx, err := mustInt32(r)
	if err != nil {
		return result.Value{}, err
	}
	switch v := l.GolangValue().(type) {
	case result.List:
		if idx < 0 || int(idx) >= len(v.Value) {
			return result.Null(), nil
		}
		return v.Value[idx], nil
	case string:
		runes := []rune(v)
		if idx < 0 || int(idx) >= len(runes) {
			return result.Null(), nil
		}
		return result.New(string(runes[idx]))
	default:
		return result.Value{}, fmt.Errorf("%w %v to an indexable type", result.ErrCannotConvert, l.RuntimeType())
	}
}

func (i *interpreter) evalConcatenate(ops []result.Value) (result.Value, error) {
	s := ""
	for _, v := range ops {
		if result.IsNull(v) {
			return result.Null(), nil
		}
		str, err := result.ToString(v)
		if err != nil {
			return result.Value{}, err
		}
		s += str
	}
	return result.New(s)
}

func containsValue(haystack []result.Value, needle result.Value) bool {
	for _, h := range haystack {
		eq, ok, err := equalValues(h, needle)
		if err == nil && ok && eq {
			return true
		}
	}
	return false
}

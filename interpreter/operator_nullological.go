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

import "github.com/clinical-lang/cqlfhir/result"

func (i *interpreter) evalNot(v result.Value) (result.Value, error) {
	if result.IsNull(v) {
		return result.Null(), nil
	}
	b, err := result.ToBool(v)
	if err != nil {
		return result.Value{}, err
	}
	return result.New(!b)
}

func (i *interpreter) evalIsTrue(v result.Value) (result.Value, error) {
	if result.IsNull(v) {
		return result.New(false)
	}
	b, err := result.ToBool(v)
	if err != nil {
		return result.Value{}, err
	}
	return result.New(b)
}

func (i *interpreter) evalIsFalse(v result.Value) (result.Value, error) {
	if result.IsNull(v) {
		return result.New(false)
	}
	b, err := result.ToBool(v)
	if err != nil {
		return result.Value{}, err
	}
	return result.New(!b)
}

// evalCoalesce returns the first non-Null operand, or Null if all are Null.
func (i *interpreter) evalCoalesce(ops []result.Value) (result.Value, error) {
	for _, v := range ops {
		if !result.IsNull(v) {
			return v, nil
		}
	}
	return result.Null(), nil
}

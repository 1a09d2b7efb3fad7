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
	"fmt"
	"math"

	"github.com/clinical-lang/cqlfhir/internal/modelinfo"
	"github.com/clinical-lang/cqlfhir/types"
)

// ExactOverloadMatch returns F on a match, or an error if there is no match or the match is
// ambiguous. Unlike OverloadMatch, invoked operands must already equal or be a subtype of the
// matched overload - no conversion wrapping is inserted. Used by the interpreter at evaluation
// time where operand values (not expression nodes) are being dispatched.
func ExactOverloadMatch[F any](invoked []types.IType, overloads []Overload[F], mi *modelinfo.ModelInfos, name string) (F, error) {
	if len(overloads) == 0 {
		return zero[F](), fmt.Errorf("could not resolve %v(%v): %w", name, types.ToStrings(invoked), ErrNoMatch)
	}

	foundMatch := false
	minScore := math.MaxInt
	ambiguous := false
	var matched F
	for _, overload := range overloads {
		match, score, err := operandsExactOrSubtypeMatch(invoked, overload.Operands, mi)
		if err != nil {
			return zero[F](), fmt.Errorf("%v(%v): %w", name, types.ToStrings(invoked), err)
		}
		if match && score == minScore {
			ambiguous = true
			continue
		}
		if match && score < minScore {
			foundMatch = true
			ambiguous = false
			minScore = score
			matched = overload.Result
		}
	}

	if foundMatch && ambiguous {
		return zero[F](), fmt.Errorf("%v(%v) %w", name, types.ToStrings(invoked), ErrAmbiguousMatch)
	}
	if foundMatch {
		return matched, nil
	}
	return zero[F](), fmt.Errorf("could not resolve %v(%v): %w", name, types.ToStrings(invoked), ErrNoMatch)
}

func operandsExactOrSubtypeMatch(invoked []types.IType, declared []types.IType, mi *modelinfo.ModelInfos) (bool, int, error) {
	if len(invoked) != len(declared) {
		return false, 0, nil
	}
	score := 0
	for i := range invoked {
		if invoked[i] == types.Unset {
			return false, score, fmt.Errorf("internal error - invokedType is unset")
		}
		if declared[i] == types.Unset {
			return false, score, fmt.Errorf("internal error - declaredType is unset")
		}
		if invoked[i].Equal(declared[i]) {
			continue
		}
		isSub, err := mi.IsSubType(invoked[i], declared[i])
		if err != nil {
			return false, score, err
		}
		if !isSub {
			return false, score, nil
		}
		score++
	}
	return true, score, nil
}

func zero[T any]() T {
	var z T
	return z
}

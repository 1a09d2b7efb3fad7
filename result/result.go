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

package result

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pborman/uuid"

	"github.com/clinical-lang/cqlfhir/model"
)

// Libraries is the result of evaluating a set of CQL libraries: for each library, the Value of
// every (by default, public-only) expression definition.
type Libraries map[LibKey]map[string]Value

type cqlLibJSON struct {
	Name    string           `json:"libName"`
	Version string           `json:"libVersion"`
	ExpDefs map[string]Value `json:"expressionDefinitions"`
}

// MarshalJSON renders Libraries as a list of {libName, libVersion, expressionDefinitions}.
func (l Libraries) MarshalJSON() ([]byte, error) {
	r := []cqlLibJSON{}
	for k, v := range l {
		r = append(r, cqlLibJSON{Name: k.Name, Version: k.Version, ExpDefs: v})
	}
	return json.Marshal(r)
}

// LibKey uniquely identifies a CQL library.
type LibKey struct {
	Name      string
	Version   string
	IsUnnamed bool
}

// UnnamedLibKey returns a LibKey for a library without an identifier: "Unnamed Library" plus a
// random UUID so that two unnamed libraries compiled in the same session never collide in the
// definition cache.
func UnnamedLibKey() LibKey {
	return LibKey{Name: "Unnamed Library", Version: uuid.New(), IsUnnamed: true}
}

// LibKeyFromModel builds a LibKey from a model.LibraryIdentifier, or UnnamedLibKey() if nil.
func LibKeyFromModel(id *model.LibraryIdentifier) LibKey {
	if id == nil {
		return UnnamedLibKey()
	}
	return LibKey{Name: id.Qualified, Version: id.Version}
}

// Key returns a unique string key for the library, suitable for map keys and log lines.
func (l LibKey) Key() string {
	if l.Version == "" {
		return l.Name
	}
	return l.Name + " " + l.Version
}

// String implements fmt.Stringer.
func (l LibKey) String() string {
	if l.IsUnnamed {
		return "Unnamed Library"
	}
	return l.Key()
}

// DefKey uniquely identifies a named definition, parameter, or valueset within a library.
type DefKey struct {
	Name    string
	Library LibKey
}

// EngineErrorType tags the category of an EngineError.
type EngineErrorType error

// Sentinel error categories, matched with errors.Is against EngineError.ErrType.
var (
	ErrLibraryParsing   = errors.New("failed to parse library")
	ErrParameterParsing = errors.New("failed to parse parameter")
	ErrEvaluationError  = errors.New("failed during CQL/FHIRPath evaluation")
)

// EngineError is returned at every package boundary (Parse, Compile, Eval, and their FHIRPath
// counterparts) when the engine fails. It is the only error type callers need to type-switch on.
type EngineError struct {
	Resource string
	ErrType  EngineErrorType
	Err      error
}

// NewEngineError wraps err as an EngineError of the given category, naming the resource (library
// or FHIRPath source) being processed.
func NewEngineError(resource string, errType EngineErrorType, err error) EngineError {
	return EngineError{Resource: resource, ErrType: errType, Err: err}
}

// Error implements the error interface.
func (e EngineError) Error() string {
	return fmt.Sprintf("%s: %s, %s", e.ErrType.Error(), e.Resource, e.Err.Error())
}

// Unwrap allows errors.Is/errors.As to see through to the wrapped error.
func (e EngineError) Unwrap() error { return e.Err }

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

// Package cqlfhir is the programmatic entry point for the CQL and FHIRPath evaluators: parsing
// source into an AST, compiling one or more CQL libraries, and evaluating a definition (or a bare
// FHIRPath expression) against an optional focus resource and environment.
package cqlfhir

import (
	"context"
	"fmt"
	"time"

	"github.com/clinical-lang/cqlfhir/internal/modelinfo"
	"github.com/clinical-lang/cqlfhir/interpreter"
	"github.com/clinical-lang/cqlfhir/library"
	"github.com/clinical-lang/cqlfhir/model"
	"github.com/clinical-lang/cqlfhir/navigator"
	"github.com/clinical-lang/cqlfhir/parser"
	"github.com/clinical-lang/cqlfhir/result"
	"github.com/clinical-lang/cqlfhir/retriever"
	"github.com/clinical-lang/cqlfhir/terminology"
)

// Diagnostics is the parse-time error list produced by ParseFHIRPath, ParseCQL, and anything built
// on top of them. A nil *Diagnostics, or one with HasErrors() false, means parsing succeeded.
type Diagnostics = parser.Diagnostics

// CompiledLibrary is a parsed CQL library addressed by its library key, ready for Eval or for
// inclusion by another library in the same Session.
type CompiledLibrary = library.CompiledLibrary

// ParseFHIRPath parses a single bare FHIRPath expression.
func ParseFHIRPath(src string) (model.IExpression, *Diagnostics) {
	return parser.ParseFHIRPath(src)
}

// ParseCQL parses a complete CQL library.
func ParseCQL(src string) (*model.Library, *Diagnostics) {
	return parser.ParseCQL(src)
}

// Compile wraps an already-parsed library AST as a CompiledLibrary, keyed by its declared
// identifier. It performs no semantic checking beyond what ParseCQL already did: this engine
// resolves overloads and validates types against the data model lazily, at Eval time.
func Compile(libraryAST *model.Library) *CompiledLibrary {
	return &CompiledLibrary{Key: result.LibKeyFromModel(libraryAST.Identifier), Library: libraryAST}
}

// Env is the evaluation environment shared by EvaluateFHIRPath, EvaluateDefinition, and
// EvaluateAll: the data model, data access, and timing a library or expression evaluates against.
type Env struct {
	// DataModels describes the FHIR surface `using FHIR` libraries and FHIRPath focus navigation
	// are checked against. Required whenever a library declares a using statement or a FHIRPath
	// expression is given a focus resource.
	DataModels *modelinfo.ModelInfos
	// Retriever answers Retrieve expressions ("[Condition: ...]"). Nil if nothing retrieves data.
	Retriever retriever.Retriever
	// Terminology answers InCodeSystem/InValueSet membership. Nil if nothing tests membership.
	Terminology terminology.Provider
	// Parameters overrides a library's declared parameter defaults.
	Parameters map[result.DefKey]result.Value
	// EvaluationTimestamp fixes Now()/Today()/TimeOfDay() for the whole evaluation, and supplies
	// the timezone timezone-less date/time literals and FHIR date/time strings are read in. The
	// zero Time defaults to time.Now() in the local zone.
	EvaluationTimestamp time.Time
	// ReturnPrivateDefs includes private expression definitions in EvaluateAll's result.
	ReturnPrivateDefs bool
}

func (e Env) toConfig() interpreter.Config {
	return interpreter.Config{
		DataModels:          e.DataModels,
		Parameters:          e.Parameters,
		Retriever:           e.Retriever,
		Terminology:         e.Terminology,
		EvaluationTimestamp: e.EvaluationTimestamp,
		ReturnPrivateDefs:   e.ReturnPrivateDefs,
	}
}

// Focus wraps a FHIR resource JSON document as the value a bare identifier or `context`
// declaration navigates from, per env's data model.
func Focus(resourceJSON []byte, env Env) (result.Value, error) {
	return navigator.NewResource(resourceJSON, env.DataModels)
}

// Session accumulates a set of mutually-including CQL libraries and evaluates them together,
// ordering includes so that every library is evaluated after everything it includes.
type Session struct {
	mgr *library.Manager
}

// NewSession returns an empty Session.
func NewSession() *Session {
	return &Session{mgr: library.NewManager()}
}

// AddLibrary parses src and adds it to the session. Returns an EngineError wrapping the parse
// Diagnostics on failure.
func (s *Session) AddLibrary(src string) (*CompiledLibrary, error) {
	cl, err := s.mgr.Add(src)
	if err != nil {
		return nil, result.NewEngineError("Unnamed Library", result.ErrLibraryParsing, err)
	}
	return cl, nil
}

// EvaluateAll evaluates every library added to the session (in include order) and returns every
// (by default, public) expression definition's Value, keyed by library then definition name, plus
// any non-fatal runtime Diagnostics raised along the way.
func (s *Session) EvaluateAll(ctx context.Context, env Env) (result.Libraries, result.RuntimeDiagnostics, error) {
	libs, err := s.mgr.Ordered()
	if err != nil {
		return nil, nil, result.NewEngineError("", result.ErrEvaluationError, err)
	}
	cfg := env.toConfig()
	return interpreter.Eval(ctx, libs, cfg)
}

// EvaluateDefinition evaluates every library in the session and returns the Value of a single
// named definition in the library identified by name/version (an empty version matches the
// highest version loaded), plus any non-fatal runtime Diagnostics raised along the way.
func (s *Session) EvaluateDefinition(ctx context.Context, libName, libVersion, defName string, env Env) (result.Value, result.RuntimeDiagnostics, error) {
	cl, ok := s.mgr.Get(libName, libVersion)
	if !ok {
		return result.Value{}, nil, result.NewEngineError(libName, result.ErrEvaluationError, fmt.Errorf("library %s not loaded", libName))
	}
	all, diags, err := s.EvaluateAll(ctx, env)
	if err != nil {
		return result.Value{}, diags, err
	}
	defs, ok := all[cl.Key]
	if !ok {
		return result.Value{}, diags, result.NewEngineError(libName, result.ErrEvaluationError, fmt.Errorf("library %s produced no definitions", libName))
	}
	v, ok := defs[defName]
	if !ok {
		return result.Value{}, diags, result.NewEngineError(libName, result.ErrEvaluationError, fmt.Errorf("no definition named %s in library %s", defName, libName))
	}
	return v, diags, nil
}

// EvaluateFHIRPath parses and evaluates a single bare FHIRPath expression against an optional
// focus resource, with no library, include, or cross-definition machinery involved. The returned
// *Diagnostics carries parse errors; runtime conditions (overflow, unit mismatch, cancellation)
// are returned separately as result.RuntimeDiagnostics.
func EvaluateFHIRPath(ctx context.Context, src string, focus result.Value, env Env) (result.Value, *Diagnostics, result.RuntimeDiagnostics, error) {
	lib, diags := parser.ParseFHIRPathLibrary(src)
	if diags.HasErrors() {
		return result.Value{}, diags, nil, nil
	}
	cfg := env.toConfig()
	cfg.Focus = focus
	libs, runtimeDiags, err := interpreter.Eval(ctx, []*model.Library{lib}, cfg)
	if err != nil {
		return result.Value{}, diags, runtimeDiags, err
	}
	for _, defs := range libs {
		if v, ok := defs["FHIRPath"]; ok {
			return v, diags, runtimeDiags, nil
		}
	}
	return result.Null(), diags, runtimeDiags, nil
}


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

// Package interpreter tree-walks a compiled CQL/FHIRPath model.Library and produces result.Value.
// It resolves references, dispatches operators against runtime values, and fans out to the
// retriever and terminology provider a caller supplies through Config.
package interpreter

import (
	"context"
	"fmt"
	"time"

	"github.com/clinical-lang/cqlfhir/internal/modelinfo"
	"github.com/clinical-lang/cqlfhir/internal/reference"
	"github.com/clinical-lang/cqlfhir/model"
	"github.com/clinical-lang/cqlfhir/result"
	"github.com/clinical-lang/cqlfhir/retriever"
	"github.com/clinical-lang/cqlfhir/terminology"
	"github.com/clinical-lang/cqlfhir/types"
)

// Config supplies everything an Eval call needs beyond the libraries themselves.
type Config struct {
	// DataModels describes the FHIR surface `using FHIR` libraries navigate. Required whenever any
	// library being evaluated declares a using statement.
	DataModels *modelinfo.ModelInfos
	// Parameters overrides a library's declared parameter defaults, keyed by DefKey.
	Parameters map[result.DefKey]result.Value
	// Retriever answers Retrieve expressions. May be nil if no library retrieves data.
	Retriever retriever.Retriever
	// Terminology answers InCodeSystem/InValueSet membership. May be nil if no library uses them.
	Terminology terminology.Provider
	// EvaluationTimestamp fixes Now()/Today()/TimeOfDay() for the whole Eval call, so repeated
	// evaluation of the same library is deterministic.
	EvaluationTimestamp time.Time
	// ReturnPrivateDefs includes private expression definitions in the result, mainly for tests.
	ReturnPrivateDefs bool
	// Focus is the FHIR resource a bare identifier or `context` declaration navigates from, e.g.
	// the Patient a library is being evaluated for. May be the zero Value if libs never navigate
	// an implicit context (true of most CQL and of no FHIRPath evaluation).
	Focus result.Value
}

// interpreter carries the state threaded through every eval* call for one Eval invocation.
type interpreter struct {
	refs      *reference.Resolver[result.Value, *model.FunctionDef]
	retriever retriever.Retriever
	terminologyProvider terminology.Provider
	modelInfo *modelinfo.ModelInfos
	evalTimestamp time.Time
	focus         result.Value

	// rawDefs holds the unevaluated body of every top level ExpressionDef, keyed by DefKey, so
	// ExpressionRefs can be evaluated on first use regardless of source order.
	rawDefs map[result.DefKey]model.IExpression
	// defCache memoizes the Value each ExpressionDef evaluates to. A library is only ever
	// evaluated once per Eval call even when several other definitions reference it.
	defCache map[result.DefKey]result.Value
	// evaluating detects a reference cycle among ExpressionDefs.
	evaluating map[result.DefKey]bool
	// defAccess records each ExpressionDef's visibility, since (unlike refs.Define) rawDefs are
	// evaluated lazily and never go through the resolver's own public/private bookkeeping.
	defAccess map[result.DefKey]model.AccessLevel

	// libKeys and unnamedIDs let the interpreter switch refs back to an already-declared library's
	// scope (via Reenter/ReenterUnnamed) when resolving a definition in a library other than the
	// one currently being evaluated.
	libKeys        map[*model.Library]result.LibKey
	unnamedIDs     map[*model.Library]int
	unnamedIDByKey map[result.LibKey]int
	// currentLib mirrors which library i.refs is currently scoped to, so ensureDef can restore it
	// after temporarily switching away to evaluate a cross-library reference.
	currentLib result.LibKey

	// diagnostics accumulates non-fatal runtime conditions (overflow, unit mismatch, cyclic
	// definitions, recursion limit, cancellation) whose affected expression still evaluates to Null.
	diagnostics result.RuntimeDiagnostics
	// callDepth counts nested user-function calls, enforced against maxCallDepth in evalFunctionRef.
	callDepth int
}

// maxCallDepth bounds nested user-defined function calls, matching the recursion limit a
// stack-overflow guard in a tree-walking evaluator needs regardless of host stack size.
const maxCallDepth = 256

// diagf records a runtime Diagnostic for source (typically a DefKey.Key() or function name).
func (i *interpreter) diagf(code result.DiagnosticCode, source, format string, args ...any) {
	i.diagnostics.Add(result.SeverityWarning, code, source, format, args...)
}

// switchTo re-enters lib's scope in i.refs, so subsequent Define/ResolveLocal/Alias calls apply to
// lib rather than whichever library was current before.
func (i *interpreter) switchTo(lib *model.Library) {
	i.switchToKey(i.libKeys[lib])
}

// switchToKey re-enters the scope of the library identified by lk.
func (i *interpreter) switchToKey(lk result.LibKey) {
	if lk.IsUnnamed {
		i.refs.ReenterUnnamed(i.unnamedIDByKey[lk])
	} else {
		_ = i.refs.Reenter(&model.LibraryIdentifier{Qualified: lk.Name, Version: lk.Version})
	}
	i.currentLib = lk
}

// Eval evaluates every public (and, if requested, private) expression definition in libs and
// returns their values, keyed by library then definition name, plus any non-fatal runtime
// Diagnostics raised along the way (overflow, unit mismatch, cyclic definitions, recursion limit,
// cancellation) — each one's affected definition still resolves to Null rather than aborting Eval.
func Eval(ctx context.Context, libs []*model.Library, config Config) (result.Libraries, result.RuntimeDiagnostics, error) {
	i := &interpreter{
		refs:                reference.NewResolver[result.Value, *model.FunctionDef](),
		retriever:           config.Retriever,
		terminologyProvider: config.Terminology,
		modelInfo:           config.DataModels,
		evalTimestamp:       config.EvaluationTimestamp,
		focus:               config.Focus,
		rawDefs:             make(map[result.DefKey]model.IExpression),
		defCache:            make(map[result.DefKey]result.Value),
		evaluating:          make(map[result.DefKey]bool),
		defAccess:           make(map[result.DefKey]model.AccessLevel),
		libKeys:             make(map[*model.Library]result.LibKey),
		unnamedIDs:          make(map[*model.Library]int),
		unnamedIDByKey:      make(map[result.LibKey]int),
	}
	if i.evalTimestamp.IsZero() {
		i.evalTimestamp = time.Now()
	}

	// Every library's identity is registered before any library's includes or statements are
	// processed, so includes may name a library appearing later in libs.
	for _, lib := range libs {
		if err := i.declareIdentity(lib); err != nil {
			return nil, nil, result.NewEngineError(libName(lib), result.ErrEvaluationError, err)
		}
	}
	for _, lib := range libs {
		i.switchTo(lib)
		if err := i.declareIncludesAndUsings(lib); err != nil {
			return nil, nil, result.NewEngineError(libName(lib), result.ErrEvaluationError, err)
		}
	}
	for _, lib := range libs {
		i.switchTo(lib)
		if err := i.evalLibrary(ctx, lib, config.Parameters); err != nil {
			return nil, nil, result.NewEngineError(libName(lib), result.ErrEvaluationError, err)
		}
	}

	defs, err := i.publicDefs(config.ReturnPrivateDefs)
	if err != nil {
		return nil, nil, result.NewEngineError("", result.ErrEvaluationError, err)
	}
	return defs, i.diagnostics, nil
}

func libName(lib *model.Library) string {
	if lib.Identifier == nil {
		return "Unnamed Library"
	}
	return lib.Identifier.Qualified
}

// declareIdentity registers lib's name (or unnamed slot) with the resolver, recording the key the
// rest of the interpreter uses to switch back to lib's scope later.
func (i *interpreter) declareIdentity(lib *model.Library) error {
	lk := result.LibKeyFromModel(lib.Identifier)
	if lib.Identifier == nil {
		id := i.refs.SetCurrentUnnamed()
		i.unnamedIDs[lib] = id
		i.unnamedIDByKey[lk] = id
	} else if err := i.refs.SetCurrentLibrary(lib.Identifier); err != nil {
		return err
	}
	i.libKeys[lib] = lk
	return nil
}

// declareIncludesAndUsings processes lib's using and include statements. Must run only after every
// library passed to Eval has been through declareIdentity, since an include may name a library
// appearing later in that list.
func (i *interpreter) declareIncludesAndUsings(lib *model.Library) error {
	for _, u := range lib.Usings {
		if u.LocalIdentifier != "FHIR" {
			// Only the FHIR data model is understood; other usings are accepted syntactically so
			// that libraries mentioning them still parse, but navigation against them is unsupported.
			continue
		}
		if i.modelInfo != nil {
			i.modelInfo.SetUsing()
		}
	}
	for _, inc := range lib.Includes {
		alias := inc.Alias
		if alias == "" && inc.Identifier != nil {
			alias = inc.Identifier.Qualified
		}
		if err := i.refs.IncludeLibrary(alias, inc.Identifier, true); err != nil {
			return err
		}
	}
	return nil
}

// evalLibrary evaluates lib's parameter, terminology, and code declarations (which have no
// forward-reference problem) and registers its statement definitions for on-demand evaluation.
func (i *interpreter) evalLibrary(ctx context.Context, lib *model.Library, paramOverrides map[result.DefKey]result.Value) error {
	libKey := i.libKeys[lib]

	for _, p := range lib.Parameters {
		v, err := i.evalParameter(ctx, libKey, p, paramOverrides)
		if err != nil {
			return fmt.Errorf("parameter %s: %w", p.Name, err)
		}
		if err := i.refs.Define(&result.Def[result.Value]{Name: p.Name, Result: v, IsPublic: p.AccessLevel != model.Private, ValidateIsUnique: true}); err != nil {
			return err
		}
	}
	for _, cs := range lib.CodeSystems {
		v, err := result.New(result.CodeSystem{ID: cs.ID, Version: cs.Version})
		if err != nil {
			return err
		}
		if err := i.refs.Define(&result.Def[result.Value]{Name: cs.Name, Result: v, IsPublic: cs.AccessLevel != model.Private, ValidateIsUnique: true}); err != nil {
			return err
		}
	}
	for _, vs := range lib.Valuesets {
		v, err := result.New(result.ValueSet{ID: vs.ID, Version: vs.Version})
		if err != nil {
			return err
		}
		if err := i.refs.Define(&result.Def[result.Value]{Name: vs.Name, Result: v, IsPublic: vs.AccessLevel != model.Private, ValidateIsUnique: true}); err != nil {
			return err
		}
	}
	for _, cd := range lib.Codes {
		system, err := i.refs.ResolveLocal(cd.CodeSystem.Name)
		if err != nil {
			return err
		}
		cs, err := result.ToCodeSystem(system)
		if err != nil {
			return err
		}
		v, err := result.New(result.Code{System: cs.ID, Code: cd.Code, Display: cd.Display})
		if err != nil {
			return err
		}
		if err := i.refs.Define(&result.Def[result.Value]{Name: cd.Name, Result: v, IsPublic: cd.AccessLevel != model.Private, ValidateIsUnique: true}); err != nil {
			return err
		}
	}
	for _, cn := range lib.Concepts {
		var codes []result.Code
		for _, ref := range cn.Codes {
			cv, err := i.refs.ResolveLocal(ref.Name)
			if err != nil {
				return err
			}
			c, err := result.ToCode(cv)
			if err != nil {
				return err
			}
			codes = append(codes, c)
		}
		v, err := result.New(result.Concept{Display: cn.Display, Codes: codes})
		if err != nil {
			return err
		}
		if err := i.refs.Define(&result.Def[result.Value]{Name: cn.Name, Result: v, IsPublic: cn.AccessLevel != model.Private, ValidateIsUnique: true}); err != nil {
			return err
		}
	}

	if lib.Statements == nil {
		return nil
	}
	for _, def := range lib.Statements.Defs {
		key := result.DefKey{Name: def.GetName(), Library: libKey}
		switch d := def.(type) {
		case *model.FunctionDef:
			if err := i.refs.DefineFunc(&reference.Func[*model.FunctionDef]{
				Name: d.Name, Operands: operandResultTypes(d.Operands), Result: d,
				IsPublic: d.AccessLevel != model.Private, IsFluent: d.Fluent, ValidateIsUnique: true,
			}); err != nil {
				return err
			}
		case *model.ExpressionDef:
			i.rawDefs[key] = d.Expression
			i.defAccess[key] = d.AccessLevel
		}
	}
	// Force every public (and, for ReturnPrivateDefs callers, every) ExpressionDef to evaluate now
	// so that evaluation errors surface from Eval rather than being deferred to whichever caller
	// first references the definition.
	for _, def := range lib.Statements.Defs {
		if _, ok := def.(*model.ExpressionDef); !ok {
			continue
		}
		if _, err := i.ensureDef(ctx, libKey, def.GetName()); err != nil {
			return fmt.Errorf("%s: %w", def.GetName(), err)
		}
	}
	return nil
}

func operandResultTypes(ops []model.OperandDef) []types.IType {
	out := make([]types.IType, len(ops))
	for i, o := range ops {
		out[i] = o.GetResultType()
	}
	return out
}

func (i *interpreter) evalParameter(ctx context.Context, libKey result.LibKey, p *model.ParameterDef, overrides map[result.DefKey]result.Value) (result.Value, error) {
	if overrides != nil {
		if v, ok := overrides[result.DefKey{Name: p.Name, Library: libKey}]; ok {
			return v, nil
		}
	}
	if p.Default == nil {
		return result.Null(), nil
	}
	return i.evalExpression(ctx, p.Default)
}

// ensureDef evaluates and memoizes the ExpressionDef named name in library lib, detecting cycles.
func (i *interpreter) ensureDef(ctx context.Context, lib result.LibKey, name string) (result.Value, error) {
	key := result.DefKey{Name: name, Library: lib}
	if v, ok := i.defCache[key]; ok {
		return v, nil
	}
	if i.evaluating[key] {
		i.diagf(result.CodeCyclicDefinition, key.Library.Key()+"."+name, "cyclic definition detected evaluating %s.%s", lib.Key(), name)
		return result.Null(), nil
	}
	body, ok := i.rawDefs[key]
	if !ok {
		return result.Value{}, fmt.Errorf("internal error - no definition body for %s.%s", lib.Key(), name)
	}
	prevLib := i.currentLib
	i.switchToKey(lib)
	i.evaluating[key] = true
	v, err := i.evalExpression(ctx, body)
	delete(i.evaluating, key)
	i.switchToKey(prevLib)
	if err != nil {
		return result.Value{}, err
	}
	i.defCache[key] = v
	return v, nil
}

func (i *interpreter) publicDefs(includePrivate bool) (result.Libraries, error) {
	var raw map[result.LibKey]map[string]result.Value
	var err error
	if includePrivate {
		raw, err = i.refs.PublicAndPrivateDefs()
	} else {
		raw, err = i.refs.PublicDefs()
	}
	if err != nil {
		return nil, err
	}
	libs := make(result.Libraries)
	for lk, names := range raw {
		out := make(map[string]result.Value)
		for name, v := range names {
			out[name] = v
		}
		// ExpressionDefs are never pushed through refs.Define (they're resolved lazily via
		// ensureDef/rawDefs instead), so pull their memoized values in separately.
		for key, v := range i.defCache {
			if key.Library != lk {
				continue
			}
			if !includePrivate && i.defAccess[key] == model.Private {
				continue
			}
			out[key.Name] = v
		}
		libs[lk] = out
	}
	return libs, nil
}

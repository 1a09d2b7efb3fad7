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

// Package reference resolves references across CQL libraries and locally within a library, for
// both the parser (resolving to model.IExpression) and the interpreter (resolving to result.Value).
package reference

import (
	"errors"
	"fmt"

	"github.com/clinical-lang/cqlfhir/internal/convert"
	"github.com/clinical-lang/cqlfhir/internal/modelinfo"
	"github.com/clinical-lang/cqlfhir/model"
	"github.com/clinical-lang/cqlfhir/result"
	"github.com/clinical-lang/cqlfhir/types"
)

// Resolver tracks definitions (ExpressionDefs, ParameterDefs, ValuesetDefs...) and aliases across
// CQL libraries and locally within a CQL library. T is the type stored and resolved for
// definitions (model.IExpression for the parser, result.Value for the interpreter); F is the type
// stored and resolved for functions. A Resolver should never be shared between the parser and the
// interpreter - the interpreter gets its own empty Resolver.
type Resolver[T any, F any] struct {
	defs  map[defKey]exprDef[T]
	funcs map[defKey][]funcDef[F]

	// builtinFuncs holds system operators. Only the parser populates this: it rewrites every
	// built-in call into a specific model.go node, so the interpreter never resolves one by name.
	builtinFuncs map[string][]convert.Overload[F]

	// aliases works like a stack, cleared when the scope that introduced them exits. Aliases share
	// a namespace with definitions.
	aliases []map[aliasKey]T

	libs         map[namedLibKey]struct{}
	includedLibs map[includeKey]*model.LibraryIdentifier
	currLib      libKey
	unnamedCount int
}

type exprDef[T any] struct {
	isPublic bool
	result   T
}

type funcDef[F any] struct {
	isPublic bool
	isFluent bool
	overload convert.Overload[F]
}

// NewResolver creates a blank resolver with no global references.
func NewResolver[T any, F any]() *Resolver[T, F] {
	return &Resolver[T, F]{
		defs:         make(map[defKey]exprDef[T]),
		funcs:        make(map[defKey][]funcDef[F]),
		builtinFuncs: make(map[string][]convert.Overload[F]),
		aliases:      make([]map[aliasKey]T, 0),
		libs:         make(map[namedLibKey]struct{}),
		includedLibs: make(map[includeKey]*model.LibraryIdentifier),
	}
}

// ClearDefs clears everything except built-in functions.
func (r *Resolver[T, F]) ClearDefs() {
	r.defs = make(map[defKey]exprDef[T])
	r.funcs = make(map[defKey][]funcDef[F])
	r.aliases = make([]map[aliasKey]T, 0)
	r.libs = make(map[namedLibKey]struct{})
	r.includedLibs = make(map[includeKey]*model.LibraryIdentifier)
}

// SetCurrentLibrary sets the current library. Either SetCurrentLibrary or SetCurrentUnnamed must
// be called before creating or resolving references.
func (r *Resolver[T, F]) SetCurrentLibrary(m *model.LibraryIdentifier) error {
	l := namedLibKey{qualified: m.Qualified, version: m.Version}
	if _, ok := r.libs[l]; ok {
		return fmt.Errorf("library %s %s already exists", m.Qualified, m.Version)
	}
	r.currLib = l
	r.libs[l] = struct{}{}
	return nil
}

// SetCurrentUnnamed should be called when the CQL source has no library statement. All definitions
// in unnamed libraries are private. It returns an opaque id that ReenterUnnamed can later use to
// switch back to this same unnamed library's scope.
func (r *Resolver[T, F]) SetCurrentUnnamed() int {
	l := unnamedLibKey{unnamedID: r.unnamedCount}
	r.currLib = l
	id := r.unnamedCount
	r.unnamedCount++
	return id
}

// Reenter switches back to a library already registered via SetCurrentLibrary, without the
// uniqueness check SetCurrentLibrary applies. Used by callers (like the interpreter) that
// revisit a library's scope after having declared every library up front - e.g. to evaluate a
// definition in library B while currently evaluating one in library A that references it.
func (r *Resolver[T, F]) Reenter(m *model.LibraryIdentifier) error {
	l := namedLibKey{qualified: m.Qualified, version: m.Version}
	if _, ok := r.libs[l]; !ok {
		return fmt.Errorf("library %s %s was not previously registered", m.Qualified, m.Version)
	}
	r.currLib = l
	return nil
}

// ReenterUnnamed switches back to the unnamed library scope identified by id, as returned from a
// prior SetCurrentUnnamed call.
func (r *Resolver[T, F]) ReenterUnnamed(id int) {
	r.currLib = unnamedLibKey{unnamedID: id}
}

// IncludeLibrary should be called once per include statement, before any reference to that
// library is resolved. localAlias is the `called X` local name, or the library's own qualified
// name if none was given.
func (r *Resolver[T, F]) IncludeLibrary(localAlias string, m *model.LibraryIdentifier, validateIsUnique bool) error {
	if validateIsUnique {
		if err := r.isLocallyUnique(localAlias); err != nil {
			return err
		}
	}
	lib := namedLibKey{qualified: m.Qualified, version: m.Version}
	if _, ok := r.libs[lib]; !ok {
		return fmt.Errorf("library %s %s was included, but does not exist", m.Qualified, m.Version)
	}
	r.includedLibs[includeKey{localID: localAlias, includedBy: r.currLib}] = m
	return nil
}

// ResolveInclude returns the fully qualified identifier for a local include alias, or nil.
func (r *Resolver[T, F]) ResolveInclude(name string) *model.LibraryIdentifier {
	iKey := includeKey{localID: name, includedBy: r.currLib}
	if i, ok := r.includedLibs[iKey]; ok {
		return i
	}
	return nil
}

// Def holds the information needed to define a definition.
type Def[T any] struct {
	Name             string
	Result           T
	IsPublic         bool
	ValidateIsUnique bool
}

// Define creates a new definition, returning an error if the name already exists within the
// current library.
func (r *Resolver[T, F]) Define(d *Def[T]) error {
	if d.ValidateIsUnique {
		if err := r.isLocallyUnique(d.Name); err != nil {
			return err
		}
	}
	_, isUnnamed := r.currLib.(unnamedLibKey)
	r.defs[defKey{r.currLib, d.Name}] = exprDef[T]{isPublic: d.IsPublic && !isUnnamed, result: d.Result}
	return nil
}

// Func holds the information needed to define a function.
type Func[F any] struct {
	Name             string
	Operands         []types.IType
	Result           F
	IsPublic         bool
	IsFluent         bool
	ValidateIsUnique bool
}

// DefineFunc creates a new user defined function, returning an error if the name+signature
// already exists. Functions may be overloaded with a unique operand signature per name.
func (r *Resolver[T, F]) DefineFunc(f *Func[F]) error {
	if f.ValidateIsUnique {
		if err := r.isFuncLocallyUnique(f.Name, f.Operands); err != nil {
			return err
		}
	}
	dKey := defKey{r.currLib, f.Name}
	_, isUnnamed := r.currLib.(unnamedLibKey)
	r.funcs[dKey] = append(r.funcs[dKey], funcDef[F]{
		isPublic: f.IsPublic && !isUnnamed,
		isFluent: f.IsFluent,
		overload: convert.Overload[F]{Operands: f.Operands, Result: f.Result},
	})
	return nil
}

// DefineBuiltinFunc registers a system operator. Only the parser calls this, before any CQL
// library is parsed.
func (r *Resolver[T, F]) DefineBuiltinFunc(name string, operands []types.IType, f F) error {
	if overloads, ok := r.builtinFuncs[name]; ok {
		for _, overload := range overloads {
			if exactMatch(operands, overload.Operands) {
				return fmt.Errorf("internal error - built-in function %v(%v) already exists", name, types.ToStrings(operands))
			}
		}
	}
	r.builtinFuncs[name] = append(r.builtinFuncs[name], convert.Overload[F]{Operands: operands, Result: f})
	return nil
}

// ResolveGlobal resolves a reference to a definition in an included library.
func (r *Resolver[T, F]) ResolveGlobal(libName string, defName string) (T, error) {
	iKey := includeKey{localID: libName, includedBy: r.currLib}
	qKey, ok := r.includedLibs[iKey]
	if !ok {
		return zero[T](), fmt.Errorf("could not resolve the library name %s", libName)
	}
	dKey := defKey{namedLibKey{qualified: qKey.Qualified, version: qKey.Version}, defName}
	a, ok := r.defs[dKey]
	if !ok {
		return zero[T](), fmt.Errorf("could not resolve the reference to %s.%s", libName, defName)
	}
	if !a.isPublic {
		return zero[T](), fmt.Errorf("%s.%s is not public", libName, defName)
	}
	return a.result, nil
}

// ResolveGlobalFunc resolves a call to a user defined function in an included library, inserting
// implicit conversions as needed.
func (r *Resolver[T, F]) ResolveGlobalFunc(libName string, defName string, operands []model.IExpression, calledFluently bool, mi *modelinfo.ModelInfos) (*convert.MatchedOverload[F], error) {
	iKey := includeKey{localID: libName, includedBy: r.currLib}
	qKey, ok := r.includedLibs[iKey]
	if !ok {
		return nil, fmt.Errorf("could not resolve the library name %s", libName)
	}
	dKey := defKey{namedLibKey{qualified: qKey.Qualified, version: qKey.Version}, defName}
	var overloads []convert.Overload[F]
	if fDefs, ok := r.funcs[dKey]; ok {
		for _, fDef := range fDefs {
			if fDef.isPublic && (!calledFluently || fDef.isFluent) {
				overloads = append(overloads, fDef.overload)
			}
		}
	}
	ref, err := convert.OverloadMatch(operands, overloads, mi, fmt.Sprintf("%v.%v", libName, defName))
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// ResolveExactGlobalFunc resolves a call to a user defined function in an included library without
// applying any implicit conversions.
func (r *Resolver[T, F]) ResolveExactGlobalFunc(libName string, defName string, operands []types.IType, calledFluently bool, mi *modelinfo.ModelInfos) (F, error) {
	iKey := includeKey{localID: libName, includedBy: r.currLib}
	qKey, ok := r.includedLibs[iKey]
	if !ok {
		return zero[F](), fmt.Errorf("could not resolve the library name %s", libName)
	}
	dKey := defKey{namedLibKey{qualified: qKey.Qualified, version: qKey.Version}, defName}
	var overloads []convert.Overload[F]
	if fDefs, ok := r.funcs[dKey]; ok {
		for _, fDef := range fDefs {
			if fDef.isPublic && (!calledFluently || fDef.isFluent) {
				overloads = append(overloads, fDef.overload)
			}
		}
	}
	ref, err := convert.ExactOverloadMatch(operands, overloads, mi, fmt.Sprintf("%v.%v", libName, defName))
	if err != nil {
		return zero[F](), err
	}
	return ref, nil
}

// ResolveLocal resolves a reference to a definition or alias in the current library.
func (r *Resolver[T, F]) ResolveLocal(name string) (T, error) {
	dKey := defKey{r.currLib, name}
	if a, ok := r.defs[dKey]; ok {
		return a.result, nil
	}
	aKey := aliasKey{r.currLib, name}
	if a, ok := r.findAlias(aKey); ok {
		return a, nil
	}
	return zero[T](), fmt.Errorf("could not resolve the local reference to %s", name)
}

// ResolveLocalFunc resolves a call to a user defined or built-in function in the current library.
func (r *Resolver[T, F]) ResolveLocalFunc(name string, operands []model.IExpression, calledFluently bool, mi *modelinfo.ModelInfos) (*convert.MatchedOverload[F], error) {
	overloads := make([]convert.Overload[F], 0)
	if overs, ok := r.builtinFuncs[name]; ok {
		overloads = append(overloads, overs...)
	}
	if fDefs, ok := r.funcs[defKey{r.currLib, name}]; ok {
		for _, fDef := range fDefs {
			if !calledFluently || fDef.isFluent {
				overloads = append(overloads, fDef.overload)
			}
		}
	}
	ref, err := convert.OverloadMatch(operands, overloads, mi, name)
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// ResolveExactLocalFunc resolves a call to a user defined function in the current library without
// applying any implicit conversions.
func (r *Resolver[T, F]) ResolveExactLocalFunc(name string, operands []types.IType, calledFluently bool, mi *modelinfo.ModelInfos) (F, error) {
	overloads := make([]convert.Overload[F], 0)
	if overs, ok := r.builtinFuncs[name]; ok {
		overloads = append(overloads, overs...)
	}
	if fDefs, ok := r.funcs[defKey{r.currLib, name}]; ok {
		for _, fDef := range fDefs {
			if !calledFluently || fDef.isFluent {
				overloads = append(overloads, fDef.overload)
			}
		}
	}
	ref, err := convert.ExactOverloadMatch(operands, overloads, mi, name)
	if err != nil {
		return zero[F](), err
	}
	return ref, nil
}

// EnterScope starts a new alias scope. ExitScope must be called to remove it.
func (r *Resolver[T, F]) EnterScope() {
	r.aliases = append(r.aliases, make(map[aliasKey]T))
}

// ExitScope removes every alias defined since the matching EnterScope.
func (r *Resolver[T, F]) ExitScope() {
	if len(r.aliases) > 0 {
		r.aliases = r.aliases[:len(r.aliases)-1]
	}
}

// Alias defines a name within the current scope.
func (r *Resolver[T, F]) Alias(name string, a T) error {
	if len(r.aliases) == 0 {
		return errors.New("internal error - EnterScope must be called before creating an alias")
	}
	if err := r.isLocallyUnique(name); err != nil {
		return err
	}
	r.aliases[len(r.aliases)-1][aliasKey{r.currLib, name}] = a
	return nil
}

// PublicDefs returns the public definitions stored in the resolver, keyed by library.
func (r *Resolver[T, F]) PublicDefs() (map[result.LibKey]map[string]T, error) {
	pDefs := make(map[result.LibKey]map[string]T)
	for k, v := range r.defs {
		if !v.isPublic {
			continue
		}
		namedK, ok := k.library.(namedLibKey)
		if !ok {
			return nil, fmt.Errorf("internal error - %v is not a namedLibKey", k.library)
		}
		lKey := result.LibKey{Name: namedK.qualified, Version: namedK.version}
		if _, ok := pDefs[lKey]; !ok {
			pDefs[lKey] = make(map[string]T)
		}
		pDefs[lKey][k.name] = v.result
	}
	return pDefs, nil
}

// PublicAndPrivateDefs returns every definition, including private and unnamed-library ones.
// Intended for tests and the REPL only - unnamed libraries collide under synthetic names if more
// than one is evaluated together.
func (r *Resolver[T, F]) PublicAndPrivateDefs() (map[result.LibKey]map[string]T, error) {
	defs := make(map[result.LibKey]map[string]T)
	for k, v := range r.defs {
		var lKey result.LibKey
		switch tk := k.library.(type) {
		case namedLibKey:
			lKey = result.LibKey{Name: tk.qualified, Version: tk.version}
		case unnamedLibKey:
			lKey = result.LibKey{Name: fmt.Sprintf("UnnamedLibrary-%d", tk.unnamedID), Version: "1.0", IsUnnamed: true}
		default:
			return nil, fmt.Errorf("internal error - %v is an unexpected key type", k.library)
		}
		if _, ok := defs[lKey]; !ok {
			defs[lKey] = make(map[string]T)
		}
		defs[lKey][k.name] = v.result
	}
	return defs, nil
}

func (r *Resolver[T, F]) isLocallyUnique(name string) error {
	dKey := defKey{r.currLib, name}
	if _, ok := r.defs[dKey]; ok {
		return fmt.Errorf("identifier %v already exists in this CQL library", dKey.name)
	}
	iKey := includeKey{localID: name, includedBy: r.currLib}
	if _, ok := r.includedLibs[iKey]; ok {
		return fmt.Errorf("identifier %v already exists in this CQL library", iKey.localID)
	}
	aKey := aliasKey{r.currLib, name}
	if _, ok := r.findAlias(aKey); ok {
		return fmt.Errorf("alias %v already exists", aKey.name)
	}
	return nil
}

func (r *Resolver[T, F]) isFuncLocallyUnique(name string, operands []types.IType) error {
	if overloads, ok := r.builtinFuncs[name]; ok {
		for _, overload := range overloads {
			if exactMatch(operands, overload.Operands) {
				return fmt.Errorf("built-in function %v(%v) already exists", name, types.ToStrings(operands))
			}
		}
	}
	if overloads, ok := r.funcs[defKey{r.currLib, name}]; ok {
		for _, overload := range overloads {
			if exactMatch(operands, overload.overload.Operands) {
				return fmt.Errorf("function %v(%v) already exists", name, types.ToStrings(operands))
			}
		}
	}
	return nil
}

func (r *Resolver[T, F]) findAlias(aKey aliasKey) (T, bool) {
	for i := len(r.aliases) - 1; i >= 0; i-- {
		if t, ok := r.aliases[i][aKey]; ok {
			return t, true
		}
	}
	return zero[T](), false
}

func exactMatch(ops1, ops2 []types.IType) bool {
	if len(ops1) != len(ops2) {
		return false
	}
	for i := range ops1 {
		if !ops1[i].Equal(ops2[i]) {
			return false
		}
	}
	return true
}

type libKey interface {
	isComparableLibKey()
}

type namedLibKey struct {
	qualified string
	version   string
}

func (k namedLibKey) isComparableLibKey() {}

type unnamedLibKey struct {
	unnamedID int
}

func (k unnamedLibKey) isComparableLibKey() {}

type defKey struct {
	library libKey
	name    string
}

type includeKey struct {
	localID    string
	includedBy libKey
}

type aliasKey struct {
	library libKey
	name    string
}

func zero[T any]() T {
	var z T
	return z
}

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

package parser

import (
	"github.com/clinical-lang/cqlfhir/model"
)

// ParseCQL parses a full CQL library: an optional "library Name version 'v'" header, followed by
// using/include/parameter/codesystem/valueset/concept/code/context declarations in any order, and
// finally the library's define statements. Declaration order is significant only for forward
// reference errors, which the resolver (not the parser) reports.
func ParseCQL(src string) (*model.Library, *Diagnostics) {
	errs := &Diagnostics{}
	p := newParser(src, errs)
	lib := &model.Library{Statements: &model.Statements{}}

	if p.atKeyword("library") {
		lib.Identifier = p.parseLibraryHeader()
	}

	for !p.at(TokenEOF) {
		switch {
		case p.atKeyword("using"):
			lib.Usings = append(lib.Usings, p.parseUsing())
		case p.atKeyword("include"):
			lib.Includes = append(lib.Includes, p.parseInclude())
		case p.atKeyword("parameter"):
			lib.Parameters = append(lib.Parameters, p.parseParameterDef())
		case p.atKeyword("codesystem"):
			lib.CodeSystems = append(lib.CodeSystems, p.parseCodeSystemDef())
		case p.atKeyword("valueset"):
			lib.Valuesets = append(lib.Valuesets, p.parseValuesetDef())
		case p.atKeyword("concept"):
			lib.Concepts = append(lib.Concepts, p.parseConceptDef())
		case p.atKeyword("code"):
			lib.Codes = append(lib.Codes, p.parseCodeDef())
		case p.atKeyword("context"):
			lib.Context = p.parseContextDef()
		case p.atKeyword("define"):
			lib.Statements.Defs = append(lib.Statements.Defs, p.parseDefine())
		default:
			t := p.cur()
			errs.Addf(t.Line, t.Col, "expected a library declaration, got %q", t.Text)
			p.advance() // avoid looping forever on unrecognized input
		}
	}
	return lib, errs
}

func (p *Parser) parseLibraryHeader() *model.LibraryIdentifier {
	tok := p.advance() // "library"
	name := p.parseQualifiedName()
	version := ""
	if p.atKeyword("version") {
		p.advance()
		version = p.expect(TokenString).Text
	}
	return &model.LibraryIdentifier{Element: &model.Element{Span: span(tok)}, Qualified: name, Version: version}
}

func (p *Parser) parseUsing() *model.Using {
	tok := p.advance() // "using"
	local := p.parseQualifiedName()
	version := ""
	if p.atKeyword("version") {
		p.advance()
		version = p.expect(TokenString).Text
	}
	return &model.Using{Element: &model.Element{Span: span(tok)}, LocalIdentifier: local, Version: version}
}

func (p *Parser) parseInclude() *model.Include {
	tok := p.advance() // "include"
	name := p.parseQualifiedName()
	version := ""
	if p.atKeyword("version") {
		p.advance()
		version = p.expect(TokenString).Text
	}
	alias := name
	if p.atKeyword("called") {
		p.advance()
		alias = p.parseQualifiedName()
	}
	return &model.Include{
		Element:    &model.Element{Span: span(tok)},
		Identifier: &model.LibraryIdentifier{Element: &model.Element{Span: span(tok)}, Qualified: name, Version: version},
		Alias:      alias,
	}
}

func (p *Parser) parseParameterDef() *model.ParameterDef {
	tok := p.advance() // "parameter"
	pd := &model.ParameterDef{Element: &model.Element{Span: span(tok)}, AccessLevel: model.Public}
	pd.Name = p.parseQualifiedName()
	// An optional type specifier may appear before "default"; it only constrains ResultType, which
	// the resolver infers anyway from the default (or from call sites), so it is parsed and
	// discarded here.
	if p.at(TokenIdentifier) && !p.atKeyword("default") {
		p.parseTypeSpecifier()
	}
	if p.atKeyword("default") {
		p.advance()
		pd.Default = p.parseExpression()
	}
	return pd
}

func (p *Parser) parseCodeSystemDef() *model.CodeSystemDef {
	tok := p.advance() // "codesystem"
	cs := &model.CodeSystemDef{Element: &model.Element{Span: span(tok)}, AccessLevel: model.Public}
	cs.Name = p.parseQualifiedName()
	p.expect(TokenColon)
	cs.ID = p.expect(TokenString).Text
	if p.atKeyword("version") {
		p.advance()
		cs.Version = p.expect(TokenString).Text
	}
	return cs
}

func (p *Parser) parseValuesetDef() *model.ValuesetDef {
	tok := p.advance() // "valueset"
	vs := &model.ValuesetDef{Element: &model.Element{Span: span(tok)}, AccessLevel: model.Public}
	vs.Name = p.parseQualifiedName()
	p.expect(TokenColon)
	vs.ID = p.expect(TokenString).Text
	if p.atKeyword("version") {
		p.advance()
		vs.Version = p.expect(TokenString).Text
	}
	if p.atKeyword("codesystems") || p.atKeyword("codesystem") {
		p.advance()
		vs.CodeSystems = append(vs.CodeSystems, p.parseCodeSystemRef())
		for p.at(TokenComma) {
			p.advance()
			vs.CodeSystems = append(vs.CodeSystems, p.parseCodeSystemRef())
		}
	}
	return vs
}

func (p *Parser) parseCodeSystemRef() *model.CodeSystemRef {
	tok := p.cur()
	name := p.parseQualifiedName()
	return &model.CodeSystemRef{Expression: expr(tok), Name: name}
}

func (p *Parser) parseConceptDef() *model.ConceptDef {
	tok := p.advance() // "concept"
	cd := &model.ConceptDef{Element: &model.Element{Span: span(tok)}, AccessLevel: model.Public}
	cd.Name = p.parseQualifiedName()
	p.expect(TokenColon)
	p.expect(TokenLBrace)
	cd.Codes = append(cd.Codes, p.parseCodeRef())
	for p.at(TokenComma) {
		p.advance()
		cd.Codes = append(cd.Codes, p.parseCodeRef())
	}
	p.expect(TokenRBrace)
	if p.atKeyword("display") {
		p.advance()
		cd.Display = p.expect(TokenString).Text
	}
	return cd
}

func (p *Parser) parseCodeRef() *model.CodeRef {
	tok := p.cur()
	name := p.parseQualifiedName()
	return &model.CodeRef{Expression: expr(tok), Name: name}
}

func (p *Parser) parseCodeDef() *model.CodeDef {
	tok := p.advance() // "code"
	cd := &model.CodeDef{Element: &model.Element{Span: span(tok)}, AccessLevel: model.Public}
	cd.Name = p.parseQualifiedName()
	p.expect(TokenColon)
	cd.Code = p.expect(TokenString).Text
	p.expectKeyword("from")
	cd.CodeSystem = p.parseCodeSystemRef()
	if p.atKeyword("display") {
		p.advance()
		cd.Display = p.expect(TokenString).Text
	}
	return cd
}

func (p *Parser) parseContextDef() *model.ContextDef {
	tok := p.advance() // "context"
	return &model.ContextDef{Element: &model.Element{Span: span(tok)}, Name: p.parseQualifiedName()}
}

// parseDefine parses a "define [access] Name: expr" expression definition or a
// "define [access] function Name(op Type, ...): expr" function definition.
func (p *Parser) parseDefine() model.IExpressionDef {
	tok := p.advance() // "define"
	access := model.Public
	if p.atKeyword("public") {
		p.advance()
	} else if p.atKeyword("private") {
		access = model.Private
		p.advance()
	}

	if p.atKeyword("function") {
		return p.parseFunctionDef(tok, access)
	}

	if p.atKeyword("fluent") {
		p.advance()
		return p.parseFunctionDef(tok, access, withFluent(true))
	}

	name := p.parseQualifiedName()
	p.expect(TokenColon)
	val := p.parseExpression()
	return &model.ExpressionDef{
		Element: &model.Element{Span: span(tok)}, Name: name, Expression: val, AccessLevel: access,
	}
}

type functionDefOption func(*model.FunctionDef)

func withFluent(v bool) functionDefOption {
	return func(fd *model.FunctionDef) { fd.Fluent = v }
}

func (p *Parser) parseFunctionDef(tok Token, access model.AccessLevel, opts ...functionDefOption) model.IExpressionDef {
	p.advance() // "function"
	name := p.parseQualifiedName()
	fd := &model.FunctionDef{
		ExpressionDef: &model.ExpressionDef{Element: &model.Element{Span: span(tok)}, Name: name, AccessLevel: access},
	}
	for _, o := range opts {
		o(fd)
	}

	p.expect(TokenLParen)
	if !p.at(TokenRParen) {
		fd.Operands = append(fd.Operands, p.parseOperandDef())
		for p.at(TokenComma) {
			p.advance()
			fd.Operands = append(fd.Operands, p.parseOperandDef())
		}
	}
	p.expect(TokenRParen)

	if p.at(TokenColon) {
		p.advance()
		fd.Expression = p.parseExpression()
		return fd
	}
	// No body: an "external" function declaration, implemented natively by the interpreter
	// (e.g. operators exposed as callable functions) rather than by a CQL expression.
	if p.atKeyword("external") {
		p.advance()
		fd.External = true
		return fd
	}
	t := p.cur()
	p.errs.Addf(t.Line, t.Col, "expected ':' or 'external' in function definition")
	return fd
}

func (p *Parser) parseOperandDef() model.OperandDef {
	tok := p.cur()
	name := p.parseQualifiedName()
	t := p.parseTypeSpecifier()
	return model.OperandDef{Expression: &model.Expression{Element: &model.Element{Span: span(tok), ResultType: t}}, Name: name}
}

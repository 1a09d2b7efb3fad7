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
	"strings"

	"github.com/clinical-lang/cqlfhir/model"
	"github.com/clinical-lang/cqlfhir/types"
)

// parsePrimary parses one grammar "term": literals, parenthesized expressions, retrieves,
// selectors (list/tuple/interval/code/quantity/ratio), if/case, references, and function calls.
// Queries are also a term alternative; they are attempted first whenever a term could plausibly
// begin one (see maybeParseQuery).
func (p *Parser) parsePrimary() model.IExpression {
	tok := p.cur()
	switch tok.Kind {
	case TokenInteger:
		p.advance()
		return p.withOptionalUnit(tok, &model.Literal{Expression: exprTyped(tok, types.Integer), Value: tok.Text})
	case TokenLong:
		p.advance()
		return &model.Literal{Expression: exprTyped(tok, types.Long), Value: tok.Text}
	case TokenDecimal:
		p.advance()
		return p.withOptionalUnit(tok, &model.Literal{Expression: exprTyped(tok, types.Decimal), Value: tok.Text})
	case TokenString:
		p.advance()
		return &model.Literal{Expression: exprTyped(tok, types.String), Value: tok.Text}
	case TokenDateTime:
		p.advance()
		return &model.Literal{Expression: exprTyped(tok, dateTimeLiteralType(tok.Text)), Value: tok.Text}
	case TokenParamRef:
		p.advance()
		return &model.ParameterRef{Expression: expr(tok), Name: tok.Text}
	case TokenLParen:
		return p.parseParenthesized()
	case TokenLBracket:
		return p.maybeImplicitQuery(tok, p.parseRetrieve())
	case TokenLBrace:
		return p.parseBraceSelector(nil)
	}

	if tok.Kind == TokenIdentifier {
		switch {
		case equalFold(tok.Text, "true"):
			p.advance()
			return &model.Literal{Expression: exprTyped(tok, types.Boolean), Value: "true"}
		case equalFold(tok.Text, "false"):
			p.advance()
			return &model.Literal{Expression: exprTyped(tok, types.Boolean), Value: "false"}
		case equalFold(tok.Text, "null"):
			p.advance()
			return &model.Literal{Expression: model.ResultType(types.Any), Value: ""}
		case equalFold(tok.Text, "if"):
			return p.parseIfThenElse()
		case equalFold(tok.Text, "case"):
			return p.parseCase()
		case equalFold(tok.Text, "from"):
			return p.parseQuery()
		case equalFold(tok.Text, "let"):
			return p.parseLetExpression()
		case equalFold(tok.Text, "Code"):
			return p.parseCodeSelector()
		case equalFold(tok.Text, "List") && p.peek(1).Kind == TokenLt:
			t := p.parseTypeSpecifier().(*types.List)
			return p.parseBraceSelector(t.ElementType)
		case equalFold(tok.Text, "Interval") && p.peek(1).Kind == TokenLBracket:
			return p.parseIntervalSelector()
		case equalFold(tok.Text, "Tuple") && p.peek(1).Kind == TokenLBrace:
			p.advance()
			return p.parseTupleSelector()
		case equalFold(tok.Text, "exists"):
			// Reached only via a bare "exists(...)" that parseUnary didn't intercept, e.g. as an
			// argument; treat consistently with the unary form.
			return p.parseUnary()
		case (equalFold(tok.Text, "duration") || equalFold(tok.Text, "difference")) && keywordText(p.peek(1), "in"):
			return p.parseBetweenPrecisionForm(equalFold(tok.Text, "duration"))
		default:
			if _, ok := precisionFromText(tok.Text); ok && keywordText(p.peek(1), "between") {
				return p.parseBetweenPrecisionForm(false)
			}
		}
	}

	if tok.Kind == TokenIdentifier {
		return p.parseIdentifierOrCall()
	}

	t := p.cur()
	return p.badExpression(t, "unexpected token %q", t.Text)
}

// withOptionalUnit folds a trailing unit (quoted UCUM string or a bare calendar-duration word
// like "days") onto a numeric literal, producing a Quantity node, mirroring CQL's quantity
// literal grammar ("4 'mg'", "3 days"). The Quantity node is built without a ResultType.
func (p *Parser) withOptionalUnit(tok Token, lit *model.Literal) model.IExpression {
	if p.at(TokenString) {
		unit := p.advance()
		q := &model.Quantity{Expression: expr(tok), Value: lit.Value, Unit: unit.Text}
		return p.maybeRatio(tok, *q)
	}
	if p.cur().Kind == TokenIdentifier {
		if _, ok := precisionFromText(p.cur().Text); ok {
			unit := p.advance()
			q := &model.Quantity{Expression: expr(tok), Value: lit.Value, Unit: normalizeDurationUnit(unit.Text)}
			return p.maybeRatio(tok, *q)
		}
	}
	return lit
}

// dateTimeLiteralType classifies a TokenDateTime's text - "@2024", "@2024-01-01T10:30", "@T10:30"
// - into the System type its precision belongs to, since the lexer keeps one token kind for all
// three date/time literal forms and only the text shape distinguishes them.
func dateTimeLiteralType(text string) types.IType {
	switch {
	case strings.HasPrefix(text, "@T"):
		return types.Time
	case strings.Contains(text, "T"):
		return types.DateTime
	default:
		return types.Date
	}
}

// normalizeDurationUnit maps a plural calendar duration word ("days") to its CQL singular unit
// form ("day"); both forms appear in quantity literal source text.
func normalizeDurationUnit(word string) string {
	if prec, ok := precisionFromText(word); ok {
		return string(prec)
	}
	return word
}

// maybeRatio consumes a trailing ":<quantity>" to form a Ratio, e.g. "1 'mg':2 'dL'".
func (p *Parser) maybeRatio(tok Token, num model.Quantity) model.IExpression {
	if !p.at(TokenColon) {
		return &num
	}
	p.advance()
	denomExpr := p.parsePrimary()
	denom, ok := denomExpr.(*model.Quantity)
	if !ok {
		t := p.cur()
		p.errs.Addf(t.Line, t.Col, "expected a quantity after ':' in ratio literal")
		return &num
	}
	return &model.Ratio{Expression: expr(tok), Numerator: num, Denominator: *denom}
}

// parseBetweenPrecisionForm parses "[duration in | difference in] <precision> between Low and
// High", producing DurationBetween or DifferenceBetween. isDuration selects which; callers detect
// the form by peeking before invoking this (either an explicit "duration in"/"difference in"
// prefix, or a bare leading precision word immediately followed by "between").
func (p *Parser) parseBetweenPrecisionForm(isDuration bool) model.IExpression {
	tok := p.cur()
	if equalFold(tok.Text, "duration") || equalFold(tok.Text, "difference") {
		p.advance() // "duration"/"difference"
		p.advance() // "in"
	}
	precTok := p.expect(TokenIdentifier)
	precision, _ := precisionFromText(precTok.Text)
	p.expectKeyword("between")
	low := p.parseAdditive()
	p.expectKeyword("and")
	high := p.parseAdditive()
	bwp := &model.BinaryExpressionWithPrecision{BinaryExpression: binExpr(tok, low, high), Precision: precision}
	if isDuration {
		return &model.DurationBetween{BinaryExpressionWithPrecision: bwp}
	}
	return &model.DifferenceBetween{BinaryExpressionWithPrecision: bwp}
}

func (p *Parser) parseParenthesized() model.IExpression {
	p.advance() // '('
	e := p.parseExpression()
	p.expect(TokenRParen)
	return e
}

// parseRetrieve parses "[ResourceType]" or "[ResourceType: codeFilterExpr]".
func (p *Parser) parseRetrieve() model.IExpression {
	tok := p.advance() // '['
	if !p.at(TokenIdentifier) {
		t := p.cur()
		return p.badExpression(t, "expected resource type name in retrieve")
	}
	dataType := p.advance().Text
	var codes model.IExpression
	if p.at(TokenColon) {
		p.advance()
		codes = p.parseExpression()
	}
	p.expect(TokenRBracket)
	return &model.Retrieve{Expression: expr(tok), DataType: dataType, Codes: codes}
}

// parseBraceSelector parses a "{...}" list selector (optionally element-typed by a preceding
// "List<T>"). An empty "{}" is the empty list.
func (p *Parser) parseBraceSelector(elemType types.IType) model.IExpression {
	tok := p.advance() // '{'
	var items []model.IExpression
	if !p.at(TokenRBrace) {
		items = append(items, p.parseExpression())
		for p.at(TokenComma) {
			p.advance()
			items = append(items, p.parseExpression())
		}
	}
	p.expect(TokenRBrace)
	lst := &model.List{Expression: expr(tok), List: items}
	if elemType != nil {
		lst.ResultType = &types.List{ElementType: elemType}
	}
	return lst
}

// parseTupleSelector parses the body of a "Tuple { name: expr, ... }" constructor, having already
// consumed the leading "Tuple" keyword.
func (p *Parser) parseTupleSelector() model.IExpression {
	tok := p.expect(TokenLBrace)
	var elems []*model.TupleElement
	if !p.at(TokenRBrace) {
		elems = append(elems, p.parseTupleElement())
		for p.at(TokenComma) {
			p.advance()
			elems = append(elems, p.parseTupleElement())
		}
	}
	p.expect(TokenRBrace)
	return &model.Tuple{Expression: expr(tok), Elements: elems}
}

func (p *Parser) parseTupleElement() *model.TupleElement {
	name := p.expect(TokenIdentifier)
	p.expect(TokenColon)
	val := p.parseExpression()
	return &model.TupleElement{Name: name.Text, Value: val}
}

// parseIntervalSelector parses "Interval[Low, High]" and "Interval[Low, High)", having already
// consumed the leading "Interval" keyword; boundary characters set (In|Ex)clusive. parsePrimary
// only routes "Interval[" here, so a selector with an open low boundary ("Interval(") is not
// parsed as an interval.
func (p *Parser) parseIntervalSelector() model.IExpression {
	nameTok := p.advance() // "Interval"
	var lowInclusive bool
	switch {
	case p.at(TokenLBracket):
		lowInclusive = true
		p.advance()
	case p.cur().Kind == TokenIdentifier && p.cur().Text == "(":
		p.advance()
	default:
		p.expect(TokenLBracket)
		lowInclusive = true
	}
	low := p.parseExpression()
	p.expect(TokenComma)
	high := p.parseExpression()
	var highInclusive bool
	if p.at(TokenRBracket) {
		highInclusive = true
		p.advance()
	} else {
		p.advance() // ')'
	}
	return &model.Interval{
		Expression: expr(nameTok), Low: low, High: high,
		LowInclusive: lowInclusive, HighInclusive: highInclusive,
	}
}

// parseCodeSelector parses "Code 'code' from CodeSystemRef" / "Code 'code' from "CodeSystemName"".
func (p *Parser) parseCodeSelector() model.IExpression {
	tok := p.advance() // "Code"
	codeTok := p.expect(TokenString)
	p.expectKeyword("from")
	sysName := p.parseQualifiedName()
	return &model.Code{
		Expression: expr(tok),
		System:     &model.CodeSystemRef{Expression: expr(tok), Name: sysName},
		Code:       codeTok.Text,
	}
}

// parseQualifiedName parses a bare or dotted identifier/string used to name a top level
// declaration (codesystem, valueset, library, ...).
func (p *Parser) parseQualifiedName() string {
	if p.at(TokenString) {
		return p.advance().Text
	}
	if p.at(TokenIdentifier) {
		return p.advance().Text
	}
	t := p.cur()
	p.errs.Addf(t.Line, t.Col, "expected a name")
	return ""
}

func (p *Parser) parseIfThenElse() model.IExpression {
	tok := p.advance() // "if"
	cond := p.parseExpression()
	p.expectKeyword("then")
	then := p.parseExpression()
	p.expectKeyword("else")
	els := p.parseExpression()
	return &model.IfThenElse{Expression: expr(tok), Condition: cond, Then: then, Else: els}
}

func (p *Parser) parseCase() model.IExpression {
	tok := p.advance() // "case"
	c := &model.Case{Expression: expr(tok)}
	if !p.atKeyword("when") {
		c.Comparand = p.parseExpression()
	}
	for p.atKeyword("when") {
		p.advance()
		when := p.parseExpression()
		p.expectKeyword("then")
		then := p.parseExpression()
		c.CaseItem = append(c.CaseItem, &model.CaseItem{When: when, Then: then})
	}
	p.expectKeyword("else")
	c.Else = p.parseExpression()
	p.expectKeyword("end")
	return c
}

// parseLetExpression parses CQL's scalar "let x: E1 return E2" form (distinct from a query's let
// clause, which binds a comprehension variable instead).
func (p *Parser) parseLetExpression() model.IExpression {
	tok := p.advance() // "let"
	if !p.at(TokenIdentifier) {
		t := p.cur()
		return p.badExpression(t, "expected identifier after 'let'")
	}
	ident := p.advance().Text
	p.expect(TokenColon)
	val := p.parseExpression()
	p.expectKeyword("return")
	body := p.parseExpression()
	return &model.Let{Expression: expr(tok), Identifier: ident, Value: val, Body: body}
}

// parseIdentifierOrCall resolves a bare or dotted identifier at term position. It distinguishes:
// a builtin nary function (Date/DateTime/Time/Now/Today/TimeOfDay/Coalesce/Concatenate), a
// user/library function call "name(args)" or "Library.name(args)", and an as-yet-unresolved bare
// identifier (IdentifierRef) that the resolver later binds to a parameter, valueset, alias,
// query-let, expression, or FHIR context property.
func (p *Parser) parseIdentifierOrCall() model.IExpression {
	first := p.advance()

	if p.at(TokenLParen) {
		args := p.parseArgList()
		return p.buildCall(first, "", first.Text, args)
	}

	// A dotted "Library.func(args)" qualified call is recognized directly here, since the
	// resolver needs LibraryName attached to the Call/ExpressionRef node itself; a dotted
	// "Library.exprName" reference with no call parens is left as a plain Property(IdentifierRef,
	// path) for parsePostfix to build, and the resolver rewrites it into an ExpressionRef once it
	// confirms "first" names an Include alias rather than a FHIR context property.
	if p.at(TokenDot) && p.peek(1).Kind == TokenIdentifier && p.peek(2).Kind == TokenLParen {
		p.advance() // '.'
		second := p.advance()
		args := p.parseArgList()
		return p.buildCall(first, first.Text, second.Text, args)
	}

	ref := &model.IdentifierRef{Expression: expr(first), Name: first.Text}
	return p.maybeImplicitQuery(first, ref)
}

// buildCall maps a call name to a built-in Nary node when recognized, else a generic Call node
// the resolver matches against FunctionDefs (possibly qualified by libraryName).
func (p *Parser) buildCall(tok Token, libraryName, name string, args []model.IExpression) model.IExpression {
	if libraryName == "" {
		switch {
		case equalFold(name, "Coalesce"):
			return &model.Coalesce{NaryExpression: &model.NaryExpression{Expression: expr(tok), Operands: args}}
		case equalFold(name, "Concatenate"):
			return &model.Concatenate{NaryExpression: &model.NaryExpression{Expression: expr(tok), Operands: args}}
		case equalFold(name, "Date"):
			return &model.Date{NaryExpression: &model.NaryExpression{Expression: expr(tok), Operands: args}}
		case equalFold(name, "DateTime"):
			return &model.DateTime{NaryExpression: &model.NaryExpression{Expression: expr(tok), Operands: args}}
		case equalFold(name, "Time"):
			return &model.Time{NaryExpression: &model.NaryExpression{Expression: expr(tok), Operands: args}}
		case equalFold(name, "Now") && len(args) == 0:
			return &model.Now{NaryExpression: &model.NaryExpression{Expression: expr(tok)}}
		case equalFold(name, "Today") && len(args) == 0:
			return &model.Today{NaryExpression: &model.NaryExpression{Expression: expr(tok)}}
		case equalFold(name, "TimeOfDay") && len(args) == 0:
			return &model.TimeOfDay{NaryExpression: &model.NaryExpression{Expression: expr(tok)}}
		}
	}
	return &model.Call{
		NaryExpression: &model.NaryExpression{Expression: expr(tok), Operands: args},
		Name:           name,
		LibraryName:    libraryName,
	}
}

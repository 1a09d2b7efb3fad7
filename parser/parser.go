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

// Package parser turns CQL and FHIRPath source text into the shared model.IExpression /
// model.Library tree. There is no ANTLR grammar bundled with this module, so parsing is a single
// hand-written recursive-descent lexer/parser pair using precedence climbing for the binary
// operator grammar (see the precedence table in the package doc for ParseFHIRPath), rather than a
// generated visitor over a parse tree.
package parser

import (
	"github.com/clinical-lang/cqlfhir/model"
	"github.com/clinical-lang/cqlfhir/types"
)

// Parser holds the token cursor and per-parse diagnostics for one source text. It is not
// reentrant and not safe for concurrent use; callers construct a fresh Parser per parse, matching
// the one-shot nature of the teacher's per-file visitor.
type Parser struct {
	toks []Token
	pos  int
	errs *Diagnostics

	// fluentDepth tracks nested FunctionDef parsing so "fluent" postfix calls (period-chained
	// function invocations without the leading identifier acting as a namespace) can be
	// distinguished from qualified library references; see parsePostfix.
	fluentDepth int
}

// newParser tokenizes src in full up front; CQL/FHIRPath sources are small (single
// expressions or single library files), so there is no streaming benefit to lexing lazily.
func newParser(src string, errs *Diagnostics) *Parser {
	lx := newLexer(src, errs)
	var toks []Token
	for {
		t := lx.Next()
		toks = append(toks, t)
		if t.Kind == TokenEOF {
			break
		}
	}
	return &Parser{toks: toks, errs: errs}
}

func (p *Parser) cur() Token  { return p.toks[p.pos] }
func (p *Parser) peek(n int) Token {
	i := p.pos + n
	if i >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[i]
}

func (p *Parser) advance() Token {
	t := p.cur()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) at(k TokenKind) bool { return p.cur().Kind == k }

func (p *Parser) atKeyword(word string) bool { return keywordText(p.cur(), word) }

// expect consumes the current token if it matches k, else records a diagnostic and returns the
// zero Token so the caller can keep parsing with a best-effort placeholder.
func (p *Parser) expect(k TokenKind) Token {
	if p.at(k) {
		return p.advance()
	}
	t := p.cur()
	p.errs.Addf(t.Line, t.Col, "expected %s, got %s", k, t.Kind)
	return t
}

// expectKeyword consumes the current identifier token if its text matches word.
func (p *Parser) expectKeyword(word string) Token {
	if p.atKeyword(word) {
		return p.advance()
	}
	t := p.cur()
	p.errs.Addf(t.Line, t.Col, "expected keyword %q, got %q", word, t.Text)
	return t
}

func span(tok Token) model.Span { return model.Span{Line: tok.Line, Col: tok.Col} }

func expr(tok Token) *model.Expression {
	return &model.Expression{Element: &model.Element{Span: span(tok)}}
}

// exprTyped is expr plus a statically known ResultType, used for literal scalars whose type is
// fixed by the lexical form of the token rather than left for the resolver to infer.
func exprTyped(tok Token, t types.IType) *model.Expression {
	return &model.Expression{Element: &model.Element{Span: span(tok), ResultType: t}}
}

// ParseFHIRPath parses a single bare FHIRPath expression, used both for standalone FHIRPath
// evaluation and for any CQL sub-grammar that is expression-only (e.g. a retrieve's terminology
// filter). Precedence, loosest to tightest:
//
//	implies < (or, xor) < and < equality (=, !=, ~, !~) < relational (<, <=, >, >=)
//	  < membership (in, contains) < type testing (is, as) < union (|) < between/range
//	  < additive (+, -, &) < multiplicative (*, /, div, mod) < power (^) < unary < postfix
func ParseFHIRPath(src string) (model.IExpression, *Diagnostics) {
	errs := &Diagnostics{}
	p := newParser(src, errs)
	e := p.parseExpression()
	if !p.at(TokenEOF) {
		t := p.cur()
		errs.Addf(t.Line, t.Col, "unexpected trailing input starting at %q", t.Text)
	}
	return e, errs
}

// ParseFHIRPathLibrary parses src as a bare FHIRPath expression and wraps it in the same
// model.Library shape ParseCQL produces, under the fixed definition name "FHIRPath", so the
// library manager and evaluator never need a separate code path for the two source languages.
func ParseFHIRPathLibrary(src string) (*model.Library, *Diagnostics) {
	e, errs := ParseFHIRPath(src)
	def := &model.ExpressionDef{
		Element:     &model.Element{Span: e.Pos()},
		Name:        "FHIRPath",
		Expression:  e,
		AccessLevel: model.Public,
	}
	lib := &model.Library{Statements: &model.Statements{Defs: []model.IExpressionDef{def}}}
	return lib, errs
}

func (p *Parser) parseExpression() model.IExpression { return p.parseImplies() }

func (p *Parser) parseImplies() model.IExpression {
	left := p.parseOrXor()
	for p.atKeyword("implies") {
		tok := p.advance()
		right := p.parseOrXor()
		left = &model.Implies{BinaryExpression: binExpr(tok, left, right)}
	}
	return left
}

func (p *Parser) parseOrXor() model.IExpression {
	left := p.parseAnd()
	for p.atKeyword("or") || p.atKeyword("xor") {
		tok := p.advance()
		right := p.parseAnd()
		if equalFold(tok.Text, "xor") {
			left = &model.XOr{BinaryExpression: binExpr(tok, left, right)}
		} else {
			left = &model.Or{BinaryExpression: binExpr(tok, left, right)}
		}
	}
	return left
}

func (p *Parser) parseAnd() model.IExpression {
	left := p.parseEquality()
	for p.atKeyword("and") {
		tok := p.advance()
		right := p.parseEquality()
		left = &model.And{BinaryExpression: binExpr(tok, left, right)}
	}
	return left
}

func (p *Parser) parseEquality() model.IExpression {
	left := p.parseRelational()
	for p.at(TokenEq) || p.at(TokenNeq) || p.at(TokenEquiv) || p.at(TokenNequiv) {
		tok := p.advance()
		right := p.parseRelational()
		be := binExpr(tok, left, right)
		switch tok.Kind {
		case TokenEq:
			left = &model.Equal{BinaryExpression: be}
		case TokenNeq:
			left = &model.Not{UnaryExpression: &model.UnaryExpression{
				Expression: &model.Expression{Element: &model.Element{Span: span(tok)}},
				Operand:    &model.Equal{BinaryExpression: be},
			}}
		case TokenEquiv:
			left = &model.Equivalent{BinaryExpression: be}
		case TokenNequiv:
			left = &model.Not{UnaryExpression: &model.UnaryExpression{
				Expression: &model.Expression{Element: &model.Element{Span: span(tok)}},
				Operand:    &model.Equivalent{BinaryExpression: be},
			}}
		}
	}
	return left
}

func (p *Parser) parseRelational() model.IExpression {
	left := p.parseMembership()
	for p.at(TokenLt) || p.at(TokenLe) || p.at(TokenGt) || p.at(TokenGe) {
		tok := p.advance()
		right := p.parseMembership()
		be := binExpr(tok, left, right)
		switch tok.Kind {
		case TokenLt:
			left = &model.Less{BinaryExpression: be}
		case TokenLe:
			left = &model.LessOrEqual{BinaryExpression: be}
		case TokenGt:
			left = &model.Greater{BinaryExpression: be}
		case TokenGe:
			left = &model.GreaterOrEqual{BinaryExpression: be}
		}
	}
	return left
}

// allenKeyword identifies an Allen-relation or membership keyword at the current position,
// consuming any additional words a multi-word form needs ("same or before", "included in") and
// reporting whether the match is the "included in"/"includes" direction (swaps the node kind).
type allenMatch struct {
	build func(bwp *model.BinaryExpressionWithPrecision) model.IExpression
}

// tryParseAllenOrMembership recognizes one of the keyword forms that make up the membership /
// Allen-relation precedence tier and, on a match, consumes it (including any following words) and
// returns the builder for the matched node kind.
func (p *Parser) tryParseAllenOrMembership() *allenMatch {
	if p.atKeyword("properly") {
		// "properly includes"/"properly included in" narrow to a strict subset/superset test; the
		// evaluator enforces strictness, the parser only needs to consume the qualifier.
		save := p.pos
		p.advance()
		if m := p.tryParseAllenOrMembership(); m != nil {
			return m
		}
		p.pos = save
	}
	switch {
	case p.atKeyword("in"):
		p.advance()
		return &allenMatch{build: func(bwp *model.BinaryExpressionWithPrecision) model.IExpression {
			return &model.In{BinaryExpressionWithPrecision: bwp}
		}}
	case p.atKeyword("contains"):
		p.advance()
		return &allenMatch{build: func(bwp *model.BinaryExpressionWithPrecision) model.IExpression {
			return &model.Contains{BinaryExpressionWithPrecision: bwp}
		}}
	case p.atKeyword("included") && keywordText(p.peek(1), "in"):
		p.advance()
		p.advance()
		return &allenMatch{build: func(bwp *model.BinaryExpressionWithPrecision) model.IExpression {
			return &model.IncludedIn{BinaryExpressionWithPrecision: bwp}
		}}
	case p.atKeyword("includes"):
		p.advance()
		return &allenMatch{build: func(bwp *model.BinaryExpressionWithPrecision) model.IExpression {
			return &model.Contains{BinaryExpressionWithPrecision: bwp}
		}}
	case p.atKeyword("during"):
		p.advance()
		return &allenMatch{build: func(bwp *model.BinaryExpressionWithPrecision) model.IExpression {
			return &model.IncludedIn{BinaryExpressionWithPrecision: bwp}
		}}
	case p.atKeyword("before"):
		p.advance()
		return &allenMatch{build: func(bwp *model.BinaryExpressionWithPrecision) model.IExpression {
			return &model.Before{BinaryExpressionWithPrecision: bwp}
		}}
	case p.atKeyword("after"):
		p.advance()
		return &allenMatch{build: func(bwp *model.BinaryExpressionWithPrecision) model.IExpression {
			return &model.After{BinaryExpressionWithPrecision: bwp}
		}}
	case p.atKeyword("same") && keywordText(p.peek(1), "or") && keywordText(p.peek(2), "before"):
		p.advance()
		p.advance()
		p.advance()
		return &allenMatch{build: func(bwp *model.BinaryExpressionWithPrecision) model.IExpression {
			return &model.SameOrBefore{BinaryExpressionWithPrecision: bwp}
		}}
	case p.atKeyword("same") && keywordText(p.peek(1), "or") && keywordText(p.peek(2), "after"):
		p.advance()
		p.advance()
		p.advance()
		return &allenMatch{build: func(bwp *model.BinaryExpressionWithPrecision) model.IExpression {
			return &model.SameOrAfter{BinaryExpressionWithPrecision: bwp}
		}}
	case p.atKeyword("overlaps"):
		p.advance()
		// "overlaps before"/"overlaps after" narrow which end must overlap; the plain Overlaps
		// node covers both, the qualifier word (if any) is consumed and otherwise unused.
		if p.atKeyword("before") || p.atKeyword("after") {
			p.advance()
		}
		return &allenMatch{build: func(bwp *model.BinaryExpressionWithPrecision) model.IExpression {
			return &model.Overlaps{BinaryExpressionWithPrecision: bwp}
		}}
	case p.atKeyword("meets"):
		p.advance()
		if p.atKeyword("before") || p.atKeyword("after") {
			p.advance()
		}
		return &allenMatch{build: func(bwp *model.BinaryExpressionWithPrecision) model.IExpression {
			return &model.Meets{BinaryExpressionWithPrecision: bwp}
		}}
	case p.atKeyword("starts"):
		p.advance()
		return &allenMatch{build: func(bwp *model.BinaryExpressionWithPrecision) model.IExpression {
			return &model.Starts{BinaryExpressionWithPrecision: bwp}
		}}
	case p.atKeyword("ends") || p.atKeyword("finishes"):
		p.advance()
		return &allenMatch{build: func(bwp *model.BinaryExpressionWithPrecision) model.IExpression {
			return &model.Finishes{BinaryExpressionWithPrecision: bwp}
		}}
	}
	return nil
}

// parseMembership handles "in"/"contains"/"includes"/"during" and the 13 Allen interval
// relations, each with an optional trailing temporal precision unit used when comparing
// Date/DateTime/Time values at a coarser granularity ("x same day as y").
func (p *Parser) parseMembership() model.IExpression {
	left := p.parseTypeExpr()
	for {
		tok := p.cur()
		m := p.tryParseAllenOrMembership()
		if m == nil {
			return left
		}
		precision := p.tryParsePrecisionOf()
		right := p.parseTypeExpr()
		bwp := &model.BinaryExpressionWithPrecision{BinaryExpression: binExpr(tok, left, right), Precision: precision}
		left = m.build(bwp)
	}
}

// tryParsePrecisionOf consumes an optional "<precision> of" qualifier (e.g. "day of") that
// precedes the right-hand operand of in/contains/overlaps/etc.
func (p *Parser) tryParsePrecisionOf() model.DateTimePrecision {
	prec, ok := precisionFromText(p.cur().Text)
	if !ok || p.cur().Kind != TokenIdentifier {
		return model.UnsetPrecision
	}
	if !keywordText(p.peek(1), "of") {
		return model.UnsetPrecision
	}
	p.advance() // precision word
	p.advance() // "of"
	return prec
}

func precisionFromText(s string) (model.DateTimePrecision, bool) {
	switch {
	case equalFold(s, "year") || equalFold(s, "years"):
		return model.Year, true
	case equalFold(s, "month") || equalFold(s, "months"):
		return model.Month, true
	case equalFold(s, "week") || equalFold(s, "weeks"):
		return model.Week, true
	case equalFold(s, "day") || equalFold(s, "days"):
		return model.Day, true
	case equalFold(s, "hour") || equalFold(s, "hours"):
		return model.Hour, true
	case equalFold(s, "minute") || equalFold(s, "minutes"):
		return model.Minute, true
	case equalFold(s, "second") || equalFold(s, "seconds"):
		return model.Second, true
	case equalFold(s, "millisecond") || equalFold(s, "milliseconds"):
		return model.Millisecond, true
	}
	return model.UnsetPrecision, false
}

// parseTypeExpr handles "is"/"as"/"cast as" type testing and casting.
func (p *Parser) parseTypeExpr() model.IExpression {
	left := p.parseUnion()
	for p.atKeyword("is") || p.atKeyword("as") {
		tok := p.advance()
		if equalFold(tok.Text, "is") {
			if node, ok := p.tryParseIsNullTrueFalse(tok, left); ok {
				left = node
				continue
			}
		}
		t := p.parseTypeSpecifier()
		ue := &model.UnaryExpression{Expression: expr(tok), Operand: left}
		if equalFold(tok.Text, "is") {
			left = &model.Is{UnaryExpression: ue, IsTypeSpecifier: t}
		} else {
			left = &model.As{UnaryExpression: ue, AsTypeSpecifier: t}
		}
	}
	return left
}

// tryParseIsNullTrueFalse recognizes "is [not] null", "is true", and "is false", the three forms
// of "is" that test a value rather than its type. The leading "is" keyword has already been
// consumed by the caller.
func (p *Parser) tryParseIsNullTrueFalse(isTok Token, left model.IExpression) (model.IExpression, bool) {
	save := p.pos
	negate := false
	if p.atKeyword("not") {
		negate = true
		p.advance()
	}
	if !p.atKeyword("null") && !p.atKeyword("true") && !p.atKeyword("false") {
		p.pos = save
		return nil, false
	}
	word := p.advance()
	ue := &model.UnaryExpression{Expression: expr(isTok), Operand: left}
	var node model.IExpression
	switch {
	case equalFold(word.Text, "null"):
		node = &model.IsNull{UnaryExpression: ue}
	case equalFold(word.Text, "true"):
		node = &model.IsTrue{UnaryExpression: ue}
	default:
		node = &model.IsFalse{UnaryExpression: ue}
	}
	if negate {
		node = &model.Not{UnaryExpression: &model.UnaryExpression{Expression: expr(isTok), Operand: node}}
	}
	return node, true
}

func (p *Parser) parseUnion() model.IExpression {
	left := p.parseBetween()
	for p.at(TokenPipe) {
		tok := p.advance()
		right := p.parseBetween()
		left = &model.Union{BinaryExpression: binExpr(tok, left, right)}
	}
	return left
}

// parseBetween handles CQL's "X between Low and High" sugar, desugaring to a membership test
// against an Interval constructed from Low/High (spec's additive-level range form).
func (p *Parser) parseBetween() model.IExpression {
	left := p.parseAdditive()
	if p.atKeyword("between") {
		tok := p.advance()
		low := p.parseAdditive()
		p.expectKeyword("and")
		high := p.parseAdditive()
		ivl := &model.Interval{
			Expression: expr(tok), Low: low, High: high, LowInclusive: true, HighInclusive: true,
		}
		bwp := &model.BinaryExpressionWithPrecision{BinaryExpression: binExpr(tok, left, ivl)}
		left = &model.In{BinaryExpressionWithPrecision: bwp}
	}
	return left
}

func (p *Parser) parseAdditive() model.IExpression {
	left := p.parseMultiplicative()
	for p.at(TokenPlus) || p.at(TokenMinus) || p.atAmpersand() {
		tok := p.advance()
		right := p.parseMultiplicative()
		be := binExpr(tok, left, right)
		switch {
		case tok.Kind == TokenPlus:
			left = &model.Add{BinaryExpression: be}
		case tok.Kind == TokenMinus:
			left = &model.Subtract{BinaryExpression: be}
		default: // '&' string concatenation, treating null as empty string
			left = &model.Concatenate{NaryExpression: &model.NaryExpression{Expression: expr(tok), Operands: []model.IExpression{left, right}}}
		}
	}
	return left
}

// atAmpersand reports whether the current token is FHIRPath's '&' concatenation operator. It is
// not tokenized as its own TokenKind because it never appears anywhere else in the grammar; the
// lexer would otherwise need a dedicated kind used in exactly one production.
func (p *Parser) atAmpersand() bool {
	return p.cur().Kind == TokenIdentifier && p.cur().Text == "&"
}

func (p *Parser) parseMultiplicative() model.IExpression {
	left := p.parsePower()
	for p.at(TokenStar) || p.at(TokenSlash) || p.atKeyword("div") || p.atKeyword("mod") {
		tok := p.advance()
		right := p.parsePower()
		be := binExpr(tok, left, right)
		switch {
		case tok.Kind == TokenStar:
			left = &model.Multiply{BinaryExpression: be}
		case tok.Kind == TokenSlash:
			left = &model.Divide{BinaryExpression: be}
		case equalFold(tok.Text, "div"):
			left = &model.TruncatedDivide{BinaryExpression: be}
		default:
			left = &model.Modulo{BinaryExpression: be}
		}
	}
	return left
}

func (p *Parser) parsePower() model.IExpression {
	left := p.parseUnary()
	if p.at(TokenCaret) {
		tok := p.advance()
		right := p.parsePower() // right-associative
		return &model.Power{BinaryExpression: binExpr(tok, left, right)}
	}
	return left
}

func (p *Parser) parseUnary() model.IExpression {
	switch {
	case p.at(TokenMinus):
		tok := p.advance()
		operand := p.parseUnary()
		return &model.Negate{UnaryExpression: &model.UnaryExpression{Expression: expr(tok), Operand: operand}}
	case p.at(TokenPlus):
		p.advance()
		return p.parseUnary()
	case p.atKeyword("not"):
		tok := p.advance()
		operand := p.parseUnary()
		return &model.Not{UnaryExpression: &model.UnaryExpression{Expression: expr(tok), Operand: operand}}
	case p.atKeyword("exists"):
		tok := p.advance()
		operand := p.parseParenthesizedOrUnary()
		return &model.Exists{UnaryExpression: &model.UnaryExpression{Expression: expr(tok), Operand: operand}}
	case p.atKeyword("start") && keywordText(p.peek(1), "of"):
		tok := p.advance()
		p.advance() // "of"
		operand := p.parseParenthesizedOrUnary()
		return &model.Start{UnaryExpression: &model.UnaryExpression{Expression: expr(tok), Operand: operand}}
	case p.atKeyword("end") && keywordText(p.peek(1), "of"):
		tok := p.advance()
		p.advance() // "of"
		operand := p.parseParenthesizedOrUnary()
		return &model.End{UnaryExpression: &model.UnaryExpression{Expression: expr(tok), Operand: operand}}
	case p.atKeyword("predecessor") && keywordText(p.peek(1), "of"):
		tok := p.advance()
		p.advance() // "of"
		operand := p.parseParenthesizedOrUnary()
		return &model.Predecessor{UnaryExpression: &model.UnaryExpression{Expression: expr(tok), Operand: operand}}
	case p.atKeyword("successor") && keywordText(p.peek(1), "of"):
		tok := p.advance()
		p.advance() // "of"
		operand := p.parseParenthesizedOrUnary()
		return &model.Successor{UnaryExpression: &model.UnaryExpression{Expression: expr(tok), Operand: operand}}
	}
	return p.parsePostfix(p.parsePrimary())
}

// parseParenthesizedOrUnary supports "exists (x)" and the bare "exists x" forms.
func (p *Parser) parseParenthesizedOrUnary() model.IExpression {
	if p.at(TokenLParen) {
		tok := p.advance()
		e := p.parseExpression()
		p.expect(TokenRParen)
		_ = tok
		return e
	}
	return p.parseUnary()
}

func binExpr(tok Token, left, right model.IExpression) *model.BinaryExpression {
	return &model.BinaryExpression{Expression: expr(tok), Operands: [2]model.IExpression{left, right}}
}

// parsePostfix handles the highest precedence tier: dotted member/function access, indexers
// ("expr[i]"), and "as"/"is" are handled above since they bind looser than postfix but tighter
// than union in the precedence table.
func (p *Parser) parsePostfix(base model.IExpression) model.IExpression {
	for {
		switch {
		case p.at(TokenDot):
			p.advance()
			base = p.parsePathStep(base)
		case p.at(TokenLBracket):
			tok := p.advance()
			idx := p.parseExpression()
			p.expect(TokenRBracket)
			base = &model.Indexer{BinaryExpression: binExpr(tok, base, idx)}
		default:
			return base
		}
	}
}

// parsePathStep parses one ".member" or ".func(args)" step following base.
func (p *Parser) parsePathStep(base model.IExpression) model.IExpression {
	if !p.at(TokenIdentifier) {
		t := p.cur()
		return p.badExpression(t, "expected member name or function call after '.'")
	}
	name := p.advance()
	if p.at(TokenLParen) {
		args := p.parseArgList()
		return p.buildFluentCall(base, name, args)
	}
	return &model.Property{Expression: expr(name), Source: base, Path: name.Text}
}

// parseArgList parses a parenthesized, comma separated argument list.
func (p *Parser) parseArgList() []model.IExpression {
	p.expect(TokenLParen)
	var args []model.IExpression
	if !p.at(TokenRParen) {
		args = append(args, p.parseExpression())
		for p.at(TokenComma) {
			p.advance()
			args = append(args, p.parseExpression())
		}
	}
	p.expect(TokenRParen)
	return args
}

// buildFluentCall maps a "base.funcName(args...)" invocation onto the dedicated unary/binary
// node kinds the built-in library functions use (First, Last, Exists, ...), falling back to a
// generic unresolved Call the resolver will match against user FunctionDefs.
func (p *Parser) buildFluentCall(base model.IExpression, name Token, args []model.IExpression) model.IExpression {
	ue := func() *model.UnaryExpression { return &model.UnaryExpression{Expression: expr(name), Operand: base} }
	switch {
	case equalFold(name.Text, "exists") && len(args) == 0:
		return &model.Exists{UnaryExpression: ue()}
	case equalFold(name.Text, "first") && len(args) == 0:
		return &model.First{UnaryExpression: ue()}
	case equalFold(name.Text, "last") && len(args) == 0:
		return &model.Last{UnaryExpression: ue()}
	case equalFold(name.Text, "count") && len(args) == 0:
		return &model.Count{UnaryExpression: ue()}
	case equalFold(name.Text, "distinct") && len(args) == 0:
		return &model.Distinct{UnaryExpression: ue()}
	case equalFold(name.Text, "flatten") && len(args) == 0:
		return &model.Flatten{UnaryExpression: ue()}
	case equalFold(name.Text, "children") && len(args) == 0:
		return &model.Children{UnaryExpression: ue()}
	case equalFold(name.Text, "descendants") && len(args) == 0:
		return &model.Descendants{UnaryExpression: ue()}
	case equalFold(name.Text, "allTrue") && len(args) == 0:
		return &model.AllTrue{UnaryExpression: ue()}
	case equalFold(name.Text, "anyTrue") && len(args) == 0:
		return &model.AnyTrue{UnaryExpression: ue()}
	case equalFold(name.Text, "singleton") && len(args) == 0:
		return &model.SingletonFrom{UnaryExpression: ue()}
	case equalFold(name.Text, "union") && len(args) == 1:
		return &model.Union{BinaryExpression: binExpr(name, base, args[0])}
	case equalFold(name.Text, "combine") && len(args) == 1:
		return &model.Combine{BinaryExpression: binExpr(name, base, args[0])}
	case equalFold(name.Text, "except") && len(args) == 1:
		return &model.Except{BinaryExpression: binExpr(name, base, args[0])}
	case equalFold(name.Text, "intersect") && len(args) == 1:
		return &model.Intersect{BinaryExpression: binExpr(name, base, args[0])}
	}
	// Not a recognized built-in fluent form: treat as a method-style call to a user function,
	// with base prepended as the first operand (CQL's fluent function convention).
	operands := append([]model.IExpression{base}, args...)
	return &model.Call{NaryExpression: &model.NaryExpression{Expression: expr(name), Operands: operands}, Name: name.Text}
}

// parseTypeSpecifier parses a named, list, or interval type specifier used by is/as/cast and by
// function/operand declarations. Built-in System types resolve directly; anything else becomes a
// model.Named reference that the resolver later validates (and, for FHIR qualified names like
// "FHIR.Patient", strips to the bare model type name) against modelinfo.
func (p *Parser) parseTypeSpecifier() types.IType {
	if p.atKeyword("list") && p.peek(1).Kind == TokenLt {
		p.advance()
		p.advance()
		elem := p.parseTypeSpecifier()
		p.expect(TokenGt)
		return &types.List{ElementType: elem}
	}
	if p.atKeyword("interval") && p.peek(1).Kind == TokenLt {
		p.advance()
		p.advance()
		point := p.parseTypeSpecifier()
		p.expect(TokenGt)
		return &types.Interval{PointType: point}
	}
	if p.atKeyword("choice") && p.peek(1).Kind == TokenLt {
		p.advance()
		p.advance()
		var choices []types.IType
		choices = append(choices, p.parseTypeSpecifier())
		for p.at(TokenComma) {
			p.advance()
			choices = append(choices, p.parseTypeSpecifier())
		}
		p.expect(TokenGt)
		return &types.Choice{ChoiceTypes: choices}
	}
	if !p.at(TokenIdentifier) {
		t := p.cur()
		p.errs.Addf(t.Line, t.Col, "expected type name, got %q", t.Text)
		return types.Any
	}
	name := p.advance().Text
	for p.at(TokenDot) {
		p.advance()
		if !p.at(TokenIdentifier) {
			break
		}
		name = p.advance().Text // qualified "Namespace.Type" keeps only the final segment
	}
	return systemOrNamedType(name)
}

func systemOrNamedType(name string) types.IType {
	switch {
	case equalFold(name, "Boolean"):
		return types.Boolean
	case equalFold(name, "Integer"):
		return types.Integer
	case equalFold(name, "Long"):
		return types.Long
	case equalFold(name, "Decimal"):
		return types.Decimal
	case equalFold(name, "String"):
		return types.String
	case equalFold(name, "Date"):
		return types.Date
	case equalFold(name, "DateTime"):
		return types.DateTime
	case equalFold(name, "Time"):
		return types.Time
	case equalFold(name, "Quantity"):
		return types.Quantity
	case equalFold(name, "Ratio"):
		return types.Ratio
	case equalFold(name, "Code"):
		return types.Code
	case equalFold(name, "Concept"):
		return types.Concept
	case equalFold(name, "ValueSet"):
		return types.ValueSet
	case equalFold(name, "CodeSystem"):
		return types.CodeSystem
	case equalFold(name, "Vocabulary"):
		return types.Vocabulary
	case equalFold(name, "Any"):
		return types.Any
	}
	return &types.Named{TypeName: name}
}

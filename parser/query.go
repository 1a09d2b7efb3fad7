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

import "github.com/clinical-lang/cqlfhir/model"

// parseQuery parses the CQL/FHIRPath query comprehension, having already consumed the leading
// "from" keyword. Clauses are parsed in the teacher's fixed order: source list, let, where, sort,
// then exactly one of aggregate or return (defaulting to an implicit identity/tuple return when
// neither is written, the same default the teacher's parseReturnClauseAndSetResultType applies).
func (p *Parser) parseQuery() model.IExpression {
	tok := p.advance() // "from"
	q := &model.Query{Expression: expr(tok)}

	q.Source = append(q.Source, p.parseAliasedSource())
	for p.at(TokenComma) {
		p.advance()
		q.Source = append(q.Source, p.parseAliasedSource())
	}
	p.parseQueryTail(q)
	return q
}

// maybeImplicitQuery checks for CQL's single-source query form, which omits the leading "from"
// keyword ("[Encounter] E where E.status = 'finished'"): a source expression directly followed by
// an alias identifier. It is called from parsePrimary right after a retrieve or bare identifier
// term, the only two term shapes a source expression can start with here; src is reparsed as the
// query's own expression position rather than reused, since a retrieve already fully consumed
// its brackets and a bare identifier has no further postfix to apply before the alias.
func (p *Parser) maybeImplicitQuery(tok Token, src model.IExpression) model.IExpression {
	if p.cur().Kind != TokenIdentifier || isBinaryOperatorKeyword(p.cur().Text) {
		return src
	}
	alias := p.advance().Text
	q := &model.Query{Expression: expr(tok)}
	q.Source = append(q.Source, &model.AliasedSource{Expression: expr(tok), Alias: alias, Source: src})
	for p.at(TokenComma) {
		p.advance()
		q.Source = append(q.Source, p.parseAliasedSource())
	}
	p.parseQueryTail(q)
	return q
}

func isBinaryOperatorKeyword(s string) bool {
	switch {
	case equalFold(s, "and"), equalFold(s, "or"), equalFold(s, "xor"), equalFold(s, "implies"),
		equalFold(s, "in"), equalFold(s, "contains"), equalFold(s, "properly"), equalFold(s, "is"),
		equalFold(s, "as"), equalFold(s, "between"), equalFold(s, "div"), equalFold(s, "mod"):
		return true
	}
	return false
}

// parseQueryTail parses the let/where/sort/aggregate-or-return clauses shared by both the
// "from"-led and implicit single-source query forms.
func (p *Parser) parseQueryTail(q *model.Query) {
	if p.atKeyword("let") {
		p.advance()
		q.Let = append(q.Let, p.parseLetClause())
		for p.at(TokenComma) {
			p.advance()
			q.Let = append(q.Let, p.parseLetClause())
		}
	}
	if p.atKeyword("where") {
		p.advance()
		q.Where = p.parseExpression()
	}
	if p.atKeyword("sort") {
		q.Sort = p.parseSortClause()
	}
	switch {
	case p.atKeyword("aggregate"):
		q.Aggregate = p.parseAggregateClause()
	case p.atKeyword("return"):
		q.Return = p.parseReturnClause()
	default:
		q.Return = p.implicitReturnClause(q.Source)
	}
}

// parseAliasedSource parses one "expr ['as'] alias" query source. A retrieve source is parsed on
// its own (plus any postfix member access) so that the alias after it ("[Patient] P") is not
// taken as the start of an implicit single-source query; any other source is parsed as a full
// expression.
func (p *Parser) parseAliasedSource() *model.AliasedSource {
	tok := p.cur()
	var src model.IExpression
	if p.at(TokenLBracket) {
		src = p.parsePostfix(p.parseRetrieve())
	} else {
		src = p.parseExpression()
	}
	if p.atKeyword("as") {
		p.advance()
	}
	alias := ""
	if p.at(TokenIdentifier) && !isQueryClauseKeyword(p.cur().Text) {
		alias = p.advance().Text
	} else {
		t := p.cur()
		p.errs.Addf(t.Line, t.Col, "expected query source alias")
	}
	return &model.AliasedSource{Expression: expr(tok), Alias: alias, Source: src}
}

func isQueryClauseKeyword(s string) bool {
	switch {
	case equalFold(s, "let"), equalFold(s, "where"), equalFold(s, "sort"),
		equalFold(s, "return"), equalFold(s, "aggregate"):
		return true
	}
	return false
}

func (p *Parser) parseLetClause() *model.LetClause {
	tok := p.cur()
	if !p.at(TokenIdentifier) {
		t := p.cur()
		p.errs.Addf(t.Line, t.Col, "expected identifier in let clause")
	}
	ident := p.advance().Text
	p.expect(TokenColon)
	val := p.parseExpression()
	return &model.LetClause{Element: &model.Element{Span: span(tok)}, Identifier: ident, Expression: val}
}

func (p *Parser) parseSortClause() *model.SortClause {
	tok := p.advance() // "sort"
	sc := &model.SortClause{Element: &model.Element{Span: span(tok)}}
	if p.atKeyword("by") {
		p.advance()
		sc.ByItems = append(sc.ByItems, p.parseSortByItem())
		for p.at(TokenComma) {
			p.advance()
			sc.ByItems = append(sc.ByItems, p.parseSortByItem())
		}
		return sc
	}
	// Bare "sort" with no "by" sorts the iteration value itself, ascending.
	sc.ByItems = append(sc.ByItems, &model.SortByItem{
		Element: &model.Element{Span: span(tok)}, Direction: model.Ascending,
	})
	return sc
}

func (p *Parser) parseSortByItem() *model.SortByItem {
	tok := p.cur()
	path := ""
	if p.at(TokenIdentifier) && !isSortDirectionKeyword(p.cur().Text) {
		path = p.advance().Text
	}
	dir := model.Ascending
	switch {
	case p.atKeyword("asc") || p.atKeyword("ascending"):
		p.advance()
	case p.atKeyword("desc") || p.atKeyword("descending"):
		p.advance()
		dir = model.Descending
	}
	return &model.SortByItem{Element: &model.Element{Span: span(tok)}, Path: path, Direction: dir}
}

func isSortDirectionKeyword(s string) bool {
	return equalFold(s, "asc") || equalFold(s, "ascending") || equalFold(s, "desc") || equalFold(s, "descending")
}

func (p *Parser) parseAggregateClause() *model.AggregateClause {
	tok := p.advance() // "aggregate"
	ac := &model.AggregateClause{Element: &model.Element{Span: span(tok)}}
	if p.atKeyword("distinct") {
		ac.Distinct = true
		p.advance()
	} else if p.atKeyword("all") {
		p.advance()
	}
	if p.at(TokenIdentifier) && !keywordText(p.cur(), "starting") {
		ac.Identifier = p.advance().Text
	}
	ac.Expression = p.parseExpression()
	if p.atKeyword("starting") {
		p.advance()
		ac.Starting = p.parseExpression()
	}
	return ac
}

func (p *Parser) parseReturnClause() *model.ReturnClause {
	tok := p.advance() // "return"
	rc := &model.ReturnClause{Element: &model.Element{Span: span(tok)}}
	if p.atKeyword("distinct") {
		rc.Distinct = true
		p.advance()
	} else if p.atKeyword("all") {
		p.advance()
	}
	rc.Expression = p.parseExpression()
	return rc
}

// implicitReturnClause builds the default projection CQL applies when a query has neither an
// explicit return nor aggregate clause: the sole alias itself for a single-source query, or a
// Tuple of all aliases for a multi-source query.
func (p *Parser) implicitReturnClause(sources []*model.AliasedSource) *model.ReturnClause {
	if len(sources) == 1 {
		return &model.ReturnClause{
			Element:    sources[0].Element,
			Expression: &model.AliasRef{Expression: model.ResultType(nil), Name: sources[0].Alias},
		}
	}
	var elems []*model.TupleElement
	for _, s := range sources {
		elems = append(elems, &model.TupleElement{
			Name:  s.Alias,
			Value: &model.AliasRef{Expression: model.ResultType(nil), Name: s.Alias},
		})
	}
	return &model.ReturnClause{
		Element:    sources[0].Element,
		Expression: &model.Tuple{Expression: model.ResultType(nil), Elements: elems},
	}
}

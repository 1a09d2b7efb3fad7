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
	"fmt"
	"strings"

	"github.com/clinical-lang/cqlfhir/model"
	"github.com/clinical-lang/cqlfhir/types"
)

// ErrorType classifies a ParsingError the way the resolver's downstream error kinds do (see
// SPEC_FULL.md §7); the parser only ever produces SyntaxError.
type ErrorType string

// Error types the parser can emit.
const (
	SyntaxError ErrorType = "SyntaxError"
)

// ParsingError is one diagnostic produced while lexing or parsing a single source text.
type ParsingError struct {
	Message string
	Line    int
	Col     int
	Type    ErrorType
}

func (pe *ParsingError) Error() string {
	return fmt.Sprintf("%d:%d: %s", pe.Line, pe.Col, pe.Message)
}

// Diagnostics accumulates ParsingErrors across a single parse, the way LibraryErrors does in the
// teacher's ANTLR-driven parser, but keyed to our own line/col tracking instead of an
// antlr.ParserRuleContext.
type Diagnostics struct {
	Errors []*ParsingError
}

// Add appends a diagnostic at the given position.
func (d *Diagnostics) Add(line, col int, msg string) *ParsingError {
	pe := &ParsingError{Message: msg, Line: line, Col: col, Type: SyntaxError}
	d.Errors = append(d.Errors, pe)
	return pe
}

// Addf is Add with fmt.Sprintf-style formatting.
func (d *Diagnostics) Addf(line, col int, format string, args ...any) *ParsingError {
	return d.Add(line, col, fmt.Sprintf(format, args...))
}

// HasErrors reports whether any diagnostic was recorded.
func (d *Diagnostics) HasErrors() bool { return len(d.Errors) > 0 }

// Error implements the error interface so a non-empty Diagnostics can be returned directly.
func (d *Diagnostics) Error() string {
	msgs := make([]string, 0, len(d.Errors))
	for _, e := range d.Errors {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "\n")
}

// badExpression records a diagnostic at tok's position and returns a placeholder Any-typed
// expression so the parser can keep going and surface any further errors in the same pass,
// mirroring the teacher's invalidExpression/badExpression pattern.
func (p *Parser) badExpression(tok Token, format string, args ...any) model.IExpression {
	p.errs.Addf(tok.Line, tok.Col, format, args...)
	return &model.Literal{Expression: model.ResultType(types.Any), Value: ""}
}

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

import "fmt"

// Severity tags how serious a runtime Diagnostic is.
type Severity string

const (
	SeverityWarning Severity = "Warning"
	SeverityFatal   Severity = "Fatal"
)

// DiagnosticCode names the category of a runtime Diagnostic, matching the conditions under which
// CQL/FHIRPath evaluation yields Null rather than the expected value.
type DiagnosticCode string

const (
	// CodeOverflow marks Integer/Long arithmetic that would overflow its 32/64-bit range.
	CodeOverflow DiagnosticCode = "Overflow"
	// CodeUnitMismatch marks Quantity arithmetic between units with no UCUM conversion path.
	CodeUnitMismatch DiagnosticCode = "UnitMismatch"
	// CodeCyclicDefinition marks an ExpressionDef whose evaluation recurses into itself.
	CodeCyclicDefinition DiagnosticCode = "CyclicDefinition"
	// CodeRecursionLimit marks a function call nested deeper than the interpreter's call-depth limit.
	CodeRecursionLimit DiagnosticCode = "RecursionLimit"
	// CodeCancelled marks evaluation abandoned because the caller's context was done.
	CodeCancelled DiagnosticCode = "Cancelled"
)

// Diagnostic is a non-fatal condition recorded during evaluation: the affected definition still
// resolves to Null, but the caller can surface why.
type Diagnostic struct {
	Severity Severity
	Code     DiagnosticCode
	Message  string
	// Source names the library/definition the diagnostic was raised while evaluating, e.g.
	// "Main.A" for ExpressionDef A in library Main. Empty when no single definition is at fault.
	Source string
}

// RuntimeDiagnostics accumulates Diagnostics raised over the course of one Eval call.
type RuntimeDiagnostics []Diagnostic

// Add appends a Diagnostic built from a printf-style message.
func (d *RuntimeDiagnostics) Add(severity Severity, code DiagnosticCode, source, format string, args ...any) {
	*d = append(*d, Diagnostic{Severity: severity, Code: code, Message: fmt.Sprintf(format, args...), Source: source})
}

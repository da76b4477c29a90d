// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package diagnostic defines the finding types shared by every validation
// pass: severity levels, categories, the Diagnostic value itself, and the
// ValidationResult aggregate returned to callers.
package diagnostic

// Severity indicates how a diagnostic affects workflow validity.
type Severity string

const (
	// SeverityError blocks export. A workflow with any error-severity
	// diagnostic is invalid.
	SeverityError Severity = "error"

	// SeverityWarning is advisory; it never affects validity.
	SeverityWarning Severity = "warning"

	// SeveritySuggestion is a soft nudge, rendered with the least emphasis.
	SeveritySuggestion Severity = "suggestion"
)

// Category identifies which validation pass produced a diagnostic.
type Category string

const (
	// CategoryRestriction covers disallowed script constructs
	// (imports, class definitions, private identifiers).
	CategoryRestriction Category = "restriction"

	// CategoryResourceLimit covers byte, length, range, and
	// serialized-size ceilings.
	CategoryResourceLimit Category = "resource_limit"

	// CategoryReturnLogic covers tail-statement return-value predictions.
	CategoryReturnLogic Category = "return_logic"

	// CategoryCitation covers the reserved-output-key citation conventions.
	CategoryCitation Category = "citation"

	// CategoryNaming covers identifier naming conventions on steps and keys.
	CategoryNaming Category = "naming"

	// CategoryStructural covers missing fields and unparseable scripts.
	CategoryStructural Category = "structural"

	// CategoryDSLSyntax covers hard errors in expression-language strings.
	CategoryDSLSyntax Category = "dsl_syntax"

	// CategoryDSLSemantic covers heuristic expression-language findings.
	CategoryDSLSemantic Category = "dsl_semantic"
)

// Diagnostic is a single validation finding. Diagnostics are values and are
// never mutated after they are produced; stamping helpers return copies.
type Diagnostic struct {
	// Message is the human-readable description of the finding.
	Message string `json:"message"`

	// Severity is error, warning, or suggestion.
	Severity Severity `json:"severity"`

	// Category identifies the validation pass that produced the finding.
	Category Category `json:"category"`

	// Line is the 1-based source line, when known. Zero means unknown.
	Line int `json:"line,omitempty"`

	// Column is the 1-based source column, when known. Zero means unknown.
	Column int `json:"column,omitempty"`

	// StepIndex is the 0-based index of the owning workflow step, when the
	// diagnostic was produced during aggregate validation. Nil otherwise.
	StepIndex *int `json:"step_index,omitempty"`

	// StepKind is the kind discriminant of the owning step, when known.
	StepKind string `json:"step_kind,omitempty"`

	// Field names the step field the finding applies to, when known.
	Field string `json:"field,omitempty"`

	// Remediation provides actionable guidance for fixing the finding.
	Remediation string `json:"remediation,omitempty"`

	// Rationale explains why the rule exists, for inline education.
	Rationale string `json:"rationale,omitempty"`

	// AutoFixable reports whether Fix contains a mechanical rewrite.
	AutoFixable bool `json:"auto_fixable,omitempty"`

	// Fix is the replacement text for auto-fixable findings.
	Fix string `json:"fix,omitempty"`
}

// WithStep returns a copy of the diagnostic stamped with the owning step's
// index and kind. The receiver is not modified.
func (d Diagnostic) WithStep(index int, kind string) Diagnostic {
	idx := index
	d.StepIndex = &idx
	d.StepKind = kind
	return d
}

// WithField returns a copy of the diagnostic stamped with a field name.
func (d Diagnostic) WithField(field string) Diagnostic {
	d.Field = field
	return d
}

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

package diagnostic

// ResourceUsage reports how much of each resource ceiling a script consumes.
type ResourceUsage struct {
	// ScriptBytes is the UTF-8 byte count of the script source.
	ScriptBytes int `json:"script_bytes"`

	// ScriptBytesLimit is the ceiling the byte count was checked against.
	ScriptBytesLimit int `json:"script_bytes_limit"`

	// ScriptBytesPercent is ScriptBytes as a percentage of the ceiling.
	ScriptBytesPercent float64 `json:"script_bytes_percent"`

	// ScriptBytesRemaining is the headroom left under the ceiling.
	// Negative when the ceiling is exceeded.
	ScriptBytesRemaining int `json:"script_bytes_remaining"`

	// EstimatedSerializedBytes is the serialized-size estimate of the
	// largest container literal, when one was analyzed.
	EstimatedSerializedBytes int `json:"estimated_serialized_bytes,omitempty"`
}

// ReturnAnalysis reports the structural prediction of what a script yields.
type ReturnAnalysis struct {
	// TailKind classifies the last top-level statement.
	TailKind string `json:"tail_kind"`

	// ExplicitReturn reports whether the tail is a return statement.
	ExplicitReturn bool `json:"explicit_return"`

	// YieldsValue reports whether the tail is predicted to produce a value.
	YieldsValue bool `json:"yields_value"`

	// StatementCount is the number of top-level statements.
	StatementCount int `json:"statement_count"`
}

// CitationCompliance reports citation-convention findings for scripts whose
// output key is one of the reserved citation names.
type CitationCompliance struct {
	// Applicable reports whether the output key is a reserved citation name.
	Applicable bool `json:"applicable"`

	// Status is "compliant", "partial", or "non_compliant" when applicable.
	Status string `json:"status,omitempty"`

	// FoundFields lists the citation schema fields found in the output.
	FoundFields []string `json:"found_fields,omitempty"`

	// MissingFields lists the citation schema fields not found.
	MissingFields []string `json:"missing_fields,omitempty"`
}

// PrivateIdentifierRef locates one leading-underscore identifier occurrence.
type PrivateIdentifierRef struct {
	// Name is the identifier as written, including the underscore.
	Name string `json:"name"`

	// Line and Column are 1-based source coordinates.
	Line   int `json:"line"`
	Column int `json:"column"`
}

// ValidationResult aggregates the diagnostics and side-channel analyses from
// one validation call. It is a pure function of the validated input and the
// constraint tables; identical inputs produce identical results.
type ValidationResult struct {
	// Diagnostics holds every finding, in production order.
	Diagnostics []Diagnostic `json:"diagnostics"`

	// ResourceUsage is populated by the resource-constraint analyzer.
	ResourceUsage *ResourceUsage `json:"resource_usage,omitempty"`

	// ReturnAnalysis is populated by the return-flow classifier.
	ReturnAnalysis *ReturnAnalysis `json:"return_analysis,omitempty"`

	// CitationCompliance is populated by the citation checker.
	CitationCompliance *CitationCompliance `json:"citation_compliance,omitempty"`

	// PrivateIdentifiers lists every leading-underscore identifier the
	// restriction checker found, in source order.
	PrivateIdentifiers []PrivateIdentifierRef `json:"private_identifiers,omitempty"`
}

// IsValid reports whether the result contains no error-severity diagnostics.
// Warnings and suggestions never affect validity.
func (r *ValidationResult) IsValid() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityError {
			return false
		}
	}
	return true
}

// Errors returns the error-severity diagnostics in order.
func (r *ValidationResult) Errors() []Diagnostic {
	return r.filter(SeverityError)
}

// Warnings returns the warning-severity diagnostics in order.
func (r *ValidationResult) Warnings() []Diagnostic {
	return r.filter(SeverityWarning)
}

// Suggestions returns the suggestion-severity diagnostics in order.
func (r *ValidationResult) Suggestions() []Diagnostic {
	return r.filter(SeveritySuggestion)
}

func (r *ValidationResult) filter(sev Severity) []Diagnostic {
	var out []Diagnostic
	for _, d := range r.Diagnostics {
		if d.Severity == sev {
			out = append(out, d)
		}
	}
	return out
}

// Add appends diagnostics to the result.
func (r *ValidationResult) Add(diags ...Diagnostic) {
	r.Diagnostics = append(r.Diagnostics, diags...)
}

// Merge folds another result into this one, stamping each incoming
// diagnostic with the given step index and kind. Side-channel analyses are
// not merged; they are per-script and remain on the source result.
func (r *ValidationResult) Merge(other *ValidationResult, stepIndex int, stepKind string) {
	if other == nil {
		return
	}
	for _, d := range other.Diagnostics {
		r.Diagnostics = append(r.Diagnostics, d.WithStep(stepIndex, stepKind))
	}
}

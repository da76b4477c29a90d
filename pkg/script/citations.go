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

package script

import (
	"fmt"
	"strings"

	"github.com/tombee/composer/pkg/diagnostic"
)

// Citation compliance statuses.
const (
	CitationCompliant    = "compliant"
	CitationPartial      = "partial"
	CitationNonCompliant = "non_compliant"
)

const citationExample = `{
    "id": "doc-123",
    "name": "Quarterly Report",
    "title": "Q3 Revenue Summary",
    "url": "https://example.com/docs/123",
    "snippet": "Revenue grew 12% quarter over quarter...",
}`

// checkCitations applies the reserved-output-key conventions. Scripts whose
// output key is the singular reserved name are expected to yield a mapping
// with the citation schema fields; the plural name expects a list of such
// mappings. Any other key is not applicable and produces no diagnostics.
func checkCitations(stmts []Stmt, outputKey string) ([]diagnostic.Diagnostic, *diagnostic.CitationCompliance) {
	compliance := &diagnostic.CitationCompliance{}
	if outputKey != OutputKeyResult && outputKey != OutputKeyResults {
		return nil, compliance
	}
	compliance.Applicable = true

	if outputKey == OutputKeyResults {
		// List contents are rarely statically determinable; guidance only.
		compliance.Status = CitationPartial
		return []diagnostic.Diagnostic{{
			Message: fmt.Sprintf(
				"output key %q expects a list of citation mappings; each element should carry the fields %s",
				outputKey, strings.Join(citationFields, ", ")),
			Severity:    diagnostic.SeverityWarning,
			Category:    diagnostic.CategoryCitation,
			Remediation: "shape each element like:\n" + citationExample,
			Rationale:   "the reserved key tells the workflow renderer to treat the value as citations",
		}}, compliance
	}

	value := tailValue(stmts)
	dict, ok := value.(*DictLit)
	if !ok {
		compliance.Status = CitationNonCompliant
		compliance.MissingFields = append([]string(nil), citationFields...)
		return []diagnostic.Diagnostic{{
			Message: fmt.Sprintf(
				"output key %q expects a citation mapping, but the script's final value is not a statically-known mapping",
				outputKey),
			Severity:    diagnostic.SeverityWarning,
			Category:    diagnostic.CategoryCitation,
			Remediation: "end the script with a literal like:\n" + citationExample,
			Rationale:   "the reserved key tells the workflow renderer to treat the value as a citation",
		}}, compliance
	}

	found := map[string]bool{}
	for _, entry := range dict.Entries {
		key, ok := entry.Key.(*StringLit)
		if !ok {
			continue
		}
		found[key.Value] = true
	}
	for _, f := range citationFields {
		if found[f] {
			compliance.FoundFields = append(compliance.FoundFields, f)
		} else {
			compliance.MissingFields = append(compliance.MissingFields, f)
		}
	}

	switch {
	case len(compliance.MissingFields) == 0:
		compliance.Status = CitationCompliant
		return nil, compliance
	case len(compliance.FoundFields) == 0:
		compliance.Status = CitationNonCompliant
		return []diagnostic.Diagnostic{{
			Message: fmt.Sprintf(
				"output key %q expects the citation fields %s, but none are present",
				outputKey, strings.Join(citationFields, ", ")),
			Severity:    diagnostic.SeverityWarning,
			Category:    diagnostic.CategoryCitation,
			Remediation: "end the script with a literal like:\n" + citationExample,
		}}, compliance
	default:
		compliance.Status = CitationPartial
		return []diagnostic.Diagnostic{{
			Message: fmt.Sprintf(
				"output key %q is missing the citation fields: %s",
				outputKey, strings.Join(compliance.MissingFields, ", ")),
			Severity:    diagnostic.SeverityWarning,
			Category:    diagnostic.CategoryCitation,
			Remediation: "add the missing fields to the returned mapping",
		}}, compliance
	}
}

// tailValue returns the expression the script's tail statement yields, when
// statically known: a tail expression statement or an explicit return value.
func tailValue(stmts []Stmt) Expr {
	if len(stmts) == 0 {
		return nil
	}
	switch s := stmts[len(stmts)-1].(type) {
	case *ExprStmt:
		return s.Value
	case *ReturnStmt:
		return s.Value
	}
	return nil
}

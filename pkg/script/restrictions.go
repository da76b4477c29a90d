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
	"regexp"
	"strings"

	"github.com/tombee/composer/pkg/diagnostic"
)

// restrictionRule pairs a detection pattern with its diagnostic template,
// keeping the rule set testable independently of the traversal logic.
type restrictionRule struct {
	// Name identifies the rule subtype.
	Name string

	// Pattern matches one physical source line.
	Pattern *regexp.Regexp

	// Message is a format string receiving the matched text.
	Message string

	// Remediation is the subtype-specific fix guidance.
	Remediation string

	// Rationale explains the sandbox restriction.
	Rationale string
}

// importRules detects import statements in every syntactic form. Order
// matters: the wildcard rule must win over the plain from-form rule.
var importRules = []restrictionRule{
	{
		Name:        "wildcard_import",
		Pattern:     regexp.MustCompile(`^\s*from\s+[\w.]+\s+import\s+\*`),
		Message:     "wildcard import is not allowed: %q",
		Remediation: "remove the import and use built-in functions or data references instead",
		Rationale:   "the sandbox provides no module system; wildcard imports cannot be resolved",
	},
	{
		Name:        "from_import",
		Pattern:     regexp.MustCompile(`^\s*from\s+[\w.]+\s+import\s+[\w*,\s]+`),
		Message:     "from-import is not allowed: %q",
		Remediation: "replace the imported helpers with built-in functions or data references",
		Rationale:   "scripts run in a sandbox with no access to external modules",
	},
	{
		Name:        "plain_import",
		Pattern:     regexp.MustCompile(`^\s*import\s+[\w.]+(\s*,\s*[\w.]+)*(\s+as\s+\w+)?\s*$`),
		Message:     "import is not allowed: %q",
		Remediation: "replace the imported helpers with built-in functions or data references",
		Rationale:   "scripts run in a sandbox with no access to external modules",
	},
	{
		Name:        "dynamic_import",
		Pattern:     regexp.MustCompile(`\b(__import__\s*\(|importlib\b)`),
		Message:     "dynamic import is not allowed: %q",
		Remediation: "remove the dynamic import and use direct processing instead",
		Rationale:   "reflective imports bypass the sandbox restrictions and are blocked at runtime",
	},
}

// privateIdentPattern matches identifiers with a leading underscore; the
// checker then excludes double-underscore forms.
var privateIdentPattern = regexp.MustCompile(`(^|[^A-Za-z0-9_])(_[A-Za-z0-9_]*)`)

// PrivateIdentifier records one leading-underscore identifier occurrence.
type PrivateIdentifier struct {
	Name    string
	Line    int
	Column  int
	Context string
}

// checkRestrictions runs the disallowed-construct passes: the import rule
// table and the private-identifier scan over raw lines, plus class-definition
// detection over the parsed tree when one is available (stmts is nil after a
// parse failure).
func checkRestrictions(source string, stmts []Stmt) ([]diagnostic.Diagnostic, []PrivateIdentifier) {
	var diags []diagnostic.Diagnostic

	lines := strings.Split(source, "\n")
	for i, line := range lines {
		for _, rule := range importRules {
			loc := rule.Pattern.FindStringIndex(line)
			if loc == nil {
				continue
			}
			matched := strings.TrimSpace(line[loc[0]:loc[1]])
			diags = append(diags, diagnostic.Diagnostic{
				Message:     fmt.Sprintf(rule.Message, matched),
				Severity:    diagnostic.SeverityError,
				Category:    diagnostic.CategoryRestriction,
				Line:        i + 1,
				Remediation: rule.Remediation,
				Rationale:   rule.Rationale,
			})
			break
		}
	}

	if stmts != nil {
		walkStmts(stmts, func(s Stmt) {
			cls, ok := s.(*ClassStmt)
			if !ok {
				return
			}
			diags = append(diags, diagnostic.Diagnostic{
				Message:     fmt.Sprintf("class definition %q is not allowed", cls.Name),
				Severity:    diagnostic.SeverityError,
				Category:    diagnostic.CategoryRestriction,
				Line:        cls.StmtLine(),
				Remediation: "replace the class with plain dicts and functions",
				Rationale:   "the sandbox evaluates statements only; class types cannot be constructed",
			})
		})
	}

	privates := findPrivateIdentifiers(lines)
	for _, p := range privates {
		diags = append(diags, diagnostic.Diagnostic{
			Message:     fmt.Sprintf("private identifier %q is not allowed", p.Name),
			Severity:    diagnostic.SeverityError,
			Category:    diagnostic.CategoryRestriction,
			Line:        p.Line,
			Column:      p.Column,
			Remediation: fmt.Sprintf("rename %s to %s", p.Name, strings.TrimLeft(p.Name, "_")),
			Rationale:   "leading-underscore names are reserved by the sandbox runtime\n" + p.Context,
		})
	}

	return diags, privates
}

// findPrivateIdentifiers scans raw lines for identifiers with exactly one
// leading underscore. Double-underscore forms are excluded; they are caught
// separately by the dynamic-import rule when they matter.
func findPrivateIdentifiers(lines []string) []PrivateIdentifier {
	var out []PrivateIdentifier
	for i, line := range lines {
		for _, m := range privateIdentPattern.FindAllStringSubmatchIndex(line, -1) {
			name := line[m[4]:m[5]]
			if strings.HasPrefix(name, "__") || name == "_" {
				continue
			}
			out = append(out, PrivateIdentifier{
				Name:    name,
				Line:    i + 1,
				Column:  m[4] + 1,
				Context: contextSnippet(lines, i),
			})
		}
	}
	return out
}

// contextSnippet returns up to three numbered lines centered on idx.
func contextSnippet(lines []string, idx int) string {
	start := idx - 1
	if start < 0 {
		start = 0
	}
	end := idx + 1
	if end > len(lines)-1 {
		end = len(lines) - 1
	}
	var b strings.Builder
	for i := start; i <= end; i++ {
		fmt.Fprintf(&b, "%4d | %s", i+1, lines[i])
		if i < end {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

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

// Package script statically analyzes embedded scripts written in the
// sandboxed scripting dialect. It never executes code: restriction checks,
// resource ceilings, return-value prediction, and citation conventions are
// all derived from the syntax tree and the raw source.
package script

import (
	"fmt"
	"strings"

	"github.com/tombee/composer/pkg/diagnostic"
)

// Record is a script step's validated surface, owned by the authoring tool.
// The analyzer borrows it for the duration of one call and never mutates it.
type Record struct {
	// Code is the script source.
	Code string

	// OutputKey is the name the step's result is published under.
	OutputKey string

	// Description is optional free-form text; unused by analysis.
	Description string
}

// Analyzer validates script records against a constraint set. It holds no
// mutable state: construct one at process start and share it freely across
// goroutines.
type Analyzer struct {
	constraints Constraints
}

// NewAnalyzer returns an analyzer using the given constraints.
func NewAnalyzer(c Constraints) *Analyzer {
	return &Analyzer{constraints: c}
}

// Constraints returns the analyzer's constraint set.
func (a *Analyzer) Constraints() Constraints {
	return a.constraints
}

// Option adjusts a single analysis call.
type Option func(*analysisOptions)

type analysisOptions struct {
	availablePaths map[string]bool
}

// WithAvailablePaths supplies the set of data paths known to exist upstream.
// When present, references to unknown paths are flagged; path resolution
// itself stays with the caller.
func WithAvailablePaths(paths []string) Option {
	return func(o *analysisOptions) {
		o.availablePaths = make(map[string]bool, len(paths))
		for _, p := range paths {
			o.availablePaths[p] = true
		}
	}
}

// Analyze runs every static-analysis pass over the record and returns an
// owned result. The call is pure: identical inputs yield identical results.
func (a *Analyzer) Analyze(rec Record, opts ...Option) *diagnostic.ValidationResult {
	var options analysisOptions
	for _, opt := range opts {
		opt(&options)
	}

	result := &diagnostic.ValidationResult{}

	stmts, parseErr := Parse(rec.Code)
	if parseErr != nil {
		pe, _ := parseErr.(*ParseError)
		d := diagnostic.Diagnostic{
			Message:     fmt.Sprintf("script could not be parsed: %v", parseErr),
			Severity:    diagnostic.SeverityError,
			Category:    diagnostic.CategoryStructural,
			Remediation: "fix the syntax error; tree-based checks were skipped",
		}
		if pe != nil {
			d.Line = pe.Line
		}
		result.Add(d)
		stmts = nil
	}

	restrictionDiags, privates := checkRestrictions(rec.Code, stmts)
	result.Add(restrictionDiags...)
	for _, p := range privates {
		result.PrivateIdentifiers = append(result.PrivateIdentifiers, diagnostic.PrivateIdentifierRef{
			Name:   p.Name,
			Line:   p.Line,
			Column: p.Column,
		})
	}

	resourceDiags, usage := checkResources(rec.Code, stmts, a.constraints)
	result.Add(resourceDiags...)
	result.ResourceUsage = usage

	if stmts != nil {
		returnDiags, analysis := checkReturnFlow(stmts)
		result.Add(returnDiags...)
		result.ReturnAnalysis = analysis

		citationDiags, compliance := checkCitations(stmts, rec.OutputKey)
		result.Add(citationDiags...)
		result.CitationCompliance = compliance

		if options.availablePaths != nil {
			result.Add(checkDataReferences(stmts, options.availablePaths)...)
		}
	}

	return result
}

// checkDataReferences flags attribute chains rooted at the data or meta
// namespaces that name paths not known to exist upstream. Only applied when
// the caller supplied the available-path set.
func checkDataReferences(stmts []Stmt, available map[string]bool) []diagnostic.Diagnostic {
	// Collect the full chain paths first; walkExprs also visits every
	// sub-chain, and flagging "data.a" inside "data.a.b" would be noise.
	type ref struct {
		path string
		line int
	}
	var refs []ref
	seen := map[string]bool{}
	walkStmts(stmts, func(s Stmt) {
		for _, root := range stmtExprs(s) {
			walkExprs(root, func(e Expr) {
				attr, ok := e.(*AttrExpr)
				if !ok {
					return
				}
				path := attrPath(attr)
				if path == "" || seen[path] {
					return
				}
				rootName := strings.SplitN(path, ".", 2)[0]
				if rootName != "data" && rootName != "meta" {
					return
				}
				seen[path] = true
				refs = append(refs, ref{path: path, line: attr.ExprLine()})
			})
		}
	})

	var diags []diagnostic.Diagnostic
	for _, r := range refs {
		if available[r.path] {
			continue
		}
		prefix := false
		for _, other := range refs {
			if other.path != r.path && strings.HasPrefix(other.path, r.path+".") {
				prefix = true
				break
			}
		}
		if prefix {
			continue
		}
		diags = append(diags, diagnostic.Diagnostic{
			Message:     fmt.Sprintf("reference %q does not match any data available from earlier steps", r.path),
			Severity:    diagnostic.SeverityWarning,
			Category:    diagnostic.CategoryStructural,
			Line:        r.line,
			Remediation: "check the upstream step's output key and field name",
		})
	}
	return diags
}

// attrPath flattens a name/attribute chain into a dotted path. Chains with
// non-name roots (calls, literals) return empty.
func attrPath(e Expr) string {
	switch v := e.(type) {
	case *NameExpr:
		return v.Name
	case *AttrExpr:
		base := attrPath(v.X)
		if base == "" {
			return ""
		}
		return base + "." + v.Name
	}
	return ""
}

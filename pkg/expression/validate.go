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

// Package expression validates strings written in the data-mapping
// expression language. No tree parser exists for the mini-language, so
// validation is a nesting-aware lexical scan over the raw string: balance
// checks, function recognition against a fixed vocabulary, data-reference
// patterns, and per-function arity rules.
package expression

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/tombee/composer/pkg/diagnostic"
)

// FieldContext hints at where the expression is embedded. It only selects
// more specific suggestion wording; validation semantics never change.
type FieldContext string

const (
	ContextCondition     FieldContext = "condition"
	ContextArgument      FieldContext = "argument"
	ContextOutputMapping FieldContext = "output_mapping"
	ContextIterator      FieldContext = "iterator"
)

// FunctionCall records one recognized vocabulary call.
type FunctionCall struct {
	// Name is the function name, without the sigil.
	Name string `json:"name"`

	// Offset is the 0-based byte offset of the name.
	Offset int `json:"offset"`

	// Args holds the top-level argument substrings.
	Args []string `json:"args"`
}

// Result is the lightweight outcome of validating one expression string.
type Result struct {
	// Diagnostics holds every finding, in production order.
	Diagnostics []diagnostic.Diagnostic `json:"diagnostics"`

	// Patterns tags the structural features present, for search and
	// reporting by collaborators.
	Patterns []string `json:"patterns,omitempty"`

	// FunctionCalls lists the recognized vocabulary calls.
	FunctionCalls []FunctionCall `json:"function_calls,omitempty"`

	// DataReferences lists the rooted data/meta paths referenced.
	DataReferences []string `json:"data_references,omitempty"`
}

// IsValid reports whether the result contains no error-severity diagnostics.
func (r *Result) IsValid() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == diagnostic.SeverityError {
			return false
		}
	}
	return true
}

// Errors returns the error-severity diagnostics in order.
func (r *Result) Errors() []diagnostic.Diagnostic {
	var out []diagnostic.Diagnostic
	for _, d := range r.Diagnostics {
		if d.Severity == diagnostic.SeverityError {
			out = append(out, d)
		}
	}
	return out
}

func (r *Result) add(d diagnostic.Diagnostic) {
	r.Diagnostics = append(r.Diagnostics, d)
}

// Validator validates expression strings against a function vocabulary.
// Stateless after construction; safe for concurrent use.
type Validator struct {
	functions map[string]FunctionSpec
}

// NewValidator returns a validator with the default vocabulary.
func NewValidator() *Validator {
	return NewValidatorWithFunctions(DefaultFunctions())
}

// NewValidatorWithFunctions returns a validator using the given table.
func NewValidatorWithFunctions(fns map[string]FunctionSpec) *Validator {
	return &Validator{functions: fns}
}

// Functions returns the validator's vocabulary table.
func (v *Validator) Functions() map[string]FunctionSpec {
	return v.functions
}

var (
	callPattern = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*)\s*\(`)
	refPattern  = regexp.MustCompile(`\b(data|meta)(\.[A-Za-z_][A-Za-z0-9_]*)+(\[[0-9]+\])?`)

	doubleDotPattern  = regexp.MustCompile(`\b(data|meta)(\.[A-Za-z_][A-Za-z0-9_]*)*\.\.`)
	badPathCharMatch  = regexp.MustCompile(`\b(data|meta)(\.[A-Za-z_][A-Za-z0-9_]*)+-[A-Za-z0-9_]`)
	unqualifiedUser   = regexp.MustCompile(`(^|[^.\w])user\b`)
	comparisonPattern = regexp.MustCompile(`==|!=|<=|>=|<|>`)
	logicalPattern    = regexp.MustCompile(`&&|\|\||(^|[^\w])!([^=]|$)`)
	allCapsPattern    = regexp.MustCompile(`^[A-Z][A-Z0-9_]+$`)
	numberLitPattern  = regexp.MustCompile(`\b[0-9]+(\.[0-9]+)?\b`)
	dataRefPattern    = regexp.MustCompile(`\bdata\.`)
	metaRefPattern    = regexp.MustCompile(`\bmeta\.`)
	refPlusPattern    = regexp.MustCompile(`(data|meta)(\.[A-Za-z_][A-Za-z0-9_]*)+\s*\+`)
)

// Validate scans one expression string and returns its diagnostics, feature
// tags, recognized calls, and data references. Pure: identical inputs yield
// identical results.
func (v *Validator) Validate(expr string, fieldCtx FieldContext) *Result {
	result := &Result{}
	if strings.TrimSpace(expr) == "" {
		result.add(diagnostic.Diagnostic{
			Message:     "expression is empty",
			Severity:    diagnostic.SeverityError,
			Category:    diagnostic.CategoryDSLSyntax,
			Remediation: emptyPlaceholder(fieldCtx),
		})
		return result
	}

	mask := quoteMask(expr)

	v.checkBalance(expr, mask, result)
	v.checkCalls(expr, mask, result)
	v.checkReferences(expr, mask, result)
	v.checkOperators(expr, mask, result)
	v.tagFeatures(expr, mask, result)
	v.nudges(expr, mask, fieldCtx, result)

	return result
}

// quoteMask returns a copy of expr with quoted spans blanked, so the
// pattern passes do not fire inside string literals.
func quoteMask(expr string) string {
	out := []byte(expr)
	var quote byte
	escaped := false
	for i := 0; i < len(expr); i++ {
		c := expr[i]
		if quote != 0 {
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == quote {
				quote = 0
				continue
			}
			out[i] = ' '
			continue
		}
		if c == '\'' || c == '"' {
			quote = c
			out[i] = ' '
		}
	}
	return string(out)
}

// checkBalance verifies parenthesis pairing with a position stack. An
// unmatched close is reported at its own position; unmatched opens are
// reported once at the earliest unclosed position.
func (v *Validator) checkBalance(expr, mask string, result *Result) {
	var stack []int
	for i := 0; i < len(mask); i++ {
		switch mask[i] {
		case '(':
			stack = append(stack, i)
		case ')':
			if len(stack) == 0 {
				result.add(diagnostic.Diagnostic{
					Message:     fmt.Sprintf("unmatched closing parenthesis at position %d", i),
					Severity:    diagnostic.SeverityError,
					Category:    diagnostic.CategoryDSLSyntax,
					Column:      i + 1,
					Remediation: "remove the extra ) or add the matching (",
				})
				continue
			}
			stack = stack[:len(stack)-1]
		}
	}
	if len(stack) > 0 {
		d := diagnostic.Diagnostic{
			Message:     fmt.Sprintf("unmatched opening parenthesis at position %d", stack[0]),
			Severity:    diagnostic.SeverityError,
			Category:    diagnostic.CategoryDSLSyntax,
			Column:      stack[0] + 1,
			Remediation: "add the missing )",
		}
		if len(stack) > 1 {
			d.Message = fmt.Sprintf("%d unmatched opening parentheses, the first at position %d", len(stack), stack[0])
			d.Remediation = "add the missing closing parentheses"
		}
		result.add(d)
	}
}

// checkCalls recognizes IDENTIFIER( tokens, enforces the $ prefix sigil and
// argument arity for vocabulary functions, and suggests corrections for
// probable typos.
func (v *Validator) checkCalls(expr, mask string, result *Result) {
	for _, m := range callPattern.FindAllStringSubmatchIndex(mask, -1) {
		nameStart, nameEnd := m[2], m[3]
		name := expr[nameStart:nameEnd]
		openParen := m[1] - 1 // index of the ( itself

		spec, known := v.functions[name]
		if !known {
			if allCapsPattern.MatchString(name) && len(name) > 2 {
				d := diagnostic.Diagnostic{
					Message:  fmt.Sprintf("unknown function %q", name),
					Severity: diagnostic.SeverityWarning,
					Category: diagnostic.CategoryDSLSemantic,
					Column:   nameStart + 1,
				}
				if best := v.nearestFunction(name); best != "" {
					d.Message = fmt.Sprintf("unknown function %q; did you mean $%s?", name, best)
					d.Remediation = fmt.Sprintf("$%s: %s", best, v.functions[best].Description)
				}
				result.add(d)
			}
			continue
		}

		if nameStart == 0 || expr[nameStart-1] != '$' {
			result.add(diagnostic.Diagnostic{
				Message:     fmt.Sprintf("function %q must be called with the $ prefix", name),
				Severity:    diagnostic.SeverityError,
				Category:    diagnostic.CategoryDSLSyntax,
				Column:      nameStart + 1,
				Remediation: fmt.Sprintf("rewrite as $%s(...)", name),
			})
			continue
		}

		closeParen := matchingParen(mask, openParen)
		if closeParen < 0 {
			// Balance pass already reported the unmatched open.
			continue
		}
		args := splitArgs(expr[openParen+1 : closeParen])
		result.FunctionCalls = append(result.FunctionCalls, FunctionCall{
			Name:   name,
			Offset: nameStart,
			Args:   args,
		})

		v.checkArity(name, spec, args, nameStart, result)
		v.checkCallSemantics(name, args, nameStart, result)
	}
}

func (v *Validator) checkArity(name string, spec FunctionSpec, args []string, offset int, result *Result) {
	n := len(args)
	if n < spec.MinArgs {
		result.add(diagnostic.Diagnostic{
			Message:     fmt.Sprintf("$%s requires at least %d argument(s), got %d", name, spec.MinArgs, n),
			Severity:    diagnostic.SeverityError,
			Category:    diagnostic.CategoryDSLSyntax,
			Column:      offset + 1,
			Remediation: fmt.Sprintf("$%s: %s", name, spec.Description),
		})
		return
	}
	if spec.MaxArgs >= 0 && n > spec.MaxArgs {
		result.add(diagnostic.Diagnostic{
			Message:     fmt.Sprintf("$%s accepts at most %d argument(s), got %d", name, spec.MaxArgs, n),
			Severity:    diagnostic.SeverityError,
			Category:    diagnostic.CategoryDSLSyntax,
			Column:      offset + 1,
			Remediation: fmt.Sprintf("$%s: %s", name, spec.Description),
		})
	}
}

// checkCallSemantics applies per-function heuristics. These are substring
// checks over argument text, so they stay warnings: they can miss real
// errors and flag correct code.
func (v *Validator) checkCallSemantics(name string, args []string, offset int, result *Result) {
	switch name {
	case fnMap:
		if len(args) > 0 && !refPattern.MatchString(args[0]) && !strings.Contains(args[0], "$") {
			result.add(diagnostic.Diagnostic{
				Message:     fmt.Sprintf("$MAP's first argument %q does not look like a data path", strings.TrimSpace(args[0])),
				Severity:    diagnostic.SeverityWarning,
				Category:    diagnostic.CategoryDSLSemantic,
				Column:      offset + 1,
				Remediation: "pass the collection to transform, e.g. data.items",
			})
		}
	case fnFilter:
		if len(args) > 1 && !comparisonPattern.MatchString(args[1]) {
			result.add(diagnostic.Diagnostic{
				Message:     "$FILTER's condition argument contains no comparison operator",
				Severity:    diagnostic.SeverityWarning,
				Category:    diagnostic.CategoryDSLSemantic,
				Column:      offset + 1,
				Remediation: "write a condition such as item.status == 'active'",
			})
		}
	case fnIf:
		if len(args) > 0 && !comparisonPattern.MatchString(args[0]) && !logicalPattern.MatchString(args[0]) {
			result.add(diagnostic.Diagnostic{
				Message:     "$IF's condition argument contains no comparison or logical operator",
				Severity:    diagnostic.SeverityWarning,
				Category:    diagnostic.CategoryDSLSemantic,
				Column:      offset + 1,
				Remediation: "write a condition such as data.count > 0",
			})
		}
	}
}

// checkReferences collects rooted data/meta paths and flags reference typos.
func (v *Validator) checkReferences(expr, mask string, result *Result) {
	seen := map[string]bool{}
	for _, loc := range refPattern.FindAllStringIndex(mask, -1) {
		ref := expr[loc[0]:loc[1]]
		if !seen[ref] {
			seen[ref] = true
			result.DataReferences = append(result.DataReferences, ref)
		}
	}

	if loc := doubleDotPattern.FindStringIndex(mask); loc != nil {
		result.add(diagnostic.Diagnostic{
			Message:     fmt.Sprintf("reference %q contains a double dot", strings.TrimSpace(expr[loc[0]:loc[1]])),
			Severity:    diagnostic.SeverityWarning,
			Category:    diagnostic.CategoryDSLSemantic,
			Column:      loc[0] + 1,
			Remediation: "remove the extra dot from the path",
		})
	}
	if loc := badPathCharMatch.FindStringIndex(mask); loc != nil {
		result.add(diagnostic.Diagnostic{
			Message:     fmt.Sprintf("reference %q contains unexpected characters", expr[loc[0]:loc[1]]),
			Severity:    diagnostic.SeverityWarning,
			Category:    diagnostic.CategoryDSLSemantic,
			Column:      loc[0] + 1,
			Remediation: "path segments use letters, digits, and underscores only",
		})
	}
}

// checkOperators flags a bare = that does not sit in a keyword-argument
// position, suggesting == for equality.
func (v *Validator) checkOperators(expr, mask string, result *Result) {
	for i := 0; i < len(mask); i++ {
		if mask[i] != '=' {
			continue
		}
		if i+1 < len(mask) && mask[i+1] == '=' {
			i++
			continue
		}
		if i > 0 {
			switch mask[i-1] {
			case '=', '!', '<', '>':
				continue
			}
		}
		if looksLikeKeywordArg(mask, i) {
			continue
		}
		result.add(diagnostic.Diagnostic{
			Message:     fmt.Sprintf("single = at position %d; use == to compare values", i),
			Severity:    diagnostic.SeverityWarning,
			Category:    diagnostic.CategoryDSLSemantic,
			Column:      i + 1,
			Remediation: "replace = with ==",
		})
	}
}

// looksLikeKeywordArg reports whether the = at idx follows a lowercase
// identifier that opens an argument, e.g. $SORT(data.x, order='asc').
func looksLikeKeywordArg(mask string, idx int) bool {
	j := idx - 1
	for j >= 0 && mask[j] == ' ' {
		j--
	}
	end := j
	for j >= 0 && (mask[j] >= 'a' && mask[j] <= 'z' || mask[j] == '_') {
		j--
	}
	if j == end {
		return false
	}
	for j >= 0 && mask[j] == ' ' {
		j--
	}
	return j >= 0 && (mask[j] == '(' || mask[j] == ',')
}

// tagFeatures records which structural patterns are present.
func (v *Validator) tagFeatures(expr, mask string, result *Result) {
	tag := func(name string, present bool) {
		if present {
			result.Patterns = append(result.Patterns, name)
		}
	}
	tag("data_reference", dataRefPattern.MatchString(mask))
	tag("meta_reference", metaRefPattern.MatchString(mask))
	tag("function_call", len(result.FunctionCalls) > 0)
	tag("comparison_operator", comparisonPattern.MatchString(mask))
	tag("logical_operator", logicalPattern.MatchString(mask))
	tag("index_access", strings.Contains(mask, "[") && strings.Contains(mask, "]"))
	tag("string_literal", strings.ContainsAny(expr, `'"`))
	tag("numeric_literal", numberLitPattern.MatchString(mask))
}

// nudges emits contextual, non-blocking suggestions.
func (v *Validator) nudges(expr, mask string, fieldCtx FieldContext, result *Result) {
	// + between data references usually means string concatenation.
	if refPlusPattern.MatchString(mask) {
		result.add(diagnostic.Diagnostic{
			Message:     "+ between data references; $CONCAT is clearer for joining text",
			Severity:    diagnostic.SeveritySuggestion,
			Category:    diagnostic.CategoryDSLSemantic,
			Remediation: "e.g. $CONCAT(data.first, ' ', data.last)",
		})
	}

	// Unqualified "user" almost always means the request metadata.
	if unqualifiedUser.MatchString(mask) {
		result.add(diagnostic.Diagnostic{
			Message:     `"user" is not a namespace; user details live under meta`,
			Severity:    diagnostic.SeveritySuggestion,
			Category:    diagnostic.CategoryDSLSemantic,
			Remediation: "use meta.user.email, meta.user.name, etc.",
		})
	}

	// YAML would misparse these unquoted.
	if strings.HasPrefix(strings.TrimSpace(expr), "{") || strings.Contains(expr, ": ") {
		result.add(diagnostic.Diagnostic{
			Message:     "quote the whole expression when embedding it in the workflow file",
			Severity:    diagnostic.SeveritySuggestion,
			Category:    diagnostic.CategoryDSLSemantic,
			Remediation: quotingHint(fieldCtx),
		})
	}
}

func emptyPlaceholder(fieldCtx FieldContext) string {
	switch fieldCtx {
	case ContextCondition:
		return "write a condition, e.g. data.status == 'done'"
	case ContextIterator:
		return "name the collection to iterate, e.g. data.items"
	case ContextOutputMapping:
		return "map a value, e.g. $GET(data.result.id)"
	default:
		return "write a value or expression, e.g. data.result"
	}
}

func quotingHint(fieldCtx FieldContext) string {
	switch fieldCtx {
	case ContextCondition:
		return `condition: "<expression>"`
	case ContextIterator:
		return `for_each: "<expression>"`
	case ContextOutputMapping:
		return `output: "<expression>"`
	default:
		return `value: "<expression>"`
	}
}

// matchingParen returns the index of the ) closing the ( at open, or -1.
func matchingParen(mask string, open int) int {
	depth := 0
	for i := open; i < len(mask); i++ {
		switch mask[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitArgs splits a call's argument substring at top-level commas. The
// depth counter tracks both parentheses and brackets so arguments holding
// nested calls or array literals are not miscounted.
func splitArgs(inner string) []string {
	if strings.TrimSpace(inner) == "" {
		return nil
	}
	var args []string
	depth := 0
	var quote byte
	escaped := false
	start := 0
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		if quote != 0 {
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(inner[start:i]))
				start = i + 1
			}
		}
	}
	args = append(args, strings.TrimSpace(inner[start:]))
	return args
}

// nearestFunction returns the vocabulary name closest to the given name, or
// empty when nothing is within editing distance 2.
func (v *Validator) nearestFunction(name string) string {
	names := make([]string, 0, len(v.functions))
	for n := range v.functions {
		names = append(names, n)
	}
	sort.Strings(names)

	best := ""
	bestDist := 3
	for _, n := range names {
		if d := editDistance(name, n); d < bestDist {
			best = n
			bestDist = d
		}
	}
	return best
}

func editDistance(a, b string) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min3(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

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
	"math"

	"github.com/tombee/composer/pkg/diagnostic"
)

// checkResources runs every resource-ceiling pass. The byte-count check
// needs only the raw source and runs even when parsing failed; the literal
// checks walk the tree when one is available.
func checkResources(source string, stmts []Stmt, c Constraints) ([]diagnostic.Diagnostic, *diagnostic.ResourceUsage) {
	var diags []diagnostic.Diagnostic

	size := len(source)
	usage := &diagnostic.ResourceUsage{
		ScriptBytes:          size,
		ScriptBytesLimit:     c.MaxScriptBytes,
		ScriptBytesPercent:   float64(size) / float64(c.MaxScriptBytes) * 100,
		ScriptBytesRemaining: c.MaxScriptBytes - size,
	}

	switch {
	case size > c.MaxScriptBytes:
		diags = append(diags, diagnostic.Diagnostic{
			Message: fmt.Sprintf("script is %d bytes, %d over the %d-byte limit",
				size, size-c.MaxScriptBytes, c.MaxScriptBytes),
			Severity:    diagnostic.SeverityError,
			Category:    diagnostic.CategoryResourceLimit,
			Remediation: "shorten the script or split the work across multiple steps",
		})
	case float64(size) >= nearThreshold*float64(c.MaxScriptBytes):
		diags = append(diags, diagnostic.Diagnostic{
			Message: fmt.Sprintf("script is %d bytes, within %d bytes of the %d-byte limit",
				size, c.MaxScriptBytes-size, c.MaxScriptBytes),
			Severity:    diagnostic.SeverityWarning,
			Category:    diagnostic.CategoryResourceLimit,
			Remediation: "trim the script now; the next edit is likely to exceed the limit",
		})
	case float64(size) >= warnThreshold*float64(c.MaxScriptBytes):
		diags = append(diags, diagnostic.Diagnostic{
			Message: fmt.Sprintf("script is %d bytes, over %.0f%% of the %d-byte limit",
				size, warnThreshold*100, c.MaxScriptBytes),
			Severity:    diagnostic.SeverityWarning,
			Category:    diagnostic.CategoryResourceLimit,
			Remediation: "consider splitting the work across multiple steps",
		})
	}

	if stmts == nil {
		return diags, usage
	}

	// Literal checks over the tree.
	walkStmts(stmts, func(s Stmt) {
		for _, root := range stmtExprs(s) {
			walkExprs(root, func(e Expr) {
				switch lit := e.(type) {
				case *StringLit:
					diags = append(diags, checkStringLiteral(lit, c)...)
				case *NumberLit:
					diags = append(diags, checkNumericLiteral(lit, c)...)
				case *ListLit:
					if len(lit.Elems) > largeContainerSize {
						diags = append(diags, largeContainerDiag("list", len(lit.Elems), lit.ExprLine()))
					}
				case *DictLit:
					if len(lit.Entries) > largeContainerSize {
						diags = append(diags, largeContainerDiag("dict", len(lit.Entries), lit.ExprLine()))
					}
				}
			})

			// Serialized-size estimate for top-level container literals.
			if est, ok := estimateSerializedSize(root); ok {
				if est > usage.EstimatedSerializedBytes {
					usage.EstimatedSerializedBytes = est
				}
				switch {
				case est > c.MaxSerializedBytes:
					diags = append(diags, diagnostic.Diagnostic{
						Message: fmt.Sprintf("literal serializes to an estimated %d bytes, over the %d-byte payload limit",
							est, c.MaxSerializedBytes),
						Severity:    diagnostic.SeverityError,
						Category:    diagnostic.CategoryResourceLimit,
						Line:        root.ExprLine(),
						Remediation: "reduce the literal or build the payload from upstream step data",
						Rationale:   "the estimate counts brackets, separators, and literal contents without running the script",
					})
				case float64(est) >= warnThreshold*float64(c.MaxSerializedBytes):
					diags = append(diags, diagnostic.Diagnostic{
						Message: fmt.Sprintf("literal serializes to an estimated %d bytes, over %.0f%% of the %d-byte payload limit",
							est, warnThreshold*100, c.MaxSerializedBytes),
						Severity:    diagnostic.SeverityWarning,
						Category:    diagnostic.CategoryResourceLimit,
						Line:        root.ExprLine(),
						Remediation: "consider reducing the literal before it exceeds the payload limit",
					})
				}
			}
		}
	})

	return diags, usage
}

func checkStringLiteral(lit *StringLit, c Constraints) []diagnostic.Diagnostic {
	var diags []diagnostic.Diagnostic
	n := len([]rune(lit.Value))
	switch {
	case n > c.MaxStringLength:
		diags = append(diags, diagnostic.Diagnostic{
			Message: fmt.Sprintf("string literal is %d characters, over the %d-character limit",
				n, c.MaxStringLength),
			Severity:    diagnostic.SeverityError,
			Category:    diagnostic.CategoryResourceLimit,
			Line:        lit.ExprLine(),
			Remediation: "move large text into workflow data and reference it instead",
		})
	case float64(n) >= warnThreshold*float64(c.MaxStringLength):
		diags = append(diags, diagnostic.Diagnostic{
			Message: fmt.Sprintf("string literal is %d characters, over %.0f%% of the %d-character limit",
				n, warnThreshold*100, c.MaxStringLength),
			Severity: diagnostic.SeverityWarning,
			Category: diagnostic.CategoryResourceLimit,
			Line:     lit.ExprLine(),
		})
	}
	if n > largeStringLength {
		diags = append(diags, diagnostic.Diagnostic{
			Message:     fmt.Sprintf("string literal is %d characters; large inline text hurts readability", n),
			Severity:    diagnostic.SeveritySuggestion,
			Category:    diagnostic.CategoryResourceLimit,
			Line:        lit.ExprLine(),
			Remediation: "move the text into workflow data and reference it from the script",
		})
	}
	return diags
}

func checkNumericLiteral(lit *NumberLit, c Constraints) []diagnostic.Diagnostic {
	var diags []diagnostic.Diagnostic

	// Integers must be non-negative and under the ceiling; floats may use
	// the signed range.
	value := lit.Value
	if lit.Negative {
		value = -math.Abs(value)
	}
	outOfRange := false
	if lit.IsFloat {
		outOfRange = math.Abs(value) > c.MaxNumericValue
	} else {
		outOfRange = value < 0 || value > c.MaxNumericValue
	}

	if outOfRange {
		diags = append(diags, diagnostic.Diagnostic{
			Message: fmt.Sprintf("numeric literal %s is outside the supported range [0, %.0f]",
				lit.Text, c.MaxNumericValue),
			Severity:    diagnostic.SeverityError,
			Category:    diagnostic.CategoryResourceLimit,
			Line:        lit.ExprLine(),
			Remediation: "use a value inside the supported range, or represent it as a string",
		})
	} else if math.Abs(value) >= warnThreshold*c.MaxNumericValue {
		diags = append(diags, diagnostic.Diagnostic{
			Message: fmt.Sprintf("numeric literal %s is close to the supported maximum %.0f",
				lit.Text, c.MaxNumericValue),
			Severity: diagnostic.SeverityWarning,
			Category: diagnostic.CategoryResourceLimit,
			Line:     lit.ExprLine(),
		})
	}
	return diags
}

func largeContainerDiag(kind string, n, line int) diagnostic.Diagnostic {
	return diagnostic.Diagnostic{
		Message:     fmt.Sprintf("%s literal has %d elements; large inline literals hurt readability and slow serialization", kind, n),
		Severity:    diagnostic.SeveritySuggestion,
		Category:    diagnostic.CategoryResourceLimit,
		Line:        line,
		Remediation: "build the collection from upstream step data instead of inlining it",
	}
}

// estimateSerializedSize approximates the serialized payload size of a
// container literal without executing anything: fixed bracket and separator
// overhead, quoted-length for strings, digit count for numbers, and a flat
// fallback for any sub-expression whose value is not statically known.
// Returns ok=false for non-container expressions.
func estimateSerializedSize(e Expr) (int, bool) {
	switch e.(type) {
	case *ListLit, *DictLit:
		return estimateExprSize(e), true
	}
	return 0, false
}

func estimateExprSize(e Expr) int {
	switch v := e.(type) {
	case *StringLit:
		return len(v.Value) + 2
	case *NumberLit:
		return len(v.Text)
	case *BoolLit:
		if v.Value {
			return 4 // true
		}
		return 5 // false
	case *NoneLit:
		return 4 // null
	case *ListLit:
		size := 2
		for _, el := range v.Elems {
			size += estimateExprSize(el) + 2
		}
		return size
	case *DictLit:
		size := 2
		for _, entry := range v.Entries {
			size += estimateExprSize(entry.Key) + estimateExprSize(entry.Value) + 2
		}
		return size
	default:
		return opaqueSerializedCost
	}
}

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

	"github.com/tombee/composer/pkg/diagnostic"
)

// Tail-statement classifications. The sandboxed runtime hands the workflow
// the value of the last top-level statement only, so the classification
// predicts what a script will actually yield.
const (
	TailAssignment    = "assignment"
	TailExpression    = "expression"
	TailReturnValue   = "return_value"
	TailReturnNothing = "return_nothing"
	TailControlFlow   = "control_flow"
	TailLoopControl   = "loop_control"
	TailOther         = "other"
)

// checkReturnFlow classifies the tail statement and predicts whether the
// script yields a value. Every finding here is a warning or suggestion; the
// analysis is a structural heuristic, never a guarantee, so it must not
// block export.
func checkReturnFlow(stmts []Stmt) ([]diagnostic.Diagnostic, *diagnostic.ReturnAnalysis) {
	analysis := &diagnostic.ReturnAnalysis{
		TailKind:       TailOther,
		StatementCount: len(stmts),
	}
	if len(stmts) == 0 {
		return []diagnostic.Diagnostic{{
			Message:     "script is empty and will yield nothing",
			Severity:    diagnostic.SeverityWarning,
			Category:    diagnostic.CategoryReturnLogic,
			Remediation: "add a final expression or return statement producing the step's value",
		}}, analysis
	}

	tail := stmts[len(stmts)-1]
	var diags []diagnostic.Diagnostic

	switch s := tail.(type) {
	case *AssignStmt:
		analysis.TailKind = TailAssignment
		d := diagnostic.Diagnostic{
			Message: fmt.Sprintf(
				"the script ends with an assignment to %q, so it will yield nothing at runtime, not the assigned value",
				s.Target),
			Severity: diagnostic.SeverityWarning,
			Category: diagnostic.CategoryReturnLogic,
			Line:     tail.StmtLine(),
			Remediation: fmt.Sprintf(
				"either add `return %[1]s` as the final line, change the line to the bare expression `%[1]s`, or inline the right-hand side directly:\n  before: %[2]s\n  after:  %[2]s\n          return %[1]s",
				s.Target, tail.Source()),
			Rationale:   "only the value of the last top-level statement is returned to the workflow; assignments produce no value",
			AutoFixable: true,
			Fix:         fmt.Sprintf("%s\nreturn %s", tail.Source(), s.Target),
		}
		if len(stmts) == 1 {
			d.Remediation += "\n  tip: with a single statement, the simplest fix is dropping the assignment entirely and keeping just the expression"
		}
		diags = append(diags, d)

	case *ExprStmt:
		analysis.TailKind = TailExpression
		if call, ok := s.Value.(*CallExpr); ok {
			if hint, mutating := mutatingCalls[calleeName(call.Fn)]; mutating {
				diags = append(diags, diagnostic.Diagnostic{
					Message: fmt.Sprintf(
						"the script ends with a call to %q, which mutates in place and creates no value",
						calleeName(call.Fn)),
					Severity:    diagnostic.SeverityWarning,
					Category:    diagnostic.CategoryReturnLogic,
					Line:        tail.StmtLine(),
					Remediation: hint,
					Rationale:   "only the value of the last top-level statement is returned to the workflow",
				})
				break
			}
		}
		analysis.YieldsValue = true
		diags = append(diags, diagnostic.Diagnostic{
			Message:  "the script ends with an expression; its value will be returned to the workflow",
			Severity: diagnostic.SeveritySuggestion,
			Category: diagnostic.CategoryReturnLogic,
			Line:     tail.StmtLine(),
		})

	case *ReturnStmt:
		analysis.ExplicitReturn = true
		if s.Value != nil {
			analysis.TailKind = TailReturnValue
			analysis.YieldsValue = true
		} else {
			analysis.TailKind = TailReturnNothing
			diags = append(diags, diagnostic.Diagnostic{
				Message:     "the script ends with a bare return and will yield nothing",
				Severity:    diagnostic.SeverityWarning,
				Category:    diagnostic.CategoryReturnLogic,
				Line:        tail.StmtLine(),
				Remediation: "return the value the step should produce, e.g. `return result`",
			})
		}

	case *BlockStmt:
		analysis.TailKind = TailControlFlow
		diags = append(diags, diagnostic.Diagnostic{
			Message: fmt.Sprintf(
				"the script ends with a %s block and may finish without producing a value", s.Keyword),
			Severity:    diagnostic.SeverityWarning,
			Category:    diagnostic.CategoryReturnLogic,
			Line:        tail.StmtLine(),
			Remediation: controlFlowHint(s.Keyword),
		})

	case *KeywordStmt:
		switch s.Keyword {
		case "pass", "break", "continue":
			analysis.TailKind = TailLoopControl
			diags = append(diags, diagnostic.Diagnostic{
				Message: fmt.Sprintf(
					"the script ends with %q, which produces no value", s.Keyword),
				Severity:    diagnostic.SeverityWarning,
				Category:    diagnostic.CategoryReturnLogic,
				Line:        tail.StmtLine(),
				Remediation: "add a final expression or return statement after it",
			})
		default:
			diags = append(diags, otherTailDiag(tail))
		}

	default:
		diags = append(diags, otherTailDiag(tail))
	}

	return diags, analysis
}

func controlFlowHint(keyword string) string {
	switch keyword {
	case "if":
		return "ensure every branch returns a value, or add a return statement after the conditional"
	case "for", "while":
		return "add a return statement after the loop with the value it accumulated"
	case "with":
		return "add a return statement after the with block"
	case "try":
		return "ensure both the try body and its handlers return a value"
	}
	return "add a final expression or return statement producing the step's value"
}

func otherTailDiag(tail Stmt) diagnostic.Diagnostic {
	return diagnostic.Diagnostic{
		Message:     "the script may end without producing a value",
		Severity:    diagnostic.SeverityWarning,
		Category:    diagnostic.CategoryReturnLogic,
		Line:        tail.StmtLine(),
		Remediation: "add a final expression or return statement producing the step's value",
	}
}

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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/composer/pkg/diagnostic"
)

func mustParse(t *testing.T, source string) []Stmt {
	t.Helper()
	stmts, err := Parse(source)
	require.NoError(t, err)
	return stmts
}

func TestCheckReturnFlowTailAssignment(t *testing.T) {
	diags, analysis := checkReturnFlow(mustParse(t, "v = compute()"))

	assert.Equal(t, TailAssignment, analysis.TailKind)
	assert.False(t, analysis.YieldsValue)
	assert.Equal(t, 1, analysis.StatementCount)

	require.Len(t, diags, 1)
	d := diags[0]
	assert.Equal(t, diagnostic.SeverityWarning, d.Severity)
	assert.Equal(t, diagnostic.CategoryReturnLogic, d.Category)
	assert.Contains(t, d.Message, `assignment to "v"`)
	assert.Contains(t, d.Remediation, "return v")
	assert.Contains(t, d.Remediation, "before: v = compute()")
	// Single-statement scripts get the extra tip.
	assert.Contains(t, d.Remediation, "tip:")
	assert.True(t, d.AutoFixable)
	assert.Equal(t, "v = compute()\nreturn v", d.Fix)
}

func TestCheckReturnFlowTailAssignmentMultiStatement(t *testing.T) {
	diags, _ := checkReturnFlow(mustParse(t, "a = 1\nv = a"))
	require.Len(t, diags, 1)
	assert.NotContains(t, diags[0].Remediation, "tip:")
}

func TestCheckReturnFlowTailExpression(t *testing.T) {
	diags, analysis := checkReturnFlow(mustParse(t, "v = compute()\nv"))

	assert.Equal(t, TailExpression, analysis.TailKind)
	assert.True(t, analysis.YieldsValue)
	assert.Equal(t, 2, analysis.StatementCount)

	require.Len(t, diags, 1)
	assert.Equal(t, diagnostic.SeveritySuggestion, diags[0].Severity)
	assert.Contains(t, diags[0].Message, "its value will be returned")
}

func TestCheckReturnFlowMutatingTail(t *testing.T) {
	tests := []struct {
		source string
		callee string
	}{
		{"items = [1]\nitems.append(2)", "append"},
		{"items = [2, 1]\nitems.sort()", "sort"},
		{"d = {}\nd.update(other)", "update"},
	}

	for _, tt := range tests {
		t.Run(tt.callee, func(t *testing.T) {
			diags, analysis := checkReturnFlow(mustParse(t, tt.source))

			assert.Equal(t, TailExpression, analysis.TailKind)
			assert.False(t, analysis.YieldsValue)

			require.Len(t, diags, 1)
			assert.Equal(t, diagnostic.SeverityWarning, diags[0].Severity)
			assert.Contains(t, diags[0].Message, tt.callee)
			assert.Equal(t, mutatingCalls[tt.callee], diags[0].Remediation)
		})
	}
}

func TestCheckReturnFlowExplicitReturn(t *testing.T) {
	diags, analysis := checkReturnFlow(mustParse(t, "x = 1\nreturn x"))

	assert.Equal(t, TailReturnValue, analysis.TailKind)
	assert.True(t, analysis.ExplicitReturn)
	assert.True(t, analysis.YieldsValue)
	assert.Empty(t, diags)
}

func TestCheckReturnFlowBareReturn(t *testing.T) {
	diags, analysis := checkReturnFlow(mustParse(t, "x = 1\nreturn"))

	assert.Equal(t, TailReturnNothing, analysis.TailKind)
	assert.True(t, analysis.ExplicitReturn)
	assert.False(t, analysis.YieldsValue)

	require.Len(t, diags, 1)
	assert.Equal(t, diagnostic.SeverityWarning, diags[0].Severity)
	assert.Contains(t, diags[0].Message, "bare return")
}

func TestCheckReturnFlowControlFlowTail(t *testing.T) {
	source := "total = 0\nfor n in data.items:\n    total += n"
	diags, analysis := checkReturnFlow(mustParse(t, source))

	assert.Equal(t, TailControlFlow, analysis.TailKind)
	require.Len(t, diags, 1)
	assert.Equal(t, diagnostic.SeverityWarning, diags[0].Severity)
	assert.Contains(t, diags[0].Message, "for block")
	assert.Contains(t, diags[0].Remediation, "after the loop")
}

func TestCheckReturnFlowLoopControlTail(t *testing.T) {
	diags, analysis := checkReturnFlow(mustParse(t, "x = 1\npass"))

	assert.Equal(t, TailLoopControl, analysis.TailKind)
	require.Len(t, diags, 1)
	assert.Contains(t, diags[0].Message, `"pass"`)
}

func TestCheckReturnFlowEmptyScript(t *testing.T) {
	diags, analysis := checkReturnFlow(nil)

	assert.Equal(t, TailOther, analysis.TailKind)
	assert.Equal(t, 0, analysis.StatementCount)
	require.Len(t, diags, 1)
	assert.Contains(t, diags[0].Message, "empty")
}

// Findings here never block export; the classification is a heuristic.
func TestCheckReturnFlowNeverErrors(t *testing.T) {
	sources := []string{
		"v = 1",
		"x = 1\nreturn",
		"items = []\nitems.append(1)",
		"if a:\n    return 1",
		"raise ValueError('boom')",
	}

	for _, source := range sources {
		diags, _ := checkReturnFlow(mustParse(t, source))
		for _, d := range diags {
			assert.NotEqual(t, diagnostic.SeverityError, d.Severity, "source %q", source)
		}
	}
}

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

package expression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/composer/pkg/diagnostic"
)

func TestValidateWellFormedExpressions(t *testing.T) {
	v := NewValidator()

	tests := []string{
		"data.items",
		"meta.user.email",
		"data.items[0]",
		"$GET(data.result.id)",
		"$IF(data.count > 0, 'yes', 'no')",
		"$MAP(data.items, $GET(item, 'name'))",
		"$CONCAT(data.first, ' ', data.last)",
		"data.status == 'active' && data.count > 3",
		"$SORT(data.items, order='asc')",
	}

	for _, expr := range tests {
		t.Run(expr, func(t *testing.T) {
			result := v.Validate(expr, ContextArgument)
			assert.True(t, result.IsValid(), "diagnostics: %v", result.Diagnostics)
		})
	}
}

func TestValidateEmptyExpression(t *testing.T) {
	v := NewValidator()

	result := v.Validate("   ", ContextCondition)

	assert.False(t, result.IsValid())
	require.Len(t, result.Diagnostics, 1)
	assert.Contains(t, result.Diagnostics[0].Message, "empty")
	assert.Contains(t, result.Diagnostics[0].Remediation, "condition")
}

func TestValidateArity(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name    string
		expr    string
		wantMsg string
	}{
		{
			name:    "too few arguments",
			expr:    "$MAP(data.items)",
			wantMsg: "$MAP requires at least 2 argument(s), got 1",
		},
		{
			name:    "too many arguments",
			expr:    "$LENGTH(data.a, data.b)",
			wantMsg: "$LENGTH accepts at most 1 argument(s), got 2",
		},
		{
			name:    "variadic lower bound",
			expr:    "$CONCAT(data.a)",
			wantMsg: "$CONCAT requires at least 2 argument(s), got 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := v.Validate(tt.expr, ContextArgument)

			assert.False(t, result.IsValid())
			var found bool
			for _, d := range result.Diagnostics {
				if d.Message == tt.wantMsg {
					found = true
					assert.Equal(t, diagnostic.SeverityError, d.Severity)
					assert.Equal(t, diagnostic.CategoryDSLSyntax, d.Category)
				}
			}
			assert.True(t, found, "diagnostics: %v", result.Diagnostics)
		})
	}
}

func TestValidateVariadicUpperBound(t *testing.T) {
	v := NewValidator()

	// CONCAT has no upper bound.
	result := v.Validate("$CONCAT(data.a, data.b, data.c, data.d, data.e)", ContextArgument)
	assert.True(t, result.IsValid(), "diagnostics: %v", result.Diagnostics)
}

func TestValidateBalance(t *testing.T) {
	v := NewValidator()

	t.Run("one unmatched open reported once at its position", func(t *testing.T) {
		result := v.Validate("data.a == 'x' && (data.b", ContextCondition)

		assert.False(t, result.IsValid())
		require.Len(t, result.Errors(), 1)
		e := result.Errors()[0]
		assert.Equal(t, "unmatched opening parenthesis at position 17", e.Message)
		assert.Equal(t, 18, e.Column)
	})

	t.Run("unmatched close reported per occurrence", func(t *testing.T) {
		result := v.Validate("data.a)", ContextCondition)

		require.Len(t, result.Errors(), 1)
		assert.Contains(t, result.Errors()[0].Message, "unmatched closing parenthesis at position 6")
	})

	t.Run("multiple unmatched opens collapse to one finding", func(t *testing.T) {
		result := v.Validate("$IF((data.a", ContextCondition)

		require.Len(t, result.Errors(), 1)
		assert.Contains(t, result.Errors()[0].Message, "2 unmatched opening parentheses")
	})

	t.Run("parens inside string literals are ignored", func(t *testing.T) {
		result := v.Validate("$CONCAT(data.a, '(unclosed')", ContextArgument)
		assert.True(t, result.IsValid(), "diagnostics: %v", result.Diagnostics)
	})
}

func TestValidateSigil(t *testing.T) {
	v := NewValidator()

	result := v.Validate("CONCAT(data.a, data.b)", ContextArgument)

	assert.False(t, result.IsValid())
	require.Len(t, result.Errors(), 1)
	assert.Contains(t, result.Errors()[0].Message, `function "CONCAT" must be called with the $ prefix`)
	assert.Contains(t, result.Errors()[0].Remediation, "$CONCAT(")
}

func TestValidateTypoSuggestion(t *testing.T) {
	v := NewValidator()

	result := v.Validate("$CONCTA(data.a, data.b)", ContextArgument)

	// A probable typo is a warning, not an error.
	assert.True(t, result.IsValid())
	var found bool
	for _, d := range result.Diagnostics {
		if d.Severity == diagnostic.SeverityWarning {
			assert.Contains(t, d.Message, `unknown function "CONCTA"; did you mean $CONCAT?`)
			found = true
		}
	}
	assert.True(t, found, "diagnostics: %v", result.Diagnostics)
}

func TestValidateLowercaseUnknownCallIgnored(t *testing.T) {
	v := NewValidator()

	// Lowercase calls are not treated as vocabulary typos.
	result := v.Validate("len(data.items) > 0", ContextCondition)
	assert.True(t, result.IsValid(), "diagnostics: %v", result.Diagnostics)
}

func TestValidateSingleEquals(t *testing.T) {
	v := NewValidator()

	t.Run("comparison position warns", func(t *testing.T) {
		result := v.Validate("data.status = 'active'", ContextCondition)

		assert.True(t, result.IsValid(), "single = is a warning, not an error")
		var found bool
		for _, d := range result.Diagnostics {
			if d.Severity == diagnostic.SeverityWarning {
				assert.Contains(t, d.Message, "use == to compare")
				found = true
			}
		}
		assert.True(t, found)
	})

	t.Run("keyword argument position is exempt", func(t *testing.T) {
		result := v.Validate("$SORT(data.items, order='desc')", ContextArgument)
		assert.Empty(t, result.Diagnostics)
	})
}

func TestValidateReferenceTypos(t *testing.T) {
	v := NewValidator()

	result := v.Validate("data.items..name", ContextArgument)

	var found bool
	for _, d := range result.Diagnostics {
		if d.Category == diagnostic.CategoryDSLSemantic {
			assert.Contains(t, d.Message, "double dot")
			found = true
		}
	}
	assert.True(t, found, "diagnostics: %v", result.Diagnostics)
}

func TestValidateCollectsCallsAndReferences(t *testing.T) {
	v := NewValidator()

	result := v.Validate("$MAP(data.items, $GET(item, 'name'))", ContextArgument)

	require.Len(t, result.FunctionCalls, 2)
	assert.Equal(t, "MAP", result.FunctionCalls[0].Name)
	assert.Equal(t, []string{"data.items", "$GET(item, 'name')"}, result.FunctionCalls[0].Args)
	assert.Equal(t, "GET", result.FunctionCalls[1].Name)

	assert.Equal(t, []string{"data.items"}, result.DataReferences)
}

func TestValidatePatternTags(t *testing.T) {
	v := NewValidator()

	result := v.Validate("$LENGTH(data.items[0]) > 3 && meta.user.id != 'x'", ContextCondition)

	for _, want := range []string{
		"data_reference",
		"meta_reference",
		"function_call",
		"comparison_operator",
		"logical_operator",
		"index_access",
		"string_literal",
		"numeric_literal",
	} {
		assert.Contains(t, result.Patterns, want)
	}
}

func TestValidateSemanticHeuristics(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name    string
		expr    string
		wantMsg string
	}{
		{
			name:    "MAP first argument not a path",
			expr:    "$MAP('items', item)",
			wantMsg: "does not look like a data path",
		},
		{
			name:    "FILTER condition without comparison",
			expr:    "$FILTER(data.items, item.status)",
			wantMsg: "no comparison operator",
		},
		{
			name:    "IF condition without operator",
			expr:    "$IF(data.flag, 'a', 'b')",
			wantMsg: "no comparison or logical operator",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := v.Validate(tt.expr, ContextArgument)

			// Heuristics stay warnings and never invalidate.
			assert.True(t, result.IsValid())
			var found bool
			for _, d := range result.Diagnostics {
				if d.Severity == diagnostic.SeverityWarning {
					assert.Contains(t, d.Message, tt.wantMsg)
					found = true
				}
			}
			assert.True(t, found, "diagnostics: %v", result.Diagnostics)
		})
	}
}

func TestValidateNudges(t *testing.T) {
	v := NewValidator()

	t.Run("plus between references suggests CONCAT", func(t *testing.T) {
		result := v.Validate("data.first + data.last", ContextArgument)

		var found bool
		for _, d := range result.Diagnostics {
			if d.Severity == diagnostic.SeveritySuggestion {
				assert.Contains(t, d.Message, "$CONCAT")
				found = true
			}
		}
		assert.True(t, found)
	})

	t.Run("unqualified user points at meta", func(t *testing.T) {
		result := v.Validate("user.email == 'a@b.c'", ContextCondition)

		var found bool
		for _, d := range result.Diagnostics {
			if d.Severity == diagnostic.SeveritySuggestion {
				assert.Contains(t, d.Remediation, "meta.user")
				found = true
			}
		}
		assert.True(t, found)
	})
}

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		inner string
		want  []string
	}{
		{"", nil},
		{"data.a", []string{"data.a"}},
		{"data.a, data.b", []string{"data.a", "data.b"}},
		{"data.items, $GET(item, 'name')", []string{"data.items", "$GET(item, 'name')"}},
		{"data.items[0], 'a,b'", []string{"data.items[0]", "'a,b'"}},
		{"$IF(a, b, c), d", []string{"$IF(a, b, c)", "d"}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, splitArgs(tt.inner), "inner: %q", tt.inner)
	}
}

func TestEditDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"CONCAT", "CONCAT", 0},
		{"CONCTA", "CONCAT", 2},
		{"LEN", "LENGTH", 3},
		{"", "AB", 2},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, editDistance(tt.a, tt.b), "%s vs %s", tt.a, tt.b)
	}
}

func TestValidateIsPure(t *testing.T) {
	v := NewValidator()
	expr := "$MAP(data.items, $GET(item, 'name'))"

	assert.Equal(t, v.Validate(expr, ContextArgument), v.Validate(expr, ContextArgument))
}

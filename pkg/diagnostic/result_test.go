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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValid(t *testing.T) {
	tests := []struct {
		name  string
		diags []Diagnostic
		want  bool
	}{
		{"empty", nil, true},
		{"warnings only", []Diagnostic{{Severity: SeverityWarning}}, true},
		{"suggestions only", []Diagnostic{{Severity: SeveritySuggestion}}, true},
		{"one error", []Diagnostic{{Severity: SeverityWarning}, {Severity: SeverityError}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &ValidationResult{Diagnostics: tt.diags}
			assert.Equal(t, tt.want, r.IsValid())
		})
	}
}

func TestSeverityFilters(t *testing.T) {
	r := &ValidationResult{}
	r.Add(
		Diagnostic{Message: "e1", Severity: SeverityError},
		Diagnostic{Message: "w1", Severity: SeverityWarning},
		Diagnostic{Message: "e2", Severity: SeverityError},
		Diagnostic{Message: "s1", Severity: SeveritySuggestion},
	)

	require.Len(t, r.Errors(), 2)
	assert.Equal(t, "e1", r.Errors()[0].Message)
	assert.Equal(t, "e2", r.Errors()[1].Message)
	require.Len(t, r.Warnings(), 1)
	require.Len(t, r.Suggestions(), 1)
}

func TestMergeStampsSteps(t *testing.T) {
	inner := &ValidationResult{}
	inner.Add(Diagnostic{Message: "boom", Severity: SeverityError})
	inner.ResourceUsage = &ResourceUsage{ScriptBytes: 10}

	outer := &ValidationResult{}
	outer.Merge(inner, 4, "script")

	require.Len(t, outer.Diagnostics, 1)
	require.NotNil(t, outer.Diagnostics[0].StepIndex)
	assert.Equal(t, 4, *outer.Diagnostics[0].StepIndex)
	assert.Equal(t, "script", outer.Diagnostics[0].StepKind)

	// Side channels stay on the source result.
	assert.Nil(t, outer.ResourceUsage)

	// The source diagnostics are not mutated.
	assert.Nil(t, inner.Diagnostics[0].StepIndex)
}

func TestMergeNil(t *testing.T) {
	outer := &ValidationResult{}
	outer.Merge(nil, 0, "action")
	assert.Empty(t, outer.Diagnostics)
}

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

package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWorkflowYAML(t *testing.T) {
	data := []byte(`
name: weekly_report
steps:
  - type: action
    name: fetch_sales
    output_key: sales
    inputs:
      region: emea
  - type: script
    code: |
      total = 0
      return total
    output_key: total
  - type: condition
    branches:
      - condition: data.total > 0
        steps:
          - type: return
            value: data.total
`)

	wf, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, "weekly_report", wf.Name)
	require.Len(t, wf.Steps, 3)

	assert.Equal(t, StepTypeAction, wf.Steps[0].Type)
	assert.Equal(t, "fetch_sales", wf.Steps[0].Name)
	assert.Equal(t, "sales", wf.Steps[0].OutputKey)
	assert.Equal(t, "emea", wf.Steps[0].Inputs["region"])

	assert.Equal(t, StepTypeScript, wf.Steps[1].Type)
	assert.Contains(t, wf.Steps[1].Code, "return total")

	require.Len(t, wf.Steps[2].Branches, 1)
	assert.Equal(t, "data.total > 0", wf.Steps[2].Branches[0].Condition)
	require.Len(t, wf.Steps[2].Branches[0].Steps, 1)
	assert.Equal(t, StepTypeReturn, wf.Steps[2].Branches[0].Steps[0].Type)
}

func TestParseWorkflowBadYAML(t *testing.T) {
	_, err := Parse([]byte("steps: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing workflow")
}

func TestParseWorkflowEmptyDocument(t *testing.T) {
	for _, doc := range []string{"", "# comments only\n", "---\n"} {
		_, err := Parse([]byte(doc))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "document is empty")
	}
}

func TestContainsLoop(t *testing.T) {
	assert.True(t, containsLoop([]Step{{Type: StepTypeAction}, {Type: StepTypeLoop}}))
	assert.False(t, containsLoop([]Step{{Type: StepTypeAction}}))
	// Only direct children count.
	assert.False(t, containsLoop([]Step{{Type: StepTypeTry, Steps: []Step{{Type: StepTypeLoop}}}}))
}

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

// Package workflow defines the authoring tool's workflow record and the
// aggregation layer that validates a whole workflow: per-step field
// requirements, naming conventions, cross-step invariants, and fan-out to
// the script and expression analyzers.
package workflow

import (
	"gopkg.in/yaml.v3"

	"github.com/tombee/composer/pkg/errors"
)

// StepType is the kind discriminant of a workflow step.
type StepType string

const (
	// StepTypeAction calls a catalog action by name.
	StepTypeAction StepType = "action"

	// StepTypeScript runs an embedded script in the sandboxed dialect.
	StepTypeScript StepType = "script"

	// StepTypeCondition branches on expression conditions.
	StepTypeCondition StepType = "condition"

	// StepTypeLoop iterates nested steps over a collection.
	StepTypeLoop StepType = "loop"

	// StepTypeParallel runs nested steps concurrently.
	StepTypeParallel StepType = "parallel"

	// StepTypeReturn ends the workflow with a value.
	StepTypeReturn StepType = "return"

	// StepTypeRaise ends the workflow with an error.
	StepTypeRaise StepType = "raise"

	// StepTypeTry runs nested steps with error handlers.
	StepTypeTry StepType = "try"
)

// stepTypes lists every known kind; used for discriminant validation.
var stepTypes = map[StepType]bool{
	StepTypeAction:    true,
	StepTypeScript:    true,
	StepTypeCondition: true,
	StepTypeLoop:      true,
	StepTypeParallel:  true,
	StepTypeReturn:    true,
	StepTypeRaise:     true,
	StepTypeTry:       true,
}

// PlaceholderOutputKey marks a step whose result is intentionally unused.
// It is exempt from the duplicate-key invariant.
const PlaceholderOutputKey = "_"

// Step is one step of a workflow record. The engine treats steps as
// read-only; they are constructed and owned by the authoring tool.
type Step struct {
	// Type discriminates the step kind.
	Type StepType `yaml:"type" json:"type"`

	// Name is the catalog action name, for action steps.
	Name string `yaml:"name,omitempty" json:"name,omitempty"`

	// OutputKey publishes the step's result to later steps.
	OutputKey string `yaml:"output_key,omitempty" json:"output_key,omitempty"`

	// Code is the embedded script source, for script steps.
	Code string `yaml:"code,omitempty" json:"code,omitempty"`

	// Description is optional free-form text.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Condition is the loop guard, for loop steps.
	Condition string `yaml:"condition,omitempty" json:"condition,omitempty"`

	// Items is the iterator expression, for loop steps.
	Items string `yaml:"items,omitempty" json:"items,omitempty"`

	// Value is the result expression, for return steps.
	Value string `yaml:"value,omitempty" json:"value,omitempty"`

	// Message is the error text or expression, for raise steps.
	Message string `yaml:"message,omitempty" json:"message,omitempty"`

	// Inputs holds the free-form argument mapping, for action steps.
	Inputs map[string]any `yaml:"inputs,omitempty" json:"inputs,omitempty"`

	// Output maps result fields to expressions.
	Output map[string]string `yaml:"output,omitempty" json:"output,omitempty"`

	// Steps holds the nested body for loop, parallel, and try steps.
	Steps []Step `yaml:"steps,omitempty" json:"steps,omitempty"`

	// Branches holds the condition step's branches.
	Branches []Branch `yaml:"branches,omitempty" json:"branches,omitempty"`

	// Handlers holds the try step's error handlers.
	Handlers []Step `yaml:"handlers,omitempty" json:"handlers,omitempty"`
}

// Branch is one arm of a condition step. An empty Condition marks the
// default branch.
type Branch struct {
	Condition string `yaml:"condition,omitempty" json:"condition,omitempty"`
	Steps     []Step `yaml:"steps" json:"steps"`
}

// Workflow is an ordered sequence of steps.
type Workflow struct {
	Name  string `yaml:"name" json:"name"`
	Steps []Step `yaml:"steps" json:"steps"`
}

// errEmptyWorkflow rejects documents that decode to nothing at all.
var errEmptyWorkflow = errors.New("parsing workflow: document is empty")

// Parse decodes a workflow record from its YAML serialization.
func Parse(data []byte) (*Workflow, error) {
	var wf Workflow
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return nil, errors.Wrap(err, "parsing workflow")
	}
	if wf.Name == "" && len(wf.Steps) == 0 {
		return nil, errEmptyWorkflow
	}
	return &wf, nil
}

// containsLoop reports whether any directly nested step is a loop.
func containsLoop(steps []Step) bool {
	for _, s := range steps {
		if s.Type == StepTypeLoop {
			return true
		}
	}
	return false
}

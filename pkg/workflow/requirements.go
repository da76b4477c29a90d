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

// OutputKeyPolicy states when a step kind must carry an output key.
type OutputKeyPolicy int

const (
	// OutputKeyOptional never requires an output key.
	OutputKeyOptional OutputKeyPolicy = iota

	// OutputKeyRequired always requires an output key.
	OutputKeyRequired

	// OutputKeyContextual requires an output key only in specific
	// structural positions, evaluated against the concrete step.
	OutputKeyContextual
)

// stepRequirements is the declarative per-kind requirement entry. Every
// StepType must have an entry; the validator treats a missing entry as an
// unknown kind.
type stepRequirements struct {
	// Mandatory lists field names that must be present and non-empty.
	Mandatory []string

	// OutputKey states the output-key requirement policy.
	OutputKey OutputKeyPolicy

	// RequiresName reports whether the kind must carry a name field.
	RequiresName bool
}

// stepTable drives per-step field validation. Adding a step kind without a
// table entry makes every step of that kind fail validation, which is the
// safe default.
var stepTable = map[StepType]stepRequirements{
	StepTypeAction:    {Mandatory: []string{"name"}, RequiresName: true},
	StepTypeScript:    {Mandatory: []string{"code"}, OutputKey: OutputKeyRequired},
	StepTypeCondition: {Mandatory: []string{"branches"}},
	StepTypeLoop:      {Mandatory: []string{"items", "steps"}, OutputKey: OutputKeyContextual},
	StepTypeParallel:  {Mandatory: []string{"steps"}, OutputKey: OutputKeyContextual},
	StepTypeReturn:    {Mandatory: []string{"value"}},
	StepTypeRaise:     {Mandatory: []string{"message"}},
	StepTypeTry:       {Mandatory: []string{"steps", "handlers"}},
}

// fieldPresent reports whether the named field is present and non-empty on
// the step. Field names match the record's serialized field names.
func fieldPresent(step *Step, field string) bool {
	switch field {
	case "name":
		return step.Name != ""
	case "code":
		return step.Code != ""
	case "items":
		return step.Items != ""
	case "value":
		return step.Value != ""
	case "message":
		return step.Message != ""
	case "condition":
		return step.Condition != ""
	case "output_key":
		return step.OutputKey != ""
	case "steps":
		return len(step.Steps) > 0
	case "branches":
		return len(step.Branches) > 0
	case "handlers":
		return len(step.Handlers) > 0
	}
	return false
}

// outputKeyRequired evaluates a contextual policy against the concrete
// step's structure: a loop needs an output key only when it runs inside a
// parallel step, and a parallel step needs one only when it contains a loop.
func outputKeyRequired(step *Step, insideParallel bool) bool {
	req, ok := stepTable[step.Type]
	if !ok {
		return false
	}
	switch req.OutputKey {
	case OutputKeyRequired:
		return true
	case OutputKeyContextual:
		switch step.Type {
		case StepTypeLoop:
			return insideParallel
		case StepTypeParallel:
			return containsLoop(step.Steps)
		}
	}
	return false
}

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
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/tombee/composer/pkg/diagnostic"
	"github.com/tombee/composer/pkg/expression"
	"github.com/tombee/composer/pkg/script"
)

// namePattern is the identifier convention for step names, output keys, and
// argument keys: lowercase letters, digits, and underscores, starting with
// a letter.
var namePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// reservedNames may not be used as step names or output keys; they collide
// with the namespaces scripts and expressions read from.
var reservedNames = map[string]bool{
	"data":     true,
	"meta":     true,
	"input":    true,
	"output":   true,
	"steps":    true,
	"workflow": true,
}

// Validator aggregates per-step diagnostics across a whole workflow.
// Stateless after construction; safe for concurrent use.
type Validator struct {
	scripts     *script.Analyzer
	expressions *expression.Validator
}

// NewValidator returns a workflow validator composing the given script
// analyzer and expression validator.
func NewValidator(scripts *script.Analyzer, expressions *expression.Validator) *Validator {
	return &Validator{scripts: scripts, expressions: expressions}
}

// keyOwner records one step owning an output key, for the duplicate check.
type keyOwner struct {
	index int
	kind  StepType
}

// validationState carries the traversal accumulators.
type validationState struct {
	result    *diagnostic.ValidationResult
	keyOwners map[string][]keyOwner
	nextIndex int
}

// ValidateWorkflow validates the whole step sequence: per-kind field
// requirements, naming conventions, script and expression analysis, and the
// cross-step duplicate-output-key invariant. Steps are numbered in
// pre-order traversal order, nested steps included.
func (v *Validator) ValidateWorkflow(wf *Workflow) *diagnostic.ValidationResult {
	state := &validationState{
		result:    &diagnostic.ValidationResult{},
		keyOwners: map[string][]keyOwner{},
	}

	v.validateSteps(wf.Steps, false, state)

	// Duplicate output keys, every owner named. Sorted for deterministic
	// diagnostic order regardless of map iteration.
	keys := make([]string, 0, len(state.keyOwners))
	for key := range state.keyOwners {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		owners := state.keyOwners[key]
		if len(owners) < 2 {
			continue
		}
		descs := make([]string, len(owners))
		for i, o := range owners {
			descs[i] = fmt.Sprintf("step %d (%s)", o.index, o.kind)
		}
		state.result.Add(diagnostic.Diagnostic{
			Message: fmt.Sprintf("output key %q is produced by more than one step: %s",
				key, strings.Join(descs, ", ")),
			Severity:    diagnostic.SeverityError,
			Category:    diagnostic.CategoryStructural,
			Field:       "output_key",
			Remediation: "give each step a unique output key, or use the placeholder key _ for unused results",
		})
	}

	return state.result
}

func (v *Validator) validateSteps(steps []Step, insideParallel bool, state *validationState) {
	for i := range steps {
		step := &steps[i]
		index := state.nextIndex
		state.nextIndex++

		v.validateStep(step, index, insideParallel, state)

		switch step.Type {
		case StepTypeParallel:
			v.validateSteps(step.Steps, true, state)
		case StepTypeLoop, StepTypeTry:
			v.validateSteps(step.Steps, false, state)
			v.validateSteps(step.Handlers, false, state)
		case StepTypeCondition:
			for _, branch := range step.Branches {
				v.validateSteps(branch.Steps, false, state)
			}
		}
	}
}

func (v *Validator) validateStep(step *Step, index int, insideParallel bool, state *validationState) {
	result := state.result
	kind := string(step.Type)

	req, known := stepTable[step.Type]
	if !known || !stepTypes[step.Type] {
		result.Add(diagnostic.Diagnostic{
			Message:     fmt.Sprintf("unknown step kind %q", step.Type),
			Severity:    diagnostic.SeverityError,
			Category:    diagnostic.CategoryStructural,
			Remediation: "use one of: action, script, condition, loop, parallel, return, raise, try",
		}.WithStep(index, kind))
		return
	}

	for _, field := range req.Mandatory {
		if !fieldPresent(step, field) {
			result.Add(diagnostic.Diagnostic{
				Message:     fmt.Sprintf("%s step is missing the required field %q", step.Type, field),
				Severity:    diagnostic.SeverityError,
				Category:    diagnostic.CategoryStructural,
				Field:       field,
				Remediation: fmt.Sprintf("add a non-empty %q to the step", field),
			}.WithStep(index, kind))
		}
	}

	if outputKeyRequired(step, insideParallel) && step.OutputKey == "" {
		msg := fmt.Sprintf("%s step requires an output key", step.Type)
		switch step.Type {
		case StepTypeLoop:
			msg = "loop step nested in a parallel step requires an output key"
		case StepTypeParallel:
			msg = "parallel step containing a loop requires an output key"
		}
		result.Add(diagnostic.Diagnostic{
			Message:     msg,
			Severity:    diagnostic.SeverityError,
			Category:    diagnostic.CategoryStructural,
			Field:       "output_key",
			Remediation: "add an output_key so later steps can address the result",
		}.WithStep(index, kind))
	}

	// Naming conventions on every name-like field and argument key.
	if step.Name != "" {
		result.Add(stampAll(checkName("name", step.Name), index, kind)...)
	}
	if step.OutputKey != "" && step.OutputKey != PlaceholderOutputKey {
		result.Add(stampAll(checkName("output_key", step.OutputKey), index, kind)...)
		state.keyOwners[step.OutputKey] = append(state.keyOwners[step.OutputKey], keyOwner{index: index, kind: step.Type})
	}
	for _, key := range sortedKeys(step.Inputs) {
		result.Add(stampAll(checkName("inputs", key), index, kind)...)
	}

	if step.Type == StepTypeScript {
		scriptResult := v.scripts.Analyze(script.Record{
			Code:        step.Code,
			OutputKey:   step.OutputKey,
			Description: step.Description,
		})
		result.Merge(scriptResult, index, kind)
	}

	v.validateExpressions(step, index, kind, state)
}

// validateExpressions fans expression-bearing fields out to the expression
// validator when they look like the mapping language.
func (v *Validator) validateExpressions(step *Step, index int, kind string, state *validationState) {
	check := func(field, value string, fieldCtx expression.FieldContext) {
		if value == "" || !expression.LooksLikeExpression(value) {
			return
		}
		res := v.expressions.Validate(value, fieldCtx)
		for _, d := range res.Diagnostics {
			state.result.Add(d.WithStep(index, kind).WithField(field))
		}
	}

	check("condition", step.Condition, expression.ContextCondition)
	check("items", step.Items, expression.ContextIterator)
	check("value", step.Value, expression.ContextArgument)
	check("message", step.Message, expression.ContextArgument)
	for _, branch := range step.Branches {
		check("condition", branch.Condition, expression.ContextCondition)
	}
	for _, key := range sortedKeys(step.Inputs) {
		if s, ok := step.Inputs[key].(string); ok {
			check("inputs."+key, s, expression.ContextArgument)
		}
	}
	for _, key := range sortedKeys(step.Output) {
		check("output."+key, step.Output[key], expression.ContextOutputMapping)
	}
}

// checkName applies the identifier convention to one name-like value.
func checkName(field, name string) []diagnostic.Diagnostic {
	var diags []diagnostic.Diagnostic
	switch {
	case strings.HasPrefix(name, "_"):
		diags = append(diags, diagnostic.Diagnostic{
			Message:     fmt.Sprintf("name %q must not start with an underscore", name),
			Severity:    diagnostic.SeverityError,
			Category:    diagnostic.CategoryNaming,
			Field:       field,
			Remediation: fmt.Sprintf("rename to %q", strings.TrimLeft(name, "_")),
		})
	case reservedNames[name]:
		diags = append(diags, diagnostic.Diagnostic{
			Message:     fmt.Sprintf("name %q is reserved", name),
			Severity:    diagnostic.SeverityError,
			Category:    diagnostic.CategoryNaming,
			Field:       field,
			Remediation: "choose a name that does not collide with a built-in namespace",
		})
	case !namePattern.MatchString(name):
		diags = append(diags, diagnostic.Diagnostic{
			Message:     fmt.Sprintf("name %q must use lowercase letters, digits, and underscores, starting with a letter", name),
			Severity:    diagnostic.SeverityError,
			Category:    diagnostic.CategoryNaming,
			Field:       field,
			Remediation: fmt.Sprintf("rename to %q", suggestName(name)),
		})
	}
	return diags
}

// suggestName lowercases and squashes a name into the allowed alphabet.
func suggestName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '_', r == '-', r == ' ', r == '.':
			b.WriteByte('_')
		}
	}
	return strings.Trim(b.String(), "_")
}

func stampAll(diags []diagnostic.Diagnostic, index int, kind string) []diagnostic.Diagnostic {
	out := make([]diagnostic.Diagnostic, 0, len(diags))
	for _, d := range diags {
		out = append(out, d.WithStep(index, kind))
	}
	return out
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

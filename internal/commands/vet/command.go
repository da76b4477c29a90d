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

// Package vet implements the vet command: validate a single script file or
// a single expression string outside any workflow, for quick iteration.
package vet

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tombee/composer/internal/commands/shared"
	"github.com/tombee/composer/internal/output"
	"github.com/tombee/composer/pkg/diagnostic"
	"github.com/tombee/composer/pkg/errors"
	"github.com/tombee/composer/pkg/expression"
	"github.com/tombee/composer/pkg/script"
)

// NewCommand creates the vet command
func NewCommand() *cobra.Command {
	var (
		scriptPath string
		exprString string
		outputKey  string
		fieldCtx   string
	)

	cmd := &cobra.Command{
		Use:   "vet (--script <file> | --expr <expression>)",
		Short: "Validate a single script or expression",
		Long: `Vet runs the validation passes over one piece of embedded code without
loading a workflow file. Use --script to check a script source file
against the sandbox restrictions and resource ceilings, or --expr to
check one data-mapping expression.

For scripts, --output-key enables the citation-convention checks that
apply when a step publishes under a reserved citation key. For
expressions, --context selects suggestion wording for the field the
expression would live in (condition, argument, output_mapping, or
iterator).`,
		Example: `  # Example 1: Vet a script file
  composer vet --script transform.py

  # Example 2: Vet a script destined for a citation key
  composer vet --script cite.py --output-key result

  # Example 3: Vet an expression
  composer vet --expr '$MAP(data.items, $GET(item, "name"))'

  # Example 4: Vet a condition expression with JSON output
  composer vet --expr 'data.count > 0' --context condition --json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVet(cmd, scriptPath, exprString, outputKey, fieldCtx)
		},
	}

	cmd.Flags().StringVar(&scriptPath, "script", "", "Path to a script source file to validate")
	cmd.Flags().StringVar(&exprString, "expr", "", "Expression string to validate")
	cmd.Flags().StringVar(&outputKey, "output-key", "", "Output key the script would publish under")
	cmd.Flags().StringVar(&fieldCtx, "context", string(expression.ContextArgument), "Field context for expressions: condition, argument, output_mapping, iterator")

	return cmd
}

func runVet(cmd *cobra.Command, scriptPath, exprString, outputKey, fieldCtx string) error {
	if (scriptPath == "") == (exprString == "") {
		return shared.NewInvalidInputError("exactly one of --script or --expr is required", nil)
	}

	if scriptPath != "" {
		return vetScript(cmd, scriptPath, outputKey)
	}
	return vetExpression(cmd, exprString, fieldCtx)
}

func vetScript(cmd *cobra.Command, path, outputKey string) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return shared.NewInvalidInputError("reading script file", err)
	}

	constraints := script.DefaultConstraints()
	if cPath := shared.GetConstraintsPath(); cPath != "" {
		loaded, err := loadConstraints(cPath)
		if err != nil {
			return err
		}
		constraints = loaded
	}

	analyzer := script.NewAnalyzer(constraints)
	result := analyzer.Analyze(script.Record{
		Code:      string(source),
		OutputKey: outputKey,
	})

	if shared.GetJSON() {
		type vetResponse struct {
			output.JSONResponse
			Script string                       `json:"script"`
			Result *diagnostic.ValidationResult `json:"result"`
		}
		if err := output.EmitJSON(vetResponse{
			JSONResponse: output.JSONResponse{Version: "1.0", Command: "vet", Success: result.IsValid()},
			Script:       path,
			Result:       result,
		}); err != nil {
			return err
		}
	} else {
		renderDiagnostics(cmd, result.Diagnostics)
		if usage := result.ResourceUsage; usage != nil {
			cmd.Printf("Size: %d of %d bytes (%.0f%%)\n",
				usage.ScriptBytes, usage.ScriptBytesLimit, usage.ScriptBytesPercent)
		}
		if ra := result.ReturnAnalysis; ra != nil {
			if ra.YieldsValue {
				cmd.Println("Return: script yields a value")
			} else {
				cmd.Printf("Return: script may not yield a value (tail is %s)\n", ra.TailKind)
			}
		}
		if cc := result.CitationCompliance; cc != nil && cc.Applicable {
			cmd.Printf("Citations: %s\n", cc.Status)
		}
		if len(result.PrivateIdentifiers) > 0 {
			cmd.Printf("Private names:")
			for _, p := range result.PrivateIdentifiers {
				cmd.Printf(" %s", p.Name)
			}
			cmd.Println()
		}
	}

	if !result.IsValid() {
		return &shared.ExitError{Code: shared.ExitValidationFailed, Message: ""}
	}
	return nil
}

func vetExpression(cmd *cobra.Command, expr, fieldCtx string) error {
	ctx := expression.FieldContext(fieldCtx)
	switch ctx {
	case expression.ContextCondition, expression.ContextArgument,
		expression.ContextOutputMapping, expression.ContextIterator:
	default:
		return shared.NewInvalidInputError("invalid flag", &errors.ValidationError{
			Field:   "context",
			Message: fmt.Sprintf("unknown field context %q", fieldCtx),
			Hint:    "use one of condition, argument, output_mapping, iterator",
		})
	}

	validator := expression.NewValidator()
	result := validator.Validate(expr, ctx)

	if shared.GetJSON() {
		type vetResponse struct {
			output.JSONResponse
			Expression string             `json:"expression"`
			Result     *expression.Result `json:"result"`
		}
		if err := output.EmitJSON(vetResponse{
			JSONResponse: output.JSONResponse{Version: "1.0", Command: "vet", Success: result.IsValid()},
			Expression:   expr,
			Result:       result,
		}); err != nil {
			return err
		}
	} else {
		renderDiagnostics(cmd, result.Diagnostics)
		if len(result.FunctionCalls) > 0 {
			cmd.Printf("Functions:")
			for _, call := range result.FunctionCalls {
				cmd.Printf(" $%s", call.Name)
			}
			cmd.Println()
		}
		if len(result.DataReferences) > 0 {
			cmd.Printf("References:")
			for _, ref := range result.DataReferences {
				cmd.Printf(" %s", ref)
			}
			cmd.Println()
		}
	}

	if !result.IsValid() {
		return &shared.ExitError{Code: shared.ExitValidationFailed, Message: ""}
	}
	return nil
}

func renderDiagnostics(cmd *cobra.Command, diags []diagnostic.Diagnostic) {
	if len(diags) == 0 {
		cmd.Printf("%s no findings\n", shared.StatusOK.Render("✓"))
		return
	}
	for _, d := range diags {
		prefix := ""
		if d.Line > 0 {
			prefix = fmt.Sprintf("line %d: ", d.Line)
		}
		cmd.Printf("%s %s%s\n",
			shared.SeverityStyle(d.Severity).Render(shared.SeverityMark(d.Severity)),
			prefix, d.Message)
		if d.Remediation != "" {
			cmd.Printf("  %s\n", shared.Muted.Render(d.Remediation))
		}
		if shared.GetVerbose() && d.Rationale != "" {
			cmd.Printf("  %s\n", shared.Muted.Render(d.Rationale))
		}
	}
}

// loadConstraints reads a YAML constraints file over the defaults, so a
// partial override only changes the limits it names.
func loadConstraints(path string) (script.Constraints, error) {
	c := script.DefaultConstraints()
	data, err := os.ReadFile(path)
	if err != nil {
		return c, shared.NewInvalidInputError("loading constraints",
			&errors.ConfigError{Key: "constraints", Reason: "cannot read override file", Cause: err})
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, shared.NewInvalidInputError("loading constraints",
			&errors.ConfigError{Key: "constraints", Reason: "malformed YAML", Cause: err})
	}
	return c, nil
}

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

// Package lint implements the lint command: load one or more workflow files,
// run the full validation pass over each, and report findings.
package lint

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tombee/composer/internal/commands/shared"
	"github.com/tombee/composer/internal/log"
	"github.com/tombee/composer/internal/output"
	"github.com/tombee/composer/pkg/diagnostic"
	pkgerrors "github.com/tombee/composer/pkg/errors"
	"github.com/tombee/composer/pkg/expression"
	"github.com/tombee/composer/pkg/script"
	"github.com/tombee/composer/pkg/workflow"
)

// debounceWindow coalesces bursts of filesystem events in watch mode.
// Editors often write a file several times in quick succession.
const debounceWindow = 250 * time.Millisecond

// NewCommand creates the lint command
func NewCommand() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "lint <workflow>...",
		Short: "Validate workflow files before export",
		Long: `Lint validates workflow YAML files: embedded scripts are checked against
the sandbox restrictions and resource ceilings, data-mapping expressions
are checked for syntax and vocabulary errors, and the workflow as a whole
is checked for structural and naming problems.

Findings come in three severities. Errors block export and set exit
code 1; warnings and suggestions are advisory and never affect the exit
code. Unreadable or unparseable input sets exit code 2.

Arguments may be literal paths or glob patterns (including ** globs).`,
		Example: `  # Example 1: Lint a single workflow
  composer lint workflow.yaml

  # Example 2: Lint every workflow under a directory
  composer lint 'workflows/**/*.yaml'

  # Example 3: Machine-readable output
  composer lint workflow.yaml --json

  # Example 4: Re-lint on every save
  composer lint workflow.yaml --watch

  # Example 5: Lint against relaxed limits
  composer lint workflow.yaml --constraints limits.yaml`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on validation errors
		SilenceErrors: true, // Don't print error message (we handle it ourselves)
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLint(cmd, args, watch)
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Watch the files and re-lint on change")

	return cmd
}

func runLint(cmd *cobra.Command, args []string, watch bool) error {
	paths, err := expandGlobs(args)
	if err != nil {
		return inputError(shared.ErrorCodeInvalidInput, "resolving file patterns", err)
	}
	if len(paths) == 0 {
		return inputError(shared.ErrorCodeFileNotFound, fmt.Sprintf("no files match %s", strings.Join(args, " ")), nil)
	}

	validator, err := buildValidator()
	if err != nil {
		return inputError(shared.ErrorCodeInvalidConfig, "loading constraints", err)
	}

	if watch {
		return watchAndLint(cmd, paths, validator)
	}
	return lintOnce(cmd, paths, validator)
}

// inputError reports a usage problem. Under --json the error is emitted as a
// structured envelope so callers never have to parse stderr.
func inputError(code, msg string, cause error) error {
	if !shared.GetJSON() {
		return shared.NewInvalidInputError(msg, cause)
	}
	full := msg
	if cause != nil {
		full = fmt.Sprintf("%s: %v", msg, cause)
	}
	_ = output.EmitJSONError("lint", []output.JSONError{{Code: code, Message: full}})
	return &shared.ExitError{Code: shared.ExitInvalidInput, Message: ""}
}

// buildValidator constructs the workflow validator, applying a constraints
// override file when the global --constraints flag is set.
func buildValidator() (*workflow.Validator, error) {
	constraints := script.DefaultConstraints()
	if path := shared.GetConstraintsPath(); path != "" {
		loaded, err := loadConstraints(path)
		if err != nil {
			return nil, err
		}
		constraints = loaded
	}
	return workflow.NewValidator(
		script.NewAnalyzer(constraints),
		expression.NewValidator(),
	), nil
}

// loadConstraints reads a YAML constraints file over the defaults, so a
// partial override file only changes the limits it names.
func loadConstraints(path string) (script.Constraints, error) {
	c := script.DefaultConstraints()
	data, err := os.ReadFile(path)
	if err != nil {
		return c, &pkgerrors.ConfigError{Key: "constraints", Reason: "cannot read override file", Cause: err}
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, &pkgerrors.ConfigError{Key: "constraints", Reason: "malformed YAML", Cause: err}
	}
	return c, nil
}

// expandGlobs resolves each argument to concrete file paths. Arguments
// without glob metacharacters pass through unchanged so that a missing
// literal path is reported as unreadable rather than silently skipped.
func expandGlobs(args []string) ([]string, error) {
	var paths []string
	seen := map[string]bool{}
	for _, arg := range args {
		if !strings.ContainsAny(arg, "*?[{") {
			if !seen[arg] {
				seen[arg] = true
				paths = append(paths, arg)
			}
			continue
		}
		matches, err := doublestar.FilepathGlob(arg)
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "bad pattern %q", arg)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				paths = append(paths, m)
			}
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// fileReport is the per-file outcome of one lint pass.
type fileReport struct {
	File        string                  `json:"file"`
	Valid       bool                    `json:"valid"`
	Diagnostics []diagnostic.Diagnostic `json:"diagnostics"`
	ReadError   string                  `json:"read_error,omitempty"`
	ParseError  bool                    `json:"parse_error,omitempty"`
}

// lintOnce lints every path, renders the results, and maps the aggregate
// outcome to an exit code.
func lintOnce(cmd *cobra.Command, paths []string, validator *workflow.Validator) error {
	reports := lintAll(paths, validator)

	if shared.GetJSON() {
		if err := emitReportsJSON(reports); err != nil {
			return err
		}
	} else {
		renderReports(cmd, reports)
	}

	anyUnreadable := false
	anyError := false
	for _, r := range reports {
		if r.ReadError != "" || r.ParseError {
			anyUnreadable = true
		} else if !r.Valid {
			anyError = true
		}
	}
	switch {
	case anyUnreadable:
		return &shared.ExitError{Code: shared.ExitInvalidInput, Message: ""}
	case anyError:
		return &shared.ExitError{Code: shared.ExitValidationFailed, Message: ""}
	}
	return nil
}

func lintAll(paths []string, validator *workflow.Validator) []fileReport {
	reports := make([]fileReport, 0, len(paths))
	for _, path := range paths {
		reports = append(reports, lintFile(path, validator))
	}
	return reports
}

func lintFile(path string, validator *workflow.Validator) fileReport {
	report := fileReport{File: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if pkgerrors.Is(err, fs.ErrNotExist) {
			err = &pkgerrors.NotFoundError{Resource: "workflow file", ID: path}
		}
		report.ReadError = err.Error()
		return report
	}

	wf, err := workflow.Parse(data)
	if err != nil {
		report.ParseError = true
		report.Diagnostics = []diagnostic.Diagnostic{{
			Message:     err.Error(),
			Severity:    diagnostic.SeverityError,
			Category:    diagnostic.CategoryStructural,
			Remediation: "check YAML syntax and indentation",
		}}
		return report
	}

	result := validator.ValidateWorkflow(wf)
	report.Valid = result.IsValid()
	report.Diagnostics = result.Diagnostics
	return report
}

// renderReports prints human-readable findings, one block per file.
func renderReports(cmd *cobra.Command, reports []fileReport) {
	errs, warns, suggs := 0, 0, 0

	for _, r := range reports {
		if r.ReadError != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %s: %s\n", shared.StatusError.Render("✗"), r.File, r.ReadError)
			continue
		}
		if len(r.Diagnostics) == 0 {
			cmd.Printf("%s %s\n", shared.StatusOK.Render("✓"), r.File)
			continue
		}

		cmd.Println(shared.Bold.Render(r.File))
		for _, d := range r.Diagnostics {
			switch d.Severity {
			case diagnostic.SeverityError:
				errs++
			case diagnostic.SeverityWarning:
				warns++
			default:
				suggs++
			}
			cmd.Printf("  %s %s\n",
				shared.SeverityStyle(d.Severity).Render(shared.SeverityMark(d.Severity)),
				formatDiagnostic(d))
			if d.Remediation != "" {
				cmd.Printf("    %s\n", shared.Muted.Render(d.Remediation))
			}
			if shared.GetVerbose() && d.Rationale != "" {
				cmd.Printf("    %s\n", shared.Muted.Render(d.Rationale))
			}
		}
	}

	if errs+warns+suggs > 0 {
		cmd.Printf("\n%d error(s), %d warning(s), %d suggestion(s)\n", errs, warns, suggs)
	}
}

// formatDiagnostic renders one finding's location prefix and message.
func formatDiagnostic(d diagnostic.Diagnostic) string {
	var b strings.Builder
	if d.StepIndex != nil {
		fmt.Fprintf(&b, "step %d", *d.StepIndex)
		if d.StepKind != "" {
			fmt.Fprintf(&b, " (%s)", d.StepKind)
		}
		b.WriteString(": ")
	}
	if d.Line > 0 {
		fmt.Fprintf(&b, "line %d: ", d.Line)
	}
	b.WriteString(d.Message)
	return b.String()
}

// emitReportsJSON writes the machine-readable report envelope to stdout.
func emitReportsJSON(reports []fileReport) error {
	type lintResponse struct {
		output.JSONResponse
		ReportID string             `json:"report_id"`
		Files    []fileReport       `json:"files"`
		Errors   []output.JSONError `json:"errors,omitempty"`
	}

	success := true
	var errs []output.JSONError
	for _, r := range reports {
		switch {
		case r.ReadError != "":
			errs = append(errs, output.JSONError{
				Code:    shared.ErrorCodeFileNotFound,
				Message: r.ReadError,
				File:    r.File,
			})
		case r.ParseError:
			errs = append(errs, output.JSONError{
				Code:    shared.ErrorCodeInvalidYAML,
				Message: r.Diagnostics[0].Message,
				File:    r.File,
			})
		}
		if r.ReadError != "" || !r.Valid {
			success = false
		}
	}

	return output.EmitJSON(lintResponse{
		JSONResponse: output.JSONResponse{
			Version: "1.0",
			Command: "lint",
			Success: success,
		},
		ReportID: uuid.NewString(),
		Files:    reports,
		Errors:   errs,
	})
}

// watchAndLint lints once, then re-lints the changed file on every write
// until interrupted. Watch mode never exits with a validation code; it is
// an editing aid, not a gate.
func watchAndLint(cmd *cobra.Command, paths []string, validator *workflow.Validator) error {
	logger := log.WithComponent(log.New(log.FromEnv()), "lint")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return shared.NewInvalidInputError("starting file watcher", err)
	}
	defer watcher.Close()

	// Watch parent directories; editors that rename-over-save replace the
	// inode, and a watch on the file itself would be lost.
	watched := map[string]bool{}
	dirs := map[string]bool{}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return shared.NewInvalidInputError("resolving path", err)
		}
		watched[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return shared.NewInvalidInputError(fmt.Sprintf("watching %s", dir), err)
		}
	}

	renderReports(cmd, lintAll(paths, validator))
	cmd.Println(shared.StatusInfo.Render("\nWatching for changes... (Ctrl+C to stop)"))

	// Debounce: remember the last dirtied file and re-lint it once the
	// burst settles. Last write wins.
	var timer *time.Timer
	var timerC <-chan time.Time
	pending := ""

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !watched[abs] {
				continue
			}
			pending = abs
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
				timerC = timer.C
			} else {
				timer.Reset(debounceWindow)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			start := time.Now()
			cmd.Println()
			renderReports(cmd, []fileReport{lintFile(pending, validator)})
			log.WithFile(logger, pending).Debug("re-linted after change",
				log.Duration("duration", time.Since(start).Milliseconds()))
			pending = ""

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", log.Error(err))
		}
	}
}

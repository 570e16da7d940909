package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/unnest/internal/compiler"
	"github.com/roach88/unnest/internal/queryir"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid        bool                       `json:"valid"`
	Decorrelated bool                       `json:"decorrelated"`
	Errors       []compiler.ValidationError `json:"errors,omitempty"`
	Violations   []string                   `json:"violations,omitempty"`
}

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	RuleFlags
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <document>",
		Short: "Validate a plan document and the plan it builds",
		Long: `Validate a CUE or YAML plan document.

Reports every document error (unknown nodes, missing fields, undeclared
columns) rather than stopping at the first. A document that passes is
built and the plan is checked against the IR invariants: free and
attribute columns disjoint, join sides disjoint, no stacked selects,
fresh map ids and projections within the input's attributes.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	opts.RuleFlags.register(cmd)

	return cmd
}

func runValidate(opts *ValidateOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	doc, err := loadDocument(path)
	if err != nil {
		return failWith(formatter, err)
	}

	if errs := compiler.Validate(doc); len(errs) > 0 {
		return outputValidationErrors(formatter, errs)
	}
	formatter.VerboseLog("Document %s is well formed", doc.Name)

	built, err := compileDocument(doc, opts.RuleFlags, newLogger(opts.RootOptions, cmd.ErrOrStderr()))
	if err != nil {
		return failWith(formatter, err)
	}

	check := queryir.Validate(built.result.Plan)
	if !check.Valid {
		return outputPlanViolations(formatter, check)
	}

	return outputValidateSuccess(formatter, check)
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, check queryir.ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Decorrelated: check.Decorrelated})
	}

	fmt.Fprintln(formatter.Writer, "✓ Document valid")
	if check.Decorrelated {
		fmt.Fprintln(formatter.Writer, "✓ Plan decorrelated")
	} else {
		fmt.Fprintln(formatter.Writer, "• Plan still holds dependent joins or subqueries")
	}
	return nil
}

// outputValidationErrors outputs multiple document errors.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	if formatter.Format == "json" {
		if err := encodeFailure(formatter, ValidationResult{Errors: errs}, errs[0].Code, errs[0].Message); err != nil {
			return err
		}
		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, err := range errs {
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n", err.Code, err.Field, err.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}

// outputPlanViolations outputs the invariants a built plan breaks.
func outputPlanViolations(formatter *OutputFormatter, check queryir.ValidationResult) error {
	if formatter.Format == "json" {
		result := ValidationResult{Decorrelated: check.Decorrelated, Violations: check.Violations}
		if err := encodeFailure(formatter, result, ErrCodeInvalidPlan, check.Violations[0]); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%s: plan breaks %d invariant(s)", ErrCodeInvalidPlan, len(check.Violations)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Plan invalid")
	fmt.Fprintln(formatter.Writer)
	for _, v := range check.Violations {
		fmt.Fprintf(formatter.Writer, "  %s: %s\n", ErrCodeInvalidPlan, v)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("%s: plan breaks %d invariant(s)", ErrCodeInvalidPlan, len(check.Violations)))
}

// encodeFailure writes an error response that also carries a data payload.
func encodeFailure(formatter *OutputFormatter, data any, code, message string) error {
	response := CLIResponse{
		Status: "error",
		Data:   data,
		Error:  &CLIError{Code: code, Message: message},
	}

	encoder := json.NewEncoder(formatter.Writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

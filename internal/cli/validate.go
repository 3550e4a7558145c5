package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/timeline/internal/compiler"
	"github.com/roach88/timeline/internal/ir"
)

// DocumentReport holds the validation outcome of one document.
type DocumentReport struct {
	Name     string                     `json:"name"`
	Hash     string                     `json:"hash,omitempty"`
	Syncs    int                        `json:"syncs"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Warnings []compiler.CycleWarning    `json:"warnings,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool             `json:"valid"`
	Documents []DocumentReport `json:"documents"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file-or-dir>",
		Short: "Validate scenario documents",
		Long: `Validate scenario documents without running them.

Checks structure (duplicate ids, dangling references, duration order),
starts a scratch copy of each scenario to reject event statuses that
cannot be started, and reports loops in the sync graph as warnings.

Exit codes:
  0 - All documents valid
  1 - One or more validation errors
  2 - Command error (path not found, parse error)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	docs, err := loadDocuments(path)
	if err != nil {
		_ = formatter.Error(loadErrorCode(err), err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load documents", err)
	}
	formatter.VerboseLog("Loaded %d document(s) from %s", len(docs), path)

	result := ValidationResult{Valid: true, Documents: make([]DocumentReport, 0, len(docs))}
	errCount := 0
	for _, doc := range docs {
		report := validateDocument(doc)
		formatter.VerboseLog("Validated %s: %d error(s), %d warning(s)", doc.Name, len(report.Errors), len(report.Warnings))
		if len(report.Errors) > 0 {
			result.Valid = false
			errCount += len(report.Errors)
		}
		result.Documents = append(result.Documents, report)
	}

	if formatter.IsJSON() {
		if result.Valid {
			return formatter.Success(result)
		}
		first := firstValidationError(result)
		if err := formatter.Failure(first.Code, first.Message, result); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", errCount))
	}

	return outputValidateText(formatter, result, errCount)
}

// validateDocument runs validation and cycle analysis on one document.
func validateDocument(doc *ir.Document) DocumentReport {
	report := DocumentReport{
		Name:     doc.Name,
		Syncs:    len(doc.Syncs),
		Errors:   compiler.Validate(doc),
		Warnings: compiler.AnalyzeCycles(doc),
	}
	if len(report.Errors) == 0 {
		if hash, err := ir.DocumentHash(doc); err == nil {
			report.Hash = hash
		}
	}
	return report
}

func firstValidationError(result ValidationResult) compiler.ValidationError {
	for _, d := range result.Documents {
		if len(d.Errors) > 0 {
			return d.Errors[0]
		}
	}
	return compiler.ValidationError{Code: ErrCodeGeneric}
}

func outputValidateText(formatter *OutputFormatter, result ValidationResult, errCount int) error {
	w := formatter.Writer
	for _, d := range result.Documents {
		if len(d.Errors) == 0 {
			fmt.Fprintf(w, "✓ %s\n", d.Name)
		} else {
			fmt.Fprintf(w, "✗ %s\n", d.Name)
			for _, e := range d.Errors {
				fmt.Fprintf(w, "  %s %s: %s\n", e.Code, e.Field, e.Message)
			}
		}
		for _, warn := range d.Warnings {
			fmt.Fprintf(w, "  warning: %s\n", warn.Message)
		}
	}

	if !result.Valid {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "✗ Validation failed with %d error(s)\n", errCount)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", errCount))
	}
	fmt.Fprintln(w, "✓ All documents valid")
	return nil
}

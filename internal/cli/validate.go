package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/tickerguard/internal/app"
	"github.com/roach88/tickerguard/internal/config"
	"github.com/roach88/tickerguard/internal/repo"
)

// ValidationIssue is one problem found by validate.
type ValidationIssue struct {
	Source  string `json:"source"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationIssue `json:"errors,omitempty"`
}

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Snapshots []string
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the config and snapshot files without touching the database",
		Long: `Validate the --config file and any --snapshot files without opening the
database. Every file is checked; all problems are reported together.

A config is valid when it parses with no unknown keys, passes its range
checks and its kite table extension keeps the translation one-to-one.
A snapshot is valid when it parses with no unknown keys and every category
slot is in range.

Exit codes:
  0 - Everything valid
  1 - One or more problems found
  2 - Command error

Example:
  tickerguard validate --config tickerguard.cue --snapshot portfolio.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Snapshots, "snapshot", nil, "snapshot file to validate (repeatable)")

	return cmd
}

func runValidate(opts *ValidateOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	var issues []ValidationIssue

	cfg := config.Default()
	if opts.ConfigPath != "" {
		formatter.VerboseLog("Validating config %s", opts.ConfigPath)
		loaded, err := config.LoadWithDefaults(opts.ConfigPath)
		if err != nil {
			issues = append(issues, ValidationIssue{Source: opts.ConfigPath, Code: ErrCodeInvalid, Message: err.Error()})
		} else {
			cfg = loaded
		}
	}
	if _, err := app.New(app.Options{Config: cfg, Logger: newLogger(opts.RootOptions, cmd.ErrOrStderr())}); err != nil {
		source := opts.ConfigPath
		if source == "" {
			source = "defaults"
		}
		issues = append(issues, ValidationIssue{Source: source, Code: ErrCodeInvalid, Message: err.Error()})
	}

	for _, path := range opts.Snapshots {
		formatter.VerboseLog("Validating snapshot %s", path)
		if err := validateSnapshot(path); err != nil {
			issues = append(issues, ValidationIssue{Source: path, Code: ErrCodeInvalid, Message: err.Error()})
		}
	}

	if len(issues) > 0 {
		return outputValidationErrors(formatter, issues)
	}
	if formatter.IsJSON() {
		return formatter.Success(ValidationResult{Valid: true})
	}
	fmt.Fprintln(formatter.Writer, "✓ All files valid")
	return nil
}

func validateSnapshot(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	snap, err := repo.DecodeSnapshot(data)
	if err != nil {
		return err
	}
	return repo.NewSet().Restore(snap)
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, issues []ValidationIssue) error {
	if formatter.IsJSON() {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: issues},
			Error: &CLIError{
				Code:    issues[0].Code,
				Message: issues[0].Message,
			},
		}
		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(issues)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, issue := range issues {
		fmt.Fprintf(formatter.Writer, "%s\n  %s: %s\n\n", issue.Source, issue.Code, issue.Message)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(issues)))
}

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pqv2x/falconsweep/internal/config"
)

// ValidationResult holds the validate command's JSON payload.
type ValidationResult struct {
	Valid bool   `json:"valid"`
	Path  string `json:"path"`
	Error string `json:"error,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config.json>",
		Short: "Validate a base configuration document",
		Long: `Check a falcon_sim configuration document against the expected schema
without running anything. Structural problems that would abort a sweep
before launch are reported here instead.`,
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
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if _, err := os.Stat(path); err != nil {
		_ = formatter.Error(fmt.Sprintf("configuration not found: %s", path), nil)
		return WrapExitError(ExitCommandError, "configuration not found", err)
	}

	if err := config.Validate(path); err != nil {
		if formatter.Format == "json" {
			_ = formatter.Success(ValidationResult{Valid: false, Path: path, Error: err.Error()})
		} else {
			fmt.Fprintf(formatter.Writer, "✗ %s is not a valid configuration\n", path)
			fmt.Fprintf(formatter.Writer, "  %v\n", err)
		}
		return NewExitError(ExitFailure, "validation failed")
	}

	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Path: path})
	}
	fmt.Fprintf(formatter.Writer, "✓ %s is valid\n", path)
	return nil
}

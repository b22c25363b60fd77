package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pqv2x/falconsweep/internal/metrics"
	"github.com/pqv2x/falconsweep/internal/report"
)

// ReportOptions holds flags for the report command.
type ReportOptions struct {
	*RootOptions

	Metrics        string
	Filters        []string
	GroupKeys      []string
	OutputJSON     string
	OutputMarkdown string
	Quiet          bool
}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize a metrics CSV file",
		Long: `Group the rows of a metrics CSV file by the key=value fields embedded
in their note column and print per-group latency statistics.

Example:
  falconsweep report --metrics falcon_metrics.csv
  falconsweep report --filter scheme=falcon --filter compression=zlib
  falconsweep report --group scheme,fragment --output-json report.json --quiet`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(opts, cmd)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.Metrics, "metrics", "falcon_metrics.csv", "metrics CSV path")
	flags.StringArrayVar(&opts.Filters, "filter", nil, "key=value selector, repeatable")
	flags.StringSliceVar(&opts.GroupKeys, "group", nil, "note keys to group by (default scheme,fragment,compression,loss)")
	flags.StringVar(&opts.OutputJSON, "output-json", "", "write the JSON summary to this file")
	flags.StringVar(&opts.OutputMarkdown, "output-markdown", "", "write a Markdown table to this file")
	flags.BoolVar(&opts.Quiet, "quiet", false, "suppress console output (useful when writing to files)")

	return cmd
}

func runReport(opts *ReportOptions, cmd *cobra.Command) error {
	records, err := metrics.Read(opts.Metrics, "")
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read metrics file", err)
	}
	if len(records) == 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("no metrics found in %s", opts.Metrics))
	}

	groups, err := report.Build(records, opts.Filters, opts.GroupKeys)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid report options", err)
	}
	if len(groups) == 0 {
		return NewExitError(ExitFailure, "no records match the given filters")
	}

	if !opts.Quiet {
		report.WriteTable(cmd.OutOrStdout(), groups)
	}

	if opts.OutputJSON != "" {
		f, err := os.Create(opts.OutputJSON)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to create JSON output file", err)
		}
		writeErr := report.WriteJSON(f, groups)
		if closeErr := f.Close(); writeErr == nil {
			writeErr = closeErr
		}
		if writeErr != nil {
			return WrapExitError(ExitCommandError, "failed to write JSON output", writeErr)
		}
	}

	if opts.OutputMarkdown != "" {
		f, err := os.Create(opts.OutputMarkdown)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to create Markdown output file", err)
		}
		report.WriteMarkdown(f, groups)
		if err := f.Close(); err != nil {
			return WrapExitError(ExitCommandError, "failed to write Markdown output", err)
		}
	}

	return nil
}

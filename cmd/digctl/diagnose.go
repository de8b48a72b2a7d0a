package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/joshuapare/digkit/dig/printer"
	"github.com/joshuapare/digkit/pkg/types"
)

var (
	diagFormat      string
	diagShowSummary bool
)

func init() {
	rootCmd.AddCommand(newDiagnoseCmd())
}

func newDiagnoseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diagnose <image>",
		Short: "Report every diagnostic raised while excavating an image",
		Long: `The diagnose command excavates an image and reports the problems the
examiners recorded: truncated streams, structures that did not fit, bad
checksums and references that lead nowhere. Offsets are relative to the
artifact named in each line.

The command fails when any error or critical issue was found.`,
		Example: `  # One line per issue, ordered by offset
  digctl diagnose disk.img

  # Structured output
  digctl diagnose --format json disk.img

  # Counts only
  digctl diagnose --summary disk.img`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiagnose(cmd.OutOrStdout(), args)
		},
	}
	cmd.Flags().StringVarP(&diagFormat, "format", "f", "compact", "Output format: compact or json")
	cmd.Flags().BoolVarP(&diagShowSummary, "summary", "s", false, "Show only summary counts")
	return cmd
}

func runDiagnose(w io.Writer, args []string) error {
	if diagFormat != "compact" && diagFormat != "json" {
		return fmt.Errorf("unknown format: %s (use: compact, json)", diagFormat)
	}

	x, err := excavate(args[0])
	if err != nil {
		return err
	}
	defer x.Close()

	report := printer.Diagnostics(x.graph)
	var output string
	switch {
	case diagShowSummary:
		output = formatSummaryOnly(report)
	case diagFormat == "json":
		js, err := report.FormatJSON()
		if err != nil {
			return fmt.Errorf("failed to format JSON: %w", err)
		}
		output = js + "\n"
	default:
		output = report.FormatTextCompact()
	}
	if _, err := io.WriteString(w, output); err != nil {
		return err
	}

	if report.HasErrors() {
		return fmt.Errorf("%d critical, %d errors found", report.Summary.Critical, report.Summary.Errors)
	}
	return nil
}

func formatSummaryOnly(report *types.DiagnosticReport) string {
	output := fmt.Sprintf("Critical:  %d\n", report.Summary.Critical)
	output += fmt.Sprintf("Errors:    %d\n", report.Summary.Errors)
	output += fmt.Sprintf("Warnings:  %d\n", report.Summary.Warnings)
	output += fmt.Sprintf("Info:      %d\n", report.Summary.Info)
	return output
}

package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/AndreyAkinshin/docsuite/internal/aggregate"
	"github.com/AndreyAkinshin/docsuite/internal/ctrf"
	docerrors "github.com/AndreyAkinshin/docsuite/internal/errors"
	"github.com/AndreyAkinshin/docsuite/internal/output"
)

func newSummarizeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summarize [report.json|-]",
		Short: "Summarize one CTRF report grouped by page",
		Long: `Summarize parses a CTRF JSON report, as written by one package's test
run, and prints its counts and failures grouped by page. The report is
read from stdin when no file or "-" is given.

The exit status is 1 when any test in the report did not pass.`,
		Example: `  docsuite summarize ctrf/ctrf-report.json
  cat ctrf-report.json | docsuite summarize`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			report, err := ctrf.Parse(data)
			if err != nil {
				return err
			}

			printReportSummary(a.out, report)
			if len(report.Failing()) > 0 {
				return &exitError{code: docerrors.ExitRuntimeError}
			}
			return nil
		},
	}
}

func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, docerrors.IO(err, "read report from stdin")
		}
		return data, nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, docerrors.IO(err, "read report")
	}
	return data, nil
}

// printReportSummary prints the counts of r and its failing pages.
func printReportSummary(w *output.Writer, r *ctrf.Report) {
	s := r.Results.Summary

	w.SummaryHeader("Test Summary")
	w.SummaryPassed("Passed", fmt.Sprintf("%d", s.Passed))
	if s.Failed > 0 {
		w.SummaryFailed("Failed", fmt.Sprintf("%d", s.Failed))
	}
	if s.Skipped > 0 {
		w.SummaryItem("Skipped", fmt.Sprintf("%d", s.Skipped))
	}
	if s.Pending > 0 {
		w.SummaryItem("Pending", fmt.Sprintf("%d", s.Pending))
	}
	w.SummaryItem("Total", fmt.Sprintf("%d", s.Tests))
	w.SummaryItem("Pages", fmt.Sprintf("%d", aggregate.UniqueTestNames(r)))
	w.SummaryItem("Duration", output.FormatDuration(time.Duration(r.Duration())*time.Millisecond))

	pages := aggregate.GroupFailures(r, "", "")
	if len(pages) > 0 {
		w.Println("")
		w.SummaryItem("Failed pages", fmt.Sprintf("%d", len(pages)))
		for _, p := range pages {
			w.SummaryFailed("  "+p.Page, fmt.Sprintf("%d of %d tests: %s", p.Failures, p.Tests, p.Reason))
		}
	}

	total := len(r.Results.Tests)
	if failing := len(r.Failing()); failing == 0 {
		w.FinalSuccess("All %d tests passed.", total)
	} else {
		w.FinalFailure("%d of %d tests did not pass.", failing, total)
	}
}

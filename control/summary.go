package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/sv4u/trackdl/download"
)

// printSummary renders the outcome of a batch as a table followed by the failed queries.
func printSummary(w io.Writer, summary *download.Summary) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Downloaded", "Skipped", "Dry run", "Failed", "Requeued", "Remaining", "Elapsed"})
	table.SetAutoFormatHeaders(false)
	table.SetRowLine(false)
	table.Append([]string{
		strconv.Itoa(summary.Downloaded),
		strconv.Itoa(summary.Skipped),
		strconv.Itoa(summary.DryRun),
		strconv.Itoa(summary.Failed()),
		strconv.Itoa(summary.Requeued),
		strconv.Itoa(len(summary.Remaining)),
		summary.Elapsed.Round(time.Second).String(),
	})
	table.Render()

	if summary.Failed() == 0 {
		color.New(color.FgGreen).Fprintln(w, "All tracks completed.")
		return
	}
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)
	for _, f := range summary.Failures {
		if f.Transient {
			yellow.Fprintf(w, "retry later: %s: %v\n", f.Query, f.Err)
		} else {
			red.Fprintf(w, "failed: %s: %v\n", f.Query, f.Err)
		}
	}
}

// printError reports a run-level error on w.
func printError(w io.Writer, format string, args ...interface{}) {
	color.New(color.FgRed, color.Bold).Fprintf(w, "Error: %s\n", fmt.Sprintf(format, args...))
}

// printWarning reports a non-fatal problem on w.
func printWarning(w io.Writer, format string, args ...interface{}) {
	color.New(color.FgYellow).Fprintf(w, "Warning: %s\n", fmt.Sprintf(format, args...))
}

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"siphon/internal/ingest"
)

func shouldRenderTables(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// renderSummary prints the run outcome: per-plane results when planes were
// driven, then the side-list and ledger counts every mode reports.
func renderSummary(out io.Writer, rc *ingest.RunContext, summary *ingest.Summary, logPath string) {
	if len(summary.Planes) > 0 {
		if shouldRenderTables(out) {
			rows := make([][]string, 0, len(summary.Planes))
			for _, plane := range summary.Planes {
				rows = append(rows, []string{
					plane.Collection, plane.ObservationID, plane.ProductID,
					string(plane.State), plane.Message,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"COLLECTION", "OBSERVATION", "PRODUCT", "STATE", "MESSAGE"}, rows, nil))
		} else {
			for _, plane := range summary.Planes {
				line := fmt.Sprintf("%s/%s/%s: %s",
					plane.Collection, plane.ObservationID, plane.ProductID, plane.State)
				if plane.Message != "" {
					line += " (" + plane.Message + ")"
				}
				fmt.Fprintln(out, line)
			}
		}
		fmt.Fprintf(out, "Planes: %d succeeded, %d failed\n", summary.Succeeded(), summary.Failed())
	}

	fmt.Fprintf(out, "Files: %d confirmed, %d preview candidates\n", len(rc.Stored), len(rc.Previews))
	fmt.Fprintf(out, "Ledger: %d errors, %d warnings\n", summary.Errors, summary.Warnings)
	if logPath != "" {
		fmt.Fprintf(out, "Run log: %s\n", logPath)
	}
}

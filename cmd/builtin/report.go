package builtin

import (
	"context"
	"fmt"
	"io"

	"github.com/mwantia/bids/cmd"
)

type ReportCommand struct {
}

// Name returns the command identifier
func (rc *ReportCommand) Name() string {
	return "report"
}

// Description returns human-readable help text
func (rc *ReportCommand) Description() string {
	return "Prints the warnings collected during the last index build"
}

// Usage returns a usage string for help
func (rc *ReportCommand) Usage() string {
	return "report"
}

// Execute runs the command with parsed arguments
// Returns exit code (0 = success) and error message
func (rc *ReportCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	report := api.Report()
	if report == nil {
		fmt.Fprintln(writer, "no build report available (index restored from cache)")
		return 0, nil
	}

	for _, warning := range report.Warnings {
		fmt.Fprintln(writer, warning.String())
	}

	fmt.Fprintf(writer, "%d files, %d sidecars, %d warnings\n",
		report.FileCount, report.SidecarCount, len(report.Warnings))
	return 0, nil
}

// GetFlags returns the flag set for this command (this is optional)
func (rc *ReportCommand) GetFlags() *cmd.CommandFlagSet {
	return nil
}

package builtin

import (
	"context"
	"fmt"
	"io"

	"github.com/mwantia/bids/cmd"
)

type RebuildCommand struct {
}

// Name returns the command identifier
func (rc *RebuildCommand) Name() string {
	return "rebuild"
}

// Description returns human-readable help text
func (rc *RebuildCommand) Description() string {
	return "Discards the current index and walks the dataset again"
}

// Usage returns a usage string for help
func (rc *RebuildCommand) Usage() string {
	return "rebuild"
}

// Execute runs the command with parsed arguments
// Returns exit code (0 = success) and error message
func (rc *RebuildCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	if err := api.Rebuild(ctx); err != nil {
		return 1, err
	}

	report := api.Report()
	fmt.Fprintf(writer, "indexed %d files (%d sidecars, %d warnings) in %s\n",
		report.FileCount, report.SidecarCount, len(report.Warnings), report.Duration)
	return 0, nil
}

// GetFlags returns the flag set for this command (this is optional)
func (rc *RebuildCommand) GetFlags() *cmd.CommandFlagSet {
	return nil
}

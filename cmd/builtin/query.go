package builtin

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mwantia/bids/cmd"
)

type QueryCommand struct {
}

// Name returns the command identifier
func (qc *QueryCommand) Name() string {
	return "query"
}

// Description returns human-readable help text
func (qc *QueryCommand) Description() string {
	return "Lists indexed files matching entity, suffix and extension filters"
}

// Usage returns a usage string for help
func (qc *QueryCommand) Usage() string {
	return "query [-s suffix] [-e extension] [entity=value ...]"
}

// Execute runs the command with parsed arguments
// Returns exit code (0 = success) and error message
func (qc *QueryCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	filters := make(map[string]string)
	for _, arg := range args.Args {
		key, value, found := strings.Cut(arg, "=")
		if !found || key == "" {
			return 1, fmt.Errorf("bids: expected entity=value, got %q", arg)
		}
		filters[key] = value
	}

	files, err := api.Find(filters, args.String("suffix", ""), args.String("extension", ""))
	if err != nil {
		return 1, err
	}

	for _, file := range files {
		fmt.Fprintln(writer, file.RelPath)
	}

	return 0, nil
}

// GetFlags returns the flag set for this command (this is optional)
func (qc *QueryCommand) GetFlags() *cmd.CommandFlagSet {
	return &cmd.CommandFlagSet{
		Flags: map[string]*cmd.CommandFlag{
			"suffix": {
				Name:        "suffix",
				Short:       "s",
				Type:        "string",
				Description: "Only return files with this suffix",
			},
			"extension": {
				Name:        "extension",
				Short:       "e",
				Type:        "string",
				Description: "Only return files with this extension",
			},
		},
	}
}

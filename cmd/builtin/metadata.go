package builtin

import (
	"context"
	"fmt"
	"io"

	"github.com/goccy/go-json"

	"github.com/mwantia/bids/cmd"
)

type MetadataCommand struct {
}

// Name returns the command identifier
func (mc *MetadataCommand) Name() string {
	return "metadata"
}

// Description returns human-readable help text
func (mc *MetadataCommand) Description() string {
	return "Prints the effective sidecar metadata for a file"
}

// Usage returns a usage string for help
func (mc *MetadataCommand) Usage() string {
	return "metadata [-e] <path>"
}

// Execute runs the command with parsed arguments
// Returns exit code (0 = success) and error message
func (mc *MetadataCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	if len(args.Args) != 1 {
		return 1, fmt.Errorf("bids: expected exactly one path argument")
	}

	metadata, err := api.Metadata(args.Args[0], args.Bool("entities", false))
	if err != nil {
		return 1, err
	}

	encoded, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return 1, err
	}

	fmt.Fprintln(writer, string(encoded))
	return 0, nil
}

// GetFlags returns the flag set for this command (this is optional)
func (mc *MetadataCommand) GetFlags() *cmd.CommandFlagSet {
	return &cmd.CommandFlagSet{
		Flags: map[string]*cmd.CommandFlag{
			"entities": {
				Name:        "entities",
				Short:       "e",
				Type:        "bool",
				Description: "Include filename entities in the output",
			},
		},
	}
}

package builtin

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/mwantia/bids/cmd"
)

type EntitiesCommand struct {
}

// Name returns the command identifier
func (ec *EntitiesCommand) Name() string {
	return "entities"
}

// Description returns human-readable help text
func (ec *EntitiesCommand) Description() string {
	return "Prints every observed entity key with its values"
}

// Usage returns a usage string for help
func (ec *EntitiesCommand) Usage() string {
	return "entities"
}

// Execute runs the command with parsed arguments
// Returns exit code (0 = success) and error message
func (ec *EntitiesCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	idx := api.Index()
	if idx == nil {
		return 1, fmt.Errorf("bids: no index available")
	}

	entities := idx.Entities()
	keys := make([]string, 0, len(entities))
	for key := range entities {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		fmt.Fprintf(writer, "%s: %s\n", key, strings.Join(entities[key], ", "))
	}

	return 0, nil
}

// GetFlags returns the flag set for this command (this is optional)
func (ec *EntitiesCommand) GetFlags() *cmd.CommandFlagSet {
	return nil
}

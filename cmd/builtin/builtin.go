// Package builtin provides the standard layout commands.
package builtin

import (
	"github.com/mwantia/bids/cmd"
)

// Commands returns one instance of every builtin command.
func Commands() []cmd.Command {
	return []cmd.Command{
		&QueryCommand{},
		&EntitiesCommand{},
		&MetadataCommand{},
		&RebuildCommand{},
		&ReportCommand{},
	}
}

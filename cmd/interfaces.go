package cmd

import (
	"context"
	"io"

	"github.com/mwantia/bids/data"
	"github.com/mwantia/bids/index"
)

// API is a simplified view of the layout, stripped down to what
// command operations require.
type API interface {
	// Root returns the absolute dataset root.
	Root() string

	// Index returns the currently published index.
	Index() *index.Index

	// Report returns the build report of the current index.
	Report() *index.Report

	// Rebuild walks the tree again and atomically replaces the
	// published index.
	Rebuild(ctx context.Context) error

	// Find answers a query expressed entirely in strings. The value
	// "*" matches any present value; "" matches records lacking the
	// key entirely.
	Find(filters map[string]string, suffix, extension string) ([]*data.File, error)

	// Metadata resolves the effective sidecar metadata for a file.
	Metadata(path string, includeEntities bool) (data.Dict, error)
}

// Command represents an executable command against a dataset layout.
type Command interface {
	// Name returns the command identifier
	Name() string

	// Description returns human-readable help text
	Description() string

	// Usage returns a usage string for help (e.g. "query --suffix bold [entity=value ...]")
	Usage() string

	// Execute runs the command with parsed arguments
	// The writer parameter is where command output should be written
	// Returns exit code (0 = success) and error message
	Execute(ctx context.Context, api API, args *CommandArgs, writer io.Writer) (int, error)

	// GetFlags returns the flag set for this command (this is optional)
	GetFlags() *CommandFlagSet
}

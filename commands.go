package bids

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/mwantia/bids/cmd"
	"github.com/mwantia/bids/data"
)

// Find answers a query expressed entirely in strings, suited for
// command and shell surfaces. The filter value "*" matches any present
// value; "" matches records lacking the key entirely. Empty suffix and
// extension mean unfiltered.
func (l *Layout) Find(filters map[string]string, suffix, extension string) ([]*data.File, error) {
	q := Query{}

	if len(filters) > 0 {
		q.Filters = make(map[string]any, len(filters))
		for key, value := range filters {
			switch value {
			case "*":
				q.Filters[key] = Any
			case "":
				q.Filters[key] = Absent
			default:
				q.Filters[key] = value
			}
		}
	}

	if suffix != "" {
		q.Suffix = suffix
	}
	if extension != "" {
		q.Extension = extension
	}

	return l.Query(q)
}

// RegisterCommand registers a custom command
func (l *Layout) RegisterCommand(command cmd.Command) error {
	if command == nil {
		return fmt.Errorf("command cannot be nil")
	}

	name := command.Name()
	if name == "" {
		return fmt.Errorf("command name cannot be empty")
	}

	l.cmdMu.Lock()
	defer l.cmdMu.Unlock()

	if _, exists := l.cmds[name]; exists {
		return fmt.Errorf("command already registered: %s", name)
	}

	l.cmds[name] = command
	return nil
}

// UnregisterCommand removes a registered command
func (l *Layout) UnregisterCommand(name string) (bool, error) {
	l.cmdMu.Lock()
	defer l.cmdMu.Unlock()

	if _, exists := l.cmds[name]; !exists {
		return false, fmt.Errorf("command not found: %s", name)
	}

	delete(l.cmds, name)
	return true, nil
}

// Commands returns all registered commands sorted by name.
func (l *Layout) Commands() []cmd.Command {
	l.cmdMu.RLock()
	defer l.cmdMu.RUnlock()

	commands := make([]cmd.Command, 0, len(l.cmds))
	for _, command := range l.cmds {
		commands = append(commands, command)
	}
	sort.Slice(commands, func(i, j int) bool {
		return commands[i].Name() < commands[j].Name()
	})

	return commands
}

// Execute parses and executes a command by name. Command output goes
// to writer; the returned int is an exit code (0 = success).
func (l *Layout) Execute(ctx context.Context, writer io.Writer, args ...string) (int, error) {
	if len(args) == 0 {
		return 1, fmt.Errorf("no command specified")
	}

	l.cmdMu.RLock()
	command, exists := l.cmds[args[0]]
	l.cmdMu.RUnlock()

	if !exists {
		return 1, fmt.Errorf("command not found: %s", args[0])
	}

	parser := cmd.NewParser(command.GetFlags())
	parsed, err := parser.Parse(args[1:])
	if err != nil {
		return 1, fmt.Errorf("parse error: %w", err)
	}

	return command.Execute(ctx, l, parsed, writer)
}

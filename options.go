package bids

import (
	"github.com/mwantia/bids/cache"
	"github.com/mwantia/bids/log"
	"github.com/mwantia/bids/schema"
)

type LayoutOptions struct {
	Schema *schema.Schema
	Store  cache.Store

	LogLevel      log.LogLevel
	LogFile       string
	NoTerminalLog bool

	// ForceRebuild skips the cache lookup on Open and always walks
	// the tree. A fresh snapshot is still saved afterwards.
	ForceRebuild bool
}

type LayoutOption func(*LayoutOptions) error

func newDefaultLayoutOptions() *LayoutOptions {
	return &LayoutOptions{
		Schema:   schema.Default(),
		LogLevel: log.Info,
	}
}

// WithSchema replaces the built-in grammar table.
func WithSchema(s *schema.Schema) LayoutOption {
	return func(opts *LayoutOptions) error {
		opts.Schema = s
		return nil
	}
}

// WithCache attaches a snapshot store consulted on Open and updated
// after every successful build.
func WithCache(store cache.Store) LayoutOption {
	return func(opts *LayoutOptions) error {
		opts.Store = store
		return nil
	}
}

func WithLogLevel(logLevel log.LogLevel) LayoutOption {
	return func(opts *LayoutOptions) error {
		opts.LogLevel = logLevel
		return nil
	}
}

func WithLogFile(logFile string) LayoutOption {
	return func(opts *LayoutOptions) error {
		opts.LogFile = logFile
		return nil
	}
}

func WithoutTerminalLog() LayoutOption {
	return func(opts *LayoutOptions) error {
		opts.NoTerminalLog = true
		return nil
	}
}

func WithForceRebuild() LayoutOption {
	return func(opts *LayoutOptions) error {
		opts.ForceRebuild = true
		return nil
	}
}

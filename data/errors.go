package data

import (
	"errors"
	"sync"
)

// Standard errors that index, cache and remote implementations should use.
var (
	// Path and traversal errors
	ErrInvalidPath  = errors.New("bids: invalid path detected")
	ErrNotExist     = errors.New("bids: file does not exist")
	ErrNotDirectory = errors.New("bids: not a directory")
	ErrPermission   = errors.New("bids: permission denied")

	// Index lifecycle errors
	ErrBuildFailed  = errors.New("bids: index build failed")
	ErrIndexMissing = errors.New("bids: no index has been built")

	// Cache errors
	ErrCacheMiss    = errors.New("bids: cache miss")
	ErrCacheVersion = errors.New("bids: cache format version mismatch")
	ErrCacheClosed  = errors.New("bids: cache store already closed")

	// Query errors
	ErrUnknownEntity = errors.New("bids: unknown entity key")
	ErrInvalidFilter = errors.New("bids: invalid query filter")

	// Remote errors
	ErrRemoteBucket = errors.New("bids: remote bucket unavailable")
)

type Errors struct {
	mu     sync.RWMutex
	errors []error
}

func (e *Errors) Add(err error) {
	if err == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.errors = append(e.errors, err)
}

func (e *Errors) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.errors = make([]error, 0)
}

func (e *Errors) Errors() error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(e.errors) == 0 {
		return nil
	}

	return errors.Join(e.errors...)
}

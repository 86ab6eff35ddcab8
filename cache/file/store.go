// Package file implements the default cache store: one JSON snapshot
// file, conventionally a dotfile beside the dataset root so the build
// walk never indexes it.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mwantia/bids/cache"
	"github.com/mwantia/bids/data"
)

// DefaultName is the snapshot filename used when a store is created
// for a dataset root. The leading dot keeps it out of the index and
// out of the fingerprint.
const DefaultName = ".bids-index.json"

type FileStore struct {
	path string
}

// NewFileStore creates a store writing to an explicit snapshot path.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path: filepath.Clean(path),
	}
}

// ForRoot creates a store at the conventional location inside root.
func ForRoot(root string) *FileStore {
	return NewFileStore(filepath.Join(root, DefaultName))
}

// Returns the identifier name defined for this store
func (*FileStore) Name() string {
	return "file"
}

// Save writes the snapshot to a temporary file and renames it into
// place, so readers never observe a torn snapshot.
func (st *FileStore) Save(ctx context.Context, snap *cache.Snapshot) error {
	raw, err := snap.Encode()
	if err != nil {
		return err
	}

	tmp := st.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return err
	}

	if err := os.Rename(tmp, st.path); err != nil {
		os.Remove(tmp)
		return err
	}

	return nil
}

func (st *FileStore) Load(ctx context.Context, root string) (*cache.Snapshot, error) {
	raw, err := os.ReadFile(st.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: no snapshot at %s", data.ErrCacheMiss, st.path)
		}
		return nil, err
	}

	snap, err := cache.Decode(raw)
	if err != nil {
		return nil, err
	}

	if snap.Root != root {
		return nil, fmt.Errorf("%w: snapshot belongs to %s", data.ErrCacheMiss, snap.Root)
	}

	return snap, nil
}

func (st *FileStore) Close(ctx context.Context) error {
	return nil
}

// Package cache persists and reloads index snapshots so large trees
// are not re-walked on every session. Snapshots carry a format
// version, the grammar version and a filesystem fingerprint; any
// mismatch on load surfaces as data.ErrCacheMiss and the caller falls
// back to a full build.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/mwantia/bids/data"
	"github.com/mwantia/bids/index"
	"github.com/mwantia/bids/schema"
)

// FormatVersion is bumped whenever the snapshot layout changes in a
// way older readers cannot handle.
const FormatVersion = 1

// Store is a single cache location. Implementations exist for a JSON
// file beside the dataset, SQLite, PostgreSQL and Consul KV.
type Store interface {
	// Name returns the identifier name defined for this store.
	Name() string

	// Save persists a snapshot, replacing any previous snapshot for
	// the same dataset root.
	Save(ctx context.Context, snap *Snapshot) error

	// Load returns the stored snapshot for a dataset root, or
	// data.ErrCacheMiss when none exists.
	Load(ctx context.Context, root string) (*Snapshot, error)

	// Close releases the underlying resources.
	Close(ctx context.Context) error
}

// Snapshot is the serialized form of an index.
type Snapshot struct {
	FormatVersion int    `json:"format_version"`
	SchemaVersion string `json:"schema_version"`
	SnapshotID    string `json:"snapshot_id"`

	Root    string    `json:"root"`
	SavedAt time.Time `json:"saved_at"`

	Fingerprint data.Fingerprint    `json:"fingerprint"`
	Files       []*data.File        `json:"files"`
	Sidecars    []*data.SidecarFile `json:"sidecars,omitempty"`
	Description data.Dict           `json:"description,omitempty"`

	// Report preserves the build report, so warnings stay retrievable
	// after a session restored the index from cache.
	Report *index.Report `json:"report,omitempty"`
}

// Take captures the serializable state of an index together with its
// build report.
func Take(idx *index.Index, report *index.Report) *Snapshot {
	return &Snapshot{
		FormatVersion: FormatVersion,
		SchemaVersion: idx.Schema.Version,
		SnapshotID:    idx.ID,

		Root:    idx.Root,
		SavedAt: time.Now(),

		Fingerprint: idx.Fingerprint,
		Files:       idx.Files(),
		Sidecars:    idx.Sidecars(),
		Description: idx.Description(),

		Report: report,
	}
}

// Encode serializes a snapshot for blob-oriented stores.
func (s *Snapshot) Encode() ([]byte, error) {
	return json.Marshal(s)
}

// Decode deserializes a snapshot produced by Encode.
func Decode(raw []byte) (*Snapshot, error) {
	snap := &Snapshot{}
	if err := json.Unmarshal(raw, snap); err != nil {
		return nil, fmt.Errorf("%w: %v", data.ErrCacheMiss, err)
	}

	return snap, nil
}

// Save persists the index and its report into the store.
func Save(ctx context.Context, store Store, idx *index.Index, report *index.Report) error {
	return store.Save(ctx, Take(idx, report))
}

// Load returns a restored index for root if the store holds a fresh,
// compatible snapshot. Staleness is detected by recomputing the cheap
// filesystem fingerprint, never by re-parsing files. Every failure
// mode short of an I/O error is reported as data.ErrCacheMiss.
func Load(ctx context.Context, store Store, root string, s *schema.Schema) (*index.Index, *index.Report, error) {
	snap, err := store.Load(ctx, root)
	if err != nil {
		return nil, nil, err
	}

	if snap.FormatVersion != FormatVersion {
		return nil, nil, fmt.Errorf("%w: %w: snapshot v%d, supported v%d",
			data.ErrCacheMiss, data.ErrCacheVersion, snap.FormatVersion, FormatVersion)
	}
	if snap.SchemaVersion != s.Version {
		return nil, nil, fmt.Errorf("%w: grammar version changed from %s to %s",
			data.ErrCacheMiss, snap.SchemaVersion, s.Version)
	}

	current, err := index.Fingerprint(root)
	if err != nil {
		return nil, nil, err
	}
	if !current.Equal(snap.Fingerprint) {
		return nil, nil, fmt.Errorf("%w: dataset changed on disk", data.ErrCacheMiss)
	}

	idx := index.Restore(snap.SnapshotID, snap.Root, snap.SavedAt, s,
		snap.Fingerprint, snap.Files, snap.Sidecars, snap.Description)
	return idx, snap.Report, nil
}

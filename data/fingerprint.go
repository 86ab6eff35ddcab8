package data

import (
	"time"

	"github.com/google/uuid"
)

// Fingerprint is a cheap summary of on-disk state, used to validate a
// cached index without re-parsing any file. Two trees with the same
// fingerprint are treated as unchanged.
type Fingerprint struct {
	FileCount int64 `json:"file_count"`
	TotalSize int64 `json:"total_size"`
	LatestMod int64 `json:"latest_mod"`
}

// Observe folds a single file's stat data into the fingerprint.
func (f *Fingerprint) Observe(size int64, modTime time.Time) {
	f.FileCount++
	f.TotalSize += size

	if nanos := modTime.UnixNano(); nanos > f.LatestMod {
		f.LatestMod = nanos
	}
}

func (f Fingerprint) Equal(other Fingerprint) bool {
	return f.FileCount == other.FileCount &&
		f.TotalSize == other.TotalSize &&
		f.LatestMod == other.LatestMod
}

// NewID returns a time-ordered unique identifier for builds and
// cache snapshots.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

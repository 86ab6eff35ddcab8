package index

import (
	"time"

	"github.com/mwantia/bids/data"
	"github.com/mwantia/bids/schema"
)

// Restore rebuilds an index value from previously serialized records,
// bypassing the tree walk. The caller (the cache layer) is responsible
// for having validated the fingerprint against the live tree first.
func Restore(id, root string, builtAt time.Time, s *schema.Schema, fp data.Fingerprint,
	files []*data.File, sidecars []*data.SidecarFile, description data.Dict) *Index {

	idx := newIndex(root, s)
	idx.ID = id
	idx.BuiltAt = builtAt
	idx.Fingerprint = fp
	idx.description = description

	for _, file := range files {
		idx.insert(file)
	}

	idx.sidecars = sidecars
	idx.finalize()

	return idx
}

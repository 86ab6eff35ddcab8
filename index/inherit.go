package index

import (
	"github.com/mwantia/bids/data"
)

// EffectiveMetadata resolves the merged sidecar metadata for a record
// under the inheritance rule: every applicable sidecar is merged
// shallow to deep, deeper keys overwriting shallower ones. Sidecars at
// equal depth merge in lexical path order so the result is stable.
//
// The result is memoized per record and shared; callers must treat the
// returned mapping as read-only.
func (idx *Index) EffectiveMetadata(file *data.File) data.Dict {
	if cached, exists := idx.metadata.Load(file.RelPath); exists {
		return cached.(data.Dict)
	}

	merged := data.Dict{}
	for _, sidecar := range idx.sidecars {
		if idx.applies(sidecar, file) {
			merged = merged.Merge(sidecar.Values)
		}
	}

	actual, _ := idx.metadata.LoadOrStore(file.RelPath, merged)
	return actual.(data.Dict)
}

// Metadata resolves effective metadata for the record at a relative
// path. Returns data.ErrNotExist when the path is not indexed.
func (idx *Index) Metadata(relPath string) (data.Dict, error) {
	file, exists := idx.File(relPath)
	if !exists {
		return nil, data.ErrNotExist
	}

	return idx.EffectiveMetadata(file), nil
}

// applies reports whether a sidecar governs a file: the sidecar must
// live in an ancestor directory (or the file's own), its suffix must
// match when it declares one, and its entity constraints must be a
// subset of the file's entities.
func (idx *Index) applies(sidecar *data.SidecarFile, file *data.File) bool {
	record := sidecar.Record
	if record.RelPath == file.RelPath {
		return false
	}

	dir := record.Dir()
	if dir != "" && dir != file.Dir() && !data.IsWithin(dir, file.RelPath) {
		return false
	}

	if record.Suffix != "" && record.Suffix != file.Suffix {
		return false
	}

	for key, want := range record.Entities {
		if key == "datatype" {
			// A sidecar inside a datatype directory constrains only
			// files of that datatype.
			if got, exists := file.Entities[key]; exists && got != want {
				return false
			}
			continue
		}

		got, exists := file.Entities[key]
		if !exists {
			return false
		}

		if entity, known := idx.Schema.Entity(key); known {
			if entity.Canonical(got) != entity.Canonical(want) {
				return false
			}
			continue
		}
		if got != want {
			return false
		}
	}

	return true
}

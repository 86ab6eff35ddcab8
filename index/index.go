// Package index builds and holds the in-memory representation of a
// dataset tree: one record per file, the sidecar set and the derived
// entity-value tables. An Index is immutable once returned by Build
// and safe for concurrent readers without locking.
package index

import (
	"sort"
	"sync"
	"time"

	"github.com/tidwall/btree"

	"github.com/mwantia/bids/data"
	"github.com/mwantia/bids/schema"
)

type Index struct {
	ID      string
	Root    string
	BuiltAt time.Time

	Schema      *schema.Schema
	Fingerprint data.Fingerprint

	// files maps relative path to record. B-tree iteration order is
	// the lexical path order every query result is required to follow.
	files *btree.Map[string, *data.File]

	// sidecars are ordered by directory depth ascending, then lexical
	// path, which is exactly the inheritance merge order.
	sidecars []*data.SidecarFile

	// entities maps entity key to the sorted set of observed values.
	entities map[string][]string

	// description holds dataset_description.json, nil when absent.
	description data.Dict

	// metadata memoizes effective metadata per relative path. The
	// computation is pure, so a duplicated first access is wasted
	// work, never corruption.
	metadata sync.Map
}

func newIndex(root string, s *schema.Schema) *Index {
	return &Index{
		ID:      data.NewID(),
		Root:    root,
		BuiltAt: time.Now(),
		Schema:  s,

		files:    btree.NewMap[string, *data.File](0),
		entities: make(map[string][]string),
	}
}

// Len returns the number of indexed files, sidecars included.
func (idx *Index) Len() int {
	return idx.files.Len()
}

// File returns the record at a relative path.
func (idx *Index) File(relPath string) (*data.File, bool) {
	return idx.files.Get(relPath)
}

// Scan walks all records in lexical path order until fn returns false.
func (idx *Index) Scan(fn func(*data.File) bool) {
	idx.files.Scan(func(_ string, file *data.File) bool {
		return fn(file)
	})
}

// Files returns all records in lexical path order.
func (idx *Index) Files() []*data.File {
	files := make([]*data.File, 0, idx.files.Len())
	idx.Scan(func(file *data.File) bool {
		files = append(files, file)
		return true
	})

	return files
}

// Sidecars returns the sidecar set in inheritance merge order.
func (idx *Index) Sidecars() []*data.SidecarFile {
	return idx.sidecars
}

// Entities returns the observed values per entity key, sorted. The
// tables are computed once during the build; callers must not mutate
// the returned slices.
func (idx *Index) Entities() map[string][]string {
	return idx.entities
}

// Values returns the observed values for one entity key.
func (idx *Index) Values(key string) []string {
	if entity, known := idx.Schema.Entity(key); known {
		return idx.entities[entity.Key]
	}

	return idx.entities[key]
}

// Description returns the decoded dataset description, or nil.
func (idx *Index) Description() data.Dict {
	return idx.description
}

// insert adds a record during construction. Only the builder calls
// this; after Build returns the index is never mutated.
func (idx *Index) insert(file *data.File) {
	idx.files.Set(file.RelPath, file)
}

// finalize derives the entity tables and sidecar ordering in a single
// pass once all records exist.
func (idx *Index) finalize() {
	observed := make(map[string]map[string]bool)
	record := func(key, value string) {
		values, exists := observed[key]
		if !exists {
			values = make(map[string]bool)
			observed[key] = values
		}
		values[value] = true
	}

	idx.Scan(func(file *data.File) bool {
		for key, value := range file.Entities {
			record(key, value)
		}
		for key, value := range file.Unknown {
			record(key, value)
		}
		return true
	})

	for key, values := range observed {
		sorted := make([]string, 0, len(values))
		for value := range values {
			sorted = append(sorted, value)
		}
		sort.Strings(sorted)
		idx.entities[key] = sorted
	}

	sort.Slice(idx.sidecars, func(i, j int) bool {
		a, b := idx.sidecars[i].Record, idx.sidecars[j].Record
		if da, db := a.Depth(), b.Depth(); da != db {
			return da < db
		}
		return a.RelPath < b.RelPath
	})
}

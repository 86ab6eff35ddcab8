// Package schema holds the declarative naming grammar of a dataset
// convention: the ordered entity table, the datatype directory names
// and the filename parser built on top of them.
package schema

import (
	"regexp"
	"sort"
	"strings"
)

// ValueType describes how an entity value is interpreted.
type ValueType int

const (
	// ValueLabel is an alphanumeric label ("rest", "01").
	ValueLabel ValueType = iota
	// ValueIndex is a non-negative integer; comparisons ignore
	// leading zeros ("run-01" equals "run-1").
	ValueIndex
	// ValueList accumulates repeated occurrences of the same key
	// into a comma-joined value instead of rejecting them.
	ValueList
)

// Entity is one row of the grammar table.
type Entity struct {
	// Key is the short form used in filenames ("sub").
	Key string
	// Name is the long form accepted by query surfaces ("subject").
	Name string
	// Pattern validates the raw value. A non-matching value excludes
	// the key from the record; it never aborts parsing.
	Pattern *regexp.Regexp
	// Required marks entities every well-formed data file carries.
	// The parser does not enforce this; the validator collaborator does.
	Required bool
	Type     ValueType
	// Directory marks entities that may also be derived from a
	// "<key>-<value>" directory segment.
	Directory bool
	// Implicit marks entities that never appear as filename tokens
	// and are derived from directory position alone.
	Implicit bool
}

// Schema is an immutable grammar table plus lookup indexes. Declared
// entity order is the canonical filename order; token matching and
// name construction both follow it.
type Schema struct {
	Version   string
	Entities  []Entity
	Datatypes []string

	byKey    map[string]*Entity
	byName   map[string]*Entity
	datatype map[string]bool
}

var (
	labelPattern = regexp.MustCompile(`^[0-9a-zA-Z]+$`)
	indexPattern = regexp.MustCompile(`^[0-9]+$`)
	hemiPattern  = regexp.MustCompile(`^[LR]$`)
	mtPattern    = regexp.MustCompile(`^(on|off)$`)
)

// Default returns the built-in grammar table.
func Default() *Schema {
	return New("1.9.0", []Entity{
		{Key: "sub", Name: "subject", Pattern: labelPattern, Required: true, Directory: true},
		{Key: "ses", Name: "session", Pattern: labelPattern, Directory: true},
		{Key: "task", Name: "task", Pattern: labelPattern},
		{Key: "acq", Name: "acquisition", Pattern: labelPattern},
		{Key: "ce", Name: "ceagent", Pattern: labelPattern},
		{Key: "trc", Name: "tracer", Pattern: labelPattern},
		{Key: "stain", Name: "stain", Pattern: labelPattern},
		{Key: "rec", Name: "reconstruction", Pattern: labelPattern},
		{Key: "dir", Name: "direction", Pattern: labelPattern},
		{Key: "run", Name: "run", Pattern: indexPattern, Type: ValueIndex},
		{Key: "mod", Name: "modality", Pattern: labelPattern},
		{Key: "echo", Name: "echo", Pattern: indexPattern, Type: ValueIndex},
		{Key: "flip", Name: "flip", Pattern: indexPattern, Type: ValueIndex},
		{Key: "inv", Name: "inversion", Pattern: indexPattern, Type: ValueIndex},
		{Key: "mt", Name: "mtransfer", Pattern: mtPattern},
		{Key: "part", Name: "part", Pattern: labelPattern},
		{Key: "proc", Name: "processing", Pattern: labelPattern},
		{Key: "hemi", Name: "hemisphere", Pattern: hemiPattern},
		{Key: "space", Name: "space", Pattern: labelPattern},
		{Key: "split", Name: "split", Pattern: indexPattern, Type: ValueIndex},
		{Key: "recording", Name: "recording", Pattern: labelPattern},
		{Key: "chunk", Name: "chunk", Pattern: indexPattern, Type: ValueIndex},
		{Key: "res", Name: "resolution", Pattern: labelPattern},
		{Key: "den", Name: "density", Pattern: labelPattern},
		{Key: "label", Name: "label", Pattern: labelPattern},
		{Key: "desc", Name: "description", Pattern: labelPattern},
		{Key: "datatype", Name: "datatype", Pattern: labelPattern, Implicit: true},
	}, []string{
		"anat", "beh", "dwi", "eeg", "fmap", "func",
		"ieeg", "meg", "micr", "motion", "nirs", "perf", "pet",
	})
}

// New builds a schema from an explicit entity table, for conventions
// that extend or replace the default grammar.
func New(version string, entities []Entity, datatypes []string) *Schema {
	s := &Schema{
		Version:   version,
		Entities:  entities,
		Datatypes: datatypes,

		byKey:    make(map[string]*Entity, len(entities)),
		byName:   make(map[string]*Entity, len(entities)),
		datatype: make(map[string]bool, len(datatypes)),
	}

	for i := range s.Entities {
		entity := &s.Entities[i]
		s.byKey[entity.Key] = entity
		s.byName[entity.Name] = entity
	}
	for _, dt := range datatypes {
		s.datatype[dt] = true
	}

	return s
}

// Entity resolves a short key or long name to its table row.
func (s *Schema) Entity(key string) (*Entity, bool) {
	if entity, exists := s.byKey[key]; exists {
		return entity, true
	}

	entity, exists := s.byName[key]
	return entity, exists
}

// Keys returns all short entity keys in declared order.
func (s *Schema) Keys() []string {
	keys := make([]string, 0, len(s.Entities))
	for i := range s.Entities {
		keys = append(keys, s.Entities[i].Key)
	}

	return keys
}

// IsDatatype reports whether a directory name denotes a datatype.
func (s *Schema) IsDatatype(name string) bool {
	return s.datatype[name]
}

// Closest returns known entity keys ranked by edit distance to an
// unrecognized key, for "did you mean" query errors. At most three
// suggestions within distance 2 are returned.
func (s *Schema) Closest(key string) []string {
	type candidate struct {
		key  string
		dist int
	}

	var candidates []candidate
	for i := range s.Entities {
		for _, known := range []string{s.Entities[i].Key, s.Entities[i].Name} {
			if dist := editDistance(key, known); dist <= 2 {
				candidates = append(candidates, candidate{known, dist})
			}
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].dist != candidates[j].dist {
			return candidates[i].dist < candidates[j].dist
		}
		return candidates[i].key < candidates[j].key
	})

	suggestions := make([]string, 0, 3)
	for _, c := range candidates {
		if len(suggestions) == 3 {
			break
		}
		suggestions = append(suggestions, c.key)
	}

	return suggestions
}

func editDistance(a, b string) int {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if a == b {
		return 0
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}

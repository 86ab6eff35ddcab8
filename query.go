package bids

import (
	"strconv"

	"github.com/mwantia/bids/data"
	"github.com/mwantia/bids/index"
)

// Wildcard is a special entity filter value.
type Wildcard int

const (
	// Any matches records that carry the entity, whatever its value.
	Any Wildcard = iota
	// Absent matches only records that lack the entity entirely.
	Absent
)

// Scope restricts a query to a region of the dataset.
type Scope int

const (
	ScopeAll Scope = iota
	// ScopeRaw excludes everything below derivatives/.
	ScopeRaw
	// ScopeDerivatives covers only files below derivatives/.
	ScopeDerivatives
)

const derivativesDir = "derivatives"

// Query describes one filtered lookup. All filters apply conjunctively.
// Entity filter values may be a string, an int, a []string (any-of) or
// a Wildcard. A record matches an entity filter only when it carries
// the key with a matching value; a missing key never matches, except
// under Absent.
type Query struct {
	Filters map[string]any

	// Suffix and Extension match exactly; a []string matches any of
	// its elements. Extensions may be given with or without the
	// leading dot.
	Suffix    any
	Extension any

	Scope Scope

	// Metadata, when set, must evaluate true against the record's
	// effective metadata.
	Metadata func(data.Dict) bool
}

// Query answers a filtered lookup against the current index. Results
// come back in lexical relative-path order, so output is reproducible
// across runs on an identical index and positions correspond across
// related queries.
func (l *Layout) Query(q Query) ([]*data.File, error) {
	idx := l.Index()
	if idx == nil {
		return nil, data.ErrIndexMissing
	}

	filters, err := normalizeFilters(idx, q.Filters)
	if err != nil {
		return nil, err
	}

	suffixes, err := stringFilter("suffix", q.Suffix, false)
	if err != nil {
		return nil, err
	}
	extensions, err := stringFilter("extension", q.Extension, true)
	if err != nil {
		return nil, err
	}

	var results []*data.File
	idx.Scan(func(file *data.File) bool {
		if matches(idx, file, filters, suffixes, extensions, q) {
			results = append(results, file)
		}
		return true
	})

	return results, nil
}

type entityFilter struct {
	key      string
	values   []string // canonical; nil when wildcard is set
	wildcard *Wildcard
}

// normalizeFilters resolves long names to short keys, validates keys
// against the grammar and the observed entity set, and canonicalizes
// values so "run-01" matches a filter of 1.
func normalizeFilters(idx *index.Index, raw map[string]any) ([]entityFilter, error) {
	filters := make([]entityFilter, 0, len(raw))
	for key, value := range raw {
		entity, known := idx.Schema.Entity(key)
		short := key
		if known {
			short = entity.Key
		} else if _, observed := idx.Entities()[key]; !observed {
			return nil, &QueryError{
				Key:         key,
				Reason:      reasonUnknownEntity,
				Suggestions: idx.Schema.Closest(key),
			}
		}

		canonical := func(v string) string {
			if known {
				return entity.Canonical(v)
			}
			return v
		}

		filter := entityFilter{key: short}
		switch v := value.(type) {
		case Wildcard:
			filter.wildcard = &v
		case string:
			filter.values = []string{canonical(v)}
		case int:
			filter.values = []string{canonical(strconv.Itoa(v))}
		case []string:
			for _, item := range v {
				filter.values = append(filter.values, canonical(item))
			}
		default:
			return nil, &QueryError{Key: key, Reason: "unsupported filter value type"}
		}

		filters = append(filters, filter)
	}

	return filters, nil
}

func stringFilter(name string, value any, isExtension bool) ([]string, error) {
	normalize := func(v string) string {
		if isExtension && v != "" && v[0] != '.' {
			return "." + v
		}
		return v
	}

	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{normalize(v)}, nil
	case []string:
		values := make([]string, 0, len(v))
		for _, item := range v {
			values = append(values, normalize(item))
		}
		return values, nil
	default:
		return nil, &QueryError{Key: name, Reason: "unsupported filter value type"}
	}
}

func matches(idx *index.Index, file *data.File, filters []entityFilter, suffixes, extensions []string, q Query) bool {
	switch q.Scope {
	case ScopeRaw:
		if data.IsWithin(derivativesDir, file.RelPath) {
			return false
		}
	case ScopeDerivatives:
		if !data.IsWithin(derivativesDir, file.RelPath) {
			return false
		}
	}

	if suffixes != nil && !contains(suffixes, file.Suffix) {
		return false
	}
	if extensions != nil && !contains(extensions, file.Extension) {
		return false
	}

	for _, filter := range filters {
		got, exists := file.Entities[filter.key]
		if !exists {
			got, exists = file.Unknown[filter.key]
		}

		if filter.wildcard != nil {
			if *filter.wildcard == Any && !exists {
				return false
			}
			if *filter.wildcard == Absent && exists {
				return false
			}
			continue
		}

		if !exists {
			return false
		}

		if entity, known := idx.Schema.Entity(filter.key); known {
			got = entity.Canonical(got)
		}
		if !contains(filter.values, got) {
			return false
		}
	}

	if q.Metadata != nil && !q.Metadata(idx.EffectiveMetadata(file)) {
		return false
	}

	return true
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}

	return false
}

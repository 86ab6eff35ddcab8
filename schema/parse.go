package schema

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mwantia/bids/data"
)

// Warning records a filename that did not fully match the grammar.
// Warnings never abort indexing; they are collected into the build
// report for the presentation layer.
type Warning struct {
	RelPath string `json:"rel_path"`
	Token   string `json:"token,omitempty"`
	Reason  string `json:"reason"`
}

func (w Warning) String() string {
	if w.Token == "" {
		return fmt.Sprintf("%s: %s", w.RelPath, w.Reason)
	}
	return fmt.Sprintf("%s: token %q: %s", w.RelPath, w.Token, w.Reason)
}

// Name is the parsed form of a relative path: suffix, extension and
// the merged entity set (directory-derived plus filename tokens).
type Name struct {
	Suffix    string
	Extension string
	Entities  map[string]string
	Unknown   map[string]string
}

// ParseName parses a slash-separated relative path against the grammar.
// Directory-derived entities are applied ancestor-first, then filename
// tokens, so an explicit token overrides its directory counterpart.
func (s *Schema) ParseName(relPath string) (Name, []Warning) {
	name := Name{
		Entities: make(map[string]string),
	}
	var warnings []Warning

	dir, base := "", relPath
	if idx := strings.LastIndexByte(relPath, '/'); idx >= 0 {
		dir, base = relPath[:idx], relPath[idx+1:]
	}

	fromDir := make(map[string]bool)
	if dir != "" {
		for _, segment := range strings.Split(dir, "/") {
			key, value, matched := s.matchDirectory(segment)
			if !matched {
				continue
			}
			name.Entities[key] = value
			fromDir[key] = true
		}
	}

	stem, ext := data.SplitName(base)
	name.Extension = ext

	tokens := strings.Split(stem, "_")
	for i, token := range tokens {
		last := i == len(tokens)-1

		dash := strings.IndexByte(token, '-')
		if dash < 0 {
			if last {
				name.Suffix = token
				continue
			}
			warnings = append(warnings, Warning{
				RelPath: relPath,
				Token:   token,
				Reason:  "bare token before suffix position",
			})
			continue
		}

		key, value := token[:dash], token[dash+1:]
		if key == "" || value == "" {
			warnings = append(warnings, Warning{
				RelPath: relPath,
				Token:   token,
				Reason:  "empty entity key or value",
			})
			continue
		}

		entity, known := s.byKey[key]
		if !known || entity.Implicit {
			// Unknown keys are kept verbatim for forward compatibility
			// with newer conventions; strict rejection is the external
			// validator's job.
			if name.Unknown == nil {
				name.Unknown = make(map[string]string)
			}
			name.Unknown[key] = value
			continue
		}

		if !entity.Pattern.MatchString(value) {
			warnings = append(warnings, Warning{
				RelPath: relPath,
				Token:   token,
				Reason:  fmt.Sprintf("value does not match pattern for entity %q", key),
			})
			continue
		}

		if existing, dup := name.Entities[key]; dup && !fromDir[key] {
			if entity.Type == ValueList {
				name.Entities[key] = existing + "," + value
				continue
			}
			warnings = append(warnings, Warning{
				RelPath: relPath,
				Token:   token,
				Reason:  fmt.Sprintf("duplicate entity %q, keeping first value", key),
			})
			continue
		}

		if existing, derived := name.Entities[key]; derived && fromDir[key] && existing != value {
			warnings = append(warnings, Warning{
				RelPath: relPath,
				Token:   token,
				Reason:  fmt.Sprintf("entity %q disagrees with directory value %q", key, existing),
			})
		}

		name.Entities[key] = value
		delete(fromDir, key)
	}

	return name, warnings
}

// matchDirectory interprets one directory segment as either a
// "<key>-<value>" entity directory or a datatype directory.
func (s *Schema) matchDirectory(segment string) (string, string, bool) {
	if s.IsDatatype(segment) {
		return "datatype", segment, true
	}

	dash := strings.IndexByte(segment, '-')
	if dash <= 0 || dash == len(segment)-1 {
		return "", "", false
	}

	key, value := segment[:dash], segment[dash+1:]
	entity, known := s.byKey[key]
	if !known || !entity.Directory || !entity.Pattern.MatchString(value) {
		return "", "", false
	}

	return key, value, true
}

// Canonical normalizes a raw value for comparison. Index-typed values
// drop leading zeros so "run-01" and "run-1" compare equal.
func (e *Entity) Canonical(value string) string {
	if e.Type != ValueIndex {
		return value
	}

	n, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return value
	}

	return strconv.FormatUint(n, 10)
}

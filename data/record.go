package data

import (
	"strings"
	"time"
)

// File is a single indexed file, identified by its path relative to the
// dataset root. Records are immutable once the index is published.
type File struct {
	Path      string `json:"path"`
	RelPath   string `json:"rel_path"`
	Suffix    string `json:"suffix,omitempty"`
	Extension string `json:"extension,omitempty"`

	// Entities holds the raw string values of all recognized entity keys,
	// both filename tokens and directory-derived ones.
	Entities map[string]string `json:"entities,omitempty"`

	// Unknown holds key-value tokens that matched no entity definition.
	// They are retained for forward compatibility with newer conventions.
	Unknown map[string]string `json:"unknown,omitempty"`

	Sidecar bool `json:"sidecar,omitempty"`

	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// Entity returns the value for a recognized entity key.
func (f *File) Entity(key string) (string, bool) {
	if f.Entities == nil {
		return "", false
	}

	value, exists := f.Entities[key]
	return value, exists
}

// Dir returns the directory portion of the relative path.
// Files directly under the dataset root return "".
func (f *File) Dir() string {
	idx := strings.LastIndexByte(f.RelPath, '/')
	if idx < 0 {
		return ""
	}
	return f.RelPath[:idx]
}

// Basename returns the final path segment.
func (f *File) Basename() string {
	idx := strings.LastIndexByte(f.RelPath, '/')
	return f.RelPath[idx+1:]
}

// Depth returns the number of directories between the dataset root and
// the file. Files directly under the root have depth 0.
func (f *File) Depth() int {
	return Depth(f.RelPath)
}

// SidecarFile pairs a parsed sidecar record with its decoded contents.
type SidecarFile struct {
	Record *File `json:"record"`
	Values Dict  `json:"values"`
}

// Dict is an arbitrary JSON-like mapping, as decoded from a sidecar.
type Dict map[string]any

// Merge deep-merges other into a copy of d and returns the copy.
// Keys from other win on conflict; nested mappings merge recursively.
func (d Dict) Merge(other Dict) Dict {
	merged := make(Dict, len(d)+len(other))
	for key, value := range d {
		merged[key] = value
	}

	for key, value := range other {
		inner, ok := value.(map[string]any)
		if !ok {
			merged[key] = value
			continue
		}

		existing, ok := merged[key].(map[string]any)
		if !ok {
			merged[key] = value
			continue
		}

		merged[key] = map[string]any(Dict(existing).Merge(Dict(inner)))
	}

	return merged
}

package data

import (
	"path/filepath"
	"strings"
)

// ToRelPath converts an OS path below root into the canonical
// slash-separated relative form used as record identity.
func ToRelPath(root, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", ErrInvalidPath
	}

	return filepath.ToSlash(rel), nil
}

// Depth returns the number of directory levels above a relative path.
// "bold.json" is depth 0, "sub-01/func/bold.nii" is depth 2.
func Depth(rel string) int {
	if rel == "" {
		return 0
	}
	return strings.Count(rel, "/")
}

// IsWithin reports whether rel sits at or below the directory dir.
// The empty string denotes the dataset root and contains everything.
func IsWithin(dir, rel string) bool {
	if dir == "" {
		return true
	}

	return strings.HasPrefix(rel, dir+"/")
}

// SplitName splits a basename into its stem and extension. The
// extension starts at the first dot so that multi-segment forms like
// ".nii.gz" stay intact; entity values never contain dots.
func SplitName(base string) (string, string) {
	idx := strings.IndexByte(base, '.')
	if idx < 0 {
		return base, ""
	}

	return base[:idx], base[idx:]
}

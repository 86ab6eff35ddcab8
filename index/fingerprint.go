package index

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/mwantia/bids/data"
)

// Fingerprint summarizes the current on-disk state of a dataset tree
// from directory entries alone, without parsing any file. It must
// apply the same skip rules as the build walk so an unchanged tree
// always reproduces the build-time fingerprint.
func Fingerprint(root string) (data.Fingerprint, error) {
	var fp data.Fingerprint

	root, err := filepath.Abs(root)
	if err != nil {
		return fp, fmt.Errorf("%w: %v", data.ErrInvalidPath, err)
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walk %s: %w", path, err)
		}

		if strings.HasPrefix(d.Name(), ".") && path != root {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}

		fp.Observe(info.Size(), info.ModTime())
		return nil
	})

	return fp, err
}

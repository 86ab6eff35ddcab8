package index

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/mwantia/bids/data"
	"github.com/mwantia/bids/log"
	"github.com/mwantia/bids/schema"
)

const (
	// DescriptionFile is the dataset-level description; it is decoded
	// separately and never participates in inheritance.
	DescriptionFile = "dataset_description.json"

	// MetadataExtension marks sidecar files.
	MetadataExtension = ".json"
)

// Report is the outcome of one build: per-file warnings plus summary
// counters. The core never prints it; presentation layers do.
type Report struct {
	BuildID  string           `json:"build_id"`
	Root     string           `json:"root"`
	Started  time.Time        `json:"started"`
	Duration time.Duration    `json:"duration"`
	Warnings []schema.Warning `json:"warnings,omitempty"`

	FileCount    int  `json:"file_count"`
	SidecarCount int  `json:"sidecar_count"`
	Truncated    bool `json:"truncated,omitempty"`
}

type walkEntry struct {
	path    string
	relPath string
	size    int64
	modTime time.Time
}

// Build walks the tree rooted at root once and returns a fully
// constructed index. Construction is all-or-nothing: an unreadable
// directory fails the whole build and no index is published. Per-file
// anomalies degrade into report warnings instead.
//
// Cancelling ctx stops the traversal early; the records seen so far
// still form a consistent index and the report is marked truncated.
func Build(ctx context.Context, root string, s *schema.Schema, logger *log.Logger) (*Index, *Report, error) {
	started := time.Now()

	root, err := filepath.Abs(root)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", data.ErrInvalidPath, err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, nil, fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("%s: %w", root, data.ErrNotDirectory)
	}

	idx := newIndex(root, s)
	report := &Report{
		BuildID: idx.ID,
		Root:    root,
		Started: started,
	}

	entries, truncated, err := walk(ctx, root, &idx.Fingerprint)
	if err != nil {
		return nil, nil, err
	}
	if truncated {
		report.Truncated = true
		report.Warnings = append(report.Warnings, schema.Warning{
			RelPath: ".",
			Reason:  "traversal cancelled before completion, index covers a partial tree",
		})
	}

	var (
		mu       sync.Mutex
		warnings []schema.Warning
		sidecars []*data.SidecarFile
	)

	var group errgroup.Group
	group.SetLimit(runtime.GOMAXPROCS(0))

	for _, entry := range entries {
		group.Go(func() error {
			file, sidecar, warns := parseEntry(entry, s)

			mu.Lock()
			defer mu.Unlock()

			warnings = append(warnings, warns...)
			idx.insert(file)
			if sidecar != nil {
				if file.Basename() == DescriptionFile {
					// Nested pipeline descriptions are indexed but never
					// join inheritance.
					if file.Depth() == 0 {
						idx.description = sidecar.Values
					}
				} else {
					sidecars = append(sidecars, sidecar)
				}
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", data.ErrBuildFailed, err)
	}

	idx.sidecars = sidecars
	idx.finalize()

	sort.Slice(warnings, func(i, j int) bool {
		if warnings[i].RelPath != warnings[j].RelPath {
			return warnings[i].RelPath < warnings[j].RelPath
		}
		return warnings[i].Reason < warnings[j].Reason
	})

	report.Warnings = append(report.Warnings, warnings...)
	report.Duration = time.Since(started)
	report.FileCount = idx.Len()
	report.SidecarCount = len(idx.sidecars)

	if logger != nil {
		logger.Info("indexed %d files (%d sidecars, %d warnings) in %s",
			report.FileCount, report.SidecarCount, len(report.Warnings), report.Duration)
	}

	return idx, report, nil
}

// walk collects every regular file under root, skipping hidden entries.
// It also folds file stats into the fingerprint so that the build and a
// later cache validation observe the identical file set.
func walk(ctx context.Context, root string, fp *data.Fingerprint) ([]walkEntry, bool, error) {
	var entries []walkEntry
	truncated := false

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrPermission) {
				return fmt.Errorf("walk %s: %w", path, data.ErrPermission)
			}
			return fmt.Errorf("walk %s: %w", path, err)
		}

		if ctx.Err() != nil {
			truncated = true
			return fs.SkipAll
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

		relPath, err := data.ToRelPath(root, path)
		if err != nil {
			return err
		}

		fp.Observe(info.Size(), info.ModTime())
		entries = append(entries, walkEntry{
			path:    path,
			relPath: relPath,
			size:    info.Size(),
			modTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", data.ErrBuildFailed, err)
	}

	return entries, truncated, nil
}

// parseEntry turns one walked file into a record, decoding sidecar
// contents for metadata files. Decode failures are warnings; the
// record itself is always indexed.
func parseEntry(entry walkEntry, s *schema.Schema) (*data.File, *data.SidecarFile, []schema.Warning) {
	// Description files carry no entity grammar; parsing their name
	// would only produce bogus warnings.
	if path.Base(entry.relPath) == DescriptionFile {
		return parseDescription(entry)
	}

	name, warnings := s.ParseName(entry.relPath)

	file := &data.File{
		Path:      entry.path,
		RelPath:   entry.relPath,
		Suffix:    name.Suffix,
		Extension: name.Extension,
		Entities:  name.Entities,
		Unknown:   name.Unknown,
		Sidecar:   name.Extension == MetadataExtension,
		Size:      entry.size,
		ModTime:   entry.modTime,
	}

	if !file.Sidecar {
		return file, nil, warnings
	}

	sidecar := &data.SidecarFile{
		Record: file,
		Values: data.Dict{},
	}

	raw, err := os.ReadFile(entry.path)
	if err != nil {
		warnings = append(warnings, schema.Warning{
			RelPath: entry.relPath,
			Reason:  fmt.Sprintf("sidecar unreadable: %v", err),
		})
		return file, sidecar, warnings
	}

	if err := json.Unmarshal(raw, &sidecar.Values); err != nil {
		warnings = append(warnings, schema.Warning{
			RelPath: entry.relPath,
			Reason:  fmt.Sprintf("sidecar is not valid JSON: %v", err),
		})
		sidecar.Values = data.Dict{}
	}

	return file, sidecar, warnings
}

func parseDescription(entry walkEntry) (*data.File, *data.SidecarFile, []schema.Warning) {
	file := &data.File{
		Path:      entry.path,
		RelPath:   entry.relPath,
		Extension: MetadataExtension,
		Sidecar:   true,
		Size:      entry.size,
		ModTime:   entry.modTime,
	}

	sidecar := &data.SidecarFile{
		Record: file,
		Values: data.Dict{},
	}

	var warnings []schema.Warning
	raw, err := os.ReadFile(entry.path)
	if err != nil {
		warnings = append(warnings, schema.Warning{
			RelPath: entry.relPath,
			Reason:  fmt.Sprintf("description unreadable: %v", err),
		})
		return file, sidecar, warnings
	}

	if err := json.Unmarshal(raw, &sidecar.Values); err != nil {
		warnings = append(warnings, schema.Warning{
			RelPath: entry.relPath,
			Reason:  fmt.Sprintf("description is not valid JSON: %v", err),
		})
		sidecar.Values = data.Dict{}
	}

	return file, sidecar, warnings
}

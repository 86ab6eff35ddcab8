// Package bids provides programmatic access to neuroimaging datasets
// laid out under the BIDS naming convention: an indexer that walks the
// dataset tree once, a query engine over the resulting records and a
// pluggable snapshot cache so large trees are not re-walked every
// session.
package bids

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/mwantia/bids/cache"
	"github.com/mwantia/bids/cmd"
	"github.com/mwantia/bids/cmd/builtin"
	"github.com/mwantia/bids/data"
	"github.com/mwantia/bids/index"
	"github.com/mwantia/bids/log"
	"github.com/mwantia/bids/schema"
)

// Layout is the entry point to one dataset. It owns the current index
// and swaps it atomically on rebuild, so readers never observe a
// partially built index. All query methods are safe for concurrent
// use.
type Layout struct {
	root   string
	schema *schema.Schema
	logger *log.Logger
	store  cache.Store

	idx    atomic.Pointer[index.Index]
	report atomic.Pointer[index.Report]

	// rebuild serializes writers; readers go through idx directly.
	rebuild sync.Mutex

	cmdMu sync.RWMutex
	cmds  map[string]cmd.Command
}

// Open indexes the dataset rooted at root and returns a ready Layout.
// When a cache store is configured the snapshot is tried first; any
// cache miss silently falls back to a full build.
func Open(ctx context.Context, root string, opts ...LayoutOption) (*Layout, error) {
	options := newDefaultLayoutOptions()
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}

	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", data.ErrInvalidPath, err)
	}

	l := &Layout{
		root:   root,
		schema: options.Schema,
		store:  options.Store,
		logger: log.NewLogger("bids", options.LogLevel, options.LogFile, options.NoTerminalLog),
		cmds:   make(map[string]cmd.Command),
	}

	for _, command := range builtin.Commands() {
		if err := l.RegisterCommand(command); err != nil {
			return nil, err
		}
	}

	if l.store != nil && !options.ForceRebuild {
		idx, report, err := cache.Load(ctx, l.store, root, l.schema)
		if err == nil {
			l.logger.Named("cache").Debug("restored snapshot %s for %s", idx.ID, root)
			l.publish(idx, report)
			return l, nil
		}
		if !errors.Is(err, data.ErrCacheMiss) {
			return nil, err
		}
		l.logger.Named("cache").Debug("miss for %s: %v", root, err)
	}

	if err := l.Rebuild(ctx); err != nil {
		return nil, err
	}

	return l, nil
}

// Root returns the absolute dataset root.
func (l *Layout) Root() string {
	return l.root
}

// Index returns the currently published index.
func (l *Layout) Index() *index.Index {
	return l.idx.Load()
}

// Report returns the build report of the current index. Warnings are
// collected here; the core never prints them.
func (l *Layout) Report() *index.Report {
	return l.report.Load()
}

// Rebuild walks the tree again and atomically replaces the published
// index. On failure the previous index stays published untouched.
func (l *Layout) Rebuild(ctx context.Context) error {
	l.rebuild.Lock()
	defer l.rebuild.Unlock()

	idx, report, err := index.Build(ctx, l.root, l.schema, l.logger.Named("index"))
	if err != nil {
		return err
	}

	l.checkConvention(idx, report)
	l.publish(idx, report)

	if l.store != nil {
		if err := cache.Save(ctx, l.store, idx, report); err != nil {
			// A failed snapshot save never fails the build.
			l.logger.Named("cache").Warn("snapshot save failed: %v", err)
		}
	}

	return nil
}

func (l *Layout) publish(idx *index.Index, report *index.Report) {
	l.idx.Store(idx)
	l.report.Store(report)
}

// checkConvention compares the dataset's declared convention version
// against the grammar. A mismatch is a reportable condition, never a
// build failure.
func (l *Layout) checkConvention(idx *index.Index, report *index.Report) {
	description := idx.Description()
	if description == nil || report == nil {
		return
	}

	declared, _ := description["BIDSVersion"].(string)
	if declared == "" {
		return
	}

	if major(declared) != major(l.schema.Version) {
		report.Warnings = append(report.Warnings, schema.Warning{
			RelPath: index.DescriptionFile,
			Reason: fmt.Sprintf("dataset declares convention %s, grammar implements %s",
				declared, l.schema.Version),
		})
		l.logger.Warn("convention version mismatch: dataset %s, grammar %s", declared, l.schema.Version)
	}
}

func major(version string) string {
	if idx := strings.IndexByte(version, '.'); idx >= 0 {
		return version[:idx]
	}
	return version
}

// Files returns every indexed record in lexical path order.
func (l *Layout) Files() ([]*data.File, error) {
	idx := l.Index()
	if idx == nil {
		return nil, data.ErrIndexMissing
	}

	return idx.Files(), nil
}

// File returns the record for a path, relative to the root or
// absolute below it.
func (l *Layout) File(path string) (*data.File, error) {
	idx := l.Index()
	if idx == nil {
		return nil, data.ErrIndexMissing
	}

	rel, err := l.relativize(path)
	if err != nil {
		return nil, err
	}

	file, exists := idx.File(rel)
	if !exists {
		return nil, fmt.Errorf("%s: %w", rel, data.ErrNotExist)
	}

	return file, nil
}

// Entities returns the observed values per entity key.
func (l *Layout) Entities() (map[string][]string, error) {
	idx := l.Index()
	if idx == nil {
		return nil, data.ErrIndexMissing
	}

	return idx.Entities(), nil
}

// Description returns the decoded dataset description, or nil when
// the dataset carries none.
func (l *Layout) Description() (data.Dict, error) {
	idx := l.Index()
	if idx == nil {
		return nil, data.ErrIndexMissing
	}

	return idx.Description(), nil
}

// Metadata resolves the effective sidecar metadata for a file. With
// includeEntities set, the record's entities are folded in under their
// long names, index-typed values as integers.
func (l *Layout) Metadata(path string, includeEntities bool) (data.Dict, error) {
	idx := l.Index()
	if idx == nil {
		return nil, data.ErrIndexMissing
	}

	rel, err := l.relativize(path)
	if err != nil {
		return nil, err
	}

	merged, err := idx.Metadata(rel)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rel, err)
	}

	if !includeEntities {
		return merged, nil
	}

	file, _ := idx.File(rel)
	combined := merged.Merge(nil)
	for key, value := range file.Entities {
		name := key
		var typed any = value
		if entity, known := l.schema.Entity(key); known {
			name = entity.Name
			if entity.Type == schema.ValueIndex {
				if n, err := strconv.Atoi(value); err == nil {
					typed = n
				}
			}
		}
		combined[name] = typed
	}

	return combined, nil
}

// BuildPath constructs the relative path a file with the given
// entities would have, without requiring it to exist.
func (l *Layout) BuildPath(entities map[string]string, suffix, extension string) (string, error) {
	return l.schema.BuildPath(entities, suffix, extension)
}

// Materialize builds the path like BuildPath, creates its parent
// directories under the dataset root and returns the absolute path.
// This is the only operation that writes into the dataset, and only
// when explicitly invoked.
func (l *Layout) Materialize(entities map[string]string, suffix, extension string) (string, error) {
	rel, err := l.schema.BuildPath(entities, suffix, extension)
	if err != nil {
		return "", err
	}

	path := filepath.Join(l.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}

	return path, nil
}

// Shutdown releases the cache store. The layout must not be used
// afterwards.
func (l *Layout) Shutdown(ctx context.Context) error {
	if l.store == nil {
		return nil
	}

	return l.store.Close(ctx)
}

// relativize accepts either a path relative to the root or an
// absolute path below it.
func (l *Layout) relativize(path string) (string, error) {
	if !filepath.IsAbs(path) {
		return filepath.ToSlash(filepath.Clean(path)), nil
	}

	return data.ToRelPath(l.root, path)
}

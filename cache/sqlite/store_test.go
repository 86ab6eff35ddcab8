package sqlite

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mwantia/bids/cache"
	"github.com/mwantia/bids/data"
	"github.com/mwantia/bids/index"
	"github.com/mwantia/bids/schema"
)

func buildTestIndex(t *testing.T) (string, *index.Index, *index.Report) {
	t.Helper()

	root := t.TempDir()
	files := map[string]string{
		"dataset_description.json":                     `{"Name": "Cached", "BIDSVersion": "1.9.0"}`,
		"task-rest_bold.json":                          `{"RepetitionTime": 2.0}`,
		"sub-01/func/sub-01_task-rest_run-01_bold.nii": "volume",
	}
	for relPath, content := range files {
		path := filepath.Join(root, filepath.FromSlash(relPath))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("MkdirAll failed: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
	}

	idx, report, err := index.Build(t.Context(), root, schema.Default(), nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	return root, idx, report
}

// TestSQLiteStore_RoundTrip verifies save and restore through an
// in-memory database.
func TestSQLiteStore_RoundTrip(t *testing.T) {
	ctx := t.Context()
	root, idx, report := buildTestIndex(t)

	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close(ctx)

	if err := cache.Save(ctx, store, idx, report); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	restored, restoredReport, err := cache.Load(ctx, store, root, schema.Default())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if restored.ID != idx.ID {
		t.Errorf("Expected snapshot id %s, got %s", idx.ID, restored.ID)
	}
	if restored.Len() != idx.Len() {
		t.Errorf("Expected %d records, got %d", idx.Len(), restored.Len())
	}
	if restored.Description()["Name"] != "Cached" {
		t.Errorf("Description lost: %v", restored.Description())
	}
	if restoredReport == nil || restoredReport.BuildID != report.BuildID {
		t.Errorf("Report not restored: %+v", restoredReport)
	}

	if len(restored.Sidecars()) != 1 {
		t.Fatalf("Expected 1 sidecar, got %d", len(restored.Sidecars()))
	}
	if restored.Sidecars()[0].Values["RepetitionTime"] != 2.0 {
		t.Errorf("Sidecar values lost: %v", restored.Sidecars()[0].Values)
	}
}

// TestSQLiteStore_Overwrite verifies saving twice for the same root
// replaces the previous snapshot and its record rows.
func TestSQLiteStore_Overwrite(t *testing.T) {
	ctx := t.Context()
	root, idx, report := buildTestIndex(t)

	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close(ctx)

	if err := cache.Save(ctx, store, idx, report); err != nil {
		t.Fatalf("First save failed: %v", err)
	}

	// Rebuild after a tree change and save again.
	extra := filepath.Join(root, "sub-02_T1w.nii")
	if err := os.WriteFile(extra, []byte("new"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	second, secondReport, err := index.Build(ctx, root, schema.Default(), nil)
	if err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}
	if err := cache.Save(ctx, store, second, secondReport); err != nil {
		t.Fatalf("Second save failed: %v", err)
	}

	snap, err := store.Load(ctx, root)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if snap.SnapshotID != second.ID {
		t.Errorf("Expected latest snapshot, got %s", snap.SnapshotID)
	}
	if len(snap.Files) != second.Len() {
		t.Errorf("Expected %d record rows, got %d", second.Len(), len(snap.Files))
	}
}

// TestSQLiteStore_MissForUnknownRoot verifies the canonical miss error.
func TestSQLiteStore_MissForUnknownRoot(t *testing.T) {
	ctx := t.Context()

	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close(ctx)

	_, err = store.Load(ctx, "/nowhere")
	if !errors.Is(err, data.ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss, got %v", err)
	}
}

// TestSQLiteStore_MultipleRoots verifies snapshots for different
// datasets coexist in one database.
func TestSQLiteStore_MultipleRoots(t *testing.T) {
	ctx := t.Context()
	rootA, idxA, reportA := buildTestIndex(t)
	rootB, idxB, reportB := buildTestIndex(t)

	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close(ctx)

	if err := cache.Save(ctx, store, idxA, reportA); err != nil {
		t.Fatalf("Save A failed: %v", err)
	}
	if err := cache.Save(ctx, store, idxB, reportB); err != nil {
		t.Fatalf("Save B failed: %v", err)
	}

	snapA, err := store.Load(ctx, rootA)
	if err != nil {
		t.Fatalf("Load A failed: %v", err)
	}
	snapB, err := store.Load(ctx, rootB)
	if err != nil {
		t.Fatalf("Load B failed: %v", err)
	}

	if snapA.SnapshotID != idxA.ID || snapB.SnapshotID != idxB.ID {
		t.Error("Snapshots crossed between roots")
	}
}

// TestSQLiteStore_Persistence verifies a file-backed database survives
// a close and reopen.
func TestSQLiteStore_Persistence(t *testing.T) {
	ctx := t.Context()
	root, idx, report := buildTestIndex(t)
	dbPath := filepath.Join(t.TempDir(), "snapshots.db")

	first, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	if err := cache.Save(ctx, first, idx, report); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := first.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	second, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer second.Close(ctx)

	snap, err := second.Load(ctx, root)
	if err != nil {
		t.Fatalf("Load after reopen failed: %v", err)
	}
	if snap.SnapshotID != idx.ID {
		t.Errorf("Expected persisted snapshot, got %s", snap.SnapshotID)
	}
}

// TestSQLiteStore_Closed verifies operations on a closed store fail
// with the dedicated sentinel.
func TestSQLiteStore_Closed(t *testing.T) {
	ctx := t.Context()
	_, idx, report := buildTestIndex(t)

	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	if err := store.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if err := cache.Save(ctx, store, idx, report); !errors.Is(err, data.ErrCacheClosed) {
		t.Errorf("Expected ErrCacheClosed on save, got %v", err)
	}
	if _, err := store.Load(ctx, "/any"); !errors.Is(err, data.ErrCacheClosed) {
		t.Errorf("Expected ErrCacheClosed on load, got %v", err)
	}
	if err := store.Close(ctx); err != nil {
		t.Errorf("Double close must be a no-op, got %v", err)
	}
}

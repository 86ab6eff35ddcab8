package index

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mwantia/bids/data"
	"github.com/mwantia/bids/schema"
)

// writeDataset materializes a file map under dir. Keys are
// slash-separated relative paths; values are file contents.
func writeDataset(t *testing.T, dir string, files map[string]string) {
	t.Helper()

	for relPath, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(relPath))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("MkdirAll failed: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
	}
}

func testDataset(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	writeDataset(t, dir, map[string]string{
		"dataset_description.json":                                        `{"Name": "Test", "BIDSVersion": "1.9.0"}`,
		"task-rest_bold.json":                                             `{"RepetitionTime": 2.0}`,
		"sub-01/func/sub-01_task-rest_run-01_bold.nii":                    "volume",
		"sub-01/func/sub-01_task-rest_bold.json":                          `{"RepetitionTime": 1.5, "EchoTime": 0.03}`,
		"sub-02/func/sub-02_task-rest_run-1_bold.nii":                     "volume",
		"sub-02/anat/sub-02_T1w.nii":                                      "volume",
		"derivatives/smooth/sub-01/sub-01_task-rest_desc-smooth_bold.nii": "volume",
	})

	return dir
}

// TestBuild_Records verifies record count, entity extraction and the
// dataset description special case.
func TestBuild_Records(t *testing.T) {
	root := testDataset(t)

	idx, report, err := Build(t.Context(), root, schema.Default(), nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if idx.Len() != 7 {
		t.Errorf("Expected 7 records, got %d", idx.Len())
	}
	if report.FileCount != 7 {
		t.Errorf("Report count mismatch: %d", report.FileCount)
	}

	// The description is decoded, not treated as an inheritable sidecar.
	description := idx.Description()
	if description == nil || description["Name"] != "Test" {
		t.Errorf("Unexpected description: %v", description)
	}
	if report.SidecarCount != 2 {
		t.Errorf("Expected 2 sidecars, got %d", report.SidecarCount)
	}

	file, exists := idx.File("sub-01/func/sub-01_task-rest_run-01_bold.nii")
	if !exists {
		t.Fatal("Expected record for sub-01 bold run")
	}
	if file.Entities["sub"] != "01" || file.Entities["task"] != "rest" || file.Entities["run"] != "01" {
		t.Errorf("Unexpected entities: %v", file.Entities)
	}
	if file.Entities["datatype"] != "func" {
		t.Errorf("Expected datatype from directory, got %v", file.Entities)
	}
	if file.Sidecar {
		t.Error("Imaging file must not be marked sidecar")
	}
}

// TestBuild_EntityTables verifies the derived value tables are sorted
// and complete.
func TestBuild_EntityTables(t *testing.T) {
	root := testDataset(t)

	idx, _, err := Build(t.Context(), root, schema.Default(), nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	subjects := idx.Values("sub")
	if len(subjects) != 2 || subjects[0] != "01" || subjects[1] != "02" {
		t.Errorf("Unexpected subjects: %v", subjects)
	}

	// Long names resolve to the same table.
	if got := idx.Values("subject"); len(got) != 2 {
		t.Errorf("Expected long-name lookup to work, got %v", got)
	}

	if got := idx.Values("desc"); len(got) != 1 || got[0] != "smooth" {
		t.Errorf("Unexpected desc values: %v", got)
	}
}

// TestBuild_Deterministic verifies two builds of the same tree produce
// identical record sets, fingerprints and warning lists.
func TestBuild_Deterministic(t *testing.T) {
	root := testDataset(t)
	s := schema.Default()

	first, firstReport, err := Build(t.Context(), root, s, nil)
	if err != nil {
		t.Fatalf("First build failed: %v", err)
	}
	second, secondReport, err := Build(t.Context(), root, s, nil)
	if err != nil {
		t.Fatalf("Second build failed: %v", err)
	}

	if !first.Fingerprint.Equal(second.Fingerprint) {
		t.Error("Fingerprints must match across builds of an unchanged tree")
	}

	firstFiles, secondFiles := first.Files(), second.Files()
	if len(firstFiles) != len(secondFiles) {
		t.Fatalf("Record counts differ: %d vs %d", len(firstFiles), len(secondFiles))
	}
	for i := range firstFiles {
		if firstFiles[i].RelPath != secondFiles[i].RelPath {
			t.Errorf("Order differs at %d: %q vs %q", i, firstFiles[i].RelPath, secondFiles[i].RelPath)
		}
	}

	if len(firstReport.Warnings) != len(secondReport.Warnings) {
		t.Error("Warning counts must match")
	}
}

// TestBuild_HiddenEntriesSkipped verifies dotfiles and dot-directories
// stay out of the index and the fingerprint.
func TestBuild_HiddenEntriesSkipped(t *testing.T) {
	root := t.TempDir()
	writeDataset(t, root, map[string]string{
		"sub-01/anat/sub-01_T1w.nii": "volume",
		".bids-index.json":           "{}",
		".git/config":                "noise",
	})

	idx, _, err := Build(t.Context(), root, schema.Default(), nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if idx.Len() != 1 {
		t.Errorf("Expected hidden entries skipped, got %d records", idx.Len())
	}

	fp, err := Fingerprint(root)
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	if !fp.Equal(idx.Fingerprint) {
		t.Error("Stat-only fingerprint must match the build fingerprint")
	}
}

// TestBuild_Warnings verifies per-file anomalies degrade into sorted
// report warnings without failing the build.
func TestBuild_Warnings(t *testing.T) {
	root := t.TempDir()
	writeDataset(t, root, map[string]string{
		"sub-01/func/sub-01_rest_bold.nii":    "bare token",
		"sub-01/func/sub-01_run-ab_bold.nii":  "bad pattern",
		"sub-01/func/sub-01_task-x_bold.json": "{not json",
	})

	idx, report, err := Build(t.Context(), root, schema.Default(), nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if idx.Len() != 3 {
		t.Errorf("All files must be indexed despite warnings, got %d", idx.Len())
	}
	if len(report.Warnings) != 3 {
		t.Fatalf("Expected 3 warnings, got %v", report.Warnings)
	}

	for i := 1; i < len(report.Warnings); i++ {
		if report.Warnings[i-1].RelPath > report.Warnings[i].RelPath {
			t.Error("Warnings must be sorted by path")
		}
	}
}

// TestBuild_InvalidRoot verifies the all-or-nothing failure modes.
func TestBuild_InvalidRoot(t *testing.T) {
	_, _, err := Build(t.Context(), filepath.Join(t.TempDir(), "missing"), schema.Default(), nil)
	if err == nil {
		t.Error("Expected error for missing root")
	}

	file := filepath.Join(t.TempDir(), "plain.txt")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	_, _, err = Build(t.Context(), file, schema.Default(), nil)
	if !errors.Is(err, data.ErrNotDirectory) {
		t.Errorf("Expected ErrNotDirectory, got %v", err)
	}
}

// TestBuild_Cancelled verifies cancellation truncates instead of
// failing.
func TestBuild_Cancelled(t *testing.T) {
	root := testDataset(t)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	idx, report, err := Build(ctx, root, schema.Default(), nil)
	if err != nil {
		t.Fatalf("Cancelled build must still succeed, got %v", err)
	}

	if !report.Truncated {
		t.Error("Expected report marked truncated")
	}
	if idx.Len() != 0 {
		t.Errorf("Expected empty index from immediate cancellation, got %d", idx.Len())
	}
}

// TestFingerprint_Changes verifies the fingerprint reacts to tree
// mutations.
func TestFingerprint_Changes(t *testing.T) {
	root := testDataset(t)

	before, err := Fingerprint(root)
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}

	writeDataset(t, root, map[string]string{
		"sub-03/anat/sub-03_T1w.nii": "volume",
	})

	after, err := Fingerprint(root)
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}

	if before.Equal(after) {
		t.Error("Expected fingerprint change after adding a file")
	}
	if after.FileCount != before.FileCount+1 {
		t.Errorf("Expected one more file, got %d vs %d", after.FileCount, before.FileCount)
	}
}

package index

import (
	"errors"
	"testing"

	"github.com/mwantia/bids/data"
	"github.com/mwantia/bids/schema"
)

// TestEffectiveMetadata_DeeperWins verifies the depth-ascending merge:
// a subject-level sidecar overrides the dataset-level one key by key.
func TestEffectiveMetadata_DeeperWins(t *testing.T) {
	root := testDataset(t)

	idx, _, err := Build(t.Context(), root, schema.Default(), nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	metadata, err := idx.Metadata("sub-01/func/sub-01_task-rest_run-01_bold.nii")
	if err != nil {
		t.Fatalf("Metadata failed: %v", err)
	}

	if metadata["RepetitionTime"] != 1.5 {
		t.Errorf("Expected deeper sidecar to win, got %v", metadata["RepetitionTime"])
	}
	if metadata["EchoTime"] != 0.03 {
		t.Errorf("Expected deeper-only key present, got %v", metadata["EchoTime"])
	}

	// sub-02 has no subject-level sidecar; only the dataset-level one
	// applies.
	metadata, err = idx.Metadata("sub-02/func/sub-02_task-rest_run-1_bold.nii")
	if err != nil {
		t.Fatalf("Metadata failed: %v", err)
	}
	if metadata["RepetitionTime"] != 2.0 {
		t.Errorf("Expected dataset-level value, got %v", metadata["RepetitionTime"])
	}
	if _, exists := metadata["EchoTime"]; exists {
		t.Error("Subject-level sidecar must not leak to other subjects")
	}
}

// TestEffectiveMetadata_SuffixAndEntityConstraints verifies sidecars
// only govern files matching their suffix and entity subset.
func TestEffectiveMetadata_SuffixAndEntityConstraints(t *testing.T) {
	root := testDataset(t)

	idx, _, err := Build(t.Context(), root, schema.Default(), nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	// The T1w image carries no task entity and a different suffix, so
	// the task-rest bold sidecar does not apply.
	metadata, err := idx.Metadata("sub-02/anat/sub-02_T1w.nii")
	if err != nil {
		t.Fatalf("Metadata failed: %v", err)
	}
	if len(metadata) != 0 {
		t.Errorf("Expected empty metadata for T1w, got %v", metadata)
	}
}

// TestEffectiveMetadata_CanonicalIndexMatch verifies that run-01 in a
// sidecar name governs a run-1 file and vice versa.
func TestEffectiveMetadata_CanonicalIndexMatch(t *testing.T) {
	root := t.TempDir()
	writeDataset(t, root, map[string]string{
		"sub-01/func/sub-01_task-rest_run-01_bold.json": `{"Marker": "padded"}`,
		"sub-01/func/sub-01_task-rest_run-1_bold.nii":   "volume",
	})

	idx, _, err := Build(t.Context(), root, schema.Default(), nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	metadata, err := idx.Metadata("sub-01/func/sub-01_task-rest_run-1_bold.nii")
	if err != nil {
		t.Fatalf("Metadata failed: %v", err)
	}
	if metadata["Marker"] != "padded" {
		t.Errorf("Expected canonical index match, got %v", metadata)
	}
}

// TestEffectiveMetadata_LexicalTieBreak verifies sidecars at equal
// depth merge in lexical path order.
func TestEffectiveMetadata_LexicalTieBreak(t *testing.T) {
	root := t.TempDir()
	writeDataset(t, root, map[string]string{
		"bold.json":                             `{"Key": "a", "Base": true}`,
		"task-rest_bold.json":                   `{"Key": "b"}`,
		"sub-01/func/sub-01_task-rest_bold.nii": "volume",
	})

	idx, _, err := Build(t.Context(), root, schema.Default(), nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	metadata, err := idx.Metadata("sub-01/func/sub-01_task-rest_bold.nii")
	if err != nil {
		t.Fatalf("Metadata failed: %v", err)
	}

	// "bold.json" sorts before "task-rest_bold.json", so the latter
	// merges second and wins.
	if metadata["Key"] != "b" {
		t.Errorf("Expected lexically later sidecar to win, got %v", metadata["Key"])
	}
	if metadata["Base"] != true {
		t.Error("Non-conflicting keys must survive the merge")
	}
}

// TestEffectiveMetadata_DescriptionExcluded verifies the dataset
// description never participates in inheritance.
func TestEffectiveMetadata_DescriptionExcluded(t *testing.T) {
	root := testDataset(t)

	idx, _, err := Build(t.Context(), root, schema.Default(), nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	metadata, err := idx.Metadata("sub-01/func/sub-01_task-rest_run-01_bold.nii")
	if err != nil {
		t.Fatalf("Metadata failed: %v", err)
	}
	if _, exists := metadata["Name"]; exists {
		t.Error("dataset_description.json must not be inherited")
	}
}

// TestEffectiveMetadata_SidecarDoesNotGovernItself verifies a sidecar
// record resolves metadata without merging its own contents.
func TestEffectiveMetadata_SidecarDoesNotGovernItself(t *testing.T) {
	root := testDataset(t)

	idx, _, err := Build(t.Context(), root, schema.Default(), nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	metadata, err := idx.Metadata("sub-01/func/sub-01_task-rest_bold.json")
	if err != nil {
		t.Fatalf("Metadata failed: %v", err)
	}
	if metadata["RepetitionTime"] != 2.0 {
		t.Errorf("Expected only the ancestor sidecar, got %v", metadata["RepetitionTime"])
	}
}

// TestMetadata_NotIndexed verifies the error for unknown paths.
func TestMetadata_NotIndexed(t *testing.T) {
	root := testDataset(t)

	idx, _, err := Build(t.Context(), root, schema.Default(), nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if _, err := idx.Metadata("nope/missing.nii"); !errors.Is(err, data.ErrNotExist) {
		t.Errorf("Expected ErrNotExist, got %v", err)
	}
}

// TestEffectiveMetadata_Memoized verifies repeated resolution returns
// the shared result.
func TestEffectiveMetadata_Memoized(t *testing.T) {
	root := testDataset(t)

	idx, _, err := Build(t.Context(), root, schema.Default(), nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	file, _ := idx.File("sub-01/func/sub-01_task-rest_run-01_bold.nii")
	first := idx.EffectiveMetadata(file)
	second := idx.EffectiveMetadata(file)

	if len(first) != len(second) {
		t.Fatal("Memoized results must be identical")
	}
	for key := range first {
		if first[key] != second[key] {
			t.Errorf("Key %q differs between calls", key)
		}
	}
}

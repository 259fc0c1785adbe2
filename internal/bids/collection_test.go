package bids_test

import (
	"path/filepath"
	"testing"

	"tidybids/internal/bids"
)

func buildCollection(t *testing.T) *bids.Collection {
	t.Helper()
	collection := bids.NewCollection(t.TempDir())
	paths := []string{
		"sub-01/func/sub-01_task-rest_bold.nii.gz",
		"sub-01/fmap/sub-01_dir-AP_epi.nii.gz",
		"sub-02/func/sub-02_task-rest_bold.nii.gz",
	}
	for _, path := range paths {
		if _, err := collection.Add(&bids.FileRecord{Path: path}); err != nil {
			t.Fatalf("Add(%q): %v", path, err)
		}
	}
	fmap, _ := collection.ByPath("sub-01/fmap/sub-01_dir-AP_epi.nii.gz")
	fmap.IntendedFor = []string{"sub-01/func/sub-01_task-rest_bold.nii.gz"}
	collection.ResolveReferences()
	return collection
}

func TestResolveReferencesBuildsEdges(t *testing.T) {
	collection := buildCollection(t)
	fmap, _ := collection.ByPath("sub-01/fmap/sub-01_dir-AP_epi.nii.gz")
	target, _ := collection.ByPath("sub-01/func/sub-01_task-rest_bold.nii.gz")

	if refs := collection.ReferencesFrom(fmap.ID); len(refs) != 1 || refs[0] != target.ID {
		t.Fatalf("ReferencesFrom = %v", refs)
	}
	if refs := collection.ReferencesTo(target.ID); len(refs) != 1 || refs[0] != fmap.ID {
		t.Fatalf("ReferencesTo = %v", refs)
	}
}

func TestResolveReferencesRecordsUnresolved(t *testing.T) {
	collection := bids.NewCollection(t.TempDir())
	record, err := collection.Add(&bids.FileRecord{
		Path:        "sub-01/fmap/sub-01_dir-AP_epi.nii.gz",
		IntendedFor: []string{"sub-01/func/sub-01_task-missing_bold.nii.gz"},
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	collection.ResolveReferences()
	if len(collection.Unresolved) != 1 {
		t.Fatalf("Unresolved = %v", collection.Unresolved)
	}
	if refs := collection.ReferencesFrom(record.ID); len(refs) != 0 {
		t.Fatalf("expected no resolved edges, got %v", refs)
	}
}

func TestRenameRewritesIncomingReferences(t *testing.T) {
	collection := buildCollection(t)
	target, _ := collection.ByPath("sub-01/func/sub-01_task-rest_bold.nii.gz")

	newPath := filepath.Join("sub-01", "func", "sub-01_task-rest_acq-VARIANT_bold.nii.gz")
	if err := collection.Rename(target.ID, newPath); err != nil {
		t.Fatalf("Rename: %v", err)
	}

	fmap, _ := collection.ByPath("sub-01/fmap/sub-01_dir-AP_epi.nii.gz")
	if len(fmap.IntendedFor) != 1 || fmap.IntendedFor[0] != newPath {
		t.Fatalf("IntendedFor not rewritten: %v", fmap.IntendedFor)
	}
	if refs := collection.ReferencesFrom(fmap.ID); len(refs) != 1 || refs[0] != target.ID {
		t.Fatalf("edges should survive rename: %v", refs)
	}
	if _, ok := collection.ByPath("sub-01/func/sub-01_task-rest_bold.nii.gz"); ok {
		t.Fatal("old path still indexed")
	}
}

func TestRemoveStripsReferencesAndReportsOrphanedSources(t *testing.T) {
	collection := buildCollection(t)
	fmap, _ := collection.ByPath("sub-01/fmap/sub-01_dir-AP_epi.nii.gz")
	target, _ := collection.ByPath("sub-01/func/sub-01_task-rest_bold.nii.gz")

	orphaned := collection.Remove(target.ID)
	if len(orphaned) != 1 || orphaned[0] != fmap.ID {
		t.Fatalf("orphaned = %v, want [%d]", orphaned, fmap.ID)
	}
	if len(fmap.IntendedFor) != 0 {
		t.Fatalf("IntendedFor should be emptied: %v", fmap.IntendedFor)
	}
	if collection.Get(target.ID) != nil {
		t.Fatal("record should be gone")
	}
	// The fieldmap itself is retained; deletion never cascades.
	if got := collection.Get(fmap.ID); got == nil {
		t.Fatal("reference source must survive")
	}
}

func TestCloneIsDeep(t *testing.T) {
	collection := buildCollection(t)
	clone := collection.Clone()

	original, _ := collection.ByPath("sub-01/func/sub-01_task-rest_bold.nii.gz")
	original.Metadata["RepetitionTime"] = bids.NumberValue(9.9)

	copied, _ := clone.ByPath("sub-01/func/sub-01_task-rest_bold.nii.gz")
	if _, ok := copied.Metadata["RepetitionTime"]; ok {
		t.Fatal("clone shares metadata map with original")
	}
	if copied.ID != original.ID {
		t.Fatalf("clone must preserve arena ids: %d vs %d", copied.ID, original.ID)
	}
}

func TestManifestRoundTrip(t *testing.T) {
	collection := buildCollection(t)
	record, _ := collection.ByPath("sub-01/func/sub-01_task-rest_bold.nii.gz")
	record.Metadata["RepetitionTime"] = bids.NumberValue(2.0)
	record.Metadata["SliceTiming"] = bids.SequenceValue(0, 0.5, 1.0)
	record.Metadata["PhaseEncodingDirection"] = bids.StringValue("j-")

	path := filepath.Join(t.TempDir(), "manifest.json")
	if err := collection.SaveManifest(path); err != nil {
		t.Fatalf("SaveManifest: %v", err)
	}
	loaded, err := bids.LoadManifest(path, "")
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if loaded.Len() != collection.Len() {
		t.Fatalf("Len = %d, want %d", loaded.Len(), collection.Len())
	}
	got, ok := loaded.ByPath("sub-01/func/sub-01_task-rest_bold.nii.gz")
	if !ok {
		t.Fatal("record missing after round trip")
	}
	if tr := got.Metadata["RepetitionTime"]; tr.Kind != bids.KindNumber || tr.Num != 2.0 {
		t.Fatalf("RepetitionTime = %+v", tr)
	}
	if st := got.Metadata["SliceTiming"]; st.Kind != bids.KindSequence || len(st.Seq) != 3 {
		t.Fatalf("SliceTiming = %+v", st)
	}
	if pe := got.Metadata["PhaseEncodingDirection"]; pe.Kind != bids.KindString || pe.Str != "j-" {
		t.Fatalf("PhaseEncodingDirection = %+v", pe)
	}
}

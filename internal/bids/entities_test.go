package bids_test

import (
	"testing"

	"tidybids/internal/bids"
)

func TestParseNameSplitsEntitiesAndSuffix(t *testing.T) {
	entities, suffix, ext, err := bids.ParseName("sub-01_ses-1_task-rest_run-01_bold.nii.gz")
	if err != nil {
		t.Fatalf("ParseName: %v", err)
	}
	if suffix != "bold" {
		t.Fatalf("suffix = %q", suffix)
	}
	if ext != ".nii.gz" {
		t.Fatalf("ext = %q", ext)
	}
	want := []bids.Entity{{"sub", "01"}, {"ses", "1"}, {"task", "rest"}, {"run", "01"}}
	if len(entities) != len(want) {
		t.Fatalf("entities = %v", entities)
	}
	for i, entity := range want {
		if entities[i] != entity {
			t.Fatalf("entity %d = %v, want %v", i, entities[i], entity)
		}
	}
}

func TestParseNameRejectsMalformed(t *testing.T) {
	for _, name := range []string{
		"bold.nii.gz",
		"sub-01_task-rest_acq-.nii.gz",
		"sub-01_task_bold.nii.gz",
	} {
		if _, _, _, err := bids.ParseName(name); err == nil {
			t.Fatalf("expected error for %q", name)
		}
	}
}

func TestEntityKeyExcludesSubjectAndSession(t *testing.T) {
	record := mustRecord(t, "sub-01/ses-1/func/sub-01_ses-1_task-rest_run-01_bold.nii.gz")
	key := bids.EntityKey(record)
	want := "datatype-func_run-01_suffix-bold_task-rest"
	if key != want {
		t.Fatalf("EntityKey = %q, want %q", key, want)
	}
}

func TestEntityKeyIsStableAcrossSubjects(t *testing.T) {
	a := mustRecord(t, "sub-01/func/sub-01_task-rest_bold.nii.gz")
	b := mustRecord(t, "sub-02/func/sub-02_task-rest_bold.nii.gz")
	if bids.EntityKey(a) != bids.EntityKey(b) {
		t.Fatalf("keys differ: %q vs %q", bids.EntityKey(a), bids.EntityKey(b))
	}
}

func TestRenameTargetKeepsSubjectSessionRun(t *testing.T) {
	record := mustRecord(t, "sub-01/ses-1/func/sub-01_ses-1_task-rest_run-02_bold.nii.gz")
	key, err := bids.SetAcquisition(bids.EntityKey(record), "VARIANTRepetitionTime")
	if err != nil {
		t.Fatalf("SetAcquisition: %v", err)
	}
	target, err := bids.RenameTarget(record, key)
	if err != nil {
		t.Fatalf("RenameTarget: %v", err)
	}
	want := "sub-01/ses-1/func/sub-01_ses-1_task-rest_acq-VARIANTRepetitionTime_run-02_bold.nii.gz"
	if target != want {
		t.Fatalf("target = %q, want %q", target, want)
	}
}

func TestSetAcquisitionReplacesExistingValue(t *testing.T) {
	key := "acq-highres_datatype-anat_suffix-T1w"
	updated, err := bids.SetAcquisition(key, "highresVARIANTEchoTime")
	if err != nil {
		t.Fatalf("SetAcquisition: %v", err)
	}
	want := "acq-highresVARIANTEchoTime_datatype-anat_suffix-T1w"
	if updated != want {
		t.Fatalf("updated = %q, want %q", updated, want)
	}
}

func mustRecord(t *testing.T, path string) *bids.FileRecord {
	t.Helper()
	collection := bids.NewCollection(t.TempDir())
	record, err := collection.Add(&bids.FileRecord{Path: path})
	if err != nil {
		t.Fatalf("Add(%q): %v", path, err)
	}
	return record
}

package runstore_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"tidybids/internal/acquisition"
	"tidybids/internal/runstore"
)

func openStore(t *testing.T, path string) *runstore.Store {
	t.Helper()
	store, err := runstore.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndListRuns(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "history.db"))
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-a", "run-b", "run-c"} {
		err := store.RecordRun(ctx, runstore.Run{
			ID:          id,
			Kind:        runstore.KindClassify,
			StartedAt:   base.Add(time.Duration(i) * time.Minute),
			FinishedAt:  base.Add(time.Duration(i)*time.Minute + 5*time.Second),
			EntitySets:  3,
			ParamGroups: 5,
			Files:       42,
		})
		if err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	runs, err := store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(runs))
	}
	if runs[0].ID != "run-c" || runs[1].ID != "run-b" {
		t.Fatalf("order = %s, %s; want newest first", runs[0].ID, runs[1].ID)
	}
	if runs[0].Files != 42 || !runs[0].StartedAt.Equal(base.Add(2*time.Minute)) {
		t.Fatalf("fields not round-tripped: %+v", runs[0])
	}
}

func TestAcquisitionNumbersSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	store := openStore(t, path)
	err := store.SaveAcquisitionNumbers(ctx, []acquisition.Group{
		{ID: 1, Signature: []string{"datatype-func_suffix-bold_task-rest|1"}},
		{ID: 2, Signature: []string{"datatype-func_suffix-bold_task-rest|2"}},
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened := openStore(t, path)
	numbers, err := reopened.AcquisitionNumbers(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(numbers) != 2 || numbers["datatype-func_suffix-bold_task-rest|2"] != 2 {
		t.Fatalf("numbers = %v", numbers)
	}

	// Remap against the persisted numbering keeps established ids and hands
	// out fresh ones above the prior maximum.
	groups := acquisition.Remap([]acquisition.Group{
		{ID: 1, Signature: []string{"datatype-func_suffix-bold_task-rest|2"}},
		{ID: 2, Signature: []string{"datatype-anat_suffix-T1w|1"}},
	}, numbers)
	if groups[0].ID != 2 || groups[1].ID != 3 {
		t.Fatalf("remapped ids = %d, %d; want 2, 3", groups[0].ID, groups[1].ID)
	}
}

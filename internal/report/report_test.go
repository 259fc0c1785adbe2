package report_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"tidybids/internal/acquisition"
	"tidybids/internal/bids"
	"tidybids/internal/catalog"
	"tidybids/internal/classify"
	"tidybids/internal/errkind"
	"tidybids/internal/logging"
	"tidybids/internal/report"
)

func boldCollection(t *testing.T, trBySubject map[string]float64) *bids.Collection {
	t.Helper()
	collection := bids.NewCollection(t.TempDir())
	for subject, tr := range trBySubject {
		_, err := collection.Add(&bids.FileRecord{
			Path:     "sub-" + subject + "/func/sub-" + subject + "_task-rest_bold.nii.gz",
			Metadata: map[string]bids.Value{"RepetitionTime": bids.NumberValue(tr)},
		})
		if err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	return collection
}

func classifyBold(t *testing.T, collection *bids.Collection) *classify.Summary {
	t.Helper()
	cat, err := catalog.New(map[bids.Modality][]catalog.FieldSpec{
		bids.ModalityFunc: {
			{Name: "RepetitionTime", Tolerance: 0.000001, Precision: 6, SuggestVariantRename: true},
		},
	})
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	summary, err := classify.Run(context.Background(), collection, cat, logging.NewNop(), classify.Options{Workers: 1})
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	return summary
}

func TestSummaryCSVRoundTrip(t *testing.T) {
	collection := boldCollection(t, map[string]float64{"01": 2.0, "02": 2.0, "03": 2.5})
	summary := classifyBold(t, collection)
	table := report.Summary(summary)
	if len(table.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(table.Rows))
	}

	// Untouched summary parses to an empty batch.
	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, table); err != nil {
		t.Fatalf("write: %v", err)
	}
	batch, err := report.ParseEditedSummary(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(batch) != 0 {
		t.Fatalf("unedited summary yielded %d instructions", len(batch))
	}

	// Fill in the editable cells: accept the variant rename, delete nothing.
	key := summary.EntitySets[0].EntityKey
	suggested := summary.EntitySets[0].Group(2).SuggestedRename
	for _, row := range table.Rows {
		if row[1] == "2" {
			row[8] = suggested // rename_to
		}
	}
	buf.Reset()
	if err := report.WriteCSV(&buf, table); err != nil {
		t.Fatalf("write: %v", err)
	}
	batch, err = report.ParseEditedSummary(&buf)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(batch) != 1 {
		t.Fatalf("instructions = %d, want 1", len(batch))
	}
	got := batch[0]
	if got.EntityKey != key || got.Rank != 2 || got.RenameTo != suggested || got.MergeInto != nil {
		t.Fatalf("unexpected instruction: %+v", got)
	}
}

func TestParseEditedSummaryMergeAndDelete(t *testing.T) {
	input := strings.Join([]string{
		"entity_set,param_group,rename_to,merge_into",
		"datatype-func_suffix-bold_task-rest,2,,1",
		"datatype-func_suffix-bold_task-rest,3,,0",
	}, "\n")
	batch, err := report.ParseEditedSummary(strings.NewReader(input))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(batch) != 2 {
		t.Fatalf("instructions = %d, want 2", len(batch))
	}
	if batch[0].MergeRank() != 1 {
		t.Fatalf("merge rank = %d, want 1", batch[0].MergeRank())
	}
	if batch[1].MergeRank() != 0 {
		t.Fatalf("delete rank marker = %d, want 0", batch[1].MergeRank())
	}
}

func TestParseEditedSummaryRejectsMalformedInput(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"missing columns", "entity_set,param_group\nx,1"},
		{"bad rank", "entity_set,param_group,rename_to,merge_into\nx,one,acq-X,"},
		{"bad merge target", "entity_set,param_group,rename_to,merge_into\nx,1,,minus"},
		{"negative merge target", "entity_set,param_group,rename_to,merge_into\nx,1,,-2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := report.ParseEditedSummary(strings.NewReader(tc.input))
			if !errors.Is(err, errkind.ErrValidation) {
				t.Fatalf("err = %v, want validation", err)
			}
		})
	}
}

func TestFilesNaturalPathOrder(t *testing.T) {
	collection := boldCollection(t, map[string]float64{"2": 2.0, "10": 2.0})
	summary := classifyBold(t, collection)
	table := report.Files(collection, summary)
	if len(table.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(table.Rows))
	}
	if !strings.Contains(table.Rows[0][0], "sub-2/") || !strings.Contains(table.Rows[1][0], "sub-10/") {
		t.Fatalf("rows out of natural order: %q, %q", table.Rows[0][0], table.Rows[1][0])
	}
}

func TestAcqGroupsOneRowPerSession(t *testing.T) {
	collection := boldCollection(t, map[string]float64{"01": 2.0, "02": 2.0, "03": 2.5})
	summary := classifyBold(t, collection)
	groups := acquisition.Build(collection, summary)
	table := report.AcqGroups(groups)
	if len(table.Rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(table.Rows))
	}
	if table.Rows[0][0] != "1" || table.Rows[0][1] != "01" {
		t.Fatalf("first row = %v", table.Rows[0])
	}
}

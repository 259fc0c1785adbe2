package classify_test

import (
	"context"
	"testing"

	"tidybids/internal/bids"
	"tidybids/internal/catalog"
	"tidybids/internal/classify"
	"tidybids/internal/logging"
)

func funcCatalog(t *testing.T, specs ...catalog.FieldSpec) *catalog.Catalog {
	t.Helper()
	if len(specs) == 0 {
		specs = []catalog.FieldSpec{
			{Name: "RepetitionTime", Tolerance: 0.000001, Precision: 6, SuggestVariantRename: true},
		}
	}
	c, err := catalog.New(map[bids.Modality][]catalog.FieldSpec{bids.ModalityFunc: specs})
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	return c
}

func addBold(t *testing.T, c *bids.Collection, sub string, meta map[string]bids.Value) *bids.FileRecord {
	t.Helper()
	record, err := c.Add(&bids.FileRecord{
		Path:     "sub-" + sub + "/func/sub-" + sub + "_task-rest_bold.nii.gz",
		Metadata: meta,
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	return record
}

func runClassify(t *testing.T, c *bids.Collection, cat *catalog.Catalog) *classify.Summary {
	t.Helper()
	summary, err := classify.Run(context.Background(), c, cat, logging.NewNop(), classify.Options{Workers: 2})
	if err != nil {
		t.Fatalf("classify.Run: %v", err)
	}
	return summary
}

func TestDominantAndVariantScenario(t *testing.T) {
	collection := bids.NewCollection(t.TempDir())
	addBold(t, collection, "01", map[string]bids.Value{"RepetitionTime": bids.NumberValue(2.0)})
	addBold(t, collection, "02", map[string]bids.Value{"RepetitionTime": bids.NumberValue(2.0)})
	addBold(t, collection, "03", map[string]bids.Value{"RepetitionTime": bids.NumberValue(2.5)})

	summary := runClassify(t, collection, funcCatalog(t))
	if len(summary.EntitySets) != 1 {
		t.Fatalf("entity sets = %d", len(summary.EntitySets))
	}
	set := summary.EntitySets[0]
	if len(set.Groups) != 2 {
		t.Fatalf("groups = %d", len(set.Groups))
	}
	dominant := set.Dominant()
	if dominant.Rank != 1 || dominant.Count() != 2 {
		t.Fatalf("dominant rank=%d count=%d", dominant.Rank, dominant.Count())
	}
	variant := set.Group(2)
	if variant.Count() != 1 {
		t.Fatalf("variant count = %d", variant.Count())
	}
	if len(variant.DiffFields) != 1 || variant.DiffFields[0] != "RepetitionTime" {
		t.Fatalf("diff = %v", variant.DiffFields)
	}
	want := "acq-VARIANTRepetitionTime_datatype-func_suffix-bold_task-rest"
	if variant.SuggestedRename != want {
		t.Fatalf("suggestion = %q, want %q", variant.SuggestedRename, want)
	}
	if dominant.SuggestedRename != "" {
		t.Fatalf("dominant must not get a suggestion, got %q", dominant.SuggestedRename)
	}
}

func TestPartitionInvariant(t *testing.T) {
	collection := bids.NewCollection(t.TempDir())
	values := []float64{2.0, 2.0, 2.5, 3.0, 2.5, 2.0}
	for i, tr := range values {
		addBold(t, collection, string(rune('1'+i))+"0", map[string]bids.Value{
			"RepetitionTime": bids.NumberValue(tr),
		})
	}

	summary := runClassify(t, collection, funcCatalog(t))
	seen := make(map[int]int)
	for _, set := range summary.EntitySets {
		for _, group := range set.Groups {
			for _, id := range group.MemberIDs {
				seen[id]++
			}
		}
	}
	if len(seen) != collection.Len() {
		t.Fatalf("partition covers %d of %d records", len(seen), collection.Len())
	}
	for id, count := range seen {
		if count != 1 {
			t.Fatalf("record %d appears %d times", id, count)
		}
	}
}

func TestDeterminismAcrossInsertionOrder(t *testing.T) {
	subjects := []string{"01", "02", "03", "04"}
	trs := map[string]float64{"01": 2.0, "02": 2.5, "03": 2.0, "04": 2.5}

	build := func(order []string) map[string]classify.Assignment {
		collection := bids.NewCollection(t.TempDir())
		for _, sub := range order {
			addBold(t, collection, sub, map[string]bids.Value{"RepetitionTime": bids.NumberValue(trs[sub])})
		}
		summary := runClassify(t, collection, funcCatalog(t))
		byPath := make(map[string]classify.Assignment)
		for _, record := range collection.Records() {
			assignment, ok := summary.AssignmentFor(record.ID)
			if !ok {
				t.Fatalf("no assignment for %s", record.Path)
			}
			byPath[record.Path] = assignment
		}
		return byPath
	}

	forward := build(subjects)
	reversed := build([]string{"04", "03", "02", "01"})
	if len(forward) != len(reversed) {
		t.Fatalf("sizes differ: %d vs %d", len(forward), len(reversed))
	}
	for path, assignment := range forward {
		if reversed[path] != assignment {
			t.Fatalf("assignment for %s differs: %+v vs %+v", path, assignment, reversed[path])
		}
	}
}

func TestToleranceBoundary(t *testing.T) {
	cases := []struct {
		name string
		a, b float64
		same bool
	}{
		{"exactly at tolerance", 3.000000, 3.0000005, true},
		{"beyond tolerance", 3.000000, 3.00001, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			collection := bids.NewCollection(t.TempDir())
			addBold(t, collection, "01", map[string]bids.Value{"RepetitionTime": bids.NumberValue(tc.a)})
			addBold(t, collection, "02", map[string]bids.Value{"RepetitionTime": bids.NumberValue(tc.b)})
			summary := runClassify(t, collection, funcCatalog(t))
			groups := len(summary.EntitySets[0].Groups)
			if tc.same && groups != 1 {
				t.Fatalf("expected one group, got %d", groups)
			}
			if !tc.same && groups != 2 {
				t.Fatalf("expected two groups, got %d", groups)
			}
		})
	}
}

func TestToleranceChainingFlagsAmbiguity(t *testing.T) {
	cat := funcCatalog(t, catalog.FieldSpec{
		Name: "RepetitionTime", Tolerance: 0.5, Precision: -1, SuggestVariantRename: true,
	})
	collection := bids.NewCollection(t.TempDir())
	addBold(t, collection, "01", map[string]bids.Value{"RepetitionTime": bids.NumberValue(1.0)})
	addBold(t, collection, "02", map[string]bids.Value{"RepetitionTime": bids.NumberValue(1.5)})
	addBold(t, collection, "03", map[string]bids.Value{"RepetitionTime": bids.NumberValue(2.0)})

	summary := runClassify(t, collection, cat)
	set := summary.EntitySets[0]
	if len(set.Groups) != 1 {
		t.Fatalf("chained records should form one component, got %d groups", len(set.Groups))
	}
	group := set.Groups[0]
	found := false
	for _, warning := range group.Warnings {
		if warning.Code == classify.WarnAmbiguity {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected ambiguity warning, got %v", group.Warnings)
	}
}

func TestSequenceLengthMismatchSplitsGroups(t *testing.T) {
	cat := funcCatalog(t, catalog.FieldSpec{Name: "SliceTiming", Tolerance: 0.001, Precision: 3})
	collection := bids.NewCollection(t.TempDir())
	addBold(t, collection, "01", map[string]bids.Value{"SliceTiming": bids.SequenceValue(0, 0.5, 1.0)})
	addBold(t, collection, "02", map[string]bids.Value{"SliceTiming": bids.SequenceValue(0, 0.5)})

	summary := runClassify(t, collection, cat)
	if groups := len(summary.EntitySets[0].Groups); groups != 2 {
		t.Fatalf("length mismatch must split groups, got %d", groups)
	}
}

func TestMissingFieldSplitsGroupsAndWarns(t *testing.T) {
	collection := bids.NewCollection(t.TempDir())
	addBold(t, collection, "01", map[string]bids.Value{"RepetitionTime": bids.NumberValue(2.0)})
	addBold(t, collection, "02", map[string]bids.Value{})

	summary := runClassify(t, collection, funcCatalog(t))
	set := summary.EntitySets[0]
	if len(set.Groups) != 2 {
		t.Fatalf("missing field must split groups, got %d", len(set.Groups))
	}
	warned := false
	for _, group := range set.Groups {
		for _, warning := range group.Warnings {
			if warning.Code == classify.WarnSparseField {
				warned = true
			}
		}
	}
	if !warned {
		t.Fatal("expected sparse field warning")
	}
}

func TestEmptyDiffIsFlaggedNotSuppressed(t *testing.T) {
	cat := funcCatalog(t,
		catalog.FieldSpec{Name: "RepetitionTime", Tolerance: 0.000001, Precision: 6, SuggestVariantRename: true},
		catalog.FieldSpec{Name: "TotalReadoutTime", Tolerance: 0.000001, Precision: 6},
	)
	collection := bids.NewCollection(t.TempDir())
	addBold(t, collection, "01", map[string]bids.Value{
		"RepetitionTime":   bids.NumberValue(2.0),
		"TotalReadoutTime": bids.NumberValue(0.05),
	})
	addBold(t, collection, "02", map[string]bids.Value{
		"RepetitionTime":   bids.NumberValue(2.0),
		"TotalReadoutTime": bids.NumberValue(0.08),
	})

	summary := runClassify(t, collection, cat)
	set := summary.EntitySets[0]
	if len(set.Groups) != 2 {
		t.Fatalf("groups = %d", len(set.Groups))
	}
	variant := set.Group(2)
	if len(variant.DiffFields) != 0 {
		t.Fatalf("diff should be empty, got %v", variant.DiffFields)
	}
	if variant.SuggestedRename != "" {
		t.Fatalf("empty diff must not produce a suggestion, got %q", variant.SuggestedRename)
	}
	flagged := false
	for _, warning := range variant.Warnings {
		if warning.Code == classify.WarnEmptyDiff {
			flagged = true
		}
	}
	if !flagged {
		t.Fatalf("expected empty diff warning, got %v", variant.Warnings)
	}
}

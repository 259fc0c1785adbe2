// Package report builds the tabular artifacts of a classification pass: the
// editable group summary, the per-file listing, and the acquisition-group
// listing, each renderable as a terminal table or CSV.
package report

import (
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"tidybids/internal/bids"
	"tidybids/internal/classify"
)

// Table is a rendered-agnostic grid: the cmd layer draws it with go-pretty,
// WriteCSV emits it as the round-trip artifact.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Summary CSV columns. rename_to and merge_into are the operator-editable
// cells; everything else is informational and ignored on the way back in.
const (
	ColEntitySet  = "entity_set"
	ColParamGroup = "param_group"
	ColCount      = "count"
	ColModality   = "modality"
	ColFields     = "fields"
	ColDiffFields = "diff_fields"
	ColWarnings   = "warnings"
	ColSuggested  = "suggested_rename"
	ColRenameTo   = "rename_to"
	ColMergeInto  = "merge_into"
)

var summaryHeaders = []string{
	ColEntitySet, ColParamGroup, ColCount, ColModality, ColFields,
	ColDiffFields, ColWarnings, ColSuggested, ColRenameTo, ColMergeInto,
}

// Summary lists every parameter group, one row per group, entity sets in
// canonical key order and groups in rank order.
func Summary(summary *classify.Summary) Table {
	t := Table{Headers: summaryHeaders}
	for _, set := range summary.EntitySets {
		for _, group := range set.Groups {
			t.Rows = append(t.Rows, []string{
				set.EntityKey,
				strconv.Itoa(group.Rank),
				strconv.Itoa(group.Count()),
				string(set.Modality),
				formatRepresentative(group.Representative),
				strings.Join(group.DiffFields, ";"),
				formatWarnings(group.Warnings),
				group.SuggestedRename,
				"", // rename_to
				"", // merge_into
			})
		}
	}
	return t
}

// Files lists every record with its classification cell, in natural path
// order (sub-2 before sub-10).
func Files(collection *bids.Collection, summary *classify.Summary) Table {
	t := Table{Headers: []string{"path", "subject", "session", ColEntitySet, ColParamGroup}}
	records := collection.Records()
	collator := collate.New(language.Und, collate.Numeric)
	sorted := append([]*bids.FileRecord(nil), records...)
	sort.Slice(sorted, func(i, j int) bool {
		return collator.CompareString(sorted[i].Path, sorted[j].Path) < 0
	})
	for _, record := range sorted {
		rank := ""
		key := bids.EntityKey(record)
		if assignment, ok := summary.AssignmentFor(record.ID); ok {
			key = assignment.EntityKey
			rank = strconv.Itoa(assignment.Rank)
		}
		t.Rows = append(t.Rows, []string{
			record.Path, record.Subject(), record.Session(), key, rank,
		})
	}
	return t
}

func formatRepresentative(values map[string]bids.Value) string {
	fields := make([]string, 0, len(values))
	for name := range values {
		fields = append(fields, name)
	}
	sort.Strings(fields)
	pairs := make([]string, 0, len(fields))
	for _, name := range fields {
		pairs = append(pairs, name+"="+values[name].String())
	}
	return strings.Join(pairs, ";")
}

func formatWarnings(warnings []classify.Warning) string {
	codes := make([]string, 0, len(warnings))
	for _, warning := range warnings {
		codes = append(codes, warning.Code)
	}
	return strings.Join(codes, ";")
}

package classify

import (
	"fmt"
	"sort"

	"tidybids/internal/bids"
	"tidybids/internal/catalog"
)

// classifyEntitySet partitions the records of one entity set into parameter
// groups. Records are pre-sorted by path so discovery order does not depend
// on input order. Clustering is union-find over the pairwise equivalence
// graph rather than greedy first-match assignment: tolerance chaining can
// join records that are not themselves equivalent, and such components are
// flagged as ambiguous instead of being silently anchored to whichever record
// came first.
func classifyEntitySet(key string, records []*bids.FileRecord, fields []catalog.FieldSpec) *EntitySetSummary {
	sorted := append([]*bids.FileRecord(nil), records...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	n := len(sorted)
	equivalent := make([][]bool, n)
	for i := range equivalent {
		equivalent[i] = make([]bool, n)
	}
	uf := newUnionFind(n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if recordsEquivalent(sorted[i], sorted[j], fields) {
				equivalent[i][j] = true
				equivalent[j][i] = true
				uf.union(i, j)
			}
		}
	}

	summary := &EntitySetSummary{EntityKey: key}
	if n > 0 {
		summary.Modality = sorted[0].Datatype
	}

	for _, component := range uf.components() {
		anchor := sorted[component[0]]
		group := &ParamGroup{
			Representative: representativeTuple(anchor, fields),
			MemberIDs:      make([]int, 0, len(component)),
		}
		for _, idx := range component {
			group.MemberIDs = append(group.MemberIDs, sorted[idx].ID)
		}
		if breaks := transitivityBreaks(component, equivalent); breaks > 0 {
			group.Warnings = append(group.Warnings, Warning{
				Code: WarnAmbiguity,
				Detail: fmt.Sprintf("tolerance chaining joined %d record pair(s) that are not directly equivalent; review before trusting this group",
					breaks),
			})
		}
		summary.Groups = append(summary.Groups, group)
	}

	addSparseFieldWarnings(summary, sorted, fields)

	// Rank by descending size; ties break toward the earlier-discovered
	// representative, which is the components() emission order.
	sort.SliceStable(summary.Groups, func(i, j int) bool {
		return summary.Groups[i].Count() > summary.Groups[j].Count()
	})
	for i, group := range summary.Groups {
		group.Rank = i + 1
	}
	return summary
}

// representativeTuple captures the anchor record's values for the catalog
// fields it carries.
func representativeTuple(record *bids.FileRecord, fields []catalog.FieldSpec) map[string]bids.Value {
	tuple := make(map[string]bids.Value, len(fields))
	for _, spec := range fields {
		if value, ok := record.Metadata[spec.Name]; ok {
			tuple[spec.Name] = value
		}
	}
	return tuple
}

// transitivityBreaks counts member pairs of a component that are not directly
// equivalent. Non-zero means the component exists only through chaining.
func transitivityBreaks(component []int, equivalent [][]bool) int {
	breaks := 0
	for i := 0; i < len(component); i++ {
		for j := i + 1; j < len(component); j++ {
			if !equivalent[component[i]][component[j]] {
				breaks++
			}
		}
	}
	return breaks
}

// addSparseFieldWarnings flags catalog fields present on some but not all
// records of the entity set. Presence is uniform inside a group (missing vs
// present is non-equivalent), so the warning lands on every group whose
// members lack the field. Heterogeneity detection is the feature; these never
// fail the run.
func addSparseFieldWarnings(summary *EntitySetSummary, sorted []*bids.FileRecord, fields []catalog.FieldSpec) {
	byID := make(map[int]*bids.FileRecord, len(sorted))
	for _, record := range sorted {
		byID[record.ID] = record
	}
	for _, spec := range fields {
		present := 0
		for _, record := range sorted {
			if _, ok := record.Metadata[spec.Name]; ok {
				present++
			}
		}
		if present == 0 || present == len(sorted) {
			continue
		}
		for _, group := range summary.Groups {
			anchor := byID[group.MemberIDs[0]]
			if _, ok := anchor.Metadata[spec.Name]; !ok {
				group.Warnings = append(group.Warnings, Warning{
					Code:   WarnSparseField,
					Detail: fmt.Sprintf("field %s present on %d of %d record(s) in the entity set but missing here", spec.Name, present, len(sorted)),
				})
			}
		}
	}
}

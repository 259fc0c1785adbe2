package classify

import (
	"tidybids/internal/bids"
)

// Warning codes attached to parameter groups. Heterogeneity anomalies are
// reported, never raised as errors.
const (
	// WarnAmbiguity: the cluster is a union-find component whose members are
	// not all pairwise equivalent (tolerance chaining broke transitivity).
	WarnAmbiguity = "classification_ambiguity"
	// WarnSparseField: a catalog field is present on some but not all members.
	WarnSparseField = "sparse_field"
	// WarnEmptyDiff: a variant group whose rename-flagged fields all match the
	// dominant representative.
	WarnEmptyDiff = "empty_diff"
)

// Warning is a non-fatal classification anomaly tied to one parameter group.
type Warning struct {
	Code   string
	Detail string
}

// ParamGroup is one equivalence class of files within an entity set.
type ParamGroup struct {
	// Rank orders groups by descending member count; 1 is the dominant group.
	// Ties break toward the earlier-discovered representative.
	Rank int
	// Representative holds the metadata tuple of the group's anchor record,
	// restricted to the catalog fields for the modality.
	Representative map[string]bids.Value
	// MemberIDs are collection arena ids in canonical discovery order.
	MemberIDs []int
	Warnings  []Warning
	// DiffFields lists rename-flagged catalog fields (declaration order) on
	// which this group's representative differs from the dominant's. Empty
	// for the dominant group.
	DiffFields []string
	// SuggestedRename is the advisory target entity key; empty for the
	// dominant group and for empty-diff variants.
	SuggestedRename string
}

// Count returns the group's member count.
func (g *ParamGroup) Count() int { return len(g.MemberIDs) }

// EntitySetSummary is the classification of one entity set: its parameter
// groups in rank order. The groups partition the set's records exactly.
type EntitySetSummary struct {
	EntityKey string
	Modality  bids.Modality
	Groups    []*ParamGroup
}

// Dominant returns the rank-1 group.
func (s *EntitySetSummary) Dominant() *ParamGroup {
	if len(s.Groups) == 0 {
		return nil
	}
	return s.Groups[0]
}

// Group returns the group with the given rank, or nil.
func (s *EntitySetSummary) Group(rank int) *ParamGroup {
	for _, group := range s.Groups {
		if group.Rank == rank {
			return group
		}
	}
	return nil
}

// Assignment maps one record to its classification cell.
type Assignment struct {
	EntityKey string
	Rank      int
}

// Summary is the full read-only result of a classification pass.
type Summary struct {
	EntitySets  []*EntitySetSummary
	assignments map[int]Assignment
}

// AssignmentFor returns the (entity set, rank) cell of a record.
func (s *Summary) AssignmentFor(recordID int) (Assignment, bool) {
	a, ok := s.assignments[recordID]
	return a, ok
}

// EntitySet returns the summary for the given key, or nil.
func (s *Summary) EntitySet(key string) *EntitySetSummary {
	for _, set := range s.EntitySets {
		if set.EntityKey == key {
			return set
		}
	}
	return nil
}

package classify

import (
	"tidybids/internal/bids"
	"tidybids/internal/catalog"
)

// resolveVariants computes, for every non-dominant group, the ordered list of
// rename-flagged fields whose representative value differs from the dominant
// representative, then attaches the rename suggestion. An empty diff is
// possible and is flagged explicitly rather than suppressed: it means the
// partition separated records the rename-flagged fields cannot distinguish.
func resolveVariants(summary *EntitySetSummary, fields []catalog.FieldSpec) {
	dominant := summary.Dominant()
	if dominant == nil {
		return
	}
	for _, group := range summary.Groups {
		if group.Rank == 1 {
			continue
		}
		group.DiffFields = diffFields(dominant.Representative, group.Representative, fields)
		if len(group.DiffFields) == 0 {
			group.Warnings = append(group.Warnings, Warning{
				Code:   WarnEmptyDiff,
				Detail: "variant group matches the dominant group on every rename-flagged field",
			})
			continue
		}
		if suggestion, err := suggestRename(summary.EntityKey, group.DiffFields); err == nil {
			group.SuggestedRename = suggestion
		}
	}
}

// diffFields walks the catalog declaration order and keeps rename-flagged
// fields on which the two representative tuples differ under the same
// tolerance rule the classifier used. Missing-on-one-side counts as a
// difference.
func diffFields(dominant, variant map[string]bids.Value, fields []catalog.FieldSpec) []string {
	var diff []string
	for _, spec := range fields {
		if !spec.SuggestVariantRename {
			continue
		}
		dv, okD := dominant[spec.Name]
		vv, okV := variant[spec.Name]
		switch {
		case !okD && !okV:
			continue
		case okD != okV:
			diff = append(diff, spec.Name)
		case !valuesEquivalent(dv, vv, spec):
			diff = append(diff, spec.Name)
		}
	}
	return diff
}

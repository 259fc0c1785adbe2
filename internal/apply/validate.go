package apply

import (
	"fmt"

	"tidybids/internal/bids"
	"tidybids/internal/classify"
	"tidybids/internal/errkind"
)

// validate inspects the whole batch sequentially before any mutation: every
// collision check needs to see every instruction together. It returns the
// actionable instructions (no-ops dropped, fieldmap-source renames skipped)
// plus the warnings produced by the skips.
func validate(collection *bids.Collection, summary *classify.Summary, instructions []EditInstruction) ([]EditInstruction, []string, error) {
	actionable := make([]EditInstruction, 0, len(instructions))
	var warnings []string
	renameTargets := make(map[string]string)
	seenGroups := make(map[string]struct{}, len(instructions))

	for _, instruction := range instructions {
		if instruction.IsNoop() {
			continue
		}
		set := summary.EntitySet(instruction.EntityKey)
		if set == nil {
			return nil, nil, errkind.Wrap(errkind.ErrValidation, "apply", "validate",
				fmt.Sprintf("unknown entity set %q", instruction.EntityKey), nil)
		}
		group := set.Group(instruction.Rank)
		if group == nil {
			return nil, nil, errkind.Wrap(errkind.ErrValidation, "apply", "validate",
				fmt.Sprintf("entity set %q has no parameter group %d", instruction.EntityKey, instruction.Rank), nil)
		}
		// One action per parameter group across the whole batch.
		groupKey := fmt.Sprintf("%s/%d", instruction.EntityKey, instruction.Rank)
		if _, dup := seenGroups[groupKey]; dup {
			return nil, nil, errkind.Wrap(errkind.ErrValidation, "apply", "validate",
				fmt.Sprintf("multiple instructions target %s group %d", instruction.EntityKey, instruction.Rank), nil)
		}
		seenGroups[groupKey] = struct{}{}
		if instruction.RenameTo != "" && instruction.MergeInto != nil {
			return nil, nil, errkind.Wrap(errkind.ErrValidation, "apply", "validate",
				fmt.Sprintf("%s group %d sets both rename and merge", instruction.EntityKey, instruction.Rank), nil)
		}

		if instruction.MergeInto != nil {
			target := instruction.MergeRank()
			if target != 0 {
				if target == instruction.Rank {
					return nil, nil, errkind.Wrap(errkind.ErrValidation, "apply", "validate",
						fmt.Sprintf("%s group %d merges into itself", instruction.EntityKey, instruction.Rank), nil)
				}
				if set.Group(target) == nil {
					return nil, nil, errkind.Wrap(errkind.ErrValidation, "apply", "validate",
						fmt.Sprintf("%s group %d merges into missing group %d", instruction.EntityKey, instruction.Rank, target), nil)
				}
			}
		}

		if instruction.RenameTo != "" {
			if _, err := bids.ParseEntityKey(instruction.RenameTo); err != nil {
				return nil, nil, errkind.Wrap(errkind.ErrValidation, "apply", "validate", err.Error(), nil)
			}
			if isFieldmapSource(collection, summary, set, group) {
				warnings = append(warnings, fmt.Sprintf(
					"skipping rename of fieldmap entity set %q group %d: it only serves as a reference source",
					instruction.EntityKey, instruction.Rank))
				continue
			}
			if prior, dup := renameTargets[instruction.RenameTo]; dup {
				return nil, nil, errkind.Wrap(errkind.ErrConflict, "apply", "validate",
					fmt.Sprintf("groups %s and %s both rename to %q", prior, groupKey, instruction.RenameTo), nil)
			}
			renameTargets[instruction.RenameTo] = groupKey
		}

		actionable = append(actionable, instruction)
	}
	return actionable, warnings, nil
}

// isFieldmapSource reports whether a group's records are fieldmaps that act
// purely as reference sources. Renaming them would invalidate the operator's
// mental model of which fieldmap covers which acquisition, so they are
// excluded from automatic rename even when classified as variants.
func isFieldmapSource(collection *bids.Collection, summary *classify.Summary, set *classify.EntitySetSummary, group *classify.ParamGroup) bool {
	if set.Modality != bids.ModalityFmap {
		return false
	}
	isSource := false
	for _, id := range group.MemberIDs {
		if len(collection.ReferencesTo(id)) > 0 {
			return false
		}
		if len(collection.ReferencesFrom(id)) > 0 {
			isSource = true
		}
	}
	return isSource
}

package apply

// EditInstruction is one operator decision for a parameter group, sourced
// from the edited summary report. At most one action may be set; a row with
// neither is a no-op and is dropped before validation.
type EditInstruction struct {
	// EntityKey and Rank locate the parameter group the instruction targets.
	EntityKey string
	Rank      int
	// RenameTo is the new entity set label for the group's files.
	RenameTo string
	// MergeInto is the target parameter group rank within the same entity
	// set; 0 means delete the group. Nil means no merge action.
	MergeInto *int
}

// IsNoop reports whether the instruction carries no action.
func (i EditInstruction) IsNoop() bool {
	return i.RenameTo == "" && i.MergeInto == nil
}

// MergeRank dereferences MergeInto; callers must check IsNoop/HasMerge first.
func (i EditInstruction) MergeRank() int {
	if i.MergeInto == nil {
		return -1
	}
	return *i.MergeInto
}

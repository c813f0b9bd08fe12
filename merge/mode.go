package merge

// MergeModes merges three file-mode ints for a single path, deciding
// whether OURS, THEIRS or neither can trivially win (spec §4.1). Pure and
// commutative in (ours, theirs) for a fixed base (spec §8 invariant 5).
//
// Adapted from the mode-reconciliation rules buried inside
// compareCommitsChanges in worktree_merge.go, pulled out into the
// standalone pure function the spec calls ModeArbiter.
func MergeModes(base, ours, theirs FileMode) FileMode {
	switch {
	case ours == theirs:
		return ours
	case base == ours:
		if theirs != ModeMissing {
			return theirs
		}
		return ours
	case base == theirs:
		if ours != ModeMissing {
			return ours
		}
		return theirs
	default:
		return ModeMissing
	}
}

package merge

// IsIndexDirty reports whether the index entry at the walk's current
// position already disagrees with BASE/OURS (spec §4.4: a merge must not
// clobber a change the user has already staged but not yet committed).
//
// A path is "index dirty" when the index entry exists, is not equal to the
// BASE entry, and is not equal to the OURS entry either -- i.e. the index
// holds a third version nobody asked this merge to reconcile.
func IsIndexDirty(tw TreeWalk) bool {
	indexOID := tw.OID(SlotIndex)
	if indexOID.IsZero() && tw.Mode(SlotIndex) == ModeMissing {
		return false
	}
	if tw.IDEqual(SlotIndex, SlotBase) && tw.Mode(SlotIndex) == tw.Mode(SlotBase) {
		return false
	}
	if tw.IDEqual(SlotIndex, SlotOurs) && tw.Mode(SlotIndex) == tw.Mode(SlotOurs) {
		return false
	}
	return true
}

// IsWorktreeDirty reports whether the working-tree copy at the walk's
// current position disagrees with the index (spec §4.4). In-core merges
// (inCore true) have no working tree to check and are never worktree-dirty.
//
// It records nothing itself. The resolver calls it once per candidate path
// (EntryResolver.filterRescue), which records DirtyWorktree only when no
// MergeFilter is configured to rescue the path.
func IsWorktreeDirty(tw TreeWalk, inCore bool) bool {
	if inCore || !tw.HasWorkingTree() {
		return false
	}
	indexMode := tw.Mode(SlotIndex)
	if indexMode == ModeMissing {
		return tw.Mode(SlotFile) != ModeMissing
	}
	if !tw.IDEqual(SlotFile, SlotIndex) {
		return true
	}
	return tw.WorkingModeDiffers(indexMode)
}

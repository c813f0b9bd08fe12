package merge

// EntryResolver decides, for a single tree-walk position, whether the three
// sides trivially agree, one side can be taken wholesale, or the path must
// be left as a conflict. It is the per-path state machine this package
// exists to implement (cases C0-C7 below), generalised from the branch-by-
// branch decisions inlined in compareCommitsChanges in worktree_merge.go.
type EntryResolver struct {
	tw      TreeWalk
	content *ContentMerger
	wt      *WorkTreeOps
	index   *IndexOps
	store   ObjectStore
	filter  MergeFilter
	inCore  bool

	toBeCheckedOut *entryMap
	toBeDeleted    *pathSet
	mergeResults   *mergeResultMap
	failingPaths   *failMap
	unmergedPaths  *pathSet
	modifiedFiles  *pathSet
}

// NewEntryResolver wires a resolver to the maps and side effects a single
// MergeDriver.merge() call shares across every path.
func NewEntryResolver(
	tw TreeWalk,
	content *ContentMerger,
	wt *WorkTreeOps,
	index *IndexOps,
	store ObjectStore,
	filter MergeFilter,
	inCore bool,
	toBeCheckedOut *entryMap,
	toBeDeleted *pathSet,
	mergeResults *mergeResultMap,
	failingPaths *failMap,
	unmergedPaths *pathSet,
	modifiedFiles *pathSet,
) *EntryResolver {
	return &EntryResolver{
		tw: tw, content: content, wt: wt, index: index, store: store,
		filter: filter, inCore: inCore,
		toBeCheckedOut: toBeCheckedOut, toBeDeleted: toBeDeleted,
		mergeResults: mergeResults, failingPaths: failingPaths,
		unmergedPaths: unmergedPaths, modifiedFiles: modifiedFiles,
	}
}

// Resolve processes the walk's current position. It returns cont=false to
// abort the whole merge (the driver must call cleanUp and stop). Otherwise
// descend tells the driver whether to call tw.EnterSubtree() when the walk
// is currently positioned on a subtree (a no-op when it isn't); descend
// defaults to true and is only ever set false by the two asymmetric
// branches of C5, matching "enterSubtree = true at entry" from the source
// this generalises.
func (r *EntryResolver) Resolve(path string) (cont bool, descend bool, err error) {
	mB := r.tw.Mode(SlotBase)
	mO := r.tw.Mode(SlotOurs)
	mT := r.tw.Mode(SlotTheirs)
	descend = true

	ourDce := r.ourEntry(path, mO)

	// C0: all three absent -- a name-conflict phantom left by a sibling
	// walk position; nothing to do.
	if mB == ModeMissing && mO == ModeMissing && mT == ModeMissing {
		return true, descend, nil
	}

	// C1: the index already disagrees with base/ours; refuse to clobber it.
	if IsIndexDirty(r.tw) {
		r.failingPaths.Put(path, DirtyIndex)
		return false, descend, nil
	}

	// C2: both sides point at the same non-tree content.
	if NonTree(mO) && NonTree(mT) && r.tw.IDEqual(SlotOurs, SlotTheirs) {
		if mO == mT {
			if err := r.keep(ourDce); err != nil {
				return false, descend, err
			}
			return true, descend, nil
		}

		newMode := MergeModes(mB, mO, mT)
		if newMode != ModeMissing {
			if newMode == mO {
				if err := r.keep(ourDce); err != nil {
					return false, descend, err
				}
				return true, descend, nil
			}
			proceed, side, filtered, err := r.filterRescue(path)
			if err != nil {
				return false, descend, err
			}
			if !proceed {
				return false, descend, nil
			}
			if filtered && side == SideOurs {
				if err := r.keep(ourDce); err != nil {
					return false, descend, err
				}
			} else if err := r.takeTheirs(path, mT, r.tw.OID(SlotTheirs)); err != nil {
				return false, descend, err
			}
			return true, descend, nil
		}

		// Mode conflict: neither side's mode can be reconciled.
		proceed, side, filtered, err := r.filterRescue(path)
		if err != nil {
			return false, descend, err
		}
		if !proceed {
			return false, descend, nil
		}
		if filtered {
			if side == SideOurs {
				if err := r.keep(ourDce); err != nil {
					return false, descend, err
				}
			} else if err := r.takeTheirs(path, mT, r.tw.OID(SlotTheirs)); err != nil {
				return false, descend, err
			}
			return true, descend, nil
		}
		if err := r.addConflictStages(path); err != nil {
			return false, descend, err
		}
		r.unmergedPaths.Add(path)
		r.mergeResults.Put(path, EmptyMergeResult())
		return true, descend, nil
	}

	// C3: theirs never touched this path.
	if NonTree(mO) && mB == mT && r.tw.IDEqual(SlotBase, SlotTheirs) {
		if err := r.keep(ourDce); err != nil {
			return false, descend, err
		}
		return true, descend, nil
	}

	// C4: ours never touched this path; theirs wins outright.
	if mB == mO && r.tw.IDEqual(SlotBase, SlotOurs) {
		proceed, side, filtered, err := r.filterRescue(path)
		if err != nil {
			return false, descend, err
		}
		if !proceed {
			return false, descend, nil
		}
		if filtered && side == SideOurs {
			if err := r.keep(ourDce); err != nil {
				return false, descend, err
			}
			return true, descend, nil
		}
		switch {
		case NonTree(mT):
			if err := r.takeTheirs(path, mT, r.tw.OID(SlotTheirs)); err != nil {
				return false, descend, err
			}
		case mT == ModeMissing && mB != ModeMissing:
			r.toBeDeleted.Add(path)
		}
		return true, descend, nil
	}

	// C5: a file-vs-directory name conflict between ours and theirs.
	if r.tw.IsSubtree() {
		switch {
		case NonTree(mO) && !NonTree(mT):
			if NonTree(mB) {
				if err := r.index.Add(path, StageBase, mB, r.tw.OID(SlotBase)); err != nil {
					return false, descend, err
				}
			}
			if err := r.index.Add(path, StageOurs, mO, r.tw.OID(SlotOurs)); err != nil {
				return false, descend, err
			}
			r.unmergedPaths.Add(path)
			return true, false, nil
		case NonTree(mT) && !NonTree(mO):
			if NonTree(mB) {
				if err := r.index.Add(path, StageBase, mB, r.tw.OID(SlotBase)); err != nil {
					return false, descend, err
				}
			}
			if err := r.index.Add(path, StageTheirs, mT, r.tw.OID(SlotTheirs)); err != nil {
				return false, descend, err
			}
			r.unmergedPaths.Add(path)
			return true, false, nil
		case !NonTree(mO) && !NonTree(mT):
			return true, descend, nil
		}
		// Otherwise both sides are non-tree files that merely happen to
		// share a path with a tree entry on the other side(s); fall
		// through to C6. descend stays true: any base-side subtree
		// content still needs its own per-path resolution.
	}

	// C6: both sides are non-tree files with differing content.
	if NonTree(mO) && NonTree(mT) {
		proceed, side, filtered, err := r.filterRescue(path)
		if err != nil {
			return false, descend, err
		}
		if !proceed {
			return false, descend, nil
		}
		if filtered {
			if side == SideOurs {
				if err := r.keep(ourDce); err != nil {
					return false, descend, err
				}
			} else if err := r.takeTheirs(path, mT, r.tw.OID(SlotTheirs)); err != nil {
				return false, descend, err
			}
			return true, descend, nil
		}

		if KindOf(mO) == KindGitlink || KindOf(mT) == KindGitlink {
			if err := r.addConflictStages(path); err != nil {
				return false, descend, err
			}
			r.unmergedPaths.Add(path)
			return true, descend, nil
		}

		result, err := r.content.Merge(r.tw.OID(SlotBase), r.tw.OID(SlotOurs), r.tw.OID(SlotTheirs))
		if err != nil {
			return false, descend, err
		}

		if result.ContainsConflicts && r.filter != nil {
			if r.filter(path) == SideOurs {
				if err := r.keep(ourDce); err != nil {
					return false, descend, err
				}
			} else if err := r.takeTheirs(path, mT, r.tw.OID(SlotTheirs)); err != nil {
				return false, descend, err
			}
			return true, descend, nil
		}

		of, err := r.wt.WriteMergedFile(path, result.Content)
		if err != nil {
			return false, descend, err
		}
		if err := r.updateIndex(path, mB, mO, mT, result, of); err != nil {
			return false, descend, err
		}
		if result.ContainsConflicts {
			r.unmergedPaths.Add(path)
		}
		r.modifiedFiles.Add(path)
		return true, descend, nil
	}

	// C7: exactly one side deleted the path relative to base.
	modifyDeleteConflict := (mO != ModeMissing && !r.tw.IDEqual(SlotBase, SlotOurs)) ||
		(mT != ModeMissing && !r.tw.IDEqual(SlotBase, SlotTheirs))
	if modifyDeleteConflict {
		if err := r.addConflictStages(path); err != nil {
			return false, descend, err
		}
		if mO == ModeMissing {
			proceed, _, filtered, err := r.filterRescue(path)
			if err != nil {
				return false, descend, err
			}
			if !proceed {
				return false, descend, nil
			}
			if filtered {
				r.toBeCheckedOut.Put(path, &IndexEntry{Path: path, Stage: StageMerged, Mode: mT, OID: r.tw.OID(SlotTheirs)})
			}
		}
		r.unmergedPaths.Add(path)
		result, err := r.content.Merge(r.tw.OID(SlotBase), r.tw.OID(SlotOurs), r.tw.OID(SlotTheirs))
		if err != nil {
			return false, descend, err
		}
		r.mergeResults.Put(path, result)
		return true, descend, nil
	}

	return true, descend, nil
}

// ourEntry synthesises the stage-0 entry "ours" currently holds at path:
// the index entry when present, else a fresh one derived from the OURS
// tree side when it names a non-tree entry, else absent.
func (r *EntryResolver) ourEntry(path string, mO FileMode) *IndexEntry {
	if r.tw.Mode(SlotIndex) != ModeMissing {
		return &IndexEntry{Path: path, Stage: StageMerged, Mode: r.tw.Mode(SlotIndex), OID: r.tw.OID(SlotIndex)}
	}
	if NonTree(mO) {
		return &IndexEntry{Path: path, Stage: StageMerged, Mode: mO, OID: r.tw.OID(SlotOurs)}
	}
	return nil
}

func (r *EntryResolver) keep(ourDce *IndexEntry) error {
	if ourDce == nil {
		return nil
	}
	return r.index.Keep(ourDce)
}

func (r *EntryResolver) takeTheirs(path string, mode FileMode, oid OID) error {
	entry := &IndexEntry{Path: path, Stage: StageMerged, Mode: mode, OID: oid}
	if err := r.index.AddEntry(entry); err != nil {
		return err
	}
	r.toBeCheckedOut.Put(path, entry)
	return nil
}

// addConflictStages records whichever of base/ours/theirs actually has an
// entry at path as the corresponding conflict stage.
func (r *EntryResolver) addConflictStages(path string) error {
	if mode := r.tw.Mode(SlotBase); mode != ModeMissing {
		if err := r.index.Add(path, StageBase, mode, r.tw.OID(SlotBase)); err != nil {
			return err
		}
	}
	if mode := r.tw.Mode(SlotOurs); mode != ModeMissing {
		if err := r.index.Add(path, StageOurs, mode, r.tw.OID(SlotOurs)); err != nil {
			return err
		}
	}
	if mode := r.tw.Mode(SlotTheirs); mode != ModeMissing {
		if err := r.index.Add(path, StageTheirs, mode, r.tw.OID(SlotTheirs)); err != nil {
			return err
		}
	}
	return nil
}

// filterRescue implements the shared "worktree must be clean" gate: when
// the worktree is clean (or absent, or this is an in-core merge) it simply
// signals the caller to proceed as normal. When dirty, it consults the
// MergeFilter if one was configured -- the caller is told which side the
// filter chose and must apply it -- or else records a DirtyWorktree failure
// and tells the caller to abort.
func (r *EntryResolver) filterRescue(path string) (proceed bool, side Side, filtered bool, err error) {
	if !IsWorktreeDirty(r.tw, r.inCore) {
		return true, 0, false, nil
	}
	if r.filter == nil {
		r.failingPaths.Put(path, DirtyWorktree)
		return false, 0, false, nil
	}
	return true, r.filter(path), true, nil
}

// updateIndex stages the outcome of a completed content merge: a conflict
// keeps the three input stages, a clean merge inserts the rendered bytes as
// a fresh blob and stages it at 0 with the reconciled mode (spec §4.8).
func (r *EntryResolver) updateIndex(path string, mB, mO, mT FileMode, result *MergeResult, of *WrittenFile) error {
	if result.ContainsConflicts {
		return r.addConflictStages(path)
	}

	mode := MergeModes(mB, mO, mT)
	if mode == ModeMissing {
		mode = ModeRegular
	}

	oid, err := r.store.Insert(of.Content)
	if err != nil {
		return err
	}

	entry := &IndexEntry{
		Path:    path,
		Stage:   StageMerged,
		Mode:    mode,
		OID:     oid,
		ModTime: of.ModTime,
		Size:    uint32(of.Size),
	}
	return r.index.AddEntry(entry)
}

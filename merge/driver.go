package merge

// TreeWalkFactory builds the synchronised tree walk for one merge, given
// the three tree roots and the builder the resolver will stage entries
// into. Package gitmodel supplies the concrete implementation, its own
// synchronised walk over go-git.v4 tree objects, the index and the
// working tree.
type TreeWalkFactory func(base, ours, theirs OID, builder DirCacheBuilder) (TreeWalk, error)

// MergeDriver runs the outer merge loop: it owns the dircache lock, drives
// the tree walk through an EntryResolver for every path, and performs the
// post-walk checkout and cleanup (spec §4.8). One driver instance serves
// exactly one merge; it is not reusable.
type MergeDriver struct {
	store       ObjectStore
	dirCache    DirCache
	callerLocked bool
	walkFactory TreeWalkFactory
	content     *ContentMerger
	wt          *WorkTreeOps
	filter      MergeFilter
	inCore      bool

	resultTree    OID
	hasResultTree bool

	toBeCheckedOut *entryMap
	toBeDeleted    *pathSet
	mergeResults   *mergeResultMap
	failingPaths   *failMap
	unmergedPaths  *pathSet
	modifiedFiles  *pathSet
}

// NewMergeDriver constructs a driver. callerLocked must be true when the
// caller already holds an exclusive lock on dirCache (setDirCache was
// used); the driver then never locks or unlocks it itself, leaving release
// to the caller on every exit path.
func NewMergeDriver(
	store ObjectStore,
	dirCache DirCache,
	callerLocked bool,
	walkFactory TreeWalkFactory,
	content *ContentMerger,
	wt *WorkTreeOps,
	filter MergeFilter,
	inCore bool,
) *MergeDriver {
	return &MergeDriver{
		store: store, dirCache: dirCache, callerLocked: callerLocked,
		walkFactory: walkFactory, content: content, wt: wt, filter: filter, inCore: inCore,
		toBeCheckedOut: newEntryMap(), toBeDeleted: newPathSet(),
		mergeResults: newMergeResultMap(), failingPaths: newFailMap(),
		unmergedPaths: newPathSet(), modifiedFiles: newPathSet(),
	}
}

// Merge runs the merge to completion. A false return with no error means
// the merge left conflicts, dirty paths, or deletion failures behind; the
// caller inspects FailingPaths/UnmergedPaths to distinguish the two.
func (d *MergeDriver) Merge(base, ours, theirs OID) (bool, error) {
	if !d.callerLocked {
		if err := d.dirCache.Lock(); err != nil {
			return false, err
		}
		defer d.dirCache.Unlock()
	}

	builder := d.dirCache.NewBuilder()
	tw, err := d.walkFactory(base, ours, theirs, builder)
	if err != nil {
		return false, err
	}

	resolver := NewEntryResolver(
		tw, d.content, d.wt, NewIndexOps(builder), d.store, d.filter, d.inCore,
		d.toBeCheckedOut, d.toBeDeleted, d.mergeResults, d.failingPaths,
		d.unmergedPaths, d.modifiedFiles,
	)

	for {
		has, err := tw.Next()
		if err != nil {
			return false, err
		}
		if !has {
			break
		}
		cont, descend, err := resolver.Resolve(tw.Path())
		if err != nil {
			return false, err
		}
		if !cont {
			if cerr := d.cleanUp(); cerr != nil {
				return false, cerr
			}
			_ = builder.Finish()
			return false, nil
		}
		if tw.IsSubtree() && descend {
			tw.EnterSubtree()
		}
	}

	if !d.inCore {
		if err := d.checkout(); err != nil {
			return false, err
		}
		if err := builder.Commit(); err != nil {
			_ = d.cleanUp()
			return false, ErrIndexWrite
		}
	} else {
		if err := builder.Finish(); err != nil {
			return false, err
		}
	}

	if d.unmergedPaths.Empty() && d.failingPaths.Empty() {
		tree, err := d.dirCache.WriteTree()
		if err != nil {
			return false, err
		}
		d.resultTree = tree
		d.hasResultTree = true
		return true, nil
	}
	return false, nil
}

// checkout materialises every trivially-resolved entry, then deletes
// toBeDeleted paths in reverse order so a directory is never removed
// before the files beneath it (spec §3: correctness, not optimisation).
func (d *MergeDriver) checkout() error {
	for _, path := range d.toBeCheckedOut.Keys() {
		entry, _ := d.toBeCheckedOut.Get(path)
		if _, err := d.wt.Checkout(entry.Path, entry.Mode, entry.OID); err != nil {
			return err
		}
		d.modifiedFiles.Add(path)
	}

	deletions := d.toBeDeleted.Values()
	for i := len(deletions) - 1; i >= 0; i-- {
		path := deletions[i]
		if err := d.wt.Remove(path); err != nil {
			d.failingPaths.Put(path, CouldNotDelete)
			continue
		}
		d.modifiedFiles.Add(path)
	}
	return nil
}

// cleanUp reverts the working tree after an aborted merge. In-core merges
// have nothing to revert. Otherwise every path touched so far is restored
// from the index's current stage-0 entry.
func (d *MergeDriver) cleanUp() error {
	if d.inCore {
		d.modifiedFiles = newPathSet()
		return nil
	}
	for _, path := range d.modifiedFiles.Values() {
		entry, ok, err := d.dirCache.GetEntry(path)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		content, err := d.store.Open(entry.OID)
		if err != nil {
			return err
		}
		if _, err := d.wt.WriteMergedFile(path, content); err != nil {
			return err
		}
	}
	d.modifiedFiles = newPathSet()
	return nil
}

// ResultTreeID returns the merged tree's OID, present only after a true
// return from Merge.
func (d *MergeDriver) ResultTreeID() (OID, bool) {
	return d.resultTree, d.hasResultTree
}

// UnmergedPaths lists conflicted paths in tree-walk order.
func (d *MergeDriver) UnmergedPaths() []string {
	return d.unmergedPaths.Values()
}

// ModifiedFiles lists every path the merge wrote to or removed from the
// working tree, in the order it touched them.
func (d *MergeDriver) ModifiedFiles() []string {
	return d.modifiedFiles.Values()
}

// ToBeCheckedOut returns the entries scheduled for (or already written
// during) working-tree checkout, keyed by path.
func (d *MergeDriver) ToBeCheckedOut() map[string]*IndexEntry {
	out := make(map[string]*IndexEntry)
	for _, path := range d.toBeCheckedOut.Keys() {
		entry, _ := d.toBeCheckedOut.Get(path)
		out[path] = entry
	}
	return out
}

// MergeResults returns the line-level merge outcome recorded for every
// path that went through content merging, keyed by path.
func (d *MergeDriver) MergeResults() map[string]*MergeResult {
	out := make(map[string]*MergeResult)
	for _, path := range d.mergeResults.Keys() {
		result, _ := d.mergeResults.Get(path)
		out[path] = result
	}
	return out
}

// FailingPaths returns the reason each failing path aborted the merge,
// keyed by path. Empty is equivalent to absent.
func (d *MergeDriver) FailingPaths() map[string]FailReason {
	out := make(map[string]FailReason)
	for _, path := range d.failingPaths.Keys() {
		reason, _ := d.failingPaths.Get(path)
		out[path] = reason
	}
	return out
}

// Failed reports whether any path aborted the merge outright.
func (d *MergeDriver) Failed() bool {
	return !d.failingPaths.Empty()
}

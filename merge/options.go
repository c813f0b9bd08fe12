package merge

import "errors"

// ErrNoDirCache is returned by Merge when no DirCache was supplied via
// SetDirCache (NewMerger takes none).
var ErrNoDirCache = errors.New("merge: no dircache configured")

// NamesSetter is implemented by Algorithms that render commit names into
// conflict markers (package diff3's adapter does). Merger.SetCommitNames
// is a no-op on algorithms that don't implement it.
type NamesSetter interface {
	SetNames(base, ours, theirs string)
}

// Merger is the public facade: construct one per merge, configure it with
// the Set* methods, then call Merge. Mirrors the construct/
// setDirCache/setWorkingTreeIterator/setCommitNames/setMergeFilter surface
// described for the collaborator this package implements.
type Merger struct {
	store       ObjectStore
	walkFactory TreeWalkFactory
	algorithm   Algorithm
	inCore      bool

	dirCache     DirCache
	callerLocked bool
	fs           Filesystem
	filter       MergeFilter
	names        [3]string
}

// NewMerger constructs a merger bound to a store, a tree-walk factory and a
// content-merge algorithm. inCore selects whether results are written to a
// working tree at all.
func NewMerger(store ObjectStore, walkFactory TreeWalkFactory, algorithm Algorithm, inCore bool) *Merger {
	return &Merger{
		store: store, walkFactory: walkFactory, algorithm: algorithm, inCore: inCore,
		names: [3]string{"BASE", "OURS", "THEIRS"},
	}
}

// SetDirCache supplies a pre-locked DirCache. The caller retains ownership
// of unlocking it on every exit path; Merge will not lock or unlock it.
// Merge has no other source of a DirCache: without a call to this it
// returns ErrNoDirCache and does not acquire a lock of its own.
func (m *Merger) SetDirCache(dc DirCache) *Merger {
	m.dirCache = dc
	m.callerLocked = true
	return m
}

// SetWorkingTreeFilesystem attaches a working tree. Without one, any case
// requiring a clean worktree treats it as clean, and checkout/writeMergedFile
// become no-ops even when inCore is false.
func (m *Merger) SetWorkingTreeFilesystem(fs Filesystem) *Merger {
	m.fs = fs
	return m
}

// SetCommitNames overrides the three names rendered into conflict markers.
func (m *Merger) SetCommitNames(base, ours, theirs string) *Merger {
	m.names = [3]string{base, ours, theirs}
	return m
}

// SetMergeFilter installs an automatic conflict resolver.
func (m *Merger) SetMergeFilter(filter MergeFilter) *Merger {
	m.filter = filter
	return m
}

// Merge runs the merge and returns the driver it ran (for inspecting
// ResultTreeID, UnmergedPaths, MergeResults and its other observable
// results) along with the boolean/error pair
// Merge() itself produces.
func (m *Merger) Merge(base, ours, theirs OID) (*MergeDriver, bool, error) {
	if m.dirCache == nil {
		return nil, false, ErrNoDirCache
	}
	if setter, ok := m.algorithm.(NamesSetter); ok {
		setter.SetNames(m.names[0], m.names[1], m.names[2])
	}

	content := NewContentMerger(m.algorithm, m.store)
	wt := NewWorkTreeOps(m.fs, m.store)
	driver := NewMergeDriver(m.store, m.dirCache, m.callerLocked, m.walkFactory, content, wt, m.filter, m.inCore)
	ok, err := driver.Merge(base, ours, theirs)
	return driver, ok, err
}

package merge

// ObjectStore resolves object identities to bytes and inserts new blobs.
// Out of scope per spec §1 ("the content-addressed object store"); this is
// the collaborator interface the core consumes.
type ObjectStore interface {
	Open(oid OID) ([]byte, error)
	Insert(content []byte) (OID, error)
}

// Algorithm is the pluggable line-level three-way merge kernel (spec §4.3,
// §6: "MergeAlgorithm: merge(comparator, base, ours, theirs) -> MergeResult").
// Package diff3 provides the default implementation.
type Algorithm interface {
	Merge(base, ours, theirs []byte) (*MergeResult, error)
}

// TreeWalk is a synchronised pre-order traversal over BASE, OURS, THEIRS,
// the index build-iterator and (optionally) the working tree, advancing to
// the next path present in any of them. Out of scope per spec §1
// ("working-tree iteration") beyond this interface.
type TreeWalk interface {
	// Next advances to the next path. Returns false when the walk is
	// exhausted.
	Next() (bool, error)

	// Path is the current position's path.
	Path() string

	// IsSubtree reports whether a tree (directory) is present at this path
	// in any of the walked sources. The resolver treats a tree on one side
	// and a non-tree on the other as a name conflict (spec §4.7 C5).
	IsSubtree() bool

	// EnterSubtree requests that the walker descend into the current
	// subtree on the next Next() call. A no-op if IsSubtree is false.
	EnterSubtree()

	// Mode returns the raw file mode at slot, ModeMissing if slot has no
	// entry at this path.
	Mode(slot Slot) FileMode

	// OID returns the object id at slot, ZeroOID if slot has no entry.
	OID(slot Slot) OID

	// IDEqual reports whether the object ids at slots a and b are equal.
	// Two absent slots are considered equal.
	IDEqual(a, b Slot) bool

	// HasWorkingTree reports whether a working-tree iterator was supplied
	// to this walk at all (distinct from whether SlotFile has an entry at
	// the current path).
	HasWorkingTree() bool

	// WorkingModeDiffers reports whether the working-tree entry at the
	// current path has a mode different from mode (stat-level check,
	// mirroring WorkingTreeIterator.modeDiffers).
	WorkingModeDiffers(mode FileMode) bool
}

// DirCacheBuilder is the append-only index builder assembled during a
// merge. Entries must be appended in strictly increasing path order; the
// TreeWalk implementation guarantees this.
type DirCacheBuilder interface {
	Add(entry *IndexEntry) error
	// Commit persists the builder's entries as the new index.
	Commit() error
	// Finish discards the builder without writing to disk (in-core mode).
	Finish() error
}

// DirCache is the persistent index mapping paths to staged IndexEntries.
// Out of scope per spec §1 ("index (dircache) persistence") beyond this
// interface.
type DirCache interface {
	Lock() error
	Unlock() error
	// GetEntry returns the current persisted stage-0 entry for path, if
	// any. Used by cleanUp to restore working-tree files after a failed
	// merge.
	GetEntry(path string) (*IndexEntry, bool, error)
	NewBuilder() DirCacheBuilder
	// WriteTree flushes the committed index into the object store as a
	// tree hierarchy, returning its root OID. Called once, after the
	// builder has been committed (or, for an in-core merge, finished), and
	// only when no path was left unmerged or failing.
	WriteTree() (OID, error)
}

// Filesystem is the minimal working-tree write surface WorkTreeOps needs.
// Out of scope per spec §1 beyond this interface.
type Filesystem interface {
	// Exists reports whether path exists and, if so, whether it is a
	// directory.
	Exists(path string) (isDir bool, ok bool, err error)
	MkdirAll(dir string) error
	Remove(path string) error
	// WriteFile creates or truncates path and writes data, returning the
	// resulting file's size (mtime is left to the implementation; pass
	// time.Time{} if unavailable).
	WriteFile(path string, data []byte) (size int64, err error)
	Dir(path string) string
	Join(elem ...string) string
}

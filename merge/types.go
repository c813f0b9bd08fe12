// Package merge implements the core of a three-way content merger for a
// content-addressed version-control object model. Given a common ancestor
// tree (BASE), an "ours" tree and a "theirs" tree, together with the
// current index and an optional working-tree snapshot, it decides per path
// whether a trivial merge suffices, whether a line-level content merge is
// required, or whether the path must be left as a conflict with the three
// stages recorded.
//
// The package is deliberately decoupled from any specific object store,
// index format or working-tree implementation: callers plug in an
// ObjectStore, a DirCache and a TreeWalk (see interfaces.go). Package
// gitmodel adapts these to gopkg.in/src-d/go-git.v4.
//
// This is a generalisation of the per-path decision logic found in
// gopkg.in/src-d/go-git.v4's worktree_merge.go (compareCommitsChanges and
// friends), restructured as the explicit per-path state machine described
// by the design this package follows.
package merge

import "time"

// OID is a fixed-width content hash identifying a blob or tree. The zero
// value denotes absence.
type OID [20]byte

// ZeroOID is the reserved "absent object" identity.
var ZeroOID OID

// IsZero reports whether oid is the absent-object sentinel.
func (oid OID) IsZero() bool {
	return oid == ZeroOID
}

// Kind enumerates what a FileMode encodes.
type Kind int

const (
	KindMissing Kind = iota
	KindTree
	KindRegular
	KindExecutable
	KindSymlink
	KindGitlink
)

// FileMode is a packed integer encoding a tree entry's kind, mirroring
// git's own mode bits closely enough that adapters can pass them through
// unchanged.
type FileMode uint32

const (
	ModeMissing    FileMode = 0
	ModeTree       FileMode = 0040000
	ModeRegular    FileMode = 0100644
	ModeExecutable FileMode = 0100755
	ModeSymlink    FileMode = 0120000
	ModeGitlink    FileMode = 0160000
)

// KindOf classifies a FileMode.
func KindOf(m FileMode) Kind {
	switch m {
	case ModeMissing:
		return KindMissing
	case ModeTree:
		return KindTree
	case ModeRegular:
		return KindRegular
	case ModeExecutable:
		return KindExecutable
	case ModeSymlink:
		return KindSymlink
	case ModeGitlink:
		return KindGitlink
	default:
		return KindMissing
	}
}

// NonTree reports whether m names an existing, non-tree entry (spec §3:
// NonTree(m) ≡ m ≠ 0 ∧ kind(m) ≠ tree).
func NonTree(m FileMode) bool {
	return m != ModeMissing && KindOf(m) != KindTree
}

// Slot indexes into the five parsed entries available at the current walk
// position. Modelled as a named enumeration (rather than bare ints) so it
// is never confused with Stage, a separate domain value.
type Slot int

const (
	SlotBase Slot = iota
	SlotOurs
	SlotTheirs
	SlotIndex
	SlotFile
)

// Stage is an index-entry slot: 0 is fully merged, 1/2/3 are the base/ours/
// theirs sides of an unresolved conflict.
type Stage int

const (
	StageMerged Stage = 0
	StageBase   Stage = 1
	StageOurs   Stage = 2
	StageTheirs Stage = 3
)

// IndexEntry is a path's entry in the index builder at a given stage.
type IndexEntry struct {
	Path     string
	Stage    Stage
	Mode     FileMode
	OID      OID
	ModTime  time.Time
	Size     uint32
}

// Clone returns a deep-enough copy of e (IndexOps.Keep must be identity on
// stage/mode/oid/modtime/size — spec §8 invariant 6).
func (e *IndexEntry) Clone() *IndexEntry {
	if e == nil {
		return nil
	}
	clone := *e
	return &clone
}

// MergeResult is the outcome of a line-level content merge: the rendered
// bytes (conflict markers included when containsConflicts is set) and
// whether any chunk was left unresolved.
type MergeResult struct {
	Content           []byte
	ContainsConflicts bool
}

// EmptyMergeResult returns a present-but-empty MergeResult, used in case
// C2b of the resolver when a mode conflict has no content to merge but the
// spec requires mergeResults[path] to still be populated (spec §9, open
// question 2: "a faithful implementation must preserve this; do not
// substitute absent").
func EmptyMergeResult() *MergeResult {
	return &MergeResult{}
}

// Side names which branch a MergeFilter chose to resolve a conflict with.
type Side int

const (
	SideOurs   Side = 1
	SideTheirs Side = 2
)

// MergeFilter optionally auto-resolves a conflict at path, returning which
// side should win.
type MergeFilter func(path string) Side

// FailReason classifies why a merge aborted at a given path. Distinct from
// a conflict: a failing path is not user-resolvable by re-running the
// merge, the merge itself must be retried.
type FailReason int

const (
	DirtyIndex FailReason = iota + 1
	DirtyWorktree
	CouldNotDelete
)

func (r FailReason) String() string {
	switch r {
	case DirtyIndex:
		return "DIRTY_INDEX"
	case DirtyWorktree:
		return "DIRTY_WORKTREE"
	case CouldNotDelete:
		return "COULD_NOT_DELETE"
	default:
		return "UNKNOWN"
	}
}

// WrittenFile is what WorkTreeOps.WriteMergedFile produced: the bytes that
// must be inserted into the object store as a blob, plus (when a working
// tree exists) the path and stat info of the file actually written.
//
// The original JGit-derived design routes this through a temporary file so
// the caller can re-read and hash its bytes; since this implementation
// already holds the rendered bytes in memory, WrittenFile carries them
// directly and Path is empty in in-core mode (nothing was written to
// disk).
type WrittenFile struct {
	Path    string
	Content []byte
	ModTime time.Time
	Size    int64
}

package merge

import (
	"time"

	"golang.org/x/text/unicode/norm"
)

// WorkTreeOps performs the working-tree side effects of a merge: creating
// parent directories, writing merged content, and checking out entries that
// trivially resolved to one side (spec §4.6). A nil Filesystem means the
// merge is running in-core and these become no-ops, matching the teacher's
// in-core-vs-worktree split in worktree_merge.go.
type WorkTreeOps struct {
	fs    Filesystem
	store ObjectStore
}

// normalizePath applies NFC Unicode normalization to a path before it
// touches a real filesystem, the same core.precomposeunicode concern real
// git handles so a decomposed-form path from one OS still matches a
// precomposed entry on another.
func normalizePath(path string) string {
	return norm.NFC.String(path)
}

// NewWorkTreeOps binds a Filesystem (nil for in-core merges) and the
// ObjectStore blobs are read from during checkout.
func NewWorkTreeOps(fs Filesystem, store ObjectStore) *WorkTreeOps {
	return &WorkTreeOps{fs: fs, store: store}
}

// InCore reports whether this WorkTreeOps has no backing filesystem.
func (w *WorkTreeOps) InCore() bool {
	return w.fs == nil
}

// CreateDir ensures path's parent directory chain exists. A no-op in-core.
func (w *WorkTreeOps) CreateDir(path string) error {
	if w.InCore() {
		return nil
	}
	return w.fs.MkdirAll(w.fs.Dir(normalizePath(path)))
}

// WriteMergedFile writes content to path in the working tree (when one
// exists), returning a WrittenFile the caller inserts into the object
// store. In-core, it returns content without touching any filesystem.
func (w *WorkTreeOps) WriteMergedFile(path string, content []byte) (*WrittenFile, error) {
	if w.InCore() {
		return &WrittenFile{Content: content}, nil
	}
	path = normalizePath(path)
	if err := w.CreateDir(path); err != nil {
		return nil, err
	}
	size, err := w.fs.WriteFile(path, content)
	if err != nil {
		return nil, err
	}
	return &WrittenFile{
		Path:    path,
		Content: content,
		ModTime: time.Now(),
		Size:    size,
	}, nil
}

// Checkout materialises oid's blob content at path, used when a side wins
// trivially and must be reflected in the working tree. A no-op in-core.
func (w *WorkTreeOps) Checkout(path string, mode FileMode, oid OID) (*WrittenFile, error) {
	if w.InCore() {
		return nil, nil
	}
	if mode == ModeMissing {
		return nil, w.Remove(path)
	}
	content, err := w.store.Open(oid)
	if err != nil {
		return nil, err
	}
	return w.WriteMergedFile(path, content)
}

// Remove deletes path from the working tree, tolerating its absence. A
// no-op in-core.
func (w *WorkTreeOps) Remove(path string) error {
	if w.InCore() {
		return nil
	}
	return w.fs.Remove(normalizePath(path))
}

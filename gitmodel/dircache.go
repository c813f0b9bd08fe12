package gitmodel

import (
	"os"

	"gopkg.in/src-d/go-git.v4/plumbing"
	"gopkg.in/src-d/go-git.v4/plumbing/filemode"
	"gopkg.in/src-d/go-git.v4/plumbing/format/index"
	"gopkg.in/src-d/go-git.v4/storage"

	billy "gopkg.in/src-d/go-billy.v4"

	"github.com/src-d/go-merge3/merge"
)

const lockFileName = "index.lock"

// DirCache adapts a go-git storage.Storer's persisted index to
// merge.DirCache. The exclusive lock is a plain create-exclusive file on
// the worktree's billy.Filesystem, standing in for git's index.lock
// convention; a nil fs (in-core merges) makes locking a no-op.
type DirCache struct {
	storer storage.Storer
	fs     billy.Filesystem
	lock   billy.File
}

// NewDirCache wraps storer (typically storage/filesystem.Storage) and the
// worktree filesystem the lock file lives on.
func NewDirCache(storer storage.Storer, fs billy.Filesystem) *DirCache {
	return &DirCache{storer: storer, fs: fs}
}

func (d *DirCache) Lock() error {
	if d.fs == nil {
		return nil
	}
	f, err := d.fs.OpenFile(lockFileName, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	d.lock = f
	return nil
}

func (d *DirCache) Unlock() error {
	if d.lock == nil {
		return nil
	}
	d.lock.Close()
	d.lock = nil
	return d.fs.Remove(lockFileName)
}

func (d *DirCache) GetEntry(path string) (*merge.IndexEntry, bool, error) {
	idx, err := d.storer.Index()
	if err != nil {
		return nil, false, err
	}
	for _, e := range idx.Entries {
		if e.Name == path && e.Stage == index.Stage(merge.StageMerged) {
			return fromIndexEntry(e), true, nil
		}
	}
	return nil, false, nil
}

func (d *DirCache) NewBuilder() merge.DirCacheBuilder {
	return &dirCacheBuilder{dc: d}
}

// WriteTree flushes the committed index into the tree-object hierarchy it
// represents (treebuilder.go) and returns the root tree's OID.
func (d *DirCache) WriteTree() (merge.OID, error) {
	idx, err := d.storer.Index()
	if err != nil {
		return merge.ZeroOID, err
	}
	hash, err := newTreeBuilder(d.storer).BuildTree(idx)
	if err != nil {
		return merge.ZeroOID, err
	}
	return merge.OID(hash), nil
}

type dirCacheBuilder struct {
	dc      *DirCache
	entries []*index.Entry
}

func (b *dirCacheBuilder) Add(entry *merge.IndexEntry) error {
	b.entries = append(b.entries, toIndexEntry(entry))
	return nil
}

func (b *dirCacheBuilder) Commit() error {
	idx := &index.Index{Version: 2, Entries: b.entries}
	return b.dc.storer.SetIndex(idx)
}

func (b *dirCacheBuilder) Finish() error {
	b.entries = nil
	return nil
}

func toIndexEntry(e *merge.IndexEntry) *index.Entry {
	return &index.Entry{
		Name:       e.Path,
		Stage:      index.Stage(e.Stage),
		Mode:       filemode.FileMode(e.Mode),
		Hash:       plumbing.Hash(e.OID),
		Size:       e.Size,
		ModifiedAt: e.ModTime,
	}
}

func fromIndexEntry(e *index.Entry) *merge.IndexEntry {
	return &merge.IndexEntry{
		Path:    e.Name,
		Stage:   merge.Stage(e.Stage),
		Mode:    merge.FileMode(e.Mode),
		OID:     merge.OID(e.Hash),
		ModTime: e.ModifiedAt,
		Size:    e.Size,
	}
}

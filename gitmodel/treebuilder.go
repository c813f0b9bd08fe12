package gitmodel

import (
	"path"
	"sort"
	"strings"

	"gopkg.in/src-d/go-git.v4/plumbing"
	"gopkg.in/src-d/go-git.v4/plumbing/filemode"
	"gopkg.in/src-d/go-git.v4/plumbing/format/index"
	"gopkg.in/src-d/go-git.v4/plumbing/object"
	"gopkg.in/src-d/go-git.v4/storage"
)

// treeBuilder converts a flat index into the git tree-object hierarchy it
// represents, writing every intermediate tree into the object store.
//
// Adapted from worktree_commit.go's buildTreeHelper: stripped of the
// billy.Filesystem field that helper carried but never read from, and
// restricted to stage-0 entries since a tree can only be built from a
// fully resolved index.
type treeBuilder struct {
	storer storage.Storer

	trees   map[string]*object.Tree
	entries map[string]*object.TreeEntry
}

func newTreeBuilder(storer storage.Storer) *treeBuilder {
	return &treeBuilder{storer: storer}
}

// BuildTree stores every tree object implied by idx's stage-0 entries and
// returns the root tree's hash.
func (b *treeBuilder) BuildTree(idx *index.Index) (plumbing.Hash, error) {
	const rootNode = ""
	b.trees = map[string]*object.Tree{rootNode: {}}
	b.entries = map[string]*object.TreeEntry{}

	for _, e := range idx.Entries {
		if e.Stage != index.Stage(0) {
			continue
		}
		b.commitIndexEntry(e)
	}

	return b.copyTreeToStorage(rootNode, b.trees[rootNode])
}

func (b *treeBuilder) commitIndexEntry(e *index.Entry) {
	parts := strings.Split(e.Name, "/")

	var fullpath string
	for _, part := range parts {
		parent := fullpath
		fullpath = path.Join(fullpath, part)
		b.growTree(e, parent, fullpath)
	}
}

func (b *treeBuilder) growTree(e *index.Entry, parent, fullpath string) {
	if _, ok := b.trees[fullpath]; ok {
		return
	}
	if _, ok := b.entries[fullpath]; ok {
		return
	}

	te := object.TreeEntry{Name: path.Base(fullpath)}
	if fullpath == e.Name {
		te.Mode = e.Mode
		te.Hash = e.Hash
		b.entries[fullpath] = &te
	} else {
		te.Mode = filemode.Dir
		b.trees[fullpath] = &object.Tree{}
	}

	b.trees[parent].Entries = append(b.trees[parent].Entries, te)
}

type sortableTreeEntries []object.TreeEntry

func (sortableTreeEntries) sortKey(te object.TreeEntry) string {
	if te.Mode == filemode.Dir {
		return te.Name + "/"
	}
	return te.Name
}
func (s sortableTreeEntries) Len() int           { return len(s) }
func (s sortableTreeEntries) Less(i, j int) bool { return s.sortKey(s[i]) < s.sortKey(s[j]) }
func (s sortableTreeEntries) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }

func (b *treeBuilder) copyTreeToStorage(parent string, t *object.Tree) (plumbing.Hash, error) {
	sort.Sort(sortableTreeEntries(t.Entries))
	for i, e := range t.Entries {
		if e.Mode != filemode.Dir && !e.Hash.IsZero() {
			continue
		}
		childPath := path.Join(parent, e.Name)
		hash, err := b.copyTreeToStorage(childPath, b.trees[childPath])
		if err != nil {
			return plumbing.ZeroHash, err
		}
		e.Hash = hash
		t.Entries[i] = e
	}

	obj := b.storer.NewEncodedObject()
	if err := t.Encode(obj); err != nil {
		return plumbing.ZeroHash, err
	}
	return b.storer.SetEncodedObject(obj)
}

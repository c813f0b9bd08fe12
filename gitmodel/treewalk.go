package gitmodel

import (
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/src-d/go-git.v4/plumbing"
	"gopkg.in/src-d/go-git.v4/plumbing/filemode"
	"gopkg.in/src-d/go-git.v4/plumbing/format/index"
	"gopkg.in/src-d/go-git.v4/plumbing/object"
	"gopkg.in/src-d/go-git.v4/storage"

	billy "gopkg.in/src-d/go-billy.v4"

	"github.com/src-d/go-merge3/merge"
)

// TreeWalk is a synchronised pre-order walk over a BASE, OURS and THEIRS
// tree, the index and (optionally) a working tree, implementing
// merge.TreeWalk. It generalises the diff-and-merge bookkeeping
// getMergingDiff/compareCommitsChanges perform over merkletrie.DiffTree in
// worktree_merge.go into a single three-way synchronised descent, so a
// path's three sides are always compared at the same cursor position
// instead of reconciled from two independent two-way diffs afterwards.
//
// Descent is lazy: EnterSubtree loads a subtree's children only when the
// resolver asks for them, matching the pre-order contract the core relies
// on for cases where it deliberately skips a conflicting subtree (C5).
type TreeWalk struct {
	storer storage.Storer
	fs     billy.Filesystem // nil for in-core merges

	stack []*level
	cur   position

	pending *pendingSubtree
	err     error
}

type level struct {
	path string

	names []string
	idx   int

	baseEntries, oursEntries, theirsEntries map[string]object.TreeEntry
	indexNode                               *indexNode
}

type position struct {
	path      string
	modes     [5]merge.FileMode
	oids      [5]merge.OID
	isSubtree bool
	hasFile   bool
}

type pendingSubtree struct {
	path                         string
	baseHash, oursHash, theirsHash plumbing.Hash
	hasBase, hasOurs, hasTheirs  bool
	indexNode                    *indexNode
}

// indexNode is the index's flat path list reshaped into a directory tree so
// it can be merged level-by-level against the git tree objects, the same
// shape treebuilder.go's entries/trees maps use going the other direction.
type indexNode struct {
	entry    *index.Entry
	children map[string]*indexNode
}

func buildIndexTree(idx *index.Index) *indexNode {
	root := &indexNode{children: map[string]*indexNode{}}
	if idx == nil {
		return root
	}
	for _, e := range idx.Entries {
		if e.Stage != index.Stage(merge.StageMerged) {
			continue
		}
		parts := strings.Split(e.Name, "/")
		cur := root
		for i, part := range parts {
			if i == len(parts)-1 {
				cur.children[part] = &indexNode{entry: e}
				continue
			}
			child, ok := cur.children[part]
			if !ok || child.children == nil {
				child = &indexNode{children: map[string]*indexNode{}}
				cur.children[part] = child
			}
			cur = child
		}
	}
	return root
}

// NewTreeWalkFactory returns a merge.TreeWalkFactory loading BASE/OURS/
// THEIRS trees and the index from storer, and comparing working-tree state
// against fs (nil for an in-core merge).
func NewTreeWalkFactory(storer storage.Storer, fs billy.Filesystem) merge.TreeWalkFactory {
	return func(base, ours, theirs merge.OID, _ merge.DirCacheBuilder) (merge.TreeWalk, error) {
		baseTree, err := loadTree(storer, base)
		if err != nil {
			return nil, err
		}
		oursTree, err := loadTree(storer, ours)
		if err != nil {
			return nil, err
		}
		theirsTree, err := loadTree(storer, theirs)
		if err != nil {
			return nil, err
		}
		idx, err := storer.Index()
		if err != nil {
			return nil, err
		}

		w := &TreeWalk{storer: storer, fs: fs}
		w.stack = []*level{newLevel("", baseTree, oursTree, theirsTree, buildIndexTree(idx))}
		return w, nil
	}
}

func loadTree(storer storage.Storer, oid merge.OID) (*object.Tree, error) {
	if oid.IsZero() {
		return nil, nil
	}
	return object.GetTree(storer, plumbing.Hash(oid))
}

func treeEntryMap(t *object.Tree) map[string]object.TreeEntry {
	m := map[string]object.TreeEntry{}
	if t == nil {
		return m
	}
	for _, e := range t.Entries {
		m[e.Name] = e
	}
	return m
}

func newLevel(path string, base, ours, theirs *object.Tree, idxNode *indexNode) *level {
	lvl := &level{
		path:          path,
		baseEntries:   treeEntryMap(base),
		oursEntries:   treeEntryMap(ours),
		theirsEntries: treeEntryMap(theirs),
		indexNode:     idxNode,
	}

	set := map[string]bool{}
	for name := range lvl.baseEntries {
		set[name] = true
	}
	for name := range lvl.oursEntries {
		set[name] = true
	}
	for name := range lvl.theirsEntries {
		set[name] = true
	}
	if idxNode != nil {
		for name := range idxNode.children {
			set[name] = true
		}
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	lvl.names = names
	return lvl
}

func isDirMode(m merge.FileMode) bool { return m == merge.ModeTree }

func (w *TreeWalk) Next() (bool, error) {
	if w.err != nil {
		return false, w.err
	}

	for len(w.stack) > 0 {
		top := w.stack[len(w.stack)-1]
		if top.idx >= len(top.names) {
			w.stack = w.stack[:len(w.stack)-1]
			continue
		}
		name := top.names[top.idx]
		top.idx++

		fullPath := name
		if top.path != "" {
			fullPath = top.path + "/" + name
		}

		var pos position
		pos.path = fullPath

		pc := &pendingSubtree{path: fullPath}

		if e, ok := top.baseEntries[name]; ok {
			pos.modes[merge.SlotBase] = merge.FileMode(e.Mode)
			pos.oids[merge.SlotBase] = merge.OID(e.Hash)
			if e.Mode == filemode.Dir {
				pc.hasBase, pc.baseHash = true, e.Hash
			}
		}
		if e, ok := top.oursEntries[name]; ok {
			pos.modes[merge.SlotOurs] = merge.FileMode(e.Mode)
			pos.oids[merge.SlotOurs] = merge.OID(e.Hash)
			if e.Mode == filemode.Dir {
				pc.hasOurs, pc.oursHash = true, e.Hash
			}
		}
		if e, ok := top.theirsEntries[name]; ok {
			pos.modes[merge.SlotTheirs] = merge.FileMode(e.Mode)
			pos.oids[merge.SlotTheirs] = merge.OID(e.Hash)
			if e.Mode == filemode.Dir {
				pc.hasTheirs, pc.theirsHash = true, e.Hash
			}
		}

		var childIdx *indexNode
		if top.indexNode != nil {
			if n, ok := top.indexNode.children[name]; ok {
				childIdx = n
				if n.entry != nil {
					pos.modes[merge.SlotIndex] = merge.FileMode(n.entry.Mode)
					pos.oids[merge.SlotIndex] = merge.OID(n.entry.Hash)
				}
			}
		}
		pc.indexNode = childIdx

		if w.fs != nil {
			has, mode, oid, err := w.statWorkingFile(fullPath)
			if err != nil {
				return false, err
			}
			pos.hasFile = has
			if has {
				pos.modes[merge.SlotFile] = mode
				pos.oids[merge.SlotFile] = oid
			}
		}

		pos.isSubtree = isDirMode(pos.modes[merge.SlotBase]) ||
			isDirMode(pos.modes[merge.SlotOurs]) ||
			isDirMode(pos.modes[merge.SlotTheirs]) ||
			(childIdx != nil && childIdx.entry == nil)

		w.cur = pos
		w.pending = pc
		return true, nil
	}
	return false, nil
}

func (w *TreeWalk) Path() string           { return w.cur.path }
func (w *TreeWalk) IsSubtree() bool        { return w.cur.isSubtree }
func (w *TreeWalk) Mode(slot merge.Slot) merge.FileMode { return w.cur.modes[slot] }
func (w *TreeWalk) OID(slot merge.Slot) merge.OID       { return w.cur.oids[slot] }

func (w *TreeWalk) IDEqual(a, b merge.Slot) bool {
	return w.cur.oids[a] == w.cur.oids[b]
}

func (w *TreeWalk) HasWorkingTree() bool { return w.fs != nil }

func (w *TreeWalk) WorkingModeDiffers(mode merge.FileMode) bool {
	if !w.cur.hasFile {
		return false
	}
	return w.cur.modes[merge.SlotFile] != mode
}

// EnterSubtree loads whichever of BASE/OURS/THEIRS held a tree at the
// cursor's current path and pushes their merged child listing. A no-op
// when the cursor isn't on a subtree or a prior Next() already consumed
// the pending descent.
func (w *TreeWalk) EnterSubtree() {
	if w.pending == nil {
		return
	}
	pc := w.pending
	w.pending = nil

	var baseTree, oursTree, theirsTree *object.Tree
	var err error
	if pc.hasBase {
		if baseTree, err = object.GetTree(w.storer, pc.baseHash); err != nil {
			w.err = err
			return
		}
	}
	if pc.hasOurs {
		if oursTree, err = object.GetTree(w.storer, pc.oursHash); err != nil {
			w.err = err
			return
		}
	}
	if pc.hasTheirs {
		if theirsTree, err = object.GetTree(w.storer, pc.theirsHash); err != nil {
			w.err = err
			return
		}
	}

	w.stack = append(w.stack, newLevel(pc.path, baseTree, oursTree, theirsTree, pc.indexNode))
}

// statWorkingFile compares the working-tree entry at path against the
// index, computing the git blob hash a regular file or symlink's content
// would have so IDEqual(SlotFile, SlotIndex) can be a plain OID comparison
// (mirroring WorkingTreeIterator's on-demand hashing in worktree_merge.go).
func (w *TreeWalk) statWorkingFile(path string) (bool, merge.FileMode, merge.OID, error) {
	info, err := w.fs.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, merge.ModeMissing, merge.ZeroOID, nil
		}
		return false, merge.ModeMissing, merge.ZeroOID, err
	}

	if info.IsDir() {
		return true, merge.ModeTree, merge.ZeroOID, nil
	}

	var content []byte
	mode := merge.ModeRegular

	if info.Mode()&os.ModeSymlink != 0 {
		target, err := w.fs.Readlink(path)
		if err != nil {
			return false, merge.ModeMissing, merge.ZeroOID, err
		}
		content = []byte(target)
		mode = merge.ModeSymlink
	} else {
		f, err := w.fs.Open(path)
		if err != nil {
			return false, merge.ModeMissing, merge.ZeroOID, err
		}
		content, err = io.ReadAll(f)
		f.Close()
		if err != nil {
			return false, merge.ModeMissing, merge.ZeroOID, err
		}
		if info.Mode()&0111 != 0 {
			mode = merge.ModeExecutable
		}
	}

	hash := plumbing.ComputeHash(plumbing.BlobObject, content)
	return true, mode, merge.OID(hash), nil
}

// Package gitmodel adapts package merge's collaborator interfaces
// (ObjectStore, DirCache, TreeWalk, Filesystem) onto gopkg.in/src-d/go-git.v4
// and gopkg.in/src-d/go-billy.v4, the way worktree_merge.go and storage.go
// wired the teacher's own merge support directly onto those libraries.
package gitmodel

import (
	"github.com/src-d/go-merge3/diff3"
	"github.com/src-d/go-merge3/merge"
)

// ContentAlgorithm adapts diff3.Algorithm to merge.Algorithm, holding the
// configured commit names and conflict style so Merger.SetCommitNames can
// reach them through the merge.NamesSetter hook.
type ContentAlgorithm struct {
	algo  *diff3.Algorithm
	cmp   diff3.Comparator
	names diff3.Names
	style diff3.ConflictStyle
}

// NewContentAlgorithm builds an adapter with git's default conflict style.
func NewContentAlgorithm() *ContentAlgorithm {
	return &ContentAlgorithm{
		algo:  diff3.New(),
		cmp:   diff3.DefaultComparator,
		names: diff3.DefaultNames(),
		style: diff3.StyleMerge,
	}
}

// SetConflictStyle switches between git's merge and diff3 conflict marker
// styles, mirroring the merge.conflictstyle config key.
func (a *ContentAlgorithm) SetConflictStyle(style diff3.ConflictStyle) {
	a.style = style
}

// SetNames implements merge.NamesSetter.
func (a *ContentAlgorithm) SetNames(base, ours, theirs string) {
	a.names = diff3.Names{Base: base, Ours: ours, Theirs: theirs}
}

// Merge implements merge.Algorithm.
func (a *ContentAlgorithm) Merge(base, ours, theirs []byte) (*merge.MergeResult, error) {
	result, err := a.algo.Merge(
		a.cmp,
		diff3.NewRawText(base),
		diff3.NewRawText(ours),
		diff3.NewRawText(theirs),
		a.names,
		a.style,
	)
	if err != nil {
		return nil, err
	}
	return &merge.MergeResult{
		Content:           result.Content,
		ContainsConflicts: result.HasConflicts(),
	}, nil
}

// Package mergebase computes the common-ancestor commit a three-way merge
// should use as BASE, including the "virtual merge base" git falls back to
// when a pair of commits has more than one best common ancestor.
//
// Adapted from worktree_priority_queue.go's PriorityQueue (the generation-
// number-ordered ancestor walk container) and worktree_merge.go's
// getCommonParents/createVirtualParent, generalised to run ahead of package
// merge instead of inline inside a single commit/merge call.
package mergebase

import (
	"container/heap"
	"fmt"

	"gopkg.in/src-d/go-git.v4/plumbing/object"
	"gopkg.in/src-d/go-git.v4/storage"

	"github.com/src-d/go-merge3/merge"
)

const (
	markNone uint32 = 1 << iota
	markOurs
	markTheirs
	markStale
	markResult
)

type prioritizedCommit struct {
	value    *object.Commit
	flags    uint32
	priority int64 // commit author timestamp, used as a generation proxy
	index    int
}

type priorityQueue []*prioritizedCommit

func (pq priorityQueue) Len() int            { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool  { return pq[i].priority > pq[j].priority }
func (pq priorityQueue) Swap(i, j int)       { pq[i], pq[j] = pq[j], pq[i]; pq[i].index = i; pq[j].index = j }

func (pq *priorityQueue) Push(x interface{}) {
	item := x.(*prioritizedCommit)
	for _, el := range *pq {
		if el.value.Hash == item.value.Hash {
			el.flags |= item.flags
			return
		}
	}
	item.index = len(*pq)
	*pq = append(*pq, item)
}

func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	item.index = -1
	*pq = old[:n-1]
	return item
}

func (pq priorityQueue) interesting() bool {
	for _, el := range pq {
		if el.flags&markStale == 0 {
			return true
		}
	}
	return false
}

func markCommit(c *object.Commit, flags uint32) *prioritizedCommit {
	return &prioritizedCommit{value: c, flags: flags, priority: c.Author.When.Unix()}
}

func parentsOf(storer storage.Storer, c *object.Commit) ([]*object.Commit, error) {
	res := make([]*object.Commit, 0, len(c.ParentHashes))
	for _, h := range c.ParentHashes {
		p, err := object.GetCommit(storer, h)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, nil
}

// CommonAncestors returns every best common ancestor of ours and theirs, in
// the same generation-ordered walk getCommonParents performs: both commits
// are pushed onto a max-heap keyed by author time, the heap is drained in
// timestamp order, and a commit reachable from both sides (before either
// side marks it stale) is recorded as a result.
func CommonAncestors(storer storage.Storer, ours, theirs *object.Commit) ([]*object.Commit, error) {
	pq := make(priorityQueue, 0)
	heap.Init(&pq)
	heap.Push(&pq, markCommit(ours, markOurs))
	heap.Push(&pq, markCommit(theirs, markTheirs))

	var res []*object.Commit

	for pq.interesting() {
		el := heap.Pop(&pq).(*prioritizedCommit)
		flags := el.flags & (markOurs | markTheirs | markStale)

		if flags == (markOurs | markTheirs) {
			if el.flags&markResult == 0 {
				el.flags |= markResult
				res = append(res, el.value)
			}
			flags |= markStale
		}

		parents, err := parentsOf(storer, el.value)
		if err != nil {
			return nil, err
		}
		for _, p := range parents {
			heap.Push(&pq, markCommit(p, flags))
		}
	}

	return res, nil
}

// Resolve picks the single BASE tree a merge should run against: the lone
// common ancestor's tree when there is exactly one. With more than one, it
// folds them pairwise left to right, calling merger(base, base, next) for
// each further ancestor and using the returned tree as the new base; this
// is a single pass, with no recursive computation of further virtual
// ancestors.
//
// merger is supplied by the caller (typically orchestrate) so this package
// never imports gitmodel directly; it only needs a way to run the same
// merge core over tree OIDs.
func Resolve(storer storage.Storer, ours, theirs *object.Commit, merger func(base, a, b merge.OID) (merge.OID, error)) (merge.OID, error) {
	ancestors, err := CommonAncestors(storer, ours, theirs)
	if err != nil {
		return merge.ZeroOID, err
	}
	if len(ancestors) == 0 {
		return merge.ZeroOID, fmt.Errorf("mergebase: no common ancestor between %s and %s", ours.Hash, theirs.Hash)
	}
	if len(ancestors) == 1 {
		return treeOID(ancestors[0])
	}

	base, err := treeOID(ancestors[0])
	if err != nil {
		return merge.ZeroOID, err
	}
	for i := 1; i < len(ancestors); i++ {
		next, err := treeOID(ancestors[i])
		if err != nil {
			return merge.ZeroOID, err
		}
		merged, err := merger(base, base, next)
		if err != nil {
			return merge.ZeroOID, err
		}
		base = merged
	}
	return base, nil
}

func treeOID(c *object.Commit) (merge.OID, error) {
	return merge.OID(c.TreeHash), nil
}

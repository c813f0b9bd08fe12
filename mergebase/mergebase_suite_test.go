package mergebase_test

import (
	"testing"

	. "gopkg.in/check.v1"

	"gopkg.in/src-d/go-git.v4/plumbing"
	"gopkg.in/src-d/go-git.v4/plumbing/cache"
	"gopkg.in/src-d/go-git.v4/plumbing/object"
	"gopkg.in/src-d/go-git.v4/storage/filesystem"

	fixtures "gopkg.in/src-d/go-git-fixtures.v3"

	"github.com/src-d/go-merge3/mergebase"
)

// Suite-style end-to-end test against a real on-disk repository fixture,
// the same gopkg.in/src-d/go-git-fixtures.v3 convention go-git.v4's own
// test suite uses (fixtures.Init/Clean via fixtures.Suite, gocheck
// assertions), exercising CommonAncestors against real commit objects
// instead of the hand-rolled commit graphs merge_test.go's
// getCommonParentsTests used alongside a zipped dotgit fixture this pack
// did not retrieve.
func Test(t *testing.T) { TestingT(t) }

type MergeBaseSuite struct {
	fixtures.Suite
}

var _ = Suite(&MergeBaseSuite{})

// A commit and its own parent have exactly one common ancestor: the
// parent itself.
func (s *MergeBaseSuite) TestCommonAncestorWithParent(c *C) {
	f := fixtures.Basic().One()
	storer := filesystem.NewStorage(f.DotGit(), cache.NewObjectLRUDefault())

	ref, err := storer.Reference(plumbing.HEAD)
	c.Assert(err, IsNil)

	headCommit, err := object.GetCommit(storer, ref.Hash())
	c.Assert(err, IsNil)
	c.Assert(headCommit.NumParents() > 0, Equals, true)

	parent, err := headCommit.Parent(0)
	c.Assert(err, IsNil)

	ancestors, err := mergebase.CommonAncestors(storer, headCommit, parent)
	c.Assert(err, IsNil)
	c.Assert(ancestors, HasLen, 1)
	c.Assert(ancestors[0].Hash, Equals, parent.Hash)
}

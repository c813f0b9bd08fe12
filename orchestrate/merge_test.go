package orchestrate_test

import (
	"io/ioutil"
	"testing"
	"time"

	gogit "gopkg.in/src-d/go-git.v4"
	"gopkg.in/src-d/go-git.v4/plumbing"
	"gopkg.in/src-d/go-git.v4/plumbing/object"
	"gopkg.in/src-d/go-git.v4/storage/memory"

	billymemfs "gopkg.in/src-d/go-billy.v4/memfs"

	"github.com/src-d/go-merge3/gitmodel"
	"github.com/src-d/go-merge3/orchestrate"
)

var testWhen = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

func sig(name string) *object.Signature {
	return &object.Signature{Name: name, Email: name + "@example.com", When: testWhen}
}

func writeCommit(t *testing.T, wt *gogit.Worktree, path, content, msg string) plumbing.Hash {
	t.Helper()
	f, err := wt.Filesystem.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	f.Close()

	if _, err := wt.Add(path); err != nil {
		t.Fatal(err)
	}
	hash, err := wt.Commit(msg, &gogit.CommitOptions{Author: sig("tester")})
	if err != nil {
		t.Fatal(err)
	}
	return hash
}

func newRepo(t *testing.T) (*gogit.Repository, *gogit.Worktree) {
	t.Helper()
	fs := billymemfs.New()
	repo, err := gogit.Init(memory.NewStorage(), fs)
	if err != nil {
		t.Fatal(err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	return repo, wt
}

func checkout(t *testing.T, wt *gogit.Worktree, branch string, create bool) {
	t.Helper()
	if err := wt.Checkout(&gogit.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branch),
		Create: create,
	}); err != nil {
		t.Fatal(err)
	}
}

// Two branches editing the same line of the same file must come back as a
// content conflict.
func TestSessionMergeConflicting(t *testing.T) {
	repo, wt := newRepo(t)
	writeCommit(t, wt, "a.txt", "base\n", "base")

	checkout(t, wt, "feature", true)
	writeCommit(t, wt, "a.txt", "theirs\n", "theirs")

	checkout(t, wt, "master", false)
	writeCommit(t, wt, "a.txt", "ours\n", "ours")

	session := orchestrate.NewSession(repo, wt.Filesystem, gitmodel.NewContentAlgorithm(), nil)
	_, err := session.Merge("feature")
	if err != orchestrate.ErrMergeWithConflicts {
		t.Fatalf("Merge() error = %v, want ErrMergeWithConflicts", err)
	}

	entries, err := session.ConflictEntries()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := entries["a.txt"]; !ok {
		t.Errorf("expected a.txt to be conflicted, got %v", entries)
	}
}

// Edits to disjoint files merge cleanly and leave a commit ready to make.
func TestSessionMergeCleanThenCommit(t *testing.T) {
	repo, wt := newRepo(t)
	writeCommit(t, wt, "a.txt", "base\n", "base")

	checkout(t, wt, "feature", true)
	writeCommit(t, wt, "b.txt", "from feature\n", "add b")

	checkout(t, wt, "master", false)
	writeCommit(t, wt, "c.txt", "from master\n", "add c")

	session := orchestrate.NewSession(repo, wt.Filesystem, gitmodel.NewContentAlgorithm(), nil)
	result, err := session.Merge("feature")
	if err != orchestrate.ErrMergeCommitNeeded {
		t.Fatalf("Merge() error = %v, want ErrMergeCommitNeeded", err)
	}
	if result.Conflicts {
		t.Fatalf("expected a clean merge, got conflicts")
	}

	hash, err := session.Commit(result.Message, &orchestrate.CommitOptions{Author: sig("merger")})
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if hash.IsZero() {
		t.Fatalf("expected a non-zero commit hash")
	}

	commit, err := object.GetCommit(repo.Storer, hash)
	if err != nil {
		t.Fatal(err)
	}
	if len(commit.ParentHashes) != 2 {
		t.Errorf("expected a two-parent merge commit, got %d parents", len(commit.ParentHashes))
	}

	content, err := ioutil.ReadAll(mustOpen(t, wt, "b.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "from feature\n" {
		t.Errorf("b.txt = %q, want %q", content, "from feature\n")
	}
}

// When HEAD is an ancestor of the merged branch, Merge fast-forwards
// without running the merge core at all.
func TestSessionMergeFastForward(t *testing.T) {
	repo, wt := newRepo(t)
	writeCommit(t, wt, "a.txt", "base\n", "base")
	checkout(t, wt, "feature", true)
	ahead := writeCommit(t, wt, "a.txt", "ahead\n", "ahead")

	checkout(t, wt, "master", false)

	session := orchestrate.NewSession(repo, wt.Filesystem, gitmodel.NewContentAlgorithm(), nil)
	result, err := session.Merge("feature")
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if !result.FastForward {
		t.Fatalf("expected a fast-forward merge")
	}

	head, err := repo.Head()
	if err != nil {
		t.Fatal(err)
	}
	if head.Hash() != ahead {
		t.Errorf("HEAD = %s, want %s", head.Hash(), ahead)
	}
}

func mustOpen(t *testing.T, wt *gogit.Worktree, path string) interface {
	Read([]byte) (int, error)
} {
	t.Helper()
	f, err := wt.Filesystem.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

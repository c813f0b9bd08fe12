package orchestrate

import (
	"bytes"
	"time"

	"golang.org/x/crypto/openpgp"
	"gopkg.in/src-d/go-git.v4/plumbing"
	"gopkg.in/src-d/go-git.v4/plumbing/object"
)

// CommitOptions configures the merge commit Commit produces. Author and
// Committer default to the same signature when Committer is nil, mirroring
// buildCommitObject's zero-value handling.
type CommitOptions struct {
	Author    *object.Signature
	Committer *object.Signature
	SignKey   *openpgp.Entity
}

func (o *CommitOptions) validate() error {
	if o.Author == nil {
		return ErrMissingAuthor
	}
	if o.Committer == nil {
		o.Committer = o.Author
	}
	if o.Author.When.IsZero() {
		o.Author.When = timeNow()
	}
	if o.Committer.When.IsZero() {
		o.Committer.When = o.Author.When
	}
	return nil
}

// timeNow exists so tests can stub commit timestamps deterministically.
var timeNow = time.Now

// Commit finalises a resolved merge into a new commit with two parents
// (HEAD and MERGE_HEAD), updates HEAD to point at it and clears the
// MERGE_HEAD/ORIG_HEAD/MERGE_MSG bookkeeping Merge left behind. Adapted
// from worktree_commit.go's Worktree.Commit, built on the result tree
// package merge already wrote rather than re-walking the index with a
// buildTreeHelper.
func (s *Session) Commit(msg string, opts *CommitOptions) (plumbing.Hash, error) {
	if s.driver == nil {
		return plumbing.ZeroHash, ErrNothingToCommit
	}
	if err := opts.validate(); err != nil {
		return plumbing.ZeroHash, err
	}

	tree, ok := s.driver.ResultTreeID()
	if !ok {
		if s.driver.Failed() || len(s.driver.UnmergedPaths()) != 0 {
			return plumbing.ZeroHash, ErrHasUnmergedFiles
		}
		return plumbing.ZeroHash, ErrNothingToCommit
	}

	head, err := s.repo.Reference(plumbing.HEAD, true)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	mergeHead, err := s.repo.Reference(mergeHeadRef, false)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	commit := &object.Commit{
		Author:       *opts.Author,
		Committer:    *opts.Committer,
		Message:      msg,
		TreeHash:     plumbing.Hash(tree),
		ParentHashes: []plumbing.Hash{head.Hash(), mergeHead.Hash()},
	}

	if opts.SignKey != nil {
		sig, err := s.buildCommitSignature(commit, opts.SignKey)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		commit.PGPSignature = sig
	}

	obj := s.repo.Storer.NewEncodedObject()
	if err := commit.Encode(obj); err != nil {
		return plumbing.ZeroHash, err
	}
	hash, err := s.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	headName := plumbing.HEAD
	if head.Type() != plumbing.HashReference {
		headName = head.Target()
	}
	if err := s.repo.Storer.SetReference(plumbing.NewHashReference(headName, hash)); err != nil {
		return hash, err
	}

	if err := s.repo.Storer.RemoveReference(mergeHeadRef); err != nil {
		return hash, err
	}
	if err := s.repo.Storer.RemoveReference(origHeadRef); err != nil && err != plumbing.ErrReferenceNotFound {
		return hash, err
	}
	if s.workFS != nil {
		_ = s.workFS.Remove(mergeMsgPath)
	}

	return hash, nil
}

func (s *Session) buildCommitSignature(commit *object.Commit, signKey *openpgp.Entity) (string, error) {
	encoded := &plumbing.MemoryObject{}
	if err := commit.Encode(encoded); err != nil {
		return "", err
	}
	r, err := encoded.Reader()
	if err != nil {
		return "", err
	}
	var b bytes.Buffer
	if err := openpgp.ArmoredDetachSign(&b, signKey, r, nil); err != nil {
		return "", err
	}
	return b.String(), nil
}

package orchestrate

import (
	gogit "gopkg.in/src-d/go-git.v4"
	"gopkg.in/src-d/go-git.v4/plumbing"
)

// AbortMerge undoes an in-progress, uncommitted merge: the working tree and
// index are hard-reset to ORIG_HEAD and the MERGE_HEAD/ORIG_HEAD/MERGE_MSG
// bookkeeping is cleared. Adapted from Worktree.AbortMerge, using the real
// go-git.v4 Worktree.Reset/ResetOptions instead of the teacher's bespoke
// removeMergeHead/removeOrigHead pair, since those operate on genuine
// public API rather than the extended Storer this package otherwise avoids.
func (s *Session) AbortMerge() error {
	origHead, err := s.repo.Reference(origHeadRef, false)
	if err != nil {
		return err
	}

	if s.workFS != nil {
		wt, err := s.repo.Worktree()
		if err == nil {
			if err := wt.Reset(&gogit.ResetOptions{Commit: origHead.Hash(), Mode: gogit.HardReset}); err != nil {
				return err
			}
		}
	}

	if err := s.repo.Storer.RemoveReference(mergeHeadRef); err != nil && err != plumbing.ErrReferenceNotFound {
		return err
	}
	if err := s.repo.Storer.RemoveReference(origHeadRef); err != nil && err != plumbing.ErrReferenceNotFound {
		return err
	}
	if s.workFS != nil {
		_ = s.workFS.Remove(mergeMsgPath)
	}

	s.driver = nil
	return nil
}

// Package orchestrate is the high-level merge workflow a CLI or service
// drives: fast-forward detection, MERGE_HEAD/ORIG_HEAD bookkeeping, commit
// message composition and the final commit, all built on top of package
// merge's per-path core, gitmodel's go-git adapters and mergebase's
// ancestor computation.
//
// Adapted from worktree_merge.go's Worktree.Merge/nonFastForwardMerge/
// logMergeConflicts and worktree_commit.go's Worktree.Commit.
package orchestrate

import "errors"

var (
	// ErrMergeInProgress mirrors git refusing to start a new merge while
	// MERGE_HEAD already exists.
	ErrMergeInProgress = errors.New("fatal: you have not concluded your merge (MERGE_HEAD exists); commit your changes before you merge")

	// ErrMergeCommitNeeded is returned by Merge when it resolved cleanly
	// and is waiting for the caller to call Commit.
	ErrMergeCommitNeeded = errors.New("create merge commit to continue merge process")

	// ErrMergeWithConflicts is returned by Merge when one or more paths
	// were left conflicted.
	ErrMergeWithConflicts = errors.New("automatic merge failed; fix conflicts and then commit the result")

	// ErrHasUncommittedFiles describes a merge refused because it would
	// clobber uncommitted work. Merge does not return it: a merge the core
	// aborts on a dirty index or working-tree path comes back as
	// ErrMergeWithConflicts.
	ErrHasUncommittedFiles = errors.New("error: your local changes would be overwritten by merge; commit or stash them first")

	// ErrHeadNotFound is returned when the repository has no HEAD to
	// merge from.
	ErrHeadNotFound = errors.New("orchestrate: HEAD not found")

	// ErrNothingToCommit is returned by Commit when no merge has run in
	// this Session, or the merge produced no result tree while leaving no
	// unmerged or failing paths.
	ErrNothingToCommit = errors.New("orchestrate: nothing to commit")

	// ErrMissingAuthor is returned by Commit when CommitOptions has no
	// Author signature set.
	ErrMissingAuthor = errors.New("orchestrate: commit author not set")

	// ErrHasUnmergedFiles mirrors git's refusal to commit while the index
	// still has unresolved conflicts.
	ErrHasUnmergedFiles = errors.New(`error: commit is not possible because you have unmerged files.
hint: Fix them up in the work tree, and then use 'git add/rm <file>'
hint: as appropriate to mark resolution and make a commit.
fatal: Exiting because of an unresolved conflict.`)
)

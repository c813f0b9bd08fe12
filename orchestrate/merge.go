package orchestrate

import (
	gogit "gopkg.in/src-d/go-git.v4"
	"gopkg.in/src-d/go-git.v4/plumbing"
	"gopkg.in/src-d/go-git.v4/plumbing/object"

	billy "gopkg.in/src-d/go-billy.v4"

	"github.com/src-d/go-merge3/gitmodel"
	"github.com/src-d/go-merge3/merge"
	"github.com/src-d/go-merge3/mergebase"
)

// mergeHeadRef/origHeadRef name the two bookkeeping refs a non-fast-forward
// merge leaves behind until Commit (or AbortMerge) resolves them, mirroring
// plumbing.MERGE_HEAD/ORIG_HEAD's role in the teacher's fork of go-git
// (not present in the vanilla go-git.v4 this package is actually built on,
// so this package defines its own reference names instead of relying on an
// extended Storer).
const (
	mergeHeadRef plumbing.ReferenceName = "MERGE_HEAD"
	origHeadRef  plumbing.ReferenceName = "ORIG_HEAD"
	mergeMsgPath                        = ".git/MERGE_MSG"
)

// Session drives one merge against a real go-git repository and (optional)
// working tree, from branch resolution through conflict reporting. One
// Session serves one Merge/Commit pair; create a fresh one per merge.
type Session struct {
	repo   *gogit.Repository
	workFS billy.Filesystem // nil for a bare/in-core merge
	algo   *gitmodel.ContentAlgorithm
	filter merge.MergeFilter

	driver  *merge.MergeDriver
	oursC   *object.Commit
	theirsC *object.Commit
}

// NewSession builds an orchestration session. workFS may be nil to run
// entirely in-core (spec §4.8's inCore mode); algo configures the
// underlying diff3 kernel (see mergeconfig for where its settings come
// from).
func NewSession(repo *gogit.Repository, workFS billy.Filesystem, algo *gitmodel.ContentAlgorithm, filter merge.MergeFilter) *Session {
	return &Session{repo: repo, workFS: workFS, algo: algo, filter: filter}
}

// Result summarises one Merge call.
type Result struct {
	FastForward bool
	Conflicts   bool
	Message     string
}

// Merge runs the equivalent of `git merge <theirsBranch>` against HEAD: a
// fast-forward when possible, otherwise a full three-way merge through
// package merge. A non-fast-forward merge that resolves cleanly returns
// ErrMergeCommitNeeded; one left with conflicts returns
// ErrMergeWithConflicts. Both carry a populated Result/message; callers
// distinguish the two by the sentinel error, exactly as nonFastForwardMerge
// did by return value.
func (s *Session) Merge(theirsBranch string) (*Result, error) {
	head, err := s.repo.Head()
	if err != nil {
		return nil, ErrHeadNotFound
	}
	oursHash := head.Hash()

	theirsRefName := plumbing.NewBranchReferenceName(theirsBranch)
	theirsRef, err := s.repo.Reference(theirsRefName, true)
	if err != nil {
		return nil, err
	}
	theirsHash := theirsRef.Hash()

	ff, err := s.isFastForward(oursHash, theirsHash)
	if err != nil {
		return nil, err
	}
	if ff {
		if err := s.repo.Storer.SetReference(plumbing.NewHashReference(head.Name(), theirsHash)); err != nil {
			return nil, err
		}
		return &Result{FastForward: true}, nil
	}

	return s.nonFastForward(oursHash, theirsHash, theirsRefName)
}

func (s *Session) isFastForward(ours, theirs plumbing.Hash) (bool, error) {
	if ours == theirs {
		return true, nil
	}
	oursC, err := object.GetCommit(s.repo.Storer, ours)
	if err != nil {
		return false, err
	}
	theirsC, err := object.GetCommit(s.repo.Storer, theirs)
	if err != nil {
		return false, err
	}
	return oursC.IsAncestor(theirsC)
}

func (s *Session) nonFastForward(ours, theirs plumbing.Hash, theirsRefName plumbing.ReferenceName) (*Result, error) {
	if _, err := s.repo.Reference(mergeHeadRef, false); err == nil {
		return nil, ErrMergeInProgress
	}

	oursC, err := object.GetCommit(s.repo.Storer, ours)
	if err != nil {
		return nil, err
	}
	theirsC, err := object.GetCommit(s.repo.Storer, theirs)
	if err != nil {
		return nil, err
	}
	s.oursC, s.theirsC = oursC, theirsC

	baseTree, err := mergebase.Resolve(s.repo.Storer, oursC, theirsC, s.runVirtualBaseMerge)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Storer.SetReference(plumbing.NewHashReference(mergeHeadRef, theirs)); err != nil {
		return nil, err
	}
	if err := s.repo.Storer.SetReference(plumbing.NewHashReference(origHeadRef, ours)); err != nil {
		return nil, err
	}

	store := gitmodel.NewStore(s.repo.Storer)
	dirCache := gitmodel.NewDirCache(s.repo.Storer, s.workFS)
	walkFactory := gitmodel.NewTreeWalkFactory(s.repo.Storer, s.workFS)

	if err := dirCache.Lock(); err != nil {
		return nil, err
	}
	defer dirCache.Unlock()

	merger := merge.NewMerger(store, walkFactory, s.algo, s.workFS == nil).
		SetDirCache(dirCache).
		SetWorkingTreeFilesystem(s.workTreeFS()).
		SetCommitNames("merged common ancestors", "HEAD", theirsRefName.Short()).
		SetMergeFilter(s.filter)

	driver, ok, err := merger.Merge(baseTree, merge.OID(oursC.TreeHash), merge.OID(theirsC.TreeHash))
	if err != nil {
		return nil, err
	}
	s.driver = driver

	hasConflicts, msg, err := s.logMergeConflicts(theirsRefName)
	if err != nil {
		return nil, err
	}

	result := &Result{Conflicts: hasConflicts, Message: msg}
	if !ok || hasConflicts {
		return result, ErrMergeWithConflicts
	}
	return result, ErrMergeCommitNeeded
}

// workTreeFS returns merge.Filesystem's concrete provider: nil in-core,
// otherwise the same billy.Filesystem wrapped by gitmodel.Filesystem.
func (s *Session) workTreeFS() merge.Filesystem {
	if s.workFS == nil {
		return nil
	}
	return gitmodel.NewFilesystem(s.workFS)
}

// runVirtualBaseMerge is mergebase.Resolve's merge callback: it
// runs an in-core, filterless merge between two candidate ancestors so a
// criss-cross merge with more than one best common ancestor still has a
// single BASE tree to work from (spec §9 design note: the virtual base's
// own conflicts never surface to the caller).
func (s *Session) runVirtualBaseMerge(base, a, b merge.OID) (merge.OID, error) {
	store := gitmodel.NewStore(s.repo.Storer)
	dirCache := gitmodel.NewDirCache(s.repo.Storer, nil)
	walkFactory := gitmodel.NewTreeWalkFactory(s.repo.Storer, nil)
	content := merge.NewContentMerger(s.algo, store)
	wt := merge.NewWorkTreeOps(nil, store)

	driver := merge.NewMergeDriver(store, dirCache, false, walkFactory, content, wt, nil, true)
	if _, err := driver.Merge(base, a, b); err != nil {
		return merge.ZeroOID, err
	}
	tree, _ := driver.ResultTreeID()
	return tree, nil
}

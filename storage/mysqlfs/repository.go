package mysqlfs

import (
	"database/sql"

	gogit "gopkg.in/src-d/go-git.v4"
	"gopkg.in/src-d/go-git.v4/plumbing/cache"
	"gopkg.in/src-d/go-git.v4/storage/filesystem"

	billy "gopkg.in/src-d/go-billy.v4"

	"github.com/src-d/go-merge3/gitmodel"
)

// Repository is the durable counterpart to an in-memory merge: both the
// git object store (.git, via go-git's storage/filesystem.Storage) and the
// working tree live as rows in two tables of the same database, so a merge
// run against it survives the process that ran it.
//
// Grounded on getWorktree's dotgit/wtfs/storage wiring in the teacher's
// test helper (merge_test.go), replacing osfs.New(path) with two Mysqlfs
// instances.
type Repository struct {
	Store      *gitmodel.Store
	Filesystem *gitmodel.Filesystem

	dotgitFS billy.Filesystem
	workFS   billy.Filesystem
}

// Open builds a Repository whose object store lives in dotgitTable and
// whose working tree lives in workTable, both created in db if absent.
func Open(db *sql.DB, dotgitTable, workTable string) (*Repository, error) {
	dotgit, err := New(db, dotgitTable)
	if err != nil {
		return nil, err
	}
	workFS, err := New(db, workTable)
	if err != nil {
		return nil, err
	}

	storer := filesystem.NewStorage(dotgit, cache.NewObjectLRUDefault())

	return &Repository{
		Store:      gitmodel.NewStore(storer),
		Filesystem: gitmodel.NewFilesystem(workFS),
		dotgitFS:   dotgit,
		workFS:     workFS,
	}, nil
}

// DirCache adapts the same object storer the Repository was opened with to
// merge.DirCache, locking against the working-tree filesystem.
func (r *Repository) DirCache() *gitmodel.DirCache {
	storer := filesystem.NewStorage(r.dotgitFS, cache.NewObjectLRUDefault())
	return gitmodel.NewDirCache(storer, r.workFS)
}

// WorkingTreeFilesystem returns the raw billy.Filesystem the working tree
// is stored in, the same handle gitmodel.Filesystem wraps, for callers
// (orchestrate.NewSession, go-git's own Worktree) that need the
// unwrapped billy interface rather than the merge.Filesystem adapter.
func (r *Repository) WorkingTreeFilesystem() billy.Filesystem {
	return r.workFS
}

// storer rebuilds the go-git storage.Storer this Repository was opened
// with, fresh each time so no caller holds a stale object cache across a
// long-running merge.
func (r *Repository) storer() *filesystem.Storage {
	return filesystem.NewStorage(r.dotgitFS, cache.NewObjectLRUDefault())
}

// Init creates an empty git repository whose object store and working tree
// are this Repository's two MySQL-backed tables, the durable equivalent of
// gogit.Init(memory.NewStorage(), memfs.New()) used throughout this
// module's in-memory tests.
func (r *Repository) Init() (*gogit.Repository, error) {
	return gogit.Init(r.storer(), r.workFS)
}

// OpenGoGit opens the git repository already present in this Repository's
// tables as a full *gogit.Repository, so orchestrate.NewSession can drive a
// merge against it exactly as it would against a PlainOpen'd on-disk
// repository.
func (r *Repository) OpenGoGit() (*gogit.Repository, error) {
	return gogit.Open(r.storer(), r.workFS)
}

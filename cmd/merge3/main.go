// Command merge3 drives a three-way merge against a real repository on
// disk, the end-to-end exercise of package orchestrate, package merge and
// their supporting adapters. Flag parsing follows go-git's own example
// commands' use of github.com/jessevdk/go-flags.
package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jessevdk/go-flags"

	gogit "gopkg.in/src-d/go-git.v4"
	"gopkg.in/src-d/go-git.v4/plumbing/object"

	billy "gopkg.in/src-d/go-billy.v4"

	"github.com/src-d/go-merge3/gitmodel"
	"github.com/src-d/go-merge3/mergeconfig"
	"github.com/src-d/go-merge3/orchestrate"
	"github.com/src-d/go-merge3/storage/mysqlfs"
)

type options struct {
	Repo        string `short:"C" long:"repo" description:"path to the repository" default:"."`
	Author      string `short:"a" long:"author" description:"author name for the merge commit" default:"merge3"`
	Email       string `short:"e" long:"email" description:"author email for the merge commit" default:"merge3@localhost"`
	Abort       bool   `long:"abort" description:"abort an in-progress merge instead of starting one"`
	MySQLDSN    string `long:"mysql-dsn" description:"run against a MySQL-backed repository instead of --repo, using this DSN"`
	DotgitTable string `long:"mysql-dotgit-table" description:"table backing the object store, when --mysql-dsn is set" default:"dotgit"`
	WorkTable   string `long:"mysql-worktree-table" description:"table backing the working tree, when --mysql-dsn is set" default:"worktree"`
	Args        struct {
		Branch string `positional-arg-name:"branch" description:"branch to merge into HEAD"`
	} `positional-args:"yes"`
}

func main() {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		os.Exit(1)
	}

	if err := run(&opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(opts *options) error {
	repo, workFS, cfgPath, err := openRepository(opts)
	if err != nil {
		return err
	}

	cfg, err := mergeconfig.Load(cfgPath)
	if err != nil {
		return err
	}
	cfg, err = mergeconfig.LoadGlobal(cfg)
	if err != nil {
		return err
	}

	algo := gitmodel.NewContentAlgorithm()
	algo.SetConflictStyle(cfg.ConflictStyle)

	session := orchestrate.NewSession(repo, workFS, algo, nil)

	if opts.Abort {
		return session.AbortMerge()
	}

	if opts.Args.Branch == "" {
		return fmt.Errorf("merge3: a branch name is required")
	}

	result, err := session.Merge(opts.Args.Branch)
	switch err {
	case nil:
		fmt.Println("Fast-forward")
		return nil
	case orchestrate.ErrMergeCommitNeeded:
		sig := &object.Signature{Name: opts.Author, Email: opts.Email}
		hash, cerr := session.Commit(result.Message, &orchestrate.CommitOptions{Author: sig})
		if cerr != nil {
			return cerr
		}
		fmt.Printf("Merge made by the 'diff3' strategy.\n%s\n", hash)
		return nil
	case orchestrate.ErrMergeWithConflicts:
		fmt.Print(result.Message)
		os.Exit(1)
		return nil
	default:
		return err
	}
}

// openRepository resolves --repo (the default, a real on-disk repository)
// or --mysql-dsn (a durable MySQL-backed repository, storage/mysqlfs) into
// the *gogit.Repository/billy.Filesystem pair orchestrate.NewSession needs,
// plus the path mergeconfig should read the repo-local [merge] section
// from (empty for the MySQL backing, which has no on-disk config file).
func openRepository(opts *options) (*gogit.Repository, billy.Filesystem, string, error) {
	if opts.MySQLDSN == "" {
		repo, err := gogit.PlainOpen(opts.Repo)
		if err != nil {
			return nil, nil, "", err
		}
		wt, err := repo.Worktree()
		if err != nil {
			return nil, nil, "", err
		}
		return repo, wt.Filesystem, filepath.Join(opts.Repo, ".git", "config"), nil
	}

	db, err := sql.Open("mysql", opts.MySQLDSN)
	if err != nil {
		return nil, nil, "", err
	}

	durable, err := mysqlfs.Open(db, opts.DotgitTable, opts.WorkTable)
	if err != nil {
		return nil, nil, "", err
	}

	repo, err := durable.OpenGoGit()
	if err != nil {
		return nil, nil, "", err
	}
	return repo, durable.WorkingTreeFilesystem(), "", nil
}

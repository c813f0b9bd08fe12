package orchestrate

import (
	"io"

	"gopkg.in/src-d/go-git.v4/plumbing/format/index"
	"gopkg.in/src-d/go-git.v4/plumbing/object"
)

// ConflictEntries groups every index entry left at a non-merged stage by
// path, so a caller can inspect exactly what a conflicted Merge left
// behind without re-deriving it from UnmergedPaths. Adapted from
// Worktree.ConflictEntries, reading the same storage.Storer index package
// merge staged stage 1/2/3 entries into.
func (s *Session) ConflictEntries() (map[string][]*index.Entry, error) {
	idx, err := s.repo.Storer.Index()
	if err != nil {
		return nil, err
	}

	withConf := map[string][]*index.Entry{}
	for _, e := range idx.Entries {
		if e.Stage == index.Merged {
			continue
		}
		withConf[e.Name] = append(withConf[e.Name], e)
	}
	return withConf, nil
}

// ReadFileByStage returns the blob content recorded at path for the given
// stage (base/ours/theirs, or the merged stage-0 entry), or
// object.ErrFileNotFound if no such entry exists. Adapted from
// Worktree.ReadFileByStage, reading straight from the object store instead
// of the mergingCommit blob cache the teacher's walk built up inline.
func (s *Session) ReadFileByStage(path string, st index.Stage) (io.Reader, error) {
	idx, err := s.repo.Storer.Index()
	if err != nil {
		return nil, err
	}

	for _, e := range idx.Entries {
		if e.Name != path || e.Stage != st {
			continue
		}
		blob, err := object.GetBlob(s.repo.Storer, e.Hash)
		if err != nil {
			return nil, err
		}
		return blob.Reader()
	}
	return nil, object.ErrFileNotFound
}

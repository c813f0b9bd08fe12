package gitmodel

import (
	"io"

	"gopkg.in/src-d/go-git.v4/plumbing"
	"gopkg.in/src-d/go-git.v4/plumbing/storer"

	"github.com/src-d/go-merge3/merge"
)

// Store adapts a go-git storer.EncodedObjectStorer to merge.ObjectStore,
// restricted to blob objects (the only kind the merge core ever opens or
// inserts). Grounded on the object-store usage scattered through
// worktree_merge.go's compareCommitsChanges and updateIndex helpers.
type Store struct {
	storer storer.EncodedObjectStorer
}

// NewStore wraps a storer, typically one built over storage/filesystem
// against a cache.NewObjectLRUDefault (mirroring storage.go's wiring).
func NewStore(s storer.EncodedObjectStorer) *Store {
	return &Store{storer: s}
}

// Open reads a blob's content by OID, returning nil for the absent OID.
func (s *Store) Open(oid merge.OID) ([]byte, error) {
	if oid.IsZero() {
		return nil, nil
	}
	obj, err := s.storer.EncodedObject(plumbing.BlobObject, plumbing.Hash(oid))
	if err != nil {
		return nil, err
	}
	reader, err := obj.Reader()
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

// Insert writes content as a new blob object and returns its OID.
func (s *Store) Insert(content []byte) (merge.OID, error) {
	obj := s.storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	obj.SetSize(int64(len(content)))

	w, err := obj.Writer()
	if err != nil {
		return merge.ZeroOID, err
	}
	if _, err := w.Write(content); err != nil {
		w.Close()
		return merge.ZeroOID, err
	}
	if err := w.Close(); err != nil {
		return merge.ZeroOID, err
	}

	hash, err := s.storer.SetEncodedObject(obj)
	if err != nil {
		return merge.ZeroOID, err
	}
	return merge.OID(hash), nil
}

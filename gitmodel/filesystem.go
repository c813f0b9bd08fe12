package gitmodel

import (
	"os"
	gopath "path"

	billy "gopkg.in/src-d/go-billy.v4"
)

// Filesystem adapts a go-billy.v4 Filesystem to merge.Filesystem. Grounded
// on the createDir/checkout helpers inlined in worktree_merge.go, which
// perform exactly this idempotent-mkdir-then-write dance against the
// worktree's billy.Filesystem.
type Filesystem struct {
	fs billy.Filesystem
}

// NewFilesystem wraps fs (typically osfs.New(root) or a chroot.New over
// one, per the teacher's own Worktree.Filesystem field).
func NewFilesystem(fs billy.Filesystem) *Filesystem {
	return &Filesystem{fs: fs}
}

// Exists reports whether path exists and, if so, whether it is a
// directory. A missing path is not an error.
func (f *Filesystem) Exists(path string) (isDir bool, ok bool, err error) {
	info, err := f.fs.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, false, nil
		}
		return false, false, err
	}
	return info.IsDir(), true, nil
}

// MkdirAll creates dir's parent chain, removing a non-directory occupying
// the path first, matching spec §4.6's createDir contract.
func (f *Filesystem) MkdirAll(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	isDir, ok, err := f.Exists(dir)
	if err != nil {
		return err
	}
	if ok && !isDir {
		if err := f.fs.Remove(dir); err != nil {
			return err
		}
	}
	return f.fs.MkdirAll(dir, 0755)
}

// Remove deletes path, tolerating its absence.
func (f *Filesystem) Remove(path string) error {
	err := f.fs.Remove(path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// WriteFile creates or truncates path and writes data.
func (f *Filesystem) WriteFile(path string, data []byte) (int64, error) {
	file, err := f.fs.Create(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()
	n, err := file.Write(data)
	if err != nil {
		return 0, err
	}
	return int64(n), nil
}

// Dir returns path's parent, using git's forward-slash convention
// regardless of host OS.
func (f *Filesystem) Dir(path string) string {
	return gopath.Dir(path)
}

// Join delegates to the underlying billy.Filesystem's path joining.
func (f *Filesystem) Join(elem ...string) string {
	return f.fs.Join(elem...)
}

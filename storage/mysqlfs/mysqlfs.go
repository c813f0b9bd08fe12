// Package mysqlfs is a go-billy.v4 filesystem backed by a MySQL table,
// giving the merge core a durable, non-OS working tree (and, via
// gitmodel.Store wrapping the same table shape for the dotgit side, a
// durable object store) so a merge run can exercise spec §3's "toBeCheckedOut
// all have stage-0 entries" and §4.6's checkout/writeMergedFile paths
// against storage that outlives the process. repository.go wires a pair of
// these into the gitmodel adapters package merge actually talks to.
package mysqlfs

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"gopkg.in/src-d/go-billy.v4"
	"gopkg.in/src-d/go-billy.v4/helper/chroot"
	"gopkg.in/src-d/go-billy.v4/util"
)

// Mysqlfs is a billy.Filesystem whose every Create/Open/Stat/Remove
// resolves to a row lookup in Storage instead of a host-filesystem syscall.
type Mysqlfs struct {
	store Storage
}

// New opens (creating if absent) the table named table in db and returns
// it as a rooted billy.Filesystem, chrooted to "/" the same way osfs.New
// roots a host directory.
func New(db *sql.DB, table string) (billy.Filesystem, error) {
	if table == "" {
		return nil, errors.New("mysqlfs: table name is required")
	}

	store, err := openRowStore(db, table)
	if err != nil {
		return nil, err
	}

	return chroot.New(&Mysqlfs{store: store}, string(separator)), nil
}

// Create creates the named file with mode 0666 (before umask), truncating
// it if it already exists.
func (fs *Mysqlfs) Create(filename string) (billy.File, error) {
	return fs.OpenFile(filename, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0666)
}

// Open opens the named file for reading.
func (fs *Mysqlfs) Open(filename string) (billy.File, error) {
	return fs.OpenFile(filename, os.O_RDONLY, 0)
}

// OpenFile opens the named file with the given flag and, if it must be
// created, perm. One row backs one path; WorkTreeOps.WriteMergedFile and
// Checkout both go through this to land merged content in the table.
func (fs *Mysqlfs) OpenFile(filename string, flag int, perm os.FileMode) (billy.File, error) {
	f, err := fs.store.GetFile(filename)
	if err != nil {
		return nil, err
	}

	if f == nil {
		if !hasCreate(flag) {
			return nil, os.ErrNotExist
		}
		f, err = fs.store.NewFile(filename, perm, flag)
		if err != nil {
			return nil, err
		}
	} else if target, isLink := fs.resolveLink(filename, f); isLink {
		return fs.OpenFile(target, flag, perm)
	}

	if f.Mode.IsDir() {
		return nil, fmt.Errorf("cannot open directory: %s", filename)
	}

	return f.dup(perm, flag), nil
}

func (fs *Mysqlfs) resolveLink(fullpath string, f *fileRow) (target string, isLink bool) {
	if !isSymlink(f.Mode) {
		return fullpath, false
	}
	target = string(f.Content)
	if !isAbs(target) {
		target = fs.Join(filepath.Dir(fullpath), target)
	}
	return target, true
}

// isAbs treats any path starting with separator as absolute, matching the
// convention billy's in-memory filesystems use regardless of host OS.
func isAbs(path string) bool {
	return filepath.IsAbs(path) || strings.HasPrefix(path, string(separator))
}

// Stat returns a FileInfo describing the named file.
func (fs *Mysqlfs) Stat(filename string) (os.FileInfo, error) {
	f, err := fs.store.GetFile(filename)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, os.ErrNotExist
	}

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if target, isLink := fs.resolveLink(filename, f); isLink {
		fi, err = fs.Stat(target)
		if err != nil {
			return nil, err
		}
	}

	// The caller asked about filename, which may name a symlink; always
	// report back the name they asked for, not the link's target's.
	fi.(*rowInfo).name = filepath.Base(filename)
	return fi, nil
}

// Rename renames (moves) oldpath to newpath.
func (fs *Mysqlfs) Rename(oldpath, newpath string) error {
	return fs.store.RenameFile(oldpath, newpath)
}

// Remove removes the named file or directory.
func (fs *Mysqlfs) Remove(filename string) error {
	return fs.store.RemoveFile(filename)
}

// Join joins path elements the same way filepath.Join does.
func (*Mysqlfs) Join(elem ...string) string {
	return filepath.Join(elem...)
}

// TempFile creates a new temporary file in dir with a name beginning with
// prefix and opens it for reading and writing.
func (fs *Mysqlfs) TempFile(dir, prefix string) (billy.File, error) {
	return util.TempFile(fs, dir, prefix)
}

// ReadDir reads path and returns its children, sorted as the underlying
// SELECT returns them.
func (fs *Mysqlfs) ReadDir(path string) ([]os.FileInfo, error) {
	f, err := fs.store.GetFile(path)
	if err != nil {
		return nil, err
	}
	if f != nil {
		if target, isLink := fs.resolveLink(path, f); isLink {
			return fs.ReadDir(target)
		}
	}

	children, err := fs.store.Children(path)
	if err != nil {
		return nil, err
	}

	entries := make([]os.FileInfo, 0, len(children))
	for _, c := range children {
		fi, _ := c.Stat()
		entries = append(entries, fi)
	}
	return entries, nil
}

// MkdirAll creates path and any missing parents; it is a no-op if path is
// already a directory.
func (fs *Mysqlfs) MkdirAll(path string, perm os.FileMode) error {
	_, err := fs.store.NewFile(path, perm|os.ModeDir, 0)
	return err
}

// Lstat describes filename without following a symlink.
func (fs *Mysqlfs) Lstat(filename string) (os.FileInfo, error) {
	f, err := fs.store.GetFile(filename)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, os.ErrNotExist
	}
	return f.Stat()
}

// Symlink creates a symbolic link from link to target.
func (fs *Mysqlfs) Symlink(target, link string) error {
	_, err := fs.Stat(link)
	if err == nil {
		return os.ErrExist
	}
	if !os.IsNotExist(err) {
		return err
	}
	return util.WriteFile(fs, link, []byte(target), 0777|os.ModeSymlink)
}

// Readlink returns link's target path.
func (fs *Mysqlfs) Readlink(link string) (string, error) {
	f, err := fs.store.GetFile(link)
	if err != nil {
		return "", err
	}
	if f == nil {
		return "", os.ErrNotExist
	}
	if !isSymlink(f.Mode) {
		return "", &os.PathError{Op: "readlink", Path: link, Err: errors.New("not a symlink")}
	}
	return string(f.Content), nil
}

// Capabilities implements billy.Capable.
func (fs *Mysqlfs) Capabilities() billy.Capability {
	return billy.WriteCapability |
		billy.ReadCapability |
		billy.ReadAndWriteCapability |
		billy.SeekCapability |
		billy.TruncateCapability
}

// Name returns the base name this row was opened under.
func (f *fileRow) Name() string {
	return f.FileName
}

func (f *fileRow) Read(b []byte) (int, error) {
	current, err := f.store.GetFile(f.Path)
	if err != nil {
		return 0, err
	}
	f.Content = current.Content

	n, err := f.ReadAt(b, f.Position)
	f.Position += int64(n)
	if err == io.EOF && n != 0 {
		err = nil
	}
	return n, err
}

// ReadAt reads len(b) bytes starting at off, the same contract
// io.ReaderAt documents.
func (f *fileRow) ReadAt(b []byte, off int64) (int, error) {
	if f.Closed {
		return 0, os.ErrClosed
	}
	if !isReadAndWrite(f.Flag) && !isReadOnly(f.Flag) {
		return 0, errors.New("mysqlfs: file not open for reading")
	}

	size := int64(len(f.Content))
	if off >= size {
		return 0, io.EOF
	}

	end := off + int64(len(b))
	if end > size {
		end = size
	}

	n := copy(b, f.Content[off:end])
	var err error
	if n < len(b) {
		err = io.EOF
	}
	return n, err
}

func (f *fileRow) writeAt(p []byte) int {
	off := int(f.Position)
	if grow := off - len(f.Content); grow > 0 {
		f.Content = append(f.Content, make([]byte, grow)...)
	}
	tail := f.Content[:off]
	f.Content = append(tail, p...)
	return len(p)
}

// Seek repositions the next Read/Write according to whence, as io.Seeker
// documents.
func (f *fileRow) Seek(offset int64, whence int) (int64, error) {
	if f.Closed {
		return 0, os.ErrClosed
	}
	switch whence {
	case io.SeekCurrent:
		f.Position += offset
	case io.SeekStart:
		f.Position = offset
	case io.SeekEnd:
		f.Position = int64(len(f.Content)) + offset
	}
	return f.Position, nil
}

func (f *fileRow) Write(p []byte) (int, error) {
	if f.Closed {
		return 0, os.ErrClosed
	}
	if !isReadAndWrite(f.Flag) && !isWriteOnly(f.Flag) {
		return 0, errors.New("mysqlfs: file not open for writing")
	}

	n := f.writeAt(p)
	f.Position += int64(n)

	if err := f.store.UpdateContent(f.ID, f.Content); err != nil {
		return 0, err
	}
	return n, nil
}

// Close marks the row closed; the content is already durable (every Write
// flushes to the table immediately, matching Checkout's expectation that a
// written path survives the caller going away without an explicit sync).
func (f *fileRow) Close() error {
	if f.Closed {
		return os.ErrClosed
	}
	f.Closed = true
	return nil
}

// Truncate resizes the row's content to size.
func (f *fileRow) Truncate(size int64) error {
	switch {
	case size < int64(len(f.Content)):
		f.Content = f.Content[:size]
	case size > int64(len(f.Content)):
		f.Content = append(f.Content, make([]byte, int(size)-len(f.Content))...)
	}
	return nil
}

// dup produces the billy.File handed back from OpenFile/Create, a fresh
// cursor over the same row opened with mode/flag.
func (f *fileRow) dup(mode os.FileMode, flag int) billy.File {
	dup := &fileRow{
		ID:       f.ID,
		ParentID: f.ParentID,
		FileName: filepath.Base(f.Path),
		Path:     f.Path,
		Content:  f.Content,
		Position: f.Position,
		Mode:     mode,
		Flag:     flag,
		store:    f.store,
	}
	if isAppend(flag) {
		dup.Position = int64(len(dup.Content))
	}
	if isTruncate(flag) {
		dup.Content = nil
	}
	return dup
}

// Stat returns a FileInfo for the row as it currently stands in memory
// (not re-read from the table).
func (f *fileRow) Stat() (os.FileInfo, error) {
	return &rowInfo{name: f.Name(), mode: f.Mode, size: int64(len(f.Content))}, nil
}

// Lock and Unlock are no-ops: row-level locking has no equivalent in this
// adapter, matching Mysqlfs's lack of any concurrent-writer story (spec §5:
// one merger instance, one caller, one merge).
func (f *fileRow) Lock() error   { return nil }
func (f *fileRow) Unlock() error { return nil }

// rowInfo is the os.FileInfo returned for a fileRow.
type rowInfo struct {
	name string
	mode os.FileMode
	size int64
}

func (fi *rowInfo) Name() string       { return fi.name }
func (fi *rowInfo) Size() int64        { return fi.size }
func (fi *rowInfo) Mode() os.FileMode  { return fi.mode }
func (*rowInfo) ModTime() time.Time    { return time.Now() }
func (fi *rowInfo) IsDir() bool        { return fi.mode.IsDir() }
func (*rowInfo) Sys() interface{}      { return nil }

func isSymlink(m os.FileMode) bool { return m&os.ModeSymlink != 0 }

// The flag helpers below classify an os.O_* flag combination the way the
// standard library's own os.OpenFile does internally: the low two bits
// select the access mode, the rest are independent option bits.
func hasCreate(flag int) bool      { return flag&os.O_CREATE != 0 }
func isReadOnly(flag int) bool     { return flag&os.O_WRONLY == 0 && flag&os.O_RDWR == 0 }
func isWriteOnly(flag int) bool    { return flag&os.O_WRONLY != 0 }
func isReadAndWrite(flag int) bool { return flag&os.O_RDWR != 0 }
func isAppend(flag int) bool       { return flag&os.O_APPEND != 0 }
func isTruncate(flag int) bool     { return flag&os.O_TRUNC != 0 }

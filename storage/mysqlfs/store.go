package mysqlfs

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

const separator = filepath.Separator

// rowStore is the Storage implementation the merge core's durable backing
// actually runs against: one row per path, the working-tree counterpart to
// gitmodel.Store's one-blob-per-object-id table. WorkTreeOps never knows
// this is a database; it only ever sees the billy.Filesystem Mysqlfs wraps
// around it.
type rowStore struct {
	db    *sqlx.DB
	table string
}

// Storage is the persistence contract Mysqlfs drives; factored out of
// Mysqlfs itself so a path's directory/rename bookkeeping (here: one SQL
// table) can be swapped for another durable backing without touching the
// billy.Filesystem adapter in mysqlfs.go.
type Storage interface {
	NewFile(path string, mode os.FileMode, flag int) (*fileRow, error)
	GetFile(path string) (*fileRow, error)
	GetFileID(path string) (int64, error)
	RenameFile(from, to string) error
	RemoveFile(path string) error
	Children(path string) ([]*fileRow, error)
	ChildrenIDs(id int64) ([]int64, error)
	ChildrenOf(id int64) ([]*fileRow, error)
	AttachToParent(path string, mode os.FileMode, f *fileRow) error
	UpdateContent(fileID int64, content []byte) error
}

// record is the row shape sqlx scans a file's table entry into.
type record struct {
	ID       int64         `db:"id"`
	ParentID sql.NullInt64 `db:"parentID"`
	Name     string        `db:"name"`
	Path     string        `db:"path"`
	Content  []byte        `db:"content"`
	Flag     int           `db:"flag"`
	Mode     int64         `db:"mode"`
}

// fileRow is one path's merged view of a record plus the store it came
// from, handed out by rowStore and consumed both by Mysqlfs (to satisfy
// billy.File) and by merge's WorkTreeOps (indirectly, through the
// billy.Filesystem it opens).
type fileRow struct {
	ID       int64
	ParentID int64
	FileName string
	Path     string
	Content  []byte
	Position int64
	Flag     int
	Mode     os.FileMode
	Closed   bool

	store *rowStore
}

// openRowStore creates table (a per-Repository worktree or dotgit table,
// see repository.go) if it doesn't already exist and returns a Storage
// bound to it.
func openRowStore(dbPool *sql.DB, table string) (Storage, error) {
	db := sqlx.NewDb(dbPool, "mysql")

	_, err := db.Exec(fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s
		(id BIGINT AUTO_INCREMENT NOT NULL PRIMARY KEY,
			parentID BIGINT,
			name varchar(255) NOT NULL,
			path varchar(255) NOT NULL,
			flag INT,
			mode BIGINT,
			content LONGBLOB,
			UNIQUE (path),
			INDEX (path),
			INDEX (parentID))`, table))
	if err != nil {
		return nil, errors.Wrapf(err, "mysqlfs: creating table %s", table)
	}

	return &rowStore{db: db, table: table}, nil
}

func (s *rowStore) GetFile(path string) (*fileRow, error) {
	path = cleanPath(path)
	var r record
	err := s.db.Get(&r, fmt.Sprintf("SELECT * FROM %s WHERE path = ?", s.table), path)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return s.toFileRow(&r), nil
}

func (s *rowStore) GetFileID(path string) (int64, error) {
	path = cleanPath(path)
	var id int64
	err := s.db.Get(&id, fmt.Sprintf("SELECT id FROM %s WHERE path = ?", s.table), path)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, err
	}
	return id, nil
}

func (s *rowStore) NewFile(path string, mode os.FileMode, flag int) (*fileRow, error) {
	path = cleanPath(path)

	existing, err := s.GetFile(path)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if !existing.Mode.IsDir() {
			return nil, errors.Errorf("mysqlfs: file already exists: %s", path)
		}
		return nil, nil
	}

	r := &record{
		Name: filepath.Base(path),
		Path: path,
		Mode: int64(mode),
		Flag: flag,
	}

	res, err := s.db.Exec(
		fmt.Sprintf("INSERT INTO %s(name,path,mode,flag,content) VALUES(?,?,?,?,?)", s.table),
		r.Name, r.Path, r.Mode, r.Flag, []byte{},
	)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	f := &fileRow{ID: id, FileName: r.Name, Path: r.Path, Mode: mode, Flag: flag, store: s}
	if err := s.AttachToParent(path, mode, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *rowStore) Children(path string) ([]*fileRow, error) {
	path = cleanPath(path)

	if path == "" || path == string(filepath.Separator) {
		var rows []record
		err := s.db.Select(&rows, fmt.Sprintf("SELECT * FROM %s WHERE parentID IS NULL", s.table))
		if err != nil && err != sql.ErrNoRows {
			return nil, err
		}
		return s.toFileRows(rows), nil
	}

	parentID, err := s.GetFileID(path)
	if err != nil {
		return nil, err
	}
	if parentID == 0 {
		return []*fileRow{}, nil
	}
	return s.ChildrenOf(parentID)
}

func (s *rowStore) ChildrenIDs(id int64) ([]int64, error) {
	var ids []int64
	err := s.db.Select(&ids, fmt.Sprintf("SELECT id FROM %s WHERE parentID=?", s.table), id)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *rowStore) ChildrenOf(id int64) ([]*fileRow, error) {
	var rows []record
	err := s.db.Select(&rows, fmt.Sprintf("SELECT * FROM %s WHERE parentID=?", s.table), id)
	if err != nil {
		return nil, err
	}
	return s.toFileRows(rows), nil
}

func (s *rowStore) RenameFile(from, to string) error {
	from, to = cleanPath(from), cleanPath(to)

	f, err := s.GetFile(from)
	if err != nil {
		return err
	}
	if f == nil {
		return os.ErrNotExist
	}
	newName := filepath.Base(to)

	if f.Mode.IsDir() {
		children, err := s.ChildrenOf(f.ID)
		if err != nil {
			return err
		}
		tx := s.db.MustBegin()
		tx.MustExec(fmt.Sprintf("UPDATE %s SET name=?, path=? WHERE id=?", s.table), newName, to, f.ID)
		for _, c := range children {
			tx.MustExec(fmt.Sprintf("UPDATE %s SET path=? WHERE id=?", s.table), filepath.Join(to, c.FileName), c.ID)
		}
		return tx.Commit()
	}

	_ = s.RemoveFile(to)

	newParentID, err := s.GetFileID(filepath.Dir(to))
	if err != nil {
		return err
	}
	if newParentID == 0 {
		parent, err := s.createParent(to, 0644)
		if err != nil {
			return err
		}
		if parent != nil {
			newParentID = parent.ID
		}
	}

	var parentArg interface{}
	if newParentID != 0 {
		parentArg = newParentID
	}
	_, err = s.db.Exec(
		fmt.Sprintf("UPDATE %s SET name=?, path=?, parentID=? WHERE id=?", s.table),
		newName, to, parentArg, f.ID,
	)
	return err
}

func (s *rowStore) RemoveFile(path string) error {
	path = cleanPath(path)

	f, err := s.GetFile(path)
	if err != nil {
		return err
	}
	if f == nil {
		return os.ErrNotExist
	}

	children, err := s.ChildrenIDs(f.ID)
	if err != nil {
		return err
	}
	if f.Mode.IsDir() && len(children) != 0 {
		return errors.Errorf("mysqlfs: directory not empty: %s", path)
	}

	_, err = s.db.Exec(fmt.Sprintf("DELETE FROM %s WHERE id=?", s.table), f.ID)
	return err
}

func (s *rowStore) UpdateContent(fileID int64, content []byte) error {
	_, err := s.db.Exec(fmt.Sprintf("UPDATE %s SET content=? WHERE id=?", s.table), content, fileID)
	return err
}

func (s *rowStore) AttachToParent(path string, mode os.FileMode, f *fileRow) error {
	parent, err := s.createParent(path, mode)
	if err != nil {
		return err
	}
	if parent == nil {
		return nil
	}
	f.ParentID = parent.ID
	_, err = s.db.Exec(fmt.Sprintf("UPDATE %s SET parentID=? WHERE id=?", s.table), parent.ID, f.ID)
	return err
}

func (s *rowStore) createParent(path string, mode os.FileMode) (*fileRow, error) {
	base := cleanPath(filepath.Dir(path))
	if base == string(separator) {
		return nil, nil
	}

	parent, err := s.NewFile(base, mode.Perm()|os.ModeDir, 0)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return s.GetFile(base)
	}
	return parent, nil
}

func (s *rowStore) toFileRow(r *record) *fileRow {
	var parentID int64
	if r.ParentID.Valid {
		parentID = r.ParentID.Int64
	}
	return &fileRow{
		ID:       r.ID,
		ParentID: parentID,
		FileName: r.Name,
		Path:     r.Path,
		Content:  r.Content,
		Flag:     r.Flag,
		Mode:     os.FileMode(r.Mode),
		store:    s,
	}
}

func (s *rowStore) toFileRows(rows []record) []*fileRow {
	out := make([]*fileRow, 0, len(rows))
	for i := range rows {
		out = append(out, s.toFileRow(&rows[i]))
	}
	return out
}

func cleanPath(path string) string {
	return filepath.Clean(filepath.FromSlash(path))
}

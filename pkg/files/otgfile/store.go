// Package otgfile serves the "otg:/" device root. Such storage is not
// reachable with regular filesystem calls; its documents are enumerated from
// an index kept in SQLite, the way a content provider exposes a document tree.
package otgfile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/datatug/filepick/pkg/files"

	_ "modernc.org/sqlite"
)

var (
	ErrNotFound   = errors.New("otg: document not found")
	ErrNotDir     = errors.New("otg: not a directory")
	ErrExists     = errors.New("otg: document already exists")
	ErrOutsideOTG = errors.New("otg: path is outside of device root")
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	path     TEXT PRIMARY KEY,
	parent   TEXT NOT NULL,
	name     TEXT NOT NULL,
	is_dir   INTEGER NOT NULL DEFAULT 0,
	size     INTEGER NOT NULL DEFAULT 0,
	modified INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_documents_parent ON documents(parent);
`

var _ files.Store = (*Store)(nil)

// Store is a document tree stored in SQLite. Document paths are kept
// relative to the device root; the root itself is implicit.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Open opens (creating if needed) the index at dbPath. ":memory:" is accepted.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening otg index: %w", err)
	}
	// a single connection keeps ":memory:" databases shared and writes serialized
	db.SetMaxOpenConns(1)
	if _, err = db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing otg index: %w", err)
	}
	return &Store{db: db, dbPath: dbPath}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) RootTitle() string {
	return "USB " + filepath.Base(s.dbPath)
}

func (s *Store) RootURL() url.URL {
	return url.URL{Scheme: "otg", Path: "/"}
}

func (s *Store) ReadDir(ctx context.Context, name string) ([]os.DirEntry, error) {
	doc, err := docPath(name)
	if err != nil {
		return nil, err
	}
	if doc != "" {
		info, err := s.stat(ctx, doc)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%w: %s", ErrNotDir, name)
		}
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, is_dir, size, modified FROM documents WHERE parent = ? ORDER BY name`, doc)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", name, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var entries []os.DirEntry
	for rows.Next() {
		var (
			childName string
			isDir     bool
			size      int64
			modified  int64
		)
		if err = rows.Scan(&childName, &isDir, &size, &modified); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		entries = append(entries, files.NewDirEntry(childName, isDir, files.Size(size), files.ModTime(time.Unix(modified, 0))))
	}
	return entries, rows.Err()
}

func (s *Store) Stat(ctx context.Context, name string) (os.FileInfo, error) {
	doc, err := docPath(name)
	if err != nil {
		return nil, err
	}
	return s.stat(ctx, doc)
}

func (s *Store) stat(ctx context.Context, doc string) (os.FileInfo, error) {
	if doc == "" {
		return files.NewFileInfo(files.NewDirEntry("otg:", true)), nil
	}
	var (
		name     string
		isDir    bool
		size     int64
		modified int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT name, is_dir, size, modified FROM documents WHERE path = ?`, doc).
		Scan(&name, &isDir, &size, &modified)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s%s", ErrNotFound, files.DeviceRoot, doc)
	}
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", doc, err)
	}
	return files.NewFileInfo(files.NewDirEntry(name, isDir), files.Size(size), files.ModTime(time.Unix(modified, 0))), nil
}

func (s *Store) CreateDir(ctx context.Context, p string) error {
	return s.AddDocument(ctx, p, true, 0, time.Now())
}

// AddDocument indexes a single document. The parent must already be indexed.
func (s *Store) AddDocument(ctx context.Context, p string, isDir bool, size int64, modTime time.Time) error {
	doc, err := docPath(p)
	if err != nil {
		return err
	}
	if doc == "" {
		return fmt.Errorf("%w: %s", ErrExists, files.DeviceRoot)
	}
	parent := parentDoc(doc)
	parentInfo, err := s.stat(ctx, parent)
	if err != nil {
		return err
	}
	if !parentInfo.IsDir() {
		return fmt.Errorf("%w: %s%s", ErrNotDir, files.DeviceRoot, parent)
	}
	if _, err = s.stat(ctx, doc); err == nil {
		return fmt.Errorf("%w: %s", ErrExists, p)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (path, parent, name, is_dir, size, modified) VALUES (?, ?, ?, ?, ?, ?)`,
		doc, parent, path.Base(doc), isDir, size, modTime.Unix())
	if err != nil {
		return fmt.Errorf("indexing %s: %w", p, err)
	}
	return nil
}

// Import indexes the tree under srcDir as the device content, replacing
// documents with the same paths. It returns the number of indexed documents.
func (s *Store) Import(ctx context.Context, srcDir string) (count int, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO documents (path, parent, name, is_dir, size, modified) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = stmt.Close()
	}()

	err = filepath.WalkDir(srcDir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		doc := filepath.ToSlash(rel)
		var size int64
		if !d.IsDir() {
			size = info.Size()
		}
		if _, err = stmt.ExecContext(ctx, doc, parentDoc(doc), path.Base(doc), d.IsDir(), size, info.ModTime().Unix()); err != nil {
			return fmt.Errorf("indexing %s: %w", doc, err)
		}
		count++
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, tx.Commit()
}

// docPath converts "otg:/a/b" to the index key "a/b". The root maps to "".
func docPath(name string) (string, error) {
	rest, ok := strings.CutPrefix(name, "otg:")
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrOutsideOTG, name)
	}
	cleaned := path.Clean("/" + rest)
	return strings.TrimPrefix(cleaned, "/"), nil
}

func parentDoc(doc string) string {
	parent := path.Dir(doc)
	if parent == "." {
		return ""
	}
	return parent
}

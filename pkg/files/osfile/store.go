package osfile

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/datatug/filepick/pkg/files"
)

var osReadDir = os.ReadDir
var osStat = os.Stat
var osHostname = os.Hostname
var osMkdir = os.Mkdir

var _ files.Store = (*Store)(nil)

// Store lists the local filesystem.
type Store struct {
	title string
	root  string
}

func (s Store) RootURL() url.URL {
	return url.URL{
		Scheme: "file",
		Path:   s.root,
	}
}

func (s Store) RootTitle() string {
	return strings.TrimSuffix(s.title, ".local")
}

// ReadDir lists name. Symbolic links are reported with the type and info of
// their target so linked directories can be navigated into; the entry keeps
// os.ModeSymlink in Type(). Dangling links are returned as is.
func (s Store) ReadDir(ctx context.Context, name string) ([]os.DirEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := osReadDir(name)
	if err != nil {
		return nil, err
	}
	for i, entry := range entries {
		if entry.Type()&os.ModeSymlink == 0 {
			continue
		}
		target, err := osStat(filepath.Join(name, entry.Name()))
		if err != nil {
			continue
		}
		entries[i] = linkEntry{DirEntry: entry, target: target}
	}
	return entries, nil
}

func (s Store) Stat(ctx context.Context, name string) (os.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return osStat(name)
}

func (s Store) CreateDir(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return osMkdir(path, 0755)
}

func NewStore(root string) *Store {
	if root == "" {
		_, _ = fmt.Fprintf(os.Stderr, "osfile store root is empty, defaulting to /\n")
		root = "/"
	}
	store := Store{root: root}
	var err error
	if store.title, err = osHostname(); err != nil {
		store.title = err.Error()
	}
	return &store
}

type linkEntry struct {
	os.DirEntry
	target os.FileInfo
}

func (e linkEntry) IsDir() bool {
	return e.target.IsDir()
}

func (e linkEntry) Type() os.FileMode {
	return e.target.Mode().Type() | os.ModeSymlink
}

func (e linkEntry) Info() (os.FileInfo, error) {
	return e.target, nil
}

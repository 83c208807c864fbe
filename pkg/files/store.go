package files

import (
	"context"
	"errors"
	"net/url"
	"os"
)

var ErrNotImplemented = errors.New("not implemented")

// Store is a listing backend. Paths passed to a store are full paths
// including any prefix the store is mounted under (e.g. "otg:/DCIM").
type Store interface {
	RootTitle() string
	RootURL() url.URL
	ReadDir(ctx context.Context, name string) ([]os.DirEntry, error)
	Stat(ctx context.Context, name string) (os.FileInfo, error)
	CreateDir(ctx context.Context, path string) error
}

// Package lister turns a backend directory read into picker entries.
//
// Listing never fails: when a directory cannot be enumerated (permission
// denied, path vanished, I/O or network error) the result is empty and the
// cause is logged, so a caller always has something to render.
package lister

import (
	"context"
	"fmt"
	"os"

	"github.com/datatug/filepick/pkg/files"
	"github.com/datatug/filepick/pkg/fsutils"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Resolver picks the store that owns a path, see mounts.Table.
type Resolver interface {
	Resolve(p string) files.Store
}

type Options struct {
	// ProperSize sums descendant sizes for directories instead of reading
	// their metadata length. Cost is proportional to the subtree size.
	ProperSize bool
	ShowHidden bool
}

// Result is a sorted listing of a directory plus what is known about the
// directory itself.
type Result struct {
	Path    string
	Entries []files.Entry
	IsDir   bool
	Err     error
}

const defaultWorkers = 4

type Lister struct {
	resolver Resolver
	workers  int
	logger   zerolog.Logger
}

type Option func(*Lister)

// WithWorkers bounds how many entries of one listing are described concurrently.
func WithWorkers(n int) Option {
	return func(l *Lister) {
		if n > 0 {
			l.workers = n
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(l *Lister) {
		l.logger = logger
	}
}

func New(resolver Resolver, o ...Option) *Lister {
	l := &Lister{
		resolver: resolver,
		workers:  defaultWorkers,
		logger:   zerolog.Nop(),
	}
	for _, opt := range o {
		opt(l)
	}
	return l
}

// List returns the visible children of dirPath in backend order.
func (l *Lister) List(ctx context.Context, dirPath string, opts Options) []files.Entry {
	entries, err := l.list(ctx, dirPath, opts)
	if err != nil {
		l.logger.Debug().Err(err).Str("path", dirPath).Msg("listing degraded to empty")
		return []files.Entry{}
	}
	return entries
}

// Load lists dirPath, sorts the entries and stats the directory itself.
func (l *Lister) Load(ctx context.Context, dirPath string, opts Options) Result {
	result := Result{Path: dirPath}
	if info, err := l.Stat(ctx, dirPath); err != nil {
		result.Err = err
	} else {
		result.IsDir = info.IsDir()
	}
	entries, err := l.list(ctx, dirPath, opts)
	if err != nil {
		l.logger.Debug().Err(err).Str("path", dirPath).Msg("listing degraded to empty")
		result.Err = err
		entries = []files.Entry{}
	}
	result.Entries = files.SortEntries(entries)
	return result
}

func (l *Lister) Stat(ctx context.Context, p string) (os.FileInfo, error) {
	return l.resolver.Resolve(p).Stat(ctx, p)
}

func (l *Lister) CreateDir(ctx context.Context, p string) error {
	return l.resolver.Resolve(p).CreateDir(ctx, p)
}

func (l *Lister) list(ctx context.Context, dirPath string, opts Options) ([]files.Entry, error) {
	store := l.resolver.Resolve(dirPath)
	children, err := store.ReadDir(ctx, dirPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dirPath, err)
	}
	visible := visibleChildren(children, opts.ShowHidden)

	entries := make([]files.Entry, len(visible))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)
	for i, child := range visible {
		g.Go(func() error {
			entries[i] = l.describe(gctx, store, dirPath, child, opts)
			return nil
		})
	}
	_ = g.Wait()
	if err = ctx.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (l *Lister) describe(ctx context.Context, store files.Store, dirPath string, child os.DirEntry, opts Options) files.Entry {
	entry := files.Entry{
		Path:  files.JoinPath(dirPath, child.Name()),
		Name:  child.Name(),
		IsDir: child.IsDir(),
	}
	if entry.IsDir {
		entry.ChildCount = l.countChildren(ctx, store, entry.Path, opts.ShowHidden)
	}
	if opts.ProperSize {
		entry.Size = l.properSize(ctx, store, entry.Path, child, opts.ShowHidden)
	} else {
		entry.Size = metadataSize(child)
	}
	return entry
}

func (l *Lister) countChildren(ctx context.Context, store files.Store, dirPath string, showHidden bool) int {
	children, err := store.ReadDir(ctx, dirPath)
	if err != nil {
		l.logger.Debug().Err(err).Str("path", dirPath).Msg("child count unavailable")
		return 0
	}
	return len(visibleChildren(children, showHidden))
}

// properSize is the total size of regular files under p. Symlinked
// directories count their own metadata size only and are not descended into.
func (l *Lister) properSize(ctx context.Context, store files.Store, p string, entry os.DirEntry, showHidden bool) int64 {
	if !entry.IsDir() || entry.Type()&os.ModeSymlink != 0 {
		return metadataSize(entry)
	}
	if ctx.Err() != nil {
		return 0
	}
	children, err := store.ReadDir(ctx, p)
	if err != nil {
		l.logger.Debug().Err(err).Str("path", p).Msg("size of unreadable directory counted as 0")
		return 0
	}
	var total int64
	for _, child := range visibleChildren(children, showHidden) {
		total += l.properSize(ctx, store, files.JoinPath(p, child.Name()), child, showHidden)
	}
	return total
}

func visibleChildren(children []os.DirEntry, showHidden bool) []os.DirEntry {
	visible := make([]os.DirEntry, 0, len(children))
	for _, child := range children {
		name := child.Name()
		if name == "." || name == ".." {
			continue
		}
		if !showHidden && fsutils.IsHiddenName(name) {
			continue
		}
		visible = append(visible, child)
	}
	return visible
}

func metadataSize(entry os.DirEntry) int64 {
	info, err := entry.Info()
	if err != nil || info == nil {
		return 0
	}
	return info.Size()
}

package picker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/datatug/filepick/pkg/files"
	"github.com/datatug/filepick/pkg/lister"
	"github.com/rs/zerolog"
)

var ErrInvalidFolderName = errors.New("invalid folder name")

// Loader is what a session needs from the listing layer, see lister.Lister.
type Loader interface {
	Load(ctx context.Context, dirPath string, opts lister.Options) lister.Result
	Stat(ctx context.Context, p string) (os.FileInfo, error)
	CreateDir(ctx context.Context, p string) error
}

type SessionConfig struct {
	// InitialPath defaults to ExternalStoragePath when empty.
	InitialPath         string
	ExternalStoragePath string
	// InternalStoragePath is used when the initial path does not exist.
	InternalStoragePath string

	PickFile          bool
	ShowHidden        bool
	AllowCreateFolder bool
	ProperSize        bool
}

func (c SessionConfig) machineOptions() Options {
	return Options{
		PickFile:          c.PickFile,
		ShowHidden:        c.ShowHidden,
		AllowCreateFolder: c.AllowCreateFolder,
	}
}

// CreateFolderErrorListener is optionally implemented by a Listener to learn
// about folders that could not be created.
type CreateFolderErrorListener interface {
	OnCreateFolderFailed(path string, err error)
}

type SessionOption func(*Session)

// WithDispatcher makes the session run its Machine through d (for example a
// UI event queue) instead of a private Loop.
func WithDispatcher(d Dispatcher) SessionOption {
	return func(s *Session) {
		s.dispatch = d
	}
}

func WithLogger(logger zerolog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

// Session is a running picker. All methods are safe for concurrent use:
// each one is dispatched to the goroutine that owns the Machine.
type Session struct {
	cfg      SessionConfig
	loader   Loader
	listener Listener
	logger   zerolog.Logger

	dispatch  Dispatcher
	loop      *Loop
	machine   *Machine
	refresher *Refresher

	stopCtxWatch func() bool
	done         chan struct{}
	doneOnce     sync.Once
	result       string
	picked       bool
}

// StartSession resolves the initial directory on a worker and starts listing
// it. Cancelling ctx cancels the session.
func StartSession(ctx context.Context, cfg SessionConfig, loader Loader, listener Listener, o ...SessionOption) *Session {
	s := &Session{
		cfg:      cfg,
		loader:   loader,
		listener: listener,
		logger:   zerolog.Nop(),
		done:     make(chan struct{}),
	}
	for _, opt := range o {
		opt(s)
	}
	if s.dispatch == nil {
		s.loop = NewLoop()
		s.dispatch = s.loop.Dispatch
	}

	opts := lister.Options{ProperSize: cfg.ProperSize, ShowHidden: cfg.ShowHidden}
	load := func(ctx context.Context, p string) lister.Result {
		return loader.Load(ctx, p, opts)
	}
	s.refresher = NewRefresher(ctx, load, s.dispatch, s.deliver)
	s.machine = NewMachine(cfg.machineOptions(), (*sessionListener)(s), s.refresher.Submit)

	s.refresher.Go(func(ctx context.Context) {
		initial := ResolveInitialPath(ctx, loader, cfg)
		s.logger.Debug().Str("path", initial).Msg("picker session started")
		s.dispatch(func() {
			s.machine.Start(initial)
		})
	})
	s.stopCtxWatch = context.AfterFunc(ctx, s.Cancel)
	return s
}

// ResolveInitialPath picks the first directory of a session: the configured
// path (or the external storage root), the internal storage root if that
// does not exist, and the parent directory if it is a file.
func ResolveInitialPath(ctx context.Context, stat interface {
	Stat(ctx context.Context, p string) (os.FileInfo, error)
}, cfg SessionConfig) string {
	p := cfg.InitialPath
	if p == "" {
		p = cfg.ExternalStoragePath
	}
	info, err := stat.Stat(ctx, p)
	if p == "" || err != nil {
		p = cfg.InternalStoragePath
		if p == "" {
			p = "/"
		}
		if info, err = stat.Stat(ctx, p); err != nil {
			return p
		}
	}
	if !info.IsDir() {
		return files.ParentPath(p)
	}
	return p
}

func (s *Session) NavigateInto(p string) {
	s.post(func() { s.machine.NavigateInto(p) })
}

// SwitchRoot moves the session to another storage root, such as otg:/.
func (s *Session) SwitchRoot(root string) {
	s.post(func() { s.machine.SwitchRoot(root) })
}

func (s *Session) GoUp() {
	s.post(s.machine.GoUp)
}

func (s *Session) SelectEntry(entry files.Entry) {
	s.post(func() { s.machine.SelectEntry(entry) })
}

func (s *Session) ConfirmCurrent() {
	s.post(s.machine.ConfirmCurrent)
}

func (s *Session) Cancel() {
	s.post(s.machine.Cancel)
}

// CreateFolder creates name inside the current directory and, on success,
// picks it. It is ignored unless the session allows creating folders.
func (s *Session) CreateFolder(name string) {
	s.post(func() {
		if !s.cfg.AllowCreateFolder || s.machine.State() != Browsing {
			return
		}
		target := files.JoinPath(s.machine.CurrentPath(), name)
		if err := validateFolderName(name); err != nil {
			s.createFolderFailed(target, err)
			return
		}
		s.refresher.Go(func(ctx context.Context) {
			err := s.loader.CreateDir(ctx, target)
			s.dispatch(func() {
				if err != nil {
					s.createFolderFailed(target, err)
					return
				}
				s.machine.FolderCreated(target)
			})
		})
	})
}

// Done is closed after the listener has been told the session finished.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Result is the picked path. It is meaningful once Done is closed.
func (s *Session) Result() (path string, picked bool) {
	<-s.done
	return s.result, s.picked
}

// Close stops background work and waits for it. It does not notify the
// listener; call Cancel first for that.
func (s *Session) Close() {
	s.stopCtxWatch()
	s.refresher.Close()
	if s.loop != nil {
		s.loop.Close()
	}
}

func (s *Session) post(f func()) {
	select {
	case <-s.done:
		return
	default:
	}
	s.dispatch(f)
}

func (s *Session) deliver(listing Listing) {
	if listing.Err != nil {
		s.logger.Debug().Err(listing.Err).Str("path", listing.Path).Msg("listing degraded")
	}
	if !s.machine.Deliver(listing) {
		s.logger.Debug().
			Uint64("generation", listing.Generation).
			Uint64("latest", s.machine.Generation()).
			Str("path", listing.Path).
			Msg("stale listing discarded")
	}
}

func (s *Session) createFolderFailed(p string, err error) {
	s.logger.Warn().Err(err).Str("path", p).Msg("failed to create folder")
	if l, ok := s.listener.(CreateFolderErrorListener); ok {
		l.OnCreateFolderFailed(p, err)
	}
}

func validateFolderName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || trimmed == "." || trimmed == ".." || strings.ContainsAny(name, separators) {
		return fmt.Errorf("%w: %q", ErrInvalidFolderName, name)
	}
	return nil
}

// sessionListener forwards machine events and records the outcome.
type sessionListener Session

func (l *sessionListener) OnListingUpdated(update ListingUpdate) {
	l.listener.OnListingUpdated(update)
}

func (l *sessionListener) OnFinished(path string, picked bool) {
	s := (*Session)(l)
	s.result, s.picked = path, picked
	s.refresher.Stop()
	s.listener.OnFinished(path, picked)
	s.doneOnce.Do(func() {
		close(s.done)
	})
	if s.loop != nil {
		s.loop.Close()
	}
}

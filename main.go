package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"
	"net/url"
	"os"
	"path/filepath"
	"runtime/pprof"
	"strings"

	"github.com/datatug/filepick/pkg/files"
	"github.com/datatug/filepick/pkg/files/ftpfile"
	"github.com/datatug/filepick/pkg/files/httpfile"
	"github.com/datatug/filepick/pkg/files/mounts"
	"github.com/datatug/filepick/pkg/files/osfile"
	"github.com/datatug/filepick/pkg/files/otgfile"
	"github.com/datatug/filepick/pkg/fpsettings"
	"github.com/datatug/filepick/pkg/fpstate"
	"github.com/datatug/filepick/pkg/fsutils"
	"github.com/datatug/filepick/pkg/lister"
	"github.com/datatug/filepick/pkg/logging"
	"github.com/datatug/filepick/pkg/picker"
	"github.com/datatug/filepick/pkg/profiling"
	"github.com/datatug/filepick/pkg/tui"
	"github.com/rivo/tview"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// errNotPicked is returned when the picker was closed without a result.
var errNotPicked = errors.New("nothing picked")

var httpListenAndServe = http.ListenAndServe
var osExit = os.Exit
var pprofStopCPUProfile = pprof.StopCPUProfile
var loadSettings = fpsettings.Load
var saveLastPick = fpstate.SaveLastPick
var getLastDir = fpstate.GetLastDir

type rootOptions struct {
	pickFile     bool
	showHidden   bool
	createFolder bool
	properSize   bool
	last         bool
	otgIndex     string
	mountHTTP    []string
	mountFTP     []string
	logFile      string

	cpuProfile string
	memProfile string
	pprofAddr  string
	stopCPU    func()
	stopMem    func()
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Recovered from panic: %v\n", r)
			pprofStopCPUProfile()
			osExit(1)
		}
	}()
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errNotPicked) {
			_, _ = fmt.Fprintln(os.Stderr, err)
		}
		osExit(1)
	}
}

func newRootCmd() *cobra.Command {
	o := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "filepick [path]",
		Short: "Pick a file or folder in the terminal and print its path",
		Long: `Browse directories and print the picked path to stdout.

Example:
  # pick a folder, starting in the home directory
  cd "$(filepick ~)"

  # pick a file from a USB device index
  filepick --file --otg-index ~/usb.db otg:/`,
		Args:              cobra.MaximumNArgs(1),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRun:  o.startProfiling,
		PersistentPostRun: o.stopProfiling,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPicker(cmd, o, args)
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVar(&o.showHidden, "hidden", false, "show hidden files and folders")
	flags.BoolVar(&o.properSize, "proper-size", false, "compute folder sizes recursively")
	flags.StringVar(&o.otgIndex, "otg-index", "", "SQLite index served under otg:/")
	flags.StringArrayVar(&o.mountHTTP, "mount-http", nil, "serve an HTTP index page `URL` under its own prefix")
	flags.StringArrayVar(&o.mountFTP, "mount-ftp", nil, "serve an FTP `URL` under its own prefix")
	flags.StringVar(&o.cpuProfile, "cpuprofile", "", "write cpu profile to `file`")
	flags.StringVar(&o.memProfile, "memprofile", "", "write memory profile to `file`")
	flags.StringVar(&o.pprofAddr, "pprof", "", "start pprof http server on `address` (e.g. localhost:6060)")

	cmd.Flags().BoolVar(&o.pickFile, "file", false, "pick a file instead of a folder")
	cmd.Flags().BoolVar(&o.createFolder, "create-folder", false, "offer to create a new folder")
	cmd.Flags().BoolVar(&o.last, "last", false, "start in the folder of the previous pick")
	cmd.Flags().StringVar(&o.logFile, "log-file", "", "log file (default ~/.filepick/filepick.log)")

	cmd.AddCommand(newLsCmd(o))
	cmd.AddCommand(newOTGIndexCmd(o))
	return cmd
}

func (o *rootOptions) startProfiling(*cobra.Command, []string) {
	if o.pprofAddr != "" {
		go func() {
			if err := httpListenAndServe(o.pprofAddr, nil); err != nil {
				_, _ = fmt.Fprintf(os.Stderr, "pprof server error: %v\n", err)
			}
		}()
	}
	if o.cpuProfile != "" {
		o.stopCPU = profiling.DoCPUProfiling(o.cpuProfile)
	}
	if o.memProfile != "" {
		o.stopMem = profiling.DoMemProfiling(o.memProfile)
	}
}

func (o *rootOptions) stopProfiling(*cobra.Command, []string) {
	if o.stopCPU != nil {
		o.stopCPU()
	}
	if o.stopMem != nil {
		o.stopMem()
	}
}

func (o *rootOptions) settings(stderr io.Writer) fpsettings.Settings {
	s, err := loadSettings()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "failed to load settings: %v\n", err)
	}
	if o.otgIndex != "" {
		s.OTGIndex = fsutils.ExpandHome(o.otgIndex)
	}
	if o.properSize {
		s.Sorting |= fpsettings.SortBySize
	}
	return s
}

// newLister mounts every configured backend. The returned function releases them.
func newLister(s fpsettings.Settings, o *rootOptions, logger zerolog.Logger) (*lister.Lister, func(), error) {
	table, closeFn, err := newMounts(s, o)
	if err != nil {
		return nil, nil, err
	}
	return lister.New(table, lister.WithWorkers(s.SizeWorkers), lister.WithLogger(logger)), closeFn, nil
}

// newMounts builds the backend table: the local file system, the otg:/
// index when configured, and every --mount-http and --mount-ftp prefix.
func newMounts(s fpsettings.Settings, o *rootOptions) (*mounts.Table, func(), error) {
	table := mounts.NewTable(osfile.NewStore("/"))
	closeFn := func() {}

	if s.OTGIndex != "" {
		otg, err := otgfile.Open(s.OTGIndex)
		if err != nil {
			return nil, nil, err
		}
		closeFn = func() {
			_ = otg.Close()
		}
		if err = table.Mount(files.DeviceRoot, otg); err != nil {
			closeFn()
			return nil, nil, err
		}
	}
	mount := func(raw string, newStore func(u url.URL) files.Store) error {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			return fmt.Errorf("invalid mount URL %q", raw)
		}
		return table.Mount(strings.TrimSuffix(raw, "/")+"/", newStore(*u))
	}
	for _, raw := range o.mountHTTP {
		if err := mount(raw, func(u url.URL) files.Store { return httpfile.NewStore(u) }); err != nil {
			closeFn()
			return nil, nil, err
		}
	}
	for _, raw := range o.mountFTP {
		if err := mount(raw, func(u url.URL) files.Store { return ftpfile.NewStore(u) }); err != nil {
			closeFn()
			return nil, nil, err
		}
	}
	return table, closeFn, nil
}

// storageRoots lists what the first breadcrumb offers to switch to.
func storageRoots(s fpsettings.Settings, prefixes []string) []tui.Root {
	var roots []tui.Root
	add := func(title, p string) {
		if p == "" {
			return
		}
		for _, r := range roots {
			if picker.PathKey(r.Path) == picker.PathKey(p) {
				return
			}
		}
		roots = append(roots, tui.Root{Title: title, Path: p})
	}
	add("External storage", s.ExternalStorage)
	add("Internal storage", s.InternalStorage)
	for _, prefix := range prefixes {
		title := prefix
		if prefix == files.DeviceRoot {
			title = "USB (OTG)"
		}
		add(title, prefix)
	}
	add("File system", "/")
	return roots
}

func newFileLogger(o *rootOptions, s fpsettings.Settings) (zerolog.Logger, func()) {
	p := o.logFile
	if p == "" {
		dir, err := fpsettings.GetUserDir()
		if err != nil {
			return zerolog.Nop(), func() {}
		}
		p = filepath.Join(dir, "filepick.log")
	}
	logger, closer, err := logging.NewFile(p, s.LogLevel)
	if err != nil {
		return zerolog.Nop(), func() {}
	}
	return logger, func() {
		_ = closer.Close()
	}
}

// runUI runs the terminal application until the picker finishes.
var runUI = func(app *tview.Application, p *tui.Picker) error {
	return app.SetRoot(p, true).SetFocus(p.Table()).Run()
}

func runPicker(cmd *cobra.Command, o *rootOptions, args []string) error {
	s := o.settings(cmd.ErrOrStderr())
	logger, closeLog := newFileLogger(o, s)
	defer closeLog()
	fpstate.SetLogger(logger)

	table, closeMounts, err := newMounts(s, o)
	if err != nil {
		return err
	}
	defer closeMounts()
	l := lister.New(table, lister.WithWorkers(s.SizeWorkers), lister.WithLogger(logger))

	cfg := picker.SessionConfig{
		ExternalStoragePath: s.ExternalStorage,
		InternalStoragePath: s.InternalStorage,
		PickFile:            o.pickFile,
		ShowHidden:          o.showHidden,
		AllowCreateFolder:   o.createFolder,
		ProperSize:          s.ProperSize(),
	}
	if len(args) > 0 {
		cfg.InitialPath = fsutils.ExpandHome(args[0])
	} else if o.last {
		cfg.InitialPath = getLastDir()
	}

	app := tview.NewApplication()
	view := tui.NewPicker(tui.NewApp(app), tui.Options{
		PickFile:          o.pickFile,
		AllowCreateFolder: o.createFolder,
		SortBySize:        s.ProperSize(),
		ShowInfoBubble:    s.ShowInfoBubble,
		Roots:             storageRoots(s, table.Prefixes()),
	}, nil)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	session := picker.StartSession(ctx, cfg, l, view,
		picker.WithDispatcher(view.Dispatch),
		picker.WithLogger(logger),
	)
	view.SetController(session)

	uiErr := runUI(app, view)
	view.Close()
	cancel()
	session.Close()
	if uiErr != nil {
		return uiErr
	}

	select {
	case <-session.Done():
	default:
		return errNotPicked
	}
	return reportPick(cmd.OutOrStdout(), session, o.pickFile)
}

func reportPick(w io.Writer, session interface {
	Result() (string, bool)
}, pickedFile bool) error {
	p, picked := session.Result()
	if !picked {
		return errNotPicked
	}
	dir := p
	if pickedFile {
		dir = files.ParentPath(p)
	}
	saveLastPick(p, dir, pickedFile)
	_, err := fmt.Fprintln(w, p)
	return err
}

func newLsCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ls [path]",
		Short: "Print a directory the way the picker lists it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := o.settings(cmd.ErrOrStderr())
			logger := logging.New(cmd.ErrOrStderr(), s.LogLevel)
			l, closeLister, err := newLister(s, o, logger)
			if err != nil {
				return err
			}
			defer closeLister()

			cfg := picker.SessionConfig{ExternalStoragePath: s.ExternalStorage, InternalStoragePath: s.InternalStorage}
			if len(args) > 0 {
				cfg.InitialPath = fsutils.ExpandHome(args[0])
			}
			dirPath := picker.ResolveInitialPath(cmd.Context(), l, cfg)
			result := l.Load(cmd.Context(), dirPath, lister.Options{ProperSize: s.ProperSize(), ShowHidden: o.showHidden})
			if result.Err != nil {
				logger.Warn().Err(result.Err).Str("path", dirPath).Msg("listing is incomplete")
			}
			return printEntries(cmd.OutOrStdout(), result, s.ProperSize())
		},
	}
}

func printEntries(w io.Writer, result lister.Result, sortBySize bool) error {
	if _, err := fmt.Fprintln(w, picker.PathKey(result.Path)); err != nil {
		return err
	}
	for _, e := range result.Entries {
		var err error
		if e.IsDir {
			_, err = fmt.Fprintf(w, "  %-2s %s/ (%d)\n", e.BubbleText(sortBySize), e.Name, e.ChildCount)
		} else {
			_, err = fmt.Fprintf(w, "  %-2s %s %s\n", e.BubbleText(sortBySize), e.Name, fsutils.GetSizeShortText(e.Size))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func newOTGIndexCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "otg-index <source-dir>",
		Short: "Index a directory tree as the content of the otg:/ device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := o.settings(cmd.ErrOrStderr())
			if s.OTGIndex == "" {
				return errors.New("no index file: use --otg-index or set " + fpsettings.EnvOTGIndex)
			}
			src := fsutils.ExpandHome(args[0])
			exists, err := fsutils.DirExists(src)
			if err != nil {
				return err
			}
			if !exists {
				return fmt.Errorf("not a directory: %s", src)
			}
			store, err := otgfile.Open(s.OTGIndex)
			if err != nil {
				return err
			}
			defer func() {
				_ = store.Close()
			}()
			count, err := store.Import(cmd.Context(), src)
			if err != nil {
				return fmt.Errorf("failed to index %s: %w", src, err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "indexed %d documents from %s into %s\n", count, src, s.OTGIndex)
			return err
		},
	}
}

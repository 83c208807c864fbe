// Package picker decides what a file/folder picker shows and when a pick is
// complete.
//
// A Machine owns the navigation state and must only be touched from one
// goroutine. Directory listings are produced elsewhere (see Refresher) and
// handed back through Deliver as immutable Listing values tagged with the
// generation of the request that produced them.
package picker

import (
	"github.com/datatug/filepick/pkg/files"
	"github.com/datatug/filepick/pkg/lister"
)

// ListingUpdate is what a collaborator needs to render the current directory.
type ListingUpdate struct {
	Entries     []files.Entry
	CurrentPath string
	Trail       []string
}

type Listener interface {
	OnListingUpdated(update ListingUpdate)
	// OnFinished is called exactly once per session. picked is false on cancel.
	OnFinished(path string, picked bool)
}

// ListRequest asks for a listing of Path. Generation identifies the request.
type ListRequest struct {
	Generation uint64
	Path       string
}

// Listing is the outcome of a ListRequest.
type Listing struct {
	Generation uint64
	lister.Result
}

type Options struct {
	PickFile          bool
	ShowHidden        bool
	AllowCreateFolder bool
}

type Machine struct {
	opts     Options
	listener Listener
	request  func(ListRequest)

	state       State
	started     bool
	currentPath string
	trail       Trail
	entries     []files.Entry

	generation uint64
	pending    bool
	delivered  int
	isDir      bool
	// confirmHeld is set when ConfirmCurrent arrives while the listing of
	// currentPath is still in flight.
	confirmHeld bool
}

// NewMachine creates a machine in the Browsing state. Nothing is listed until Start.
func NewMachine(opts Options, listener Listener, request func(ListRequest)) *Machine {
	return &Machine{
		opts:     opts,
		listener: listener,
		request:  request,
	}
}

// Start sets the initial directory and requests its listing.
func (m *Machine) Start(initialPath string) {
	if m.started || m.state != Browsing {
		return
	}
	m.started = true
	m.currentPath = NormalizePath(initialPath)
	m.trail.Visit(m.currentPath)
	m.refresh()
}

func (m *Machine) NavigateInto(p string) {
	if !m.browsing() {
		return
	}
	m.currentPath = NormalizePath(p)
	m.trail.Visit(m.currentPath)
	m.refresh()
}

// SwitchRoot moves to another storage root. The trail starts over from it.
func (m *Machine) SwitchRoot(root string) {
	if !m.browsing() {
		return
	}
	m.currentPath = NormalizePath(root)
	m.trail.Reset(m.currentPath)
	m.refresh()
}

// GoUp returns to the previous crumb, or cancels the session from the first one.
func (m *Machine) GoUp() {
	if !m.browsing() {
		return
	}
	last, ok := m.trail.Pop()
	if !ok {
		m.Cancel()
		return
	}
	m.currentPath = last
	m.refresh()
}

func (m *Machine) SelectEntry(entry files.Entry) {
	if !m.browsing() {
		return
	}
	if entry.IsDir {
		m.NavigateInto(entry.Path)
		return
	}
	if m.opts.PickFile {
		m.finalize(entry.Path)
	}
}

// ConfirmCurrent picks the current directory in folder mode.
func (m *Machine) ConfirmCurrent() {
	if !m.browsing() || m.opts.PickFile {
		return
	}
	if m.pending {
		m.confirmHeld = true
		return
	}
	if m.isDir {
		m.finalize(m.currentPath)
	}
}

// FolderCreated finalizes with a directory just created from the current one.
func (m *Machine) FolderCreated(p string) {
	if !m.browsing() {
		return
	}
	m.finalize(p)
}

func (m *Machine) Cancel() {
	if m.state != Browsing {
		return
	}
	m.state = Closed
	m.listener.OnFinished("", false)
}

// Deliver applies a listing. It reports false for listings of superseded
// requests and for listings arriving after the session ended.
func (m *Machine) Deliver(listing Listing) bool {
	if !m.browsing() || listing.Generation != m.generation {
		return false
	}
	m.pending = false
	first := m.delivered == 0
	m.delivered++
	m.isDir = listing.IsDir

	if !first && m.autoFinalizes() && listing.IsDir && !files.ContainsDirectory(listing.Entries) {
		m.finalize(m.currentPath)
		return true
	}

	m.entries = listing.Entries
	m.listener.OnListingUpdated(ListingUpdate{
		Entries:     m.entries,
		CurrentPath: m.currentPath,
		Trail:       m.trail.Paths(),
	})

	if m.confirmHeld && m.browsing() && !m.pending {
		m.confirmHeld = false
		if m.isDir {
			m.finalize(m.currentPath)
		}
	}
	return true
}

func (m *Machine) State() State {
	return m.state
}

func (m *Machine) CurrentPath() string {
	return m.currentPath
}

func (m *Machine) Trail() []string {
	return m.trail.Paths()
}

// Entries is the listing currently shown.
func (m *Machine) Entries() []files.Entry {
	return m.entries
}

func (m *Machine) Generation() uint64 {
	return m.generation
}

func (m *Machine) Options() Options {
	return m.opts
}

func (m *Machine) browsing() bool {
	return m.started && m.state == Browsing
}

// autoFinalizes reports whether a directory without subdirectories is picked
// as soon as it is listed: folder mode without the create-folder affordance.
func (m *Machine) autoFinalizes() bool {
	return !m.opts.PickFile && !m.opts.AllowCreateFolder
}

func (m *Machine) refresh() {
	m.generation++
	m.pending = true
	m.confirmHeld = false
	m.request(ListRequest{Generation: m.generation, Path: m.currentPath})
}

func (m *Machine) finalize(p string) {
	m.state = Finalizing
	p = NormalizePath(p)
	m.listener.OnFinished(p, true)
	m.state = Closed
}

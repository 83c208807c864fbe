package tui

import (
	"errors"
	"testing"
	"time"

	"github.com/datatug/filepick/pkg/files"
	"github.com/datatug/filepick/pkg/picker"
	"github.com/datatug/filepick/pkg/tviewmocks"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type recordingController struct {
	calls   []string
	entries []files.Entry
}

func (c *recordingController) NavigateInto(p string) { c.calls = append(c.calls, "navigate:"+p) }
func (c *recordingController) GoUp()                 { c.calls = append(c.calls, "up") }
func (c *recordingController) SwitchRoot(p string)   { c.calls = append(c.calls, "root:"+p) }
func (c *recordingController) SelectEntry(entry files.Entry) {
	c.calls = append(c.calls, "select")
	c.entries = append(c.entries, entry)
}
func (c *recordingController) ConfirmCurrent()          { c.calls = append(c.calls, "confirm") }
func (c *recordingController) Cancel()                  { c.calls = append(c.calls, "cancel") }
func (c *recordingController) CreateFolder(name string) { c.calls = append(c.calls, "create:"+name) }

const waitTimeout = 5 * time.Second

func newTestPicker(t *testing.T, opts Options) (*Picker, *tviewmocks.MockApp, *recordingController) {
	t.Helper()
	ctrl := gomock.NewController(t)
	app := tviewmocks.NewMockApp(ctrl)
	p := NewPicker(app, opts, nil)
	c := &recordingController{}
	p.SetController(c)
	return p, app, c
}

var homeListing = picker.ListingUpdate{
	CurrentPath: "/home/u",
	Trail:       []string{"/home", "/home/u"},
	Entries: []files.Entry{
		{Path: "/home/u/Music", Name: "Music", IsDir: true, ChildCount: 3},
		{Path: "/home/u/Pictures", Name: "Pictures", IsDir: true, ChildCount: 12},
		{Path: "/home/u/notes.txt", Name: "notes.txt", Size: 2048},
	},
}

func key(k tcell.Key) *tcell.EventKey {
	return tcell.NewEventKey(k, 0, tcell.ModNone)
}

func runeKey(r rune) *tcell.EventKey {
	return tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone)
}

func TestPicker_OnListingUpdated(t *testing.T) {
	p, _, _ := newTestPicker(t, Options{})
	p.OnListingUpdated(homeListing)

	table := p.Table()
	assert.Equal(t, 3, table.GetRowCount())
	assert.Equal(t, " Music/", table.GetCell(0, 0).Text)
	assert.Equal(t, "  3 items ", table.GetCell(0, 1).Text)
	assert.Equal(t, " notes.txt", table.GetCell(2, 0).Text)
	assert.Equal(t, "  2KB", table.GetCell(2, 1).Text)
	var titles []string
	for _, item := range p.crumbs.Items() {
		titles = append(titles, item.Title())
	}
	assert.Equal(t, []string{"/home", "u"}, titles)
}

func TestPicker_EmptyListing(t *testing.T) {
	p, _, _ := newTestPicker(t, Options{})
	p.OnListingUpdated(picker.ListingUpdate{CurrentPath: "/e", Trail: []string{"/e"}})
	assert.Equal(t, "(empty)", p.Table().GetCell(0, 0).Text)
}

func TestPicker_RestoresScrollPosition(t *testing.T) {
	p, _, _ := newTestPicker(t, Options{})
	p.OnListingUpdated(homeListing)
	p.Table().Select(2, 0)

	p.OnListingUpdated(picker.ListingUpdate{
		CurrentPath: "/home/u/Music",
		Trail:       []string{"/home", "/home/u", "/home/u/Music"},
		Entries:     []files.Entry{{Path: "/home/u/Music/a.mp3", Name: "a.mp3"}},
	})
	row, _ := p.Table().GetSelection()
	assert.Equal(t, 0, row)

	back := homeListing
	back.CurrentPath = "/home/u/"
	p.OnListingUpdated(back)
	row, _ = p.Table().GetSelection()
	assert.Equal(t, 2, row, "selection restored for the same path key")
}

func TestPicker_Keys(t *testing.T) {
	for _, tt := range []struct {
		name     string
		opts     Options
		event    *tcell.EventKey
		expected []string
	}{
		{name: "backspace", event: key(tcell.KeyBackspace2), expected: []string{"up"}},
		{name: "left", event: key(tcell.KeyLeft), expected: []string{"up"}},
		{name: "escape", event: key(tcell.KeyEscape), expected: []string{"cancel"}},
		{name: "q", event: runeKey('q'), expected: []string{"cancel"}},
		{name: "o", event: runeKey('o'), expected: []string{"confirm"}},
		{name: "right_on_dir", event: key(tcell.KeyRight), expected: []string{"navigate:/home/u/Music"}},
		{name: "n_without_create", event: runeKey('n')},
	} {
		t.Run(tt.name, func(t *testing.T) {
			p, _, c := newTestPicker(t, tt.opts)
			p.OnListingUpdated(homeListing)
			assert.Nil(t, p.inputCapture(tt.event))
			assert.Equal(t, tt.expected, c.calls)
		})
	}

	t.Run("other_keys_pass_through", func(t *testing.T) {
		p, _, c := newTestPicker(t, Options{})
		event := key(tcell.KeyDown)
		assert.Same(t, event, p.inputCapture(event))
		event = runeKey('x')
		assert.Same(t, event, p.inputCapture(event))
		assert.Empty(t, c.calls)
	})
}

func TestPicker_Selected(t *testing.T) {
	p, _, c := newTestPicker(t, Options{PickFile: true})
	p.OnListingUpdated(homeListing)
	p.selected(2, 0)
	p.selected(7, 0)
	require.Len(t, c.entries, 1)
	assert.Equal(t, "/home/u/notes.txt", c.entries[0].Path)
}

func TestPicker_CreateFolder(t *testing.T) {
	p, app, c := newTestPicker(t, Options{AllowCreateFolder: true})
	p.OnListingUpdated(homeListing)

	app.EXPECT().SetFocus(p.folderName)
	assert.Nil(t, p.inputCapture(runeKey('n')))

	app.EXPECT().SetFocus(p.table)
	p.folderName.SetText("Backups")
	p.folderNameDone(tcell.KeyEnter)
	assert.Equal(t, []string{"create:Backups"}, c.calls)

	app.EXPECT().SetFocus(p.folderName)
	p.inputCapture(runeKey('n'))
	app.EXPECT().SetFocus(p.table)
	p.folderName.SetText("ignored")
	p.folderNameDone(tcell.KeyEscape)
	assert.Equal(t, []string{"create:Backups"}, c.calls)

	p.OnCreateFolderFailed("/home/u/Backups", errors.New("exists"))
	assert.Contains(t, p.status.GetText(true), "Failed to create /home/u/Backups: exists")
}

func TestPicker_StatusBubble(t *testing.T) {
	p, _, _ := newTestPicker(t, Options{ShowInfoBubble: true})
	p.OnListingUpdated(homeListing)
	assert.Contains(t, p.status.GetText(true), "M ")

	p.opts.SortBySize = true
	p.Table().Select(2, 0)
	assert.Contains(t, p.status.GetText(true), "2KB")
}

func TestPicker_OnFinished(t *testing.T) {
	ctrl := gomock.NewController(t)
	app := tviewmocks.NewMockApp(ctrl)
	var got string
	p := NewPicker(app, Options{}, func(path string, picked bool) {
		got = path
		assert.True(t, picked)
	})
	app.EXPECT().Stop()
	p.OnFinished("/home/u", true)
	assert.Equal(t, "/home/u", got)
}

func TestPicker_Dispatch(t *testing.T) {
	t.Run("keeps_order", func(t *testing.T) {
		p, app, _ := newTestPicker(t, Options{})
		defer p.Close()
		app.EXPECT().QueueUpdateDraw(gomock.Any()).Times(3).DoAndReturn(func(f func()) {
			f()
		})
		ran := make(chan int, 3)
		for i := range 3 {
			p.Dispatch(func() {
				ran <- i
			})
		}
		for i := range 3 {
			select {
			case got := <-ran:
				assert.Equal(t, i, got)
			case <-time.After(waitTimeout):
				t.Fatal("dispatched function did not run")
			}
		}
	})

	t.Run("does_not_wait_for_the_app", func(t *testing.T) {
		p, app, _ := newTestPicker(t, Options{})
		blocked := make(chan struct{})
		app.EXPECT().QueueUpdateDraw(gomock.Any()).AnyTimes().Do(func(func()) {
			<-blocked
		})
		returned := make(chan struct{})
		go func() {
			p.Dispatch(func() {})
			p.Dispatch(func() {})
			close(returned)
		}()
		select {
		case <-returned:
		case <-time.After(waitTimeout):
			t.Fatal("Dispatch blocked while the app was busy")
		}

		p.Close()
		select {
		case <-p.updates.Done():
		case <-time.After(waitTimeout):
			t.Fatal("Close did not release the dispatch queue")
		}
		close(blocked)
		p.Dispatch(func() {
			t.Error("dispatched after Close")
		})
	})
}

func TestGetSizeCell(t *testing.T) {
	for _, tt := range []struct {
		size     int64
		expected string
	}{
		{size: 0, expected: "  0B "},
		{size: 10, expected: "  10B "},
		{size: 2048, expected: "  2KB"},
		{size: 5 * 1024 * 1024, expected: "  5MB"},
		{size: 5 * 1024 * 1024 * 1024, expected: "  5GB"},
	} {
		cell := getSizeCell(tt.size, tcell.ColorWhite)
		assert.Equal(t, tt.expected, cell.Text, tt.size)
	}
}

func TestColorByFileExt(t *testing.T) {
	assert.Equal(t, tcell.ColorMediumPurple, colorByFileExt("cat.JPG"))
	assert.Equal(t, tcell.ColorWhiteSmoke, colorByFileExt("Makefile"))
}

var storageRoots = []Root{
	{Title: "Internal", Path: "/home"},
	{Title: "USB", Path: files.DeviceRoot},
}

func TestPicker_Crumbs(t *testing.T) {
	t.Run("ancestor_navigates", func(t *testing.T) {
		p, app, c := newTestPicker(t, Options{})
		p.OnListingUpdated(homeListing)
		app.EXPECT().SetFocus(p.table).Times(2)
		p.crumbs.Items()[0].Activate()
		p.crumbs.Items()[1].Activate()
		assert.Equal(t, []string{"navigate:/home"}, c.calls, "current crumb is a no-op")
	})

	t.Run("first_crumb_opens_roots", func(t *testing.T) {
		p, app, c := newTestPicker(t, Options{Roots: storageRoots})
		p.OnListingUpdated(homeListing)
		assert.Equal(t, "Internal", p.crumbs.Items()[0].Title())

		app.EXPECT().SetFocus(p.roots)
		p.crumbs.Items()[0].Activate()
		name, _ := p.body.GetFrontPage()
		assert.Equal(t, rootsPage, name)
		assert.Equal(t, 2, p.roots.GetItemCount())
		assert.Equal(t, 0, p.roots.GetCurrentItem(), "root of the current path is preselected")
		assert.Empty(t, c.calls)
	})

	t.Run("tab_focuses_crumbs", func(t *testing.T) {
		p, app, _ := newTestPicker(t, Options{})
		app.EXPECT().SetFocus(p.crumbs)
		assert.Nil(t, p.inputCapture(key(tcell.KeyTab)))
	})
}

func TestPicker_Roots(t *testing.T) {
	t.Run("select_switches_root", func(t *testing.T) {
		p, app, c := newTestPicker(t, Options{Roots: storageRoots})
		p.OnListingUpdated(homeListing)
		app.EXPECT().SetFocus(p.roots)
		assert.Nil(t, p.inputCapture(runeKey('r')))

		app.EXPECT().SetFocus(p.table)
		p.roots.SetCurrentItem(1)
		p.roots.InputHandler()(key(tcell.KeyEnter), func(tview.Primitive) {})
		assert.Equal(t, []string{"root:otg:/"}, c.calls)
		name, _ := p.body.GetFrontPage()
		assert.Equal(t, entriesPage, name)
	})

	t.Run("escape_closes", func(t *testing.T) {
		p, app, c := newTestPicker(t, Options{Roots: storageRoots})
		p.OnListingUpdated(homeListing)
		app.EXPECT().SetFocus(p.roots)
		p.showRoots()
		app.EXPECT().SetFocus(p.table)
		p.roots.InputHandler()(key(tcell.KeyEscape), func(tview.Primitive) {})
		assert.Empty(t, c.calls)
		name, _ := p.body.GetFrontPage()
		assert.Equal(t, entriesPage, name)
	})

	t.Run("without_roots", func(t *testing.T) {
		p, _, c := newTestPicker(t, Options{})
		assert.Nil(t, p.inputCapture(runeKey('r')))
		assert.Empty(t, c.calls)
	})
}

func TestContainsPath(t *testing.T) {
	assert.True(t, containsPath("/home", "/home"))
	assert.True(t, containsPath("/home", "/home/u/"))
	assert.False(t, containsPath("/home", "/homework"))
	assert.True(t, containsPath("/", "/var"))
	assert.True(t, containsPath("otg:/", "otg:/DCIM"))
	assert.False(t, containsPath("otg:/", "/DCIM"))
}

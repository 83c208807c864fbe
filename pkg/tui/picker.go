// Package tui renders a picker session in the terminal with tview.
package tui

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/datatug/filepick/pkg/files"
	"github.com/datatug/filepick/pkg/fsutils"
	"github.com/datatug/filepick/pkg/picker"
	"github.com/datatug/filepick/pkg/tui/crumbs"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// Controller is the part of picker.Session the view drives.
type Controller interface {
	NavigateInto(p string)
	SwitchRoot(root string)
	GoUp()
	SelectEntry(entry files.Entry)
	ConfirmCurrent()
	Cancel()
	CreateFolder(name string)
}

// Root is a storage root offered by the first breadcrumb.
type Root struct {
	Title string
	Path  string
}

type Options struct {
	PickFile          bool
	AllowCreateFolder bool
	SortBySize        bool
	ShowInfoBubble    bool
	Roots             []Root
}

type scrollState struct {
	row, offset int
}

var _ picker.Listener = (*Picker)(nil)
var _ picker.CreateFolderErrorListener = (*Picker)(nil)

const (
	entriesPage = "entries"
	rootsPage   = "roots"
)

// Picker shows the current directory, its breadcrumbs and a status line.
// Listener callbacks must arrive on the tview event goroutine.
type Picker struct {
	*tview.Flex
	app        App
	opts       Options
	controller Controller
	onDone     func(path string, picked bool)

	// updates hands dispatched functions to the app one at a time.
	updates   *picker.Loop
	stopped   chan struct{}
	closeOnce sync.Once

	crumbs     *crumbs.Breadcrumbs
	body       *tview.Pages
	table      *tview.Table
	roots      *tview.List
	status     *tview.TextView
	folderName *tview.InputField

	currentPath string
	entries     []files.Entry
	scroll      map[string]scrollState
}

func NewPicker(app App, opts Options, onDone func(path string, picked bool)) *Picker {
	p := &Picker{
		Flex:    tview.NewFlex().SetDirection(tview.FlexRow),
		app:     app,
		opts:    opts,
		onDone:  onDone,
		scroll:  make(map[string]scrollState),
		updates: picker.NewLoop(),
		stopped: make(chan struct{}),
	}

	p.crumbs = crumbs.NewBreadcrumbs()
	p.crumbs.SetBorderPadding(0, 0, 1, 1)

	p.table = tview.NewTable().SetSelectable(true, false)
	p.table.SetBorder(true)
	p.table.SetTitle(p.title())
	p.table.SetSelectedFunc(p.selected)
	p.table.SetSelectionChangedFunc(p.selectionChanged)
	p.table.SetInputCapture(p.inputCapture)

	p.status = tview.NewTextView().SetDynamicColors(true)
	p.status.SetBorderPadding(0, 0, 1, 1)

	p.crumbs.SetNextFocusTarget(p.table)

	p.roots = tview.NewList().ShowSecondaryText(true)
	p.roots.SetBorder(true)
	p.roots.SetTitle(" Storage ")
	p.roots.SetDoneFunc(p.hideRoots)

	p.body = tview.NewPages().
		AddPage(rootsPage, p.roots, true, false).
		AddPage(entriesPage, p.table, true, true)

	p.folderName = tview.NewInputField().SetLabel("New folder: ")
	p.folderName.SetDoneFunc(p.folderNameDone)

	p.AddItem(p.crumbs, 1, 0, false)
	p.AddItem(p.body, 0, 1, true)
	p.AddItem(p.status, 1, 0, false)
	p.showLoading()
	return p
}

// SetController connects the view to the session it displays.
func (p *Picker) SetController(c Controller) {
	p.controller = c
}

// Dispatch queues f for the tview event goroutine and returns at once.
// Functions run in dispatch order. It serves as the session dispatcher and
// is safe to call from the event goroutine itself.
func (p *Picker) Dispatch(f func()) {
	p.updates.Dispatch(func() {
		p.queueUpdateDraw(f)
	})
}

// queueUpdateDraw waits until the app has run f, or until the picker is
// closed. QueueUpdateDraw never returns once the app has stopped.
func (p *Picker) queueUpdateDraw(f func()) {
	ran := make(chan struct{})
	go p.app.QueueUpdateDraw(func() {
		defer close(ran)
		f()
	})
	select {
	case <-ran:
	case <-p.stopped:
	}
}

// Close drops pending dispatches. Call it once the app has stopped.
func (p *Picker) Close() {
	p.closeOnce.Do(func() {
		close(p.stopped)
		p.updates.Close()
	})
}

func (p *Picker) Table() *tview.Table {
	return p.table
}

func (p *Picker) title() string {
	if p.opts.PickFile {
		return " Select file "
	}
	return " Select folder "
}

func (p *Picker) showLoading() {
	p.table.Clear()
	p.table.SetCell(0, 0, tview.NewTableCell("Loading...").
		SetTextColor(tcell.ColorLightGray).
		SetSelectable(false))
}

func (p *Picker) OnListingUpdated(update picker.ListingUpdate) {
	if p.currentPath != "" {
		offset, _ := p.table.GetOffset()
		row, _ := p.table.GetSelection()
		p.scroll[picker.PathKey(p.currentPath)] = scrollState{row: row, offset: offset}
	}
	p.currentPath = update.CurrentPath
	p.entries = update.Entries

	p.setTrail(update.Trail)
	p.renderEntries()

	if s, ok := p.scroll[picker.PathKey(update.CurrentPath)]; ok && s.row < len(p.entries) {
		p.table.Select(s.row, 0)
		p.table.SetOffset(s.offset, 0)
	} else {
		p.table.Select(0, 0)
		p.table.ScrollToBeginning()
	}
	p.updateStatus()
}

func (p *Picker) OnFinished(path string, picked bool) {
	p.app.Stop()
	p.Close()
	if p.onDone != nil {
		p.onDone(path, picked)
	}
}

func (p *Picker) OnCreateFolderFailed(path string, err error) {
	p.status.SetText(fmt.Sprintf("[red]Failed to create %s: %v", tview.Escape(path), tview.Escape(err.Error())))
}

func (p *Picker) renderEntries() {
	p.table.Clear()
	if len(p.entries) == 0 {
		p.table.SetCell(0, 0, tview.NewTableCell("(empty)").
			SetTextColor(tcell.ColorGray).
			SetSelectable(false))
		return
	}
	for row, entry := range p.entries {
		nameCell := tview.NewTableCell(" " + tview.Escape(entry.Name)).SetExpansion(1)
		if entry.IsDir {
			nameCell.SetText(" " + tview.Escape(entry.Name) + "/")
			nameCell.SetTextColor(tcell.ColorDodgerBlue)
		} else {
			nameCell.SetTextColor(colorByFileExt(entry.Name))
		}
		p.table.SetCell(row, 0, nameCell)

		var infoCell *tview.TableCell
		if entry.IsDir && !p.opts.SortBySize {
			infoCell = tview.NewTableCell(fmt.Sprintf("  %d items ", entry.ChildCount)).
				SetAlign(tview.AlignRight).
				SetTextColor(tcell.ColorGray)
		} else {
			infoCell = getSizeCell(entry.Size, tcell.ColorWhiteSmoke)
		}
		p.table.SetCell(row, 1, infoCell)
	}
}

func (p *Picker) selectedEntry() (files.Entry, bool) {
	row, _ := p.table.GetSelection()
	if row < 0 || row >= len(p.entries) {
		return files.Entry{}, false
	}
	return p.entries[row], true
}

func (p *Picker) selected(row, _ int) {
	if p.controller == nil || row < 0 || row >= len(p.entries) {
		return
	}
	p.controller.SelectEntry(p.entries[row])
}

func (p *Picker) selectionChanged(_, _ int) {
	p.updateStatus()
}

func (p *Picker) updateStatus() {
	var sb strings.Builder
	sb.WriteString("[gray]")
	if entry, ok := p.selectedEntry(); ok && p.opts.ShowInfoBubble {
		sb.WriteString("[yellow]" + tview.Escape(entry.BubbleText(p.opts.SortBySize)) + "[gray] ")
	}
	sb.WriteString("Enter: open  Backspace: up  Tab: path  Esc: cancel")
	if len(p.opts.Roots) > 0 {
		sb.WriteString("  r: storage")
	}
	if !p.opts.PickFile {
		sb.WriteString("  o: select this folder")
	}
	if p.opts.AllowCreateFolder {
		sb.WriteString("  n: new folder")
	}
	p.status.SetText(sb.String())
}

func (p *Picker) inputCapture(event *tcell.EventKey) *tcell.EventKey {
	if p.controller == nil {
		return event
	}
	switch event.Key() {
	case tcell.KeyBackspace, tcell.KeyBackspace2, tcell.KeyLeft:
		p.controller.GoUp()
		return nil
	case tcell.KeyEscape:
		p.controller.Cancel()
		return nil
	case tcell.KeyTab:
		p.app.SetFocus(p.crumbs)
		return nil
	case tcell.KeyRight:
		if entry, ok := p.selectedEntry(); ok && entry.IsDir {
			p.controller.NavigateInto(entry.Path)
		}
		return nil
	case tcell.KeyRune:
		switch event.Rune() {
		case 'o':
			p.controller.ConfirmCurrent()
			return nil
		case 'n':
			if p.opts.AllowCreateFolder {
				p.showFolderNameInput()
			}
			return nil
		case 'q':
			p.controller.Cancel()
			return nil
		case 'r':
			p.showRoots()
			return nil
		}
	default:
		return event
	}
	return event
}

func (p *Picker) showFolderNameInput() {
	p.folderName.SetText("")
	p.RemoveItem(p.status)
	p.AddItem(p.folderName, 1, 0, true)
	p.app.SetFocus(p.folderName)
}

func (p *Picker) folderNameDone(key tcell.Key) {
	name := p.folderName.GetText()
	p.RemoveItem(p.folderName)
	p.AddItem(p.status, 1, 0, false)
	p.app.SetFocus(p.table)
	if key == tcell.KeyEnter && p.controller != nil && strings.TrimSpace(name) != "" {
		p.controller.CreateFolder(name)
	}
}

// setTrail rebuilds the breadcrumbs. The first crumb opens the storage
// chooser, the others jump back to their directory.
func (p *Picker) setTrail(trail []string) {
	items := make([]*crumbs.Breadcrumb, len(trail))
	for i, crumbPath := range trail {
		title := files.NameFromPath(crumbPath)
		if i == 0 {
			title = p.rootTitle(crumbPath)
		}
		action := func() {
			p.crumbClicked(i, crumbPath)
		}
		items[i] = crumbs.NewBreadcrumb(title, crumbPath, action)
	}
	p.crumbs.SetItems(items...)
}

func (p *Picker) rootTitle(rootPath string) string {
	for _, root := range p.opts.Roots {
		if picker.PathKey(root.Path) == picker.PathKey(rootPath) {
			return root.Title
		}
	}
	return rootPath
}

func (p *Picker) crumbClicked(index int, crumbPath string) {
	if p.controller == nil {
		return
	}
	if index == 0 && len(p.opts.Roots) > 0 {
		p.showRoots()
		return
	}
	p.app.SetFocus(p.table)
	if picker.PathKey(crumbPath) != picker.PathKey(p.currentPath) {
		p.controller.NavigateInto(crumbPath)
	}
}

func (p *Picker) showRoots() {
	if len(p.opts.Roots) == 0 {
		return
	}
	p.roots.Clear()
	current, longest := 0, -1
	for i, root := range p.opts.Roots {
		if key := picker.PathKey(root.Path); containsPath(key, p.currentPath) && len(key) > longest {
			current, longest = i, len(key)
		}
		p.roots.AddItem(root.Title, root.Path, 0, func() {
			p.hideRoots()
			if p.controller != nil {
				p.controller.SwitchRoot(root.Path)
			}
		})
	}
	p.roots.SetCurrentItem(current)
	p.body.SwitchToPage(rootsPage)
	p.app.SetFocus(p.roots)
}

// containsPath reports whether p is root or lies under it.
func containsPath(root, p string) bool {
	p = picker.PathKey(p)
	return p == root || strings.HasPrefix(p, strings.TrimSuffix(root, "/")+"/")
}

func (p *Picker) hideRoots() {
	p.body.SwitchToPage(entriesPage)
	p.app.SetFocus(p.table)
}

var fileColors = map[string]tcell.Color{
	"go":   tcell.ColorAqua,
	"txt":  tcell.ColorWhite,
	"md":   tcell.ColorBisque,
	"json": tcell.ColorGold,
	"yaml": tcell.ColorLightYellow,
	"yml":  tcell.ColorLightYellow,
	"pdf":  tcell.ColorOrangeRed,
	"zip":  tcell.ColorSandyBrown,
	"jpg":  tcell.ColorMediumPurple,
	"jpeg": tcell.ColorMediumPurple,
	"png":  tcell.ColorMediumPurple,
	"mp3":  tcell.ColorLightSalmon,
	"mp4":  tcell.ColorLightSalmon,
	"mov":  tcell.ColorLightSalmon,
}

func colorByFileExt(name string) tcell.Color {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if color, ok := fileColors[ext]; ok {
		return color
	}
	return tcell.ColorWhiteSmoke
}

func getSizeCell(size int64, defaultColor tcell.Color) (sizeCell *tview.TableCell) {
	sizeText := "  " + fsutils.GetSizeShortText(size)
	sizeCell = tview.NewTableCell(sizeText).SetAlign(tview.AlignRight)
	switch {
	case size >= 1024*1024*1024*1024:
		sizeCell.SetTextColor(tcell.ColorOrangeRed)
	case size >= 1024*1024*1024:
		sizeCell.SetTextColor(tcell.ColorYellow)
	case size >= 1024*1024:
		sizeCell.SetTextColor(tcell.ColorLightGreen)
	case size >= 1024:
		sizeCell.SetTextColor(tcell.ColorWhiteSmoke)
	case size > 0:
		sizeCell.SetText(sizeText + " ")
		sizeCell.SetTextColor(defaultColor)
	default:
		sizeCell.SetText(sizeText + " ")
		sizeCell.SetTextColor(tcell.ColorLightBlue)
	}
	return
}

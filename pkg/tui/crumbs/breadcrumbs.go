package crumbs

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

const defaultSeparator = " > "

// Breadcrumbs is a one-line bar of crumbs. Left and Right move the selection,
// Enter or a mouse click activates a crumb, Tab, Down and Esc hand focus to
// the next focus target.
type Breadcrumbs struct {
	*tview.Box
	items             []*Breadcrumb
	selectedItemIndex int
	separator         string
	separatorColor    string
	nextFocusTarget   tview.Primitive
}

func NewBreadcrumbs(o ...Option) *Breadcrumbs {
	bc := &Breadcrumbs{
		Box:            tview.NewBox(),
		separator:      defaultSeparator,
		separatorColor: "darkgray",
	}
	for _, opt := range o {
		opt(bc)
	}
	return bc
}

// SetItems replaces all crumbs and selects the last one.
func (bc *Breadcrumbs) SetItems(items ...*Breadcrumb) *Breadcrumbs {
	bc.items = items
	bc.selectedItemIndex = len(items) - 1
	return bc
}

// Push appends a crumb and selects it.
func (bc *Breadcrumbs) Push(item *Breadcrumb) *Breadcrumbs {
	bc.items = append(bc.items, item)
	bc.selectedItemIndex = len(bc.items) - 1
	return bc
}

func (bc *Breadcrumbs) Items() []*Breadcrumb {
	return bc.items
}

// Selected returns the selected crumb, or nil when there are none.
func (bc *Breadcrumbs) Selected() *Breadcrumb {
	if bc.selectedItemIndex < 0 || bc.selectedItemIndex >= len(bc.items) {
		return nil
	}
	return bc.items[bc.selectedItemIndex]
}

func (bc *Breadcrumbs) SetNextFocusTarget(p tview.Primitive) *Breadcrumbs {
	bc.nextFocusTarget = p
	return bc
}

// Text is the bar content with style tags, as Draw renders it.
func (bc *Breadcrumbs) Text() string {
	var text string
	for i := range bc.items {
		if i > 0 {
			text += bc.separatorText()
		}
		text += bc.itemText(i)
	}
	return text
}

func (bc *Breadcrumbs) separatorText() string {
	return "[" + bc.separatorColor + "]" + tview.Escape(bc.separator) + "[-]"
}

func (bc *Breadcrumbs) itemText(i int) string {
	item := bc.items[i]
	fg := "gray"
	if item.color != tcell.ColorDefault {
		fg = item.color.String()
	}
	attrs := ""
	if i == len(bc.items)-1 {
		fg, attrs = "white", "b"
	}
	bg := "-"
	if bc.HasFocus() && i == bc.selectedItemIndex {
		fg, bg = "black", "yellow"
	}
	return "[" + fg + ":" + bg + ":" + attrs + "]" + tview.Escape(item.title) + "[-:-:-]"
}

type span struct {
	start, width int
}

// layout returns the screen columns of each visible crumb, starting at x and
// clipped at maxX.
func (bc *Breadcrumbs) layout(x, maxX int) []span {
	spans := make([]span, 0, len(bc.items))
	sepWidth := tview.TaggedStringWidth(tview.Escape(bc.separator))
	for i, item := range bc.items {
		if x >= maxX {
			break
		}
		if i > 0 {
			x += sepWidth
		}
		w := tview.TaggedStringWidth(tview.Escape(item.title))
		spans = append(spans, span{start: x, width: min(w, max(maxX-x, 0))})
		x += w
	}
	return spans
}

func (bc *Breadcrumbs) Draw(screen tcell.Screen) {
	bc.DrawForSubclass(screen, bc)
	x, y, width, height := bc.GetInnerRect()
	if width <= 0 || height <= 0 {
		return
	}
	tview.Print(screen, bc.Text(), x, y, width, tview.AlignLeft, tcell.ColorGray)
}

// Focus selects the parent of the current crumb, the usual jump target.
func (bc *Breadcrumbs) Focus(delegate func(p tview.Primitive)) {
	if bc.selectedItemIndex >= len(bc.items)-1 && len(bc.items) > 1 {
		bc.selectedItemIndex = len(bc.items) - 2
	}
	bc.Box.Focus(delegate)
}

func (bc *Breadcrumbs) Blur() {
	bc.selectedItemIndex = len(bc.items) - 1
	bc.Box.Blur()
}

func (bc *Breadcrumbs) InputHandler() func(event *tcell.EventKey, setFocus func(p tview.Primitive)) {
	return bc.WrapInputHandler(func(event *tcell.EventKey, setFocus func(p tview.Primitive)) {
		switch event.Key() {
		case tcell.KeyTab, tcell.KeyDown, tcell.KeyEscape:
			if bc.nextFocusTarget != nil {
				setFocus(bc.nextFocusTarget)
			}
			return
		}
		if len(bc.items) == 0 {
			return
		}
		switch event.Key() {
		case tcell.KeyLeft:
			if bc.selectedItemIndex > 0 {
				bc.selectedItemIndex--
			}
		case tcell.KeyRight:
			if bc.selectedItemIndex < len(bc.items)-1 {
				bc.selectedItemIndex++
			}
		case tcell.KeyEnter:
			if item := bc.Selected(); item != nil {
				item.Activate()
			}
		default:
		}
	})
}

func (bc *Breadcrumbs) MouseHandler() func(action tview.MouseAction, event *tcell.EventMouse, setFocus func(p tview.Primitive)) (consumed bool, capture tview.Primitive) {
	return bc.WrapMouseHandler(func(action tview.MouseAction, event *tcell.EventMouse, setFocus func(p tview.Primitive)) (consumed bool, capture tview.Primitive) {
		if action != tview.MouseLeftClick && action != tview.MouseLeftDown {
			return false, nil
		}
		mx, my := event.Position()
		if !bc.InRect(mx, my) {
			return false, nil
		}
		x, y, width, height := bc.GetInnerRect()
		if my < y || my >= y+height {
			return false, nil
		}
		for i, s := range bc.layout(x, x+width) {
			if mx >= s.start && mx < s.start+s.width {
				bc.selectedItemIndex = i
				if action == tview.MouseLeftClick {
					bc.items[i].Activate()
				}
				return true, nil
			}
		}
		setFocus(bc)
		return true, nil
	})
}

// Package crumbs draws a clickable breadcrumb trail with tview.
package crumbs

import "github.com/gdamore/tcell/v2"

// Breadcrumb is one selectable item of a Breadcrumbs bar.
type Breadcrumb struct {
	title  string
	path   string
	color  tcell.Color
	action func()
}

// NewBreadcrumb creates a crumb for path shown as title. action runs when the
// crumb is activated; it may be nil.
func NewBreadcrumb(title, path string, action func()) *Breadcrumb {
	return &Breadcrumb{title: title, path: path, action: action}
}

func (b *Breadcrumb) Title() string {
	return b.title
}

func (b *Breadcrumb) Path() string {
	return b.path
}

func (b *Breadcrumb) Color() tcell.Color {
	return b.color
}

func (b *Breadcrumb) SetColor(color tcell.Color) *Breadcrumb {
	b.color = color
	return b
}

// Activate runs the crumb action.
func (b *Breadcrumb) Activate() {
	if b.action != nil {
		b.action()
	}
}

package tui

import "github.com/rivo/tview"

// App is the part of *tview.Application the picker view uses.
type App interface {
	QueueUpdateDraw(f func())
	SetFocus(p tview.Primitive)
	Stop()
}

type tviewApp struct {
	*tview.Application
}

func NewApp(app *tview.Application) App {
	return tviewApp{Application: app}
}

func (a tviewApp) QueueUpdateDraw(f func()) {
	_ = a.Application.QueueUpdateDraw(f)
}

func (a tviewApp) SetFocus(p tview.Primitive) {
	_ = a.Application.SetFocus(p)
}

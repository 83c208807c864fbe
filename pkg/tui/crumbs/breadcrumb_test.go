package crumbs

import (
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
)

func TestNewBreadcrumb(t *testing.T) {
	t.Parallel()
	t.Run("with_action", func(t *testing.T) {
		activated := 0
		bc := NewBreadcrumb("Music", "/home/u/Music", func() {
			activated++
		})
		assert.Equal(t, "Music", bc.Title())
		assert.Equal(t, "/home/u/Music", bc.Path())
		bc.Activate()
		assert.Equal(t, 1, activated)
	})

	t.Run("without_action", func(t *testing.T) {
		bc := NewBreadcrumb("otg:/", "otg:/", nil)
		assert.NotPanics(t, bc.Activate)
	})

	t.Run("color", func(t *testing.T) {
		bc := NewBreadcrumb("a", "/a", nil)
		assert.Equal(t, tcell.ColorDefault, bc.Color())
		assert.Equal(t, tcell.ColorRed, bc.SetColor(tcell.ColorRed).Color())
	})
}

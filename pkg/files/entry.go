package files

import (
	"unicode/utf8"

	"github.com/datatug/filepick/pkg/fsutils"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Entry is a snapshot of one directory child taken at listing time.
type Entry struct {
	Path       string
	Name       string
	IsDir      bool
	ChildCount int
	Size       int64
}

func NewEntry(path string, isDir bool, childCount int, size int64) Entry {
	return Entry{
		Path:       path,
		Name:       NameFromPath(path),
		IsDir:      isDir,
		ChildCount: childCount,
		Size:       size,
	}
}

// Equal compares entries by path, which is unique within a listing.
func (e Entry) Equal(other Entry) bool {
	return e.Path == other.Path
}

// BubbleText is the label for a fast-scroll indicator positioned on this entry.
func (e Entry) BubbleText(sortBySize bool) string {
	if sortBySize {
		return fsutils.GetSizeShortText(e.Size)
	}
	if e.Name == "" {
		return ""
	}
	_, n := utf8.DecodeRuneInString(e.Name)
	return cases.Upper(language.Und).String(e.Name[:n])
}

func (e Entry) String() string {
	return e.Path
}

package picker

import (
	"slices"
	"strings"
)

// Trail is the breadcrumb history of visited directories. It only grows by
// appending and only shrinks by truncation, unless Reset starts it over.
type Trail struct {
	paths []string
}

func NewTrail(paths ...string) *Trail {
	t := &Trail{}
	for _, p := range paths {
		t.Visit(p)
	}
	return t
}

// Visit records p as the current directory:
//   - a path already in the trail truncates everything after it
//   - a descendant of the last crumb is appended
//   - anything else replaces the last crumb
func (t *Trail) Visit(p string) {
	p = NormalizePath(p)
	if i := t.Index(p); i >= 0 {
		t.paths = t.paths[:i+1]
		return
	}
	if len(t.paths) == 0 || isDescendant(t.Last(), p) {
		t.paths = append(t.paths, p)
		return
	}
	t.paths[len(t.paths)-1] = p
}

// Reset drops every crumb and starts over from root.
func (t *Trail) Reset(root string) {
	t.paths = append(t.paths[:0], NormalizePath(root))
}

// Pop drops the last crumb and returns the new last one.
// A trail with a single crumb is left intact and ok is false.
func (t *Trail) Pop() (last string, ok bool) {
	if len(t.paths) <= 1 {
		return t.Last(), false
	}
	t.paths = t.paths[:len(t.paths)-1]
	return t.Last(), true
}

func (t *Trail) Last() string {
	if len(t.paths) == 0 {
		return ""
	}
	return t.paths[len(t.paths)-1]
}

func (t *Trail) Len() int {
	return len(t.paths)
}

func (t *Trail) Index(p string) int {
	return slices.Index(t.paths, NormalizePath(p))
}

func (t *Trail) Paths() []string {
	return slices.Clone(t.paths)
}

func isDescendant(parent, child string) bool {
	if parent == "" || child == parent {
		return false
	}
	prefix := parent
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return strings.HasPrefix(child, prefix)
}

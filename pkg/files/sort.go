package files

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
)

type sortKey struct {
	entry Entry
	name  string
}

// SortEntries returns a copy of entries with directories first and each group
// ordered by case-folded name. Entries that compare equal keep their order.
func SortEntries(entries []Entry) []Entry {
	fold := cases.Fold()
	keys := make([]sortKey, len(entries))
	for i, entry := range entries {
		keys[i] = sortKey{entry: entry, name: fold.String(entry.Name)}
	}
	slices.SortStableFunc(keys, func(a, b sortKey) int {
		if a.entry.IsDir != b.entry.IsDir {
			if a.entry.IsDir {
				return -1
			}
			return 1
		}
		return strings.Compare(a.name, b.name)
	})
	sorted := make([]Entry, len(keys))
	for i, k := range keys {
		sorted[i] = k.entry
	}
	return sorted
}

// ContainsDirectory reports whether any entry is a directory.
func ContainsDirectory(entries []Entry) bool {
	return slices.ContainsFunc(entries, func(e Entry) bool {
		return e.IsDir
	})
}

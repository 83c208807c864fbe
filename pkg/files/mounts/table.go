// Package mounts selects the listing backend that owns a path.
package mounts

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/datatug/filepick/pkg/files"
)

var ErrAlreadyMounted = errors.New("mounts: prefix already mounted")

type record struct {
	prefix string
	store  files.Store
}

// Table maps path prefixes (e.g. "otg:/", "https://") to stores. Paths that
// match no prefix belong to the fallback store.
type Table struct {
	mu       sync.RWMutex
	records  []record
	fallback files.Store
}

func NewTable(fallback files.Store) *Table {
	return &Table{fallback: fallback}
}

func (t *Table) Mount(prefix string, store files.Store) error {
	if prefix == "" {
		return errors.New("mounts: empty prefix")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, r := range t.records {
		if r.prefix == prefix {
			return fmt.Errorf("%w: %s", ErrAlreadyMounted, prefix)
		}
	}
	t.records = append(t.records, record{prefix: prefix, store: store})
	// longest prefix first
	sort.SliceStable(t.records, func(i, j int) bool {
		return len(t.records[i].prefix) > len(t.records[j].prefix)
	})
	return nil
}

// Resolve returns the store owning p. The longest matching prefix wins.
func (t *Table) Resolve(p string) files.Store {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, r := range t.records {
		if len(p) >= len(r.prefix) && p[:len(r.prefix)] == r.prefix {
			return r.store
		}
		// "otg:" addresses the same root as "otg:/"
		if p+"/" == r.prefix {
			return r.store
		}
	}
	return t.fallback
}

func (t *Table) Prefixes() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	prefixes := make([]string, len(t.records))
	for i, r := range t.records {
		prefixes[i] = r.prefix
	}
	return prefixes
}

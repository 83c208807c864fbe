package picker

import (
	"path/filepath"
	"strings"

	"github.com/datatug/filepick/pkg/files"
)

const separators = "/" + string(filepath.Separator)

// NormalizePath trims trailing separators. The device root and one-character
// paths such as "/" are returned unchanged.
func NormalizePath(p string) string {
	if p == files.DeviceRoot || len(p) <= 1 {
		return p
	}
	trimmed := strings.TrimRight(p, separators)
	if trimmed == "" {
		return p[:1]
	}
	return trimmed
}

// PathKey is a stable key for per-directory caches (e.g. scroll positions):
// "/a/b" and "/a/b/" map to the same key.
func PathKey(p string) string {
	return NormalizePath(p)
}

package files

import (
	"path"
	"path/filepath"
	"strings"
)

// DeviceRoot is the sentinel root of storage that is not reachable through
// ordinary filesystem calls (a USB/OTG device exposed as a document tree).
const DeviceRoot = "otg:/"

const separators = "/" + string(filepath.Separator)

// JoinPath joins a child name to a directory path. URL-like paths keep their
// scheme and host intact.
func JoinPath(dir, name string) string {
	if i := strings.Index(dir, "://"); i >= 0 {
		head, rest := dir[:i+3], dir[i+3:]
		return head + path.Join(rest, name)
	}
	return path.Join(dir, name)
}

// NameFromPath returns the last element of p.
func NameFromPath(p string) string {
	trimmed := strings.TrimRight(p, separators)
	if trimmed == "" {
		return p
	}
	return trimmed[strings.LastIndexAny(trimmed, separators)+1:]
}

// ParentPath returns the directory containing p. Roots are their own parent.
func ParentPath(p string) string {
	if p == DeviceRoot {
		return p
	}
	if i := strings.Index(p, "://"); i >= 0 {
		head, rest := p[:i+3], strings.TrimRight(p[i+3:], "/")
		parent := path.Dir(rest)
		if parent == "." {
			return head + rest
		}
		return head + parent
	}
	if strings.HasPrefix(p, DeviceRoot) {
		rest := strings.Trim(strings.TrimPrefix(p, DeviceRoot), "/")
		parent := path.Dir(rest)
		if parent == "." {
			return DeviceRoot
		}
		return DeviceRoot + parent
	}
	return filepath.Dir(p)
}

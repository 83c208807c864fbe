package httpfile

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"regexp"
	"strings"

	"github.com/datatug/filepick/pkg/files"
)

type StoreOption func(*HttpStore)

func NewStore(root url.URL, o ...StoreOption) *HttpStore {
	store := &HttpStore{
		Root: root,
	}
	for _, opt := range o {
		opt(store)
	}
	return store
}

func WithHttpClient(client *http.Client) StoreOption {
	return func(store *HttpStore) {
		store.client = client
	}
}

var _ files.Store = (*HttpStore)(nil)

var hrefRe = regexp.MustCompile(`<a href="([^"]+)">`)

// HttpStore lists directories of a web server that serves index pages,
// e.g. nginx autoindex or Apache mod_autoindex.
type HttpStore struct {
	Root   url.URL
	client *http.Client
}

func (h HttpStore) RootURL() url.URL {
	return h.Root
}

func (h HttpStore) RootTitle() string {
	root := h.Root
	root.User = nil
	return root.String()
}

func (h HttpStore) httpClient() *http.Client {
	if h.client == nil {
		return http.DefaultClient
	}
	return h.client
}

// resolve accepts either a full URL or a path relative to the root host.
func (h HttpStore) resolve(name string) url.URL {
	if u, err := url.Parse(name); err == nil && u.Scheme != "" {
		if u.User == nil {
			u.User = h.Root.User
		}
		return *u
	}
	u := h.Root
	u.Path = name
	return u
}

func (h HttpStore) ReadDir(ctx context.Context, name string) ([]os.DirEntry, error) {
	u := h.resolve(name)
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}

	reqURL := u.String()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := h.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch directory listing: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	matches := hrefRe.FindAllStringSubmatch(string(body), -1)

	var entries []os.DirEntry
	for _, match := range matches {
		href := match[1]
		if href == "../" || href == "/" || strings.HasPrefix(href, "?") || strings.Contains(href, "://") {
			continue
		}
		isDir := strings.HasSuffix(href, "/")
		entryName := path.Base(strings.TrimSuffix(href, "/"))
		if unescaped, err := url.PathUnescape(entryName); err == nil {
			entryName = unescaped
		}
		if entryName == "" || entryName == "." || entryName == ".." || strings.Contains(entryName, "/") {
			continue
		}
		entries = append(entries, files.NewDirEntry(entryName, isDir))
	}

	return entries, nil
}

// Stat issues a HEAD request. A response redirected to a trailing-slash URL,
// or a URL that only answers as an index page, is a directory.
func (h HttpStore) Stat(ctx context.Context, name string) (os.FileInfo, error) {
	u := h.resolve(name)
	entryName := files.NameFromPath(u.Path)
	if entryName == "/" || entryName == "" {
		entryName = u.Host
	}
	dirInfo := files.NewFileInfo(files.NewDirEntry(entryName, true))

	if u.Path == "" || strings.HasSuffix(u.Path, "/") {
		if _, err := h.ReadDir(ctx, name); err != nil {
			return nil, err
		}
		return dirInfo, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := h.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", u.String(), err)
	}
	_ = resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		if resp.Request != nil && strings.HasSuffix(resp.Request.URL.Path, "/") {
			return dirInfo, nil
		}
		return files.NewFileInfo(files.NewDirEntry(entryName, false), files.Size(max(resp.ContentLength, 0))), nil
	}
	if _, err = h.ReadDir(ctx, name); err == nil {
		return dirInfo, nil
	}
	return nil, fmt.Errorf("%w: %s (status %d)", os.ErrNotExist, u.String(), resp.StatusCode)
}

func (h HttpStore) CreateDir(ctx context.Context, path string) error {
	_, _ = ctx, path
	return fmt.Errorf("CreateDir over HTTP: %w", files.ErrNotImplemented)
}

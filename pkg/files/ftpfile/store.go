package ftpfile

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/datatug/filepick/pkg/files"
	"github.com/jlaffaye/ftp"
)

const schema = "ftp"

var _ files.Store = (*Store)(nil)

// Store lists an FTP server. Every call opens its own control connection.
type Store struct {
	root     url.URL
	explicit bool
	implicit bool
	timeout  time.Duration
}

func NewStore(root url.URL) *Store {
	root.Scheme = schema
	return &Store{
		root:    root,
		timeout: 5 * time.Second,
	}
}

func (s *Store) RootURL() url.URL {
	return s.root
}

func (s *Store) RootTitle() string {
	return schema + "://" + s.root.Host
}

func (s *Store) SetTLS(explicit, implicit bool) {
	s.explicit = explicit
	s.implicit = implicit
}

// serverPath maps "ftp://host/dir" or "/dir" to the path sent to the server.
func (s *Store) serverPath(name string) string {
	if u, err := url.Parse(name); err == nil && u.Scheme != "" {
		name = u.Path
	}
	if name == "" {
		return "/"
	}
	return name
}

func (s *Store) connect(ctx context.Context) (*ftp.ServerConn, error) {
	host, port, err := net.SplitHostPort(s.root.Host)
	if err != nil {
		host = s.root.Host
		port = "21"
	}
	addr := net.JoinHostPort(host, port)
	options := []ftp.DialOption{
		ftp.DialWithTimeout(s.timeout),
		ftp.DialWithContext(ctx),
	}
	if s.implicit {
		options = append(options, ftp.DialWithTLS(&tls.Config{ServerName: host, InsecureSkipVerify: true}))
	}
	if s.explicit {
		options = append(options, ftp.DialWithExplicitTLS(&tls.Config{ServerName: host, InsecureSkipVerify: true}))
	}

	c, err := ftp.Dial(addr, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ftp server: %w", err)
	}

	if user := s.root.User; user != nil {
		password, _ := user.Password()
		if err = c.Login(user.Username(), password); err != nil {
			_ = c.Quit()
			return nil, fmt.Errorf("failed to login to ftp server: %w", err)
		}
	}
	return c, nil
}

func (s *Store) ReadDir(ctx context.Context, name string) ([]os.DirEntry, error) {
	c, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = c.Quit()
	}()

	entries, err := c.List(s.serverPath(name))
	if err != nil {
		return nil, fmt.Errorf("failed to list directory: %w", err)
	}

	result := make([]os.DirEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.Name == "." || entry.Name == ".." || strings.Contains(entry.Name, "/") {
			continue
		}
		result = append(result, newDirEntry(entry))
	}
	return result, nil
}

func (s *Store) Stat(ctx context.Context, name string) (os.FileInfo, error) {
	serverPath := s.serverPath(name)
	if serverPath == "/" {
		return files.NewFileInfo(files.NewDirEntry(s.root.Host, true)), nil
	}
	c, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = c.Quit()
	}()

	entry, err := c.GetEntry(serverPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", serverPath, err)
	}
	entry.Name = files.NameFromPath(serverPath)
	info, _ := newDirEntry(entry).Info()
	return info, nil
}

func (s *Store) CreateDir(ctx context.Context, path string) error {
	c, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = c.Quit()
	}()
	if err = c.MakeDir(s.serverPath(path)); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return nil
}

func newDirEntry(entry *ftp.Entry) files.DirEntry {
	return files.NewDirEntry(entry.Name, entry.Type == ftp.EntryTypeFolder,
		files.Size(int64(entry.Size)),
		files.ModTime(entry.Time),
		files.Sys(entry),
	)
}

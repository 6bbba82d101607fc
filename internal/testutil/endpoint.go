package testutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"adeploy/internal/deploy"
)

// MemEndpoint is an in-memory deploy.Endpoint, the sync engine's
// equivalent of bt-go/internal/testutil/filesystem.go's
// MockFilesystemManager: a map keyed by relative path standing in for a
// real filesystem or SFTP root.
type MemEndpoint struct {
	kind  deploy.EndpointKind
	root  string
	files map[string]*memFile

	// ShellFunc, when set, backs Shell; otherwise Shell returns
	// ErrShellUnsupported like the local driver.
	ShellFunc func(ctx context.Context, command string) (string, string, error)
}

type memFile struct {
	content []byte
	modTime time.Time
}

// NewMemEndpoint returns an empty in-memory endpoint of the given kind.
func NewMemEndpoint(kind deploy.EndpointKind, root string) *MemEndpoint {
	return &MemEndpoint{kind: kind, root: root, files: make(map[string]*memFile)}
}

// AddFile seeds relPath with content and modTime, truncated to whole
// seconds like a real endpoint would report it.
func (m *MemEndpoint) AddFile(relPath string, content []byte, modTime time.Time) {
	m.files[strings.Trim(relPath, "/")] = &memFile{content: content, modTime: modTime.Truncate(time.Second)}
}

// Contents returns the current bytes stored at relPath, for assertions.
func (m *MemEndpoint) Contents(relPath string) ([]byte, bool) {
	f, ok := m.files[strings.Trim(relPath, "/")]
	if !ok {
		return nil, false
	}
	return f.content, true
}

// Paths returns every path currently stored, sorted.
func (m *MemEndpoint) Paths() []string {
	paths := make([]string, 0, len(m.files))
	for p := range m.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func (m *MemEndpoint) Kind() deploy.EndpointKind { return m.kind }
func (m *MemEndpoint) Root() string              { return m.root }
func (m *MemEndpoint) Open(context.Context) error  { return nil }
func (m *MemEndpoint) Close() error                { return nil }

func (m *MemEndpoint) List(context.Context) ([]deploy.FileRecord, error) {
	recs := make([]deploy.FileRecord, 0, len(m.files))
	for p, f := range m.files {
		recs = append(recs, deploy.NewFileRecord(p, p, int64(len(f.content)), f.modTime, false))
	}
	return recs, nil
}

func (m *MemEndpoint) Stat(ctx context.Context, relPath string) (deploy.FileRecord, error) {
	f, ok := m.files[strings.Trim(relPath, "/")]
	if !ok {
		return deploy.FileRecord{}, &deploy.EndpointError{Endpoint: m.root, Err: fmt.Errorf("not found: %s", relPath)}
	}
	return deploy.NewFileRecord(relPath, relPath, int64(len(f.content)), f.modTime, false), nil
}

func (m *MemEndpoint) Read(ctx context.Context, relPath string) (io.ReadCloser, error) {
	f, ok := m.files[strings.Trim(relPath, "/")]
	if !ok {
		return nil, &deploy.TransferError{Path: relPath, Op: "read", Err: fmt.Errorf("not found")}
	}
	return io.NopCloser(bytes.NewReader(f.content)), nil
}

func (m *MemEndpoint) Write(ctx context.Context, relPath string, r io.Reader, mtime time.Time) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return &deploy.TransferError{Path: relPath, Op: "write", Err: err}
	}
	m.files[strings.Trim(relPath, "/")] = &memFile{content: data, modTime: mtime.Truncate(time.Second)}
	return nil
}

func (m *MemEndpoint) DeleteFile(ctx context.Context, relPath string) error {
	delete(m.files, strings.Trim(relPath, "/"))
	return nil
}

func (m *MemEndpoint) DeleteDir(ctx context.Context, relPath string) error {
	prefix := strings.Trim(relPath, "/") + "/"
	for p := range m.files {
		if strings.HasPrefix(p, prefix) {
			delete(m.files, p)
		}
	}
	return nil
}

func (m *MemEndpoint) Shell(ctx context.Context, command string) (string, string, error) {
	if m.ShellFunc != nil {
		return m.ShellFunc(ctx, command)
	}
	return "", "", deploy.ErrShellUnsupported
}

var _ deploy.Endpoint = (*MemEndpoint)(nil)

// Package endpoint implements deploy.Endpoint for the two transports the
// engine understands: a local filesystem root (used for both true local
// paths and UNC shares, which the os package treats identically on
// Windows), and a remote SSH+SFTP root. Both generalize
// bt-go/internal/fs/filesystem.go's "find files under a tracked
// directory" shape into "list/read/write/delete under an endpoint root".
package endpoint

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"adeploy/internal/deploy"
)

// Local is a deploy.Endpoint backed by the os package. It covers both
// plain local directories and UNC shares — on the platforms this engine
// targets, a UNC path is just another path os.Open understands.
type Local struct {
	root string
}

// NewLocal returns a Local endpoint rooted at root. root is not validated
// until Open.
func NewLocal(root string) *Local {
	return &Local{root: filepath.Clean(root)}
}

func (l *Local) Kind() deploy.EndpointKind { return deploy.KindWindowsShare }

func (l *Local) Root() string { return l.root }

// Open verifies the root exists and is a directory. There is no
// connection to establish for a local path.
func (l *Local) Open(ctx context.Context) error {
	info, err := os.Stat(l.root)
	if err != nil {
		return &deploy.EndpointError{Endpoint: l.root, Err: fmt.Errorf("stat root: %w", err)}
	}
	if !info.IsDir() {
		return &deploy.EndpointError{Endpoint: l.root, Err: fmt.Errorf("root is not a directory")}
	}
	return nil
}

func (l *Local) Close() error { return nil }

// List walks the root recursively and returns every regular file. Local
// roots never contain symlinks the engine needs to traverse specially —
// filepath.WalkDir follows none by default, matching the teacher's
// FindFiles behavior of rejecting symlinks rather than chasing them.
func (l *Local) List(ctx context.Context) ([]deploy.FileRecord, error) {
	var records []deploy.FileRecord

	err := filepath.WalkDir(l.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", p, err)
		}
		rel, err := filepath.Rel(l.root, p)
		if err != nil {
			return fmt.Errorf("relativizing %s: %w", p, err)
		}
		records = append(records, deploy.NewFileRecord(rel, p, info.Size(), info.ModTime(), false))
		return nil
	})
	if err != nil {
		return nil, &deploy.EndpointError{Endpoint: l.root, Err: fmt.Errorf("listing: %w", err)}
	}
	return records, nil
}

func (l *Local) Stat(ctx context.Context, relPath string) (deploy.FileRecord, error) {
	abs := filepath.Join(l.root, relPath)
	info, err := os.Stat(abs)
	if err != nil {
		return deploy.FileRecord{}, &deploy.EndpointError{Endpoint: l.root, Err: fmt.Errorf("stat %s: %w", relPath, err)}
	}
	return deploy.NewFileRecord(relPath, abs, info.Size(), info.ModTime(), info.IsDir()), nil
}

func (l *Local) Read(ctx context.Context, relPath string) (io.ReadCloser, error) {
	abs := filepath.Join(l.root, relPath)
	f, err := os.Open(abs)
	if err != nil {
		return nil, &deploy.TransferError{Path: relPath, Op: "read", Err: err}
	}
	return f, nil
}

// Write streams r to relPath, creating missing ancestor directories
// first, then mirrors the source mtime onto the written file.
func (l *Local) Write(ctx context.Context, relPath string, r io.Reader, mtime time.Time) error {
	abs := filepath.Join(l.root, relPath)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return &deploy.TransferError{Path: relPath, Op: "write", Err: fmt.Errorf("creating parent directories: %w", err)}
	}

	f, err := os.Create(abs)
	if err != nil {
		return &deploy.TransferError{Path: relPath, Op: "write", Err: err}
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return &deploy.TransferError{Path: relPath, Op: "write", Err: err}
	}
	if err := f.Close(); err != nil {
		return &deploy.TransferError{Path: relPath, Op: "write", Err: err}
	}
	if err := os.Chtimes(abs, mtime, mtime); err != nil {
		return &deploy.TransferError{Path: relPath, Op: "write", Err: fmt.Errorf("setting mtime: %w", err)}
	}
	return nil
}

func (l *Local) DeleteFile(ctx context.Context, relPath string) error {
	abs := filepath.Join(l.root, relPath)
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return &deploy.TransferError{Path: relPath, Op: "delete", Err: err}
	}
	return nil
}

func (l *Local) DeleteDir(ctx context.Context, relPath string) error {
	abs := filepath.Join(l.root, relPath)
	if err := os.RemoveAll(abs); err != nil {
		return &deploy.TransferError{Path: relPath, Op: "delete", Err: err}
	}
	return nil
}

// Shell is not supported on a local endpoint — there is no remote
// command channel to run it over.
func (l *Local) Shell(ctx context.Context, command string) (string, string, error) {
	return "", "", deploy.ErrShellUnsupported
}

var _ deploy.Endpoint = (*Local)(nil)

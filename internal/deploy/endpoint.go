package deploy

import (
	"context"
	"io"
	"time"
)

// EndpointKind identifies the transport a configured endpoint uses.
type EndpointKind string

const (
	KindWindowsShare EndpointKind = "windows_share"
	KindSSH          EndpointKind = "ssh"
)

// Endpoint is the uniform capability set over either a local filesystem
// root (possibly a UNC share) or a remote SSH+SFTP session rooted at a
// remote absolute path. Endpoints are read-only once opened — the
// orchestrator holds one for its entire run and closes it exactly once.
type Endpoint interface {
	// Kind reports which transport this endpoint uses, for transport-
	// dependent decisions such as the sync engine's transfer worker limit.
	Kind() EndpointKind

	// Root returns the endpoint's root path, for logging.
	Root() string

	// Open establishes the underlying connection (a no-op for local roots).
	Open(ctx context.Context) error

	// Close releases the underlying connection.
	Close() error

	// List returns every regular file under the endpoint root, with
	// RelPath using '/' and ModTime truncated to whole seconds. Symbolic
	// links are traversed one level; a path already on the in-flight
	// traversal stack is skipped rather than followed again.
	List(ctx context.Context) ([]FileRecord, error)

	// Stat returns fresh info for a single relative path.
	Stat(ctx context.Context, relPath string) (FileRecord, error)

	// Read opens a relative path for streaming read.
	Read(ctx context.Context, relPath string) (io.ReadCloser, error)

	// Write streams r to relPath, creating any missing ancestor
	// directories first. mtime is the source-observed modification time;
	// implementations may mirror it onto the written file but are not
	// required to.
	Write(ctx context.Context, relPath string, r io.Reader, mtime time.Time) error

	// DeleteFile removes a single file.
	DeleteFile(ctx context.Context, relPath string) error

	// DeleteDir recursively removes a directory and everything under it.
	DeleteDir(ctx context.Context, relPath string) error

	// Shell executes a command on the endpoint (remote only). Local
	// endpoints return ErrShellUnsupported.
	Shell(ctx context.Context, command string) (stdout string, stderr string, err error)
}

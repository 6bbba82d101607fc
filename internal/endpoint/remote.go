package endpoint

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"adeploy/internal/deploy"
)

const dialTimeout = 30 * time.Second

// Remote is a deploy.Endpoint backed by one *ssh.Client and a
// ChannelPool of *sftp.Client sessions drawn from it. Host keys are
// accepted unconditionally (ssh.InsecureIgnoreHostKey) — the original
// Python implementation does the paramiko equivalent
// (AutoAddPolicy: trust-on-first-use, no pinning), and this engine
// carries no host-key store to pin against.
type Remote struct {
	root string

	host           string
	port           int
	username       string
	password       string
	privateKeyFile string
	maxConcurrent  int

	client *ssh.Client
	pool   *ChannelPool
}

// NewRemote returns a Remote endpoint. Authentication uses password when
// privateKeyFile is empty, otherwise the private key (passphrase-less,
// matching the configuration document's fields).
func NewRemote(host string, port int, username, password, privateKeyFile, root string, maxConcurrent int) *Remote {
	return &Remote{
		root:           path.Clean("/" + toSlashRemote(root)),
		host:           host,
		port:           port,
		username:       username,
		password:       password,
		privateKeyFile: privateKeyFile,
		maxConcurrent:  maxConcurrent,
	}
}

func toSlashRemote(p string) string {
	out := []byte(p)
	for i := range out {
		if out[i] == '\\' {
			out[i] = '/'
		}
	}
	return string(out)
}

func (r *Remote) Kind() deploy.EndpointKind { return deploy.KindSSH }

func (r *Remote) Root() string { return r.root }

func (r *Remote) Open(ctx context.Context) error {
	auth, err := r.authMethod()
	if err != nil {
		return &deploy.EndpointError{Endpoint: r.host, Err: err}
	}

	cfg := &ssh.ClientConfig{
		User:            r.username,
		Auth:            []ssh.AuthMethod{auth},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         dialTimeout,
	}

	addr := net.JoinHostPort(r.host, fmt.Sprintf("%d", r.port))
	client, err := ssh.Dial("tcp", addr, cfg)
	if err != nil {
		return &deploy.EndpointError{Endpoint: r.host, Err: fmt.Errorf("dialing %s: %w", addr, err)}
	}

	r.client = client
	r.pool = NewChannelPool(client, r.maxConcurrent)
	return nil
}

func (r *Remote) authMethod() (ssh.AuthMethod, error) {
	if r.privateKeyFile != "" {
		keyBytes, err := os.ReadFile(r.privateKeyFile)
		if err != nil {
			return nil, fmt.Errorf("reading private key %s: %w", r.privateKeyFile, err)
		}
		signer, err := ssh.ParsePrivateKey(keyBytes)
		if err != nil {
			return nil, fmt.Errorf("parsing private key %s: %w", r.privateKeyFile, err)
		}
		return ssh.PublicKeys(signer), nil
	}
	return ssh.Password(r.password), nil
}

func (r *Remote) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}

// ClientForTunnel exposes the underlying *ssh.Client so sqlexec.Tunnel
// can open a local forward on the same connection, per Design Notes §9 —
// the engine never opens a second SSH connection to the same host.
func (r *Remote) ClientForTunnel() *ssh.Client { return r.client }

// List walks the remote root, following one level of symlink and
// guarding against cycles via an in-flight directory stack.
func (r *Remote) List(ctx context.Context) ([]deploy.FileRecord, error) {
	client, release, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, &deploy.EndpointError{Endpoint: r.host, Err: err}
	}
	defer release()

	var records []deploy.FileRecord
	inFlight := make(map[string]bool)
	if err := r.walk(ctx, client, r.root, "", inFlight, &records, false); err != nil {
		return nil, &deploy.EndpointError{Endpoint: r.host, Err: fmt.Errorf("listing: %w", err)}
	}
	return records, nil
}

func (r *Remote) walk(ctx context.Context, client *sftp.Client, absDir, relDir string, inFlight map[string]bool, records *[]deploy.FileRecord, viaSymlink bool) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if inFlight[absDir] {
		return nil
	}
	inFlight[absDir] = true
	defer delete(inFlight, absDir)

	entries, err := client.ReadDir(absDir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", absDir, err)
	}

	for _, e := range entries {
		childAbs := path.Join(absDir, e.Name())
		childRel := path.Join(relDir, e.Name())

		if e.Mode()&os.ModeSymlink != 0 {
			if viaSymlink {
				// already one level deep through a symlink, don't chase another
				continue
			}
			target, err := client.ReadLink(childAbs)
			if err != nil {
				continue
			}
			if !path.IsAbs(target) {
				target = path.Join(path.Dir(childAbs), target)
			}
			targetInfo, err := client.Stat(target)
			if err != nil {
				continue
			}
			if targetInfo.IsDir() {
				if err := r.walk(ctx, client, target, childRel, inFlight, records, true); err != nil {
					return err
				}
			} else if targetInfo.Mode().IsRegular() {
				*records = append(*records, deploy.NewFileRecord(childRel, target, targetInfo.Size(), targetInfo.ModTime(), false))
			}
			continue
		}

		if e.IsDir() {
			if err := r.walk(ctx, client, childAbs, childRel, inFlight, records, viaSymlink); err != nil {
				return err
			}
			continue
		}

		if e.Mode().IsRegular() {
			*records = append(*records, deploy.NewFileRecord(childRel, childAbs, e.Size(), e.ModTime(), false))
		}
	}
	return nil
}

func (r *Remote) Stat(ctx context.Context, relPath string) (deploy.FileRecord, error) {
	var rec deploy.FileRecord
	err := withRetry(ctx, func() error {
		client, release, err := r.pool.Acquire(ctx)
		if err != nil {
			return err
		}
		defer release()

		abs := path.Join(r.root, relPath)
		info, err := client.Stat(abs)
		if err != nil {
			return err
		}
		rec = deploy.NewFileRecord(relPath, abs, info.Size(), info.ModTime(), info.IsDir())
		return nil
	})
	if err != nil {
		return deploy.FileRecord{}, &deploy.EndpointError{Endpoint: r.host, Err: fmt.Errorf("stat %s: %w", relPath, err)}
	}
	return rec, nil
}

func (r *Remote) Read(ctx context.Context, relPath string) (io.ReadCloser, error) {
	client, release, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, &deploy.TransferError{Path: relPath, Op: "read", Err: err}
	}

	abs := path.Join(r.root, relPath)
	f, err := client.Open(abs)
	if err != nil {
		release()
		return nil, &deploy.TransferError{Path: relPath, Op: "read", Err: err}
	}
	return &pooledReadCloser{file: f, release: release}, nil
}

// pooledReadCloser ties the lifetime of the leased SFTP channel to the
// reader it produced; closing the reader frees the channel pool slot.
type pooledReadCloser struct {
	file    *sftp.File
	release func()
}

func (p *pooledReadCloser) Read(b []byte) (int, error) { return p.file.Read(b) }

func (p *pooledReadCloser) Close() error {
	err := p.file.Close()
	p.release()
	return err
}

func (r *Remote) Write(ctx context.Context, relPath string, reader io.Reader, mtime time.Time) error {
	return withRetry(ctx, func() error {
		client, release, err := r.pool.Acquire(ctx)
		if err != nil {
			return err
		}
		defer release()

		abs := path.Join(r.root, relPath)
		if err := client.MkdirAll(path.Dir(abs)); err != nil {
			return &deploy.TransferError{Path: relPath, Op: "write", Err: fmt.Errorf("creating parent directories: %w", err)}
		}

		f, err := client.Create(abs)
		if err != nil {
			return &deploy.TransferError{Path: relPath, Op: "write", Err: err}
		}
		if _, err := io.Copy(f, reader); err != nil {
			f.Close()
			return &deploy.TransferError{Path: relPath, Op: "write", Err: err}
		}
		if err := f.Close(); err != nil {
			return &deploy.TransferError{Path: relPath, Op: "write", Err: err}
		}
		if err := client.Chtimes(abs, mtime, mtime); err != nil {
			return &deploy.TransferError{Path: relPath, Op: "write", Err: fmt.Errorf("setting mtime: %w", err)}
		}
		return nil
	})
}

func (r *Remote) DeleteFile(ctx context.Context, relPath string) error {
	return withRetry(ctx, func() error {
		client, release, err := r.pool.Acquire(ctx)
		if err != nil {
			return err
		}
		defer release()

		abs := path.Join(r.root, relPath)
		if err := client.Remove(abs); err != nil && !os.IsNotExist(err) {
			return &deploy.TransferError{Path: relPath, Op: "delete", Err: err}
		}
		return nil
	})
}

func (r *Remote) DeleteDir(ctx context.Context, relPath string) error {
	client, release, err := r.pool.Acquire(ctx)
	if err != nil {
		return &deploy.TransferError{Path: relPath, Op: "delete", Err: err}
	}
	defer release()

	abs := path.Join(r.root, relPath)
	if err := r.removeAllRemote(client, abs); err != nil {
		return &deploy.TransferError{Path: relPath, Op: "delete", Err: err}
	}
	return nil
}

// removeAllRemote recursively removes abs, deepest entries first — SFTP
// has no rm -rf primitive.
func (r *Remote) removeAllRemote(client *sftp.Client, abs string) error {
	entries, err := client.ReadDir(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		child := path.Join(abs, e.Name())
		if e.IsDir() {
			if err := r.removeAllRemote(client, child); err != nil {
				return err
			}
		} else if err := client.Remove(child); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return client.RemoveDirectory(abs)
}

// Shell runs command over a dedicated ssh.Session, never sharing a
// channel with SFTP traffic.
func (r *Remote) Shell(ctx context.Context, command string) (string, string, error) {
	session, err := r.client.NewSession()
	if err != nil {
		return "", "", &deploy.EndpointError{Endpoint: r.host, Err: fmt.Errorf("opening shell session: %w", err)}
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	if err := session.Run(command); err != nil {
		return stdout.String(), stderr.String(), &deploy.EndpointError{Endpoint: r.host, Err: fmt.Errorf("running %q: %w", command, err)}
	}
	return stdout.String(), stderr.String(), nil
}

var _ deploy.Endpoint = (*Remote)(nil)

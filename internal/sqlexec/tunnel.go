package sqlexec

import (
	"context"
	"fmt"
	"io"
	"net"

	"golang.org/x/crypto/ssh"
)

// Tunnel is a local-forward SSH tunnel to the destination's database
// server, opened on the same *ssh.Client the endpoint driver uses for
// SFTP — the engine never opens a second SSH connection to the same
// host (Design Notes §9).
type Tunnel struct {
	client     *ssh.Client
	remoteAddr string
	listener   net.Listener
}

// NewTunnel returns a Tunnel that will forward to remoteHost:remotePort
// once Open is called. client is nil for a local/UNC destination, in
// which case the caller should connect directly instead of tunneling.
func NewTunnel(client *ssh.Client, remoteHost string, remotePort int) *Tunnel {
	return &Tunnel{client: client, remoteAddr: fmt.Sprintf("%s:%d", remoteHost, remotePort)}
}

// Open binds an ephemeral local port and starts forwarding every
// accepted connection to the remote address over the shared SSH
// connection. LocalAddr is ready to use as soon as Open returns.
func (t *Tunnel) Open(ctx context.Context) error {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("binding local tunnel port: %w", err)
	}
	t.listener = l

	go t.acceptLoop()
	return nil
}

func (t *Tunnel) acceptLoop() {
	for {
		conn, err := t.listener.Accept()
		if err != nil {
			return
		}
		go t.forward(conn)
	}
}

func (t *Tunnel) forward(local net.Conn) {
	defer local.Close()

	remote, err := t.client.Dial("tcp", t.remoteAddr)
	if err != nil {
		return
	}
	defer remote.Close()

	done := make(chan struct{}, 2)
	go func() { io.Copy(remote, local); done <- struct{}{} }()
	go func() { io.Copy(local, remote); done <- struct{}{} }()
	<-done
}

// LocalAddr returns the "host:port" of the local forwarding listener,
// suitable for building a database/sql DSN against.
func (t *Tunnel) LocalAddr() string { return t.listener.Addr().String() }

// Close stops accepting new connections. In-flight forwards drain on
// their own as the underlying connections close.
func (t *Tunnel) Close() error {
	if t.listener == nil {
		return nil
	}
	return t.listener.Close()
}

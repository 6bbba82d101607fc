package endpoint

import (
	"context"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// ChannelPool bounds the number of concurrent SFTP subsystems opened
// over one *ssh.Client. Each acquisition opens a fresh *sftp.Client,
// which under the hood requests its own "sftp" subsystem channel on the
// shared connection — the pool's buffered channel is the semaphore that
// caps how many are open at once, FIFO by construction (buffered
// channels preserve send order for this send/receive pattern).
type ChannelPool struct {
	client *ssh.Client
	sem    chan struct{}
}

// NewChannelPool returns a pool of the given size backed by client.
func NewChannelPool(client *ssh.Client, size int) *ChannelPool {
	if size < 1 {
		size = 1
	}
	return &ChannelPool{client: client, sem: make(chan struct{}, size)}
}

// Acquire blocks until a slot is free (or ctx is done), then opens a new
// SFTP client on the shared SSH connection. The returned release func
// must be called exactly once to close the client and free the slot.
func (p *ChannelPool) Acquire(ctx context.Context) (*sftp.Client, func(), error) {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}

	c, err := sftp.NewClient(p.client)
	if err != nil {
		<-p.sem
		return nil, nil, err
	}

	release := func() {
		c.Close()
		<-p.sem
	}
	return c, release, nil
}

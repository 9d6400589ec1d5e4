package client

import (
	"context"
	"sync"

	"github.com/busybox42/smtpwire/internal/wire"
)

// Future is the pending result of one outbound write. It is terminated
// exactly once, either with the matching server reply or with an error.
type Future struct {
	done  chan struct{}
	once  sync.Once
	reply wire.Reply
	err   error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) resolve(reply wire.Reply) {
	f.once.Do(func() {
		f.reply = reply
		close(f.done)
	})
}

func (f *Future) fail(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}

// Wait blocks until the future is terminated or the context is done. It may
// be called any number of times.
func (f *Future) Wait(ctx context.Context) (wire.Reply, error) {
	select {
	case <-f.done:
		return f.reply, f.err
	case <-ctx.Done():
		return wire.Reply{}, ctx.Err()
	}
}

// Done exposes completion for select loops.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

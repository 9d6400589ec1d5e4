package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/busybox42/smtpwire/internal/wire"
)

// Connection lifecycle. The progression is strictly monotonic: open →
// shuttingDown → closed, never backward.
const (
	stateOpen int32 = iota
	stateShuttingDown
	stateClosed
)

// Conn is one SMTP session. Outbound writes are serialized in acceptance
// order; replies resolve the pending futures strictly FIFO. Any transport or
// decode failure cascades to every pending future and closes the transport.
type Conn struct {
	cfg    *Config
	tp     net.Conn
	logger *slog.Logger

	state atomic.Int32

	mu      sync.Mutex // guards pending and termErr, serializes writes
	pending []*Future
	termErr error

	framer wire.ReplyFramer

	loopDone   chan struct{} // read loop exited, cascade drained
	closed     chan struct{} // terminal: closeErr is valid
	finishOnce sync.Once
	closeErr   error

	openedAt time.Time
}

// Connect dials the server per cfg and waits for the greeting. A greeting
// other than 220 fails the connect with an InvalidReplyError.
func Connect(ctx context.Context, cfg *Config) (*Conn, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := GetMetrics()

	tp, err := dial(ctx, cfg)
	if err != nil {
		m.ConnectFailures.Inc()
		return nil, err
	}

	c := &Conn{
		cfg:      cfg,
		tp:       tp,
		logger:   slog.Default().With("component", "smtp-client", "server", cfg.Address()),
		loopDone: make(chan struct{}),
		closed:   make(chan struct{}),
		openedAt: time.Now(),
	}

	// The greeting is a pre-installed pending reply: the server speaks first.
	greeting := newFuture()
	c.pending = append(c.pending, greeting)

	go c.readLoop()

	reply, err := greeting.Wait(ctx)
	if err != nil {
		m.ConnectFailures.Inc()
		tp.Close()
		<-c.loopDone
		return nil, fmt.Errorf("waiting for greeting: %w", err)
	}
	if reply.Code != wire.CodeServiceReady {
		m.ConnectFailures.Inc()
		tp.Close()
		<-c.loopDone
		return nil, &InvalidReplyError{Reply: reply}
	}

	m.ConnectsTotal.Inc()
	c.logger.DebugContext(ctx, "connected", "greeting", reply.Code.String())
	return c, nil
}

// IsConnected reports whether the connection is open. Safe to call from any
// goroutine.
func (c *Conn) IsConnected() bool {
	return c.state.Load() == stateOpen
}

// Done is closed once the connection has fully terminated.
func (c *Conn) Done() <-chan struct{} {
	return c.closed
}

// Err returns the terminal error after Done is closed, nil before.
func (c *Conn) Err() error {
	select {
	case <-c.closed:
		return c.closeErr
	default:
		return nil
	}
}

// Send enqueues out and writes its bytes to the transport. The returned
// future resolves with the matching reply, in FIFO order with every other
// accepted write. In any non-open state the future fails immediately with
// the stored terminal error.
func (c *Conn) Send(out wire.Outbound) *Future {
	return c.send(out, false)
}

// Write is Send followed by Wait.
func (c *Conn) Write(ctx context.Context, out wire.Outbound) (wire.Reply, error) {
	return c.send(out, false).Wait(ctx)
}

// Noop round-trips a NOOP command. Used as a liveness probe.
func (c *Conn) Noop(ctx context.Context) error {
	reply, err := c.Write(ctx, wire.Out(wire.Noop{}))
	if err != nil {
		return err
	}
	if reply.Code != wire.CodeOK {
		return &InvalidReplyError{Reply: reply}
	}
	return nil
}

func (c *Conn) send(out wire.Outbound, closing bool) *Future {
	f := newFuture()

	var buf bytes.Buffer
	if err := wire.EncodeOutbound(out, &buf); err != nil {
		f.fail(err)
		return f
	}

	c.mu.Lock()
	st := c.state.Load()
	if st != stateOpen && !(closing && st == stateShuttingDown) {
		err := c.termErr
		c.mu.Unlock()
		if err == nil {
			err = ErrConnectionClosed
		}
		f.fail(err)
		return f
	}

	// The future enters the FIFO at the moment of acceptance; the write
	// happens under the same lock so queue order equals wire order.
	c.pending = append(c.pending, f)
	_, werr := c.tp.Write(buf.Bytes())
	if werr != nil {
		// Take the future back out so it is failed exactly once and never
		// again by the cascade.
		c.removePendingLocked(f)
		c.mu.Unlock()
		f.fail(fmt.Errorf("smtpwire: write: %w", werr))
		return f
	}
	c.mu.Unlock()

	GetMetrics().CommandsTotal.Inc()
	return f
}

func (c *Conn) removePendingLocked(f *Future) {
	for i, p := range c.pending {
		if p == f {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			return
		}
	}
}

// readLoop consumes transport bytes, frames replies, and resolves pending
// futures in FIFO order until the transport goes away or a decode fails.
func (c *Conn) readLoop() {
	defer close(c.loopDone)

	buf := make([]byte, 4096)
	for {
		n, err := c.tp.Read(buf)
		if n > 0 {
			c.framer.Feed(buf[:n])
			for {
				reply, ok, derr := c.framer.Next()
				if derr != nil {
					c.logger.Error("reply framing failed", "error", derr)
					c.cascade(derr)
					return
				}
				if !ok {
					break
				}
				GetMetrics().RepliesTotal.Inc()
				c.logger.Debug("reply received", "code", reply.Code.String())
				if !c.resolveNext(reply) {
					c.logger.Error("reply received with no pending command",
						"code", reply.Code.String())
					c.cascade(errUnexpectedReply)
					return
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				c.cascade(nil)
			} else {
				c.cascade(err)
			}
			return
		}
	}
}

// resolveNext pops the head of the FIFO and resolves it. It reports false
// when the queue is empty.
func (c *Conn) resolveNext(reply wire.Reply) bool {
	c.mu.Lock()
	if len(c.pending) == 0 {
		c.mu.Unlock()
		return false
	}
	f := c.pending[0]
	c.pending = c.pending[1:]
	c.mu.Unlock()

	f.resolve(reply)
	return true
}

// cascade moves the connection to closed, fails every pending future with
// the cause (ErrConnectionClosed when none is known), and closes the
// transport. It runs exactly once, on the read loop.
func (c *Conn) cascade(cause error) {
	prev := c.state.Swap(stateClosed)

	if cause == nil {
		cause = ErrConnectionClosed
	}

	c.mu.Lock()
	if c.termErr == nil {
		c.termErr = cause
	}
	cause = c.termErr
	drained := c.pending
	c.pending = nil
	c.mu.Unlock()

	if len(drained) > 0 {
		GetMetrics().ConnectionErrors.Inc()
	}
	for _, f := range drained {
		f.fail(cause)
	}

	c.tp.Close()
	GetMetrics().ConnectionDuration.Observe(time.Since(c.openedAt).Seconds())

	// When a close is in flight the shutdown sequence owns the terminal
	// result; otherwise this teardown is the terminal event.
	if prev != stateShuttingDown {
		c.finish(cause)
	}
}

// Close shuts the connection down: the first caller sends QUIT, expects 221,
// and closes the transport regardless of the outcome. The result is nil only
// if both the farewell and the channel closure succeeded; otherwise a
// CloseError carries whichever failed. Subsequent callers observe the first
// caller's result.
func (c *Conn) Close(ctx context.Context) error {
	if c.state.CompareAndSwap(stateOpen, stateShuttingDown) {
		c.shutdown(ctx)
	}

	select {
	case <-c.closed:
		return c.closeErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Conn) shutdown(ctx context.Context) {
	c.logger.DebugContext(ctx, "closing connection")

	farewell := c.send(wire.Out(wire.Quit{}), true)
	reply, serverErr := farewell.Wait(ctx)
	if serverErr == nil && reply.Code != wire.CodeServiceClosing {
		serverErr = &InvalidReplyError{Reply: reply}
	}

	chanErr := c.tp.Close()
	if chanErr != nil && errors.Is(chanErr, net.ErrClosed) {
		// The transport reporting an already-closed channel during shutdown
		// counts as success.
		chanErr = nil
	}

	// The read loop notices the closed transport and drains whatever is
	// still pending; after this the queue is empty.
	<-c.loopDone

	if serverErr != nil || chanErr != nil {
		c.finish(&CloseError{Server: serverErr, Channel: chanErr})
		return
	}
	c.finish(nil)
}

func (c *Conn) finish(err error) {
	c.finishOnce.Do(func() {
		c.state.Store(stateClosed)
		c.closeErr = err
		close(c.closed)
	})
}

package client

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/busybox42/smtpwire/internal/wire"
)

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestConnectNoopClose(t *testing.T) {
	srv := newScriptedServer(t, "220 mx.example.com ESMTP ready\r\n", quitHandler)
	ctx := testContext(t)

	conn, err := Connect(ctx, srv.config())
	require.NoError(t, err)
	assert.True(t, conn.IsConnected())

	reply, err := conn.Write(ctx, wire.Out(wire.Noop{}))
	require.NoError(t, err)
	assert.Equal(t, wire.CodeOK, reply.Code)

	require.NoError(t, conn.Close(ctx))
	assert.False(t, conn.IsConnected())

	select {
	case <-conn.Done():
	default:
		t.Fatal("Done should be closed after Close")
	}
	assert.NoError(t, conn.Err())
}

func TestConnectMultilineGreeting(t *testing.T) {
	srv := newScriptedServer(t, "220-mx.example.com\r\n220 ESMTP ready\r\n", quitHandler)
	ctx := testContext(t)

	conn, err := Connect(ctx, srv.config())
	require.NoError(t, err)
	require.NoError(t, conn.Close(ctx))
}

func TestConnectRejectsBadGreeting(t *testing.T) {
	srv := newScriptedServer(t, "554 go away\r\n", nil)
	ctx := testContext(t)

	_, err := Connect(ctx, srv.config())
	var invalid *InvalidReplyError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, 554, invalid.Reply.Code.Int())
}

func TestFIFOOrderUnderPipelining(t *testing.T) {
	var n int
	srv := newScriptedServer(t, "220 ready\r\n", func(line string) (string, bool) {
		if strings.ToUpper(line) == "QUIT" {
			return "221 bye\r\n", true
		}
		n++
		return fmt.Sprintf("250 reply-%d\r\n", n), false
	})
	ctx := testContext(t)

	conn, err := Connect(ctx, srv.config())
	require.NoError(t, err)

	// Three writes submitted without waiting; replies must resolve the
	// futures in submission order.
	f1 := conn.Send(wire.Out(wire.Noop{}))
	f2 := conn.Send(wire.Out(wire.Rset{}))
	f3 := conn.Send(wire.Out(wire.Noop{}))

	r1, err := f1.Wait(ctx)
	require.NoError(t, err)
	r2, err := f2.Wait(ctx)
	require.NoError(t, err)
	r3, err := f3.Wait(ctx)
	require.NoError(t, err)

	assert.Equal(t, "reply-1\r\n", r1.Message)
	assert.Equal(t, "reply-2\r\n", r2.Message)
	assert.Equal(t, "reply-3\r\n", r3.Message)

	require.NoError(t, conn.Close(ctx))
}

func TestBatchOutboundEmitsInOrder(t *testing.T) {
	srv := newScriptedServer(t, "220 ready\r\n", quitHandler)
	ctx := testContext(t)

	conn, err := Connect(ctx, srv.config())
	require.NoError(t, err)

	// A batch is one write but elicits one reply per command; one future per
	// expected reply keeps the FIFO aligned.
	first := conn.Send(wire.Batch(wire.Rset{}))
	_, err = first.Wait(ctx)
	require.NoError(t, err)

	require.NoError(t, conn.Close(ctx))
	assert.Equal(t, []string{"RSET", "QUIT"}, srv.received())
}

func TestTransactionCommands(t *testing.T) {
	srv := newScriptedServer(t, "220 ready\r\n", quitHandler)
	ctx := testContext(t)

	conn, err := Connect(ctx, srv.config())
	require.NoError(t, err)

	from, err := wire.ParsePathAddress("sender@example.com")
	require.NoError(t, err)
	to, err := wire.ParsePathAddress("rcpt@example.com")
	require.NoError(t, err)

	envID := NewEnvelopeID()
	_, err = conn.Write(ctx, wire.Out(&wire.MailFrom{
		ReversePath: from,
		EnvelopeID:  envID,
		Ret:         wire.ReturnFull,
	}))
	require.NoError(t, err)

	_, err = conn.Write(ctx, wire.Out(&wire.RcptTo{
		ForwardPath: to,
		Notify:      wire.NotifyOn(wire.NotifyFailure),
	}))
	require.NoError(t, err)

	require.NoError(t, conn.Close(ctx))

	lines := srv.received()
	require.Len(t, lines, 3)
	assert.Equal(t, "MAIL FROM:<sender@example.com> ENVID="+envID+" RET=FULL", lines[0])
	assert.Equal(t, "RCPT TO:<rcpt@example.com> NOTIFY=FAILURE", lines[1])
}

func TestCascadeFailsAllPending(t *testing.T) {
	srv := newScriptedServer(t, "220 ready\r\n", func(line string) (string, bool) {
		// Drop the connection without answering.
		return "", true
	})
	ctx := testContext(t)

	conn, err := Connect(ctx, srv.config())
	require.NoError(t, err)

	f := conn.Send(wire.Out(wire.Noop{}))
	_, err = f.Wait(ctx)
	assert.ErrorIs(t, err, ErrConnectionClosed)

	// The connection is terminally dead: later writes fail immediately.
	<-conn.Done()
	assert.False(t, conn.IsConnected())
	_, err = conn.Write(ctx, wire.Out(wire.Noop{}))
	assert.ErrorIs(t, err, ErrConnectionClosed)
}

func TestUnexpectedReplyTearsDown(t *testing.T) {
	srv := newScriptedServer(t, "220 ready\r\n250 who asked\r\n", nil)
	ctx := testContext(t)

	conn, err := Connect(ctx, srv.config())
	require.NoError(t, err)

	select {
	case <-conn.Done():
	case <-ctx.Done():
		t.Fatal("connection should tear down on an unsolicited reply")
	}
	assert.Error(t, conn.Err())
	assert.False(t, conn.IsConnected())
}

func TestCloseReportsServerFailure(t *testing.T) {
	srv := newScriptedServer(t, "220 ready\r\n", func(line string) (string, bool) {
		if strings.ToUpper(line) == "QUIT" {
			return "500 no goodbye\r\n", true
		}
		return "250 OK\r\n", false
	})
	ctx := testContext(t)

	conn, err := Connect(ctx, srv.config())
	require.NoError(t, err)

	err = conn.Close(ctx)
	var closeErr *CloseError
	require.ErrorAs(t, err, &closeErr)
	var invalid *InvalidReplyError
	assert.ErrorAs(t, closeErr.Server, &invalid)
	assert.NoError(t, closeErr.Channel)
}

func TestCloseIsIdempotent(t *testing.T) {
	srv := newScriptedServer(t, "220 ready\r\n", quitHandler)
	ctx := testContext(t)

	conn, err := Connect(ctx, srv.config())
	require.NoError(t, err)

	require.NoError(t, conn.Close(ctx))
	require.NoError(t, conn.Close(ctx))

	// Exactly one QUIT reached the wire.
	quits := 0
	for _, line := range srv.received() {
		if strings.ToUpper(line) == "QUIT" {
			quits++
		}
	}
	assert.Equal(t, 1, quits)
}

func TestNoopProbe(t *testing.T) {
	srv := newScriptedServer(t, "220 ready\r\n", quitHandler)
	ctx := testContext(t)

	conn, err := Connect(ctx, srv.config())
	require.NoError(t, err)
	assert.NoError(t, conn.Noop(ctx))
	require.NoError(t, conn.Close(ctx))
}

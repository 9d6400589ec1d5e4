package client

import (
	"errors"
	"strings"

	"github.com/busybox42/smtpwire/internal/wire"
)

// ErrConnectionClosed reports a transport that went away with no explicit
// cause. It fails every pending future when the cascade runs.
var ErrConnectionClosed = errors.New("smtpwire: connection closed")

// errUnexpectedReply reports a framed reply with no pending command to
// resolve: a protocol-order violation that tears the connection down.
var errUnexpectedReply = errors.New("smtpwire: reply received with no pending command")

// InvalidReplyError reports a server reply the driver rejects at the protocol
// level, e.g. a greeting that is not 220.
type InvalidReplyError struct {
	Reply wire.Reply
}

func (e *InvalidReplyError) Error() string {
	var b strings.Builder
	b.WriteString("smtpwire: invalid reply: ")
	b.WriteString(e.Reply.Code.String())
	b.WriteString(" ")
	b.WriteString(strings.TrimSuffix(e.Reply.Message, "\r\n"))
	return b.String()
}

// CloseError is the composite result of a shutdown where the server farewell,
// the channel closure, or both failed.
type CloseError struct {
	Server  error // QUIT round-trip failure, if any
	Channel error // transport close failure, if any
}

func (e *CloseError) Error() string {
	var b strings.Builder
	b.WriteString("smtpwire: close failed")
	if e.Server != nil {
		b.WriteString("; server: ")
		b.WriteString(e.Server.Error())
	}
	if e.Channel != nil {
		b.WriteString("; channel: ")
		b.WriteString(e.Channel.Error())
	}
	return b.String()
}

func (e *CloseError) Unwrap() []error {
	var errs []error
	if e.Server != nil {
		errs = append(errs, e.Server)
	}
	if e.Channel != nil {
		errs = append(errs, e.Channel)
	}
	return errs
}

package wire

import (
	"errors"
	"strconv"
	"strings"
)

// Sentinel errors for the codec layer. ErrIncomplete is the only soft one: the
// frame adapters convert it into a "need more data" signal and it never reaches
// callers of the connection driver.
var (
	ErrIncomplete      = errors.New("smtpwire: incomplete frame")
	ErrBytesNotFound   = errors.New("smtpwire: no bytes to decode")
	ErrCRLFNotFound    = errors.New("smtpwire: line not terminated by CRLF")
	ErrCommandTooLong  = errors.New("smtpwire: command line exceeds 1024 bytes")
	ErrReplyTooLong    = errors.New("smtpwire: reply group exceeds 4096 bytes")
	ErrAddressNotFound = errors.New("smtpwire: address not found")
	ErrNotifyNotFound  = errors.New("smtpwire: NOTIFY has no values")
	ErrNilOutbound     = errors.New("smtpwire: nil outbound")
)

// CommandTooShortError reports a framed line below the minimum command length.
type CommandTooShortError struct {
	Line string
}

func (e *CommandTooShortError) Error() string {
	return "smtpwire: command too short: " + strconv.Quote(e.Line)
}

// CommandUnknownError reports a line whose prefix matches no known verb.
type CommandUnknownError struct {
	Line string
}

func (e *CommandUnknownError) Error() string {
	return "smtpwire: unknown command: " + strconv.Quote(e.Line)
}

// AddressError reports a path address that could not be parsed.
type AddressError struct {
	Value string
}

func (e *AddressError) Error() string {
	return "smtpwire: unparsable address: " + strconv.Quote(e.Value)
}

// ArgumentUnsupportedError reports an unrecognized MAIL FROM or RCPT TO option key.
type ArgumentUnsupportedError struct {
	Key string
}

func (e *ArgumentUnsupportedError) Error() string {
	return "smtpwire: unsupported argument: " + e.Key
}

// DuplicateArgumentError reports an option key that appeared more than once in
// a single MAIL FROM or RCPT TO command.
type DuplicateArgumentError struct {
	Verb Verb
	Key  string
}

func (e *DuplicateArgumentError) Error() string {
	var b strings.Builder
	b.WriteString("smtpwire: duplicated ")
	b.WriteString(e.Verb.String())
	b.WriteString(" argument: ")
	b.WriteString(e.Key)
	return b.String()
}

// MimeUnsupportedError reports a BODY value outside {7BIT, 8BITMIME, BINARYMIME}.
type MimeUnsupportedError struct {
	Value string
}

func (e *MimeUnsupportedError) Error() string {
	return "smtpwire: unsupported BODY value: " + e.Value
}

// RetUnsupportedError reports a RET value outside {FULL, HDRS}.
type RetUnsupportedError struct {
	Value string
}

func (e *RetUnsupportedError) Error() string {
	return "smtpwire: unsupported RET value: " + e.Value
}

// NotifyUnsupportedError reports a NOTIFY element outside {SUCCESS, FAILURE, DELAY}.
type NotifyUnsupportedError struct {
	Value string
}

func (e *NotifyUnsupportedError) Error() string {
	return "smtpwire: unsupported NOTIFY value: " + e.Value
}

// NotifyDuplicatedError reports a NOTIFY element listed more than once.
type NotifyDuplicatedError struct {
	Value string
}

func (e *NotifyDuplicatedError) Error() string {
	return "smtpwire: duplicated NOTIFY value: " + e.Value
}

// ReplySignError reports a continuation byte that is neither SP nor '-'.
type ReplySignError struct {
	Sign byte
}

func (e *ReplySignError) Error() string {
	return "smtpwire: bad reply continuation byte: " + strconv.Quote(string(e.Sign))
}

// ReplyCodeError reports reply code text that does not form a valid three-digit code.
type ReplyCodeError struct {
	Text string
}

func (e *ReplyCodeError) Error() string {
	return "smtpwire: unparsable reply code: " + strconv.Quote(e.Text)
}

// ReplyCodesDifferError reports a multi-line reply group whose lines disagree
// on the reply code.
type ReplyCodesDifferError struct {
	First   Code
	Current Code
}

func (e *ReplyCodesDifferError) Error() string {
	var b strings.Builder
	b.WriteString("smtpwire: reply codes differ within group: ")
	b.WriteString(e.First.String())
	b.WriteString(" vs ")
	b.WriteString(e.Current.String())
	return b.String()
}

package wire

import (
	"bytes"
	"errors"
)

// Outbound is what the connection driver writes: a single command, an ordered
// batch for pipelined emission, or raw bytes (the DATA payload).
type Outbound interface {
	isOutbound()
}

// CommandOutbound wraps one command.
type CommandOutbound struct {
	Command Command
}

func (CommandOutbound) isOutbound() {}

// BatchOutbound wraps an ordered sequence of commands emitted back to back.
type BatchOutbound struct {
	Commands []Command
}

func (BatchOutbound) isOutbound() {}

// RawOutbound passes bytes through untouched.
type RawOutbound struct {
	Data []byte
}

func (RawOutbound) isOutbound() {}

// Out wraps a single command as an Outbound.
func Out(cmd Command) Outbound {
	return CommandOutbound{Command: cmd}
}

// Batch wraps commands for pipelined emission.
func Batch(cmds ...Command) Outbound {
	return BatchOutbound{Commands: cmds}
}

// RawBytes wraps a raw payload.
func RawBytes(data []byte) Outbound {
	return RawOutbound{Data: data}
}

// EncodeOutbound appends the wire form of out to b, dispatching on its shape.
func EncodeOutbound(out Outbound, b *bytes.Buffer) error {
	switch o := out.(type) {
	case CommandOutbound:
		return EncodeCommand(o.Command, b)
	case BatchOutbound:
		for _, cmd := range o.Commands {
			if err := EncodeCommand(cmd, b); err != nil {
				return err
			}
		}
		return nil
	case RawOutbound:
		if o.Data == nil {
			return ErrNilOutbound
		}
		b.Write(o.Data)
		return nil
	case nil:
		return ErrNilOutbound
	default:
		return ErrNilOutbound
	}
}

// ReplyFramer incrementally frames reply groups out of a byte stream. Feed
// appends raw network bytes; Next yields at most one decoded reply, consuming
// exactly the group's bytes, and reports false until a full group is buffered.
type ReplyFramer struct {
	buf bytes.Buffer
}

// Feed appends stream bytes to the framer's buffer.
func (f *ReplyFramer) Feed(p []byte) {
	f.buf.Write(p)
}

// Next decodes the next buffered reply group. It returns ok=false when more
// bytes are needed; any other decode failure is a hard framing error.
func (f *ReplyFramer) Next() (Reply, bool, error) {
	if f.buf.Len() == 0 {
		return Reply{}, false, nil
	}
	reply, n, err := DecodeReply(f.buf.Bytes())
	if err != nil {
		if errors.Is(err, ErrIncomplete) {
			return Reply{}, false, nil
		}
		return Reply{}, false, err
	}
	f.buf.Next(n)
	return reply, true, nil
}

// Buffered returns the number of bytes awaiting a complete frame.
func (f *ReplyFramer) Buffered() int {
	return f.buf.Len()
}

// CommandFramer is the symmetric adapter for client input: it frames command
// lines out of a byte stream.
type CommandFramer struct {
	buf bytes.Buffer
}

// Feed appends stream bytes to the framer's buffer.
func (f *CommandFramer) Feed(p []byte) {
	f.buf.Write(p)
}

// Next decodes the next buffered command. It returns ok=false when more bytes
// are needed; any other decode failure is a hard framing error.
func (f *CommandFramer) Next() (Command, bool, error) {
	if f.buf.Len() == 0 {
		return nil, false, nil
	}
	cmd, n, err := DecodeCommand(f.buf.Bytes())
	if err != nil {
		if errors.Is(err, ErrIncomplete) {
			return nil, false, nil
		}
		return nil, false, err
	}
	f.buf.Next(n)
	return cmd, true, nil
}

// Buffered returns the number of bytes awaiting a complete frame.
func (f *CommandFramer) Buffered() int {
	return f.buf.Len()
}

package core

import (
	"encoding/binary"
	"fmt"

	"github.com/avnera-audio/dspfw/ipc"
	"github.com/avnera-audio/dspfw/platform"
)

// mailboxLenPrefix is the 4-byte length word ahead of a posted message in
// both mailbox boxes: zero means empty, non-zero is the byte count of a
// message waiting to be consumed.
const mailboxLenPrefix = 4

// PollHostMailbox is the primary core's side of the host IPC handshake:
// if the host has posted a command to the DSP box, it decodes it under
// c.Dialect, dispatches it through Engine, and writes the reply to the
// host box. It returns false with no error if the DSP box is empty.
//
// The DSP box's length word is cleared last, after the reply is fully
// written: that is the strict-FIFO signal telling the host it may post
// its next command, mirroring the same ordering Engine.Dispatch already
// enforces against a second concurrent Dispatch call.
func (c *Core) PollHostMailbox() (bool, error) {
	if c.Engine == nil {
		return false, fmt.Errorf("core: poll mailbox: core %d has no IPC engine", c.ID)
	}

	lenBuf := make([]byte, mailboxLenPrefix)
	if err := c.Platform.Mailbox.Read(platform.MailboxDSPBox, 0, lenBuf); err != nil {
		return false, fmt.Errorf("core: poll mailbox: %w", err)
	}
	n := binary.LittleEndian.Uint32(lenBuf)
	if n == 0 {
		return false, nil
	}

	raw := make([]byte, n)
	if err := c.Platform.Mailbox.Read(platform.MailboxDSPBox, mailboxLenPrefix, raw); err != nil {
		return false, fmt.Errorf("core: read mailbox command: %w", err)
	}

	msg, err := ipc.DecodeMessage(c.Dialect, raw)
	if err != nil {
		return false, fmt.Errorf("core: decode mailbox command: %w", err)
	}

	replyBytes := ipc.EncodeReply(c.Engine.Dispatch(msg))

	replyLen := make([]byte, mailboxLenPrefix)
	binary.LittleEndian.PutUint32(replyLen, uint32(len(replyBytes)))
	if err := c.Platform.Mailbox.Write(platform.MailboxHostBox, mailboxLenPrefix, replyBytes); err != nil {
		return false, fmt.Errorf("core: write mailbox reply: %w", err)
	}
	if err := c.Platform.Mailbox.Write(platform.MailboxHostBox, 0, replyLen); err != nil {
		return false, fmt.Errorf("core: post mailbox reply length: %w", err)
	}

	zero := make([]byte, mailboxLenPrefix)
	if err := c.Platform.Mailbox.Write(platform.MailboxDSPBox, 0, zero); err != nil {
		return false, fmt.Errorf("core: clear mailbox command: %w", err)
	}
	return true, nil
}

// PostHostCommand is the host side of the same handshake: it packs
// header and payload into the raw wire framing PollHostMailbox expects
// and posts it to the DSP box. Exercised by tests standing in for the
// host-side IPC transport driver, which on real hardware is the part
// outside this module's scope.
func PostHostCommand(p *platform.Platform, header ipc.Header, payload []byte) error {
	raw := make([]byte, 4+len(payload))
	binary.LittleEndian.PutUint32(raw[:4], header.Encode())
	copy(raw[4:], payload)

	if err := p.Mailbox.Write(platform.MailboxDSPBox, mailboxLenPrefix, raw); err != nil {
		return fmt.Errorf("core: post mailbox command: %w", err)
	}
	lenBuf := make([]byte, mailboxLenPrefix)
	binary.LittleEndian.PutUint32(lenBuf, uint32(len(raw)))
	return p.Mailbox.Write(platform.MailboxDSPBox, 0, lenBuf)
}

// ReadHostReply reads a reply PollHostMailbox posted to the host box. It
// returns a nil slice with no error if nothing is waiting yet.
func ReadHostReply(p *platform.Platform) ([]byte, error) {
	lenBuf := make([]byte, mailboxLenPrefix)
	if err := p.Mailbox.Read(platform.MailboxHostBox, 0, lenBuf); err != nil {
		return nil, fmt.Errorf("core: read mailbox reply length: %w", err)
	}
	n := binary.LittleEndian.Uint32(lenBuf)
	if n == 0 {
		return nil, nil
	}
	reply := make([]byte, n)
	if err := p.Mailbox.Read(platform.MailboxHostBox, mailboxLenPrefix, reply); err != nil {
		return nil, fmt.Errorf("core: read mailbox reply: %w", err)
	}
	zero := make([]byte, mailboxLenPrefix)
	if err := p.Mailbox.Write(platform.MailboxHostBox, 0, zero); err != nil {
		return nil, fmt.Errorf("core: clear mailbox reply: %w", err)
	}
	return reply, nil
}

// Package telnet implements the small part of the telnet protocol needed to
// put a client into character mode and exchange raw bytes with it.
package telnet

import (
	"bytes"
	"fmt"
	"io"
)

// Telnet command bytes.
const (
	SE   byte = 240
	SB   byte = 250
	WILL byte = 251
	WONT byte = 252
	DO   byte = 253
	DONT byte = 254
	IAC  byte = 255
)

// Telnet options.
const (
	OptEcho byte = 1
	OptSGA  byte = 3
)

type state int

const (
	stateData state = iota
	stateIAC
	stateOption
	stateSub
	stateSubIAC
)

// Conn filters telnet commands out of the input and escapes IAC bytes in the
// output. It is not safe for concurrent reads.
type Conn struct {
	rw    io.ReadWriter
	state state
	buf   []byte
}

// NewConn wraps a raw connection.
func NewConn(rw io.ReadWriter) *Conn {
	return &Conn{rw: rw, buf: make([]byte, 512)}
}

// Negotiate asks the client to let the server echo and to suppress
// go-ahead, which puts most clients into character-at-a-time mode.
func (c *Conn) Negotiate() error {
	cmds := []byte{
		IAC, WILL, OptEcho,
		IAC, WILL, OptSGA,
		IAC, DO, OptSGA,
	}
	if _, err := c.rw.Write(cmds); err != nil {
		return fmt.Errorf("sending telnet negotiation: %w", err)
	}
	return nil
}

// Read returns data bytes only. Negotiation and subnegotiation sequences
// are dropped and IAC IAC yields a single 255 byte.
func (c *Conn) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for {
		size := len(p)
		if size > len(c.buf) {
			size = len(c.buf)
		}
		n, err := c.rw.Read(c.buf[:size])
		out := c.filter(p, c.buf[:n])
		if out > 0 || err != nil {
			return out, err
		}
	}
}

func (c *Conn) filter(dst, src []byte) int {
	n := 0
	for _, b := range src {
		switch c.state {
		case stateData:
			if b == IAC {
				c.state = stateIAC
				continue
			}
			dst[n] = b
			n++
		case stateIAC:
			switch b {
			case IAC:
				dst[n] = IAC
				n++
				c.state = stateData
			case WILL, WONT, DO, DONT:
				c.state = stateOption
			case SB:
				c.state = stateSub
			default:
				c.state = stateData
			}
		case stateOption:
			c.state = stateData
		case stateSub:
			if b == IAC {
				c.state = stateSubIAC
			}
		case stateSubIAC:
			if b == SE {
				c.state = stateData
			} else {
				c.state = stateSub
			}
		}
	}
	return n
}

// Write sends p, doubling any IAC bytes.
func (c *Conn) Write(p []byte) (int, error) {
	if bytes.IndexByte(p, IAC) < 0 {
		return c.rw.Write(p)
	}
	escaped := bytes.ReplaceAll(p, []byte{IAC}, []byte{IAC, IAC})
	if _, err := c.rw.Write(escaped); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Package terminal provides keystroke input and serialized output over a raw
// byte duplex such as a telnet connection.
package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
)

var (
	// ErrTransport wraps every read or write failure of the underlying
	// connection, including the client hanging up.
	ErrTransport = errors.New("transport error")

	// ErrQuit tears down every nested loop up to the connection.
	ErrQuit = errors.New("session quit")
)

// ANSI control sequences.
const (
	ClearScreen = "\x1b[2J\x1b[H"
	ClearLine   = "\x1b[K"
)

// CursorUp moves the cursor up n lines.
func CursorUp(n int) string { return fmt.Sprintf("\x1b[%dA", n) }

// CursorDown moves the cursor down n lines.
func CursorDown(n int) string { return fmt.Sprintf("\x1b[%dB", n) }

// Terminal is one connected client. Keys are decoded by a background
// goroutine into a buffered channel, so a reader that gives up waiting never
// loses a keystroke. Writes are serialized.
type Terminal struct {
	dec  *Decoder
	keys chan Key
	done chan struct{}

	readErr error // set before keys is closed

	mu      sync.Mutex
	out     io.Writer
	charset atomic.Int32

	closeOnce sync.Once
}

// New starts decoding keys from r and writes output to w.
func New(r io.Reader, w io.Writer) *Terminal {
	t := &Terminal{
		dec:  NewDecoder(r),
		keys: make(chan Key, 64),
		done: make(chan struct{}),
		out:  w,
	}
	go t.readLoop()
	return t
}

func (t *Terminal) readLoop() {
	defer close(t.keys)
	for {
		k, err := t.dec.Next()
		if err != nil {
			t.readErr = fmt.Errorf("%w: reading input: %v", ErrTransport, err)
			return
		}
		select {
		case t.keys <- k:
		case <-t.done:
			return
		}
	}
}

// SetCharset changes the encoding used for both input and output.
func (t *Terminal) SetCharset(c Charset) {
	t.charset.Store(int32(c))
	t.dec.SetCharset(c)
}

// Charset returns the active encoding.
func (t *Terminal) Charset() Charset {
	return Charset(t.charset.Load())
}

// Write encodes p in the active charset and writes it to the client.
func (t *Terminal) Write(p []byte) (int, error) {
	if err := t.write(string(p)); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (t *Terminal) write(s string) error {
	data := t.Charset().Encode(s)
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := io.WriteString(t.out, data); err != nil {
		return fmt.Errorf("%w: writing output: %v", ErrTransport, err)
	}
	return nil
}

// Print writes the strings as they are.
func (t *Terminal) Print(s ...string) error {
	return t.write(strings.Join(s, ""))
}

// Printf formats and writes.
func (t *Terminal) Printf(format string, args ...any) error {
	return t.write(fmt.Sprintf(format, args...))
}

// Println writes s followed by CR LF.
func (t *Terminal) Println(s string) error {
	return t.write(s + "\r\n")
}

// ReadKey waits for the next keystroke. A cancelled context leaves any
// pending keystroke in place for the next caller.
func (t *Terminal) ReadKey(ctx context.Context) (Key, error) {
	select {
	case k, ok := <-t.keys:
		if !ok {
			if t.readErr != nil {
				return Key{}, t.readErr
			}
			return Key{}, fmt.Errorf("%w: terminal closed", ErrTransport)
		}
		return k, nil
	case <-ctx.Done():
		return Key{}, ctx.Err()
	}
}

// ReadLine reads an echoed line of text terminated by Enter. Backspace edits
// the line and escape sequences are ignored.
func (t *Terminal) ReadLine(ctx context.Context) (string, error) {
	var buf []rune
	for {
		k, err := t.ReadKey(ctx)
		if err != nil {
			return string(buf), err
		}
		switch {
		case k.Code == KeyEnter:
			return string(buf), t.Print("\r\n")
		case k.Code == KeyBackspace:
			if len(buf) > 0 {
				buf = buf[:len(buf)-1]
				if err := t.Print("\b \b"); err != nil {
					return string(buf), err
				}
			}
		case k.Printable():
			buf = append(buf, k.Rune)
			if err := t.Print(string(k.Rune)); err != nil {
				return string(buf), err
			}
		}
	}
}

// Close stops the key reader. The caller closes the underlying connection.
func (t *Terminal) Close() {
	t.closeOnce.Do(func() { close(t.done) })
}

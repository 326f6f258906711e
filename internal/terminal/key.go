package terminal

import (
	"bufio"
	"io"
	"sync/atomic"
	"unicode"
)

// KeyCode classifies a decoded keystroke.
type KeyCode int

const (
	KeyRune KeyCode = iota
	KeyEnter
	KeyBackspace
	KeyEscape
	KeyUp
	KeyDown
	KeyRight
	KeyLeft
)

// Key is a single decoded keystroke. Rune is set for KeyRune only.
type Key struct {
	Code KeyCode
	Rune rune
}

// Is reports whether k is the printable rune r.
func (k Key) Is(r rune) bool {
	return k.Code == KeyRune && k.Rune == r
}

// IsAny reports whether k is any of the given printable runes.
func (k Key) IsAny(rs ...rune) bool {
	for _, r := range rs {
		if k.Is(r) {
			return true
		}
	}
	return false
}

// Digit returns the decimal value of a digit key.
func (k Key) Digit() (int, bool) {
	if k.Code == KeyRune && k.Rune >= '0' && k.Rune <= '9' {
		return int(k.Rune - '0'), true
	}
	return 0, false
}

// Printable reports whether k is a rune that can be echoed into a line.
func (k Key) Printable() bool {
	return k.Code == KeyRune && unicode.IsPrint(k.Rune)
}

// Decoder turns an input byte stream into keys. ESC [ A-D become arrow keys;
// any other escape sequence falls back to its raw bytes.
type Decoder struct {
	r       *bufio.Reader
	charset atomic.Int32
	pending []Key
}

// NewDecoder returns a decoder reading UTF-8 input from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// SetCharset changes how subsequent input bytes are decoded.
func (d *Decoder) SetCharset(c Charset) {
	d.charset.Store(int32(c))
}

// Next blocks until the next key is available.
func (d *Decoder) Next() (Key, error) {
	if len(d.pending) > 0 {
		k := d.pending[0]
		d.pending = d.pending[1:]
		return k, nil
	}

	r, err := d.readRune()
	if err != nil {
		return Key{}, err
	}
	switch r {
	case '\x1b':
		return d.escape()
	case '\r':
		// CR LF and CR NUL are a single Enter.
		if d.r.Buffered() > 0 {
			if b, err := d.r.Peek(1); err == nil && (b[0] == '\n' || b[0] == 0) {
				d.r.ReadByte()
			}
		}
		return Key{Code: KeyEnter}, nil
	case '\n':
		return Key{Code: KeyEnter}, nil
	case '\b', '\x7f':
		return Key{Code: KeyBackspace}, nil
	}
	return Key{Code: KeyRune, Rune: r}, nil
}

func (d *Decoder) escape() (Key, error) {
	b1, err := d.readRune()
	if err != nil {
		return Key{Code: KeyEscape}, nil
	}
	if b1 != '[' {
		d.pending = append(d.pending, rawKey(b1))
		return Key{Code: KeyEscape}, nil
	}
	b2, err := d.readRune()
	if err != nil {
		d.pending = append(d.pending, rawKey(b1))
		return Key{Code: KeyEscape}, nil
	}
	switch b2 {
	case 'A':
		return Key{Code: KeyUp}, nil
	case 'B':
		return Key{Code: KeyDown}, nil
	case 'C':
		return Key{Code: KeyRight}, nil
	case 'D':
		return Key{Code: KeyLeft}, nil
	}
	d.pending = append(d.pending, rawKey(b1), rawKey(b2))
	return Key{Code: KeyEscape}, nil
}

func rawKey(r rune) Key {
	return Key{Code: KeyRune, Rune: r}
}

func (d *Decoder) readRune() (rune, error) {
	c := Charset(d.charset.Load())
	if c == UTF8 {
		r, _, err := d.r.ReadRune()
		return r, err
	}
	b, err := d.r.ReadByte()
	if err != nil {
		return 0, err
	}
	return c.decodeByte(b), nil
}

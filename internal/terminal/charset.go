package terminal

import (
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// Charset is the character encoding used on the wire.
type Charset int

const (
	UTF8 Charset = iota
	ASCII
	Latin1
	CP437
)

// Charsets in the order they are offered during terminal setup.
var Charsets = []Charset{ASCII, Latin1, CP437, UTF8}

func (c Charset) String() string {
	switch c {
	case ASCII:
		return "ascii"
	case Latin1:
		return "latin-1"
	case CP437:
		return "cp437"
	default:
		return "utf-8"
	}
}

func (c Charset) charmap() *charmap.Charmap {
	switch c {
	case Latin1:
		return charmap.ISO8859_1
	case CP437:
		return charmap.CodePage437
	}
	return nil
}

// Encode converts s to the charset, replacing unrepresentable runes with '?'.
func (c Charset) Encode(s string) string {
	if c == UTF8 {
		return s
	}
	cm := c.charmap()
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if cm == nil {
			if r < 0x80 {
				b.WriteByte(byte(r))
			} else {
				b.WriteByte('?')
			}
			continue
		}
		if r < 0x20 || r == 0x7f {
			// Control codes pass through untouched.
			b.WriteByte(byte(r))
			continue
		}
		if enc, ok := cm.EncodeRune(r); ok {
			b.WriteByte(enc)
		} else {
			b.WriteByte('?')
		}
	}
	return b.String()
}

func (c Charset) decodeByte(b byte) rune {
	if cm := c.charmap(); cm != nil && b >= 0x80 {
		return cm.DecodeByte(b)
	}
	return rune(b)
}

package terminal

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func decodeAll(t *testing.T, input string) []Key {
	t.Helper()
	dec := NewDecoder(strings.NewReader(input))
	var keys []Key
	for {
		k, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return keys
		}
		require.NoError(t, err)
		keys = append(keys, k)
	}
}

func TestDecoder(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Key
	}{
		{"runes", "ab", []Key{{Code: KeyRune, Rune: 'a'}, {Code: KeyRune, Rune: 'b'}}},
		{"arrows", "\x1b[A\x1b[B\x1b[C\x1b[D", []Key{{Code: KeyUp}, {Code: KeyDown}, {Code: KeyRight}, {Code: KeyLeft}}},
		{"crlf is one enter", "\r\nx", []Key{{Code: KeyEnter}, {Code: KeyRune, Rune: 'x'}}},
		{"cr nul is one enter", "\r\x00", []Key{{Code: KeyEnter}}},
		{"lf", "\n", []Key{{Code: KeyEnter}}},
		{"backspace", "\b\x7f", []Key{{Code: KeyBackspace}, {Code: KeyBackspace}}},
		{"malformed escape falls back", "\x1b[Zq", []Key{
			{Code: KeyEscape}, {Code: KeyRune, Rune: '['}, {Code: KeyRune, Rune: 'Z'}, {Code: KeyRune, Rune: 'q'},
		}},
		{"escape without bracket", "\x1bx", []Key{{Code: KeyEscape}, {Code: KeyRune, Rune: 'x'}}},
		{"escape at end", "\x1b", []Key{{Code: KeyEscape}}},
		{"utf8", "é", []Key{{Code: KeyRune, Rune: 'é'}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decodeAll(t, tt.input))
		})
	}
}

func TestDecoderLatin1(t *testing.T) {
	dec := NewDecoder(strings.NewReader("\xe9"))
	dec.SetCharset(Latin1)
	k, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, 'é', k.Rune)
}

func TestKeyHelpers(t *testing.T) {
	k := Key{Code: KeyRune, Rune: '7'}
	d, ok := k.Digit()
	assert.True(t, ok)
	assert.Equal(t, 7, d)
	assert.True(t, k.IsAny('x', '7'))
	assert.False(t, Key{Code: KeyEnter}.Is('\r'))
	_, ok = Key{Code: KeyRune, Rune: 'a'}.Digit()
	assert.False(t, ok)
}

func TestCharsetEncode(t *testing.T) {
	assert.Equal(t, "caf?", ASCII.Encode("café"))
	assert.Equal(t, "caf\xe9", Latin1.Encode("café"))
	assert.Equal(t, "\xdb", CP437.Encode("█"))
	assert.Equal(t, "?", Latin1.Encode("█"))
	assert.Equal(t, "\x1b[2J", ASCII.Encode("\x1b[2J"))
	assert.Equal(t, "█", UTF8.Encode("█"))
	assert.Equal(t, "cp437", CP437.String())
}

func TestReadLine(t *testing.T) {
	var out bytes.Buffer
	term := New(strings.NewReader("helo\blo\x1b[A\r\n"), &out)
	defer term.Close()

	line, err := term.ReadLine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hello", line)
	assert.Equal(t, "helo\b \blo\r\n", out.String())

	_, err = term.ReadKey(context.Background())
	assert.ErrorIs(t, err, ErrTransport)
}

func TestReadKeyCancelKeepsPendingKey(t *testing.T) {
	pr, pw := io.Pipe()
	term := New(pr, io.Discard)
	defer func() {
		pw.Close()
		term.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := term.ReadKey(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	go pw.Write([]byte("q"))
	k, err := term.ReadKey(context.Background())
	require.NoError(t, err)
	assert.True(t, k.Is('q'))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }

func TestWriteErrorIsTransport(t *testing.T) {
	term := New(strings.NewReader(""), failingWriter{})
	defer term.Close()
	err := term.Println("hello")
	assert.ErrorIs(t, err, ErrTransport)
}

func TestWriteUsesCharset(t *testing.T) {
	var out bytes.Buffer
	term := New(strings.NewReader(""), &out)
	defer term.Close()
	term.SetCharset(ASCII)
	assert.Equal(t, ASCII, term.Charset())
	require.NoError(t, term.Printf("%s!", "naïve"))
	assert.Equal(t, "na?ve!", out.String())
}

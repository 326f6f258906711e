package server

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ziadkadry99/telewiki/internal/telnet"
	"github.com/ziadkadry99/telewiki/internal/terminal"
)

func startServer(t *testing.T, cfg Config, h Handler) *Server {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := New(cfg, h, nil)
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ln) }()
	require.Eventually(t, func() bool { return srv.Addr() != nil }, time.Second, 5*time.Millisecond)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		assert.NoError(t, srv.Shutdown(ctx))
		assert.NoError(t, <-served)
	})
	return srv
}

func dial(t *testing.T, srv *Server) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	conn.SetDeadline(time.Now().Add(5 * time.Second))
	return conn
}

// readUntil reads from r until the accumulated output contains want.
func readUntil(t *testing.T, r io.Reader, want string) string {
	t.Helper()
	var buf bytes.Buffer
	br := bufio.NewReader(r)
	for !strings.Contains(buf.String(), want) {
		b, err := br.ReadByte()
		if err != nil {
			t.Fatalf("reading %q: %v (got %q)", want, err, buf.String())
		}
		buf.WriteByte(b)
	}
	return buf.String()
}

func TestSessionRoundTrip(t *testing.T) {
	lines := make(chan string, 1)
	srv := startServer(t, Config{}, func(ctx context.Context, term *terminal.Terminal) error {
		if err := term.Print("Name: "); err != nil {
			return err
		}
		line, err := term.ReadLine(ctx)
		if err != nil {
			return err
		}
		lines <- line
		return term.Println("bye " + line)
	})

	conn := dial(t, srv)
	out := readUntil(t, conn, "Name: ")
	assert.True(t, strings.HasPrefix(out, string([]byte{telnet.IAC, telnet.WILL, telnet.OptEcho})))

	_, err := conn.Write([]byte("ada\r\n"))
	require.NoError(t, err)
	readUntil(t, conn, "bye ada\r\n")
	assert.Equal(t, "ada", <-lines)
}

func TestMaxConnections(t *testing.T) {
	release := make(chan struct{})
	srv := startServer(t, Config{MaxConnections: 1}, func(ctx context.Context, term *terminal.Terminal) error {
		if err := term.Print("welcome\r\n"); err != nil {
			return err
		}
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	})
	defer close(release)

	first := dial(t, srv)
	readUntil(t, first, "welcome")
	assert.Equal(t, 1, srv.Active())

	second := dial(t, srv)
	readUntil(t, second, "Server busy")
}

func TestIdleTimeout(t *testing.T) {
	result := make(chan error, 1)
	srv := startServer(t, Config{IdleTimeout: 50 * time.Millisecond}, func(ctx context.Context, term *terminal.Terminal) error {
		_, err := term.ReadKey(ctx)
		result <- err
		return err
	})

	conn := dial(t, srv)
	readUntil(t, conn, "Idle timeout")

	select {
	case err := <-result:
		assert.True(t, errors.Is(err, terminal.ErrTransport), "got %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("session did not end after idle timeout")
	}
}

func TestOutputKeepsSessionAlive(t *testing.T) {
	result := make(chan error, 1)
	srv := startServer(t, Config{IdleTimeout: 100 * time.Millisecond}, func(ctx context.Context, term *terminal.Terminal) error {
		readErr := make(chan error, 1)
		go func() {
			_, err := term.ReadKey(ctx)
			readErr <- err
		}()
		// Stream for three times the idle timeout without any input.
		for i := 0; i < 10; i++ {
			time.Sleep(30 * time.Millisecond)
			if err := term.Print("."); err != nil {
				result <- err
				return err
			}
			select {
			case err := <-readErr:
				result <- err
				return err
			default:
			}
		}
		result <- nil
		return term.Println("done")
	})

	conn := dial(t, srv)
	out := readUntil(t, conn, "done")
	assert.NotContains(t, out, "Idle timeout")
	assert.NoError(t, <-result)
}

func TestShutdownCancelsSessions(t *testing.T) {
	defer goleak.VerifyNone(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	started := make(chan struct{})
	srv := New(Config{}, func(ctx context.Context, term *terminal.Terminal) error {
		close(started)
		_, err := term.ReadKey(ctx)
		return err
	}, nil)
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ln) }()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	assert.NoError(t, <-served)
	assert.Equal(t, 0, srv.Active())
}

func TestPanicIsRecovered(t *testing.T) {
	srv := startServer(t, Config{}, func(ctx context.Context, term *terminal.Terminal) error {
		panic("boom")
	})
	conn := dial(t, srv)

	// The server closes the connection instead of crashing.
	_, err := io.ReadAll(conn)
	assert.NoError(t, err)
	assert.Eventually(t, func() bool { return srv.Active() == 0 }, time.Second, 5*time.Millisecond)
}

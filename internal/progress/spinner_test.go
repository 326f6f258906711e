package progress

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinnerDrawsDescription(t *testing.T) {
	var out syncBuffer
	s := Start(&out, "Loading", 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	s.Stop()
	s.Stop()

	if !strings.Contains(out.String(), "Loading") {
		t.Errorf("output %q does not mention the description", out.String())
	}
}

func TestWhileReturnsError(t *testing.T) {
	var out syncBuffer
	want := errors.New("fetch failed")
	err := While(context.Background(), &out, "Loading", func(ctx context.Context) error {
		return want
	})
	if !errors.Is(err, want) {
		t.Errorf("While() = %v, want %v", err, want)
	}
}

type brokenWriter struct{ err error }

func (w brokenWriter) Write(p []byte) (int, error) { return 0, w.err }

func TestWhileReportsWriteFailure(t *testing.T) {
	hangup := errors.New("connection reset")
	err := While(context.Background(), brokenWriter{hangup}, "Loading", func(ctx context.Context) error {
		time.Sleep(20 * time.Millisecond)
		return nil
	})
	if !errors.Is(err, hangup) {
		t.Errorf("While() = %v, want %v", err, hangup)
	}

	// A failure of fn itself takes precedence.
	want := errors.New("fetch failed")
	err = While(context.Background(), brokenWriter{hangup}, "Loading", func(ctx context.Context) error {
		return want
	})
	if !errors.Is(err, want) {
		t.Errorf("While() = %v, want %v", err, want)
	}
}

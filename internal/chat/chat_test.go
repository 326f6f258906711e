package chat

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ziadkadry99/telewiki/internal/terminal"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

// newTerm returns a terminal whose input is fed through the returned pipe.
func newTerm(t *testing.T) (*terminal.Terminal, *io.PipeWriter, *syncBuffer) {
	t.Helper()
	pr, pw := io.Pipe()
	out := &syncBuffer{}
	term := terminal.New(pr, out)
	t.Cleanup(func() {
		pw.Close()
		term.Close()
	})
	return term, pw, out
}

type fakeChannel struct {
	chunks  []string
	block   bool
	endErr  error
	openErr error
	closed  chan struct{}

	mu  sync.Mutex
	req Request
}

func (f *fakeChannel) Open(_ context.Context, req Request) (Stream, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.mu.Lock()
	f.req = req
	f.mu.Unlock()
	return &fakeStream{f: f}, nil
}

func (f *fakeChannel) lastRequest() Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.req
}

type fakeStream struct {
	f    *fakeChannel
	i    int
	once sync.Once
}

func (s *fakeStream) Recv(ctx context.Context) (string, error) {
	if s.i < len(s.f.chunks) {
		s.i++
		return s.f.chunks[s.i-1], nil
	}
	if s.f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if s.f.endErr != nil {
		return "", s.f.endErr
	}
	return "", io.EOF
}

func (s *fakeStream) Close() error {
	s.once.Do(func() {
		if s.f.closed != nil {
			close(s.f.closed)
		}
	})
	return nil
}

func TestRunTurnCompleted(t *testing.T) {
	term, _, out := newTerm(t)
	s := &Streamer{Channel: &fakeChannel{chunks: []string{"Hello", " ", "World"}}, Width: 80}

	res, err := s.RunTurn(context.Background(), term, Request{Question: "hi"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Equal(t, "Hello World", res.Text)
	assert.Contains(t, out.String(), "MULTIVAC> Hello World")

	var conv Conversation
	res.Record(&conv)
	require.Equal(t, 1, conv.Len())
	assert.Equal(t, SpeakerAgent, conv.Turns()[0].Speaker)
	assert.Equal(t, "Hello World", conv.Turns()[0].Text)
}

func TestRunTurnWrapsAtWidth(t *testing.T) {
	term, _, out := newTerm(t)
	s := &Streamer{Channel: &fakeChannel{chunks: []string{"Hello World", "\nbye"}}, Width: 5}

	res, err := s.RunTurn(context.Background(), term, Request{})
	require.NoError(t, err)
	assert.Equal(t, "Hello World\nbye", res.Text)
	assert.Contains(t, out.String(), "Hello\r\nWorld\r\nbye")
}

func TestRunTurnCancelKeepsPartial(t *testing.T) {
	tests := []struct {
		key  string
		want Outcome
		text string
	}{
		{"q", OutcomeCancelled, "partial answer"},
		{"c", OutcomeCleared, ""},
		{"x", OutcomeQuit, "partial answer"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			term, pw, out := newTerm(t)
			tick := 200 * time.Millisecond
			s := &Streamer{Channel: &fakeChannel{chunks: []string{"partial", " answer"}, block: true}, Width: 80, Tick: tick}

			type turn struct {
				res TurnResult
				err error
			}
			done := make(chan turn, 1)
			go func() {
				res, err := s.RunTurn(context.Background(), term, Request{})
				done <- turn{res, err}
			}()

			require.Eventually(t, func() bool {
				return strings.Contains(out.String(), "partial answer")
			}, time.Second, 5*time.Millisecond)

			start := time.Now()
			_, err := pw.Write([]byte(tt.key))
			require.NoError(t, err)

			var got turn
			select {
			case got = <-done:
			case <-time.After(2 * time.Second):
				t.Fatal("turn did not end after cancel key")
			}
			assert.Less(t, time.Since(start), tick)
			require.NoError(t, got.err)
			assert.Equal(t, tt.want, got.res.Outcome)
			assert.Equal(t, tt.text, got.res.Text)
		})
	}
}

func TestRunTurnSpinnerWhenIdle(t *testing.T) {
	term, pw, out := newTerm(t)
	s := &Streamer{Channel: &fakeChannel{block: true}, Width: 80, Tick: 10 * time.Millisecond}

	done := make(chan TurnResult, 1)
	go func() {
		res, _ := s.RunTurn(context.Background(), term, Request{})
		done <- res
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "|\b")
	}, time.Second, 5*time.Millisecond)

	_, err := pw.Write([]byte("q"))
	require.NoError(t, err)
	res := <-done
	assert.Equal(t, OutcomeCancelled, res.Outcome)
}

func TestRunTurnIgnoresOtherKeys(t *testing.T) {
	term, pw, _ := newTerm(t)
	closed := make(chan struct{})
	s := &Streamer{Channel: &fakeChannel{block: true, closed: closed}, Width: 80, Tick: time.Second}

	done := make(chan TurnResult, 1)
	go func() {
		res, _ := s.RunTurn(context.Background(), term, Request{})
		done <- res
	}()
	_, err := pw.Write([]byte("zy"))
	require.NoError(t, err)

	select {
	case <-done:
		t.Fatal("turn ended on an unrelated key")
	case <-time.After(50 * time.Millisecond):
	}
	_, err = pw.Write([]byte("c"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeCleared, (<-done).Outcome)
	<-closed
}

func TestRunTurnFailures(t *testing.T) {
	term, _, _ := newTerm(t)

	s := &Streamer{Channel: &fakeChannel{openErr: errors.New("connection refused")}}
	res, err := s.RunTurn(context.Background(), term, Request{})
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, res.Outcome)

	var conv Conversation
	res.Record(&conv)
	assert.Equal(t, SpeakerError, conv.Turns()[0].Speaker)
	assert.Equal(t, "AI assistant connection error: connection refused", conv.Turns()[0].Text)

	s = &Streamer{Channel: &fakeChannel{chunks: []string{"half"}, endErr: errors.New("reset")}}
	res, err = s.RunTurn(context.Background(), term, Request{})
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Equal(t, "half", res.Text)
}

func TestRunTurnTransportError(t *testing.T) {
	term := terminal.New(strings.NewReader(""), io.Discard)
	defer term.Close()
	s := &Streamer{Channel: &fakeChannel{block: true}, Tick: time.Second}

	_, err := s.RunTurn(context.Background(), term, Request{})
	assert.ErrorIs(t, err, terminal.ErrTransport)
}

func TestRecord(t *testing.T) {
	var conv Conversation
	TurnResult{Outcome: OutcomeCancelled, Text: "Hel"}.Record(&conv)
	TurnResult{Outcome: OutcomeCancelled}.Record(&conv)
	TurnResult{Outcome: OutcomeCleared, Text: "ignored"}.Record(&conv)
	TurnResult{Outcome: OutcomeQuit, Text: "ignored"}.Record(&conv)

	turns := conv.Turns()
	require.Len(t, turns, 3)
	assert.Equal(t, "Hel [User canceled]", turns[0].Text)
	assert.Equal(t, "[User cleared partial response]", turns[1].Text)
	assert.Equal(t, "[User cleared partial response]", turns[2].Text)
}

func TestConversationLines(t *testing.T) {
	var conv Conversation
	conv.Append(SpeakerUser, "first question")
	conv.Append(SpeakerAgent, "first answer")
	conv.Append(SpeakerError, "offline")

	assert.Equal(t, []string{
		"[ERROR: offline]",
		"",
		"MULTIVAC> first answer",
		"",
		"You> first question",
	}, conv.Lines(80))

	assert.Equal(t, []Message{
		{Speaker: "You", Text: "first question"},
		{Speaker: "AI", Text: "first answer"},
		{Speaker: "Error", Text: "offline"},
	}, conv.Messages())
}

func TestOverlayRunsTurns(t *testing.T) {
	term, pw, out := newTerm(t)
	closed := make(chan struct{})
	ch := &fakeChannel{chunks: []string{"Hello"}, closed: closed}
	o := &Overlay{
		Streamer:   &Streamer{Channel: ch, Width: 40},
		PageSize:   10,
		Width:      40,
		UserID:     "u1",
		Credential: "secret",
	}
	var conv Conversation

	errc := make(chan error, 1)
	go func() {
		errc <- o.Run(context.Background(), term, &conv, OverlayOptions{Context: "Mars article", PageIndex: 2})
	}()

	_, err := pw.Write([]byte("hi there\r"))
	require.NoError(t, err)
	<-closed

	// Leave the transcript pager, then exit at the prompt.
	_, err = pw.Write([]byte("q"))
	require.NoError(t, err)
	_, err = pw.Write([]byte("q\r"))
	require.NoError(t, err)
	require.NoError(t, <-errc)

	turns := conv.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, "hi there", turns[0].Text)
	assert.Equal(t, "Hello", turns[1].Text)

	req := ch.lastRequest()
	assert.Equal(t, "hi there", req.Question)
	assert.Equal(t, "u1", req.UserID)
	assert.Equal(t, "secret", req.Credential)
	assert.Equal(t, "Mars article", req.Context)
	assert.Equal(t, 2, req.PageIndex)
	assert.Len(t, req.Conversation, 1)

	assert.Contains(t, out.String(), "=== AI Assistant Overlay ===")
	assert.Contains(t, out.String(), "MULTIVAC> Hello")
	assert.Contains(t, out.String(), "[Exiting AI assistant overlay]")
}

func TestOverlayEmptyQuestionReturnsWhenNested(t *testing.T) {
	term, pw, _ := newTerm(t)
	o := &Overlay{Streamer: &Streamer{Channel: &fakeChannel{}}, PageSize: 10, Width: 40}
	var conv Conversation

	errc := make(chan error, 1)
	go func() {
		errc <- o.Run(context.Background(), term, &conv, OverlayOptions{})
	}()
	_, err := pw.Write([]byte("\r"))
	require.NoError(t, err)
	require.NoError(t, <-errc)
	assert.Equal(t, 0, conv.Len())
}

func TestOverlayQuitPropagates(t *testing.T) {
	term, pw, _ := newTerm(t)
	o := &Overlay{Streamer: &Streamer{Channel: &fakeChannel{block: true}, Tick: time.Second}, PageSize: 10, Width: 40}
	var conv Conversation

	errc := make(chan error, 1)
	go func() {
		errc <- o.Run(context.Background(), term, &conv, OverlayOptions{TopLevel: true, InitialQuestion: "why?"})
	}()
	_, err := pw.Write([]byte("x"))
	require.NoError(t, err)
	assert.ErrorIs(t, <-errc, terminal.ErrQuit)
}

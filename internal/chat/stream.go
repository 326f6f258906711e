package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ziadkadry99/telewiki/internal/reflow"
	"github.com/ziadkadry99/telewiki/internal/terminal"
)

// DefaultTick is how long the stream must be idle before the spinner shows,
// and how often it turns.
const DefaultTick = 250 * time.Millisecond

var spinnerGlyphs = []string{"|", "/", "-", `\`}

// errTurnOver is returned by whichever activity ends the turn so the group
// cancels the other two.
var errTurnOver = errors.New("turn over")

// Outcome is how a streaming turn ended.
type Outcome int

const (
	OutcomeCompleted Outcome = iota
	OutcomeCancelled
	OutcomeCleared
	OutcomeQuit
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeCleared:
		return "cleared"
	case OutcomeQuit:
		return "quit"
	default:
		return "failed"
	}
}

// TurnResult is the end state of one turn. Text holds everything received,
// including a partial answer.
type TurnResult struct {
	Outcome Outcome
	Text    string
	Err     error
}

// Record appends the agent's side of the turn to c. A quit is not recorded.
func (r TurnResult) Record(c *Conversation) {
	switch r.Outcome {
	case OutcomeCompleted:
		c.Append(SpeakerAgent, r.Text)
	case OutcomeCancelled:
		if r.Text == "" {
			c.Append(SpeakerAgent, "[User cleared partial response]")
			return
		}
		c.Append(SpeakerAgent, r.Text+" [User canceled]")
	case OutcomeCleared:
		c.Append(SpeakerAgent, "[User cleared partial response]")
	case OutcomeFailed:
		c.Append(SpeakerError, fmt.Sprintf("AI assistant connection error: %v", r.Err))
	}
}

// Streamer runs a single turn: it renders the answer as it arrives while
// watching for cancel keys and drawing a spinner when the stream stalls.
type Streamer struct {
	Channel Channel
	Width   int
	Tick    time.Duration
	Logger  *zap.Logger
}

func (s *Streamer) tick() time.Duration {
	if s.Tick > 0 {
		return s.Tick
	}
	return DefaultTick
}

func (s *Streamer) logger() *zap.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return zap.NewNop()
}

// RunTurn streams the answer to req onto t. The stream reader, the key
// watcher and the spinner race; the first to finish decides the outcome and
// the others are cancelled and awaited before RunTurn returns. The error is
// non-nil only when the terminal itself failed.
func (s *Streamer) RunTurn(ctx context.Context, t *terminal.Terminal, req Request) (TurnResult, error) {
	log := s.logger().With(zap.String("user_id", req.UserID))

	stream, err := s.Channel.Open(ctx, req)
	if err != nil {
		log.Debug("opening AI stream", zap.Error(err))
		return TurnResult{Outcome: OutcomeFailed, Err: err}, nil
	}
	defer stream.Close()

	if err := t.Print("MULTIVAC> "); err != nil {
		return TurnResult{Outcome: OutcomeFailed, Err: err}, err
	}

	var (
		decided   atomic.Bool
		lastToken atomic.Int64

		mu        sync.Mutex // serializes writes and guards text
		text      strings.Builder
		result    TurnResult
		transport error
	)
	lastToken.Store(time.Now().UnixNano())

	claim := func(o Outcome, err error) bool {
		if !decided.CompareAndSwap(false, true) {
			return false
		}
		result = TurnResult{Outcome: o, Err: err}
		if errors.Is(err, terminal.ErrTransport) {
			transport = err
		}
		return true
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		lw := &lineWriter{t: t, width: s.Width}
		for {
			chunk, err := stream.Recv(gctx)
			if err != nil {
				if gctx.Err() != nil {
					return nil
				}
				if errors.Is(err, io.EOF) {
					claim(OutcomeCompleted, nil)
				} else {
					log.Debug("AI stream failed", zap.Error(err))
					claim(OutcomeFailed, err)
				}
				return errTurnOver
			}
			for _, run := range reflow.Runs(chunk) {
				mu.Lock()
				if decided.Load() {
					mu.Unlock()
					return nil
				}
				werr := lw.write(run)
				text.WriteString(run)
				mu.Unlock()
				lastToken.Store(time.Now().UnixNano())
				if werr != nil {
					claim(OutcomeFailed, werr)
					return errTurnOver
				}
			}
		}
	})

	g.Go(func() error {
		for {
			k, err := t.ReadKey(gctx)
			if err != nil {
				if gctx.Err() != nil {
					return nil
				}
				claim(OutcomeFailed, err)
				return errTurnOver
			}
			var o Outcome
			switch {
			case k.IsAny('q', 'Q'):
				o = OutcomeCancelled
			case k.IsAny('c', 'C'):
				o = OutcomeCleared
			case k.IsAny('x', 'X'):
				o = OutcomeQuit
			default:
				continue
			}
			if !claim(o, nil) {
				return nil
			}
			return errTurnOver
		}
	})

	g.Go(func() error {
		tick := s.tick()
		ticker := time.NewTicker(tick)
		defer ticker.Stop()
		for i := 0; ; {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
			}
			if time.Since(time.Unix(0, lastToken.Load())) < tick {
				continue
			}
			mu.Lock()
			if decided.Load() {
				mu.Unlock()
				return nil
			}
			err := t.Print(spinnerGlyphs[i%len(spinnerGlyphs)], "\b")
			mu.Unlock()
			i++
			if err != nil {
				claim(OutcomeFailed, err)
				return errTurnOver
			}
		}
	})

	_ = g.Wait()

	result.Text = text.String()
	if result.Outcome == OutcomeCleared {
		result.Text = ""
	}
	log.Debug("AI turn finished", zap.Stringer("outcome", result.Outcome), zap.Int("chars", len(result.Text)))

	if transport != nil {
		return result, transport
	}
	if err := t.Print(terminal.ClearLine, "\r\n"); err != nil {
		return result, err
	}
	return result, nil
}

// lineWriter writes answer runs, breaking lines before a run that would
// pass the width. Bare newlines become CR LF.
type lineWriter struct {
	t     *terminal.Terminal
	width int
	col   int
}

func (w *lineWriter) write(run string) error {
	run = strings.ReplaceAll(run, "\r\n", "\n")
	parts := strings.Split(run, "\n")
	for i, part := range parts {
		if i > 0 {
			if err := w.t.Print("\r\n"); err != nil {
				return err
			}
			w.col = 0
		}
		if part == "" {
			continue
		}
		pw := reflow.Width(part)
		if w.width > 0 && w.col > 0 && w.col+pw > w.width {
			if err := w.t.Print("\r\n"); err != nil {
				return err
			}
			w.col = 0
			if strings.TrimSpace(part) == "" {
				continue
			}
		}
		if err := w.t.Print(part); err != nil {
			return err
		}
		w.col += pw
	}
	return nil
}

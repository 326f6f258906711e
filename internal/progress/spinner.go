// Package progress draws an indeterminate loading indicator on a terminal
// while a slow operation runs.
package progress

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

// DefaultInterval is how often the indicator advances.
const DefaultInterval = 100 * time.Millisecond

// Spinner animates a progressbar spinner until stopped.
type Spinner struct {
	bar  *progressbar.ProgressBar
	out  *errWriter
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// Start begins animating desc on w.
func Start(w io.Writer, desc string, interval time.Duration) *Spinner {
	if interval <= 0 {
		interval = DefaultInterval
	}
	out := &errWriter{w: w}
	s := &Spinner{
		out: out,
		bar: progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(out),
			progressbar.OptionSetDescription(desc),
			progressbar.OptionSetWidth(10),
			progressbar.OptionSpinnerType(9),
			progressbar.OptionClearOnFinish(),
		),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go s.run(interval)
	return s
}

func (s *Spinner) run(interval time.Duration) {
	defer close(s.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	_ = s.bar.Add(1)
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			_ = s.bar.Add(1)
		}
	}
}

// Stop halts the animation and clears the indicator. It is safe to call
// more than once.
func (s *Spinner) Stop() {
	s.once.Do(func() {
		close(s.stop)
		<-s.done
		_ = s.bar.Finish()
	})
}

// Err returns the first error writing the indicator.
func (s *Spinner) Err() error {
	return s.out.Err()
}

// While runs fn with a spinner drawn on w. fn's error wins; otherwise the
// first failed write to w is returned.
func While(ctx context.Context, w io.Writer, desc string, fn func(ctx context.Context) error) error {
	s := Start(w, desc, DefaultInterval)
	err := fn(ctx)
	s.Stop()
	if err != nil {
		return err
	}
	return s.Err()
}

// errWriter remembers the first write failure.
type errWriter struct {
	w   io.Writer
	mu  sync.Mutex
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	n, err := e.w.Write(p)
	if err != nil {
		e.mu.Lock()
		if e.err == nil {
			e.err = err
		}
		e.mu.Unlock()
	}
	return n, err
}

func (e *errWriter) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

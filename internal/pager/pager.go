// Package pager slices lines into pages and drives interactive page
// navigation on a terminal.
package pager

import (
	"context"
	"strconv"

	"github.com/ziadkadry99/telewiki/internal/terminal"
)

// State is the page position over a fixed number of lines.
type State struct {
	Index int
	Size  int
	Total int
	Lines int
}

// NewState paginates lines into pages of size lines each. Sizes below one
// are treated as one.
func NewState(lines, size int) State {
	if size < 1 {
		size = 1
	}
	return State{Size: size, Total: (lines + size - 1) / size, Lines: lines}
}

// Empty reports whether there is nothing to page through.
func (s State) Empty() bool { return s.Total == 0 }

// Next advances one page, wrapping to the first page.
func (s *State) Next() {
	if s.Total > 0 {
		s.Index = (s.Index + 1) % s.Total
	}
}

// Prev goes back one page, wrapping to the last page.
func (s *State) Prev() {
	if s.Total > 0 {
		s.Index = (s.Index - 1 + s.Total) % s.Total
	}
}

// Jump moves to the zero-based page. Out of range pages are ignored.
func (s *State) Jump(page int) bool {
	if page < 0 || page >= s.Total {
		return false
	}
	s.Index = page
	return true
}

// Last moves to the final page.
func (s *State) Last() {
	if s.Total > 0 {
		s.Index = s.Total - 1
	}
}

// Bounds returns the line range [start, end) of the current page.
func (s State) Bounds() (int, int) {
	start := s.Index * s.Size
	end := start + s.Size
	if end > s.Lines {
		end = s.Lines
	}
	if start > end {
		start = end
	}
	return start, end
}

// Action is what a keystroke asks the page loop to do.
type Action int

const (
	ActionNone Action = iota
	ActionNextPage
	ActionPrevPage
	ActionJump
	ActionReturn
	ActionQuit
	ActionCompose
	ActionQuery
)

// Result is a decoded navigation command. Page is set for ActionJump and is
// zero-based.
type Result struct {
	Action Action
	Page   int
}

// Input accumulates a page number typed as digits and maps keys to results.
type Input struct {
	// Guestbook makes Enter without pending digits compose a new entry
	// instead of advancing the page.
	Guestbook bool

	digits string
}

// Digits returns the pending page number text.
func (in *Input) Digits() string { return in.digits }

// Reset discards pending digits.
func (in *Input) Reset() { in.digits = "" }

// Feed interprets one key. Digits are buffered and only committed by Enter.
func (in *Input) Feed(k terminal.Key) Result {
	if _, ok := k.Digit(); ok {
		in.digits += string(k.Rune)
		return Result{}
	}
	switch {
	case k.Code == terminal.KeyEnter:
		if in.digits != "" {
			n, err := strconv.Atoi(in.digits)
			in.digits = ""
			if err != nil {
				return Result{}
			}
			return Result{Action: ActionJump, Page: n - 1}
		}
		if in.Guestbook {
			return Result{Action: ActionCompose}
		}
		return Result{Action: ActionNextPage}
	case k.Code == terminal.KeyBackspace:
		if in.digits != "" {
			in.digits = in.digits[:len(in.digits)-1]
		}
	case k.Code == terminal.KeyRight || k.Is('l'):
		return Result{Action: ActionNextPage}
	case k.Code == terminal.KeyLeft || k.Is('h'):
		return Result{Action: ActionPrevPage}
	case k.IsAny('q', 'Q'):
		return Result{Action: ActionReturn}
	case k.IsAny('x', 'X'):
		return Result{Action: ActionQuit}
	case k.Is('n'):
		return Result{Action: ActionQuery}
	}
	return Result{}
}

// Apply performs the page movement of r on s. It reports whether the page
// changed.
func (s *State) Apply(r Result) bool {
	before := s.Index
	switch r.Action {
	case ActionNextPage:
		s.Next()
	case ActionPrevPage:
		s.Prev()
	case ActionJump:
		s.Jump(r.Page)
	default:
		return false
	}
	return s.Index != before
}

// Outcome is how an interactive page loop ended.
type Outcome int

const (
	OutcomeDone Outcome = iota
	OutcomeQuery
	OutcomeCompose
	OutcomeQuit
)

// Options configure Run.
type Options struct {
	PageSize  int
	Guestbook bool
	// Hint replaces the default key help in the status line.
	Hint string
}

const (
	defaultHint   = "Enter/l=next, h=prev, #+Enter=jump, q=exit, x=quit"
	guestbookHint = "Enter=sign, l=next, h=prev, q=exit, x=quit"
)

// Run shows lines one page at a time until the user leaves. Superquit is
// returned as terminal.ErrQuit together with OutcomeQuit.
func Run(ctx context.Context, t *terminal.Terminal, lines []string, opts Options) (Outcome, error) {
	st := NewState(len(lines), opts.PageSize)
	if st.Empty() {
		if opts.Guestbook {
			if err := t.Println("No content. Press Enter to sign, q to exit."); err != nil {
				return OutcomeDone, err
			}
			return waitEmpty(ctx, t)
		}
		return OutcomeDone, t.Println("No content.")
	}

	hint := opts.Hint
	if hint == "" {
		hint = defaultHint
		if opts.Guestbook {
			hint = guestbookHint
		}
	}
	in := &Input{Guestbook: opts.Guestbook}

	redraw := true
	for {
		if redraw {
			if err := Render(t, lines, st, hint, in.Digits()); err != nil {
				return OutcomeDone, err
			}
			redraw = false
		}

		k, err := t.ReadKey(ctx)
		if err != nil {
			return OutcomeDone, err
		}
		r := in.Feed(k)
		switch r.Action {
		case ActionNone:
			if err := RenderStatus(t, st, hint, in.Digits()); err != nil {
				return OutcomeDone, err
			}
		case ActionReturn:
			return OutcomeDone, nil
		case ActionQuit:
			return OutcomeQuit, terminal.ErrQuit
		case ActionCompose:
			return OutcomeCompose, nil
		case ActionQuery:
			return OutcomeQuery, nil
		default:
			if st.Apply(r) {
				redraw = true
			} else if err := RenderStatus(t, st, hint, in.Digits()); err != nil {
				return OutcomeDone, err
			}
		}
	}
}

func waitEmpty(ctx context.Context, t *terminal.Terminal) (Outcome, error) {
	for {
		k, err := t.ReadKey(ctx)
		if err != nil {
			return OutcomeDone, err
		}
		switch {
		case k.Code == terminal.KeyEnter:
			return OutcomeCompose, nil
		case k.IsAny('q', 'Q'):
			return OutcomeDone, nil
		case k.IsAny('x', 'X'):
			return OutcomeQuit, terminal.ErrQuit
		}
	}
}

// Render clears the screen and draws the current page and status line.
func Render(t *terminal.Terminal, lines []string, st State, hint, digits string) error {
	if err := t.Print(terminal.ClearScreen); err != nil {
		return err
	}
	start, end := st.Bounds()
	for _, line := range lines[start:end] {
		if err := t.Println(line); err != nil {
			return err
		}
	}
	return t.Print("\r\n", Status(st, hint, digits))
}

// RenderStatus redraws the status line in place.
func RenderStatus(t *terminal.Terminal, st State, hint, digits string) error {
	return t.Print("\r", terminal.ClearLine, Status(st, hint, digits))
}

// Status formats the page status line.
func Status(st State, hint, digits string) string {
	return "-- Page " + strconv.Itoa(st.Index+1) + "/" + strconv.Itoa(st.Total) + " -- (" + hint + "): " + digits
}

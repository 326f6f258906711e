// Package selector presents a paged list of options and lets the user pick
// one with arrow keys or by number.
package selector

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ziadkadry99/telewiki/internal/terminal"
)

// StartEntry is the synthetic first entry of a table-of-contents list.
const StartEntry = "[Start]"

// Options configure Run.
type Options struct {
	PageSize int
	Prompt   string
	// TOC prepends StartEntry and enables t to go back.
	TOC bool
}

// Choice is the result of a selection. Index refers to the caller's items
// and is only meaningful when no flag is set.
type Choice struct {
	Index     int
	Start     bool
	Back      bool
	Cancelled bool
}

type list struct {
	t        *terminal.Terminal
	items    []string
	size     int
	prompt   string
	selected int
	page     int
	digits   string
}

func (l *list) total() int { return len(l.items) }
func (l *list) pages() int { return (l.total() + l.size - 1) / l.size }
func (l *list) pageOf(i int) int { return i / l.size }

func (l *list) pageRange() (int, int) {
	start := l.page * l.size
	end := start + l.size
	if end > l.total() {
		end = l.total()
	}
	return start, end
}

func (l *list) entry(i int, selected bool) string {
	arrow := "   "
	if selected {
		arrow = "-> "
	}
	return fmt.Sprintf("%d. %s%s", i, arrow, l.items[i])
}

func (l *list) status() string {
	return fmt.Sprintf("-- Page %d/%d -- %s %s", l.page+1, l.pages(), l.prompt, l.digits)
}

func (l *list) draw() error {
	if err := l.t.Print(terminal.ClearScreen); err != nil {
		return err
	}
	start, end := l.pageRange()
	for i := start; i < end; i++ {
		if err := l.t.Println(l.entry(i, i == l.selected)); err != nil {
			return err
		}
	}
	return l.t.Print("\r\n", l.status(), "\r\n")
}

// move redraws the old and new selected entries without clearing the screen.
// The cursor rests on the line below the status line.
func (l *list) move(old, next int) error {
	start, end := l.pageRange()
	height := end - start
	oldOff, newOff := old-start, next-start

	out := terminal.CursorUp(height+2-oldOff) + "\r" + terminal.ClearLine + l.entry(old, false)
	if diff := oldOff - newOff; diff > 0 {
		out += terminal.CursorUp(diff)
	} else if diff < 0 {
		out += terminal.CursorDown(-diff)
	}
	out += "\r" + terminal.ClearLine + l.entry(next, true)
	out += terminal.CursorDown(height+2-newOff) + "\r"
	return l.t.Print(out)
}

func (l *list) redrawStatus() error {
	return l.t.Print(terminal.CursorUp(1), "\r", terminal.ClearLine, l.status(), "\r\n")
}

func (l *list) selectIndex(i int) error {
	if i < 0 || i >= l.total() || i == l.selected {
		return nil
	}
	old := l.selected
	l.selected = i
	if p := l.pageOf(i); p != l.page {
		l.page = p
		return l.draw()
	}
	return l.move(old, i)
}

func (l *list) turnPage(p int) error {
	if p < 0 || p >= l.pages() || p == l.page {
		return nil
	}
	l.page = p
	l.selected = p * l.size
	return l.draw()
}

// Run shows items and waits for a choice. Superquit is returned as
// terminal.ErrQuit.
func Run(ctx context.Context, t *terminal.Terminal, items []string, opts Options) (Choice, error) {
	display := items
	if opts.TOC {
		display = append([]string{StartEntry}, items...)
	}
	if len(display) == 0 {
		return Choice{Cancelled: true}, nil
	}
	size := opts.PageSize
	if size < 1 {
		size = 1
	}
	l := &list{t: t, items: display, size: size, prompt: opts.Prompt}

	resolve := func(i int) Choice {
		if opts.TOC {
			if i == 0 {
				return Choice{Start: true}
			}
			return Choice{Index: i - 1}
		}
		return Choice{Index: i}
	}

	if err := l.draw(); err != nil {
		return Choice{}, err
	}
	for {
		k, err := t.ReadKey(ctx)
		if err != nil {
			return Choice{}, err
		}
		if _, ok := k.Digit(); ok {
			l.digits += string(k.Rune)
			if err := l.redrawStatus(); err != nil {
				return Choice{}, err
			}
			continue
		}

		switch {
		case k.Code == terminal.KeyEnter:
			if l.digits != "" {
				n, err := strconv.Atoi(l.digits)
				if err == nil && n >= 0 && n < l.total() {
					return resolve(n), nil
				}
			}
			return resolve(l.selected), nil
		case k.Code == terminal.KeyBackspace:
			if l.digits != "" {
				l.digits = l.digits[:len(l.digits)-1]
				err = l.redrawStatus()
			}
		case k.IsAny('q', 'Q'):
			if !opts.TOC {
				err = t.Print(terminal.ClearScreen, "Selection cancelled. Please be more specific.\r\n")
			}
			return Choice{Cancelled: true}, err
		case k.IsAny('x', 'X'):
			return Choice{}, terminal.ErrQuit
		case opts.TOC && k.IsAny('t', 'T'):
			return Choice{Back: true}, nil
		case k.Code == terminal.KeyUp || k.Is('k'):
			err = l.selectIndex(l.selected - 1)
		case k.Code == terminal.KeyDown || k.Is('j'):
			err = l.selectIndex(l.selected + 1)
		case k.Code == terminal.KeyRight || k.Is('l'):
			err = l.turnPage(l.page + 1)
		case k.Code == terminal.KeyLeft || k.Is('h'):
			err = l.turnPage(l.page - 1)
		}
		if err != nil {
			return Choice{}, err
		}
	}
}

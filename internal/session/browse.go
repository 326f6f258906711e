package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
	"go.uber.org/zap"

	"github.com/ziadkadry99/telewiki/internal/chat"
	"github.com/ziadkadry99/telewiki/internal/document"
	"github.com/ziadkadry99/telewiki/internal/pager"
	"github.com/ziadkadry99/telewiki/internal/progress"
	"github.com/ziadkadry99/telewiki/internal/selector"
	"github.com/ziadkadry99/telewiki/internal/terminal"
	"github.com/ziadkadry99/telewiki/internal/wiki"
)

func (s *Session) articleHint() string {
	if s.aiEnabled() {
		return "l=next, h=prev, t=TOC, q=exit, j/k=links, s/d=search, a=AI"
	}
	return "l=next, h=prev, t=TOC, q=exit, j/k=links, s/d=search"
}

// browse pages through root and every document reached from it by links.
// Following a link pushes a frame; q pops back to the previous one with its
// page, selection and search intact.
func (s *Session) browse(ctx context.Context, root *Frame) error {
	var stack FrameStack
	stack.Push(root)
	in := &pager.Input{}
	redraw := true

	for stack.Len() > 0 {
		f := stack.Top()
		if f.Pager.Empty() {
			if err := s.term.Println("Article is empty."); err != nil {
				return err
			}
			stack.Pop()
			redraw = true
			continue
		}
		if redraw {
			if err := s.render(f, in.Digits()); err != nil {
				return err
			}
			redraw = false
		}

		k, err := s.term.ReadKey(ctx)
		if err != nil {
			return err
		}

		switch {
		case k.Code == terminal.KeyDown || k.Is('j'):
			err = s.moveSelection(f, f.Selected.Next(len(f.PageLinks())), in.Digits())
		case k.Code == terminal.KeyUp || k.Is('k'):
			err = s.moveSelection(f, f.Selected.Prev(len(f.PageLinks())), in.Digits())
		case k.IsAny('t', 'T'):
			err = s.chooseHeading(ctx, f)
			redraw = true
		case k.IsAny('s', 'S'):
			f.Search.Clear()
			err = s.searchPrompt(ctx, f)
			f.Selected = document.None
			redraw = true
		case k.Is('d'):
			if !f.Search.Active() {
				err = s.searchPrompt(ctx, f)
			} else if page, ok := f.Search.Next(f.Pager.Index, f.Pager.Size); ok {
				f.Pager.Jump(page)
			}
			f.Selected = document.None
			redraw = true
		case k.Is('D'):
			if !f.Search.Active() {
				err = s.searchPrompt(ctx, f)
			} else if page, ok := f.Search.Prev(f.Pager.Index, f.Pager.Size); ok {
				f.Pager.Jump(page)
			}
			f.Selected = document.None
			redraw = true
		case k.IsAny('a', 'A'):
			if s.aiEnabled() {
				err = s.discuss(ctx, f)
				redraw = true
			}
		case k.Code == terminal.KeyEnter && in.Digits() == "" && f.Selected.Valid(len(f.PageLinks())):
			span, _ := f.SelectedLink()
			var next *Frame
			next, err = s.follow(ctx, span.Target)
			if next != nil {
				stack.Push(next)
			} else if err == nil {
				f.notice = "Failed to load link."
			}
			redraw = true
		default:
			r := in.Feed(k)
			switch r.Action {
			case pager.ActionReturn:
				stack.Pop()
				redraw = true
			case pager.ActionQuit:
				return ErrQuit
			case pager.ActionNextPage, pager.ActionPrevPage, pager.ActionJump:
				if f.Pager.Apply(r) {
					f.Selected = document.None
					redraw = true
				} else {
					err = s.renderStatus(f, in.Digits())
				}
			default:
				err = s.renderStatus(f, in.Digits())
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) status(f *Frame, digits string) string {
	return pager.Status(f.Pager, s.articleHint(), digits)
}

// render draws the current page of f followed by the status line.
func (s *Session) render(f *Frame, digits string) error {
	if err := s.term.Print(terminal.ClearScreen); err != nil {
		return err
	}
	start, end := f.Pager.Bounds()
	for i := start; i < end; i++ {
		if err := s.term.Println(f.DisplayLine(i)); err != nil {
			return err
		}
	}
	// One terminal row, or the in-place redraw offsets are off.
	notice := runewidth.Truncate(f.notice, s.width, "")
	f.notice = ""
	return s.term.Print(notice, "\r\n", s.status(f, digits))
}

func (s *Session) renderStatus(f *Frame, digits string) error {
	return s.term.Print("\r", terminal.ClearLine, s.status(f, digits))
}

// moveSelection changes the selected link and redraws only the affected
// lines, leaving the cursor on the status line.
func (s *Session) moveSelection(f *Frame, next document.Selection, digits string) error {
	links := f.PageLinks()
	if len(links) == 0 {
		return nil
	}
	old := f.Selected
	f.Selected = next

	start, end := f.Pager.Bounds()
	rows := end - start
	redrawLine := func(sel document.Selection) error {
		if !sel.Valid(len(links)) {
			return nil
		}
		line := links[sel].Line
		up := rows - (line - start) + 1
		return s.term.Print(terminal.CursorUp(up), "\r", terminal.ClearLine, f.DisplayLine(line), terminal.CursorDown(up), "\r")
	}
	if err := redrawLine(old); err != nil {
		return err
	}
	if err := redrawLine(next); err != nil {
		return err
	}
	return s.renderStatus(f, digits)
}

func (s *Session) chooseHeading(ctx context.Context, f *Frame) error {
	f.Selected = document.None
	if len(f.Doc.TOC) == 0 {
		return nil
	}
	choice, err := selector.Run(ctx, s.term, f.Doc.TOCTitles(), selector.Options{
		PageSize: s.pageSize,
		Prompt:   tocPrompt,
		TOC:      true,
	})
	if err != nil {
		return err
	}
	switch {
	case choice.Start:
		f.Pager.Jump(0)
	case choice.Back, choice.Cancelled:
	default:
		f.Pager.Jump(f.Doc.HeadingPage(choice.Index, f.Pager.Size))
	}
	return nil
}

// searchPrompt asks for a term and replaces the frame's search with it.
func (s *Session) searchPrompt(ctx context.Context, f *Frame) error {
	if err := s.term.Print("\r\n=== Internal Article Search ===\r\nSearch for: "); err != nil {
		return err
	}
	line, err := s.term.ReadLine(ctx)
	if err != nil {
		return err
	}
	term := strings.TrimSpace(line)
	if term == "" {
		f.Search.Clear()
		f.notice = "No search term given."
		return nil
	}
	if n := f.Search.Set(f.Doc.Lines, term); n > 0 {
		f.notice = fmt.Sprintf("Found %d matches.", n)
	} else {
		f.notice = "No matches found."
	}
	return nil
}

// follow fetches the document behind a link while a loading indicator runs.
// A nil frame with a nil error means the fetch failed.
func (s *Session) follow(ctx context.Context, title string) (*Frame, error) {
	if err := s.term.Print(terminal.ClearScreen); err != nil {
		return nil, err
	}
	var page *wiki.Page
	err := progress.While(ctx, s.term, "Loading", func(ctx context.Context) error {
		p, err := s.deps.Docs.Page(ctx, title)
		page = p
		return err
	})
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if errors.Is(err, terminal.ErrTransport) {
		return nil, err
	}
	if err != nil {
		s.logger.Info("link fetch failed", zap.String("title", title), zap.Error(err))
		return nil, s.term.Print("\r", terminal.ClearLine)
	}
	doc := document.Build(page.Title, page.Content, page.Links, s.width)
	return NewFrame(doc, s.pageSize, 0), nil
}

// discuss opens the assistant overlay about the document in f.
func (s *Session) discuss(ctx context.Context, f *Frame) error {
	if f.Chat == nil {
		f.Chat = &chat.Conversation{}
	}
	return s.overlay().Run(ctx, s.term, f.Chat, chat.OverlayOptions{
		Context:   strings.Join(f.Doc.Lines, "\n"),
		PageIndex: f.Pager.Index,
	})
}

package session

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/ziadkadry99/telewiki/internal/guestbook"
	"github.com/ziadkadry99/telewiki/internal/pager"
	"github.com/ziadkadry99/telewiki/internal/reflow"
)

// guestbookLimit caps how many entries are shown in the session.
const guestbookLimit = 200

// showGuestbook pages through the entries, newest first. Enter signs a new
// entry and reopens the list.
func (s *Session) showGuestbook(ctx context.Context) error {
	for {
		entries, err := s.deps.Guestbook.List(ctx, guestbookLimit)
		if err != nil {
			s.logger.Warn("guestbook list failed", zap.Error(err))
			return s.term.Println("[Guestbook unavailable]")
		}
		lines := reflow.WrapBlock(guestbook.Lines(entries), s.width)
		outcome, err := pager.Run(ctx, s.term, lines, pager.Options{
			PageSize:  s.pageSize,
			Guestbook: true,
		})
		if err != nil {
			return err
		}
		if outcome != pager.OutcomeCompose {
			return s.term.Print("\r\n")
		}

		if err := s.term.Print("\r\nName: "); err != nil {
			return err
		}
		name, err := s.term.ReadLine(ctx)
		if err != nil {
			return err
		}
		if strings.TrimSpace(name) == "" {
			continue
		}
		if err := s.sign(ctx, name); err != nil {
			return err
		}
	}
}

// sign asks for a comment and stores an entry under name.
func (s *Session) sign(ctx context.Context, name string) error {
	if err := s.term.Print("Comment: "); err != nil {
		return err
	}
	comment, err := s.term.ReadLine(ctx)
	if err != nil {
		return err
	}
	_, err = s.deps.Guestbook.Add(ctx, guestbook.Entry{Name: name, Comment: comment})
	switch {
	case errors.Is(err, guestbook.ErrEmptyName):
		return s.term.Println("[A name is required]")
	case err != nil:
		s.logger.Warn("guestbook add failed", zap.Error(err))
		return s.term.Println("[Could not save entry]")
	}
	s.logger.Info("guestbook signed", zap.String("name", strings.TrimSpace(name)))
	return s.term.Println("[Entry added]")
}

package session

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/ziadkadry99/telewiki/internal/document"
	"github.com/ziadkadry99/telewiki/internal/selector"
	"github.com/ziadkadry99/telewiki/internal/wiki"
)

const (
	choicePrompt = "(j=down, k=up, Enter/number=select, q=cancel): "
	tocPrompt    = "(j=down, k=up, t=back, Enter/number=select chapter, q=cancel): "
)

// lookup searches for query, opens the best match and browses it.
func (s *Session) lookup(ctx context.Context, query string) error {
	if err := s.term.Printf("Searching for '%s'...\r\n", query); err != nil {
		return err
	}
	titles, err := s.deps.Docs.Search(ctx, query)
	if err != nil {
		s.logger.Warn("search failed", zap.String("query", query), zap.Error(err))
		return s.term.Printf("Error retrieving article: %v\r\n\r\n", err)
	}
	if len(titles) == 0 {
		return s.term.Print("No results found.\r\n\r\n")
	}

	title := titles[0]
	if err := s.term.Printf("\r\nRetrieving page: %s\r\n", title); err != nil {
		return err
	}
	page, err := s.deps.Docs.Page(ctx, title)
	var amb *wiki.AmbiguousError
	if errors.As(err, &amb) {
		choice, serr := selector.Run(ctx, s.term, amb.Options, selector.Options{
			PageSize: s.pageSize,
			Prompt:   choicePrompt,
		})
		if serr != nil {
			return serr
		}
		if choice.Cancelled {
			return s.term.Print("\r\nCancelled.\r\n")
		}
		title = amb.Options[choice.Index]
		if err := s.term.Printf("\r\nRetrieving page: %s\r\n", title); err != nil {
			return err
		}
		page, err = s.deps.Docs.Page(ctx, title)
	}
	if err != nil {
		s.logger.Warn("fetch failed", zap.String("title", title), zap.Error(err))
		return s.term.Printf("Error retrieving article: %v\r\n\r\n", err)
	}

	doc := document.Build(page.Title, page.Content, page.Links, s.width)
	start := 0
	if len(doc.TOC) > 0 {
		choice, err := selector.Run(ctx, s.term, doc.TOCTitles(), selector.Options{
			PageSize: s.pageSize,
			Prompt:   tocPrompt,
			TOC:      true,
		})
		if err != nil {
			return err
		}
		if !choice.Start && !choice.Back && !choice.Cancelled {
			start = doc.HeadingPage(choice.Index, s.pageSize)
		}
	}

	if err := s.browse(ctx, NewFrame(doc, s.pageSize, start)); err != nil {
		return err
	}
	return s.term.Print("\r\n--- End of Article ---\r\n")
}

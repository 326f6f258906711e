package session

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ziadkadry99/telewiki/internal/terminal"
)

const (
	defaultLineWidth = 80
	minLineWidth     = 5
	defaultPageSize  = 23
)

// articleWidth leaves a two column margin inside the terminal line.
func articleWidth(lineWidth int) int {
	if lineWidth > 2 {
		return lineWidth - 2
	}
	return 1
}

func (s *Session) setup(ctx context.Context) error {
	if err := s.term.Print(terminal.ClearScreen, s.cfg.Welcome(), "\r\n\r\n"); err != nil {
		return err
	}
	if s.aiEnabled() {
		if err := s.term.Printf("Using AI model: %s\r\n\r\n", s.cfg.AI.Model); err != nil {
			return err
		}
	}
	if s.cfg.Session.CaptchaEnabled {
		if err := s.captcha(ctx); err != nil {
			return err
		}
	}
	return s.configureTerminal(ctx)
}

// captcha admits the visitor when the answer contains the captcha word the
// configured number of times, ignoring case.
func (s *Session) captcha(ctx context.Context) error {
	if err := s.term.Print("Captcha: ", s.cfg.Session.CaptchaQuestion, "\r\nAnswer: "); err != nil {
		return err
	}
	answer, err := s.term.ReadLine(ctx)
	if err != nil {
		return err
	}
	if !CaptchaPassed(answer, s.cfg.Session.CaptchaWord, s.cfg.Session.CaptchaCount) {
		s.logger.Info("captcha failed")
		if err := s.term.Println("Access denied. Invalid response."); err != nil {
			return err
		}
		return ErrAccessDenied
	}
	return nil
}

// CaptchaPassed reports whether answer contains word exactly count times.
func CaptchaPassed(answer, word string, count int) bool {
	word = strings.ToLower(word)
	if word == "" {
		return false
	}
	return strings.Count(strings.ToLower(answer), word) == count
}

func (s *Session) configureTerminal(ctx context.Context) error {
	if err := s.term.Print("\r\n==Configure your terminal==\r\n\r\n", "Select encoding scheme:\r\n"); err != nil {
		return err
	}
	for i, cs := range terminal.Charsets {
		if err := s.term.Printf("%d. %s\r\n", i+1, charsetLabel(cs)); err != nil {
			return err
		}
	}
	if err := s.term.Printf("Enter choice [1-%d] (default 1): ", len(terminal.Charsets)); err != nil {
		return err
	}
	choice, err := s.term.ReadLine(ctx)
	if err != nil {
		return err
	}
	cs := terminal.Charsets[0]
	if n, err := strconv.Atoi(strings.TrimSpace(choice)); err == nil && n >= 1 && n <= len(terminal.Charsets) {
		cs = terminal.Charsets[n-1]
	}
	s.term.SetCharset(cs)
	if err := s.term.Printf("\r\nEncoding set to: %s\r\n\r\n", cs); err != nil {
		return err
	}

	lineWidth, err := s.askInt(ctx, fmt.Sprintf("Enter desired line width (default %d): ", s.defaultLineWidth()), s.defaultLineWidth())
	if err != nil {
		return err
	}
	if lineWidth < minLineWidth {
		lineWidth = minLineWidth
	}
	if err := s.term.Printf("Line width set to: %d\r\n\r\n", lineWidth); err != nil {
		return err
	}

	// The prompt counts the status line; the stored size does not.
	pageSize, err := s.askInt(ctx, fmt.Sprintf("Enter desired page size (default %d): ", s.defaultPageSize()+1), s.defaultPageSize())
	if err != nil {
		return err
	}
	if pageSize < 1 {
		pageSize = 1
	}
	if err := s.term.Printf("Page size set to: %d\r\n\r\n", pageSize+1); err != nil {
		return err
	}

	s.width = articleWidth(lineWidth)
	s.pageSize = pageSize
	s.logger.Debug("terminal configured",
		zap.Stringer("charset", cs),
		zap.Int("width", s.width),
		zap.Int("page_size", s.pageSize),
	)
	return nil
}

func (s *Session) defaultLineWidth() int {
	if s.cfg.Session.LineWidth >= minLineWidth {
		return s.cfg.Session.LineWidth
	}
	return defaultLineWidth
}

func (s *Session) defaultPageSize() int {
	if s.cfg.Session.PageSize >= 1 {
		return s.cfg.Session.PageSize
	}
	return defaultPageSize
}

// askInt prompts for a number, falling back to def on empty or invalid input.
func (s *Session) askInt(ctx context.Context, prompt string, def int) (int, error) {
	if err := s.term.Print(prompt); err != nil {
		return 0, err
	}
	line, err := s.term.ReadLine(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.term.Print("\r\n"); err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return def, nil
	}
	return n, nil
}

func charsetLabel(cs terminal.Charset) string {
	switch cs {
	case terminal.ASCII:
		return "ASCII"
	case terminal.Latin1:
		return "Latin-1"
	case terminal.CP437:
		return "CP437"
	default:
		return "UTF-8"
	}
}

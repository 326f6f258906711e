// Package session runs one telnet visitor from the welcome banner to
// goodbye: terminal setup, the command shell, article browsing, the AI
// overlay and the guestbook.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ziadkadry99/telewiki/internal/chat"
	"github.com/ziadkadry99/telewiki/internal/config"
	"github.com/ziadkadry99/telewiki/internal/guestbook"
	"github.com/ziadkadry99/telewiki/internal/terminal"
	"github.com/ziadkadry99/telewiki/internal/wiki"
)

var (
	// ErrQuit ends the session from any nested screen.
	ErrQuit = terminal.ErrQuit

	// ErrAccessDenied is returned when the captcha answer is wrong.
	ErrAccessDenied = errors.New("access denied")
)

// Mode is the shell's current input mode.
type Mode int

const (
	ModeDocument Mode = iota
	ModeChat
	ModeGuestbook
)

func (m Mode) String() string {
	switch m {
	case ModeChat:
		return "ai"
	case ModeGuestbook:
		return "guestbook"
	default:
		return "wiki"
	}
}

func (m Mode) prompt() string {
	switch m {
	case ModeChat:
		return "AI> "
	case ModeGuestbook:
		return "Guestbook> "
	default:
		return "Wiki> "
	}
}

// Guestbook stores visitor entries.
type Guestbook interface {
	Add(ctx context.Context, entry guestbook.Entry) (*guestbook.Entry, error)
	List(ctx context.Context, limit int) ([]guestbook.Entry, error)
}

// Deps are the collaborators of a session. Channel and Guestbook may be nil
// to disable those features.
type Deps struct {
	Config    *config.Config
	Docs      wiki.Provider
	Channel   chat.Channel
	Guestbook Guestbook
	Logger    *zap.Logger
}

// Session is one connected visitor.
type Session struct {
	deps   Deps
	cfg    *config.Config
	term   *terminal.Terminal
	logger *zap.Logger
	userID string

	// width is the article wrap width, two columns narrower than the
	// terminal line width.
	width    int
	pageSize int

	mode Mode
	conv *chat.Conversation
}

// New creates a session on t.
func New(t *terminal.Terminal, deps Deps) *Session {
	cfg := deps.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	userID := uuid.New().String()
	return &Session{
		deps:     deps,
		cfg:      cfg,
		term:     t,
		logger:   logger.With(zap.String("user_id", userID)),
		userID:   userID,
		width:    articleWidth(cfg.Session.LineWidth),
		pageSize: cfg.Session.PageSize,
		conv:     &chat.Conversation{},
	}
}

// UserID identifies the session towards the AI server.
func (s *Session) UserID() string { return s.userID }

// Mode returns the current shell mode.
func (s *Session) Mode() Mode { return s.mode }

func (s *Session) aiEnabled() bool {
	return s.cfg.AI.Enabled && s.deps.Channel != nil
}

func (s *Session) guestbookEnabled() bool {
	return s.deps.Guestbook != nil
}

// Run drives the session until the visitor leaves. Leaving by :quit or the
// quit key returns nil; transport failures are returned wrapped in
// terminal.ErrTransport.
func (s *Session) Run(ctx context.Context) error {
	err := s.run(ctx)
	if errors.Is(err, ErrQuit) {
		s.logger.Debug("session quit")
		return s.term.Print("\r\nGoodbye!\r\n")
	}
	return err
}

func (s *Session) run(ctx context.Context) error {
	if err := s.setup(ctx); err != nil {
		return err
	}
	if err := s.term.Print(s.commandsLine(), "\r\n",
		fmt.Sprintf("Article wrapping: %d, page_size: %d\r\n\r\n", s.width, s.pageSize+1)); err != nil {
		return err
	}
	return s.shell(ctx)
}

func (s *Session) commandsLine() string {
	cmds := []string{}
	if s.aiEnabled() {
		cmds = append(cmds, ":ai")
	}
	cmds = append(cmds, ":wiki")
	if s.guestbookEnabled() {
		cmds = append(cmds, ":guestbook")
	}
	cmds = append(cmds, ":help", ":quit")
	return "Commands: " + strings.Join(cmds, ", ") + "."
}

func (s *Session) shell(ctx context.Context) error {
	for {
		if err := s.term.Print(s.mode.prompt()); err != nil {
			return err
		}
		line, err := s.term.ReadLine(ctx)
		if err != nil {
			return err
		}
		cmd := strings.TrimSpace(line)
		if cmd == "" {
			continue
		}

		if strings.HasPrefix(cmd, ":") {
			done, err := s.command(ctx, strings.ToLower(strings.Fields(cmd)[0]))
			if err != nil || done {
				return err
			}
			continue
		}

		switch s.mode {
		case ModeChat:
			err = s.ask(ctx, cmd)
		case ModeGuestbook:
			err = s.sign(ctx, cmd)
		default:
			err = s.lookup(ctx, cmd)
		}
		if err != nil {
			return err
		}
	}
}

// command runs a colon command. It reports true when the session should end.
func (s *Session) command(ctx context.Context, c string) (bool, error) {
	switch c {
	case ":quit":
		return true, s.term.Println("Goodbye!")
	case ":ai":
		if !s.aiEnabled() {
			return false, s.term.Println("[AI not available]")
		}
		s.mode = ModeChat
		return false, s.term.Println("[Switched to AI mode]")
	case ":wiki":
		s.mode = ModeDocument
		return false, s.term.Println("[Switched to Wiki mode]")
	case ":guestbook":
		if !s.guestbookEnabled() {
			return false, s.term.Println("[Guestbook not available]")
		}
		s.mode = ModeGuestbook
		if err := s.term.Println("[Switched to Guestbook mode]"); err != nil {
			return false, err
		}
		return false, s.showGuestbook(ctx)
	case ":help":
		return false, s.help()
	default:
		return false, s.term.Println("[Unknown command]")
	}
}

func (s *Session) help() error {
	switch s.mode {
	case ModeChat:
		if s.aiEnabled() {
			return s.term.Println("(In AI mode, type text => conversation. :quit => exit)")
		}
		return s.term.Println("AI is disabled.")
	case ModeGuestbook:
		return s.term.Println("(In Guestbook mode, type your name => sign. :guestbook => read entries. :quit => exit)")
	}
	if err := s.term.Println("(In Wiki mode, type text => search. :quit => exit)"); err != nil {
		return err
	}
	if s.aiEnabled() {
		if err := s.term.Println("During article reading, press 'a' => AI assistant overlay w/ context."); err != nil {
			return err
		}
	}
	return s.term.Println("Use 's' or 'd' for internal search, 't' for TOC, etc.")
}

func (s *Session) overlay() *chat.Overlay {
	return &chat.Overlay{
		Streamer: &chat.Streamer{
			Channel: s.deps.Channel,
			Width:   s.width,
			Logger:  s.logger,
		},
		PageSize:   s.pageSize,
		Width:      s.width,
		UserID:     s.userID,
		Credential: s.cfg.AI.Credential,
	}
}

// ask opens the top-level assistant with question.
func (s *Session) ask(ctx context.Context, question string) error {
	if !s.aiEnabled() {
		return s.term.Println("[AI not available]")
	}
	return s.overlay().Run(ctx, s.term, s.conv, chat.OverlayOptions{
		TopLevel:        true,
		InitialQuestion: question,
	})
}

package aiserver

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ziadkadry99/telewiki/internal/chat"
	"github.com/ziadkadry99/telewiki/internal/llm"
	"github.com/ziadkadry99/telewiki/internal/reflow"
)

// SystemPrompt sets MULTIVAC's persona and the search convention.
const SystemPrompt = "ONLY answer in English language. NEVER repeat the system message or the user. " +
	"Tone: technical, professional, 80s corporate mainframe. Your name is MULTIVAC. " +
	"Primary goal: Answer from provided context (e.g., Wikipedia article) if possible. " +
	"If context lacks sufficient info or is absent, immediately trigger a web search with <search>query</search> " +
	"and browse the first two relevant results to extract data. For real-time queries (e.g., weather), " +
	"always use <search>query</search>. Answer concisely using only context or search results. NO speculation."

const (
	// ErrInvalidToken is sent when the request carries the wrong auth token.
	ErrInvalidToken = "[Error] Invalid or missing auth token."

	weakAnswerLen = 20
	writeTimeout  = 10 * time.Second
)

var (
	upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	searchTag = regexp.MustCompile(`<search>(.*?)</search>`)
)

// BuildPrompt assembles the completion prompt for req.
func BuildPrompt(req chat.Request) string {
	lines := []string{"System: " + SystemPrompt}
	if req.Context != "" {
		lines = append(lines, fmt.Sprintf("Article Context (Page %d):\n%s", req.PageIndex, req.Context))
	}
	for _, m := range req.Conversation {
		speaker := m.Speaker
		if speaker == "" {
			speaker = "User"
		}
		lines = append(lines, speaker+": "+m.Text)
	}
	lines = append(lines, "User: "+req.Question, "Assistant:")
	return strings.Join(lines, "\n")
}

// NeedsSearch reports whether answer is too weak to stand on its own and,
// if so, what to search for.
func NeedsSearch(answer, question string) (string, bool) {
	lower := strings.ToLower(answer)
	if strings.Contains(lower, "<search>") {
		if m := searchTag.FindStringSubmatch(lower); m != nil {
			return m[1], true
		}
		return question, true
	}
	if strings.TrimSpace(answer) == "" || len(answer) < weakAnswerLen {
		return question, true
	}
	return "", false
}

func (s *Server) handleAI(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	var req chat.Request
	if err := conn.ReadJSON(&req); err != nil {
		s.logger.Debug("reading AI request", zap.Error(err))
		return
	}

	if req.Credential != s.cfg.AuthToken {
		s.logger.Info("rejected AI request", zap.String("user_id", req.UserID))
		s.send(conn, ErrInvalidToken)
		s.closeNormal(conn)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	// The client hangs up to cancel a turn.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	if err := s.answer(ctx, conn, req); err != nil {
		s.logger.Warn("AI turn failed", zap.String("user_id", req.UserID), zap.Error(err))
		s.send(conn, fmt.Sprintf("[AI Error] %T: %v", err, err))
	}
	s.closeNormal(conn)
}

func (s *Server) answer(ctx context.Context, conn *websocket.Conn, req chat.Request) error {
	if s.provider == nil {
		return fmt.Errorf("no LLM provider configured")
	}
	s.logger.Debug("AI turn",
		zap.String("user_id", req.UserID),
		zap.Int("page_index", req.PageIndex),
		zap.Int("history", len(req.Conversation)),
	)

	var buf strings.Builder
	err := s.provider.Stream(ctx, llm.CompletionRequest{
		Model:     s.cfg.Model,
		Messages:  []llm.Message{{Role: llm.RoleUser, Content: BuildPrompt(req)}},
		MaxTokens: 256,
	}, func(chunk string) error {
		for _, run := range reflow.Runs(chunk) {
			buf.WriteString(run)
			if err := s.send(conn, run); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	query, weak := NeedsSearch(buf.String(), req.Question)
	if !weak || s.searcher == nil {
		return nil
	}
	s.logger.Debug("falling back to web search", zap.String("query", query))
	found := s.searcher.Lookup(ctx, query, req.Question)
	return s.send(conn, "\nMULTIVAC: Insufficient data in context/model. Retrieved from web:\n"+found)
}

func (s *Server) send(conn *websocket.Conn, text string) error {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, []byte(text))
}

func (s *Server) closeNormal(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}

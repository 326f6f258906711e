package chat

import (
	"context"
	"strings"

	"github.com/ziadkadry99/telewiki/internal/pager"
	"github.com/ziadkadry99/telewiki/internal/terminal"
)

// Overlay is the interactive chat screen: the transcript, a question prompt
// and the streamed answer.
type Overlay struct {
	Streamer   *Streamer
	PageSize   int
	Width      int
	UserID     string
	Credential string
}

// OverlayOptions describe one invocation of the overlay.
type OverlayOptions struct {
	// TopLevel keeps prompting on an empty question instead of returning.
	TopLevel bool
	// InitialQuestion is asked without prompting.
	InitialQuestion string
	// Context is the document text shown to the assistant.
	Context   string
	PageIndex int
}

// Run loops over questions until the user leaves. It returns
// terminal.ErrQuit when the user quits the whole session.
func (o *Overlay) Run(ctx context.Context, t *terminal.Terminal, conv *Conversation, opts OverlayOptions) error {
	initial := strings.TrimSpace(opts.InitialQuestion)
	for {
		if conv.Len() > 0 {
			if _, err := pager.Run(ctx, t, conv.Lines(o.Width), pager.Options{PageSize: o.PageSize}); err != nil {
				return err
			}
		}

		header := "=== AI Assistant Overlay ==="
		if opts.TopLevel {
			header = "=== AI Assistant Shell Mode ==="
		}
		if err := t.Print(terminal.ClearScreen, header, "\r\n",
			"(Type your question, q=exit. While answering: q=stop, c=clear, x=quit)\r\n\r\n"); err != nil {
			return err
		}

		var question string
		if initial != "" {
			question, initial = initial, ""
			if err := t.Println("You> " + question); err != nil {
				return err
			}
		} else {
			if err := t.Print("You> "); err != nil {
				return err
			}
			line, err := t.ReadLine(ctx)
			if err != nil {
				return err
			}
			question = strings.TrimSpace(line)
		}

		if strings.EqualFold(question, "q") {
			return t.Println("[Exiting AI assistant overlay]")
		}
		if question == "" {
			if opts.TopLevel {
				continue
			}
			return nil
		}

		conv.Append(SpeakerUser, question)
		req := Request{
			UserID:       o.UserID,
			Conversation: conv.Messages(),
			Context:      opts.Context,
			PageIndex:    opts.PageIndex,
			Question:     question,
			Credential:   o.Credential,
		}
		res, err := o.Streamer.RunTurn(ctx, t, req)
		if err != nil {
			return err
		}
		if res.Outcome == OutcomeQuit {
			return terminal.ErrQuit
		}
		res.Record(conv)
	}
}

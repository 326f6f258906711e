// Package chat runs streaming question/answer turns against an AI channel
// inside a terminal overlay.
package chat

import (
	"fmt"
	"time"

	"github.com/ziadkadry99/telewiki/internal/reflow"
)

// Speaker identifies who produced a turn.
type Speaker int

const (
	SpeakerUser Speaker = iota
	SpeakerAgent
	SpeakerError
)

// String returns the speaker name used on the wire.
func (s Speaker) String() string {
	switch s {
	case SpeakerUser:
		return "You"
	case SpeakerAgent:
		return "AI"
	default:
		return "Error"
	}
}

// Turn is one entry of a conversation.
type Turn struct {
	Time    time.Time
	Speaker Speaker
	Text    string
}

// Conversation is an append-only list of turns.
type Conversation struct {
	turns []Turn
}

// Append adds a turn stamped with the current time.
func (c *Conversation) Append(s Speaker, text string) Turn {
	turn := Turn{Time: time.Now(), Speaker: s, Text: text}
	c.turns = append(c.turns, turn)
	return turn
}

// Len returns the number of turns.
func (c *Conversation) Len() int { return len(c.turns) }

// Turns returns a copy of the turns in chronological order.
func (c *Conversation) Turns() []Turn {
	return append([]Turn(nil), c.turns...)
}

// Messages returns the turns in wire form, oldest first.
func (c *Conversation) Messages() []Message {
	msgs := make([]Message, len(c.turns))
	for i, t := range c.turns {
		msgs[i] = Message{Speaker: t.Speaker.String(), Text: t.Text}
	}
	return msgs
}

// Lines renders the transcript most recent turn first, wrapped to width.
func (c *Conversation) Lines(width int) []string {
	raw := make([]string, 0, len(c.turns)*2)
	for i := len(c.turns) - 1; i >= 0; i-- {
		raw = append(raw, formatTurn(c.turns[i]), "")
	}
	return reflow.WrapBlock(raw, width)
}

func formatTurn(t Turn) string {
	switch t.Speaker {
	case SpeakerUser:
		return "You> " + t.Text
	case SpeakerAgent:
		return "MULTIVAC> " + t.Text
	default:
		return fmt.Sprintf("[ERROR: %s]", t.Text)
	}
}

package chat

import "context"

// Message is a conversation turn as sent to the AI server.
type Message struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// Request is the payload that opens a turn.
type Request struct {
	UserID       string    `json:"user_id"`
	Conversation []Message `json:"conversation"`
	Context      string    `json:"context"`
	PageIndex    int       `json:"page_index"`
	Question     string    `json:"new_question"`
	Credential   string    `json:"auth_token"`
}

// Channel opens streaming turns against an AI server.
type Channel interface {
	Open(ctx context.Context, req Request) (Stream, error)
}

// Stream yields text chunks of one answer. Recv returns io.EOF after the
// last chunk.
type Stream interface {
	Recv(ctx context.Context) (string, error)
	Close() error
}

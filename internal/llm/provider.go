package llm

import "context"

// ChunkFunc receives streamed text as it arrives. Returning an error stops
// the stream and the error is returned from Stream.
type ChunkFunc func(chunk string) error

// Provider defines the interface for LLM providers.
type Provider interface {
	// Stream sends a completion request and delivers the response in chunks.
	Stream(ctx context.Context, req CompletionRequest, fn ChunkFunc) error
	// Name returns the name of this provider.
	Name() string
}

package llm

import (
	"fmt"
	"os"
)

// DefaultOllamaHost is used when neither the configuration nor OLLAMA_HOST
// names an Ollama server.
const DefaultOllamaHost = "http://localhost:11434"

// NewProvider creates a new LLM provider based on the given provider type and
// model. baseURL overrides the provider endpoint when non-empty.
// Supported provider types: "ollama", "openai".
func NewProvider(providerType, model, baseURL string) (Provider, error) {
	switch providerType {
	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
		}
		return NewOpenAIProvider(apiKey, model, baseURL), nil

	case "ollama", "":
		host := baseURL
		if host == "" {
			host = os.Getenv("OLLAMA_HOST")
		}
		if host == "" {
			host = DefaultOllamaHost
		}
		return NewOllamaProvider(host, model), nil

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", providerType)
	}
}

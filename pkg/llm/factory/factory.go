package factory

import (
	"context"
	"fmt"

	"tarik-chat-be/pkg/llm"
	"tarik-chat-be/pkg/llm/gemini"
	"tarik-chat-be/pkg/llm/ollama"
)

type Config struct {
	Provider     string // "gemini" | "ollama"
	Model        string
	GeminiAPIKey string
	OllamaURL    string
}

// NewReplyGenerator builds the reply generator and image analyzer for cfg.
func NewReplyGenerator(ctx context.Context, cfg Config) (*llm.ChatReplyGenerator, error) {
	switch cfg.Provider {
	case "", "gemini":
		p, err := gemini.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		return gemini.NewReplyGenerator(p), nil
	case "ollama":
		baseURL := cfg.OllamaURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return llm.NewChatReplyGenerator(ollama.NewOllamaProvider(baseURL, cfg.Model), nil), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

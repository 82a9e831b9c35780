package llm

import (
	"context"
)

// Message is a chat message in a provider-agnostic format. Images holds
// decoded attachments for providers that accept them.
type Message struct {
	Role    string // "user", "assistant", "system"
	Content string
	Images  []Image
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature  float64
	MaxTokens    int
	Model        string // Override default model
	SystemPrompt string
	JSONResponse bool
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func WithSystemPrompt(prompt string) Option {
	return func(o *Options) {
		o.SystemPrompt = prompt
	}
}

// WithJSONResponse asks the provider to answer with a JSON document.
func WithJSONResponse() Option {
	return func(o *Options) {
		o.JSONResponse = true
	}
}

func ApplyOptions(opts ...Option) *Options {
	options := &Options{Temperature: 0.7}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	// Chat sends a chat history to the model and returns the response
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)

	// Generate sends a single prompt to the model (convenience method)
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)
}

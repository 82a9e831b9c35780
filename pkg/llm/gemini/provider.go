package gemini

import (
	"context"
	"fmt"

	"tarik-chat-be/internal/entity"
	"tarik-chat-be/pkg/llm"

	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.0-flash"

// GeminiProvider talks to the Gemini API. Assistant and system history
// entries are sent with the "model" role.
type GeminiProvider struct {
	client    *genai.Client
	ModelName string
}

var _ llm.LLMProvider = &GeminiProvider{}

func NewGeminiProvider(ctx context.Context, apiKey, modelName string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	if modelName == "" {
		modelName = DefaultModel
	}
	return &GeminiProvider{client: client, ModelName: modelName}, nil
}

// Roles is the canonical-to-Gemini role table used by the reply generator.
var Roles = map[entity.Role]string{
	entity.RoleUser:      "user",
	entity.RoleAssistant: "model",
	entity.RoleSystem:    "model",
}

// NewReplyGenerator serves both replies and image analysis from one provider.
func NewReplyGenerator(p *GeminiProvider) *llm.ChatReplyGenerator {
	return llm.NewChatReplyGenerator(p, Roles)
}

func toContents(history []llm.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, msg := range history {
		role := "user"
		switch msg.Role {
		case "model", "assistant", "ai":
			role = "model"
		}

		parts := make([]*genai.Part, 0, len(msg.Images)+1)
		if msg.Content != "" {
			parts = append(parts, &genai.Part{Text: msg.Content})
		}
		for _, img := range msg.Images {
			parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: img.MIMEType, Data: img.Data}})
		}
		if len(parts) == 0 {
			parts = append(parts, &genai.Part{Text: "(image)"})
		}
		contents = append(contents, &genai.Content{Role: role, Parts: parts})
	}
	return contents
}

func buildConfig(options *llm.Options) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(options.Temperature)),
	}
	if options.SystemPrompt != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: options.SystemPrompt}}}
	}
	if options.JSONResponse {
		cfg.ResponseMIMEType = "application/json"
	}
	if options.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(options.MaxTokens)
	}
	return cfg
}

func (g *GeminiProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	options := llm.ApplyOptions(opts...)

	model := g.ModelName
	if options.Model != "" {
		model = options.Model
	}

	result, err := g.client.Models.GenerateContent(ctx, model, toContents(history), buildConfig(options))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return result.Text(), nil
}

func (g *GeminiProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return g.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, opts...)
}

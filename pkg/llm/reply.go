package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"tarik-chat-be/internal/constant"
	"tarik-chat-be/internal/entity"
)

// HistoryItem is one prior message as the reply capability sees it. Roles
// stay canonical here; each provider maps them to its own vocabulary.
type HistoryItem struct {
	Role     entity.Role
	Content  string
	ImageRef string
}

type ReplyRequest struct {
	History   []HistoryItem
	UserText  string
	UserImage string
	Language  entity.Language
}

type Reply struct {
	Text      string
	ImageRefs []string
}

type ReplyGenerator interface {
	GenerateReply(ctx context.Context, req ReplyRequest) (Reply, error)
}

type ImageAnalyzer interface {
	AnalyzeImage(ctx context.Context, imageRef string) ([]string, error)
}

// SystemPromptFor returns the instruction block for a reply language.
func SystemPromptFor(lang entity.Language) string {
	if lang == entity.LanguageAmharic {
		return constant.AmharicReplyPrompt
	}
	return constant.EnglishReplyPrompt
}

// ChatReplyGenerator adapts any LLMProvider to ReplyGenerator and
// ImageAnalyzer. Images are decoded and attached as provider images.
type ChatReplyGenerator struct {
	provider LLMProvider
	// roles maps canonical roles to the provider's names.
	roles map[entity.Role]string
}

func NewChatReplyGenerator(provider LLMProvider, roles map[entity.Role]string) *ChatReplyGenerator {
	if roles == nil {
		roles = map[entity.Role]string{
			entity.RoleUser:      "user",
			entity.RoleAssistant: "assistant",
			entity.RoleSystem:    "system",
		}
	}
	return &ChatReplyGenerator{provider: provider, roles: roles}
}

var (
	_ ReplyGenerator = (*ChatReplyGenerator)(nil)
	_ ImageAnalyzer  = (*ChatReplyGenerator)(nil)
)

func (g *ChatReplyGenerator) role(r entity.Role) string {
	if name, ok := g.roles[r]; ok {
		return name
	}
	return string(r)
}

// BuildMessages flattens a request into provider messages: prior history
// followed by the new user turn. Amharic turns carry at most one image.
func (g *ChatReplyGenerator) BuildMessages(ctx context.Context, req ReplyRequest) []Message {
	maxImages := req.Language.MaxReplyImages()
	attached := 0

	attach := func(ref string) []Image {
		if ref == "" || (maxImages > 0 && attached >= maxImages) {
			return nil
		}
		img, err := LoadImage(ctx, ref)
		if err != nil {
			return nil
		}
		attached++
		return []Image{img}
	}

	msgs := make([]Message, 0, len(req.History)+1)
	// The newest image wins when only one may be sent.
	userImages := attach(req.UserImage)
	for _, h := range req.History {
		msgs = append(msgs, Message{
			Role:    g.role(h.Role),
			Content: h.Content,
			Images:  attach(h.ImageRef),
		})
	}
	msgs = append(msgs, Message{
		Role:    g.role(entity.RoleUser),
		Content: req.UserText,
		Images:  userImages,
	})
	return msgs
}

func (g *ChatReplyGenerator) GenerateReply(ctx context.Context, req ReplyRequest) (Reply, error) {
	msgs := g.BuildMessages(ctx, req)
	text, err := g.provider.Chat(ctx, msgs, WithSystemPrompt(SystemPromptFor(req.Language)))
	if err != nil {
		return Reply{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Reply{}, fmt.Errorf("empty reply from model")
	}
	return Reply{Text: text}, nil
}

func (g *ChatReplyGenerator) AnalyzeImage(ctx context.Context, imageRef string) ([]string, error) {
	img, err := LoadImage(ctx, imageRef)
	if err != nil {
		return nil, err
	}
	raw, err := g.provider.Chat(ctx, []Message{{
		Role:    g.role(entity.RoleUser),
		Content: constant.ImageAnalysisPrompt,
		Images:  []Image{img},
	}}, WithJSONResponse(), WithTemperature(0))
	if err != nil {
		return nil, err
	}
	return ParseLabels(raw)
}

// ParseLabels reads a JSON array of strings, tolerating code fences and an
// {"objects": [...]} wrapper.
func ParseLabels(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var labels []string
	if err := json.Unmarshal([]byte(raw), &labels); err != nil {
		var wrapped struct {
			Objects []string `json:"objects"`
		}
		if err2 := json.Unmarshal([]byte(raw), &wrapped); err2 != nil {
			return nil, fmt.Errorf("parse labels: %w", err)
		}
		labels = wrapped.Objects
	}

	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no objects detected")
	}
	return out, nil
}

package gemini

import (
	"testing"

	"tarik-chat-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToContents(t *testing.T) {
	contents := toContents([]llm.Message{
		{Role: "user", Content: "look", Images: []llm.Image{{MIMEType: "image/png", Data: []byte{1}}}},
		{Role: "assistant", Content: "a cat"},
		{Role: "model", Content: "Detected objects in your image: cat."},
		{Role: "user"},
	})

	require.Len(t, contents, 4)
	assert.Equal(t, "user", contents[0].Role)
	require.Len(t, contents[0].Parts, 2)
	assert.Equal(t, "image/png", contents[0].Parts[1].InlineData.MIMEType)
	assert.Equal(t, "model", contents[1].Role)
	assert.Equal(t, "model", contents[2].Role)
	assert.Equal(t, "(image)", contents[3].Parts[0].Text)
}

func TestBuildConfig(t *testing.T) {
	cfg := buildConfig(llm.ApplyOptions(llm.WithSystemPrompt("sys"), llm.WithJSONResponse(), llm.WithTemperature(0)))

	assert.Equal(t, "application/json", cfg.ResponseMIMEType)
	require.NotNil(t, cfg.SystemInstruction)
	assert.Equal(t, "sys", cfg.SystemInstruction.Parts[0].Text)
	require.NotNil(t, cfg.Temperature)
	assert.Equal(t, float32(0), *cfg.Temperature)
}

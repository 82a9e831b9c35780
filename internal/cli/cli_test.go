package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tarik-chat-be/internal/config"
	"tarik-chat-be/internal/service"
	"tarik-chat-be/pkg/chat/chaterr"
	"tarik-chat-be/pkg/llm"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type scriptedGenerator struct {
	reply  string
	labels []string
	last   llm.ReplyRequest
}

func (g *scriptedGenerator) GenerateReply(_ context.Context, req llm.ReplyRequest) (llm.Reply, error) {
	g.last = req
	return llm.Reply{Text: g.reply}, nil
}

func (g *scriptedGenerator) AnalyzeImage(context.Context, string) ([]string, error) {
	return g.labels, nil
}

type harness struct {
	t      *testing.T
	dbPath string
	cfg    *config.Config
	gen    *scriptedGenerator
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("TARIK_TOKEN", "")
	t.Setenv("MONGO_URI", "")
	return &harness{
		t:      t,
		dbPath: filepath.Join(t.TempDir(), "chat.db"),
		cfg: &config.Config{
			Store: config.StoreConfig{
				MaxStoredMessages: 30,
				MaxContentLength:  2000,
				LocalQuotaBytes:   1 << 20,
				TurnReplyTimeout:  time.Second,
			},
		},
		gen: &scriptedGenerator{reply: "Addis Ababa is the capital of Ethiopia."},
	}
}

func (h *harness) run(args ...string) (string, string, error) {
	h.t.Helper()
	root := NewRootCommand(h.cfg, func(context.Context, *config.Config) (llm.ReplyGenerator, llm.ImageAnalyzer, error) {
		return h.gen, h.gen, nil
	})
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--db", h.dbPath}, args...))
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, stderr, err := h.run(args...)
	require.NoError(h.t, err, stderr)
	return out
}

func token(t *testing.T, userID, secret string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, service.TokenClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestSessions_CreateListPersist(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("sessions")
	assert.Contains(t, out, "1 session(s), local")
	assert.Contains(t, out, "New Chat")

	out = h.mustRun("new", "Trip", "plans")
	assert.Contains(t, out, "Created Trip plans")

	out = h.mustRun("sessions")
	assert.Contains(t, out, "2 session(s)")
	assert.Contains(t, out, "Trip plans")
}

func TestRenameUseDelete(t *testing.T) {
	h := newHarness(t)
	h.mustRun("new", "First")

	var doc exportDocument
	require.NoError(t, json.Unmarshal([]byte(h.mustRun("export", "--active")), &doc))
	require.Len(t, doc.Sessions, 1)
	id := doc.Sessions[0].ID

	assert.Contains(t, h.mustRun("rename", shortID(id), "Renamed", "chat"), "Renamed chat")
	assert.Contains(t, h.mustRun("show", id), "Renamed chat")

	_, _, err := h.run("use", "does-not-exist")
	assert.ErrorIs(t, err, chaterr.ErrNotFound)

	h.mustRun("delete", id)
	out := h.mustRun("sessions")
	assert.NotContains(t, out, "Renamed chat")
	assert.Contains(t, out, "1 session(s)")
}

func TestSend_RequiresSignIn(t *testing.T) {
	h := newHarness(t)

	_, stderr, err := h.run("send", "hello")
	assert.ErrorIs(t, err, chaterr.ErrUnauthorized)
	assert.Contains(t, stderr, "Authentication Required")
}

func TestSend_ReplyIsStored(t *testing.T) {
	h := newHarness(t)
	tok := token(t, "user-1", "irrelevant")

	out := h.mustRun("--token", tok, "send", "What", "is", "the", "capital?")
	assert.Contains(t, out, "Addis Ababa is the capital of Ethiopia.")
	assert.Equal(t, "What is the capital?", h.gen.last.UserText)

	shown := h.mustRun("--token", tok, "show")
	assert.Contains(t, shown, "What is the capital?")
	assert.Contains(t, shown, "Addis Ababa")

	// Anonymous sessions live under a different key.
	assert.NotContains(t, h.mustRun("show"), "Addis Ababa")

	h.mustRun("--token", tok, "clear")
	assert.Contains(t, h.mustRun("--token", tok, "show"), "No messages yet.")
}

func TestSend_ImageAttachment(t *testing.T) {
	h := newHarness(t)
	h.gen.labels = []string{"cat", "sofa"}
	img := filepath.Join(t.TempDir(), "cat.png")
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")
	require.NoError(t, os.WriteFile(img, png, 0o600))

	out := h.mustRun("--token", token(t, "user-1", "x"), "send", "--image", img, "what is this?")
	assert.Contains(t, out, "Detected objects in your image: cat, sofa.")
	assert.Contains(t, out, "Addis Ababa")

	notImage := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(notImage, []byte("plain text"), 0o600))
	_, _, err := h.run("--token", token(t, "user-1", "x"), "send", "--image", notImage, "hi")
	assert.ErrorContains(t, err, "not an image")
}

func TestLanguage(t *testing.T) {
	h := newHarness(t)
	tok := token(t, "user-2", "x")

	assert.Equal(t, "English\n", h.mustRun("--token", tok, "language"))
	assert.Equal(t, "Amharic\n", h.mustRun("--token", tok, "language", "Amharic"))

	h.mustRun("--token", tok, "send", "selam")
	assert.Equal(t, "Amharic", string(h.gen.last.Language))

	_, _, err := h.run("--token", tok, "language", "Klingon")
	assert.ErrorIs(t, err, chaterr.ErrValidationFailed)
}

func TestExport_YAML(t *testing.T) {
	h := newHarness(t)
	h.mustRun("new", "Exported")

	out := h.mustRun("export", "--format", "yaml")
	var doc exportDocument
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	assert.Len(t, doc.Sessions, 2)

	_, _, err := h.run("export", "--format", "csv")
	assert.ErrorContains(t, err, "unsupported format")
}

func TestIdentify(t *testing.T) {
	u, verified, err := identify(token(t, "abc", "s3cret"), "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "abc", u.Id)
	assert.True(t, verified)

	_, _, err = identify(token(t, "abc", "other"), "s3cret")
	assert.ErrorIs(t, err, chaterr.ErrUnauthorized)

	u, verified, err = identify(token(t, "abc", "other"), "")
	require.NoError(t, err)
	assert.Equal(t, "abc", u.Id)
	assert.False(t, verified)

	u, _, err = identify("", "s3cret")
	assert.NoError(t, err)
	assert.Nil(t, u)
}

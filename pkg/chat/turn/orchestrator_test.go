package turn

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"tarik-chat-be/internal/constant"
	"tarik-chat-be/internal/entity"
	"tarik-chat-be/internal/repository/memory"
	"tarik-chat-be/pkg/chat/chaterr"
	"tarik-chat-be/pkg/chat/sanitize"
	"tarik-chat-be/pkg/chat/store"
	"tarik-chat-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuth struct{ user *entity.User }

func (a fakeAuth) CurrentUser(context.Context) (*entity.User, bool) {
	return a.user, a.user != nil
}

type fakeGenerator struct {
	mu       sync.Mutex
	reply    llm.Reply
	err      error
	block    bool
	before   func()
	requests []llm.ReplyRequest
}

func (g *fakeGenerator) GenerateReply(ctx context.Context, req llm.ReplyRequest) (llm.Reply, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()
	if g.before != nil {
		g.before()
	}
	if g.block {
		<-ctx.Done()
		return llm.Reply{}, ctx.Err()
	}
	return g.reply, g.err
}

type fakeAnalyzer struct {
	labels []string
	err    error
}

func (a fakeAnalyzer) AnalyzeImage(context.Context, string) ([]string, error) {
	return a.labels, a.err
}

type recordingNotifier struct {
	mu    sync.Mutex
	items []entity.Notification
}

func (n *recordingNotifier) Notify(_ context.Context, item entity.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = append(n.items, item)
}

type harness struct {
	store    *store.Store
	gen      *fakeGenerator
	notifier *recordingNotifier
	orch     *Orchestrator
	events   []State
}

func newHarness(t *testing.T, user *entity.User, analyzer llm.ImageAnalyzer) *harness {
	t.Helper()
	h := &harness{
		gen:      &fakeGenerator{},
		notifier: &recordingNotifier{},
	}
	h.store = store.New(store.Options{
		KeyValues: memory.NewKeyValueRepository(0),
		Limits:    sanitize.DefaultLimits(),
	})
	require.NoError(t, h.store.Init(context.Background(), ""))
	t.Cleanup(h.store.Dispose)

	h.orch = New(Options{
		Store:        h.store,
		Auth:         fakeAuth{user: user},
		Generator:    h.gen,
		Analyzer:     analyzer,
		Notifier:     h.notifier,
		ReplyTimeout: time.Second,
		Observer:     func(e Event) { h.events = append(h.events, e.State) },
	})
	return h
}

func (h *harness) activeMessages(t *testing.T) []entity.ChatMessage {
	t.Helper()
	require.NoError(t, h.store.Flush(context.Background()))
	s, ok := h.store.ActiveSession()
	require.True(t, ok)
	return s.Messages
}

var alice = &entity.User{Id: "u1", DisplayName: "Alice", Email: "alice@example.com"}

func TestSubmit_FirstTurnAutoTitles(t *testing.T) {
	h := newHarness(t, alice, nil)
	h.gen.reply = llm.Reply{Text: "The capital of France is Paris, a beautiful city."}

	res, err := h.orch.Submit(context.Background(), Turn{Text: "What is the capital of France?"})
	require.NoError(t, err)

	assert.Equal(t, StateResolved, res.State)
	assert.Equal(t, "The capital of France is...", res.Title)
	assert.Equal(t, []State{StateSubmitting, StateAwaitingReply, StateResolved}, h.events)

	msgs := h.activeMessages(t)
	require.Len(t, msgs, 2)
	assert.Equal(t, entity.RoleUser, msgs[0].Role)
	assert.Equal(t, "What is the capital of France?", msgs[0].Content)
	assert.Equal(t, entity.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "The capital of France is Paris, a beautiful city.", msgs[1].Content)
	assert.False(t, msgs[1].IsLoading)

	s, _ := h.store.ActiveSession()
	assert.Equal(t, "The capital of France is...", s.Name)

	require.Len(t, h.gen.requests, 1)
	assert.Empty(t, h.gen.requests[0].History)
	assert.Equal(t, entity.LanguageEnglish, h.gen.requests[0].Language)
}

func TestSubmit_LaterTurnKeepsName(t *testing.T) {
	h := newHarness(t, alice, nil)
	h.gen.reply = llm.Reply{Text: "Paris is the capital."}
	_, err := h.orch.Submit(context.Background(), Turn{Text: "capital?"})
	require.NoError(t, err)

	sess, _ := h.store.ActiveSession()
	_, err = h.store.RenameSession(context.Background(), sess.Id, constant.DefaultSessionName)
	require.NoError(t, err)

	h.gen.reply = llm.Reply{Text: "It has about two million residents."}
	res, err := h.orch.Submit(context.Background(), Turn{Text: "population?", Language: entity.LanguageAmharic})
	require.NoError(t, err)
	assert.Empty(t, res.Title)

	sess, _ = h.store.ActiveSession()
	assert.Equal(t, constant.DefaultSessionName, sess.Name)

	req := h.gen.requests[1]
	require.Len(t, req.History, 2)
	assert.Equal(t, entity.RoleUser, req.History[0].Role)
	assert.Equal(t, entity.RoleAssistant, req.History[1].Role)
	assert.Equal(t, "population?", req.UserText)
	assert.Equal(t, entity.LanguageAmharic, req.Language)
}

func TestSubmit_ImageTurnProducesAnalysisAndReply(t *testing.T) {
	h := newHarness(t, alice, fakeAnalyzer{labels: []string{"cat", "sofa"}})
	h.gen.reply = llm.Reply{Text: "A cat is relaxing on a sofa."}

	res, err := h.orch.Submit(context.Background(), Turn{Text: "look at this", ImageURL: "data:image/png;base64,AAAA"})
	require.NoError(t, err)
	require.NotNil(t, res.AnalysisMessage)

	msgs := h.activeMessages(t)
	require.Len(t, msgs, 3)
	assert.Equal(t, entity.RoleUser, msgs[0].Role)
	assert.Equal(t, "data:image/png;base64,AAAA", msgs[0].ImageUrl)
	assert.Equal(t, entity.RoleSystem, msgs[1].Role)
	assert.Equal(t, "Detected objects in your image: cat, sofa.", msgs[1].Content)
	assert.Equal(t, entity.RoleAssistant, msgs[2].Role)
	assert.Equal(t, "A cat is relaxing on a sofa.", msgs[2].Content)

	loading := 0
	for _, m := range msgs {
		if m.IsLoading || m.Content == constant.ThinkingMarker {
			loading++
		}
	}
	assert.Zero(t, loading)
}

func TestSubmit_AnalysisFailureUsesFallback(t *testing.T) {
	h := newHarness(t, alice, fakeAnalyzer{err: errors.New("vision unavailable")})
	h.gen.reply = llm.Reply{Text: "I can still answer."}

	res, err := h.orch.Submit(context.Background(), Turn{ImageURL: "https://example.com/cat.png"})
	require.NoError(t, err)
	assert.Equal(t, StateResolved, res.State)

	msgs := h.activeMessages(t)
	require.Len(t, msgs, 3)
	assert.Equal(t, constant.AnalysisFailedMessage, msgs[1].Content)
	assert.Equal(t, "I can still answer.", msgs[2].Content)
}

func TestSubmit_GenerationFailureResolvesToApology(t *testing.T) {
	h := newHarness(t, alice, nil)
	h.gen.err = errors.New("upstream 500")

	res, err := h.orch.Submit(context.Background(), Turn{Text: "hello"})
	require.NoError(t, err)

	assert.Equal(t, StateFailed, res.State)
	assert.ErrorIs(t, res.Err, chaterr.ErrGenerationFailed)

	msgs := h.activeMessages(t)
	require.Len(t, msgs, 2)
	assert.Equal(t, constant.ReplyFailedMessage, msgs[1].Content)
	assert.False(t, msgs[1].IsLoading)

	require.Len(t, h.notifier.items, 1)
	assert.Equal(t, entity.NotificationError, h.notifier.items[0].Level)
	assert.Equal(t, "u1", h.notifier.items[0].UserId)

	s, _ := h.store.ActiveSession()
	assert.Equal(t, constant.DefaultSessionName, s.Name)
}

func TestSubmit_ReplyTimeout(t *testing.T) {
	h := newHarness(t, alice, nil)
	h.gen.block = true
	h.orch.opts.ReplyTimeout = 20 * time.Millisecond

	res, err := h.orch.Submit(context.Background(), Turn{Text: "are you there?"})
	require.NoError(t, err)

	assert.Equal(t, StateFailed, res.State)
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
	msgs := h.activeMessages(t)
	assert.False(t, msgs[1].IsLoading)
}

func TestSubmit_Preconditions(t *testing.T) {
	t.Run("unauthenticated", func(t *testing.T) {
		h := newHarness(t, nil, nil)
		_, err := h.orch.Submit(context.Background(), Turn{Text: "hi"})
		assert.ErrorIs(t, err, chaterr.ErrUnauthorized)
		assert.Empty(t, h.activeMessages(t))
		require.Len(t, h.notifier.items, 1)
		assert.Equal(t, constant.AuthRequiredTitle, h.notifier.items[0].Title)
	})

	t.Run("empty turn", func(t *testing.T) {
		h := newHarness(t, alice, nil)
		_, err := h.orch.Submit(context.Background(), Turn{Text: "   "})
		assert.ErrorIs(t, err, chaterr.ErrValidationFailed)
		assert.Empty(t, h.activeMessages(t))
		assert.Empty(t, h.gen.requests)
	})

	t.Run("unknown session", func(t *testing.T) {
		h := newHarness(t, alice, nil)
		_, err := h.orch.Submit(context.Background(), Turn{SessionID: "nope", Text: "hi"})
		assert.ErrorIs(t, err, chaterr.ErrNotFound)
	})
}

func TestSubmit_ResolvesIntoCapturedSession(t *testing.T) {
	h := newHarness(t, alice, nil)
	original, _ := h.store.ActiveSession()
	h.gen.reply = llm.Reply{Text: "Answer for the first session."}
	h.gen.before = func() {
		_, _, err := h.store.CreateSession(context.Background(), "elsewhere")
		require.NoError(t, err)
	}

	_, err := h.orch.Submit(context.Background(), Turn{Text: "question"})
	require.NoError(t, err)
	require.NoError(t, h.store.Flush(context.Background()))

	active, _ := h.store.ActiveSession()
	assert.Equal(t, "elsewhere", active.Name)
	assert.Empty(t, active.Messages)

	got, ok := h.store.Session(original.Id)
	require.True(t, ok)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "Answer for the first session.", got.Messages[1].Content)
}

func TestSubmit_AmharicReplyKeepsOneImage(t *testing.T) {
	h := newHarness(t, alice, nil)
	h.gen.reply = llm.Reply{Text: "ሰላም ነው", ImageRefs: []string{"https://a.example/1.png", "https://a.example/2.png"}}

	res, err := h.orch.Submit(context.Background(), Turn{Text: "ሰላም", Language: entity.LanguageAmharic})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example/1.png"}, res.ReplyMessage.ImageUrls)
}

// rendezvousGenerator holds every call until want calls are in flight, then
// answers each with its own prompt.
type rendezvousGenerator struct {
	want    int
	mu      sync.Mutex
	arrived int
	all     chan struct{}
}

func (g *rendezvousGenerator) GenerateReply(ctx context.Context, req llm.ReplyRequest) (llm.Reply, error) {
	g.mu.Lock()
	g.arrived++
	if g.arrived == g.want {
		close(g.all)
	}
	g.mu.Unlock()

	select {
	case <-g.all:
	case <-ctx.Done():
		return llm.Reply{}, ctx.Err()
	}
	return llm.Reply{Text: "answer to " + req.UserText}, nil
}

func TestSubmit_OverlappingTurnsResolveIndependently(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, alice, nil)
	gen := &rendezvousGenerator{want: 2, all: make(chan struct{})}
	orch := New(Options{
		Store:        h.store,
		Auth:         fakeAuth{user: alice},
		Generator:    gen,
		ReplyTimeout: time.Second,
	})
	active, ok := h.store.ActiveSession()
	require.True(t, ok)

	texts := []string{"When was Aksum founded?", "Who was Menelik II?"}
	results := make([]*Result, len(texts))
	var wg sync.WaitGroup
	for i, text := range texts {
		wg.Add(1)
		go func(i int, text string) {
			defer wg.Done()
			res, err := orch.Submit(ctx, Turn{SessionID: active.Id, Text: text})
			if assert.NoError(t, err) {
				results[i] = res
			}
		}(i, text)
	}
	wg.Wait()

	for i, res := range results {
		require.NotNil(t, res)
		assert.Equal(t, StateResolved, res.State)
		assert.Equal(t, "answer to "+texts[i], res.ReplyMessage.Content)
	}

	msgs := h.activeMessages(t)
	require.Len(t, msgs, 4)
	byID := make(map[string]entity.ChatMessage, len(msgs))
	for _, m := range msgs {
		assert.False(t, m.IsLoading)
		byID[m.Id] = m
	}
	for i, res := range results {
		assert.Equal(t, "answer to "+texts[i], byID[res.ReplyMessage.Id].Content)
		assert.Equal(t, texts[i], byID[res.UserMessage.Id].Content)
	}
}

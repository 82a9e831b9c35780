package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"tarik-chat-be/internal/constant"
	"tarik-chat-be/internal/entity"
	"tarik-chat-be/internal/repository/memory"
	"tarik-chat-be/pkg/chat/chaterr"
	"tarik-chat-be/pkg/chat/sanitize"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu    sync.Mutex
	items []entity.Notification
}

func (n *recordingNotifier) Notify(_ context.Context, item entity.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = append(n.items, item)
}

func (n *recordingNotifier) all() []entity.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]entity.Notification(nil), n.items...)
}

func fixedClock(start entity.Instant) func() entity.Instant {
	var mu sync.Mutex
	now := start
	return func() entity.Instant {
		mu.Lock()
		defer mu.Unlock()
		now++
		return now
	}
}

func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

func localOptions(kv *memory.KeyValueRepository, n *recordingNotifier) Options {
	opts := Options{
		KeyValues: kv,
		Limits:    sanitize.DefaultLimits(),
		Clock:     fixedClock(1000),
		NewID:     sequentialIDs("s"),
	}
	if n != nil {
		opts.Notifier = n
	}
	return opts
}

func newKV(quota int) *memory.KeyValueRepository {
	return memory.NewKeyValueRepository(quota).(*memory.KeyValueRepository)
}

func seedSessions(t *testing.T, kv *memory.KeyValueRepository, activeID string, sessions ...entity.ChatSession) {
	t.Helper()
	data, err := json.Marshal(sessions)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, constant.LocalSessionsKey, string(data)))
	require.NoError(t, kv.Set(ctx, constant.LocalActiveSessionKey, activeID))
}

func assertInvariants(t *testing.T, s *Store) {
	t.Helper()
	list := s.ListSessions()
	require.NotEmpty(t, list, "session list must never be empty")
	for i := 1; i < len(list); i++ {
		assert.GreaterOrEqual(t, list[i-1].UpdatedAt, list[i].UpdatedAt, "sessions must be sorted by updatedAt desc")
	}
	active, ok := s.ActiveSession()
	require.True(t, ok)
	found := false
	for _, sess := range list {
		if sess.Id == active.Id {
			found = true
		}
	}
	assert.True(t, found, "active session must be a member of the list")
}

func TestInit_EmptyLocalSynthesizesDefault(t *testing.T) {
	ctx := context.Background()
	kv := newKV(0)
	s := New(localOptions(kv, &recordingNotifier{}))

	require.NoError(t, s.Init(ctx, ""))
	defer s.Dispose()
	require.NoError(t, s.Flush(ctx))

	list := s.ListSessions()
	require.Len(t, list, 1)
	assert.Equal(t, constant.DefaultSessionName, list[0].Name)
	assert.Empty(t, list[0].Messages)
	assert.Equal(t, list[0].CreatedAt, list[0].UpdatedAt)

	raw, ok, _ := kv.Get(ctx, constant.LocalSessionsKey)
	require.True(t, ok)
	assert.Contains(t, raw, list[0].Id)
	active, _, _ := kv.Get(ctx, constant.LocalActiveSessionKey)
	assert.Equal(t, list[0].Id, active)
}

func TestInit_RepairsUnknownActivePointer(t *testing.T) {
	ctx := context.Background()
	kv := newKV(0)
	seedSessions(t, kv, "missing",
		entity.ChatSession{Id: "B", Name: "b", UpdatedAt: 2},
		entity.ChatSession{Id: "A", Name: "a", UpdatedAt: 3},
	)
	s := New(localOptions(kv, nil))

	require.NoError(t, s.Init(ctx, ""))
	defer s.Dispose()

	active, ok := s.ActiveSession()
	require.True(t, ok)
	assert.Equal(t, "A", active.Id)
	assert.Equal(t, "A", s.ListSessions()[0].Id)
}

func TestMutationsBeforeInit(t *testing.T) {
	ctx := context.Background()
	s := New(localOptions(newKV(0), nil))

	_, _, err := s.CreateSession(ctx, "x")
	assert.ErrorIs(t, err, chaterr.ErrStoreUnavailable)
	_, err = s.AddMessage(ctx, "s1", entity.ChatMessage{})
	assert.ErrorIs(t, err, chaterr.ErrStoreUnavailable)
	_, err = s.DeleteSession(ctx, "s1")
	assert.ErrorIs(t, err, chaterr.ErrStoreUnavailable)
	assert.Empty(t, s.ListSessions())
	_, ok := s.ActiveSession()
	assert.False(t, ok)
}

func TestDeleteActivePromotesNext(t *testing.T) {
	ctx := context.Background()
	kv := newKV(0)
	seedSessions(t, kv, "A",
		entity.ChatSession{Id: "A", Name: "a", UpdatedAt: 3},
		entity.ChatSession{Id: "B", Name: "b", UpdatedAt: 2},
		entity.ChatSession{Id: "C", Name: "c", UpdatedAt: 1},
	)
	s := New(localOptions(kv, nil))
	require.NoError(t, s.Init(ctx, ""))
	defer s.Dispose()

	p, err := s.DeleteSession(ctx, "A")
	require.NoError(t, err)
	require.NoError(t, p.Wait(ctx))

	active, _ := s.ActiveSession()
	assert.Equal(t, "B", active.Id)
	list := s.ListSessions()
	require.Len(t, list, 2)
	assert.Equal(t, "B", list[0].Id)
	assert.Equal(t, "C", list[1].Id)

	_, err = s.DeleteSession(ctx, "A")
	assert.ErrorIs(t, err, chaterr.ErrNotFound)
}

func TestDeleteLastSessionSynthesizesDefault(t *testing.T) {
	ctx := context.Background()
	s := New(localOptions(newKV(0), nil))
	require.NoError(t, s.Init(ctx, ""))
	defer s.Dispose()

	only := s.ListSessions()[0]
	_, err := s.RenameSession(ctx, only.Id, "Trip plans")
	require.NoError(t, err)

	p, err := s.DeleteSession(ctx, only.Id)
	require.NoError(t, err)
	require.NoError(t, p.Wait(ctx))

	list := s.ListSessions()
	require.Len(t, list, 1)
	assert.NotEqual(t, only.Id, list[0].Id)
	assert.Equal(t, constant.DefaultSessionName, list[0].Name)
	active, _ := s.ActiveSession()
	assert.Equal(t, list[0].Id, active.Id)
}

func TestCreateDeleteSequenceKeepsInvariants(t *testing.T) {
	ctx := context.Background()
	s := New(localOptions(newKV(0), nil))
	require.NoError(t, s.Init(ctx, ""))
	defer s.Dispose()

	for i := 0; i < 20; i++ {
		if i%3 == 2 {
			list := s.ListSessions()
			_, err := s.DeleteSession(ctx, list[len(list)/2].Id)
			require.NoError(t, err)
		} else if i%5 == 4 {
			active, _ := s.ActiveSession()
			_, err := s.DeleteSession(ctx, active.Id)
			require.NoError(t, err)
		} else {
			_, _, err := s.CreateSession(ctx, "")
			require.NoError(t, err)
		}
		assertInvariants(t, s)
	}
	for _, sess := range s.ListSessions() {
		_, err := s.DeleteSession(ctx, sess.Id)
		require.NoError(t, err)
		assertInvariants(t, s)
	}
	require.NoError(t, s.Flush(ctx))
}

func TestConcurrentDeleteOfLastTwoSessionsLeavesDefault(t *testing.T) {
	ctx := context.Background()
	for i := 0; i < 200; i++ {
		kv := newKV(0)
		seedSessions(t, kv, "A",
			entity.ChatSession{Id: "A", Name: "a", UpdatedAt: 2},
			entity.ChatSession{Id: "B", Name: "b", UpdatedAt: 1},
		)
		s := New(localOptions(kv, nil))
		require.NoError(t, s.Init(ctx, ""))

		var wg sync.WaitGroup
		for _, id := range []string{"A", "B"} {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				_, err := s.DeleteSession(ctx, id)
				assert.NoError(t, err)
			}(id)
		}
		wg.Wait()

		list := s.ListSessions()
		require.Len(t, list, 1, "run %d", i)
		assert.Equal(t, constant.DefaultSessionName, list[0].Name)
		assertInvariants(t, s)
		s.Dispose()
	}
}

func TestConcurrentCreateDeleteKeepsInvariants(t *testing.T) {
	ctx := context.Background()
	kv := newKV(0)
	s := New(localOptions(kv, nil))
	require.NoError(t, s.Init(ctx, ""))

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				if (w+i)%2 == 0 {
					_, _, err := s.CreateSession(ctx, "")
					assert.NoError(t, err)
					continue
				}
				active, ok := s.ActiveSession()
				if !assert.True(t, ok) {
					return
				}
				// Another worker may have removed it first.
				if _, err := s.DeleteSession(ctx, active.Id); err != nil {
					assert.ErrorIs(t, err, chaterr.ErrNotFound)
				}
			}
		}(w)
	}
	wg.Wait()

	assertInvariants(t, s)
	require.NoError(t, s.Flush(ctx))
	want := len(s.ListSessions())
	s.Dispose()

	reloaded := New(localOptions(kv, nil))
	require.NoError(t, reloaded.Init(ctx, ""))
	defer reloaded.Dispose()
	assertInvariants(t, reloaded)
	assert.Len(t, reloaded.ListSessions(), want)
}

func TestCreateSessionBecomesActiveAtHead(t *testing.T) {
	ctx := context.Background()
	s := New(localOptions(newKV(0), nil))
	require.NoError(t, s.Init(ctx, ""))
	defer s.Dispose()

	created, p, err := s.CreateSession(ctx, "  Recipes ")
	require.NoError(t, err)
	require.NoError(t, p.Wait(ctx))

	assert.Equal(t, "Recipes", created.Name)
	assert.Equal(t, created.Id, s.ListSessions()[0].Id)
	active, _ := s.ActiveSession()
	assert.Equal(t, created.Id, active.Id)

	unnamed, _, err := s.CreateSession(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, constant.DefaultSessionName, unnamed.Name)
}

func TestSwitchDoesNotTouchUpdatedAt(t *testing.T) {
	ctx := context.Background()
	s := New(localOptions(newKV(0), nil))
	require.NoError(t, s.Init(ctx, ""))
	defer s.Dispose()

	first := s.ListSessions()[0]
	second, _, err := s.CreateSession(ctx, "second")
	require.NoError(t, err)

	_, err = s.SwitchSession(ctx, first.Id)
	require.NoError(t, err)

	active, _ := s.ActiveSession()
	assert.Equal(t, first.Id, active.Id)
	assert.Equal(t, first.UpdatedAt, active.UpdatedAt)
	assert.Equal(t, second.Id, s.ListSessions()[0].Id)

	_, err = s.SwitchSession(ctx, "nope")
	assert.ErrorIs(t, err, chaterr.ErrNotFound)
	active, _ = s.ActiveSession()
	assert.Equal(t, first.Id, active.Id)
}

func TestRenameValidation(t *testing.T) {
	ctx := context.Background()
	s := New(localOptions(newKV(0), nil))
	require.NoError(t, s.Init(ctx, ""))
	defer s.Dispose()

	sess := s.ListSessions()[0]

	_, err := s.RenameSession(ctx, sess.Id, "   ")
	assert.ErrorIs(t, err, chaterr.ErrValidationFailed)
	got, _ := s.Session(sess.Id)
	assert.Equal(t, sess, got)

	_, err = s.RenameSession(ctx, "missing", "name")
	assert.ErrorIs(t, err, chaterr.ErrNotFound)

	_, err = s.RenameSession(ctx, sess.Id, " Homework ")
	require.NoError(t, err)
	got, _ = s.Session(sess.Id)
	assert.Equal(t, "Homework", got.Name)
	assert.Greater(t, got.UpdatedAt, sess.UpdatedAt)
}

func TestMessageMutationsOnMissingSessionAreNoOps(t *testing.T) {
	ctx := context.Background()
	s := New(localOptions(newKV(0), nil))
	require.NoError(t, s.Init(ctx, ""))
	defer s.Dispose()
	before := s.ListSessions()

	p, err := s.AddMessage(ctx, "missing", entity.ChatMessage{Content: "x"})
	require.NoError(t, err)
	assert.NoError(t, p.Wait(ctx))

	p, err = s.UpdateMessage(ctx, before[0].Id, "missing", entity.MessagePatch{})
	require.NoError(t, err)
	assert.NoError(t, p.Wait(ctx))

	p, err = s.ClearMessages(ctx, "missing")
	require.NoError(t, err)
	assert.NoError(t, p.Wait(ctx))

	assert.Equal(t, before, s.ListSessions())
}

func TestMessageMutationsResortAndPersist(t *testing.T) {
	ctx := context.Background()
	kv := newKV(0)
	s := New(localOptions(kv, nil))
	require.NoError(t, s.Init(ctx, ""))
	defer s.Dispose()

	older := s.ListSessions()[0]
	_, _, err := s.CreateSession(ctx, "newer")
	require.NoError(t, err)

	_, err = s.AddMessage(ctx, older.Id, entity.ChatMessage{Id: "m1", Role: entity.RoleUser, Content: "hello"})
	require.NoError(t, err)
	assert.Equal(t, older.Id, s.ListSessions()[0].Id)

	content := "edited"
	_, err = s.UpdateMessage(ctx, older.Id, "m1", entity.MessagePatch{Content: &content})
	require.NoError(t, err)

	require.NoError(t, s.Flush(ctx))
	raw, _, _ := kv.Get(ctx, constant.LocalSessionsKey)
	var stored []entity.ChatSession
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	require.Len(t, stored, 2)
	assert.Equal(t, older.Id, stored[0].Id)
	require.Len(t, stored[0].Messages, 1)
	assert.Equal(t, "edited", stored[0].Messages[0].Content)

	p, err := s.ClearMessages(ctx, older.Id)
	require.NoError(t, err)
	require.NoError(t, p.Wait(ctx))
	got, _ := s.Session(older.Id)
	assert.Empty(t, got.Messages)
}

func TestPersistFailureKeepsMemoryAndNotifies(t *testing.T) {
	ctx := context.Background()
	kv := newKV(600)
	n := &recordingNotifier{}
	s := New(localOptions(kv, n))
	require.NoError(t, s.Init(ctx, ""))
	defer s.Dispose()
	require.NoError(t, s.Flush(ctx))

	sess := s.ListSessions()[0]
	p, err := s.AddMessage(ctx, sess.Id, entity.ChatMessage{Id: "big", Role: entity.RoleUser, Content: strings.Repeat("a", 1500)})
	require.NoError(t, err)

	werr := p.Wait(ctx)
	require.Error(t, werr)
	assert.ErrorIs(t, werr, chaterr.ErrStorageQuotaExceeded)

	got, _ := s.Session(sess.Id)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "big", got.Messages[0].Id)

	items := n.all()
	require.Len(t, items, 1)
	assert.Equal(t, constant.StorageFullTitle, items[0].Title)
}

func TestRemoteModeKeepsFullHistoryInMemory(t *testing.T) {
	ctx := context.Background()
	docs := memory.NewSessionDocumentRepository()
	opts := localOptions(newKV(0), nil)
	opts.Documents = docs
	s := New(opts)

	require.NoError(t, s.Init(ctx, "owner-1"))
	defer s.Dispose()
	assert.True(t, s.Remote())

	sess := s.ListSessions()[0]
	assert.Equal(t, "owner-1", sess.UserId)

	for i := 0; i < 35; i++ {
		_, err := s.AddMessage(ctx, sess.Id, entity.ChatMessage{Id: fmt.Sprintf("m%d", i), Role: entity.RoleUser, Content: "hi", ImageUrl: "data:image/png;base64,AAAA"})
		require.NoError(t, err)
	}
	require.NoError(t, s.Flush(ctx))

	live, _ := s.Session(sess.Id)
	assert.Len(t, live.Messages, 35)
	assert.NotEmpty(t, live.Messages[0].ImageUrl)

	stored, err := docs.List(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Len(t, stored[0].Messages, 30)
	assert.Equal(t, "m5", stored[0].Messages[0].Id)
	assert.Empty(t, stored[0].Messages[0].ImageUrl)

	// A fresh store for the same owner reads the document back.
	again := New(opts)
	require.NoError(t, again.Init(ctx, "owner-1"))
	defer again.Dispose()
	assert.Len(t, again.ListSessions()[0].Messages, 30)
}

func TestDisposeDrainsQueuedWrites(t *testing.T) {
	ctx := context.Background()
	kv := newKV(0)
	s := New(localOptions(kv, nil))
	require.NoError(t, s.Init(ctx, ""))

	sess := s.ListSessions()[0]
	for i := 0; i < 10; i++ {
		_, err := s.AddMessage(ctx, sess.Id, entity.ChatMessage{Id: fmt.Sprintf("m%d", i), Role: entity.RoleUser, Content: "x"})
		require.NoError(t, err)
	}
	s.Dispose()
	assert.False(t, s.Ready())

	raw, _, _ := kv.Get(ctx, constant.LocalSessionsKey)
	var stored []entity.ChatSession
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	assert.Len(t, stored[0].Messages, 10)
}

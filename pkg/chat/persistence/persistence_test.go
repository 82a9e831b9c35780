package persistence

import (
	"context"
	"strings"
	"testing"

	"tarik-chat-be/internal/constant"
	"tarik-chat-be/internal/entity"
	"tarik-chat-be/internal/pkg/logger"
	"tarik-chat-be/internal/repository/memory"
	"tarik-chat-be/pkg/chat/chaterr"
	"tarik-chat-be/pkg/chat/sanitize"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionWithImage(id string) entity.ChatSession {
	return entity.ChatSession{
		Id:   id,
		Name: constant.DefaultSessionName,
		Messages: []entity.ChatMessage{
			{Id: "m1", Role: entity.RoleUser, Content: "hi", ImageUrl: "data:image/png;base64,AAAA", Timestamp: 1},
			{Id: "m2", Role: entity.RoleAssistant, Content: strings.Repeat("x", 2100), Timestamp: 2},
		},
		CreatedAt: 1,
		UpdatedAt: 2,
	}
}

func TestLocalAdapter_SaveLoad(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewKeyValueRepository(0)
	a := NewLocalAdapter(kv, "", sanitize.DefaultLimits(), logger.NewNopLogger())

	live := []entity.ChatSession{sessionWithImage("s1")}
	require.NoError(t, a.Save(ctx, live, "s1"))

	sessions, active := a.Load(ctx)
	require.Len(t, sessions, 1)
	assert.Equal(t, "s1", active)
	assert.Empty(t, sessions[0].Messages[0].ImageUrl)
	assert.True(t, strings.HasSuffix(sessions[0].Messages[1].Content, constant.TruncationMarker))

	// The live copy keeps what the user saw.
	assert.NotEmpty(t, live[0].Messages[0].ImageUrl)

	_, ok, _ := kv.Get(ctx, constant.LocalSessionsKey)
	assert.True(t, ok)
}

func TestLocalAdapter_OwnerNamespace(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewKeyValueRepository(0)
	a := NewLocalAdapter(kv, "u1", sanitize.DefaultLimits(), logger.NewNopLogger())

	require.NoError(t, a.Save(ctx, []entity.ChatSession{{Id: "s1"}}, "s1"))

	_, ok, _ := kv.Get(ctx, constant.LocalSessionsKey+":u1")
	assert.True(t, ok)
	_, ok, _ = kv.Get(ctx, constant.LocalActiveSessionKey+":u1")
	assert.True(t, ok)
	_, ok, _ = kv.Get(ctx, constant.LocalSessionsKey)
	assert.False(t, ok)
}

func TestLocalAdapter_CorruptOrMissing(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewKeyValueRepository(0)
	a := NewLocalAdapter(kv, "", sanitize.DefaultLimits(), logger.NewNopLogger())

	sessions, active := a.Load(ctx)
	assert.Empty(t, sessions)
	assert.Empty(t, active)

	require.NoError(t, kv.Set(ctx, constant.LocalSessionsKey, "{not json"))
	sessions, active = a.Load(ctx)
	assert.Empty(t, sessions)
	assert.Empty(t, active)
}

func TestLocalAdapter_QuotaExceeded(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewKeyValueRepository(64)
	a := NewLocalAdapter(kv, "", sanitize.DefaultLimits(), logger.NewNopLogger())

	err := a.Save(ctx, []entity.ChatSession{sessionWithImage("s1")}, "s1")

	require.Error(t, err)
	assert.ErrorIs(t, err, chaterr.ErrStorageQuotaExceeded)
	var pe *chaterr.PersistError
	assert.ErrorAs(t, err, &pe)
}

func TestRemoteAdapter_RequiresOwner(t *testing.T) {
	ctx := context.Background()
	a := NewRemoteAdapter(memory.NewSessionDocumentRepository(), sanitize.DefaultLimits())

	_, err := a.List(ctx, "")
	assert.ErrorIs(t, err, chaterr.ErrUnauthorized)
	_, err = a.Create(ctx, "", entity.ChatSession{})
	assert.ErrorIs(t, err, chaterr.ErrUnauthorized)
	assert.ErrorIs(t, a.Update(ctx, "", "s1", entity.SessionFields{}), chaterr.ErrUnauthorized)
	assert.ErrorIs(t, a.Remove(ctx, "", "s1"), chaterr.ErrUnauthorized)
}

func TestRemoteBackend_MapsChanges(t *testing.T) {
	ctx := context.Background()
	docs := memory.NewSessionDocumentRepository()
	kv := memory.NewKeyValueRepository(0)
	b := NewRemoteBackend(NewRemoteAdapter(docs, sanitize.DefaultLimits()), "u1", kv, logger.NewNopLogger())

	created, err := b.Create(ctx, entity.ChatSession{Id: "local-id", Name: constant.DefaultSessionName, CreatedAt: 10, UpdatedAt: 10})
	require.NoError(t, err)
	assert.NotEqual(t, "local-id", created.Id)
	assert.Equal(t, "u1", created.UserId)
	assert.Equal(t, entity.Instant(10), created.CreatedAt)

	s := sessionWithImage(created.Id)
	s.Name = "Renamed"
	s.UpdatedAt = 50
	snap := Snapshot{Sessions: []entity.ChatSession{s}, ActiveID: s.Id}

	require.NoError(t, b.Write(ctx, snap, Change{Kind: ChangeMessages, SessionID: s.Id}))
	require.NoError(t, b.Write(ctx, snap, Change{Kind: ChangeRename, SessionID: s.Id}))

	loaded, err := b.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded.Sessions, 1)
	assert.Equal(t, s.Id, loaded.ActiveID)
	got := loaded.Sessions[0]
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, entity.Instant(50), got.UpdatedAt)
	require.Len(t, got.Messages, 2)
	assert.Empty(t, got.Messages[0].ImageUrl)

	require.NoError(t, b.Write(ctx, Snapshot{}, Change{Kind: ChangeDelete, SessionID: s.Id}))
	loaded, _ = b.Load(ctx)
	assert.Empty(t, loaded.Sessions)
}

func TestRemoteBackend_UpdateMissingDocumentIsPersistError(t *testing.T) {
	ctx := context.Background()
	b := NewRemoteBackend(NewRemoteAdapter(memory.NewSessionDocumentRepository(), sanitize.DefaultLimits()), "u1", nil, logger.NewNopLogger())

	snap := Snapshot{Sessions: []entity.ChatSession{{Id: "ghost", Name: "x"}}}
	err := b.Write(ctx, snap, Change{Kind: ChangeRename, SessionID: "ghost"})

	assert.ErrorIs(t, err, chaterr.ErrPersistWriteFailed)
	assert.ErrorIs(t, err, chaterr.ErrNotFound)
}

package persistence

import (
	"context"
	"encoding/json"

	"tarik-chat-be/internal/constant"
	"tarik-chat-be/internal/entity"
	"tarik-chat-be/internal/pkg/logger"
	"tarik-chat-be/internal/repository/contract"
	"tarik-chat-be/pkg/chat/chaterr"
	"tarik-chat-be/pkg/chat/sanitize"
)

// LocalAdapter stores every session as one JSON array plus the active id,
// both under keys namespaced by owner when one is known.
type LocalAdapter struct {
	kv        contract.KeyValueRepository
	ownerID   string
	limits    sanitize.Limits
	logger    logger.ILogger
	sessionsK string
	activeK   string
}

func NewLocalAdapter(kv contract.KeyValueRepository, ownerID string, limits sanitize.Limits, log logger.ILogger) *LocalAdapter {
	return &LocalAdapter{
		kv:        kv,
		ownerID:   ownerID,
		limits:    limits,
		logger:    log,
		sessionsK: ownerKey(constant.LocalSessionsKey, ownerID),
		activeK:   ownerKey(constant.LocalActiveSessionKey, ownerID),
	}
}

// Load never fails. Missing or unreadable data yields an empty result.
func (a *LocalAdapter) Load(ctx context.Context) ([]entity.ChatSession, string) {
	raw, ok, err := a.kv.Get(ctx, a.sessionsK)
	if err != nil {
		a.logger.Warn("LOCAL_STORE", "Failed to read sessions", map[string]interface{}{"key": a.sessionsK, "error": err.Error()})
		return nil, ""
	}
	if !ok || raw == "" {
		return nil, ""
	}

	var sessions []entity.ChatSession
	if err := json.Unmarshal([]byte(raw), &sessions); err != nil {
		a.logger.Warn("LOCAL_STORE", "Stored sessions are not valid JSON, starting fresh", map[string]interface{}{"key": a.sessionsK, "error": err.Error()})
		return nil, ""
	}

	activeID, _, err := a.kv.Get(ctx, a.activeK)
	if err != nil {
		a.logger.Warn("LOCAL_STORE", "Failed to read active session id", map[string]interface{}{"key": a.activeK, "error": err.Error()})
		activeID = ""
	}
	return sessions, activeID
}

// Save writes the sanitized sessions and the active id. Failures come back
// as *chaterr.PersistError.
func (a *LocalAdapter) Save(ctx context.Context, sessions []entity.ChatSession, activeID string) error {
	stored := make([]entity.ChatSession, len(sessions))
	for i, s := range sessions {
		s.Messages = sanitize.Prepare(s.Messages, a.limits)
		stored[i] = s
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return chaterr.NewPersistError("save", "", err)
	}
	if err := a.kv.Set(ctx, a.sessionsK, string(data)); err != nil {
		return chaterr.NewPersistError("save", "", err)
	}
	if activeID != "" {
		if err := a.kv.Set(ctx, a.activeK, activeID); err != nil {
			return chaterr.NewPersistError("save", activeID, err)
		}
	}
	return nil
}

// LocalBackend persists full snapshots through a LocalAdapter.
type LocalBackend struct {
	adapter *LocalAdapter
}

func NewLocalBackend(adapter *LocalAdapter) *LocalBackend {
	return &LocalBackend{adapter: adapter}
}

var _ Backend = (*LocalBackend)(nil)

func (b *LocalBackend) Load(ctx context.Context) (Snapshot, error) {
	sessions, activeID := b.adapter.Load(ctx)
	return Snapshot{Sessions: sessions, ActiveID: activeID}, nil
}

func (b *LocalBackend) Create(_ context.Context, session entity.ChatSession) (entity.ChatSession, error) {
	return session, nil
}

func (b *LocalBackend) Write(ctx context.Context, snap Snapshot, _ Change) error {
	return b.adapter.Save(ctx, snap.Sessions, snap.ActiveID)
}

func (b *LocalBackend) Remote() bool { return false }

package persistence

import (
	"context"

	"tarik-chat-be/internal/constant"
	"tarik-chat-be/internal/entity"
	"tarik-chat-be/internal/pkg/logger"
	"tarik-chat-be/internal/repository/contract"
	"tarik-chat-be/pkg/chat/chaterr"
	"tarik-chat-be/pkg/chat/sanitize"
)

// RemoteAdapter scopes a document repository to owners and sanitizes every
// message list on its way out.
type RemoteAdapter struct {
	docs   contract.SessionDocumentRepository
	limits sanitize.Limits
}

func NewRemoteAdapter(docs contract.SessionDocumentRepository, limits sanitize.Limits) *RemoteAdapter {
	return &RemoteAdapter{docs: docs, limits: limits}
}

func (a *RemoteAdapter) List(ctx context.Context, ownerID string) ([]entity.ChatSession, error) {
	if ownerID == "" {
		return nil, chaterr.ErrUnauthorized
	}
	docs, err := a.docs.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	out := make([]entity.ChatSession, 0, len(docs))
	for _, d := range docs {
		if d != nil {
			out = append(out, *d)
		}
	}
	return out, nil
}

// Create returns the session under its store-assigned id. Timestamps are the
// local approximation until the next List.
func (a *RemoteAdapter) Create(ctx context.Context, ownerID string, session entity.ChatSession) (entity.ChatSession, error) {
	if ownerID == "" {
		return entity.ChatSession{}, chaterr.ErrUnauthorized
	}
	session.UserId = ownerID
	session.Messages = sanitize.Prepare(session.Messages, a.limits)

	id, err := a.docs.Create(ctx, ownerID, &session)
	if err != nil {
		return entity.ChatSession{}, err
	}
	session.Id = id
	return session, nil
}

func (a *RemoteAdapter) Update(ctx context.Context, ownerID, sessionID string, fields entity.SessionFields) error {
	if ownerID == "" {
		return chaterr.ErrUnauthorized
	}
	if fields.Messages != nil {
		prepared := sanitize.Prepare(*fields.Messages, a.limits)
		fields.Messages = &prepared
	}
	return a.docs.Update(ctx, ownerID, sessionID, fields)
}

func (a *RemoteAdapter) Remove(ctx context.Context, ownerID, sessionID string) error {
	if ownerID == "" {
		return chaterr.ErrUnauthorized
	}
	return a.docs.Delete(ctx, ownerID, sessionID)
}

// RemoteBackend maps store changes to targeted document writes. The active
// session pointer stays on the local key-value store when one is given.
type RemoteBackend struct {
	adapter *RemoteAdapter
	ownerID string
	kv      contract.KeyValueRepository
	logger  logger.ILogger
}

func NewRemoteBackend(adapter *RemoteAdapter, ownerID string, kv contract.KeyValueRepository, log logger.ILogger) *RemoteBackend {
	return &RemoteBackend{adapter: adapter, ownerID: ownerID, kv: kv, logger: log}
}

var _ Backend = (*RemoteBackend)(nil)

func (b *RemoteBackend) activeKey() string {
	return ownerKey(constant.LocalActiveSessionKey, b.ownerID)
}

func (b *RemoteBackend) Load(ctx context.Context) (Snapshot, error) {
	sessions, err := b.adapter.List(ctx, b.ownerID)
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{Sessions: sessions}
	if b.kv != nil {
		id, _, err := b.kv.Get(ctx, b.activeKey())
		if err != nil {
			b.logger.Warn("REMOTE_STORE", "Failed to read active session id", map[string]interface{}{"owner_id": b.ownerID, "error": err.Error()})
		}
		snap.ActiveID = id
	}
	return snap, nil
}

func (b *RemoteBackend) Create(ctx context.Context, session entity.ChatSession) (entity.ChatSession, error) {
	return b.adapter.Create(ctx, b.ownerID, session)
}

func (b *RemoteBackend) Write(ctx context.Context, snap Snapshot, change Change) error {
	var err error
	switch change.Kind {
	case ChangeCreate, ChangeSwitch:
		// The document already exists; only the pointer moved.
	case ChangeRename:
		if s, ok := findSession(snap.Sessions, change.SessionID); ok {
			err = b.adapter.Update(ctx, b.ownerID, s.Id, entity.SessionFields{Name: &s.Name, UpdatedAt: &s.UpdatedAt})
		}
	case ChangeMessages:
		if s, ok := findSession(snap.Sessions, change.SessionID); ok {
			msgs := s.Messages
			err = b.adapter.Update(ctx, b.ownerID, s.Id, entity.SessionFields{Messages: &msgs, UpdatedAt: &s.UpdatedAt})
		}
	case ChangeDelete:
		err = b.adapter.Remove(ctx, b.ownerID, change.SessionID)
	}
	if err != nil {
		return chaterr.NewPersistError(change.Kind.String(), change.SessionID, err)
	}

	if b.kv != nil && snap.ActiveID != "" {
		if err := b.kv.Set(ctx, b.activeKey(), snap.ActiveID); err != nil {
			return chaterr.NewPersistError("switch", snap.ActiveID, err)
		}
	}
	return nil
}

func (b *RemoteBackend) Remote() bool { return true }

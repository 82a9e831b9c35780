package memory

import (
	"context"
	"sort"
	"strings"

	"tarik-chat-be/internal/entity"
	"tarik-chat-be/internal/repository/contract"
	"tarik-chat-be/pkg/chat/chaterr"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// SessionDocumentRepository keeps session documents in process memory,
// keyed "<owner>/<session>".
type SessionDocumentRepository struct {
	cache *cache.Cache
	now   func() entity.Instant
}

func NewSessionDocumentRepository() *SessionDocumentRepository {
	return &SessionDocumentRepository{
		cache: cache.New(cache.NoExpiration, 0),
		now:   entity.Now,
	}
}

var _ contract.SessionDocumentRepository = (*SessionDocumentRepository)(nil)

func docKey(ownerID, sessionID string) string {
	return ownerID + "/" + sessionID
}

func (r *SessionDocumentRepository) List(_ context.Context, ownerID string) ([]*entity.ChatSession, error) {
	if ownerID == "" {
		return nil, chaterr.ErrUnauthorized
	}

	prefix := ownerID + "/"
	var out []*entity.ChatSession
	for k, item := range r.cache.Items() {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		s := item.Object.(entity.ChatSession).Clone()
		out = append(out, &s)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].UpdatedAt != out[j].UpdatedAt {
			return out[i].UpdatedAt > out[j].UpdatedAt
		}
		return out[i].Id < out[j].Id
	})
	return out, nil
}

func (r *SessionDocumentRepository) Create(_ context.Context, ownerID string, session *entity.ChatSession) (string, error) {
	if ownerID == "" {
		return "", chaterr.ErrUnauthorized
	}

	doc := session.Clone()
	doc.Id = uuid.NewString()
	doc.UserId = ownerID
	now := r.now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = now
	}

	r.cache.Set(docKey(ownerID, doc.Id), doc, cache.NoExpiration)
	return doc.Id, nil
}

func (r *SessionDocumentRepository) Update(_ context.Context, ownerID, sessionID string, fields entity.SessionFields) error {
	if ownerID == "" {
		return chaterr.ErrUnauthorized
	}

	key := docKey(ownerID, sessionID)
	x, found := r.cache.Get(key)
	if !found {
		return chaterr.ErrNotFound
	}

	doc := x.(entity.ChatSession).Clone()
	if fields.Name != nil {
		doc.Name = *fields.Name
	}
	if fields.Messages != nil {
		doc.Messages = entity.ChatSession{Messages: *fields.Messages}.Clone().Messages
	}
	if fields.UpdatedAt != nil {
		doc.UpdatedAt = *fields.UpdatedAt
	} else {
		doc.UpdatedAt = r.now()
	}

	r.cache.Set(key, doc, cache.NoExpiration)
	return nil
}

func (r *SessionDocumentRepository) Delete(_ context.Context, ownerID, sessionID string) error {
	if ownerID == "" {
		return chaterr.ErrUnauthorized
	}
	r.cache.Delete(docKey(ownerID, sessionID))
	return nil
}

package contract

import (
	"context"

	"tarik-chat-be/internal/entity"
)

// SessionDocumentRepository is a per-owner collection of session documents.
// Every call is scoped by ownerID.
type SessionDocumentRepository interface {
	// List returns the owner's sessions ordered by UpdatedAt descending.
	List(ctx context.Context, ownerID string) ([]*entity.ChatSession, error)
	// Create stores a new document and returns the id assigned by the store.
	Create(ctx context.Context, ownerID string, session *entity.ChatSession) (string, error)
	Update(ctx context.Context, ownerID, sessionID string, fields entity.SessionFields) error
	Delete(ctx context.Context, ownerID, sessionID string) error
}

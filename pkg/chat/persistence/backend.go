// Package persistence moves session state between memory and a storage
// backend: a local key-value snapshot or a remote per-owner document
// collection.
package persistence

import (
	"context"

	"tarik-chat-be/internal/entity"
)

type Snapshot struct {
	Sessions []entity.ChatSession
	ActiveID string
}

type ChangeKind int

const (
	ChangeCreate ChangeKind = iota
	ChangeSwitch
	ChangeRename
	ChangeMessages
	ChangeDelete
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeCreate:
		return "create"
	case ChangeSwitch:
		return "switch"
	case ChangeRename:
		return "rename"
	case ChangeMessages:
		return "messages"
	case ChangeDelete:
		return "delete"
	}
	return "unknown"
}

// Change names what a mutation touched so a backend can write only that.
type Change struct {
	Kind      ChangeKind
	SessionID string
}

// Backend is what a session store persists through.
type Backend interface {
	// Load returns the stored snapshot. An empty snapshot is not an error.
	Load(ctx context.Context) (Snapshot, error)
	// Create gives session its durable identity and returns it. Remote
	// backends replace the id with the one assigned by the document store.
	Create(ctx context.Context, session entity.ChatSession) (entity.ChatSession, error)
	// Write persists change. snap is the full state after the mutation.
	Write(ctx context.Context, snap Snapshot, change Change) error
	// Remote reports whether writes leave the process.
	Remote() bool
}

func findSession(sessions []entity.ChatSession, id string) (entity.ChatSession, bool) {
	for _, s := range sessions {
		if s.Id == id {
			return s, true
		}
	}
	return entity.ChatSession{}, false
}

func ownerKey(base, ownerID string) string {
	if ownerID == "" {
		return base
	}
	return base + ":" + ownerID
}

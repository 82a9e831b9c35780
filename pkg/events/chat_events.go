package events

import "time"

const (
	TypeUserSignedUp   = "chat.user.signed_up"
	TypeSessionCreated = "chat.session.created"
	TypeSessionDeleted = "chat.session.deleted"
	TypeTurnResolved   = "chat.turn.resolved"
	TypeTurnFailed     = "chat.turn.failed"
	TypeNotification   = "chat.notification"
)

func UserSignedUp(userID, country string) Event {
	return BaseEvent{
		Type:       TypeUserSignedUp,
		Data:       map[string]interface{}{"user_id": userID, "country": country},
		OccurredAt: time.Now(),
	}
}

func SessionCreated(userID, sessionID string) Event {
	return BaseEvent{
		Type:       TypeSessionCreated,
		Data:       map[string]interface{}{"user_id": userID, "session_id": sessionID},
		OccurredAt: time.Now(),
	}
}

func SessionDeleted(userID, sessionID string) Event {
	return BaseEvent{
		Type:       TypeSessionDeleted,
		Data:       map[string]interface{}{"user_id": userID, "session_id": sessionID},
		OccurredAt: time.Now(),
	}
}

// TurnCompleted reports the outcome of one turn. Message content is left
// out; subscribers get ids and the language only.
func TurnCompleted(userID, sessionID, turnID, language string, failed bool) Event {
	t := TypeTurnResolved
	if failed {
		t = TypeTurnFailed
	}
	return BaseEvent{
		Type: t,
		Data: map[string]interface{}{
			"user_id":    userID,
			"session_id": sessionID,
			"turn_id":    turnID,
			"language":   language,
		},
		OccurredAt: time.Now(),
	}
}

func Notification(userID, level, title, description string) Event {
	return BaseEvent{
		Type: TypeNotification,
		Data: map[string]interface{}{
			"user_id":     userID,
			"level":       level,
			"title":       title,
			"description": description,
		},
		OccurredAt: time.Now(),
	}
}

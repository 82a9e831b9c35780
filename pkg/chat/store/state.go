package store

import (
	"sort"
	"strings"

	"tarik-chat-be/internal/entity"
	"tarik-chat-be/pkg/chat/chaterr"
)

// State is an immutable view of one owner's sessions. apply* functions
// return a new State and never write through the old one.
type State struct {
	Sessions []entity.ChatSession
	ActiveID string
}

func (s State) index(id string) int {
	for i, sess := range s.Sessions {
		if sess.Id == id {
			return i
		}
	}
	return -1
}

func (s State) Active() (entity.ChatSession, bool) {
	if i := s.index(s.ActiveID); i >= 0 {
		return s.Sessions[i], true
	}
	return entity.ChatSession{}, false
}

func sortSessions(sessions []entity.ChatSession) {
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt > sessions[j].UpdatedAt
	})
}

// normalize sorts and repoints ActiveID at the head when it is not a member.
func normalize(s State) State {
	sessions := append([]entity.ChatSession(nil), s.Sessions...)
	sortSessions(sessions)
	s.Sessions = sessions
	if s.index(s.ActiveID) < 0 {
		s.ActiveID = ""
		if len(sessions) > 0 {
			s.ActiveID = sessions[0].Id
		}
	}
	return s
}

// replaceAt copies the session list with sessions[i] swapped for sess.
func (s State) replaceAt(i int, sess entity.ChatSession) State {
	sessions := append([]entity.ChatSession(nil), s.Sessions...)
	sessions[i] = sess
	sortSessions(sessions)
	return State{Sessions: sessions, ActiveID: s.ActiveID}
}

func newSession(id, name string, now entity.Instant) entity.ChatSession {
	return entity.ChatSession{
		Id:        id,
		Name:      name,
		Messages:  []entity.ChatMessage{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func applyCreate(s State, sess entity.ChatSession) State {
	sessions := make([]entity.ChatSession, 0, len(s.Sessions)+1)
	sessions = append(sessions, sess)
	sessions = append(sessions, s.Sessions...)
	sortSessions(sessions)
	return State{Sessions: sessions, ActiveID: sess.Id}
}

func applySwitch(s State, id string) (State, error) {
	if s.index(id) < 0 {
		return s, chaterr.ErrNotFound
	}
	return State{Sessions: s.Sessions, ActiveID: id}, nil
}

func applyRename(s State, id, name string, now entity.Instant) (State, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return s, chaterr.Validation("session name is empty")
	}
	i := s.index(id)
	if i < 0 {
		return s, chaterr.ErrNotFound
	}
	sess := s.Sessions[i]
	sess.Name = name
	sess.UpdatedAt = now
	return s.replaceAt(i, sess), nil
}

// applyDelete removes id. When the list would become empty, fallback is
// inserted and made active; usedFallback reports whether that happened.
func applyDelete(s State, id string, fallback *entity.ChatSession) (next State, usedFallback bool, err error) {
	i := s.index(id)
	if i < 0 {
		return s, false, chaterr.ErrNotFound
	}

	sessions := make([]entity.ChatSession, 0, len(s.Sessions))
	sessions = append(sessions, s.Sessions[:i]...)
	sessions = append(sessions, s.Sessions[i+1:]...)

	activeID := s.ActiveID
	if len(sessions) == 0 && fallback != nil {
		sessions = append(sessions, *fallback)
		activeID = fallback.Id
		usedFallback = true
	}
	sortSessions(sessions)

	if activeID == id {
		activeID = ""
		if len(sessions) > 0 {
			activeID = sessions[0].Id
		}
	}
	return State{Sessions: sessions, ActiveID: activeID}, usedFallback, nil
}

// applyAddMessage appends msg. A missing session leaves s unchanged.
func applyAddMessage(s State, sessionID string, msg entity.ChatMessage, now entity.Instant) (State, bool) {
	i := s.index(sessionID)
	if i < 0 {
		return s, false
	}
	sess := s.Sessions[i]
	msgs := make([]entity.ChatMessage, 0, len(sess.Messages)+1)
	msgs = append(msgs, sess.Messages...)
	msgs = append(msgs, msg.Clone())
	sess.Messages = msgs
	sess.UpdatedAt = now
	return s.replaceAt(i, sess), true
}

// applyUpdateMessage merges patch into the message with messageID. A missing
// session or message leaves s unchanged.
func applyUpdateMessage(s State, sessionID, messageID string, patch entity.MessagePatch, now entity.Instant) (State, bool) {
	i := s.index(sessionID)
	if i < 0 {
		return s, false
	}
	sess := s.Sessions[i]
	j := -1
	for k, m := range sess.Messages {
		if m.Id == messageID {
			j = k
			break
		}
	}
	if j < 0 {
		return s, false
	}
	msgs := append([]entity.ChatMessage(nil), sess.Messages...)
	msgs[j] = patch.Apply(msgs[j])
	sess.Messages = msgs
	sess.UpdatedAt = now
	return s.replaceAt(i, sess), true
}

// applyInsertAfter places msg right after the message with afterID, or at
// the end when afterID is not present.
func applyInsertAfter(s State, sessionID, afterID string, msg entity.ChatMessage, now entity.Instant) (State, bool) {
	i := s.index(sessionID)
	if i < 0 {
		return s, false
	}
	sess := s.Sessions[i]
	pos := len(sess.Messages)
	for k, m := range sess.Messages {
		if m.Id == afterID {
			pos = k + 1
			break
		}
	}
	msgs := make([]entity.ChatMessage, 0, len(sess.Messages)+1)
	msgs = append(msgs, sess.Messages[:pos]...)
	msgs = append(msgs, msg.Clone())
	msgs = append(msgs, sess.Messages[pos:]...)
	sess.Messages = msgs
	sess.UpdatedAt = now
	return s.replaceAt(i, sess), true
}

func applyClear(s State, sessionID string, now entity.Instant) (State, bool) {
	i := s.index(sessionID)
	if i < 0 {
		return s, false
	}
	sess := s.Sessions[i]
	sess.Messages = []entity.ChatMessage{}
	sess.UpdatedAt = now
	return s.replaceAt(i, sess), true
}

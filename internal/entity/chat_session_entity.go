package entity

type ChatSession struct {
	Id        string        `json:"id"`
	Name      string        `json:"name"`
	Messages  []ChatMessage `json:"messages"`
	CreatedAt Instant       `json:"createdAt"`
	UpdatedAt Instant       `json:"updatedAt"`
	UserId    string        `json:"userId,omitempty"`
}

func (s ChatSession) Clone() ChatSession {
	msgs := make([]ChatMessage, len(s.Messages))
	for i, m := range s.Messages {
		msgs[i] = m.Clone()
	}
	s.Messages = msgs
	return s
}

// CountConversational returns the number of user and assistant messages.
func (s ChatSession) CountConversational() int {
	n := 0
	for _, m := range s.Messages {
		if m.Role == RoleUser || m.Role == RoleAssistant {
			n++
		}
	}
	return n
}

// SessionFields is a partial session update sent to a document store.
type SessionFields struct {
	Name      *string
	Messages  *[]ChatMessage
	UpdatedAt *Instant
}

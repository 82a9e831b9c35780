package entity

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// ChatMessage is one entry of a session. An empty ImageUrl and a nil
// ImageUrls both mean "no image".
type ChatMessage struct {
	Id        string   `json:"id"`
	Role      Role     `json:"role"`
	Content   string   `json:"content"`
	ImageUrl  string   `json:"imageUrl,omitempty"`
	ImageUrls []string `json:"imageUrls,omitempty"`
	Timestamp Instant  `json:"timestamp"`
	IsLoading bool     `json:"isLoading,omitempty"`
}

// DisplayImages returns ImageUrl followed by ImageUrls.
func (m ChatMessage) DisplayImages() []string {
	out := make([]string, 0, len(m.ImageUrls)+1)
	if m.ImageUrl != "" {
		out = append(out, m.ImageUrl)
	}
	for _, u := range m.ImageUrls {
		if u != "" {
			out = append(out, u)
		}
	}
	return out
}

func (m ChatMessage) Clone() ChatMessage {
	if m.ImageUrls != nil {
		m.ImageUrls = append([]string(nil), m.ImageUrls...)
	}
	return m
}

// MessagePatch carries the fields to merge into an existing message.
// Nil fields are left untouched.
type MessagePatch struct {
	Role      *Role
	Content   *string
	ImageUrl  *string
	ImageUrls *[]string
	IsLoading *bool
}

func (p MessagePatch) Apply(m ChatMessage) ChatMessage {
	m = m.Clone()
	if p.Role != nil {
		m.Role = *p.Role
	}
	if p.Content != nil {
		m.Content = *p.Content
	}
	if p.ImageUrl != nil {
		m.ImageUrl = *p.ImageUrl
	}
	if p.ImageUrls != nil {
		if len(*p.ImageUrls) == 0 {
			m.ImageUrls = nil
		} else {
			m.ImageUrls = append([]string(nil), (*p.ImageUrls)...)
		}
	}
	if p.IsLoading != nil {
		m.IsLoading = *p.IsLoading
	}
	return m
}

// PatchFrom builds a patch that turns any message into a copy of m, keeping
// only its id and timestamp.
func PatchFrom(m ChatMessage) MessagePatch {
	urls := append([]string(nil), m.ImageUrls...)
	return MessagePatch{
		Role:      &m.Role,
		Content:   &m.Content,
		ImageUrl:  &m.ImageUrl,
		ImageUrls: &urls,
		IsLoading: &m.IsLoading,
	}
}

// Package sanitize prepares message lists for persistence: embedded image
// payloads are dropped, long content is truncated and only the most recent
// messages are kept.
package sanitize

import (
	"strings"
	"unicode/utf8"

	"tarik-chat-be/internal/constant"
	"tarik-chat-be/internal/entity"
)

type Limits struct {
	MaxMessages   int
	MaxContentLen int
}

func DefaultLimits() Limits {
	return Limits{
		MaxMessages:   constant.MaxStoredMessages,
		MaxContentLen: constant.MaxMessageContentLength,
	}
}

func (l Limits) normalize() Limits {
	d := DefaultLimits()
	if l.MaxMessages <= 0 {
		l.MaxMessages = d.MaxMessages
	}
	if l.MaxContentLen <= 0 {
		l.MaxContentLen = d.MaxContentLen
	}
	return l
}

// IsEmbedded reports whether ref carries the image bytes inline (a data URI).
func IsEmbedded(ref string) bool {
	ref = strings.TrimSpace(ref)
	return len(ref) >= 5 && strings.EqualFold(ref[:5], "data:")
}

// Prepare returns the persistable form of messages. The input slice and its
// messages are never modified.
func Prepare(messages []entity.ChatMessage, limits Limits) []entity.ChatMessage {
	limits = limits.normalize()

	if len(messages) > limits.MaxMessages {
		messages = messages[len(messages)-limits.MaxMessages:]
	}

	out := make([]entity.ChatMessage, len(messages))
	for i, m := range messages {
		out[i] = prepareMessage(m, limits.MaxContentLen)
	}
	return out
}

func prepareMessage(m entity.ChatMessage, maxLen int) entity.ChatMessage {
	m = m.Clone()

	if IsEmbedded(m.ImageUrl) {
		m.ImageUrl = ""
	}

	if m.ImageUrls != nil {
		kept := m.ImageUrls[:0]
		for _, u := range m.ImageUrls {
			if u == "" || IsEmbedded(u) {
				continue
			}
			kept = append(kept, u)
		}
		if len(kept) == 0 {
			kept = nil
		}
		m.ImageUrls = kept
	}

	m.Content = Truncate(m.Content, maxLen)
	return m
}

// Truncate keeps the first maxLen runes of content and appends the
// truncation marker, so every result is at most maxLen runes plus the
// marker. Truncating a result again returns it unchanged.
func Truncate(content string, maxLen int) string {
	if utf8.RuneCountInString(content) <= maxLen {
		return content
	}

	cut := 0
	for i := range content {
		if cut == maxLen {
			return content[:i] + constant.TruncationMarker
		}
		cut++
	}
	return content
}

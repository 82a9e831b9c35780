package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ChatSession is the relational rendition of a session document. Messages
// are kept inline as a JSON array so a session stays one row.
type ChatSession struct {
	Id        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId    string         `gorm:"type:varchar(64);not null;index"`
	Name      string         `gorm:"type:text;not null"`
	Messages  datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"autoCreateTime:false;not null"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:false;not null;index"`
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}

// MessageRecord is one element of ChatSession.Messages.
type MessageRecord struct {
	Id        string     `json:"id"`
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	ImageUrl  string     `json:"imageUrl,omitempty"`
	ImageUrls []string   `json:"imageUrls,omitempty"`
	Timestamp RecordTime `json:"timestamp"`
	IsLoading bool       `json:"isLoading,omitempty"`
}

const recordTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// RecordTime is written as an RFC 3339 timestamp with millisecond
// precision. Rows written before that carried epoch milliseconds; both
// forms are read.
type RecordTime struct {
	time.Time
}

func (t RecordTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(recordTimeLayout))
}

func (t *RecordTime) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return err
		}
		t.Time = parsed.UTC()
		return nil
	}
	var millis int64
	if err := json.Unmarshal(b, &millis); err != nil {
		return err
	}
	t.Time = time.UnixMilli(millis).UTC()
	return nil
}

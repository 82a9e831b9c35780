package model

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SessionDocument is one chat session owned by a user.
// Collection: chat_sessions
type SessionDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    string             `bson:"user_id"`
	Name      string             `bson:"name"`
	Messages  []MessageDocument  `bson:"messages"`
	CreatedAt primitive.DateTime `bson:"created_at"`
	UpdatedAt primitive.DateTime `bson:"updated_at"`
}

// MessageDocument is embedded in SessionDocument.messages in display order.
type MessageDocument struct {
	ID        string             `bson:"id"`
	Role      string             `bson:"role"`
	Content   string             `bson:"content"`
	ImageURL  string             `bson:"image_url,omitempty"`
	ImageURLs []string           `bson:"image_urls,omitempty"`
	Timestamp primitive.DateTime `bson:"timestamp"`
	IsLoading bool               `bson:"is_loading,omitempty"`
}

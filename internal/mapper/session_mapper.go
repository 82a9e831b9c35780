package mapper

import (
	"encoding/json"
	"time"

	"tarik-chat-be/internal/entity"
	"tarik-chat-be/internal/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"gorm.io/datatypes"
)

type SessionMapper struct{}

func NewSessionMapper() *SessionMapper {
	return &SessionMapper{}
}

// legacyAssistantRole is how early documents labelled assistant turns.
const legacyAssistantRole = "ai"

func roleFromStore(r string) entity.Role {
	if r == legacyAssistantRole {
		return entity.RoleAssistant
	}
	return entity.Role(r)
}

// Mongo

func (m *SessionMapper) DocumentToEntity(d *model.SessionDocument) *entity.ChatSession {
	if d == nil {
		return nil
	}
	return &entity.ChatSession{
		Id:        d.ID.Hex(),
		Name:      d.Name,
		Messages:  m.MessageDocumentsToEntities(d.Messages),
		CreatedAt: entity.Instant(d.CreatedAt),
		UpdatedAt: entity.Instant(d.UpdatedAt),
		UserId:    d.UserID,
	}
}

func (m *SessionMapper) EntityToDocument(s *entity.ChatSession) *model.SessionDocument {
	if s == nil {
		return nil
	}
	d := &model.SessionDocument{
		UserID:    s.UserId,
		Name:      s.Name,
		Messages:  m.EntitiesToMessageDocuments(s.Messages),
		CreatedAt: primitive.DateTime(s.CreatedAt),
		UpdatedAt: primitive.DateTime(s.UpdatedAt),
	}
	if id, err := primitive.ObjectIDFromHex(s.Id); err == nil {
		d.ID = id
	}
	return d
}

func (m *SessionMapper) MessageDocumentsToEntities(docs []model.MessageDocument) []entity.ChatMessage {
	out := make([]entity.ChatMessage, len(docs))
	for i, d := range docs {
		out[i] = entity.ChatMessage{
			Id:        d.ID,
			Role:      roleFromStore(d.Role),
			Content:   d.Content,
			ImageUrl:  d.ImageURL,
			ImageUrls: d.ImageURLs,
			Timestamp: entity.Instant(d.Timestamp),
			IsLoading: d.IsLoading,
		}
	}
	return out
}

func (m *SessionMapper) EntitiesToMessageDocuments(msgs []entity.ChatMessage) []model.MessageDocument {
	out := make([]model.MessageDocument, len(msgs))
	for i, msg := range msgs {
		out[i] = model.MessageDocument{
			ID:        msg.Id,
			Role:      string(msg.Role),
			Content:   msg.Content,
			ImageURL:  msg.ImageUrl,
			ImageURLs: msg.ImageUrls,
			Timestamp: primitive.DateTime(msg.Timestamp),
			IsLoading: msg.IsLoading,
		}
	}
	return out
}

// Gorm

func (m *SessionMapper) ModelToEntity(s *model.ChatSession) (*entity.ChatSession, error) {
	if s == nil {
		return nil, nil
	}
	msgs, err := m.MessagesFromJSON(s.Messages)
	if err != nil {
		return nil, err
	}
	return &entity.ChatSession{
		Id:        s.Id.String(),
		Name:      s.Name,
		Messages:  msgs,
		CreatedAt: entity.InstantFromTime(s.CreatedAt),
		UpdatedAt: entity.InstantFromTime(s.UpdatedAt),
		UserId:    s.UserId,
	}, nil
}

func (m *SessionMapper) EntityToModel(s *entity.ChatSession) (*model.ChatSession, error) {
	if s == nil {
		return nil, nil
	}
	raw, err := m.MessagesToJSON(s.Messages)
	if err != nil {
		return nil, err
	}
	return &model.ChatSession{
		UserId:    s.UserId,
		Name:      s.Name,
		Messages:  raw,
		CreatedAt: timeOf(s.CreatedAt),
		UpdatedAt: timeOf(s.UpdatedAt),
	}, nil
}

// MessagesToJSON encodes msgs for the jsonb column with timestamps as
// instants rather than epoch numbers.
func (m *SessionMapper) MessagesToJSON(msgs []entity.ChatMessage) (datatypes.JSON, error) {
	records := make([]model.MessageRecord, len(msgs))
	for i, msg := range msgs {
		records[i] = model.MessageRecord{
			Id:        msg.Id,
			Role:      string(msg.Role),
			Content:   msg.Content,
			ImageUrl:  msg.ImageUrl,
			ImageUrls: msg.ImageUrls,
			Timestamp: model.RecordTime{Time: timeOf(msg.Timestamp)},
			IsLoading: msg.IsLoading,
		}
	}
	b, err := json.Marshal(records)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

func (m *SessionMapper) MessagesFromJSON(raw datatypes.JSON) ([]entity.ChatMessage, error) {
	msgs := []entity.ChatMessage{}
	if len(raw) == 0 {
		return msgs, nil
	}
	var records []model.MessageRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, err
	}
	for _, r := range records {
		msgs = append(msgs, entity.ChatMessage{
			Id:        r.Id,
			Role:      roleFromStore(r.Role),
			Content:   r.Content,
			ImageUrl:  r.ImageUrl,
			ImageUrls: r.ImageUrls,
			Timestamp: entity.InstantFromTime(r.Timestamp.Time),
			IsLoading: r.IsLoading,
		})
	}
	return msgs, nil
}

func timeOf(i entity.Instant) time.Time {
	if i.IsZero() {
		return time.Time{}
	}
	return i.Time()
}

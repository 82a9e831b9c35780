package implementation

import (
	"context"

	"tarik-chat-be/internal/entity"
	"tarik-chat-be/internal/mapper"
	"tarik-chat-be/internal/model"
	"tarik-chat-be/internal/repository/contract"
	"tarik-chat-be/internal/repository/specification"
	"tarik-chat-be/pkg/chat/chaterr"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SessionDocumentGormRepository struct {
	db     *gorm.DB
	mapper *mapper.SessionMapper
	now    func() entity.Instant
}

func NewSessionDocumentGormRepository(db *gorm.DB) contract.SessionDocumentRepository {
	return &SessionDocumentGormRepository{
		db:     db,
		mapper: mapper.NewSessionMapper(),
		now:    entity.Now,
	}
}

func (r *SessionDocumentGormRepository) List(ctx context.Context, ownerID string) ([]*entity.ChatSession, error) {
	if ownerID == "" {
		return nil, chaterr.ErrUnauthorized
	}

	var models []*model.ChatSession
	query := specification.ApplyAll(r.db.WithContext(ctx),
		specification.ByOwner{OwnerID: ownerID},
		specification.OrderBy{Field: "updated_at", Desc: true},
		specification.OrderBy{Field: "id"},
	)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	out := make([]*entity.ChatSession, 0, len(models))
	for _, m := range models {
		s, err := r.mapper.ModelToEntity(m)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *SessionDocumentGormRepository) Create(ctx context.Context, ownerID string, session *entity.ChatSession) (string, error) {
	if ownerID == "" {
		return "", chaterr.ErrUnauthorized
	}

	m, err := r.mapper.EntityToModel(session)
	if err != nil {
		return "", err
	}
	m.Id = uuid.New()
	m.UserId = ownerID
	now := r.now().Time()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = now
	}

	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return "", err
	}
	return m.Id.String(), nil
}

func (r *SessionDocumentGormRepository) Update(ctx context.Context, ownerID, sessionID string, fields entity.SessionFields) error {
	if ownerID == "" {
		return chaterr.ErrUnauthorized
	}
	if _, err := uuid.Parse(sessionID); err != nil {
		return chaterr.ErrNotFound
	}

	updates := map[string]interface{}{}
	if fields.Name != nil {
		updates["name"] = *fields.Name
	}
	if fields.Messages != nil {
		raw, err := r.mapper.MessagesToJSON(*fields.Messages)
		if err != nil {
			return err
		}
		updates["messages"] = raw
	}
	if fields.UpdatedAt != nil {
		updates["updated_at"] = fields.UpdatedAt.Time()
	} else {
		updates["updated_at"] = r.now().Time()
	}

	query := specification.ApplyAll(r.db.WithContext(ctx).Model(&model.ChatSession{}),
		specification.ByID{ID: sessionID},
		specification.ByOwner{OwnerID: ownerID},
	)
	result := query.Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return chaterr.ErrNotFound
	}
	return nil
}

func (r *SessionDocumentGormRepository) Delete(ctx context.Context, ownerID, sessionID string) error {
	if ownerID == "" {
		return chaterr.ErrUnauthorized
	}
	if _, err := uuid.Parse(sessionID); err != nil {
		return nil
	}
	query := specification.ApplyAll(r.db.WithContext(ctx),
		specification.ByID{ID: sessionID},
		specification.ByOwner{OwnerID: ownerID},
	)
	return query.Delete(&model.ChatSession{}).Error
}

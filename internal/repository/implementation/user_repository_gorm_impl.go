package implementation

import (
	"context"
	"errors"

	"tarik-chat-be/internal/entity"
	"tarik-chat-be/internal/mapper"
	"tarik-chat-be/internal/model"
	"tarik-chat-be/internal/repository/contract"
	"tarik-chat-be/internal/repository/specification"
	"tarik-chat-be/pkg/chat/chaterr"

	"gorm.io/gorm"
)

type UserGormRepository struct {
	db     *gorm.DB
	mapper *mapper.UserMapper
}

func NewUserGormRepository(db *gorm.DB) contract.UserRepository {
	return &UserGormRepository{
		db:     db,
		mapper: mapper.NewUserMapper(),
	}
}

func (r *UserGormRepository) Create(ctx context.Context, user *entity.User) error {
	if err := r.db.WithContext(ctx).Create(r.mapper.EntityToModel(user)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return chaterr.Validation("email already registered")
		}
		return err
	}
	return nil
}

func (r *UserGormRepository) FindById(ctx context.Context, id string) (*entity.User, error) {
	return r.findOne(ctx, specification.ByID{ID: id})
}

func (r *UserGormRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.findOne(ctx, specification.ByEmail{Email: email})
}

func (r *UserGormRepository) findOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error) {
	var m model.User
	if err := specification.ApplyAll(r.db.WithContext(ctx), specs...).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ModelToEntity(&m), nil
}

func (r *UserGormRepository) UpdateProfile(ctx context.Context, id string, displayName, country *string) error {
	updates := map[string]interface{}{}
	if displayName != nil {
		updates["display_name"] = *displayName
	}
	if country != nil {
		updates["country"] = *country
	}
	if len(updates) == 0 {
		return nil
	}
	return r.update(ctx, id, updates)
}

func (r *UserGormRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.update(ctx, id, map[string]interface{}{"password_hash": passwordHash})
}

func (r *UserGormRepository) update(ctx context.Context, id string, updates map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return chaterr.ErrNotFound
	}
	return nil
}

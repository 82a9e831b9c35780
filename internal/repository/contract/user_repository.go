package contract

import (
	"context"

	"tarik-chat-be/internal/entity"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindById(ctx context.Context, id string) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	UpdateProfile(ctx context.Context, id string, displayName, country *string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

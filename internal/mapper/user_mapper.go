package mapper

import (
	"strings"

	"tarik-chat-be/internal/entity"
	"tarik-chat-be/internal/model"
)

type UserMapper struct{}

func NewUserMapper() *UserMapper {
	return &UserMapper{}
}

func (m *UserMapper) ToEntity(d *model.UserDocument) *entity.User {
	if d == nil {
		return nil
	}
	return &entity.User{
		Id:           d.ID,
		DisplayName:  d.DisplayName,
		Email:        d.Email,
		Country:      d.Country,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt,
	}
}

func (m *UserMapper) ToDocument(u *entity.User) *model.UserDocument {
	if u == nil {
		return nil
	}
	return &model.UserDocument{
		ID:           u.Id,
		Email:        strings.ToLower(u.Email),
		PasswordHash: u.PasswordHash,
		DisplayName:  u.DisplayName,
		Country:      u.Country,
		CreatedAt:    u.CreatedAt,
	}
}

func (m *UserMapper) ModelToEntity(u *model.User) *entity.User {
	if u == nil {
		return nil
	}
	return &entity.User{
		Id:           u.Id,
		DisplayName:  u.DisplayName,
		Email:        u.Email,
		Country:      u.Country,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
	}
}

func (m *UserMapper) EntityToModel(u *entity.User) *model.User {
	if u == nil {
		return nil
	}
	return &model.User{
		Id:           u.Id,
		Email:        strings.ToLower(u.Email),
		PasswordHash: u.PasswordHash,
		DisplayName:  u.DisplayName,
		Country:      u.Country,
		CreatedAt:    u.CreatedAt,
	}
}

package memory

import (
	"context"
	"strings"
	"sync"

	"tarik-chat-be/internal/entity"
	"tarik-chat-be/internal/repository/contract"
	"tarik-chat-be/pkg/chat/chaterr"

	"github.com/patrickmn/go-cache"
)

// UserRepository stores users by id with a secondary email index.
type UserRepository struct {
	mu      sync.Mutex
	byId    *cache.Cache
	byEmail *cache.Cache
}

func NewUserRepository() contract.UserRepository {
	return &UserRepository{
		byId:    cache.New(cache.NoExpiration, 0),
		byEmail: cache.New(cache.NoExpiration, 0),
	}
}

func (r *UserRepository) Create(_ context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := strings.ToLower(user.Email)
	if err := r.byEmail.Add(email, user.Id, cache.NoExpiration); err != nil {
		return chaterr.Validation("email already registered")
	}
	u := *user
	r.byId.Set(u.Id, u, cache.NoExpiration)
	return nil
}

func (r *UserRepository) FindById(_ context.Context, id string) (*entity.User, error) {
	if x, found := r.byId.Get(id); found {
		u := x.(entity.User)
		return &u, nil
	}
	return nil, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	if x, found := r.byEmail.Get(strings.ToLower(email)); found {
		return r.FindById(ctx, x.(string))
	}
	return nil, nil
}

func (r *UserRepository) UpdateProfile(_ context.Context, id string, displayName, country *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	x, found := r.byId.Get(id)
	if !found {
		return chaterr.ErrNotFound
	}
	u := x.(entity.User)
	if displayName != nil {
		u.DisplayName = *displayName
	}
	if country != nil {
		u.Country = *country
	}
	r.byId.Set(id, u, cache.NoExpiration)
	return nil
}

func (r *UserRepository) UpdatePassword(_ context.Context, id, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	x, found := r.byId.Get(id)
	if !found {
		return chaterr.ErrNotFound
	}
	u := x.(entity.User)
	u.PasswordHash = passwordHash
	r.byId.Set(id, u, cache.NoExpiration)
	return nil
}

package memory

import (
	"context"
	"time"

	"tarik-chat-be/internal/repository/contract"

	"github.com/patrickmn/go-cache"
)

type TokenDenylistRepository struct {
	cache *cache.Cache
}

func NewTokenDenylistRepository() contract.TokenDenylistRepository {
	return &TokenDenylistRepository{
		cache: cache.New(24*time.Hour, 10*time.Minute),
	}
}

func (r *TokenDenylistRepository) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	r.cache.Set(tokenID, true, ttl)
	return nil
}

func (r *TokenDenylistRepository) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	_, found := r.cache.Get(tokenID)
	return found, nil
}

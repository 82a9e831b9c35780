package memory

import (
	"context"
	"fmt"
	"sync"

	"tarik-chat-be/internal/repository/contract"
	"tarik-chat-be/pkg/chat/chaterr"

	"github.com/patrickmn/go-cache"
)

// DefaultQuotaBytes mirrors the usual browser localStorage budget.
const DefaultQuotaBytes = 5 * 1024 * 1024

type KeyValueRepository struct {
	mu       sync.Mutex
	cache    *cache.Cache
	maxBytes int
}

// NewKeyValueRepository keeps values until deleted. maxBytes <= 0 disables the quota.
func NewKeyValueRepository(maxBytes int) contract.KeyValueRepository {
	return &KeyValueRepository{
		cache:    cache.New(cache.NoExpiration, 0),
		maxBytes: maxBytes,
	}
}

func (r *KeyValueRepository) Get(_ context.Context, key string) (string, bool, error) {
	if x, found := r.cache.Get(key); found {
		return x.(string), true, nil
	}
	return "", false, nil
}

func (r *KeyValueRepository) Set(_ context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.maxBytes > 0 {
		used := 0
		for k, item := range r.cache.Items() {
			if k == key {
				continue
			}
			used += len(k) + len(item.Object.(string))
		}
		if used+len(key)+len(value) > r.maxBytes {
			return fmt.Errorf("set %q: %w", key, chaterr.ErrStorageQuotaExceeded)
		}
	}

	r.cache.Set(key, value, cache.NoExpiration)
	return nil
}

func (r *KeyValueRepository) Delete(_ context.Context, key string) error {
	r.cache.Delete(key)
	return nil
}

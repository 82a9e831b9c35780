package implementation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tarik-chat-be/internal/repository/contract"
	"tarik-chat-be/pkg/chat/chaterr"

	"github.com/redis/go-redis/v9"
)

const (
	kvKeyPrefix      = "tarikchat:kv:"
	revokedKeyPrefix = "tarikchat:revoked:"
)

type KeyValueRedisRepository struct {
	rdb         *redis.Client
	maxValueLen int
}

// NewKeyValueRedisRepository stores values without expiry. maxValueLen <= 0
// leaves the limit to the server's maxmemory policy.
func NewKeyValueRedisRepository(rdb *redis.Client, maxValueLen int) contract.KeyValueRepository {
	return &KeyValueRedisRepository{rdb: rdb, maxValueLen: maxValueLen}
}

func (r *KeyValueRedisRepository) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.rdb.Get(ctx, kvKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *KeyValueRedisRepository) Set(ctx context.Context, key, value string) error {
	if r.maxValueLen > 0 && len(value) > r.maxValueLen {
		return fmt.Errorf("set %q: %w", key, chaterr.ErrStorageQuotaExceeded)
	}
	if err := r.rdb.Set(ctx, kvKeyPrefix+key, value, 0).Err(); err != nil {
		// maxmemory with noeviction rejects writes with an OOM error reply
		if strings.HasPrefix(err.Error(), "OOM") {
			return fmt.Errorf("set %q: %w", key, errors.Join(chaterr.ErrStorageQuotaExceeded, err))
		}
		return err
	}
	return nil
}

func (r *KeyValueRedisRepository) Delete(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, kvKeyPrefix+key).Err()
}

type TokenDenylistRedisRepository struct {
	rdb *redis.Client
}

func NewTokenDenylistRedisRepository(rdb *redis.Client) contract.TokenDenylistRepository {
	return &TokenDenylistRedisRepository{rdb: rdb}
}

func (r *TokenDenylistRedisRepository) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.rdb.Set(ctx, revokedKeyPrefix+tokenID, "1", ttl).Err()
}

func (r *TokenDenylistRedisRepository) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.rdb.Exists(ctx, revokedKeyPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

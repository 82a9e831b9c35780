package contract

import "context"

// KeyValueRepository is the local string store. Implementations return an
// error wrapping chaterr.ErrStorageQuotaExceeded when a write does not fit.
type KeyValueRepository interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

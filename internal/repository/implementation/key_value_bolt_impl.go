package implementation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tarik-chat-be/internal/repository/contract"
	"tarik-chat-be/pkg/chat/chaterr"

	bolt "go.etcd.io/bbolt"
)

var kvBucket = []byte("tarik_kv")

// KeyValueBoltRepository keeps the local store in a single bolt file.
type KeyValueBoltRepository struct {
	db       *bolt.DB
	maxBytes int
}

// OpenKeyValueBoltRepository opens (or creates) the bolt file at path.
// maxBytes <= 0 disables the quota.
func OpenKeyValueBoltRepository(path string, maxBytes int) (*KeyValueBoltRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(kvBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &KeyValueBoltRepository{db: db, maxBytes: maxBytes}, nil
}

var _ contract.KeyValueRepository = (*KeyValueBoltRepository)(nil)

func (r *KeyValueBoltRepository) Close() error {
	return r.db.Close()
}

func (r *KeyValueBoltRepository) Get(_ context.Context, key string) (string, bool, error) {
	var (
		value string
		found bool
	)
	err := r.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(kvBucket).Get([]byte(key)); v != nil {
			value, found = string(v), true
		}
		return nil
	})
	return value, found, err
}

func (r *KeyValueBoltRepository) Set(_ context.Context, key, value string) error {
	err := r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(kvBucket)
		if r.maxBytes > 0 {
			used := 0
			if err := b.ForEach(func(k, v []byte) error {
				if string(k) != key {
					used += len(k) + len(v)
				}
				return nil
			}); err != nil {
				return err
			}
			if used+len(key)+len(value) > r.maxBytes {
				return chaterr.ErrStorageQuotaExceeded
			}
		}
		return b.Put([]byte(key), []byte(value))
	})
	if errors.Is(err, chaterr.ErrStorageQuotaExceeded) {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return err
}

func (r *KeyValueBoltRepository) Delete(_ context.Context, key string) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(kvBucket).Delete([]byte(key))
	})
}

package redisstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	domain "github.com/Zhima-Mochi/inventory-tracker/internal/domain/inventory"
)

const DefaultKey = "inventory"

// RedisStore keeps the snapshot document under a single string key.
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultKey
	}
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Location() string {
	return "redis://" + s.client.Options().Addr + "/" + s.key
}

func (s *RedisStore) Load(ctx context.Context) (domain.Snapshot, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redisstore: get %s: %w", s.key, domain.ErrSnapshotNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("redisstore: get: %w", err)
	}

	snap, err := domain.DecodeSnapshot(data)
	if err != nil {
		return nil, fmt.Errorf("redisstore: decode %s: %w", s.key, err)
	}
	return snap, nil
}

// Save replaces the key in one SET, which Redis applies atomically.
func (s *RedisStore) Save(ctx context.Context, snap domain.Snapshot) error {
	data, err := snap.Encode()
	if err != nil {
		return fmt.Errorf("redisstore: encode: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redisstore: set: %w", err)
	}
	return nil
}

var _ domain.SnapshotStore = (*RedisStore)(nil)

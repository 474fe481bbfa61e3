package idempotency

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Clientは*redis.Clientのうち使う部分
type Client interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type Store struct {
	rdb Client
	ttl time.Duration
}

func NewStore(rdb Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

// Seenは初回ならfalseを返してキーを確保する
func (s *Store) Seen(ctx context.Context, key string) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, key, "1", s.ttl).Result()
	if err != nil {
		return false, err
	}

	return !ok, nil
}

// Releaseは失敗したリクエストのキーを消して再送できるようにする
func (s *Store) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

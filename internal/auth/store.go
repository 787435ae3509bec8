package auth

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var errKeyNotFound = errors.New("key not found")

// TokenStore keeps short-lived tokens (sessions, password resets).
type TokenStore interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, key string) error
	// AddMember adds member to the set at key and resets its TTL.
	AddMember(ctx context.Context, key, member string, ttl time.Duration) error
	Members(ctx context.Context, key string) ([]string, error)
}

type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.rdb.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", errKeyNotFound
	}
	return v, err
}

func (s *RedisStore) Del(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

func (s *RedisStore) AddMember(ctx context.Context, key, member string, ttl time.Duration) error {
	pipe := s.rdb.TxPipeline()
	pipe.SAdd(ctx, key, member)
	pipe.Expire(ctx, key, ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Members(ctx context.Context, key string) ([]string, error) {
	return s.rdb.SMembers(ctx, key).Result()
}

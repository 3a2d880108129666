package nonce

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const noncePrefix = "nonce:"

// RedisStore backs the challenge table with a shared key-value store so that
// GETDEL keeps consumption atomic across horizontally scaled instances.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedis(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: TTL}
}

func (s *RedisStore) Issue(ctx context.Context, address string) (Record, error) {
	value, err := randomHex()
	if err != nil {
		return Record{}, err
	}
	key := noncePrefix + strings.ToLower(address)
	if err := s.rdb.Set(ctx, key, value, s.ttl).Err(); err != nil {
		return Record{}, err
	}
	return Record{Value: value, ExpiresAt: time.Now().Add(s.ttl)}, nil
}

func (s *RedisStore) Get(ctx context.Context, address string) (Record, error) {
	key := noncePrefix + strings.ToLower(address)
	value, err := s.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	ttl, err := s.rdb.PTTL(ctx, key).Result()
	if err != nil {
		return Record{}, err
	}
	return Record{Value: value, ExpiresAt: time.Now().Add(ttl)}, nil
}

func (s *RedisStore) Consume(ctx context.Context, address string) error {
	key := noncePrefix + strings.ToLower(address)
	if err := s.rdb.GetDel(ctx, key).Err(); err == redis.Nil {
		return ErrNotFound
	} else if err != nil {
		return err
	}
	return nil
}

package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps one sorted set per (action, address) scored by attempt time in
// milliseconds. Keys expire after ttl so idle pairs vanish without a sweep.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore builds a store. ttl should cover the longest policy window.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "rl"
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) key(action, addr string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, action, addr)
}

func (s *RedisStore) CountSince(ctx context.Context, action, addr string, since time.Time) (int, error) {
	lower := "(" + strconv.FormatInt(since.UnixMilli(), 10)
	count, err := s.client.ZCount(ctx, s.key(action, addr), lower, "+inf").Result()
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (s *RedisStore) Record(ctx context.Context, action, addr string, at time.Time) error {
	key := s.key(action, addr)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, key, redis.Z{Score: float64(at.UnixMilli()), Member: uuid.NewString()})
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	return err
}

func (s *RedisStore) Clear(ctx context.Context, action, addr string) error {
	return s.client.Del(ctx, s.key(action, addr)).Err()
}

func (s *RedisStore) PurgeBefore(ctx context.Context, before time.Time) (int64, error) {
	upper := strconv.FormatInt(before.UnixMilli(), 10)
	var removed int64
	iter := s.client.Scan(ctx, 0, s.prefix+":*", 100).Iterator()
	for iter.Next(ctx) {
		n, err := s.client.ZRemRangeByScore(ctx, iter.Val(), "-inf", upper).Result()
		if err != nil {
			return removed, err
		}
		removed += n
	}
	return removed, iter.Err()
}

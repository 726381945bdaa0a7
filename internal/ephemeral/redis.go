package ephemeral

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on a single Redis instance.
type RedisStore struct {
	client *redis.Client
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects to the Redis instance named by redisURL. The client
// retries dropped connections with bounded exponential backoff; individual
// commands that still fail surface ErrUnavailable.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.MaxRetries = 5
	opts.MinRetryBackoff = 100 * time.Millisecond
	opts.MaxRetryBackoff = 3 * time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

// wrap converts transport-level failures into ErrUnavailable. redis.Nil is
// "absent", never an error.
func wrap(err error) error {
	if err == nil || errors.Is(err, redis.Nil) {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return wrap(s.client.Set(ctx, key, value, ttl).Err())
}

func (s *RedisStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, value, ttl).Result()
	return ok, wrap(err)
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, wrap(err)
	}
	return val, true, nil
}

func (s *RedisStore) MGet(ctx context.Context, keys ...string) ([]*string, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, wrap(err)
	}
	out := make([]*string, len(vals))
	for i, v := range vals {
		if str, ok := v.(string); ok {
			out[i] = &str
		}
	}
	return out, nil
}

func (s *RedisStore) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return wrap(s.client.Del(ctx, keys...).Err())
}

func (s *RedisStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := s.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, wrap(err)
	}
	return d, nil
}

func (s *RedisStore) RPush(ctx context.Context, key string, values ...string) error {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return wrap(s.client.RPush(ctx, key, args...).Err())
}

func (s *RedisStore) LRange(ctx context.Context, key string) ([]string, error) {
	vals, err := s.client.LRange(ctx, key, 0, -1).Result()
	return vals, wrap(err)
}

func (s *RedisStore) LRemAll(ctx context.Context, key string, values ...string) error {
	if len(values) == 0 {
		return nil
	}
	pipe := s.client.Pipeline()
	for _, v := range values {
		pipe.LRem(ctx, key, 0, v)
	}
	_, err := pipe.Exec(ctx)
	return wrap(err)
}

func (s *RedisStore) SAdd(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	return wrap(s.client.SAdd(ctx, key, args...).Err())
}

func (s *RedisStore) SRem(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	return wrap(s.client.SRem(ctx, key, args...).Err())
}

func (s *RedisStore) SMembers(ctx context.Context, key string) ([]string, error) {
	vals, err := s.client.SMembers(ctx, key).Result()
	return vals, wrap(err)
}

func (s *RedisStore) SIsMemberBatch(ctx context.Context, pairs []SetMember) ([]bool, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	pipe := s.client.Pipeline()
	cmds := make([]*redis.BoolCmd, len(pairs))
	for i, p := range pairs {
		cmds[i] = pipe.SIsMember(ctx, p.Key, p.Member)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, wrap(err)
	}
	out := make([]bool, len(pairs))
	for i, cmd := range cmds {
		out[i] = cmd.Val()
	}
	return out, nil
}

func (s *RedisStore) HSet(ctx context.Context, key, field, value string) error {
	return wrap(s.client.HSet(ctx, key, field, value).Err())
}

func (s *RedisStore) HDel(ctx context.Context, key string, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	return wrap(s.client.HDel(ctx, key, fields...).Err())
}

func (s *RedisStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	vals, err := s.client.HGetAll(ctx, key).Result()
	return vals, wrap(err)
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return wrap(s.client.Ping(ctx).Err())
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

package storage

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisOptions configures the redis store.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string

	// Timeout bounds each command; zero uses 5s.
	Timeout time.Duration
}

// Redis is a go-redis backed store.
type Redis struct {
	rdb    *redis.Client
	prefix string
}

// NewRedis connects and pings the server.
func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	if opts.Addr == "" {
		opts.Addr = "localhost:6379"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.Timeout,
		ReadTimeout:  opts.Timeout,
		WriteTimeout: opts.Timeout,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return &Redis{rdb: rdb, prefix: opts.Prefix}, nil
}

// NewRedisClient wraps an existing client.
func NewRedisClient(rdb *redis.Client, prefix string) *Redis {
	return &Redis{rdb: rdb, prefix: prefix}
}

// Get returns the value for key.
func (r *Redis) Get(ctx context.Context, key string) (any, bool, error) {
	if err := checkKey(key); err != nil {
		return nil, false, err
	}
	raw, err := r.rdb.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	v, err := decode(raw)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// Set stores value under key.
func (r *Redis) Set(ctx context.Context, key string, value any) error {
	if err := checkKey(key); err != nil {
		return err
	}
	raw, err := encode(value)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, r.prefix+key, raw, 0).Err()
}

// Delete removes key.
func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	return r.rdb.Del(ctx, r.prefix+key).Err()
}

// Clear removes every key under the prefix.
func (r *Redis) Clear(ctx context.Context) error {
	iter := r.rdb.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return r.rdb.Del(ctx, keys...).Err()
}

// Close closes the client.
func (r *Redis) Close() error {
	return r.rdb.Close()
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrUnknownBackend is returned by Open for unsupported backends.
var ErrUnknownBackend = errors.New("unknown storage backend")

// ErrEmptyKey is returned for empty keys.
var ErrEmptyKey = errors.New("storage key is empty")

// Backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Store is a session-scoped key/value store.
type Store interface {
	Get(ctx context.Context, key string) (any, bool, error)
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Close() error
}

// Options select and configure a backend.
type Options struct {
	// Backend is "memory" or "redis".
	Backend string

	// Path is the buntdb data file; empty or ":memory:" keeps data in memory.
	Path string

	// RedisAddr is host:port for the redis backend.
	RedisAddr string

	// RedisPassword and RedisDB select the redis database.
	RedisPassword string
	RedisDB       int

	// Prefix namespaces every key, typically "dashwire:<dashboardId>:".
	Prefix string
}

// Open creates the configured store.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendMemory:
		m, err := NewMemory(opts.Path, opts.Prefix)
		if err != nil {
			return nil, err
		}
		return m, nil
	case BackendRedis:
		r, err := NewRedis(ctx, RedisOptions{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
			Prefix:   opts.Prefix,
		})
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}

// SessionPrefix returns the key prefix for a dashboard session.
func SessionPrefix(dashboardID string) string {
	if dashboardID == "" {
		dashboardID = "default"
	}
	return "dashwire:" + dashboardID + ":"
}

func encode(value any) (string, error) {
	data, err := codec.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("encode value: %w", err)
	}
	return string(data), nil
}

func decode(raw string) (any, error) {
	var v any
	if err := codec.UnmarshalFromString(raw, &v); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	return v, nil
}

func checkKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrEmptyKey
	}
	return nil
}

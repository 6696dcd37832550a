package storage

import (
	"context"
	"errors"
	"strings"

	"github.com/tidwall/buntdb"
)

// Memory is a buntdb-backed store.
type Memory struct {
	db     *buntdb.DB
	prefix string
}

// NewMemory opens a store. An empty path keeps data in memory.
func NewMemory(path, prefix string) (*Memory, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, err
	}
	return &Memory{db: db, prefix: prefix}, nil
}

// Get returns the value for key.
func (m *Memory) Get(_ context.Context, key string) (any, bool, error) {
	if err := checkKey(key); err != nil {
		return nil, false, err
	}

	var raw string
	err := m.db.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(m.prefix + key)
		raw = v
		return err
	})
	if errors.Is(err, buntdb.ErrNotFound) {
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
func (m *Memory) Set(_ context.Context, key string, value any) error {
	if err := checkKey(key); err != nil {
		return err
	}
	raw, err := encode(value)
	if err != nil {
		return err
	}
	return m.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(m.prefix+key, raw, nil)
		return err
	})
}

// Delete removes key. Missing keys are not an error.
func (m *Memory) Delete(_ context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	err := m.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(m.prefix + key)
		return err
	})
	if errors.Is(err, buntdb.ErrNotFound) {
		return nil
	}
	return err
}

// Clear removes every key under the prefix.
func (m *Memory) Clear(_ context.Context) error {
	return m.db.Update(func(tx *buntdb.Tx) error {
		var keys []string
		err := tx.AscendKeys(m.prefix+"*", func(k, _ string) bool {
			if strings.HasPrefix(k, m.prefix) {
				keys = append(keys, k)
			}
			return true
		})
		if err != nil {
			return err
		}
		for _, k := range keys {
			if _, err := tx.Delete(k); err != nil && !errors.Is(err, buntdb.ErrNotFound) {
				return err
			}
		}
		return nil
	})
}

// Keys returns the stored keys without the prefix, in order.
func (m *Memory) Keys() ([]string, error) {
	var keys []string
	err := m.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(m.prefix+"*", func(k, _ string) bool {
			keys = append(keys, strings.TrimPrefix(k, m.prefix))
			return true
		})
	})
	return keys, err
}

// Close closes the database.
func (m *Memory) Close() error {
	return m.db.Close()
}

// Fernweh - Resilient Place Discovery
// Copyright 2026 Fernweh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fernweh-app/fernweh

package geocache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// backingKeyPrefix namespaces cache keys in the shared badger database so
// they cannot collide with unrelated application data.
const backingKeyPrefix = "geocache:"

// ErrNotFound is returned by BackingStore.Get when no entry exists.
var ErrNotFound = errors.New("geocache: entry not found")

// BackingStore is the slower durable tier behind the in-memory fast tier.
// Every fast-tier write is mirrored here and cold lookups consult it. All
// failures are swallowed by the Cache; implementations just report them.
type BackingStore interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Set(ctx context.Context, key string, entry *Entry) error
	Delete(ctx context.Context, key string) error

	// PurgeDead removes entries whose soft-expiry has passed and returns
	// how many were removed.
	PurgeDead(ctx context.Context, now time.Time) (int, error)

	Close() error
}

// BadgerStore implements BackingStore on a badger key-value database.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens a badger-backed store at path. An empty path opens an
// in-memory database, which tests and cache-less deployments use.
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// NewBadgerStoreWithDB wraps an already-open badger database.
func NewBadgerStoreWithDB(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// Get retrieves an entry by key.
func (s *BadgerStore) Get(ctx context.Context, key string) (*Entry, error) {
	var entry Entry

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(backingKeyPrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get entry: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Set stores an entry. Badger's own TTL doubles as a safety net: the key
// disappears shortly after soft-expiry even if the janitor never runs.
func (s *BadgerStore) Set(ctx context.Context, key string, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	ttl := time.Until(entry.SoftExpiry) + time.Hour
	if ttl <= 0 {
		return nil
	}

	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(backingKeyPrefix+key), data).WithTTL(ttl)
		return txn.SetEntry(e)
	})
}

// Delete removes an entry by key.
func (s *BadgerStore) Delete(ctx context.Context, key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(backingKeyPrefix + key))
	})
}

// PurgeDead scans the cache namespace and removes soft-expired entries.
func (s *BadgerStore) PurgeDead(ctx context.Context, now time.Time) (int, error) {
	var dead [][]byte

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(backingKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			item := it.Item()
			var entry Entry
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			})
			if err != nil || entry.Dead(now) {
				dead = append(dead, item.KeyCopy(nil))
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, key := range dead {
		err := s.db.Update(func(txn *badger.Txn) error {
			return txn.Delete(key)
		})
		if err != nil {
			return len(dead), fmt.Errorf("purge entry: %w", err)
		}
	}

	return len(dead), nil
}

// Close closes the underlying badger database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

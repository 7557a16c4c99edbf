package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v3"

	"github.com/starford/quire/internal/apperr"
)

// Badger implements Store on an embedded Badger database.
type Badger struct {
	db *badger.DB
}

// OpenBadger opens the Badger database described by cfg.
func OpenBadger(cfg BadgerConfig) (*Badger, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("kv: open badger: %w", err)
	}
	return &Badger{db: db}, nil
}

// Get returns the value stored at key.
func (b *Badger) Get(_ context.Context, key string) ([]byte, error) {
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("kv: get %s: %w", key, err)
	}
	return value, nil
}

// Put stores value at key.
func (b *Badger) Put(_ context.Context, key string, value []byte) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("kv: put %s: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (b *Badger) Delete(_ context.Context, key string) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("kv: delete %s: %w", key, err)
	}
	return nil
}

// Keys returns every key starting with prefix. Badger iterates in byte order.
func (b *Badger) Keys(_ context.Context, prefix string) ([]string, error) {
	out := []string{}
	p := []byte(prefix)
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = p
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			out = append(out, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("kv: keys: %w", err)
	}
	return out, nil
}

// Close closes the database.
func (b *Badger) Close() error {
	return b.db.Close()
}

// Package kv is the metadata store: string keys mapped to JSON records, with
// interchangeable backends.
package kv

import (
	"context"
	"encoding/json"
	"fmt"
)

// Key layout shared by every backend.
const (
	ConfigKey  = "config"
	NotePrefix = "note:"
)

// NoteKey returns the record key of the note with the given id.
func NoteKey(id string) string {
	return NotePrefix + id
}

// Store is the metadata store contract.
//
// Get returns apperr.ErrNotFound for a missing key. Delete of a missing key is
// not an error. Keys returns every key starting with prefix in lexical order.
// Stores give per-key consistency only; there are no cross-key transactions.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// GetJSON loads the record at key into a new T.
func GetJSON[T any](ctx context.Context, s Store, key string) (*T, error) {
	data, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("kv: decode %s: %w", key, err)
	}
	return &v, nil
}

// PutJSON stores v as JSON under key.
func PutJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("kv: encode %s: %w", key, err)
	}
	return s.Put(ctx, key, data)
}

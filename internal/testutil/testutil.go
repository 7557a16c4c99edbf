// Package testutil provides shared test helpers for metadata and blob stores.
package testutil

import (
	"os"
	"testing"

	"github.com/starford/quire/internal/kv"
	"github.com/starford/quire/internal/storage"
)

// TestKV creates an in-memory Badger store that is closed on cleanup.
func TestKV(t *testing.T) kv.Store {
	t.Helper()
	s, err := kv.OpenBadger(kv.BadgerConfig{InMemory: true})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestSQLite creates a temporary SQLite store that is removed on cleanup.
func TestSQLite(t *testing.T) kv.Store {
	t.Helper()
	f, err := os.CreateTemp("", "quire-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	s, err := kv.OpenSQLite(f.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestBlobs creates a temporary blob directory with a storage.Provider.
func TestBlobs(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, fs
}

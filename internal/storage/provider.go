// Package storage is the blob store for note attachments.
package storage

import (
	"context"
	"io"
	"time"
)

// Object is a stored attachment opened for reading. Callers must close Body.
type Object struct {
	Body        io.ReadCloser
	ContentType string
	// ETag is a quoted entity tag usable as an HTTP cache validator.
	ETag    string
	Size    int64
	ModTime time.Time
}

// Provider is the interface for attachment storage.
type Provider interface {
	// Put stores the content of r under name.
	Put(ctx context.Context, name string, r io.Reader, contentType string) error
	// Get opens the attachment stored under name. A missing name yields
	// apperr.ErrNotFound.
	Get(ctx context.Context, name string) (*Object, error)
	// Delete removes the attachment. Deleting a missing name is not an error.
	Delete(ctx context.Context, name string) error
}

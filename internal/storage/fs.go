package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path/filepath"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/checksum"
)

// metaDir holds one JSON sidecar per attachment. Dot-names are never valid
// attachment names, so it cannot collide with a blob.
const metaDir = ".meta"

type fsMeta struct {
	ContentType string `json:"content_type"`
	Checksum    string `json:"checksum"`
	Size        int64  `json:"size"`
}

// FS implements Provider backed by a local directory.
type FS struct {
	root string // absolute path to the attachments directory
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	if err := os.MkdirAll(filepath.Join(abs, metaDir), 0o755); err != nil {
		return nil, fmt.Errorf("storage: mkdir meta: %w", err)
	}
	return &FS{root: abs}, nil
}

func (f *FS) blobPath(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	return filepath.Join(f.root, name), nil
}

func (f *FS) metaPath(name string) string {
	return filepath.Join(f.root, metaDir, name+".json")
}

// Put atomically writes the attachment, then its metadata sidecar.
func (f *FS) Put(_ context.Context, name string, r io.Reader, contentType string) error {
	abs, err := f.blobPath(name)
	if err != nil {
		return err
	}
	cr := checksum.NewReader(r)
	if err := writeAtomic(abs, cr); err != nil {
		return err
	}
	meta, err := json.Marshal(fsMeta{ContentType: contentType, Checksum: cr.Sum(), Size: cr.Size()})
	if err != nil {
		return fmt.Errorf("storage: encode meta: %w", err)
	}
	return writeAtomic(f.metaPath(name), bytes.NewReader(meta))
}

// Get opens the attachment for reading.
func (f *FS) Get(_ context.Context, name string) (*Object, error) {
	abs, err := f.blobPath(name)
	if err != nil {
		return nil, apperr.ErrNotFound
	}
	file, err := os.Open(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", name, err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("storage: stat %s: %w", name, err)
	}

	obj := &Object{
		Body:    file,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
	var meta fsMeta
	if data, err := os.ReadFile(f.metaPath(name)); err == nil && json.Unmarshal(data, &meta) == nil {
		obj.ContentType = meta.ContentType
		if meta.Checksum != "" {
			obj.ETag = checksum.ETag(meta.Checksum)
		}
	}
	if obj.ContentType == "" {
		obj.ContentType = mime.TypeByExtension(filepath.Ext(name))
	}
	if obj.ETag == "" {
		// Sidecar lost: fall back to a weak validator.
		obj.ETag = fmt.Sprintf(`W/"%x-%x"`, info.ModTime().UnixNano(), info.Size())
	}
	return obj, nil
}

// Delete removes the attachment and its sidecar. Missing files are ignored.
func (f *FS) Delete(_ context.Context, name string) error {
	abs, err := f.blobPath(name)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: delete %s: %w", name, err)
	}
	if err := os.Remove(f.metaPath(name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: delete meta %s: %w", name, err)
	}
	return nil
}

// writeAtomic writes content: tmp file → fsync → rename.
func writeAtomic(abs string, r io.Reader) error {
	dir := filepath.Dir(abs)
	tmp, err := os.CreateTemp(dir, ".quire-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := io.Copy(tmp, r); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

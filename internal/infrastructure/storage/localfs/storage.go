// Package localfs stores uploaded document blobs on the local filesystem,
// sharded by key prefix so a single directory never accumulates every upload.
package localfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

type Storage struct {
	basePath string
}

func New(basePath string) (*Storage, error) {
	if basePath == "" {
		basePath = "./data/storage"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Storage{basePath: basePath}, nil
}

// objectPath shards objects into two-character prefix directories. Keys start
// with the document id, so uploads spread evenly across shards.
func (s *Storage) objectPath(key string) string {
	shard := "00"
	if len(key) >= 2 {
		shard = key[:2]
	}
	return filepath.Join(s.basePath, shard, key)
}

// Save writes the object to a temp file and renames it into place, so a
// concurrently extracting worker never observes a half-written document.
func (s *Storage) Save(_ context.Context, key string, data io.Reader) error {
	path := s.objectPath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create shard dir for %q: %w", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file for %q: %w", key, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, data); err != nil {
		tmp.Close()
		return fmt.Errorf("write object %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("flush object %q: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("publish object %q: %w", key, err)
	}
	return nil
}

func (s *Storage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(s.objectPath(key))
	if err != nil {
		return nil, fmt.Errorf("open object %q: %w", key, err)
	}
	return f, nil
}

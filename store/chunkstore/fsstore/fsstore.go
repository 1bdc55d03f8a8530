// Package fsstore implements chunkstore.ChunkStore on the local
// filesystem, one file per chunk hash under a two-level fan-out
// directory to keep any single directory from growing unbounded.
package fsstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/marmos91/driftvault/store/chunkstore"
)

// Store stores chunk bytes as files under basePath.
type Store struct {
	basePath string
}

// New creates a Store rooted at basePath, creating it if absent.
func New(ctx context.Context, basePath string) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("fsstore: create base directory: %w", err)
	}

	return &Store{basePath: basePath}, nil
}

// path returns basePath/<first 2 hex chars>/<full hex hash>.
func (s *Store) path(hash chunkstore.Hash) string {
	hex := hash.String()
	return filepath.Join(s.basePath, hex[:2], hex)
}

// Get reads the chunk stored under hash.
func (s *Store) Get(ctx context.Context, hash chunkstore.Hash) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, chunkstore.ErrNotFound
		}
		return nil, fmt.Errorf("fsstore: read chunk: %w", err)
	}
	return data, nil
}

// Put writes data under hash, replacing any existing file atomically
// via a temp-file-then-rename to avoid readers observing a partial write.
func (s *Store) Put(ctx context.Context, hash chunkstore.Hash, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dst := s.path(hash)
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("fsstore: create chunk directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "chunk-*.tmp")
	if err != nil {
		return fmt.Errorf("fsstore: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("fsstore: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("fsstore: close temp file: %w", err)
	}

	if err := os.Rename(tmpName, dst); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("fsstore: rename temp file: %w", err)
	}

	return nil
}

// Delete removes the chunk stored under hash.
func (s *Store) Delete(ctx context.Context, hash chunkstore.Hash) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Remove(s.path(hash)); err != nil {
		if os.IsNotExist(err) {
			return chunkstore.ErrNotFound
		}
		return fmt.Errorf("fsstore: delete chunk: %w", err)
	}
	return nil
}

// Package memorystore implements chunkstore.ChunkStore using an
// in-memory map. Intended for tests and ephemeral mounts.
package memorystore

import (
	"context"
	"sync"

	"github.com/marmos91/driftvault/store/chunkstore"
)

// Store is a map-backed ChunkStore. Safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	data map[chunkstore.Hash][]byte
}

// New creates an empty Store.
func New() *Store {
	return &Store{data: make(map[chunkstore.Hash][]byte)}
}

// Get returns a copy of the stored bytes for hash.
func (s *Store) Get(ctx context.Context, hash chunkstore.Hash) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.data[hash]
	if !ok {
		return nil, chunkstore.ErrNotFound
	}

	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Put stores a copy of data under hash, overwriting any existing value.
func (s *Store) Put(ctx context.Context, hash chunkstore.Hash, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cp := make([]byte, len(data))
	copy(cp, data)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[hash] = cp
	return nil
}

// Delete removes the chunk stored under hash.
func (s *Store) Delete(ctx context.Context, hash chunkstore.Hash) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[hash]; !ok {
		return chunkstore.ErrNotFound
	}
	delete(s.data, hash)
	return nil
}

// Package badgerstore implements chunkstore.ChunkStore on an embedded
// BadgerDB, storing chunk bytes directly as values under a "c:"-
// prefixed key namespace - the same prefixed-key design the drive
// core's version store and the wider example corpus use for a
// single-binary durable deployment with no external dependency.
package badgerstore

import (
	"context"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/marmos91/driftvault/store/chunkstore"
)

const prefixChunk = "c:"

// Store stores chunk bytes as BadgerDB values.
type Store struct {
	db *badger.DB
}

// New opens (creating if absent) a BadgerDB at path.
func New(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badgerstore: open database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func key(hash chunkstore.Hash) []byte {
	return []byte(prefixChunk + hash.String())
}

// Get returns the chunk stored under hash.
func (s *Store) Get(ctx context.Context, hash chunkstore.Hash) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(hash))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			out = append([]byte(nil), val...)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, chunkstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("badgerstore: get chunk: %w", err)
	}

	return out, nil
}

// Put stores data under hash.
func (s *Store) Put(ctx context.Context, hash chunkstore.Hash, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(hash), data)
	})
	if err != nil {
		return fmt.Errorf("badgerstore: put chunk: %w", err)
	}
	return nil
}

// Delete removes the chunk stored under hash.
func (s *Store) Delete(ctx context.Context, hash chunkstore.Hash) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key(hash)); err != nil {
			return err
		}
		return txn.Delete(key(hash))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return chunkstore.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("badgerstore: delete chunk: %w", err)
	}
	return nil
}

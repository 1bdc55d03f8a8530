// Package badgerstore implements versionstore.VersionStore on an
// embedded BadgerDB, storing each directory's version chain as a
// single CBOR-encoded value under a "v:"-prefixed key - mirroring the
// prefixed key-namespace design used throughout the drive core's
// BadgerDB-backed stores.
package badgerstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/marmos91/driftvault/store/versionstore"
)

const prefixVersions = "v:"

// Store persists version chains in BadgerDB.
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

func key(directoryID uuid.UUID) []byte {
	return []byte(prefixVersions + directoryID.String())
}

// Append records version as the new head for directoryID, evicting
// the tail once the chain exceeds maxVersions.
func (s *Store) Append(ctx context.Context, directoryID uuid.UUID, version versionstore.VersionName, maxVersions int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		var chain []versionstore.VersionName

		item, err := txn.Get(key(directoryID))
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			// No prior history: chain starts empty.
		case err != nil:
			return err
		default:
			if err := item.Value(func(val []byte) error {
				return cbor.Unmarshal(val, &chain)
			}); err != nil {
				return fmt.Errorf("decode existing version chain: %w", err)
			}
		}

		chain = append([]versionstore.VersionName{version}, chain...)
		if maxVersions > 0 && len(chain) > maxVersions {
			chain = chain[:maxVersions]
		}

		encoded, err := cbor.Marshal(chain)
		if err != nil {
			return fmt.Errorf("encode version chain: %w", err)
		}

		return txn.Set(key(directoryID), encoded)
	})
}

// History returns the chain for directoryID, most-recent first. An
// unknown directoryID returns an empty slice.
func (s *Store) History(ctx context.Context, directoryID uuid.UUID) ([]versionstore.VersionName, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var chain []versionstore.VersionName

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(directoryID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return cbor.Unmarshal(val, &chain)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("badgerstore: read version chain: %w", err)
	}

	return chain, nil
}

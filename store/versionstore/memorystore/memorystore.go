// Package memorystore implements versionstore.VersionStore in memory,
// for tests and ephemeral mounts.
package memorystore

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/marmos91/driftvault/store/versionstore"
)

// Store is a map-backed VersionStore. Safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	versions map[uuid.UUID][]versionstore.VersionName // most-recent first
}

// New creates an empty Store.
func New() *Store {
	return &Store{versions: make(map[uuid.UUID][]versionstore.VersionName)}
}

// Append records version as the new head, evicting the tail once the
// chain exceeds maxVersions.
func (s *Store) Append(ctx context.Context, directoryID uuid.UUID, version versionstore.VersionName, maxVersions int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	chain := append([]versionstore.VersionName{version}, s.versions[directoryID]...)
	if maxVersions > 0 && len(chain) > maxVersions {
		chain = chain[:maxVersions]
	}
	s.versions[directoryID] = chain

	return nil
}

// History returns the chain for directoryID, most-recent first.
func (s *Store) History(ctx context.Context, directoryID uuid.UUID) ([]versionstore.VersionName, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	chain := s.versions[directoryID]
	out := make([]versionstore.VersionName, len(chain))
	copy(out, chain)
	return out, nil
}

// Package versionstore defines the structured-version contract: an
// append-only, bounded per-directory chain of version names, each
// tying a monotonic index to a content hash of a serialized directory
// snapshot.
package versionstore

import (
	"context"

	"github.com/google/uuid"

	"github.com/marmos91/driftvault/store/chunkstore"
)

// VersionName identifies one historical snapshot of a directory.
type VersionName struct {
	Index       uint64
	ContentHash chunkstore.Hash
}

// VersionStore persists, per directory, a bounded, most-recent-first
// chain of VersionNames. Implementations enforce their own history cap
// independently of (but normally equal to) the in-memory Directory's
// own MaxVersions.
type VersionStore interface {
	// Append records version as the new head for directoryID, evicting
	// the oldest entry if the chain would otherwise exceed maxVersions.
	Append(ctx context.Context, directoryID uuid.UUID, version VersionName, maxVersions int) error

	// History returns the chain for directoryID, most-recent first. An
	// unknown directoryID returns an empty slice, not an error.
	History(ctx context.Context, directoryID uuid.UUID) ([]VersionName, error)
}

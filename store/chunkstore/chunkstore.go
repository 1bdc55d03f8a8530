// Package chunkstore defines the content-addressed blob store contract
// consumed by the streaming encryptor, plus a content-hash type shared
// by every backend.
package chunkstore

import (
	"context"
	"encoding/hex"
	"errors"
)

// HashSize is the digest size of the content hash used to key chunks.
const HashSize = 32

// Hash identifies a chunk by the content hash of its ciphertext.
type Hash [HashSize]byte

// String renders the hash as lowercase hex, used as the on-disk / S3
// object key and the BadgerDB key suffix.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// ErrNotFound is returned by Get and Delete when the hash is absent.
var ErrNotFound = errors.New("chunkstore: chunk not found")

// ChunkStore is a content-addressed blob store keyed by cryptographic
// hash. Put is idempotent: storing the same hash twice with the same
// bytes is a no-op from the caller's perspective. Get returns the exact
// bytes previously stored. Delete removes a chunk by key.
type ChunkStore interface {
	Get(ctx context.Context, hash Hash) ([]byte, error)
	Put(ctx context.Context, hash Hash, data []byte) error
	Delete(ctx context.Context, hash Hash) error
}

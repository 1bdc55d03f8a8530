package memorystore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/driftvault/store/chunkstore"
)

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New()

	hash := chunkstore.Hash{1, 2, 3}
	require.NoError(t, s.Put(ctx, hash, []byte("payload")))

	got, err := s.Get(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)
}

func TestGetMissingReturnsErrNotFound(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.Get(ctx, chunkstore.Hash{9})
	assert.ErrorIs(t, err, chunkstore.ErrNotFound)
}

func TestDeleteMissingReturnsErrNotFound(t *testing.T) {
	ctx := context.Background()
	s := New()

	assert.ErrorIs(t, s.Delete(ctx, chunkstore.Hash{9}), chunkstore.ErrNotFound)
}

func TestDeleteRemovesChunk(t *testing.T) {
	ctx := context.Background()
	s := New()
	hash := chunkstore.Hash{5}

	require.NoError(t, s.Put(ctx, hash, []byte("x")))
	require.NoError(t, s.Delete(ctx, hash))

	_, err := s.Get(ctx, hash)
	assert.ErrorIs(t, err, chunkstore.ErrNotFound)
}

func TestGetReturnsIndependentCopy(t *testing.T) {
	ctx := context.Background()
	s := New()
	hash := chunkstore.Hash{7}

	original := []byte("hello")
	require.NoError(t, s.Put(ctx, hash, original))
	original[0] = 'X'

	got, err := s.Get(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got), "Put must copy its input rather than alias it")
}

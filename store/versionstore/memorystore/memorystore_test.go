package memorystore

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/driftvault/store/chunkstore"
	"github.com/marmos91/driftvault/store/versionstore"
)

func TestAppendPrependsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := New()
	dirID := uuid.New()

	require.NoError(t, s.Append(ctx, dirID, versionstore.VersionName{Index: 0, ContentHash: chunkstore.Hash{1}}, 0))
	require.NoError(t, s.Append(ctx, dirID, versionstore.VersionName{Index: 1, ContentHash: chunkstore.Hash{2}}, 0))

	history, err := s.History(ctx, dirID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, uint64(1), history[0].Index)
	assert.Equal(t, uint64(0), history[1].Index)
}

func TestAppendTruncatesToMaxVersions(t *testing.T) {
	ctx := context.Background()
	s := New()
	dirID := uuid.New()

	for i := uint64(0); i < 5; i++ {
		require.NoError(t, s.Append(ctx, dirID, versionstore.VersionName{Index: i}, 3))
	}

	history, err := s.History(ctx, dirID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, uint64(4), history[0].Index)
	assert.Equal(t, uint64(2), history[2].Index)
}

func TestHistoryOfUnknownDirectoryIsEmpty(t *testing.T) {
	ctx := context.Background()
	s := New()

	history, err := s.History(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, history)
}

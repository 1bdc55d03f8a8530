package encryptor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/driftvault/store/chunkstore/memorystore"
)

func TestWriteReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := memorystore.New()
	enc := New(store, DataMap{}, 16)

	payload := []byte("the quick brown fox jumps over the lazy dog")
	n, err := enc.Write(ctx, payload, len(payload), 0)
	require.NoError(t, err)
	assert.Equal(t, len(payload), n)

	buf := make([]byte, len(payload))
	n, err = enc.Read(ctx, buf, len(payload), 0)
	require.NoError(t, err)
	assert.Equal(t, len(payload), n)
	assert.Equal(t, payload, buf)
}

func TestFlushAndReopenRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := memorystore.New()

	payload := make([]byte, 40)
	for i := range payload {
		payload[i] = byte(i)
	}

	enc := New(store, DataMap{}, 16)
	_, err := enc.Write(ctx, payload, len(payload), 0)
	require.NoError(t, err)
	require.NoError(t, enc.Flush(ctx))

	dataMap := enc.DataMap()
	assert.Len(t, dataMap.Chunks, 2, "40 bytes at a 16-byte chunk size leaves two full chunks and a tail")
	assert.Equal(t, uint64(40), dataMap.Size())

	reopened := New(store, dataMap, 16)
	buf := make([]byte, len(payload))
	n, err := reopened.Read(ctx, buf, len(payload), 0)
	require.NoError(t, err)
	assert.Equal(t, len(payload), n)
	assert.Equal(t, payload, buf)
}

func TestReadPastEndReturnsZero(t *testing.T) {
	ctx := context.Background()
	store := memorystore.New()
	enc := New(store, DataMap{}, 16)

	_, err := enc.Write(ctx, []byte("hi"), 2, 0)
	require.NoError(t, err)

	buf := make([]byte, 10)
	n, err := enc.Read(ctx, buf, 10, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestReadClampsToAvailableBytes(t *testing.T) {
	ctx := context.Background()
	store := memorystore.New()
	enc := New(store, DataMap{}, 16)

	_, err := enc.Write(ctx, []byte("hello"), 5, 0)
	require.NoError(t, err)

	buf := make([]byte, 100)
	n, err := enc.Read(ctx, buf, 100, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "llo", string(buf[:n]))
}

func TestWriteGrowsAndZeroFillsGap(t *testing.T) {
	ctx := context.Background()
	store := memorystore.New()
	enc := New(store, DataMap{}, 16)

	_, err := enc.Write(ctx, []byte("AB"), 2, 10)
	require.NoError(t, err)

	size, err := enc.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(12), size)

	buf := make([]byte, 12)
	_, err = enc.Read(ctx, buf, 12, 0)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 10), buf[:10])
	assert.Equal(t, []byte("AB"), buf[10:])
}

func TestIdenticalChunksDeduplicateInStore(t *testing.T) {
	ctx := context.Background()
	store := memorystore.New()

	block := make([]byte, 16)
	for i := range block {
		block[i] = 0x42
	}
	payload := append(append([]byte{}, block...), block...)

	enc := New(store, DataMap{}, 16)
	_, err := enc.Write(ctx, payload, len(payload), 0)
	require.NoError(t, err)
	require.NoError(t, enc.Flush(ctx))

	dataMap := enc.DataMap()
	require.Len(t, dataMap.Chunks, 2)
	assert.Equal(t, dataMap.Chunks[0].Hash, dataMap.Chunks[1].Hash, "identical plaintext chunks converge to the same ciphertext hash")
}

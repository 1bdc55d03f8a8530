package drive

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/driftvault/internal/driveerr"
	"github.com/marmos91/driftvault/internal/metrics"
	"github.com/marmos91/driftvault/store/chunkstore"
	"github.com/marmos91/driftvault/store/chunkstore/memorystore"
	versionmemory "github.com/marmos91/driftvault/store/versionstore/memorystore"
)

func newTestDrive(t *testing.T) *Drive {
	t.Helper()

	cfg := Config{
		Workers:                  2,
		MaxVersions:              5,
		HandlerCacheSize:         1024,
		DirectoryInactivityDelay: 5 * time.Millisecond,
		FileInactivityDelay:      time.Hour,
		ChunkSize:                4096,
	}

	d, err := New(memorystore.New(), versionmemory.New(), cfg, metrics.NewNoopDriveMetrics())
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close(context.Background()) })

	require.NoError(t, d.Bootstrap(context.Background()))
	return d
}

func TestCreateWriteFlushReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	d := newTestDrive(t)

	_, err := d.Create(ctx, "/a.txt")
	require.NoError(t, err)

	n, err := d.Write(ctx, "/a.txt", []byte("hello world"), 11, 0)
	require.NoError(t, err)
	assert.Equal(t, 11, n)

	require.NoError(t, d.Flush(ctx, "/a.txt"))

	buf := make([]byte, 11)
	n, err = d.Read(ctx, "/a.txt", buf, 11, 0)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(buf[:n]))
}

func TestCreateDirectoryThenCreateFileWithin(t *testing.T) {
	ctx := context.Background()
	d := newTestDrive(t)

	require.NoError(t, d.CreateDirectory(ctx, "/sub"))

	_, err := d.Create(ctx, "/sub/a.txt")
	require.NoError(t, err)

	n, err := d.Write(ctx, "/sub/a.txt", []byte("x"), 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestOpenReleaseRoundTrip(t *testing.T) {
	ctx := context.Background()
	d := newTestDrive(t)

	fc, err := d.Create(ctx, "/a.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(1), fc.OpenCount())

	opened, err := d.Open(ctx, "/a.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(2), opened.OpenCount())

	require.NoError(t, d.Release(ctx, "/a.txt"))
	assert.Equal(t, int64(1), fc.OpenCount())
}

func TestDeleteRemovesFile(t *testing.T) {
	ctx := context.Background()
	d := newTestDrive(t)

	_, err := d.Create(ctx, "/a.txt")
	require.NoError(t, err)

	require.NoError(t, d.Delete(ctx, "/a.txt"))

	_, err = d.GetContext(ctx, "/a.txt")
	assert.True(t, driveerr.Is(err, driveerr.ErrNoSuchFile))
}

func TestRenameWithinSameParent(t *testing.T) {
	ctx := context.Background()
	d := newTestDrive(t)

	_, err := d.Create(ctx, "/old.txt")
	require.NoError(t, err)

	require.NoError(t, d.Rename(ctx, "/old.txt", "/new.txt"))

	_, err = d.GetContext(ctx, "/old.txt")
	assert.True(t, driveerr.Is(err, driveerr.ErrNoSuchFile))

	fc, err := d.GetContext(ctx, "/new.txt")
	require.NoError(t, err)
	assert.Equal(t, "new.txt", fc.MetaData.Name)
}

func TestRenameAcrossParents(t *testing.T) {
	ctx := context.Background()
	d := newTestDrive(t)

	require.NoError(t, d.CreateDirectory(ctx, "/src"))
	require.NoError(t, d.CreateDirectory(ctx, "/dst"))
	_, err := d.Create(ctx, "/src/a.txt")
	require.NoError(t, err)

	require.NoError(t, d.Rename(ctx, "/src/a.txt", "/dst/a.txt"))

	_, err = d.GetContext(ctx, "/src/a.txt")
	assert.True(t, driveerr.Is(err, driveerr.ErrNoSuchFile))

	fc, err := d.GetContext(ctx, "/dst/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "a.txt", fc.MetaData.Name)
}

func TestRenameMovedDirectoryKeepsStoring(t *testing.T) {
	ctx := context.Background()
	d := newTestDrive(t)

	require.NoError(t, d.CreateDirectory(ctx, "/src"))
	require.NoError(t, d.CreateDirectory(ctx, "/dst"))
	require.NoError(t, d.CreateDirectory(ctx, "/src/moved"))

	require.NoError(t, d.Rename(ctx, "/src/moved", "/dst/moved"))

	moved, err := d.handler.Resolve(ctx, "/dst/moved")
	require.NoError(t, err)

	require.NoError(t, d.CreateDirectory(ctx, "/dst/moved/leaf"))
	moved.StoreImmediatelyIfPending()
	require.Eventually(t, func() bool {
		return moved.VersionsCount() > 0
	}, time.Second, time.Millisecond, "a moved directory must still be able to persist new versions")
}

func TestGetPutDeleteChunkPassthrough(t *testing.T) {
	ctx := context.Background()
	d := newTestDrive(t)

	hash := chunkstore.Hash{1, 2, 3}
	require.NoError(t, d.PutChunk(ctx, hash, []byte("payload")))

	got, err := d.GetChunk(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)

	require.NoError(t, d.DeleteChunk(ctx, hash))
	_, err = d.GetChunk(ctx, hash)
	assert.ErrorIs(t, err, chunkstore.ErrNotFound)
}

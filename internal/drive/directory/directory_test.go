package directory

import (
	"bytes"
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/driftvault/internal/drive/filecontext"
	"github.com/marmos91/driftvault/internal/driveerr"
	"github.com/marmos91/driftvault/internal/metrics"
	"github.com/marmos91/driftvault/internal/timer"
	"github.com/marmos91/driftvault/store/chunkstore"
	"github.com/marmos91/driftvault/store/chunkstore/memorystore"
	versionmemory "github.com/marmos91/driftvault/store/versionstore/memorystore"
)

func newTestDeps(t *testing.T, storeCalls *atomic.Int64) (Deps, *timer.Executor) {
	t.Helper()
	executor := timer.NewExecutor(2)
	t.Cleanup(executor.Close)

	chunkStore := memorystore.New()
	versionStore := versionmemory.New()

	deps := Deps{
		Executor:                 executor,
		ChunkStore:               chunkStore,
		VersionStore:             versionStore,
		MaxVersions:              5,
		DirectoryInactivityDelay: 20 * time.Millisecond,
		FileInactivityDelay:      time.Hour,
		ChunkSize:                4096,
		Metrics:                  metrics.NewNoopDriveMetrics(),
	}
	deps.StoreFunc = func(ctx context.Context, d *Directory) error {
		if storeCalls != nil {
			storeCalls.Add(1)
		}
		data, err := d.Serialise(ctx)
		if err != nil {
			return err
		}
		hash := chunkstore.Hash{byte(len(data))}
		if err := chunkStore.Put(ctx, hash, data); err != nil {
			return err
		}
		_, err = d.AddNewVersion(ctx, hash)
		return err
	}

	return deps, executor
}

func newChild(name string) *filecontext.FileContext {
	return filecontext.New(filecontext.MetaData{Name: name}, nil, nil, nil, metrics.NewNoopDriveMetrics(), time.Hour, 4096)
}

func TestNewSchedulesAnInitialStore(t *testing.T) {
	var calls atomic.Int64
	deps, _ := newTestDeps(t, &calls)

	New(uuid.Nil, uuid.New(), deps)

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
}

func TestAddChildRejectsDuplicateNames(t *testing.T) {
	deps, _ := newTestDeps(t, nil)
	d := New(uuid.Nil, uuid.New(), deps)

	require.NoError(t, d.AddChild(newChild("a.txt")))

	err := d.AddChild(newChild("a.txt"))
	require.Error(t, err)
	assert.True(t, driveerr.Is(err, driveerr.ErrFileExists))
}

func TestGetChildReturnsNoSuchFile(t *testing.T) {
	deps, _ := newTestDeps(t, nil)
	d := New(uuid.Nil, uuid.New(), deps)

	_, err := d.GetChild("missing")
	assert.True(t, driveerr.Is(err, driveerr.ErrNoSuchFile))
}

func TestChildrenStaySortedByName(t *testing.T) {
	deps, _ := newTestDeps(t, nil)
	d := New(uuid.Nil, uuid.New(), deps)

	require.NoError(t, d.AddChild(newChild("banana")))
	require.NoError(t, d.AddChild(newChild("apple")))
	require.NoError(t, d.AddChild(newChild("cherry")))

	var names []string
	for c := d.GetChildAndIncrementCounter(); c != nil; c = d.GetChildAndIncrementCounter() {
		names = append(names, c.MetaData.Name)
	}
	assert.Equal(t, []string{"apple", "banana", "cherry"}, names)
}

func TestRemoveChildDetachesEntry(t *testing.T) {
	deps, _ := newTestDeps(t, nil)
	d := New(uuid.Nil, uuid.New(), deps)
	require.NoError(t, d.AddChild(newChild("a.txt")))

	removed, err := d.RemoveChild("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "a.txt", removed.MetaData.Name)
	assert.False(t, d.HasChild("a.txt"))
}

func TestRenameChildUpdatesNameAndOrder(t *testing.T) {
	deps, _ := newTestDeps(t, nil)
	d := New(uuid.Nil, uuid.New(), deps)
	require.NoError(t, d.AddChild(newChild("z.txt")))

	require.NoError(t, d.RenameChild("z.txt", "a.txt"))
	assert.True(t, d.HasChild("a.txt"))
	assert.False(t, d.HasChild("z.txt"))
}

func TestSerialiseExcludesParentID(t *testing.T) {
	deps, _ := newTestDeps(t, nil)
	parentID := uuid.New()
	directoryID := uuid.New()
	d := New(parentID, directoryID, deps)
	require.NoError(t, d.AddChild(newChild("a.txt")))

	data, err := d.Serialise(context.Background())
	require.NoError(t, err)
	assert.False(t, bytes.Contains(data, parentID[:]), "serialized bytes must not carry the parent ID")

	wire, err := decodeWire(data)
	require.NoError(t, err)
	assert.Equal(t, directoryID, wire.DirectoryID)
	require.Len(t, wire.Children, 1)
	assert.Equal(t, "a.txt", wire.Children[0].Name)
}

func TestInitialiseVersionsThenAddNewVersionChain(t *testing.T) {
	deps, _ := newTestDeps(t, nil)
	d := New(uuid.Nil, uuid.New(), deps)
	ctx := context.Background()

	first, err := d.InitialiseVersions(ctx, chunkstore.Hash{1})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), first.Index)

	second, err := d.AddNewVersion(ctx, chunkstore.Hash{2})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), second.Index)
	assert.Equal(t, 2, d.VersionsCount())
}

func TestCloseWaitsForFinalStore(t *testing.T) {
	var calls atomic.Int64
	deps, _ := newTestDeps(t, &calls)
	deps.DirectoryInactivityDelay = time.Hour // only Close's forced immediate attempt should run

	d := New(uuid.Nil, uuid.New(), deps)
	// The initial-construction store is armed with the hour-long delay,
	// so the only store that can run here is the one Close forces.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, d.Close(ctx))
	assert.GreaterOrEqual(t, calls.Load(), int64(1))
	assert.Equal(t, StoreComplete, d.storeState)
}

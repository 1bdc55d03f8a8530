// Package drive implements the façade an OS-driver bridge (out of
// scope here) would call into: Create/Open/Flush/Release/Delete/
// Rename/Read/Write, each resolving a path through the DirectoryHandler
// before delegating to the matching Directory or FileContext operation.
package drive

import (
	"context"
	"fmt"
	"time"

	"github.com/marmos91/driftvault/internal/drive/directory"
	"github.com/marmos91/driftvault/internal/drive/filecontext"
	"github.com/marmos91/driftvault/internal/drive/handler"
	"github.com/marmos91/driftvault/internal/driveerr"
	"github.com/marmos91/driftvault/internal/metrics"
	"github.com/marmos91/driftvault/internal/timer"
	"github.com/marmos91/driftvault/store/chunkstore"
	"github.com/marmos91/driftvault/store/versionstore"
)

// Config mirrors the tunables a Drive needs to wire up its executor
// and the handler/directory/filecontext layers beneath it.
type Config struct {
	Workers                  int
	MaxVersions              int
	HandlerCacheSize         int
	DirectoryInactivityDelay time.Duration
	FileInactivityDelay      time.Duration
	ChunkSize                int
}

// Drive is the top-level entry point into the storage core.
type Drive struct {
	handler  *handler.Handler
	executor *timer.Executor
	metrics  metrics.DriveMetrics
}

// New wires a Drive over the given chunk and version stores.
func New(chunkStore chunkstore.ChunkStore, versionStore versionstore.VersionStore, cfg Config, driveMetrics metrics.DriveMetrics) (*Drive, error) {
	if driveMetrics == nil {
		driveMetrics = metrics.NewNoopDriveMetrics()
	}

	executor := timer.NewExecutor(cfg.Workers)

	h, err := handler.New(chunkStore, versionStore, executor, driveMetrics, handler.Config{
		MaxVersions:              cfg.MaxVersions,
		CacheSize:                cfg.HandlerCacheSize,
		DirectoryInactivityDelay: cfg.DirectoryInactivityDelay,
		FileInactivityDelay:      cfg.FileInactivityDelay,
		ChunkSize:                cfg.ChunkSize,
	})
	if err != nil {
		return nil, fmt.Errorf("drive: build handler: %w", err)
	}

	return &Drive{handler: h, executor: executor, metrics: driveMetrics}, nil
}

// Bootstrap ensures the root directory exists and is loaded. Safe to
// call more than once.
func (dr *Drive) Bootstrap(ctx context.Context) error {
	_, err := dr.handler.Bootstrap(ctx)
	return err
}

func (dr *Drive) resolveParent(ctx context.Context, path string) (*directory.Directory, string, error) {
	parentPath, name := handler.Split(path)
	if name == "" {
		return nil, "", driveerr.NewPath(driveerr.ErrParsingError, "path has no final component", path)
	}
	parent, err := dr.handler.Resolve(ctx, parentPath)
	if err != nil {
		return nil, "", err
	}
	return parent, name, nil
}

// Create adds a brand-new file entry named by path, with its encryptor
// already live (OpenCount == 1), and returns its FileContext.
func (dr *Drive) Create(ctx context.Context, path string) (*filecontext.FileContext, error) {
	parent, name, err := dr.resolveParent(ctx, path)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	fc := filecontext.New(filecontext.MetaData{
		Name:       name,
		CreatedAt:  now,
		ModifiedAt: now,
	}, parent, dr.chunkStoreOf(), dr.executor, dr.metrics, dr.fileInactivityDelayOf(), dr.chunkSizeOf())
	fc.Create()

	if err := parent.AddChild(fc); err != nil {
		return nil, err
	}

	return fc, nil
}

// CreateDirectory adds a brand-new, empty subdirectory entry named by
// path and registers its backing Directory with the handler.
func (dr *Drive) CreateDirectory(ctx context.Context, path string) error {
	parent, name, err := dr.resolveParent(ctx, path)
	if err != nil {
		return err
	}

	directoryID := dr.handler.NewDirectoryID()
	now := time.Now()
	fc := filecontext.New(filecontext.MetaData{
		Name:        name,
		IsDirectory: true,
		CreatedAt:   now,
		ModifiedAt:  now,
		DirectoryID: directoryID,
	}, parent, dr.chunkStoreOf(), dr.executor, dr.metrics, dr.fileInactivityDelayOf(), dr.chunkSizeOf())

	if err := parent.AddChild(fc); err != nil {
		return err
	}

	sub := directory.New(parent.DirectoryID(), directoryID, dr.handler.Deps())
	dr.handler.Cache(path, sub)

	return nil
}

// Open resolves path to its FileContext and marks it open, lazily
// reviving its encryptor if it was idle.
func (dr *Drive) Open(ctx context.Context, path string) (*filecontext.FileContext, error) {
	parent, name, err := dr.resolveParent(ctx, path)
	if err != nil {
		return nil, err
	}
	return parent.OpenChild(name)
}

// Release decrements path's open count, scheduling its encryptor's
// teardown once the count reaches zero.
func (dr *Drive) Release(ctx context.Context, path string) error {
	parent, name, err := dr.resolveParent(ctx, path)
	if err != nil {
		return err
	}
	return parent.ReleaseChild(name)
}

// ReleaseDir is Release's equivalent for a directory handle. Directories
// have no open-count of their own, so it only collapses the directory's
// pending store, if any, into an immediate store attempt.
func (dr *Drive) ReleaseDir(ctx context.Context, path string) error {
	d, err := dr.handler.Resolve(ctx, path)
	if err != nil {
		return err
	}
	d.StoreImmediatelyIfPending()
	return nil
}

// Flush forces path's buffered content out to the chunk store without
// closing it.
func (dr *Drive) Flush(ctx context.Context, path string) error {
	parent, name, err := dr.resolveParent(ctx, path)
	if err != nil {
		return err
	}
	if err := parent.FlushChild(ctx, name); err != nil {
		return driveerr.NewPath(driveerr.ErrUnknown, fmt.Sprintf("flush failed: %v", err), path)
	}
	return nil
}

// Read copies up to size bytes of path's content starting at offset.
func (dr *Drive) Read(ctx context.Context, path string, buf []byte, size int, offset uint64) (int, error) {
	parent, name, err := dr.resolveParent(ctx, path)
	if err != nil {
		return 0, err
	}
	return parent.ReadChild(ctx, name, buf, size, offset)
}

// Write copies size bytes into path's content starting at offset.
func (dr *Drive) Write(ctx context.Context, path string, buf []byte, size int, offset uint64) (int, error) {
	parent, name, err := dr.resolveParent(ctx, path)
	if err != nil {
		return 0, err
	}
	return parent.WriteChild(ctx, name, buf, size, offset)
}

// Delete removes the entry named by path from its parent directory,
// closing it first. If it names a directory, the directory's own
// cache entry is evicted too.
func (dr *Drive) Delete(ctx context.Context, path string) error {
	parent, name, err := dr.resolveParent(ctx, path)
	if err != nil {
		return err
	}

	removed, err := parent.RemoveChild(name)
	if err != nil {
		return err
	}

	if err := removed.Close(ctx); err != nil {
		return err
	}

	if removed.MetaData.IsDirectory {
		dr.handler.Invalidate(path)
	}

	return nil
}

// Rename moves the entry at oldPath to newPath, which must name a
// location under an already-resolved parent directory.
func (dr *Drive) Rename(ctx context.Context, oldPath, newPath string) error {
	oldParent, oldName, err := dr.resolveParent(ctx, oldPath)
	if err != nil {
		return err
	}
	newParent, newName, err := dr.resolveParent(ctx, newPath)
	if err != nil {
		return err
	}

	if oldParent == newParent {
		if err := oldParent.RenameChild(oldName, newName); err != nil {
			return err
		}
	} else {
		fc, err := oldParent.RemoveChild(oldName)
		if err != nil {
			return err
		}
		fc.MetaData.Name = newName
		fc.SetParent(newParent)
		if err := newParent.AddChild(fc); err != nil {
			return err
		}
	}

	if sub, ok := dr.handler.Peek(oldPath); ok {
		sub.SetNewParent(newParent.DirectoryID(), dr.handler.Deps().StoreFunc)
		dr.handler.Rename(oldPath, newPath)
	}

	return nil
}

// GetContext resolves path to its FileContext without affecting its
// open count.
func (dr *Drive) GetContext(ctx context.Context, path string) (*filecontext.FileContext, error) {
	return dr.GetMutableContext(ctx, path)
}

// GetMutableContext is GetContext's mutable-access twin. In Go, both
// resolve to the same pointer: there is no separate read-only view.
func (dr *Drive) GetMutableContext(ctx context.Context, path string) (*filecontext.FileContext, error) {
	parent, name, err := dr.resolveParent(ctx, path)
	if err != nil {
		return nil, err
	}
	return parent.GetMutableChild(name)
}

// GetChunk, PutChunk, and DeleteChunk expose the handler's chunk-store
// hooks to the calling OS-driver bridge unchanged, per the upward
// contract: each wraps the storage backend and re-raises its error
// as-is.
func (dr *Drive) GetChunk(ctx context.Context, hash chunkstore.Hash) ([]byte, error) {
	return dr.chunkStoreOf().Get(ctx, hash)
}

func (dr *Drive) PutChunk(ctx context.Context, hash chunkstore.Hash, data []byte) error {
	return dr.chunkStoreOf().Put(ctx, hash, data)
}

func (dr *Drive) DeleteChunk(ctx context.Context, hash chunkstore.Hash) error {
	return dr.chunkStoreOf().Delete(ctx, hash)
}

// Close flushes and evicts every cached directory, then shuts down the
// shared timer executor.
func (dr *Drive) Close(ctx context.Context) error {
	if err := dr.handler.Close(ctx); err != nil {
		return err
	}
	dr.executor.Close()
	return nil
}

func (dr *Drive) chunkStoreOf() chunkstore.ChunkStore {
	return dr.handler.Deps().ChunkStore
}

func (dr *Drive) fileInactivityDelayOf() time.Duration {
	return dr.handler.Deps().FileInactivityDelay
}

func (dr *Drive) chunkSizeOf() int {
	return dr.handler.Deps().ChunkSize
}

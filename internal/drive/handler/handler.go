// Package handler implements the DirectoryHandler: an LRU-cached
// path-to-Directory resolver that owns the store-attempt callback
// every Directory it constructs is bound to, and that lazily
// reconstructs a subdirectory from its version store the first time a
// path beneath it is touched.
package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/zeebo/blake3"

	"github.com/google/uuid"

	"github.com/marmos91/driftvault/internal/drive/directory"
	"github.com/marmos91/driftvault/internal/drive/filecontext"
	"github.com/marmos91/driftvault/internal/driveerr"
	"github.com/marmos91/driftvault/internal/metrics"
	"github.com/marmos91/driftvault/internal/timer"
	"github.com/marmos91/driftvault/store/chunkstore"
	"github.com/marmos91/driftvault/store/versionstore"
)

// RootDirectoryID is the well-known identity of the drive's root
// directory. Its ParentID is itself, matching the usual filesystem-root
// convention of a directory that is its own ancestor.
var RootDirectoryID = uuid.Nil

// Config bundles the tunables a Handler needs beyond its collaborators.
type Config struct {
	MaxVersions              int
	CacheSize                int
	DirectoryInactivityDelay time.Duration
	FileInactivityDelay      time.Duration
	ChunkSize                int
}

// Handler resolves slash-separated paths to live *directory.Directory
// instances, keeping a bounded LRU of recently touched directories and
// lazily reloading anything evicted or never seen.
type Handler struct {
	cache        *lru.Cache[string, *directory.Directory]
	chunkStore   chunkstore.ChunkStore
	versionStore versionstore.VersionStore
	executor     *timer.Executor
	metrics      metrics.DriveMetrics
	cfg          Config
}

// New constructs a Handler. It does not yet hold a root directory:
// call Bootstrap once before serving any path resolution.
func New(chunkStore chunkstore.ChunkStore, versionStore versionstore.VersionStore, executor *timer.Executor, metrics metrics.DriveMetrics, cfg Config) (*Handler, error) {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 1024
	}

	h := &Handler{
		chunkStore:   chunkStore,
		versionStore: versionStore,
		executor:     executor,
		metrics:      metrics,
		cfg:          cfg,
	}

	cache, err := lru.NewWithEvict[string, *directory.Directory](cfg.CacheSize, h.onEvict)
	if err != nil {
		return nil, fmt.Errorf("handler: build cache: %w", err)
	}
	h.cache = cache

	return h, nil
}

func (h *Handler) onEvict(_ string, d *directory.Directory) {
	h.metrics.DirectoryCacheEvicted()
	// Best-effort: a background eviction has no caller to report a
	// close failure to. The directory's own retry-on-failure store
	// logic already covers a dropped final store.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = d.Close(ctx)
}

// Deps exposes the collaborators a new subdirectory needs to construct
// itself, for callers (the Drive façade) creating a fresh directory
// entry outside of Resolve's own lazy-reload path.
func (h *Handler) Deps() directory.Deps {
	return h.deps()
}

// NewDirectoryID mints a fresh, unused directory identity.
func (h *Handler) NewDirectoryID() uuid.UUID {
	return uuid.New()
}

// Cache registers d under path, evicting the current least-recently-used
// entry if the cache is at capacity.
func (h *Handler) Cache(path string, d *directory.Directory) {
	h.cache.Add(path, d)
}

// Peek returns the directory cached at path, if any, without affecting
// its recency.
func (h *Handler) Peek(path string) (*directory.Directory, bool) {
	return h.cache.Peek(path)
}

func (h *Handler) deps() directory.Deps {
	return directory.Deps{
		Executor:                 h.executor,
		ChunkStore:               h.chunkStore,
		VersionStore:             h.versionStore,
		StoreFunc:                h.storeFunc,
		MaxVersions:              h.cfg.MaxVersions,
		DirectoryInactivityDelay: h.cfg.DirectoryInactivityDelay,
		FileInactivityDelay:      h.cfg.FileInactivityDelay,
		ChunkSize:                h.cfg.ChunkSize,
		Metrics:                  h.metrics,
	}
}

// storeFunc is the single store-attempt implementation shared by every
// directory this handler constructs: serialise, hash, put the chunk,
// then record a new version. Retried by the caller (Directory itself,
// via its store-state machine) on error.
func (h *Handler) storeFunc(ctx context.Context, d *directory.Directory) error {
	data, err := d.Serialise(ctx)
	if err != nil {
		return fmt.Errorf("handler: serialise: %w", err)
	}

	hash := chunkstore.Hash(blake3.Sum256(data))
	if err := h.chunkStore.Put(ctx, hash, data); err != nil {
		return fmt.Errorf("handler: put chunk: %w", err)
	}

	if _, err := d.AddNewVersion(ctx, hash); err != nil {
		return fmt.Errorf("handler: add version: %w", err)
	}

	return nil
}

// Bootstrap loads the root directory from its version history, or
// creates a fresh, empty one if none exists yet. Must be called once
// before any path is resolved.
func (h *Handler) Bootstrap(ctx context.Context) (*directory.Directory, error) {
	if cached, ok := h.cache.Get("/"); ok {
		return cached, nil
	}

	versions, err := h.versionStore.History(ctx, RootDirectoryID)
	if err != nil {
		return nil, fmt.Errorf("handler: load root history: %w", err)
	}

	var root *directory.Directory
	if len(versions) == 0 {
		root = directory.New(RootDirectoryID, RootDirectoryID, h.deps())
	} else {
		data, err := h.chunkStore.Get(ctx, versions[0].ContentHash)
		if err != nil {
			return nil, fmt.Errorf("handler: load root content: %w", err)
		}
		root, err = directory.NewFromVersions(RootDirectoryID, data, versions, h.deps())
		if err != nil {
			return nil, fmt.Errorf("handler: rebuild root: %w", err)
		}
	}

	h.cache.Add("/", root)
	return root, nil
}

func normalize(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func joinPath(parent string, name string) string {
	if parent == "/" {
		return "/" + name
	}
	return parent + "/" + name
}

// Resolve walks path from the root, reloading any directory not
// currently cached, and returns the Directory at that path.
func (h *Handler) Resolve(ctx context.Context, path string) (*directory.Directory, error) {
	current, err := h.Bootstrap(ctx)
	if err != nil {
		return nil, err
	}

	currentPath := "/"
	for _, name := range normalize(path) {
		child, err := current.GetChild(name)
		if err != nil {
			return nil, err
		}
		if !child.MetaData.IsDirectory {
			return nil, driveerr.NewPath(driveerr.ErrParsingError, "path component is not a directory", name)
		}

		nextPath := joinPath(currentPath, name)
		next, err := h.loadChildDirectory(ctx, current, child, nextPath)
		if err != nil {
			return nil, err
		}

		current, currentPath = next, nextPath
	}

	return current, nil
}

func (h *Handler) loadChildDirectory(ctx context.Context, parent *directory.Directory, child *filecontext.FileContext, path string) (*directory.Directory, error) {
	if cached, ok := h.cache.Get(path); ok {
		return cached, nil
	}

	directoryID := child.MetaData.DirectoryID
	versions, err := h.versionStore.History(ctx, directoryID)
	if err != nil {
		return nil, fmt.Errorf("handler: load %q history: %w", path, err)
	}

	var loaded *directory.Directory
	if len(versions) == 0 {
		loaded = directory.New(parent.DirectoryID(), directoryID, h.deps())
	} else {
		data, err := h.chunkStore.Get(ctx, versions[0].ContentHash)
		if err != nil {
			return nil, fmt.Errorf("handler: load %q content: %w", path, err)
		}
		loaded, err = directory.NewFromVersions(parent.DirectoryID(), data, versions, h.deps())
		if err != nil {
			return nil, fmt.Errorf("handler: rebuild %q: %w", path, err)
		}
	}

	h.cache.Add(path, loaded)
	return loaded, nil
}

// Split separates path into its parent directory path and final
// component name.
func Split(path string) (parentPath string, name string) {
	parts := normalize(path)
	if len(parts) == 0 {
		return "/", ""
	}
	name = parts[len(parts)-1]
	parentPath = "/" + strings.Join(parts[:len(parts)-1], "/")
	return parentPath, name
}

// Invalidate drops path from the cache, used when a directory entry is
// deleted. Removal runs the cache's eviction callback, so the dropped
// directory is closed (any pending store is forced) as on any eviction.
func (h *Handler) Invalidate(path string) {
	h.cache.Remove(path)
}

// Rename moves a cached directory entry from oldPath to newPath so
// that later lookups find it without reloading.
func (h *Handler) Rename(oldPath, newPath string) {
	if d, ok := h.cache.Peek(oldPath); ok {
		h.cache.Remove(oldPath)
		h.cache.Add(newPath, d)
	}
}

// Close flushes and evicts every cached directory, waiting on each
// final store attempt in turn.
func (h *Handler) Close(ctx context.Context) error {
	for _, path := range h.cache.Keys() {
		if d, ok := h.cache.Peek(path); ok {
			if err := d.Close(ctx); err != nil {
				return fmt.Errorf("handler: close %q: %w", path, err)
			}
		}
	}
	h.cache.Purge()
	return nil
}

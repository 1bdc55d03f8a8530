// Package directory implements the in-memory directory aggregator:
// the children list, the deferred-store debounce timer, the
// store-state machine, and the bounded version history described by
// the drive core's directory design.
package directory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/driftvault/internal/drive/filecontext"
	"github.com/marmos91/driftvault/internal/metrics"
	"github.com/marmos91/driftvault/internal/timer"
	"github.com/marmos91/driftvault/store/chunkstore"
	"github.com/marmos91/driftvault/store/versionstore"
)

// StoreState is a directory's position in its store-attempt cycle:
// Complete -> Pending -> Ongoing -> Complete.
type StoreState int

const (
	StoreComplete StoreState = iota
	StorePending
	StoreOngoing
)

// StoreFunc performs one store attempt for d: serialise, hash, put the
// resulting chunk, then record a new version. Bound once per Directory
// at construction time by the resolver that owns it.
type StoreFunc func(ctx context.Context, d *Directory) error

// Directory is the in-memory authority for one directory's contents.
type Directory struct {
	mu sync.Mutex

	// storeDone is signalled whenever storeState transitions to
	// Complete, so Close can wait on it without polling.
	storeDone *sync.Cond

	parentID    uuid.UUID
	directoryID uuid.UUID

	children       []*filecontext.FileContext // sorted by name, unique
	childrenCursor int

	versions    []versionstore.VersionName // most-recent first
	maxVersions int

	timer               *timer.Timer
	executor            *timer.Executor
	storeFunc           StoreFunc
	storeState          StoreState
	pendingAfterOngoing bool

	versionStore             versionstore.VersionStore
	directoryInactivityDelay time.Duration
	metrics                  metrics.DriveMetrics
}

// Deps bundles the collaborators every Directory needs, to keep the
// two constructors below from taking an unwieldy parameter list.
type Deps struct {
	Executor                 *timer.Executor
	ChunkStore               chunkstore.ChunkStore
	VersionStore             versionstore.VersionStore
	StoreFunc                StoreFunc
	MaxVersions              int
	DirectoryInactivityDelay time.Duration
	FileInactivityDelay      time.Duration
	ChunkSize                int
	Metrics                  metrics.DriveMetrics
}

// New creates a brand-new, empty Directory and immediately schedules
// its first store attempt, matching the original's fresh-construction
// behavior (a new directory is dirty from the moment it exists).
func New(parentID uuid.UUID, directoryID uuid.UUID, deps Deps) *Directory {
	d := newDirectory(parentID, directoryID, deps)
	d.mu.Lock()
	d.doScheduleForStoringLocked(true)
	d.mu.Unlock()
	return d
}

// NewFromVersions reconstructs a Directory from a previously
// serialized blob and its persisted version chain. No immediate store
// is scheduled: the directory is clean until something mutates it.
func NewFromVersions(parentID uuid.UUID, serialized []byte, versions []versionstore.VersionName, deps Deps) (*Directory, error) {
	d := newDirectory(parentID, uuid.Nil, deps)
	d.versions = versions

	wire, err := decodeWire(serialized)
	if err != nil {
		return nil, err
	}

	d.directoryID = wire.DirectoryID
	if deps.MaxVersions > 0 {
		d.maxVersions = deps.MaxVersions
	} else {
		d.maxVersions = wire.MaxVersions
	}

	for _, wc := range wire.Children {
		fc := filecontext.New(wc.toMetaData(), d, deps.ChunkStore, deps.Executor, deps.Metrics, deps.FileInactivityDelay, deps.ChunkSize)
		d.children = append(d.children, fc)
	}
	d.sortAndResetChildrenCounter()

	return d, nil
}

func newDirectory(parentID, directoryID uuid.UUID, deps Deps) *Directory {
	d := &Directory{
		parentID:                 parentID,
		directoryID:              directoryID,
		maxVersions:              deps.MaxVersions,
		executor:                 deps.Executor,
		storeFunc:                deps.StoreFunc,
		versionStore:             deps.VersionStore,
		directoryInactivityDelay: deps.DirectoryInactivityDelay,
		metrics:                  deps.Metrics,
		storeState:               StoreComplete,
	}
	d.storeDone = sync.NewCond(&d.mu)
	d.timer = timer.New(deps.Executor, d.onStoreTimerFired)
	return d
}

// ParentID returns the identity of this directory's parent.
func (d *Directory) ParentID() uuid.UUID {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.parentID
}

// DirectoryID returns this directory's stable identity.
func (d *Directory) DirectoryID() uuid.UUID {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.directoryID
}

// VersionsCount returns the number of versions currently retained.
func (d *Directory) VersionsCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.versions)
}

// Empty reports whether the directory has no children.
func (d *Directory) Empty() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.children) == 0
}

// SetNewParent blocks until no store attempt is ongoing, then rebinds
// this directory's parent and store function - used when a subtree is
// moved elsewhere.
func (d *Directory) SetNewParent(parentID uuid.UUID, storeFunc StoreFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for d.storeState == StoreOngoing {
		d.storeDone.Wait()
	}

	d.parentID = parentID
	d.storeFunc = storeFunc
}

func (d *Directory) find(name string) int {
	return sort.Search(len(d.children), func(i int) bool {
		return d.children[i].MetaData.Name >= name
	})
}

func (d *Directory) sortAndResetChildrenCounter() {
	sort.Slice(d.children, func(i, j int) bool {
		return d.children[i].MetaData.Name < d.children[j].MetaData.Name
	})
	d.childrenCursor = 0
}

// HasChild reports whether name exists among this directory's children.
func (d *Directory) HasChild(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	i := d.find(name)
	return i < len(d.children) && d.children[i].MetaData.Name == name
}

// GetChild returns the child named name.
func (d *Directory) GetChild(name string) (*filecontext.FileContext, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.getChildLocked(name)
}

func (d *Directory) getChildLocked(name string) (*filecontext.FileContext, error) {
	i := d.find(name)
	if i >= len(d.children) || d.children[i].MetaData.Name != name {
		return nil, errNoSuchFile(name)
	}
	return d.children[i], nil
}

// GetMutableChild is an alias for GetChild: in Go, FileContext is
// always accessed through its pointer, so there is no separate
// const/non-const view to distinguish.
func (d *Directory) GetMutableChild(name string) (*filecontext.FileContext, error) {
	return d.GetChild(name)
}

// GetChildAndIncrementCounter returns the next child in cursor order,
// used to serve repeated directory-enumeration calls without
// reallocating state. Returns nil past the end.
func (d *Directory) GetChildAndIncrementCounter() *filecontext.FileContext {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.childrenCursor >= len(d.children) {
		return nil
	}
	fc := d.children[d.childrenCursor]
	d.childrenCursor++
	return fc
}

// ResetChildrenCounter rewinds the enumeration cursor to the start.
func (d *Directory) ResetChildrenCounter() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.childrenCursor = 0
}

// AddChild inserts child, failing if its name collides with an
// existing entry, and schedules a store attempt.
func (d *Directory) AddChild(child *filecontext.FileContext) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	name := child.MetaData.Name
	if _, err := d.getChildLocked(name); err == nil {
		return errFileExists(name)
	}

	d.children = append(d.children, child)
	d.sortAndResetChildrenCounter()
	d.doScheduleForStoringLocked(true)

	return nil
}

// RemoveChild detaches and returns the child named name, and schedules
// a store attempt. The caller is responsible for calling Close on the
// returned entry once it no longer holds this directory's lock.
func (d *Directory) RemoveChild(name string) (*filecontext.FileContext, error) {
	d.mu.Lock()
	i := d.find(name)
	if i >= len(d.children) || d.children[i].MetaData.Name != name {
		d.mu.Unlock()
		return nil, errNoSuchFile(name)
	}
	removed := d.children[i]
	d.children = append(d.children[:i], d.children[i+1:]...)
	d.sortAndResetChildrenCounter()
	d.doScheduleForStoringLocked(true)
	d.mu.Unlock()

	return removed, nil
}

// RenameChild renames an existing child in place. The caller
// guarantees newName is not already in use.
func (d *Directory) RenameChild(oldName, newName string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	fc, err := d.getChildLocked(oldName)
	if err != nil {
		return err
	}

	fc.MetaData.Name = newName
	d.sortAndResetChildrenCounter()
	d.doScheduleForStoringLocked(true)

	return nil
}

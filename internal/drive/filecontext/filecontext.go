// Package filecontext implements the per-entry lifecycle engine: lazy
// construction and delayed teardown of a streaming encryptor session,
// gated by an atomic open-count and an inactivity timer whose
// cancellation-return value proves whether a pending teardown had
// already fired.
package filecontext

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/marmos91/driftvault/internal/driveerr"
	"github.com/marmos91/driftvault/internal/encryptor"
	"github.com/marmos91/driftvault/internal/metrics"
	"github.com/marmos91/driftvault/internal/timer"
	"github.com/marmos91/driftvault/store/chunkstore"
)

// Parent is the upward-facing contract a FileContext needs from its
// owning directory. Implemented by *directory.Directory; kept as an
// interface here to avoid an import cycle.
type Parent interface {
	ScheduleForStoring()
	FlushChildAndDeleteEncryptor(child *FileContext) error
}

// FileContext represents one file or subdirectory entry within a
// parent directory. All fields besides OpenCount are only safe to
// mutate while the parent directory's lock is held; OpenCount is
// atomic and may be read or mutated without it.
type FileContext struct {
	MetaData MetaData

	encryptor *encryptor.Encryptor
	timer     *timer.Timer
	openCount atomic.Int64
	parent    Parent

	// flushed is transient bookkeeping used only within a single
	// Directory.Serialise pass; nothing outside that pass reads it.
	flushed bool

	store               chunkstore.ChunkStore
	executor            *timer.Executor
	metrics             metrics.DriveMetrics
	fileInactivityDelay time.Duration
	chunkSize           int
}

// New constructs a FileContext for meta, owned by parent. The caller
// is responsible for calling Create, which builds the encryptor and
// sets the open count, when creating a brand-new file (see
// drive.Drive.Create), and for skipping it when deserializing an
// existing, closed entry.
func New(
	meta MetaData,
	parent Parent,
	store chunkstore.ChunkStore,
	executor *timer.Executor,
	metrics metrics.DriveMetrics,
	fileInactivityDelay time.Duration,
	chunkSize int,
) *FileContext {
	return &FileContext{
		MetaData:            meta,
		parent:              parent,
		store:               store,
		executor:            executor,
		metrics:             metrics,
		fileInactivityDelay: fileInactivityDelay,
		chunkSize:           chunkSize,
	}
}

// SetParent rebinds the back-pointer used for upward notifications.
// Used when a subtree is moved to a new parent directory.
func (fc *FileContext) SetParent(parent Parent) {
	fc.parent = parent
}

// OpenCount returns the current open count.
func (fc *FileContext) OpenCount() int64 {
	return fc.openCount.Load()
}

// HasEncryptor reports whether an encryptor session is currently live.
func (fc *FileContext) HasEncryptor() bool {
	return fc.encryptor != nil
}

// Flushed reports the transient per-serialization-pass marker.
func (fc *FileContext) Flushed() bool {
	return fc.flushed
}

// SetFlushed sets the transient per-serialization-pass marker.
func (fc *FileContext) SetFlushed(v bool) {
	fc.flushed = v
}

// initialiseEncryptor is the dedup point that avoids losing in-flight
// bytes on a rapid close/reopen pair.
//
//  1. No timer yet: create one (unarmed) and build a fresh encryptor.
//  2. A timer exists and Cancel reports the pending teardown had not
//     yet fired: the live encryptor is still valid, reuse it.
//  3. A timer exists but Cancel reports it already fired (or nothing
//     was pending): the encryptor is gone, build a fresh one.
func (fc *FileContext) initialiseEncryptor() {
	if fc.timer == nil {
		fc.timer = timer.New(fc.executor, fc.teardown)
		fc.encryptor = encryptor.New(fc.store, fc.MetaData.DataMap, fc.chunkSize)
		fc.metrics.EncryptorInitialised()
		return
	}

	if fc.timer.Cancel() {
		// Teardown was pending but had not fired: defused, keep the
		// existing encryptor.
		fc.metrics.EncryptorTeardownDefused()
		return
	}

	fc.encryptor = encryptor.New(fc.store, fc.MetaData.DataMap, fc.chunkSize)
	fc.metrics.EncryptorInitialised()
}

// scheduleDeletionOfEncryptor re-arms the teardown timer. On expiry,
// if the file is still idle (OpenCount == 0), the encryptor is flushed
// and dropped via the parent; if the file was reopened in the
// meantime, the fired callback is a no-op.
func (fc *FileContext) scheduleDeletionOfEncryptor() {
	if fc.timer == nil {
		fc.timer = timer.New(fc.executor, fc.teardown)
	}
	fc.timer.Reset(fc.fileInactivityDelay)
}

// CancelPendingTeardown defuses this file's inactivity timer, if one is
// armed, without touching its encryptor. Used by a directory's
// Serialise pass, which is about to flush the encryptor itself and
// would otherwise race a teardown callback firing moments later
// against an already-nil encryptor.
func (fc *FileContext) CancelPendingTeardown() {
	if fc.timer != nil {
		fc.timer.Cancel()
	}
}

func (fc *FileContext) teardown() {
	if fc.openCount.Load() != 0 {
		return
	}
	if err := fc.parent.FlushChildAndDeleteEncryptor(fc); err != nil {
		// Nothing upstream is waiting on this result; the next open
		// (if any) will find no encryptor and rebuild it from the
		// data map. Silent drop matches the original: a background
		// teardown has no caller to report to.
		_ = err
	}
}

// Create initialises a brand-new file: builds its encryptor eagerly
// and sets OpenCount to 1 directly (not incremented), matching a
// freshly created file being handed back already open to its creator.
func (fc *FileContext) Create() {
	fc.initialiseEncryptor()
	fc.openCount.Store(1)
}

// Open increments the open count. If this is the first concurrent
// open, it (re)builds the encryptor via initialiseEncryptor.
func (fc *FileContext) Open() {
	if fc.openCount.Add(1) == 1 {
		fc.initialiseEncryptor()
	}
}

// Release decrements the open count. Once it reaches zero, teardown of
// the encryptor is scheduled rather than performed immediately, so a
// rapid close/reopen doesn't pay the flush cost.
func (fc *FileContext) Release() {
	if fc.openCount.Add(-1) == 0 {
		fc.scheduleDeletionOfEncryptor()
	}
}

// Read copies up to size bytes starting at offset into buf.
func (fc *FileContext) Read(ctx context.Context, buf []byte, size int, offset uint64) (int, error) {
	if fc.encryptor == nil {
		return 0, driveerr.NewPath(driveerr.ErrUnknown, "read on file with no live encryptor", fc.MetaData.Name)
	}

	n, err := fc.encryptor.Read(ctx, buf, size, offset)
	if err != nil {
		return 0, driveerr.NewPath(driveerr.ErrUnknown, fmt.Sprintf("read failed: %v", err), fc.MetaData.Name)
	}
	return n, nil
}

// Write copies size bytes from buf into the file starting at offset,
// growing MetaData.Size/Blocks as needed and notifying the parent
// directory that it now has dirty content to store.
func (fc *FileContext) Write(ctx context.Context, buf []byte, size int, offset uint64) (int, error) {
	if fc.encryptor == nil {
		return 0, driveerr.NewPath(driveerr.ErrUnknown, "write on file with no live encryptor", fc.MetaData.Name)
	}

	n, err := fc.encryptor.Write(ctx, buf, size, offset)
	if err != nil {
		return 0, driveerr.NewPath(driveerr.ErrUnknown, fmt.Sprintf("write failed: %v", err), fc.MetaData.Name)
	}

	newSize := offset + uint64(size)
	if newSize > fc.MetaData.Size {
		fc.MetaData.Size = newSize
		fc.MetaData.Blocks = blocksFor(fc.MetaData.Size)
	}
	fc.MetaData.ModifiedAt = time.Now()

	fc.parent.ScheduleForStoring()

	return n, nil
}

// Flush forces the encryptor to persist any buffered content and
// rewrites MetaData.DataMap. A no-op if no encryptor is live.
func (fc *FileContext) Flush(ctx context.Context) error {
	if fc.encryptor == nil {
		return nil
	}

	if err := fc.encryptor.Flush(ctx); err != nil {
		return driveerr.NewPath(driveerr.ErrUnknown, fmt.Sprintf("flush failed: %v", err), fc.MetaData.Name)
	}

	fc.MetaData.DataMap = fc.encryptor.DataMap()
	return nil
}

// FlushAndDropEncryptor flushes the live encryptor (if any) and, when
// OpenCount is zero, drops it - this is the body of
// Directory.FlushChildAndDeleteEncryptor's per-child work, kept here
// since only FileContext can safely reach into its own encryptor.
// Idempotent: calling it with no live encryptor is a no-op.
func (fc *FileContext) FlushAndDropEncryptor(ctx context.Context) error {
	if fc.encryptor == nil {
		fc.flushed = true
		return nil
	}

	if err := fc.Flush(ctx); err != nil {
		return err
	}

	if fc.openCount.Load() == 0 {
		fc.encryptor = nil
		fc.timer = nil
		fc.metrics.EncryptorTornDown()
	}

	fc.flushed = true
	return nil
}

// Close cancels any pending teardown timer and forces a final flush,
// standing in for the original's destructor: "if (timer) {
// timer->cancel(); parent->FlushChildAndDeleteEncryptor(this); }".
// Called by the Drive façade after a child is removed from its
// Directory, and by the owning Directory for each child when the
// directory itself is closed.
func (fc *FileContext) Close(ctx context.Context) error {
	if fc.timer == nil {
		return nil
	}
	fc.timer.Cancel()
	return fc.parent.FlushChildAndDeleteEncryptor(fc)
}

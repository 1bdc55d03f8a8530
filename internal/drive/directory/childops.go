package directory

import (
	"context"

	"github.com/marmos91/driftvault/internal/drive/filecontext"
)

// OpenChild, ReleaseChild, FlushChild, ReadChild, and WriteChild give
// the drive façade a way to touch a child's encryptor without ever
// doing so unlocked: each holds d.mu for the full lookup-plus-operation,
// matching the concurrency model's requirement that a FileContext's
// encryptor only ever runs under its owning Directory's lock.

// OpenChild resolves name and marks it open under the directory lock.
func (d *Directory) OpenChild(name string) (*filecontext.FileContext, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	fc, err := d.getChildLocked(name)
	if err != nil {
		return nil, err
	}
	fc.Open()
	return fc, nil
}

// ReleaseChild resolves name and releases it under the directory lock.
func (d *Directory) ReleaseChild(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	fc, err := d.getChildLocked(name)
	if err != nil {
		return err
	}
	fc.Release()
	return nil
}

// FlushChild resolves name and flushes its encryptor under the
// directory lock, without dropping it.
func (d *Directory) FlushChild(ctx context.Context, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	fc, err := d.getChildLocked(name)
	if err != nil {
		return err
	}
	return fc.Flush(ctx)
}

// ReadChild resolves name and reads from it under the directory lock.
func (d *Directory) ReadChild(ctx context.Context, name string, buf []byte, size int, offset uint64) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	fc, err := d.getChildLocked(name)
	if err != nil {
		return 0, err
	}
	return fc.Read(ctx, buf, size, offset)
}

// WriteChild resolves name and writes to it under the directory lock.
// The lock is what makes FileContext.Write's own call back into
// ScheduleForStoring safe without deadlocking: that method assumes its
// caller already holds d.mu, and this is that caller.
func (d *Directory) WriteChild(ctx context.Context, name string, buf []byte, size int, offset uint64) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	fc, err := d.getChildLocked(name)
	if err != nil {
		return 0, err
	}
	return fc.Write(ctx, buf, size, offset)
}

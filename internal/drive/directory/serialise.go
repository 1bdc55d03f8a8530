package directory

import (
	"context"
	"fmt"

	"github.com/marmos91/driftvault/internal/drive/filecontext"
	"github.com/marmos91/driftvault/store/chunkstore"
	"github.com/marmos91/driftvault/store/versionstore"
)

// FlushChildAndDeleteEncryptor implements filecontext.Parent. It is
// invoked by a child's own inactivity teardown, running on the shared
// executor with no directory lock held, so it must take one itself
// before touching the child's encryptor state. Serialise does not
// route through here: it flushes children directly while already
// holding d.mu, which would otherwise deadlock. Background timer
// callbacks have no caller context to thread through, hence
// context.Background() here; callers on a request path use
// FileContext.Flush directly instead.
func (d *Directory) FlushChildAndDeleteEncryptor(child *filecontext.FileContext) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return child.FlushAndDropEncryptor(context.Background())
}

// Serialise flushes every dirty child's encryptor and returns the
// directory's current content, CBOR-encoded. ParentID is deliberately
// excluded from the wire form: a directory's serialized bytes describe
// only what it contains, not where it is mounted, so moving it never
// requires rewriting its stored history.
func (d *Directory) Serialise(ctx context.Context) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, child := range d.children {
		child.CancelPendingTeardown()
		if err := child.FlushAndDropEncryptor(ctx); err != nil {
			return nil, fmt.Errorf("directory: flush child %q: %w", child.MetaData.Name, err)
		}
	}

	wire := wireDirectory{
		DirectoryID: d.directoryID,
		MaxVersions: d.maxVersions,
	}
	for _, child := range d.children {
		wire.Children = append(wire.Children, toWireChild(child.MetaData))
		child.SetFlushed(false)
	}

	return encodeWire(wire)
}

// InitialiseVersions records the very first version of this directory.
// Distinct from AddNewVersion so that a directory's initial store,
// which has no prior history to chain from, doesn't need to special-
// case an empty version slice at every call site.
func (d *Directory) InitialiseVersions(ctx context.Context, contentHash chunkstore.Hash) (versionstore.VersionName, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	v := versionstore.VersionName{Index: 0, ContentHash: contentHash}
	if err := d.versionStore.Append(ctx, d.directoryID, v, d.maxVersions); err != nil {
		return versionstore.VersionName{}, fmt.Errorf("directory: initialise versions: %w", err)
	}

	d.versions = []versionstore.VersionName{v}
	return v, nil
}

// AddNewVersion appends a new version on top of the existing chain,
// truncating to MaxVersions if set. Falls back to InitialiseVersions'
// behavior if called with no prior history.
func (d *Directory) AddNewVersion(ctx context.Context, contentHash chunkstore.Hash) (versionstore.VersionName, error) {
	d.mu.Lock()
	if len(d.versions) == 0 {
		d.mu.Unlock()
		return d.InitialiseVersions(ctx, contentHash)
	}
	nextIndex := d.versions[0].Index + 1
	d.mu.Unlock()

	v := versionstore.VersionName{Index: nextIndex, ContentHash: contentHash}
	if err := d.versionStore.Append(ctx, d.directoryID, v, d.maxVersions); err != nil {
		return versionstore.VersionName{}, fmt.Errorf("directory: add version: %w", err)
	}

	d.mu.Lock()
	d.versions = append([]versionstore.VersionName{v}, d.versions...)
	if d.maxVersions > 0 && len(d.versions) > d.maxVersions {
		d.versions = d.versions[:d.maxVersions]
	}
	d.mu.Unlock()

	return v, nil
}

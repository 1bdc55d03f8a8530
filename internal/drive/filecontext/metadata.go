package filecontext

import (
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/driftvault/internal/encryptor"
)

// MetaData is the on-record attributes of one directory entry: either
// a file (DataMap populated) or a subdirectory (DirectoryID populated).
// Exactly one of the two applies, selected by IsDirectory.
type MetaData struct {
	Name        string
	IsDirectory bool

	CreatedAt  time.Time
	ModifiedAt time.Time

	// Size and Blocks describe a file's content; both stay zero for
	// directories.
	Size   uint64
	Blocks uint64

	// DataMap describes a file's chunked content. Empty until the
	// first Flush.
	DataMap encryptor.DataMap

	// DirectoryID identifies the subdirectory this entry names.
	DirectoryID uuid.UUID
}

// blockSize matches the original source's st_blocks convention of
// 512-byte units.
const blockSize = 512

func blocksFor(size uint64) uint64 {
	return size / blockSize
}

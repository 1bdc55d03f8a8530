package directory

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/marmos91/driftvault/internal/drive/filecontext"
	"github.com/marmos91/driftvault/internal/encryptor"
)

// wireChunkRef and wireDataMap mirror encryptor.ChunkRef/DataMap for
// CBOR encoding: the encryptor package has no wire format of its own
// since a data map is only ever serialized as part of its owning
// directory's entry.
type wireChunkRef struct {
	Hash          [32]byte `cbor:"hash"`
	Key           [32]byte `cbor:"key"`
	PlaintextSize uint32   `cbor:"plaintext_size"`
}

type wireDataMap struct {
	Chunks []wireChunkRef `cbor:"chunks"`
	Tail   []byte         `cbor:"tail"`
}

// wireChild is one entry's on-disk record. Deliberately excludes any
// parent back-pointer: a directory's serialized form only ever
// describes its own children, never where it itself lives.
type wireChild struct {
	Name        string      `cbor:"name"`
	IsDirectory bool        `cbor:"is_directory"`
	CreatedAt   time.Time   `cbor:"created_at"`
	ModifiedAt  time.Time   `cbor:"modified_at"`
	Size        uint64      `cbor:"size"`
	Blocks      uint64      `cbor:"blocks"`
	DataMap     wireDataMap `cbor:"data_map"`
	DirectoryID uuid.UUID   `cbor:"directory_id"`
}

// wireDirectory is the full serialized form of a Directory's own
// content, excluding ParentID: a directory never records where it is
// mounted, only what it contains, so that moving it doesn't require
// rewriting its stored version chain.
type wireDirectory struct {
	DirectoryID uuid.UUID   `cbor:"directory_id"`
	MaxVersions int         `cbor:"max_versions"`
	Children    []wireChild `cbor:"children"`
}

func toWireDataMap(m encryptor.DataMap) wireDataMap {
	chunks := make([]wireChunkRef, len(m.Chunks))
	for i, c := range m.Chunks {
		chunks[i] = wireChunkRef{Hash: [32]byte(c.Hash), Key: c.Key, PlaintextSize: c.PlaintextSize}
	}
	return wireDataMap{Chunks: chunks, Tail: m.Tail}
}

func (m wireDataMap) toDataMap() encryptor.DataMap {
	chunks := make([]encryptor.ChunkRef, len(m.Chunks))
	for i, c := range m.Chunks {
		chunks[i] = encryptor.ChunkRef{Hash: c.Hash, Key: c.Key, PlaintextSize: c.PlaintextSize}
	}
	return encryptor.DataMap{Chunks: chunks, Tail: m.Tail}
}

func toWireChild(meta filecontext.MetaData) wireChild {
	return wireChild{
		Name:        meta.Name,
		IsDirectory: meta.IsDirectory,
		CreatedAt:   meta.CreatedAt,
		ModifiedAt:  meta.ModifiedAt,
		Size:        meta.Size,
		Blocks:      meta.Blocks,
		DataMap:     toWireDataMap(meta.DataMap),
		DirectoryID: meta.DirectoryID,
	}
}

func (wc wireChild) toMetaData() filecontext.MetaData {
	return filecontext.MetaData{
		Name:        wc.Name,
		IsDirectory: wc.IsDirectory,
		CreatedAt:   wc.CreatedAt,
		ModifiedAt:  wc.ModifiedAt,
		Size:        wc.Size,
		Blocks:      wc.Blocks,
		DataMap:     wc.DataMap.toDataMap(),
		DirectoryID: wc.DirectoryID,
	}
}

func decodeWire(data []byte) (wireDirectory, error) {
	var wire wireDirectory
	if err := cbor.Unmarshal(data, &wire); err != nil {
		return wireDirectory{}, fmt.Errorf("directory: decode: %w", err)
	}
	return wire, nil
}

func encodeWire(wire wireDirectory) ([]byte, error) {
	data, err := cbor.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("directory: encode: %w", err)
	}
	return data, nil
}

package encryptor

import "github.com/marmos91/driftvault/store/chunkstore"

// ChunkRef describes one chunk of a file's content: the hash under
// which its ciphertext is stored, the key needed to decrypt it, and
// the size of the plaintext it expands to.
type ChunkRef struct {
	Hash          chunkstore.Hash
	Key           [32]byte
	PlaintextSize uint32
}

// DataMap is the opaque handle a FileContext stores in its metadata so
// that a future open can reconstruct an Encryptor over existing
// content. It never appears unencrypted on the wire beyond the
// directory's own serialized form (see internal/drive/directory).
type DataMap struct {
	// Chunks holds every full, already-flushed chunk in order.
	Chunks []ChunkRef

	// Tail holds plaintext bytes written since the last Flush that do
	// not yet fill a whole chunk. Persisted so that re-opening a file
	// between flushes still sees the latest content.
	Tail []byte
}

// Size returns the total plaintext size described by the data map.
func (m DataMap) Size() uint64 {
	var total uint64
	for _, c := range m.Chunks {
		total += uint64(c.PlaintextSize)
	}
	return total + uint64(len(m.Tail))
}

// Package encryptor implements the streaming, chunked, content-
// addressed codec that a FileContext's encryptor session wraps:
// plaintext is split into fixed-size chunks, each chunk is compressed,
// encrypted with a key derived from its own plaintext hash
// (convergent encryption), and the resulting ciphertext is stored in
// the chunk store keyed by its own hash.
//
// Random-access reads and writes are served against an in-memory
// plaintext reconstruction rather than by seeking within individual
// chunk ciphertexts: on the first access after construction from an
// existing DataMap every chunk is fetched and decoded once, after which
// Read/Write operate
// on a plain byte buffer and Flush re-chunks, re-compresses and
// re-encrypts it. This trades memory for a far simpler
// implementation, appropriate for the modest file sizes this drive
// core targets; it is not a general-purpose seekable-ciphertext design.
package encryptor

import (
	"context"
	"crypto/cipher"
	"fmt"
	"hash"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/marmos91/driftvault/store/chunkstore"
)

// DefaultChunkSize is the plaintext size of each chunk before
// compression and encryption.
const DefaultChunkSize = 1 << 20 // 1MB

// Encryptor is a streaming codec session bound to one file's content.
// Callers are expected to serialize access externally (the owning
// Directory's lock, per the concurrency model); Encryptor itself does
// no internal locking.
type Encryptor struct {
	store     chunkstore.ChunkStore
	chunkSize int

	// plaintext is the full reconstructed content. Lazily loaded on
	// first access that needs it.
	plaintext []byte
	loaded    bool
	dataMap   DataMap
}

// New constructs an Encryptor over an existing DataMap (possibly
// empty, for a newly created file).
func New(store chunkstore.ChunkStore, dataMap DataMap, chunkSize int) *Encryptor {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Encryptor{store: store, chunkSize: chunkSize, dataMap: dataMap}
}

// DataMap returns the encryptor's current data map. Only meaningful
// immediately after a successful Flush; between flushes it describes
// the state as of the last flush, not the buffered writes.
func (e *Encryptor) DataMap() DataMap {
	return e.dataMap
}

func (e *Encryptor) load(ctx context.Context) error {
	if e.loaded {
		return nil
	}

	out := make([]byte, 0, e.dataMap.Size())
	for _, ref := range e.dataMap.Chunks {
		plain, err := decodeChunk(ctx, e.store, ref)
		if err != nil {
			return fmt.Errorf("encryptor: reconstruct chunk: %w", err)
		}
		out = append(out, plain...)
	}
	out = append(out, e.dataMap.Tail...)

	e.plaintext = out
	e.loaded = true
	return nil
}

// Size returns the total plaintext size.
func (e *Encryptor) Size(ctx context.Context) (uint64, error) {
	if err := e.load(ctx); err != nil {
		return 0, err
	}
	return uint64(len(e.plaintext)), nil
}

// Read copies up to size bytes starting at offset into buf, returning
// the number of bytes actually available: 0 if offset is at or past
// the end of content, otherwise min(size, contentSize-offset).
func (e *Encryptor) Read(ctx context.Context, buf []byte, size int, offset uint64) (int, error) {
	if err := e.load(ctx); err != nil {
		return 0, err
	}

	total := uint64(len(e.plaintext))
	if offset >= total {
		return 0, nil
	}

	avail := total - offset
	n := uint64(size)
	if n > avail {
		n = avail
	}

	copy(buf, e.plaintext[offset:offset+n])
	return int(n), nil
}

// Write copies size bytes from buf into the plaintext buffer starting
// at offset, extending it (zero-filling any gap) if offset+size is
// past the current end.
func (e *Encryptor) Write(ctx context.Context, buf []byte, size int, offset uint64) (int, error) {
	if err := e.load(ctx); err != nil {
		return 0, err
	}

	end := offset + uint64(size)
	if end > uint64(len(e.plaintext)) {
		grown := make([]byte, end)
		copy(grown, e.plaintext)
		e.plaintext = grown
	}

	copy(e.plaintext[offset:end], buf[:size])
	return size, nil
}

// Flush splits the current plaintext into chunks, compresses and
// encrypts each one, stores the ciphertexts, and rewrites the data
// map. The final, possibly short, chunk is kept as Tail rather than
// padded, so DataMap.Size stays exact.
func (e *Encryptor) Flush(ctx context.Context) error {
	if !e.loaded {
		// Nothing was ever read or written; the on-store chunks
		// already reflect the current content.
		return nil
	}

	var chunks []ChunkRef
	data := e.plaintext

	for len(data) >= e.chunkSize {
		piece := data[:e.chunkSize]
		ref, err := encodeChunk(ctx, e.store, piece)
		if err != nil {
			return fmt.Errorf("encryptor: flush chunk: %w", err)
		}
		chunks = append(chunks, ref)
		data = data[e.chunkSize:]
	}

	tail := make([]byte, len(data))
	copy(tail, data)

	e.dataMap = DataMap{Chunks: chunks, Tail: tail}
	return nil
}

// deriveKey derives a convergent per-chunk AEAD key from the chunk's
// plaintext hash via HKDF, so identical plaintext chunks always
// produce the same ciphertext (and therefore the same storage key),
// enabling cross-file deduplication in the chunk store.
func deriveKey(plaintextHash [32]byte) ([32]byte, error) {
	var key [32]byte
	kdf := hkdf.New(func() hash.Hash { return blake3.New() }, plaintextHash[:], nil, []byte("driftvault-chunk-key"))
	if _, err := io.ReadFull(kdf, key[:]); err != nil {
		return key, fmt.Errorf("derive chunk key: %w", err)
	}
	return key, nil
}

func newAEAD(key [32]byte) (cipher.AEAD, error) {
	return chacha20poly1305.New(key[:])
}

// nonce derives a deterministic nonce from the chunk's AEAD key.
// Reusing a key only ever with the data that produced it (convergent
// encryption) makes a fixed, key-derived nonce safe here: the same
// (key, plaintext, nonce) triple is only ever encrypted once, and
// deriving the nonce from the key (rather than the plaintext hash)
// means decode can recover it without re-deriving the key's own input.
func nonce(key [32]byte) []byte {
	n := make([]byte, chacha20poly1305.NonceSize)
	kdf := hkdf.New(func() hash.Hash { return blake3.New() }, key[:], nil, []byte("driftvault-chunk-nonce"))
	_, _ = io.ReadFull(kdf, n)
	return n
}

func encodeChunk(ctx context.Context, store chunkstore.ChunkStore, plain []byte) (ChunkRef, error) {
	plainHash := blake3.Sum256(plain)

	key, err := deriveKey(plainHash)
	if err != nil {
		return ChunkRef{}, err
	}

	compressed, err := compress(plain)
	if err != nil {
		return ChunkRef{}, err
	}

	aead, err := newAEAD(key)
	if err != nil {
		return ChunkRef{}, fmt.Errorf("build AEAD cipher: %w", err)
	}

	ciphertext := aead.Seal(nil, nonce(key), compressed, nil)
	cipherHash := chunkstore.Hash(blake3.Sum256(ciphertext))

	if err := store.Put(ctx, cipherHash, ciphertext); err != nil {
		return ChunkRef{}, fmt.Errorf("store chunk: %w", err)
	}

	return ChunkRef{Hash: cipherHash, Key: key, PlaintextSize: uint32(len(plain))}, nil
}

func decodeChunk(ctx context.Context, store chunkstore.ChunkStore, ref ChunkRef) ([]byte, error) {
	ciphertext, err := store.Get(ctx, ref.Hash)
	if err != nil {
		return nil, fmt.Errorf("fetch chunk: %w", err)
	}

	aead, err := newAEAD(ref.Key)
	if err != nil {
		return nil, fmt.Errorf("build AEAD cipher: %w", err)
	}

	compressed, err := aead.Open(nil, nonce(ref.Key), ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt chunk: %w", err)
	}

	plain, err := decompress(compressed, int(ref.PlaintextSize))
	if err != nil {
		return nil, fmt.Errorf("decompress chunk: %w", err)
	}

	return plain, nil
}

func compress(plain []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("build zstd encoder: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(plain, nil), nil
}

func decompress(compressed []byte, sizeHint int) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("build zstd decoder: %w", err)
	}
	defer dec.Close()
	return dec.DecodeAll(compressed, make([]byte, 0, sizeHint))
}

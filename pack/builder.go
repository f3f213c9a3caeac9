// Package pack implements the content-addressed packfile layer: a
// build-side size-gated bundle of blobs and a read-side hash→bytes
// lookup, grounded on original_source/rozen/src/rarc/pack.rs.
package pack

import (
	"crypto/rand"
	"fmt"
	"io"

	"cairn/cryptostream"
	"cairn/internal/chash"
	"cairn/ltvc"
)

// DefaultSizeTarget is the production rollover threshold. Tests use a
// much smaller value to exercise rollover cheaply, the same test/prod
// split the original pack.rs makes with its 4 KiB PACK_SIZE constant.
const DefaultSizeTarget = 1 << 30 // 1 GiB

// Builder accumulates FHDR blobs into one archive and reports when the
// archive has reached its size target, so callers know to roll over to
// a new pack.
type Builder struct {
	ID         chash.Hash
	iw         *ltvc.IndexingWriter
	sizeTarget uint64
	finalized  bool
}

// GenerateID returns a fresh random 32-byte packfile identifier, the Go
// analogue of the original's key::gen_id() (a random key reused as a
// hash).
func GenerateID() (chash.Hash, error) {
	var id chash.Hash
	if _, err := rand.Read(id[:]); err != nil {
		return chash.Hash{}, fmt.Errorf("pack: generate id: %w", err)
	}
	return id, nil
}

// NewBuilder creates a packfile builder with identifier id, writing to
// w. Callers that stream to a remote multi-part sink keyed by the
// packfile's name must call GenerateID first so the sink can be opened
// under that name before the builder exists. edatChunkBytes sets the
// EDAT frame target size every appended blob is split into (0 falls
// back to ltvc's package default).
func NewBuilder(w io.Writer, sizeTarget uint64, id chash.Hash, edatChunkBytes uint32) (*Builder, error) {
	if sizeTarget == 0 {
		sizeTarget = DefaultSizeTarget
	}
	iw, err := ltvc.NewIndexingWriterWithChunkSize(w, edatChunkBytes)
	if err != nil {
		return nil, err
	}
	return &Builder{ID: id, iw: iw, sizeTarget: sizeTarget}, nil
}

// Append writes one blob, keyed by its content hash. The returned bool
// is true once the cumulative archive size has reached the configured
// size target; the caller should then Finalize this builder and start a
// new one.
func (b *Builder) Append(hash chash.Hash, r io.Reader) (bool, error) {
	if err := b.iw.AppendFile(hash, r); err != nil {
		return false, err
	}
	return b.iw.Size() >= b.sizeTarget, nil
}

// Size returns the archive's current byte length.
func (b *Builder) Size() uint64 {
	return b.iw.Size()
}

// Finalize closes the archive with an AIDX trailer.
func (b *Builder) Finalize(key cryptostream.Key) error {
	if b.finalized {
		return nil
	}
	b.finalized = true
	return b.iw.Finalize(true, key)
}

// Package checksum implements the two-tier checksum discipline used by
// the ltvc frame codec: a 16-bit header checksum over {length, type} and
// a 32-bit trailer checksum over the payload, both derived from a single
// non-cryptographic hash with a fixed seed.
package checksum

import "github.com/cespare/xxhash/v2"

// Digest accumulates bytes into a 32-bit checksum, seeded at zero.
type Digest struct {
	h *xxhash.Digest
}

// New returns a fresh, zero-seeded digest.
func New() *Digest {
	return &Digest{h: xxhash.New()}
}

func (d *Digest) Write(p []byte) (int, error) {
	return d.h.Write(p)
}

// Sum32 returns the low 32 bits of the running hash.
func (d *Digest) Sum32() uint32 {
	return uint32(d.h.Sum64())
}

// Header computes the 16-bit header checksum over length and type.
func Header(length uint32, typ [4]byte) uint16 {
	d := New()
	var lb [4]byte
	lb[0] = byte(length)
	lb[1] = byte(length >> 8)
	lb[2] = byte(length >> 16)
	lb[3] = byte(length >> 24)
	d.Write(lb[:])
	d.Write(typ[:])
	return uint16(d.Sum32())
}

// Trailer computes the 32-bit trailer checksum over the payload.
func Trailer(payload []byte) uint32 {
	d := New()
	d.Write(payload)
	return d.Sum32()
}

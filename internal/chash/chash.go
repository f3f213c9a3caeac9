// Package chash computes the content-addressed keyed digest used to name
// blobs, packfiles, and remote objects throughout cairn.
package chash

import (
	"encoding/hex"
	"io"

	"golang.org/x/crypto/blake2b"
)

// Size is the length in bytes of a Hash.
const Size = 32

// Hash is a 32-byte content-addressed digest.
type Hash [Size]byte

// Key is the shared MAC key used to derive a Hash from content. A Key
// carries no disk-at-rest authority on its own; it is read from the
// archive's key material the same way the encryption key is.
type Key [32]byte

// Sum computes the keyed digest of everything read from r.
func Sum(key Key, r io.Reader) (Hash, error) {
	h, err := blake2b.New(Size, key[:])
	if err != nil {
		return Hash{}, err
	}
	if _, err := io.Copy(h, r); err != nil {
		return Hash{}, err
	}
	var out Hash
	copy(out[:], h.Sum(nil))
	return out, nil
}

// SumBytes computes the keyed digest of data.
func SumBytes(key Key, data []byte) Hash {
	h, err := blake2b.New(Size, key[:])
	if err != nil {
		// New only fails for an out-of-range size/key length, which
		// Size and Key's fixed width make unreachable.
		panic(err)
	}
	h.Write(data)
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// String returns the lowercase hex encoding of h.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// FromHex parses a lowercase hex string into a Hash.
func FromHex(s string) (Hash, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, err
	}
	var h Hash
	if len(b) != Size {
		return Hash{}, ErrBadLength
	}
	copy(h[:], b)
	return h, nil
}

var ErrBadLength = errBadLength{}

type errBadLength struct{}

func (errBadLength) Error() string { return "chash: hex value is not 32 bytes" }

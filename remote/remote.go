// Package remote is the abstract byte-stream sink/source the archive
// core requires from its environment, keyed by (kind, name). Grounded
// on original_source/remote/src/lib.rs's Remote trait.
package remote

import (
	"fmt"
	"io"

	"cairn/internal/chash"
)

// Kind namespaces remote objects.
type Kind string

const (
	KindMap   Kind = "map"
	KindIndex Kind = "index"
	KindPack  Kind = "pack"
)

// Store is the capability the core requires: list, read, write, and
// streamed multi-part write, each keyed by (kind, name). Pack objects
// are named by the lowercase hex of their 32-byte id (NameFor); index
// objects are named by their snapshot name. The contract makes no durability
// claim beyond byte-exact readback after a write completes.
type Store interface {
	List(kind Kind) ([]string, error)
	Read(kind Kind, name string) (io.ReadCloser, error)
	Write(kind Kind, name string, r io.Reader) error
	WriteMulti(kind Kind, name string) (io.WriteCloser, error)
}

// NameFor returns the lowercase-hex object name for a content hash.
func NameFor(hash chash.Hash) string {
	return hash.String()
}

// WriteHash is a convenience wrapper delegating to Store.Write using a
// hash's hex name, mirroring the original's default write(typ, key,
// reader) -> write_filename(typ, to_hex(key), reader) delegation.
func WriteHash(s Store, kind Kind, hash chash.Hash, r io.Reader) error {
	return s.Write(kind, NameFor(hash), r)
}

// ReadHash is the read-side analogue of WriteHash.
func ReadHash(s Store, kind Kind, hash chash.Hash) (io.ReadCloser, error) {
	return s.Read(kind, NameFor(hash))
}

// WriteMultiHash is the streamed-upload analogue of WriteHash.
func WriteMultiHash(s Store, kind Kind, hash chash.Hash) (io.WriteCloser, error) {
	return s.WriteMulti(kind, NameFor(hash))
}

func key(kind Kind, name string) string {
	return fmt.Sprintf("%s/%s", kind, name)
}

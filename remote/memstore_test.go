package remote

import (
	"bytes"
	"io"
	"testing"

	"gotest.tools/v3/assert"

	"cairn/internal/chash"
)

func TestMemStoreWriteReadRoundTrip(t *testing.T) {
	m := NewMemStore()
	assert.NilError(t, m.Write(KindPack, "abc", bytes.NewReader([]byte("data"))))

	rc, err := m.Read(KindPack, "abc")
	assert.NilError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	assert.NilError(t, err)
	assert.DeepEqual(t, got, []byte("data"))
}

func TestMemStoreReadMissingObject(t *testing.T) {
	m := NewMemStore()
	_, err := m.Read(KindIndex, "nope")
	assert.Assert(t, err != nil)
}

func TestMemStoreListIsNamespacedByKind(t *testing.T) {
	m := NewMemStore()
	assert.NilError(t, m.Write(KindPack, "p1", bytes.NewReader(nil)))
	assert.NilError(t, m.Write(KindIndex, "i1", bytes.NewReader(nil)))
	assert.NilError(t, m.Write(KindPack, "p2", bytes.NewReader(nil)))

	names, err := m.List(KindPack)
	assert.NilError(t, err)
	assert.DeepEqual(t, names, []string{"p1", "p2"})

	names, err = m.List(KindIndex)
	assert.NilError(t, err)
	assert.DeepEqual(t, names, []string{"i1"})
}

func TestMemStoreWriteMultiBuffersUntilClose(t *testing.T) {
	m := NewMemStore()
	w, err := m.WriteMulti(KindPack, "multi")
	assert.NilError(t, err)

	_, err = w.Write([]byte("part1"))
	assert.NilError(t, err)
	_, err = w.Write([]byte("part2"))
	assert.NilError(t, err)

	_, err = m.Read(KindPack, "multi")
	assert.Assert(t, err != nil) // nothing visible until Close

	assert.NilError(t, w.Close())

	rc, err := m.Read(KindPack, "multi")
	assert.NilError(t, err)
	got, err := io.ReadAll(rc)
	assert.NilError(t, err)
	assert.DeepEqual(t, got, []byte("part1part2"))
}

func TestWriteHashReadHashRoundTrip(t *testing.T) {
	m := NewMemStore()
	var h chash.Hash
	h[0] = 0xAB

	assert.NilError(t, WriteHash(m, KindPack, h, bytes.NewReader([]byte("blob"))))

	rc, err := ReadHash(m, KindPack, h)
	assert.NilError(t, err)
	got, err := io.ReadAll(rc)
	assert.NilError(t, err)
	assert.DeepEqual(t, got, []byte("blob"))
}

package engine

import (
	"bytes"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"

	"cairn/config"
	"cairn/cryptostream"
	"cairn/pack"
	"cairn/remote"
)

func testKeys() Keys {
	var k Keys
	copy(k.Content[:], []byte("content-key-content-key-0123456"))
	var cryptoKey cryptostream.Key
	copy(cryptoKey[:], []byte("crypto-key-crypto-key-0123456789"))
	k.Crypto = cryptoKey
	return k
}

func writeSourceTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	assert.NilError(t, os.WriteFile(filepath.Join(root, "one.txt"), []byte("hello from one"), 0o644))
	assert.NilError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	assert.NilError(t, os.WriteFile(filepath.Join(root, "sub", "two.txt"), []byte("hello from two"), 0o644))
	return root
}

func newTestEngine(t *testing.T, store remote.Store, root string) *Engine {
	t.Helper()
	cfg := &config.Config{
		Sources:            []config.Source{{Root: root, Type: "append_only"}},
		PackTargetBytes:    pack.DefaultSizeTarget,
		EdatChunkBytes:     1024,
		MaxChunkBytes:      10 * 1024,
		LargeBlobThreshold: config.DefaultLargeBlobThreshold,
	}
	return New(store, testKeys(), cfg, nil)
}

func TestAppendThenFetchRoundTrip(t *testing.T) {
	root := writeSourceTree(t)
	store := remote.NewMemStore()
	eng := newTestEngine(t, store, root)

	assert.NilError(t, eng.Append("snap-one"))

	names, err := eng.List()
	assert.NilError(t, err)
	assert.DeepEqual(t, names, []string{"snap-one"})

	destDir := t.TempDir()
	assert.NilError(t, eng.Fetch("snap-one", destDir))

	got1, err := os.ReadFile(filepath.Join(destDir, "one.txt"))
	assert.NilError(t, err)
	assert.Equal(t, string(got1), "hello from one")

	got2, err := os.ReadFile(filepath.Join(destDir, "sub", "two.txt"))
	assert.NilError(t, err)
	assert.Equal(t, string(got2), "hello from two")
}

func TestFetchDetectsTamperedBlob(t *testing.T) {
	root := writeSourceTree(t)
	store := remote.NewMemStore()
	eng := newTestEngine(t, store, root)
	assert.NilError(t, eng.Append("snap-tamper"))

	packNames, err := store.List(remote.KindPack)
	assert.NilError(t, err)
	assert.Assert(t, len(packNames) > 0)

	rc, err := store.Read(remote.KindPack, packNames[0])
	assert.NilError(t, err)
	data, err := io.ReadAll(rc)
	assert.NilError(t, err)
	rc.Close()

	tampered := append([]byte{}, data...)
	tampered[len(tampered)-1] ^= 0xFF
	assert.NilError(t, store.Write(remote.KindPack, packNames[0], bytes.NewReader(tampered)))

	destDir := t.TempDir()
	err = eng.Fetch("snap-tamper", destDir)
	assert.Assert(t, err != nil)
}

func TestAppendRoutesLargeBlobToPrivatePack(t *testing.T) {
	root := t.TempDir()
	big := make([]byte, 8*1024)
	rand.New(rand.NewSource(1)).Read(big) // incompressible, so it stays above the large-blob threshold after zstd
	assert.NilError(t, os.WriteFile(filepath.Join(root, "big.bin"), big, 0o644))

	store := remote.NewMemStore()
	eng := newTestEngine(t, store, root)
	assert.NilError(t, eng.Append("snap-big"))

	packNames, err := store.List(remote.KindPack)
	assert.NilError(t, err)
	assert.Equal(t, len(packNames), 1)

	destDir := t.TempDir()
	assert.NilError(t, eng.Fetch("snap-big", destDir))
	got, err := os.ReadFile(filepath.Join(destDir, "big.bin"))
	assert.NilError(t, err)
	assert.DeepEqual(t, got, big)
}


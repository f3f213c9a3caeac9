package config

import (
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"

	"cairn/ltvc"
	"cairn/pack"
)

func TestLoadAppliesDefaultsWhenNoPathGiven(t *testing.T) {
	cfg, err := Load("")
	assert.NilError(t, err)
	assert.Equal(t, cfg.PackTargetBytes, uint64(pack.DefaultSizeTarget))
	assert.Equal(t, cfg.EdatChunkBytes, uint64(ltvc.Chunk))
	assert.Equal(t, cfg.MaxChunkBytes, uint64(ltvc.MaxChunk))
	assert.Equal(t, cfg.LargeBlobThreshold, uint64(DefaultLargeBlobThreshold))
	assert.Equal(t, cfg.KeyFile, "cairn.key")
}

func TestLoadParsesHumanByteSizesAndSources(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cairn.toml")
	toml := `
symlink = true
same_fs = false
pack_target_bytes = "2MiB"
large_blob_threshold = "4KiB"

[[sources]]
root = "/data"
include = ["*.txt"]
exclude = ["*.tmp"]
type = "append_only"
`
	assert.NilError(t, os.WriteFile(path, []byte(toml), 0o644))

	cfg, err := Load(path)
	assert.NilError(t, err)
	assert.Equal(t, cfg.Symlink, true)
	assert.Equal(t, cfg.PackTargetBytes, uint64(2*1024*1024))
	assert.Equal(t, cfg.LargeBlobThreshold, uint64(4*1024))
	assert.Equal(t, len(cfg.Sources), 1)
	assert.Equal(t, cfg.Sources[0].Root, "/data")
	assert.Equal(t, cfg.Sources[0].Type, "append_only")
}

func TestLoadRejectsEdatChunkLargerThanMaxChunk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cairn.toml")
	toml := `
edat_chunk_bytes = "20KiB"
max_chunk_bytes = "1KiB"
`
	assert.NilError(t, os.WriteFile(path, []byte(toml), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "exceeds max_chunk_bytes")
}

func TestLoadRejectsMissingConfigFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	assert.Assert(t, err != nil)
}

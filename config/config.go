// Package config loads cairn's configuration, generalizing the teacher's
// absent config layer and original_source/src/cli.rs's toml Config/
// Source structs into a viper-backed loader with human byte-size units.
package config

import (
	"fmt"
	"strings"

	units "github.com/docker/go-units"
	"github.com/spf13/viper"

	"cairn/ltvc"
	"cairn/pack"
)

// Source mirrors original_source/src/cli.rs's Source: one root to walk,
// with gitignore-style include/exclude patterns and a source type.
type Source struct {
	Root    string   `mapstructure:"root"`
	Include []string `mapstructure:"include"`
	Exclude []string `mapstructure:"exclude"`
	Type    string   `mapstructure:"type"`
}

// Config is cairn's full configuration surface.
type Config struct {
	Symlink bool     `mapstructure:"symlink"`
	SameFS  bool     `mapstructure:"same_fs"`
	Sources []Source `mapstructure:"sources"`
	KeyFile string   `mapstructure:"key_file"`

	// Byte-size options, accepted as human strings ("1GiB", "10KiB")
	// and parsed via docker/go-units.
	PackTargetBytesStr    string `mapstructure:"pack_target_bytes"`
	EdatChunkBytesStr     string `mapstructure:"edat_chunk_bytes"`
	MaxChunkBytesStr      string `mapstructure:"max_chunk_bytes"`
	LargeBlobThresholdStr string `mapstructure:"large_blob_threshold"`

	PackTargetBytes    uint64
	EdatChunkBytes     uint64
	MaxChunkBytes      uint64
	LargeBlobThreshold uint64

	Bucket string `mapstructure:"bucket"`
}

// LargeBlobThreshold default of 3 KiB, taken directly from
// original_source/src/cas.rs's ObjectStore::append size check.
const DefaultLargeBlobThreshold = 3 * 1024

// Load reads configuration from path (TOML or YAML, by extension) and
// from CAIRN_* environment variables, applying defaults for any
// byte-size option left unset.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CAIRN")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	// Unmarshal only sees keys viper already knows, so bind each scalar
	// key explicitly for CAIRN_* variables to apply without a config file.
	for _, k := range []string{"symlink", "same_fs", "key_file", "bucket",
		"pack_target_bytes", "edat_chunk_bytes", "max_chunk_bytes", "large_blob_threshold"} {
		_ = v.BindEnv(k)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if cfg.KeyFile == "" {
		cfg.KeyFile = "cairn.key"
	}

	var err error
	cfg.PackTargetBytes, err = parseSize(cfg.PackTargetBytesStr, pack.DefaultSizeTarget)
	if err != nil {
		return nil, err
	}
	cfg.EdatChunkBytes, err = parseSize(cfg.EdatChunkBytesStr, ltvc.Chunk)
	if err != nil {
		return nil, err
	}
	cfg.MaxChunkBytes, err = parseSize(cfg.MaxChunkBytesStr, ltvc.MaxChunk)
	if err != nil {
		return nil, err
	}
	cfg.LargeBlobThreshold, err = parseSize(cfg.LargeBlobThresholdStr, DefaultLargeBlobThreshold)
	if err != nil {
		return nil, err
	}
	if cfg.EdatChunkBytes > cfg.MaxChunkBytes {
		return nil, fmt.Errorf("config: edat_chunk_bytes (%d) exceeds max_chunk_bytes (%d)",
			cfg.EdatChunkBytes, cfg.MaxChunkBytes)
	}

	return &cfg, nil
}

func parseSize(s string, def uint64) (uint64, error) {
	if s == "" {
		return def, nil
	}
	n, err := units.RAMInBytes(s)
	if err != nil {
		return 0, fmt.Errorf("config: parse byte size %q: %w", s, err)
	}
	return uint64(n), nil
}

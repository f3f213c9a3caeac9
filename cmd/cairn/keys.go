package main

import (
	"crypto/rand"
	"fmt"
	"io"
	"os"

	"cairn/cryptostream"
	"cairn/engine"
	"cairn/internal/chash"
)

// keyFileSize is the content-hash key followed by the archive
// encryption key, concatenated.
const keyFileSize = len(chash.Key{}) + len(cryptostream.Key{})

// loadOrCreateKeys reads the two key material values from path,
// generating and persisting a fresh pair if the file does not yet
// exist. Key management beyond this is out of this exercise's scope;
// original_source/rozen/src/key.rs's password-derived disk key wrapping
// (argon2id + secretbox) is not implemented; the key file is stored
// unwrapped.
func loadOrCreateKeys(path string) (engine.Keys, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		data = make([]byte, keyFileSize)
		if _, err := io.ReadFull(rand.Reader, data); err != nil {
			return engine.Keys{}, fmt.Errorf("keys: generate: %w", err)
		}
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return engine.Keys{}, fmt.Errorf("keys: persist %s: %w", path, err)
		}
	} else if err != nil {
		return engine.Keys{}, fmt.Errorf("keys: read %s: %w", path, err)
	}

	if len(data) != keyFileSize {
		return engine.Keys{}, fmt.Errorf("keys: %s has %d bytes, want %d", path, len(data), keyFileSize)
	}

	var keys engine.Keys
	copy(keys.Content[:], data[:len(chash.Key{})])
	copy(keys.Crypto[:], data[len(chash.Key{}):])
	return keys, nil
}

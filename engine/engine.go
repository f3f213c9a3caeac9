// Package engine orchestrates the walk -> hash -> compress -> encrypt ->
// pack -> remote pipeline for append/fetch/list, grounded on
// original_source/src/cas.rs's ObjectStore (blob routing) and
// original_source/rozen/src/snapshot.rs's append loop, in the rotate/
// flush/threshold orchestration style of the teacher's db/db.go.
package engine

import (
	"io"

	"github.com/charmbracelet/log"

	"cairn/config"
	"cairn/cryptostream"
	"cairn/internal/chash"
	"cairn/remote"
)

// Keys bundles the two key material values the engine needs: the
// content-hash MAC key and the archive encryption key.
type Keys struct {
	Content chash.Key
	Crypto  cryptostream.Key
}

// Engine ties a remote store, key material, and configuration together
// into the append/fetch/list operations.
type Engine struct {
	Store remote.Store
	Keys  Keys
	Cfg   *config.Config
	Log   *log.Logger
}

// New constructs an Engine. A nil logger falls back to a silent default
// logger, so tests can avoid injecting one explicitly.
func New(store remote.Store, keys Keys, cfg *config.Config, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Engine{Store: store, Keys: keys, Cfg: cfg, Log: logger}
}

// List enumerates every snapshot name currently stored.
func (e *Engine) List() ([]string, error) {
	return e.Store.List(remote.KindIndex)
}

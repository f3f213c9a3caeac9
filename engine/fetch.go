package engine

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"cairn/internal/chash"
	"cairn/ltvc"
	"cairn/pack"
	"cairn/remote"
	"cairn/snapshot"
)

// ErrIntegrity marks a content-hash verification failure discovered
// while restoring a snapshot. Per the format's error-handling design,
// this is a surfaced integrity error rather than a codec error.
var ErrIntegrity = errors.New("engine: content hash verification failed")

// Fetch restores the named snapshot into destDir, re-verifying every
// blob's content hash as it is decoded (the "content-hash verification
// performed by the caller" path from the format's error-handling
// design, grounded on original_source/src/main.rs's closing
// verification loop).
func (e *Engine) Fetch(name string, destDir string) error {
	idx, mapDB, err := e.loadSnapshot(name)
	if err != nil {
		return err
	}

	entries, err := snapshot.ListEntries(idx, mapDB)
	if err != nil {
		return fmt.Errorf("engine: list snapshot entries: %w", err)
	}

	packs := make(map[chash.Hash]*pack.Reader)
	for _, entry := range entries {
		reader, ok := packs[entry.PackHash]
		if !ok {
			rc, err := e.Store.Read(remote.KindPack, remote.NameFor(entry.PackHash))
			if err != nil {
				return fmt.Errorf("engine: read pack %s: %w", entry.PackHash, err)
			}
			reader, err = pack.Load(rc, e.Keys.Crypto, uint32(e.Cfg.MaxChunkBytes))
			rc.Close()
			if err != nil {
				return fmt.Errorf("engine: load pack %s: %w", entry.PackHash, err)
			}
			packs[entry.PackHash] = reader
		}

		encoded, ok := reader.Find(entry.ContentHash)
		if !ok {
			return fmt.Errorf("engine: blob %s missing from pack %s", entry.ContentHash, entry.PackHash)
		}

		data, err := decodeBlob(encoded, e.Keys.Crypto)
		if err != nil {
			return fmt.Errorf("engine: decode blob %s: %w", entry.Path, err)
		}

		gotHash := chash.SumBytes(e.Keys.Content, data)
		if gotHash != entry.ContentHash {
			return fmt.Errorf("%w: %s hashes to %s, want %s", ErrIntegrity, entry.Path, gotHash, entry.ContentHash)
		}

		outPath := filepath.Join(destDir, entry.Path)
		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(outPath, data, os.FileMode(entry.Permission)|0o600); err != nil {
			return err
		}
		e.Log.Debug("restored file", "path", entry.Path, "hash", gotHash)
	}

	e.Log.Info("fetched snapshot", "name", name, "files", len(entries))
	return nil
}

func (e *Engine) loadSnapshot(name string) (*snapshot.Index, *snapshot.Map, error) {
	rc, err := e.Store.Read(remote.KindIndex, name)
	if err != nil {
		return nil, nil, fmt.Errorf("engine: read snapshot %s: %w", name, err)
	}
	defer rc.Close()

	lr := ltvc.NewLinearReaderWithLimit(rc, uint32(e.Cfg.MaxChunkBytes))
	var idx *snapshot.Index
	var mapDB *snapshot.Map

	for {
		sec, err := lr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("engine: parse snapshot %s: %w", name, err)
		}

		switch sec.Kind {
		case ltvc.SectionShdr:
			raw, err := io.ReadAll(sec.Stream)
			if err != nil {
				return nil, nil, err
			}
			decoded, err := decodeBlob(raw, e.Keys.Crypto)
			if err != nil {
				return nil, nil, err
			}
			idx, err = snapshot.LoadIndexFromBytes(decoded)
			if err != nil {
				return nil, nil, err
			}

		case ltvc.SectionPidx:
			raw, err := io.ReadAll(sec.Stream)
			if err != nil {
				return nil, nil, err
			}
			decoded, err := decodeBlob(raw, e.Keys.Crypto)
			if err != nil {
				return nil, nil, err
			}
			mapDB, err = snapshot.LoadMapFromBytes(decoded)
			if err != nil {
				return nil, nil, err
			}

		default:
			io.Copy(io.Discard, sec.Stream)
		}
	}

	if idx == nil || mapDB == nil {
		return nil, nil, fmt.Errorf("engine: snapshot %s is missing its index or map section", name)
	}
	return idx, mapDB, nil
}

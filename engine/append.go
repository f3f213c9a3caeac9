package engine

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"cairn/internal/chash"
	"cairn/ltvc"
	"cairn/remote"
	"cairn/snapshot"
	"cairn/walk"
)

// Append walks every configured source, hashing/compressing/encrypting
// each file into packfiles, then writes one snapshot archive (an SHDR
// file index plus a PIDX hash->pack map) under the given name.
// Grounded on original_source/rozen/src/snapshot.rs's append().
func (e *Engine) Append(name string) error {
	idx, err := snapshot.NewIndex()
	if err != nil {
		return fmt.Errorf("engine: new index: %w", err)
	}
	mapDB, err := snapshot.NewMap()
	if err != nil {
		return fmt.Errorf("engine: new map: %w", err)
	}

	router := newBlobRouter(e)
	walker := walk.NewWalker(walk.Options{
		FollowSymlinks: e.Cfg.Symlink,
		SameFilesystem: e.Cfg.SameFS,
	})

	for _, src := range e.Cfg.Sources {
		wsrc := walk.Source{
			Root:    src.Root,
			Include: src.Include,
			Exclude: src.Exclude,
			Type:    walk.SourceType(src.Type),
		}
		e.Log.Info("walking source", "root", src.Root)
		err := walker.Walk(wsrc, func(entry walk.Entry) error {
			return e.appendOneFile(router, idx, mapDB, src.Root, entry)
		})
		if err != nil {
			return fmt.Errorf("engine: walk %s: %w", src.Root, err)
		}
	}

	if err := router.flush(); err != nil {
		return fmt.Errorf("engine: finalize pending pack: %w", err)
	}

	return e.writeSnapshotArchive(name, idx, mapDB)
}

func (e *Engine) appendOneFile(router *blobRouter, idx *snapshot.Index, mapDB *snapshot.Map, root string, entry walk.Entry) error {
	data, err := os.ReadFile(entry.Path)
	if err != nil {
		return fmt.Errorf("engine: read %s: %w", entry.Path, err)
	}

	hash := chash.SumBytes(e.Keys.Content, data)

	encoded, err := encodeBlob(data, e.Keys.Crypto)
	if err != nil {
		return fmt.Errorf("engine: encode %s: %w", entry.Path, err)
	}

	if err := router.appendBlob(encoded, hash, mapDB); err != nil {
		return fmt.Errorf("engine: store %s: %w", entry.Path, err)
	}

	rel, err := filepath.Rel(root, entry.Path)
	if err != nil {
		rel = entry.Path
	}
	perm := uint32(entry.Info.Mode().Perm())
	e.Log.Debug("captured file", "path", rel, "hash", hash, "size", len(data))
	return idx.InsertFile(rel, perm, hash)
}

func (e *Engine) writeSnapshotArchive(name string, idx *snapshot.Index, mapDB *snapshot.Map) error {
	indexRaw, err := idx.Dump()
	if err != nil {
		return fmt.Errorf("engine: dump index: %w", err)
	}
	mapRaw, err := mapDB.Dump()
	if err != nil {
		return fmt.Errorf("engine: dump map: %w", err)
	}

	indexHash := chash.SumBytes(e.Keys.Content, indexRaw)
	mapHash := chash.SumBytes(e.Keys.Content, mapRaw)

	encodedIndex, err := encodeBlob(indexRaw, e.Keys.Crypto)
	if err != nil {
		return err
	}
	encodedMap, err := encodeBlob(mapRaw, e.Keys.Crypto)
	if err != nil {
		return err
	}

	sink, err := e.Store.WriteMulti(remote.KindIndex, name)
	if err != nil {
		return fmt.Errorf("engine: open snapshot sink: %w", err)
	}

	iw, err := ltvc.NewIndexingWriterWithChunkSize(sink, uint32(e.Cfg.EdatChunkBytes))
	if err != nil {
		return err
	}
	if err := iw.AppendSnapshot(indexHash, bytes.NewReader(encodedIndex)); err != nil {
		return err
	}
	if err := iw.AppendPackIndex(mapHash, bytes.NewReader(encodedMap)); err != nil {
		return err
	}
	if err := iw.Finalize(true, e.Keys.Crypto); err != nil {
		return err
	}

	e.Log.Info("wrote snapshot", "name", name)
	return sink.Close()
}

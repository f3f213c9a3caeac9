package engine

import (
	"bytes"
	"fmt"
	"io"

	"cairn/internal/chash"
	"cairn/pack"
	"cairn/remote"
	"cairn/snapshot"
)

// openPack is a packfile currently being written to a remote multi-part
// sink, keyed by its random identifier.
type openPack struct {
	id      chash.Hash
	builder *pack.Builder
	sink    io.WriteCloser
}

// blobRouter routes small blobs into one shared, rolling packfile and
// large blobs into their own private, immediately-finalized packfile,
// per original_source/src/cas.rs's ObjectStore::append. Threshold-
// triggered rollover mirrors the teacher's db/db.go
// rotateWAL/rotateMemtables/maybeScheduleFlush pattern: accumulate into
// the current pack until it crosses a size gate, then finalize and
// start a fresh one.
type blobRouter struct {
	eng    *Engine
	shared *openPack
}

func newBlobRouter(e *Engine) *blobRouter {
	return &blobRouter{eng: e}
}

func (r *blobRouter) openNewPack() (*openPack, error) {
	id, err := pack.GenerateID()
	if err != nil {
		return nil, err
	}
	sink, err := r.eng.Store.WriteMulti(remote.KindPack, remote.NameFor(id))
	if err != nil {
		return nil, fmt.Errorf("engine: open pack sink: %w", err)
	}
	builder, err := pack.NewBuilder(sink, r.eng.Cfg.PackTargetBytes, id, uint32(r.eng.Cfg.EdatChunkBytes))
	if err != nil {
		return nil, err
	}
	return &openPack{id: id, builder: builder, sink: sink}, nil
}

func (op *openPack) finalize(r *blobRouter) error {
	if err := op.builder.Finalize(r.eng.Keys.Crypto); err != nil {
		return err
	}
	return op.sink.Close()
}

// appendBlob writes one already-encoded (compressed+encrypted) blob,
// recording its packfile assignment in mapDB.
func (r *blobRouter) appendBlob(encoded []byte, hash chash.Hash, mapDB *snapshot.Map) error {
	if uint64(len(encoded)) > r.eng.Cfg.LargeBlobThreshold {
		op, err := r.openNewPack()
		if err != nil {
			return err
		}
		if _, err := op.builder.Append(hash, bytes.NewReader(encoded)); err != nil {
			return err
		}
		if err := op.finalize(r); err != nil {
			return err
		}
		r.eng.Log.Debug("wrote large blob to private pack", "hash", hash, "pack", op.id)
		return mapDB.InsertChunk(hash, op.id)
	}

	if r.shared == nil {
		op, err := r.openNewPack()
		if err != nil {
			return err
		}
		r.shared = op
	}

	full, err := r.shared.builder.Append(hash, bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	if err := mapDB.InsertChunk(hash, r.shared.id); err != nil {
		return err
	}
	r.eng.Log.Debug("wrote small blob to shared pack", "hash", hash, "pack", r.shared.id)

	if full {
		if err := r.shared.finalize(r); err != nil {
			return err
		}
		r.eng.Log.Info("rolled shared pack", "pack", r.shared.id, "size", r.shared.builder.Size())
		r.shared = nil
	}
	return nil
}

// flush force-finalizes any pending shared pack, the routing-level
// analogue of cas.rs's ObjectStore::finalize forcing a partial pack
// closed at the end of an append run.
func (r *blobRouter) flush() error {
	if r.shared == nil {
		return nil
	}
	op := r.shared
	r.shared = nil
	return op.finalize(r)
}

package pack

import (
	"bytes"
	"fmt"
	"io"

	"cairn/cryptostream"
	"cairn/internal/archcompress"
	"cairn/internal/chash"
	"cairn/ltvc"
)

// Reader holds every blob of a loaded packfile in memory, keyed by
// content hash, plus the decoded trailer table. This mirrors the
// reference implementation's buffering strategy (original_source
// rarc/pack.rs's PackOut); a future reader may instead use the
// HeaderIdx offsets to range-read a single blob lazily.
type Reader struct {
	blobs map[chash.Hash][]byte
	Index []ltvc.HeaderIdx
}

// Load consumes a packfile fully, decrypting its AIDX trailer with key.
// maxChunkBytes caps the declared length of any record read (0 falls
// back to ltvc's package default), the reader-side counterpart of a
// configured max_chunk_bytes.
func Load(r io.Reader, key cryptostream.Key, maxChunkBytes uint32) (*Reader, error) {
	lr := ltvc.NewLinearReaderWithLimit(r, maxChunkBytes)
	out := &Reader{blobs: make(map[chash.Hash][]byte)}

	for {
		sec, err := lr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch sec.Kind {
		case ltvc.SectionFhdr:
			data, err := io.ReadAll(sec.Stream)
			if err != nil {
				return nil, fmt.Errorf("pack: read blob %s: %w", sec.Hash, err)
			}
			out.blobs[sec.Hash] = data

		case ltvc.SectionAidx:
			raw, err := io.ReadAll(sec.Stream)
			if err != nil {
				return nil, fmt.Errorf("pack: read trailer: %w", err)
			}
			table, err := decodeTrailer(raw, key)
			if err != nil {
				return nil, err
			}
			out.Index = table

		default:
			// PIDX/SHDR sections do not appear inside a packfile; skip
			// anything unexpected rather than failing the whole load.
			io.Copy(io.Discard, sec.Stream)
		}
	}
	return out, nil
}

func decodeTrailer(raw []byte, key cryptostream.Key) ([]ltvc.HeaderIdx, error) {
	decR, err := cryptostream.NewReader(key, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("pack: decrypt trailer: %w", err)
	}
	compressed, err := io.ReadAll(decR)
	if err != nil {
		return nil, fmt.Errorf("pack: decrypt trailer: %w", err)
	}
	plain, err := archcompress.Decompress(compressed)
	if err != nil {
		return nil, fmt.Errorf("pack: decompress trailer: %w", err)
	}
	return ltvc.DecodeHeaderIdxTable(plain)
}

// Find looks up a blob by content hash.
func (r *Reader) Find(hash chash.Hash) ([]byte, bool) {
	b, ok := r.blobs[hash]
	return b, ok
}

package ltvc

import (
	"encoding/binary"
	"fmt"
	"io"

	"cairn/internal/checksum"
)

// Record is one on-wire entry: a chunk type and its payload.
type Record struct {
	Type    Type
	Payload []byte
}

// RawWriter emits length-type-value-checksum records to an underlying
// sink, the same framing the teacher's WAL writer uses for its own
// length-prefixed chunks, generalized to a single record per call
// instead of a fixed-size block splitter.
type RawWriter struct {
	w io.Writer
}

func NewRawWriter(w io.Writer) *RawWriter {
	return &RawWriter{w: w}
}

// WriteRecord writes one record and returns the number of bytes emitted
// (always 14+len(payload)), so callers can track absolute offsets
// without querying the sink for its position.
func (rw *RawWriter) WriteRecord(ty Type, payload []byte) (int, error) {
	length := uint32(len(payload))

	var header [10]byte
	binary.LittleEndian.PutUint32(header[0:4], length)
	copy(header[4:8], ty[:])
	binary.LittleEndian.PutUint16(header[8:10], checksum.Header(length, ty))

	if _, err := rw.w.Write(header[:]); err != nil {
		return 0, fmt.Errorf("ltvc: write header: %w", err)
	}
	if length > 0 {
		if _, err := rw.w.Write(payload); err != nil {
			return 0, fmt.Errorf("ltvc: write payload: %w", err)
		}
	}

	var trailer [4]byte
	binary.LittleEndian.PutUint32(trailer[:], checksum.Trailer(payload))
	if _, err := rw.w.Write(trailer[:]); err != nil {
		return 0, fmt.Errorf("ltvc: write trailer: %w", err)
	}

	return 14 + len(payload), nil
}

// RawReader decodes a sequence of records, terminating cleanly on
// transport EOF that falls exactly at a record boundary.
type RawReader struct {
	r        io.Reader
	maxChunk uint32
}

func NewRawReader(r io.Reader) *RawReader {
	return &RawReader{r: r, maxChunk: MaxChunk}
}

// NewRawReaderWithLimit is NewRawReader with an overridden declared-
// length cap, the reader-side counterpart of a configured
// max_chunk_bytes: a record whose declared length exceeds limit is
// rejected with ErrMaxLength before its payload is read. limit of 0
// falls back to the package default MaxChunk.
func NewRawReaderWithLimit(r io.Reader, limit uint32) *RawReader {
	if limit == 0 {
		limit = MaxChunk
	}
	return &RawReader{r: r, maxChunk: limit}
}

// ReadRecord reads one record, or returns io.EOF if the stream ended
// cleanly at a record boundary.
func (rr *RawReader) ReadRecord() (Record, error) {
	var header [10]byte
	n, err := io.ReadFull(rr.r, header[:])
	if err != nil {
		if err == io.EOF && n == 0 {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("%w: %v", ErrTruncated, err)
	}

	length := binary.LittleEndian.Uint32(header[0:4])
	var ty Type
	copy(ty[:], header[4:8])
	wantHeaderSum := binary.LittleEndian.Uint16(header[8:10])

	if got := checksum.Header(length, ty); got != wantHeaderSum {
		return Record{}, ErrHeaderChecksum
	}
	if length > rr.maxChunk {
		return Record{}, ErrMaxLength
	}

	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(rr.r, payload); err != nil {
			return Record{}, fmt.Errorf("%w: %v", ErrTruncated, err)
		}
	}

	var trailer [4]byte
	if _, err := io.ReadFull(rr.r, trailer[:]); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	wantTrailerSum := binary.LittleEndian.Uint32(trailer[:])
	if got := checksum.Trailer(payload); got != wantTrailerSum {
		return Record{}, ErrDataChecksum
	}

	return Record{Type: ty, Payload: payload}, nil
}

package ltvc

import (
	"encoding/binary"
	"io"

	"cairn/internal/chash"
)

// ContainerWriter is a thin sequencer over RawWriter exposing one method
// per recognized chunk type. It carries no grammar state of its own;
// callers (the indexing writer, tests) are responsible for emitting a
// valid archive.
type ContainerWriter struct {
	raw       *RawWriter
	chunkSize uint32
}

func NewContainerWriter(w io.Writer) *ContainerWriter {
	return &ContainerWriter{raw: NewRawWriter(w), chunkSize: Chunk}
}

// NewContainerWriterWithChunkSize is NewContainerWriter with an
// overridden EDAT frame target size, the writer-side counterpart of a
// configured edat_chunk_bytes. chunkSize of 0 falls back to the package
// default Chunk.
func NewContainerWriterWithChunkSize(w io.Writer, chunkSize uint32) *ContainerWriter {
	if chunkSize == 0 {
		chunkSize = Chunk
	}
	return &ContainerWriter{raw: NewRawWriter(w), chunkSize: chunkSize}
}

func (cw *ContainerWriter) WriteAHDR(version byte) (int, error) {
	return cw.raw.WriteRecord(TypeAHDR, []byte{version})
}

func (cw *ContainerWriter) WriteFHDR(h chash.Hash) (int, error) {
	return cw.raw.WriteRecord(TypeFHDR, h[:])
}

func (cw *ContainerWriter) WriteSHDR() (int, error) {
	return cw.raw.WriteRecord(TypeSHDR, nil)
}

func (cw *ContainerWriter) WritePIDX() (int, error) {
	return cw.raw.WriteRecord(TypePIDX, nil)
}

func (cw *ContainerWriter) WriteAIDX() (int, error) {
	return cw.raw.WriteRecord(TypeAIDX, nil)
}

// WriteEDAT reads r in full frames of the writer's chunk size (Chunk
// unless overridden at construction), emitting one EDAT record
// per frame until EOF. An empty source still writes a single zero-length
// EDAT record, since every header must be followed by at least one EDAT
// frame for the grammar to parse back cleanly. Returns the total number
// of bytes emitted across all frames (including record overhead).
func (cw *ContainerWriter) WriteEDAT(r io.Reader) (int, error) {
	total := 0
	wroteAny := false
	buf := make([]byte, cw.chunkSize)
	for {
		n, readErr := io.ReadFull(r, buf)
		if n > 0 {
			written, err := cw.raw.WriteRecord(TypeEDAT, buf[:n])
			if err != nil {
				return total, err
			}
			total += written
			wroteAny = true
		}
		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			if !wroteAny {
				written, err := cw.raw.WriteRecord(TypeEDAT, nil)
				if err != nil {
					return total, err
				}
				total += written
			}
			return total, nil
		}
		if readErr != nil {
			return total, readErr
		}
	}
}

func (cw *ContainerWriter) WriteAEND(aidxOffset uint32) (int, error) {
	var payload [4]byte
	binary.LittleEndian.PutUint32(payload[:], aidxOffset)
	return cw.raw.WriteRecord(TypeAEND, payload[:])
}

// rawHandle is the shared, interior-mutable iterator handle that backs
// both the typed reader and any EdatStream it yields, standing in for
// the Rc<RefCell<Peekable<...>>> of the original implementation: a
// single buffered lookahead slot over the raw record stream.
type rawHandle struct {
	rr       *RawReader
	peeked   Record
	peekErr  error
	havePeek bool
}

func newRawHandle(r io.Reader) *rawHandle {
	return &rawHandle{rr: NewRawReader(r)}
}

func newRawHandleWithLimit(r io.Reader, maxChunk uint32) *rawHandle {
	return &rawHandle{rr: NewRawReaderWithLimit(r, maxChunk)}
}

func (h *rawHandle) peek() (Record, error) {
	if !h.havePeek {
		h.peeked, h.peekErr = h.rr.ReadRecord()
		h.havePeek = true
	}
	return h.peeked, h.peekErr
}

func (h *rawHandle) advance() (Record, error) {
	rec, err := h.peek()
	h.havePeek = false
	return rec, err
}

// EntryKind tags the variant carried by a TypedEntry.
type EntryKind int

const (
	EntryAhdr EntryKind = iota
	EntryFhdr
	EntryShdr
	EntryPidx
	EntryAidx
	EntryEdat
	EntryAend
)

// TypedEntry is one projected, validated record from the typed iterator.
type TypedEntry struct {
	Kind    EntryKind
	Version byte
	Hash    chash.Hash
	Stream  *EdatStream
	Offset  uint32
}

// EdatStream is the lazy payload sub-stream for a section: it replays
// the EDAT frame that introduced it, then on further reads peeks the
// shared raw handle, consuming subsequent EDAT frames and leaving the
// handle positioned on the next non-EDAT record without advancing past
// it.
type EdatStream struct {
	h    *rawHandle
	buf  []byte
	done bool
}

func (s *EdatStream) Read(p []byte) (int, error) {
	for len(s.buf) == 0 {
		if s.done {
			return 0, io.EOF
		}
		rec, err := s.h.peek()
		if err != nil {
			if err == io.EOF {
				s.done = true
				return 0, io.EOF
			}
			return 0, err
		}
		if rec.Type != TypeEDAT {
			s.done = true
			return 0, io.EOF
		}
		if _, err := s.h.advance(); err != nil {
			return 0, err
		}
		s.buf = rec.Payload
	}
	n := copy(p, s.buf)
	s.buf = s.buf[n:]
	return n, nil
}

// TypedReader re-projects raw records into TypedEntry values.
type TypedReader struct {
	h *rawHandle
}

func NewTypedReader(r io.Reader) *TypedReader {
	return &TypedReader{h: newRawHandle(r)}
}

// NewTypedReaderWithLimit is NewTypedReader with an overridden declared-
// length cap, threaded down to the underlying RawReader; see
// NewRawReaderWithLimit.
func NewTypedReaderWithLimit(r io.Reader, maxChunk uint32) *TypedReader {
	return &TypedReader{h: newRawHandleWithLimit(r, maxChunk)}
}

// Next decodes the next record, returning io.EOF once the transport ends
// cleanly at a record boundary.
func (tr *TypedReader) Next() (TypedEntry, error) {
	rec, err := tr.h.advance()
	if err != nil {
		return TypedEntry{}, err
	}

	switch rec.Type {
	case TypeAHDR:
		if len(rec.Payload) != 1 {
			return TypedEntry{}, malformed(TypeAHDR, len(rec.Payload), 1)
		}
		if rec.Payload[0] != CurrentVersion {
			return TypedEntry{}, ErrVersionUnsupported
		}
		return TypedEntry{Kind: EntryAhdr, Version: rec.Payload[0]}, nil

	case TypeFHDR:
		if len(rec.Payload) != chash.Size {
			return TypedEntry{}, malformed(TypeFHDR, len(rec.Payload), chash.Size)
		}
		var h chash.Hash
		copy(h[:], rec.Payload)
		return TypedEntry{Kind: EntryFhdr, Hash: h}, nil

	case TypeSHDR:
		return TypedEntry{Kind: EntryShdr}, nil

	case TypePIDX:
		return TypedEntry{Kind: EntryPidx}, nil

	case TypeAIDX:
		return TypedEntry{Kind: EntryAidx}, nil

	case TypeEDAT:
		stream := &EdatStream{h: tr.h, buf: rec.Payload}
		return TypedEntry{Kind: EntryEdat, Stream: stream}, nil

	case TypeAEND:
		if len(rec.Payload) != 4 {
			return TypedEntry{}, malformed(TypeAEND, len(rec.Payload), 4)
		}
		return TypedEntry{Kind: EntryAend, Offset: binary.LittleEndian.Uint32(rec.Payload)}, nil

	default:
		return TypedEntry{}, errUnknownType(rec.Type)
	}
}

func errUnknownType(ty Type) error {
	return &unknownTypeError{ty: ty}
}

type unknownTypeError struct{ ty Type }

func (e *unknownTypeError) Error() string {
	return ErrUnknownType.Error() + ": " + e.ty.String()
}

func (e *unknownTypeError) Unwrap() error { return ErrUnknownType }

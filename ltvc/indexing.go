package ltvc

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"cairn/cryptostream"
	"cairn/internal/archcompress"
	"cairn/internal/chash"
)

// HeaderIdx is one row of the archive trailer table: the chunk type and
// content hash of a logical section, plus its byte extent within the
// archive (header through its final EDAT frame, inclusive).
type HeaderIdx struct {
	Type     Type
	Hash     chash.Hash
	StartIdx uint64
	Length   uint64
}

// EncodeHeaderIdxTable serializes rows in the canonical varint-LEB128
// form: {type[4], hash[32], start_idx(uvarint), length(uvarint)} per
// row, using the same encoding/binary varint primitive the teacher's
// sstable block writer already uses for on-disk varints.
func EncodeHeaderIdxTable(rows []HeaderIdx) []byte {
	var buf bytes.Buffer
	var scratch [binary.MaxVarintLen64]byte
	for _, row := range rows {
		buf.Write(row.Type[:])
		buf.Write(row.Hash[:])
		n := binary.PutUvarint(scratch[:], row.StartIdx)
		buf.Write(scratch[:n])
		n = binary.PutUvarint(scratch[:], row.Length)
		buf.Write(scratch[:n])
	}
	return buf.Bytes()
}

// DecodeHeaderIdxTable reverses EncodeHeaderIdxTable.
func DecodeHeaderIdxTable(data []byte) ([]HeaderIdx, error) {
	r := bytes.NewReader(data)
	var rows []HeaderIdx
	for r.Len() > 0 {
		var row HeaderIdx
		if _, err := io.ReadFull(r, row.Type[:]); err != nil {
			return nil, fmt.Errorf("ltvc: decode header idx type: %w", err)
		}
		if _, err := io.ReadFull(r, row.Hash[:]); err != nil {
			return nil, fmt.Errorf("ltvc: decode header idx hash: %w", err)
		}
		start, err := binary.ReadUvarint(r)
		if err != nil {
			return nil, fmt.Errorf("ltvc: decode header idx start: %w", err)
		}
		length, err := binary.ReadUvarint(r)
		if err != nil {
			return nil, fmt.Errorf("ltvc: decode header idx length: %w", err)
		}
		row.StartIdx, row.Length = start, length
		rows = append(rows, row)
	}
	return rows, nil
}

// IndexingWriter wraps a ContainerWriter, emitting AHDR on construction,
// tracking the running byte offset of each logical section, and
// producing a self-describing AIDX trailer on Finalize.
type IndexingWriter struct {
	cw     *ContainerWriter
	offset uint64
	rows   []HeaderIdx
}

func NewIndexingWriter(w io.Writer) (*IndexingWriter, error) {
	return newIndexingWriter(NewContainerWriter(w))
}

// NewIndexingWriterWithChunkSize is NewIndexingWriter with an overridden
// EDAT frame target size, threaded down to the underlying
// ContainerWriter; see NewContainerWriterWithChunkSize.
func NewIndexingWriterWithChunkSize(w io.Writer, chunkSize uint32) (*IndexingWriter, error) {
	return newIndexingWriter(NewContainerWriterWithChunkSize(w, chunkSize))
}

func newIndexingWriter(cw *ContainerWriter) (*IndexingWriter, error) {
	iw := &IndexingWriter{cw: cw}
	n, err := iw.cw.WriteAHDR(CurrentVersion)
	if err != nil {
		return nil, err
	}
	iw.offset += uint64(n)
	return iw, nil
}

func (iw *IndexingWriter) appendSection(ty Type, hash chash.Hash, writeHeader func() (int, error), r io.Reader) error {
	start := iw.offset
	n, err := writeHeader()
	if err != nil {
		return err
	}
	iw.offset += uint64(n)

	written, err := iw.cw.WriteEDAT(r)
	if err != nil {
		return err
	}
	iw.offset += uint64(written)

	iw.rows = append(iw.rows, HeaderIdx{
		Type:     ty,
		Hash:     hash,
		StartIdx: start,
		Length:   iw.offset - start,
	})
	return nil
}

// AppendFile writes an FHDR section for hash, streaming r as its EDAT
// payload.
func (iw *IndexingWriter) AppendFile(hash chash.Hash, r io.Reader) error {
	return iw.appendSection(TypeFHDR, hash, func() (int, error) { return iw.cw.WriteFHDR(hash) }, r)
}

// AppendSnapshot writes an SHDR section.
func (iw *IndexingWriter) AppendSnapshot(hash chash.Hash, r io.Reader) error {
	return iw.appendSection(TypeSHDR, hash, func() (int, error) { return iw.cw.WriteSHDR() }, r)
}

// AppendPackIndex writes a PIDX section.
func (iw *IndexingWriter) AppendPackIndex(hash chash.Hash, r io.Reader) error {
	return iw.appendSection(TypePIDX, hash, func() (int, error) { return iw.cw.WritePIDX() }, r)
}

// Size returns the running byte offset, i.e. the archive's length so far.
func (iw *IndexingWriter) Size() uint64 {
	return iw.offset
}

// Finalize closes the archive. With includeAidx, it emits AIDX, the
// compressed+encrypted HeaderIdx table as EDAT frames, then
// AEND(aidx_offset); otherwise it emits a bare AEND(0).
func (iw *IndexingWriter) Finalize(includeAidx bool, key cryptostream.Key) error {
	if !includeAidx {
		n, err := iw.cw.WriteAEND(0)
		iw.offset += uint64(n)
		return flushIfPossible(iw.cw, err)
	}

	aidxOffset := iw.offset
	n, err := iw.cw.WriteAIDX()
	if err != nil {
		return err
	}
	iw.offset += uint64(n)

	raw := EncodeHeaderIdxTable(iw.rows)
	compressed, err := archcompress.Compress(raw)
	if err != nil {
		return fmt.Errorf("ltvc: compress trailer: %w", err)
	}

	var encBuf bytes.Buffer
	encW, err := cryptostream.NewWriter(key, &encBuf)
	if err != nil {
		return fmt.Errorf("ltvc: encrypt trailer: %w", err)
	}
	if _, err := encW.Write(compressed); err != nil {
		return fmt.Errorf("ltvc: encrypt trailer: %w", err)
	}
	if err := encW.Close(); err != nil {
		return fmt.Errorf("ltvc: encrypt trailer: %w", err)
	}

	written, err := iw.cw.WriteEDAT(&encBuf)
	if err != nil {
		return err
	}
	iw.offset += uint64(written)

	n, err = iw.cw.WriteAEND(uint32(aidxOffset))
	iw.offset += uint64(n)
	return flushIfPossible(iw.cw, err)
}

type flusher interface {
	Flush() error
}

func flushIfPossible(cw *ContainerWriter, priorErr error) error {
	if priorErr != nil {
		return priorErr
	}
	if f, ok := cw.raw.w.(flusher); ok {
		return f.Flush()
	}
	return nil
}

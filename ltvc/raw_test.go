package ltvc

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"gotest.tools/v3/assert"

	"cairn/internal/checksum"
)

func TestRawRecordRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewRawWriter(&buf)

	n, err := w.WriteRecord(TypeFHDR, []byte{1, 2, 3, 4})
	assert.NilError(t, err)
	assert.Equal(t, n, 14+4)

	r := NewRawReader(&buf)
	rec, err := r.ReadRecord()
	assert.NilError(t, err)
	assert.Equal(t, rec.Type, TypeFHDR)
	assert.DeepEqual(t, rec.Payload, []byte{1, 2, 3, 4})
}

func TestRawReaderCleanEOF(t *testing.T) {
	r := NewRawReader(bytes.NewReader(nil))
	_, err := r.ReadRecord()
	assert.ErrorIs(t, err, io.EOF)
}

func TestRawReaderTruncatedMidRecord(t *testing.T) {
	var buf bytes.Buffer
	w := NewRawWriter(&buf)
	_, err := w.WriteRecord(TypeFHDR, []byte{1, 2, 3, 4})
	assert.NilError(t, err)

	truncated := buf.Bytes()[:5] // stop inside the header
	r := NewRawReader(bytes.NewReader(truncated))
	_, err = r.ReadRecord()
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestRawReaderRejectsOversizeLength(t *testing.T) {
	ty := TypeFHDR
	length := uint32(MaxChunk + 1)

	var header [10]byte
	binary.LittleEndian.PutUint32(header[0:4], length)
	copy(header[4:8], ty[:])
	binary.LittleEndian.PutUint16(header[8:10], checksum.Header(length, ty))

	r := NewRawReader(bytes.NewReader(header[:]))
	_, err := r.ReadRecord()
	assert.ErrorIs(t, err, ErrMaxLength)
}

func TestRawRecordEmptyPayload(t *testing.T) {
	var buf bytes.Buffer
	w := NewRawWriter(&buf)
	n, err := w.WriteRecord(TypeSHDR, nil)
	assert.NilError(t, err)
	assert.Equal(t, n, 14)

	r := NewRawReader(&buf)
	rec, err := r.ReadRecord()
	assert.NilError(t, err)
	assert.Equal(t, rec.Type, TypeSHDR)
	assert.Equal(t, len(rec.Payload), 0)
}

func TestRawReaderDetectsHeaderChecksumCorruption(t *testing.T) {
	var buf bytes.Buffer
	w := NewRawWriter(&buf)
	_, err := w.WriteRecord(TypeFHDR, []byte{9, 9, 9, 9})
	assert.NilError(t, err)

	corrupted := append([]byte{}, buf.Bytes()...)
	corrupted[8] ^= 0xFF // flip a bit inside the header checksum field

	r := NewRawReader(bytes.NewReader(corrupted))
	_, err = r.ReadRecord()
	assert.ErrorIs(t, err, ErrHeaderChecksum)
}

func TestRawReaderDetectsTrailerChecksumCorruption(t *testing.T) {
	var buf bytes.Buffer
	w := NewRawWriter(&buf)
	_, err := w.WriteRecord(TypeFHDR, []byte{9, 9, 9, 9})
	assert.NilError(t, err)

	corrupted := append([]byte{}, buf.Bytes()...)
	last := len(corrupted) - 1
	corrupted[last] ^= 0xFF

	r := NewRawReader(bytes.NewReader(corrupted))
	_, err = r.ReadRecord()
	assert.ErrorIs(t, err, ErrDataChecksum)
}

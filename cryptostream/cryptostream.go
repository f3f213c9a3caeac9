// Package cryptostream is the authenticated stream cipher adapter
// consumed by the ltvc indexing writer: a random 24-byte per-archive
// header followed by fixed 8 KiB authenticated frames, with the final
// frame tagged distinctly so truncation is detectable on decrypt.
//
// Grounded on original_source/src/crypto.rs's Crypter/CHUNK_SIZE design
// (sodiumoxide secretstream); golang.org/x/crypto/chacha20poly1305's
// XChaCha20-Poly1305 construction is the closest pack-available AEAD
// offering the same 24-byte-nonce shape.
package cryptostream

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

// FrameSize is the fixed plaintext size of every frame but the last.
const FrameSize = 8 * 1024

const (
	tagMessage byte = 0
	tagFinal   byte = 1
)

// Key is the shared secret used for both encryption directions.
type Key [chacha20poly1305.KeySize]byte

var ErrAuthFailure = errors.New("cryptostream: decryption tag mismatch")

// Writer encrypts everything written to it into authenticated frames,
// prefixed with a random header on first write.
type Writer struct {
	aead   interface {
		Seal(dst, nonce, plaintext, additionalData []byte) []byte
	}
	w           io.Writer
	buf         []byte
	counter     uint64
	nonceBase   [24]byte
	wroteHeader bool
	closed      bool
}

func NewWriter(key Key, w io.Writer) (*Writer, error) {
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, err
	}
	cw := &Writer{aead: aead, w: w, buf: make([]byte, 0, FrameSize)}
	if _, err := io.ReadFull(rand.Reader, cw.nonceBase[:]); err != nil {
		return nil, fmt.Errorf("cryptostream: generate header: %w", err)
	}
	return cw, nil
}

func (cw *Writer) emitHeaderIfNeeded() error {
	if cw.wroteHeader {
		return nil
	}
	if _, err := cw.w.Write(cw.nonceBase[:]); err != nil {
		return err
	}
	cw.wroteHeader = true
	return nil
}

func (cw *Writer) nonceFor(counter uint64) [24]byte {
	n := cw.nonceBase
	binary.LittleEndian.PutUint64(n[16:24], counter)
	return n
}

func (cw *Writer) writeFrame(plaintext []byte, tag byte) error {
	if err := cw.emitHeaderIfNeeded(); err != nil {
		return err
	}
	nonce := cw.nonceFor(cw.counter)
	cw.counter++
	ad := []byte{tag}
	ciphertext := cw.aead.Seal(nil, nonce[:], plaintext, ad)

	var frameHeader [5]byte
	frameHeader[0] = tag
	binary.LittleEndian.PutUint32(frameHeader[1:5], uint32(len(ciphertext)))
	if _, err := cw.w.Write(frameHeader[:]); err != nil {
		return err
	}
	_, err := cw.w.Write(ciphertext)
	return err
}

func (cw *Writer) Write(p []byte) (int, error) {
	if cw.closed {
		return 0, errors.New("cryptostream: write after close")
	}
	total := len(p)
	for len(p) > 0 {
		room := FrameSize - len(cw.buf)
		n := room
		if n > len(p) {
			n = len(p)
		}
		cw.buf = append(cw.buf, p[:n]...)
		p = p[n:]
		if len(cw.buf) == FrameSize {
			if err := cw.writeFrame(cw.buf, tagMessage); err != nil {
				return 0, err
			}
			cw.buf = cw.buf[:0]
		}
	}
	return total, nil
}

// Close flushes any buffered plaintext as the final, distinctly tagged
// frame. It must be called on every code path, including error unwind,
// for the ciphertext to be decryptable.
func (cw *Writer) Close() error {
	if cw.closed {
		return nil
	}
	cw.closed = true
	if err := cw.writeFrame(cw.buf, tagFinal); err != nil {
		return err
	}
	return cw.emitHeaderIfNeeded()
}

// Reader decrypts a stream produced by Writer.
type Reader struct {
	aead interface {
		Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
	}
	r         io.Reader
	nonceBase [24]byte
	counter   uint64
	buf       []byte
	done      bool
	headerRd  bool
}

func NewReader(key Key, r io.Reader) (*Reader, error) {
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, err
	}
	return &Reader{aead: aead, r: r}, nil
}

func (cr *Reader) readHeader() error {
	if cr.headerRd {
		return nil
	}
	if _, err := io.ReadFull(cr.r, cr.nonceBase[:]); err != nil {
		return fmt.Errorf("cryptostream: read header: %w", err)
	}
	cr.headerRd = true
	return nil
}

func (cr *Reader) nonceFor(counter uint64) [24]byte {
	n := cr.nonceBase
	binary.LittleEndian.PutUint64(n[16:24], counter)
	return n
}

func (cr *Reader) fillBuf() error {
	if err := cr.readHeader(); err != nil {
		return err
	}
	var frameHeader [5]byte
	if _, err := io.ReadFull(cr.r, frameHeader[:]); err != nil {
		if err == io.EOF {
			return io.ErrUnexpectedEOF
		}
		return err
	}
	tag := frameHeader[0]
	ctLen := binary.LittleEndian.Uint32(frameHeader[1:5])
	ciphertext := make([]byte, ctLen)
	if _, err := io.ReadFull(cr.r, ciphertext); err != nil {
		return io.ErrUnexpectedEOF
	}

	nonce := cr.nonceFor(cr.counter)
	cr.counter++
	ad := []byte{tag}
	plaintext, err := cr.aead.Open(nil, nonce[:], ciphertext, ad)
	if err != nil {
		return ErrAuthFailure
	}
	cr.buf = plaintext
	if tag == tagFinal {
		cr.done = true
	}
	return nil
}

func (cr *Reader) Read(p []byte) (int, error) {
	for len(cr.buf) == 0 {
		if cr.done {
			return 0, io.EOF
		}
		if err := cr.fillBuf(); err != nil {
			return 0, err
		}
	}
	n := copy(p, cr.buf)
	cr.buf = cr.buf[n:]
	return n, nil
}

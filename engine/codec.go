package engine

import (
	"bytes"
	"io"

	"cairn/cryptostream"
	"cairn/internal/archcompress"
)

// encodeBlob compresses then encrypts data, the same order every
// payload-bearing section of an archive follows.
func encodeBlob(data []byte, key cryptostream.Key) ([]byte, error) {
	compressed, err := archcompress.Compress(data)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	w, err := cryptostream.NewWriter(key, &buf)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(compressed); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeBlob reverses encodeBlob.
func decodeBlob(data []byte, key cryptostream.Key) ([]byte, error) {
	r, err := cryptostream.NewReader(key, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	compressed, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return archcompress.Decompress(compressed)
}

package cryptostream

import (
	"bytes"
	"io"
	"testing"

	"gotest.tools/v3/assert"
)

func testKey() Key {
	var k Key
	copy(k[:], []byte("0123456789abcdef0123456789abcdef"))
	return k
}

func encryptAll(t *testing.T, key Key, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := NewWriter(key, &buf)
	assert.NilError(t, err)
	_, err = w.Write(data)
	assert.NilError(t, err)
	assert.NilError(t, w.Close())
	return buf.Bytes()
}

func TestRoundTripSmallMessage(t *testing.T) {
	key := testKey()
	ciphertext := encryptAll(t, key, []byte("hello world"))

	r, err := NewReader(key, bytes.NewReader(ciphertext))
	assert.NilError(t, err)
	got, err := io.ReadAll(r)
	assert.NilError(t, err)
	assert.DeepEqual(t, got, []byte("hello world"))
}

func TestRoundTripEmptyMessage(t *testing.T) {
	key := testKey()
	ciphertext := encryptAll(t, key, nil)

	r, err := NewReader(key, bytes.NewReader(ciphertext))
	assert.NilError(t, err)
	got, err := io.ReadAll(r)
	assert.NilError(t, err)
	assert.Equal(t, len(got), 0)
}

func TestRoundTripSpansMultipleFrames(t *testing.T) {
	key := testKey()
	data := bytes.Repeat([]byte{0x5A}, FrameSize*3+17)
	ciphertext := encryptAll(t, key, data)

	r, err := NewReader(key, bytes.NewReader(ciphertext))
	assert.NilError(t, err)
	got, err := io.ReadAll(r)
	assert.NilError(t, err)
	assert.DeepEqual(t, got, data)
}

func TestDifferentKeysProduceDifferentCiphertext(t *testing.T) {
	var k1, k2 Key
	copy(k1[:], []byte("key-one-key-one-key-one-key-one"))
	copy(k2[:], []byte("key-two-key-two-key-two-key-two"))

	c1 := encryptAll(t, k1, []byte("same plaintext"))
	c2 := encryptAll(t, k2, []byte("same plaintext"))
	assert.Assert(t, !bytes.Equal(c1, c2))
}

func TestTamperedCiphertextFailsAuth(t *testing.T) {
	key := testKey()
	ciphertext := encryptAll(t, key, []byte("authenticated data"))

	tampered := append([]byte{}, ciphertext...)
	tampered[len(tampered)-1] ^= 0xFF

	r, err := NewReader(key, bytes.NewReader(tampered))
	assert.NilError(t, err)
	_, err = io.ReadAll(r)
	assert.ErrorIs(t, err, ErrAuthFailure)
}

func TestWrongKeyFailsAuth(t *testing.T) {
	key := testKey()
	ciphertext := encryptAll(t, key, []byte("secret"))

	var wrong Key
	copy(wrong[:], []byte("wrong-key-wrong-key-wrong-key-00"))

	r, err := NewReader(wrong, bytes.NewReader(ciphertext))
	assert.NilError(t, err)
	_, err = io.ReadAll(r)
	assert.ErrorIs(t, err, ErrAuthFailure)
}

func TestTruncatedStreamIsUnexpectedEOF(t *testing.T) {
	key := testKey()
	ciphertext := encryptAll(t, key, bytes.Repeat([]byte{1}, FrameSize+10))

	truncated := ciphertext[:len(ciphertext)-3]
	r, err := NewReader(key, bytes.NewReader(truncated))
	assert.NilError(t, err)
	_, err = io.ReadAll(r)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestWriteAfterCloseFails(t *testing.T) {
	key := testKey()
	var buf bytes.Buffer
	w, err := NewWriter(key, &buf)
	assert.NilError(t, err)
	assert.NilError(t, w.Close())

	_, err = w.Write([]byte("too late"))
	assert.ErrorContains(t, err, "write after close")
}

package chash

import (
	"bytes"
	"testing"

	"gotest.tools/v3/assert"
)

func TestSumBytesDeterministic(t *testing.T) {
	var key Key
	copy(key[:], []byte("0123456789abcdef0123456789abcdef"))

	h1 := SumBytes(key, []byte("hello world"))
	h2 := SumBytes(key, []byte("hello world"))
	assert.Equal(t, h1, h2)
}

func TestSumBytesDiffersByKey(t *testing.T) {
	var key1, key2 Key
	copy(key1[:], []byte("key-one-key-one-key-one-key-one"))
	copy(key2[:], []byte("key-two-key-two-key-two-key-two"))

	h1 := SumBytes(key1, []byte("same data"))
	h2 := SumBytes(key2, []byte("same data"))
	assert.Assert(t, h1 != h2)
}

func TestSumMatchesSumBytes(t *testing.T) {
	var key Key
	copy(key[:], []byte("0123456789abcdef0123456789abcdef"))

	data := []byte("streamed content")
	want := SumBytes(key, data)

	got, err := Sum(key, bytes.NewReader(data))
	assert.NilError(t, err)
	assert.Equal(t, got, want)
}

func TestHexRoundTrip(t *testing.T) {
	var key Key
	h := SumBytes(key, []byte("x"))
	s := h.String()
	back, err := FromHex(s)
	assert.NilError(t, err)
	assert.Equal(t, h, back)
}

func TestFromHexRejectsBadLength(t *testing.T) {
	_, err := FromHex("aabb")
	assert.ErrorIs(t, err, ErrBadLength)
}

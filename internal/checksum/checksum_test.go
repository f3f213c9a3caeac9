package checksum

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestEmptyDigestIsFixedConstant(t *testing.T) {
	d1 := New()
	d2 := New()
	assert.Equal(t, d1.Sum32(), d2.Sum32())
}

func TestConcatenationEqualsSingleUpdate(t *testing.T) {
	a, b := []byte("hello "), []byte("world")

	split := New()
	split.Write(a)
	split.Write(b)

	whole := New()
	whole.Write(append(append([]byte{}, a...), b...))

	assert.Equal(t, split.Sum32(), whole.Sum32())
}

func TestHeaderDeterministic(t *testing.T) {
	ty := [4]byte{'F', 'H', 'D', 'R'}
	assert.Equal(t, Header(32, ty), Header(32, ty))
}

func TestTrailerDiffersOnPayload(t *testing.T) {
	a := Trailer([]byte("abc"))
	b := Trailer([]byte("abd"))
	assert.Assert(t, a != b)
}

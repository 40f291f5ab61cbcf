package common

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------- ReadRandom ----------

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestReadRandom_ShortReadIsError(t *testing.T) {
	_, err := ReadRandom(bytes.NewReader([]byte{1, 2, 3}), 8)
	require.Error(t, err)
}

func TestReadRandom_SourceError(t *testing.T) {
	_, err := ReadRandom(failingReader{}, 4)
	require.ErrorContains(t, err, "entropy exhausted")
}

func TestReadRandom_ExactRead(t *testing.T) {
	b, err := ReadRandom(bytes.NewReader([]byte{9, 8, 7, 6}), 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 8, 7, 6}, b)
}

// ---------- GenerateRandByteArray ----------

func TestGenerateRandByteArray_Basic(t *testing.T) {
	const n = 24
	buf := GenerateRandByteArray(n)
	require.Len(t, buf, n)
}

func TestGenerateRandByteArray_EntropyHint(t *testing.T) {
	const n = 32
	a := GenerateRandByteArray(n)
	b := GenerateRandByteArray(n)
	if bytes.Equal(a, b) {
		t.Logf("warning: two GenerateRandByteArray(%d) results are identical; extremely unlikely", n)
	}
}

// ---------- IsZero / WipeByteArray ----------

func TestIsZero(t *testing.T) {
	assert.True(t, IsZero(nil))
	assert.True(t, IsZero(make([]byte, 8)))
	assert.False(t, IsZero([]byte{0, 0, 1}))
}

func TestWipeByteArray_ZerosBuffer(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5}
	WipeByteArray(buf)
	assert.True(t, IsZero(buf))
}

func TestWipeByteArray_NilSafe(t *testing.T) {
	WipeByteArray(nil)
}

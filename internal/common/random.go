package common

import (
	"crypto/rand"
	"fmt"
	"io"
)

// ReadRandom fills a new slice of the given size from r. A short read is an
// error: callers use the result as key material and must never receive a
// partially filled buffer.
func ReadRandom(r io.Reader, size int) ([]byte, error) {
	b := make([]byte, size)
	if size == 0 {
		return b, nil
	}
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, fmt.Errorf("read random: %w", err)
	}
	return b, nil
}

// GenerateRandByteArray returns size bytes from crypto/rand.
// It panics if the system random source fails, which only happens on a
// broken host.
func GenerateRandByteArray(size int) []byte {
	b, err := ReadRandom(rand.Reader, size)
	if err != nil {
		panic(err)
	}
	return b
}

// IsZero reports whether every byte of b is zero.
func IsZero(b []byte) bool {
	var acc byte
	for _, v := range b {
		acc |= v
	}
	return acc == 0
}

// WipeByteArray overwrites b with zeros. Nil is a no-op.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

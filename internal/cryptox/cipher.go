// Package cryptox holds the cryptographic primitives of whisperbox: the
// per-user message key, the authenticated cipher used for message payloads,
// at-rest sealing of stored keys, and password hashing.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"unicode/utf8"

	"github.com/dmitrijs2005/whisperbox/internal/common"
)

// tokenVersion prefixes every ciphertext token and is bound as additional
// authenticated data, so a token cannot be replayed under a future format.
const tokenVersion byte = 0x01

const nonceSize = 12

// EncodedKeyLen is the length of a key in its persisted text form
// (32 bytes as padded URL-safe base64).
var EncodedKeyLen = base64.URLEncoding.EncodedLen(common.KeySize)

// Key is a 32-byte AES-256 key.
type Key []byte

const redacted = "[redacted]"

// String hides the key material from fmt verbs and log lines.
func (k Key) String() string {
	return redacted
}

// GoString keeps %#v from printing the bytes.
func (k Key) GoString() string {
	return redacted
}

// LogValue implements slog.LogValuer.
func (k Key) LogValue() slog.Value {
	return slog.StringValue(redacted)
}

// encode renders the key in its persisted form: padded URL-safe base64.
func (k Key) encode() string {
	return base64.URLEncoding.EncodeToString(k)
}

// Valid reports whether k has the length AES-256 requires.
func (k Key) Valid() bool {
	return len(k) == common.KeySize
}

// ParseKey decodes the persisted form of a key.
func ParseKey(s string) (Key, error) {
	if len(s) != EncodedKeyLen {
		return nil, fmt.Errorf("%w: encoded length %d, want %d", common.ErrInvalidKey, len(s), EncodedKeyLen)
	}
	raw, err := base64.URLEncoding.DecodeString(s)
	if err != nil || len(raw) != common.KeySize {
		return nil, fmt.Errorf("%w: malformed encoding", common.ErrInvalidKey)
	}
	return Key(raw), nil
}

// NormalizeKeyMaterial turns raw generator output into the persisted key
// encoding. Output longer than a key is truncated to the first KeySize
// bytes; shorter output is rejected rather than padded, because padding
// would silently lower the key's entropy.
func NormalizeKeyMaterial(raw []byte) (string, error) {
	if len(raw) < common.KeySize {
		return "", fmt.Errorf("%w: %d bytes of key material, want %d", common.ErrInvalidKey, len(raw), common.KeySize)
	}
	return Key(raw[:common.KeySize]).encode(), nil
}

func newAEAD(key Key) (cipher.AEAD, error) {
	if !key.Valid() {
		return nil, fmt.Errorf("%w: key length %d", common.ErrInvalidKey, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidKey, err)
	}
	return cipher.NewGCM(block)
}

// Encrypt seals plaintext with AES-256-GCM under key and returns a
// self-describing token: base64url(version || nonce || ciphertext+tag).
// The only expected failure is ErrInvalidKey.
func Encrypt(plaintext string, key Key) (string, error) {
	return encrypt(rand.Reader, plaintext, key)
}

func encrypt(random io.Reader, plaintext string, key Key) (string, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(random, nonce); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}
	aad := []byte{tokenVersion}

	buf := make([]byte, 0, 1+nonceSize+len(plaintext)+aead.Overhead())
	buf = append(buf, tokenVersion)
	buf = append(buf, nonce...)
	buf = aead.Seal(buf, nonce, []byte(plaintext), aad)
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Decrypt opens a token produced by Encrypt. Every way a token can fail to
// open under key (bad encoding, truncation, foreign version, wrong key,
// tampering) yields the same ErrDecryptionFailed.
func Decrypt(token string, key Key) (string, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return "", err
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) < 1+nonceSize+aead.Overhead() || raw[0] != tokenVersion {
		return "", common.ErrDecryptionFailed
	}

	plaintext, err := aead.Open(nil, raw[1:1+nonceSize], raw[1+nonceSize:], raw[:1])
	if err != nil || !utf8.Valid(plaintext) {
		return "", common.ErrDecryptionFailed
	}
	return string(plaintext), nil
}

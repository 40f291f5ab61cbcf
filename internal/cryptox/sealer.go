package cryptox

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/whisperbox/internal/common"
	"golang.org/x/crypto/hkdf"
)

const sealerInfo = "whisperbox user-key sealing v1"

// KeySealer protects stored key records with a server-side key-encryption
// key. A nil *KeySealer is valid and stores keys as-is.
type KeySealer struct {
	kek Key
}

// NewKeySealer derives the key-encryption key from secret with HKDF-SHA256.
// An empty secret returns nil (sealing disabled).
func NewKeySealer(secret string) (*KeySealer, error) {
	if secret == "" {
		return nil, nil
	}
	kek := make([]byte, common.KeySize)
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(sealerInfo))
	if _, err := io.ReadFull(r, kek); err != nil {
		return nil, fmt.Errorf("derive key-encryption key: %w", err)
	}
	return &KeySealer{kek: kek}, nil
}

// Seal converts a key into the value written to the key store.
func (s *KeySealer) Seal(key Key) (string, error) {
	if s == nil {
		return key.encode(), nil
	}
	return Encrypt(key.encode(), s.kek)
}

// Open reverses Seal. A record that cannot be opened or parsed is reported
// as ErrInvalidKey: the stored key is unusable, not merely one message.
func (s *KeySealer) Open(stored string) (Key, error) {
	encoded := stored
	if s != nil {
		var err error
		encoded, err = Decrypt(stored, s.kek)
		if err != nil {
			if errors.Is(err, common.ErrDecryptionFailed) {
				return nil, fmt.Errorf("%w: sealed key record does not open", common.ErrInvalidKey)
			}
			return nil, err
		}
	}
	return ParseKey(encoded)
}

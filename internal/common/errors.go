// Package common defines shared constants and sentinel errors used across
// client and server layers of whisperbox. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// ErrStoreUnavailable means the persistent store could not be reached or
	// rejected the operation. It is fatal for the current operation.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrPartialMirrorWrite means one mirrored copy of a message was written
	// while another was not. The conversation must not be treated as consistent.
	ErrPartialMirrorWrite = errors.New("partial mirror write")

	// Cryptographic errors.
	ErrInvalidKey          = errors.New("invalid key")
	ErrDecryptionFailed    = errors.New("decryption failed")
	ErrKeyGenerationFailed = errors.New("key generation failed")

	// Usage errors.
	ErrNoRecipientSelected = errors.New("no recipient selected")
	ErrNoUserID            = errors.New("no user id")
	ErrInvalidCredentials  = errors.New("invalid email/password")
	ErrInvalidInput        = errors.New("invalid input")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

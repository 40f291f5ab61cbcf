// Package common contains shared constants and sentinel errors used across
// whisperbox components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// session token on outbound requests.
const AccessTokenHeaderName = "access_token"

// KeySize is the length in bytes of a per-user symmetric key.
const KeySize = 32

// MaxKeyGenerationAttempts bounds how many fresh keys the key store draws
// before giving up with ErrKeyGenerationFailed.
const MaxKeyGenerationAttempts = 3

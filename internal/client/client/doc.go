// Package client talks to the whisperbox server over gRPC and opens the
// client's local state database.
package client

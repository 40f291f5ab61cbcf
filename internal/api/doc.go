// Package api is the wire contract between the whisperbox server and its
// clients: request and response messages, the JSON codec they travel in,
// and the gRPC service descriptor with client stubs for
// whisperbox.v1.Messenger.
package api

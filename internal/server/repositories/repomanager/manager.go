// Package repomanager builds the repositories for the configured storage
// backend and owns the underlying connections.
package repomanager

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/whisperbox/internal/server/config"
	"github.com/dmitrijs2005/whisperbox/internal/server/objstore"
	"github.com/dmitrijs2005/whisperbox/internal/server/repositories/keys"
	"github.com/dmitrijs2005/whisperbox/internal/server/repositories/messages"
	"github.com/dmitrijs2005/whisperbox/internal/server/repositories/users"
)

// RepositoryManager vends the repositories of one storage backend. The
// repositories share the manager's connection and stay valid until Close.
type RepositoryManager interface {
	Users() users.Repository
	Keys() keys.Repository
	Messages() messages.Repository
	Close() error
}

// New opens the backend named by cfg.StorageBackend.
func New(ctx context.Context, cfg *config.Config, opts ...messages.Option) (RepositoryManager, error) {
	switch cfg.StorageBackend {
	case config.BackendPostgres:
		m, err := NewPostgresRepositoryManager(ctx, cfg.DatabaseDSN, opts...)
		if err != nil {
			return nil, err
		}
		return m, nil
	case config.BackendS3:
		m, err := NewS3RepositoryManager(ctx, objstore.Options{
			Region:       cfg.S3Region,
			AccessKey:    cfg.S3RootUser,
			SecretKey:    cfg.S3RootPassword,
			BaseEndpoint: cfg.S3BaseEndpoint,
			Bucket:       cfg.S3Bucket,
			Prefix:       cfg.S3Prefix,
		}, opts...)
		if err != nil {
			return nil, err
		}
		return m, nil
	case config.BackendMemory:
		return NewInMemoryRepositoryManager(opts...), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

package repomanager

import (
	"context"

	"github.com/dmitrijs2005/whisperbox/internal/server/objstore"
	"github.com/dmitrijs2005/whisperbox/internal/server/repositories/keys"
	"github.com/dmitrijs2005/whisperbox/internal/server/repositories/messages"
	"github.com/dmitrijs2005/whisperbox/internal/server/repositories/users"
)

// S3RepositoryManager vends object-store repositories sharing one client.
type S3RepositoryManager struct {
	users    *users.S3Repository
	keys     *keys.S3Repository
	messages *messages.S3Repository
}

// newS3Client is a seam for testing objstore.NewS3Client.
var newS3Client = func(ctx context.Context, o objstore.Options) (objstore.API, error) {
	return objstore.NewS3Client(ctx, o)
}

func NewS3RepositoryManager(ctx context.Context, o objstore.Options, opts ...messages.Option) (*S3RepositoryManager, error) {
	api, err := newS3Client(ctx, o)
	if err != nil {
		return nil, err
	}
	return NewS3RepositoryManagerWithAPI(api, o.Bucket, o.Prefix, opts...), nil
}

// NewS3RepositoryManagerWithAPI builds the manager over an existing client.
func NewS3RepositoryManagerWithAPI(api objstore.API, bucket, prefix string, opts ...messages.Option) *S3RepositoryManager {
	store := objstore.NewStore(api, bucket, prefix)
	return &S3RepositoryManager{
		users:    users.NewS3Repository(store),
		keys:     keys.NewS3Repository(store),
		messages: messages.NewS3Repository(store, opts...),
	}
}

func (m *S3RepositoryManager) Users() users.Repository       { return m.users }
func (m *S3RepositoryManager) Keys() keys.Repository         { return m.keys }
func (m *S3RepositoryManager) Messages() messages.Repository { return m.messages }

// Close is a no-op: the S3 client holds no connection that needs releasing.
func (m *S3RepositoryManager) Close() error { return nil }

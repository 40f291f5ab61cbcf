package keys

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/whisperbox/internal/server/models"
	"github.com/dmitrijs2005/whisperbox/internal/server/objstore"
)

const keysDir = "user_keys"

// S3Repository stores key records at user_keys/{id}, created with an
// If-None-Match conditional write.
type S3Repository struct {
	store *objstore.Store
}

func NewS3Repository(store *objstore.Store) *S3Repository {
	return &S3Repository{store: store}
}

func (r *S3Repository) Get(ctx context.Context, userID string) (*models.KeyRecord, error) {
	rec := &models.KeyRecord{}
	if err := r.store.Get(ctx, r.store.Key(keysDir, userID), rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *S3Repository) InsertIfAbsent(ctx context.Context, rec *models.KeyRecord) (bool, error) {
	err := r.store.Create(ctx, r.store.Key(keysDir, rec.UserID), rec)
	if errors.Is(err, objstore.ErrPreconditionFailed) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

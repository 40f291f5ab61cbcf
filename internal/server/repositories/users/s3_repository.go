package users

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/dmitrijs2005/whisperbox/internal/common"
	"github.com/dmitrijs2005/whisperbox/internal/server/models"
	"github.com/dmitrijs2005/whisperbox/internal/server/objstore"
)

const (
	usersDir   = "users"
	byEmailDir = "users_by_email"
)

type emailIndex struct {
	UserID string `json:"user_id"`
}

// S3Repository keeps one document per user at users/{id} and an exclusive
// index object per lower-cased email at users_by_email/{email}.
type S3Repository struct {
	store *objstore.Store
}

func NewS3Repository(store *objstore.Store) *S3Repository {
	return &S3Repository{store: store}
}

func (r *S3Repository) emailKey(emailLower string) string {
	return r.store.Key(byEmailDir, url.PathEscape(emailLower))
}

func (r *S3Repository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	idxKey := r.emailKey(user.EmailLower)
	if err := r.store.Create(ctx, idxKey, emailIndex{UserID: user.ID}); err != nil {
		if errors.Is(err, objstore.ErrPreconditionFailed) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, err
	}

	if err := r.store.Put(ctx, r.store.Key(usersDir, user.ID), user); err != nil {
		if delErr := r.store.Delete(ctx, idxKey); delErr != nil {
			return nil, fmt.Errorf("%w (index cleanup: %v)", err, delErr)
		}
		return nil, err
	}
	return user, nil
}

func (r *S3Repository) GetByID(ctx context.Context, id string) (*models.User, error) {
	u := &models.User{}
	if err := r.store.Get(ctx, r.store.Key(usersDir, id), u); err != nil {
		return nil, err
	}
	return u, nil
}

func (r *S3Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var idx emailIndex
	if err := r.store.Get(ctx, r.emailKey(strings.ToLower(strings.TrimSpace(email))), &idx); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, idx.UserID)
}

func (r *S3Repository) Search(ctx context.Context, query string, limit int) ([]*models.User, error) {
	prefix := r.store.Key(byEmailDir) + "/"
	keys, err := r.store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(strings.TrimSpace(query))
	var emails []string
	for _, k := range keys {
		email, err := url.PathUnescape(strings.TrimPrefix(k, prefix))
		if err != nil {
			continue
		}
		if strings.Contains(email, query) {
			emails = append(emails, email)
		}
	}
	sort.Strings(emails)
	if limit > 0 && len(emails) > limit {
		emails = emails[:limit]
	}

	result := make([]*models.User, 0, len(emails))
	for _, email := range emails {
		u, err := r.GetByEmail(ctx, email)
		if errors.Is(err, common.ErrorNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	return result, nil
}

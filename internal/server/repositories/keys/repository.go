// Package keys persists per-user symmetric key records.
package keys

import (
	"context"

	"github.com/dmitrijs2005/whisperbox/internal/server/models"
)

// Repository stores at most one key record per user.
type Repository interface {
	// Get returns common.ErrorNotFound when the user has no key yet.
	Get(ctx context.Context, userID string) (*models.KeyRecord, error)
	// InsertIfAbsent writes rec unless a record for rec.UserID already
	// exists. It reports whether rec was written. The check and the write
	// are one atomic step in the store.
	InsertIfAbsent(ctx context.Context, rec *models.KeyRecord) (bool, error)
}

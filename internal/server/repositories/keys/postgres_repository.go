package keys

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/whisperbox/internal/common"
	"github.com/dmitrijs2005/whisperbox/internal/dbx"
	"github.com/dmitrijs2005/whisperbox/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, userID string) (*models.KeyRecord, error) {
	query :=
		`SELECT user_id, key_material, created_at FROM user_keys
		 WHERE user_id = $1
		 `

	rec := &models.KeyRecord{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&rec.UserID, &rec.KeyMaterial, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("%w: db error: %w", common.ErrStoreUnavailable, err)
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}

func (r *PostgresRepository) InsertIfAbsent(ctx context.Context, rec *models.KeyRecord) (bool, error) {
	query :=
		`INSERT INTO user_keys (user_id, key_material, created_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO NOTHING
		 `

	res, err := r.db.ExecContext(ctx, query, rec.UserID, rec.KeyMaterial, rec.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("%w: db error: %w", common.ErrStoreUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: db error: %w", common.ErrStoreUnavailable, err)
	}
	return n == 1, nil
}

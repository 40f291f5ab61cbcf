package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

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

const userColumns = `id, email, email_lower, first_name, surname, display_name,
		 profile_initial, profile_picture, status, salt, password_verifier, created_at`

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`INSERT INTO users (id, email, email_lower, first_name, surname, display_name,
		 profile_initial, profile_picture, status, salt, password_verifier)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Email, user.EmailLower, user.FirstName, user.Surname, user.DisplayName,
		user.ProfileInitial, user.ProfilePicture, user.Status, user.Salt, user.Verifier,
	).Scan(&user.CreatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("%w: db error: %w", common.ErrStoreUnavailable, err)
	}

	user.CreatedAt = user.CreatedAt.UTC()
	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		 WHERE id::text = $1
		 `
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		 WHERE email_lower = $1
		 `
	return r.getOne(ctx, query, strings.ToLower(strings.TrimSpace(email)))
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("%w: db error: %w", common.ErrStoreUnavailable, err)
	}
	return user, nil
}

func (r *PostgresRepository) Search(ctx context.Context, query string, limit int) ([]*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users
		 WHERE strpos(email_lower, $1) > 0
		 ORDER BY email_lower
		 LIMIT $2
		 `

	rows, err := r.db.QueryContext(ctx, q, strings.ToLower(strings.TrimSpace(query)), limit)
	if err != nil {
		return nil, fmt.Errorf("%w: db error: %w", common.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var result []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: db error: %w", common.ErrStoreUnavailable, err)
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: db error: %w", common.ErrStoreUnavailable, err)
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*models.User, error) {
	u := &models.User{}
	err := s.Scan(&u.ID, &u.Email, &u.EmailLower, &u.FirstName, &u.Surname, &u.DisplayName,
		&u.ProfileInitial, &u.ProfilePicture, &u.Status, &u.Salt, &u.Verifier, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}

package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/whisperbox/internal/common"
	"github.com/dmitrijs2005/whisperbox/internal/server/migrations"
	"github.com/dmitrijs2005/whisperbox/internal/server/repositories/keys"
	"github.com/dmitrijs2005/whisperbox/internal/server/repositories/messages"
	"github.com/dmitrijs2005/whisperbox/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repositories over one
// connection pool.
type PostgresRepositoryManager struct {
	db       *sql.DB
	users    *users.PostgresRepository
	keys     *keys.PostgresRepository
	messages *messages.PostgresRepository
}

// sqlOpen is a seam for testing sql.Open.
var sqlOpen = sql.Open

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// NewPostgresRepositoryManager connects to dsn, applies migrations and
// returns the manager.
func NewPostgresRepositoryManager(ctx context.Context, dsn string, opts ...messages.Option) (*PostgresRepositoryManager, error) {
	db, err := sqlOpen("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %w", common.ErrStoreUnavailable, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping database: %w", common.ErrStoreUnavailable, err)
	}

	m := newPostgresRepositoryManager(db, opts...)
	if err := m.RunMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return m, nil
}

func newPostgresRepositoryManager(db *sql.DB, opts ...messages.Option) *PostgresRepositoryManager {
	return &PostgresRepositoryManager{
		db:       db,
		users:    users.NewPostgresRepository(db),
		keys:     keys.NewPostgresRepository(db),
		messages: messages.NewPostgresRepository(db, opts...),
	}
}

func (m *PostgresRepositoryManager) Users() users.Repository       { return m.users }
func (m *PostgresRepositoryManager) Keys() keys.Repository         { return m.keys }
func (m *PostgresRepositoryManager) Messages() messages.Repository { return m.messages }

func (m *PostgresRepositoryManager) Close() error {
	return m.db.Close()
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the manager's database.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, m.db, "."); err != nil {
		return err
	}
	return nil
}

package client

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/whisperbox/internal/client/migrations"
	"github.com/dmitrijs2005/whisperbox/internal/filex"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// OpenDatabase opens the SQLite file at dsn and brings its schema up to
// date.
func OpenDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	if _, err := filex.EnsureParentDir(dsn); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// a single connection keeps ":memory:" databases coherent
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	p, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.Migrations)
	if err != nil {
		return fmt.Errorf("migrations init: %w", err)
	}
	if _, err := p.Up(ctx); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	return nil
}

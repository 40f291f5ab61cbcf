package metadata

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/whisperbox/internal/common"
	"github.com/dmitrijs2005/whisperbox/internal/dbx"
)

const sessionKey = "session"

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) LoadSession(ctx context.Context) (*Session, error) {
	var value []byte
	err := r.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, sessionKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	s := &Session{}
	if err := json.Unmarshal(value, s); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if s.Token == "" || s.UserID == "" {
		return nil, common.ErrorNotFound
	}
	return s, nil
}

func (r *SQLiteRepository) SaveSession(ctx context.Context, s *Session) error {
	value, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, sessionKey, value)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ClearSession(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM metadata WHERE key = ?`, sessionKey); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) LoadCursor(ctx context.Context, userID string) (Cursor, error) {
	var lastSeen, seenIDs string
	err := r.db.QueryRowContext(ctx, `SELECT last_seen, seen_ids FROM cursors WHERE user_id = ?`, userID).Scan(&lastSeen, &seenIDs)
	if errors.Is(err, sql.ErrNoRows) {
		return Cursor{}, nil
	}
	if err != nil {
		return Cursor{}, fmt.Errorf("failed to load cursor[%s]: %w", userID, err)
	}

	var c Cursor
	if c.LastSeen, err = time.Parse(time.RFC3339Nano, lastSeen); err != nil {
		return Cursor{}, fmt.Errorf("failed to parse cursor[%s]: %w", userID, err)
	}
	if err := json.Unmarshal([]byte(seenIDs), &c.SeenIDs); err != nil {
		return Cursor{}, fmt.Errorf("failed to parse cursor[%s] ids: %w", userID, err)
	}
	return c, nil
}

func (r *SQLiteRepository) SaveCursor(ctx context.Context, userID string, c Cursor) error {
	ids := c.SeenIDs
	if ids == nil {
		ids = []string{}
	}
	seenIDs, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to encode cursor[%s]: %w", userID, err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO cursors (user_id, last_seen, seen_ids) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET last_seen = excluded.last_seen, seen_ids = excluded.seen_ids
	`, userID, c.LastSeen.UTC().Format(time.RFC3339Nano), string(seenIDs))
	if err != nil {
		return fmt.Errorf("failed to save cursor[%s]: %w", userID, err)
	}
	return nil
}

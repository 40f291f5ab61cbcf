// Package metadata keeps the client's local state: the logged-in session
// and, per user, the position of the arrivals stream.
package metadata

import (
	"context"
	"time"
)

type Session struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Token       string `json:"token"`
}

// Cursor is the newest delivered timestamp and the ids delivered at exactly
// that timestamp.
type Cursor struct {
	LastSeen time.Time
	SeenIDs  []string
}

// Advance returns c moved over one delivery. Deliveries arrive in order.
func (c Cursor) Advance(id string, ts time.Time) Cursor {
	switch {
	case ts.After(c.LastSeen):
		return Cursor{LastSeen: ts, SeenIDs: []string{id}}
	case ts.Equal(c.LastSeen):
		ids := append(append([]string(nil), c.SeenIDs...), id)
		return Cursor{LastSeen: c.LastSeen, SeenIDs: ids}
	default:
		return c
	}
}

type Repository interface {
	// LoadSession returns common.ErrorNotFound when nobody is logged in.
	LoadSession(ctx context.Context) (*Session, error)
	SaveSession(ctx context.Context, s *Session) error
	ClearSession(ctx context.Context) error
	// LoadCursor returns the zero Cursor for a user never seen before.
	LoadCursor(ctx context.Context, userID string) (Cursor, error)
	SaveCursor(ctx context.Context, userID string, c Cursor) error
}

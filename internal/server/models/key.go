package models

import "time"

// KeyRecord holds the persisted (possibly sealed) symmetric key of a user.
type KeyRecord struct {
	UserID      string    `json:"user_id"`
	KeyMaterial string    `json:"key_material"`
	CreatedAt   time.Time `json:"created_at"`
}

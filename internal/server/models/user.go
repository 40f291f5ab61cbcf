// Package models defines server-side records persisted by the repositories.
package models

import "time"

// User is a registered account together with its public profile.
type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	EmailLower     string    `json:"email_lower"`
	FirstName      string    `json:"first_name"`
	Surname        string    `json:"surname"`
	DisplayName    string    `json:"display_name"`
	ProfileInitial string    `json:"profile_initial"`
	ProfilePicture string    `json:"profile_picture"`
	Status         string    `json:"status"`
	Salt           []byte    `json:"salt"`
	Verifier       []byte    `json:"verifier"`
	CreatedAt      time.Time `json:"created_at"`
}

package api

import "time"

type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name,omitempty"`
	Surname   string `json:"surname,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by Register and Login. Token goes into the
// access_token metadata of every later call.
type AuthResponse struct {
	UserID      string `json:"user_id"`
	Token       string `json:"token"`
	DisplayName string `json:"display_name"`
}

type PingRequest struct{}

type PingResponse struct {
	Status string `json:"status"`
}

type SearchUsersRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

type User struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	DisplayName    string `json:"display_name"`
	ProfileInitial string `json:"profile_initial"`
	Status         string `json:"status"`
}

type SearchUsersResponse struct {
	Users []User `json:"users"`
}

type SendRequest struct {
	ReceiverID string `json:"receiver_id"`
	Text       string `json:"text"`
}

type SendResponse struct {
	MessageID  string    `json:"message_id"`
	Timestamp  time.Time `json:"timestamp"`
	Ciphertext string    `json:"ciphertext"`
	SpamScore  float64   `json:"spam_score"`
	Flagged    bool      `json:"flagged"`
	// RoundTripMicros is zero unless the server verifies round trips.
	RoundTripMicros int64 `json:"round_trip_us,omitempty"`
}

type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Timestamp  time.Time `json:"timestamp"`
	Text       string    `json:"text"`
	Decrypted  bool      `json:"decrypted"`
}

type GetThreadRequest struct {
	PartnerID string `json:"partner_id"`
}

type GetThreadResponse struct {
	Messages []Message `json:"messages"`
}

type GetPreviewsRequest struct{}

type Preview struct {
	PartnerID   string    `json:"partner_id"`
	PartnerName string    `json:"partner_name,omitempty"`
	MessageID   string    `json:"message_id"`
	SenderID    string    `json:"sender_id"`
	Timestamp   time.Time `json:"timestamp"`
	Snippet     string    `json:"snippet"`
	Decrypted   bool      `json:"decrypted"`
}

type GetPreviewsResponse struct {
	Previews []Preview `json:"previews"`
}

type CheckMirrorRequest struct {
	PartnerID string `json:"partner_id"`
}

type CheckMirrorResponse struct {
	Consistent bool `json:"consistent"`
}

// ListenRequest opens the arrivals stream. A zero Since replays the whole
// history. SeenIDs lists messages already received at exactly Since.
type ListenRequest struct {
	Since   time.Time `json:"since,omitempty"`
	SeenIDs []string  `json:"seen_ids,omitempty"`
}

type Delivery struct {
	MessageID string    `json:"message_id"`
	SenderID  string    `json:"sender_id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

package models

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Message is one encrypted chat message. The same ID is shared by the
// sender view, the receiver view and the global log copy.
type Message struct {
	ID         uuid.UUID `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Timestamp  time.Time `json:"timestamp"`
	Ciphertext string    `json:"ciphertext"`
}

// Partner returns the other participant from owner's point of view.
func (m *Message) Partner(owner string) string {
	if m.SenderID == owner {
		return m.ReceiverID
	}
	return m.SenderID
}

// Before orders messages by timestamp, then by id.
func (m *Message) Before(o *Message) bool {
	if !m.Timestamp.Equal(o.Timestamp) {
		return m.Timestamp.Before(o.Timestamp)
	}
	return m.ID.String() < o.ID.String()
}

// SortMessages sorts msgs in thread order.
func SortMessages(msgs []*Message) {
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].Before(msgs[j]) })
}

// Package messages persists encrypted messages as mirrored conversation
// threads: one view filed under the sender, one under the receiver, plus a
// global append-only log.
package messages

import (
	"context"

	"github.com/dmitrijs2005/whisperbox/internal/server/models"
	"github.com/dmitrijs2005/whisperbox/internal/timex"
	"github.com/google/uuid"
)

type Repository interface {
	// Append assigns id and timestamp and files the message under both
	// participants and in the global log. A message to oneself is filed
	// once.
	Append(ctx context.Context, senderID, receiverID, ciphertext string) (*models.Message, error)
	// GetThread returns owner's view of the conversation with partner in
	// thread order. An empty thread is an empty slice.
	GetThread(ctx context.Context, owner, partner string) ([]*models.Message, error)
	// GetLatestPerPartner returns the newest message of each of owner's
	// conversations, keyed by partner.
	GetLatestPerPartner(ctx context.Context, owner string) (map[string]*models.Message, error)
	// GetAllThreads returns every conversation of owner keyed by partner,
	// each in thread order.
	GetAllThreads(ctx context.Context, owner string) (map[string][]*models.Message, error)
}

type Option func(*options)

type options struct {
	clock timex.Clock
	newID func() uuid.UUID
}

// WithClock sets the timestamp source. The value is truncated to
// timex.Precision and converted to UTC.
func WithClock(c timex.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithIDGenerator sets the message id source.
func WithIDGenerator(f func() uuid.UUID) Option {
	return func(o *options) { o.newID = f }
}

func newOptions(opts []Option) options {
	o := options{
		clock: timex.NewMonotonicClock(timex.SystemClock),
		newID: uuid.New,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) newMessage(senderID, receiverID, ciphertext string) *models.Message {
	return &models.Message{
		ID:         o.newID(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Timestamp:  o.clock.Now().UTC().Truncate(timex.Precision),
		Ciphertext: ciphertext,
	}
}

// view is one (owner, partner) filing of a message.
type view struct {
	owner, partner string
}

// views lists the filings of m, sender first.
func views(m *models.Message) []view {
	v := []view{{owner: m.SenderID, partner: m.Partner(m.SenderID)}}
	if m.ReceiverID != m.SenderID {
		v = append(v, view{owner: m.ReceiverID, partner: m.Partner(m.ReceiverID)})
	}
	return v
}

func latestOf(threads map[string][]*models.Message) map[string]*models.Message {
	latest := make(map[string]*models.Message, len(threads))
	for partner, msgs := range threads {
		if len(msgs) > 0 {
			latest[partner] = msgs[len(msgs)-1]
		}
	}
	return latest
}

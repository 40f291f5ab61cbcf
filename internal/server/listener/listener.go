// Package listener polls a user's conversations and hands every newly
// arrived message, decrypted, to a callback.
//
// A listener keeps a high-water mark made of the newest timestamp it has
// processed and the ids processed at exactly that timestamp. A record is
// new when it is later than the mark, or tied with it and not yet seen, so
// tied records are neither delivered twice nor lost when one of them is
// appended in a later cycle.
package listener

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/whisperbox/internal/common"
	"github.com/dmitrijs2005/whisperbox/internal/cryptox"
	"github.com/dmitrijs2005/whisperbox/internal/logging"
	"github.com/dmitrijs2005/whisperbox/internal/server/models"
	"github.com/dmitrijs2005/whisperbox/internal/server/repositories/messages"
	"github.com/google/uuid"
)

const DefaultInterval = time.Second

type State int32

const (
	Idle State = iota
	Polling
	Scanning
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Polling:
		return "polling"
	case Scanning:
		return "scanning"
	default:
		return "unknown"
	}
}

// KeyProvider looks up the message key of a user. It never creates one:
// a partner who has never sent anything has nothing to decrypt.
type KeyProvider interface {
	GetKey(ctx context.Context, userID string) (cryptox.Key, error)
}

// Delivery is one arrived message.
type Delivery struct {
	MessageID uuid.UUID
	SenderID  string
	Plaintext string
	Timestamp time.Time
}

// Mark is a listener position. The zero Mark is the beginning of history.
type Mark struct {
	LastSeen time.Time
	IDs      []uuid.UUID
}

type Listener struct {
	owner    string
	keys     KeyProvider
	repo     messages.Repository
	interval time.Duration
	logger   logging.Logger

	state atomic.Int32

	mu       sync.Mutex
	lastSeen time.Time
	seenAt   map[uuid.UUID]struct{}

	// keys are never rotated, so a resolved key is good for the lifetime
	// of the listener.
	cache map[string]cryptox.Key
}

type Option func(*Listener)

// WithInterval sets the wait between two polls. Non-positive values are
// ignored.
func WithInterval(d time.Duration) Option {
	return func(l *Listener) {
		if d > 0 {
			l.interval = d
		}
	}
}

// WithSince starts the listener from a previously saved position.
func WithSince(m Mark) Option {
	return func(l *Listener) {
		l.lastSeen = m.LastSeen.UTC()
		l.seenAt = make(map[uuid.UUID]struct{}, len(m.IDs))
		for _, id := range m.IDs {
			l.seenAt[id] = struct{}{}
		}
	}
}

func WithLogger(logger logging.Logger) Option {
	return func(l *Listener) { l.logger = logger }
}

func New(owner string, keys KeyProvider, repo messages.Repository, opts ...Option) *Listener {
	l := &Listener{
		owner:    owner,
		keys:     keys,
		repo:     repo,
		interval: DefaultInterval,
		logger:   logging.Discard(),
		seenAt:   make(map[uuid.UUID]struct{}),
		cache:    make(map[string]cryptox.Key),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With("module", "listener", "owner", owner)
	return l
}

func (l *Listener) State() State {
	return State(l.state.Load())
}

// Mark returns the current position. It is safe to call while Run is
// active.
func (l *Listener) Mark() Mark {
	l.mu.Lock()
	defer l.mu.Unlock()

	m := Mark{LastSeen: l.lastSeen, IDs: make([]uuid.UUID, 0, len(l.seenAt))}
	for id := range l.seenAt {
		m.IDs = append(m.IDs, id)
	}
	return m
}

// Run polls until ctx ends and returns ctx.Err(). cb is called on the
// calling goroutine, once per arrived message, in (timestamp, id) order.
// A failed poll is logged and retried after the interval.
func (l *Listener) Run(ctx context.Context, cb func(Delivery)) error {
	defer l.setState(Idle)

	l.logger.Info(ctx, "listener started", "interval", l.interval)
	l.warmKeys(ctx)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info(ctx, "listener stopped")
			return ctx.Err()
		case <-timer.C:
		}

		if err := l.poll(ctx, cb); err != nil && ctx.Err() == nil {
			l.logger.Warn(ctx, "poll failed", "error", err)
		}
		l.setState(Idle)
		timer.Reset(l.interval)
	}
}

// warmKeys resolves the keys of every partner known at start. Failures
// are left to the lazy path in poll.
func (l *Listener) warmKeys(ctx context.Context) {
	threads, err := l.repo.GetAllThreads(ctx, l.owner)
	if err != nil {
		l.logger.Debug(ctx, "key warm-up skipped", "error", err)
		return
	}
	for partner := range threads {
		if _, err := l.key(ctx, partner); err != nil {
			l.logger.Debug(ctx, "key warm-up failed", "partner_id", partner, "error", err)
		}
	}
}

// poll runs one cycle. Nothing is delivered and the mark does not move
// unless the whole batch was fetched and decrypted.
func (l *Listener) poll(ctx context.Context, cb func(Delivery)) error {
	l.setState(Polling)
	threads, err := l.repo.GetAllThreads(ctx, l.owner)
	if err != nil {
		return err
	}

	l.setState(Scanning)
	fresh := l.collect(threads)
	if len(fresh) == 0 {
		return nil
	}

	out := make([]Delivery, 0, len(fresh))
	unusable := make(map[string]struct{})
	for _, m := range fresh {
		if _, ok := unusable[m.SenderID]; ok {
			continue
		}
		key, err := l.key(ctx, m.SenderID)
		if err != nil {
			if abandons(ctx, err) {
				return err
			}
			// consumed like an undecryptable record; other senders go on
			unusable[m.SenderID] = struct{}{}
			l.logger.Warn(ctx, "skipping messages of sender without a usable key", "sender_id", m.SenderID, "error", err)
			continue
		}
		pt, err := cryptox.Decrypt(m.Ciphertext, key)
		if err != nil {
			// consumed: an undecryptable record is never retried
			l.logger.Warn(ctx, "skipping undecryptable message", "message_id", m.ID, "sender_id", m.SenderID, "error", err)
			continue
		}
		out = append(out, Delivery{MessageID: m.ID, SenderID: m.SenderID, Plaintext: pt, Timestamp: m.Timestamp})
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, d := range out {
		cb(d)
	}
	l.advance(fresh)
	return nil
}

// collect returns the partner-authored records past the mark in thread
// order.
func (l *Listener) collect(threads map[string][]*models.Message) []*models.Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	seen := make(map[uuid.UUID]struct{})
	var fresh []*models.Message
	for _, thread := range threads {
		for _, m := range thread {
			if m.SenderID == l.owner {
				continue
			}
			if _, dup := seen[m.ID]; dup {
				continue
			}
			if m.Timestamp.Before(l.lastSeen) {
				continue
			}
			if m.Timestamp.Equal(l.lastSeen) {
				if _, ok := l.seenAt[m.ID]; ok {
					continue
				}
			}
			seen[m.ID] = struct{}{}
			fresh = append(fresh, m)
		}
	}
	models.SortMessages(fresh)
	return fresh
}

// advance moves the mark over msgs, which must be in thread order and past
// the current mark.
func (l *Listener) advance(msgs []*models.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, m := range msgs {
		switch {
		case m.Timestamp.After(l.lastSeen):
			l.lastSeen = m.Timestamp
			l.seenAt = map[uuid.UUID]struct{}{m.ID: {}}
		case m.Timestamp.Equal(l.lastSeen):
			l.seenAt[m.ID] = struct{}{}
		}
	}
}

// abandons reports whether a key lookup failure must drop the whole cycle.
// Only an unreachable store or the end of ctx does; a missing or broken key
// concerns one sender alone.
func abandons(ctx context.Context, err error) bool {
	return ctx.Err() != nil ||
		errors.Is(err, common.ErrStoreUnavailable) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func (l *Listener) key(ctx context.Context, userID string) (cryptox.Key, error) {
	if k, ok := l.cache[userID]; ok {
		return k, nil
	}
	k, err := l.keys.GetKey(ctx, userID)
	if err != nil {
		return nil, err
	}
	l.cache[userID] = k
	return k, nil
}

func (l *Listener) setState(s State) {
	l.state.Store(int32(s))
}

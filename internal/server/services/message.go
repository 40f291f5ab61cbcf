package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dmitrijs2005/whisperbox/internal/common"
	"github.com/dmitrijs2005/whisperbox/internal/cryptox"
	"github.com/dmitrijs2005/whisperbox/internal/logging"
	"github.com/dmitrijs2005/whisperbox/internal/server/models"
	"github.com/dmitrijs2005/whisperbox/internal/server/repositories/messages"
	"github.com/dmitrijs2005/whisperbox/internal/server/spam"
)

const (
	snippetLen           = 36
	encryptedPlaceholder = "[Encrypted message]"
	decryptFailedMarker  = "[Decryption failed]"
	defaultSpamThreshold = 0.8
)

// KeyProvider resolves message keys. Only sending creates a key; reads
// look keys up and treat a missing one as nothing to decrypt.
type KeyProvider interface {
	GetOrCreateKey(ctx context.Context, userID string) (cryptox.Key, error)
	GetKey(ctx context.Context, userID string) (cryptox.Key, error)
}

// SendResult describes one accepted message.
type SendResult struct {
	Message    *models.Message
	Ciphertext string
	// SpamScore is advisory; a flagged message is still sent.
	SpamScore float64
	Flagged   bool
	// RoundTrip is the local encrypt+decrypt time, set only when round-trip
	// verification is enabled.
	RoundTrip time.Duration
}

// ThreadEntry is one message of a conversation with its plaintext.
type ThreadEntry struct {
	Message   *models.Message
	Plaintext string
	Decrypted bool
}

// Preview summarises the newest message of a conversation.
type Preview struct {
	PartnerID string
	Message   *models.Message
	Snippet   string
	Decrypted bool
}

// MessageService encrypts and stores outgoing messages and reads
// conversations back. Messages are encrypted under the sender's key, so
// every record is decrypted with its author's key.
type MessageService struct {
	keys      KeyProvider
	repo      messages.Repository
	scorer    spam.Scorer
	threshold float64
	verify    bool
	logger    logging.Logger
}

type MessageOption func(*MessageService)

func WithSpamScorer(s spam.Scorer, threshold float64) MessageOption {
	return func(m *MessageService) {
		m.scorer = s
		m.threshold = threshold
	}
}

// WithRoundTripVerification decrypts every sent message once more and
// records how long encrypt and decrypt took.
func WithRoundTripVerification() MessageOption {
	return func(m *MessageService) { m.verify = true }
}

func WithMessageLogger(l logging.Logger) MessageOption {
	return func(m *MessageService) { m.logger = l }
}

func NewMessageService(keys KeyProvider, repo messages.Repository, opts ...MessageOption) *MessageService {
	s := &MessageService{
		keys:      keys,
		repo:      repo,
		threshold: defaultSpamThreshold,
		logger:    logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("module", "messages")
	return s
}

// Send encrypts plaintext under the sender's key and files it under both
// participants. A blank receiver fails with common.ErrNoRecipientSelected
// before anything is touched.
func (s *MessageService) Send(ctx context.Context, senderID, receiverID, plaintext string) (*SendResult, error) {
	if strings.TrimSpace(senderID) == "" {
		return nil, common.ErrNoUserID
	}
	if strings.TrimSpace(receiverID) == "" {
		return nil, common.ErrNoRecipientSelected
	}

	res := &SendResult{}
	if s.scorer != nil {
		res.SpamScore = s.scorer.Score(plaintext)
		res.Flagged = spam.Flagged(res.SpamScore, s.threshold)
	}

	key, err := s.keys.GetOrCreateKey(ctx, senderID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	ciphertext, err := cryptox.Encrypt(plaintext, key)
	if err != nil {
		return nil, err
	}

	if s.verify {
		got, err := cryptox.Decrypt(ciphertext, key)
		res.RoundTrip = time.Since(start)
		if err != nil || got != plaintext {
			s.logger.Warn(ctx, "round-trip verification failed", "sender_id", senderID, "error", err)
		}
	}

	msg, err := s.repo.Append(ctx, senderID, receiverID, ciphertext)
	if err != nil {
		s.logger.Error(ctx, "append failed", "sender_id", senderID, "receiver_id", receiverID, "error", err)
		return nil, err
	}

	res.Message = msg
	res.Ciphertext = ciphertext
	if res.Flagged {
		s.logger.Info(ctx, "message flagged as likely spam", "message_id", msg.ID, "score", res.SpamScore)
	}
	return res, nil
}

// GetThread returns owner's conversation with partner, each record
// decrypted with its sender's key. A record that does not decrypt carries
// a placeholder instead of failing the whole thread.
func (s *MessageService) GetThread(ctx context.Context, owner, partner string) ([]ThreadEntry, error) {
	if strings.TrimSpace(owner) == "" {
		return nil, common.ErrNoUserID
	}
	if strings.TrimSpace(partner) == "" {
		return nil, common.ErrNoRecipientSelected
	}

	msgs, err := s.repo.GetThread(ctx, owner, partner)
	if err != nil {
		return nil, err
	}

	cache := newKeyCache(s.keys)
	entries := make([]ThreadEntry, 0, len(msgs))
	for _, m := range msgs {
		e := ThreadEntry{Message: m, Plaintext: decryptFailedMarker}
		if pt, err := cache.decrypt(ctx, m); err == nil {
			e.Plaintext, e.Decrypted = pt, true
		} else if ctx.Err() != nil {
			return nil, ctx.Err()
		} else {
			s.logger.Debug(ctx, "history record did not decrypt", "message_id", m.ID, "error", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// GetPreviews lists owner's conversations newest first.
func (s *MessageService) GetPreviews(ctx context.Context, owner string) ([]Preview, error) {
	if strings.TrimSpace(owner) == "" {
		return nil, common.ErrNoUserID
	}

	latest, err := s.repo.GetLatestPerPartner(ctx, owner)
	if err != nil {
		return nil, err
	}

	cache := newKeyCache(s.keys)
	previews := make([]Preview, 0, len(latest))
	for partner, m := range latest {
		p := Preview{PartnerID: partner, Message: m, Snippet: encryptedPlaceholder}
		if pt, err := cache.decrypt(ctx, m); err == nil {
			p.Snippet, p.Decrypted = Snippet(pt), true
		} else if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		previews = append(previews, p)
	}

	sort.Slice(previews, func(i, j int) bool {
		return previews[j].Message.Before(previews[i].Message)
	})
	return previews, nil
}

// CheckMirror compares both views of the conversation between a and b and
// reports common.ErrPartialMirrorWrite if they disagree.
func (s *MessageService) CheckMirror(ctx context.Context, a, b string) error {
	if strings.TrimSpace(a) == "" {
		return common.ErrNoUserID
	}
	if strings.TrimSpace(b) == "" {
		return common.ErrNoRecipientSelected
	}

	av, err := s.repo.GetThread(ctx, a, b)
	if err != nil {
		return err
	}
	if a == b {
		return nil
	}
	bv, err := s.repo.GetThread(ctx, b, a)
	if err != nil {
		return err
	}

	type fingerprint struct {
		ts time.Time
		ct string
	}
	index := make(map[string]fingerprint, len(av))
	for _, m := range av {
		index[m.ID.String()] = fingerprint{m.Timestamp, m.Ciphertext}
	}

	var missing, differ int
	for _, m := range bv {
		f, ok := index[m.ID.String()]
		if !ok {
			missing++
			continue
		}
		if !f.ts.Equal(m.Timestamp) || f.ct != m.Ciphertext {
			differ++
		}
		delete(index, m.ID.String())
	}
	missing += len(index)

	if missing > 0 || differ > 0 {
		s.logger.Warn(ctx, "mirror mismatch", "a", a, "b", b, "missing", missing, "differ", differ)
		return fmt.Errorf("%w: %d records missing from one view, %d differ", common.ErrPartialMirrorWrite, missing, differ)
	}
	return nil
}

// Snippet shortens text for a conversation preview.
func Snippet(text string) string {
	r := []rune(text)
	if len(r) <= snippetLen {
		return text
	}
	return string(r[:snippetLen]) + "..."
}

// keyCache memoises keys for the duration of one read.
type keyCache struct {
	keys KeyProvider
	m    map[string]cryptox.Key
}

func newKeyCache(keys KeyProvider) *keyCache {
	return &keyCache{keys: keys, m: make(map[string]cryptox.Key)}
}

func (c *keyCache) decrypt(ctx context.Context, m *models.Message) (string, error) {
	key, ok := c.m[m.SenderID]
	if !ok {
		var err error
		key, err = c.keys.GetKey(ctx, m.SenderID)
		if err != nil {
			return "", err
		}
		c.m[m.SenderID] = key
	}
	return cryptox.Decrypt(m.Ciphertext, key)
}

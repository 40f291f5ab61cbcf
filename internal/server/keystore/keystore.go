// Package keystore hands out the per-user symmetric message keys. A key is
// created on first request and never changes afterwards.
package keystore

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/whisperbox/internal/common"
	"github.com/dmitrijs2005/whisperbox/internal/cryptox"
	"github.com/dmitrijs2005/whisperbox/internal/logging"
	"github.com/dmitrijs2005/whisperbox/internal/server/models"
	"github.com/dmitrijs2005/whisperbox/internal/server/repositories/keys"
	"github.com/dmitrijs2005/whisperbox/internal/timex"
)

// Store is safe for concurrent use. Concurrent first requests for the same
// user are settled by the repository's conditional insert, so every caller
// ends up with the one key that was persisted.
type Store struct {
	repo   keys.Repository
	sealer *cryptox.KeySealer
	random io.Reader
	clock  timex.Clock
	logger logging.Logger
}

type Option func(*Store)

// WithRandom replaces crypto/rand as the key source.
func WithRandom(r io.Reader) Option {
	return func(s *Store) { s.random = r }
}

// WithSealer seals key records before they are written.
func WithSealer(sealer *cryptox.KeySealer) Option {
	return func(s *Store) { s.sealer = sealer }
}

func WithClock(c timex.Clock) Option {
	return func(s *Store) { s.clock = c }
}

func WithLogger(l logging.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func New(repo keys.Repository, opts ...Option) *Store {
	s := &Store{
		repo:   repo,
		random: rand.Reader,
		clock:  timex.SystemClock,
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("module", "keystore")
	return s
}

// GetOrCreateKey returns userID's key, generating and persisting one if the
// user has none yet.
func (s *Store) GetOrCreateKey(ctx context.Context, userID string) (cryptox.Key, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, common.ErrNoUserID
	}

	key, err := s.load(ctx, userID)
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}

	key, err = s.generate()
	if err != nil {
		s.logger.Error(ctx, "key generation failed", "user_id", userID, "error", err)
		return nil, err
	}

	sealed, err := s.sealer.Seal(key)
	if err != nil {
		return nil, fmt.Errorf("seal key: %w", err)
	}

	rec := &models.KeyRecord{UserID: userID, KeyMaterial: sealed, CreatedAt: s.clock.Now().UTC()}
	inserted, err := s.repo.InsertIfAbsent(ctx, rec)
	if err != nil {
		return nil, storeError("insert key", err)
	}
	if inserted {
		s.logger.Info(ctx, "key created", "user_id", userID)
		return key, nil
	}

	// another caller persisted first; its key is the user's key
	common.WipeByteArray(key)
	key, err = s.load(ctx, userID)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("%w: key vanished after conflicting insert", common.ErrStoreUnavailable)
	}
	return key, err
}

// GetKey returns userID's key without creating one.
func (s *Store) GetKey(ctx context.Context, userID string) (cryptox.Key, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, common.ErrNoUserID
	}
	return s.load(ctx, userID)
}

func (s *Store) load(ctx context.Context, userID string) (cryptox.Key, error) {
	rec, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, storeError("get key", err)
	}

	key, err := s.sealer.Open(rec.KeyMaterial)
	if err != nil {
		s.logger.Error(ctx, "stored key is unusable", "user_id", userID, "error", err)
		return nil, err
	}
	return key, nil
}

// generate draws fresh key material, rejecting short reads and all-zero
// output, for at most common.MaxKeyGenerationAttempts attempts.
func (s *Store) generate() (cryptox.Key, error) {
	var errs []error
	for attempt := 0; attempt < common.MaxKeyGenerationAttempts; attempt++ {
		raw, err := common.ReadRandom(s.random, common.KeySize)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if common.IsZero(raw) {
			errs = append(errs, errors.New("all-zero key material"))
			continue
		}

		encoded, err := cryptox.NormalizeKeyMaterial(raw)
		common.WipeByteArray(raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		key, err := cryptox.ParseKey(encoded)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		return key, nil
	}
	return nil, fmt.Errorf("%w: %w", common.ErrKeyGenerationFailed, errors.Join(errs...))
}

func storeError(op string, err error) error {
	if errors.Is(err, common.ErrStoreUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", common.ErrStoreUnavailable, op, err)
}

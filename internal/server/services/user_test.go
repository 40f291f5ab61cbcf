package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/whisperbox/internal/common"
	"github.com/dmitrijs2005/whisperbox/internal/logging"
	"github.com/dmitrijs2005/whisperbox/internal/server/config"
	"github.com/dmitrijs2005/whisperbox/internal/server/models"
	"github.com/dmitrijs2005/whisperbox/internal/server/repositories/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserService(t *testing.T) (*UserService, *users.MemoryRepository) {
	t.Helper()
	repo := users.NewMemoryRepository()
	cfg := &config.Config{SecretKey: "test-secret", AccessTokenValidityDuration: time.Hour}
	return NewUserService(repo, cfg, logging.Discard()), repo
}

func TestRegister_StoresProfileAndIssuesToken(t *testing.T) {
	s, repo := newUserService(t)
	ctx := context.Background()

	sess, err := s.Register(ctx, RegisterRequest{Email: " Alice@Example.com ", Password: "hunter22", FirstName: "alice", Surname: "Smith"})
	require.NoError(t, err)
	require.NotEmpty(t, sess.Token)

	u, err := repo.GetByID(ctx, sess.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice@Example.com", u.Email)
	assert.Equal(t, "alice@example.com", u.EmailLower)
	assert.Equal(t, "alice Smith", u.DisplayName)
	assert.Equal(t, "A", u.ProfileInitial)
	assert.Equal(t, "online", u.Status)
	assert.NotEqual(t, []byte("hunter22"), u.Verifier)

	id, err := s.Authenticate(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)
}

func TestRegister_Validation(t *testing.T) {
	s, _ := newUserService(t)
	ctx := context.Background()

	_, err := s.Register(ctx, RegisterRequest{Email: "not-an-email", Password: "hunter22"})
	require.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = s.Register(ctx, RegisterRequest{Email: "bob@example.com", Password: "123"})
	require.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	s, _ := newUserService(t)
	ctx := context.Background()

	_, err := s.Register(ctx, RegisterRequest{Email: "bob@example.com", Password: "hunter22"})
	require.NoError(t, err)
	_, err = s.Register(ctx, RegisterRequest{Email: "BOB@example.com", Password: "hunter22"})
	require.ErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestLogin(t *testing.T) {
	s, _ := newUserService(t)
	ctx := context.Background()

	reg, err := s.Register(ctx, RegisterRequest{Email: "carol@example.com", Password: "correct horse"})
	require.NoError(t, err)

	sess, err := s.Login(ctx, "CAROL@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, sess.User.ID)

	_, err = s.Login(ctx, "carol@example.com", "wrong horse")
	require.ErrorIs(t, err, common.ErrInvalidCredentials)

	_, err = s.Login(ctx, "nobody@example.com", "whatever")
	require.ErrorIs(t, err, common.ErrInvalidCredentials)
}

type failingUsers struct{ users.Repository }

func (failingUsers) GetByEmail(context.Context, string) (*models.User, error) {
	return nil, common.ErrStoreUnavailable
}

func TestLogin_StoreErrorIsNotCredentialsError(t *testing.T) {
	s := NewUserService(failingUsers{}, &config.Config{SecretKey: "k", AccessTokenValidityDuration: time.Hour}, logging.Discard())

	_, err := s.Login(context.Background(), "x@example.com", "pw")
	require.ErrorIs(t, err, common.ErrStoreUnavailable)
	assert.False(t, errors.Is(err, common.ErrInvalidCredentials))
}

func TestSearchUsers_ExcludesCaller(t *testing.T) {
	s, _ := newUserService(t)
	ctx := context.Background()

	me, err := s.Register(ctx, RegisterRequest{Email: "dan@example.com", Password: "hunter22"})
	require.NoError(t, err)
	other, err := s.Register(ctx, RegisterRequest{Email: "dana@example.com", Password: "hunter22"})
	require.NoError(t, err)
	_, err = s.Register(ctx, RegisterRequest{Email: "erin@example.com", Password: "hunter22"})
	require.NoError(t, err)

	got, err := s.SearchUsers(ctx, me.User.ID, "DAN", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, other.User.ID, got[0].ID)

	got, err = s.SearchUsers(ctx, me.User.ID, "example", 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestGetUser(t *testing.T) {
	s, _ := newUserService(t)
	ctx := context.Background()

	_, err := s.GetUser(ctx, "")
	require.ErrorIs(t, err, common.ErrNoUserID)
	_, err = s.GetUser(ctx, "missing")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestDisplayNameAndInitial(t *testing.T) {
	assert.Equal(t, "Ann Lee", DisplayName("Ann", "Lee", "x@y.z"))
	assert.Equal(t, "Ann", DisplayName("Ann", "", "x@y.z"))
	assert.Equal(t, "frank", DisplayName("", "", "frank@example.com"))

	assert.Equal(t, "F", ProfileInitial("frank"))
	assert.Equal(t, "Ö", ProfileInitial("  örjan"))
	assert.Equal(t, "?", ProfileInitial(""))
}

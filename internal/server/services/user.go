// Package services contains server-side business logic. This file implements
// UserService, the built-in identity provider: registration, login, session
// token verification and contact search.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/dmitrijs2005/whisperbox/internal/common"
	"github.com/dmitrijs2005/whisperbox/internal/cryptox"
	"github.com/dmitrijs2005/whisperbox/internal/logging"
	"github.com/dmitrijs2005/whisperbox/internal/server/auth"
	"github.com/dmitrijs2005/whisperbox/internal/server/config"
	"github.com/dmitrijs2005/whisperbox/internal/server/models"
	"github.com/dmitrijs2005/whisperbox/internal/server/repositories/users"
	"github.com/google/uuid"
)

const (
	minPasswordLen     = 6
	defaultSearchLimit = 20
	statusOnline       = "online"
)

// Session is what a successful register or login hands back.
type Session struct {
	User  *models.User
	Token string
}

// RegisterRequest carries the sign-up form. Names are optional.
type RegisterRequest struct {
	Email     string
	Password  string
	FirstName string
	Surname   string
}

// UserService registers users, logs them in and verifies session tokens.
// The rest of the server only ever sees the user id it returns.
type UserService struct {
	users                       users.Repository
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
	logger                      logging.Logger
}

// NewUserService constructs a UserService from the users repository and
// server config.
func NewUserService(repo users.Repository, cfg *config.Config, logger logging.Logger) *UserService {
	return &UserService{
		users:                       repo,
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
		logger:                      logger.With("module", "users"),
	}
}

// Register creates an account and logs it in.
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	email := strings.TrimSpace(req.Email)
	if _, err := mail.ParseAddress(email); err != nil || strings.ContainsAny(email, " <>") {
		return nil, fmt.Errorf("%w: malformed email", common.ErrInvalidInput)
	}
	if utf8.RuneCountInString(req.Password) < minPasswordLen {
		return nil, fmt.Errorf("%w: password must be at least %d characters", common.ErrInvalidInput, minPasswordLen)
	}

	firstName := strings.TrimSpace(req.FirstName)
	surname := strings.TrimSpace(req.Surname)
	display := DisplayName(firstName, surname, email)

	salt := common.GenerateRandByteArray(cryptox.PasswordSaltSize)
	user := &models.User{
		ID:             uuid.NewString(),
		Email:          email,
		EmailLower:     strings.ToLower(email),
		FirstName:      firstName,
		Surname:        surname,
		DisplayName:    display,
		ProfileInitial: ProfileInitial(display),
		Status:         statusOnline,
		Salt:           salt,
		Verifier:       cryptox.MakeVerifier(cryptox.DerivePasswordKey([]byte(req.Password), salt)),
		CreatedAt:      time.Now().UTC(),
	}

	u, err := s.users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	s.logger.Info(ctx, "user registered", "user_id", u.ID)

	return s.newSession(u)
}

// Login checks email and password. Unknown email and wrong password both
// yield common.ErrInvalidCredentials.
func (s *UserService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// keep the timing of an unknown email close to a wrong password
			cryptox.DerivePasswordKey([]byte(password), common.GenerateRandByteArray(cryptox.PasswordSaltSize))
			return nil, common.ErrInvalidCredentials
		}
		return nil, err
	}
	if !cryptox.CheckPassword([]byte(password), user.Salt, user.Verifier) {
		return nil, common.ErrInvalidCredentials
	}
	return s.newSession(user)
}

// Authenticate verifies a session token and returns its user id.
func (s *UserService) Authenticate(token string) (string, error) {
	return auth.GetUserIDFromToken(token, s.jwtSecret)
}

func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, common.ErrNoUserID
	}
	return s.users.GetByID(ctx, id)
}

// SearchUsers finds other users whose email contains query,
// case-insensitively. The caller is never part of the result.
func (s *UserService) SearchUsers(ctx context.Context, callerID, query string, limit int) ([]*models.User, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	found, err := s.users.Search(ctx, query, limit+1)
	if err != nil {
		return nil, err
	}

	result := make([]*models.User, 0, len(found))
	for _, u := range found {
		if u.ID == callerID {
			continue
		}
		result = append(result, u)
	}
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *UserService) newSession(u *models.User) (*Session, error) {
	token, err := auth.GenerateToken(u.ID, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}
	return &Session{User: u, Token: token}, nil
}

// DisplayName joins first name and surname, falling back to the local part
// of the email address.
func DisplayName(firstName, surname, email string) string {
	if name := strings.TrimSpace(firstName + " " + surname); name != "" {
		return name
	}
	local, _, _ := strings.Cut(email, "@")
	return local
}

// ProfileInitial is the upper-cased first letter of name, or "?".
func ProfileInitial(name string) string {
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return string(unicode.ToUpper(r))
		}
	}
	return "?"
}

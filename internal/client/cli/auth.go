package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/whisperbox/internal/api"
	"github.com/dmitrijs2005/whisperbox/internal/client/client"
	"github.com/dmitrijs2005/whisperbox/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/whisperbox/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for an email, a password and an optional name, creates
// the account and logs straight in.
func (a *App) Register(ctx context.Context) error {
	if a.isLoggedIn() {
		a.println("Already logged in, logout first")
		return nil
	}

	email, err := getSimpleText(a.reader, "Enter email:", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	first, err := getSimpleText(a.reader, "First name (optional):", a.out)
	if err != nil {
		return err
	}
	surname, err := getSimpleText(a.reader, "Surname (optional):", a.out)
	if err != nil {
		return err
	}

	resp, err := a.client.Register(ctx, &api.RegisterRequest{
		Email:     email,
		Password:  string(password),
		FirstName: first,
		Surname:   surname,
	})
	if err != nil {
		a.printError("Registration failed", err)
		return err
	}

	if err := a.saveSession(ctx, email, resp); err != nil {
		return err
	}
	a.println("Success! Logged in as", resp.DisplayName)
	return nil
}

// Login prompts for credentials and starts the arrivals listener.
func (a *App) Login(ctx context.Context) error {
	if a.isLoggedIn() {
		a.println("Already logged in, logout first")
		return nil
	}

	email, err := getSimpleText(a.reader, "Enter email:", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	resp, err := a.client.Login(ctx, email, string(password))
	if err != nil {
		a.printError("Login failed", err)
		return err
	}

	if err := a.saveSession(ctx, email, resp); err != nil {
		return err
	}
	a.println("Logged in as", resp.DisplayName)
	return nil
}

func (a *App) saveSession(ctx context.Context, email string, resp *api.AuthResponse) error {
	s := &metadata.Session{
		UserID:      resp.UserID,
		Email:       email,
		DisplayName: resp.DisplayName,
		Token:       resp.Token,
	}
	if err := a.repo.SaveSession(ctx, s); err != nil {
		a.logger.Error(ctx, "saving session", "error", err)
		return fmt.Errorf("saving session: %w", err)
	}
	a.startSession(ctx, s)
	return nil
}

// Logout stops the listener and forgets the stored session. The listener
// cursor is kept so the next login resumes where this one stopped.
func (a *App) Logout(ctx context.Context) error {
	if !a.isLoggedIn() {
		a.println("Not logged in")
		return nil
	}

	a.stopListener()
	if err := a.repo.ClearSession(ctx); err != nil {
		a.logger.Error(ctx, "clearing session", "error", err)
		return err
	}
	a.client.SetToken("")

	a.mu.Lock()
	a.session = nil
	a.partner = ""
	a.mu.Unlock()

	a.println("Logged out")
	return nil
}

func (a *App) printError(prefix string, err error) {
	switch {
	case errors.Is(err, client.ErrUnavailable):
		a.println(prefix+":", "server unavailable, try again later")
	default:
		a.println(prefix+":", err)
	}
}

package cli

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/whisperbox/internal/client/client"
)

const timeLayout = "2006-01-02 15:04:05"

var errNoConversation = errors.New("no conversation open, use: open <user-id>")

// Contacts lists users whose email contains query.
func (a *App) Contacts(ctx context.Context, query string) error {
	if !a.isLoggedIn() {
		a.println("Not logged in")
		return nil
	}
	if strings.TrimSpace(query) == "" {
		a.println("Usage: contacts <query>")
		return nil
	}

	users, err := a.client.SearchUsers(ctx, query)
	if err != nil {
		a.printError("Search failed", err)
		return err
	}
	if len(users) == 0 {
		a.println("No users found")
		return nil
	}
	for _, u := range users {
		a.remember(u.ID, u.DisplayName)
		a.printf("[%s] %-20s %-30s %s\n", u.ProfileInitial, u.DisplayName, u.Email, u.ID)
	}
	return nil
}

// Open selects the conversation with id and prints its history.
func (a *App) Open(ctx context.Context, id string) error {
	if !a.isLoggedIn() {
		a.println("Not logged in")
		return nil
	}
	id = strings.TrimSpace(id)
	if id == "" {
		a.println("Usage: open <user-id>")
		return nil
	}

	a.mu.Lock()
	a.partner = id
	a.mu.Unlock()

	return a.History(ctx)
}

// Send sends text to the open conversation. Without an open conversation the
// request still goes out so the server reports the missing recipient.
func (a *App) Send(ctx context.Context, text string) error {
	if !a.isLoggedIn() {
		a.println("Not logged in")
		return nil
	}
	if text == "" {
		a.println("Usage: send <text>")
		return nil
	}

	res, err := a.client.Send(ctx, a.currentPartner(), text)
	if err != nil {
		if errors.Is(err, client.ErrInvalidArgument) && a.currentPartner() == "" {
			a.println("Send failed:", errNoConversation)
		} else {
			a.printError("Send failed", err)
		}
		return err
	}

	a.printf("Sent at %s (spam probability %.0f%%)\n", res.Timestamp.Local().Format(timeLayout), res.SpamScore*100)
	if res.Flagged {
		a.println("Warning: this message looks like spam")
	}
	if res.RoundTripMicros > 0 {
		a.printf("Encryption round trip: %s\n", time.Duration(res.RoundTripMicros)*time.Microsecond)
	}
	return nil
}

// History prints the open conversation, oldest first.
func (a *App) History(ctx context.Context) error {
	if !a.isLoggedIn() {
		a.println("Not logged in")
		return nil
	}
	partner := a.currentPartner()
	if partner == "" {
		a.println(errNoConversation)
		return nil
	}

	msgs, err := a.client.GetThread(ctx, partner)
	if err != nil {
		a.printError("Loading history failed", err)
		return err
	}

	a.println("--- conversation with", a.name(partner), "---")
	if len(msgs) == 0 {
		a.println("No messages yet")
		return nil
	}
	for _, m := range msgs {
		a.printf("[%s] %s: %s\n", m.Timestamp.Local().Format(timeLayout), a.name(m.SenderID), m.Text)
	}
	return nil
}

// Chats prints one line per conversation, most recent first.
func (a *App) Chats(ctx context.Context) error {
	if !a.isLoggedIn() {
		a.println("Not logged in")
		return nil
	}

	previews, err := a.client.GetPreviews(ctx)
	if err != nil {
		a.printError("Loading conversations failed", err)
		return err
	}
	if len(previews) == 0 {
		a.println("No conversations yet")
		return nil
	}
	for _, p := range previews {
		a.remember(p.PartnerID, p.PartnerName)
		a.printf("%-20s [%s] %s: %s  (%s)\n",
			a.name(p.PartnerID), p.Timestamp.Local().Format(timeLayout), a.name(p.SenderID), p.Snippet, p.PartnerID)
	}
	return nil
}

// Check compares the two stored copies of the open conversation.
func (a *App) Check(ctx context.Context) error {
	if !a.isLoggedIn() {
		a.println("Not logged in")
		return nil
	}
	partner := a.currentPartner()
	if partner == "" {
		a.println(errNoConversation)
		return nil
	}

	err := a.client.CheckMirror(ctx, partner)
	switch {
	case err == nil:
		a.println("Both copies of the conversation match")
	case errors.Is(err, client.ErrInconsistent):
		a.println("Conversation copies differ:", err)
	default:
		a.printError("Check failed", err)
	}
	return err
}

package client

import (
	"context"

	"github.com/dmitrijs2005/whisperbox/internal/api"
	"github.com/dmitrijs2005/whisperbox/internal/client/repositories/metadata"
)

// Client is the server surface used by the terminal UI.
type Client interface {
	Close() error
	SetToken(token string)
	Register(ctx context.Context, req *api.RegisterRequest) (*api.AuthResponse, error)
	Login(ctx context.Context, email, password string) (*api.AuthResponse, error)
	Ping(ctx context.Context) error
	SearchUsers(ctx context.Context, query string) ([]api.User, error)
	Send(ctx context.Context, receiverID, text string) (*api.SendResponse, error)
	GetThread(ctx context.Context, partnerID string) ([]api.Message, error)
	GetPreviews(ctx context.Context) ([]api.Preview, error)
	CheckMirror(ctx context.Context, partnerID string) error
	// Listen streams arrivals after since to cb until ctx ends or the
	// stream breaks.
	Listen(ctx context.Context, since metadata.Cursor, cb func(api.Delivery)) error
}

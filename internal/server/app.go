// Package server wires the whisperbox server together: storage backend,
// key store, spam model, services and the gRPC endpoint. It runs until the
// context ends or the process receives SIGINT, SIGTERM or SIGQUIT.
package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/whisperbox/internal/cryptox"
	"github.com/dmitrijs2005/whisperbox/internal/logging"
	"github.com/dmitrijs2005/whisperbox/internal/server/config"
	"github.com/dmitrijs2005/whisperbox/internal/server/keystore"
	"github.com/dmitrijs2005/whisperbox/internal/server/listener"
	"github.com/dmitrijs2005/whisperbox/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/whisperbox/internal/server/services"
	"github.com/dmitrijs2005/whisperbox/internal/server/spam"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/whisperbox/internal/server/grpc"
)

// newRepositoryManager is a test seam.
var newRepositoryManager = repomanager.New

type App struct {
	config *config.Config
	logger logging.Logger
	repos  repomanager.RepositoryManager
	server *gs.GRPCServer
}

// NewApp builds every component from c. Store handles are created once
// here and shared by all requests.
func NewApp(ctx context.Context, c *config.Config, out io.Writer) (*App, error) {
	logger := logging.NewJSONLogger(out, c.LogLevel)

	sealer, err := cryptox.NewKeySealer(c.KeyEncryptionSecret)
	if err != nil {
		return nil, fmt.Errorf("key sealer init error: %w", err)
	}

	scorer, err := spam.Default()
	if err != nil {
		return nil, fmt.Errorf("spam model init error: %w", err)
	}

	rm, err := newRepositoryManager(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}
	logger.Info(ctx, "storage ready", "backend", c.StorageBackend)

	ks := keystore.New(rm.Keys(), keystore.WithSealer(sealer), keystore.WithLogger(logger))
	us := services.NewUserService(rm.Users(), c, logger)
	ms := services.NewMessageService(ks, rm.Messages(),
		services.WithSpamScorer(scorer, c.SpamThreshold),
		services.WithRoundTripVerification(),
		services.WithMessageLogger(logger),
	)

	listeners := func(owner string, since listener.Mark) gs.Runner {
		return listener.New(owner, ks, rm.Messages(),
			listener.WithInterval(c.PollInterval),
			listener.WithSince(since),
			listener.WithLogger(logger),
		)
	}

	return &App{
		config: c,
		logger: logger,
		repos:  rm,
		server: gs.NewGRPCServer(c.EndpointAddrGRPC, logger, us, ms, listeners),
	}, nil
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// closes the storage backend.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	app.logger.Info(ctx, "Starting app...")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.server.Run(ctx)
	})

	err := g.Wait()
	if cerr := app.repos.Close(); cerr != nil {
		app.logger.Error(context.Background(), "storage close failed", "error", cerr)
	}
	if err != nil {
		app.logger.Error(context.Background(), "server stopped with error", "error", err)
		return err
	}
	app.logger.Info(context.Background(), "app stopped")
	return nil
}

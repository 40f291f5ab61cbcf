package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/whisperbox/internal/client/client"
	"github.com/dmitrijs2005/whisperbox/internal/client/config"
	"github.com/dmitrijs2005/whisperbox/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/whisperbox/internal/common"
	"github.com/dmitrijs2005/whisperbox/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

const pingTimeout = 3 * time.Second

type App struct {
	config *config.Config
	client client.Client
	repo   metadata.Repository
	db     *sql.DB
	logger logging.Logger
	reader *bufio.Reader

	outMu sync.Mutex
	out   io.Writer

	mu         sync.Mutex
	session    *metadata.Session
	partner    string
	names      map[string]string
	mode       Mode
	stopListen context.CancelFunc
	listenDone chan struct{}
}

// NewApp opens the local database and connects to the server named in c.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewTextLogger(os.Stderr, c.LogLevel)

	db, err := client.OpenDatabase(ctx, c.DatabasePath)
	if err != nil {
		logger.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	apiClient, err := client.NewGRPCClient(c.ServerEndpointAddr)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	a := newApp(c, apiClient, metadata.NewSQLiteRepository(db), bufio.NewReader(os.Stdin), os.Stdout, logger)
	a.db = db
	return a, nil
}

func newApp(c *config.Config, cl client.Client, repo metadata.Repository, r *bufio.Reader, out io.Writer, l logging.Logger) *App {
	return &App{
		config: c,
		client: cl,
		repo:   repo,
		logger: l.With("module", "cli"),
		reader: r,
		out:    out,
		names:  map[string]string{},
	}
}

// Run resumes a saved session if there is one and serves the prompt until
// the user leaves or stdin closes.
func (a *App) Run(ctx context.Context) {
	defer a.close()

	a.println("Welcome to whisperbox (type 'help' for commands)")
	a.resume(ctx)

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.StartOnlineStatusWatcher(watchCtx, a.config.ReconnectInterval)

	runREPL(ctx, a, a.getStatus, bufio.NewScanner(a.reader))
}

func (a *App) close() {
	a.stopListener()
	if err := a.client.Close(); err != nil {
		a.logger.Warn(context.Background(), "closing connection", "error", err)
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

// resume restores the last session from the local database.
func (a *App) resume(ctx context.Context) {
	s, err := a.repo.LoadSession(ctx)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			a.logger.Warn(ctx, "loading session", "error", err)
		}
		return
	}
	a.startSession(ctx, s)
	a.println("Logged in as", s.DisplayName)
}

func (a *App) startSession(ctx context.Context, s *metadata.Session) {
	a.client.SetToken(s.Token)
	a.mu.Lock()
	a.session = s
	a.partner = ""
	a.names[s.UserID] = s.DisplayName
	a.mu.Unlock()
	a.startListener(ctx, s.UserID)
}

func (a *App) isLoggedIn() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session != nil
}

func (a *App) currentSession() *metadata.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session
}

func (a *App) currentPartner() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.partner
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()
	if changed {
		a.logger.Info(context.Background(), "connection mode changed", "mode", mode)
	}
}

func (a *App) getStatus() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := ""
	if a.session != nil {
		s = a.session.DisplayName + " "
	}
	if a.partner != "" {
		s += "-> " + a.nameLocked(a.partner) + " "
	}
	s += string(a.mode)
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// StartOnlineStatusWatcher pings the server every interval and records
// whether it answered.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	a.checkOnline(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) checkOnline(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := a.client.Ping(pctx); err != nil {
		a.setMode(ModeOffline)
		return
	}
	a.setMode(ModeOnline)
}

func (a *App) name(id string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.nameLocked(id)
}

func (a *App) nameLocked(id string) string {
	if n, ok := a.names[id]; ok && n != "" {
		return n
	}
	return id
}

func (a *App) remember(id, name string) {
	if id == "" || name == "" {
		return
	}
	a.mu.Lock()
	a.names[id] = name
	a.mu.Unlock()
}

// println serializes output from the prompt and the listener goroutine.
func (a *App) println(args ...any) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	fmt.Fprintln(a.out, args...)
}

func (a *App) printf(format string, args ...any) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	fmt.Fprintf(a.out, format, args...)
}

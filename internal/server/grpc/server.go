package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/whisperbox/internal/api"
	"github.com/dmitrijs2005/whisperbox/internal/logging"
	"github.com/dmitrijs2005/whisperbox/internal/server/listener"
	"github.com/dmitrijs2005/whisperbox/internal/server/models"
	"github.com/dmitrijs2005/whisperbox/internal/server/services"
	"google.golang.org/grpc"
)

type UserService interface {
	Register(ctx context.Context, req services.RegisterRequest) (*services.Session, error)
	Login(ctx context.Context, email, password string) (*services.Session, error)
	Authenticate(token string) (string, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	SearchUsers(ctx context.Context, callerID, query string, limit int) ([]*models.User, error)
}

type MessageService interface {
	Send(ctx context.Context, senderID, receiverID, plaintext string) (*services.SendResult, error)
	GetThread(ctx context.Context, owner, partner string) ([]services.ThreadEntry, error)
	GetPreviews(ctx context.Context, owner string) ([]services.Preview, error)
	CheckMirror(ctx context.Context, a, b string) error
}

// Runner is the poller behind one Listen stream.
type Runner interface {
	Run(ctx context.Context, cb func(listener.Delivery)) error
}

// ListenerFactory builds a Runner for owner starting at since.
type ListenerFactory func(owner string, since listener.Mark) Runner

type GRPCServer struct {
	address   string
	users     UserService
	messages  MessageService
	listeners ListenerFactory
	logger    logging.Logger
}

func NewGRPCServer(a string, l logging.Logger, us UserService, ms MessageService, lf ListenerFactory) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		users:     us,
		messages:  ms,
		listeners: lf,
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(s.accessTokenInterceptor),
		grpc.ChainStreamInterceptor(s.streamAccessTokenInterceptor),
	)
	api.RegisterMessengerServer(srv, &handler{s})
	return srv
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done, then stops
// gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	<-stopped
	return nil
}

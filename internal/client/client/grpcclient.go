package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/dmitrijs2005/whisperbox/internal/api"
	"github.com/dmitrijs2005/whisperbox/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/whisperbox/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	grpcmd "google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      api.MessengerClient

	mu          sync.RWMutex
	accessToken string
}

var _ Client = (*GRPCClient)(nil)

func withAccessToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	md, _ := grpcmd.FromOutgoingContext(ctx)
	md = md.Copy()
	md.Set(common.AccessTokenHeaderName, token)
	return grpcmd.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

func (s *GRPCClient) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = token
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	return invoker(withAccessToken(ctx, s.token()), method, req, reply, cc, opts...)
}

func (s *GRPCClient) streamAccessTokenInterceptor(
	ctx context.Context,
	desc *grpc.StreamDesc,
	cc *grpc.ClientConn,
	method string,
	streamer grpc.Streamer,
	opts ...grpc.CallOption,
) (grpc.ClientStream, error) {
	return streamer(withAccessToken(ctx, s.token()), desc, cc, method, opts...)
}

func NewGRPCClient(endpointURL string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL}

	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
		grpc.WithStreamInterceptor(c.streamAccessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpointURL, opts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.client = api.NewMessengerClient(conn)
	return c, nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) Register(ctx context.Context, req *api.RegisterRequest) (*api.AuthResponse, error) {
	resp, err := s.client.Register(ctx, req)
	if err != nil {
		return nil, mapError(err)
	}
	s.SetToken(resp.Token)
	return resp, nil
}

func (s *GRPCClient) Login(ctx context.Context, email, password string) (*api.AuthResponse, error) {
	resp, err := s.client.Login(ctx, &api.LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, mapError(err)
	}
	s.SetToken(resp.Token)
	return resp, nil
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	resp, err := s.client.Ping(ctx, &api.PingRequest{})
	if err != nil {
		return mapError(err)
	}
	if resp.Status != "OK" {
		return ErrUnavailable
	}
	return nil
}

func (s *GRPCClient) SearchUsers(ctx context.Context, query string) ([]api.User, error) {
	resp, err := s.client.SearchUsers(ctx, &api.SearchUsersRequest{Query: query})
	if err != nil {
		return nil, mapError(err)
	}
	return resp.Users, nil
}

func (s *GRPCClient) Send(ctx context.Context, receiverID, text string) (*api.SendResponse, error) {
	resp, err := s.client.Send(ctx, &api.SendRequest{ReceiverID: receiverID, Text: text})
	if err != nil {
		return nil, mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) GetThread(ctx context.Context, partnerID string) ([]api.Message, error) {
	resp, err := s.client.GetThread(ctx, &api.GetThreadRequest{PartnerID: partnerID})
	if err != nil {
		return nil, mapError(err)
	}
	return resp.Messages, nil
}

func (s *GRPCClient) GetPreviews(ctx context.Context) ([]api.Preview, error) {
	resp, err := s.client.GetPreviews(ctx, &api.GetPreviewsRequest{})
	if err != nil {
		return nil, mapError(err)
	}
	return resp.Previews, nil
}

func (s *GRPCClient) CheckMirror(ctx context.Context, partnerID string) error {
	resp, err := s.client.CheckMirror(ctx, &api.CheckMirrorRequest{PartnerID: partnerID})
	if err != nil {
		return mapError(err)
	}
	if !resp.Consistent {
		return ErrInconsistent
	}
	return nil
}

func (s *GRPCClient) Listen(ctx context.Context, since metadata.Cursor, cb func(api.Delivery)) error {
	stream, err := s.client.Listen(ctx, &api.ListenRequest{Since: since.LastSeen, SeenIDs: since.SeenIDs})
	if err != nil {
		return mapError(err)
	}
	for {
		d, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return mapError(err)
		}
		cb(*d)
	}
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	case codes.NotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, st.Message())
	case codes.AlreadyExists:
		return fmt.Errorf("%w: %s", ErrAlreadyExists, st.Message())
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", ErrInvalidArgument, st.Message())
	case codes.DataLoss:
		return fmt.Errorf("%w: %s", ErrInconsistent, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}

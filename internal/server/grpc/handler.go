package grpc

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/whisperbox/internal/api"
	"github.com/dmitrijs2005/whisperbox/internal/common"
	"github.com/dmitrijs2005/whisperbox/internal/server/listener"
	"github.com/dmitrijs2005/whisperbox/internal/server/services"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// handler implements api.MessengerServer on top of the services.
type handler struct {
	*GRPCServer
}

var _ api.MessengerServer = (*handler)(nil)

func caller(ctx context.Context) (string, error) {
	id, ok := UserIDFromContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "unauthenticated")
	}
	return id, nil
}

func authResponse(s *services.Session) *api.AuthResponse {
	return &api.AuthResponse{UserID: s.User.ID, Token: s.Token, DisplayName: s.User.DisplayName}
}

func (h *handler) Register(ctx context.Context, req *api.RegisterRequest) (*api.AuthResponse, error) {
	h.logger.Info(ctx, "Registration request")

	sess, err := h.users.Register(ctx, services.RegisterRequest{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		Surname:   req.Surname,
	})
	if err != nil {
		h.logger.Error(ctx, "registration failed", "error", err)
		return nil, toStatus(err)
	}

	h.logger.Info(ctx, "Registered", "user_id", sess.User.ID)
	return authResponse(sess), nil
}

func (h *handler) Login(ctx context.Context, req *api.LoginRequest) (*api.AuthResponse, error) {
	sess, err := h.users.Login(ctx, req.Email, req.Password)
	if err != nil {
		return nil, toStatus(err)
	}
	return authResponse(sess), nil
}

func (h *handler) Ping(ctx context.Context, req *api.PingRequest) (*api.PingResponse, error) {
	return &api.PingResponse{Status: "OK"}, nil
}

func (h *handler) SearchUsers(ctx context.Context, req *api.SearchUsersRequest) (*api.SearchUsersResponse, error) {
	me, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	found, err := h.users.SearchUsers(ctx, me, req.Query, req.Limit)
	if err != nil {
		return nil, toStatus(err)
	}

	resp := &api.SearchUsersResponse{Users: make([]api.User, 0, len(found))}
	for _, u := range found {
		resp.Users = append(resp.Users, api.User{
			ID:             u.ID,
			Email:          u.Email,
			DisplayName:    u.DisplayName,
			ProfileInitial: u.ProfileInitial,
			Status:         u.Status,
		})
	}
	return resp, nil
}

func (h *handler) Send(ctx context.Context, req *api.SendRequest) (*api.SendResponse, error) {
	me, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	// a blank receiver is rejected by the service before any lookup
	if strings.TrimSpace(req.ReceiverID) != "" {
		if _, err := h.users.GetUser(ctx, req.ReceiverID); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil, status.Error(codes.NotFound, "receiver not found")
			}
			return nil, toStatus(err)
		}
	}

	res, err := h.messages.Send(ctx, me, req.ReceiverID, req.Text)
	if err != nil {
		return nil, toStatus(err)
	}

	return &api.SendResponse{
		MessageID:       res.Message.ID.String(),
		Timestamp:       res.Message.Timestamp,
		Ciphertext:      res.Ciphertext,
		SpamScore:       res.SpamScore,
		Flagged:         res.Flagged,
		RoundTripMicros: res.RoundTrip.Microseconds(),
	}, nil
}

func (h *handler) GetThread(ctx context.Context, req *api.GetThreadRequest) (*api.GetThreadResponse, error) {
	me, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	entries, err := h.messages.GetThread(ctx, me, req.PartnerID)
	if err != nil {
		return nil, toStatus(err)
	}

	resp := &api.GetThreadResponse{Messages: make([]api.Message, 0, len(entries))}
	for _, e := range entries {
		resp.Messages = append(resp.Messages, toAPIMessage(e))
	}
	return resp, nil
}

func toAPIMessage(e services.ThreadEntry) api.Message {
	return api.Message{
		ID:         e.Message.ID.String(),
		SenderID:   e.Message.SenderID,
		ReceiverID: e.Message.ReceiverID,
		Timestamp:  e.Message.Timestamp,
		Text:       e.Plaintext,
		Decrypted:  e.Decrypted,
	}
}

func (h *handler) GetPreviews(ctx context.Context, req *api.GetPreviewsRequest) (*api.GetPreviewsResponse, error) {
	me, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	previews, err := h.messages.GetPreviews(ctx, me)
	if err != nil {
		return nil, toStatus(err)
	}

	resp := &api.GetPreviewsResponse{Previews: make([]api.Preview, 0, len(previews))}
	for _, p := range previews {
		out := api.Preview{
			PartnerID: p.PartnerID,
			MessageID: p.Message.ID.String(),
			SenderID:  p.Message.SenderID,
			Timestamp: p.Message.Timestamp,
			Snippet:   p.Snippet,
			Decrypted: p.Decrypted,
		}
		if u, err := h.users.GetUser(ctx, p.PartnerID); err == nil {
			out.PartnerName = u.DisplayName
		}
		resp.Previews = append(resp.Previews, out)
	}
	return resp, nil
}

func (h *handler) CheckMirror(ctx context.Context, req *api.CheckMirrorRequest) (*api.CheckMirrorResponse, error) {
	me, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	if err := h.messages.CheckMirror(ctx, me, req.PartnerID); err != nil {
		return nil, toStatus(err)
	}
	return &api.CheckMirrorResponse{Consistent: true}, nil
}

func (h *handler) Listen(req *api.ListenRequest, stream grpc.ServerStreamingServer[api.Delivery]) error {
	ctx := stream.Context()
	me, err := caller(ctx)
	if err != nil {
		return err
	}

	since := listener.Mark{LastSeen: req.Since}
	for _, raw := range req.SeenIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return status.Error(codes.InvalidArgument, "malformed seen id")
		}
		since.IDs = append(since.IDs, id)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var sendErr error
	err = h.listeners(me, since).Run(ctx, func(d listener.Delivery) {
		if sendErr != nil {
			return
		}
		sendErr = stream.Send(&api.Delivery{
			MessageID: d.MessageID.String(),
			SenderID:  d.SenderID,
			Text:      d.Plaintext,
			Timestamp: d.Timestamp,
		})
		if sendErr != nil {
			cancel()
		}
	})
	if sendErr != nil {
		h.logger.Debug(ctx, "listen stream closed", "user_id", me, "error", sendErr)
		return sendErr
	}
	return toStatus(err)
}

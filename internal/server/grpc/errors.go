package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/whisperbox/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus translates a service error into a gRPC status. Order matters: a
// partial mirror write also carries the storage sentinel.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	var code codes.Code
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	case errors.Is(err, common.ErrPartialMirrorWrite):
		code = codes.DataLoss
	case errors.Is(err, common.ErrNoRecipientSelected),
		errors.Is(err, common.ErrNoUserID),
		errors.Is(err, common.ErrInvalidInput):
		code = codes.InvalidArgument
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrInvalidCredentials):
		code = codes.Unauthenticated
	case errors.Is(err, common.ErrStoreUnavailable):
		code = codes.Unavailable
	case errors.Is(err, common.ErrorAlreadyExists):
		code = codes.AlreadyExists
	case errors.Is(err, common.ErrorNotFound):
		code = codes.NotFound
	default:
		return status.Error(codes.Internal, "internal error")
	}
	return status.Error(code, err.Error())
}

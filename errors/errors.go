package errors

import (
	stderrors "errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")
	ErrEmptyWords  = fmt.Errorf("no words have been found")

	// Snapshot loading
	ErrNetwork  = fmt.Errorf("snapshot fetch failed")
	ErrNotFound = fmt.Errorf("resource not found")
	ErrTimeout  = fmt.Errorf("snapshot fetch timed out")

	// Live subscription
	ErrIntegrity           = fmt.Errorf("malformed change event")
	ErrSubscription        = fmt.Errorf("subscription registration failed")
	ErrUnknownSubscription = fmt.Errorf("unknown subscription handle")

	// Rooms & chat
	ErrInvalidCommand    = fmt.Errorf("invalid command")
	ErrForbidden         = fmt.Errorf("operation not allowed for this user")
	ErrContentTooLong    = fmt.Errorf("content exceeds maximum length")
	ErrUnknownLanguage   = fmt.Errorf("unsupported language")
	ErrBinarySnippet     = fmt.Errorf("code snippet is not text")
	ErrRunnerUnavailable = fmt.Errorf("code runner queue is full")

	// Accounts
	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity requirements")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrUnauthenticated    = fmt.Errorf("authentication required")
)

// MapToGRPCError converts a domain error into a gRPC status error.
func MapToGRPCError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case stderrors.Is(err, ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case stderrors.Is(err, ErrInvalidCommand),
		stderrors.Is(err, ErrContentTooLong),
		stderrors.Is(err, ErrUnknownLanguage),
		stderrors.Is(err, ErrBinarySnippet),
		stderrors.Is(err, ErrInvalidPassword):
		return status.Error(codes.InvalidArgument, err.Error())
	case stderrors.Is(err, ErrForbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	case stderrors.Is(err, ErrInvalidCredentials), stderrors.Is(err, ErrUnauthenticated):
		return status.Error(codes.Unauthenticated, err.Error())
	case stderrors.Is(err, ErrUserAlreadyExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case stderrors.Is(err, ErrTimeout):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case stderrors.Is(err, ErrRunnerUnavailable):
		return status.Error(codes.ResourceExhausted, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

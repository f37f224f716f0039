package apperrors

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FromRPC classifies a gRPC call error into the apperrors taxonomy.
//
// A version conflict is structurally distinguished: the service rejects a
// stale mutation with codes.InvalidArgument and the fixed detail message
// VersionConflictMessage. Any other InvalidArgument stays a plain invalid
// argument and is never retried.
func FromRPC(resource, op string, err error) error {
	if err == nil {
		return nil
	}
	// Caller cancellation is not a remote failure, surface it unchanged.
	if errors.Is(err, context.Canceled) {
		return err
	}

	s, ok := status.FromError(err)
	if !ok {
		return Internal(op, err)
	}

	switch s.Code() {
	case codes.Canceled:
		return context.Canceled
	case codes.InvalidArgument:
		if s.Message() == VersionConflictMessage {
			return VersionConflict(resource, op)
		}
		return InvalidArgument(op, s.Message())
	case codes.NotFound:
		return NotFound(resource, op)
	case codes.Unavailable, codes.DeadlineExceeded, codes.Aborted:
		return Unavailable(op, err)
	default:
		return Internal(op, err)
	}
}

package firestore

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Kind is the repository-level meaning of a Firestore failure.
type Kind uint8

const (
	KindOther Kind = iota
	KindNotFound
	KindConflict
	// KindUnavailable covers transport, quota and credential failures. The
	// content store falls back to its local snapshot on these.
	KindUnavailable
)

// Error carries the operation name ("presskit_config.get") and the kind
// derived from the gRPC status.
type Error struct {
	Op   string
	Kind Kind
	err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.err.Error()
	}
	return e.Op + ": " + e.err.Error()
}

func (e *Error) Unwrap() error { return e.err }

func (e *Error) IsNotFound() bool { return e != nil && e.Kind == KindNotFound }
func (e *Error) IsConflict() bool { return e != nil && e.Kind == KindConflict }
func (e *Error) IsUnavailable() bool { return e != nil && e.Kind == KindUnavailable }

// WrapError classifies err for op. Context errors are returned as-is so
// callers can still match them with errors.Is; an already classified error
// keeps its original op.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var classified *Error
	if errors.As(err, &classified) {
		return err
	}
	code := status.Code(err)
	if code == codes.Canceled {
		return context.Canceled
	}
	return &Error{Op: op, Kind: kindOf(code), err: err}
}

func kindOf(code codes.Code) Kind {
	switch code {
	case codes.NotFound:
		return KindNotFound
	case codes.AlreadyExists, codes.Aborted, codes.FailedPrecondition:
		return KindConflict
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted,
		codes.Internal, codes.Unauthenticated, codes.PermissionDenied:
		return KindUnavailable
	default:
		return KindOther
	}
}

// NotFound reports a missing document found without a gRPC status, such as a
// query that returned no rows.
func NotFound(op string, err error) error {
	if err == nil {
		err = errors.New("document not found")
	}
	return &Error{Op: op, Kind: KindNotFound, err: err}
}

package gateway

import (
	"errors"
	"fmt"
)

// Error kinds. Every provider failure is reported as an *Error whose Kind is
// one of these, so callers branch with errors.Is.
var (
	// ErrConfiguration means a required credential is absent.
	ErrConfiguration = errors.New("credential not configured")
	// ErrUnauthorized means the provider rejected the credential (401/403).
	ErrUnauthorized = errors.New("credential rejected")
	// ErrRateLimited means the provider answered 429.
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrNotFound is the provider's explicit "no data" answer. It is a valid
	// outcome, not a failure.
	ErrNotFound = errors.New("no data")
	// ErrConnection covers timeouts, transport failures, open breakers and
	// unexpected statuses.
	ErrConnection = errors.New("connection failed")
)

// Error is a classified provider failure.
type Error struct {
	Provider string
	Kind     error
	Status   int
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Provider, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindOf returns the kind sentinel of err, or nil when err is not a gateway
// error.
func KindOf(err error) error {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Kind
	}
	return nil
}

func outcomeLabel(err error) string {
	switch KindOf(err) {
	case nil:
		if err != nil {
			return "connection"
		}
		return "ok"
	case ErrConfiguration:
		return "configuration"
	case ErrUnauthorized:
		return "unauthorized"
	case ErrRateLimited:
		return "rate_limited"
	case ErrNotFound:
		return "not_found"
	default:
		return "connection"
	}
}

// Package coreerr defines the error-kind taxonomy shared by the cache,
// rate limiter, fetchers, strategies and backtest engine.
//
// Every fallible core operation returns a plain error. Callers that need to
// branch on failure category use Is, not type assertions, matching the
// status-code-to-message wrapping idiom used throughout the original
// broker_binance.go/broker_bridge.go bridges (fmt.Errorf("bridge X %d: %s", ...)).
package coreerr

import (
	"errors"
	"fmt"
)

// Kind classifies why an operation failed.
type Kind int

const (
	// Internal marks an invariant violation. It should not normally reach a
	// caller; its presence indicates a bug in the core itself.
	Internal Kind = iota
	BadRequest
	ExternalService
	RateLimit
	Banned
	Parse
	NotFound
)

func (k Kind) String() string {
	switch k {
	case BadRequest:
		return "bad_request"
	case ExternalService:
		return "external_service"
	case RateLimit:
		return "rate_limit"
	case Banned:
		return "banned"
	case Parse:
		return "parse"
	case NotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Error is the concrete error type returned by core components.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an *Error around an underlying cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

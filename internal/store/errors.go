package store

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind classifies a backend failure
type ErrorKind int

const (
	// KindUnknown covers failures with no better classification
	KindUnknown ErrorKind = iota
	// KindNetworkUnavailable covers connectivity failures; retryable
	KindNetworkUnavailable
	// KindBackendRejected covers permission and validation rejections
	KindBackendRejected
	// KindNotFound covers reads of absent documents
	KindNotFound
	// KindTimeout covers deadline expirations; retryable
	KindTimeout
)

// String returns the kind's name
func (k ErrorKind) String() string {
	switch k {
	case KindNetworkUnavailable:
		return "network_unavailable"
	case KindBackendRejected:
		return "backend_rejected"
	case KindNotFound:
		return "not_found"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// FetchError is the typed error every backend access surfaces. Callers
// branch on Kind; transient kinds may be retried without data loss.
type FetchError struct {
	Kind ErrorKind
	Err  error
}

// Error implements the error interface
func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fetch error: %s", e.Kind)
	}
	return fmt.Sprintf("fetch error (%s): %v", e.Kind, e.Err)
}

// Unwrap returns the underlying error
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is transient
func (e *FetchError) Retryable() bool {
	return e.Kind == KindNetworkUnavailable || e.Kind == KindTimeout
}

// ErrSignInRequired marks a rejection caused by a missing user identity,
// so callers can show a sign-in prompt instead of a generic error.
var ErrSignInRequired = errors.New("sign-in required")

// NewFetchError wraps err with an explicit kind
func NewFetchError(kind ErrorKind, err error) *FetchError {
	return &FetchError{Kind: kind, Err: err}
}

// SignInRequired builds the distinct rejection for unauthenticated writes
func SignInRequired() *FetchError {
	return &FetchError{Kind: KindBackendRejected, Err: ErrSignInRequired}
}

// IsSignInRequired reports whether err carries the sign-in-required signal
func IsSignInRequired(err error) bool {
	return errors.Is(err, ErrSignInRequired)
}

// KindOf extracts the kind from err, defaulting to KindUnknown
func KindOf(err error) ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// classify maps a raw backend error onto the taxonomy
func classify(err error) *FetchError {
	if err == nil {
		return nil
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &FetchError{Kind: KindTimeout, Err: err}
	case errors.Is(err, context.Canceled):
		return &FetchError{Kind: KindTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return &FetchError{Kind: KindTimeout, Err: err}
		}
		return &FetchError{Kind: KindNetworkUnavailable, Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return &FetchError{Kind: KindNetworkUnavailable, Err: err}
	}
	return &FetchError{Kind: KindUnknown, Err: err}
}

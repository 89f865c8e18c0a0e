package api

import (
	"errors"
	"fmt"

	"github.com/quietharbor/harbormind/internal/feed"
	"github.com/quietharbor/harbormind/internal/store"
)

// Error represents an API error
type Error struct {
	Code    int
	Message string
}

// NewError creates a new API error
func NewError(code int, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("API error %d: %s", e.Code, e.Message)
}

// Application error codes, in the JSON-RPC server-error range
const (
	ErrTimeout            = -32001
	ErrNetworkUnavailable = -32002
	ErrBackendRejected    = -32003
	ErrNotFound           = -32004
	ErrSignInRequired     = -32005
	ErrSuperseded         = -32006
)

// mapError translates a core error into a JSON-RPC code and message
func mapError(err error) (int, string) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Code, apiErr.Message
	}
	if store.IsSignInRequired(err) {
		return ErrSignInRequired, "Sign-in required"
	}
	if errors.Is(err, feed.ErrSuperseded) {
		return ErrSuperseded, "Request superseded"
	}
	switch store.KindOf(err) {
	case store.KindTimeout:
		return ErrTimeout, "Backend timeout"
	case store.KindNetworkUnavailable:
		return ErrNetworkUnavailable, "Backend unavailable"
	case store.KindBackendRejected:
		return ErrBackendRejected, "Backend rejected request"
	case store.KindNotFound:
		return ErrNotFound, "Not found"
	default:
		return ErrInternalError, "Server error"
	}
}

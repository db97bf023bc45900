package client

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies an API client failure so callers can branch on the
// category exhaustively instead of probing error shapes at runtime.
type Kind int

const (
	// KindAPI means the server responded with a non-success HTTP status.
	KindAPI Kind = iota

	// KindTimeout means the request was cancelled by its deadline.
	KindTimeout

	// KindConnection means the request never produced an HTTP response.
	KindConnection

	// KindInternal means the client itself failed (marshaling, bad request).
	KindInternal
)

var kindNames = []string{"api", "timeout", "connection", "internal"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Error represents a failure encountered when communicating with the
// classtime account API.
// Status is only set for KindAPI errors.
type Error struct {
	Kind    Kind
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Kind == KindAPI {
		return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

// IsStatus reports whether the error is a server response with the given
// HTTP status.
func (e *Error) IsStatus(status int) bool {
	return e.Kind == KindAPI && e.Status == status
}

// As extracts a *Error from an error chain.
func As(err error) (*Error, bool) {
	var cerr *Error
	ok := errors.As(err, &cerr)
	return cerr, ok
}

// newAPIError derives the message from the server "error" field when the
// payload is a JSON object containing one, then the raw text body, then a
// synthesized "HTTP <status>" string.
func newAPIError(status int, payload any, raw []byte) *Error {
	message := fmt.Sprintf("HTTP %d", status)

	if obj, ok := payload.(map[string]any); ok {
		if serverMsg, ok := obj["error"].(string); ok && serverMsg != "" {
			message = serverMsg
		}
	} else if text := strings.TrimSpace(string(raw)); text != "" {
		message = text
	}

	return &Error{
		Kind:    KindAPI,
		Status:  status,
		Message: message,
	}
}

func newTimeoutError() *Error {
	return &Error{
		Kind:    KindTimeout,
		Message: "request timed out",
	}
}

func newConnectionError(err error) *Error {
	return &Error{
		Kind:    KindConnection,
		Message: fmt.Sprintf("network error: %v", err),
	}
}

// newInternalError wraps a client-side failure, with an explanation of what
// was being done when the error occurred
func newInternalError(err error, while string) *Error {
	return &Error{
		Kind:    KindInternal,
		Message: fmt.Sprintf("internal error: %v while %v", err, while),
	}
}

// IsUnauthorized reports whether err is a server 401 response.
func IsUnauthorized(err error) bool {
	cerr, ok := As(err)
	return ok && cerr.IsStatus(http.StatusUnauthorized)
}

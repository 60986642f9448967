package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNoSession is returned when a client is used without a credential.
var ErrNoSession = errors.New("api: no session token")

// StatusError is returned for non-2xx backend responses.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	// Message is the backend's "error" field, or its "msg" field.
	Message string
	// TokenError is set when the body has the token layer's {"msg": ...}
	// shape rather than an application {"error": ...}.
	TokenError bool
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("api: %s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Unauthorized reports whether the backend rejected the session. A 422 only
// counts when it came from token decoding; application 422s are validation
// failures.
func (e *StatusError) Unauthorized() bool {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return true
	case http.StatusUnprocessableEntity:
		return e.TokenError
	default:
		return false
	}
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

package client

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCredential is returned before any network contact when a
	// protected call is attempted without an active session.
	ErrMissingCredential = errors.New("missing credential: not logged in")
	ErrUnauthenticated   = errors.New("unauthenticated: session rejected by server")
	ErrForbidden         = errors.New("forbidden: insufficient role")
	ErrInvalidLogin      = errors.New("invalid username or password")
)

type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e APIError) Error() string {
	return fmt.Sprintf("api error: %s (%s, status %d)", e.Message, e.Code, e.Status)
}

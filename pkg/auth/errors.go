package auth

import (
	"errors"
	"fmt"
)

// ErrUserNotLoggedIn is returned by User when no authenticated identity
// exists. Callers should check IsLoggedIn first.
var ErrUserNotLoggedIn = errors.New("user not logged in")

// ErrServiceAccountMissing is returned when a directory operation is
// attempted before SetServiceAccount was called. In a correct deployment
// this is a configuration error and should be fatal at startup.
var ErrServiceAccountMissing = errors.New("service account not configured")

// LoginError reports that the identity provider denied or aborted the
// login attempt. It is terminal for the request: no session is
// constructed when it occurs.
type LoginError struct {
	// Code is the provider-reported error, e.g. "access_denied".
	Code string
}

func (e *LoginError) Error() string {
	return fmt.Sprintf("login rejected by identity provider: %s", e.Code)
}

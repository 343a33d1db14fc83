package session

import "errors"

// Fallback messages used when the backend gives no detail.
const (
	msgLoginFailed        = "Login failed"
	msgRegisterFailed     = "Registration failed"
	msgResetRequestFailed = "Could not send reset instructions"
	msgResetFailed        = "Password reset failed"
	msgVerifyFailed       = "Email verification failed"
	msgRefreshFailed      = "Session refresh failed"
)

// ErrNotSignedIn is returned by operations that need a session.
var ErrNotSignedIn = errors.New("not signed in")

// Error is a user-facing failure of a session operation. Message is
// either the backend's detail or a fixed fallback.
type Error struct {
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

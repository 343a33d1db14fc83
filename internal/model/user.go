package model

import "time"

// User is the identity returned by the auth endpoints.
type User struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	FullName   string `json:"full_name,omitempty"`
	IsVerified bool   `json:"is_verified,omitempty"`
	IsActive   bool   `json:"is_active,omitempty"`
}

// DisplayName returns the full name when set, otherwise the email.
func (u User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Email
}

// Session is the client's belief about the current authentication.
// User is only set when Token is set.
type Session struct {
	User      *User
	Token     string
	ExpiresAt time.Time
	Loading   bool
}

// Authenticated reports whether the session holds a token.
func (s Session) Authenticated() bool {
	return s.Token != ""
}

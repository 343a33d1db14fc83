package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/nhle/mailagent/internal/model"
)

// AuthResponse is returned by login, register and refresh.
type AuthResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	User        *model.User `json:"user,omitempty"`
	Message     string      `json:"message,omitempty"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name,omitempty"`
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Auth wraps the /auth endpoints.
type Auth struct {
	c Requester
}

// Login exchanges credentials for a token.
func (a *Auth) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	if err := a.c.Post(ctx, "/auth/login", credentials{Email: email, Password: password}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account and returns its first token.
func (a *Auth) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	var out AuthResponse
	if err := a.c.Post(ctx, "/auth/register", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the user owning the current token.
func (a *Auth) Me(ctx context.Context) (*model.User, error) {
	var out model.User
	if err := a.c.Get(ctx, "/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout invalidates the current token server-side.
func (a *Auth) Logout(ctx context.Context) error {
	return a.c.Post(ctx, "/auth/logout", nil, nil)
}

// Refresh issues a new token for the current one.
func (a *Auth) Refresh(ctx context.Context) (*AuthResponse, error) {
	var out AuthResponse
	if err := a.c.Post(ctx, "/auth/refresh", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyEmail confirms an address with the emailed token.
func (a *Auth) VerifyEmail(ctx context.Context, token string) (string, error) {
	q := url.Values{}
	q.Set("token", token)

	var out model.Message
	if err := a.c.Do(ctx, http.MethodPost, "/auth/verify-email", q, nil, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// ForgotPassword asks the backend to email a reset link.
func (a *Auth) ForgotPassword(ctx context.Context, email string) (string, error) {
	var out model.Message
	if err := a.c.Post(ctx, "/auth/forgot-password", map[string]string{"email": email}, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// ResetPassword sets a new password using a reset token.
func (a *Auth) ResetPassword(ctx context.Context, token, newPassword string) (string, error) {
	body := map[string]string{"token": token, "new_password": newPassword}

	var out model.Message
	if err := a.c.Post(ctx, "/auth/reset-password", body, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

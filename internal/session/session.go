// Package session holds the client's authentication state: who is signed
// in, the bearer token, and its persisted copy in local storage.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nhle/mailagent/internal/api"
	"github.com/nhle/mailagent/internal/apiclient"
	"github.com/nhle/mailagent/internal/event"
	"github.com/nhle/mailagent/internal/model"
	"github.com/nhle/mailagent/internal/store"
)

// EventKind describes why the session changed.
type EventKind int

const (
	// EventChanged covers loading flips and token refreshes.
	EventChanged EventKind = iota
	EventRestored
	EventLogin
	EventLogout
	// EventExpired follows a 401; the view should show the login screen.
	EventExpired
)

func (k EventKind) String() string {
	switch k {
	case EventRestored:
		return "restored"
	case EventLogin:
		return "login"
	case EventLogout:
		return "logout"
	case EventExpired:
		return "expired"
	default:
		return "changed"
	}
}

// Event is published to subscribers after every session change.
type Event struct {
	Kind    EventKind
	Session model.Session
}

// AuthAPI is the subset of the auth endpoints the store calls.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*api.AuthResponse, error)
	Register(ctx context.Context, req api.RegisterRequest) (*api.AuthResponse, error)
	Me(ctx context.Context) (*model.User, error)
	Logout(ctx context.Context) error
	Refresh(ctx context.Context) (*api.AuthResponse, error)
	VerifyEmail(ctx context.Context, token string) (string, error)
	ForgotPassword(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, token, newPassword string) (string, error)
}

// Store is the session store. All methods are safe for concurrent use;
// the mutex is never held across a network call.
type Store struct {
	auth   AuthAPI
	kv     store.KV
	logger *slog.Logger
	events *event.Broadcaster[Event]

	mu   sync.Mutex
	sess model.Session
	// gen increments on every identity change so that an in-flight
	// restore or refresh cannot overwrite a newer login or logout.
	gen uint64
}

// New creates an empty session store.
func New(auth AuthAPI, kv store.KV, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		auth:   auth,
		kv:     kv,
		logger: logger,
		events: event.NewBroadcaster[Event](16),
	}
}

// Attach makes c read its bearer token from the store and report 401s
// back to it.
func (s *Store) Attach(c *apiclient.Client) {
	c.SetTokenSource(s.Token)
	c.OnUnauthorized(s.HandleUnauthorized)
}

// Subscribe returns a channel of session events and an unsubscribe func.
// Every event is delivered in order, however slowly the channel is read.
func (s *Store) Subscribe() (<-chan Event, func()) {
	return s.events.SubscribeAll()
}

// Session returns a copy of the current session.
func (s *Store) Session() model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Token returns the current bearer token, or "".
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess.Token
}

// Identity returns a number naming the current signed-in session and
// whether anyone is signed in. It changes on login, restore, logout and
// expiry but not when Refresh swaps the token.
func (s *Store) Identity() (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen, s.sess.Token != ""
}

// Authenticated reports whether a token is held.
func (s *Store) Authenticated() bool {
	return s.Token() != ""
}

// ExpiresAt returns the exp claim of the current token, or the zero time
// when there is none or the token is not a JWT.
func (s *Store) ExpiresAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess.ExpiresAt
}

// Restore re-establishes the session from local storage. Any failure
// clears the persisted keys and leaves the session empty; it never
// publishes EventExpired.
func (s *Store) Restore(ctx context.Context) error {
	token, err := s.kv.Get(ctx, store.KeyToken)
	if errors.Is(err, store.ErrNotFound) || (err == nil && token == "") {
		return nil
	}
	if err != nil {
		s.mu.Lock()
		s.clearStorageLocked(ctx)
		s.mu.Unlock()
		return fmt.Errorf("reading persisted token: %w", err)
	}

	s.mu.Lock()
	gen := s.gen
	s.sess.Loading = true
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.events.Publish(Event{Kind: EventChanged, Session: snap})

	reqCtx := apiclient.WithoutUnauthorizedHook(apiclient.WithToken(ctx, token))
	user, err := s.auth.Me(reqCtx)

	s.mu.Lock()
	if s.gen != gen {
		// A login or logout happened meanwhile and owns the session now.
		s.mu.Unlock()
		return nil
	}
	s.gen++
	s.sess.Loading = false

	if err != nil {
		s.clearStorageLocked(ctx)
		s.sess = model.Session{}
		snap = s.snapshotLocked()
		s.mu.Unlock()

		s.logger.Info("stored session rejected", "error", err)
		s.events.Publish(Event{Kind: EventChanged, Session: snap})
		return fmt.Errorf("restoring session: %w", err)
	}

	s.sess = model.Session{
		User:      user,
		Token:     token,
		ExpiresAt: tokenExpiry(token),
	}
	s.persistUserLocked(ctx, user)
	snap = s.snapshotLocked()
	s.mu.Unlock()

	s.logger.Info("session restored", "user", user.Email)
	s.events.Publish(Event{Kind: EventRestored, Session: snap})
	return nil
}

// Login signs in with email and password. On failure the session is
// unchanged and the error carries the backend's detail or "Login failed".
func (s *Store) Login(ctx context.Context, email, password string) (*model.Session, error) {
	resp, err := s.auth.Login(anonymous(ctx), email, password)
	if err != nil {
		return nil, &Error{Op: "login", Message: apiclient.Message(err, msgLoginFailed), Err: err}
	}
	return s.establish(ctx, "login", resp, msgLoginFailed)
}

// Register creates an account and signs in with it. Failures carry the
// backend's detail or "Registration failed".
func (s *Store) Register(ctx context.Context, req api.RegisterRequest) (*model.Session, error) {
	resp, err := s.auth.Register(anonymous(ctx), req)
	if err != nil {
		return nil, &Error{Op: "register", Message: apiclient.Message(err, msgRegisterFailed), Err: err}
	}
	return s.establish(ctx, "register", resp, msgRegisterFailed)
}

// establish installs a freshly issued token and user.
func (s *Store) establish(
	ctx context.Context,
	op string,
	resp *api.AuthResponse,
	fallback string,
) (*model.Session, error) {
	if resp == nil || resp.AccessToken == "" || resp.User == nil {
		return nil, &Error{Op: op, Message: fallback}
	}

	s.mu.Lock()
	s.gen++
	s.sess = model.Session{
		User:      resp.User,
		Token:     resp.AccessToken,
		ExpiresAt: tokenExpiry(resp.AccessToken),
	}
	if err := s.kv.Set(ctx, store.KeyToken, resp.AccessToken); err != nil {
		s.logger.Warn("persisting token failed", "error", err)
	}
	s.persistUserLocked(ctx, resp.User)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.logger.Info("signed in", "op", op, "user", resp.User.Email)
	s.events.Publish(Event{Kind: EventLogin, Session: snap})
	return &snap, nil
}

// Logout clears the persisted keys and the session before telling the
// backend. The backend call is best effort; its failure is only logged.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	old := s.sess.Token
	s.gen++
	s.sess = model.Session{}
	s.clearStorageLocked(ctx)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.events.Publish(Event{Kind: EventLogout, Session: snap})

	if old == "" {
		return
	}
	reqCtx := apiclient.WithoutUnauthorizedHook(apiclient.WithToken(ctx, old))
	if err := s.auth.Logout(reqCtx); err != nil {
		s.logger.Warn("server logout failed", "error", err)
	}
}

// HandleUnauthorized is the HTTP client's 401 hook. It clears the session
// once per rejected token: a second 401 for the same token, or a 401 for
// a token that has since been replaced, is a no-op.
func (s *Store) HandleUnauthorized(token string) {
	s.mu.Lock()
	if s.sess.Token == "" || (token != "" && token != s.sess.Token) {
		s.mu.Unlock()
		return
	}
	s.gen++
	s.sess = model.Session{}
	s.clearStorageLocked(context.Background())
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.logger.Info("session expired")
	s.events.Publish(Event{Kind: EventExpired, Session: snap})
}

// Refresh exchanges the current token for a new one.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	old, gen := s.sess.Token, s.gen
	s.mu.Unlock()

	if old == "" {
		return ErrNotSignedIn
	}

	resp, err := s.auth.Refresh(apiclient.WithToken(ctx, old))
	if err != nil {
		return &Error{Op: "refresh", Message: apiclient.Message(err, msgRefreshFailed), Err: err}
	}
	if resp.AccessToken == "" {
		return &Error{Op: "refresh", Message: msgRefreshFailed}
	}

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return nil
	}
	s.sess.Token = resp.AccessToken
	s.sess.ExpiresAt = tokenExpiry(resp.AccessToken)
	if err := s.kv.Set(ctx, store.KeyToken, resp.AccessToken); err != nil {
		s.logger.Warn("persisting refreshed token failed", "error", err)
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.events.Publish(Event{Kind: EventChanged, Session: snap})
	return nil
}

// RequestPasswordReset asks the backend to email reset instructions.
func (s *Store) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	msg, err := s.auth.ForgotPassword(anonymous(ctx), email)
	if err != nil {
		return "", &Error{Op: "forgot-password", Message: apiclient.Message(err, msgResetRequestFailed), Err: err}
	}
	return msg, nil
}

// ResetPassword sets a new password using the emailed token.
func (s *Store) ResetPassword(ctx context.Context, token, newPassword string) (string, error) {
	msg, err := s.auth.ResetPassword(anonymous(ctx), token, newPassword)
	if err != nil {
		return "", &Error{Op: "reset-password", Message: apiclient.Message(err, msgResetFailed), Err: err}
	}
	return msg, nil
}

// VerifyEmail confirms the account's address.
func (s *Store) VerifyEmail(ctx context.Context, token string) (string, error) {
	msg, err := s.auth.VerifyEmail(anonymous(ctx), token)
	if err != nil {
		return "", &Error{Op: "verify-email", Message: apiclient.Message(err, msgVerifyFailed), Err: err}
	}
	return msg, nil
}

func (s *Store) snapshotLocked() model.Session {
	snap := s.sess
	if snap.User != nil {
		u := *snap.User
		snap.User = &u
	}
	return snap
}

func (s *Store) persistUserLocked(ctx context.Context, u *model.User) {
	data, err := json.Marshal(u)
	if err != nil {
		s.logger.Warn("encoding user failed", "error", err)
		return
	}
	if err := s.kv.Set(ctx, store.KeyUser, string(data)); err != nil {
		s.logger.Warn("persisting user failed", "error", err)
	}
}

func (s *Store) clearStorageLocked(ctx context.Context) {
	for _, key := range []string{store.KeyToken, store.KeyUser} {
		if err := s.kv.Delete(ctx, key); err != nil {
			s.logger.Warn("clearing persisted key failed", "key", key, "error", err)
		}
	}
}

// anonymous strips any bearer token from requests made with ctx, so a
// stale token is never sent with credentials.
func anonymous(ctx context.Context) context.Context {
	return apiclient.WithoutUnauthorizedHook(apiclient.WithToken(ctx, ""))
}

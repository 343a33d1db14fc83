// Package prompts caches the signed-in user's prompt templates.
package prompts

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/nhle/mailagent/internal/apiclient"
	"github.com/nhle/mailagent/internal/event"
	"github.com/nhle/mailagent/internal/model"
)

// ErrSignInRequired is returned by every operation while signed out.
var ErrSignInRequired = errors.New("Please sign in to manage prompts")

// Error is a user-facing failure of a store operation.
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

// PromptAPI is the subset of the prompt endpoints the store calls.
type PromptAPI interface {
	List(ctx context.Context) ([]model.Prompt, error)
	Create(ctx context.Context, in model.PromptInput) (*model.Prompt, error)
	Update(ctx context.Context, id string, in model.PromptInput) (*model.Prompt, error)
	Delete(ctx context.Context, id string) error
}

// IdentitySource names the current session; ok is false while signed
// out. The id must stay the same when only the token is refreshed.
type IdentitySource func() (id uint64, ok bool)

// Store holds the prompt collection for the current session. Results of
// calls started under one session are dropped if another session has
// begun by the time they return.
type Store struct {
	api      PromptAPI
	identity IdentitySource
	logger   *slog.Logger
	events   *event.Broadcaster[struct{}]

	mu      sync.Mutex
	prompts []model.Prompt
	owner   uint64
	owned   bool
	loading bool
	err     string
}

// New creates an empty prompt store.
func New(prompts PromptAPI, identity IdentitySource, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		api:      prompts,
		identity: identity,
		logger:   logger,
		events:   event.NewBroadcaster[struct{}](16),
	}
}

// Subscribe returns a channel that receives a value after every change.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	return s.events.Subscribe()
}

// Prompts returns a copy of the collection. Prompts fetched under a
// session that is no longer current are never returned.
func (s *Store) Prompts() []model.Prompt {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ownedByCurrent() {
		return nil
	}
	out := make([]model.Prompt, len(s.prompts))
	copy(out, s.prompts)
	return out
}

// Loading reports whether a list call is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the message of the last failed call, or "".
func (s *Store) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// List replaces the collection with the backend's.
func (s *Store) List(ctx context.Context) error {
	sid, ok := s.identity()
	if !ok {
		return ErrSignInRequired
	}

	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()
	s.notify()

	prompts, err := s.api.List(ctx)

	s.mu.Lock()
	s.loading = false
	if !s.current(sid) {
		s.mu.Unlock()
		s.notify()
		return nil
	}
	s.owner, s.owned = sid, true
	if err != nil {
		s.err = apiclient.Message(err, "Failed to load prompts")
	} else {
		s.err = ""
		s.prompts = append([]model.Prompt(nil), prompts...)
	}
	msg := s.err
	s.mu.Unlock()
	s.notify()

	if err != nil {
		return &Error{Op: "list", Message: msg, Err: err}
	}
	return nil
}

// Create adds a prompt and prepends it to the collection.
func (s *Store) Create(ctx context.Context, in model.PromptInput) (model.Prompt, error) {
	sid, ok := s.identity()
	if !ok {
		return model.Prompt{}, ErrSignInRequired
	}

	p, err := s.api.Create(ctx, in)
	if err != nil {
		return model.Prompt{}, s.fail("create", "Failed to create prompt", err)
	}

	s.reconcile(sid, func() {
		s.prompts = append([]model.Prompt{*p}, s.prompts...)
	})
	return *p, nil
}

// Update replaces a prompt in place.
func (s *Store) Update(ctx context.Context, id string, in model.PromptInput) (model.Prompt, error) {
	sid, ok := s.identity()
	if !ok {
		return model.Prompt{}, ErrSignInRequired
	}

	p, err := s.api.Update(ctx, id, in)
	if err != nil {
		return model.Prompt{}, s.fail("update", "Failed to update prompt", err)
	}

	s.reconcile(sid, func() {
		for i := range s.prompts {
			if s.prompts[i].ID == id {
				s.prompts[i] = *p
				return
			}
		}
	})
	return *p, nil
}

// Delete removes a prompt.
func (s *Store) Delete(ctx context.Context, id string) error {
	sid, ok := s.identity()
	if !ok {
		return ErrSignInRequired
	}

	if err := s.api.Delete(ctx, id); err != nil {
		return s.fail("delete", "Failed to delete prompt", err)
	}

	s.reconcile(sid, func() {
		kept := s.prompts[:0]
		for _, p := range s.prompts {
			if p.ID != id {
				kept = append(kept, p)
			}
		}
		s.prompts = kept
	})
	return nil
}

// Clear drops the collection. Called when the session ends.
func (s *Store) Clear() {
	s.mu.Lock()
	s.prompts = nil
	s.owner, s.owned = 0, false
	s.loading = false
	s.err = ""
	s.mu.Unlock()
	s.notify()
}

// reconcile applies fn only if the session that issued the call is
// still current.
func (s *Store) reconcile(id uint64, fn func()) {
	s.mu.Lock()
	if !s.current(id) {
		s.mu.Unlock()
		return
	}
	if !s.ownedByCurrent() {
		s.prompts = nil
	}
	s.owner, s.owned = id, true
	s.err = ""
	fn()
	s.mu.Unlock()
	s.notify()
}

func (s *Store) current(id uint64) bool {
	cur, ok := s.identity()
	return ok && cur == id
}

func (s *Store) ownedByCurrent() bool {
	return s.owned && s.current(s.owner)
}

func (s *Store) fail(op, fallback string, err error) error {
	msg := apiclient.Message(err, fallback)
	s.logger.Warn("prompt call failed", "op", op, "error", err)

	s.mu.Lock()
	s.err = msg
	s.mu.Unlock()
	s.notify()

	return &Error{Op: op, Message: msg, Err: err}
}

func (s *Store) notify() {
	s.events.Publish(struct{}{})
}

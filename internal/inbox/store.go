// Package inbox holds the email collection, the active filters and the
// current selection, and derives the filtered, sorted view the UI shows.
package inbox

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/nhle/mailagent/internal/api"
	"github.com/nhle/mailagent/internal/apiclient"
	"github.com/nhle/mailagent/internal/event"
	"github.com/nhle/mailagent/internal/model"
)

// ErrSignInRequired is returned by Sync when no one is signed in.
var ErrSignInRequired = errors.New("Please sign in to sync emails")

// Error is a user-facing failure of a store operation. Message is the
// backend's detail or a fixed fallback.
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

// Fallback messages used when the backend gives no detail.
const (
	msgLoadFailed     = "Failed to load emails"
	msgSyncFailed     = "Failed to sync emails"
	msgCategoryFailed = "Failed to update category"
	msgReplyFailed    = "Failed to generate reply"
	msgNotFound       = "Email not found"
)

// EmailAPI is the subset of the email endpoints the store calls.
type EmailAPI interface {
	MyInbox(ctx context.Context, q api.InboxQuery) ([]model.Email, error)
	LoadMock(ctx context.Context) ([]model.Email, error)
	Get(ctx context.Context, id string) (*model.Email, error)
	SetCategory(ctx context.Context, id string, category model.Category) error
	Sync(ctx context.Context) (*api.SyncResult, error)
	GenerateReply(ctx context.Context, id string) (*model.Reply, error)
}

// AuthState reports whether requests will carry a token.
type AuthState interface {
	Authenticated() bool
}

// Snapshot is a consistent copy of the store's state.
type Snapshot struct {
	Emails   []model.Email
	Filters  model.Filters
	Selected *model.Email
	Loading  bool
	Err      string
}

// Change is published after every state change.
type Change struct {
	Loading bool
	Err     string
}

// Store is the email store. Methods are safe for concurrent use and
// never hold the lock across a network call.
type Store struct {
	api    EmailAPI
	auth   AuthState
	logger *slog.Logger
	events *event.Broadcaster[Change]

	mu       sync.Mutex
	emails   []model.Email
	index    map[string]int
	filters  model.Filters
	selected *model.Email
	loading  bool
	err      string
	// seq is the number of the most recently started load. Responses
	// for older loads are discarded.
	seq uint64
}

// New creates an empty store with default filters.
func New(emails EmailAPI, auth AuthState, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		api:     emails,
		auth:    auth,
		logger:  logger,
		events:  event.NewBroadcaster[Change](16),
		index:   make(map[string]int),
		filters: model.DefaultFilters(),
	}
}

// Subscribe returns a channel of change notifications.
func (s *Store) Subscribe() (<-chan Change, func()) {
	return s.events.Subscribe()
}

// Snapshot returns a copy of the collection, filters and selection.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	emails := make([]model.Email, len(s.emails))
	for i, e := range s.emails {
		emails[i] = e.Clone()
	}
	return Snapshot{
		Emails:   emails,
		Filters:  s.filters,
		Selected: s.selectedLocked(),
		Loading:  s.loading,
		Err:      s.err,
	}
}

// View returns the derived view: the collection filtered and sorted by
// the current filters.
func (s *Store) View() []model.Email {
	s.mu.Lock()
	emails, f := s.emails, s.filters
	view := Apply(emails, f)
	s.mu.Unlock()
	return view
}

// Filters returns the active filters.
func (s *Store) Filters() model.Filters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters
}

// Loading reports whether a load is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the message of the last failed load, or "".
func (s *Store) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Load fetches emails for f and replaces the collection. Signed in, the
// backend filters the user's inbox; signed out, the backend's sample set
// is loaded instead. Only the most recently started load may apply its
// result.
func (s *Store) Load(ctx context.Context, f model.Filters) error {
	f = f.Normalized()
	if s.auth.Authenticated() {
		q := api.QueryFromFilters(f)
		return s.load(ctx, f, func(ctx context.Context) ([]model.Email, error) {
			return s.api.MyInbox(ctx, q)
		})
	}
	return s.load(ctx, f, s.api.LoadMock)
}

// Reload runs Load with the current filters.
func (s *Store) Reload(ctx context.Context) error {
	return s.Load(ctx, s.Filters())
}

// LoadSample loads the backend's sample inbox regardless of session.
func (s *Store) LoadSample(ctx context.Context) error {
	return s.load(ctx, s.Filters(), s.api.LoadMock)
}

func (s *Store) load(
	ctx context.Context,
	f model.Filters,
	fetch func(context.Context) ([]model.Email, error),
) error {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.filters = f
	s.loading = true
	s.err = ""
	s.mu.Unlock()
	s.notify()

	emails, err := fetch(ctx)

	s.mu.Lock()
	if seq != s.seq {
		s.mu.Unlock()
		s.logger.Debug("discarding stale inbox load", "seq", seq)
		return nil
	}
	s.loading = false
	if err != nil {
		s.replaceLocked(nil)
		s.err = apiclient.Message(err, msgLoadFailed)
	} else {
		s.replaceLocked(emails)
	}
	msg := s.err
	s.mu.Unlock()
	s.notify()

	if err != nil {
		s.logger.Warn("loading emails failed", "error", err)
		return &Error{Op: "load", Message: msg, Err: err}
	}
	return nil
}

// SetFilters replaces the filters as one change. Signed in, a change
// triggers exactly one reload; signed out, the view is recomputed
// locally. Unchanged filters do nothing.
func (s *Store) SetFilters(ctx context.Context, f model.Filters) error {
	f = f.Normalized()

	s.mu.Lock()
	if f == s.filters {
		s.mu.Unlock()
		return nil
	}
	s.filters = f
	s.mu.Unlock()
	s.notify()

	if s.auth.Authenticated() {
		return s.Load(ctx, f)
	}
	return nil
}

// UpdateFilters applies fn to a copy of the current filters and then
// behaves like SetFilters.
func (s *Store) UpdateFilters(ctx context.Context, fn func(*model.Filters)) error {
	f := s.Filters()
	fn(&f)
	return s.SetFilters(ctx, f)
}

// Sync asks the backend to pull new mail, then reloads. It returns the
// backend's message.
func (s *Store) Sync(ctx context.Context) (string, error) {
	if !s.auth.Authenticated() {
		return "", ErrSignInRequired
	}

	res, err := s.api.Sync(ctx)
	if err != nil {
		return "", &Error{Op: "sync", Message: apiclient.Message(err, msgSyncFailed), Err: err}
	}

	if err := s.Reload(ctx); err != nil {
		return res.Message, err
	}
	return res.Message, nil
}

// SetCategory re-classifies an email. Signed in, the backend is updated
// first; the local record changes whether or not that call succeeds and
// is not rolled back, so the returned error is the only trace of a
// failed update. Signed out, the change is local only.
func (s *Store) SetCategory(ctx context.Context, id string, category model.Category) error {
	var apiErr error
	if s.auth.Authenticated() {
		apiErr = s.api.SetCategory(ctx, id, category)
	}

	s.mutate(id, func(e *model.Email) { e.Category = category })

	if apiErr != nil {
		s.logger.Warn("updating category failed", "id", id, "error", apiErr)
		return &Error{Op: "set-category", Message: apiclient.Message(apiErr, msgCategoryFailed), Err: apiErr}
	}
	return nil
}

// ToggleArchived flips the archived flag locally. It reports whether the
// email exists.
func (s *Store) ToggleArchived(id string) bool {
	return s.mutate(id, func(e *model.Email) { e.IsArchived = !e.IsArchived })
}

// ToggleStar flips the starred flag locally. It reports whether the
// email exists.
func (s *Store) ToggleStar(id string) bool {
	return s.mutate(id, func(e *model.Email) { e.IsStarred = !e.IsStarred })
}

// MarkRead sets the read flag locally.
func (s *Store) MarkRead(id string) bool {
	return s.mutate(id, func(e *model.Email) { e.IsRead = true })
}

// mutate applies fn to the record and to the selection mirror in one
// critical section.
func (s *Store) mutate(id string, fn func(*model.Email)) bool {
	s.mu.Lock()
	i, ok := s.index[id]
	if ok {
		fn(&s.emails[i])
	}
	if s.selected != nil && s.selected.ID == id {
		fn(s.selected)
	}
	found := ok || (s.selected != nil && s.selected.ID == id)
	s.mu.Unlock()

	if found {
		s.notify()
	}
	return found
}

// Select makes the email with id the current selection.
func (s *Store) Select(id string) bool {
	s.mu.Lock()
	i, ok := s.index[id]
	if ok {
		e := s.emails[i].Clone()
		s.selected = &e
	}
	s.mu.Unlock()

	if ok {
		s.notify()
	}
	return ok
}

// Selected returns a copy of the selected email.
func (s *Store) Selected() (model.Email, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return model.Email{}, false
	}
	return s.selected.Clone(), true
}

// ClearSelection drops the selection.
func (s *Store) ClearSelection() {
	s.mu.Lock()
	s.selected = nil
	s.mu.Unlock()
	s.notify()
}

// Open fetches the latest copy of one email, merges it into the
// collection, marks it read locally and selects it. Signed out, only the
// local copy is used.
func (s *Store) Open(ctx context.Context, id string) (model.Email, error) {
	if !s.auth.Authenticated() {
		if !s.Select(id) {
			return model.Email{}, &Error{Op: "open", Message: msgNotFound}
		}
		s.MarkRead(id)
		sel, _ := s.Selected()
		return sel, nil
	}

	fresh, err := s.api.Get(ctx, id)
	if err != nil {
		e := &Error{Op: "open", Message: apiclient.Message(err, msgLoadFailed), Err: err}
		if !s.Select(id) {
			return model.Email{}, e
		}
		s.MarkRead(id)
		sel, _ := s.Selected()
		return sel, e
	}

	s.mu.Lock()
	fresh.IsRead = true
	if i, ok := s.index[id]; ok {
		s.emails[i] = fresh.Clone()
	} else {
		s.index[id] = len(s.emails)
		s.emails = append(s.emails, fresh.Clone())
	}
	e := fresh.Clone()
	s.selected = &e
	s.mu.Unlock()
	s.notify()

	return fresh.Clone(), nil
}

// GenerateReply asks the agent to draft a reply to one email.
func (s *Store) GenerateReply(ctx context.Context, id string) (*model.Reply, error) {
	reply, err := s.api.GenerateReply(ctx, id)
	if err != nil {
		return nil, &Error{Op: "generate-reply", Message: apiclient.Message(err, msgReplyFailed), Err: err}
	}
	return reply, nil
}

// Clear empties the collection and the selection.
func (s *Store) Clear() {
	s.mu.Lock()
	s.seq++
	s.loading = false
	s.err = ""
	s.selected = nil
	s.replaceLocked(nil)
	s.mu.Unlock()
	s.notify()
}

// replaceLocked swaps the collection, a later record with a repeated id
// replacing the earlier one, and refreshes the selection mirror.
func (s *Store) replaceLocked(emails []model.Email) {
	s.emails = make([]model.Email, 0, len(emails))
	s.index = make(map[string]int, len(emails))
	for _, e := range emails {
		if i, dup := s.index[e.ID]; dup {
			s.emails[i] = e.Clone()
			continue
		}
		s.index[e.ID] = len(s.emails)
		s.emails = append(s.emails, e.Clone())
	}

	if s.selected != nil {
		if i, ok := s.index[s.selected.ID]; ok {
			e := s.emails[i].Clone()
			s.selected = &e
		}
	}
}

func (s *Store) selectedLocked() *model.Email {
	if s.selected == nil {
		return nil
	}
	e := s.selected.Clone()
	return &e
}

func (s *Store) notify() {
	s.mu.Lock()
	c := Change{Loading: s.loading, Err: s.err}
	s.mu.Unlock()
	s.events.Publish(c)
}

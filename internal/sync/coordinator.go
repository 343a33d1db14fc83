package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/mailagent/internal/apiclient"
	"github.com/nhle/mailagent/internal/inbox"
	"github.com/nhle/mailagent/internal/session"
)

// SyncState represents the current state of the background sync.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncRunning
	SyncError
)

// SyncStatus holds the state of the last sync.
type SyncStatus struct {
	State    SyncState
	LastSync time.Time
	Error    error
}

// SyncResultMsg is a tea.Msg sent when a sync operation completes.
type SyncResultMsg struct {
	Message   string
	Error     error
	AuthError *AuthErrorMsg
}

// AuthErrorMsg is set on a SyncResultMsg when the backend rejected the
// session during sync.
type AuthErrorMsg struct {
	Message string
}

// SessionMsg is a tea.Msg sent after the coordinator has reacted to a
// session change.
type SessionMsg struct {
	Event session.Event
}

// ReloadedMsg is a tea.Msg sent when an inbox reload triggered by the
// coordinator finishes.
type ReloadedMsg struct {
	Error error
}

const (
	// syncTimeout is the maximum time allowed for one sync or reload.
	syncTimeout = 30 * time.Second

	// refreshWindow is how long before expiry the token is refreshed.
	refreshWindow = 5 * time.Minute

	// refreshCheckInterval is how often the token expiry is inspected.
	refreshCheckInterval = time.Minute
)

// Sessions is the subset of the session store the coordinator uses.
type Sessions interface {
	Subscribe() (<-chan session.Event, func())
	Authenticated() bool
	ExpiresAt() time.Time
	Refresh(ctx context.Context) error
}

// Inbox is the subset of the email store the coordinator drives.
type Inbox interface {
	Reload(ctx context.Context) error
	Sync(ctx context.Context) (string, error)
}

// Prompts is the subset of the prompt store the coordinator drives.
type Prompts interface {
	List(ctx context.Context) error
	Clear()
}

// Coordinator runs the re-fetch triggers: it reloads the inbox once per
// session change, lists or clears prompts as the session comes and goes,
// syncs on a ticker while signed in, and refreshes the token before it
// expires.
type Coordinator struct {
	sessions Sessions
	inbox    Inbox
	prompts  Prompts
	interval time.Duration
	logger   *slog.Logger

	msgCh     chan tea.Msg
	triggerCh chan struct{}
	stopCh    chan struct{}
	wg        gosync.WaitGroup

	mu      gosync.Mutex
	running bool
	status  SyncStatus
}

// New creates a Coordinator. A non-positive interval disables periodic
// sync; Refresh still works.
func New(
	sessions Sessions,
	in Inbox,
	prompts Prompts,
	interval time.Duration,
	logger *slog.Logger,
) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		sessions:  sessions,
		inbox:     in,
		prompts:   prompts,
		interval:  interval,
		logger:    logger,
		msgCh:     make(chan tea.Msg, 16),
		triggerCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
	}
}

// Start launches the background goroutines, performs the initial load
// and returns a command that waits for the first message.
func (c *Coordinator) Start() tea.Cmd {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = true
	c.mu.Unlock()

	events, unsubscribe := c.sessions.Subscribe()

	c.wg.Add(2)
	go c.watchSession(events, unsubscribe)
	go c.poll()

	return c.waitForMsg()
}

// Stop halts the background goroutines and waits for them to exit.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	close(c.stopCh)
	c.mu.Unlock()

	c.wg.Wait()
}

// Refresh triggers an immediate sync.
func (c *Coordinator) Refresh() tea.Cmd {
	select {
	case c.triggerCh <- struct{}{}:
	default:
		// A sync is already pending.
	}
	return nil
}

// Status returns the state of the last sync.
func (c *Coordinator) Status() SyncStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// WaitForNextResult returns a tea.Cmd that waits for the next message.
// Call it after handling each coordinator message to keep listening.
func (c *Coordinator) WaitForNextResult() tea.Cmd {
	return c.waitForMsg()
}

func (c *Coordinator) waitForMsg() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-c.msgCh:
			return msg
		case <-c.stopCh:
			return nil
		}
	}
}

// watchSession reloads on every identity change. Each event results in
// exactly one inbox load.
func (c *Coordinator) watchSession(events <-chan session.Event, unsubscribe func()) {
	defer c.wg.Done()
	defer unsubscribe()

	c.onSession(nil, c.sessions.Authenticated())

	for {
		select {
		case <-c.stopCh:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Kind {
			case session.EventRestored, session.EventLogin:
				c.onSession(&ev, true)
			case session.EventLogout, session.EventExpired:
				c.onSession(&ev, false)
			}
		}
	}
}

// onSession lists or clears prompts and reloads the inbox. ev is nil for
// the initial load at Start.
func (c *Coordinator) onSession(ev *session.Event, signedIn bool) {
	ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
	defer cancel()

	if signedIn {
		if err := c.prompts.List(ctx); err != nil {
			c.logger.Warn("listing prompts failed", "error", err)
		}
	} else {
		c.prompts.Clear()
	}

	err := c.inbox.Reload(ctx)
	if err != nil {
		c.logger.Warn("reloading inbox failed", "error", err)
	}

	if ev != nil {
		c.send(SessionMsg{Event: *ev})
	}
	c.send(ReloadedMsg{Error: err})
}

// poll runs the periodic sync and token refresh loop.
func (c *Coordinator) poll() {
	defer c.wg.Done()

	var tick <-chan time.Time
	if c.interval > 0 {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	refresh := time.NewTicker(refreshCheckInterval)
	defer refresh.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-tick:
			if c.sessions.Authenticated() {
				c.syncOnce()
			}
		case <-c.triggerCh:
			c.syncOnce()
		case <-refresh.C:
			c.refreshToken(time.Now())
		}
	}
}

// syncOnce performs a single sync and sends a SyncResultMsg.
func (c *Coordinator) syncOnce() {
	c.setStatus(SyncRunning, nil)

	ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
	defer cancel()

	msg, err := c.inbox.Sync(ctx)
	if err != nil {
		c.setStatus(SyncError, err)

		if apiclient.IsUnauthorized(err) {
			c.send(SyncResultMsg{
				Error:     err,
				AuthError: &AuthErrorMsg{Message: "Session expired. Please sign in again."},
			})
			return
		}

		if !errors.Is(err, inbox.ErrSignInRequired) {
			c.logger.Warn("sync failed", "error", err)
		}
		c.send(SyncResultMsg{Error: err})
		return
	}

	c.setStatus(SyncIdle, nil)
	c.send(SyncResultMsg{Message: msg})
}

// refreshToken renews the token when it expires within refreshWindow.
func (c *Coordinator) refreshToken(now time.Time) {
	exp := c.sessions.ExpiresAt()
	if exp.IsZero() || exp.Sub(now) > refreshWindow {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
	defer cancel()

	if err := c.sessions.Refresh(ctx); err != nil {
		c.logger.Warn("refreshing token failed", "error", err)
	}
}

// setStatus updates the sync status.
func (c *Coordinator) setStatus(state SyncState, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.status.State = state
	c.status.Error = err
	if state == SyncIdle && err == nil {
		c.status.LastSync = time.Now()
	}
}

// send delivers msg without blocking.
func (c *Coordinator) send(msg tea.Msg) {
	select {
	case c.msgCh <- msg:
	default:
		c.logger.Debug("dropping coordinator message", "type", fmt.Sprintf("%T", msg))
	}
}

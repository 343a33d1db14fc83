package sync

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mailagent/internal/apiclient"
	"github.com/nhle/mailagent/internal/event"
	"github.com/nhle/mailagent/internal/inbox"
	"github.com/nhle/mailagent/internal/session"
)

type fakeSessions struct {
	events    *event.Broadcaster[session.Event]
	signedIn  atomic.Bool
	expiresAt atomic.Value
	refreshes atomic.Int32
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{events: event.NewBroadcaster[session.Event](8)}
}

func (f *fakeSessions) Subscribe() (<-chan session.Event, func()) { return f.events.SubscribeAll() }
func (f *fakeSessions) Authenticated() bool                       { return f.signedIn.Load() }

func (f *fakeSessions) ExpiresAt() time.Time {
	t, _ := f.expiresAt.Load().(time.Time)
	return t
}

func (f *fakeSessions) Refresh(context.Context) error {
	f.refreshes.Add(1)
	return nil
}

type fakeInbox struct {
	reloads atomic.Int32
	syncs   atomic.Int32
	syncErr error
}

func (f *fakeInbox) Reload(context.Context) error {
	f.reloads.Add(1)
	return nil
}

func (f *fakeInbox) Sync(context.Context) (string, error) {
	f.syncs.Add(1)
	if f.syncErr != nil {
		return "", f.syncErr
	}
	return "Synced 2 emails", nil
}

type fakePrompts struct {
	lists  atomic.Int32
	clears atomic.Int32
}

func (f *fakePrompts) List(context.Context) error {
	f.lists.Add(1)
	return nil
}

func (f *fakePrompts) Clear() { f.clears.Add(1) }

func next(t *testing.T, c *Coordinator) any {
	t.Helper()
	done := make(chan any, 1)
	go func() { done <- c.WaitForNextResult()() }()
	select {
	case msg := <-done:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for coordinator message")
		return nil
	}
}

func TestCoordinatorReloadsOncePerSessionChange(t *testing.T) {
	sessions := newFakeSessions()
	in := &fakeInbox{}
	prompts := &fakePrompts{}

	c := New(sessions, in, prompts, 0, nil)
	require.NotNil(t, c.Start())
	defer c.Stop()

	assert.IsType(t, ReloadedMsg{}, next(t, c))
	assert.Equal(t, int32(1), in.reloads.Load())
	assert.Equal(t, int32(1), prompts.clears.Load())

	sessions.signedIn.Store(true)
	sessions.events.Publish(session.Event{Kind: session.EventLogin})

	msg := next(t, c)
	require.IsType(t, SessionMsg{}, msg)
	assert.Equal(t, session.EventLogin, msg.(SessionMsg).Event.Kind)
	assert.IsType(t, ReloadedMsg{}, next(t, c))
	assert.Equal(t, int32(2), in.reloads.Load())
	assert.Equal(t, int32(1), prompts.lists.Load())

	sessions.signedIn.Store(false)
	sessions.events.Publish(session.Event{Kind: session.EventExpired})

	msg = next(t, c)
	require.IsType(t, SessionMsg{}, msg)
	assert.Equal(t, session.EventExpired, msg.(SessionMsg).Event.Kind)
	next(t, c)
	assert.Equal(t, int32(3), in.reloads.Load())
	assert.Equal(t, int32(2), prompts.clears.Load())
}

func TestCoordinatorIgnoresTokenRefresh(t *testing.T) {
	sessions := newFakeSessions()
	sessions.signedIn.Store(true)
	in := &fakeInbox{}
	prompts := &fakePrompts{}

	c := New(sessions, in, prompts, 0, nil)
	c.Start()
	defer c.Stop()
	next(t, c)
	require.Equal(t, int32(1), in.reloads.Load())
	require.Equal(t, int32(1), prompts.lists.Load())

	sessions.events.Publish(session.Event{Kind: session.EventChanged})
	sessions.events.Publish(session.Event{Kind: session.EventChanged})
	sessions.signedIn.Store(false)
	sessions.events.Publish(session.Event{Kind: session.EventLogout})

	// Events arrive in order, so the first message is the logout.
	msg := next(t, c)
	require.IsType(t, SessionMsg{}, msg)
	assert.Equal(t, session.EventLogout, msg.(SessionMsg).Event.Kind)
	next(t, c)

	assert.Equal(t, int32(2), in.reloads.Load())
	assert.Equal(t, int32(1), prompts.lists.Load())
	assert.Equal(t, int32(1), prompts.clears.Load())
}

func TestCoordinatorRefreshSyncs(t *testing.T) {
	sessions := newFakeSessions()
	sessions.signedIn.Store(true)
	in := &fakeInbox{}

	c := New(sessions, in, &fakePrompts{}, 0, nil)
	c.Start()
	defer c.Stop()
	next(t, c)

	c.Refresh()
	msg := next(t, c)
	require.IsType(t, SyncResultMsg{}, msg)
	assert.Equal(t, "Synced 2 emails", msg.(SyncResultMsg).Message)
	assert.Equal(t, SyncIdle, c.Status().State)
	assert.False(t, c.Status().LastSync.IsZero())
}

func TestCoordinatorFlagsAuthErrors(t *testing.T) {
	sessions := newFakeSessions()
	in := &fakeInbox{syncErr: &apiclient.Error{Kind: apiclient.KindUnauthorized, StatusCode: 401, Message: "authentication required"}}

	c := New(sessions, in, &fakePrompts{}, 0, nil)
	c.Start()
	defer c.Stop()
	next(t, c)

	c.Refresh()
	msg := next(t, c).(SyncResultMsg)
	require.NotNil(t, msg.AuthError)
	assert.Equal(t, SyncError, c.Status().State)
}

func TestCoordinatorSignedOutSync(t *testing.T) {
	in := &fakeInbox{syncErr: inbox.ErrSignInRequired}

	c := New(newFakeSessions(), in, &fakePrompts{}, 0, nil)
	c.Start()
	defer c.Stop()
	next(t, c)

	c.Refresh()
	msg := next(t, c).(SyncResultMsg)
	assert.ErrorIs(t, msg.Error, inbox.ErrSignInRequired)
	assert.Nil(t, msg.AuthError)
}

func TestRefreshTokenWindow(t *testing.T) {
	sessions := newFakeSessions()
	c := New(sessions, &fakeInbox{}, &fakePrompts{}, 0, nil)
	now := time.Now()

	c.refreshToken(now)
	assert.Equal(t, int32(0), sessions.refreshes.Load())

	sessions.expiresAt.Store(now.Add(time.Hour))
	c.refreshToken(now)
	assert.Equal(t, int32(0), sessions.refreshes.Load())

	sessions.expiresAt.Store(now.Add(time.Minute))
	c.refreshToken(now)
	assert.Equal(t, int32(1), sessions.refreshes.Load())
}

func TestRefreshTokenLeavesDataAlone(t *testing.T) {
	sessions := newFakeSessions()
	sessions.signedIn.Store(true)
	in := &fakeInbox{}
	prompts := &fakePrompts{}

	c := New(sessions, in, prompts, 0, nil)
	now := time.Now()
	sessions.expiresAt.Store(now.Add(time.Minute))

	c.refreshToken(now)
	assert.Equal(t, int32(1), sessions.refreshes.Load())
	assert.Zero(t, in.reloads.Load())
	assert.Zero(t, in.syncs.Load())
	assert.Zero(t, prompts.lists.Load())
	assert.Zero(t, prompts.clears.Load())
}

package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mailagent/internal/model"
	"github.com/nhle/mailagent/internal/session"
	"github.com/nhle/mailagent/internal/store"
	appsync "github.com/nhle/mailagent/internal/sync"
	emailview "github.com/nhle/mailagent/internal/ui/email"
	"github.com/nhle/mailagent/internal/ui/login"
	"github.com/nhle/mailagent/tests/testutil"
)

func sampleEmails() []model.Email {
	now := time.Now().UTC()
	return []model.Email{
		{
			ID:        "e1",
			Subject:   "Quarterly report",
			Sender:    "Grace Hopper <grace@example.com>",
			Body:      "Please review the attached numbers by Friday.",
			Category:  model.CategoryToDo,
			Timestamp: model.NewTimestamp(now),
		},
		{
			ID:        "e2",
			Subject:   "Weekly digest",
			Sender:    "news@example.com",
			Category:  model.CategoryNewsletter,
			Timestamp: model.NewTimestamp(now.Add(-time.Hour)),
		},
	}
}

func newTestServices(t *testing.T, b *testutil.Backend, kv store.KV) *Services {
	t.Helper()
	cfg := model.DefaultAppConfig()
	cfg.API.BaseURL = b.BaseURL()
	cfg.Export.Dir = t.TempDir()
	return NewServices(cfg, kv, nil)
}

func signIn(t *testing.T, svc *Services) {
	t.Helper()
	_, err := svc.Session.Login(context.Background(), "ada@example.com", "password123")
	require.NoError(t, err)
}

func TestOpenStorage(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		kv, closeFn, err := OpenStorage(model.StorageConfig{Backend: model.StorageMemory})
		require.NoError(t, err)
		assert.IsType(t, &store.MemoryStore{}, kv)
		assert.NoError(t, closeFn())
	})

	t.Run("sqlite creates the directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "local.db")
		kv, closeFn, err := OpenStorage(model.StorageConfig{Backend: model.StorageSQLite, Path: path})
		require.NoError(t, err)
		t.Cleanup(func() { _ = closeFn() })

		require.NoError(t, kv.Set(context.Background(), store.KeyToken, "abc"))
		_, statErr := os.Stat(path)
		assert.NoError(t, statErr)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, closeFn, err := OpenStorage(model.StorageConfig{Backend: "cookie"})
		assert.Error(t, err)
		assert.NotNil(t, closeFn)
	})
}

func TestNewLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "mailagent.log")
	logger, closeFn, err := NewLogger(model.LogConfig{Level: "debug", File: path})
	require.NoError(t, err)

	logger.Debug("hello", "user", "ada")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "msg=hello")
	assert.Contains(t, string(data), "user=ada")

	_, _, err = NewLogger(model.LogConfig{Level: "chatty"})
	assert.Error(t, err)
}

func TestServicesPersistSessionAcrossRestarts(t *testing.T) {
	b := testutil.NewBackend(t, sampleEmails()...)
	kv := testutil.NewTestStore(t)

	svc := newTestServices(t, b, kv)
	signIn(t, svc)
	require.NoError(t, svc.Inbox.Reload(context.Background()))
	assert.Len(t, svc.Inbox.View(), 2)

	token, err := kv.Get(context.Background(), store.KeyToken)
	require.NoError(t, err)
	assert.Equal(t, testutil.Token, token)

	restarted := newTestServices(t, b, kv)
	require.NoError(t, restarted.Session.Restore(context.Background()))
	assert.True(t, restarted.Session.Authenticated())
	assert.Equal(t, "Ada Lovelace", restarted.Session.Session().User.DisplayName())
}

func TestServicesRefreshKeepsSessionData(t *testing.T) {
	b := testutil.NewBackend(t, sampleEmails()...)
	kv := store.NewMemoryStore()
	ctx := context.Background()

	svc := newTestServices(t, b, kv)
	signIn(t, svc)
	for _, name := range []string{"Categorize", "Reply"} {
		_, err := svc.Prompts.Create(ctx, model.PromptInput{Name: name, Template: "{{.Body}}", Category: "general", IsActive: true})
		require.NoError(t, err)
	}
	require.NoError(t, svc.Prompts.List(ctx))
	require.NoError(t, svc.Inbox.Reload(ctx))
	require.Len(t, svc.Prompts.Prompts(), 2)

	require.NoError(t, svc.Session.Refresh(ctx))
	assert.Equal(t, testutil.RefreshedToken, svc.Session.Token())
	assert.True(t, svc.Session.Authenticated())

	assert.Len(t, svc.Prompts.Prompts(), 2)
	assert.Len(t, svc.Inbox.View(), 2)

	require.NoError(t, svc.Prompts.List(ctx))
	assert.Len(t, svc.Prompts.Prompts(), 2)

	token, err := kv.Get(ctx, store.KeyToken)
	require.NoError(t, err)
	assert.Equal(t, testutil.RefreshedToken, token)
}

func TestServicesRestoreSeededSession(t *testing.T) {
	b := testutil.NewBackend(t)
	ctx := context.Background()

	t.Run("valid token signs in", func(t *testing.T) {
		kv := store.NewMemoryStore()
		testutil.SeedSession(t, kv, testutil.Token, b.User)

		svc := newTestServices(t, b, kv)
		require.NoError(t, svc.Session.Restore(ctx))
		assert.True(t, svc.Session.Authenticated())
		assert.Equal(t, ViewInbox, New(svc).currentView)
	})

	t.Run("rejected token clears storage", func(t *testing.T) {
		kv := store.NewMemoryStore()
		testutil.SeedSession(t, kv, "revoked", b.User)

		svc := newTestServices(t, b, kv)
		require.Error(t, svc.Session.Restore(ctx))
		assert.False(t, svc.Session.Authenticated())

		_, err := kv.Get(ctx, store.KeyToken)
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.Equal(t, ViewLogin, New(svc).currentView)
	})
}

func TestModelStartView(t *testing.T) {
	b := testutil.NewBackend(t)

	signedOut := New(newTestServices(t, b, store.NewMemoryStore()))
	assert.Equal(t, ViewLogin, signedOut.currentView)

	svc := newTestServices(t, b, store.NewMemoryStore())
	signIn(t, svc)
	signedIn := New(svc)
	assert.Equal(t, ViewInbox, signedIn.currentView)
	assert.Contains(t, signedIn.headerTitle(), "Ada Lovelace")
}

func TestModelSessionEvents(t *testing.T) {
	b := testutil.NewBackend(t)
	svc := newTestServices(t, b, store.NewMemoryStore())
	m := New(svc)

	next, _ := m.Update(appsync.SessionMsg{Event: session.Event{Kind: session.EventLogin}})
	m = next.(Model)
	assert.Equal(t, ViewInbox, m.currentView)

	next, _ = m.Update(appsync.SessionMsg{Event: session.Event{Kind: session.EventExpired}})
	m = next.(Model)
	assert.Equal(t, ViewLogin, m.currentView)
	assert.False(t, m.sample)
}

func TestModelSampleInbox(t *testing.T) {
	b := testutil.NewBackend(t, sampleEmails()...)
	svc := newTestServices(t, b, store.NewMemoryStore())
	m := New(svc)

	msg := m.submitLogin(login.SubmitMsg{Mode: login.ModeSample})()
	loaded, ok := msg.(sampleLoadedMsg)
	require.True(t, ok)
	require.NoError(t, loaded.err)

	next, _ := m.Update(loaded)
	m = next.(Model)
	assert.Equal(t, ViewInbox, m.currentView)
	assert.True(t, m.sample)
	assert.Contains(t, m.headerTitle(), "sample")
	assert.Len(t, svc.Inbox.View(), 2)
	assert.Zero(t, b.Calls("GET /api/v1/emails/my-inbox"))

	cmd := m.signOut()
	assert.NotNil(t, cmd)
	assert.Equal(t, ViewLogin, m.currentView)
	assert.Empty(t, svc.Inbox.View())
}

func TestModelOpenEmailFocusesAgent(t *testing.T) {
	b := testutil.NewBackend(t, sampleEmails()...)
	svc := newTestServices(t, b, store.NewMemoryStore())
	signIn(t, svc)
	require.NoError(t, svc.Inbox.Reload(context.Background()))
	m := New(svc)

	loaded, ok := m.openEmail("e1")().(emailview.LoadedMsg)
	require.True(t, ok)
	require.NoError(t, loaded.Err)
	assert.True(t, loaded.Email.IsRead)

	focused, ok := svc.Assistant.Focused()
	require.True(t, ok)
	assert.Equal(t, "e1", focused.ID)
}

func TestModelExportReply(t *testing.T) {
	b := testutil.NewBackend(t, sampleEmails()...)
	svc := newTestServices(t, b, store.NewMemoryStore())
	signIn(t, svc)
	m := New(svc)

	e := sampleEmails()[0]
	notice, ok := m.exportReply(e, "Thanks, will do.")().(emailview.NoticeMsg)
	require.True(t, ok)
	require.False(t, notice.Err, notice.Text)

	drafts := b.Drafts()
	require.Len(t, drafts, 1)
	assert.Equal(t, "Re: Quarterly report", drafts[0].Subject)

	path := filepath.Join(svc.Config.Export.Dir, "draft-d1.eml")
	assert.True(t, strings.HasSuffix(notice.Text, path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Thanks, will do.")
	assert.Contains(t, string(data), "ada@example.com")
}

func TestModelExportReplySignedOutSkipsBackend(t *testing.T) {
	b := testutil.NewBackend(t)
	svc := newTestServices(t, b, store.NewMemoryStore())
	m := New(svc)

	notice, ok := m.exportReply(sampleEmails()[1], "Unsubscribe me")().(emailview.NoticeMsg)
	require.True(t, ok)
	require.False(t, notice.Err, notice.Text)
	assert.Empty(t, b.Drafts())

	_, err := os.Stat(filepath.Join(svc.Config.Export.Dir, "reply-e2.eml"))
	assert.NoError(t, err)
}

func TestModelCommands(t *testing.T) {
	b := testutil.NewBackend(t)
	svc := newTestServices(t, b, store.NewMemoryStore())
	m := New(svc)

	assert.Nil(t, m.executeCommand("bogus"))
	assert.Contains(t, m.notice, "unknown command")
	assert.True(t, m.noticeErr)

	assert.Nil(t, m.executeCommand("stats"))
	assert.Equal(t, "Please sign in first", m.notice)

	health, ok := m.executeCommand("health")().(noticeMsg)
	require.True(t, ok)
	assert.Equal(t, "backend healthy", health.text)
}

func TestModelGlobalKeys(t *testing.T) {
	b := testutil.NewBackend(t)
	svc := newTestServices(t, b, store.NewMemoryStore())
	signIn(t, svc)
	m := New(svc)

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("?")})
	m = next.(Model)
	assert.Equal(t, ViewHelp, m.currentView)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(Model)
	assert.Equal(t, ViewInbox, m.currentView)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")})
	m = next.(Model)
	assert.Equal(t, ViewPrompts, m.currentView)
}

func TestDraftFileName(t *testing.T) {
	assert.Equal(t, "draft-42.eml", draftFileName(model.Draft{ID: "42", EmailID: "e1"}))
	assert.Equal(t, "reply-e1.eml", draftFileName(model.Draft{EmailID: "e1"}))
	assert.Equal(t, "x.eml", draftFileName(model.Draft{ID: "../x"}))
}

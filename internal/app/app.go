package app

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/mailagent/internal/keys"
	"github.com/nhle/mailagent/internal/session"
	appsync "github.com/nhle/mailagent/internal/sync"
	"github.com/nhle/mailagent/internal/theme"
	"github.com/nhle/mailagent/internal/ui"
	"github.com/nhle/mailagent/internal/ui/accounts"
	aiview "github.com/nhle/mailagent/internal/ui/ai"
	"github.com/nhle/mailagent/internal/ui/command"
	emailview "github.com/nhle/mailagent/internal/ui/email"
	helpview "github.com/nhle/mailagent/internal/ui/help"
	inboxview "github.com/nhle/mailagent/internal/ui/inbox"
	"github.com/nhle/mailagent/internal/ui/login"
	"github.com/nhle/mailagent/internal/ui/promptform"
	promptsview "github.com/nhle/mailagent/internal/ui/prompts"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewLogin ViewState = iota
	ViewInbox
	ViewEmail
	ViewPrompts
	ViewPromptForm
	ViewAI
	ViewAccounts
	ViewHelp
	ViewCommand
)

// msgSessionExpired is shown on the sign-in screen after a 401.
const msgSessionExpired = "Your session has expired. Please sign in again."

// Model is the root Bubble Tea model that manages view routing, layout
// and the shared services.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	svc          *Services
	keys         *keys.KeyMap

	login       login.Model
	inbox       inboxview.Model
	email       emailview.Model
	prompts     promptsview.Model
	promptForm  promptform.Model
	aiView      aiview.Model
	accounts    accounts.Model
	helpView    helpview.Model
	commandView command.Model

	ready     bool
	sample    bool
	notice    string
	noticeErr bool
	initCmd   tea.Cmd
}

// New creates the root model. The session should already be restored so
// that a signed-in user starts on the inbox.
func New(svc *Services) Model {
	k := keys.DefaultKeyMap()

	m := Model{
		currentView: ViewLogin,
		svc:         svc,
		keys:        k,
		login:       login.New(80, 24),
		inbox:       inboxview.New(svc.Inbox, k, 80, 24),
		email:       emailview.New(k, 80, 24),
		prompts:     promptsview.New(svc.Prompts, k, 80, 24),
		promptForm:  promptform.New(80, 24),
		aiView:      aiview.New(svc.Assistant, k, 80, 24),
		accounts:    accounts.New(svc.API.Accounts, svc.API.Health, k, 80, 24),
		helpView:    helpview.New(k, 80, 24),
		commandView: command.New(80, 24),
	}

	if svc.Session.Authenticated() {
		m.currentView = ViewInbox
	} else {
		m.aiView.SetSignedOut(true)
	}
	m.initCmd = m.login.Start()
	return m
}

// Init starts the coordinator, which performs the initial inbox load.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.initCmd,
		m.inbox.Init(),
		m.svc.Coordinator.Start(),
	)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w := m.layout.ContentWidth()
		h := m.layout.ContentHeight()
		m.login.SetSize(w, h)
		m.inbox.SetSize(w, h)
		m.email.SetSize(w, h)
		m.prompts.SetSize(w, h)
		m.promptForm.SetSize(w, h)
		m.aiView.SetSize(w, h)
		m.accounts.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.commandView.SetSize(w, h)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	// --- Coordinator ---

	case appsync.SessionMsg:
		cmd := m.handleSession(msg.Event)
		return m, tea.Batch(cmd, m.svc.Coordinator.WaitForNextResult())

	case appsync.ReloadedMsg:
		var inboxCmd, promptsCmd tea.Cmd
		m.inbox, inboxCmd = m.inbox.Update(inboxview.ChangedMsg{Err: msg.Error})
		m.prompts, promptsCmd = m.prompts.Update(promptsview.ChangedMsg{})
		return m, tea.Batch(inboxCmd, promptsCmd, m.svc.Coordinator.WaitForNextResult())

	case appsync.SyncResultMsg:
		switch {
		case msg.AuthError != nil:
			m.setNotice(msg.AuthError.Message, true)
		case msg.Error != nil:
			m.setNotice(msg.Error.Error(), true)
		case msg.Message != "":
			m.setNotice(msg.Message, false)
		}
		var cmd tea.Cmd
		m.inbox, cmd = m.inbox.Update(inboxview.ChangedMsg{})
		return m, tea.Batch(cmd, m.svc.Coordinator.WaitForNextResult())

	case noticeMsg:
		m.setNotice(msg.text, msg.err)
		return m, nil

	// --- Sign-in ---

	case login.SubmitMsg:
		m.notice = ""
		return m, m.submitLogin(msg)

	case login.ResultMsg:
		var cmd tea.Cmd
		m.login, cmd = m.login.Update(msg)
		return m, cmd

	case login.QuitMsg:
		return m.quit()

	case sampleLoadedMsg:
		if msg.err != nil {
			var cmd tea.Cmd
			m.login, cmd = m.login.Update(login.ResultMsg{Err: msg.err})
			return m, cmd
		}
		m.sample = true
		m.currentView = ViewInbox
		var loginCmd, inboxCmd tea.Cmd
		m.login, loginCmd = m.login.Update(login.ResultMsg{})
		m.inbox, inboxCmd = m.inbox.Update(inboxview.ChangedMsg{})
		return m, tea.Batch(loginCmd, inboxCmd)

	// --- Inbox and detail ---

	case inboxview.ChangedMsg:
		var cmd tea.Cmd
		m.inbox, cmd = m.inbox.Update(msg)
		return m, cmd

	case inboxview.OpenMsg:
		m.previousView = m.currentView
		m.currentView = ViewEmail
		m.email.StartLoading()
		return m, m.openEmail(msg.ID)

	case emailview.LoadedMsg, emailview.ReplyMsg, emailview.NoticeMsg:
		var cmd tea.Cmd
		m.email, cmd = m.email.Update(msg)
		return m, cmd

	case emailview.ActionMsg:
		return m, m.runEmailAction(msg)

	case emailUpdatedMsg:
		var emailCmd, inboxCmd tea.Cmd
		if msg.ok {
			m.email, emailCmd = m.email.Update(emailview.LoadedMsg{Email: msg.email})
		}
		if msg.err != nil {
			m.email, _ = m.email.Update(emailview.NoticeMsg{Text: msg.err.Error(), Err: true})
		}
		m.inbox, inboxCmd = m.inbox.Update(inboxview.ChangedMsg{})
		return m, tea.Batch(emailCmd, inboxCmd)

	case emailview.BackMsg:
		m.svc.Inbox.ClearSelection()
		m.currentView = ViewInbox
		var cmd tea.Cmd
		m.inbox, cmd = m.inbox.Update(inboxview.ChangedMsg{})
		return m, cmd

	// --- Prompts ---

	case promptsview.ChangedMsg:
		var cmd tea.Cmd
		m.prompts, cmd = m.prompts.Update(msg)
		return m, cmd

	case promptsview.BackMsg:
		m.currentView = ViewInbox
		return m, nil

	case promptsview.EditMsg:
		m.currentView = ViewPromptForm
		var cmd tea.Cmd
		if msg.Prompt == nil {
			cmd = m.promptForm.StartCreate()
		} else {
			cmd = m.promptForm.StartEdit(*msg.Prompt)
		}
		return m, cmd

	case promptsview.DeleteMsg:
		return m, m.deletePrompt(msg.ID)

	case promptform.SubmitMsg:
		m.currentView = ViewPrompts
		return m, m.savePrompt(msg.ID, msg.Input)

	case promptform.CancelMsg:
		m.currentView = ViewPrompts
		return m, nil

	// --- Agent panel ---

	case aiview.CloseMsg:
		m.currentView = m.returnView()
		return m, nil

	case aiview.ReplyMsg:
		var cmd tea.Cmd
		m.aiView, cmd = m.aiView.Update(msg)
		return m, cmd

	// --- Accounts ---

	case accounts.CloseMsg:
		m.currentView = ViewInbox
		return m, nil

	case accounts.SyncedMsg:
		return m, m.reloadInbox()

	// --- Command palette ---

	case command.CommandMsg:
		m.currentView = m.previousView
		return m, m.executeCommand(string(msg))

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m.quit()
		}
		m.notice = ""
		if !m.capturesInput() {
			if next, cmd, handled := m.handleGlobalKey(msg); handled {
				return next, cmd
			}
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// handleSession switches screens when the identity changes.
func (m *Model) handleSession(ev session.Event) tea.Cmd {
	switch ev.Kind {
	case session.EventLogin, session.EventRestored:
		m.sample = false
		m.notice = ""
		m.aiView.SetSignedOut(false)
		if m.currentView == ViewLogin {
			m.currentView = ViewInbox
		}
		return nil

	case session.EventLogout, session.EventExpired:
		m.sample = false
		m.svc.Assistant.Focus(nil)
		m.aiView.Reset()
		m.aiView.SetSignedOut(true)
		m.currentView = ViewLogin
		cmd := m.login.Reset()
		if ev.Kind == session.EventExpired {
			m.login.SetError(msgSessionExpired)
		}
		return cmd
	}
	return nil
}

// capturesInput reports whether the active view owns every key press.
func (m Model) capturesInput() bool {
	switch m.currentView {
	case ViewLogin, ViewPromptForm, ViewAI:
		return true
	case ViewInbox:
		return m.inbox.Searching()
	case ViewAccounts:
		return m.accounts.CapturesInput()
	}
	return false
}

// handleGlobalKey processes keys that work across views. handled is false
// when the key should go to the active view.
func (m Model) handleGlobalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	switch {
	case m.currentView == ViewCommand:
		if msg.String() == "esc" || key.Matches(msg, m.keys.Command) {
			m.currentView = m.previousView
			return m, nil, true
		}
		return m, nil, false

	case key.Matches(msg, m.keys.Quit):
		if m.currentView == ViewInbox {
			next, cmd := m.quit()
			return next, cmd, true
		}

	case key.Matches(msg, m.keys.Help):
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return m, nil, true
		}
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return m, nil, true

	case key.Matches(msg, m.keys.Back):
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return m, nil, true
		}

	case key.Matches(msg, m.keys.Command):
		m.previousView = m.currentView
		m.currentView = ViewCommand
		cmd := m.commandView.Focus()
		return m, cmd, true

	case key.Matches(msg, m.keys.Refresh):
		if m.currentView == ViewInbox {
			cmd := m.startSync()
			return m, cmd, true
		}

	case key.Matches(msg, m.keys.Prompts):
		if m.currentView == ViewInbox || m.currentView == ViewEmail {
			cmd := m.openPrompts()
			return m, cmd, true
		}

	case key.Matches(msg, m.keys.Agent):
		if m.currentView == ViewInbox || m.currentView == ViewEmail {
			m.previousView = m.currentView
			m.currentView = ViewAI
			cmd := m.aiView.Focus()
			return m, cmd, true
		}

	case key.Matches(msg, m.keys.Accounts):
		if m.currentView == ViewInbox {
			cmd := m.openAccounts()
			return m, cmd, true
		}

	case key.Matches(msg, m.keys.Logout):
		if m.currentView == ViewInbox {
			cmd := m.signOut()
			return m, cmd, true
		}
	}

	return m, nil, false
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewLogin:
		m.login, cmd = m.login.Update(msg)
	case ViewInbox:
		m.inbox, cmd = m.inbox.Update(msg)
	case ViewEmail:
		m.email, cmd = m.email.Update(msg)
	case ViewPrompts:
		m.prompts, cmd = m.prompts.Update(msg)
	case ViewPromptForm:
		m.promptForm, cmd = m.promptForm.Update(msg)
	case ViewAI:
		m.aiView, cmd = m.aiView.Update(msg)
	case ViewAccounts:
		m.accounts, cmd = m.accounts.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	}

	return m, cmd
}

// executeCommand handles a command string from the command palette.
func (m *Model) executeCommand(cmd string) tea.Cmd {
	switch cmd {
	case "sync", "refresh":
		return m.startSync()
	case "sample":
		svc := m.svc
		return func() tea.Msg {
			ctx, cancel := withTimeout()
			defer cancel()
			return inboxview.ChangedMsg{Err: svc.Inbox.LoadSample(ctx)}
		}
	case "prompts":
		return m.openPrompts()
	case "accounts":
		return m.openAccounts()
	case "agent":
		if m.currentView == ViewLogin {
			return nil
		}
		m.previousView = m.currentView
		m.currentView = ViewAI
		return m.aiView.Focus()
	case "stats":
		return m.requireSession(m.showStats)
	case "productivity":
		return m.requireSession(m.showProductivity)
	case "health":
		return m.showHealth()
	case "status":
		return m.showAgentStatus()
	case "logout":
		return m.signOut()
	case "quit", "q":
		m.svc.Coordinator.Stop()
		return tea.Quit
	default:
		m.setNotice(fmt.Sprintf("unknown command %q", cmd), true)
		return nil
	}
}

// returnView is the view to show when an overlay closes.
func (m Model) returnView() ViewState {
	if m.previousView == ViewEmail {
		return ViewEmail
	}
	if !m.svc.Session.Authenticated() && !m.sample {
		return ViewLogin
	}
	return ViewInbox
}

func (m *Model) startSync() tea.Cmd {
	if !m.svc.Session.Authenticated() {
		m.setNotice("Please sign in to sync emails", true)
		return nil
	}
	m.setNotice("Syncing...", false)
	return m.svc.Coordinator.Refresh()
}

func (m *Model) openPrompts() tea.Cmd {
	if !m.svc.Session.Authenticated() {
		m.setNotice("Sign in to manage prompt templates", true)
		return nil
	}
	m.previousView = m.currentView
	m.currentView = ViewPrompts
	return m.prompts.Refresh()
}

func (m *Model) openAccounts() tea.Cmd {
	if !m.svc.Session.Authenticated() {
		m.setNotice("Sign in to manage mailboxes", true)
		return nil
	}
	m.previousView = m.currentView
	m.currentView = ViewAccounts
	return m.accounts.Init()
}

// signOut logs out, or leaves the sample inbox when no one is signed in.
func (m *Model) signOut() tea.Cmd {
	if m.svc.Session.Authenticated() {
		return m.logout()
	}
	m.sample = false
	m.svc.Inbox.Clear()
	m.svc.Assistant.Focus(nil)
	m.currentView = ViewLogin
	return m.login.Reset()
}

func (m *Model) requireSession(fn func() tea.Cmd) tea.Cmd {
	if !m.svc.Session.Authenticated() {
		m.setNotice("Please sign in first", true)
		return nil
	}
	return fn()
}

func (m *Model) setNotice(text string, isErr bool) {
	m.notice = text
	m.noticeErr = isErr
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.svc.Coordinator.Stop()
	return m, tea.Quit
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader(m.headerTitle(), m.syncStatus())
	content := m.renderContent()
	statusBar := m.layout.RenderStatusBar(m.statusNotice(), m.keyHints())

	return m.layout.RenderWithFrame(header, content, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewLogin:
		return m.login.View()
	case ViewInbox:
		return m.inbox.View()
	case ViewEmail:
		return m.email.View()
	case ViewPrompts:
		return m.prompts.View()
	case ViewPromptForm:
		return m.promptForm.View()
	case ViewAI:
		return m.aiView.View()
	case ViewAccounts:
		return m.accounts.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	default:
		return ""
	}
}

func (m Model) headerTitle() string {
	sess := m.svc.Session.Session()
	switch {
	case sess.User != nil:
		return "Mail Agent · " + sess.User.DisplayName()
	case m.sample:
		return "Mail Agent · sample inbox"
	default:
		return "Mail Agent"
	}
}

// syncStatus returns a short string describing the background sync.
func (m Model) syncStatus() string {
	if !m.svc.Session.Authenticated() {
		return "signed out"
	}

	st := m.svc.Coordinator.Status()
	switch st.State {
	case appsync.SyncRunning:
		return "syncing..."
	case appsync.SyncError:
		return "⚠ sync failed"
	}
	if st.LastSync.IsZero() {
		return "idle"
	}
	return "synced " + st.LastSync.Format(time.Kitchen)
}

// statusNotice returns the latest notice, styled by severity.
func (m Model) statusNotice() string {
	if m.notice == "" {
		return ""
	}
	if m.noticeErr {
		return theme.ErrorStyle.Render(m.notice)
	}
	return theme.NoticeStyle.Render(m.notice)
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewLogin:
		return "tab next field | enter submit | esc quit"
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "tab complete | ↑/↓ select | enter run | esc close"
	case ViewEmail:
		return "esc back | C category | s star | a archive | R reply | x export | i agent"
	case ViewPrompts:
		return "n new | e edit | d delete | esc back"
	case ViewPromptForm:
		return "enter submit | esc cancel"
	case ViewAI:
		return "enter send | /summary /actions /reply /categorize /clear | pgup/pgdn scroll | esc close"
	case ViewAccounts:
		return "s sync | g gmail | c paste code | d disconnect | h health | esc back"
	default:
		if m.inbox.Searching() {
			return "enter search | esc cancel"
		}
		return "q quit | ? help | / search | c category | tab sort | r sync | p prompts | i agent"
	}
}

package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/mailagent/internal/api"
	"github.com/nhle/mailagent/internal/apiclient"
	"github.com/nhle/mailagent/internal/keys"
	"github.com/nhle/mailagent/internal/model"
	"github.com/nhle/mailagent/internal/theme"
)

// gmailRedirectURI is the loopback redirect registered for installed
// apps. Google appends ?code=... which the user pastes back here.
const gmailRedirectURI = "http://localhost"

// Mode represents the current state of the accounts view.
type Mode int

const (
	ModeList          Mode = iota // List connected mailboxes
	ModeWorking                   // Waiting for the backend
	ModeResult                    // Show the outcome of an action
	ModeConfirmDelete             // Confirm disconnecting a mailbox
	ModeConnectForm               // Paste the Gmail authorization code
)

// AccountAPI is the mailbox management part of the backend.
type AccountAPI interface {
	List(ctx context.Context) ([]model.EmailAccount, error)
	Disconnect(ctx context.Context, id string) (string, error)
	Sync(ctx context.Context, id string) (*api.AccountSyncResult, error)
	GmailConnectURL(ctx context.Context, redirectURI string) (string, error)
	ConnectGmailCode(ctx context.Context, email, code, redirectURI string) (*api.AccountSyncResult, error)
}

// HealthAPI reports backend health.
type HealthAPI interface {
	Check(ctx context.Context) (*model.Health, error)
	Database(ctx context.Context) (*model.Health, error)
	AI(ctx context.Context) (*model.Health, error)
}

// CloseMsg signals the parent to close the accounts view.
type CloseMsg struct{}

// SyncedMsg is sent after a mailbox sync succeeded so the parent can
// reload the inbox.
type SyncedMsg struct{}

// accountsLoadedMsg carries the connected mailboxes.
type accountsLoadedMsg struct {
	accounts []model.EmailAccount
	err      error
}

// resultMsg carries the outcome of an action.
type resultMsg struct {
	title        string
	detail       string
	err          error
	synced       bool
	awaitingCode bool
}

// connectBindings holds form values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type connectBindings struct {
	email string
	code  string
}

// Model is the connected mailboxes view.
type Model struct {
	accounts    AccountAPI
	health      HealthAPI
	keys        *keys.KeyMap
	mode        Mode
	list        []model.EmailAccount
	selectedIdx int
	spinner     spinner.Model
	working     string
	result      resultMsg
	statusMsg   string
	confirm     *huh.Form
	confirmed   *bool
	connect     *huh.Form
	cb          *connectBindings
	width       int
	height      int
}

// New creates the accounts view.
func New(accounts AccountAPI, health HealthAPI, k *keys.KeyMap, width, height int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.ColorBlue)

	return Model{
		accounts:  accounts,
		health:    health,
		keys:      k,
		spinner:   sp,
		confirmed: new(bool),
		cb:        &connectBindings{},
		width:     width,
		height:    height,
	}
}

// Init loads the connected mailboxes.
func (m Model) Init() tea.Cmd {
	return m.loadAccounts()
}

// Update handles messages for the accounts view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case accountsLoadedMsg:
		m.statusMsg = ""
		if msg.err != nil {
			m.statusMsg = apiclient.Message(msg.err, "Could not load email accounts")
			return m, nil
		}
		m.list = msg.accounts
		if m.selectedIdx >= len(m.list) {
			m.selectedIdx = max(len(m.list)-1, 0)
		}
		return m, nil

	case resultMsg:
		m.mode = ModeResult
		m.result = msg
		var cmds []tea.Cmd
		cmds = append(cmds, m.loadAccounts())
		if msg.synced {
			cmds = append(cmds, func() tea.Msg { return SyncedMsg{} })
		}
		return m, tea.Batch(cmds...)

	case spinner.TickMsg:
		if m.mode != ModeWorking {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	switch m.mode {
	case ModeConfirmDelete:
		return m.updateConfirmDelete(msg)
	case ModeConnectForm:
		return m.updateConnectForm(msg)
	}
	return m, nil
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch m.mode {
	case ModeWorking:
		return m, nil
	case ModeResult:
		switch {
		case msg.String() == "c" && m.result.awaitingCode:
			cmd := m.startConnectForm()
			return m, cmd
		case msg.String() == "enter", key.Matches(msg, m.keys.Back):
			m.mode = ModeList
		}
		return m, nil
	case ModeConfirmDelete:
		return m.updateConfirmDelete(msg)
	case ModeConnectForm:
		return m.updateConnectForm(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Back):
		return m, func() tea.Msg { return CloseMsg{} }

	case key.Matches(msg, m.keys.Down):
		if m.selectedIdx < len(m.list)-1 {
			m.selectedIdx++
		}

	case key.Matches(msg, m.keys.Up):
		if m.selectedIdx > 0 {
			m.selectedIdx--
		}

	case key.Matches(msg, m.keys.Refresh):
		return m, m.loadAccounts()

	case msg.String() == "s":
		if acc, ok := m.selected(); ok {
			return m.start("Syncing "+acc.Email, m.syncAccount(acc))
		}

	case key.Matches(msg, m.keys.Delete):
		if acc, ok := m.selected(); ok {
			*m.confirmed = false
			m.confirm = huh.NewForm(huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Disconnect %s?", acc.Email)).
					Affirmative("Disconnect").
					Negative("Cancel").
					Value(m.confirmed),
			)).WithWidth(m.formWidth())
			m.mode = ModeConfirmDelete
			return m, m.confirm.Init()
		}

	case msg.String() == "g":
		return m.start("Requesting Gmail consent URL", m.gmailURL())

	case msg.String() == "c":
		cmd := m.startConnectForm()
		return m, cmd

	case msg.String() == "h":
		return m.start("Checking backend health", m.checkHealth())
	}

	return m, nil
}

func (m Model) start(label string, cmd tea.Cmd) (Model, tea.Cmd) {
	m.mode = ModeWorking
	m.working = label
	return m, tea.Batch(m.spinner.Tick, cmd)
}

func (m Model) updateConfirmDelete(msg tea.Msg) (Model, tea.Cmd) {
	mdl, cmd := m.confirm.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.confirm = f
	}

	switch m.confirm.State {
	case huh.StateCompleted:
		acc, ok := m.selected()
		if !*m.confirmed || !ok {
			m.mode = ModeList
			return m, nil
		}
		return m.start("Disconnecting "+acc.Email, m.disconnect(acc))
	case huh.StateAborted:
		m.mode = ModeList
		return m, nil
	}
	return m, cmd
}

func (m *Model) startConnectForm() tea.Cmd {
	m.cb.email = ""
	m.cb.code = ""
	m.connect = huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Gmail address").
			Value(&m.cb.email).
			Validate(validateRequired("Gmail address")),
		huh.NewInput().
			Title("Authorization code").
			Description("The code= value from the page Google redirected to").
			Value(&m.cb.code).
			Validate(validateRequired("Authorization code")),
	)).WithWidth(m.formWidth())
	m.mode = ModeConnectForm
	return m.connect.Init()
}

func (m Model) updateConnectForm(msg tea.Msg) (Model, tea.Cmd) {
	mdl, cmd := m.connect.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.connect = f
	}

	switch m.connect.State {
	case huh.StateCompleted:
		email := strings.TrimSpace(m.cb.email)
		code := strings.TrimSpace(m.cb.code)
		return m.start("Connecting "+email, m.connectGmail(email, code))
	case huh.StateAborted:
		m.mode = ModeList
		return m, nil
	}
	return m, cmd
}

func (m Model) selected() (model.EmailAccount, bool) {
	if m.selectedIdx < 0 || m.selectedIdx >= len(m.list) {
		return model.EmailAccount{}, false
	}
	return m.list[m.selectedIdx], true
}

// --- Commands ---

func (m Model) loadAccounts() tea.Cmd {
	a := m.accounts
	return func() tea.Msg {
		list, err := a.List(context.Background())
		return accountsLoadedMsg{accounts: list, err: err}
	}
}

func (m Model) syncAccount(acc model.EmailAccount) tea.Cmd {
	a := m.accounts
	return func() tea.Msg {
		res, err := a.Sync(context.Background(), acc.ID)
		if err != nil {
			return resultMsg{title: "Sync failed", err: errors.New(apiclient.Message(err, "Sync failed"))}
		}
		return resultMsg{title: "Sync complete", detail: res.Message, synced: true}
	}
}

func (m Model) disconnect(acc model.EmailAccount) tea.Cmd {
	a := m.accounts
	return func() tea.Msg {
		text, err := a.Disconnect(context.Background(), acc.ID)
		if err != nil {
			return resultMsg{title: "Disconnect failed", err: errors.New(apiclient.Message(err, "Disconnect failed"))}
		}
		if text == "" {
			text = acc.Email + " disconnected"
		}
		return resultMsg{title: "Disconnected", detail: text}
	}
}

func (m Model) gmailURL() tea.Cmd {
	a := m.accounts
	return func() tea.Msg {
		u, err := a.GmailConnectURL(context.Background(), gmailRedirectURI)
		if err != nil {
			return resultMsg{title: "Gmail unavailable", err: errors.New(apiclient.Message(err, "Could not start Gmail connection"))}
		}
		return resultMsg{
			title:        "Connect Gmail",
			detail:       "Open this URL in a browser and approve access, then press c to paste the code:\n\n" + u,
			awaitingCode: true,
		}
	}
}

func (m Model) connectGmail(email, code string) tea.Cmd {
	a := m.accounts
	return func() tea.Msg {
		res, err := a.ConnectGmailCode(context.Background(), email, code, gmailRedirectURI)
		if err != nil {
			return resultMsg{title: "Gmail connection failed", err: errors.New(apiclient.Message(err, "Gmail authentication failed"))}
		}
		return resultMsg{title: "Gmail connected", detail: res.Message, synced: true}
	}
}

func (m Model) checkHealth() tea.Cmd {
	h := m.health
	return func() tea.Msg {
		ctx := context.Background()
		checks := []struct {
			name string
			fn   func(context.Context) (*model.Health, error)
		}{
			{"API", h.Check},
			{"Database", h.Database},
			{"AI", h.AI},
		}

		var lines []string
		var failed bool
		for _, c := range checks {
			res, err := c.fn(ctx)
			switch {
			case err != nil:
				failed = true
				lines = append(lines, fmt.Sprintf("%-9s unreachable (%s)", c.name, apiclient.Message(err, "no response")))
			default:
				lines = append(lines, fmt.Sprintf("%-9s %s", c.name, res.Status))
			}
		}

		title := "Backend healthy"
		if failed {
			title = "Backend degraded"
		}
		return resultMsg{title: title, detail: strings.Join(lines, "\n")}
	}
}

// CapturesInput reports whether a form or confirmation owns the keyboard.
func (m Model) CapturesInput() bool {
	return m.mode == ModeConfirmDelete || m.mode == ModeConnectForm
}

// --- View ---

// View renders the accounts UI based on the current mode.
func (m Model) View() string {
	switch m.mode {
	case ModeWorking:
		return m.frame(fmt.Sprintf("%s %s...", m.spinner.View(), m.working))
	case ModeResult:
		return m.viewResult()
	case ModeConfirmDelete:
		return m.frame(m.confirm.View())
	case ModeConnectForm:
		return m.frame(m.connect.View())
	default:
		return m.viewList()
	}
}

func (m Model) viewList() string {
	var b strings.Builder

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	b.WriteString(titleStyle.Render("Email Accounts"))
	b.WriteString("\n\n")

	if len(m.list) == 0 {
		b.WriteString(lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Italic(true).
			Render("No mailboxes connected.\nPress 'g' to connect Gmail."))
	} else {
		for i, acc := range m.list {
			b.WriteString(m.renderAccount(i, acc))
			b.WriteString("\n")
		}
	}

	if m.statusMsg != "" {
		b.WriteString("\n")
		b.WriteString(theme.ErrorStyle.Render(m.statusMsg))
	}

	b.WriteString("\n\n")
	b.WriteString(lipgloss.NewStyle().Foreground(theme.ColorGray).Render(
		"s sync | d disconnect | g connect gmail | c paste code | h health | r reload | esc back",
	))

	return m.frame(b.String())
}

func (m Model) renderAccount(idx int, acc model.EmailAccount) string {
	state := lipgloss.NewStyle().Foreground(theme.ColorGreen).Render("active")
	if !acc.IsActive {
		state = lipgloss.NewStyle().Foreground(theme.ColorGray).Render("inactive")
	}

	last := "never synced"
	if !acc.LastSync.IsZero() {
		last = "synced " + acc.LastSync.Local().Format("2006-01-02 15:04")
	}

	primary := ""
	if acc.IsPrimary {
		primary = " ★"
	}

	line := fmt.Sprintf("%s%s  [%s]  %s  %s", acc.Email, primary, acc.Provider, state, last)
	if idx == m.selectedIdx {
		return theme.SelectedItemStyle.Render(line)
	}
	return theme.ListItemStyle.Render(line)
}

func (m Model) viewResult() string {
	var head string
	if m.result.err != nil {
		head = theme.ErrorStyle.Render(m.result.title) + "\n\n" + m.result.err.Error()
	} else {
		head = lipgloss.NewStyle().Bold(true).Foreground(theme.ColorGreen).Render(m.result.title)
		if m.result.detail != "" {
			head += "\n\n" + m.result.detail
		}
	}
	hint := "enter/esc back"
	if m.result.awaitingCode {
		hint = "c paste code | enter/esc back"
	}
	return m.frame(head + "\n\n" +
		lipgloss.NewStyle().Foreground(theme.ColorGray).Render(hint))
}

func (m Model) frame(content string) string {
	return lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height).
		Render(content)
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 80 {
		w = 80
	}
	return w
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

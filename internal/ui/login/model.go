package login

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/emersion/go-message/mail"

	"github.com/nhle/mailagent/internal/theme"
)

// Mode selects what the form submits.
type Mode string

const (
	ModeLogin    Mode = "login"
	ModeRegister Mode = "register"
	ModeReset    Mode = "reset"
	ModeSample   Mode = "sample"
)

// minPasswordLength mirrors the backend's registration rule.
const minPasswordLength = 8

// SubmitMsg is dispatched when the user completes the form.
type SubmitMsg struct {
	Mode     Mode
	Email    string
	Password string
	FullName string
}

// ResultMsg reports the outcome of a submitted form back to the view.
// A nil Err with a Notice shows the notice and rebuilds the form.
type ResultMsg struct {
	Err    error
	Notice string
}

// QuitMsg is dispatched when the user aborts the form.
type QuitMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	mode     Mode
	email    string
	password string
	fullName string
}

// Model is the Bubble Tea model for the sign-in screen.
type Model struct {
	form    *huh.Form
	fb      *formBindings
	err     string
	notice  string
	pending bool
	width   int
	height  int
}

// New creates a new sign-in form model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{mode: ModeLogin},
		width:  width,
		height: height,
	}
}

// Start (re)builds the form, keeping the entered email and mode.
func (m *Model) Start() tea.Cmd {
	m.fb.password = ""
	m.pending = false
	m.form = m.buildForm()
	return m.form.Init()
}

// Reset clears every field and message.
func (m *Model) Reset() tea.Cmd {
	m.fb.mode = ModeLogin
	m.fb.email = ""
	m.fb.fullName = ""
	m.err = ""
	m.notice = ""
	return m.Start()
}

// SetError shows err above the form.
func (m *Model) SetError(msg string) {
	m.err = msg
	m.notice = ""
}

// Update handles messages for the sign-in form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if res, ok := msg.(ResultMsg); ok {
		m.err = ""
		m.notice = res.Notice
		if res.Err != nil {
			m.err = res.Err.Error()
		}
		cmd := m.Start()
		return m, cmd
	}

	if m.form == nil || m.pending {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.pending = true
		return m, m.handleSubmit()
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return QuitMsg{} }
	}

	return m, cmd
}

// View renders the sign-in form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	parts := []string{titleStyle.Render("Email Productivity Agent")}
	if m.err != "" {
		parts = append(parts, theme.ErrorStyle.Render(m.err))
	}
	if m.notice != "" {
		parts = append(parts, theme.HelpStyle.Render(m.notice))
	}
	if m.pending {
		parts = append(parts, theme.HelpStyle.Render("Working..."))
	} else {
		parts = append(parts, m.form.View())
	}

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	if m.form != nil {
		m.form = m.form.WithWidth(m.formWidth()).WithHeight(m.formHeight())
	}
}

func (m *Model) buildForm() *huh.Form {
	fb := m.fb
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[Mode]().
				Title("What would you like to do?").
				Options(
					huh.NewOption("Sign in", ModeLogin),
					huh.NewOption("Create an account", ModeRegister),
					huh.NewOption("Reset my password", ModeReset),
					huh.NewOption("Browse the sample inbox", ModeSample),
				).
				Value(&fb.mode),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Full name").
				Placeholder("Optional").
				Value(&fb.fullName),
		).WithHideFunc(func() bool { return fb.mode != ModeRegister }),
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Placeholder("you@example.com").
				Value(&fb.email).
				Validate(validateEmail),
		).WithHideFunc(func() bool { return fb.mode == ModeSample }),
		huh.NewGroup(
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&fb.password).
				Validate(func(s string) error { return validatePassword(fb.mode, s) }),
		).WithHideFunc(func() bool { return fb.mode == ModeSample || fb.mode == ModeReset }),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m Model) handleSubmit() tea.Cmd {
	msg := SubmitMsg{
		Mode:     m.fb.mode,
		Email:    strings.TrimSpace(m.fb.email),
		Password: m.fb.password,
		FullName: strings.TrimSpace(m.fb.fullName),
	}
	return func() tea.Msg { return msg }
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

func (m Model) formHeight() int {
	h := m.height - 8
	if h < 10 {
		h = 10
	}
	return h
}

func validateEmail(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("email is required")
	}
	if _, err := mail.ParseAddress(s); err != nil {
		return fmt.Errorf("enter a valid email address")
	}
	return nil
}

func validatePassword(mode Mode, s string) error {
	if s == "" {
		return fmt.Errorf("password is required")
	}
	if mode == ModeRegister && len(s) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	return nil
}

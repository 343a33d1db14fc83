// Package ai is the agent panel: a chat about the email in focus plus
// slash commands that run the backend's prompt types against it.
package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	aiservice "github.com/nhle/mailagent/internal/ai"
	"github.com/nhle/mailagent/internal/keys"
	"github.com/nhle/mailagent/internal/theme"
)

// replyTimeout bounds one agent round trip.
const replyTimeout = 90 * time.Second

// CloseMsg asks the root model to leave the panel.
type CloseMsg struct{}

// ReplyMsg carries the agent's answer to the last request.
type ReplyMsg struct {
	Text string
	Err  error
}

type slashCommand struct {
	name       string
	promptType string
}

// slashCommands run an agent prompt type against the focused email.
// "/clear" is handled locally.
var slashCommands = []slashCommand{
	{"/summary", "summary"},
	{"/actions", "action_extraction"},
	{"/reply", "reply_draft"},
	{"/categorize", "categorization"},
}

type speaker int

const (
	fromUser speaker = iota
	fromAgent
	fromError
)

type line struct {
	who  speaker
	text string
}

// Model is the panel state.
type Model struct {
	assistant *aiservice.Assistant
	keys      *keys.KeyMap

	input    textarea.Model
	viewport viewport.Model
	lines    []line
	waiting  bool

	signedOut     bool
	width, height int
}

// New creates the panel.
func New(assistant *aiservice.Assistant, k *keys.KeyMap, width, height int) Model {
	ta := textarea.New()
	ta.Placeholder = "Ask about this email, or /summary /actions /reply /categorize /clear"
	ta.Prompt = "> "
	ta.ShowLineNumbers = false
	ta.SetHeight(3)
	ta.CharLimit = 2000
	ta.Focus()

	m := Model{
		assistant: assistant,
		keys:      k,
		input:     ta,
		viewport:  viewport.New(0, 0),
	}
	m.SetSize(width, height)
	return m
}

func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// Update handles keys and agent replies.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ReplyMsg:
		m.waiting = false
		switch {
		case msg.Err != nil:
			m.lines = append(m.lines, line{fromError, msg.Err.Error()})
		case msg.Text != "":
			m.lines = append(m.lines, line{fromAgent, msg.Text})
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			if m.waiting {
				return m, nil
			}
			return m, func() tea.Msg { return CloseMsg{} }
		case "enter":
			return m.submit()
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if m.signedOut || m.waiting || text == "" {
		return m, nil
	}
	m.input.Reset()

	if text == "/clear" {
		m.lines = nil
		m.assistant.Reset()
		m.refresh()
		return m, nil
	}

	m.lines = append(m.lines, line{fromUser, text})
	m.waiting = true
	m.refresh()

	first := strings.Fields(text)[0]
	for _, c := range slashCommands {
		if c.name == first {
			return m, m.analyze(c.promptType)
		}
	}
	return m, m.ask(text)
}

func (m Model) ask(text string) tea.Cmd {
	a := m.assistant
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), replyTimeout)
		defer cancel()

		ch, err := a.SendMessage(ctx, text)
		if err != nil {
			return ReplyMsg{Err: err}
		}
		var sb strings.Builder
		for chunk := range ch {
			sb.WriteString(chunk.Text)
		}
		return ReplyMsg{Text: sb.String()}
	}
}

func (m Model) analyze(promptType string) tea.Cmd {
	a := m.assistant
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), replyTimeout)
		defer cancel()

		text, err := a.Analyze(ctx, promptType)
		return ReplyMsg{Text: text, Err: err}
	}
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.transcript())
	m.viewport.GotoBottom()
}

func (m Model) transcript() string {
	if len(m.lines) == 0 {
		hint := "Ask the agent anything about your inbox."
		if e, ok := m.assistant.Focused(); ok {
			hint = fmt.Sprintf("Ask about %q, or run a slash command.", e.Subject)
		}
		return theme.HelpStyle.Render(hint)
	}

	label := lipgloss.NewStyle().Bold(true)
	wrap := lipgloss.NewStyle().Width(max(m.viewport.Width, 10))

	var out []string
	for _, l := range m.lines {
		switch l.who {
		case fromUser:
			out = append(out, label.Foreground(theme.ColorBlue).Render("You"))
			out = append(out, wrap.Render(l.text))
		case fromAgent:
			out = append(out, label.Foreground(theme.ColorGreen).Render("Agent"))
			out = append(out, wrap.Render(l.text))
		case fromError:
			out = append(out, theme.ErrorStyle.Render("Error: "+l.text))
		}
		out = append(out, "")
	}
	if m.waiting {
		out = append(out, theme.HelpStyle.Render("thinking..."))
	}
	return strings.Join(out, "\n")
}

// View renders the panel.
func (m Model) View() string {
	if m.signedOut {
		msg := lipgloss.NewStyle().
			Width(m.width-8).
			Align(lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("The email agent is available once you sign in.\n\nPress Esc to go back.")
		return theme.DetailPanelStyle.Width(m.width - 4).Height(m.height - 4).Render(msg)
	}

	title := "Email Agent"
	if e, ok := m.assistant.Focused(); ok {
		title += " · " + e.Subject
	}
	rule := lipgloss.NewStyle().Foreground(theme.ColorSubtle).Render(strings.Repeat("─", max(m.width-8, 1)))

	return theme.DetailPanelStyle.Width(m.width - 4).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			theme.TitleStyle.Render(title),
			m.viewport.View(),
			rule,
			m.input.View(),
		),
	)
}

// SetSignedOut toggles the signed-out placeholder.
func (m *Model) SetSignedOut(signedOut bool) {
	m.signedOut = signedOut
}

// SetSize updates the dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.SetWidth(max(width-8, 10))
	m.viewport.Width = max(width-8, 10)
	m.viewport.Height = max(height-12, 4)
	m.refresh()
}

// Focus gives keyboard focus to the input.
func (m *Model) Focus() tea.Cmd {
	return m.input.Focus()
}

// Reset drops the conversation on both sides.
func (m *Model) Reset() {
	m.lines = nil
	m.waiting = false
	m.input.Reset()
	m.assistant.Reset()
	m.refresh()
}

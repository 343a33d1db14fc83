// Package command implements the ":" palette. Typing narrows the command
// list, tab completes the highlighted entry and enter runs it.
package command

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/mailagent/internal/theme"
)

// CommandMsg carries the command to execute.
type CommandMsg string

// Command is a palette entry.
type Command struct {
	Name string
	Help string
}

// Commands are listed in suggestion order.
var Commands = []Command{
	{"sync", "ask the backend to fetch new mail"},
	{"sample", "load the sample inbox"},
	{"prompts", "manage prompt templates"},
	{"accounts", "connected mail accounts"},
	{"agent", "open the agent panel"},
	{"stats", "email counts by category"},
	{"productivity", "productivity summary"},
	{"health", "backend health"},
	{"status", "agent status"},
	{"logout", "sign out"},
	{"quit", "exit"},
}

// Model is the palette state.
type Model struct {
	input   textinput.Model
	matches []Command
	cursor  int
	width   int
	height  int
}

// New creates a focused palette.
func New(width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "type a command..."
	ti.Prompt = ": "
	ti.Focus()
	ti.Width = width - 6

	return Model{
		input:   ti,
		matches: Commands,
		width:   width,
		height:  height,
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles palette keys.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "enter":
			name := m.resolve()
			m.reset()
			if name == "" {
				return m, nil
			}
			return m, func() tea.Msg { return CommandMsg(name) }
		case "tab":
			if len(m.matches) > 0 {
				m.input.SetValue(m.matches[m.cursor].Name)
				m.input.CursorEnd()
				m.filter()
			}
			return m, nil
		case "up", "ctrl+p":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case "down", "ctrl+n":
			if m.cursor < len(m.matches)-1 {
				m.cursor++
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.filter()
	return m, cmd
}

// resolve picks what enter runs: an exact name, else the highlighted
// match, else the raw text so the caller can report it.
func (m Model) resolve() string {
	typed := strings.TrimSpace(m.input.Value())
	if typed == "" {
		return ""
	}
	for _, c := range Commands {
		if c.Name == typed {
			return typed
		}
	}
	if len(m.matches) > 0 {
		return m.matches[m.cursor].Name
	}
	return typed
}

func (m *Model) filter() {
	prefix := strings.ToLower(strings.TrimSpace(m.input.Value()))
	m.matches = m.matches[:0:0]
	for _, c := range Commands {
		if strings.HasPrefix(c.Name, prefix) {
			m.matches = append(m.matches, c)
		}
	}
	if m.cursor >= len(m.matches) {
		m.cursor = max(len(m.matches)-1, 0)
	}
}

func (m *Model) reset() {
	m.input.Reset()
	m.cursor = 0
	m.matches = Commands
}

// View renders the input above the matching commands.
func (m Model) View() string {
	rows := []string{theme.TitleStyle.Render("Command Palette"), m.input.View(), ""}

	if len(m.matches) == 0 {
		rows = append(rows, theme.HelpStyle.Render("no matching command"))
	}
	for i, c := range m.matches {
		line := lipgloss.JoinHorizontal(lipgloss.Top,
			lipgloss.NewStyle().Width(14).Render(c.Name),
			theme.HelpStyle.Render(c.Help),
		)
		if i == m.cursor {
			rows = append(rows, theme.SelectedItemStyle.Render(line))
		} else {
			rows = append(rows, theme.ListItemStyle.Render(line))
		}
	}

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// SetSize updates the palette dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = width - 6
}

// Focus gives keyboard focus to the input.
func (m *Model) Focus() tea.Cmd {
	return m.input.Focus()
}

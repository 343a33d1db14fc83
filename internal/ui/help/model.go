// Package help renders the keyboard reference, one section per screen.
package help

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/mailagent/internal/keys"
	"github.com/nhle/mailagent/internal/theme"
)

type section struct {
	title    string
	bindings []key.Binding
}

// Model is the help screen.
type Model struct {
	sections []section
	help     help.Model
	width    int
	height   int
}

// New builds the help screen from k.
func New(k *keys.KeyMap, width, height int) Model {
	m := Model{
		sections: []section{
			{"Inbox", []key.Binding{k.Up, k.Down, k.Select, k.Search, k.CycleCategory, k.CycleSort, k.Refresh}},
			{"Email", []key.Binding{k.SetCategory, k.Star, k.Archive, k.Reply, k.Export, k.Back}},
			{"Prompts", []key.Binding{k.Prompts, k.New, k.Edit, k.Delete}},
			{"Agent", []key.Binding{k.Agent, k.Accounts, k.Command}},
			{"Session", []key.Binding{k.Sample, k.Logout, k.Help, k.Quit}},
		},
		help: help.New(),
	}
	m.SetSize(width, height)
	return m
}

func (m Model) Init() tea.Cmd { return nil }

// Update is a no-op; the root model closes the screen.
func (m Model) Update(tea.Msg) (Model, tea.Cmd) { return m, nil }

// View lays the sections out side by side, wrapping when narrow.
func (m Model) View() string {
	blocks := make([]string, 0, len(m.sections))
	for _, s := range m.sections {
		body := m.help.FullHelpView([][]key.Binding{s.bindings})
		blocks = append(blocks, lipgloss.NewStyle().MarginRight(4).Render(
			lipgloss.JoinVertical(lipgloss.Left, theme.TitleStyle.Render(s.title), body),
		))
	}

	inner := m.width - 8
	var rows []string
	var row []string
	rowWidth := 0
	for _, b := range blocks {
		w := lipgloss.Width(b)
		if len(row) > 0 && rowWidth+w > inner {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
			row, rowWidth = nil, 0
		}
		row = append(row, b)
		rowWidth += w
	}
	if len(row) > 0 {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		theme.TitleStyle.Render("Keyboard Shortcuts"),
		lipgloss.JoinVertical(lipgloss.Left, rows...),
		theme.HelpStyle.Render("esc or ? to close"),
	)
	return theme.DetailPanelStyle.Width(m.width - 4).Render(content)
}

// SetSize updates the dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 8
}
